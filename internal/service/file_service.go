package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"docvault/internal/domain"
	"docvault/internal/service/s3"
)

// FileService — загрузка, скачивание и перемещение одиночных файлов
type FileService struct {
	files   FileStore
	folders FolderStore
	blobs   s3.Storage
}

func NewFileService(files FileStore, folders FolderStore, blobs s3.Storage) *FileService {
	return &FileService{files: files, folders: folders, blobs: blobs}
}

// Upload сохраняет блоб и создает строку файла. Папка, если указана,
// обязана существовать и принадлежать тому же измерению.
func (s *FileService) Upload(ctx context.Context, upload *domain.FileUpload) (*domain.File, error) {
	if upload.Name == "" {
		return nil, fmt.Errorf("file name is required: %w", domain.ErrInvalidInput)
	}

	if upload.FolderID != nil {
		folder, err := s.folders.GetByID(ctx, *upload.FolderID)
		if err != nil {
			return nil, fmt.Errorf("target folder: %w", err)
		}
		if folder.DimensionID != upload.DimensionID {
			return nil, fmt.Errorf("target folder belongs to another dimension: %w", domain.ErrInvalidInput)
		}
	}

	blobPath := newBlobPath(upload.DimensionID, upload.FolderID)
	url, err := s.blobs.UploadBytes(blobPath, upload.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to upload blob: %w", err)
	}

	file := &domain.File{
		Name:        upload.Name,
		BlobPath:    blobPath,
		SizeBytes:   upload.SizeBytes,
		MIMEType:    upload.MIMEType,
		FolderID:    upload.FolderID,
		DimensionID: upload.DimensionID,
		Status:      domain.StatusDraft,
		PublicURL:   url,
	}
	if err := s.files.Insert(ctx, file); err != nil {
		return nil, err
	}

	return file, nil
}

func (s *FileService) Get(ctx context.Context, id uuid.UUID) (*domain.File, error) {
	return s.files.GetByID(ctx, id)
}

// Download возвращает метаданные файла и поток содержимого блоба.
// Закрытие потока — на вызывающем.
func (s *FileService) Download(ctx context.Context, id uuid.UUID) (*domain.File, s3.S3Object, error) {
	file, err := s.files.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	obj, err := s.blobs.GetObject(ctx, file.BlobPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch blob for file %s: %w", id, err)
	}

	return file, obj, nil
}

func (s *FileService) Rename(ctx context.Context, id uuid.UUID, name string) error {
	if name == "" {
		return fmt.Errorf("file name is required: %w", domain.ErrInvalidInput)
	}
	return s.files.UpdateName(ctx, id, name)
}

// Move переносит файл в другую папку того же измерения; nil — в корень
func (s *FileService) Move(ctx context.Context, id uuid.UUID, folderID *int64) error {
	file, err := s.files.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if folderID != nil {
		folder, err := s.folders.GetByID(ctx, *folderID)
		if err != nil {
			return fmt.Errorf("target folder: %w", err)
		}
		if folder.DimensionID != file.DimensionID {
			return fmt.Errorf("target folder belongs to another dimension: %w", domain.ErrInvalidInput)
		}
	}

	return s.files.UpdateFolder(ctx, id, folderID)
}
