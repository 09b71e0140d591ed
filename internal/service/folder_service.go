package service

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"docvault/internal/domain"
)

// FolderService — CRUD и статусный цикл папок. Каскадные операции
// (копирование, перемещение, удаление) живут в CascadeService.
type FolderService struct {
	folders FolderStore
	files   FileStore
}

func NewFolderService(folders FolderStore, files FileStore) *FolderService {
	return &FolderService{folders: folders, files: files}
}

// Create создает папку. Родитель, если указан, обязан существовать и
// принадлежать тому же измерению.
func (s *FolderService) Create(ctx context.Context, name string, dimensionID int64, parentID *int64) (*domain.Folder, error) {
	if name == "" {
		return nil, fmt.Errorf("folder name is required: %w", domain.ErrInvalidInput)
	}

	if parentID != nil {
		parent, err := s.folders.GetByID(ctx, *parentID)
		if err != nil {
			return nil, fmt.Errorf("parent folder: %w", err)
		}
		if parent.DimensionID != dimensionID {
			return nil, fmt.Errorf("parent folder belongs to another dimension: %w", domain.ErrInvalidInput)
		}
	}

	folder := &domain.Folder{
		Name:        name,
		DimensionID: dimensionID,
		ParentID:    parentID,
		Status:      domain.StatusDraft,
	}
	if err := s.folders.Insert(ctx, folder); err != nil {
		return nil, err
	}

	return folder, nil
}

func (s *FolderService) Get(ctx context.Context, id int64) (*domain.Folder, error) {
	return s.folders.GetByID(ctx, id)
}

func (s *FolderService) Rename(ctx context.Context, id int64, name string) error {
	if name == "" {
		return fmt.Errorf("folder name is required: %w", domain.ErrInvalidInput)
	}
	return s.folders.UpdateName(ctx, id, name)
}

// GetContent возвращает папку вместе с её файлами и подпапками
func (s *FolderService) GetContent(ctx context.Context, id int64) (*domain.FolderContent, error) {
	folder, err := s.folders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	files, err := s.files.ListByFolder(ctx, folder.DimensionID, &folder.ID)
	if err != nil {
		return nil, err
	}
	subfolders, err := s.folders.ListByParent(ctx, folder.DimensionID, &folder.ID)
	if err != nil {
		return nil, err
	}

	return &domain.FolderContent{
		Folder:  *folder,
		Files:   files,
		Folders: subfolders,
	}, nil
}

// GetRootContent возвращает содержимое корня измерения
func (s *FolderService) GetRootContent(ctx context.Context, dimensionID int64) (*domain.FolderContent, error) {
	files, err := s.files.ListByFolder(ctx, dimensionID, nil)
	if err != nil {
		return nil, err
	}
	folders, err := s.folders.ListByParent(ctx, dimensionID, nil)
	if err != nil {
		return nil, err
	}

	return &domain.FolderContent{
		Files:   files,
		Folders: folders,
	}, nil
}

// UpdateStatus переводит папку в новый статус, проверяя допустимость
// перехода
func (s *FolderService) UpdateStatus(ctx context.Context, id int64, status string) error {
	folder, err := s.folders.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if !domain.CanTransitionStatus(folder.Status, status) {
		return fmt.Errorf("status transition %s -> %s is not allowed: %w", folder.Status, status, domain.ErrConflict)
	}

	return s.folders.UpdateStatus(ctx, id, status)
}

// Lock запирает папку PIN-кодом. Хранится только bcrypt-хеш.
// Блокировка ограничивает интерактивный доступ; каскадные операции её
// не проверяют.
func (s *FolderService) Lock(ctx context.Context, id int64, pin string) error {
	if len(pin) < 4 {
		return fmt.Errorf("pin must be at least 4 characters: %w", domain.ErrInvalidInput)
	}

	if _, err := s.folders.GetByID(ctx, id); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash pin: %w", err)
	}

	hashStr := string(hash)
	return s.folders.UpdateLock(ctx, id, true, &hashStr)
}

// Unlock снимает блокировку при совпадении PIN-кода
func (s *FolderService) Unlock(ctx context.Context, id int64, pin string) error {
	folder, err := s.folders.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if !folder.IsLocked || folder.PinHash == nil {
		return nil
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*folder.PinHash), []byte(pin)); err != nil {
		return fmt.Errorf("wrong pin: %w", domain.ErrUnauthorized)
	}

	return s.folders.UpdateLock(ctx, id, false, nil)
}
