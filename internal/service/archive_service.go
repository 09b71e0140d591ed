package service

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"path"
	"strconv"
	"time"

	"github.com/google/uuid"

	"docvault/internal/audit"
	"docvault/internal/domain"
	"docvault/internal/service/coldstorage"
	"docvault/internal/service/s3"
)

const signedURLTTL = 15 * time.Minute

// ArchiveService — трехфазный конвейер архивации поддерева: локальный
// zip-архив, выгрузка в холодное хранилище со снимком структуры,
// окончательная зачистка живого дерева. Фазы независимы и запускаются
// отдельными вызовами.
type ArchiveService struct {
	folders  FolderStore
	files    FileStore
	archives ArchiveStore
	deps     DependentStore
	blobs    s3.Storage
	cold     coldstorage.Provider
	audit    audit.Logger
}

func NewArchiveService(
	folders FolderStore,
	files FileStore,
	archives ArchiveStore,
	deps DependentStore,
	blobs s3.Storage,
	cold coldstorage.Provider,
	auditLog audit.Logger,
) *ArchiveService {
	return &ArchiveService{
		folders:  folders,
		files:    files,
		archives: archives,
		deps:     deps,
		blobs:    blobs,
		cold:     cold,
		audit:    auditLog,
	}
}

// LocalArchive собирает zip-архив поддерева в памяти и возвращает его
// вместе с именем файла. Помечает папку флагом local_archive; живое
// дерево не меняется.
func (s *ArchiveService) LocalArchive(ctx context.Context, folderID int64, actor string) (*bytes.Buffer, string, error) {
	folder, err := s.folders.GetByID(ctx, folderID)
	if err != nil {
		return nil, "", err
	}

	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	if err := s.writeZipFolder(ctx, zw, folder, folder.Name); err != nil {
		zw.Close()
		return nil, "", err
	}
	if err := zw.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finalize zip archive: %w", err)
	}

	local := true
	if err := s.folders.SetArchiveFlags(ctx, folderID, &local, nil); err != nil {
		return nil, "", err
	}

	s.audit.Log(ctx, audit.Event{
		Action:     "archive_local",
		EntityType: "folder",
		EntityID:   strconv.FormatInt(folderID, 10),
		Status:     audit.StatusSuccess,
		ActorID:    actor,
	})

	return buf, folder.Name + ".zip", nil
}

// CloudArchive выгружает zip-архив поддерева в холодное хранилище и
// создает запись архива со снимком структуры дерева. При любом сбое
// флаги папки и записи архива остаются нетронутыми.
func (s *ArchiveService) CloudArchive(ctx context.Context, folderID int64, actor string) (*domain.ArchiveRecord, error) {
	folder, err := s.folders.GetByID(ctx, folderID)
	if err != nil {
		return nil, err
	}

	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	if err := s.writeZipFolder(ctx, zw, folder, folder.Name); err != nil {
		zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize zip archive: %w", err)
	}

	snapshot, err := s.buildSnapshot(ctx, folder)
	if err != nil {
		return nil, err
	}
	snapshotJSON, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tree snapshot: %w", err)
	}

	storagePath := fmt.Sprintf("archives/dim_%d/folder_%d_%d.zip", folder.DimensionID, folder.ID, time.Now().Unix())
	url, err := s.cold.Upload(ctx, storagePath, buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to upload archive to cold storage: %w", err)
	}

	rec := &domain.ArchiveRecord{
		FolderID:        folder.ID,
		FolderName:      folder.Name,
		DimensionID:     folder.DimensionID,
		TreeSnapshot:    snapshotJSON,
		StorageProvider: s.cold.Name(),
		StoragePath:     storagePath,
		StorageURL:      url,
		ArchivedBy:      actor,
	}
	if err := s.archives.Insert(ctx, rec); err != nil {
		return nil, err
	}

	cloud := true
	if err := s.folders.SetArchiveFlags(ctx, folderID, nil, &cloud); err != nil {
		return nil, err
	}

	s.audit.Log(ctx, audit.Event{
		Action:      "archive_cloud",
		EntityType:  "folder",
		EntityID:    strconv.FormatInt(folderID, 10),
		Status:      audit.StatusSuccess,
		Description: "uploaded to " + storagePath,
		ActorID:     actor,
	})

	return rec, nil
}

// MarkArchived — окончательная зачистка заархивированного поддерева:
// живые строки и блобы удаляются, запись архива помечается archived.
// Наличие предшествующих фаз не перепроверяется: вызывающий отвечает за
// то, что выгрузка в холодное хранилище уже состоялась.
func (s *ArchiveService) MarkArchived(ctx context.Context, folderID int64, actor string) error {
	folder, err := s.folders.GetByID(ctx, folderID)
	if err != nil {
		return err
	}

	folders := []domain.Folder{*folder}
	var fileIDs []uuid.UUID
	var blobKeys []string

	for i := 0; i < len(folders); i++ {
		cur := folders[i]

		files, err := s.files.ListByFolder(ctx, cur.DimensionID, &cur.ID)
		if err != nil {
			return fmt.Errorf("failed to list files of folder %d: %w", cur.ID, err)
		}
		for _, f := range files {
			fileIDs = append(fileIDs, f.ID)
			blobKeys = append(blobKeys, f.BlobPath)
		}

		children, err := s.folders.ListByParent(ctx, cur.DimensionID, &cur.ID)
		if err != nil {
			return fmt.Errorf("failed to list children of folder %d: %w", cur.ID, err)
		}
		folders = append(folders, children...)
	}

	// Зачистка в лучшем случае: сбой одного элемента логируется, проход
	// продолжается
	if len(blobKeys) > 0 {
		s.blobs.DeleteObjects(blobKeys)
	}
	for _, id := range fileIDs {
		if err := s.files.Delete(ctx, id); err != nil {
			log.Printf("Warning: failed to delete file row %s: %v", id, err)
		}
	}
	folderIDs := make([]int64, 0, len(folders))
	for i := len(folders) - 1; i >= 0; i-- {
		folderIDs = append(folderIDs, folders[i].ID)
		if err := s.folders.Delete(ctx, folders[i].ID); err != nil {
			log.Printf("Warning: failed to delete folder row %d: %v", folders[i].ID, err)
		}
	}

	if err := s.deps.DeleteForItems(ctx, folderIDs, fileIDs); err != nil {
		log.Printf("Warning: failed to delete dependent records for folder %d: %v", folderID, err)
	}

	if err := s.archives.MarkArchived(ctx, folderID); err != nil {
		return err
	}

	s.audit.Log(ctx, audit.Event{
		Action:      "archive_purge",
		EntityType:  "folder",
		EntityID:    strconv.FormatInt(folderID, 10),
		Status:      audit.StatusSuccess,
		Description: fmt.Sprintf("purged %d folders, %d files", len(folders), len(fileIDs)),
		ActorID:     actor,
	})

	return nil
}

// ListArchives возвращает записи архивов измерения, свежие первыми
func (s *ArchiveService) ListArchives(ctx context.Context, dimensionID int64) ([]domain.ArchiveRecord, error) {
	return s.archives.ListByDimension(ctx, dimensionID)
}

// SignedURL выдает короткоживущую ссылку на скачивание архива
func (s *ArchiveService) SignedURL(ctx context.Context, archiveID int64) (string, error) {
	rec, err := s.archives.GetByID(ctx, archiveID)
	if err != nil {
		return "", err
	}

	return s.cold.SignedURL(ctx, rec.StoragePath, signedURLTTL)
}

// writeZipFolder рекурсивно пишет содержимое папки в zip-архив; пути
// внутри архива повторяют имена папок
func (s *ArchiveService) writeZipFolder(ctx context.Context, zw *zip.Writer, folder *domain.Folder, prefix string) error {
	files, err := s.files.ListByFolder(ctx, folder.DimensionID, &folder.ID)
	if err != nil {
		return fmt.Errorf("failed to list files of folder %d: %w", folder.ID, err)
	}

	for _, f := range files {
		obj, err := s.blobs.GetObject(ctx, f.BlobPath)
		if err != nil {
			return fmt.Errorf("failed to fetch blob for file %s: %w", f.ID, err)
		}

		w, err := zw.Create(path.Join(prefix, f.Name))
		if err != nil {
			obj.Close()
			return fmt.Errorf("failed to create zip entry for file %s: %w", f.ID, err)
		}
		if _, err := io.Copy(w, obj); err != nil {
			obj.Close()
			return fmt.Errorf("failed to write zip entry for file %s: %w", f.ID, err)
		}
		obj.Close()
	}

	children, err := s.folders.ListByParent(ctx, folder.DimensionID, &folder.ID)
	if err != nil {
		return fmt.Errorf("failed to list children of folder %d: %w", folder.ID, err)
	}
	for i := range children {
		child := children[i]
		if err := s.writeZipFolder(ctx, zw, &child, path.Join(prefix, child.Name)); err != nil {
			return err
		}
	}

	return nil
}

// buildSnapshot строит снимок структуры поддерева для записи архива
func (s *ArchiveService) buildSnapshot(ctx context.Context, folder *domain.Folder) (*domain.TreeSnapshotNode, error) {
	node := &domain.TreeSnapshotNode{
		ID:   folder.ID,
		Name: folder.Name,
	}

	files, err := s.files.ListByFolder(ctx, folder.DimensionID, &folder.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files of folder %d: %w", folder.ID, err)
	}
	for _, f := range files {
		node.Files = append(node.Files, domain.TreeSnapshotFile{
			ID:        f.ID.String(),
			Name:      f.Name,
			SizeBytes: f.SizeBytes,
			MIMEType:  f.MIMEType,
		})
	}

	children, err := s.folders.ListByParent(ctx, folder.DimensionID, &folder.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list children of folder %d: %w", folder.ID, err)
	}
	for i := range children {
		child := children[i]
		childNode, err := s.buildSnapshot(ctx, &child)
		if err != nil {
			return nil, err
		}
		node.Folders = append(node.Folders, *childNode)
	}

	return node, nil
}
