package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"docvault/internal/audit"
	"docvault/internal/domain"
	"docvault/internal/service/s3"
)

// TrashService — жизненный цикл корзины: список, восстановление,
// окончательное удаление и зачистка по сроку хранения. Каскадные обходы
// делегируются движку CascadeService.
type TrashService struct {
	cascade *CascadeService
	trash   TrashStore
	blobs   s3.Storage
	audit   audit.Logger
}

func NewTrashService(cascade *CascadeService, trash TrashStore, blobs s3.Storage, auditLog audit.Logger) *TrashService {
	return &TrashService{
		cascade: cascade,
		trash:   trash,
		blobs:   blobs,
		audit:   auditLog,
	}
}

// DeleteFolderToTrash переводит поддерево папки в корзину
func (s *TrashService) DeleteFolderToTrash(ctx context.Context, folderID int64, actor string) error {
	return s.cascade.DeleteSubtree(ctx, folderID, actor)
}

// DeleteFileToTrash переводит одиночный файл в корзину
func (s *TrashService) DeleteFileToTrash(ctx context.Context, fileID uuid.UUID, actor string) error {
	return s.cascade.DeleteFileToTrash(ctx, fileID, actor)
}

// ListTrash возвращает корневые записи корзины измерения: по одной на
// событие удаления, свежие первыми
func (s *TrashService) ListTrash(ctx context.Context, dimensionID int64) ([]domain.TrashRecord, error) {
	return s.trash.ListRoots(ctx, dimensionID)
}

// Recover восстанавливает группу записей корзины по корневой записи
func (s *TrashService) Recover(ctx context.Context, rootTrashID int64, itemType string) error {
	return s.cascade.RecoverSubtree(ctx, rootTrashID, itemType)
}

// PermanentlyDelete окончательно удаляет группу записей корзины вместе
// с содержимым блобов. Сбой удаления блоба логируется и не прерывает
// зачистку: строки корзины удаляются в любом случае.
func (s *TrashService) PermanentlyDelete(ctx context.Context, rootTrashID int64, actor string) error {
	rec, err := s.trash.GetByID(ctx, rootTrashID)
	if err != nil {
		return err
	}

	rows, err := s.trash.ListByRoot(ctx, rec.RootDeletedFolderID)
	if err != nil {
		return err
	}

	s.deleteBlobs(rows)

	if err := s.trash.DeleteByRoot(ctx, rec.RootDeletedFolderID); err != nil {
		return err
	}

	s.audit.Log(ctx, audit.Event{
		Action:     "purge",
		EntityType: rec.ItemType,
		EntityID:   rec.ItemID,
		Status:     audit.StatusSuccess,
		ActorID:    actor,
	})

	return nil
}

// CleanupExpired зачищает записи корзины старше заданного срока хранения.
// Возвращает число зачищенных записей.
func (s *TrashService) CleanupExpired(ctx context.Context, retentionDays int) (int, error) {
	cutoff := time.Now().Add(-time.Duration(retentionDays) * 24 * time.Hour)

	expired, err := s.trash.ListExpired(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if len(expired) == 0 {
		return 0, nil
	}

	s.deleteBlobs(expired)

	if err := s.trash.DeleteExpired(ctx, cutoff); err != nil {
		return 0, err
	}

	log.Printf("trash cleanup: purged %d expired records", len(expired))
	return len(expired), nil
}

// RunAutoCleanup запускает периодическую зачистку корзины со стандартным
// сроком хранения. Блокируется до отмены контекста.
func (s *TrashService) RunAutoCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.CleanupExpired(ctx, domain.DefaultRetentionDays); err != nil {
				log.Printf("Warning: trash auto cleanup failed: %v", err)
			}
		}
	}
}

// deleteBlobs собирает пути блобов из группы записей и удаляет их
// пакетом, в лучшем случае
func (s *TrashService) deleteBlobs(rows []domain.TrashRecord) {
	var keys []string
	for _, row := range rows {
		if row.ItemType == domain.TrashItemFile && row.BlobPath != nil && *row.BlobPath != "" {
			keys = append(keys, *row.BlobPath)
		}
	}
	if len(keys) > 0 {
		s.blobs.DeleteObjects(keys)
	}
}
