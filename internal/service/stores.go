package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"docvault/internal/domain"
)

// Узкие контракты хранилища метаданных дерева. Репозитории в
// internal/repository реализуют их поверх postgres; каскадные алгоритмы
// не знают, что стоит за интерфейсом.

type FolderStore interface {
	// Insert с заполненным ID обязан быть терпим к дубликату ключа
	Insert(ctx context.Context, folder *domain.Folder) error
	GetByID(ctx context.Context, id int64) (*domain.Folder, error)
	ListByParent(ctx context.Context, dimensionID int64, parentID *int64) ([]domain.Folder, error)
	UpdateName(ctx context.Context, id int64, name string) error
	UpdateParent(ctx context.Context, id int64, parentID *int64) error
	UpdateStatus(ctx context.Context, id int64, status string) error
	UpdateLock(ctx context.Context, id int64, locked bool, pinHash *string) error
	SetArchiveFlags(ctx context.Context, id int64, local, cloud *bool) error
	Delete(ctx context.Context, id int64) error
}

type FileStore interface {
	Insert(ctx context.Context, file *domain.File) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.File, error)
	ListByFolder(ctx context.Context, dimensionID int64, folderID *int64) ([]domain.File, error)
	UpdateName(ctx context.Context, id uuid.UUID, name string) error
	UpdateFolder(ctx context.Context, id uuid.UUID, folderID *int64) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type TrashStore interface {
	Insert(ctx context.Context, rec *domain.TrashRecord) error
	GetByID(ctx context.Context, id int64) (*domain.TrashRecord, error)
	ListRoots(ctx context.Context, dimensionID int64) ([]domain.TrashRecord, error)
	ListByRoot(ctx context.Context, rootID string) ([]domain.TrashRecord, error)
	DeleteByRoot(ctx context.Context, rootID string) error
	ListExpired(ctx context.Context, olderThan time.Time) ([]domain.TrashRecord, error)
	DeleteExpired(ctx context.Context, olderThan time.Time) error
}

// DependentStore вычищает строки, ссылающиеся на удаляемые элементы
// (заявки на доработку, расшаренные элементы)
type DependentStore interface {
	DeleteForItems(ctx context.Context, folderIDs []int64, fileIDs []uuid.UUID) error
}

type ArchiveStore interface {
	Insert(ctx context.Context, rec *domain.ArchiveRecord) error
	GetByID(ctx context.Context, id int64) (*domain.ArchiveRecord, error)
	GetByFolderID(ctx context.Context, folderID int64) (*domain.ArchiveRecord, error)
	ListByDimension(ctx context.Context, dimensionID int64) ([]domain.ArchiveRecord, error)
	MarkArchived(ctx context.Context, folderID int64) error
}
