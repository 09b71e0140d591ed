package domain

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// ArchiveRecord создаётся фазой выгрузки в холодное хранилище и никогда
// не удаляется этой подсистемой. Флаг archived выставляется ровно один
// раз — фазой окончательной зачистки.
type ArchiveRecord struct {
	ID              int64          `json:"id" db:"id"`
	FolderID        int64          `json:"folder_id" db:"folder_id"`
	FolderName      string         `json:"folder_name" db:"folder_name"`
	DimensionID     int64          `json:"dimension_id" db:"dimension_id"`
	TreeSnapshot    types.JSONText `json:"tree_snapshot" db:"tree_snapshot"`
	StorageProvider string         `json:"storage_provider" db:"storage_provider"`
	StoragePath     string         `json:"storage_path" db:"storage_path"`
	StorageURL      string         `json:"storage_url" db:"storage_url"`
	ArchivedAt      time.Time      `json:"archived_at" db:"archived_at"`
	ArchivedBy      string         `json:"archived_by" db:"archived_by"`
	Archived        bool           `json:"archived" db:"archived"`
}

// TreeSnapshotNode — снимок структуры папки на момент архивации.
// Позволяет просматривать содержимое архива без обращения к живому дереву.
type TreeSnapshotNode struct {
	ID      int64              `json:"id"`
	Name    string             `json:"name"`
	Files   []TreeSnapshotFile `json:"files,omitempty"`
	Folders []TreeSnapshotNode `json:"folders,omitempty"`
}

type TreeSnapshotFile struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SizeBytes int64  `json:"size_bytes"`
	MIMEType  string `json:"mime_type"`
}
