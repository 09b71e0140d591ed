package domain

import "time"

const (
	TrashItemFolder = "folder"
	TrashItemFile   = "file"
)

// DefaultRetentionDays — срок хранения записей в корзине до автоочистки
const DefaultRetentionDays = 30

// TrashRecord — строка корзины. Все записи одного каскадного удаления
// разделяют общий root_deleted_folder_id и восстанавливаются или
// вычищаются только группой. Одиночный файл использует собственный id
// в качестве корневого.
type TrashRecord struct {
	ID                  int64      `json:"id" db:"id"`
	ItemID              string     `json:"item_id" db:"item_id"`
	ItemType            string     `json:"item_type" db:"item_type"`
	ItemName            string     `json:"item_name" db:"item_name"`
	DimensionID         int64      `json:"dimension_id" db:"dimension_id"`
	BlobPath            *string    `json:"-" db:"blob_path"`
	SizeBytes           *int64     `json:"size_bytes,omitempty" db:"size_bytes"`
	MIMEType            *string    `json:"mime_type,omitempty" db:"mime_type"`
	PublicURL           *string    `json:"public_url,omitempty" db:"public_url"`
	OriginalParentID    *int64     `json:"original_parent_id,omitempty" db:"original_parent_id"`
	OriginalFolderID    *int64     `json:"original_folder_id,omitempty" db:"original_folder_id"`
	RootDeletedFolderID string     `json:"root_deleted_folder_id" db:"root_deleted_folder_id"`
	ItemCreatedAt       *time.Time `json:"item_created_at,omitempty" db:"item_created_at"`
	DeletedAt           time.Time  `json:"deleted_at" db:"deleted_at"`
}
