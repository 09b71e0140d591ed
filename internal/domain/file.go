package domain

import (
	"time"

	"github.com/google/uuid"
)

type File struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	BlobPath    string    `json:"-" db:"blob_path"`
	SizeBytes   int64     `json:"size_bytes" db:"size_bytes"`
	MIMEType    string    `json:"mime_type" db:"mime_type"`
	FolderID    *int64    `json:"folder_id,omitempty" db:"folder_id"` // NULL — корень измерения
	DimensionID int64     `json:"dimension_id" db:"dimension_id"`
	Status      string    `json:"status" db:"status"`
	PublicURL   string    `json:"public_url" db:"public_url"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// FileUpload содержит данные загружаемого файла
type FileUpload struct {
	Name        string
	MIMEType    string
	SizeBytes   int64
	FolderID    *int64
	DimensionID int64
	Data        []byte
}
