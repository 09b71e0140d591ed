package domain

import (
	"time"
)

// Статусы папки. Переходы запускает внешний workflow-сервис,
// ядро лишь проверяет их допустимость.
const (
	StatusDraft       = "draft"
	StatusForChecking = "for_checking"
	StatusChecked     = "checked"
	StatusRevisions   = "revisions"
)

// CanTransitionStatus проверяет допустимость перехода статуса папки.
// Цикл: draft -> for_checking -> checked | revisions, revisions -> for_checking.
func CanTransitionStatus(from, to string) bool {
	switch from {
	case StatusDraft:
		return to == StatusForChecking
	case StatusForChecking:
		return to == StatusChecked || to == StatusRevisions
	case StatusRevisions:
		return to == StatusForChecking
	}
	return false
}

type Folder struct {
	ID           int64     `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	DimensionID  int64     `json:"dimension_id" db:"dimension_id"`
	ParentID     *int64    `json:"parent_folder_id,omitempty" db:"parent_folder_id"`
	Status       string    `json:"status" db:"status"`
	IsLocked     bool      `json:"is_locked" db:"is_locked"`
	PinHash      *string   `json:"-" db:"pin_hash"`
	LocalArchive bool      `json:"local_archive" db:"local_archive"`
	CloudArchive bool      `json:"cloud_archive" db:"cloud_archive"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

type FolderContent struct {
	Folder  Folder   `json:"folder"`
	Files   []File   `json:"files"`
	Folders []Folder `json:"subfolders"`
}

// SubtreeCounts — оценка размера поддерева.
// Используется только для отображения, пересчитывается при каждом запросе.
type SubtreeCounts struct {
	Folders int `json:"folders"`
	Files   int `json:"files"`
}
