package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"docvault/internal/domain"
)

type FolderRepository struct {
	db *sqlx.DB
}

func NewFolderRepository(db *sqlx.DB) *FolderRepository {
	return &FolderRepository{db: db}
}

// Insert создает папку. Если ID уже заполнен (восстановление из корзины),
// вставка выполняется с исходным id и терпима к дубликату ключа:
// повторная попытка восстановления считается успехом.
func (r *FolderRepository) Insert(ctx context.Context, folder *domain.Folder) error {
	if folder.Status == "" {
		folder.Status = domain.StatusDraft
	}

	if folder.ID != 0 {
		query := `
            INSERT INTO folders (id, name, dimension_id, parent_folder_id, status, is_locked, pin_hash,
                                 local_archive, cloud_archive, created_at, updated_at)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, COALESCE($10, CURRENT_TIMESTAMP), CURRENT_TIMESTAMP)
            ON CONFLICT (id) DO NOTHING`

		var createdAt interface{}
		if !folder.CreatedAt.IsZero() {
			createdAt = folder.CreatedAt
		}

		_, err := r.db.ExecContext(ctx, query,
			folder.ID, folder.Name, folder.DimensionID, folder.ParentID, folder.Status,
			folder.IsLocked, folder.PinHash, folder.LocalArchive, folder.CloudArchive, createdAt)
		if err != nil {
			return fmt.Errorf("failed to insert folder %d: %w", folder.ID, err)
		}
		return nil
	}

	query := `
        INSERT INTO folders (name, dimension_id, parent_folder_id, status)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		folder.Name, folder.DimensionID, folder.ParentID, folder.Status,
	).Scan(&folder.ID, &folder.CreatedAt, &folder.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create folder: %w", err)
	}

	return nil
}

func (r *FolderRepository) GetByID(ctx context.Context, id int64) (*domain.Folder, error) {
	var folder domain.Folder
	query := `SELECT * FROM folders WHERE id = $1`

	err := r.db.GetContext(ctx, &folder, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("folder %d: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get folder: %w", err)
	}

	return &folder, nil
}

// ListByParent возвращает прямых потомков. parentID == nil — папки корня измерения.
func (r *FolderRepository) ListByParent(ctx context.Context, dimensionID int64, parentID *int64) ([]domain.Folder, error) {
	var folders []domain.Folder
	var err error

	if parentID == nil {
		query := `SELECT * FROM folders WHERE dimension_id = $1 AND parent_folder_id IS NULL ORDER BY name`
		err = r.db.SelectContext(ctx, &folders, query, dimensionID)
	} else {
		query := `SELECT * FROM folders WHERE dimension_id = $1 AND parent_folder_id = $2 ORDER BY name`
		err = r.db.SelectContext(ctx, &folders, query, dimensionID, *parentID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}

	return folders, nil
}

func (r *FolderRepository) UpdateName(ctx context.Context, id int64, name string) error {
	query := `
        UPDATE folders
        SET name = $1, updated_at = CURRENT_TIMESTAMP
        WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, name, id)
	if err != nil {
		return fmt.Errorf("failed to update folder name: %w", err)
	}

	return requireAffected(result, "folder")
}

func (r *FolderRepository) UpdateParent(ctx context.Context, id int64, parentID *int64) error {
	query := `
        UPDATE folders
        SET parent_folder_id = $1, updated_at = CURRENT_TIMESTAMP
        WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, parentID, id)
	if err != nil {
		return fmt.Errorf("failed to update folder parent: %w", err)
	}

	return requireAffected(result, "folder")
}

func (r *FolderRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	query := `
        UPDATE folders
        SET status = $1, updated_at = CURRENT_TIMESTAMP
        WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update folder status: %w", err)
	}

	return requireAffected(result, "folder")
}

// UpdateLock выставляет или снимает PIN-замок
func (r *FolderRepository) UpdateLock(ctx context.Context, id int64, locked bool, pinHash *string) error {
	query := `
        UPDATE folders
        SET is_locked = $1, pin_hash = $2, updated_at = CURRENT_TIMESTAMP
        WHERE id = $3`

	result, err := r.db.ExecContext(ctx, query, locked, pinHash, id)
	if err != nil {
		return fmt.Errorf("failed to update folder lock: %w", err)
	}

	return requireAffected(result, "folder")
}

// SetArchiveFlags обновляет флаги архивации. nil — флаг не трогаем.
func (r *FolderRepository) SetArchiveFlags(ctx context.Context, id int64, local, cloud *bool) error {
	query := `
        UPDATE folders
        SET local_archive = COALESCE($1, local_archive),
            cloud_archive = COALESCE($2, cloud_archive),
            updated_at = CURRENT_TIMESTAMP
        WHERE id = $3`

	result, err := r.db.ExecContext(ctx, query, local, cloud, id)
	if err != nil {
		return fmt.Errorf("failed to set archive flags: %w", err)
	}

	return requireAffected(result, "folder")
}

func (r *FolderRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM folders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete folder: %w", err)
	}

	return requireAffected(result, "folder")
}

func requireAffected(result sql.Result, entity string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", entity, domain.ErrNotFound)
	}
	return nil
}
