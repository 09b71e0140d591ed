package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"docvault/internal/domain"
)

type FileRepository struct {
	db *sqlx.DB
}

func NewFileRepository(db *sqlx.DB) *FileRepository {
	return &FileRepository{db: db}
}

// Insert создает файл. Заполненный ID означает восстановление из корзины:
// вставка идет с исходным id и терпима к дубликату ключа.
func (r *FileRepository) Insert(ctx context.Context, file *domain.File) error {
	if file.Status == "" {
		file.Status = domain.StatusDraft
	}

	if file.ID != uuid.Nil {
		query := `
            INSERT INTO files (id, name, blob_path, size_bytes, mime_type, folder_id, dimension_id,
                               status, public_url, created_at, updated_at)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, COALESCE($10, CURRENT_TIMESTAMP), CURRENT_TIMESTAMP)
            ON CONFLICT (id) DO NOTHING`

		var createdAt interface{}
		if !file.CreatedAt.IsZero() {
			createdAt = file.CreatedAt
		}

		_, err := r.db.ExecContext(ctx, query,
			file.ID, file.Name, file.BlobPath, file.SizeBytes, file.MIMEType,
			file.FolderID, file.DimensionID, file.Status, file.PublicURL, createdAt)
		if err != nil {
			return fmt.Errorf("failed to insert file %s: %w", file.ID, err)
		}
		return nil
	}

	file.ID = uuid.New()
	query := `
        INSERT INTO files (id, name, blob_path, size_bytes, mime_type, folder_id, dimension_id, status, public_url)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		file.ID, file.Name, file.BlobPath, file.SizeBytes, file.MIMEType,
		file.FolderID, file.DimensionID, file.Status, file.PublicURL,
	).Scan(&file.CreatedAt, &file.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	return nil
}

func (r *FileRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.File, error) {
	var file domain.File
	query := `SELECT * FROM files WHERE id = $1`

	err := r.db.GetContext(ctx, &file, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("file %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get file: %w", err)
	}

	return &file, nil
}

// ListByFolder возвращает файлы папки. folderID == nil — файлы корня измерения.
func (r *FileRepository) ListByFolder(ctx context.Context, dimensionID int64, folderID *int64) ([]domain.File, error) {
	var files []domain.File
	var err error

	if folderID == nil {
		query := `SELECT * FROM files WHERE dimension_id = $1 AND folder_id IS NULL ORDER BY name`
		err = r.db.SelectContext(ctx, &files, query, dimensionID)
	} else {
		query := `SELECT * FROM files WHERE dimension_id = $1 AND folder_id = $2 ORDER BY name`
		err = r.db.SelectContext(ctx, &files, query, dimensionID, *folderID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	return files, nil
}

func (r *FileRepository) UpdateName(ctx context.Context, id uuid.UUID, name string) error {
	query := `
        UPDATE files
        SET name = $1, updated_at = CURRENT_TIMESTAMP
        WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, name, id)
	if err != nil {
		return fmt.Errorf("failed to update file name: %w", err)
	}

	return requireAffected(result, "file")
}

func (r *FileRepository) UpdateFolder(ctx context.Context, id uuid.UUID, folderID *int64) error {
	query := `
        UPDATE files
        SET folder_id = $1, updated_at = CURRENT_TIMESTAMP
        WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, folderID, id)
	if err != nil {
		return fmt.Errorf("failed to update file folder: %w", err)
	}

	return requireAffected(result, "file")
}

func (r *FileRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return requireAffected(result, "file")
}
