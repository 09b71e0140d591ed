package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"docvault/internal/domain"
)

type ArchiveRepository struct {
	db *sqlx.DB
}

func NewArchiveRepository(db *sqlx.DB) *ArchiveRepository {
	return &ArchiveRepository{db: db}
}

func (r *ArchiveRepository) Insert(ctx context.Context, rec *domain.ArchiveRecord) error {
	query := `
        INSERT INTO archive_records (folder_id, folder_name, dimension_id, tree_snapshot,
                                     storage_provider, storage_path, storage_url, archived_by)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id, archived_at`

	err := r.db.QueryRowContext(ctx, query,
		rec.FolderID, rec.FolderName, rec.DimensionID, rec.TreeSnapshot,
		rec.StorageProvider, rec.StoragePath, rec.StorageURL, rec.ArchivedBy,
	).Scan(&rec.ID, &rec.ArchivedAt)
	if err != nil {
		return fmt.Errorf("failed to insert archive record: %w", err)
	}

	return nil
}

func (r *ArchiveRepository) GetByID(ctx context.Context, id int64) (*domain.ArchiveRecord, error) {
	var rec domain.ArchiveRecord
	err := r.db.GetContext(ctx, &rec, `SELECT * FROM archive_records WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("archive record %d: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get archive record: %w", err)
	}

	return &rec, nil
}

func (r *ArchiveRepository) GetByFolderID(ctx context.Context, folderID int64) (*domain.ArchiveRecord, error) {
	var rec domain.ArchiveRecord
	query := `SELECT * FROM archive_records WHERE folder_id = $1 ORDER BY archived_at DESC LIMIT 1`

	err := r.db.GetContext(ctx, &rec, query, folderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("archive record for folder %d: %w", folderID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get archive record: %w", err)
	}

	return &rec, nil
}

func (r *ArchiveRepository) ListByDimension(ctx context.Context, dimensionID int64) ([]domain.ArchiveRecord, error) {
	var recs []domain.ArchiveRecord
	query := `SELECT * FROM archive_records WHERE dimension_id = $1 ORDER BY archived_at DESC`

	if err := r.db.SelectContext(ctx, &recs, query, dimensionID); err != nil {
		return nil, fmt.Errorf("failed to list archive records: %w", err)
	}

	return recs, nil
}

// MarkArchived выставляет флаг archived. Переход false -> true происходит
// ровно один раз — в фазе окончательной зачистки.
func (r *ArchiveRepository) MarkArchived(ctx context.Context, folderID int64) error {
	query := `UPDATE archive_records SET archived = TRUE WHERE folder_id = $1`

	result, err := r.db.ExecContext(ctx, query, folderID)
	if err != nil {
		return fmt.Errorf("failed to mark archive record: %w", err)
	}

	return requireAffected(result, "archive record")
}
