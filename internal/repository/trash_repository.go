package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"docvault/internal/domain"
)

type TrashRepository struct {
	db *sqlx.DB
}

func NewTrashRepository(db *sqlx.DB) *TrashRepository {
	return &TrashRepository{db: db}
}

func (r *TrashRepository) Insert(ctx context.Context, rec *domain.TrashRecord) error {
	query := `
        INSERT INTO trash_records (item_id, item_type, item_name, dimension_id, blob_path, size_bytes,
                                   mime_type, public_url, original_parent_id, original_folder_id,
                                   root_deleted_folder_id, item_created_at, deleted_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
        RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		rec.ItemID, rec.ItemType, rec.ItemName, rec.DimensionID, rec.BlobPath, rec.SizeBytes,
		rec.MIMEType, rec.PublicURL, rec.OriginalParentID, rec.OriginalFolderID,
		rec.RootDeletedFolderID, rec.ItemCreatedAt, rec.DeletedAt,
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("failed to insert trash record for %s: %w", rec.ItemID, err)
	}

	return nil
}

func (r *TrashRepository) GetByID(ctx context.Context, id int64) (*domain.TrashRecord, error) {
	var rec domain.TrashRecord
	err := r.db.GetContext(ctx, &rec, `SELECT * FROM trash_records WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("trash record %d: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get trash record: %w", err)
	}

	return &rec, nil
}

// ListRoots возвращает корневые записи корзины измерения — по одной на
// событие удаления. Вложенные строки группы в списке не показываются.
func (r *TrashRepository) ListRoots(ctx context.Context, dimensionID int64) ([]domain.TrashRecord, error) {
	var recs []domain.TrashRecord
	query := `
        SELECT * FROM trash_records
        WHERE dimension_id = $1 AND item_id = root_deleted_folder_id
        ORDER BY deleted_at DESC`

	if err := r.db.SelectContext(ctx, &recs, query, dimensionID); err != nil {
		return nil, fmt.Errorf("failed to list trash records: %w", err)
	}

	return recs, nil
}

// ListByRoot возвращает все записи одного события удаления
func (r *TrashRepository) ListByRoot(ctx context.Context, rootID string) ([]domain.TrashRecord, error) {
	var recs []domain.TrashRecord
	query := `SELECT * FROM trash_records WHERE root_deleted_folder_id = $1 ORDER BY id`

	if err := r.db.SelectContext(ctx, &recs, query, rootID); err != nil {
		return nil, fmt.Errorf("failed to list trash records by root: %w", err)
	}

	return recs, nil
}

// DeleteByRoot удаляет всю группу записей одного события удаления
func (r *TrashRepository) DeleteByRoot(ctx context.Context, rootID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM trash_records WHERE root_deleted_folder_id = $1`, rootID)
	if err != nil {
		return fmt.Errorf("failed to delete trash records by root: %w", err)
	}

	return nil
}

// ListExpired возвращает записи старше порога хранения
func (r *TrashRepository) ListExpired(ctx context.Context, olderThan time.Time) ([]domain.TrashRecord, error) {
	var recs []domain.TrashRecord
	query := `SELECT * FROM trash_records WHERE deleted_at < $1 ORDER BY deleted_at`

	if err := r.db.SelectContext(ctx, &recs, query, olderThan); err != nil {
		return nil, fmt.Errorf("failed to list expired trash records: %w", err)
	}

	return recs, nil
}

// DeleteExpired массово удаляет записи старше порога хранения
func (r *TrashRepository) DeleteExpired(ctx context.Context, olderThan time.Time) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM trash_records WHERE deleted_at < $1`, olderThan)
	if err != nil {
		return fmt.Errorf("failed to delete expired trash records: %w", err)
	}

	return nil
}
