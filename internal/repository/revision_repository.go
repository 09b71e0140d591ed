package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// RevisionRepository вычищает зависимые строки — заявки на доработку и
// расшаренные элементы, ссылающиеся на удаляемые папки и файлы.
type RevisionRepository struct {
	db *sqlx.DB
}

func NewRevisionRepository(db *sqlx.DB) *RevisionRepository {
	return &RevisionRepository{db: db}
}

// DeleteForItems удаляет зависимые записи для набора папок и файлов.
// Вызывается каскадами удаления и окончательной зачистки.
func (r *RevisionRepository) DeleteForItems(ctx context.Context, folderIDs []int64, fileIDs []uuid.UUID) error {
	ids := make([]string, 0, len(folderIDs)+len(fileIDs))
	for _, id := range folderIDs {
		ids = append(ids, fmt.Sprintf("%d", id))
	}
	for _, id := range fileIDs {
		ids = append(ids, id.String())
	}
	if len(ids) == 0 {
		return nil
	}

	// Сначала заявки на доработку, затем расшаренные элементы
	queries := []string{
		`DELETE FROM revision_requests WHERE item_id = ANY($1)`,
		`DELETE FROM shared_items WHERE item_id = ANY($1)`,
	}

	var failed []string
	for _, query := range queries {
		if _, err := r.db.ExecContext(ctx, query, pq.Array(ids)); err != nil {
			failed = append(failed, err.Error())
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("failed to delete dependent records: %s", strings.Join(failed, "; "))
	}

	return nil
}
