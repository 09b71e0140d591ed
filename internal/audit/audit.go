// Package audit — журнал активности. Сбой записи события не должен
// влиять на породившую его операцию, поэтому Log ничего не возвращает.
package audit

import (
	"context"
	"log"

	"github.com/jmoiron/sqlx"
)

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Event — структурированное событие активности
type Event struct {
	Action      string `db:"action"`
	EntityType  string `db:"entity_type"`
	EntityID    string `db:"entity_id"`
	Status      string `db:"status"`
	Description string `db:"description"`
	ActorID     string `db:"actor_id"`
}

type Logger interface {
	Log(ctx context.Context, e Event)
}

// DBLogger пишет события в таблицу audit_events
type DBLogger struct {
	db *sqlx.DB
}

func NewDBLogger(db *sqlx.DB) *DBLogger {
	return &DBLogger{db: db}
}

func (l *DBLogger) Log(ctx context.Context, e Event) {
	query := `
        INSERT INTO audit_events (action, entity_type, entity_id, status, description, actor_id)
        VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := l.db.ExecContext(ctx, query, e.Action, e.EntityType, e.EntityID, e.Status, e.Description, e.ActorID)
	if err != nil {
		log.Printf("Warning: failed to write audit event %s/%s: %v", e.Action, e.EntityID, err)
	}
}
