package archive

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// TableName is the table notifications are archived into.
const TableName = "notifications"

const createTableSQL = `
CREATE TABLE IF NOT EXISTS notifications (
	id          UUID PRIMARY KEY,
	conn_id     UUID NOT NULL,
	event_type  TEXT NOT NULL,
	payload     JSONB NOT NULL,
	received_at TIMESTAMPTZ NOT NULL
)`

const createIndexSQL = `
CREATE INDEX IF NOT EXISTS notifications_event_type_received_at_idx
	ON notifications (event_type, received_at DESC)`

const insertSQL = `
INSERT INTO notifications (id, conn_id, event_type, payload, received_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO NOTHING`

// Execer runs a statement. Satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// EnsureSchema creates the notifications table and its index if missing.
func EnsureSchema(ctx context.Context, db Execer) error {
	for _, stmt := range []string{createTableSQL, createIndexSQL} {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
