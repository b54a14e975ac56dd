package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// Each monthly shard is self-describing: the full schema is ensured on
// first open, so a shard file can be copied or inspected on its own.
const eventsTableSQL = `
CREATE TABLE IF NOT EXISTS events (
    id                 INTEGER PRIMARY KEY AUTOINCREMENT,
    ts                 TEXT NOT NULL,
    event_type         TEXT NOT NULL,
    badge_id           TEXT,
    status             TEXT NOT NULL,
    raw_message        TEXT NOT NULL,
    source_file        TEXT NOT NULL,
    source_line_number INTEGER NOT NULL
);`

var eventsIndexSQL = []string{
	`CREATE INDEX IF NOT EXISTS idx_events_ts ON events(ts);`,
	`CREATE INDEX IF NOT EXISTS idx_events_event_type ON events(event_type);`,
	`CREATE INDEX IF NOT EXISTS idx_events_badge_id ON events(badge_id);`,
	// The natural key: the same physical log line is never stored twice.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_events_source ON events(source_file, source_line_number);`,
}

// ensureSchema guarantees the events table and its indices exist in one
// shard database. Idempotent; called on every shard open.
func ensureSchema(ctx context.Context, sdb *sql.DB) error {
	if _, err := sdb.ExecContext(ctx, eventsTableSQL); err != nil {
		return fmt.Errorf("ensure events table: %w", err)
	}
	for _, stmt := range eventsIndexSQL {
		if _, err := sdb.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure events index: %w", err)
		}
	}
	return nil
}
