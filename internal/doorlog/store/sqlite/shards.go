package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	dbpkg "github.com/makerden/doorlog/internal/db"
	"github.com/makerden/doorlog/internal/doorlog/store"
	"github.com/makerden/doorlog/internal/doorlog/types"
)

// Shards manages the monthly shard files under one base directory and the
// open handles to them. Every open shard carries its own single-writer
// Worker, so writes to one month never block writes to another while still
// keeping each shard single-writer.
type Shards struct {
	base string

	mu   sync.Mutex
	open map[string]*shardHandle
}

type shardHandle struct {
	path   string
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewShards(base string) *Shards {
	return &Shards{base: base, open: make(map[string]*shardHandle)}
}

// Path returns the deterministic location of monthKey's shard file without
// creating anything: <base>/<year>/<YYYY-MM>.db.
func (s *Shards) Path(monthKey string) string {
	return filepath.Join(s.base, monthKey[:4], monthKey+".db")
}

// Ensure idempotently creates monthKey's shard file and schema and returns
// the shard's path.
func (s *Shards) Ensure(ctx context.Context, monthKey string) (string, error) {
	h, err := s.handle(ctx, monthKey)
	if err != nil {
		return "", err
	}
	return h.path, nil
}

// InsertBatch inserts events into monthKey's shard in one transaction using
// INSERT OR IGNORE on the (source_file, source_line_number) natural key.
// Returns the number of rows actually added; re-inserting an already
// consumed line is a no-op, not an error. Any failure rolls the whole batch
// back.
func (s *Shards) InsertBatch(ctx context.Context, monthKey string, events []types.Event) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}
	h, err := s.handle(ctx, monthKey)
	if err != nil {
		return 0, err
	}

	var inserted int64
	err = h.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
INSERT OR IGNORE INTO events(
  ts, event_type, badge_id, status, raw_message, source_file, source_line_number
) VALUES (?, ?, ?, ?, ?, ?, ?);
`)
		if err != nil {
			return fmt.Errorf("InsertBatch prepare: %w", err)
		}
		defer stmt.Close()

		for _, ev := range events {
			var badge any
			if ev.BadgeID != "" {
				badge = ev.BadgeID
			}
			res, err := stmt.ExecContext(ctx,
				ev.TS, ev.EventType, badge, ev.Status, ev.RawMessage,
				ev.SourceFile, ev.SourceLine,
			)
			if err != nil {
				return fmt.Errorf("InsertBatch insert: %w", err)
			}
			n, _ := res.RowsAffected()
			inserted += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(inserted), nil
}

// Close closes every open shard handle. Safe to call once at shutdown.
func (s *Shards) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for key, h := range s.open {
		h.writer.Close()
		if err := h.db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close shard %s: %w", key, err)
		}
		delete(s.open, key)
	}
	return firstErr
}

// handle returns the open handle for monthKey, lazily opening the shard file
// and ensuring its schema on first use.
func (s *Shards) handle(ctx context.Context, monthKey string) (*shardHandle, error) {
	if _, err := time.Parse(types.MonthLayout, monthKey); err != nil {
		return nil, fmt.Errorf("%w: %q", store.ErrInvalidMonthKey, monthKey)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if h, ok := s.open[monthKey]; ok {
		return h, nil
	}

	path := s.Path(monthKey)
	sdb, err := dbpkg.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open shard %s: %w", monthKey, err)
	}
	if err := ensureSchema(ctx, sdb); err != nil {
		_ = sdb.Close()
		return nil, fmt.Errorf("shard %s: %w", monthKey, err)
	}

	h := &shardHandle{path: path, db: sdb, writer: dbpkg.NewWorker(sdb)}
	s.open[monthKey] = h
	return h, nil
}
