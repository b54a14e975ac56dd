package sqlite_test

import (
	"database/sql"
	"fmt"
	"testing"

	_ "modernc.org/sqlite"

	sqlitestore "github.com/makerden/doorlog/internal/doorlog/store/sqlite"
	"github.com/makerden/doorlog/internal/doorlog/types"
)

// newTestShards returns a Shards rooted in a fresh temp directory. Handles
// are closed automatically when the test finishes.
func newTestShards(t *testing.T) *sqlitestore.Shards {
	t.Helper()

	s := sqlitestore.NewShards(t.TempDir())
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("close shards: %v", err)
		}
	})
	return s
}

// openShardFile opens an existing shard file directly, bypassing the store,
// so tests can assert on raw rows. Closed automatically.
func openShardFile(t *testing.T, path string) *sql.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("openShardFile: sql.Open: %v", err)
	}
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		conn.Close()
		t.Fatalf("openShardFile: ping: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// evt builds a test event. file/line form the natural key, so callers vary
// them to avoid accidental dedup.
func evt(ts, eventType, badge, status, file string, line int) types.Event {
	return types.Event{
		TS:         ts,
		EventType:  eventType,
		BadgeID:    badge,
		Status:     status,
		RawMessage: fmt.Sprintf("%s - door_access - INFO - %s - Status: %s", ts, eventType, status),
		SourceFile: file,
		SourceLine: line,
	}
}
