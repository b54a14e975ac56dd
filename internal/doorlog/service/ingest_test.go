package service_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/makerden/doorlog/internal/doorlog/service"
	"github.com/makerden/doorlog/internal/doorlog/store/sqlite"
	"github.com/makerden/doorlog/internal/logging"
)

// newTestIngestor wires an Ingestor to real monthly shards and a fresh
// action-log directory, both under the test's temp dir.
func newTestIngestor(t *testing.T) (*service.Ingestor, *sqlite.Shards, string) {
	t.Helper()

	shards := sqlite.NewShards(filepath.Join(t.TempDir(), "metrics"))
	t.Cleanup(func() {
		if err := shards.Close(); err != nil {
			t.Errorf("close shards: %v", err)
		}
	})

	actionDir := t.TempDir()
	ing := service.NewIngestor(shards, actionDir, logging.Nop())
	return ing, shards, actionDir
}

func writeLines(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

// ═══════════════════════════════════════════════════════════════════════════
// IngestFile
// ═══════════════════════════════════════════════════════════════════════════

func TestIngestFile_InsertsParsedLines(t *testing.T) {
	ing, _, dir := newTestIngestor(t)

	path := writeLines(t, dir, "door_action-2025-01-15.txt",
		"2025-01-15 10:00:00 - door_logger - INFO - Badge scan - Badge: 1001 - Status: granted",
		"some stray log chatter",
		"2025-01-15 10:00:05 - door_logger - INFO - Door opened - Status: success",
		"2025-01-15 10:05:00 - door_logger - INFO - Door closed - Status: success",
	)
	before := readFile(t, path)

	n, err := ing.IngestFile(context.Background(), path, false)
	if err != nil {
		t.Fatalf("IngestFile: %v", err)
	}
	if n != 3 {
		t.Errorf("inserted = %d, want 3", n)
	}
	if got := readFile(t, path); got != before {
		t.Error("file modified despite truncate=false")
	}
}

func TestIngestFile_RerunInsertsNothing(t *testing.T) {
	ing, _, dir := newTestIngestor(t)

	path := writeLines(t, dir, "door_action-2025-01-15.txt",
		"2025-01-15 10:00:00 - door_logger - INFO - Badge scan - Badge: 1001 - Status: granted",
		"2025-01-15 10:00:05 - door_logger - INFO - Door opened - Status: success",
	)

	ctx := context.Background()
	first, err := ing.IngestFile(ctx, path, false)
	if err != nil {
		t.Fatalf("first IngestFile: %v", err)
	}
	if first != 2 {
		t.Fatalf("first run inserted = %d, want 2", first)
	}

	second, err := ing.IngestFile(ctx, path, false)
	if err != nil {
		t.Fatalf("second IngestFile: %v", err)
	}
	if second != 0 {
		t.Errorf("second run inserted = %d, want 0", second)
	}
}

func TestIngestFile_TruncateKeepsUnparsedLines(t *testing.T) {
	ing, _, dir := newTestIngestor(t)

	path := writeLines(t, dir, "door_action-2025-01-15.txt",
		"boot: controller starting",
		"2025-01-15 10:00:00 - door_logger - INFO - Badge scan - Badge: 1001 - Status: granted",
		"wifi reconnect",
		"2025-01-15 10:00:05 - door_logger - INFO - Door opened - Status: success",
	)

	if _, err := ing.IngestFile(context.Background(), path, true); err != nil {
		t.Fatalf("IngestFile: %v", err)
	}

	want := "boot: controller starting\nwifi reconnect\n"
	if got := readFile(t, path); got != want {
		t.Errorf("after truncate file = %q, want %q", got, want)
	}
}

func TestIngestFile_NoEventsLeavesFileAlone(t *testing.T) {
	ing, _, dir := newTestIngestor(t)

	path := writeLines(t, dir, "door_action-2025-01-15.txt",
		"nothing here",
		"still nothing",
	)
	before := readFile(t, path)

	n, err := ing.IngestFile(context.Background(), path, true)
	if err != nil {
		t.Fatalf("IngestFile: %v", err)
	}
	if n != 0 {
		t.Errorf("inserted = %d, want 0", n)
	}
	if got := readFile(t, path); got != before {
		t.Error("file rewritten despite zero parsed events")
	}
}

func TestIngestFile_SplitsAcrossMonthBoundary(t *testing.T) {
	ing, shards, dir := newTestIngestor(t)

	path := writeLines(t, dir, "door_action-2025-01-31.txt",
		"2025-01-31 23:59:59 - door_logger - INFO - Door opened - Status: success",
		"2025-02-01 00:00:05 - door_logger - INFO - Door closed - Status: success",
	)

	n, err := ing.IngestFile(context.Background(), path, false)
	if err != nil {
		t.Fatalf("IngestFile: %v", err)
	}
	if n != 2 {
		t.Fatalf("inserted = %d, want 2", n)
	}

	for _, key := range []string{"2025-01", "2025-02"} {
		if _, err := os.Stat(shards.Path(key)); err != nil {
			t.Errorf("shard %s not materialized: %v", key, err)
		}
	}
}

func TestIngestFile_MissingFile(t *testing.T) {
	ing, _, _ := newTestIngestor(t)

	if _, err := ing.IngestFile(context.Background(), "/no/such/file.txt", false); err == nil {
		t.Fatal("expected error for missing file")
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// ScanDir (reload)
// ═══════════════════════════════════════════════════════════════════════════

func TestScanDir_SelectsActionLogsOnly(t *testing.T) {
	ing, _, dir := newTestIngestor(t)

	writeLines(t, dir, "door_action-2025-01-15.txt",
		"2025-01-15 10:00:00 - door_logger - INFO - Badge scan - Badge: 1001 - Status: granted",
		"2025-01-15 10:00:05 - door_logger - INFO - Door opened - Status: success",
	)
	writeLines(t, dir, "door_action.txt",
		"2025-01-16 09:00:00 - door_logger - INFO - Manual lock - Status: success",
	)
	bystander := writeLines(t, dir, "notes.txt",
		"2025-01-15 10:00:00 - door_logger - INFO - Badge scan - Badge: 9999 - Status: granted",
	)
	writeLines(t, dir, "readme.md", "not a log at all")
	bystanderBefore := readFile(t, bystander)

	res, err := ing.ScanDir(context.Background())
	if err != nil {
		t.Fatalf("ScanDir: %v", err)
	}
	if res.FilesScanned != 2 {
		t.Errorf("files_scanned = %d, want 2", res.FilesScanned)
	}
	if res.FilesProcessed != 2 {
		t.Errorf("files_processed = %d, want 2", res.FilesProcessed)
	}
	if res.Inserted != 3 {
		t.Errorf("inserted = %d, want 3", res.Inserted)
	}
	if got := readFile(t, bystander); got != bystanderBefore {
		t.Error("non-action file was modified by the scan")
	}
}

func TestScanDir_FileWithNoEventsScannedNotProcessed(t *testing.T) {
	ing, _, dir := newTestIngestor(t)

	path := writeLines(t, dir, "door_action-2025-01-15.txt",
		"chatter only",
	)
	before := readFile(t, path)

	res, err := ing.ScanDir(context.Background())
	if err != nil {
		t.Fatalf("ScanDir: %v", err)
	}
	if res.FilesScanned != 1 || res.FilesProcessed != 0 || res.Inserted != 0 {
		t.Errorf("result = %+v, want scanned 1, processed 0, inserted 0", res)
	}
	if got := readFile(t, path); got != before {
		t.Error("eventless file was truncated")
	}
}

func TestScanDir_TruncatesConsumedLines(t *testing.T) {
	ing, _, dir := newTestIngestor(t)

	path := writeLines(t, dir, "door_action-2025-01-15.txt",
		"2025-01-15 10:00:00 - door_logger - INFO - Badge scan - Badge: 1001 - Status: granted",
		"leftover chatter",
	)

	if _, err := ing.ScanDir(context.Background()); err != nil {
		t.Fatalf("ScanDir: %v", err)
	}

	if got := readFile(t, path); got != "leftover chatter\n" {
		t.Errorf("after reload file = %q, want only the chatter line", got)
	}
}

func TestScanDir_MissingDirYieldsZeroResult(t *testing.T) {
	shards := sqlite.NewShards(filepath.Join(t.TempDir(), "metrics"))
	t.Cleanup(func() { shards.Close() })
	ing := service.NewIngestor(shards, filepath.Join(t.TempDir(), "gone"), logging.Nop())

	res, err := ing.ScanDir(context.Background())
	if err != nil {
		t.Fatalf("ScanDir: %v", err)
	}
	if res != (service.Result{}) {
		t.Errorf("result = %+v, want zero value", res)
	}
}

func TestIsActionLogName(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"door_action-2025-01-15.txt", true},
		{"door_action.txt", true},
		{"hub_action-2024-12-31.txt", true},
		{"door_action-2025-01-15.log", false},
		{"notes.txt", false},
		{"action.txt", false},
		{"door.txt", false},
	}
	for _, tc := range cases {
		if got := service.IsActionLogName(tc.name); got != tc.want {
			t.Errorf("IsActionLogName(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}
