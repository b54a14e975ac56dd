package actionlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/makerden/doorlog/internal/doorlog/parse"
	"github.com/makerden/doorlog/internal/doorlog/types"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestRecord_LinesRoundTripThroughParser(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, "door_action", "door_logger")
	t.Cleanup(func() { w.Close() })

	day := time.Date(2025, 3, 10, 9, 30, 0, 0, time.Local)
	if err := w.record(day, "Badge scanned", "1001", "Granted"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := w.record(day.Add(5*time.Second), "Door Unlocked", "", "Success"); err != nil {
		t.Fatalf("record: %v", err)
	}

	lines := readLines(t, filepath.Join(dir, "door_action-2025-03-10.txt"))
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}

	ev, ok := parse.Line(lines[0])
	if !ok {
		t.Fatalf("producer line did not parse: %q", lines[0])
	}
	if ev.EventType != types.EventScan || ev.BadgeID != "1001" || ev.Status != "granted" {
		t.Errorf("parsed = %s/%s/%s, want scan/1001/granted", ev.EventType, ev.BadgeID, ev.Status)
	}

	ev, ok = parse.Line(lines[1])
	if !ok {
		t.Fatalf("badgeless line did not parse: %q", lines[1])
	}
	if ev.EventType != types.EventOpen || ev.BadgeID != "" || ev.Status != "success" {
		t.Errorf("parsed = %s/%q/%s, want open//success", ev.EventType, ev.BadgeID, ev.Status)
	}
}

func TestRecord_LevelFollowsStatus(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, "door_action", "door_logger")
	t.Cleanup(func() { w.Close() })

	day := time.Date(2025, 3, 10, 9, 30, 0, 0, time.Local)
	if err := w.record(day, "Badge scanned", "666", "Denied"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := w.record(day, "Sensor fault", "", "Timeout"); err != nil {
		t.Fatalf("record: %v", err)
	}

	lines := readLines(t, filepath.Join(dir, "door_action-2025-03-10.txt"))
	if !strings.Contains(lines[0], " - WARNING - ") {
		t.Errorf("denied line level = %q, want WARNING", lines[0])
	}
	if !strings.Contains(lines[1], " - ERROR - ") {
		t.Errorf("fault line level = %q, want ERROR", lines[1])
	}
}

func TestRecord_EmptyStatusDefaultsToSuccess(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, "door_action", "door_logger")
	t.Cleanup(func() { w.Close() })

	day := time.Date(2025, 3, 10, 9, 30, 0, 0, time.Local)
	if err := w.record(day, "Manual unlock", "", ""); err != nil {
		t.Fatalf("record: %v", err)
	}

	lines := readLines(t, filepath.Join(dir, "door_action-2025-03-10.txt"))
	if !strings.HasSuffix(lines[0], " - Status: Success") {
		t.Errorf("line = %q, want default Success status", lines[0])
	}
}

func TestRecord_RollsOverAtDateBoundary(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, "door_action", "door_logger")
	t.Cleanup(func() { w.Close() })

	beforeMidnight := time.Date(2025, 3, 10, 23, 59, 59, 0, time.Local)
	afterMidnight := time.Date(2025, 3, 11, 0, 0, 5, 0, time.Local)

	if err := w.record(beforeMidnight, "Door opened", "", "Success"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := w.record(afterMidnight, "Door closed", "", "Success"); err != nil {
		t.Fatalf("record: %v", err)
	}

	first := readLines(t, filepath.Join(dir, "door_action-2025-03-10.txt"))
	second := readLines(t, filepath.Join(dir, "door_action-2025-03-11.txt"))
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("lines = %d + %d, want one per day", len(first), len(second))
	}
}

func TestRecord_AppendsToExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "door_action-2025-03-10.txt")
	if err := os.WriteFile(path, []byte("previous boot line\n"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	w := New(dir, "door_action", "door_logger")
	t.Cleanup(func() { w.Close() })

	day := time.Date(2025, 3, 10, 9, 30, 0, 0, time.Local)
	if err := w.record(day, "Door opened", "", "Success"); err != nil {
		t.Fatalf("record: %v", err)
	}

	lines := readLines(t, path)
	if len(lines) != 2 || lines[0] != "previous boot line" {
		t.Fatalf("lines = %v, want seeded line preserved", lines)
	}
}
