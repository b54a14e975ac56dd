// Package actionlog writes door action lines in the format the ingestion
// pipeline consumes. It is the producer side of the contract: one line per
// action, appended to a dated file that rolls over at the local-midnight
// boundary.
package actionlog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/makerden/doorlog/internal/doorlog/types"
)

// Writer appends action lines to <dir>/<base>-YYYY-MM-DD.txt, opening a new
// file whenever the date changes. Safe for concurrent use.
type Writer struct {
	dir      string
	base     string
	producer string

	mu  sync.Mutex
	day string
	f   *os.File
}

// New returns a Writer for <dir>/<base>-<date>.txt lines stamped with the
// given producer name. The producer must not contain "-" or the consumer
// side will reject the lines. No file is created until the first Record.
func New(dir, base, producer string) *Writer {
	return &Writer{dir: dir, base: base, producer: producer}
}

// Record appends one action line. An empty badgeID omits the badge segment;
// an empty status records "Success". The log level mirrors the status:
// success and granted log as INFO, denied and rejected as WARNING, anything
// else as ERROR.
func (w *Writer) Record(action, badgeID, status string) error {
	return w.record(time.Now(), action, badgeID, status)
}

func (w *Writer) record(now time.Time, action, badgeID, status string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.rotate(now); err != nil {
		return err
	}

	if _, err := w.f.WriteString(Line(now, w.producer, action, badgeID, status) + "\n"); err != nil {
		return fmt.Errorf("append action line: %w", err)
	}
	return nil
}

// Line formats one action line without writing it anywhere. An empty status
// becomes "Success".
func Line(ts time.Time, producer, action, badgeID, status string) string {
	if status == "" {
		status = "Success"
	}
	var msg string
	if badgeID != "" {
		msg = fmt.Sprintf("%s - Badge: %s - Status: %s", action, badgeID, status)
	} else {
		msg = fmt.Sprintf("%s - Status: %s", action, status)
	}
	return fmt.Sprintf("%s - %s - %s - %s",
		ts.Format(types.TimeLayout), producer, levelFor(status), msg)
}

// rotate opens the file for now's date, closing and syncing the previous
// day's file first. Callers hold the mutex.
func (w *Writer) rotate(now time.Time) error {
	day := now.Format(types.DateLayout)
	if w.f != nil && day == w.day {
		return nil
	}

	if w.f != nil {
		_ = w.f.Sync()
		_ = w.f.Close()
		w.f = nil
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create action-log dir: %w", err)
	}

	path := filepath.Join(w.dir, w.base+"-"+day+".txt")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open action log %s: %w", path, err)
	}

	w.day = day
	w.f = f
	return nil
}

// Close syncs and closes the current file, if any.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.f == nil {
		return nil
	}
	_ = w.f.Sync()
	err := w.f.Close()
	w.f = nil
	w.day = ""
	return err
}

func levelFor(status string) string {
	switch strings.ToLower(status) {
	case "success", "granted":
		return "INFO"
	case "denied", "rejected":
		return "WARNING"
	default:
		return "ERROR"
	}
}
