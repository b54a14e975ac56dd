package service

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/makerden/doorlog/internal/doorlog/parse"
	"github.com/makerden/doorlog/internal/doorlog/store"
	"github.com/makerden/doorlog/internal/doorlog/types"
	"github.com/makerden/doorlog/internal/logging"
	"github.com/makerden/doorlog/internal/metrics"
)

// maxLineBytes bounds a single scanned line. Anything longer is not an
// action line, but the scanner must survive it rather than abort the file.
const maxLineBytes = 1 << 20

// Result summarizes one reload pass over the action-log directory.
// FilesScanned counts candidate files; FilesProcessed counts the subset
// that yielded at least one parsed event.
type Result struct {
	Inserted       int `json:"inserted"`
	FilesProcessed int `json:"files_processed"`
	FilesScanned   int `json:"files_scanned"`
}

// Ingestor consumes action-log files end-to-end: parse lines, group events
// by calendar month, bulk-load each group into its shard, and optionally
// truncate consumed lines from the source file.
type Ingestor struct {
	shards store.ShardStore
	dir    string
	log    logging.Logger
}

// NewIngestor returns an Ingestor writing to shards. actionLogDir is the
// directory ScanDir reloads from; IngestFile accepts arbitrary paths.
func NewIngestor(shards store.ShardStore, actionLogDir string, log logging.Logger) *Ingestor {
	return &Ingestor{shards: shards, dir: actionLogDir, log: log}
}

// IngestFile consumes one action-log file and returns the number of rows
// actually added across all touched shards. With truncate set, parsed lines
// are removed from the file once every batch has committed; unparsed lines
// survive in their original order. Without truncate the file is never
// touched, and re-runs are absorbed by the shards' natural key.
func (ing *Ingestor) IngestFile(ctx context.Context, path string, truncate bool) (int, error) {
	inserted, _, err := ing.ingest(ctx, path, truncate)
	return inserted, err
}

// ingest is IngestFile plus the parsed-event count, which the directory
// scan needs to decide whether a file counts as processed.
func (ing *Ingestor) ingest(ctx context.Context, path string, truncate bool) (inserted, parsed int, err error) {
	kept, byMonth, parsed, err := ing.readFile(path)
	if err != nil {
		return 0, 0, err
	}
	if parsed == 0 {
		return 0, 0, nil
	}

	for key, events := range byMonth {
		if _, err := ing.shards.Ensure(ctx, key); err != nil {
			return inserted, parsed, fmt.Errorf("ensure shard %s: %w", key, err)
		}
		n, err := ing.shards.InsertBatch(ctx, key, events)
		if err != nil {
			return inserted, parsed, fmt.Errorf("insert into shard %s: %w", key, err)
		}
		inserted += n
	}
	metricEventsInsertedTotal.Add(float64(inserted))

	if truncate {
		if err := rewriteKeptLines(path, kept); err != nil {
			return inserted, parsed, fmt.Errorf("truncate %s: %w", path, err)
		}
	}

	ing.log.Debug().
		Str("file", filepath.Base(path)).
		Int("parsed", parsed).
		Int("inserted", inserted).
		Bool("truncated", truncate).
		Msg("file ingested")

	return inserted, parsed, nil
}

// readFile splits a file into kept (unparseable) lines and parsed events
// grouped by their YYYY-MM month key. Events are tagged with the file's
// base name and 1-based line number, the pair that forms the natural key.
func (ing *Ingestor) readFile(path string) (kept []string, byMonth map[string][]types.Event, parsed int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	name := filepath.Base(path)
	byMonth = make(map[string][]types.Event)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		ev, ok := parse.Line(line)
		if !ok {
			kept = append(kept, line)
			continue
		}
		ev.SourceFile = name
		ev.SourceLine = lineNo
		monthKey := ev.TS[:len(types.MonthLayout)]
		byMonth[monthKey] = append(byMonth[monthKey], ev)
		parsed++
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, 0, fmt.Errorf("read %s: %w", path, err)
	}
	return kept, byMonth, parsed, nil
}

// ScanDir is the reload operation: walk the action-log directory, ingest
// every action-log file with truncation, and keep going past per-file
// failures. A missing directory yields the zero Result, not an error.
func (ing *Ingestor) ScanDir(ctx context.Context) (Result, error) {
	var res Result

	entries, err := os.ReadDir(ing.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			ing.log.Warn().Str("dir", ing.dir).Msg("action-log directory missing, nothing to reload")
			return res, nil
		}
		metricReloadRunsTotal.WithLabelValues("read_dir").Inc()
		return res, fmt.Errorf("read action-log dir %s: %w", ing.dir, err)
	}

	runLog := ing.log.With().Str("run_id", uuid.NewString()).Logger()
	for _, entry := range entries {
		if entry.IsDir() || !IsActionLogName(entry.Name()) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.FilesScanned++

		path := filepath.Join(ing.dir, entry.Name())
		inserted, parsed, err := ing.ingest(ctx, path, true)
		if err != nil {
			metricFilesIngestedTotal.WithLabelValues("reload", "ingest").Inc()
			runLog.Error().Err(err).Str("file", entry.Name()).Msg("file ingestion failed, continuing scan")
			continue
		}
		metricFilesIngestedTotal.WithLabelValues("reload", metrics.ValueNoError).Inc()
		if parsed > 0 {
			res.Inserted += inserted
			res.FilesProcessed++
		}
	}

	metricReloadRunsTotal.WithLabelValues(metrics.ValueNoError).Inc()
	runLog.Info().
		Int("inserted", res.Inserted).
		Int("files_processed", res.FilesProcessed).
		Int("files_scanned", res.FilesScanned).
		Msg("action-log reload complete")

	return res, nil
}

// IsActionLogName reports whether a file name matches the action-log
// producer's naming scheme: a .txt file with a dated "_action-" infix, or
// the undated "_action.txt" form some producers use before their first
// rollover.
func IsActionLogName(name string) bool {
	if !strings.HasSuffix(name, ".txt") {
		return false
	}
	return strings.Contains(name, "_action-") || strings.HasSuffix(name, "_action.txt")
}

// rewriteKeptLines atomically replaces path's contents with the kept lines.
// The temp file lives in the same directory so the final rename never
// crosses a filesystem boundary; a crash before rename leaves the original
// untouched.
func rewriteKeptLines(path string, kept []string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if info, err := os.Stat(path); err == nil {
		_ = tmp.Chmod(info.Mode())
	}

	w := bufio.NewWriter(tmp)
	for _, line := range kept {
		if _, err := w.WriteString(line + "\n"); err != nil {
			tmp.Close()
			os.Remove(tmpName)
			return err
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
