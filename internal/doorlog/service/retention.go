package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/makerden/doorlog/internal/doorlog/types"
	"github.com/makerden/doorlog/internal/logging"
	"github.com/makerden/doorlog/internal/metrics"
)

var actionDateRE = regexp.MustCompile(`_action-(\d{4}-\d{2}-\d{2})\.txt$`)

// RetentionSweeper periodically retires dated action-log files older than
// the retention window. Each aged file is ingested first, so any lines the
// reload never consumed still make it into the shards, and is deleted only
// after that ingest succeeds. It runs as a background goroutine and is safe
// to stop via its context or the Stop method.
//
// A retention of 0 (or less) disables sweeping entirely.
type RetentionSweeper struct {
	ingestor      *Ingestor
	retentionDays int
	interval      time.Duration
	log           logging.Logger
	cancel        context.CancelFunc
	done          chan struct{}
}

// SweeperConfig holds the parameters for NewRetentionSweeper.
type SweeperConfig struct {
	// RetentionDays is how many days of action-log files to keep.
	// Zero or negative means keep everything (sweeper will not start).
	RetentionDays int

	// Interval is how often the sweeper runs. Defaults to 12h.
	Interval time.Duration
}

// NewRetentionSweeper creates a sweeper over the ingestor's action-log
// directory but does not start it. Call Start to begin the background loop.
func NewRetentionSweeper(ing *Ingestor, cfg SweeperConfig, log logging.Logger) *RetentionSweeper {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 12 * time.Hour
	}

	return &RetentionSweeper{
		ingestor:      ing,
		retentionDays: cfg.RetentionDays,
		interval:      interval,
		log:           log,
		done:          make(chan struct{}),
	}
}

// Start begins the background sweep loop. It runs an immediate sweep on
// startup, then repeats on the configured interval. The loop exits when
// ctx is cancelled or Stop is called.
func (sw *RetentionSweeper) Start(ctx context.Context) {
	if sw.retentionDays <= 0 {
		sw.log.Info().Msg("retention sweeper disabled (retention<=0)")
		close(sw.done)
		return
	}

	ctx, sw.cancel = context.WithCancel(ctx)

	go sw.loop(ctx)

	sw.log.Info().
		Int("retention_days", sw.retentionDays).
		Dur("interval", sw.interval).
		Msg("retention sweeper started")
}

// Stop signals the sweeper to exit and waits for it to finish.
func (sw *RetentionSweeper) Stop() {
	if sw.cancel != nil {
		sw.cancel()
	}
	<-sw.done
}

func (sw *RetentionSweeper) loop(ctx context.Context) {
	defer close(sw.done)

	// Run immediately on startup to clean up any backlog.
	sw.Sweep(ctx)

	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sw.Sweep(ctx)
		}
	}
}

// Sweep retires every aged action-log file once: ingest without truncation,
// then delete. A file whose ingest fails is left in place for the next
// sweep. Undated files are never touched.
func (sw *RetentionSweeper) Sweep(ctx context.Context) {
	cutoff := sw.cutoff(time.Now())

	entries, err := os.ReadDir(sw.ingestor.dir)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			metricRetentionSweepsTotal.WithLabelValues("read_dir").Inc()
			sw.log.Error().Err(err).Msg("retention sweep cannot read action-log dir")
		}
		return
	}

	retired := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		day, ok := fileDate(entry.Name())
		if !ok || !day.Before(cutoff) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return
		}

		path := filepath.Join(sw.ingestor.dir, entry.Name())
		inserted, err := sw.ingestor.IngestFile(ctx, path, false)
		if err != nil {
			metricFilesIngestedTotal.WithLabelValues("retention", "ingest").Inc()
			sw.log.Error().Err(err).Str("file", entry.Name()).Msg("retention ingest failed, keeping file")
			continue
		}
		metricFilesIngestedTotal.WithLabelValues("retention", metrics.ValueNoError).Inc()
		if err := os.Remove(path); err != nil {
			sw.log.Error().Err(err).Str("file", entry.Name()).Msg("retention delete failed")
			continue
		}
		retired++
		sw.log.Info().
			Str("file", entry.Name()).
			Int("inserted", inserted).
			Msg("retired action log")
	}

	metricRetentionSweepsTotal.WithLabelValues(metrics.ValueNoError).Inc()
	if retired > 0 {
		sw.log.Info().Int("retired", retired).Time("cutoff", cutoff).Msg("retention sweep complete")
	}
}

// cutoff returns the boundary date: files dated strictly before it are
// retired, files dated exactly retentionDays ago survive until tomorrow.
func (sw *RetentionSweeper) cutoff(now time.Time) time.Time {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return today.AddDate(0, 0, -sw.retentionDays)
}

// fileDate extracts the date embedded in a dated action-log file name.
func fileDate(name string) (time.Time, bool) {
	m := actionDateRE.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(types.DateLayout, m[1], time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
