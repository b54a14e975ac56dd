package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/makerden/doorlog/internal/doorlog/service"
	"github.com/makerden/doorlog/internal/doorlog/store/sqlite"
	"github.com/makerden/doorlog/internal/doorlog/types"
	"github.com/makerden/doorlog/internal/logging"
)

func TestRetentionSweeper_DisabledWhenRetentionZero(t *testing.T) {
	ing, _, _ := newTestIngestor(t)
	sweeper := service.NewRetentionSweeper(ing, service.SweeperConfig{
		RetentionDays: 0,
		Interval:      time.Hour,
	}, logging.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweeper.Start(ctx)
	// Stop should return immediately without error.
	sweeper.Stop()
}

func TestRetentionSweeper_StopIsIdempotent(t *testing.T) {
	ing, _, _ := newTestIngestor(t)
	sweeper := service.NewRetentionSweeper(ing, service.SweeperConfig{
		RetentionDays: 30,
		Interval:      time.Hour,
	}, logging.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	sweeper.Start(ctx)

	cancel()
	// Multiple stops should not panic.
	sweeper.Stop()
	sweeper.Stop()
}

func TestSweep_RetiresOldFilesAfterIngest(t *testing.T) {
	ing, shards, dir := newTestIngestor(t)
	sweeper := service.NewRetentionSweeper(ing, service.SweeperConfig{
		RetentionDays: 30,
		Interval:      time.Hour,
	}, logging.Nop())

	oldDay := time.Now().AddDate(0, 0, -40).Format(types.DateLayout)
	recentDay := time.Now().AddDate(0, 0, -1).Format(types.DateLayout)

	oldPath := writeLines(t, dir, "door_action-"+oldDay+".txt",
		oldDay+" 10:00:00 - door_logger - INFO - Door opened - Status: success",
	)
	recentPath := writeLines(t, dir, "door_action-"+recentDay+".txt",
		recentDay+" 09:00:00 - door_logger - INFO - Door opened - Status: success",
	)
	undatedPath := writeLines(t, dir, "door_action.txt",
		"live chatter",
	)

	sweeper.Sweep(context.Background())

	if _, err := os.Stat(oldPath); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("aged file still present, stat err = %v", err)
	}
	if _, err := os.Stat(recentPath); err != nil {
		t.Errorf("recent file was removed: %v", err)
	}
	if _, err := os.Stat(undatedPath); err != nil {
		t.Errorf("undated file was removed: %v", err)
	}

	// The aged file's events must have landed in the shards before deletion.
	fed := sqlite.NewFederator(shards)
	events, err := fed.QueryRange(context.Background(), oldDay+" 00:00:00", oldDay+" 23:59:59", nil)
	if err != nil {
		t.Fatalf("QueryRange: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("events from retired file = %d, want 1", len(events))
	}
	if events[0].EventType != types.EventOpen {
		t.Errorf("event_type = %q, want open", events[0].EventType)
	}
}

func TestSweep_KeepsFileAtExactRetentionBoundary(t *testing.T) {
	ing, _, dir := newTestIngestor(t)
	sweeper := service.NewRetentionSweeper(ing, service.SweeperConfig{
		RetentionDays: 30,
		Interval:      time.Hour,
	}, logging.Nop())

	boundaryDay := time.Now().AddDate(0, 0, -30).Format(types.DateLayout)
	path := writeLines(t, dir, "door_action-"+boundaryDay+".txt",
		boundaryDay+" 10:00:00 - door_logger - INFO - Door opened - Status: success",
	)

	sweeper.Sweep(context.Background())

	if _, err := os.Stat(path); err != nil {
		t.Errorf("file dated exactly at the retention boundary was removed: %v", err)
	}
}

func TestSweep_MissingDirIsQuiet(t *testing.T) {
	shards := sqlite.NewShards(filepath.Join(t.TempDir(), "metrics"))
	t.Cleanup(func() { shards.Close() })
	ing := service.NewIngestor(shards, filepath.Join(t.TempDir(), "gone"), logging.Nop())
	sweeper := service.NewRetentionSweeper(ing, service.SweeperConfig{RetentionDays: 30}, logging.Nop())

	// Must not panic or create anything.
	sweeper.Sweep(context.Background())
}
