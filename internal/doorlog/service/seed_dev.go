package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/makerden/doorlog/internal/actionlog"
	"github.com/makerden/doorlog/internal/doorlog/types"
)

// SeedDevOptions controls the fabricated history for dev bootstraps.
type SeedDevOptions struct {
	// Days of history to fabricate. Defaults to 3.
	Days int

	// Producer name stamped on the fabricated lines. Defaults to
	// "door_logger".
	Producer string
}

// SeedDev writes a few days of plausible door activity into the action-log
// directory and reloads it, so a fresh dev environment has shards to query.
// The fabricated files use dated action-log names and are consumed exactly
// the way a reload consumes real ones.
func SeedDev(ctx context.Context, ing *Ingestor, opt SeedDevOptions) (Result, error) {
	days := opt.Days
	if days <= 0 {
		days = 3
	}
	producer := opt.Producer
	if producer == "" {
		producer = "door_logger"
	}

	if err := os.MkdirAll(ing.dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create action-log dir: %w", err)
	}

	badges := []string{"1001", "1002", "1003"}
	for d := days; d >= 1; d-- {
		day := time.Now().AddDate(0, 0, -d)

		var b strings.Builder
		for hour := 9; hour <= 17; hour += 4 {
			at := time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, time.Local)
			badge := badges[(d+hour)%len(badges)]
			b.WriteString(actionlog.Line(at, producer, "Badge scanned", badge, "Granted") + "\n")
			b.WriteString(actionlog.Line(at.Add(4*time.Second), producer, "Door Unlocked", "", "Success") + "\n")
			b.WriteString(actionlog.Line(at.Add(3*time.Minute), producer, "Door Locked", "", "Success") + "\n")
		}
		at := time.Date(day.Year(), day.Month(), day.Day(), 20, 30, 0, 0, time.Local)
		b.WriteString(actionlog.Line(at, producer, "Badge scanned", "9999", "Denied") + "\n")

		name := "door_action-" + day.Format(types.DateLayout) + ".txt"
		if err := os.WriteFile(filepath.Join(ing.dir, name), []byte(b.String()), 0o644); err != nil {
			return Result{}, fmt.Errorf("write seed file %s: %w", name, err)
		}
	}

	return ing.ScanDir(ctx)
}
