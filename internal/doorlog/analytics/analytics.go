// Package analytics derives operational measures from already-queried event
// lists. All functions are pure: they sort copies internally and never touch
// storage.
package analytics

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/makerden/doorlog/internal/doorlog/types"
)

// DefaultScanWindow is the maximum scan-to-open delta counted as one entry
// when the caller has no configured window.
const DefaultScanWindow = 60 * time.Second

// OpenDuration is one paired open/close cycle.
type OpenDuration struct {
	OpenTS   string  `json:"open_ts"`
	CloseTS  string  `json:"close_ts"`
	Duration float64 `json:"duration"`
	BadgeID  string  `json:"badge_id,omitempty"`
}

// ScanToOpen is one scan paired with the door opening that followed it.
type ScanToOpen struct {
	ScanTS  string  `json:"scan_ts"`
	OpenTS  string  `json:"open_ts"`
	Delta   float64 `json:"delta"`
	BadgeID string  `json:"badge_id,omitempty"`
}

// Stats summarizes a numeric sample.
type Stats struct {
	Count  int     `json:"count"`
	Avg    float64 `json:"avg"`
	Median float64 `json:"median"`
	P95    float64 `json:"p95"`
}

type timed struct {
	t  time.Time
	ev types.Event
}

// OpenCloseDurations pairs door openings with the closes that follow them.
// Opens and closes are sorted independently; each open takes the next close
// strictly after it, consuming that close. Opens with no later close left
// are dropped. Matching is by time only, without badge correlation, so
// overlapping cycles from different badges can cross-attribute dwell time.
func OpenCloseDurations(events []types.Event) []OpenDuration {
	opens := filterSorted(events, isOpen)
	closes := filterSorted(events, isClose)

	var out []OpenDuration
	ci := 0
	for _, o := range opens {
		for ci < len(closes) && !closes[ci].t.After(o.t) {
			ci++
		}
		if ci >= len(closes) {
			break
		}
		cl := closes[ci]
		ci++
		out = append(out, OpenDuration{
			OpenTS:   o.ev.TS,
			CloseTS:  cl.ev.TS,
			Duration: cl.t.Sub(o.t).Seconds(),
			BadgeID:  o.ev.BadgeID,
		})
	}
	return out
}

// ScanToOpenLatencies pairs each badge scan with the first door open at or
// after it, emitting the pair only when the delta is within maxWindow.
// Opens are not consumed: several rapid scans can legitimately map to the
// same opening. A non-positive maxWindow falls back to DefaultScanWindow.
func ScanToOpenLatencies(events []types.Event, maxWindow time.Duration) []ScanToOpen {
	if maxWindow <= 0 {
		maxWindow = DefaultScanWindow
	}
	scans := filterSorted(events, isScan)
	opens := filterSorted(events, isOpen)

	var out []ScanToOpen
	oi := 0
	for _, s := range scans {
		for oi < len(opens) && opens[oi].t.Before(s.t) {
			oi++
		}
		if oi >= len(opens) {
			break
		}
		o := opens[oi]
		delta := o.t.Sub(s.t)
		if delta >= 0 && delta <= maxWindow {
			out = append(out, ScanToOpen{
				ScanTS:  s.ev.TS,
				OpenTS:  o.ev.TS,
				Delta:   delta.Seconds(),
				BadgeID: s.ev.BadgeID,
			})
		}
	}
	return out
}

// BasicStats computes count, mean, median, and a ceiling-rank 95th
// percentile: the sample at index ceil(0.95*n)-1 of the sorted list.
func BasicStats(samples []float64) Stats {
	n := len(samples)
	if n == 0 {
		return Stats{}
	}

	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}

	var median float64
	if n%2 == 1 {
		median = sorted[n/2]
	} else {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}

	rank := int(math.Ceil(0.95 * float64(n)))
	if rank < 1 {
		rank = 1
	}

	return Stats{
		Count:  n,
		Avg:    sum / float64(n),
		Median: median,
		P95:    sorted[rank-1],
	}
}

func isOpen(eventType string) bool {
	return strings.Contains(eventType, "open") || strings.Contains(eventType, "unlocked")
}

func isClose(eventType string) bool {
	return strings.Contains(eventType, "close") || strings.Contains(eventType, "locked")
}

func isScan(eventType string) bool {
	return strings.Contains(eventType, "scan")
}

// filterSorted selects events whose normalized type matches and returns them
// sorted by timestamp. Events with unparseable timestamps are skipped.
func filterSorted(events []types.Event, match func(string) bool) []timed {
	var out []timed
	for _, ev := range events {
		if !match(strings.ToLower(ev.EventType)) {
			continue
		}
		t, err := time.ParseInLocation(types.TimeLayout, ev.TS, time.Local)
		if err != nil {
			continue
		}
		out = append(out, timed{t: t, ev: ev})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].t.Before(out[j].t) })
	return out
}
