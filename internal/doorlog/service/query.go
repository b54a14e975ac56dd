package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/makerden/doorlog/internal/doorlog/analytics"
	"github.com/makerden/doorlog/internal/doorlog/store"
	"github.com/makerden/doorlog/internal/doorlog/types"
	"github.com/makerden/doorlog/internal/logging"
	"github.com/makerden/doorlog/internal/metrics"
)

// Query limits. Ranges wider than MaxRangeDays are rejected before any
// shard file is opened; page sizes are clamped to keep payloads bounded.
const (
	MaxRangeDays    = 365
	DefaultPage     = 1
	DefaultPageSize = 5000
	MinPageSize     = 100
	MaxPageSize     = 10000
	maxPage         = 10000
)

// ErrRangeTooLarge marks a query window wider than MaxRangeDays.
var ErrRangeTooLarge = errors.New("date range exceeds maximum")

// RangeError carries the requested span for the API error payload.
// errors.Is(err, ErrRangeTooLarge) matches it.
type RangeError struct {
	RequestedDays int
	MaxDays       int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("date range of %d days exceeds maximum of %d days", e.RequestedDays, e.MaxDays)
}

func (e *RangeError) Is(target error) bool { return target == ErrRangeTooLarge }

// PageRequest carries the raw dashboard query parameters. Start and End are
// YYYY-MM-DD strings; empty or malformed values fall back to defaults.
// Page and PageSize of zero select the defaults.
type PageRequest struct {
	Start    string
	End      string
	Types    []string
	Page     int
	PageSize int
}

// Page is one slice of a range query plus the resolved window and totals.
type Page struct {
	StartDate   string        `json:"start_date"`
	EndDate     string        `json:"end_date"`
	Page        int           `json:"page"`
	PageSize    int           `json:"page_size"`
	TotalEvents int           `json:"total_events"`
	TotalPages  int           `json:"total_pages"`
	Events      []types.Event `json:"events"`
}

// RangeResult is a full, unpaginated range query.
type RangeResult struct {
	StartDate string
	EndDate   string
	Events    []types.Event
}

// Summary aggregates a range: per-type counts plus dwell-time and
// scan-to-open latency statistics.
type Summary struct {
	StartDate     string          `json:"start_date"`
	EndDate       string          `json:"end_date"`
	TotalEvents   int             `json:"total_events"`
	EventCounts   map[string]int  `json:"event_counts"`
	OpenDurations analytics.Stats `json:"open_durations"`
	ScanToOpen    analytics.Stats `json:"scan_to_open"`
}

// QueryService answers dashboard range queries over the federated shards.
type QueryService struct {
	events     store.EventQuerier
	scanWindow time.Duration
	log        logging.Logger
}

func NewQueryService(events store.EventQuerier, scanWindow time.Duration, log logging.Logger) *QueryService {
	if scanWindow <= 0 {
		scanWindow = analytics.DefaultScanWindow
	}
	return &QueryService{events: events, scanWindow: scanWindow, log: log}
}

// ResolveRange applies the dashboard date rules: missing or malformed
// bounds fall back to January 1 of the current year and today, and reversed
// bounds are swapped. Returns date-precision bounds and the span in whole
// days.
func ResolveRange(startRaw, endRaw string, now time.Time) (start, end time.Time, days int) {
	defStart := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	defEnd := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	start = parseDateOr(startRaw, defStart)
	end = parseDateOr(endRaw, defEnd)
	if start.After(end) {
		start, end = end, start
	}
	return start, end, daysBetween(start, end)
}

// daysBetween counts calendar days from a to b. Both are reanchored to UTC
// midnight first so DST transitions in the local zone cannot shave a day
// off the count.
func daysBetween(a, b time.Time) int {
	au := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bu := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(bu.Sub(au) / (24 * time.Hour))
}

func parseDateOr(raw string, fallback time.Time) time.Time {
	if raw == "" {
		return fallback
	}
	t, err := time.ParseInLocation(types.DateLayout, raw, fallback.Location())
	if err != nil {
		return fallback
	}
	return t
}

// FetchRange returns every event in the resolved window, time-ordered.
// The window covers the start date from midnight through the end date's
// last second, inclusive.
func (s *QueryService) FetchRange(ctx context.Context, startRaw, endRaw string, eventTypes []string) (RangeResult, error) {
	start, end, days := ResolveRange(startRaw, endRaw, time.Now())
	if days > MaxRangeDays {
		metricRangeQueriesTotal.WithLabelValues("range_too_large").Inc()
		return RangeResult{}, &RangeError{RequestedDays: days, MaxDays: MaxRangeDays}
	}

	startTS := start.Format(types.DateLayout) + " 00:00:00"
	endTS := end.Format(types.DateLayout) + " 23:59:59"

	events, err := s.events.QueryRange(ctx, startTS, endTS, eventTypes)
	if err != nil {
		metricRangeQueriesTotal.WithLabelValues("query").Inc()
		return RangeResult{}, fmt.Errorf("query range: %w", err)
	}
	metricRangeQueriesTotal.WithLabelValues(metrics.ValueNoError).Inc()

	return RangeResult{
		StartDate: start.Format(types.DateLayout),
		EndDate:   end.Format(types.DateLayout),
		Events:    events,
	}, nil
}

// Events runs a range query and slices out the requested page. The page
// number is clamped to the last page so an overshooting client gets the
// final page instead of an empty one.
func (s *QueryService) Events(ctx context.Context, req PageRequest) (Page, error) {
	rr, err := s.FetchRange(ctx, req.Start, req.End, req.Types)
	if err != nil {
		return Page{}, err
	}

	page := clamp(req.Page, DefaultPage, 1, maxPage)
	size := clamp(req.PageSize, DefaultPageSize, MinPageSize, MaxPageSize)

	total := len(rr.Events)
	totalPages := 1
	if total > 0 {
		totalPages = (total + size - 1) / size
	}
	if page > totalPages {
		page = totalPages
	}

	lo := (page - 1) * size
	hi := lo + size
	if lo > total {
		lo = total
	}
	if hi > total {
		hi = total
	}

	return Page{
		StartDate:   rr.StartDate,
		EndDate:     rr.EndDate,
		Page:        page,
		PageSize:    size,
		TotalEvents: total,
		TotalPages:  totalPages,
		Events:      rr.Events[lo:hi],
	}, nil
}

// Summarize runs a range query and reduces it to per-type counts plus
// dwell and latency statistics.
func (s *QueryService) Summarize(ctx context.Context, startRaw, endRaw string) (Summary, error) {
	rr, err := s.FetchRange(ctx, startRaw, endRaw, nil)
	if err != nil {
		return Summary{}, err
	}

	counts := make(map[string]int)
	for _, ev := range rr.Events {
		counts[ev.EventType]++
	}

	durations := analytics.OpenCloseDurations(rr.Events)
	durationSamples := make([]float64, len(durations))
	for i, d := range durations {
		durationSamples[i] = d.Duration
	}

	latencies := analytics.ScanToOpenLatencies(rr.Events, s.scanWindow)
	latencySamples := make([]float64, len(latencies))
	for i, l := range latencies {
		latencySamples[i] = l.Delta
	}

	return Summary{
		StartDate:     rr.StartDate,
		EndDate:       rr.EndDate,
		TotalEvents:   len(rr.Events),
		EventCounts:   counts,
		OpenDurations: analytics.BasicStats(durationSamples),
		ScanToOpen:    analytics.BasicStats(latencySamples),
	}, nil
}

// clamp returns def when v is zero, otherwise v bounded to [min, max].
func clamp(v, def, min, max int) int {
	if v == 0 {
		return def
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
