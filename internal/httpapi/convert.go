package httpapi

import (
	"fmt"

	"github.com/makerden/doorlog/internal/doorlog/service"
	"github.com/makerden/doorlog/internal/doorlog/types"
)

// ── Events ───────────────────────────────────────────────────────────────────

// eventPayload is the wire form of one event. raw_message is never
// included in JSON responses.
type eventPayload struct {
	TS        string `json:"ts"`
	EventType string `json:"event_type"`
	BadgeID   string `json:"badge_id,omitempty"`
	Status    string `json:"status"`
}

func eventToPayload(ev types.Event) eventPayload {
	return eventPayload{
		TS:        ev.TS,
		EventType: ev.EventType,
		BadgeID:   ev.BadgeID,
		Status:    ev.Status,
	}
}

func eventsToPayload(events []types.Event) []eventPayload {
	out := make([]eventPayload, len(events))
	for i, ev := range events {
		out[i] = eventToPayload(ev)
	}
	return out
}

// stripRaw clears raw messages for the CSV export, which keeps the
// raw_message column but leaves every value empty.
func stripRaw(events []types.Event) []types.Event {
	out := make([]types.Event, len(events))
	for i, ev := range events {
		ev.RawMessage = ""
		out[i] = ev
	}
	return out
}

// ── Pages ────────────────────────────────────────────────────────────────────

type pagePayload struct {
	StartDate   string         `json:"start_date"`
	EndDate     string         `json:"end_date"`
	Page        int            `json:"page"`
	PageSize    int            `json:"page_size"`
	TotalEvents int            `json:"total_events"`
	TotalPages  int            `json:"total_pages"`
	Events      []eventPayload `json:"events"`
}

func pageToPayload(p service.Page) pagePayload {
	return pagePayload{
		StartDate:   p.StartDate,
		EndDate:     p.EndDate,
		Page:        p.Page,
		PageSize:    p.PageSize,
		TotalEvents: p.TotalEvents,
		TotalPages:  p.TotalPages,
		Events:      eventsToPayload(p.Events),
	}
}

// ── Reload ───────────────────────────────────────────────────────────────────

type reloadPayload struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func reloadToPayload(res service.Result) reloadPayload {
	return reloadPayload{
		Success: true,
		Message: fmt.Sprintf("Reloaded %d events from %d files.", res.Inserted, res.FilesProcessed),
	}
}

// ── Errors ───────────────────────────────────────────────────────────────────

type errorPayload struct {
	Error string `json:"error"`
}

type rangeErrorPayload struct {
	Error         string `json:"error"`
	RequestedDays int    `json:"requested_days"`
	MaxDays       int    `json:"max_days"`
}

func rangeErrorToPayload(re *service.RangeError) rangeErrorPayload {
	return rangeErrorPayload{
		Error:         fmt.Sprintf("Date range exceeds maximum of %d days", re.MaxDays),
		RequestedDays: re.RequestedDays,
		MaxDays:       re.MaxDays,
	}
}
