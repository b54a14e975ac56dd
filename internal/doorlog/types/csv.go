package types

import (
	"encoding/csv"
	"strings"
)

// csvHeader is the fixed column order consumed by dashboard exports.
var csvHeader = []string{"ts", "event_type", "badge_id", "status", "raw_message"}

// EventsToCSV serializes events as CSV with a fixed header row.
func EventsToCSV(events []Event) string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	_ = w.Write(csvHeader)
	for _, ev := range events {
		_ = w.Write([]string{ev.TS, ev.EventType, ev.BadgeID, ev.Status, ev.RawMessage})
	}
	w.Flush()
	return sb.String()
}
