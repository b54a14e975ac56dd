package types

// Timestamp layouts used across the store. Event timestamps are
// second-precision local time; the string form sorts chronologically.
const (
	TimeLayout  = "2006-01-02 15:04:05"
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
)

// Known event types. Anything outside this set is a snake-cased token
// derived from the raw description.
const (
	EventScan         = "scan"
	EventOpen         = "open"
	EventClose        = "close"
	EventManualLock   = "manual_lock"
	EventManualUnlock = "manual_unlock"
	EventUnknown      = "unknown"
)

// StatusUnknown is the status recorded when a line carries none.
const StatusUnknown = "unknown"

// Event is one normalized record derived from a raw action-log line.
// SourceFile and SourceLine identify the physical line that produced it;
// together they are the natural key that makes re-ingestion a no-op.
type Event struct {
	TS         string `json:"ts"`
	EventType  string `json:"event_type"`
	BadgeID    string `json:"badge_id,omitempty"`
	Status     string `json:"status"`
	RawMessage string `json:"raw_message,omitempty"`
	SourceFile string `json:"-"`
	SourceLine int    `json:"-"`
}
