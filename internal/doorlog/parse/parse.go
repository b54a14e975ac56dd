// Package parse turns raw action-log lines into normalized events.
package parse

import (
	"regexp"
	"strings"
	"time"

	"github.com/makerden/doorlog/internal/doorlog/types"
)

// actionLineRE matches the fixed producer format:
// "YYYY-MM-DD HH:MM:SS - <producer> - <LEVEL> - <message>".
var actionLineRE = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}) - [^-]+ - [A-Z]+ - (.*)$`)

var (
	parenRE   = regexp.MustCompile(`\(.*\)`)
	nonWordRE = regexp.MustCompile(`\W+`)
)

const (
	badgeSep  = " - Badge: "
	statusSep = " - Status: "
)

// Line parses one raw action-log line into a normalized Event.
// Anything that is not a well-formed action line yields ok=false: log
// chatter, blank lines, malformed timestamps, unrecognized message shapes.
// The returned event carries no source tagging; the ingestion pipeline
// fills SourceFile and SourceLine.
func Line(line string) (types.Event, bool) {
	raw := strings.TrimSpace(line)
	if raw == "" {
		return types.Event{}, false
	}
	m := actionLineRE.FindStringSubmatch(raw)
	if m == nil {
		return types.Event{}, false
	}
	ts, message := m[1], m[2]
	if _, err := time.Parse(types.TimeLayout, ts); err != nil {
		return types.Event{}, false
	}

	var desc, badge, status string
	if i := strings.Index(message, badgeSep); i >= 0 && strings.Contains(message[i+len(badgeSep):], statusSep) {
		desc = strings.TrimSpace(message[:i])
		rest := message[i+len(badgeSep):]
		j := strings.LastIndex(rest, statusSep)
		badge = strings.TrimSpace(rest[:j])
		status = rest[j+len(statusSep):]
	} else if j := strings.LastIndex(message, statusSep); j >= 0 {
		desc = strings.TrimSpace(message[:j])
		status = message[j+len(statusSep):]
	} else {
		return types.Event{}, false
	}
	if desc == "" {
		return types.Event{}, false
	}

	return types.Event{
		TS:         ts,
		EventType:  NormalizeEventType(desc),
		BadgeID:    badge,
		Status:     NormalizeStatus(status),
		RawMessage: raw,
	}, true
}

// NormalizeEventType maps a free-text event description to its canonical
// token. Parenthetical notes like "(1 hour)" are dropped and whitespace is
// collapsed before matching. Descriptions outside the known set become a
// snake-cased token derived from the text itself; only an empty description
// maps to "unknown".
func NormalizeEventType(desc string) string {
	et := strings.ToLower(desc)
	et = parenRE.ReplaceAllString(et, "")
	et = strings.Join(strings.Fields(et), " ")

	switch {
	case strings.Contains(et, "manual lock"):
		return types.EventManualLock
	case strings.Contains(et, "manual unlock"):
		return types.EventManualUnlock
	case strings.Contains(et, "scan"), strings.Contains(et, "badge"):
		return types.EventScan
	case strings.Contains(et, "open"), strings.Contains(et, "unlocked"):
		return types.EventOpen
	case strings.Contains(et, "close"), strings.Contains(et, "locked"):
		return types.EventClose
	}

	key := strings.Trim(nonWordRE.ReplaceAllString(et, "_"), "_")
	if key == "" {
		key = et
	}
	if key == "" {
		key = types.EventUnknown
	}
	return key
}

// NormalizeStatus lowercases a status token; absent or empty becomes "unknown".
func NormalizeStatus(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return types.StatusUnknown
	}
	return s
}
