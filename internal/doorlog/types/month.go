package types

import "time"

// MonthKey returns the YYYY-MM shard key owning t.
func MonthKey(t time.Time) string {
	return t.Format(MonthLayout)
}

// MonthKeysInRange returns the inclusive list of YYYY-MM keys spanning
// start..end. A reversed range yields nil.
func MonthKeysInRange(start, end time.Time) []string {
	if end.Before(start) {
		return nil
	}
	var keys []string
	cur := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, start.Location())
	final := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, end.Location())
	for !cur.After(final) {
		keys = append(keys, cur.Format(MonthLayout))
		cur = cur.AddDate(0, 1, 0)
	}
	return keys
}
