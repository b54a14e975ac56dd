package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	dbpkg "github.com/makerden/doorlog/internal/db"
	"github.com/makerden/doorlog/internal/doorlog/store"
	"github.com/makerden/doorlog/internal/doorlog/types"
)

// Federator answers range queries by attaching every overlapping monthly
// shard to an ephemeral in-memory session and running one UNION ALL query
// over the attached set. A session never outlives a single call.
type Federator struct {
	shards *Shards
}

func NewFederator(shards *Shards) *Federator {
	return &Federator{shards: shards}
}

// QueryRange returns all events with startTS <= ts <= endTS, optionally
// filtered to eventTypes, ordered by ts ascending. A reversed range or a
// range with no existing shards yields an empty result. A missing shard for
// the current month is created empty so "no data yet this month" queries
// succeed.
func (f *Federator) QueryRange(ctx context.Context, startTS, endTS string, eventTypes []string) ([]types.Event, error) {
	start, err := time.ParseInLocation(types.TimeLayout, startTS, time.Local)
	if err != nil {
		return nil, fmt.Errorf("%w: start %q", store.ErrInvalidTimeRange, startTS)
	}
	end, err := time.ParseInLocation(types.TimeLayout, endTS, time.Local)
	if err != nil {
		return nil, fmt.Errorf("%w: end %q", store.ErrInvalidTimeRange, endTS)
	}

	paths, err := f.resolvePaths(ctx, start, end)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, nil
	}

	session, err := dbpkg.OpenMemory(ctx)
	if err != nil {
		return nil, fmt.Errorf("open query session: %w", err)
	}
	defer session.Close()

	aliases, err := attachShards(ctx, session, paths)
	if err != nil {
		return nil, err
	}

	where := "WHERE ts >= ? AND ts <= ?"
	if len(eventTypes) > 0 {
		where += " AND event_type IN (" + placeholders(len(eventTypes)) + ")"
	}
	query := fmt.Sprintf(
		"SELECT ts, event_type, badge_id, status, raw_message FROM (%s) ORDER BY ts ASC",
		buildUnionQuery(aliases, where),
	)

	// The same bound values repeat once per attached shard.
	args := make([]any, 0, len(aliases)*(2+len(eventTypes)))
	for range aliases {
		args = append(args, startTS, endTS)
		for _, et := range eventTypes {
			args = append(args, et)
		}
	}

	rows, err := session.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("QueryRange: %w", err)
	}
	defer rows.Close()

	var events []types.Event
	for rows.Next() {
		var ev types.Event
		var badge sql.NullString
		if err := rows.Scan(&ev.TS, &ev.EventType, &badge, &ev.Status, &ev.RawMessage); err != nil {
			return nil, fmt.Errorf("QueryRange scan: %w", err)
		}
		ev.BadgeID = badge.String
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("QueryRange rows: %w", err)
	}
	return events, nil
}

// resolvePaths maps the range onto existing shard files. Shards that do not
// exist are skipped, except the current month's, which is created empty.
func (f *Federator) resolvePaths(ctx context.Context, start, end time.Time) ([]string, error) {
	nowKey := types.MonthKey(time.Now())

	var paths []string
	for _, key := range types.MonthKeysInRange(start, end) {
		path := f.shards.Path(key)
		if _, err := os.Stat(path); err == nil {
			paths = append(paths, path)
			continue
		}
		if key == nowKey {
			created, err := f.shards.Ensure(ctx, key)
			if err != nil {
				return nil, err
			}
			paths = append(paths, created)
		}
	}
	return paths, nil
}

// attachShards attaches each shard file under a generated alias and returns
// the aliases in attachment order.
func attachShards(ctx context.Context, session *sql.DB, paths []string) ([]string, error) {
	aliases := make([]string, 0, len(paths))
	for i, path := range paths {
		alias := fmt.Sprintf("m%d", i)
		if _, err := session.ExecContext(ctx, "ATTACH DATABASE ? AS "+alias, path); err != nil {
			return nil, fmt.Errorf("attach %s: %w", path, err)
		}
		aliases = append(aliases, alias)
	}
	return aliases, nil
}

// buildUnionQuery builds the UNION ALL body over the attached aliases. With
// no aliases it degenerates to a query that selects nothing.
func buildUnionQuery(aliases []string, whereClause string) string {
	if len(aliases) == 0 {
		return "SELECT NULL AS ts, NULL AS event_type, NULL AS badge_id, NULL AS status, NULL AS raw_message WHERE 1=0"
	}
	parts := make([]string, 0, len(aliases))
	for _, alias := range aliases {
		parts = append(parts,
			fmt.Sprintf("SELECT ts, event_type, badge_id, status, raw_message FROM %s.events %s", alias, whereClause))
	}
	return strings.Join(parts, " UNION ALL ")
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
