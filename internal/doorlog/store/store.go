package store

import (
	"context"
	"errors"

	"github.com/makerden/doorlog/internal/doorlog/types"
)

// ErrInvalidMonthKey reports a shard key that is not YYYY-MM.
var ErrInvalidMonthKey = errors.New("invalid month key")

// ErrInvalidTimeRange reports a range bound that is not a
// "YYYY-MM-DD HH:MM:SS" timestamp.
var ErrInvalidTimeRange = errors.New("invalid time range")

// ShardStore owns the monthly event partitions.
type ShardStore interface {
	// Ensure idempotently creates the shard for monthKey, its events table
	// and indices, and returns the shard's path.
	Ensure(ctx context.Context, monthKey string) (string, error)

	// InsertBatch inserts events into monthKey's shard in one transaction.
	// Rows whose (source_file, source_line_number) pair is already present
	// are ignored; the return value counts rows actually added.
	InsertBatch(ctx context.Context, monthKey string, events []types.Event) (int, error)
}

// EventQuerier answers federated range queries across monthly shards.
type EventQuerier interface {
	// QueryRange returns all events with startTS <= ts <= endTS, optionally
	// filtered to eventTypes, ordered by ts ascending. Bounds use the
	// "YYYY-MM-DD HH:MM:SS" layout. A range with no overlapping shards
	// yields an empty result, not an error.
	QueryRange(ctx context.Context, startTS, endTS string, eventTypes []string) ([]types.Event, error)
}
