package service

import (
	"github.com/makerden/doorlog/internal/metrics"
)

var (
	metricEventsInsertedTotal = metrics.NewCounter(
		metrics.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: metrics.SubIngestion,
			Name:      "events_inserted_total",
			Help:      "Rows actually added to a shard, duplicates excluded.",
		},
	)

	metricFilesIngestedTotal = metrics.NewCounterVec(
		metrics.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: metrics.SubIngestion,
			Name:      "files_ingested_total",
		},
		[]string{metrics.FieldTrigger, metrics.FieldErrorCode},
	)

	metricReloadRunsTotal = metrics.NewCounterVec(
		metrics.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: metrics.SubIngestion,
			Name:      "reload_runs_total",
		},
		[]string{metrics.FieldErrorCode},
	)

	metricRangeQueriesTotal = metrics.NewCounterVec(
		metrics.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: metrics.SubQuery,
			Name:      "range_queries_total",
		},
		[]string{metrics.FieldErrorCode},
	)

	metricRetentionSweepsTotal = metrics.NewCounterVec(
		metrics.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: metrics.SubIngestion,
			Name:      "retention_sweeps_total",
		},
		[]string{metrics.FieldErrorCode},
	)
)
