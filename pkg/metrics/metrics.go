// Package metrics provides Prometheus collectors for the packing pipeline:
// row groups submitted, rows and bytes flushed, encoder activity and failures.
// All collectors auto-register through promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RowGroupsSubmitted counts row groups handed to the write path.
	// Labels: status (submitted/failed)
	RowGroupsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "colpack_row_groups_submitted_total",
			Help: "Total number of row groups submitted to the writer",
		},
		[]string{"status"},
	)

	// RowsFlushed counts rows flushed out of tables
	RowsFlushed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "colpack_rows_flushed_total",
			Help: "Total number of rows flushed into row groups",
		},
	)

	// BytesFlushed counts the estimated bytes of flushed row groups
	BytesFlushed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "colpack_bytes_flushed_total",
			Help: "Estimated total bytes of flushed row groups",
		},
	)

	// FlushDuration tracks how long a flush takes end to end, submission
	// included (so channel backpressure shows up here)
	FlushDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "colpack_flush_duration_seconds",
			Help:    "Duration of table flushes including batch submission",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
	)

	// EncoderFailures counts encoder tasks that exited with an error
	EncoderFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "colpack_encoder_failures_total",
			Help: "Total number of encoder tasks that failed",
		},
	)
)
