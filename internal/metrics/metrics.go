// Package metrics provides Prometheus metrics for file operations.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fileman_operations_total",
			Help: "Total number of bulk operations",
		},
		[]string{"kind", "status"},
	)

	operationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fileman_operation_duration_seconds",
			Help:    "Bulk operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	itemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fileman_items_total",
			Help: "Total items processed by bulk operations",
		},
		[]string{"kind"},
	)

	bytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fileman_bytes_total",
			Help: "Total bytes processed by bulk operations",
		},
		[]string{"kind"},
	)

	failuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fileman_failures_total",
			Help: "Total item failures, by phase",
		},
		[]string{"kind", "phase"},
	)

	snapshotsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fileman_progress_snapshots_total",
			Help: "Progress ticks, forwarded or dropped by the throttle",
		},
		[]string{"result"},
	)

	busyRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fileman_busy_rejections_total",
			Help: "Operations refused because another one was running",
		},
	)

	activeOperations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fileman_active_operations",
			Help: "Number of operations currently running",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// OperationStarted marks an operation as running.
func OperationStarted() {
	activeOperations.Inc()
}

// RecordOperation records a finished operation.
func RecordOperation(kind string, items int, bytes int64, copyFailures, deleteFailures int, duration time.Duration) {
	activeOperations.Dec()

	status := "success"
	if copyFailures+deleteFailures > 0 {
		status = "partial"
	}
	operationsTotal.WithLabelValues(kind, status).Inc()
	operationDuration.WithLabelValues(kind).Observe(duration.Seconds())
	itemsTotal.WithLabelValues(kind).Add(float64(items))
	bytesTotal.WithLabelValues(kind).Add(float64(bytes))
	if copyFailures > 0 {
		failuresTotal.WithLabelValues(kind, "walk").Add(float64(copyFailures))
	}
	if deleteFailures > 0 {
		failuresTotal.WithLabelValues(kind, "delete_after_cut").Add(float64(deleteFailures))
	}
}

// RecordSnapshots records how many ticks the throttle passed and dropped.
func RecordSnapshots(forwarded, dropped int) {
	snapshotsTotal.WithLabelValues("forwarded").Add(float64(forwarded))
	snapshotsTotal.WithLabelValues("dropped").Add(float64(dropped))
}

// RecordBusyRejection records an operation refused by the single worker gate.
func RecordBusyRejection() {
	busyRejections.Inc()
}
