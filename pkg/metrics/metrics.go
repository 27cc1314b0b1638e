// Package metrics provides Prometheus instrumentation for motoportal.
//
// The admin CLI is short-lived, so nothing scrapes it. Pass
// --metrics-textfile to write the registry in the node_exporter textfile
// format when a command exits:
//
//	motoadmin photos add 12 *.jpg --metrics-textfile /var/lib/node_exporter/motoadmin.prom
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "motoportal"

var (
	// BackendRequestDuration tracks catalog backend call latency by
	// operation name and status ("error" for transport failures).
	BackendRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "request_duration_seconds",
			Help:      "Duration of catalog backend requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"op", "status"},
	)

	// BackendRequestTotal counts all backend calls.
	BackendRequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "requests_total",
			Help:      "Total number of catalog backend requests.",
		},
		[]string{"op", "status"},
	)

	// PhotoOperations counts photo set mutations by outcome.
	PhotoOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "photos",
			Name:      "operations_total",
			Help:      "Photo set operations by kind and outcome.",
		},
		[]string{"op", "outcome"}, // outcome: "ok" | "rejected" | "failed" | "rolled_back"
	)

	// SpecImportRows counts imported spreadsheet rows by outcome.
	SpecImportRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "specs",
			Name:      "import_rows_total",
			Help:      "Imported spec rows by outcome.",
		},
		[]string{"outcome"}, // "added" | "duplicate" | "invalid"
	)

	// CacheHits / CacheMisses track session store lookups.
	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Total cache hits.",
		},
		[]string{"driver"},
	)
	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Total cache misses.",
		},
		[]string{"driver"},
	)
)

// DefaultRegistry is the Prometheus registry used by motoportal.
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(collectors.NewGoCollector())
	DefaultRegistry.MustRegister(
		BackendRequestDuration,
		BackendRequestTotal,
		PhotoOperations,
		SpecImportRows,
		CacheHits,
		CacheMisses,
	)
}

// ObserveBackendCall records one backend attempt:
//
//	metrics.ObserveBackendCall("photos.upload", "201", start)
func ObserveBackendCall(op, status string, start time.Time) {
	BackendRequestDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
	BackendRequestTotal.WithLabelValues(op, status).Inc()
}

// RecordPhotoOp counts a photo set operation.
func RecordPhotoOp(op, outcome string) {
	PhotoOperations.WithLabelValues(op, outcome).Inc()
}

// RecordSpecImport adds n rows with the given outcome.
func RecordSpecImport(outcome string, n int) {
	if n > 0 {
		SpecImportRows.WithLabelValues(outcome).Add(float64(n))
	}
}

// WriteTextfile writes the registry to path for the node_exporter textfile
// collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, DefaultRegistry)
}
