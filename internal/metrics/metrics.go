// Package metrics exposes Prometheus counters for load runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shipload",
		Subsystem: "run",
		Name:      "total",
		Help:      "Total number of load runs broken down by final state.",
	}, []string{"state"})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "shipload",
		Subsystem: "run",
		Name:      "duration_seconds",
		Help:      "Wall time of load runs, from reading sources to commit or rollback.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	})

	shipmentRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shipload",
		Subsystem: "shipment",
		Name:      "rows_total",
		Help:      "Shipment rows processed broken down by source and outcome (inserted, skipped).",
	}, []string{"source", "outcome"})

	joinDuplicates = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "shipload",
		Subsystem: "join",
		Name:      "duplicate_keys_total",
		Help:      "Join keys that repeated within one side and were expanded.",
	})

	catalogSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "shipload",
		Subsystem: "catalog",
		Name:      "products",
		Help:      "Number of products in the catalog after the last committed run.",
	})
)

// RecordRun counts a finished run. state is the run's final state name.
func RecordRun(state string, elapsed time.Duration) {
	if state == "" {
		state = "unknown"
	}
	runsTotal.WithLabelValues(state).Inc()
	runDuration.Observe(elapsed.Seconds())
}

// RecordShipments adds the outcome of one load pass.
func RecordShipments(source string, inserted, skipped int) {
	shipmentRows.WithLabelValues(source, "inserted").Add(float64(inserted))
	shipmentRows.WithLabelValues(source, "skipped").Add(float64(skipped))
}

// RecordJoinDuplicates adds n expanded duplicate keys.
func RecordJoinDuplicates(n int) {
	if n > 0 {
		joinDuplicates.Add(float64(n))
	}
}

// SetCatalogSize records the catalog size of a committed run.
func SetCatalogSize(n int) {
	catalogSize.Set(float64(n))
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
