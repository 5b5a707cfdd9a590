// internal/metrics/metrics.go

// Package metrics registers the Prometheus instruments exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PollCycles counts collector poll iterations by outcome ("ok", "fetch_failed").
	PollCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "halo_collector_poll_cycles_total",
		Help: "Collector poll cycles by outcome.",
	}, []string{"outcome"})

	// PollDuration observes the device fetch latency.
	PollDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "halo_collector_poll_duration_seconds",
		Help:    "Time spent fetching device state per cycle.",
		Buckets: prometheus.DefBuckets,
	})

	// EventsGenerated counts derived events by type and severity.
	EventsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "halo_events_generated_total",
		Help: "Derived events by type and severity.",
	}, []string{"type", "severity"})

	// StorageWriteErrors counts failed InfluxDB writes.
	StorageWriteErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "halo_storage_write_errors_total",
		Help: "Failed InfluxDB write operations.",
	})

	// WebsocketClients tracks currently connected event stream clients.
	WebsocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "halo_websocket_clients",
		Help: "Connected websocket clients.",
	})

	// PredictiveAlerts counts alerts raised by the rule engine, by rule id.
	PredictiveAlerts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "halo_predictive_alerts_total",
		Help: "Predictive alerts by rule.",
	}, []string{"rule"})
)
