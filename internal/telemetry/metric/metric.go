// Package metric provides Prometheus metrics for local-state-sync.
package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the sync engine's instrumentation.
//
// Read-path failures are absorbed by design, so the failure counters are
// the only place those events remain observable.
type Metrics struct {
	// RecordsWritten counts records encrypted and persisted by SetState.
	RecordsWritten prometheus.Counter

	// RecordsReceived counts change notifications decrypted and delivered
	// to the state-updated callback.
	RecordsReceived prometheus.Counter

	// DecryptFailures counts read-path records dropped for failing
	// authentication or parsing.
	DecryptFailures prometheus.Counter

	// ExpiredPurged counts stale records removed after failing the
	// freshness check.
	ExpiredPurged prometheus.Counter

	// EngineReady is 1 once the engine reaches the loaded state and 0
	// while idle or disabled.
	EngineReady prometheus.Gauge
}

// New creates the metrics and registers them with reg. A nil reg leaves
// the metrics unregistered, which is what library embedders without a
// Prometheus pipeline want.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RecordsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "localsync_records_written_total",
			Help: "Records encrypted and persisted.",
		}),
		RecordsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "localsync_records_received_total",
			Help: "Change notifications decrypted and delivered.",
		}),
		DecryptFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "localsync_decrypt_failures_total",
			Help: "Read-path records dropped for authentication or parse failures.",
		}),
		ExpiredPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "localsync_expired_purged_total",
			Help: "Stale records removed after failing the freshness check.",
		}),
		EngineReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "localsync_engine_ready",
			Help: "Whether the sync engine has reached the loaded state.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.RecordsWritten,
			m.RecordsReceived,
			m.DecryptFailures,
			m.ExpiredPurged,
			m.EngineReady,
		)
	}
	return m
}
