// Package metrics exposes the process's Prometheus registry: connection
// counts, document counts, and the Jupiter protocol's own throughput and
// error counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the server's gauges and counters. internal/transport
// updates them as connections come and go and documents are edited, except
// BytesPersisted, which is registered but never incremented.
type Metrics struct {
	ConnectedUsers   prometheus.Gauge
	ActiveDocuments  prometheus.Gauge
	OpsApplied       prometheus.Counter
	RecordsRelayed   prometheus.Counter
	ProtocolErrors   prometheus.Counter
	LoginAttempts    prometheus.Counter
	LoginFailures    prometheus.Counter
	BytesPersisted   prometheus.Counter
}

// New registers and returns the process's metric set.
func New() *Metrics {
	return &Metrics{
		ConnectedUsers: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "obbygo_connected_users",
			Help: "Number of currently connected, logged-in users.",
		}),
		ActiveDocuments: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "obbygo_active_documents",
			Help: "Number of documents currently known to the server.",
		}),
		OpsApplied: promauto.NewCounter(prometheus.CounterOpts{
			Name: "obbygo_ops_applied_total",
			Help: "Total number of operations applied to any document's text.",
		}),
		RecordsRelayed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "obbygo_records_relayed_total",
			Help: "Total number of Jupiter records relayed between subscribers.",
		}),
		ProtocolErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "obbygo_protocol_errors_total",
			Help: "Total number of rejected or malformed protocol messages.",
		}),
		LoginAttempts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "obbygo_login_attempts_total",
			Help: "Total number of login attempts, successful or not.",
		}),
		LoginFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "obbygo_login_failures_total",
			Help: "Total number of rejected login attempts.",
		}),
		BytesPersisted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "obbygo_bytes_persisted_total",
			Help: "Total number of document content bytes written to storage.",
		}),
	}
}
