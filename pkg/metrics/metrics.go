package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Dispatch metrics
	MessagesDelivered *prometheus.CounterVec
	MessagesFailed    *prometheus.CounterVec

	// Cycle metrics
	CyclesTotal       prometheus.Counter
	CycleDuration     prometheus.Histogram
	CandidatesFetched *prometheus.CounterVec

	// Session metrics
	SessionLive       prometheus.Gauge
	ReconnectAttempts prometheus.Counter

	// Store metrics
	StoreOperations *prometheus.CounterVec
}

// NewMetrics creates and registers all application metrics. Tests pass a
// fresh prometheus.NewRegistry to avoid duplicate registration.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MessagesDelivered: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_delivered_total",
			Help:      "Total number of reminder messages delivered",
		}, []string{"tier"}),
		MessagesFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_failed_total",
			Help:      "Total number of reminder messages that failed to deliver",
		}, []string{"tier"}),
		CyclesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Total number of completed notification cycles",
		}),
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Time spent running one full notification cycle",
			Buckets:   []float64{.1, .5, 1, 5, 15, 30, 60, 120, 300},
		}),
		CandidatesFetched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_fetched_total",
			Help:      "Total number of notification candidates fetched from the store",
		}, []string{"tier"}),
		SessionLive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_live",
			Help:      "Whether the messaging session is currently live (1) or down (0)",
		}),
		ReconnectAttempts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_reconnect_attempts_total",
			Help:      "Total number of session reconnect attempts",
		}),
		StoreOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Total number of store operations",
		}, []string{"operation", "status"}),
	}
}
