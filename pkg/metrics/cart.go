package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CartMetrics records the outcome and latency of cart mutations.
type CartMetrics struct {
	duration  *prometheus.HistogramVec
	mutations *prometheus.CounterVec
}

// NewCartMetrics registers the cart metrics on the provided registerer.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cart_mutation_duration_seconds",
		Help:    "Duration of cart mutations in seconds, backend round trip included.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_mutations_total",
		Help: "Cart mutations by operation and outcome (ok, noop, busy, rolled_back, partial, failed).",
	}, []string{"operation", "outcome"})
	reg.MustRegister(duration, mutations)
	return &CartMetrics{
		duration:  duration,
		mutations: mutations,
	}
}

// ObserveMutation records one finished cart mutation.
func (c *CartMetrics) ObserveMutation(operation, outcome string, duration time.Duration) {
	if c == nil || c.mutations == nil {
		return
	}
	op := normalizeLabel(operation)
	c.mutations.WithLabelValues(op, normalizeLabel(outcome)).Inc()
	c.duration.WithLabelValues(op).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
