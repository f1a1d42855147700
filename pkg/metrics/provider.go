package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ProviderMetrics records calls made to the upstream billing provider.
type ProviderMetrics struct {
	duration *prometheus.HistogramVec
	failures *prometheus.CounterVec
}

// NewProviderMetrics registers the provider call metrics on the provided registerer.
func NewProviderMetrics(reg prometheus.Registerer) *ProviderMetrics {
	if reg == nil {
		return &ProviderMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "billing_provider_call_duration_seconds",
		Help:    "Duration of billing provider API calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "billing_provider_call_failures_total",
		Help: "Failed billing provider API calls.",
	}, []string{"operation"})
	reg.MustRegister(duration, failures)
	return &ProviderMetrics{
		duration: duration,
		failures: failures,
	}
}

// ObserveCall records the duration of one provider call.
func (m *ProviderMetrics) ObserveCall(operation string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

// IncFailure increments the failure counter for the named operation.
func (m *ProviderMetrics) IncFailure(operation string) {
	if m == nil || m.failures == nil {
		return
	}
	m.failures.WithLabelValues(normalizeLabel(operation)).Inc()
}
