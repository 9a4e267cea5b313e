// internal/observability/metrics.go
package observability

import (
	"net/http"

	"rebill-service/internal/service/billing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes billing counters and histograms on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	runsTotal     prometheus.Counter
	runDuration   prometheus.Histogram
	attemptsTotal *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		runsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "billing_runs_total",
			Help: "Completed billing cycle runs.",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "billing_run_duration_seconds",
			Help:    "Wall-clock duration of billing cycle runs.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		attemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "billing_charge_attempts_total",
			Help: "Charge attempts by outcome.",
		}, []string{"outcome"}),
	}

	registry.MustRegister(m.runsTotal, m.runDuration, m.attemptsTotal)
	return m
}

// ObserveAttempt implements billing.MetricsRecorder.
func (m *Metrics) ObserveAttempt(outcome string) {
	m.attemptsTotal.WithLabelValues(outcome).Inc()
}

// ObserveRun implements billing.MetricsRecorder.
func (m *Metrics) ObserveRun(summary *billing.RunSummary) {
	m.runsTotal.Inc()
	m.runDuration.Observe(summary.FinishedAt.Sub(summary.StartedAt).Seconds())
}

// Handler serves the metrics endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
