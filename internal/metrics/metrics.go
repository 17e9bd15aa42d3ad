// Package metrics exports Prometheus metrics for mapping refreshes and
// request resolution.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonesrussell/north-cloud/redirector/infrastructure/circuitbreaker"
	"github.com/jonesrussell/north-cloud/redirector/internal/refresh"
)

const namespace = "redirector"

// Resolution outcomes recorded by ObserveResolution.
const (
	ResolutionRedirect    = "redirect"
	ResolutionHostDefault = "host_default"
	ResolutionConfirm     = "confirm"
	ResolutionNotFound    = "not_found"
	ResolutionError       = "error"
)

// Metrics holds the redirector collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	RefreshCycles   *prometheus.CounterVec
	RefreshFailures *prometheus.CounterVec
	RefreshDuration prometheus.Histogram
	MappingEntries  prometheus.Gauge
	RowsSkipped     prometheus.Gauge
	LastPublished   prometheus.Gauge
	Resolutions     *prometheus.CounterVec
	BreakerState    prometheus.Gauge
}

// New registers every collector, plus the Go and process collectors, on a
// fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RefreshCycles: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_cycles_total",
			Help:      "Refresh cycles by outcome (published, unchanged, failed)",
		}, []string{"outcome"}),
		RefreshFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_failures_total",
			Help:      "Failed refresh cycles by the source call that failed",
		}, []string{"stage"}),
		RefreshDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Wall time of a refresh cycle",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		MappingEntries: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mapping_entries",
			Help:      "Aliases in the mapping being served",
		}),
		RowsSkipped: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mapping_rows_skipped",
			Help:      "Rows dropped from the last fetched sheet for a missing alias or target",
		}),
		LastPublished: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mapping_last_published_timestamp_seconds",
			Help:      "Unix time the current mapping was published",
		}),
		Resolutions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Handled redirect requests by outcome",
		}, []string{"outcome"}),
		BreakerState: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "source_breaker_state",
			Help:      "Source circuit breaker state (0 closed, 1 open, 2 half-open)",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// CycleCompleted implements refresh.Observer.
func (m *Metrics) CycleCompleted(r refresh.CycleResult) {
	if m == nil {
		return
	}

	m.RefreshCycles.WithLabelValues(string(r.Outcome)).Inc()
	m.RefreshDuration.Observe(r.Duration.Seconds())
	m.MappingEntries.Set(float64(r.Entries))

	switch r.Outcome {
	case refresh.OutcomePublished:
		m.RowsSkipped.Set(float64(r.Skipped))
		m.LastPublished.SetToCurrentTime()
	case refresh.OutcomeFailed:
		m.RefreshFailures.WithLabelValues(string(r.Stage)).Inc()
	case refresh.OutcomeUnchanged:
	}
}

// ObserveResolution counts one handled request.
func (m *Metrics) ObserveResolution(outcome string) {
	if m == nil {
		return
	}
	m.Resolutions.WithLabelValues(outcome).Inc()
}

// ObserveBreaker matches circuitbreaker.Config.OnStateChange.
func (m *Metrics) ObserveBreaker(_, to circuitbreaker.State) {
	if m == nil {
		return
	}
	m.BreakerState.Set(float64(to))
}
