package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/codewandler/bookstock/core/metrics"
	"github.com/codewandler/bookstock/core/scope"
)

// ScopeMetrics implements scope.Metrics using Prometheus.
type ScopeMetrics struct {
	opened      prometheus.Counter
	closed      *prometheus.CounterVec
	unavailable prometheus.Counter
	open        prometheus.Gauge
	duration    prometheus.Histogram
}

func NewScopeMetrics(reg prometheus.Registerer) *ScopeMetrics {
	m := &ScopeMetrics{
		opened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scopes_opened_total",
			Help:      "Total number of scopes opened",
		}),
		closed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scopes_closed_total",
			Help:      "Total number of scopes closed, by outcome",
		}, []string{"committed"}),
		unavailable: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scopes_unavailable_total",
			Help:      "Total number of scopes that could not be opened",
		}),
		open: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scopes_open",
			Help:      "Number of currently open scopes",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scope_duration_seconds",
			Help:      "Time between opening and closing a scope",
			Buckets:   defaultBuckets,
		}),
	}

	reg.MustRegister(m.opened, m.closed, m.unavailable, m.open, m.duration)
	return m
}

func (m *ScopeMetrics) ScopeOpened() { m.opened.Inc() }

func (m *ScopeMetrics) ScopeClosed(committed bool) {
	m.closed.WithLabelValues(boolToStr(committed)).Inc()
}

func (m *ScopeMetrics) ScopeUnavailable() { m.unavailable.Inc() }

func (m *ScopeMetrics) ScopesOpen(n int) { m.open.Set(float64(n)) }

func (m *ScopeMetrics) ScopeDuration() metrics.Timer { return newTimer(m.duration) }

var _ scope.Metrics = (*ScopeMetrics)(nil)
