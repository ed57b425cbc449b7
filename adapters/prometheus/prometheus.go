// Package prometheus provides Prometheus implementations of the actor and
// scope metrics interfaces.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/codewandler/bookstock/core/metrics"
)

const namespace = "bookstock"

func newTimer(h prometheus.Observer) metrics.Timer {
	start := time.Now()
	return metrics.TimerFunc(func() {
		h.Observe(time.Since(start).Seconds())
	})
}

// Default histogram buckets for latency metrics (in seconds).
var defaultBuckets = []float64{
	.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5,
}

// AllMetrics bundles the actor and scope metrics.
type AllMetrics struct {
	Actor *ActorMetrics
	Scope *ScopeMetrics
}

// NewAllMetrics registers every metric family with reg.
func NewAllMetrics(reg prometheus.Registerer) *AllMetrics {
	return &AllMetrics{
		Actor: NewActorMetrics(reg),
		Scope: NewScopeMetrics(reg),
	}
}

func boolToStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
