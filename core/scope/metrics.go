package scope

import "github.com/codewandler/bookstock/core/metrics"

// Metrics receives scope lifecycle events.
type Metrics interface {
	ScopeOpened()
	ScopeClosed(committed bool)
	ScopeUnavailable()
	ScopesOpen(n int)
	// ScopeDuration starts a timer that is observed when the scope closes.
	ScopeDuration() metrics.Timer
}

type nopMetrics struct{}

func (nopMetrics) ScopeOpened()                 {}
func (nopMetrics) ScopeClosed(bool)             {}
func (nopMetrics) ScopeUnavailable()            {}
func (nopMetrics) ScopesOpen(int)               {}
func (nopMetrics) ScopeDuration() metrics.Timer { return metrics.NopTimer() }

func NopMetrics() Metrics { return nopMetrics{} }
