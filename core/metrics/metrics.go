// Package metrics provides the metric primitives the core packages report
// through. Backends (see adapters/prometheus) implement the per-package
// metrics interfaces; the core never imports a concrete instrumentation
// library.
package metrics

// Timer measures the duration of an operation. Call ObserveDuration when
// the operation completes to record the elapsed time:
//
//	defer m.ScopeDuration().ObserveDuration()
type Timer interface {
	ObserveDuration()
}

// TimerFunc adapts a plain function to Timer.
type TimerFunc func()

func (f TimerFunc) ObserveDuration() { f() }
