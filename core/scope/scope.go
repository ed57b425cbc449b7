package scope

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/codewandler/bookstock/core/metrics"
)

var (
	// ErrUnavailable is returned by Open when no scope could be created.
	ErrUnavailable = errors.New("scope unavailable")
	// ErrClosed is returned when a closed handle is used.
	ErrClosed = errors.New("scope closed")
)

type (
	// Resource is the unit of work held by a scope.
	Resource interface {
		Commit(ctx context.Context) error
		Rollback() error
	}

	// Provider creates resources, one per scope.
	Provider[R Resource] interface {
		Begin(ctx context.Context) (R, error)
	}
)

type Options struct {
	// AcquireTimeout bounds how long Open waits for Provider.Begin. Defaults to 5s.
	AcquireTimeout time.Duration
	Logger         *slog.Logger
	Metrics        Metrics
}

// Factory opens scopes. It is safe for concurrent use and keeps no
// per-request state.
type Factory[R Resource] struct {
	provider Provider[R]
	timeout  time.Duration
	log      *slog.Logger
	metrics  Metrics
	open     atomic.Int64
}

func NewFactory[R Resource](provider Provider[R], opts Options) *Factory[R] {
	if opts.AcquireTimeout <= 0 {
		opts.AcquireTimeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = NopMetrics()
	}
	return &Factory[R]{
		provider: provider,
		timeout:  opts.AcquireTimeout,
		log:      opts.Logger,
		metrics:  opts.Metrics,
	}
}

// Open begins a new scope. Every failure wraps ErrUnavailable.
//
// Acquisition is bounded by ctx and AcquireTimeout, but the resource itself is
// begun under a context that outlives Open: providers such as database/sql tie
// a transaction to the context it was started with. A resource that arrives
// after Open gave up is rolled back.
func (f *Factory[R]) Open(ctx context.Context) (*Handle[R], error) {
	if f == nil || f.provider == nil {
		f.unavailable()
		return nil, fmt.Errorf("%w: no provider configured", ErrUnavailable)
	}

	ch := make(chan begun[R], 1)
	go func() {
		res, err := f.provider.Begin(context.WithoutCancel(ctx))
		ch <- begun[R]{res: res, err: err}
	}()

	timer := time.NewTimer(f.timeout)
	defer timer.Stop()

	var b begun[R]
	select {
	case b = <-ch:
	case <-timer.C:
		f.abandon(ch)
		b.err = context.DeadlineExceeded
	case <-ctx.Done():
		f.abandon(ch)
		b.err = ctx.Err()
	}
	if b.err != nil {
		f.unavailable()
		f.log.Warn("failed to open scope", slog.Any("error", b.err))
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, b.err)
	}

	n := f.open.Add(1)
	f.metrics.ScopeOpened()
	f.metrics.ScopesOpen(int(n))

	return &Handle[R]{
		factory:  f,
		resource: b.res,
		timer:    f.metrics.ScopeDuration(),
	}, nil
}

// abandon rolls back a resource whose Begin completes after Open returned.
func (f *Factory[R]) abandon(ch <-chan begun[R]) {
	go func() {
		b := <-ch
		if b.err != nil {
			return
		}
		if err := b.res.Rollback(); err != nil {
			f.log.Warn("failed to roll back abandoned scope", slog.Any("error", err))
		}
	}()
}

type begun[R Resource] struct {
	res R
	err error
}

// OpenCount reports the number of scopes currently open.
func (f *Factory[R]) OpenCount() int { return int(f.open.Load()) }

func (f *Factory[R]) unavailable() {
	if f != nil && f.metrics != nil {
		f.metrics.ScopeUnavailable()
	}
}

func (f *Factory[R]) closed(committed bool) {
	n := f.open.Add(-1)
	f.metrics.ScopeClosed(committed)
	f.metrics.ScopesOpen(int(n))
}

// Handle is a single open scope.
type Handle[R Resource] struct {
	factory  *Factory[R]
	resource R
	timer    metrics.Timer

	mu        sync.Mutex
	completed bool
	closed    bool
}

// Resource returns the underlying accessor.
func (h *Handle[R]) Resource() R { return h.resource }

// Use runs fn with the resource unless the handle is already closed.
func (h *Handle[R]) Use(fn func(R) error) error {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		return ErrClosed
	}
	return fn(h.resource)
}

// Complete marks the unit of work as successful; Close will commit.
func (h *Handle[R]) Complete() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.completed = true
}

// Closed reports whether Close has been called.
func (h *Handle[R]) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// Close commits a completed scope and rolls back otherwise. Only the first
// call has an effect; later calls return nil.
func (h *Handle[R]) Close(ctx context.Context) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	commit := h.completed
	h.mu.Unlock()

	defer h.timer.ObserveDuration()

	if !commit {
		err := h.resource.Rollback()
		h.factory.closed(false)
		if err != nil {
			return fmt.Errorf("rollback scope: %w", err)
		}
		return nil
	}

	if err := h.resource.Commit(ctx); err != nil {
		// the resource may still hold locks after a failed commit
		_ = h.resource.Rollback()
		h.factory.closed(false)
		return fmt.Errorf("commit scope: %w", err)
	}
	h.factory.closed(true)
	return nil
}
