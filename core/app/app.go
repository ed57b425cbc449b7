package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/codewandler/bookstock/core/actor"
)

var (
	ErrAlreadyStarted = errors.New("actor system already started")
	ErrNotStarted     = errors.New("actor system not started")
	// ErrDrainTimeout is returned by Stop when the manager could not drain
	// in time. Messages that were still queued are lost.
	ErrDrainTimeout = errors.New("actor system drain timed out")
)

type ActorOptions struct {
	MailboxSize int
	Metrics     actor.ActorMetrics
}

type Config struct {
	// Name identifies the actor system. Defaults to "bookstock-<id>".
	Name         string
	Context      context.Context
	Log          *slog.Logger
	DrainTimeout time.Duration
	Actor        ActorOptions
}

// App owns the actor system: Start creates it and spawns the manager, Stop
// drains and terminates it. No other code changes the system's state.
type App struct {
	cfg      Config
	log      *slog.Logger
	handlers []actor.HandlerRegistration

	mu        sync.Mutex
	sys       *System
	cancelCtx context.CancelFunc
	done      chan struct{}
}

func New(config Config, handlers ...actor.HandlerRegistration) *App {
	if config.Name == "" {
		config.Name = fmt.Sprintf("bookstock-%s", gonanoid.Must(6))
	}
	if config.Context == nil {
		config.Context = context.Background()
	}
	if config.Log == nil {
		config.Log = slog.Default()
	}
	if config.DrainTimeout <= 0 {
		config.DrainTimeout = 10 * time.Second
	}

	return &App{
		cfg:      config,
		log:      config.Log.With(slog.String("system", config.Name)),
		handlers: handlers,
		done:     make(chan struct{}),
	}
}

// Start creates the actor system and spawns the manager actor. It succeeds
// once per App; later calls (also after Stop) fail with ErrAlreadyStarted.
func (a *App) Start() (*System, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.sys != nil {
		return nil, ErrAlreadyStarted
	}

	sys := &System{name: a.cfg.Name, createdAt: time.Now()}
	sys.state.Store(int32(StateCreated))

	ctx, cancel := context.WithCancel(a.cfg.Context)
	a.cancelCtx = cancel

	sys.manager = actor.New(
		actor.Options{
			ID:          "manager",
			Context:     ctx,
			Logger:      a.log,
			MailboxSize: a.cfg.Actor.MailboxSize,
			Metrics:     a.cfg.Actor.Metrics,
		},
		actor.TypedHandlers(a.handlers...),
	)
	sys.state.Store(int32(StateRunning))
	a.sys = sys

	a.log.Info("actor system started")
	return sys, nil
}

// Stop drains the manager and terminates the system. It waits until every
// accepted message is handled, bounded by ctx and Config.DrainTimeout. On
// timeout the system is stopped anyway and ErrDrainTimeout is returned.
// Concurrent calls wait for the first one to finish.
func (a *App) Stop(ctx context.Context) error {
	a.mu.Lock()
	sys := a.sys
	a.mu.Unlock()

	if sys == nil {
		return ErrNotStarted
	}
	if !sys.state.CompareAndSwap(int32(StateRunning), int32(StateTerminating)) {
		// another Stop owns the shutdown; wait for it
		select {
		case <-a.done:
			return nil
		default:
		}
		select {
		case <-a.done:
			return nil
		case <-ctx.Done():
			return fmt.Errorf("wait for stop: %w", ctx.Err())
		}
	}

	a.log.Info("actor system stopping")
	started := time.Now()

	drainCtx, cancel := context.WithTimeout(ctx, a.cfg.DrainTimeout)
	defer cancel()

	err := sys.manager.Drain(drainCtx)
	a.cancelCtx()
	sys.state.Store(int32(StateTerminated))
	close(a.done)

	if err != nil {
		a.log.Error("actor system drain timed out", slog.Any("error", err), slog.Duration("after", time.Since(started)))
		return fmt.Errorf("%w: %w", ErrDrainTimeout, err)
	}

	a.log.Info("actor system stopped", slog.Duration("took", time.Since(started)))
	return nil
}

// System returns the running system, or nil before Start.
func (a *App) System() *System {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sys
}

// Done is closed once Stop has terminated the system.
func (a *App) Done() <-chan struct{} { return a.done }

// Run creates an App and starts it.
func Run(config Config, handlers ...actor.HandlerRegistration) (*App, *System, error) {
	a := New(config, handlers...)
	sys, err := a.Start()
	if err != nil {
		return nil, nil, err
	}
	return a, sys, nil
}
