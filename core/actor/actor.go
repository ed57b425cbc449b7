package actor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

var (
	// ErrStopped is returned when a message is sent to an actor that no longer
	// accepts messages (draining or stopped).
	ErrStopped = errors.New("actor stopped")
	// ErrDropped is the reply error for messages that were accepted into the
	// mailbox but abandoned because the actor was forcibly stopped.
	ErrDropped = errors.New("message dropped")
	// ErrPanic wraps a recovered handler panic.
	ErrPanic = errors.New("handler panicked")
)

type (
	OnPanic func(recovered any, stack []byte, msgType string)

	Actor interface {
		ID() string
		Send(ctx context.Context, msg Envelope) error
		Pause() error
		Resume() error
		Step() error
		// Drain stops accepting new messages and blocks until every message
		// already in the mailbox has been handled. If ctx ends first the actor
		// is aborted: the message being handled runs to completion, queued
		// ones are answered with ErrDropped.
		Drain(ctx context.Context) error
		State() State
		Done() <-chan struct{}
	}
)

// ---- control messages (internal) ----

type ctrlKind int

const (
	ctrlPause ctrlKind = iota
	ctrlResume
	ctrlEnableStep
	ctrlStep
)

type ctrlMsg struct {
	kind ctrlKind
}

type Options struct {
	ID          string
	MailboxSize int
	ControlSize int
	Context     context.Context
	Logger      *slog.Logger
	OnPanic     OnPanic
	Metrics     ActorMetrics
}

type BaseActor struct {
	id      string
	ctx     context.Context
	log     *slog.Logger
	metrics ActorMetrics
	state   atomic.Int32

	mailbox chan Envelope
	control chan ctrlMsg

	// closing is closed by Drain before it takes mu, so senders blocked on a
	// full mailbox give up their read lock. stop is closed by the loop when it
	// begins to exit, abort by Drain when its context ends.
	closing     chan struct{}
	closingOnce sync.Once
	stop        chan struct{}
	abort       chan struct{}
	abortOnce   sync.Once
	done        chan struct{}

	// mu guards closing the mailbox. Senders hold the read lock while they
	// enqueue so the mailbox is never closed under them.
	mu     sync.RWMutex
	closed bool

	onPanic OnPanic
}

func New(opt Options, handler RawHandler) Actor {
	if opt.MailboxSize == 0 {
		opt.MailboxSize = 1024
	}
	if opt.ControlSize == 0 {
		opt.ControlSize = 16
	}
	if opt.Context == nil {
		opt.Context = context.Background()
	}
	if opt.Logger == nil {
		opt.Logger = slog.Default()
	}
	if opt.Metrics == nil {
		opt.Metrics = NopActorMetrics()
	}
	if opt.ID == "" {
		opt.ID = "actor"
	}

	log := opt.Logger.With(slog.String("actor", opt.ID))

	if opt.OnPanic == nil {
		opt.OnPanic = func(recovered any, stack []byte, msgType string) {
			log.Error("actor panicked", slog.Any("recovered", recovered), slog.String("stack", string(stack)), slog.String("msg_type", msgType))
		}
	}

	a := &BaseActor{
		id:      opt.ID,
		ctx:     opt.Context,
		log:     log,
		metrics: opt.Metrics,
		mailbox: make(chan Envelope, opt.MailboxSize),
		control: make(chan ctrlMsg, opt.ControlSize),
		closing: make(chan struct{}),
		stop:    make(chan struct{}),
		abort:   make(chan struct{}),
		done:    make(chan struct{}),
		onPanic: opt.OnPanic,
	}
	a.state.Store(int32(StateStarting))

	hc := &handlerCtx{
		Context: opt.Context,
		id:      opt.ID,
		log:     log,
	}

	go a.loop(hc, handler)
	return a
}

func (a *BaseActor) ID() string { return a.id }

// State reports the current lifecycle state.
func (a *BaseActor) State() State { return State(a.state.Load()) }

// Done is closed when the actor stops.
func (a *BaseActor) Done() <-chan struct{} { return a.done }

// Send enqueues a message (blocking until enqueued, ctx canceled, or actor stopped).
func (a *BaseActor) Send(ctx context.Context, e Envelope) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrStopped
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("send failed: %w", ctx.Err())
	case <-a.closing:
		return ErrStopped
	case <-a.stop:
		return ErrStopped
	case a.mailbox <- e:
		a.metrics.MailboxDepth(a.id, len(a.mailbox))
		return nil
	}
}

// TrySend attempts a non-blocking enqueue.
func (a *BaseActor) TrySend(e Envelope) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return false
	}
	select {
	case <-a.closing:
		return false
	case <-a.stop:
		return false
	case a.mailbox <- e:
		a.metrics.MailboxDepth(a.id, len(a.mailbox))
		return true
	default:
		return false
	}
}

// Drain implements Actor.
func (a *BaseActor) Drain(ctx context.Context) error {
	// A paused actor would never empty its mailbox.
	_ = a.sendCtrl(ctrlResume)

	a.closingOnce.Do(func() {
		a.state.CompareAndSwap(int32(StateReady), int32(StateDraining))
		a.state.CompareAndSwap(int32(StateStarting), int32(StateDraining))
		close(a.closing)
	})

	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.mailbox)
	}
	a.mu.Unlock()

	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		a.abortOnce.Do(func() { close(a.abort) })
		return fmt.Errorf("drain aborted: %w", ctx.Err())
	}
}

// Pause prevents further processing until Resume or Step.
func (a *BaseActor) Pause() error { return a.sendCtrl(ctrlPause) }

// Resume enables continuous processing (disables step mode).
func (a *BaseActor) Resume() error { return a.sendCtrl(ctrlResume) }

// EnableStepMode makes the actor process only when Step() is called.
func (a *BaseActor) EnableStepMode() error { return a.sendCtrl(ctrlEnableStep) }

// Step permits exactly one message to be processed.
func (a *BaseActor) Step() error { return a.sendCtrl(ctrlStep) }

// ---- internals ----

func (a *BaseActor) sendCtrl(k ctrlKind) error {
	select {
	case <-a.stop:
		return ErrStopped
	case a.control <- ctrlMsg{kind: k}:
		return nil
	}
}

// exec holds execution state; it lives only in the loop goroutine.
type exec struct {
	paused   bool
	stepMode bool
	permit   int // when >0, actor may process one message; in run mode we auto-renew
}

func (x *exec) apply(c ctrlMsg) {
	switch c.kind {
	case ctrlPause:
		x.paused = true
		x.permit = 0
	case ctrlResume:
		x.paused = false
		x.stepMode = false
		if x.permit == 0 {
			x.permit = 1
		}
	case ctrlEnableStep:
		x.stepMode = true
		x.paused = true
		x.permit = 0
	case ctrlStep:
		x.permit++
	}
}

func (a *BaseActor) loop(hc *handlerCtx, h RawHandler) {
	defer a.exit()

	if err := h.InitHandler(hc); err != nil {
		a.log.Error("actor init failed", slog.Any("error", err))
		return
	}
	a.state.CompareAndSwap(int32(StateStarting), int32(StateReady))

	x := &exec{permit: 1}

	// drain all pending control msgs (priority)
	drainControl := func() {
		for {
			select {
			case c := <-a.control:
				x.apply(c)
			default:
				return
			}
		}
	}

	for {
		drainControl()

		// abort wins over queued messages
		select {
		case <-a.abort:
			return
		default:
		}

		// If no permit, block until a control message (or stop).
		if x.permit <= 0 {
			select {
			case <-a.abort:
				return
			case <-a.ctx.Done():
				return
			case c := <-a.control:
				x.apply(c)
			}
			continue
		}

		select {
		case <-a.abort:
			return
		case <-a.ctx.Done():
			return
		case c := <-a.control:
			// preempt: apply control, do not consume permit yet
			x.apply(c)
		case env, ok := <-a.mailbox:
			if !ok {
				// closed by Drain and empty
				return
			}
			x.permit--
			a.handle(hc, h, env)
			// Auto-renew permit in continuous mode.
			if !x.paused && !x.stepMode {
				x.permit++
			}
		}
	}
}

func (a *BaseActor) handle(hc *handlerCtx, h RawHandler, env Envelope) {
	defer a.metrics.MessageDuration(env.Type).ObserveDuration()

	res, err := a.safeHandle(hc.forMessage(env.Type), h, env)
	a.metrics.MessageProcessed(env.Type, err == nil)
	a.metrics.MailboxDepth(a.id, len(a.mailbox))
	a.reply(env, Reply{Result: res, Error: err})
}

// safeHandle calls the handler with crash containment.
func (a *BaseActor) safeHandle(hc *handlerCtx, h RawHandler, env Envelope) (res any, err error) {
	defer func() {
		if r := recover(); r != nil {
			a.metrics.MessagePanic(env.Type)
			a.onPanic(r, debug.Stack(), env.Type)
			res, err = nil, fmt.Errorf("%w: msg_type=%s: %v", ErrPanic, env.Type, r)
		}
	}()
	return h.HandleMessage(hc, env.Type, env.Data)
}

func (a *BaseActor) reply(env Envelope, r Reply) {
	if env.Reply == nil {
		return
	}
	select {
	case env.Reply <- r:
	default:
		a.log.Warn("reply dropped, receiver not ready", slog.String("msg_type", env.Type))
	}
}

func (a *BaseActor) exit() {
	close(a.stop)

	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.mailbox)
	}
	a.mu.Unlock()

	dropped := 0
	for env := range a.mailbox {
		a.reply(env, Reply{Error: ErrDropped})
		dropped++
	}
	if dropped > 0 {
		a.metrics.MessagesDropped(a.id, dropped)
		a.log.Warn("actor stopped with pending messages", slog.Int("dropped", dropped))
	}

	a.state.Store(int32(StateStopped))
	a.metrics.MailboxDepth(a.id, 0)
	close(a.done)
}

var _ Actor = (*BaseActor)(nil)
