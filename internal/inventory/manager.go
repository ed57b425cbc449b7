package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/codewandler/bookstock/core/actor"
	"github.com/codewandler/bookstock/core/scope"
	"github.com/codewandler/bookstock/ports/books"
)

type ManagerOptions struct {
	// NewID generates ids for books added without one. Defaults to nanoid.
	NewID func() string
}

// Manager is the sole authority over book inventory. Its handlers run inside
// one actor, so its fields are only touched by the actor goroutine.
type Manager struct {
	scopes *scope.Factory[books.Tx]
	newID  func() string

	handled  map[string]int
	failures map[Kind]int
}

// NewManager creates a manager that opens one scope per message from scopes.
func NewManager(scopes *scope.Factory[books.Tx], opts ManagerOptions) *Manager {
	if opts.NewID == nil {
		opts.NewID = func() string { return gonanoid.Must() }
	}
	return &Manager{
		scopes:   scopes,
		newID:    opts.NewID,
		handled:  map[string]int{},
		failures: map[Kind]int{},
	}
}

// Handlers registers the protocol with an actor.
func (m *Manager) Handlers() actor.HandlerRegistration {
	regs := []actor.HandlerRegistration{
		actor.Init(func(hc actor.HandlerCtx) error {
			hc.Log().Debug("inventory manager ready")
			return nil
		}),
		actor.HandleRequest[GetBook, BookResult](m.getBook),
		actor.HandleRequest[ListBooks, BookList](m.listBooks),
		actor.HandleRequest[AddBook, BookResult](m.addBook),
		actor.HandleRequest[AdjustInventory, InventoryResult](m.adjustInventory),
		actor.HandleRequest[GetStats, Stats](m.stats),
	}
	return func(r actor.HandlerRegistrar) {
		for _, reg := range regs {
			reg(r)
		}
	}
}

func (m *Manager) getBook(hc actor.HandlerCtx, q GetBook) (*BookResult, error) {
	return withScope(m, hc, func(ctx context.Context, tx books.Tx) (*BookResult, error) {
		if strings.TrimSpace(q.ID) == "" {
			return nil, domainError(CodeInvalidRequest, "id is required")
		}
		b, err := tx.Get(ctx, q.ID)
		if err != nil {
			return nil, err
		}
		return &BookResult{Book: b}, nil
	})
}

func (m *Manager) listBooks(hc actor.HandlerCtx, q ListBooks) (*BookList, error) {
	return withScope(m, hc, func(ctx context.Context, tx books.Tx) (*BookList, error) {
		list, err := tx.List(ctx)
		if err != nil {
			return nil, err
		}
		return &BookList{Books: list}, nil
	})
}

func (m *Manager) addBook(hc actor.HandlerCtx, cmd AddBook) (*BookResult, error) {
	return withScope(m, hc, func(ctx context.Context, tx books.Tx) (*BookResult, error) {
		b := cmd.Book
		if b.ID == "" {
			b.ID = m.newID()
		}
		if err := tx.Insert(ctx, b); err != nil {
			return nil, err
		}
		hc.Log().Info("book added", slog.String("id", b.ID), slog.String("title", b.Title), slog.Int64("quantity", b.Quantity))
		return &BookResult{Book: b}, nil
	})
}

func (m *Manager) adjustInventory(hc actor.HandlerCtx, cmd AdjustInventory) (*InventoryResult, error) {
	return withScope(m, hc, func(ctx context.Context, tx books.Tx) (*InventoryResult, error) {
		if strings.TrimSpace(cmd.ID) == "" {
			return nil, domainError(CodeInvalidRequest, "id is required")
		}
		b, err := tx.Get(ctx, cmd.ID)
		if err != nil {
			return nil, err
		}
		if cmd.Delta > 0 && b.Quantity > math.MaxInt64-cmd.Delta {
			return nil, domainError(CodeInvalidRequest, "adjusting %s by %d overflows", b.ID, cmd.Delta)
		}
		qty := b.Quantity + cmd.Delta
		if qty < 0 {
			return nil, domainError(CodeInsufficientInventory, "book %s has %d on hand, cannot adjust by %d", b.ID, b.Quantity, cmd.Delta)
		}
		if err := tx.SetQuantity(ctx, b.ID, qty); err != nil {
			return nil, err
		}
		return &InventoryResult{ID: b.ID, Quantity: qty}, nil
	})
}

func (m *Manager) stats(hc actor.HandlerCtx, _ GetStats) (*Stats, error) {
	m.handled[hc.MsgType()]++
	out := &Stats{
		Handled:  make(map[string]int, len(m.handled)),
		Failures: make(map[Kind]int, len(m.failures)),
	}
	for k, v := range m.handled {
		out.Handled[k] = v
	}
	for k, v := range m.failures {
		out.Failures[k] = v
	}
	return out, nil
}

// withScope runs fn inside a freshly opened scope. The scope is committed on
// success and rolled back on any error or panic; it is always closed before
// the reply leaves the actor. Once opened, the scope's work no longer follows
// cancellation of the actor context: a message inside a scope runs to the end.
func withScope[OUT any](m *Manager, hc actor.HandlerCtx, fn func(ctx context.Context, tx books.Tx) (*OUT, error)) (out *OUT, err error) {
	m.handled[hc.MsgType()]++
	log := hc.Log()

	defer func() {
		if err != nil {
			f := classify(err)
			m.failures[f.Kind]++
			if f.Kind == KindInternalError {
				log.Error("operation failed", slog.Any("error", f.Unwrap()))
			} else {
				log.Debug("operation rejected", slog.Any("error", f))
			}
			out, err = nil, f
		}
	}()

	h, err := m.scopes.Open(hc)
	if err != nil {
		return nil, err
	}

	ctx := context.WithoutCancel(hc)

	defer func() {
		// best effort: no-op after the explicit close below
		if cerr := h.Close(ctx); cerr != nil {
			log.Warn("failed to close scope", slog.Any("error", cerr))
		}
		if r := recover(); r != nil {
			out, err = nil, internalError(fmt.Errorf("panic: %v", r))
		}
	}()

	out, err = fn(ctx, h.Resource())
	if err != nil {
		return nil, err
	}

	h.Complete()
	if err := h.Close(ctx); err != nil {
		return nil, err
	}
	return out, nil
}
