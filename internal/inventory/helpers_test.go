package inventory

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codewandler/bookstock/adapters/sqlite"
	"github.com/codewandler/bookstock/core/app"
	"github.com/codewandler/bookstock/core/scope"
	"github.com/codewandler/bookstock/ports/books"
)

// faultStore wraps a books.Store, tracks open transactions and injects faults.
type faultStore struct {
	inner books.Store

	open      atomic.Int32
	maxOpen   atomic.Int32
	begins    atomic.Int32
	commits   atomic.Int32
	rollbacks atomic.Int32

	failBegin atomic.Bool
	failGet   atomic.Bool
	panicList atomic.Bool

	// when getGate is set, Get signals inGet and waits for the gate
	getGate chan struct{}
	inGet   chan struct{}
}

func newFaultStore(inner books.Store) *faultStore {
	return &faultStore{inner: inner}
}

func (p *faultStore) Begin(ctx context.Context) (books.Tx, error) {
	if p.failBegin.Load() {
		return nil, books.ErrExhausted
	}
	tx, err := p.inner.Begin(ctx)
	if err != nil {
		return nil, err
	}
	p.begins.Add(1)
	n := p.open.Add(1)
	for {
		m := p.maxOpen.Load()
		if n <= m || p.maxOpen.CompareAndSwap(m, n) {
			break
		}
	}
	return &faultTx{Tx: tx, p: p}, nil
}

type faultTx struct {
	books.Tx
	p    *faultStore
	done bool
}

func (t *faultTx) Get(ctx context.Context, id string) (books.Book, error) {
	if t.p.failGet.Load() {
		return books.Book{}, errors.New("connection reset")
	}
	if t.p.getGate != nil {
		t.p.inGet <- struct{}{}
		<-t.p.getGate
	}
	return t.Tx.Get(ctx, id)
}

func (t *faultTx) List(ctx context.Context) ([]books.Book, error) {
	if t.p.panicList.Load() {
		panic("list exploded")
	}
	return t.Tx.List(ctx)
}

func (t *faultTx) Commit(ctx context.Context) error {
	t.finish()
	t.p.commits.Add(1)
	return t.Tx.Commit(ctx)
}

func (t *faultTx) Rollback() error {
	if !t.done {
		t.p.rollbacks.Add(1)
	}
	t.finish()
	return t.Tx.Rollback()
}

func (t *faultTx) finish() {
	if !t.done {
		t.done = true
		t.p.open.Add(-1)
	}
}

type fixture struct {
	app    *app.App
	sys    *app.System
	client *Client
	store  *faultStore
	scopes *scope.Factory[books.Tx]
}

type fixtureOptions struct {
	store        books.Store
	drainTimeout time.Duration
	gateGet      bool
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, fixtureOptions{})
}

func newSQLiteFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, fixtureOptions{store: openSQLite(t)})
}

func openSQLite(t *testing.T) *sqlite.Store {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "books.db"), sqlite.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newFixtureWith(t *testing.T, opts fixtureOptions) *fixture {
	t.Helper()

	if opts.store == nil {
		opts.store = books.NewMemStore()
	}
	store := newFaultStore(opts.store)
	if opts.gateGet {
		store.getGate = make(chan struct{})
		store.inGet = make(chan struct{}, 1)
	}
	scopes := scope.NewFactory[books.Tx](store, scope.Options{})

	var seq atomic.Int32
	m := NewManager(scopes, ManagerOptions{
		NewID: func() string { return fmt.Sprintf("gen-%d", seq.Add(1)) },
	})

	a, sys, err := app.Run(app.Config{
		Name:         "inventory-test",
		Context:      t.Context(),
		DrainTimeout: opts.drainTimeout,
	}, m.Handlers())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Stop(context.Background()) })

	return &fixture{
		app:    a,
		sys:    sys,
		client: NewClient(sys.Manager(), ClientOptions{}),
		store:  store,
		scopes: scopes,
	}
}

func (f *fixture) seed(t *testing.T) []books.Book {
	t.Helper()
	seeded, err := Seed(t.Context(), nil, f.client, DefaultSeed()...)
	require.NoError(t, err)
	require.Len(t, seeded, 3)
	return seeded
}
