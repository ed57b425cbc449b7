package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codewandler/bookstock/core/actor"
	"github.com/codewandler/bookstock/core/app"
	"github.com/codewandler/bookstock/ports/books"
)

func TestManager_sqlite_commits_every_message(t *testing.T) {
	f := newSQLiteFixture(t)
	seeded := f.seed(t)

	_, err := f.client.AdjustInventory(t.Context(), seeded[1].ID, -3)
	require.ErrorIs(t, err, ErrInsufficientInventory)

	qty, err := f.client.AdjustInventory(t.Context(), seeded[1].ID, -2)
	require.NoError(t, err)
	require.EqualValues(t, 0, qty)

	added, err := f.client.AddBook(t.Context(), books.Book{Title: "Book 0", Quantity: 1, Cost: books.Cents(100)})
	require.NoError(t, err)
	require.Equal(t, "gen-1", added.ID)

	list, err := f.client.ListBooks(t.Context())
	require.NoError(t, err)
	require.Len(t, list, 4)
	require.Equal(t, "Book 0", list[0].Title)
	require.EqualValues(t, 0, list[2].Quantity)

	// seed, adjust and add commit; the rejected adjustment rolls back
	require.EqualValues(t, 6, f.store.commits.Load())
	require.EqualValues(t, 1, f.store.rollbacks.Load())
	require.EqualValues(t, 0, f.store.open.Load())
	require.Equal(t, 0, f.scopes.OpenCount())
}

func TestManager_sqlite_domain_errors(t *testing.T) {
	f := newSQLiteFixture(t)
	seeded := f.seed(t)

	_, err := f.client.GetBook(t.Context(), "missing")
	require.ErrorIs(t, err, ErrBookNotFound)

	_, err = f.client.AddBook(t.Context(), seeded[0])
	require.ErrorIs(t, err, ErrDuplicateBook)

	_, err = f.client.AdjustInventory(t.Context(), "missing", 1)
	require.ErrorIs(t, err, ErrBookNotFound)

	got, err := f.client.GetBook(t.Context(), seeded[0].ID)
	require.NoError(t, err)
	require.Equal(t, seeded[0], got)
}

func TestManager_sqlite_reseed_keeps_stored_books(t *testing.T) {
	f := newSQLiteFixture(t)
	seeded := f.seed(t)

	_, err := f.client.AdjustInventory(t.Context(), seeded[0].ID, -12)
	require.NoError(t, err)

	again, err := Seed(t.Context(), nil, f.client, DefaultSeed()...)
	require.NoError(t, err)
	require.Len(t, again, 3)
	require.EqualValues(t, 0, again[0].Quantity)

	list, err := f.client.ListBooks(t.Context())
	require.NoError(t, err)
	require.Len(t, list, 3)
}

func TestManager_sqlite_drain_timeout_finishes_scoped_message(t *testing.T) {
	db := openSQLite(t)
	f := newFixtureWith(t, fixtureOptions{store: db, drainTimeout: 20 * time.Millisecond, gateGet: true})
	seeded := f.seed(t)

	type result struct {
		qty int64
		err error
	}
	adjusted := make(chan result, 1)
	go func() {
		qty, err := f.client.AdjustInventory(context.Background(), seeded[1].ID, 5)
		adjusted <- result{qty: qty, err: err}
	}()
	<-f.store.inGet

	require.ErrorIs(t, f.app.Stop(t.Context()), app.ErrDrainTimeout)

	// the actor context is gone, the open scope is not
	close(f.store.getGate)
	r := <-adjusted
	require.NoError(t, r.err)
	require.EqualValues(t, 7, r.qty)

	<-f.sys.Manager().Done()
	require.Equal(t, actor.StateStopped, f.sys.Manager().State())

	tx, err := db.Begin(t.Context())
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()
	got, err := tx.Get(t.Context(), seeded[1].ID)
	require.NoError(t, err)
	require.EqualValues(t, 7, got.Quantity)
}
