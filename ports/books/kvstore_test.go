package books

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codewandler/bookstock/ports/kv"
)

func seedBook(id, title string, qty int64) Book {
	return Book{ID: id, Title: title, Author: "A", Quantity: qty, Cost: Cents(100)}
}

func TestKVStore_commit(t *testing.T) {
	s := NewMemStore()
	ctx := t.Context()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Insert(ctx, seedBook("b2", "Beta", 2)))
	require.NoError(t, tx.Insert(ctx, seedBook("b1", "Alpha", 1)))

	// staged writes are visible inside the tx
	b, err := tx.Get(ctx, "b2")
	require.NoError(t, err)
	require.Equal(t, "Beta", b.Title)
	require.NoError(t, tx.Commit(ctx))
	require.ErrorIs(t, tx.Commit(ctx), ErrTxDone)
	require.NoError(t, tx.Rollback())

	tx, err = s.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback()
	list, err := tx.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "Alpha", list[0].Title)
	require.Equal(t, "Beta", list[1].Title)
}

func TestKVStore_rollback_discards(t *testing.T) {
	s := NewMemStore()
	ctx := t.Context()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Insert(ctx, seedBook("b1", "Alpha", 5)))
	require.NoError(t, tx.Commit(ctx))

	tx, err = s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.SetQuantity(ctx, "b1", 1))
	require.NoError(t, tx.Rollback())
	_, err = tx.Get(ctx, "b1")
	require.ErrorIs(t, err, ErrTxDone)

	tx, err = s.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback()
	b, err := tx.Get(ctx, "b1")
	require.NoError(t, err)
	require.EqualValues(t, 5, b.Quantity)
}

func TestKVStore_errors(t *testing.T) {
	s := NewMemStore()
	ctx := t.Context()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback()

	_, err = tx.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, tx.SetQuantity(ctx, "missing", 1), ErrNotFound)

	require.NoError(t, tx.Insert(ctx, seedBook("b1", "Alpha", 5)))
	require.ErrorIs(t, tx.Insert(ctx, seedBook("b1", "Alpha", 5)), ErrAlreadyExists)
	require.ErrorIs(t, tx.SetQuantity(ctx, "b1", -1), ErrInvalidBook)
	require.ErrorIs(t, tx.Insert(ctx, Book{ID: "b2"}), ErrInvalidBook)
	require.ErrorIs(t, tx.Insert(ctx, Book{ID: "b3", Title: "x", Cost: -1}), ErrInvalidBook)
}

func TestKVStore_exhausted(t *testing.T) {
	s := NewKVStore(NewMemStore().kv, KVOptions{MaxOpenTx: 1})

	tx, err := s.Begin(t.Context())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
	defer cancel()
	_, err = s.Begin(ctx)
	require.ErrorIs(t, err, ErrExhausted)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, tx.Rollback())
	tx, err = s.Begin(t.Context())
	require.NoError(t, err)
	require.NoError(t, tx.Commit(t.Context()))
}

func TestKVStore_concurrent_writers_conflict(t *testing.T) {
	shared := kv.NewMemStore()
	a := NewKVStore(shared, KVOptions{})
	b := NewKVStore(shared, KVOptions{})
	ctx := t.Context()

	tx, err := a.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Insert(ctx, seedBook("b1", "Alpha", 5)))
	require.NoError(t, tx.Commit(ctx))

	txA, err := a.Begin(ctx)
	require.NoError(t, err)
	txB, err := b.Begin(ctx)
	require.NoError(t, err)

	require.NoError(t, txA.SetQuantity(ctx, "b1", 4))
	require.NoError(t, txB.SetQuantity(ctx, "b1", 9))
	require.NoError(t, txA.Commit(ctx))
	require.ErrorIs(t, txB.Commit(ctx), ErrConflict)

	// both inserted the same new id
	txA, err = a.Begin(ctx)
	require.NoError(t, err)
	txB, err = b.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, txA.Insert(ctx, seedBook("b2", "Beta", 1)))
	require.NoError(t, txB.Insert(ctx, seedBook("b2", "Beta", 1)))
	require.NoError(t, txA.Commit(ctx))
	require.ErrorIs(t, txB.Commit(ctx), ErrAlreadyExists)

	tx, err = a.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback()
	got, err := tx.Get(ctx, "b1")
	require.NoError(t, err)
	require.EqualValues(t, 4, got.Quantity)
}
