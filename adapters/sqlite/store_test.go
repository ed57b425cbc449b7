package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codewandler/bookstock/ports/books"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "books.db"), Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	_, err := Open("", Options{})
	require.Error(t, err)
}

func TestOpenIsIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "books.db")
	s, err := Open(path, Options{})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path, Options{})
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestStore_CommitAndRollback(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Insert(ctx, books.Book{ID: "b2", Title: "Book 2", Author: "Author 2", Quantity: 2, Cost: books.Cents(499)}))
	require.NoError(t, tx.Insert(ctx, books.Book{ID: "b1", Title: "Book 1", Author: "Author 1", Quantity: 12, Cost: books.Cents(299)}))
	require.NoError(t, tx.Commit(ctx))
	require.NoError(t, tx.Rollback(), "rollback after commit is a no-op")

	tx, err = store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.SetQuantity(ctx, "b2", 0))
	require.NoError(t, tx.Rollback())

	tx, err = store.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback()

	got, err := tx.Get(ctx, "b2")
	require.NoError(t, err)
	require.Equal(t, books.Book{ID: "b2", Title: "Book 2", Author: "Author 2", Quantity: 2, Cost: books.Cents(499)}, got)

	list, err := tx.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "b1", list[0].ID)
	require.Equal(t, "b2", list[1].ID)
}

func TestStore_Errors(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback()

	_, err = tx.Get(ctx, "missing")
	require.ErrorIs(t, err, books.ErrNotFound)
	require.ErrorIs(t, tx.SetQuantity(ctx, "missing", 1), books.ErrNotFound)

	b := books.Book{ID: "b1", Title: "Book 1", Quantity: 1}
	require.NoError(t, tx.Insert(ctx, b))
	require.ErrorIs(t, tx.Insert(ctx, b), books.ErrAlreadyExists)
	require.ErrorIs(t, tx.SetQuantity(ctx, "b1", -1), books.ErrInvalidBook)
	require.ErrorIs(t, tx.Insert(ctx, books.Book{ID: "b2"}), books.ErrInvalidBook)
}

func TestStore_BeginTimeout(t *testing.T) {
	t.Parallel()

	store, err := Open(filepath.Join(t.TempDir(), "books.db"), Options{MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	tx, err := store.Begin(context.Background())
	require.NoError(t, err)
	defer tx.Rollback()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = store.Begin(ctx)
	require.ErrorIs(t, err, books.ErrExhausted)
}

func TestExtractUp(t *testing.T) {
	t.Parallel()

	require.Equal(t, "\nA\n", extractUp("-- +migrate Up\nA\n-- +migrate Down\nB"))
	require.Equal(t, "plain", extractUp("plain"))
}
