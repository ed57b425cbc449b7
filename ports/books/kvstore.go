package books

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/codewandler/bookstock/ports/kv"
)

const keyPrefix = "book."

// KVOptions configures a KVStore.
type KVOptions struct {
	// MaxOpenTx bounds the number of concurrently open transactions. Begin
	// waits for a free slot until its context ends and then fails with
	// ErrExhausted. Zero means unbounded.
	MaxOpenTx int
}

// KVStore is a Store on top of any kv.Store. Writes are staged in the
// transaction and applied on Commit; commits are serialised. A commit writes
// each staged book conditionally on the revision the transaction read, so a
// concurrent writer (another host on the same bucket) makes it fail with
// ErrConflict instead of being overwritten. Commit is atomic per book only.
type KVStore struct {
	kv     kv.Store
	slots  chan struct{}
	commit sync.Mutex
}

// NewKVStore wraps a kv.Store.
func NewKVStore(store kv.Store, opts KVOptions) *KVStore {
	s := &KVStore{kv: store}
	if opts.MaxOpenTx > 0 {
		s.slots = make(chan struct{}, opts.MaxOpenTx)
	}
	return s
}

// NewMemStore returns an in-memory Store.
func NewMemStore() *KVStore {
	return NewKVStore(kv.NewMemStore(), KVOptions{})
}

func (s *KVStore) Begin(ctx context.Context) (Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.slots != nil {
		select {
		case s.slots <- struct{}{}:
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", ErrExhausted, ctx.Err())
		}
	}
	return &kvTx{store: s, staged: map[string]Book{}, revs: map[string]uint64{}}, nil
}

func (s *KVStore) Close() error { return nil }

func (s *KVStore) release() {
	if s.slots != nil {
		<-s.slots
	}
}

type kvTx struct {
	store  *KVStore
	staged map[string]Book
	order  []string
	// revs holds the revision each stored book had when first read.
	revs map[string]uint64
	done bool
}

func (t *kvTx) Get(ctx context.Context, id string) (Book, error) {
	if t.done {
		return Book{}, ErrTxDone
	}
	if b, ok := t.staged[id]; ok {
		return b, nil
	}
	b, rev, err := kv.Get[Book](ctx, t.store.kv, keyPrefix+id)
	if errors.Is(err, kv.ErrNotFound) {
		return Book{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Book{}, fmt.Errorf("get book %s: %w", id, err)
	}
	if _, ok := t.revs[id]; !ok {
		t.revs[id] = rev
	}
	return b, nil
}

func (t *kvTx) List(ctx context.Context) ([]Book, error) {
	if t.done {
		return nil, ErrTxDone
	}
	keys, err := t.store.kv.Keys(ctx, keyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	seen := make(map[string]bool, len(keys))
	out := make([]Book, 0, len(keys)+len(t.staged))
	for _, k := range keys {
		id := strings.TrimPrefix(k, keyPrefix)
		b, err := t.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		seen[id] = true
		out = append(out, b)
	}
	for id, b := range t.staged {
		if !seen[id] {
			out = append(out, b)
		}
	}
	sortBooks(out)
	return out, nil
}

func (t *kvTx) Insert(ctx context.Context, b Book) error {
	if t.done {
		return ErrTxDone
	}
	if err := b.Validate(); err != nil {
		return err
	}
	_, err := t.Get(ctx, b.ID)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s", ErrAlreadyExists, b.ID)
	case !errors.Is(err, ErrNotFound):
		return err
	}
	t.stage(b)
	return nil
}

func (t *kvTx) SetQuantity(ctx context.Context, id string, qty int64) error {
	if t.done {
		return ErrTxDone
	}
	b, err := t.Get(ctx, id)
	if err != nil {
		return err
	}
	b.Quantity = qty
	if err := b.Validate(); err != nil {
		return err
	}
	t.stage(b)
	return nil
}

func (t *kvTx) stage(b Book) {
	if _, ok := t.staged[b.ID]; !ok {
		t.order = append(t.order, b.ID)
	}
	t.staged[b.ID] = b
}

func (t *kvTx) Commit(ctx context.Context) error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	defer t.store.release()

	t.store.commit.Lock()
	defer t.store.commit.Unlock()
	for _, id := range t.order {
		if err := t.write(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (t *kvTx) write(ctx context.Context, id string) error {
	b := t.staged[id]
	rev, stored := t.revs[id]
	if !stored {
		_, err := kv.Create(ctx, t.store.kv, keyPrefix+id, b)
		if errors.Is(err, kv.ErrConflict) {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, id)
		}
		if err != nil {
			return fmt.Errorf("commit book %s: %w", id, err)
		}
		return nil
	}
	_, err := kv.Update(ctx, t.store.kv, keyPrefix+id, b, rev)
	if errors.Is(err, kv.ErrConflict) {
		return fmt.Errorf("%w: %s", ErrConflict, id)
	}
	if err != nil {
		return fmt.Errorf("commit book %s: %w", id, err)
	}
	return nil
}

func (t *kvTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.staged = nil
	t.store.release()
	return nil
}

func sortBooks(bs []Book) {
	slices.SortFunc(bs, func(a, b Book) int {
		if c := cmp.Compare(a.Title, b.Title); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

var _ Store = (*KVStore)(nil)
