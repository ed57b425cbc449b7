// Package kv defines a minimal revisioned key/value port. Adapters
// (in-memory, NATS JetStream) implement Store; ports/books layers a
// transactional book store on top of it.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned by Create when the key already exists and by
	// Update when the stored revision is not the expected one.
	ErrConflict = errors.New("revision conflict")
)

type Entry struct {
	Data []byte
	// Revision increases with every write to the store.
	Revision uint64
}

type Store interface {
	Get(ctx context.Context, key string) (Entry, error)
	// Create writes key only if it does not exist yet.
	Create(ctx context.Context, key string, data []byte) (revision uint64, err error)
	// Update overwrites key only if its current revision is revision.
	Update(ctx context.Context, key string, data []byte, revision uint64) (uint64, error)
	Delete(ctx context.Context, key string) error
	// Keys returns all keys starting with prefix, in ascending order.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Get loads and decodes key.
func Get[T any](ctx context.Context, store Store, key string) (out T, revision uint64, err error) {
	entry, err := store.Get(ctx, key)
	if err != nil {
		return out, 0, err
	}
	if err := json.Unmarshal(entry.Data, &out); err != nil {
		return out, 0, fmt.Errorf("decode %s: %w", key, err)
	}
	return out, entry.Revision, nil
}

// Create encodes v and writes it under a new key.
func Create[T any](ctx context.Context, store Store, key string, v T) (uint64, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return 0, fmt.Errorf("encode %s: %w", key, err)
	}
	return store.Create(ctx, key, data)
}

// Update encodes v and writes it if key is still at revision.
func Update[T any](ctx context.Context, store Store, key string, v T, revision uint64) (uint64, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return 0, fmt.Errorf("encode %s: %w", key, err)
	}
	return store.Update(ctx, key, data, revision)
}
