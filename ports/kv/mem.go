package kv

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// MemStore is an in-process Store. Revisions come from one store-wide
// sequence, like a JetStream bucket.
type MemStore struct {
	mu   sync.RWMutex
	seq  uint64
	data map[string]Entry
}

func NewMemStore() *MemStore {
	return &MemStore{data: map[string]Entry{}}
}

func (m *MemStore) Get(_ context.Context, key string) (Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.data[key]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return Entry{Data: slices.Clone(e.Data), Revision: e.Revision}, nil
}

func (m *MemStore) Create(_ context.Context, key string, data []byte) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.data[key]; ok {
		return 0, fmt.Errorf("%w: %s exists", ErrConflict, key)
	}
	return m.write(key, data), nil
}

func (m *MemStore) Update(_ context.Context, key string, data []byte, revision uint64) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.data[key]
	if !ok || e.Revision != revision {
		return 0, fmt.Errorf("%w: %s is not at revision %d", ErrConflict, key, revision)
	}
	return m.write(key, data), nil
}

func (m *MemStore) write(key string, data []byte) uint64 {
	m.seq++
	m.data[key] = Entry{Data: slices.Clone(data), Revision: m.seq}
	return m.seq
}

func (m *MemStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemStore) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

var _ Store = (*MemStore)(nil)
