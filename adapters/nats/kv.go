// Package nats provides NATS JetStream adapters.
package nats

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/codewandler/bookstock/ports/kv"
)

const defaultBucket = "bookstock_books"

type KvConfig struct {
	Connect Connector
	// Bucket defaults to "bookstock_books".
	Bucket string
	// MaxBytes caps the bucket size. Zero means unlimited.
	MaxBytes int64
}

// KvStore is a kv.Store on a JetStream key/value bucket.
type KvStore struct {
	kv    jetstream.KeyValue
	close closeFunc
}

func NewKvStore(ctx context.Context, cfg KvConfig) (*KvStore, error) {
	bucket := cfg.Bucket
	if bucket == "" {
		bucket = defaultBucket
	}
	maxBytes := cfg.MaxBytes
	if maxBytes == 0 {
		maxBytes = -1
	}

	doConnect := cfg.Connect
	if doConnect == nil {
		doConnect = ConnectDefault()
	}

	nc, closeConn, err := doConnect()
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		closeConn()
		return nil, err
	}

	bkt, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:   bucket,
		Storage:  jetstream.FileStorage,
		MaxBytes: maxBytes,
	})
	if err != nil {
		closeConn()
		return nil, fmt.Errorf("create kv bucket %s: %w", bucket, err)
	}

	return &KvStore{kv: bkt, close: closeConn}, nil
}

func (k *KvStore) Create(ctx context.Context, key string, data []byte) (uint64, error) {
	rev, err := k.kv.Create(ctx, key, data)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyExists) {
			return 0, fmt.Errorf("%w: %s exists", kv.ErrConflict, key)
		}
		return 0, fmt.Errorf("create %s: %w", key, err)
	}
	return rev, nil
}

// Update relies on JetStream's expected-last-sequence check; a stale
// revision is reported as ErrKeyExists by the server.
func (k *KvStore) Update(ctx context.Context, key string, data []byte, revision uint64) (uint64, error) {
	rev, err := k.kv.Update(ctx, key, data, revision)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyExists) {
			return 0, fmt.Errorf("%w: %s is not at revision %d", kv.ErrConflict, key, revision)
		}
		return 0, fmt.Errorf("update %s: %w", key, err)
	}
	return rev, nil
}

func (k *KvStore) Get(ctx context.Context, key string) (kv.Entry, error) {
	v, err := k.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
			return kv.Entry{}, kv.ErrNotFound
		}
		return kv.Entry{}, fmt.Errorf("get %s: %w", key, err)
	}
	return kv.Entry{Data: v.Value(), Revision: v.Revision()}, nil
}

func (k *KvStore) Delete(ctx context.Context, key string) error {
	if err := k.kv.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (k *KvStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	lister, err := k.kv.ListKeys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer func() { _ = lister.Stop() }()

	var keys []string
	for key := range lister.Keys() {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

// Close closes the underlying connection.
func (k *KvStore) Close() error {
	if k.close != nil {
		k.close()
	}
	return nil
}

var _ kv.Store = (*KvStore)(nil)
