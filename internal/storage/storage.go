// Package storage opens the book store selected by configuration.
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/codewandler/bookstock/adapters/nats"
	"github.com/codewandler/bookstock/adapters/sqlite"
	"github.com/codewandler/bookstock/internal/config"
	"github.com/codewandler/bookstock/ports/books"
)

// Open builds the configured book store. The returned cleanup releases
// it and must run after the actor system stopped.
func Open(ctx context.Context, cfg config.Config, log *slog.Logger) (books.Store, func(), error) {
	switch cfg.Store {
	case config.StoreSQLite:
		st, err := sqlite.Open(cfg.SQLitePath, sqlite.Options{})
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		log.Info("using sqlite store", slog.String("path", cfg.SQLitePath))
		return st, func() {
			if err := st.Close(); err != nil {
				log.Error("failed to close sqlite store", slog.Any("error", err))
			}
		}, nil

	case config.StoreNATS:
		kvs, err := nats.NewKvStore(ctx, nats.KvConfig{
			Connect: nats.ConnectURL(cfg.NATSURL, nats.LogEvents(log)),
			Bucket:  cfg.NATSBucket,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("open nats kv store: %w", err)
		}
		log.Info("using nats kv store", slog.String("url", cfg.NATSURL), slog.String("bucket", cfg.NATSBucket))
		return books.NewKVStore(kvs, books.KVOptions{MaxOpenTx: 4}), func() {
			if err := kvs.Close(); err != nil {
				log.Error("failed to close nats kv store", slog.Any("error", err))
			}
		}, nil

	default:
		log.Info("using in-memory store")
		return books.NewMemStore(), func() {}, nil
	}
}
