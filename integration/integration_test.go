package integration

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/codewandler/bookstock/adapters/nats"
	promadapter "github.com/codewandler/bookstock/adapters/prometheus"
	"github.com/codewandler/bookstock/adapters/sqlite"
	"github.com/codewandler/bookstock/core/actor"
	"github.com/codewandler/bookstock/core/app"
	"github.com/codewandler/bookstock/core/scope"
	"github.com/codewandler/bookstock/internal/inventory"
	"github.com/codewandler/bookstock/ports/books"
)

type host struct {
	app    *app.App
	client *inventory.Client
}

func startHost(t *testing.T, store books.Store, metrics *promadapter.AllMetrics) host {
	t.Helper()

	scopes := scope.NewFactory[books.Tx](store, scope.Options{Metrics: metrics.Scope})
	manager := inventory.NewManager(scopes, inventory.ManagerOptions{})

	a, sys, err := app.Run(app.Config{
		Context: t.Context(),
		Log:     slog.Default(),
		Actor:   app.ActorOptions{Metrics: metrics.Actor},
	}, manager.Handlers())
	require.NoError(t, err)

	return host{app: a, client: inventory.NewClient(sys.Manager(), inventory.ClientOptions{})}
}

func closedScopes(t *testing.T, reg *prometheus.Registry, committed string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != "bookstock_scopes_closed_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "committed" && l.GetValue() == committed {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestIntegration_sqlite_survives_restart(t *testing.T) {
	slog.SetLogLoggerLevel(slog.LevelDebug)

	path := filepath.Join(t.TempDir(), "books.db")
	reg := prometheus.NewRegistry()
	metrics := promadapter.NewAllMetrics(reg)

	store, err := sqlite.Open(path, sqlite.Options{})
	require.NoError(t, err)

	h := startHost(t, store, metrics)
	seeded, err := inventory.Seed(t.Context(), nil, h.client, inventory.DefaultSeed()...)
	require.NoError(t, err)

	_, err = h.client.AdjustInventory(t.Context(), seeded[1].ID, -3)
	require.ErrorIs(t, err, inventory.ErrInsufficientInventory)
	qty, err := h.client.AdjustInventory(t.Context(), seeded[1].ID, -2)
	require.NoError(t, err)
	require.EqualValues(t, 0, qty)

	require.NoError(t, h.app.Stop(t.Context()))
	_, err = h.app.Start()
	require.ErrorIs(t, err, app.ErrAlreadyStarted)
	require.NoError(t, store.Close())

	require.Equal(t, 4.0, closedScopes(t, reg, "true"))
	require.Equal(t, 1.0, closedScopes(t, reg, "false"))

	// a fresh system over the same database sees the committed state
	store, err = sqlite.Open(path, sqlite.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	h = startHost(t, store, promadapter.NewAllMetrics(prometheus.NewRegistry()))
	t.Cleanup(func() { _ = h.app.Stop(context.Background()) })

	// seeding on every start finds the stored books
	reseeded, err := inventory.Seed(t.Context(), nil, h.client, inventory.DefaultSeed()...)
	require.NoError(t, err)
	require.Equal(t, seeded[0].ID, reseeded[0].ID)
	require.EqualValues(t, 0, reseeded[1].Quantity)

	list, err := h.client.ListBooks(t.Context())
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.EqualValues(t, 0, list[1].Quantity)
	require.Equal(t, books.Cents(499), list[1].Cost)
}

func TestIntegration_stop_completes_accepted_messages(t *testing.T) {
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "books.db"), sqlite.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	h := startHost(t, store, promadapter.NewAllMetrics(prometheus.NewRegistry()))
	b, err := h.client.AddBook(t.Context(), books.Book{Title: "Busy", Quantity: 0, Cost: books.Cents(100)})
	require.NoError(t, err)

	const n = 100
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int64
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.client.AdjustInventory(context.Background(), b.ID, 1)
			switch {
			case err == nil:
				mu.Lock()
				accepted++
				mu.Unlock()
			case errors.Is(err, actor.ErrStopped):
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}

	require.NoError(t, h.app.Stop(t.Context()))
	wg.Wait()

	// every acknowledged adjustment is persisted, nothing else is
	tx, err := store.Begin(t.Context())
	require.NoError(t, err)
	defer tx.Rollback()
	got, err := tx.Get(t.Context(), b.ID)
	require.NoError(t, err)
	require.Equal(t, accepted, got.Quantity)
}

func TestIntegration_nats_kv(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping nats integration test in short mode")
	}

	kvs, err := nats.NewKvStore(t.Context(), nats.KvConfig{
		Connect: nats.NewTestContainer(t),
		Bucket:  "integration_books",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = kvs.Close() })

	h := startHost(t, books.NewKVStore(kvs, books.KVOptions{MaxOpenTx: 1}), promadapter.NewAllMetrics(prometheus.NewRegistry()))
	t.Cleanup(func() { _ = h.app.Stop(context.Background()) })

	seeded, err := inventory.Seed(t.Context(), nil, h.client, inventory.DefaultSeed()...)
	require.NoError(t, err)

	qty, err := h.client.AdjustInventory(t.Context(), seeded[0].ID, 3)
	require.NoError(t, err)
	require.EqualValues(t, 15, qty)

	_, err = h.client.AddBook(t.Context(), seeded[0])
	require.ErrorIs(t, err, inventory.ErrDuplicateBook)
}
