// Command bookstock serves the book inventory over HTTP. All reads and
// writes go through a single manager actor; each message runs in its own
// storage scope.
//
// Configuration is read from BOOKSTOCK_* environment variables, see
// internal/config. Prometheus metrics are served on BOOKSTOCK_METRICS_ADDR.
//
//	curl localhost:8080/books
//	curl -X POST localhost:8080/books/{id}/inventory -d '{"delta": -1}'
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	promadapter "github.com/codewandler/bookstock/adapters/prometheus"
	"github.com/codewandler/bookstock/core/app"
	"github.com/codewandler/bookstock/core/scope"
	"github.com/codewandler/bookstock/internal/config"
	"github.com/codewandler/bookstock/internal/inventory"
	"github.com/codewandler/bookstock/internal/storage"
	"github.com/codewandler/bookstock/ports/books"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(2)
	}
	level, _ := cfg.Level()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	if err := run(ctx, cfg, log); err != nil {
		log.Error("bookstock failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	metrics := promadapter.NewAllMetrics(prometheus.DefaultRegisterer)

	promMux := http.NewServeMux()
	promMux.Handle("/metrics", promhttp.Handler())
	promServer := &http.Server{Addr: cfg.MetricsAddr, Handler: promMux}
	go func() {
		log.Info("metrics server starting", slog.String("addr", cfg.MetricsAddr))
		if err := promServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server error", slog.Any("error", err))
		}
	}()
	defer promServer.Shutdown(context.Background())

	store, closeStore, err := storage.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	scopes := scope.NewFactory[books.Tx](store, scope.Options{
		AcquireTimeout: cfg.ScopeAcquireTimeout,
		Logger:         log,
		Metrics:        metrics.Scope,
	})
	manager := inventory.NewManager(scopes, inventory.ManagerOptions{})

	a := app.New(app.Config{
		Name:         cfg.SystemName,
		Log:          log,
		DrainTimeout: cfg.DrainTimeout,
		Actor: app.ActorOptions{
			MailboxSize: cfg.MailboxSize,
			Metrics:     metrics.Actor,
		},
	}, manager.Handlers())

	sys, err := a.Start()
	if err != nil {
		return fmt.Errorf("start actor system: %w", err)
	}

	client := inventory.NewClient(sys.Manager(), inventory.ClientOptions{Timeout: cfg.RequestTimeout})

	if cfg.Seed {
		if _, err := inventory.Seed(ctx, log, client, inventory.DefaultSeed()...); err != nil {
			return errors.Join(fmt.Errorf("seed inventory: %w", err), a.Stop(context.Background()))
		}
	}

	httpServer := &http.Server{Addr: cfg.HTTPAddr, Handler: newRouter(client, log)}
	serveErr := make(chan error, 1)
	go func() {
		log.Info("http server starting", slog.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down...")
	case err := <-serveErr:
		runErr = fmt.Errorf("http server: %w", err)
	}

	// stop accepting requests first so nothing new reaches the manager
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.DrainTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("http server shutdown", slog.Any("error", err))
	}

	stopCtx, cancelStop := context.WithTimeout(context.Background(), cfg.DrainTimeout+time.Second)
	defer cancelStop()
	if err := a.Stop(stopCtx); err != nil {
		if errors.Is(err, app.ErrDrainTimeout) {
			log.Error("pending messages were dropped", slog.Any("error", err))
		}
		return errors.Join(runErr, err)
	}
	return runErr
}
