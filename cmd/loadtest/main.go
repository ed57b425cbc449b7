// Command loadtest drives inventory adjustments through the manager actor
// and reports throughput per batch. It uses the same BOOKSTOCK_* variables
// as the server to select the store, plus LOADTEST_* for the workload.
//
// NOTE: for the nats store run: docker run --net=host nats:latest -js
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/codewandler/bookstock/core/app"
	"github.com/codewandler/bookstock/core/scope"
	"github.com/codewandler/bookstock/internal/config"
	"github.com/codewandler/bookstock/internal/inventory"
	"github.com/codewandler/bookstock/internal/storage"
	"github.com/codewandler/bookstock/ports/books"
)

type loadConfig struct {
	N           int           `env:"LOADTEST_N"           envDefault:"50000"`
	BatchSize   int           `env:"LOADTEST_BATCH"       envDefault:"1000"`
	Concurrency int           `env:"LOADTEST_CONCURRENCY" envDefault:"16"`
	Timeout     time.Duration `env:"LOADTEST_TIMEOUT"     envDefault:"120s"`
}

func main() {
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	checkErr(err)
	var lc loadConfig
	checkErr(env.Parse(&lc))
	if lc.BatchSize <= 0 || lc.Concurrency <= 0 {
		checkErr(errors.New("batch size and concurrency must be positive"))
	}

	fmt.Printf("      Store: %s\n", cfg.Store)
	fmt.Printf("   Messages: %d\n", lc.N)
	fmt.Printf("Concurrency: %d\n", lc.Concurrency)

	ctx, cancel := context.WithTimeout(context.Background(), lc.Timeout)
	defer cancel()

	store, closeStore, err := storage.Open(ctx, cfg, log)
	checkErr(err)
	defer closeStore()

	scopes := scope.NewFactory[books.Tx](store, scope.Options{AcquireTimeout: cfg.ScopeAcquireTimeout, Logger: log})
	manager := inventory.NewManager(scopes, inventory.ManagerOptions{})
	a, sys, err := app.Run(app.Config{
		Log:          log,
		DrainTimeout: cfg.DrainTimeout,
		Actor:        app.ActorOptions{MailboxSize: cfg.MailboxSize},
	}, manager.Handlers())
	checkErr(err)

	client := inventory.NewClient(sys.Manager(), inventory.ClientOptions{Timeout: cfg.RequestTimeout})

	book, err := client.AddBook(ctx, books.Book{Title: "Load Test", Author: "loadtest", Cost: books.Cents(100)})
	checkErr(err)

	// === START ===

	log.Info("==================================")
	log.Info("Starting ...")

	var (
		startAt   = time.Now()
		lastTime  = startAt
		processed atomic.Int64
		failed    atomic.Int64
		wg        sync.WaitGroup
		work      = make(chan int64)
		mu        sync.Mutex
	)

	for range lc.Concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for delta := range work {
				if _, err := client.AdjustInventory(ctx, book.ID, delta); err != nil {
					failed.Add(1)
					log.Debug("adjust failed", slog.Any("error", err))
				}
				n := processed.Add(1)
				if n%int64(lc.BatchSize) == 0 {
					mu.Lock()
					now := time.Now()
					took := now.Sub(lastTime)
					mem := getMemUsage()
					fmt.Printf(" | %5d msgs | %6d ms | %6d msgs/s | (%d / %d) MiB mem (sys) |\n",
						lc.BatchSize, took.Milliseconds(), int(float64(lc.BatchSize)/took.Seconds()), mem.Alloc/1024/1024, mem.Sys/1024/1024)
					lastTime = now
					mu.Unlock()
				}
			}
		}()
	}

	for i := range lc.N {
		// two increments per decrement keeps the quantity from running dry
		delta := int64(1)
		if i%3 == 2 {
			delta = -1
		}
		select {
		case work <- delta:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}
	close(work)
	wg.Wait()

	final, err := client.GetBook(context.Background(), book.ID)
	checkErr(err)

	stopCtx, cancelStop := context.WithTimeout(context.Background(), cfg.DrainTimeout+time.Second)
	defer cancelStop()
	checkErr(a.Stop(stopCtx))

	// === stats ===
	println("")
	println("==========================================")

	took := time.Since(startAt)
	runtime.GC()

	fmt.Printf("total runtime: %.3f seconds\n", took.Seconds())
	fmt.Printf("    processed: %d\n", processed.Load())
	fmt.Printf("       failed: %d\n", failed.Load())
	fmt.Printf("final quantity: %d\n", final.Quantity)
	fmt.Printf("  avg. msgs/s: %d\n", int(float64(processed.Load())/took.Seconds()))
}

// === stats helpers ===

type MemUsage struct {
	Alloc uint64 // bytes allocated and not yet freed (heap)
	Sys   uint64 // total bytes obtained from OS
	NumGC uint32 // gc cycles
}

func getMemUsage() MemUsage {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemUsage{
		Alloc: m.Alloc,
		Sys:   m.Sys,
		NumGC: m.NumGC,
	}
}

func checkErr(err error) {
	if err != nil {
		panic(err)
	}
}
