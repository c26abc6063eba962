/*
main.go - ledgerd entry point.

PURPOSE:
  Initializes the SQLite store, builds the ledger Config, constructs
  the Ledger facade, mounts the administrative HTTP API plus a
  Prometheus scrape endpoint, and runs until SIGINT/SIGTERM with a
  bounded graceful shutdown.

COMMAND-LINE FLAGS:
  -port   HTTP server port (default: 8080)
  -db     SQLite database path (default: ledger.db; use ":memory:" for
          an in-memory database)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
    1. Stop accepting new HTTP connections (30s drain)
    2. Shut down the ledger's async executor (drains in-flight persists)
    3. Close the database connection

GROUNDING:
  Grounded on the teacher's cmd/server/main.go flag parsing and
  signal.Notify/context.WithTimeout shutdown sequence, with stdlib log
  replaced by go.uber.org/zap per the ambient logging stack and a
  prometheus/client_golang exposition handler added alongside the API
  router.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/warp/ledger-core/api"
	"github.com/warp/ledger-core/ledger"
	"github.com/warp/ledger-core/store/sqlite"
)

func main() {
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "ledger.db", "SQLite database path")
	currencyIdentifier := flag.String("default-currency", "coin", "identifier to bootstrap when the store is empty")
	asyncWorkers := flag.Int("async-workers", 0, "async executor worker cap (0 = hardware parallelism)")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	store, err := sqlite.New(*dbPath)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	cfg := ledger.Config{
		DatasourceKey: *dbPath,
		DefaultCurrency: ledger.DefaultCurrencyConfig{
			Identifier: *currencyIdentifier,
			Name:       "Coin",
			Symbol:     "¤",
			Precision:  2,
			DefaultMaxBalance: -1,
		},
		AsyncWorkers: *asyncWorkers,
	}

	led, err := ledger.New(cfg, store, logger)
	if err != nil {
		logger.Fatal("failed to initialize ledger", zap.Error(err))
	}

	handler := api.NewHandler(led)
	router := api.NewRouter(handler)
	router.Handle("/metrics", promhttp.HandlerFor(led.Metrics().Registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("ledgerd starting", zap.Int("port", *port), zap.String("db", *dbPath))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	led.Shutdown()
	logger.Info("ledgerd stopped")
}
