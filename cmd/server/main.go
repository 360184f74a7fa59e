// Package main is the entry point for the demo server. It serves a small
// users application instrumented with the debug bar and exposes the open
// handler the toolbar fetches datasets from.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/mattn/go-sqlite3"

	"debugbar/internal/config"
	"debugbar/internal/debugbar"
	"debugbar/internal/sqlhook"
	"debugbar/internal/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not load .env: %v\n", err)
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	store, err := storage.FromConfig(ctx, cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	pruner, err := storage.NewPruner(store, cfg.Storage.PruneSchedule, cfg.Storage.MaxAge, logger)
	if err != nil {
		return fmt.Errorf("pruner: %w", err)
	}
	pruner.Start()
	defer pruner.Stop()

	db, err := openDemoDB(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           newRouter(ctx, cfg, store, db, logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("demo server listening",
		"addr", cfg.ListenAddr,
		"debugbar_enabled", cfg.Enabled,
		"storage", cfg.Storage.Drivers,
		"db_driver", cfg.DBDriver,
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// openDemoDB opens the demo database through the recording driver and seeds
// it. Seeding runs without a debug bar in the context, so it is not
// recorded.
func openDemoDB(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	db, err := sqlhook.Open(driver, dsn, sqlhook.Options{Connection: "demo"})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == "sqlite3" {
		db.SetMaxOpenConns(1)
	}
	if err := seedDemoDB(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("seed demo db: %w", err)
	}
	return db, nil
}

// settingsFromConfig maps collector configuration onto bar settings.
func settingsFromConfig(c config.CollectorConfig) debugbar.Settings {
	return debugbar.Settings{
		Editor:              c.Editor,
		LocalPath:           c.EditorLocalPath,
		PathReplacements:    c.PathReplacements,
		FileTraces:          c.FileTraces,
		SourceLimit:         c.SourceLimit,
		RenderSQLWithParams: c.RenderSQLWithParams,
		DurationBackground:  c.DurationBackground,
		HTMLVarDumper:       c.HTMLVarDumper,
		ChainErrors:         c.ChainErrors,
		TimelineQueries:     c.TimelineQueries,
		ExcludedPaths:       c.ExcludedPaths,
	}
}
