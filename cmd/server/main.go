package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/staffdesk/internal/config"
	"github.com/JonMunkholm/staffdesk/internal/core"
	"github.com/JonMunkholm/staffdesk/internal/core/tables"
	"github.com/JonMunkholm/staffdesk/internal/inbox"
	"github.com/JonMunkholm/staffdesk/internal/logging"
	"github.com/JonMunkholm/staffdesk/internal/seed"
	"github.com/JonMunkholm/staffdesk/internal/store"
	"github.com/JonMunkholm/staffdesk/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := store.Open(ctx, cfg.Database, tables.Employees())
	if err != nil {
		slog.Error("failed to open store", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}

	if n, err := seed.File(ctx, st, tables.Employees(), cfg.Seed.File); err != nil {
		slog.Error("failed to seed store", "file", cfg.Seed.File, "error", err)
		closeStore()
		os.Exit(1)
	} else if n > 0 {
		slog.Info("store seeded", "rows", n)
	}

	for _, info := range core.Tables() {
		slog.Debug("table registered", "table", info.Key, "columns", len(info.Columns))
	}

	limiter := core.NewImportLimiter(cfg.Import.MaxConcurrent, cfg.Import.MaxWaitTime)
	server := web.NewServer(st, limiter, cfg)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("server starting", "addr", cfg.Server.Addr())
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if cfg.Import.Watch {
		importer := core.NewImporter(st, tables.Employees())
		watcher := inbox.New(cfg.Import.Dir, limiter, func(ctx context.Context, path string) (int, error) {
			ctx, cancel := context.WithTimeout(ctx, cfg.Import.Timeout)
			defer cancel()
			return importer.ImportFile(ctx, path, cfg.Import.Options())
		})
		g.Go(func() error {
			return watcher.Run(gctx)
		})
	}

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}

		// Wait for active imports to complete (with timeout)
		if active := limiter.Active(); active > 0 {
			slog.Info("waiting for imports to complete", "active", active)
			if err := limiter.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("imports did not complete in time", "error", err)
			} else {
				slog.Info("all imports completed")
			}
		}
		return nil
	})

	err = g.Wait()
	closeStore()
	if err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
