// Package store opens the record store named by configuration.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/staffdesk/internal/config"
	"github.com/JonMunkholm/staffdesk/internal/core"
	"github.com/JonMunkholm/staffdesk/internal/logging"
	"github.com/JonMunkholm/staffdesk/internal/store/memstore"
	"github.com/JonMunkholm/staffdesk/internal/store/postgres"
	"github.com/JonMunkholm/staffdesk/internal/store/sqlite"
)

// Open returns a migrated store for schema using the configured driver, and
// a function that releases its connections.
func Open[T core.Entity](ctx context.Context, cfg config.DatabaseConfig, schema *core.Schema[T]) (core.Store[T], func(), error) {
	log := logging.FromContext(ctx)

	switch strings.ToLower(cfg.Driver) {
	case config.DriverMemory:
		log.Info("using in-memory store")
		return memstore.New(schema), func() {}, nil

	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.URL)
		if err != nil {
			return nil, nil, err
		}
		s := sqlite.New(db, schema)
		if err := s.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		log.Info("connected to sqlite", "path", cfg.URL)
		return s, func() { db.Close() }, nil

	case config.DriverPostgres:
		pool, err := postgres.Open(ctx, cfg.URL, postgres.PoolOptions{
			MaxConns:        cfg.MaxConns,
			MinConns:        cfg.MinConns,
			MaxConnLifetime: cfg.MaxConnLifetime,
			MaxConnIdleTime: cfg.MaxConnIdleTime,
		})
		if err != nil {
			return nil, nil, err
		}
		s := postgres.New(pool, schema)
		if err := s.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		log.Info("connected to postgres", "database", pool.Config().ConnConfig.Database)
		return s, pool.Close, nil
	}

	return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
}
