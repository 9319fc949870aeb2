// Package seed loads fixture records from YAML into an empty store.
//
// A seed document maps table keys to record lists:
//
//	employees:
//	  - payrollNumber: COOP08
//	    forenames: John
//	    surname: William
//	    dateOfBirth: 1955-01-26
//
// Dates use YAML timestamps (YYYY-MM-DD).
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/staffdesk/internal/core"
	"github.com/JonMunkholm/staffdesk/internal/logging"
)

// Decode reads the records for schema's table from a seed document.
// A document without that table yields no records.
func Decode[T core.Entity](r io.Reader, schema *core.Schema[T]) ([]T, error) {
	var doc map[string][]T
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("seed decode: %w", err)
	}

	records := doc[schema.Info.Key]
	for i, e := range records {
		if err := schema.Validate(e); err != nil {
			return nil, fmt.Errorf("seed %s[%d]: %w", schema.Info.Key, i, err)
		}
	}
	return records, nil
}

// Apply inserts records in one commit, but only when store holds no rows.
// It returns the number inserted.
func Apply[T core.Entity](ctx context.Context, store core.Store[T], schema *core.Schema[T], records []T) (int, error) {
	log := logging.FromContext(ctx)

	existing, err := store.Scan(ctx)
	if err != nil {
		return 0, fmt.Errorf("seed: %w", err)
	}
	if len(existing) > 0 {
		log.Info("seed skipped, store not empty", "table", schema.Info.Key, "rows", len(existing))
		return 0, nil
	}

	repo := core.NewRepository(store, schema)
	for _, e := range records {
		e.SetEntityID(0)
		e.SetEntityVersion(0)
		repo.Add(e)
	}
	if _, err := repo.Commit(ctx); err != nil {
		return 0, fmt.Errorf("seed %s: %w", schema.Info.Key, err)
	}

	log.Info("seed applied", "table", schema.Info.Key, "rows", len(records))
	return len(records), nil
}

// File decodes the seed file at path and applies it. An empty path does
// nothing.
func File[T core.Entity](ctx context.Context, store core.Store[T], schema *core.Schema[T], path string) (int, error) {
	if path == "" {
		return 0, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("seed open: %w", err)
	}
	defer f.Close()

	records, err := Decode(f, schema)
	if err != nil {
		return 0, err
	}
	return Apply(ctx, store, schema, records)
}
