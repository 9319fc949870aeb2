// Package sqlite provides an embedded, file-backed record store built on
// the pure-Go modernc.org/sqlite driver.
//
// Dates are stored as ISO-8601 text ("2006-01-02") and unset dates as
// "0001-01-01", so text ordering matches date ordering and no column is
// ever NULL. Query plans run natively as SQL (see Query).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/JonMunkholm/staffdesk/internal/core"
	"github.com/JonMunkholm/staffdesk/internal/store/sqlbuild"
)

// Open opens (creating if needed) the database at path.
// ":memory:" opens a private in-memory database.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	dsn := path
	memory := path == ":memory:" || path == ""
	if memory {
		dsn = "file::memory:"
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	dsn += sep + "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	if !memory {
		dsn += "&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY under concurrent commits, and keeps
	// an in-memory database alive on one connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Store persists one schema in a SQLite table.
type Store[T core.Entity] struct {
	db    *sql.DB
	table *sqlbuild.Table[T]
}

// New creates a store for schema on db. Call Migrate before first use.
func New[T core.Entity](db *sql.DB, schema *core.Schema[T]) *Store[T] {
	return &Store[T]{db: db, table: sqlbuild.NewTable(schema, sqlbuild.SQLite)}
}

// Migrate creates the table and its indexes if they do not exist.
func (s *Store[T]) Migrate(ctx context.Context) error {
	for _, stmt := range s.table.CreateStatements() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate %s: %w", s.table.Schema.Info.Key, err)
		}
	}
	return nil
}

// Scan returns every row in id order.
func (s *Store[T]) Scan(ctx context.Context) ([]T, error) {
	return s.query(ctx, s.table.SelectAll())
}

// Find returns the row with the given id.
func (s *Store[T]) Find(ctx context.Context, id int64) (T, error) {
	items, err := s.query(ctx, s.table.SelectByID(), id)
	if err != nil {
		var zero T
		return zero, err
	}
	if len(items) == 0 {
		var zero T
		return zero, core.NotFoundError(s.table.Schema.Info.Key, id)
	}
	return items[0], nil
}

// Count returns the number of rows.
func (s *Store[T]) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, s.table.Count()).Scan(&n); err != nil {
		return 0, core.StoreError("count", err)
	}
	return n, nil
}

// Query runs plan as SQL: COUNT first, then the ordered page.
func (s *Store[T]) Query(ctx context.Context, plan core.Plan) (core.Page[T], error) {
	countSQL, pageSQL, countArgs, pageArgs := s.table.PlanQueries(plan)

	var total int
	if err := s.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return core.Page[T]{}, core.StoreError("count rows", err)
	}
	if !plan.All && plan.Take == 0 {
		return core.Page[T]{Items: []T{}, Total: total}, nil
	}

	items, err := s.query(ctx, pageSQL, pageArgs...)
	if err != nil {
		return core.Page[T]{}, err
	}
	return core.Page[T]{Items: items, Total: total}, nil
}

func (s *Store[T]) query(ctx context.Context, q string, args ...any) ([]T, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, core.StoreError("query rows", err)
	}
	defer rows.Close()

	items := []T{}
	for rows.Next() {
		dest := s.table.ScanTargets()
		if err := rows.Scan(dest...); err != nil {
			return nil, core.StoreError("scan row", err)
		}
		e, err := s.table.Decode(dest)
		if err != nil {
			return nil, core.StoreError("decode row", err)
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, core.StoreError("rows error", err)
	}
	return items, nil
}

// Apply runs changes in one transaction. Ids and versions are written back
// to the entities only after the transaction commits.
func (s *Store[T]) Apply(ctx context.Context, changes []core.Change[T]) (int64, error) {
	if len(changes) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, core.StoreError("begin transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	type writeback struct {
		e       T
		id      int64
		version int64
	}
	results := make([]writeback, 0, len(changes))
	key := s.table.Schema.Info.Key

	var affected int64
	for _, c := range changes {
		e := c.Entity
		versioned := e.EntityVersion() > 0

		switch c.Kind {
		case core.ChangeInsert:
			var id int64
			if err := tx.QueryRowContext(ctx, s.table.Insert(), s.table.InsertArgs(e)...).Scan(&id); err != nil {
				return 0, core.StoreError("insert "+key, err)
			}
			results = append(results, writeback{e: e, id: id, version: 1})

		case core.ChangeUpdate:
			var version int64
			err := tx.QueryRowContext(ctx, s.table.Update(versioned), s.table.UpdateArgs(e, versioned)...).Scan(&version)
			if errors.Is(err, sql.ErrNoRows) {
				return 0, core.ConcurrencyError(key, c.Kind, e.EntityID())
			}
			if err != nil {
				return 0, core.StoreError("update "+key, err)
			}
			results = append(results, writeback{e: e, id: e.EntityID(), version: version})

		case core.ChangeDelete:
			res, err := tx.ExecContext(ctx, s.table.Delete(versioned), s.table.DeleteArgs(e, versioned)...)
			if err != nil {
				return 0, core.StoreError("delete "+key, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return 0, core.StoreError("delete "+key, err)
			}
			if n == 0 {
				return 0, core.ConcurrencyError(key, c.Kind, e.EntityID())
			}
		}
		affected++
	}

	if err := tx.Commit(); err != nil {
		return 0, core.StoreError("commit transaction", err)
	}

	for _, w := range results {
		w.e.SetEntityID(w.id)
		w.e.SetEntityVersion(w.version)
	}
	return affected, nil
}
