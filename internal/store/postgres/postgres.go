// Package postgres provides the PostgreSQL record store on pgx/v5.
//
// Plans run natively: COUNT(*) with the compiled WHERE clause, then the
// ordered page with LIMIT/OFFSET. Text columns are compared and sorted with
// COLLATE "C" so results match in-memory evaluation byte for byte.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/staffdesk/internal/core"
	"github.com/JonMunkholm/staffdesk/internal/store/sqlbuild"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// PoolOptions tunes the connection pool. Zero values keep pgx defaults.
type PoolOptions struct {
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Open connects a pool to url and verifies it with a ping.
func Open(ctx context.Context, url string, opts PoolOptions) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	if opts.MaxConns > 0 {
		poolConfig.MaxConns = int32(opts.MaxConns)
	}
	if opts.MinConns > 0 {
		poolConfig.MinConns = int32(opts.MinConns)
	}
	if opts.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = opts.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// Store persists one schema in a PostgreSQL table.
type Store[T core.Entity] struct {
	pool  *pgxpool.Pool
	table *sqlbuild.Table[T]
}

// New creates a store for schema on pool. Call Migrate before first use.
func New[T core.Entity](pool *pgxpool.Pool, schema *core.Schema[T]) *Store[T] {
	return &Store[T]{pool: pool, table: sqlbuild.NewTable(schema, sqlbuild.Postgres)}
}

// Migrate creates the table and its indexes if they do not exist.
func (s *Store[T]) Migrate(ctx context.Context) error {
	for _, stmt := range s.table.CreateStatements() {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate %s: %w", s.table.Schema.Info.Key, err)
		}
	}
	return nil
}

// Scan returns every row in id order.
func (s *Store[T]) Scan(ctx context.Context) ([]T, error) {
	return s.query(ctx, s.pool, s.table.SelectAll())
}

// Find returns the row with the given id.
func (s *Store[T]) Find(ctx context.Context, id int64) (T, error) {
	var zero T
	items, err := s.query(ctx, s.pool, s.table.SelectByID(), id)
	if err != nil {
		return zero, err
	}
	if len(items) == 0 {
		return zero, core.NotFoundError(s.table.Schema.Info.Key, id)
	}
	return items[0], nil
}

// Count returns the number of rows.
func (s *Store[T]) Count(ctx context.Context) (int, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, s.table.Count()).Scan(&n); err != nil {
		return 0, translate("count", err)
	}
	return int(n), nil
}

// Query runs plan as SQL: COUNT first, then the ordered page.
func (s *Store[T]) Query(ctx context.Context, plan core.Plan) (core.Page[T], error) {
	countSQL, pageSQL, countArgs, pageArgs := s.table.PlanQueries(plan)

	var total int64
	if err := s.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return core.Page[T]{}, translate("count rows", err)
	}
	if !plan.All && plan.Take == 0 {
		return core.Page[T]{Items: []T{}, Total: int(total)}, nil
	}

	items, err := s.query(ctx, s.pool, pageSQL, pageArgs...)
	if err != nil {
		return core.Page[T]{}, err
	}
	return core.Page[T]{Items: items, Total: int(total)}, nil
}

func (s *Store[T]) query(ctx context.Context, q DBTX, sql string, args ...any) ([]T, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, translate("query rows", err)
	}
	defer rows.Close()

	items := []T{}
	for rows.Next() {
		dest := s.table.ScanTargets()
		if err := rows.Scan(dest...); err != nil {
			return nil, translate("scan row", err)
		}
		e, err := s.table.Decode(dest)
		if err != nil {
			return nil, core.StoreError("decode row", err)
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, translate("rows error", err)
	}
	return items, nil
}

// Apply runs changes in one transaction. Ids and versions are written back
// to the entities only after the transaction commits.
func (s *Store[T]) Apply(ctx context.Context, changes []core.Change[T]) (int64, error) {
	if len(changes) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, translate("begin transaction", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	affected, writeback, err := s.apply(ctx, tx, changes)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, translate("commit transaction", err)
	}
	writeback()
	return affected, nil
}

func (s *Store[T]) apply(ctx context.Context, tx DBTX, changes []core.Change[T]) (int64, func(), error) {
	key := s.table.Schema.Info.Key
	ids := make([]int64, len(changes))
	versions := make([]int64, len(changes))

	var affected int64
	for i, c := range changes {
		e := c.Entity
		versioned := e.EntityVersion() > 0

		switch c.Kind {
		case core.ChangeInsert:
			if err := tx.QueryRow(ctx, s.table.Insert(), s.table.InsertArgs(e)...).Scan(&ids[i]); err != nil {
				return 0, nil, translate("insert "+key, err)
			}
			versions[i] = 1

		case core.ChangeUpdate:
			err := tx.QueryRow(ctx, s.table.Update(versioned), s.table.UpdateArgs(e, versioned)...).Scan(&versions[i])
			if errors.Is(err, pgx.ErrNoRows) {
				return 0, nil, core.ConcurrencyError(key, c.Kind, e.EntityID())
			}
			if err != nil {
				return 0, nil, translate("update "+key, err)
			}
			ids[i] = e.EntityID()

		case core.ChangeDelete:
			tag, err := tx.Exec(ctx, s.table.Delete(versioned), s.table.DeleteArgs(e, versioned)...)
			if err != nil {
				return 0, nil, translate("delete "+key, err)
			}
			if tag.RowsAffected() == 0 {
				return 0, nil, core.ConcurrencyError(key, c.Kind, e.EntityID())
			}
		}
		affected++
	}

	writeback := func() {
		for i, c := range changes {
			if c.Kind == core.ChangeDelete {
				continue
			}
			c.Entity.SetEntityID(ids[i])
			c.Entity.SetEntityVersion(versions[i])
		}
	}
	return affected, writeback, nil
}

// translate wraps driver errors, naming unique violations explicitly.
func translate(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return core.StoreError(op, fmt.Errorf("duplicate key (%s): %w", pgErr.ConstraintName, err))
	}
	return core.StoreError(op, err)
}
