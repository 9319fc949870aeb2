// Package memstore provides an in-memory record store.
//
// It is used by tests and by the server when no database is configured.
// Apply stages every change on a copy of the current state and swaps the
// copy in only when the whole batch succeeds.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/JonMunkholm/staffdesk/internal/core"
)

// Store keeps entities in memory, keyed by id.
type Store[T core.Entity] struct {
	schema *core.Schema[T]

	mu     sync.RWMutex
	rows   map[int64]T
	nextID int64
}

// New creates an empty store for schema.
func New[T core.Entity](schema *core.Schema[T]) *Store[T] {
	return &Store[T]{
		schema: schema,
		rows:   make(map[int64]T),
		nextID: 1,
	}
}

// Scan returns copies of every entity in id order.
func (s *Store[T]) Scan(ctx context.Context) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int64, 0, len(s.rows))
	for id := range s.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]T, len(ids))
	for i, id := range ids {
		out[i] = s.schema.Clone(s.rows[id])
	}
	return out, nil
}

// Find returns a copy of the entity with the given id.
func (s *Store[T]) Find(ctx context.Context, id int64) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.rows[id]
	if !ok {
		return zero, core.NotFoundError(s.schema.Info.Key, id)
	}
	return s.schema.Clone(e), nil
}

// Count returns the number of stored entities.
func (s *Store[T]) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows), nil
}

// Apply executes changes atomically.
func (s *Store[T]) Apply(ctx context.Context, changes []core.Change[T]) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(changes) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[int64]T, len(s.rows)+len(changes))
	for id, e := range s.rows {
		next[id] = e
	}
	nextID := s.nextID
	key := s.schema.Info.Key

	ids := make([]int64, len(changes))
	versions := make([]int64, len(changes))

	for i, c := range changes {
		e := c.Entity
		switch c.Kind {
		case core.ChangeInsert:
			ids[i] = nextID
			versions[i] = 1
			stored := s.schema.Clone(e)
			stored.SetEntityID(nextID)
			stored.SetEntityVersion(1)
			next[nextID] = stored
			nextID++

		case core.ChangeUpdate:
			cur, ok := next[e.EntityID()]
			if !ok || (e.EntityVersion() > 0 && e.EntityVersion() != cur.EntityVersion()) {
				return 0, core.ConcurrencyError(key, c.Kind, e.EntityID())
			}
			ids[i] = e.EntityID()
			versions[i] = cur.EntityVersion() + 1
			stored := s.schema.Clone(e)
			stored.SetEntityVersion(versions[i])
			next[e.EntityID()] = stored

		case core.ChangeDelete:
			cur, ok := next[e.EntityID()]
			if !ok || (e.EntityVersion() > 0 && e.EntityVersion() != cur.EntityVersion()) {
				return 0, core.ConcurrencyError(key, c.Kind, e.EntityID())
			}
			delete(next, e.EntityID())

		default:
			return 0, fmt.Errorf("unknown change kind %s", c.Kind)
		}
	}

	if err := s.checkUnique(next); err != nil {
		return 0, err
	}

	s.rows = next
	s.nextID = nextID
	for i, c := range changes {
		if c.Kind == core.ChangeDelete {
			continue
		}
		c.Entity.SetEntityID(ids[i])
		c.Entity.SetEntityVersion(versions[i])
	}
	return int64(len(changes)), nil
}

// checkUnique enforces the schema's unique keys over rows.
func (s *Store[T]) checkUnique(rows map[int64]T) error {
	for _, key := range s.schema.Info.UniqueKey {
		seen := make(map[string]int64, len(rows))
		for id, e := range rows {
			parts := make([]string, len(key))
			for i, name := range key {
				v, err := s.schema.Value(e, name)
				if err != nil {
					return err
				}
				parts[i] = fmt.Sprint(v)
			}
			k := strings.Join(parts, "\x00")
			if other, dup := seen[k]; dup {
				return core.StoreError("apply "+s.schema.Info.Key,
					fmt.Errorf("duplicate key value violates unique constraint on (%s): ids %d and %d",
						strings.Join(key, ", "), min(id, other), max(id, other)))
			}
			seen[k] = id
		}
	}
	return nil
}
