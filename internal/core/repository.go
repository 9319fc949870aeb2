package core

// repository.go implements the two-phase (stage, then commit) unit of work.
//
// A Repository belongs to one caller. Add, Edit and Delete only record intent;
// nothing reaches the store until Commit, which flushes the whole staged set
// through Store.Apply in one transaction.

import (
	"context"
	"sync"

	"github.com/JonMunkholm/staffdesk/internal/logging"
)

// Repository stages changes against a Store and commits them atomically.
type Repository[T Entity] struct {
	store  Store[T]
	schema *Schema[T]

	pending []Change[T]

	mu      sync.Mutex
	tracked map[int64]T // identity map for tracked reads
}

// NewRepository creates a repository over store. Repositories are cheap;
// create one per request or session.
func NewRepository[T Entity](store Store[T], schema *Schema[T]) *Repository[T] {
	return &Repository[T]{
		store:   store,
		schema:  schema,
		tracked: make(map[int64]T),
	}
}

// Schema returns the schema the repository was built with.
func (r *Repository[T]) Schema() *Schema[T] {
	return r.schema
}

// ============================================================================
// Reads
// ============================================================================

// GetAll returns a snapshot of every stored entity.
func (r *Repository[T]) GetAll(ctx context.Context) ([]T, error) {
	items, err := r.store.Scan(ctx)
	if err != nil {
		return nil, StoreError("scan "+r.schema.Info.Key, err)
	}
	return items, nil
}

// GetAllAsync runs GetAll on its own goroutine.
func (r *Repository[T]) GetAllAsync(ctx context.Context) *Future[[]T] {
	return Go(ctx, r.GetAll)
}

// GetAllAsQueryable returns an untracked query handle. Every run loads fresh
// copies, so handles may be used from several goroutines.
func (r *Repository[T]) GetAllAsQueryable() *Query[T] {
	return &Query[T]{repo: r}
}

// GetAllAsQueryableTrack returns a tracked query handle. Entities it returns
// are registered with this repository; reading the same id again yields the
// same instance. Use it for entities that will be edited through r.
func (r *Repository[T]) GetAllAsQueryableTrack() *Query[T] {
	return &Query[T]{repo: r, tracked: true}
}

// GetSingle returns the entity with the given id.
// A missing id yields an error matching ErrNotFound.
func (r *Repository[T]) GetSingle(ctx context.Context, id int64) (T, error) {
	e, err := r.store.Find(ctx, id)
	if err != nil {
		var zero T
		return zero, StoreError("find "+r.schema.Info.Key, err)
	}
	return e, nil
}

// GetSingleAsync runs GetSingle on its own goroutine.
func (r *Repository[T]) GetSingleAsync(ctx context.Context, id int64) *Future[T] {
	return Go(ctx, func(ctx context.Context) (T, error) {
		return r.GetSingle(ctx, id)
	})
}

// track swaps every item for the instance already known to the identity map,
// registering the ones seen for the first time.
func (r *Repository[T]) track(items []T) []T {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, e := range items {
		if known, ok := r.tracked[e.EntityID()]; ok {
			items[i] = known
			continue
		}
		r.tracked[e.EntityID()] = e
	}
	return items
}

// ============================================================================
// Staging
// ============================================================================

// Add stages an insert and returns e. The id stays 0 until Commit writes the
// store-assigned id into the same instance.
func (r *Repository[T]) Add(e T) T {
	r.pending = append(r.pending, Change[T]{Kind: ChangeInsert, Entity: e})
	return e
}

// Edit stages an update of e. Nothing is checked until Commit.
func (r *Repository[T]) Edit(e T) {
	r.pending = append(r.pending, Change[T]{Kind: ChangeUpdate, Entity: e})
}

// Delete stages removal of the entity with e's id.
func (r *Repository[T]) Delete(e T) {
	r.pending = append(r.pending, Change[T]{Kind: ChangeDelete, Entity: e})
}

// Pending returns the number of staged changes.
func (r *Repository[T]) Pending() int {
	return len(r.pending)
}

// Discard drops every staged change.
func (r *Repository[T]) Discard() {
	r.pending = nil
}

// Commit flushes the staged set in one store transaction.
//
// It returns true when at least one row was affected and false, nil when
// nothing was staged. On error nothing is persisted. Either way the staged
// set is consumed.
func (r *Repository[T]) Commit(ctx context.Context) (bool, error) {
	changes := r.pending
	r.pending = nil
	if len(changes) == 0 {
		return false, nil
	}

	affected, err := r.store.Apply(ctx, changes)
	if err != nil {
		logging.FromContext(ctx).Debug("commit failed",
			"table", r.schema.Info.Key,
			"changes", len(changes),
			"error", err,
		)
		return false, StoreError("commit "+r.schema.Info.Key, err)
	}

	r.mu.Lock()
	for _, c := range changes {
		id := c.Entity.EntityID()
		switch c.Kind {
		case ChangeInsert:
			r.tracked[id] = c.Entity
		case ChangeDelete:
			delete(r.tracked, id)
		case ChangeUpdate:
			if known, ok := r.tracked[id]; ok && any(known) != any(c.Entity) {
				known.SetEntityVersion(c.Entity.EntityVersion())
			}
		}
	}
	r.mu.Unlock()

	logging.FromContext(ctx).Debug("commit complete",
		"table", r.schema.Info.Key,
		"changes", len(changes),
		"affected", affected,
	)
	return affected > 0, nil
}

// ============================================================================
// Query handle
// ============================================================================

// Query is a lazily evaluated read handle. Nothing is loaded until one of its
// methods runs; each run sees the store as of that moment.
type Query[T Entity] struct {
	repo    *Repository[T]
	tracked bool
}

// Tracked reports whether results are registered with the repository.
func (q *Query[T]) Tracked() bool {
	return q.tracked
}

// Scan loads every entity.
func (q *Query[T]) Scan(ctx context.Context) ([]T, error) {
	items, err := q.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	if q.tracked {
		items = q.repo.track(items)
	}
	return items, nil
}

// Query executes plan, natively when the store supports it.
func (q *Query[T]) Query(ctx context.Context, plan Plan) (Page[T], error) {
	var page Page[T]
	if runner, ok := q.repo.store.(PlanRunner[T]); ok {
		p, err := runner.Query(ctx, plan)
		if err != nil {
			return Page[T]{}, StoreError("query "+q.repo.schema.Info.Key, err)
		}
		page = p
	} else {
		items, err := q.repo.GetAll(ctx)
		if err != nil {
			return Page[T]{}, err
		}
		page = ExecutePlan(q.repo.schema, items, plan)
	}
	if q.tracked {
		page.Items = q.repo.track(page.Items)
	}
	return page, nil
}

// ToResult compiles and runs req.
func (q *Query[T]) ToResult(ctx context.Context, req Request) (*Result[T], error) {
	return ToResult[T](ctx, q, q.repo.schema, req)
}

// List returns every entity in plan order with no paging.
func (q *Query[T]) List(ctx context.Context, sorts ...Sort) ([]T, error) {
	req := NewRequest()
	req.All = true
	req.Sort = sorts
	res, err := q.ToResult(ctx, req)
	if err != nil {
		return nil, err
	}
	return res.Data, nil
}
