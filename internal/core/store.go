package core

import "context"

// Store persists entities of one schema.
//
// Implementations must be safe for concurrent use; they are the only shared
// mutable state in the system. Every call hands out detached entities, so
// mutating a returned value never changes stored data until it is applied.
type Store[T Entity] interface {
	// Scan returns every stored entity in id order.
	Scan(ctx context.Context) ([]T, error)

	// Find returns the entity with the given id, or an ErrNotFound error.
	Find(ctx context.Context, id int64) (T, error)

	// Apply executes changes in a single transaction and returns the number
	// of affected rows. Either every change is applied or none is.
	//
	// On success, inserted entities receive their store id and version 1,
	// updated entities have their version bumped. An update or delete that
	// matches no row (missing id, or a stale non-zero version) fails the whole
	// batch with ErrConcurrency.
	Apply(ctx context.Context, changes []Change[T]) (int64, error)
}

// Counter is implemented by stores that can count rows without loading them.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// Closer releases store resources (connection pools, file handles).
type Closer interface {
	Close() error
}
