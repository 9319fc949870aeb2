package core

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/staffdesk/internal/logging"
)

// Service wraps a Repository with auto-committing CRUD operations.
//
// Each write follows the same path: validate, stage, commit. A Service is as
// short-lived as its repository; build one per request.
type Service[T Entity] struct {
	repo *Repository[T]
}

// NewService creates a service over repo.
func NewService[T Entity](repo *Repository[T]) *Service[T] {
	return &Service[T]{repo: repo}
}

// Repository returns the underlying repository.
func (s *Service[T]) Repository() *Repository[T] {
	return s.repo
}

// Create validates e, inserts it and returns it with its store id.
func (s *Service[T]) Create(ctx context.Context, e T) (T, error) {
	var zero T
	if err := s.repo.schema.Validate(e); err != nil {
		return zero, err
	}

	e.SetEntityID(0)
	e.SetEntityVersion(0)
	created := s.repo.Add(e)
	if _, err := s.repo.Commit(ctx); err != nil {
		return zero, fmt.Errorf("create %s: %w", s.repo.schema.Info.Key, err)
	}

	logging.FromContext(ctx).Info("record created", "table", s.repo.schema.Info.Key, "id", created.EntityID())
	return created, nil
}

// Update validates e and writes it over the stored row with the same id.
//
// A missing row, or a stale version, returns an ErrConcurrency error rather
// than false.
func (s *Service[T]) Update(ctx context.Context, e T) (bool, error) {
	if err := s.repo.schema.Validate(e); err != nil {
		return false, err
	}

	s.repo.Edit(e)
	ok, err := s.repo.Commit(ctx)
	if err != nil {
		return false, fmt.Errorf("update %s id=%d: %w", s.repo.schema.Info.Key, e.EntityID(), err)
	}

	logging.FromContext(ctx).Info("record updated", "table", s.repo.schema.Info.Key, "id", e.EntityID())
	return ok, nil
}

// Delete removes the entity with the given id. It returns false, nil when no
// such entity exists.
func (s *Service[T]) Delete(ctx context.Context, id int64) (bool, error) {
	e, err := s.repo.GetSingle(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}

	s.repo.Delete(e)
	ok, err := s.repo.Commit(ctx)
	if err != nil {
		return false, fmt.Errorf("delete %s id=%d: %w", s.repo.schema.Info.Key, id, err)
	}

	logging.FromContext(ctx).Info("record deleted", "table", s.repo.schema.Info.Key, "id", id)
	return ok, nil
}

// GetAll returns every entity.
func (s *Service[T]) GetAll(ctx context.Context) ([]T, error) {
	return s.repo.GetAll(ctx)
}

// GetAllAsync returns every entity without blocking the caller.
func (s *Service[T]) GetAllAsync(ctx context.Context) *Future[[]T] {
	return s.repo.GetAllAsync(ctx)
}

// GetAllAsQueryable returns an untracked query handle.
func (s *Service[T]) GetAllAsQueryable() *Query[T] {
	return s.repo.GetAllAsQueryable()
}

// GetAllAsQueryableTrack returns a tracked query handle.
func (s *Service[T]) GetAllAsQueryableTrack() *Query[T] {
	return s.repo.GetAllAsQueryableTrack()
}

// GetSingle returns the entity with the given id.
func (s *Service[T]) GetSingle(ctx context.Context, id int64) (T, error) {
	return s.repo.GetSingle(ctx, id)
}

// GetSingleAsync returns the entity with the given id without blocking.
func (s *Service[T]) GetSingleAsync(ctx context.Context, id int64) *Future[T] {
	return s.repo.GetSingleAsync(ctx, id)
}

// Query runs a grid request. The schema's default sort applies when the
// request has none.
func (s *Service[T]) Query(ctx context.Context, req Request) (*Result[T], error) {
	if len(req.Sort) == 0 {
		req.Sort = s.repo.schema.DefaultSort
	}
	return s.repo.GetAllAsQueryable().ToResult(ctx, req)
}

// List returns every entity in default sort order.
func (s *Service[T]) List(ctx context.Context) ([]T, error) {
	return s.repo.GetAllAsQueryable().List(ctx, s.repo.schema.DefaultSort...)
}
