package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/3alqassab/todo-app/internal/cache"
	dom "github.com/3alqassab/todo-app/internal/domain"
	"github.com/3alqassab/todo-app/internal/repo"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/singleflight"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("todo belongs to another user")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrEmptyTitle        = errors.New("title is required")
	ErrMissingDeadline   = errors.New("deadline is required")
)

// UpdateTodo carries the fields of a partial update. Nil means "leave
// unchanged"; absent fields are never nulled.
type UpdateTodo struct {
	Title       *string
	Description *string
	Deadline    *time.Time
	Status      *dom.Status
}

// TodoService is the single authority that decides whether a requested
// mutation is both authorized and state-valid before touching the repo.
type TodoService struct {
	repo  repo.TodoRepo
	cache *cache.TodoCache
	sf    singleflight.Group
}

// NewTodoService creates a TodoService. If c is nil, caching is disabled.
func NewTodoService(r repo.TodoRepo, c *cache.TodoCache) *TodoService {
	return &TodoService{repo: r, cache: c}
}

// authorize is the one ownership predicate applied by every read-one,
// update and delete operation.
func authorize(t dom.Todo, callerID uuid.UUID) error {
	if t.OwnerID != callerID {
		return ErrForbidden
	}
	return nil
}

func (s *TodoService) Create(ctx context.Context, ownerID uuid.UUID, title, desc string, deadline time.Time) (dom.Todo, error) {
	title = strings.TrimSpace(title)
	desc = strings.TrimSpace(desc)

	if title == "" {
		return dom.Todo{}, ErrEmptyTitle
	}
	if deadline.IsZero() {
		return dom.Todo{}, ErrMissingDeadline
	}

	t, err := s.repo.Create(ctx, dom.Todo{
		OwnerID:     ownerID, // always the authenticated identity, never client input
		Title:       title,
		Description: desc,
		Status:      dom.StatusNotCompleted,
		Deadline:    deadline,
	})
	if err != nil {
		return dom.Todo{}, err
	}
	s.invalidateCache(ctx, ownerID)
	return t, nil
}

func (s *TodoService) List(ctx context.Context, callerID uuid.UUID) ([]dom.Todo, error) {
	if s.cache != nil {
		key := "list:" + callerID.String()
		v, err, _ := s.sf.Do(key, func() (interface{}, error) {
			if list, err := s.cache.GetList(ctx, callerID); err == nil && list != nil {
				return list, nil
			}
			list, err := s.repo.ListByOwner(ctx, callerID)
			if err != nil {
				return nil, err
			}
			_ = s.cache.SetList(ctx, callerID, list)
			return list, nil
		})
		if err != nil {
			return nil, err
		}
		return v.([]dom.Todo), nil
	}
	return s.repo.ListByOwner(ctx, callerID)
}

func (s *TodoService) Overdue(ctx context.Context, callerID uuid.UUID) ([]dom.Todo, error) {
	if s.cache != nil {
		key := "overdue:" + callerID.String()
		v, err, _ := s.sf.Do(key, func() (interface{}, error) {
			if list, err := s.cache.GetOverdue(ctx, callerID); err == nil && list != nil {
				return list, nil
			}
			list, err := s.repo.Overdue(ctx, callerID)
			if err != nil {
				return nil, err
			}
			_ = s.cache.SetOverdue(ctx, callerID, list)
			return list, nil
		})
		if err != nil {
			return nil, err
		}
		return v.([]dom.Todo), nil
	}
	return s.repo.Overdue(ctx, callerID)
}

func (s *TodoService) Get(ctx context.Context, callerID, id uuid.UUID) (dom.Todo, error) {
	t, err := s.load(ctx, id)
	if err != nil {
		return dom.Todo{}, err
	}
	if err := authorize(t, callerID); err != nil {
		return dom.Todo{}, err
	}
	return t, nil
}

func (s *TodoService) Update(ctx context.Context, callerID, id uuid.UUID, upd UpdateTodo) (dom.Todo, error) {
	existing, err := s.load(ctx, id)
	if err != nil {
		return dom.Todo{}, err
	}
	if err := authorize(existing, callerID); err != nil {
		return dom.Todo{}, err
	}
	patch := existing
	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if title == "" {
			return dom.Todo{}, ErrEmptyTitle
		}
		patch.Title = title
	}
	if upd.Description != nil {
		patch.Description = strings.TrimSpace(*upd.Description)
	}
	if upd.Deadline != nil {
		patch.Deadline = *upd.Deadline
	}
	if upd.Status != nil {
		if !existing.Status.CanTransitionTo(*upd.Status) {
			return dom.Todo{}, ErrInvalidTransition
		}
		patch.Status = *upd.Status
	}
	t, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dom.Todo{}, ErrNotFound
		}
		return dom.Todo{}, err
	}
	s.invalidateCache(ctx, callerID)
	return t, nil
}

// Delete removes the todo and returns the pre-deletion record as
// confirmation.
func (s *TodoService) Delete(ctx context.Context, callerID, id uuid.UUID) (dom.Todo, error) {
	t, err := s.load(ctx, id)
	if err != nil {
		return dom.Todo{}, err
	}
	if err := authorize(t, callerID); err != nil {
		return dom.Todo{}, err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return dom.Todo{}, err
	}
	s.invalidateCache(ctx, callerID)
	return t, nil
}

func (s *TodoService) load(ctx context.Context, id uuid.UUID) (dom.Todo, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dom.Todo{}, ErrNotFound
		}
		return dom.Todo{}, err
	}
	return t, nil
}

func (s *TodoService) invalidateCache(ctx context.Context, ownerID uuid.UUID) {
	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, ownerID)
	}
}
