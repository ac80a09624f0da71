package repo

import (
	"context"

	dom "github.com/3alqassab/todo-app/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TodoRepo provides todo persistence. GetByID is deliberately not
// owner-scoped: the service loads the row first and applies one
// ownership predicate, so "missing" and "not yours" stay distinct.
type TodoRepo interface {
	Create(ctx context.Context, t dom.Todo) (dom.Todo, error)
	GetByID(ctx context.Context, id uuid.UUID) (dom.Todo, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]dom.Todo, error)
	Overdue(ctx context.Context, ownerID uuid.UUID) ([]dom.Todo, error)
	Update(ctx context.Context, id uuid.UUID, patch dom.Todo) (dom.Todo, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type PGTodoRepo struct {
	db *pgxpool.Pool
}

func NewPGTodoRepo(db *pgxpool.Pool) *PGTodoRepo {
	return &PGTodoRepo{db: db}
}

func (r *PGTodoRepo) Create(ctx context.Context, t dom.Todo) (dom.Todo, error) {
	query := `
		INSERT INTO todos (owner_id, title, description, status, deadline)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, owner_id, title, description, status, deadline, created_at, updated_at`
	var out dom.Todo
	err := r.db.QueryRow(ctx, query, t.OwnerID, t.Title, t.Description, t.Status, t.Deadline).Scan(
		&out.ID, &out.OwnerID, &out.Title, &out.Description, &out.Status, &out.Deadline,
		&out.CreatedAt, &out.UpdatedAt,
	)
	return out, err
}

func (r *PGTodoRepo) GetByID(ctx context.Context, id uuid.UUID) (dom.Todo, error) {
	query := `
		SELECT id, owner_id, title, description, status, deadline, created_at, updated_at
		FROM todos WHERE id = $1`
	var t dom.Todo
	err := r.db.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.OwnerID, &t.Title, &t.Description, &t.Status, &t.Deadline,
		&t.CreatedAt, &t.UpdatedAt,
	)
	return t, err
}

func (r *PGTodoRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]dom.Todo, error) {
	query := `
		SELECT id, owner_id, title, description, status, deadline, created_at, updated_at
		FROM todos WHERE owner_id = $1 ORDER BY deadline ASC`
	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []dom.Todo
	for rows.Next() {
		var t dom.Todo
		if err := rows.Scan(&t.ID, &t.OwnerID, &t.Title, &t.Description, &t.Status, &t.Deadline,
			&t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

func (r *PGTodoRepo) Overdue(ctx context.Context, ownerID uuid.UUID) ([]dom.Todo, error) {
	query := `
		SELECT id, owner_id, title, description, status, deadline, created_at, updated_at
		FROM todos WHERE owner_id = $1 AND status = 'NOT_COMPLETED' AND deadline < NOW()
		ORDER BY deadline ASC`
	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []dom.Todo
	for rows.Next() {
		var t dom.Todo
		if err := rows.Scan(&t.ID, &t.OwnerID, &t.Title, &t.Description, &t.Status, &t.Deadline,
			&t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

func (r *PGTodoRepo) Update(ctx context.Context, id uuid.UUID, patch dom.Todo) (dom.Todo, error) {
	query := `
		UPDATE todos SET title = $2, description = $3, status = $4, deadline = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING id, owner_id, title, description, status, deadline, created_at, updated_at`
	var t dom.Todo
	err := r.db.QueryRow(ctx, query, id, patch.Title, patch.Description, patch.Status, patch.Deadline).Scan(
		&t.ID, &t.OwnerID, &t.Title, &t.Description, &t.Status, &t.Deadline,
		&t.CreatedAt, &t.UpdatedAt,
	)
	return t, err
}

func (r *PGTodoRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM todos WHERE id = $1`, id)
	return err
}
