package boards

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence for board columns.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns a project's columns ordered by position.
func (r *Repository) List(ctx context.Context, projectID int64) ([]Column, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, project_id, name, position, created_at
		FROM board_columns WHERE project_id = $1
		ORDER BY position, id`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Column
	for rows.Next() {
		var c Column
		if err := rows.Scan(&c.ID, &c.ProjectID, &c.Name, &c.Position, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Insert appends a column after the project's current last position.
func (r *Repository) Insert(ctx context.Context, projectID int64, name string) (Column, error) {
	var c Column
	err := r.pool.QueryRow(ctx, `
		INSERT INTO board_columns (project_id, name, position)
		VALUES ($1, $2, (
			SELECT COALESCE(MAX(position) + 1, 0) FROM board_columns WHERE project_id = $1
		))
		RETURNING id, project_id, name, position, created_at`, projectID, name).
		Scan(&c.ID, &c.ProjectID, &c.Name, &c.Position, &c.CreatedAt)
	return c, err
}

// Rename updates a column's name. Scoped to the project so a column id from
// another project cannot be addressed through this route.
func (r *Repository) Rename(ctx context.Context, projectID, columnID int64, name string) (Column, error) {
	var c Column
	err := r.pool.QueryRow(ctx, `
		UPDATE board_columns SET name = $3
		WHERE id = $2 AND project_id = $1
		RETURNING id, project_id, name, position, created_at`, projectID, columnID, name).
		Scan(&c.ID, &c.ProjectID, &c.Name, &c.Position, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Column{}, ErrNotFound
		}
		return Column{}, err
	}
	return c, nil
}

// Delete removes a column. Items referencing it keep their status but lose
// the column link (SET NULL at the schema level).
func (r *Repository) Delete(ctx context.Context, projectID, columnID int64) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM board_columns WHERE id = $2 AND project_id = $1`, projectID, columnID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
