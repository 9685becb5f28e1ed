package projects

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/apslhvsl/jira-clone/internal/platform/db"
	"github.com/apslhvsl/jira-clone/internal/rbac"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the operations of the project creation transaction.
// A project must never become visible without its roles and admin membership.
type TxRepository interface {
	InsertProject(ctx context.Context, name, description string, adminID int64) (Project, error)
	InsertColumn(ctx context.Context, projectID int64, name string, position int) error
	SeedRoles(ctx context.Context, projectID int64) (map[string]int64, error)
	InsertMember(ctx context.Context, projectID, userID, roleID int64) error
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// Get fetches a project by id.
func (r *Repository) Get(ctx context.Context, id int64) (Project, error) {
	var p Project
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, description, admin_id, created_at, updated_at
		FROM projects WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.AdminID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Project{}, ErrNotFound
		}
		return Project{}, err
	}
	return p, nil
}

// ListForUser returns the projects the user is a member of.
func (r *Repository) ListForUser(ctx context.Context, userID int64) ([]Project, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.name, p.description, p.admin_id, p.created_at, p.updated_at
		FROM projects p
		JOIN project_members m ON m.project_id = p.id
		WHERE m.user_id = $1
		ORDER BY p.id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var projects []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.AdminID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return projects, nil
}

// Update applies partial changes to name and description.
func (r *Repository) Update(ctx context.Context, id int64, name, description *string) (Project, error) {
	var p Project
	err := r.pool.QueryRow(ctx, `
		UPDATE projects
		SET name = COALESCE($2, name),
		    description = COALESCE($3, description),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING id, name, description, admin_id, created_at, updated_at`, id, name, description).
		Scan(&p.ID, &p.Name, &p.Description, &p.AdminID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Project{}, ErrNotFound
		}
		return Project{}, err
	}
	return p, nil
}

// Delete removes a project. Roles, memberships, columns, items, and requests
// cascade at the schema level.
func (r *Repository) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// SetAdmin reassigns the project's admin user.
func (r *Repository) SetAdmin(ctx context.Context, id, adminID int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE projects SET admin_id = $2, updated_at = NOW() WHERE id = $1`, id, adminID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Progress returns item counts by status.
func (r *Repository) Progress(ctx context.Context, projectID int64) (Progress, error) {
	var p Progress
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'done'),
		       COUNT(*) FILTER (WHERE status = 'inprogress'),
		       COUNT(*) FILTER (WHERE status = 'todo')
		FROM items WHERE project_id = $1`, projectID).
		Scan(&p.Total, &p.Completed, &p.InProgress, &p.Todo)
	return p, err
}

// StatsForUser aggregates membership and item counts for the dashboard.
func (r *Repository) StatsForUser(ctx context.Context, userID int64) (DashboardStats, error) {
	var s DashboardStats
	err := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM project_members WHERE user_id = $1),
			(SELECT COUNT(*) FROM items WHERE reporter_id = $1 OR assignee_id = $1)`, userID).
		Scan(&s.ProjectCount, &s.TaskCount)
	return s, err
}

// UserExists reports whether a user account exists.
func (r *Repository) UserExists(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists)
	return exists, err
}

func (t *txRepo) InsertProject(ctx context.Context, name, description string, adminID int64) (Project, error) {
	var p Project
	err := t.tx.QueryRow(ctx, `
		INSERT INTO projects (name, description, admin_id)
		VALUES ($1, $2, $3)
		RETURNING id, name, description, admin_id, created_at, updated_at`, name, description, adminID).
		Scan(&p.ID, &p.Name, &p.Description, &p.AdminID, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (t *txRepo) InsertColumn(ctx context.Context, projectID int64, name string, position int) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO board_columns (project_id, name, position)
		VALUES ($1, $2, $3)`, projectID, name, position)
	return err
}

func (t *txRepo) SeedRoles(ctx context.Context, projectID int64) (map[string]int64, error) {
	return rbac.SeedProjectRoles(ctx, t.tx, projectID)
}

func (t *txRepo) InsertMember(ctx context.Context, projectID, userID, roleID int64) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO project_members (project_id, user_id, role_id)
		VALUES ($1, $2, $3)`, projectID, userID, roleID)
	return err
}
