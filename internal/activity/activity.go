// Package activity keeps an append-only log of item mutations and serves the
// caller's recent-activity feed.
package activity

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Entry is one recorded mutation.
type Entry struct {
	ID        int64
	UserID    int64
	ProjectID int64
	ItemID    int64
	Action    string
	CreatedAt time.Time
}

// Repository provides PostgreSQL backed persistence for activity entries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Record appends an entry. Entries are never updated or deleted by the
// application; project deletion cascades at the schema level.
func (r *Repository) Record(ctx context.Context, userID, projectID, itemID int64, action string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO activity_logs (user_id, project_id, item_id, action)
		VALUES ($1, $2, $3, $4)`, userID, projectID, itemID, action)
	return err
}

// RecentForUser returns the latest entries touching items the user reported
// or is assigned to, newest first.
func (r *Repository) RecentForUser(ctx context.Context, userID int64, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, a.user_id, a.project_id, a.item_id, a.action, a.created_at
		FROM activity_logs a
		JOIN items i ON i.id = a.item_id
		WHERE i.reporter_id = $1 OR i.assignee_id = $1
		ORDER BY a.id DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.UserID, &e.ProjectID, &e.ItemID, &e.Action, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
