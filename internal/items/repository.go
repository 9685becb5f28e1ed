package items

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/apslhvsl/jira-clone/internal/rbac"
)

// Repository provides PostgreSQL backed persistence for items and comments.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const itemColumns = `
	id, project_id, key, title, description, type, status, priority, severity,
	column_id, reporter_id, assignee_id, parent_id, due_date, created_at, updated_at`

func scanItem(row pgx.Row) (Item, error) {
	var it Item
	err := row.Scan(
		&it.ID, &it.ProjectID, &it.Key, &it.Title, &it.Description, &it.Type,
		&it.Status, &it.Priority, &it.Severity, &it.ColumnID, &it.ReporterID,
		&it.AssigneeID, &it.ParentID, &it.DueDate, &it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, ErrNotFound
		}
		return Item{}, err
	}
	return it, nil
}

// Insert persists a new item.
func (r *Repository) Insert(ctx context.Context, it Item) (Item, error) {
	return scanItem(r.pool.QueryRow(ctx, `
		INSERT INTO items (project_id, key, title, description, type, status,
			priority, severity, column_id, reporter_id, assignee_id, parent_id, due_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING`+itemColumns,
		it.ProjectID, it.Key, it.Title, it.Description, it.Type, it.Status,
		it.Priority, it.Severity, it.ColumnID, it.ReporterID, it.AssigneeID,
		it.ParentID, it.DueDate))
}

// Get fetches an item by id.
func (r *Repository) Get(ctx context.Context, id int64) (Item, error) {
	return scanItem(r.pool.QueryRow(ctx, `SELECT`+itemColumns+` FROM items WHERE id = $1`, id))
}

// List returns the project's items, optionally filtered by type.
func (r *Repository) List(ctx context.Context, projectID int64, filter ListFilter) ([]Item, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT`+itemColumns+`
		FROM items
		WHERE project_id = $1 AND ($2 = '' OR type = $2)
		ORDER BY id DESC
		LIMIT $3 OFFSET $4`, projectID, filter.Type, limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListChildren returns an item's subtasks oldest first.
func (r *Repository) ListChildren(ctx context.Context, parentID int64) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+itemColumns+`
		FROM items
		WHERE parent_id = $1
		ORDER BY id`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update applies partial changes and returns the updated row.
func (r *Repository) Update(ctx context.Context, id int64, upd ItemUpdate) (Item, error) {
	return scanItem(r.pool.QueryRow(ctx, `
		UPDATE items SET
			title = COALESCE($2, title),
			description = COALESCE($3, description),
			type = COALESCE($4, type),
			status = COALESCE($5, status),
			priority = COALESCE($6, priority),
			severity = COALESCE($7, severity),
			column_id = COALESCE($8, column_id),
			assignee_id = COALESCE($9, assignee_id),
			parent_id = COALESCE($10, parent_id),
			due_date = COALESCE($11, due_date),
			updated_at = NOW()
		WHERE id = $1
		RETURNING`+itemColumns,
		id, upd.Title, upd.Description, upd.Type, upd.Status, upd.Priority,
		upd.Severity, upd.ColumnID, upd.AssigneeID, upd.ParentID, upd.DueDate))
}

// Delete removes an item; comments cascade at the schema level.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ItemAccess resolves the owning project and owner identifiers of an item.
// Guards on item-scoped routes use it to derive the project context.
func (r *Repository) ItemAccess(ctx context.Context, itemID int64) (int64, rbac.Ownership, error) {
	var (
		projectID  int64
		reporterID int64
		assigneeID *int64
	)
	err := r.pool.QueryRow(ctx, `
		SELECT project_id, reporter_id, assignee_id FROM items WHERE id = $1`, itemID).
		Scan(&projectID, &reporterID, &assigneeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, rbac.Ownership{}, rbac.ErrNotFound
		}
		return 0, rbac.Ownership{}, err
	}
	owners := rbac.Ownership{ReporterID: reporterID}
	if assigneeID != nil {
		owners.AssigneeID = *assigneeID
	}
	return projectID, owners, nil
}

// InsertComment persists a comment on an item.
func (r *Repository) InsertComment(ctx context.Context, itemID, authorID int64, body string) (Comment, error) {
	var c Comment
	err := r.pool.QueryRow(ctx, `
		INSERT INTO comments (item_id, author_id, body)
		VALUES ($1, $2, $3)
		RETURNING id, item_id, author_id, body, created_at, updated_at`,
		itemID, authorID, body).
		Scan(&c.ID, &c.ItemID, &c.AuthorID, &c.Body, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// GetComment fetches a comment together with its item's project.
func (r *Repository) GetComment(ctx context.Context, commentID int64) (Comment, int64, error) {
	var (
		c         Comment
		projectID int64
	)
	err := r.pool.QueryRow(ctx, `
		SELECT c.id, c.item_id, c.author_id, c.body, c.created_at, c.updated_at, i.project_id
		FROM comments c
		JOIN items i ON i.id = c.item_id
		WHERE c.id = $1`, commentID).
		Scan(&c.ID, &c.ItemID, &c.AuthorID, &c.Body, &c.CreatedAt, &c.UpdatedAt, &projectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Comment{}, 0, ErrCommentNotFound
		}
		return Comment{}, 0, err
	}
	return c, projectID, nil
}

// ListComments returns an item's comments oldest first.
func (r *Repository) ListComments(ctx context.Context, itemID int64) ([]Comment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, item_id, author_id, body, created_at, updated_at
		FROM comments WHERE item_id = $1 ORDER BY id`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Comment
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.ItemID, &c.AuthorID, &c.Body, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateComment replaces a comment body.
func (r *Repository) UpdateComment(ctx context.Context, commentID int64, body string) (Comment, error) {
	var c Comment
	err := r.pool.QueryRow(ctx, `
		UPDATE comments SET body = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING id, item_id, author_id, body, created_at, updated_at`, commentID, body).
		Scan(&c.ID, &c.ItemID, &c.AuthorID, &c.Body, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Comment{}, ErrCommentNotFound
		}
		return Comment{}, err
	}
	return c, nil
}

// DeleteComment removes a comment.
func (r *Repository) DeleteComment(ctx context.Context, commentID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM comments WHERE id = $1`, commentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCommentNotFound
	}
	return nil
}
