package members

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/apslhvsl/jira-clone/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the operations that must run inside one transaction so
// that a lifecycle transition and its membership side effect commit together.
type TxRepository interface {
	PendingRequest(ctx context.Context, id, projectID int64, kind RequestKind) (MembershipRequest, error)
	PendingInvite(ctx context.Context, id, projectID, userID int64) (MembershipRequest, error)
	CreateRequest(ctx context.Context, projectID, userID int64, kind RequestKind) (MembershipRequest, error)
	ResolveRequest(ctx context.Context, id int64, status RequestStatus) (bool, error)
	HasMember(ctx context.Context, projectID, userID int64) (bool, error)
	InsertMember(ctx context.Context, projectID, userID, roleID int64) error
	DeleteMember(ctx context.Context, projectID, userID int64) (bool, error)
	UpdateMemberRole(ctx context.Context, projectID, userID, roleID int64) (bool, error)
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

// ListMembers returns all members of a project with user and role names.
func (r *Repository) ListMembers(ctx context.Context, projectID int64) ([]Member, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT m.user_id, m.project_id, m.role_id, u.username, u.email, ro.name
		FROM project_members m
		JOIN users u ON u.id = m.user_id
		JOIN roles ro ON ro.id = m.role_id
		WHERE m.project_id = $1
		ORDER BY u.username`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var members []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.UserID, &m.ProjectID, &m.RoleID, &m.Username, &m.Email, &m.RoleName); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return members, nil
}

// ListPendingJoinRequests returns pending join requests with requester info.
func (r *Repository) ListPendingJoinRequests(ctx context.Context, projectID int64) ([]RequestDetail, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT q.id, q.project_id, q.user_id, u.username, u.email, q.status, q.created_at
		FROM membership_requests q
		JOIN users u ON u.id = q.user_id
		WHERE q.project_id = $1 AND q.kind = $2 AND q.status = $3
		ORDER BY q.created_at`, projectID, KindJoinRequest, StatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRequestDetails(rows)
}

// ListPendingInvitations returns a user's pending invites across projects.
func (r *Repository) ListPendingInvitations(ctx context.Context, userID int64) ([]MembershipRequest, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, project_id, user_id, kind, status, created_at
		FROM membership_requests
		WHERE user_id = $1 AND kind = $2 AND status = $3
		ORDER BY created_at`, userID, KindInvite, StatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var reqs []MembershipRequest
	for rows.Next() {
		var q MembershipRequest
		if err := rows.Scan(&q.ID, &q.ProjectID, &q.UserID, &q.Kind, &q.Status, &q.CreatedAt); err != nil {
			return nil, err
		}
		reqs = append(reqs, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reqs, nil
}

// ManagerIDs returns users holding the admin or manager role in a project.
func (r *Repository) ManagerIDs(ctx context.Context, projectID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT m.user_id
		FROM project_members m
		JOIN roles ro ON ro.id = m.role_id
		WHERE m.project_id = $1 AND ro.name = ANY($2)`, projectID, []string{"admin", "manager"})
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

func scanRequestDetails(rows pgx.Rows) ([]RequestDetail, error) {
	var details []RequestDetail
	for rows.Next() {
		var d RequestDetail
		if err := rows.Scan(&d.ID, &d.ProjectID, &d.UserID, &d.Username, &d.Email, &d.Status, &d.CreatedAt); err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return details, nil
}

func (t *txRepo) PendingRequest(ctx context.Context, id, projectID int64, kind RequestKind) (MembershipRequest, error) {
	return t.pendingRow(ctx, `
		SELECT id, project_id, user_id, kind, status, created_at
		FROM membership_requests
		WHERE id = $1 AND project_id = $2 AND kind = $3 AND status = $4
		FOR UPDATE`, id, projectID, kind, StatusPending)
}

func (t *txRepo) PendingInvite(ctx context.Context, id, projectID, userID int64) (MembershipRequest, error) {
	return t.pendingRow(ctx, `
		SELECT id, project_id, user_id, kind, status, created_at
		FROM membership_requests
		WHERE id = $1 AND project_id = $2 AND user_id = $3 AND kind = $4 AND status = $5
		FOR UPDATE`, id, projectID, userID, KindInvite, StatusPending)
}

func (t *txRepo) pendingRow(ctx context.Context, query string, args ...any) (MembershipRequest, error) {
	var q MembershipRequest
	err := t.tx.QueryRow(ctx, query, args...).Scan(&q.ID, &q.ProjectID, &q.UserID, &q.Kind, &q.Status, &q.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return MembershipRequest{}, ErrNotFound
		}
		return MembershipRequest{}, err
	}
	return q, nil
}

func (t *txRepo) CreateRequest(ctx context.Context, projectID, userID int64, kind RequestKind) (MembershipRequest, error) {
	q := MembershipRequest{ProjectID: projectID, UserID: userID, Kind: kind, Status: StatusPending}
	err := t.tx.QueryRow(ctx, `
		INSERT INTO membership_requests (project_id, user_id, kind, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`, projectID, userID, kind, StatusPending).Scan(&q.ID, &q.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return MembershipRequest{}, ErrRequestPending
		}
		return MembershipRequest{}, err
	}
	return q, nil
}

func (t *txRepo) ResolveRequest(ctx context.Context, id int64, status RequestStatus) (bool, error) {
	tag, err := t.tx.Exec(ctx, `
		UPDATE membership_requests SET status = $2
		WHERE id = $1 AND status = $3`, id, status, StatusPending)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (t *txRepo) HasMember(ctx context.Context, projectID, userID int64) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM project_members WHERE project_id = $1 AND user_id = $2)`,
		projectID, userID).Scan(&exists)
	return exists, err
}

func (t *txRepo) InsertMember(ctx context.Context, projectID, userID, roleID int64) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO project_members (project_id, user_id, role_id)
		VALUES ($1, $2, $3)`, projectID, userID, roleID)
	if err != nil && isUniqueViolation(err) {
		return ErrAlreadyMember
	}
	return err
}

func (t *txRepo) DeleteMember(ctx context.Context, projectID, userID int64) (bool, error) {
	tag, err := t.tx.Exec(ctx, `
		DELETE FROM project_members WHERE project_id = $1 AND user_id = $2`, projectID, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (t *txRepo) UpdateMemberRole(ctx context.Context, projectID, userID, roleID int64) (bool, error) {
	tag, err := t.tx.Exec(ctx, `
		UPDATE project_members SET role_id = $3 WHERE project_id = $1 AND user_id = $2`,
		projectID, userID, roleID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// isUniqueViolation reports whether err is a unique constraint violation
// (SQLSTATE 23505), which the lifecycle relies on to reject duplicate pending
// rows and duplicate memberships under concurrency.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
