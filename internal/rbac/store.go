package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store provides PostgreSQL backed role and permission lookups. Nothing is
// cached: every authorization check re-reads current rows so a role change
// takes effect on the next request.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// SeedProjectRoles instantiates the built-in roles and their permissions for
// a new project within the caller's transaction. It must run exactly once per
// project, in the same transaction that creates the project row.
func SeedProjectRoles(ctx context.Context, tx pgx.Tx, projectID int64) (map[string]int64, error) {
	ids := make(map[string]int64, 4)
	for _, def := range DefaultRoleDefinitions() {
		var roleID int64
		err := tx.QueryRow(ctx,
			`INSERT INTO roles (project_id, name) VALUES ($1, $2) RETURNING id`,
			projectID, def.Name,
		).Scan(&roleID)
		if err != nil {
			return nil, fmt.Errorf("rbac: seed role %s: %w", def.Name, err)
		}
		for _, action := range def.Actions {
			if _, err := tx.Exec(ctx,
				`INSERT INTO permissions (role_id, action) VALUES ($1, $2)`,
				roleID, action,
			); err != nil {
				return nil, fmt.Errorf("rbac: seed permission %s/%s: %w", def.Name, action, err)
			}
		}
		ids[def.Name] = roleID
	}
	return ids, nil
}

// FindRole fetches a role by project and name.
func (s *Store) FindRole(ctx context.Context, projectID int64, name string) (Role, error) {
	var role Role
	err := s.pool.QueryRow(ctx,
		`SELECT id, project_id, name FROM roles WHERE project_id = $1 AND name = $2`,
		projectID, name,
	).Scan(&role.ID, &role.ProjectID, &role.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, ErrNotFound
		}
		return Role{}, err
	}
	return role, nil
}

// PermissionsOf returns the permission actions attached to a role.
func (s *Store) PermissionsOf(ctx context.Context, roleID int64) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT action FROM permissions WHERE role_id = $1 ORDER BY action`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var actions []string
	for rows.Next() {
		var action string
		if err := rows.Scan(&action); err != nil {
			return nil, err
		}
		actions = append(actions, action)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return actions, nil
}

// Membership returns the caller's membership row for a project.
func (s *Store) Membership(ctx context.Context, userID, projectID int64) (Membership, error) {
	var m Membership
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, project_id, role_id FROM project_members WHERE user_id = $1 AND project_id = $2`,
		userID, projectID,
	).Scan(&m.UserID, &m.ProjectID, &m.RoleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Membership{}, ErrNotFound
		}
		return Membership{}, err
	}
	return m, nil
}
