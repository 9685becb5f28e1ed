package rbac

import (
	"context"
	"errors"
	"fmt"
)

// PermissionSource is what the engine consults per check: the membership
// registry and the role/permission store.
type PermissionSource interface {
	Membership(ctx context.Context, userID, projectID int64) (Membership, error)
	PermissionsOf(ctx context.Context, roleID int64) ([]string, error)
}

// Engine evaluates authorization decisions. It is stateless and read-only;
// consistency comes from reading within the same transaction as the guarded
// mutation where one exists.
type Engine struct {
	source PermissionSource
}

// NewEngine constructs an engine over the given source.
func NewEngine(source PermissionSource) *Engine {
	return &Engine{source: source}
}

// Authorize allows the action when the caller's role grants it outright.
func (e *Engine) Authorize(ctx context.Context, userID, projectID int64, action string) error {
	granted, err := e.grantedActions(ctx, userID, projectID)
	if err != nil {
		return err
	}
	if _, ok := granted[action]; ok {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrMissingPermission, action)
}

// AuthorizeOwned allows the action when the caller's role grants it outright,
// or when the role grants the own-resource fallback action and the caller is
// among the resource's owner identifiers.
func (e *Engine) AuthorizeOwned(ctx context.Context, userID, projectID int64, action, ownAction string, owners Ownership) error {
	granted, err := e.grantedActions(ctx, userID, projectID)
	if err != nil {
		return err
	}
	if _, ok := granted[action]; ok {
		return nil
	}
	if ownAction != "" {
		if _, ok := granted[ownAction]; ok {
			if owners.Owns(userID) {
				return nil
			}
			return ErrNotOwner
		}
	}
	return fmt.Errorf("%w: %s", ErrMissingPermission, action)
}

func (e *Engine) grantedActions(ctx context.Context, userID, projectID int64) (map[string]struct{}, error) {
	membership, err := e.source.Membership(ctx, userID, projectID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotMember
		}
		return nil, err
	}
	actions, err := e.source.PermissionsOf(ctx, membership.RoleID)
	if err != nil {
		return nil, err
	}
	granted := make(map[string]struct{}, len(actions))
	for _, action := range actions {
		granted[action] = struct{}{}
	}
	return granted, nil
}
