// Package rbac owns per-project roles, their permission sets, and the
// authorization engine consulted before every project-scoped operation.
package rbac

import "errors"

// Permission actions granted to project roles.
const (
	ActionViewTasks           = "view_tasks"
	ActionCreateTask          = "create_task"
	ActionEditAnyTask         = "edit_any_task"
	ActionEditOwnTask         = "edit_own_task"
	ActionDeleteAnyTask       = "delete_any_task"
	ActionDeleteOwnTask       = "delete_own_task"
	ActionManageProject       = "manage_project"
	ActionAddRemoveMembers    = "add_remove_members"
	ActionChangeRoles         = "change_roles"
	ActionViewProjectSettings = "view_project_settings"
	ActionDeleteProject       = "delete_project"
	ActionTransferAdmin       = "transfer_admin"
	ActionAddComment          = "add_comment"
	ActionEditAnyComment      = "edit_any_comment"
	ActionEditOwnComment      = "edit_own_comment"
	ActionDeleteAnyComment    = "delete_any_comment"
)

// Built-in role names instantiated for every project.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleMember  = "member"
	RoleVisitor = "visitor"
)

// DefaultMemberRole is granted when an invitation or join request is accepted.
const DefaultMemberRole = RoleMember

// Role is a named permission grouping scoped to a single project.
type Role struct {
	ID        int64
	ProjectID int64
	Name      string
}

// Membership binds a user to exactly one role within a project.
type Membership struct {
	UserID    int64
	ProjectID int64
	RoleID    int64
}

// RoleDefinition describes a built-in role and its permission actions.
type RoleDefinition struct {
	Name    string
	Actions []string
}

// DefaultRoleDefinitions returns the canonical roles seeded into every new
// project. The lists are fixed; changing them changes the meaning of every
// existing deployment, so treat edits as schema migrations.
func DefaultRoleDefinitions() []RoleDefinition {
	return []RoleDefinition{
		{
			Name: RoleAdmin,
			Actions: []string{
				ActionViewTasks, ActionCreateTask, ActionEditAnyTask, ActionEditOwnTask,
				ActionDeleteAnyTask, ActionDeleteOwnTask, ActionManageProject,
				ActionAddRemoveMembers, ActionChangeRoles, ActionViewProjectSettings,
				ActionDeleteProject, ActionTransferAdmin, ActionAddComment,
				ActionEditAnyComment, ActionDeleteAnyComment,
			},
		},
		{
			Name: RoleManager,
			Actions: []string{
				ActionViewTasks, ActionCreateTask, ActionEditAnyTask, ActionEditOwnTask,
				ActionDeleteAnyTask, ActionDeleteOwnTask, ActionManageProject,
				ActionAddRemoveMembers, ActionChangeRoles, ActionViewProjectSettings,
				ActionAddComment, ActionEditAnyComment, ActionDeleteAnyComment,
			},
		},
		{
			Name: RoleMember,
			Actions: []string{
				ActionViewTasks, ActionCreateTask, ActionEditOwnTask, ActionDeleteOwnTask,
				ActionViewProjectSettings, ActionAddComment, ActionEditOwnComment,
			},
		},
		{
			Name: RoleVisitor,
			Actions: []string{
				ActionViewTasks, ActionViewProjectSettings,
			},
		},
	}
}

// ErrNotFound indicates that the requested record does not exist.
var ErrNotFound = errors.New("rbac: not found")

// Deny reasons. All of them surface as 403; the distinction is kept for
// logging and tests.
var (
	ErrNotMember         = errors.New("rbac: not a project member")
	ErrMissingPermission = errors.New("rbac: lacks permission")
	ErrNotOwner          = errors.New("rbac: not owner of resource")
)

// IsDenied reports whether err is an authorization denial.
func IsDenied(err error) bool {
	return errors.Is(err, ErrNotMember) ||
		errors.Is(err, ErrMissingPermission) ||
		errors.Is(err, ErrNotOwner)
}

// Ownership carries the owner identifiers of a target resource, consulted by
// the engine's own-resource fallback.
type Ownership struct {
	ReporterID int64
	AssigneeID int64
}

// Owns reports whether userID is among the owner identifiers.
func (o Ownership) Owns(userID int64) bool {
	if userID == 0 {
		return false
	}
	return userID == o.ReporterID || userID == o.AssigneeID
}
