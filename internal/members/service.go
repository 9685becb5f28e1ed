package members

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/apslhvsl/jira-clone/internal/rbac"
	"github.com/apslhvsl/jira-clone/internal/users"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListMembers(ctx context.Context, projectID int64) ([]Member, error)
	ListPendingJoinRequests(ctx context.Context, projectID int64) ([]RequestDetail, error)
	ListPendingInvitations(ctx context.Context, userID int64) ([]MembershipRequest, error)
	ManagerIDs(ctx context.Context, projectID int64) ([]int64, error)
}

// RoleSource resolves project roles by name.
type RoleSource interface {
	FindRole(ctx context.Context, projectID int64, name string) (rbac.Role, error)
}

// UserSource resolves user accounts for invitations.
type UserSource interface {
	FindByEmail(ctx context.Context, email string) (users.User, error)
}

// Notifier records a user-visible event. Calls happen after the triggering
// transaction commits; failures are logged and never propagate.
type Notifier interface {
	Notify(ctx context.Context, userID int64, message string) error
}

// Service orchestrates the membership lifecycle.
type Service struct {
	repo     RepositoryPort
	roles    RoleSource
	users    UserSource
	notifier Notifier
	logger   *slog.Logger
}

// NewService constructs a members service.
func NewService(repo RepositoryPort, roles RoleSource, userSource UserSource, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{repo: repo, roles: roles, users: userSource, notifier: notifier, logger: logger}
}

type event struct {
	userID  int64
	message string
}

// Invite creates a pending invitation for the user identified by email. The
// role name is validated against the project's roles up front, but acceptance
// always grants the default member role.
func (s *Service) Invite(ctx context.Context, projectID int64, email, roleName string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if roleName == "" {
		roleName = rbac.DefaultMemberRole
	}
	if _, err := s.roles.FindRole(ctx, projectID, roleName); err != nil {
		if errors.Is(err, rbac.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrRoleNotFound, roleName)
		}
		return err
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		member, err := tx.HasMember(ctx, projectID, user.ID)
		if err != nil {
			return err
		}
		if member {
			return ErrAlreadyMember
		}
		_, err = tx.CreateRequest(ctx, projectID, user.ID, KindInvite)
		return err
	})
	if err != nil {
		return err
	}

	s.flush(ctx, []event{{user.ID, fmt.Sprintf("You have been invited to join project %d.", projectID)}})
	return nil
}

// RequestToJoin creates a pending join request for a non-member and notifies
// the project's admins and managers.
func (s *Service) RequestToJoin(ctx context.Context, projectID, userID int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		member, err := tx.HasMember(ctx, projectID, userID)
		if err != nil {
			return err
		}
		if member {
			return ErrAlreadyMember
		}
		_, err = tx.CreateRequest(ctx, projectID, userID, KindJoinRequest)
		return err
	})
	if err != nil {
		return err
	}

	s.flush(ctx, s.managerEvents(ctx, projectID, fmt.Sprintf("New join request for project %d.", projectID)))
	return nil
}

// AcceptJoinRequest marks a pending join request accepted and grants the
// requester the project's member role, all in one transaction.
func (s *Service) AcceptJoinRequest(ctx context.Context, projectID, requestID int64) error {
	role, err := s.defaultRole(ctx, projectID)
	if err != nil {
		return err
	}

	var requester int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		req, err := tx.PendingRequest(ctx, requestID, projectID, KindJoinRequest)
		if err != nil {
			return err
		}
		requester = req.UserID
		ok, err := tx.ResolveRequest(ctx, req.ID, StatusAccepted)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}
		member, err := tx.HasMember(ctx, projectID, req.UserID)
		if err != nil {
			return err
		}
		if member {
			// Request resolves, but the membership already exists.
			return nil
		}
		return tx.InsertMember(ctx, projectID, req.UserID, role.ID)
	})
	if err != nil {
		return err
	}

	s.flush(ctx, []event{{requester, fmt.Sprintf("Your join request for project %d was accepted.", projectID)}})
	return nil
}

// RejectJoinRequest marks a pending join request rejected. No membership is
// created and the row becomes immutable.
func (s *Service) RejectJoinRequest(ctx context.Context, projectID, requestID int64) error {
	var requester int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		req, err := tx.PendingRequest(ctx, requestID, projectID, KindJoinRequest)
		if err != nil {
			return err
		}
		requester = req.UserID
		ok, err := tx.ResolveRequest(ctx, req.ID, StatusRejected)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.flush(ctx, []event{{requester, fmt.Sprintf("Your join request for project %d was rejected.", projectID)}})
	return nil
}

// AcceptInvitation is the invitee-side accept: it grants the default member
// role and notifies the project's admins and managers.
func (s *Service) AcceptInvitation(ctx context.Context, projectID, inviteID, userID int64) error {
	role, err := s.defaultRole(ctx, projectID)
	if err != nil {
		return err
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.PendingInvite(ctx, inviteID, projectID, userID)
		if err != nil {
			return err
		}
		ok, err := tx.ResolveRequest(ctx, inv.ID, StatusAccepted)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}
		member, err := tx.HasMember(ctx, projectID, userID)
		if err != nil {
			return err
		}
		if member {
			return nil
		}
		return tx.InsertMember(ctx, projectID, userID, role.ID)
	})
	if err != nil {
		return err
	}

	s.flush(ctx, s.managerEvents(ctx, projectID, fmt.Sprintf("User %d accepted invitation to project %d.", userID, projectID)))
	return nil
}

// RejectInvitation is the invitee-side reject.
func (s *Service) RejectInvitation(ctx context.Context, projectID, inviteID, userID int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.PendingInvite(ctx, inviteID, projectID, userID)
		if err != nil {
			return err
		}
		ok, err := tx.ResolveRequest(ctx, inv.ID, StatusRejected)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.flush(ctx, s.managerEvents(ctx, projectID, fmt.Sprintf("User %d rejected invitation to project %d.", userID, projectID)))
	return nil
}

// RemoveMember deletes the membership row. Past membership requests are left
// untouched.
func (s *Service) RemoveMember(ctx context.Context, projectID, userID int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ok, err := tx.DeleteMember(ctx, projectID, userID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}
		return nil
	})
}

// ChangeRole reassigns a member to another of the project's roles. The role
// name is always resolved to a role id before the membership row is touched.
func (s *Service) ChangeRole(ctx context.Context, projectID, userID int64, roleName string) error {
	role, err := s.roles.FindRole(ctx, projectID, roleName)
	if err != nil {
		if errors.Is(err, rbac.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrRoleNotFound, roleName)
		}
		return err
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ok, err := tx.UpdateMemberRole(ctx, projectID, userID, role.ID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}
		return nil
	})
}

// ListMembers returns the project's members with role names.
func (s *Service) ListMembers(ctx context.Context, projectID int64) ([]Member, error) {
	return s.repo.ListMembers(ctx, projectID)
}

// ListJoinRequests returns the project's pending join requests.
func (s *Service) ListJoinRequests(ctx context.Context, projectID int64) ([]RequestDetail, error) {
	return s.repo.ListPendingJoinRequests(ctx, projectID)
}

// ListMyInvitations returns the caller's pending invitations.
func (s *Service) ListMyInvitations(ctx context.Context, userID int64) ([]MembershipRequest, error) {
	return s.repo.ListPendingInvitations(ctx, userID)
}

func (s *Service) defaultRole(ctx context.Context, projectID int64) (rbac.Role, error) {
	role, err := s.roles.FindRole(ctx, projectID, rbac.DefaultMemberRole)
	if err != nil {
		if errors.Is(err, rbac.ErrNotFound) {
			return rbac.Role{}, fmt.Errorf("%w: %s", ErrRoleNotFound, rbac.DefaultMemberRole)
		}
		return rbac.Role{}, err
	}
	return role, nil
}

func (s *Service) managerEvents(ctx context.Context, projectID int64, message string) []event {
	ids, err := s.repo.ManagerIDs(ctx, projectID)
	if err != nil {
		s.logError("list managers", err)
		return nil
	}
	events := make([]event, 0, len(ids))
	for _, id := range ids {
		events = append(events, event{id, message})
	}
	return events
}

// flush delivers collected events after the transition committed. A failed
// notification never rolls back or fails the transition.
func (s *Service) flush(ctx context.Context, events []event) {
	if s.notifier == nil {
		return
	}
	for _, ev := range events {
		if err := s.notifier.Notify(ctx, ev.userID, ev.message); err != nil {
			s.logError("notify", err)
		}
	}
}

func (s *Service) logError(msg string, err error) {
	if s.logger != nil {
		s.logger.Error(msg, slog.Any("error", err))
	}
}
