package projects

import (
	"context"
	"fmt"

	"github.com/apslhvsl/jira-clone/internal/rbac"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Project, error)
	ListForUser(ctx context.Context, userID int64) ([]Project, error)
	Update(ctx context.Context, id int64, name, description *string) (Project, error)
	Delete(ctx context.Context, id int64) (bool, error)
	SetAdmin(ctx context.Context, id, adminID int64) (bool, error)
	Progress(ctx context.Context, projectID int64) (Progress, error)
	StatsForUser(ctx context.Context, userID int64) (DashboardStats, error)
	UserExists(ctx context.Context, userID int64) (bool, error)
}

// Service wraps project business rules.
type Service struct {
	repo RepositoryPort
}

// NewService constructs a projects service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Create persists a project and, in the same transaction, its default board
// columns, the four built-in roles, and the creator's admin membership. A
// project can never exist without an admin role holder.
func (s *Service) Create(ctx context.Context, creatorID int64, name, description string) (Project, error) {
	var created Project
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		project, err := tx.InsertProject(ctx, name, description, creatorID)
		if err != nil {
			return err
		}
		for i, column := range DefaultColumns {
			if err := tx.InsertColumn(ctx, project.ID, column, i); err != nil {
				return err
			}
		}
		roleIDs, err := tx.SeedRoles(ctx, project.ID)
		if err != nil {
			return err
		}
		adminRole, ok := roleIDs[rbac.RoleAdmin]
		if !ok {
			return fmt.Errorf("projects: admin role missing after seed")
		}
		if err := tx.InsertMember(ctx, project.ID, creatorID, adminRole); err != nil {
			return err
		}
		created = project
		return nil
	})
	if err != nil {
		return Project{}, err
	}
	return created, nil
}

// Get fetches a project.
func (s *Service) Get(ctx context.Context, id int64) (Project, error) {
	return s.repo.Get(ctx, id)
}

// ListMine returns the caller's projects.
func (s *Service) ListMine(ctx context.Context, userID int64) ([]Project, error) {
	return s.repo.ListForUser(ctx, userID)
}

// Update applies partial changes.
func (s *Service) Update(ctx context.Context, id int64, name, description *string) (Project, error) {
	return s.repo.Update(ctx, id, name, description)
}

// Delete removes a project and all dependent rows.
func (s *Service) Delete(ctx context.Context, id int64) error {
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// TransferAdmin reassigns project adminship to an existing user.
func (s *Service) TransferAdmin(ctx context.Context, id, newAdminID int64) error {
	exists, err := s.repo.UserExists(ctx, newAdminID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrUserNotFound
	}
	ok, err := s.repo.SetAdmin(ctx, id, newAdminID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// Progress returns the project's item completion summary.
func (s *Service) Progress(ctx context.Context, projectID int64) (Progress, error) {
	return s.repo.Progress(ctx, projectID)
}

// DashboardStats aggregates the caller's workload.
func (s *Service) DashboardStats(ctx context.Context, userID int64) (DashboardStats, error) {
	return s.repo.StatsForUser(ctx, userID)
}
