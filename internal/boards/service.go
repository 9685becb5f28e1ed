package boards

import (
	"context"
	"strings"
)

const maxNameLength = 60

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	List(ctx context.Context, projectID int64) ([]Column, error)
	Insert(ctx context.Context, projectID int64, name string) (Column, error)
	Rename(ctx context.Context, projectID, columnID int64, name string) (Column, error)
	Delete(ctx context.Context, projectID, columnID int64) error
}

// Service wraps board column rules.
type Service struct {
	repo RepositoryPort
}

// NewService constructs a boards service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// List returns a project's columns in board order.
func (s *Service) List(ctx context.Context, projectID int64) ([]Column, error) {
	return s.repo.List(ctx, projectID)
}

// Create appends a column to the board.
func (s *Service) Create(ctx context.Context, projectID int64, name string) (Column, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxNameLength {
		return Column{}, ErrInvalidName
	}
	return s.repo.Insert(ctx, projectID, name)
}

// Rename updates a column's name.
func (s *Service) Rename(ctx context.Context, projectID, columnID int64, name string) (Column, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxNameLength {
		return Column{}, ErrInvalidName
	}
	return s.repo.Rename(ctx, projectID, columnID, name)
}

// Delete removes a column.
func (s *Service) Delete(ctx context.Context, projectID, columnID int64) error {
	return s.repo.Delete(ctx, projectID, columnID)
}
