package boards

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryBoardsRepo struct {
	columns map[int64][]Column
	nextID  int64
}

func newMemoryBoardsRepo() *memoryBoardsRepo {
	return &memoryBoardsRepo{columns: make(map[int64][]Column)}
}

func (r *memoryBoardsRepo) List(_ context.Context, projectID int64) ([]Column, error) {
	return r.columns[projectID], nil
}

func (r *memoryBoardsRepo) Insert(_ context.Context, projectID int64, name string) (Column, error) {
	r.nextID++
	c := Column{ID: r.nextID, ProjectID: projectID, Name: name, Position: len(r.columns[projectID])}
	r.columns[projectID] = append(r.columns[projectID], c)
	return c, nil
}

func (r *memoryBoardsRepo) Rename(_ context.Context, projectID, columnID int64, name string) (Column, error) {
	for i, c := range r.columns[projectID] {
		if c.ID == columnID {
			c.Name = name
			r.columns[projectID][i] = c
			return c, nil
		}
	}
	return Column{}, ErrNotFound
}

func (r *memoryBoardsRepo) Delete(_ context.Context, projectID, columnID int64) error {
	for i, c := range r.columns[projectID] {
		if c.ID == columnID {
			r.columns[projectID] = append(r.columns[projectID][:i], r.columns[projectID][i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func TestColumnLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryBoardsRepo()
	svc := NewService(repo)

	created, err := svc.Create(ctx, 10, "  Backlog  ")
	require.NoError(t, err)
	require.Equal(t, "Backlog", created.Name)
	require.Equal(t, 0, created.Position)

	renamed, err := svc.Rename(ctx, 10, created.ID, "Icebox")
	require.NoError(t, err)
	require.Equal(t, "Icebox", renamed.Name)

	require.NoError(t, svc.Delete(ctx, 10, created.ID))
	require.ErrorIs(t, svc.Delete(ctx, 10, created.ID), ErrNotFound)
}

func TestColumnNameValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryBoardsRepo())

	_, err := svc.Create(ctx, 10, "   ")
	require.ErrorIs(t, err, ErrInvalidName)

	_, err = svc.Create(ctx, 10, strings.Repeat("x", 61))
	require.ErrorIs(t, err, ErrInvalidName)

	_, err = svc.Rename(ctx, 10, 1, "")
	require.ErrorIs(t, err, ErrInvalidName)
}
