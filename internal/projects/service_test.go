package projects

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/apslhvsl/jira-clone/internal/rbac"
)

type memoryProjectsRepo struct {
	projects map[int64]Project
	columns  map[int64][]string
	roles    map[int64]map[string]int64
	members  map[int64]map[int64]int64 // projectID -> userID -> roleID
	users    map[int64]bool
	nextID   int64
	failTx   error
}

type memoryProjectsTx struct {
	repo *memoryProjectsRepo
}

func newMemoryProjectsRepo() *memoryProjectsRepo {
	return &memoryProjectsRepo{
		projects: make(map[int64]Project),
		columns:  make(map[int64][]string),
		roles:    make(map[int64]map[string]int64),
		members:  make(map[int64]map[int64]int64),
		users:    make(map[int64]bool),
	}
}

func (r *memoryProjectsRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r.failTx != nil {
		return r.failTx
	}
	return fn(ctx, &memoryProjectsTx{repo: r})
}

func (r *memoryProjectsRepo) Get(_ context.Context, id int64) (Project, error) {
	p, ok := r.projects[id]
	if !ok {
		return Project{}, ErrNotFound
	}
	return p, nil
}

func (r *memoryProjectsRepo) ListForUser(_ context.Context, userID int64) ([]Project, error) {
	var out []Project
	for id, members := range r.members {
		if _, ok := members[userID]; ok {
			out = append(out, r.projects[id])
		}
	}
	return out, nil
}

func (r *memoryProjectsRepo) Update(_ context.Context, id int64, name, description *string) (Project, error) {
	p, ok := r.projects[id]
	if !ok {
		return Project{}, ErrNotFound
	}
	if name != nil {
		p.Name = *name
	}
	if description != nil {
		p.Description = *description
	}
	r.projects[id] = p
	return p, nil
}

func (r *memoryProjectsRepo) Delete(_ context.Context, id int64) (bool, error) {
	if _, ok := r.projects[id]; !ok {
		return false, nil
	}
	delete(r.projects, id)
	return true, nil
}

func (r *memoryProjectsRepo) SetAdmin(_ context.Context, id, adminID int64) (bool, error) {
	p, ok := r.projects[id]
	if !ok {
		return false, nil
	}
	p.AdminID = adminID
	r.projects[id] = p
	return true, nil
}

func (r *memoryProjectsRepo) Progress(_ context.Context, _ int64) (Progress, error) {
	return Progress{}, nil
}

func (r *memoryProjectsRepo) StatsForUser(_ context.Context, _ int64) (DashboardStats, error) {
	return DashboardStats{}, nil
}

func (r *memoryProjectsRepo) UserExists(_ context.Context, userID int64) (bool, error) {
	return r.users[userID], nil
}

func (t *memoryProjectsTx) InsertProject(_ context.Context, name, description string, adminID int64) (Project, error) {
	t.repo.nextID++
	p := Project{
		ID:          t.repo.nextID,
		Name:        name,
		Description: description,
		AdminID:     adminID,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	t.repo.projects[p.ID] = p
	return p, nil
}

func (t *memoryProjectsTx) InsertColumn(_ context.Context, projectID int64, name string, _ int) error {
	t.repo.columns[projectID] = append(t.repo.columns[projectID], name)
	return nil
}

func (t *memoryProjectsTx) SeedRoles(_ context.Context, projectID int64) (map[string]int64, error) {
	ids := make(map[string]int64)
	for i, def := range rbac.DefaultRoleDefinitions() {
		ids[def.Name] = projectID*100 + int64(i+1)
	}
	t.repo.roles[projectID] = ids
	return ids, nil
}

func (t *memoryProjectsTx) InsertMember(_ context.Context, projectID, userID, roleID int64) error {
	if t.repo.members[projectID] == nil {
		t.repo.members[projectID] = make(map[int64]int64)
	}
	t.repo.members[projectID][userID] = roleID
	return nil
}

func TestCreateProject(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryProjectsRepo()
	svc := NewService(repo)

	created, err := svc.Create(ctx, 1, "Apollo", "First project")
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.Equal(t, int64(1), created.AdminID)

	// The creation transaction seeds the default columns, the four built-in
	// roles, and the creator's admin membership.
	require.Equal(t, DefaultColumns, repo.columns[created.ID])
	require.Len(t, repo.roles[created.ID], 4)
	require.Equal(t, repo.roles[created.ID][rbac.RoleAdmin], repo.members[created.ID][1])
}

func TestTransferAdmin(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryProjectsRepo()
	svc := NewService(repo)

	created, err := svc.Create(ctx, 1, "Apollo", "")
	require.NoError(t, err)

	repo.users[2] = true

	require.NoError(t, svc.TransferAdmin(ctx, created.ID, 2))
	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), got.AdminID)

	require.ErrorIs(t, svc.TransferAdmin(ctx, created.ID, 99), ErrUserNotFound)
	require.ErrorIs(t, svc.TransferAdmin(ctx, 404, 2), ErrNotFound)
}

func TestDeleteProject(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryProjectsRepo()
	svc := NewService(repo)

	created, err := svc.Create(ctx, 1, "Apollo", "")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))
	require.ErrorIs(t, svc.Delete(ctx, created.ID), ErrNotFound)
}

func TestUpdateProjectPartial(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryProjectsRepo()
	svc := NewService(repo)

	created, err := svc.Create(ctx, 1, "Apollo", "desc")
	require.NoError(t, err)

	name := "Artemis"
	updated, err := svc.Update(ctx, created.ID, &name, nil)
	require.NoError(t, err)
	require.Equal(t, "Artemis", updated.Name)
	require.Equal(t, "desc", updated.Description)
}
