package items

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/apslhvsl/jira-clone/internal/rbac"
)

type memoryItemsRepo struct {
	items    map[int64]Item
	comments map[int64]Comment
	projects map[int64]int64 // commentID -> projectID
	nextID   int64
}

func newMemoryItemsRepo() *memoryItemsRepo {
	return &memoryItemsRepo{
		items:    make(map[int64]Item),
		comments: make(map[int64]Comment),
		projects: make(map[int64]int64),
	}
}

func (r *memoryItemsRepo) Insert(_ context.Context, it Item) (Item, error) {
	r.nextID++
	it.ID = r.nextID
	r.items[it.ID] = it
	return it, nil
}

func (r *memoryItemsRepo) Get(_ context.Context, id int64) (Item, error) {
	it, ok := r.items[id]
	if !ok {
		return Item{}, ErrNotFound
	}
	return it, nil
}

func (r *memoryItemsRepo) List(_ context.Context, projectID int64, filter ListFilter) ([]Item, error) {
	var out []Item
	for _, it := range r.items {
		if it.ProjectID == projectID && (filter.Type == "" || it.Type == filter.Type) {
			out = append(out, it)
		}
	}
	return out, nil
}

func (r *memoryItemsRepo) ListChildren(_ context.Context, parentID int64) ([]Item, error) {
	var out []Item
	for _, it := range r.items {
		if it.ParentID != nil && *it.ParentID == parentID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (r *memoryItemsRepo) Update(_ context.Context, id int64, upd ItemUpdate) (Item, error) {
	it, ok := r.items[id]
	if !ok {
		return Item{}, ErrNotFound
	}
	if upd.Title != nil {
		it.Title = *upd.Title
	}
	if upd.Status != nil {
		it.Status = *upd.Status
	}
	if upd.AssigneeID != nil {
		it.AssigneeID = upd.AssigneeID
	}
	r.items[id] = it
	return it, nil
}

func (r *memoryItemsRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.items[id]; !ok {
		return ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *memoryItemsRepo) InsertComment(_ context.Context, itemID, authorID int64, body string) (Comment, error) {
	r.nextID++
	c := Comment{ID: r.nextID, ItemID: itemID, AuthorID: authorID, Body: body}
	r.comments[c.ID] = c
	r.projects[c.ID] = r.items[itemID].ProjectID
	return c, nil
}

func (r *memoryItemsRepo) GetComment(_ context.Context, commentID int64) (Comment, int64, error) {
	c, ok := r.comments[commentID]
	if !ok {
		return Comment{}, 0, ErrCommentNotFound
	}
	return c, r.projects[commentID], nil
}

func (r *memoryItemsRepo) ListComments(_ context.Context, itemID int64) ([]Comment, error) {
	var out []Comment
	for _, c := range r.comments {
		if c.ItemID == itemID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memoryItemsRepo) UpdateComment(_ context.Context, commentID int64, body string) (Comment, error) {
	c, ok := r.comments[commentID]
	if !ok {
		return Comment{}, ErrCommentNotFound
	}
	c.Body = body
	r.comments[commentID] = c
	return c, nil
}

func (r *memoryItemsRepo) DeleteComment(_ context.Context, commentID int64) error {
	if _, ok := r.comments[commentID]; !ok {
		return ErrCommentNotFound
	}
	delete(r.comments, commentID)
	return nil
}

type stubNotifier struct {
	messages map[int64][]string
}

func newStubNotifier() *stubNotifier {
	return &stubNotifier{messages: make(map[int64][]string)}
}

func (n *stubNotifier) Notify(_ context.Context, userID int64, message string) error {
	n.messages[userID] = append(n.messages[userID], message)
	return nil
}

type stubRecorder struct {
	actions []string
}

func (r *stubRecorder) Record(_ context.Context, _, _, _ int64, action string) error {
	r.actions = append(r.actions, action)
	return nil
}

// stubAuthorizer grants the broad action to users in anyHolders, the own
// action to users in ownHolders.
type stubAuthorizer struct {
	anyHolders map[int64]bool
	ownHolders map[int64]bool
}

func (a stubAuthorizer) AuthorizeOwned(_ context.Context, userID, _ int64, _, _ string, owners rbac.Ownership) error {
	if a.anyHolders[userID] {
		return nil
	}
	if a.ownHolders[userID] {
		if owners.Owns(userID) {
			return nil
		}
		return rbac.ErrNotOwner
	}
	return rbac.ErrMissingPermission
}

func newItemsService(repo *memoryItemsRepo, notifier *stubNotifier, recorder *stubRecorder) *Service {
	authz := stubAuthorizer{
		anyHolders: map[int64]bool{1: true},          // manager-like
		ownHolders: map[int64]bool{2: true, 3: true}, // member-like
	}
	return NewService(repo, notifier, recorder, authz, nil)
}

func TestCreateItem(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults and key", func(t *testing.T) {
		repo := newMemoryItemsRepo()
		svc := newItemsService(repo, newStubNotifier(), &stubRecorder{})

		it, err := svc.Create(ctx, 2, 10, CreateInput{Title: "Fix the build"})
		require.NoError(t, err)
		require.Equal(t, TypeTask, it.Type)
		require.Equal(t, StatusTodo, it.Status)
		require.Equal(t, PriorityMedium, it.Priority)
		require.Equal(t, int64(2), it.ReporterID)
		require.NotEmpty(t, it.Key)
	})

	t.Run("notifies assignee", func(t *testing.T) {
		repo := newMemoryItemsRepo()
		notifier := newStubNotifier()
		recorder := &stubRecorder{}
		svc := newItemsService(repo, notifier, recorder)

		assignee := int64(3)
		_, err := svc.Create(ctx, 2, 10, CreateInput{Title: "Fix the build", AssigneeID: &assignee})
		require.NoError(t, err)
		require.Len(t, notifier.messages[3], 1)
		require.Len(t, recorder.actions, 1)
	})

	t.Run("self-assignment is silent", func(t *testing.T) {
		repo := newMemoryItemsRepo()
		notifier := newStubNotifier()
		svc := newItemsService(repo, notifier, &stubRecorder{})

		assignee := int64(2)
		_, err := svc.Create(ctx, 2, 10, CreateInput{Title: "Fix the build", AssigneeID: &assignee})
		require.NoError(t, err)
		require.Empty(t, notifier.messages[2])
	})

	t.Run("validation", func(t *testing.T) {
		repo := newMemoryItemsRepo()
		svc := newItemsService(repo, newStubNotifier(), &stubRecorder{})

		_, err := svc.Create(ctx, 2, 10, CreateInput{Title: "  "})
		require.ErrorIs(t, err, ErrInvalidTitle)

		long := make([]byte, MaxTitleLength+1)
		for i := range long {
			long[i] = 'x'
		}
		_, err = svc.Create(ctx, 2, 10, CreateInput{Title: string(long)})
		require.ErrorIs(t, err, ErrInvalidTitle)

		_, err = svc.Create(ctx, 2, 10, CreateInput{Title: "ok", Type: "story"})
		require.ErrorIs(t, err, ErrInvalidType)

		_, err = svc.Create(ctx, 2, 10, CreateInput{Title: "ok", Status: "blocked"})
		require.ErrorIs(t, err, ErrInvalidStatus)

		_, err = svc.Create(ctx, 2, 10, CreateInput{Title: "ok", Priority: "Urgent"})
		require.ErrorIs(t, err, ErrInvalidPriority)
	})

	t.Run("title length counts characters not bytes", func(t *testing.T) {
		repo := newMemoryItemsRepo()
		svc := newItemsService(repo, newStubNotifier(), &stubRecorder{})

		_, err := svc.Create(ctx, 2, 10, CreateInput{Title: strings.Repeat("ü", MaxTitleLength)})
		require.NoError(t, err)

		_, err = svc.Create(ctx, 2, 10, CreateInput{Title: strings.Repeat("ü", MaxTitleLength+1)})
		require.ErrorIs(t, err, ErrInvalidTitle)
	})
}

func TestUpdateItem(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryItemsRepo()
	notifier := newStubNotifier()
	recorder := &stubRecorder{}
	svc := newItemsService(repo, notifier, recorder)

	created, err := svc.Create(ctx, 2, 10, CreateInput{Title: "Fix the build"})
	require.NoError(t, err)

	assignee := int64(3)
	updated, err := svc.Update(ctx, 2, created.ID, ItemUpdate{AssigneeID: &assignee})
	require.NoError(t, err)
	require.Equal(t, assignee, *updated.AssigneeID)
	require.Len(t, notifier.messages[3], 1)

	// Re-saving the same assignee does not notify again.
	_, err = svc.Update(ctx, 2, created.ID, ItemUpdate{AssigneeID: &assignee})
	require.NoError(t, err)
	require.Len(t, notifier.messages[3], 1)

	status := StatusDone
	_, err = svc.Update(ctx, 2, created.ID, ItemUpdate{Status: &status})
	require.NoError(t, err)

	bad := "blocked"
	_, err = svc.Update(ctx, 2, created.ID, ItemUpdate{Status: &bad})
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestDeleteItem(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryItemsRepo()
	recorder := &stubRecorder{}
	svc := newItemsService(repo, newStubNotifier(), recorder)

	created, err := svc.Create(ctx, 2, 10, CreateInput{Title: "Fix the build"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, 2, created.ID))
	require.ErrorIs(t, svc.Delete(ctx, 2, created.ID), ErrNotFound)
	require.Len(t, recorder.actions, 2) // create + delete
}

func TestSubtasks(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryItemsRepo()
	notifier := newStubNotifier()
	svc := newItemsService(repo, notifier, &stubRecorder{})

	parent, err := svc.Create(ctx, 2, 10, CreateInput{Title: "Ship the release"})
	require.NoError(t, err)

	assignee := int64(3)
	child, err := svc.CreateSubtask(ctx, 2, parent.ID, CreateInput{Title: "Write changelog", AssigneeID: &assignee})
	require.NoError(t, err)
	require.Equal(t, parent.ProjectID, child.ProjectID)
	require.NotNil(t, child.ParentID)
	require.Equal(t, parent.ID, *child.ParentID)
	require.Len(t, notifier.messages[3], 1)

	subtasks, err := svc.ListSubtasks(ctx, parent.ID)
	require.NoError(t, err)
	require.Len(t, subtasks, 1)
	require.Equal(t, child.ID, subtasks[0].ID)

	_, err = svc.CreateSubtask(ctx, 2, 404, CreateInput{Title: "orphan"})
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.ListSubtasks(ctx, 404)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAddCommentNotifies(t *testing.T) {
	ctx := context.Background()

	newItem := func(t *testing.T, svc *Service, assignee *int64) Item {
		t.Helper()
		it, err := svc.Create(ctx, 2, 10, CreateInput{Title: "Fix the build", AssigneeID: assignee})
		require.NoError(t, err)
		return it
	}

	t.Run("third party comment notifies reporter and assignee", func(t *testing.T) {
		notifier := newStubNotifier()
		svc := newItemsService(newMemoryItemsRepo(), notifier, &stubRecorder{})
		assignee := int64(3)
		it := newItem(t, svc, &assignee)
		notifier.messages = map[int64][]string{} // drop the assignment notification

		_, err := svc.AddComment(ctx, 1, it.ID, "any update?")
		require.NoError(t, err)
		require.Len(t, notifier.messages[2], 1)
		require.Len(t, notifier.messages[3], 1)
		require.Empty(t, notifier.messages[1])
	})

	t.Run("commenting user is skipped", func(t *testing.T) {
		notifier := newStubNotifier()
		svc := newItemsService(newMemoryItemsRepo(), notifier, &stubRecorder{})
		assignee := int64(3)
		it := newItem(t, svc, &assignee)
		notifier.messages = map[int64][]string{}

		_, err := svc.AddComment(ctx, 3, it.ID, "on it")
		require.NoError(t, err)
		require.Len(t, notifier.messages[2], 1)
		require.Empty(t, notifier.messages[3])
	})

	t.Run("reporter doubling as assignee gets one notification", func(t *testing.T) {
		notifier := newStubNotifier()
		svc := newItemsService(newMemoryItemsRepo(), notifier, &stubRecorder{})
		assignee := int64(2)
		it := newItem(t, svc, &assignee)
		notifier.messages = map[int64][]string{}

		_, err := svc.AddComment(ctx, 1, it.ID, "ping")
		require.NoError(t, err)
		require.Len(t, notifier.messages[2], 1)
	})
}

func TestCommentOwnership(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryItemsRepo()
	svc := newItemsService(repo, newStubNotifier(), &stubRecorder{})

	item, err := svc.Create(ctx, 2, 10, CreateInput{Title: "Fix the build"})
	require.NoError(t, err)

	comment, err := svc.AddComment(ctx, 3, item.ID, "looks wrong")
	require.NoError(t, err)

	t.Run("author edits own comment", func(t *testing.T) {
		edited, err := svc.EditComment(ctx, 3, comment.ID, "looks fine actually")
		require.NoError(t, err)
		require.Equal(t, "looks fine actually", edited.Body)
	})

	t.Run("other member cannot edit", func(t *testing.T) {
		_, err := svc.EditComment(ctx, 2, comment.ID, "hijack")
		require.ErrorIs(t, err, rbac.ErrNotOwner)
	})

	t.Run("broad permission bypasses ownership", func(t *testing.T) {
		_, err := svc.EditComment(ctx, 1, comment.ID, "moderated")
		require.NoError(t, err)
	})

	t.Run("author deletes own comment", func(t *testing.T) {
		require.NoError(t, svc.DeleteComment(ctx, 3, comment.ID))
		_, _, err := repo.GetComment(ctx, comment.ID)
		require.ErrorIs(t, err, ErrCommentNotFound)
	})

	t.Run("empty body rejected", func(t *testing.T) {
		_, err := svc.AddComment(ctx, 3, item.ID, "   ")
		require.ErrorIs(t, err, ErrEmptyComment)
	})
}
