package notify

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type memoryNotifyRepo struct {
	rows   map[int64]Notification
	emails map[int64]string
	counts int // UnreadCount calls, to observe cache hits
	nextID int64
}

func newMemoryNotifyRepo() *memoryNotifyRepo {
	return &memoryNotifyRepo{
		rows:   make(map[int64]Notification),
		emails: make(map[int64]string),
	}
}

func (r *memoryNotifyRepo) Insert(_ context.Context, userID int64, message string) (Notification, error) {
	r.nextID++
	n := Notification{ID: r.nextID, UserID: userID, Message: message}
	r.rows[n.ID] = n
	return n, nil
}

func (r *memoryNotifyRepo) ListForUser(_ context.Context, userID int64, _ int) ([]Notification, error) {
	var out []Notification
	for _, n := range r.rows {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *memoryNotifyRepo) MarkRead(_ context.Context, userID, notificationID int64) error {
	n, ok := r.rows[notificationID]
	if !ok || n.UserID != userID {
		return ErrNotFound
	}
	n.IsRead = true
	r.rows[notificationID] = n
	return nil
}

func (r *memoryNotifyRepo) UnreadCount(_ context.Context, userID int64) (int64, error) {
	r.counts++
	var count int64
	for _, n := range r.rows {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *memoryNotifyRepo) UserEmail(_ context.Context, userID int64) (string, error) {
	email, ok := r.emails[userID]
	if !ok {
		return "", ErrNotFound
	}
	return email, nil
}

type recordingEnqueuer struct {
	sent []string
}

func (e *recordingEnqueuer) EnqueueNotifyEmail(_ context.Context, _ int64, email, _ string) error {
	e.sent = append(e.sent, email)
	return nil
}

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client), mr
}

func TestNotifyRecordsAndEnqueues(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryNotifyRepo()
	repo.emails[5] = "user5@tracker.local"
	cache, _ := newTestCache(t)
	enqueuer := &recordingEnqueuer{}
	svc := NewService(repo, cache, enqueuer, nil)

	require.NoError(t, svc.Notify(ctx, 5, "You have been invited to join project 10."))

	list, err := svc.ListForUser(ctx, 5, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.False(t, list[0].IsRead)

	require.Equal(t, []string{"user5@tracker.local"}, enqueuer.sent)
}

func TestNotifyUnknownRecipientStillRecords(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryNotifyRepo()
	cache, _ := newTestCache(t)
	svc := NewService(repo, cache, &recordingEnqueuer{}, nil)

	// Missing email only skips the email copy; the row is still written.
	require.NoError(t, svc.Notify(ctx, 5, "hello"))
	list, _ := svc.ListForUser(ctx, 5, 0)
	require.Len(t, list, 1)
}

func TestUnreadCountCache(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryNotifyRepo()
	repo.emails[5] = "user5@tracker.local"
	cache, _ := newTestCache(t)
	svc := NewService(repo, cache, nil, nil)

	require.NoError(t, svc.Notify(ctx, 5, "one"))
	require.NoError(t, svc.Notify(ctx, 5, "two"))

	count, err := svc.UnreadCount(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)
	dbReads := repo.counts

	// Second read is served from the cache.
	count, err = svc.UnreadCount(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)
	require.Equal(t, dbReads, repo.counts)

	// Marking read invalidates the cache.
	list, _ := svc.ListForUser(ctx, 5, 0)
	require.NoError(t, svc.MarkRead(ctx, 5, list[0].ID))

	count, err = svc.UnreadCount(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
	require.Greater(t, repo.counts, dbReads)
}

func TestMarkReadScopedToOwner(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryNotifyRepo()
	cache, _ := newTestCache(t)
	svc := NewService(repo, cache, nil, nil)

	require.NoError(t, svc.Notify(ctx, 5, "hello"))
	list, _ := svc.ListForUser(ctx, 5, 0)

	require.ErrorIs(t, svc.MarkRead(ctx, 9, list[0].ID), ErrNotFound)
	require.NoError(t, svc.MarkRead(ctx, 5, list[0].ID))
}

func TestCacheDegradesWhenRedisDown(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryNotifyRepo()
	cache, mr := newTestCache(t)
	svc := NewService(repo, cache, nil, nil)

	require.NoError(t, svc.Notify(ctx, 5, "hello"))
	mr.Close()

	// Counting falls back to the repository.
	count, err := svc.UnreadCount(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}
