package notify

import (
	"context"
	"log/slog"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	Insert(ctx context.Context, userID int64, message string) (Notification, error)
	ListForUser(ctx context.Context, userID int64, limit int) ([]Notification, error)
	MarkRead(ctx context.Context, userID, notificationID int64) error
	UnreadCount(ctx context.Context, userID int64) (int64, error)
	UserEmail(ctx context.Context, userID int64) (string, error)
}

// CachePort is the unread-count cache.
type CachePort interface {
	UnreadCount(ctx context.Context, userID int64) (int64, bool, error)
	SetUnreadCount(ctx context.Context, userID, count int64) error
	Invalidate(ctx context.Context, userID int64) error
}

// EmailEnqueuer hands email delivery to the background queue.
type EmailEnqueuer interface {
	EnqueueNotifyEmail(ctx context.Context, notificationID int64, email, message string) error
}

// Service records notifications and serves the notification API. It is the
// delivery sink of every membership and item event; a failure here is logged
// and never propagates into the operation that produced the event.
type Service struct {
	repo     RepositoryPort
	cache    CachePort
	enqueuer EmailEnqueuer
	logger   *slog.Logger
}

// NewService constructs a notify service. cache and enqueuer may be nil.
func NewService(repo RepositoryPort, cache CachePort, enqueuer EmailEnqueuer, logger *slog.Logger) *Service {
	return &Service{repo: repo, cache: cache, enqueuer: enqueuer, logger: logger}
}

// Notify records the message for the user, drops the unread-count cache, and
// queues an email copy.
func (s *Service) Notify(ctx context.Context, userID int64, message string) error {
	n, err := s.repo.Insert(ctx, userID, message)
	if err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	if s.enqueuer != nil {
		email, err := s.repo.UserEmail(ctx, userID)
		if err != nil {
			s.logError("resolve recipient email", err)
			return nil
		}
		if err := s.enqueuer.EnqueueNotifyEmail(ctx, n.ID, email, message); err != nil {
			s.logError("enqueue notification email", err)
		}
	}
	return nil
}

// ListForUser returns the user's notifications newest first.
func (s *Service) ListForUser(ctx context.Context, userID int64, limit int) ([]Notification, error) {
	return s.repo.ListForUser(ctx, userID, limit)
}

// MarkRead flags the user's notification read.
func (s *Service) MarkRead(ctx context.Context, userID, notificationID int64) error {
	if err := s.repo.MarkRead(ctx, userID, notificationID); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

// UnreadCount returns the unread count, cache first.
func (s *Service) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	if s.cache != nil {
		count, ok, err := s.cache.UnreadCount(ctx, userID)
		if err != nil {
			s.logError("read unread cache", err)
		} else if ok {
			return count, nil
		}
	}
	count, err := s.repo.UnreadCount(ctx, userID)
	if err != nil {
		return 0, err
	}
	if s.cache != nil {
		if err := s.cache.SetUnreadCount(ctx, userID, count); err != nil {
			s.logError("write unread cache", err)
		}
	}
	return count, nil
}

func (s *Service) invalidate(ctx context.Context, userID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.logError("invalidate unread cache", err)
	}
}

func (s *Service) logError(msg string, err error) {
	if s.logger != nil {
		s.logger.Error(msg, slog.Any("error", err))
	}
}
