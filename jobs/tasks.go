package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeNotifyEmail is the task type for emailing a notification copy.
	TaskTypeNotifyEmail = "notify:email"
)

// NotifyEmailPayload carries one notification email.
type NotifyEmailPayload struct {
	NotificationID int64  `json:"notification_id"`
	To             string `json:"to"`
	Message        string `json:"message"`
}

// NewNotifyEmailTask constructs an Asynq task. The task id is derived from
// the notification row, so a retried enqueue of the same row is deduplicated
// rather than mailed twice.
func NewNotifyEmailTask(payload NotifyEmailPayload) (*asynq.Task, []asynq.Option, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("notify-email-%d", payload.NotificationID)))
	opts := []asynq.Option{
		asynq.Queue(QueueDefault),
		asynq.TaskID(id.String()),
	}
	return asynq.NewTask(TaskTypeNotifyEmail, data), opts, nil
}

// Mailer delivers a single message.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// NewNotifyEmailHandler returns the worker handler for TaskTypeNotifyEmail.
func NewNotifyEmailHandler(mailer Mailer, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload NotifyEmailPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if err := mailer.Send(ctx, payload.To, "New notification", payload.Message); err != nil {
			if logger != nil {
				logger.Warn("notification email failed",
					slog.Int64("notification_id", payload.NotificationID),
					slog.Any("error", err))
			}
			return err
		}
		return nil
	}
}
