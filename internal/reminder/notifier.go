package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kazz187/nudge/internal/task"
)

// Notifier delivers a message to an owner over the outbound channel.
type Notifier interface {
	Notify(ctx context.Context, ownerID, text string) error
}

type NotifierFunc func(ctx context.Context, ownerID, text string) error

func (f NotifierFunc) Notify(ctx context.Context, ownerID, text string) error {
	return f(ctx, ownerID, text)
}

// LogNotifier only writes messages to the log. Used when no push channel is
// configured.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, ownerID, text string) error {
	slog.InfoContext(ctx, "notification", "owner_id", ownerID, "text", text)
	return nil
}

// Messages renders the texts the scheduler sends.
type Messages interface {
	Initial(t *task.Task) string
	Escalation(t *task.Task, overdue time.Duration) string
}

// DeliveryError is a failed send. It is logged and never changes the state
// of the reminder.
type DeliveryError struct {
	OwnerID string
	TaskID  int
	State   State
	Err     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver %s reminder for task #%d to %s: %v", e.State, e.TaskID, e.OwnerID, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
