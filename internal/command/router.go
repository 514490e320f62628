package command

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kazz187/nudge/internal/clock"
	"github.com/kazz187/nudge/internal/reminder"
	"github.com/kazz187/nudge/internal/task"
	"github.com/kazz187/nudge/internal/timeparse"
	"github.com/kazz187/nudge/pkg/cerr"
	"github.com/kazz187/nudge/pkg/clog"
)

// PastDueError rejects an add whose resolved time is not after now.
type PastDueError struct {
	DueAt time.Time
	Now   time.Time
}

func (e *PastDueError) Error() string {
	return fmt.Sprintf("due time %s is not after %s", e.DueAt.Format(time.RFC3339), e.Now.Format(time.RFC3339))
}

// Router is the entry point for every user command, whatever channel it
// arrived on. Errors it returns are *cerr.Error with a displayable Msg.
type Router struct {
	store    *task.Store
	sched    *reminder.Scheduler
	resolver *timeparse.Resolver
	clock    clock.Clock
}

func NewRouter(store *task.Store, sched *reminder.Scheduler, resolver *timeparse.Resolver, c clock.Clock) *Router {
	return &Router{
		store:    store,
		sched:    sched,
		resolver: resolver,
		clock:    c,
	}
}

// Now is the current instant in the service timezone.
func (r *Router) Now() time.Time {
	return r.clock.Now().In(r.resolver.Location())
}

func (r *Router) Location() *time.Location {
	return r.resolver.Location()
}

// AddTask resolves timeText, stores the task and arms its reminder.
func (r *Router) AddTask(ctx context.Context, ownerID, description, timeText string) (*task.Task, error) {
	clog.AddOwner(ctx, ownerID)
	now := r.clock.Now()
	dueAt, err := r.resolver.Resolve(timeText, now)
	if err != nil {
		return nil, cerr.NewError(cerr.InvalidArgument, err.Error(), err)
	}
	if !dueAt.After(now) {
		return nil, cerr.NewError(cerr.FailedPrecondition,
			fmt.Sprintf("%s is not in the future", dueAt.Format("2006-01-02 15:04")),
			&PastDueError{DueAt: dueAt, Now: now})
	}
	t, err := r.store.Create(ownerID, description, dueAt)
	if err != nil {
		return nil, err
	}
	clog.AddTask(ctx, t.ID)
	r.sched.Schedule(t)
	return t, nil
}

// CompleteTask marks the task identified by idText done and cancels its
// reminder.
func (r *Router) CompleteTask(ctx context.Context, ownerID, idText string) (*task.Task, error) {
	clog.AddOwner(ctx, ownerID)
	id, err := ParseID(idText)
	if err != nil {
		return nil, err
	}
	clog.AddTask(ctx, id)
	t, err := r.store.Complete(ownerID, id)
	if err != nil {
		return nil, err
	}
	r.sched.Cancel(ownerID, id)
	return t, nil
}

func (r *Router) ListTasks(ctx context.Context, ownerID string) []*task.Task {
	clog.AddOwner(ctx, ownerID)
	return r.store.List(ownerID)
}

// ClearTasks removes every pending task of the owner and cancels their
// reminders.
func (r *Router) ClearTasks(ctx context.Context, ownerID string) []*task.Task {
	clog.AddOwner(ctx, ownerID)
	removed := r.store.Clear(ownerID)
	r.sched.CancelAll(removed)
	clog.AddAttribute(ctx, "cleared", len(removed))
	return removed
}

// ReminderState reports the scheduler state of a task, if it has one.
func (r *Router) ReminderState(ownerID string, id int) (reminder.State, bool) {
	return r.sched.State(ownerID, id)
}

// ParseID accepts "3" and "#3". Anything that is not a positive number
// cannot name a task, so it is reported as not found.
func ParseID(s string) (int, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if s == "" {
		return 0, cerr.NewError(cerr.InvalidArgument, "task id is required", nil)
	}
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, cerr.NewError(cerr.NotFound, fmt.Sprintf("task %s not found", s), err)
	}
	return id, nil
}
