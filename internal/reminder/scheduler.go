package reminder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kazz187/nudge/internal/clock"
	"github.com/kazz187/nudge/internal/task"
	"github.com/kazz187/nudge/pkg/clog"
	"github.com/kazz187/nudge/pkg/panicerr"
)

const DefaultInterval = time.Hour

// Liveness tells the scheduler whether a task still wants reminders. It is
// asked every time a timer fires.
type Liveness interface {
	IsPending(ownerID string, id int) bool
}

type Key struct {
	OwnerID string
	TaskID  int
}

type entry struct {
	mu    sync.Mutex
	task  task.Task
	state State
	timer clock.Timer
	// ticks counts escalation slots consumed; the next one fires at
	// DueAt + (ticks+1)*interval.
	ticks int
}

// Scheduler runs one timer lifecycle per pending task:
// scheduled -> fired_initial -> escalating (repeats) -> cancelled.
type Scheduler struct {
	clock    clock.Clock
	live     Liveness
	notifier Notifier
	messages Messages
	interval time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	entries map[Key]*entry
	stopped bool
	wg      sync.WaitGroup
}

type Option func(*Scheduler)

func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithClock(c clock.Clock) Option {
	return func(s *Scheduler) {
		s.clock = c
	}
}

func NewScheduler(live Liveness, notifier Notifier, messages Messages, opts ...Option) *Scheduler {
	s := &Scheduler{
		clock:    clock.Real(),
		live:     live,
		notifier: notifier,
		messages: messages,
		interval: DefaultInterval,
		entries:  make(map[Key]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Schedule arms the reminder for a pending task. A task whose due time has
// already passed fires right away. Scheduling a task that already has a
// lifecycle replaces it.
func (s *Scheduler) Schedule(t *task.Task) {
	key := Key{OwnerID: t.OwnerID, TaskID: t.ID}
	e := &entry{task: *t, state: StateScheduled}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	old := s.entries[key]
	s.entries[key] = e
	e.mu.Lock()
	e.timer = s.clock.AfterFunc(max(t.DueAt.Sub(s.clock.Now()), 0), func() { s.fire(key, e) })
	e.mu.Unlock()
	s.mu.Unlock()

	if old != nil {
		old.stop()
	}
	slog.Debug("reminder scheduled", clog.OwnerAttributeKey, key.OwnerID, clog.TaskAttributeKey, key.TaskID, "due_at", t.DueAt)

	// a clear may have removed the task between creation and now
	if !s.live.IsPending(key.OwnerID, key.TaskID) {
		s.Cancel(key.OwnerID, key.TaskID)
	}
}

// Cancel moves the task's reminder to cancelled and releases its timer. It
// reports whether a lifecycle existed. A send already under way may still
// complete, but nothing is armed after it.
func (s *Scheduler) Cancel(ownerID string, id int) bool {
	key := Key{OwnerID: ownerID, TaskID: id}
	s.mu.Lock()
	e, ok := s.entries[key]
	if ok {
		delete(s.entries, key)
	}
	s.mu.Unlock()
	if !ok {
		return false
	}
	e.stop()
	slog.Debug("reminder cancelled", clog.OwnerAttributeKey, ownerID, clog.TaskAttributeKey, id)
	return true
}

// CancelAll cancels the reminders of the given tasks and returns how many
// were live.
func (s *Scheduler) CancelAll(tasks []*task.Task) int {
	n := 0
	for _, t := range tasks {
		if s.Cancel(t.OwnerID, t.ID) {
			n++
		}
	}
	return n
}

// State returns the current state of the task's reminder. Tasks without a
// lifecycle report false.
func (s *Scheduler) State(ownerID string, id int) (State, bool) {
	s.mu.Lock()
	e, ok := s.entries[Key{OwnerID: ownerID, TaskID: id}]
	s.mu.Unlock()
	if !ok {
		return 0, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state, true
}

// Active returns the number of live lifecycles.
func (s *Scheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Stop releases every timer and waits for callbacks in flight. In-flight
// sends see a cancelled context.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	entries := s.entries
	s.entries = make(map[Key]*entry)
	s.mu.Unlock()

	for _, e := range entries {
		e.stop()
	}
	s.cancel()
	s.wg.Wait()
}

func (e *entry) stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = StateCancelled
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

func (s *Scheduler) forget(key Key, e *entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entries[key] == e {
		delete(s.entries, key)
	}
}

func (s *Scheduler) fire(key Key, e *entry) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	ctx := clog.ContextWithSlog(s.ctx)
	clog.AddOwner(ctx, key.OwnerID)
	clog.AddTask(ctx, key.TaskID)
	if err := panicerr.Safe(func() error { s.step(ctx, key, e); return nil })(); err != nil {
		clog.AddError(ctx, err)
		slog.ErrorContext(ctx, "reminder callback panicked")
	}
}

// step runs one firing. The liveness check happens under the entry lock, the
// send happens outside it, and the next timer is armed only if nobody
// cancelled in between.
func (s *Scheduler) step(ctx context.Context, key Key, e *entry) {
	e.mu.Lock()
	if e.state == StateCancelled {
		e.mu.Unlock()
		return
	}
	e.timer = nil
	if !s.live.IsPending(key.OwnerID, key.TaskID) {
		e.state = StateCancelled
		e.mu.Unlock()
		s.forget(key, e)
		slog.DebugContext(ctx, "reminder dropped, task no longer pending")
		return
	}

	now := s.clock.Now()
	var text string
	if e.state == StateScheduled {
		e.state = StateFiredInitial
		text = s.messages.Initial(&e.task)
	} else {
		text = s.messages.Escalation(&e.task, s.truncate(e.task.Overdue(now)))
	}
	state := e.state
	e.mu.Unlock()

	clog.AddAttribute(ctx, "state", state.String())
	notify := panicerr.SafeContext(func(ctx context.Context) error {
		return s.notifier.Notify(ctx, key.OwnerID, text)
	})
	if err := notify(ctx); err != nil {
		clog.AddError(ctx, &DeliveryError{OwnerID: key.OwnerID, TaskID: key.TaskID, State: state, Err: err})
		slog.WarnContext(ctx, "reminder delivery failed")
	} else {
		slog.InfoContext(ctx, "reminder sent")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateCancelled {
		return
	}
	e.state = StateEscalating
	e.ticks++
	now = s.clock.Now()
	next := e.task.DueAt.Add(time.Duration(e.ticks) * s.interval)
	if !next.After(now) {
		// behind schedule, e.g. restored long after the due time
		e.ticks = int(now.Sub(e.task.DueAt)/s.interval) + 1
		next = e.task.DueAt.Add(time.Duration(e.ticks) * s.interval)
	}
	e.timer = s.clock.AfterFunc(next.Sub(now), func() { s.fire(key, e) })
}

// truncate rounds an overdue duration down to the unit escalations are
// counted in.
func (s *Scheduler) truncate(d time.Duration) time.Duration {
	if s.interval >= time.Hour {
		return d.Truncate(time.Hour)
	}
	return d.Truncate(time.Minute)
}
