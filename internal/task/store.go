package task

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/kazz187/nudge/internal/eventbus"
	"github.com/kazz187/nudge/pkg/cerr"
)

// Store holds the pending tasks of every owner in memory. Each owner's set
// has its own lock, so all operations on one owner are linearizable while
// different owners proceed in parallel.
type Store struct {
	mu     sync.Mutex
	owners map[string]*ownerSet
	bus    *eventbus.Bus
	now    func() time.Time
}

type ownerSet struct {
	mu     sync.Mutex
	nextID int
	tasks  []*Task
}

type Option func(*Store)

// WithEventBus publishes a lifecycle event after every mutation.
func WithEventBus(bus *eventbus.Bus) Option {
	return func(s *Store) {
		s.bus = bus
	}
}

func WithNow(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		owners: make(map[string]*ownerSet),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// set returns the owner's set, creating it on first use. Sets are never
// removed, only emptied.
func (s *Store) set(ownerID string) *ownerSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.owners[ownerID]
	if !ok {
		o = &ownerSet{nextID: 1}
		s.owners[ownerID] = o
	}
	return o
}

func (s *Store) publish(t eventbus.EventType, ownerID string, taskID int, metadata map[string]string) {
	if s.bus != nil {
		s.bus.PublishNew(t, ownerID, taskID, metadata)
	}
}

func notFound(id int) error {
	return cerr.NewError(cerr.NotFound, fmt.Sprintf("task #%d not found", id), nil)
}

// Create appends a pending task. Ids come from a per-owner counter that never
// goes back, so an id is never handed out twice for the same owner.
func (s *Store) Create(ownerID, description string, dueAt time.Time) (*Task, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, cerr.NewError(cerr.InvalidArgument, "description must not be empty", nil)
	}
	if ownerID == "" {
		return nil, cerr.NewError(cerr.InvalidArgument, "owner must not be empty", nil)
	}

	o := s.set(ownerID)
	o.mu.Lock()
	t := &Task{
		ID:          o.nextID,
		OwnerID:     ownerID,
		Description: description,
		DueAt:       dueAt,
		Status:      StatusPending,
		CreatedAt:   s.now(),
	}
	o.nextID++
	o.tasks = append(o.tasks, t)
	out := t.clone()
	o.mu.Unlock()

	s.publish(eventbus.EventTaskCreated, ownerID, out.ID, nil)
	return out, nil
}

// Find returns the task only while it is pending.
func (s *Store) Find(ownerID string, id int) (*Task, error) {
	o := s.set(ownerID)
	o.mu.Lock()
	defer o.mu.Unlock()
	i := o.index(id)
	if i < 0 {
		return nil, notFound(id)
	}
	return o.tasks[i].clone(), nil
}

// IsPending reports whether the task is still in the owner's active set.
func (s *Store) IsPending(ownerID string, id int) bool {
	_, err := s.Find(ownerID, id)
	return err == nil
}

// Complete marks the task completed and drops it from the active set in one
// step. A second call for the same id returns NotFound.
func (s *Store) Complete(ownerID string, id int) (*Task, error) {
	o := s.set(ownerID)
	o.mu.Lock()
	i := o.index(id)
	if i < 0 {
		o.mu.Unlock()
		return nil, notFound(id)
	}
	t := o.tasks[i]
	o.tasks = slices.Delete(o.tasks, i, i+1)
	t.Status = StatusCompleted
	t.CompletedAt = s.now()
	o.mu.Unlock()

	s.publish(eventbus.EventTaskCompleted, ownerID, t.ID, nil)
	return t, nil
}

// List returns the owner's pending tasks in insertion order.
func (s *Store) List(ownerID string) []*Task {
	o := s.set(ownerID)
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.copyTasks()
}

// Clear removes and returns every pending task of the owner.
func (s *Store) Clear(ownerID string) []*Task {
	o := s.set(ownerID)
	o.mu.Lock()
	removed := o.tasks
	o.tasks = nil
	o.mu.Unlock()

	if len(removed) > 0 {
		s.publish(eventbus.EventTasksCleared, ownerID, 0, map[string]string{
			"count": fmt.Sprint(len(removed)),
		})
	}
	return removed
}

// Owners lists every owner the store has seen, sorted.
func (s *Store) Owners() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	owners := make([]string, 0, len(s.owners))
	for id := range s.owners {
		owners = append(owners, id)
	}
	slices.Sort(owners)
	return owners
}

// Snapshot captures the owner's counter and pending tasks.
func (s *Store) Snapshot(ownerID string) *OwnerSnapshot {
	o := s.set(ownerID)
	o.mu.Lock()
	defer o.mu.Unlock()
	return &OwnerSnapshot{
		OwnerID: ownerID,
		NextID:  o.nextID,
		Tasks:   o.copyTasks(),
	}
}

// Restore replaces the owner's set with a snapshot and returns the pending
// tasks it now holds. Completed entries are dropped and the counter is moved
// past every restored id.
func (s *Store) Restore(snap *OwnerSnapshot) []*Task {
	o := s.set(snap.OwnerID)
	o.mu.Lock()
	defer o.mu.Unlock()

	o.nextID = max(snap.NextID, 1)
	o.tasks = nil
	for _, t := range snap.Tasks {
		if t == nil || t.Status != StatusPending {
			continue
		}
		c := t.clone()
		c.OwnerID = snap.OwnerID
		o.tasks = append(o.tasks, c)
		if c.ID >= o.nextID {
			o.nextID = c.ID + 1
		}
	}
	return o.copyTasks()
}

func (o *ownerSet) index(id int) int {
	return slices.IndexFunc(o.tasks, func(t *Task) bool { return t.ID == id })
}

func (o *ownerSet) copyTasks() []*Task {
	out := make([]*Task, 0, len(o.tasks))
	for _, t := range o.tasks {
		out = append(out, t.clone())
	}
	return out
}
