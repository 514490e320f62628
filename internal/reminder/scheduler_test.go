package reminder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/nudge/internal/catalog"
	"github.com/kazz187/nudge/internal/clock/clocktest"
	"github.com/kazz187/nudge/internal/task"
	"github.com/kazz187/nudge/internal/timeparse"
)

type sent struct {
	at      time.Time
	ownerID string
	text    string
}

type recorder struct {
	mu    sync.Mutex
	clock interface{ Now() time.Time }
	sends []sent
	fail  bool
	hook  func()
}

func (r *recorder) Notify(_ context.Context, ownerID, text string) error {
	r.mu.Lock()
	r.sends = append(r.sends, sent{at: r.clock.Now(), ownerID: ownerID, text: text})
	fail, hook := r.fail, r.hook
	r.mu.Unlock()
	if hook != nil {
		hook()
	}
	if fail {
		return errors.New("channel unavailable")
	}
	return nil
}

func (r *recorder) all() []sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sent(nil), r.sends...)
}

type fixture struct {
	loc   *time.Location
	clock *clocktest.Fake
	store *task.Store
	rec   *recorder
	sched *Scheduler
}

func newFixture(t *testing.T, start time.Time) *fixture {
	t.Helper()
	msgs, err := catalog.New(start.Location())
	require.NoError(t, err)
	f := &fixture{loc: start.Location(), clock: clocktest.NewFake(start)}
	f.store = task.NewStore(task.WithNow(f.clock.Now))
	f.rec = &recorder{clock: f.clock}
	f.sched = NewScheduler(f.store, f.rec, msgs, WithClock(f.clock), WithInterval(time.Hour))
	t.Cleanup(f.sched.Stop)
	return f
}

func (f *fixture) add(t *testing.T, owner, desc string, due time.Time) *task.Task {
	t.Helper()
	created, err := f.store.Create(owner, desc, due)
	require.NoError(t, err)
	f.sched.Schedule(created)
	return created
}

func (f *fixture) at(hour, minute int) time.Time {
	now := f.clock.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, f.loc)
}

func bangkok(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Bangkok")
	require.NoError(t, err)
	return loc
}

func TestScheduler_CallMomScenario(t *testing.T) {
	loc := bangkok(t)
	f := newFixture(t, time.Date(2025, 3, 10, 10, 0, 0, 0, loc))

	due, err := timeparse.NewResolver(loc, 2024).Resolve("14:30", f.clock.Now())
	require.NoError(t, err)
	assert.True(t, f.at(14, 30).Equal(due))
	created := f.add(t, "U1", "call mom", due)

	state, ok := f.sched.State("U1", created.ID)
	require.True(t, ok)
	assert.Equal(t, StateScheduled, state)

	f.clock.Set(f.at(14, 29))
	assert.Empty(t, f.rec.all())

	f.clock.Set(f.at(14, 30))
	sends := f.rec.all()
	require.Len(t, sends, 1)
	assert.Equal(t, "U1", sends[0].ownerID)
	assert.Contains(t, sends[0].text, "call mom")
	assert.True(t, f.at(14, 30).Equal(sends[0].at))
	state, _ = f.sched.State("U1", created.ID)
	assert.Equal(t, StateEscalating, state)

	f.clock.Set(f.at(15, 30))
	sends = f.rec.all()
	require.Len(t, sends, 2)
	assert.True(t, f.at(15, 30).Equal(sends[1].at))
	assert.Contains(t, sends[1].text, "call mom")
	assert.Contains(t, sends[1].text, "1 hour")

	f.clock.Set(f.at(15, 45))
	_, err = f.store.Complete("U1", created.ID)
	require.NoError(t, err)
	assert.True(t, f.sched.Cancel("U1", created.ID))

	f.clock.Set(f.at(16, 30))
	f.clock.Advance(5 * time.Hour)
	assert.Len(t, f.rec.all(), 2)
	assert.Zero(t, f.sched.Active())
	assert.Zero(t, f.clock.Pending())
	_, ok = f.sched.State("U1", created.ID)
	assert.False(t, ok)
}

func TestScheduler_EscalationCitesOverdueHours(t *testing.T) {
	f := newFixture(t, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	f.add(t, "U1", "water plants", f.at(10, 0))

	f.clock.Set(f.at(13, 0))
	sends := f.rec.all()
	require.Len(t, sends, 4)
	assert.Contains(t, sends[1].text, "1 hour")
	assert.Contains(t, sends[2].text, "2 hours")
	assert.Contains(t, sends[3].text, "3 hours")
	for i, s := range sends {
		assert.True(t, f.at(10+i, 0).Equal(s.at), "send %d at %s", i, s.at)
	}
}

func TestScheduler_ClearCancelsEverything(t *testing.T) {
	f := newFixture(t, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	f.add(t, "U1", "a", f.at(10, 0))
	f.add(t, "U1", "b", f.at(11, 0))
	f.add(t, "U1", "c", f.at(16, 0))
	other := f.add(t, "U2", "someone else", f.at(12, 30))

	f.clock.Set(f.at(12, 15))
	for _, id := range []int{1, 2} {
		state, ok := f.sched.State("U1", id)
		require.True(t, ok)
		assert.Equal(t, StateEscalating, state)
	}
	state, _ := f.sched.State("U1", 3)
	assert.Equal(t, StateScheduled, state)
	before := len(f.rec.all())

	removed := f.store.Clear("U1")
	require.Len(t, removed, 3)
	assert.Equal(t, 3, f.sched.CancelAll(removed))
	assert.Empty(t, f.store.List("U1"))

	f.clock.Advance(6 * time.Hour)
	for _, s := range f.rec.all()[before:] {
		assert.Equal(t, "U2", s.ownerID, "unexpected send %q", s.text)
	}
	state, ok := f.sched.State("U2", other.ID)
	require.True(t, ok)
	assert.Equal(t, StateEscalating, state)
	assert.Equal(t, 1, f.sched.Active())
}

func TestScheduler_FailedInitialSendStillEscalates(t *testing.T) {
	f := newFixture(t, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	f.rec.fail = true
	created := f.add(t, "U1", "pay rent", f.at(10, 0))

	f.clock.Set(f.at(10, 0))
	require.Len(t, f.rec.all(), 1)
	state, _ := f.sched.State("U1", created.ID)
	assert.Equal(t, StateEscalating, state)

	f.rec.mu.Lock()
	f.rec.fail = false
	f.rec.mu.Unlock()
	f.clock.Set(f.at(11, 0))
	sends := f.rec.all()
	require.Len(t, sends, 2)
	assert.Contains(t, sends[1].text, "1 hour")
}

func TestScheduler_LivenessCheckedAtFireTime(t *testing.T) {
	f := newFixture(t, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	created := f.add(t, "U1", "stale", f.at(10, 0))

	// completed in the store, but the timer was never cancelled
	_, err := f.store.Complete("U1", created.ID)
	require.NoError(t, err)

	f.clock.Advance(3 * time.Hour)
	assert.Empty(t, f.rec.all())
	assert.Zero(t, f.sched.Active())
	assert.Zero(t, f.clock.Pending())
}

func TestScheduler_StaleEscalationTickSendsNothing(t *testing.T) {
	f := newFixture(t, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	created := f.add(t, "U1", "stale", f.at(10, 0))
	f.clock.Set(f.at(10, 0))
	require.Len(t, f.rec.all(), 1)

	_, err := f.store.Complete("U1", created.ID)
	require.NoError(t, err)
	f.clock.Advance(3 * time.Hour)
	assert.Len(t, f.rec.all(), 1)
	assert.Zero(t, f.sched.Active())
}

func TestScheduler_CancelDuringSend(t *testing.T) {
	f := newFixture(t, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	created := f.add(t, "U1", "racing", f.at(10, 0))
	f.rec.hook = func() {
		_, _ = f.store.Complete("U1", created.ID)
		f.sched.Cancel("U1", created.ID)
	}

	f.clock.Set(f.at(10, 0))
	// the send already under way completes, nothing is armed after it
	assert.Len(t, f.rec.all(), 1)
	assert.Zero(t, f.clock.Pending())
	f.clock.Advance(4 * time.Hour)
	assert.Len(t, f.rec.all(), 1)
}

func TestScheduler_PastDueFiresImmediatelyThenFollowsGrid(t *testing.T) {
	f := newFixture(t, time.Date(2025, 3, 10, 12, 30, 0, 0, time.UTC))
	f.add(t, "U1", "restored", f.at(10, 0))

	f.clock.Advance(0)
	sends := f.rec.all()
	require.Len(t, sends, 1)
	assert.NotContains(t, sends[0].text, "Overdue")

	f.clock.Set(f.at(12, 59))
	assert.Len(t, f.rec.all(), 1)
	f.clock.Set(f.at(13, 0))
	sends = f.rec.all()
	require.Len(t, sends, 2)
	assert.Contains(t, sends[1].text, "3 hours")
}

func TestScheduler_RescheduleReplacesLifecycle(t *testing.T) {
	f := newFixture(t, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	created := f.add(t, "U1", "once", f.at(10, 0))
	f.sched.Schedule(created)

	assert.Equal(t, 1, f.sched.Active())
	assert.Equal(t, 1, f.clock.Pending())
	f.clock.Set(f.at(10, 0))
	assert.Len(t, f.rec.all(), 1)
}

func TestScheduler_ScheduleRemovedTask(t *testing.T) {
	f := newFixture(t, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	created, err := f.store.Create("U1", "gone", f.at(10, 0))
	require.NoError(t, err)
	f.store.Clear("U1")

	f.sched.Schedule(created)
	assert.Zero(t, f.sched.Active())
	assert.Zero(t, f.clock.Pending())
}

func TestScheduler_NotifierPanicIsContained(t *testing.T) {
	f := newFixture(t, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	panicky := NotifierFunc(func(context.Context, string, string) error { panic("boom") })
	msgs, err := catalog.New(time.UTC)
	require.NoError(t, err)
	s := NewScheduler(f.store, panicky, msgs, WithClock(f.clock))
	t.Cleanup(s.Stop)

	created, err := f.store.Create("U1", "explode", f.at(10, 0))
	require.NoError(t, err)
	s.Schedule(created)

	assert.NotPanics(t, func() { f.clock.Set(f.at(10, 0)) })
	// a panicking channel counts as a failed send
	state, ok := s.State("U1", created.ID)
	require.True(t, ok)
	assert.Equal(t, StateEscalating, state)
	assert.Equal(t, 1, f.clock.Pending())
}

func TestScheduler_Stop(t *testing.T) {
	f := newFixture(t, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	f.add(t, "U1", "a", f.at(10, 0))
	f.sched.Stop()

	assert.Zero(t, f.sched.Active())
	assert.Zero(t, f.clock.Pending())
	f.add(t, "U1", "b", f.at(11, 0))
	assert.Zero(t, f.sched.Active())
	f.clock.Advance(5 * time.Hour)
	assert.Empty(t, f.rec.all())
}

func TestScheduler_RealClock(t *testing.T) {
	store := task.NewStore()
	var mu sync.Mutex
	count := map[string]int{}
	notifier := NotifierFunc(func(_ context.Context, ownerID, _ string) error {
		mu.Lock()
		count[ownerID]++
		mu.Unlock()
		return nil
	})
	msgs, err := catalog.New(time.UTC)
	require.NoError(t, err)
	s := NewScheduler(store, notifier, msgs, WithInterval(20*time.Millisecond))
	t.Cleanup(s.Stop)

	const owners = 50
	for i := range owners {
		created, err := store.Create(fmt.Sprintf("U%d", i), "tick", time.Now().Add(10*time.Millisecond))
		require.NoError(t, err)
		s.Schedule(created)
	}
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for i := range owners {
			if count[fmt.Sprintf("U%d", i)] < 2 {
				return false
			}
		}
		return true
	}, 5*time.Second, 10*time.Millisecond)

	for i := range owners {
		owner := fmt.Sprintf("U%d", i)
		s.CancelAll(store.Clear(owner))
	}
	mu.Lock()
	snapshot := map[string]int{}
	for k, v := range count {
		snapshot[k] = v
	}
	mu.Unlock()

	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	for k, v := range count {
		// at most one send that was already under way
		assert.LessOrEqual(t, v, snapshot[k]+1, k)
	}
	assert.Zero(t, s.Active())
}
