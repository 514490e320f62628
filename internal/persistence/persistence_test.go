package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/nudge/internal/catalog"
	"github.com/kazz187/nudge/internal/clock/clocktest"
	"github.com/kazz187/nudge/internal/eventbus"
	"github.com/kazz187/nudge/internal/reminder"
	"github.com/kazz187/nudge/internal/task"
	"github.com/kazz187/nudge/internal/task/repositoryimpl"
	"github.com/kazz187/nudge/pkg/storage"
)

type collectingNotifier struct {
	texts chan string
}

func (n *collectingNotifier) Notify(_ context.Context, _, text string) error {
	n.texts <- text
	return nil
}

func TestSyncer_SavesOnChange(t *testing.T) {
	bus := eventbus.New()
	store := task.NewStore(task.WithEventBus(bus))
	repo := repositoryimpl.NewYAMLRepository(storage.NewMemoryStorage())
	syncer := NewSyncer(bus, store, repo)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		syncer.Start(ctx)
		close(done)
	}()

	due := time.Now().Add(time.Hour)
	_, err := store.Create("U1", "call mom", due)
	require.NoError(t, err)
	_, err = store.Create("U1", "buy milk", due)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		snap, err := repo.Get(context.Background(), "U1")
		return err == nil && len(snap.Tasks) == 2
	}, time.Second, 5*time.Millisecond)

	_, err = store.Complete("U1", 1)
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		snap, err := repo.Get(context.Background(), "U1")
		return err == nil && len(snap.Tasks) == 1 && snap.Tasks[0].ID == 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done

	snap, err := repo.Get(context.Background(), "U1")
	require.NoError(t, err)
	assert.Equal(t, 3, snap.NextID)
}

func TestRestore(t *testing.T) {
	ctx := context.Background()
	loc, err := time.LoadLocation("Asia/Bangkok")
	require.NoError(t, err)
	start := time.Date(2025, 3, 10, 16, 0, 0, 0, loc)

	repo := repositoryimpl.NewYAMLRepository(storage.NewMemoryStorage())
	due := time.Date(2025, 3, 10, 14, 30, 0, 0, loc)
	require.NoError(t, repo.Save(ctx, &task.OwnerSnapshot{
		OwnerID: "U1",
		NextID:  5,
		Tasks: []*task.Task{
			{ID: 4, OwnerID: "U1", Description: "call mom", DueAt: due, Status: task.StatusPending, CreatedAt: due.Add(-time.Hour)},
			{ID: 3, OwnerID: "U1", Description: "old", DueAt: due, Status: task.StatusCompleted, CreatedAt: due.Add(-time.Hour)},
		},
	}))

	clk := clocktest.NewFake(start)
	store := task.NewStore(task.WithNow(clk.Now))
	msgs, err := catalog.New(loc)
	require.NoError(t, err)
	notifier := &collectingNotifier{texts: make(chan string, 8)}
	sched := reminder.NewScheduler(store, notifier, msgs, reminder.WithClock(clk))
	t.Cleanup(sched.Stop)

	n, err := Restore(ctx, repo, store, sched)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := store.Find("U1", 4)
	require.NoError(t, err)
	assert.Equal(t, "call mom", got.Description)

	created, err := store.Create("U1", "next", start.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 5, created.ID)

	// Past due: the initial reminder goes out at once.
	clk.Advance(0)
	select {
	case text := <-notifier.texts:
		assert.Contains(t, text, "call mom")
	case <-time.After(time.Second):
		t.Fatal("restored task was not reminded")
	}
	state, ok := sched.State("U1", 4)
	require.True(t, ok)
	assert.Equal(t, reminder.StateEscalating, state)
}
