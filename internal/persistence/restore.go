package persistence

import (
	"context"
	"log/slog"

	"github.com/kazz187/nudge/internal/task"
)

// Scheduler is the part of the reminder scheduler restore needs.
type Scheduler interface {
	Schedule(t *task.Task)
}

// Restore loads every saved owner into the store and re-arms a reminder for
// each pending task. Tasks already past due fire immediately and resume
// escalating from where their schedule says they should be. It returns the
// number of tasks restored.
func Restore(ctx context.Context, repo task.SnapshotRepository, store *task.Store, sched Scheduler) (int, error) {
	snaps, err := repo.List(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, snap := range snaps {
		for _, t := range store.Restore(snap) {
			sched.Schedule(t)
			n++
		}
	}
	slog.InfoContext(ctx, "restored tasks", "owners", len(snaps), "tasks", n)
	return n, nil
}
