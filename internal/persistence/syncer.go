package persistence

import (
	"context"
	"errors"
	"log/slog"

	"github.com/kazz187/nudge/internal/eventbus"
	"github.com/kazz187/nudge/internal/task"
	"github.com/kazz187/nudge/pkg/clog"
)

const eventBufferSize = 256

// Syncer writes an owner's snapshot every time that owner's task set
// changes. Snapshots hold the whole set, so a dropped event is repaired by
// the next one for the same owner and by the final Flush.
type Syncer struct {
	eventBus *eventbus.Bus
	store    *task.Store
	repo     task.SnapshotRepository

	subID  string
	events <-chan *eventbus.Event
}

// NewSyncer subscribes right away so that no change made before Start runs
// is missed.
func NewSyncer(eventBus *eventbus.Bus, store *task.Store, repo task.SnapshotRepository) *Syncer {
	subID, ch := eventBus.Subscribe(eventBufferSize)
	return &Syncer{
		eventBus: eventBus,
		store:    store,
		repo:     repo,
		subID:    subID,
		events:   ch,
	}
}

// Start consumes events until ctx is done, then flushes every owner.
func (s *Syncer) Start(ctx context.Context) {
	defer s.eventBus.Unsubscribe(s.subID)

	slog.Info("snapshot syncer started")
	for {
		select {
		case <-ctx.Done():
			if err := s.Flush(context.WithoutCancel(ctx)); err != nil {
				slog.Error("snapshot syncer: final flush failed", "error", err)
			}
			slog.Info("snapshot syncer stopped")
			return
		case event, ok := <-s.events:
			if !ok {
				return
			}
			s.save(ctx, event.OwnerID)
		}
	}
}

func (s *Syncer) save(ctx context.Context, ownerID string) {
	ctx = clog.ContextWithSlog(ctx)
	clog.AddOwner(ctx, ownerID)
	if err := s.repo.Save(ctx, s.store.Snapshot(ownerID)); err != nil {
		clog.AddError(ctx, err)
		slog.ErrorContext(ctx, "snapshot syncer: save failed")
	}
}

// Flush saves a snapshot of every owner the store knows.
func (s *Syncer) Flush(ctx context.Context) error {
	var errs []error
	for _, ownerID := range s.store.Owners() {
		if err := s.repo.Save(ctx, s.store.Snapshot(ownerID)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
