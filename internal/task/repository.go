package task

import "context"

// SnapshotRepository persists owner task sets between restarts.
type SnapshotRepository interface {
	Save(ctx context.Context, s *OwnerSnapshot) error
	Get(ctx context.Context, ownerID string) (*OwnerSnapshot, error)
	List(ctx context.Context) ([]*OwnerSnapshot, error)
	Delete(ctx context.Context, ownerID string) error
}
