package repositoryimpl

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kazz187/nudge/internal/task"
	"github.com/kazz187/nudge/pkg/cerr"
	"github.com/kazz187/nudge/pkg/storage"
)

const ownersPrefix = "owners"

type YAMLRepository struct {
	storage storage.Storage
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{storage: s}
}

// path escapes the owner id, which comes from the messaging channel and may
// contain any character.
func path(ownerID string) string {
	return fmt.Sprintf("%s/%s.yaml", ownersPrefix, url.PathEscape(ownerID))
}

func (r *YAMLRepository) Save(ctx context.Context, s *task.OwnerSnapshot) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal owner snapshot: %w", err))
	}
	if err := r.storage.Write(ctx, path(s.OwnerID), data); err != nil {
		return cerr.WrapStorageWriteError("owner snapshot", err)
	}
	return nil
}

func (r *YAMLRepository) Get(ctx context.Context, ownerID string) (*task.OwnerSnapshot, error) {
	data, err := r.storage.Read(ctx, path(ownerID))
	if err != nil {
		return nil, cerr.WrapStorageReadError("owner snapshot", err)
	}
	return decode(data)
}

// List skips unreadable snapshots; one corrupt file must not keep every
// other owner from being restored.
func (r *YAMLRepository) List(ctx context.Context) ([]*task.OwnerSnapshot, error) {
	paths, err := r.storage.List(ctx, ownersPrefix)
	if err != nil {
		return nil, cerr.WrapStorageReadError("owner snapshots", err)
	}
	var all []*task.OwnerSnapshot
	for _, p := range paths {
		if !strings.HasSuffix(p, ".yaml") {
			continue
		}
		data, err := r.storage.Read(ctx, p)
		if err != nil {
			continue
		}
		s, err := decode(data)
		if err != nil {
			continue
		}
		all = append(all, s)
	}
	return all, nil
}

func (r *YAMLRepository) Delete(ctx context.Context, ownerID string) error {
	if err := r.storage.Delete(ctx, path(ownerID)); err != nil {
		return cerr.WrapStorageDeleteError("owner snapshot", err)
	}
	return nil
}

func decode(data []byte) (*task.OwnerSnapshot, error) {
	var s task.OwnerSnapshot
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to unmarshal owner snapshot: %w", err))
	}
	if s.OwnerID == "" {
		return nil, cerr.NewError(cerr.DataLoss, "owner snapshot has no owner", nil)
	}
	return &s, nil
}
