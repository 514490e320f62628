package repositoryimpl

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/nudge/internal/task"
	"github.com/kazz187/nudge/pkg/cerr"
	"github.com/kazz187/nudge/pkg/storage"
)

func TestYAMLRepository(t *testing.T) {
	ctx := context.Background()
	st := storage.NewMemoryStorage()
	repo := NewYAMLRepository(st)

	_, err := repo.Get(ctx, "U1")
	assert.True(t, cerr.IsCode(err, cerr.NotFound))

	loc, err := time.LoadLocation("Asia/Bangkok")
	require.NoError(t, err)
	due := time.Date(2025, 3, 10, 14, 30, 0, 0, loc)
	snap := &task.OwnerSnapshot{
		OwnerID: "U/odd owner",
		NextID:  3,
		Tasks: []*task.Task{
			{ID: 2, OwnerID: "U/odd owner", Description: "call mom", DueAt: due, Status: task.StatusPending, CreatedAt: due.Add(-time.Hour)},
		},
	}
	require.NoError(t, repo.Save(ctx, snap))

	ok, err := st.Exists(ctx, "owners/U%2Fodd%20owner.yaml")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repo.Get(ctx, "U/odd owner")
	require.NoError(t, err)
	assert.Equal(t, 3, got.NextID)
	require.Len(t, got.Tasks, 1)
	assert.Equal(t, "call mom", got.Tasks[0].Description)
	assert.True(t, due.Equal(got.Tasks[0].DueAt))

	require.NoError(t, repo.Save(ctx, &task.OwnerSnapshot{OwnerID: "U2", NextID: 1}))
	require.NoError(t, st.Write(ctx, "owners/broken.yaml", []byte("tasks: [unclosed")))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, repo.Delete(ctx, "U2"))
	assert.True(t, cerr.IsCode(repo.Delete(ctx, "U2"), cerr.NotFound))
}
