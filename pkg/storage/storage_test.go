package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Storage {
	t.Helper()
	local, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return map[string]Storage{
		"memory": NewMemoryStorage(),
		"local":  local,
	}
}

func TestStorage_ReadWriteDelete(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := s.Read(ctx, "owners/a.yaml")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Write(ctx, "owners/a.yaml", []byte("one")))
			require.NoError(t, s.Write(ctx, "owners/a.yaml", []byte("two")))
			data, err := s.Read(ctx, "owners/a.yaml")
			require.NoError(t, err)
			assert.Equal(t, "two", string(data))

			ok, err := s.Exists(ctx, "owners/a.yaml")
			require.NoError(t, err)
			assert.True(t, ok)

			require.NoError(t, s.Delete(ctx, "owners/a.yaml"))
			ok, err = s.Exists(ctx, "owners/a.yaml")
			require.NoError(t, err)
			assert.False(t, ok)
			assert.ErrorIs(t, s.Delete(ctx, "owners/a.yaml"), ErrNotFound)
		})
	}
}

func TestStorage_ListDirectChildren(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Write(ctx, "owners/b.yaml", []byte("b")))
			require.NoError(t, s.Write(ctx, "owners/a.yaml", []byte("a")))
			require.NoError(t, s.Write(ctx, "owners/nested/c.yaml", []byte("c")))
			require.NoError(t, s.Write(ctx, "other.yaml", []byte("x")))

			paths, err := s.List(ctx, "owners")
			require.NoError(t, err)
			assert.Equal(t, []string{"owners/a.yaml", "owners/b.yaml"}, paths)

			paths, err = s.List(ctx, "missing")
			require.NoError(t, err)
			assert.Empty(t, paths)
		})
	}
}

func TestMemoryStorage_CopiesData(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()
	buf := []byte("abc")
	require.NoError(t, s.Write(ctx, "k", buf))
	buf[0] = 'z'

	data, err := s.Read(ctx, "/k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))
}
