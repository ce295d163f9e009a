package tokenstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniredisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStoreWithClient(client, "", 0)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func stores(t *testing.T) map[string]Store {
	t.Helper()
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	rs, _ := newMiniredisStore(t)
	return map[string]Store{
		"memory": NewMemoryStore(),
		"file":   fs,
		"redis":  rs,
	}
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Load(ctx, "Mira")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Save(ctx, "Mira", "tok-1"))
			got, err := s.Load(ctx, "Mira")
			require.NoError(t, err)
			assert.Equal(t, "tok-1", got)

			require.NoError(t, s.Save(ctx, "Mira", "tok-2"))
			got, err = s.Load(ctx, "mira")
			require.NoError(t, err)
			assert.Equal(t, "tok-2", got, "names are case-insensitive")

			require.NoError(t, s.Delete(ctx, "Mira"))
			require.NoError(t, s.Delete(ctx, "Mira"))
			_, err = s.Load(ctx, "Mira")
			assert.ErrorIs(t, err, ErrNotFound)

			err = s.Save(ctx, "  ", "x")
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestFileStore_SanitizesNames(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, s.Save(context.Background(), "../Old Tom", "secret"))
	data, err := os.ReadFile(filepath.Join(dir, "___old_tom.token"))
	require.NoError(t, err)
	assert.Equal(t, "secret", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp file left behind")
}

func TestFileStore_Closed(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.Close())
	_, err = s.Load(context.Background(), "a")
	assert.ErrorIs(t, err, ErrStoreClosed)
}

func TestRedisStore_KeyLayout(t *testing.T) {
	s, mr := newMiniredisStore(t)
	require.NoError(t, s.Save(context.Background(), "Mira", "tok"))
	v, err := mr.Get("npcagent:token:mira")
	require.NoError(t, err)
	assert.Equal(t, "tok", v)
}

func TestNew(t *testing.T) {
	mr := miniredis.RunT(t)

	s, err := New(Config{Type: StoreTypeRedis, Redis: RedisConfig{Addr: mr.Addr()}})
	require.NoError(t, err)
	assert.IsType(t, &RedisStore{}, s)
	require.NoError(t, s.Close())

	s, err = New(Config{Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	s, err = New(Config{Type: StoreTypeMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = New(Config{Type: "etcd"})
	assert.Error(t, err)
}
