package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(2, 0)

	_, ok, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Put(ctx, "a", []byte("1")))
	require.NoError(t, store.Put(ctx, "b", []byte("2")))

	value, ok, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("1"), value)

	// "b" is now least recently used
	require.NoError(t, store.Put(ctx, "c", []byte("3")))
	_, ok, _ = store.Get(ctx, "b")
	assert.False(t, ok)
	assert.Equal(t, 2, store.Len())

	require.NoError(t, store.Close())
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStoreExpiration(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10, 10*time.Millisecond)
	require.NoError(t, store.Put(ctx, "a", []byte("1")))

	assert.Eventually(t, func() bool {
		_, ok, err := store.Get(ctx, "a")
		return err == nil && !ok
	}, time.Second, 5*time.Millisecond)
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	store, err := NewSQLiteStore(path, 0)
	require.NoError(t, err)

	_, ok, err := store.Get(ctx, "relation/1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Put(ctx, "relation/1", []byte(`{"elements":[]}`)))
	require.NoError(t, store.Put(ctx, "relation/1", []byte(`{"elements":[1]}`)))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path, 0)
	require.NoError(t, err)
	defer reopened.Close()

	value, ok, err := reopened.Get(ctx, "relation/1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"elements":[1]}`, string(value))

	count, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSQLiteStoreExpiration(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(":memory:", time.Hour)
	require.NoError(t, err)
	defer store.Close()

	now := time.Date(2026, time.October, 19, 6, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	require.NoError(t, store.Put(ctx, "relation/1", []byte("old")))

	now = now.Add(59 * time.Minute)
	value, ok, err := store.Get(ctx, "relation/1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("old"), value)

	now = now.Add(time.Minute)
	_, ok, err = store.Get(ctx, "relation/1")
	require.NoError(t, err)
	assert.False(t, ok, "entries as old as the ttl are refetched")

	require.NoError(t, store.Put(ctx, "relation/1", []byte("new")))
	value, ok, err = store.Get(ctx, "relation/1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("new"), value)
}

func TestTiered(t *testing.T) {
	ctx := context.Background()
	back, err := NewSQLiteStore(":memory:", 0)
	require.NoError(t, err)
	front := NewMemoryStore(4, 0)
	tiered := NewTiered(front, back)
	defer tiered.Close()

	require.NoError(t, back.Put(ctx, "stops", []byte("[]")))

	value, ok, err := tiered.Get(ctx, "stops")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("[]"), value)

	promoted, ok, err := front.Get(ctx, "stops")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("[]"), promoted)

	require.NoError(t, tiered.Put(ctx, "routes", []byte("{}")))
	_, ok, err = back.Get(ctx, "routes")
	require.NoError(t, err)
	assert.True(t, ok)

	_, ok, err = tiered.Get(ctx, "nothing")
	require.NoError(t, err)
	assert.False(t, ok)
}
