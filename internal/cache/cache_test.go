package cache

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc struct {
	IDs []string `json:"ids"`
}

func openTemp(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestPutGet(t *testing.T) {
	c := openTemp(t)
	ctx := context.Background()

	var got doc
	assert.ErrorIs(t, c.Get(ctx, "notes:1", &got), ErrMiss)

	require.NoError(t, c.Put(ctx, "notes:1", doc{IDs: []string{"a", "b"}}))
	require.NoError(t, c.Get(ctx, "notes:1", &got))
	assert.Equal(t, []string{"a", "b"}, got.IDs)

	require.NoError(t, c.Put(ctx, "notes:1", doc{IDs: []string{"b"}}))
	require.NoError(t, c.Get(ctx, "notes:1", &got))
	assert.Equal(t, []string{"b"}, got.IDs)
}

func TestDeleteAndClear(t *testing.T) {
	c := openTemp(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "projects:u1", doc{}))
	require.NoError(t, c.Put(ctx, "sections:p1", doc{}))
	require.NoError(t, c.Delete(ctx, "missing"))
	require.NoError(t, c.Delete(ctx, "projects:u1"))

	entries, err := c.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "sections:p1", entries[0].Key)
	assert.False(t, entries[0].UpdatedAt.IsZero())

	n, err := c.Clear(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestOwnWritesAreNotForeign(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	a, err := Open(path)
	require.NoError(t, err)
	defer a.Close()
	b, err := Open(path)
	require.NoError(t, err)
	defer b.Close()
	ctx := context.Background()

	require.NoError(t, a.Put(ctx, "k", doc{}))
	latest, err := a.latestForeignWrite(ctx)
	require.NoError(t, err)
	assert.Empty(t, latest)

	latest, err = b.latestForeignWrite(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, latest)
}

func TestWatchSeesOtherSessionWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	watcher, err := Open(path)
	require.NoError(t, err)
	defer watcher.Close()
	other, err := Open(path)
	require.NoError(t, err)
	defer other.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var changes atomic.Int32
	done := make(chan error, 1)
	go func() { done <- watcher.Watch(ctx, func() { changes.Add(1) }) }()
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, other.Put(context.Background(), "projects:u1", doc{IDs: []string{"1"}}))

	require.Eventually(t, func() bool { return changes.Load() > 0 }, 3*time.Second, 25*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}
