package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taghound/taghound/pkg/metadata"
	"github.com/taghound/taghound/pkg/store"
	"github.com/taghound/taghound/pkg/tags"
	"github.com/taghound/taghound/pkg/types"
)

func newTestWatcher(t *testing.T) (*Watcher, store.Store) {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	w, err := New(s, metadata.NewExtractor(), tags.NewPlistDecoder(), func() int64 { return 7 }, 20*time.Millisecond)
	require.NoError(t, err)
	t.Cleanup(w.Stop)

	return w, s
}

func indexed(s store.Store, path string) func() bool {
	return func() bool {
		record, err := s.GetByPath(context.Background(), path)
		return err == nil && record != nil
	}
}

func tombstoned(s store.Store, path string) func() bool {
	return func() bool {
		record, err := s.GetByPath(context.Background(), path)
		return err == nil && record == nil
	}
}

func TestWatcherIndexesNewFile(t *testing.T) {
	dir := t.TempDir()
	w, s := newTestWatcher(t)

	w.Watch(dir)
	w.Start(context.Background())

	path := filepath.Join(dir, "fresh.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	assert.Eventually(t, indexed(s, path), 3*time.Second, 25*time.Millisecond)

	record, err := s.GetByPath(context.Background(), path)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "fresh.txt", record.Name)
	assert.Equal(t, int64(7), record.Generation)
	assert.False(t, record.IsDir)
}

func TestWatcherTombstonesRemovedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doomed.txt")
	require.NoError(t, os.WriteFile(path, []byte("bye"), 0o644))

	w, s := newTestWatcher(t)

	// Seed the index the way a crawl would have
	require.NoError(t, s.UpsertBatch(context.Background(), []*types.FileRecord{{
		Path: path, Parent: dir, Name: "doomed.txt", ModTime: time.Now(), Generation: 1,
	}}))

	w.Watch(dir)
	w.Start(context.Background())

	require.NoError(t, os.Remove(path))

	assert.Eventually(t, tombstoned(s, path), 3*time.Second, 25*time.Millisecond)
}

func TestWatcherScansNewDirectory(t *testing.T) {
	dir := t.TempDir()
	w, s := newTestWatcher(t)

	w.Watch(dir)
	w.Start(context.Background())

	// A tree moved in wholesale only raises an event for its top, so
	// the inner file must be found by the scan.
	sub := filepath.Join(dir, "incoming")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	inner := filepath.Join(sub, "inner.txt")
	require.NoError(t, os.WriteFile(inner, []byte("payload"), 0o644))

	assert.Eventually(t, indexed(s, sub), 3*time.Second, 25*time.Millisecond)
	assert.Eventually(t, indexed(s, inner), 3*time.Second, 25*time.Millisecond)

	record, err := s.GetByPath(context.Background(), sub)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.True(t, record.IsDir)
}

func TestWatcherRenameTombstonesOldPath(t *testing.T) {
	dir := t.TempDir()
	oldPath := filepath.Join(dir, "before.txt")
	require.NoError(t, os.WriteFile(oldPath, []byte("contents"), 0o644))

	w, s := newTestWatcher(t)
	require.NoError(t, s.UpsertBatch(context.Background(), []*types.FileRecord{{
		Path: oldPath, Parent: dir, Name: "before.txt", ModTime: time.Now(), Generation: 1,
	}}))

	w.Watch(dir)
	w.Start(context.Background())

	newPath := filepath.Join(dir, "after.txt")
	require.NoError(t, os.Rename(oldPath, newPath))

	assert.Eventually(t, tombstoned(s, oldPath), 3*time.Second, 25*time.Millisecond)
	assert.Eventually(t, indexed(s, newPath), 3*time.Second, 25*time.Millisecond)
}

func TestWatcherCoalescesWriteBursts(t *testing.T) {
	dir := t.TempDir()
	w, s := newTestWatcher(t)

	w.Watch(dir)
	w.Start(context.Background())

	// A burst of appends should settle on the final size
	path := filepath.Join(dir, "busy.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err = f.Write([]byte("0123456789"))
		require.NoError(t, err)
	}
	require.NoError(t, f.Close())

	assert.Eventually(t, func() bool {
		record, err := s.GetByPath(context.Background(), path)
		return err == nil && record != nil && record.Size == 50
	}, 3*time.Second, 25*time.Millisecond)
}
