package crawler

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"howett.net/plist"

	"github.com/taghound/taghound/pkg/metadata"
	"github.com/taghound/taghound/pkg/store"
	"github.com/taghound/taghound/pkg/tags"
	"github.com/taghound/taghound/pkg/types"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestCrawler(t *testing.T, s store.Store, config Config) *Crawler {
	t.Helper()
	return New(s, metadata.NewExtractor(), tags.NewPlistDecoder(), config)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func waitIdle(t *testing.T, c *Crawler) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if !c.IsRunning() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("crawl did not finish in time")
}

func TestCrawlIndexesTree(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "docs", "a.txt"), "alpha")
	writeFile(t, filepath.Join(root, "docs", "b.txt"), "bravo")
	writeFile(t, filepath.Join(root, "pics", "photo.jpg"), "jpeg")
	writeFile(t, filepath.Join(root, "top.txt"), "top")

	s := newTestStore(t)
	c := newTestCrawler(t, s, Config{})

	snapshot, err := c.Run(context.Background(), root, 0)
	require.NoError(t, err)

	assert.True(t, snapshot.Completed)
	assert.False(t, snapshot.Cancelled)
	assert.Equal(t, int64(7), snapshot.Visited) // root, 2 dirs, 4 files
	assert.Equal(t, int64(1), snapshot.Generation)
	assert.Equal(t, int64(0), snapshot.Errors)

	ctx := context.Background()
	for _, path := range []string{
		root,
		filepath.Join(root, "docs"),
		filepath.Join(root, "docs", "a.txt"),
		filepath.Join(root, "pics", "photo.jpg"),
		filepath.Join(root, "top.txt"),
	} {
		record, err := s.GetByPath(ctx, path)
		require.NoError(t, err)
		require.NotNil(t, record, "expected %s to be indexed", path)
	}

	// Directories sort before files in a listing
	children, err := s.ListChildren(ctx, root)
	require.NoError(t, err)
	require.Len(t, children, 3)
	assert.Equal(t, "docs", children[0].Name)
	assert.Equal(t, "pics", children[1].Name)
	assert.Equal(t, "top.txt", children[2].Name)
}

func TestRecrawlSweepsDeletedEntries(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "keep.txt"), "keep")
	writeFile(t, filepath.Join(root, "remove.txt"), "remove")

	s := newTestStore(t)
	c := newTestCrawler(t, s, Config{})

	ctx := context.Background()
	snapshot, err := c.Run(ctx, root, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), snapshot.Generation)

	before, err := s.GetByPath(ctx, filepath.Join(root, "keep.txt"))
	require.NoError(t, err)
	require.NotNil(t, before)

	require.NoError(t, os.Remove(filepath.Join(root, "remove.txt")))

	snapshot, err = c.Run(ctx, root, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), snapshot.Generation)
	assert.True(t, snapshot.Completed)

	record, err := s.GetByPath(ctx, filepath.Join(root, "remove.txt"))
	require.NoError(t, err)
	assert.Nil(t, record, "deleted file should be swept on recrawl")

	record, err = s.GetByPath(ctx, filepath.Join(root, "keep.txt"))
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, int64(2), record.Generation)

	// An unchanged file re-indexes identically; only the generation moves
	before.Generation = record.Generation
	assert.Equal(t, before, record)
}

func TestCrawlMissingRootLeavesIndexUnchanged(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	stale := &types.FileRecord{
		Path: "/vault/old.txt", Parent: "/vault", Name: "old.txt",
		ModTime: time.Now(), Generation: 1,
	}
	require.NoError(t, s.UpsertBatch(ctx, []*types.FileRecord{stale}))

	c := newTestCrawler(t, s, Config{})
	snapshot, err := c.Run(ctx, "/vault", 0)
	require.NoError(t, err)

	assert.False(t, snapshot.Completed)
	assert.Equal(t, int64(1), snapshot.Errors)

	record, err := s.GetByPath(ctx, "/vault/old.txt")
	require.NoError(t, err)
	assert.NotNil(t, record, "failed crawl must not sweep existing records")
}

func TestStartCrawlRejectsConcurrentCrawl(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "sub", "file.txt"), "x")

	s := newTestStore(t)
	gate := newGateExtractor(metadata.NewExtractor(), root)
	c := New(s, gate, tags.NewPlistDecoder(), Config{Workers: 1})

	_, err := c.StartCrawl(context.Background(), root, 0)
	require.NoError(t, err)

	<-gate.started
	_, err = c.StartCrawl(context.Background(), root, 0)
	assert.ErrorIs(t, err, ErrCrawlActive)

	close(gate.release)
	waitIdle(t, c)

	// After the first crawl finishes a new one may start
	_, err = c.Run(context.Background(), root, 0)
	assert.NoError(t, err)
}

func TestCancelStopsCrawlWithoutSweep(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "sub", "file.txt"), "x")

	s := newTestStore(t)
	ctx := context.Background()

	stale := &types.FileRecord{
		Path: filepath.Join(root, "gone.txt"), Parent: root, Name: "gone.txt",
		ModTime: time.Now(), Generation: 1,
	}
	require.NoError(t, s.UpsertBatch(ctx, []*types.FileRecord{stale}))

	gate := newGateExtractor(metadata.NewExtractor(), root)
	c := New(s, gate, tags.NewPlistDecoder(), Config{Workers: 1})

	_, err := c.StartCrawl(ctx, root, 0)
	require.NoError(t, err)

	<-gate.started
	assert.True(t, c.Cancel())
	close(gate.release)
	waitIdle(t, c)

	snapshot := c.Snapshot()
	assert.True(t, snapshot.Cancelled)
	assert.False(t, snapshot.Completed)

	// The stale record predates the cancelled crawl and must survive
	record, err := s.GetByPath(ctx, filepath.Join(root, "gone.txt"))
	require.NoError(t, err)
	assert.NotNil(t, record)
}

func TestCrawlSymlinkCycleTerminates(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "sub", "file.txt"), "x")
	if err := os.Symlink(root, filepath.Join(root, "sub", "loop")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	s := newTestStore(t)
	c := newTestCrawler(t, s, Config{})

	snapshot, err := c.Run(context.Background(), root, 0)
	require.NoError(t, err)

	assert.True(t, snapshot.Completed)
	assert.GreaterOrEqual(t, snapshot.Skipped, int64(1))
}

func TestCrawlDecodesTagAnnotations(t *testing.T) {
	fake := newFakeTree()
	s := newTestStore(t)
	c := New(s, fake, tags.NewPlistDecoder(), Config{})

	ctx := context.Background()
	snapshot, err := c.Run(ctx, "/vault", 0)
	require.NoError(t, err)

	assert.True(t, snapshot.Completed)
	assert.Equal(t, int64(6), snapshot.Visited)
	assert.Equal(t, int64(1), snapshot.Errors) // the unreadable directory

	record, err := s.GetByPath(ctx, "/vault/docs/plan.txt")
	require.NoError(t, err)
	require.NotNil(t, record)
	require.Len(t, record.Tags, 2)
	assert.Equal(t, "Important", record.Tags[0].Name)
	assert.Equal(t, types.TagColorRed, record.Tags[0].Color)
	assert.Equal(t, "Work", record.Tags[1].Name)
	assert.Equal(t, types.TagColorNone, record.Tags[1].Color)

	// A directory that cannot be listed stays visible, flagged
	record, err = s.GetByPath(ctx, "/vault/broken")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.True(t, record.Unreadable)
}

func TestCrawlDepthLimit(t *testing.T) {
	fake := newFakeTree()
	s := newTestStore(t)
	c := New(s, fake, tags.NewPlistDecoder(), Config{Depth: 1})

	ctx := context.Background()
	snapshot, err := c.Run(ctx, "/vault", 0)
	require.NoError(t, err)
	assert.True(t, snapshot.Completed)

	// Immediate children are indexed, nothing below them
	record, err := s.GetByPath(ctx, "/vault/docs")
	require.NoError(t, err)
	assert.NotNil(t, record)

	record, err = s.GetByPath(ctx, "/vault/docs/plan.txt")
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestCrawlDepthOverride(t *testing.T) {
	fake := newFakeTree()
	s := newTestStore(t)
	c := New(s, fake, tags.NewPlistDecoder(), Config{Depth: 1})

	// A per-crawl depth wins over the configured limit
	ctx := context.Background()
	snapshot, err := c.Run(ctx, "/vault", 2)
	require.NoError(t, err)
	assert.True(t, snapshot.Completed)

	record, err := s.GetByPath(ctx, "/vault/docs/plan.txt")
	require.NoError(t, err)
	assert.NotNil(t, record)
}

// fakeExtractor serves a synthetic tree so tests can inject raw tag
// annotations and directory failures without touching a filesystem.
type fakeExtractor struct {
	records    map[string]*types.FileRecord
	raw        map[string][]byte
	children   map[string][]os.DirEntry
	readDirErr map[string]error
}

func newFakeTree() *fakeExtractor {
	annotation, err := plist.Marshal([]string{"Important\n6", "Work"}, plist.BinaryFormat)
	if err != nil {
		panic(err)
	}

	fake := &fakeExtractor{
		records:    make(map[string]*types.FileRecord),
		raw:        map[string][]byte{"/vault/docs/plan.txt": annotation},
		children:   make(map[string][]os.DirEntry),
		readDirErr: map[string]error{"/vault/broken": &types.ErrAccess{Path: "/vault/broken"}},
	}

	now := time.Now()
	add := func(path, parent, name string, isDir bool) {
		fake.records[path] = &types.FileRecord{
			Path: path, Parent: parent, Name: name, IsDir: isDir, ModTime: now,
		}
	}
	add("/vault", "/", "vault", true)
	add("/vault/docs", "/vault", "docs", true)
	add("/vault/broken", "/vault", "broken", true)
	add("/vault/cover.jpg", "/vault", "cover.jpg", false)
	add("/vault/docs/plan.txt", "/vault/docs", "plan.txt", false)
	add("/vault/docs/notes.txt", "/vault/docs", "notes.txt", false)

	fake.children["/vault"] = []os.DirEntry{
		fakeDirEntry{name: "broken", dir: true},
		fakeDirEntry{name: "cover.jpg"},
		fakeDirEntry{name: "docs", dir: true},
	}
	fake.children["/vault/docs"] = []os.DirEntry{
		fakeDirEntry{name: "notes.txt"},
		fakeDirEntry{name: "plan.txt"},
	}
	return fake
}

func (f *fakeExtractor) Extract(path string) (*types.FileRecord, []byte, error) {
	record, ok := f.records[path]
	if !ok {
		return nil, nil, &types.ErrNotFound{Path: path}
	}
	clone := *record
	return &clone, f.raw[path], nil
}

func (f *fakeExtractor) ReadDir(path string) ([]os.DirEntry, error) {
	if err, ok := f.readDirErr[path]; ok {
		return nil, err
	}
	return f.children[path], nil
}

type fakeDirEntry struct {
	name string
	dir  bool
}

func (e fakeDirEntry) Name() string               { return e.name }
func (e fakeDirEntry) IsDir() bool                { return e.dir }
func (e fakeDirEntry) Type() fs.FileMode          { return 0 }
func (e fakeDirEntry) Info() (fs.FileInfo, error) { return nil, fs.ErrInvalid }

// gateExtractor blocks directory listings below the root until released,
// keeping a crawl active long enough to observe it mid-flight.
type gateExtractor struct {
	inner   *metadata.Extractor
	root    string
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGateExtractor(inner *metadata.Extractor, root string) *gateExtractor {
	return &gateExtractor{
		inner:   inner,
		root:    root,
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (g *gateExtractor) Extract(path string) (*types.FileRecord, []byte, error) {
	return g.inner.Extract(path)
}

func (g *gateExtractor) ReadDir(path string) ([]os.DirEntry, error) {
	if path != g.root {
		g.once.Do(func() { close(g.started) })
		<-g.release
	}
	return g.inner.ReadDir(path)
}
