package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taghound/taghound/pkg/store"
	"github.com/taghound/taghound/pkg/types"
)

type fakeCrawls struct {
	snapshot types.CrawlSnapshot
}

func (f *fakeCrawls) Snapshot() types.CrawlSnapshot { return f.snapshot }

func activeCrawl(root string) *fakeCrawls {
	return &fakeCrawls{snapshot: types.CrawlSnapshot{
		ID: "c1", Generation: 1, Root: root, StartedAt: time.Now(),
	}}
}

func finishedCrawl(root string) *fakeCrawls {
	return &fakeCrawls{snapshot: types.CrawlSnapshot{
		ID: "c1", Generation: 1, Root: root, StartedAt: time.Now(),
		FinishedAt: time.Now(), Completed: true,
	}}
}

func newTestEngine(t *testing.T, crawls CrawlSource) (*Engine, store.Store) {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return NewEngine(s, crawls, Config{}), s
}

func seed(t *testing.T, s store.Store, records ...*types.FileRecord) {
	t.Helper()
	require.NoError(t, s.UpsertBatch(context.Background(), records))
}

func record(path, parent, name string, isDir bool, tagNames ...string) *types.FileRecord {
	r := &types.FileRecord{
		Path: path, Parent: parent, Name: name, IsDir: isDir,
		ModTime: time.Now(), Generation: 1,
	}
	for i, tag := range tagNames {
		r.Tags = append(r.Tags, types.TagAnnotation{Name: tag, Position: i})
	}
	return r
}

func TestListChildrenNotIndexed(t *testing.T) {
	engine, _ := newTestEngine(t, finishedCrawl("/data"))

	_, err := engine.ListChildren(context.Background(), "/data/unknown", false)
	require.Error(t, err)
	assert.True(t, (&types.ErrNotIndexed{}).From(err))
}

func TestListChildrenEmptyDirectoryIsNotAnError(t *testing.T) {
	engine, s := newTestEngine(t, finishedCrawl("/data"))
	seed(t, s, record("/data", "/", "data", true))

	listing, err := engine.ListChildren(context.Background(), "/data", false)
	require.NoError(t, err)
	assert.Empty(t, listing.Children)
	assert.False(t, listing.Partial)
}

func TestListChildrenHiddenFilter(t *testing.T) {
	engine, s := newTestEngine(t, finishedCrawl("/data"))
	seed(t, s,
		record("/data", "/", "data", true),
		record("/data/.git", "/data", ".git", true),
		record("/data/src", "/data", "src", true),
		record("/data/.env", "/data", ".env", false),
		record("/data/main.go", "/data", "main.go", false),
	)

	listing, err := engine.ListChildren(context.Background(), "/data", false)
	require.NoError(t, err)
	require.Len(t, listing.Children, 2)
	assert.Equal(t, "src", listing.Children[0].Name)
	assert.Equal(t, "main.go", listing.Children[1].Name)

	listing, err = engine.ListChildren(context.Background(), "/data", true)
	require.NoError(t, err)
	require.Len(t, listing.Children, 4)
	// Directories first, dotfiles included
	assert.Equal(t, ".git", listing.Children[0].Name)
	assert.Equal(t, "src", listing.Children[1].Name)
	assert.Equal(t, ".env", listing.Children[2].Name)
	assert.Equal(t, "main.go", listing.Children[3].Name)
}

func TestListChildrenPartialDuringActiveCrawl(t *testing.T) {
	engine, s := newTestEngine(t, activeCrawl("/data"))
	seed(t, s,
		record("/data", "/", "data", true),
		record("/data/sub", "/data", "sub", true),
		record("/elsewhere", "/", "elsewhere", true),
	)

	ctx := context.Background()

	listing, err := engine.ListChildren(ctx, "/data", false)
	require.NoError(t, err)
	assert.True(t, listing.Partial)

	listing, err = engine.ListChildren(ctx, "/data/sub", false)
	require.NoError(t, err)
	assert.True(t, listing.Partial, "scope under the crawl root is partial")

	listing, err = engine.ListChildren(ctx, "/elsewhere", false)
	require.NoError(t, err)
	assert.False(t, listing.Partial, "disjoint scope is unaffected by the crawl")
}

func TestGetRecord(t *testing.T) {
	engine, s := newTestEngine(t, finishedCrawl("/data"))
	seed(t, s, record("/data/a.txt", "/data", "a.txt", false, "Work"))

	got, err := engine.GetRecord(context.Background(), "/data/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "a.txt", got.Name)
	require.Len(t, got.Tags, 1)
	assert.Equal(t, "Work", got.Tags[0].Name)

	_, err = engine.GetRecord(context.Background(), "/data/nope.txt")
	require.Error(t, err)
	assert.True(t, (&types.ErrNotIndexed{}).From(err))
}

func TestSearchRanking(t *testing.T) {
	engine, s := newTestEngine(t, finishedCrawl("/data"))
	seed(t, s,
		record("/data/q3-budget.txt", "/data", "q3-budget.txt", false),
		record("/data/misc.txt", "/data", "misc.txt", false, "budget"),
		record("/data/Budget", "/data", "Budget", false),
		record("/data/budget-2024.xlsx", "/data", "budget-2024.xlsx", false),
	)

	results, err := engine.Search(context.Background(), "budget", "", 0)
	require.NoError(t, err)
	require.Len(t, results.Hits, 4)

	assert.Equal(t, "Budget", results.Hits[0].Name)
	assert.Equal(t, scoreExact, results.Hits[0].Score)

	assert.Equal(t, "budget-2024.xlsx", results.Hits[1].Name)
	assert.Equal(t, scorePrefix, results.Hits[1].Score)

	assert.Equal(t, "q3-budget.txt", results.Hits[2].Name)
	assert.Equal(t, scoreSubstring, results.Hits[2].Score)

	// Matched through its tag only; the name scores zero
	assert.Equal(t, "misc.txt", results.Hits[3].Name)
	assert.Equal(t, 0, results.Hits[3].Score)
	require.Len(t, results.Hits[3].Tags, 1)
	assert.Equal(t, "budget", results.Hits[3].Tags[0].Name)

	assert.False(t, results.Truncated)
	assert.False(t, results.Partial)
}

func TestSearchEmptyQuery(t *testing.T) {
	engine, s := newTestEngine(t, finishedCrawl("/data"))
	seed(t, s, record("/data/a.txt", "/data", "a.txt", false))

	for _, query := range []string{"", "   ", "\t"} {
		results, err := engine.Search(context.Background(), query, "", 0)
		require.NoError(t, err)
		assert.Empty(t, results.Hits)
		assert.False(t, results.Truncated)
	}
}

func TestSearchScopedToDirectory(t *testing.T) {
	engine, s := newTestEngine(t, finishedCrawl("/data"))
	seed(t, s,
		record("/data/reports/budget.txt", "/data/reports", "budget.txt", false),
		record("/other/budget.txt", "/other", "budget.txt", false),
	)

	results, err := engine.Search(context.Background(), "budget", "/data", 0)
	require.NoError(t, err)
	require.Len(t, results.Hits, 1)
	assert.Equal(t, "/data/reports/budget.txt", results.Hits[0].Path)
}

func TestSearchTruncation(t *testing.T) {
	engine, s := newTestEngine(t, finishedCrawl("/data"))

	var records []*types.FileRecord
	for _, name := range []string{"note1.txt", "note2.txt", "note3.txt", "note4.txt", "note5.txt"} {
		records = append(records, record("/data/"+name, "/data", name, false))
	}
	seed(t, s, records...)

	results, err := engine.Search(context.Background(), "note", "", 3)
	require.NoError(t, err)
	assert.Len(t, results.Hits, 3)
	assert.True(t, results.Truncated)
}

func TestSearchPartialDuringActiveCrawl(t *testing.T) {
	engine, s := newTestEngine(t, activeCrawl("/data"))
	seed(t, s, record("/data/a.txt", "/data", "a.txt", false))

	results, err := engine.Search(context.Background(), "a", "", 0)
	require.NoError(t, err)
	assert.True(t, results.Partial)

	results, err = engine.Search(context.Background(), "a", "/unrelated", 0)
	require.NoError(t, err)
	assert.False(t, results.Partial)
}

func TestListTagsFollowsRevision(t *testing.T) {
	engine, s := newTestEngine(t, finishedCrawl("/data"))
	seed(t, s, record("/data/a.txt", "/data", "a.txt", false, "Work"))

	tags, err := engine.ListTags(context.Background())
	require.NoError(t, err)
	require.Len(t, tags, 1)

	// A write bumps the revision, so the next read must not be served
	// from the old cache entry
	seed(t, s, record("/data/b.txt", "/data", "b.txt", false, "Home"))

	tags, err = engine.ListTags(context.Background())
	require.NoError(t, err)
	assert.Len(t, tags, 2)
}

func TestFilesForTag(t *testing.T) {
	engine, s := newTestEngine(t, finishedCrawl("/data"))
	seed(t, s,
		record("/data/a.txt", "/data", "a.txt", false, "Work"),
		record("/data/b.txt", "/data", "b.txt", false, "Work"),
		record("/data/c.txt", "/data", "c.txt", false, "Home"),
	)

	tagFiles, err := engine.FilesForTag(context.Background(), "Work", "")
	require.NoError(t, err)
	assert.Equal(t, "Work", tagFiles.Tag)
	require.Len(t, tagFiles.Files, 2)

	tagFiles, err = engine.FilesForTag(context.Background(), "Work", "b")
	require.NoError(t, err)
	require.Len(t, tagFiles.Files, 1)
	assert.Equal(t, "b.txt", tagFiles.Files[0].Name)
}
