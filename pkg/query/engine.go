package query

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/log"

	"github.com/taghound/taghound/pkg/store"
	"github.com/taghound/taghound/pkg/types"
)

const (
	// Relevance tiers for name matches. Records that only matched by
	// path or tag stay at zero and sort behind every name match.
	scoreExact     = 300
	scorePrefix    = 200
	scoreSubstring = 100
)

// CrawlSource exposes crawl progress so query results can be flagged
// partial while a crawl is still filling the index.
type CrawlSource interface {
	Snapshot() types.CrawlSnapshot
}

// Config controls result caps and caching.
type Config struct {
	// MaxResults caps search hits per query.
	MaxResults int

	// CacheSize is the number of cached listings and tag summaries.
	CacheSize int

	// CacheTTL bounds how long a cached result may live.
	CacheTTL time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxResults <= 0 {
		c.MaxResults = 1000
	}
	if c.CacheSize <= 0 {
		c.CacheSize = 512
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 30 * time.Second
	}
	return c
}

// Listing is the result of browsing one directory.
type Listing struct {
	Dir      string              `json:"dir"`
	Partial  bool                `json:"partial"`
	Children []*types.FileRecord `json:"children"`
}

// TagFiles is the result of browsing one tag.
type TagFiles struct {
	Tag     string              `json:"tag"`
	Partial bool                `json:"partial"`
	Files   []*types.FileRecord `json:"files"`
}

// SearchHit is a single ranked search result.
type SearchHit struct {
	*types.FileRecord
	Score int `json:"score"`
}

// SearchResults holds ranked hits for one query.
type SearchResults struct {
	Query     string      `json:"query"`
	Dir       string      `json:"dir,omitempty"`
	Partial   bool        `json:"partial"`
	Truncated bool        `json:"truncated"`
	Hits      []SearchHit `json:"hits"`
}

// Engine answers read queries over the index. Results are cached keyed
// by the store revision, so a cache entry can never outlive the data it
// was computed from.
type Engine struct {
	store  store.Store
	crawls CrawlSource
	config Config

	listings *expirable.LRU[string, *Listing]
	tagLists *expirable.LRU[string, []types.TagCount]
}

func NewEngine(s store.Store, crawls CrawlSource, config Config) *Engine {
	config = config.withDefaults()
	return &Engine{
		store:    s,
		crawls:   crawls,
		config:   config,
		listings: expirable.NewLRU[string, *Listing](config.CacheSize, nil, config.CacheTTL),
		tagLists: expirable.NewLRU[string, []types.TagCount](config.CacheSize, nil, config.CacheTTL),
	}
}

// ListChildren returns the direct children of an indexed directory,
// directories first. Dotfiles are omitted unless includeHidden is set.
// A directory no crawl has reached yet returns ErrNotIndexed, which is
// distinct from an indexed directory that is empty.
func (e *Engine) ListChildren(ctx context.Context, dir string, includeHidden bool) (*Listing, error) {
	dir = filepath.Clean(dir)

	key := fmt.Sprintf("children:%d:%t:%s", e.store.Revision(), includeHidden, dir)
	if listing, ok := e.listings.Get(key); ok {
		return listing, nil
	}

	record, err := e.store.GetByPath(ctx, dir)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, &types.ErrNotIndexed{Path: dir}
	}

	children, err := e.store.ListChildren(ctx, dir)
	if err != nil {
		return nil, err
	}
	if !includeHidden {
		visible := children[:0]
		for _, child := range children {
			if strings.HasPrefix(child.Name, ".") {
				continue
			}
			visible = append(visible, child)
		}
		children = visible
	}

	listing := &Listing{
		Dir:      dir,
		Partial:  e.partialFor(dir),
		Children: children,
	}
	e.listings.Add(key, listing)
	return listing, nil
}

// GetRecord returns the indexed record for one path.
func (e *Engine) GetRecord(ctx context.Context, path string) (*types.FileRecord, error) {
	path = filepath.Clean(path)

	record, err := e.store.GetByPath(ctx, path)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, &types.ErrNotIndexed{Path: path}
	}
	return record, nil
}

// ListTags returns every known tag with its usage count.
func (e *Engine) ListTags(ctx context.Context) ([]types.TagCount, error) {
	key := fmt.Sprintf("tags:%d", e.store.Revision())
	if tags, ok := e.tagLists.Get(key); ok {
		return tags, nil
	}

	tags, err := e.store.ListTags(ctx)
	if err != nil {
		return nil, err
	}
	e.tagLists.Add(key, tags)
	return tags, nil
}

// FilesForTag returns the files carrying a tag, optionally narrowed by
// a name substring.
func (e *Engine) FilesForTag(ctx context.Context, tag, nameFilter string) (*TagFiles, error) {
	files, err := e.store.FilesForTag(ctx, tag, nameFilter)
	if err != nil {
		return nil, err
	}
	return &TagFiles{
		Tag:     tag,
		Partial: e.partialFor(""),
		Files:   files,
	}, nil
}

// Search runs a ranked lookup by name, path, and tag. An empty or
// whitespace query returns no hits. When dir is set only records below
// it are considered.
func (e *Engine) Search(ctx context.Context, query, dir string, limit int) (*SearchResults, error) {
	query = strings.TrimSpace(query)
	if dir != "" {
		dir = filepath.Clean(dir)
	}
	if limit <= 0 || limit > e.config.MaxResults {
		limit = e.config.MaxResults
	}

	results := &SearchResults{Query: query, Dir: dir, Hits: []SearchHit{}}
	if query == "" {
		return results, nil
	}

	start := time.Now()
	candidates, err := e.store.SearchCandidates(ctx, query, dir, limit+1)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(query)
	hits := make([]SearchHit, 0, len(candidates))
	for _, record := range candidates {
		hits = append(hits, SearchHit{
			FileRecord: record,
			Score:      scoreName(record.Name, needle),
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		ni, nj := strings.ToLower(hits[i].Name), strings.ToLower(hits[j].Name)
		if ni != nj {
			return ni < nj
		}
		return hits[i].Path < hits[j].Path
	})

	if len(hits) > limit {
		hits = hits[:limit]
		results.Truncated = true
	}
	results.Hits = hits
	results.Partial = e.partialFor(dir)

	log.Debug().
		Str("query", query).
		Str("dir", dir).
		Int("hits", len(hits)).
		Dur("took", time.Since(start)).
		Msg("search completed")

	return results, nil
}

// scoreName ranks how well a record's own name matches the query.
func scoreName(name, needle string) int {
	lower := strings.ToLower(name)
	switch {
	case lower == needle:
		return scoreExact
	case strings.HasPrefix(lower, needle):
		return scorePrefix
	case strings.Contains(lower, needle):
		return scoreSubstring
	default:
		return 0
	}
}

// partialFor reports whether results scoped to dir may still be
// incomplete because an active crawl overlaps that scope.
func (e *Engine) partialFor(dir string) bool {
	if e.crawls == nil {
		return false
	}
	snapshot := e.crawls.Snapshot()
	if !snapshot.Active() {
		return false
	}
	if dir == "" {
		return true
	}
	return scopesOverlap(snapshot.Root, dir)
}

// scopesOverlap reports whether one path contains the other.
func scopesOverlap(a, b string) bool {
	if a == b {
		return true
	}
	return strings.HasPrefix(b, a+string(filepath.Separator)) ||
		strings.HasPrefix(a, b+string(filepath.Separator))
}
