package crawler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/taghound/taghound/pkg/store"
	"github.com/taghound/taghound/pkg/tags"
	"github.com/taghound/taghound/pkg/types"
)

// ErrCrawlActive is returned when a crawl is requested while another
// one is still running. Only one crawl runs at a time.
var ErrCrawlActive = errors.New("a crawl is already active")

// Extractor reads filesystem entries into records. Satisfied by
// *metadata.Extractor; tests substitute their own.
type Extractor interface {
	Extract(path string) (*types.FileRecord, []byte, error)
	ReadDir(path string) ([]os.DirEntry, error)
}

// Config controls crawl parallelism and batching.
type Config struct {
	// Workers is the number of concurrent extraction workers.
	Workers int

	// Depth limits how many directory levels below the root are
	// listed. Zero means unlimited.
	Depth int

	// BatchSize is the number of records committed per transaction.
	BatchSize int

	// FlushInterval bounds how long a partial batch may sit uncommitted.
	FlushInterval time.Duration

	// CommitRetries is the number of retries for a failed batch commit.
	CommitRetries int
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 256
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = 500 * time.Millisecond
	}
	if c.CommitRetries <= 0 {
		c.CommitRetries = 3
	}
	return c
}

// crawl tracks the progress of a single crawl run.
type crawl struct {
	id         string
	generation int64
	root       string
	depth      int
	startedAt  time.Time
	ctx        context.Context

	visited  atomic.Int64
	queued   atomic.Int64
	skipped  atomic.Int64
	errors   atomic.Int64
	degraded atomic.Bool

	seenMu sync.Mutex
	seen   map[string]struct{}

	// Written once under the crawler mutex when the run ends.
	finishedAt time.Time
	cancelled  bool
	completed  bool
}

// markSeen records a directory by its resolved path and reports whether
// it was new. Symlink loops resolve to an already-seen path and stop.
func (cr *crawl) markSeen(path string) bool {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		resolved = path
	}

	cr.seenMu.Lock()
	defer cr.seenMu.Unlock()
	if _, ok := cr.seen[resolved]; ok {
		return false
	}
	cr.seen[resolved] = struct{}{}
	return true
}

// dirItem is one directory awaiting listing, tagged with its depth
// below the crawl root.
type dirItem struct {
	path  string
	depth int
}

// Crawler walks directory trees and feeds the index store. Records are
// stamped with a monotonically increasing generation; after a complete
// walk, records under the root left at an older generation are swept.
type Crawler struct {
	store     store.Store
	extractor Extractor
	decoder   tags.Decoder
	config    Config

	// onDirectory is invoked for every directory the crawler descends
	// into. Must be set before the first crawl starts.
	onDirectory func(path string)

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	current *crawl
}

func New(s store.Store, extractor Extractor, decoder tags.Decoder, config Config) *Crawler {
	return &Crawler{
		store:     s,
		extractor: extractor,
		decoder:   decoder,
		config:    config.withDefaults(),
	}
}

// OnDirectory registers a callback for directories the crawler enters.
// The watcher uses it to extend its watch set while a crawl runs.
func (c *Crawler) OnDirectory(fn func(path string)) {
	c.onDirectory = fn
}

// StartCrawl begins a crawl in the background and returns its initial
// snapshot. Depth zero falls back to the configured limit. Returns
// ErrCrawlActive when one is already running.
func (c *Crawler) StartCrawl(ctx context.Context, root string, depth int) (types.CrawlSnapshot, error) {
	cr, err := c.begin(ctx, root, depth)
	if err != nil {
		return types.CrawlSnapshot{}, err
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(cr)
	}()

	return c.Snapshot(), nil
}

// Run performs a crawl synchronously and returns its final snapshot.
func (c *Crawler) Run(ctx context.Context, root string, depth int) (types.CrawlSnapshot, error) {
	cr, err := c.begin(ctx, root, depth)
	if err != nil {
		return types.CrawlSnapshot{}, err
	}

	c.wg.Add(1)
	defer c.wg.Done()
	c.run(cr)

	return c.Snapshot(), nil
}

// Cancel stops the active crawl, if any. Records committed so far stay
// in the index; no sweep happens for a cancelled crawl.
func (c *Crawler) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running || c.cancel == nil {
		return false
	}
	c.cancel()
	return true
}

// Stop cancels any active crawl and waits for it to wind down.
func (c *Crawler) Stop() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Unlock()

	c.wg.Wait()
}

// IsRunning returns whether a crawl is currently active.
func (c *Crawler) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Generation returns the generation of the current or most recent
// crawl, or zero when none has run in this process.
func (c *Crawler) Generation() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return 0
	}
	return c.current.generation
}

// Snapshot returns a copy of the current or most recent crawl state.
func (c *Crawler) Snapshot() types.CrawlSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	cr := c.current
	if cr == nil {
		return types.CrawlSnapshot{}
	}
	return types.CrawlSnapshot{
		ID:         cr.id,
		Generation: cr.generation,
		Root:       cr.root,
		StartedAt:  cr.startedAt,
		FinishedAt: cr.finishedAt,
		Visited:    cr.visited.Load(),
		Queued:     cr.queued.Load(),
		Skipped:    cr.skipped.Load(),
		Errors:     cr.errors.Load(),
		Cancelled:  cr.cancelled,
		Completed:  cr.completed,
		Degraded:   cr.degraded.Load(),
	}
}

func (c *Crawler) begin(ctx context.Context, root string, depth int) (*crawl, error) {
	root = filepath.Clean(root)
	if depth <= 0 {
		depth = c.config.Depth
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return nil, ErrCrawlActive
	}

	generation, err := c.store.MaxGeneration(ctx)
	if err != nil {
		return nil, err
	}

	crawlCtx, cancel := context.WithCancel(ctx)
	cr := &crawl{
		id:         uuid.New().String(),
		generation: generation + 1,
		root:       root,
		depth:      depth,
		startedAt:  time.Now(),
		ctx:        crawlCtx,
		seen:       make(map[string]struct{}),
	}

	c.running = true
	c.cancel = cancel
	c.current = cr
	return cr, nil
}

func (c *Crawler) run(cr *crawl) {
	ctx := cr.ctx
	start := time.Now()

	log.Info().
		Str("crawl_id", cr.id).
		Str("root", cr.root).
		Int64("generation", cr.generation).
		Msg("crawl started")

	batch := newBatcher(c.store, c.config.BatchSize, c.config.FlushInterval, c.config.CommitRetries, func(err error) {
		cr.degraded.Store(true)
		cr.errors.Add(1)
		log.Error().Err(err).Str("crawl_id", cr.id).Msg("batch commit failed, index may be incomplete")
	})
	batch.start(ctx)

	rootOK := c.crawlRoot(ctx, cr, batch)

	cancelled := ctx.Err() != nil
	batch.close(!cancelled)

	// Anything under the root the walk did not revisit is stale. A
	// cancelled or degraded crawl must not sweep: unvisited records may
	// still exist on disk. A depth-limited walk proves nothing about
	// entries below its horizon, so only full walks sweep.
	if rootOK && !cancelled && !cr.degraded.Load() && cr.depth == 0 {
		swept, err := c.store.SweepGeneration(context.Background(), cr.root, cr.generation)
		if err != nil {
			cr.errors.Add(1)
			cr.degraded.Store(true)
			log.Error().Err(err).Str("crawl_id", cr.id).Msg("failed to sweep stale records")
		} else if swept > 0 {
			log.Info().Str("crawl_id", cr.id).Int64("swept", swept).Msg("swept stale records")
		}
	}

	c.mu.Lock()
	cr.finishedAt = time.Now()
	cr.cancelled = cancelled
	cr.completed = rootOK && !cancelled
	c.running = false
	c.cancel = nil
	c.mu.Unlock()

	log.Info().
		Str("crawl_id", cr.id).
		Int64("visited", cr.visited.Load()).
		Int64("queued", cr.queued.Load()).
		Int64("skipped", cr.skipped.Load()).
		Int64("errors", cr.errors.Load()).
		Bool("cancelled", cancelled).
		Dur("duration", time.Since(start)).
		Msg("crawl finished")
}

// crawlRoot indexes the root entry and, when it is a directory, walks
// everything below it. Returns false when the root itself is unusable.
func (c *Crawler) crawlRoot(ctx context.Context, cr *crawl, batch *batcher) bool {
	record, raw, err := c.extractor.Extract(cr.root)
	if err != nil {
		cr.errors.Add(1)
		log.Error().Err(err).Str("root", cr.root).Msg("crawl root is not accessible")
		return false
	}

	// A non-empty parent must name an indexed directory. A fresh root has
	// nothing above it in the index, so it anchors its own tree.
	if record.Parent != "" {
		if existing, err := c.store.GetByPath(ctx, record.Parent); err != nil || existing == nil {
			record.Parent = ""
		}
	}

	c.indexRecord(ctx, cr, batch, record, raw)
	if !record.IsDir {
		return true
	}

	c.walk(ctx, cr, batch)
	return true
}

// walk drains an explicit queue of directories seeded with the root.
// Listing stays on this goroutine; file entries are handed to a bounded
// pool of extraction workers. Cancellation is checked every time a
// directory is dequeued.
func (c *Crawler) walk(ctx context.Context, cr *crawl, batch *batcher) {
	files := make(chan string, c.config.Workers*4)

	var workers sync.WaitGroup
	for i := 0; i < c.config.Workers; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for path := range files {
				// A cancelled crawl drains the channel without extracting.
				if ctx.Err() != nil {
					continue
				}
				record, raw, err := c.extractor.Extract(path)
				if err != nil {
					cr.errors.Add(1)
					log.Warn().Err(err).Str("path", path).Msg("failed to extract entry")
					continue
				}
				c.indexRecord(ctx, cr, batch, record, raw)
			}
		}()
	}

	queue := []dirItem{{path: cr.root, depth: 1}}
	cr.queued.Add(1)
	for len(queue) > 0 && ctx.Err() == nil {
		item := queue[0]
		queue = queue[1:]
		cr.queued.Add(-1)
		queue = c.scanDir(ctx, cr, batch, files, queue, item)
	}

	close(files)
	workers.Wait()
}

// scanDir lists one dequeued directory and indexes its children. File
// entries go to the worker pool; directories and symlinks are resolved
// inline, since the descend decision needs the extracted record. Returns
// the queue with any subdirectories appended.
func (c *Crawler) scanDir(ctx context.Context, cr *crawl, batch *batcher, files chan<- string, queue []dirItem, item dirItem) []dirItem {
	if !cr.markSeen(item.path) {
		cr.skipped.Add(1)
		log.Debug().Str("path", item.path).Msg("skipping already-visited directory")
		return queue
	}

	if c.onDirectory != nil {
		c.onDirectory(item.path)
	}

	entries, err := c.extractor.ReadDir(item.path)
	if err != nil {
		cr.errors.Add(1)
		log.Warn().Err(err).Str("path", item.path).Msg("failed to read directory")

		// Keep the directory itself visible, flagged unreadable. Its own
		// tags survived the first upsert and must survive this one.
		if record, raw, exErr := c.extractor.Extract(item.path); exErr == nil {
			record.Generation = cr.generation
			record.Unreadable = true
			if len(raw) > 0 {
				if annotations, decErr := c.decoder.Decode(raw); decErr == nil {
					record.Tags = annotations
				}
			}
			batch.add(ctx, record)
		}
		return queue
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			return queue
		}

		child := filepath.Join(item.path, entry.Name())
		if !entry.IsDir() && entry.Type()&os.ModeSymlink == 0 {
			files <- child
			continue
		}

		record, raw, err := c.extractor.Extract(child)
		if err != nil {
			cr.errors.Add(1)
			log.Warn().Err(err).Str("path", child).Msg("failed to extract entry")
			continue
		}

		c.indexRecord(ctx, cr, batch, record, raw)

		if !record.IsDir {
			continue
		}
		if cr.depth > 0 && item.depth >= cr.depth {
			cr.skipped.Add(1)
			continue
		}

		cr.queued.Add(1)
		queue = append(queue, dirItem{path: child, depth: item.depth + 1})
	}
	return queue
}

func (c *Crawler) indexRecord(ctx context.Context, cr *crawl, batch *batcher, record *types.FileRecord, raw []byte) {
	record.Generation = cr.generation

	if len(raw) > 0 {
		annotations, err := c.decoder.Decode(raw)
		if err != nil {
			// A bad annotation never hides the file itself.
			cr.errors.Add(1)
			log.Warn().Err(err).Str("path", record.Path).Msg("failed to decode tag annotation")
		} else {
			record.Tags = annotations
		}
	}

	cr.visited.Add(1)
	batch.add(ctx, record)
}
