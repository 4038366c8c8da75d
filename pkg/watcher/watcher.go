package watcher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/taghound/taghound/pkg/common"
	"github.com/taghound/taghound/pkg/crawler"
	"github.com/taghound/taghound/pkg/store"
	"github.com/taghound/taghound/pkg/tags"
	"github.com/taghound/taghound/pkg/types"
)

// Watcher keeps the index aligned with filesystem changes between
// crawls. Writes and metadata changes are debounced per path before
// re-extraction; removals and renames tombstone immediately.
type Watcher struct {
	store     store.Store
	extractor crawler.Extractor
	decoder   tags.Decoder
	debouncer *common.Debouncer
	notifier  *fsnotify.Watcher

	// generation stamps records written outside a crawl so the next
	// sweep does not treat them as stale.
	generation func() int64

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func New(s store.Store, extractor crawler.Extractor, decoder tags.Decoder, generation func() int64, debounce time.Duration) (*Watcher, error) {
	notifier, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}

	return &Watcher{
		store:      s,
		extractor:  extractor,
		decoder:    decoder,
		debouncer:  common.NewDebouncer(debounce),
		notifier:   notifier,
		generation: generation,
	}, nil
}

// Watch adds a directory to the watch set. Failures are logged and
// ignored; watching is best-effort on top of crawls.
func (w *Watcher) Watch(dir string) {
	if err := w.notifier.Add(dir); err != nil {
		log.Debug().Err(err).Str("dir", dir).Msg("failed to watch directory")
	}
}

// Start begins consuming filesystem events.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	ctx, w.cancel = context.WithCancel(ctx)
	w.running = true
	w.mu.Unlock()

	log.Info().Msg("starting filesystem watcher")

	w.wg.Add(1)
	go w.runEventLoop(ctx)
}

// Stop shuts down the event loop and cancels pending refreshes.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	if w.cancel != nil {
		w.cancel()
	}
	w.running = false
	w.mu.Unlock()

	w.wg.Wait()
	w.debouncer.Stop()
	w.notifier.Close()
	log.Info().Msg("filesystem watcher stopped")
}

func (w *Watcher) runEventLoop(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case event, ok := <-w.notifier.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, event)
		case err, ok := <-w.notifier.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("filesystem watcher error")
		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	path := filepath.Clean(event.Name)

	switch {
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		// The old path is gone either way; a rename target announces
		// itself with its own create event.
		if err := w.store.TombstoneTree(ctx, path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("failed to tombstone removed path")
		}
	case event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Chmod) != 0:
		// Editors fire bursts of writes, and tag edits arrive as
		// metadata changes. Coalesce per path before re-extracting.
		w.debouncer.Call(path, func() {
			w.refresh(ctx, path)
		})
	}
}

// refresh re-extracts one path and upserts it, descending into newly
// appeared directories so a moved-in tree is picked up whole.
func (w *Watcher) refresh(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}

	record, raw, err := w.extractor.Extract(path)
	if err != nil {
		if (&types.ErrNotFound{}).From(err) {
			// Vanished between the event and the stat
			if err := w.store.TombstoneTree(ctx, path); err != nil {
				log.Warn().Err(err).Str("path", path).Msg("failed to tombstone vanished path")
			}
			return
		}
		log.Warn().Err(err).Str("path", path).Msg("failed to refresh path")
		return
	}

	record.Generation = w.generation()
	if len(raw) > 0 {
		if annotations, err := w.decoder.Decode(raw); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("failed to decode tag annotation")
		} else {
			record.Tags = annotations
		}
	}

	if err := w.store.UpsertBatch(ctx, []*types.FileRecord{record}); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("failed to upsert refreshed path")
		return
	}

	log.Debug().Str("path", path).Bool("dir", record.IsDir).Msg("refreshed path")

	if record.IsDir {
		w.Watch(path)
		w.scanDirectory(ctx, path)
	}
}

// scanDirectory indexes the children of a directory that appeared after
// the last crawl. Nested directories recurse through refresh.
func (w *Watcher) scanDirectory(ctx context.Context, dir string) {
	entries, err := w.extractor.ReadDir(dir)
	if err != nil {
		log.Warn().Err(err).Str("dir", dir).Msg("failed to scan new directory")
		return
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}
		w.refresh(ctx, filepath.Join(dir, entry.Name()))
	}
}
