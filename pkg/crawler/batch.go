package crawler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-retry"

	"github.com/taghound/taghound/pkg/store"
	"github.com/taghound/taghound/pkg/types"
)

// batcher accumulates records and commits them in bounded batches so
// readers observe crawl progress in atomic chunks. A batch that cannot
// be committed after retries is dropped and reported through onError.
type batcher struct {
	store    store.Store
	size     int
	interval time.Duration
	retries  uint64
	onError  func(error)

	mu      sync.Mutex
	pending []*types.FileRecord

	stop chan struct{}
	done chan struct{}
}

func newBatcher(s store.Store, size int, interval time.Duration, retries int, onError func(error)) *batcher {
	return &batcher{
		store:    s,
		size:     size,
		interval: interval,
		retries:  uint64(retries),
		onError:  onError,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// start launches the flush ticker so slow crawls still surface progress
// between full batches.
func (b *batcher) start(ctx context.Context) {
	go func() {
		defer close(b.done)

		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				b.flush(ctx)
			case <-b.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (b *batcher) add(ctx context.Context, record *types.FileRecord) {
	b.mu.Lock()
	b.pending = append(b.pending, record)
	full := len(b.pending) >= b.size
	b.mu.Unlock()

	if full {
		b.flush(ctx)
	}
}

func (b *batcher) flush(ctx context.Context) {
	b.mu.Lock()
	if len(b.pending) == 0 {
		b.mu.Unlock()
		return
	}
	records := b.pending
	b.pending = nil
	b.mu.Unlock()

	b.commit(ctx, records)
}

func (b *batcher) commit(ctx context.Context, records []*types.FileRecord) {
	backoff := retry.WithMaxRetries(b.retries, retry.NewExponential(100*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := b.store.UpsertBatch(ctx, records); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			// The crawl is being torn down; the tail is dropped anyway.
			return
		}
		b.onError(err)
		return
	}

	log.Debug().Int("records", len(records)).Msg("committed index batch")
}

// close stops the ticker. When flushTail is set the remaining buffer is
// committed with a fresh context so a finished crawl cannot lose it.
func (b *batcher) close(flushTail bool) {
	close(b.stop)
	<-b.done

	if flushTail {
		b.flush(context.Background())
		return
	}

	b.mu.Lock()
	dropped := len(b.pending)
	b.pending = nil
	b.mu.Unlock()

	if dropped > 0 {
		log.Debug().Int("records", dropped).Msg("dropped uncommitted batch")
	}
}
