package store

import (
	"context"

	"github.com/taghound/taghound/pkg/types"
)

// Store is the storage abstraction for the file index. The crawler and
// watcher are the only writers; the query engine only reads.
type Store interface {
	// Write operations

	// UpsertBatch commits records and their tag associations in one
	// transaction. Readers observe all of a batch or none of it; a
	// record's tag set is replaced atomically with the record itself.
	UpsertBatch(ctx context.Context, records []*types.FileRecord) error

	// TombstonePath marks a single record deleted.
	TombstonePath(ctx context.Context, path string) error

	// TombstoneTree marks a record and everything below it deleted.
	TombstoneTree(ctx context.Context, path string) error

	// SweepGeneration tombstones records under root whose generation
	// predates the given one. Returns the number of records swept.
	SweepGeneration(ctx context.Context, root string, generation int64) (int64, error)

	// Read operations

	// GetByPath returns the record for a path, or nil when none exists.
	GetByPath(ctx context.Context, path string) (*types.FileRecord, error)

	// ListChildren returns the direct children of a directory,
	// directories first, each group alphabetical case-insensitively.
	ListChildren(ctx context.Context, parent string) ([]*types.FileRecord, error)

	// ListTags returns every tag with its file count, ordered by count
	// descending then name.
	ListTags(ctx context.Context) ([]types.TagCount, error)

	// FilesForTag returns the files carrying a tag, name-sorted. A
	// non-empty nameFilter narrows by name substring.
	FilesForTag(ctx context.Context, tag, nameFilter string) ([]*types.FileRecord, error)

	// SearchCandidates returns up to limit records matching the query by
	// name, path, or tag. Relevance ranking happens in the query engine.
	SearchCandidates(ctx context.Context, query, dir string, limit int) ([]*types.FileRecord, error)

	// Bookkeeping

	// MaxGeneration returns the highest crawl generation seen so far.
	MaxGeneration(ctx context.Context) (int64, error)

	// Stats returns aggregate counts over the live index.
	Stats(ctx context.Context) (types.StoreStats, error)

	// Revision increases on every committed write. Cached query results
	// keyed by revision can never serve stale data.
	Revision() int64

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	// Close closes the store and releases resources.
	Close() error
}
