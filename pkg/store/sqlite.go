package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	_ "codeberg.org/emersion/go-sqlite3-fts5"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog/log"

	_ "github.com/taghound/taghound/pkg/store/migrations"
	"github.com/taghound/taghound/pkg/types"
)

const (
	defaultSearchLimit = 1000

	// SQLite caps bound parameters per statement, so tag attachment
	// queries batch paths in chunks.
	tagQueryChunk = 500
)

const fileColumns = `path, parent, name, is_dir, size, mod_time, kind, generation, unreadable`
const fileColumnsF = `f.path, f.parent, f.name, f.is_dir, f.size, f.mod_time, f.kind, f.generation, f.unreadable`

// SQLiteStore implements Store on SQLite with FTS5 full-text search.
// An empty path keeps the whole index in memory for the lifetime of
// the process.
type SQLiteStore struct {
	db                *sql.DB
	useFallbackSearch bool // true if FTS5 is not available
	revision          atomic.Int64
}

var _ Store = (*SQLiteStore)(nil)

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	memory := dbPath == "" || strings.HasPrefix(dbPath, ":memory:")
	if memory {
		dbPath = ":memory:"
	} else {
		dir := filepath.Dir(dbPath)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create index directory %s: %w", dir, err)
			}
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}
	if memory {
		// Each pooled connection would otherwise get its own empty
		// in-memory database.
		db.SetMaxOpenConns(1)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate index database: %w", err)
	}

	log.Info().Str("path", dbPath).Bool("fts", !store.useFallbackSearch).Msg("index store ready")
	return store, nil
}

func (s *SQLiteStore) migrate() error {
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	if err := goose.Up(s.db, "."); err != nil {
		return err
	}

	// The FTS index lives outside the migrations so a SQLite build
	// without FTS5 degrades to LIKE search instead of failing.
	return s.initFTS()
}

func (s *SQLiteStore) initFTS() error {
	_, err := s.db.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS files_fts USING fts5(
			name,
			path,
			content=files,
			content_rowid=id,
			tokenize='porter unicode61'
		)
	`)
	if err != nil {
		log.Warn().Err(err).Msg("FTS5 not available, using fallback search")
		s.useFallbackSearch = true
		return nil
	}

	triggers := []string{
		`CREATE TRIGGER IF NOT EXISTS files_ai AFTER INSERT ON files BEGIN
			INSERT INTO files_fts(rowid, name, path) VALUES (new.id, new.name, new.path);
		END`,
		`CREATE TRIGGER IF NOT EXISTS files_ad AFTER DELETE ON files BEGIN
			INSERT INTO files_fts(files_fts, rowid, name, path) VALUES ('delete', old.id, old.name, old.path);
		END`,
		`CREATE TRIGGER IF NOT EXISTS files_au AFTER UPDATE OF name, path ON files BEGIN
			INSERT INTO files_fts(files_fts, rowid, name, path) VALUES ('delete', old.id, old.name, old.path);
			INSERT INTO files_fts(rowid, name, path) VALUES (new.id, new.name, new.path);
		END`,
	}
	for _, trigger := range triggers {
		if _, err := s.db.Exec(trigger); err != nil {
			return fmt.Errorf("failed to create FTS trigger: %w", err)
		}
	}

	return nil
}

func (s *SQLiteStore) UpsertBatch(ctx context.Context, records []*types.FileRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &types.ErrStore{Op: "upsert", Err: err}
	}
	defer tx.Rollback()

	for _, record := range records {
		parent := any(record.Parent)
		if record.Parent == "" {
			parent = nil
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO files (path, parent, name, is_dir, size, mod_time, kind, generation, unreadable, deleted, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, strftime('%s', 'now'))
			ON CONFLICT(path) DO UPDATE SET
				parent = excluded.parent,
				name = excluded.name,
				is_dir = excluded.is_dir,
				size = excluded.size,
				mod_time = excluded.mod_time,
				kind = excluded.kind,
				generation = excluded.generation,
				unreadable = excluded.unreadable,
				deleted = 0,
				updated_at = strftime('%s', 'now')
		`, record.Path, parent, record.Name, record.IsDir, record.Size,
			record.ModTime.Unix(), record.Kind, record.Generation, record.Unreadable); err != nil {
			return &types.ErrStore{Op: "upsert", Err: err}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM file_tags WHERE file_path = ?`, record.Path); err != nil {
			return &types.ErrStore{Op: "upsert", Err: err}
		}
		for _, tag := range record.Tags {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO file_tags (file_path, tag, color, position)
				VALUES (?, ?, ?, ?)
			`, record.Path, tag.Name, int(tag.Color), tag.Position); err != nil {
				return &types.ErrStore{Op: "upsert", Err: err}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return &types.ErrStore{Op: "upsert", Err: err}
	}

	s.revision.Add(1)
	return nil
}

func (s *SQLiteStore) TombstonePath(ctx context.Context, path string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE files SET deleted = 1, updated_at = strftime('%s', 'now')
		WHERE path = ? AND deleted = 0
	`, path)
	if err != nil {
		return &types.ErrStore{Op: "tombstone", Err: err}
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.revision.Add(1)
	}
	return nil
}

func (s *SQLiteStore) TombstoneTree(ctx context.Context, path string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE files SET deleted = 1, updated_at = strftime('%s', 'now')
		WHERE (path = ? OR path LIKE ? || '/%') AND deleted = 0
	`, path, path)
	if err != nil {
		return &types.ErrStore{Op: "tombstone", Err: err}
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.revision.Add(1)
	}
	return nil
}

func (s *SQLiteStore) SweepGeneration(ctx context.Context, root string, generation int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE files SET deleted = 1, updated_at = strftime('%s', 'now')
		WHERE (path = ? OR path LIKE ? || '/%') AND generation < ? AND deleted = 0
	`, root, root, generation)
	if err != nil {
		return 0, &types.ErrStore{Op: "sweep", Err: err}
	}

	swept, err := res.RowsAffected()
	if err != nil {
		return 0, &types.ErrStore{Op: "sweep", Err: err}
	}
	if swept > 0 {
		s.revision.Add(1)
	}
	return swept, nil
}

func (s *SQLiteStore) GetByPath(ctx context.Context, path string) (*types.FileRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+fileColumns+` FROM files WHERE path = ? AND deleted = 0
	`, path)

	record, err := scanRecord(row)
	if err != nil || record == nil {
		return record, err
	}
	if err := s.attachTags(ctx, []*types.FileRecord{record}); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *SQLiteStore) ListChildren(ctx context.Context, parent string) ([]*types.FileRecord, error) {
	records, err := s.queryRecords(ctx, `
		SELECT `+fileColumns+` FROM files
		WHERE parent = ? AND deleted = 0
		ORDER BY is_dir DESC, name COLLATE NOCASE ASC, name ASC
	`, parent)
	if err != nil {
		return nil, err
	}
	if err := s.attachTags(ctx, records); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *SQLiteStore) ListTags(ctx context.Context) ([]types.TagCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ft.tag, MAX(ft.color), COUNT(*)
		FROM file_tags ft
		JOIN files f ON f.path = ft.file_path
		WHERE f.deleted = 0
		GROUP BY ft.tag
		ORDER BY COUNT(*) DESC, ft.tag COLLATE NOCASE ASC
	`)
	if err != nil {
		return nil, &types.ErrStore{Op: "tags", Err: err}
	}
	defer rows.Close()

	var tags []types.TagCount
	for rows.Next() {
		var tag types.TagCount
		var color int
		if err := rows.Scan(&tag.Name, &color, &tag.Count); err != nil {
			return nil, &types.ErrStore{Op: "tags", Err: err}
		}
		tag.Color = types.TagColor(color)
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

func (s *SQLiteStore) FilesForTag(ctx context.Context, tag, nameFilter string) ([]*types.FileRecord, error) {
	query := `
		SELECT ` + fileColumnsF + `
		FROM files f
		JOIN file_tags ft ON ft.file_path = f.path
		WHERE ft.tag = ? AND f.deleted = 0
	`
	args := []any{tag}
	if nameFilter != "" {
		query += ` AND f.name LIKE ?`
		args = append(args, "%"+nameFilter+"%")
	}
	query += ` ORDER BY f.name COLLATE NOCASE ASC, f.name ASC`

	records, err := s.queryRecords(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if err := s.attachTags(ctx, records); err != nil {
		return nil, err
	}
	return records, nil
}

// SearchCandidates merges three match tiers: FTS5 token matches,
// name substring matches, and tag substring matches. Deduplication
// keeps the first occurrence; relevance ordering is the caller's job.
func (s *SQLiteStore) SearchCandidates(ctx context.Context, query, dir string, limit int) ([]*types.FileRecord, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	scope := ""
	var scopeArgs []any
	if dir != "" {
		scope = ` AND f.path LIKE ? || '/%'`
		scopeArgs = []any{dir}
	}

	seen := make(map[string]struct{})
	var ordered []*types.FileRecord
	merge := func(records []*types.FileRecord) {
		for _, record := range records {
			if _, ok := seen[record.Path]; ok {
				continue
			}
			seen[record.Path] = struct{}{}
			ordered = append(ordered, record)
		}
	}

	if !s.useFallbackSearch {
		args := append([]any{escapeFTSQuery(query)}, scopeArgs...)
		args = append(args, limit)
		matches, err := s.queryRecords(ctx, `
			SELECT `+fileColumnsF+`
			FROM files f
			JOIN files_fts ON f.id = files_fts.rowid
			WHERE files_fts MATCH ? AND f.deleted = 0`+scope+`
			ORDER BY rank
			LIMIT ?
		`, args...)
		if err != nil {
			return nil, err
		}
		merge(matches)
	}

	like := "%" + query + "%"

	args := append([]any{like}, scopeArgs...)
	args = append(args, limit)
	named, err := s.queryRecords(ctx, `
		SELECT `+fileColumnsF+`
		FROM files f
		WHERE f.name LIKE ? AND f.deleted = 0`+scope+`
		ORDER BY f.name COLLATE NOCASE ASC
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, err
	}
	merge(named)

	args = append([]any{like}, scopeArgs...)
	args = append(args, limit)
	tagged, err := s.queryRecords(ctx, `
		SELECT DISTINCT `+fileColumnsF+`
		FROM files f
		JOIN file_tags ft ON ft.file_path = f.path
		WHERE ft.tag LIKE ? AND f.deleted = 0`+scope+`
		ORDER BY f.name COLLATE NOCASE ASC
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, err
	}
	merge(tagged)

	if len(ordered) > limit {
		ordered = ordered[:limit]
	}
	if err := s.attachTags(ctx, ordered); err != nil {
		return nil, err
	}
	return ordered, nil
}

func (s *SQLiteStore) MaxGeneration(ctx context.Context) (int64, error) {
	var generation sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(generation) FROM files`).Scan(&generation); err != nil {
		return 0, &types.ErrStore{Op: "generation", Err: err}
	}
	return generation.Int64, nil
}

func (s *SQLiteStore) Stats(ctx context.Context) (types.StoreStats, error) {
	var stats types.StoreStats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM files WHERE deleted = 0 AND is_dir = 0),
			(SELECT COUNT(*) FROM files WHERE deleted = 0 AND is_dir = 1),
			(SELECT COUNT(DISTINCT ft.tag) FROM file_tags ft JOIN files f ON f.path = ft.file_path WHERE f.deleted = 0),
			(SELECT COUNT(DISTINCT ft.file_path) FROM file_tags ft JOIN files f ON f.path = ft.file_path WHERE f.deleted = 0)
	`).Scan(&stats.Files, &stats.Directories, &stats.Tags, &stats.TaggedFiles)
	if err != nil {
		return types.StoreStats{}, &types.ErrStore{Op: "stats", Err: err}
	}
	return stats, nil
}

func (s *SQLiteStore) Revision() int64 {
	return s.revision.Load()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) queryRecords(ctx context.Context, query string, args ...any) ([]*types.FileRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &types.ErrStore{Op: "query", Err: err}
	}
	defer rows.Close()
	return scanRecords(rows)
}

// attachTags loads the tag annotations for a set of records in chunks,
// position-ordered so annotation order survives the round trip.
func (s *SQLiteStore) attachTags(ctx context.Context, records []*types.FileRecord) error {
	if len(records) == 0 {
		return nil
	}

	index := make(map[string]*types.FileRecord, len(records))
	for _, record := range records {
		record.Tags = nil
		index[record.Path] = record
	}

	for start := 0; start < len(records); start += tagQueryChunk {
		end := min(start+tagQueryChunk, len(records))
		chunk := records[start:end]

		placeholders := make([]string, len(chunk))
		args := make([]any, len(chunk))
		for i, record := range chunk {
			placeholders[i] = "?"
			args[i] = record.Path
		}

		rows, err := s.db.QueryContext(ctx, `
			SELECT file_path, tag, color, position FROM file_tags
			WHERE file_path IN (`+strings.Join(placeholders, ", ")+`)
			ORDER BY file_path, position
		`, args...)
		if err != nil {
			return &types.ErrStore{Op: "tags", Err: err}
		}

		for rows.Next() {
			var path string
			var tag types.TagAnnotation
			var color int
			if err := rows.Scan(&path, &tag.Name, &color, &tag.Position); err != nil {
				rows.Close()
				return &types.ErrStore{Op: "tags", Err: err}
			}
			tag.Color = types.TagColor(color)
			if record, ok := index[path]; ok {
				record.Tags = append(record.Tags, tag)
			}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return &types.ErrStore{Op: "tags", Err: err}
		}
		rows.Close()
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*types.FileRecord, error) {
	var record types.FileRecord
	var parent sql.NullString
	var modTime int64

	err := row.Scan(&record.Path, &parent, &record.Name, &record.IsDir, &record.Size,
		&modTime, &record.Kind, &record.Generation, &record.Unreadable)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &types.ErrStore{Op: "scan", Err: err}
	}

	record.Parent = parent.String
	record.ModTime = time.Unix(modTime, 0).UTC()
	return &record, nil
}

func scanRecords(rows *sql.Rows) ([]*types.FileRecord, error) {
	var records []*types.FileRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, &types.ErrStore{Op: "scan", Err: err}
	}
	return records, nil
}

// escapeFTSQuery quotes each term so FTS5 treats user input literally,
// and adds a trailing wildcard to the last term for prefix matching.
func escapeFTSQuery(query string) string {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return `""`
	}

	escaped := make([]string, len(terms))
	for i, term := range terms {
		term = strings.ReplaceAll(term, `"`, `""`)
		if i == len(terms)-1 {
			escaped[i] = `"` + term + `"*`
		} else {
			escaped[i] = `"` + term + `"`
		}
	}
	return strings.Join(escaped, " ")
}
