package migrations

import (
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigration(upInitial, downInitial)
}

func upInitial(tx *sql.Tx) error {
	createStatements := []string{
		`CREATE TABLE IF NOT EXISTS files (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			path TEXT NOT NULL UNIQUE,
			parent TEXT,
			name TEXT NOT NULL,
			is_dir INTEGER NOT NULL DEFAULT 0,
			size INTEGER NOT NULL DEFAULT 0,
			mod_time INTEGER NOT NULL DEFAULT 0,
			kind TEXT NOT NULL DEFAULT '',
			generation INTEGER NOT NULL DEFAULT 0,
			unreadable INTEGER NOT NULL DEFAULT 0,
			deleted INTEGER NOT NULL DEFAULT 0,
			updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
		);`,

		`CREATE INDEX IF NOT EXISTS idx_files_parent ON files(parent);`,
		`CREATE INDEX IF NOT EXISTS idx_files_generation ON files(generation);`,
		`CREATE INDEX IF NOT EXISTS idx_files_name ON files(name);`,
		`CREATE INDEX IF NOT EXISTS idx_files_deleted ON files(deleted);`,

		`CREATE TABLE IF NOT EXISTS file_tags (
			file_path TEXT NOT NULL,
			tag TEXT NOT NULL,
			color INTEGER NOT NULL DEFAULT 0,
			position INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (file_path, tag)
		);`,

		`CREATE INDEX IF NOT EXISTS idx_file_tags_tag ON file_tags(tag);`,
	}

	for _, stmt := range createStatements {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}

func downInitial(tx *sql.Tx) error {
	dropStatements := []string{
		`DROP TABLE IF EXISTS file_tags;`,
		`DROP TABLE IF EXISTS files;`,
	}

	for _, stmt := range dropStatements {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
