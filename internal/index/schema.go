// Package index provides a SQLite-backed report of the last build: which
// documents were rendered and which of their links resolved.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
	path     TEXT PRIMARY KEY,
	output   TEXT NOT NULL DEFAULT '',
	title    TEXT NOT NULL DEFAULT '',
	checksum TEXT NOT NULL DEFAULT '',
	built_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS links (
	source        TEXT NOT NULL,
	reference     TEXT NOT NULL,
	resolved_path TEXT NOT NULL DEFAULT '',
	kind          TEXT NOT NULL DEFAULT 'wiki',
	ok            INTEGER NOT NULL DEFAULT 0,
	UNIQUE(source, reference)
);

CREATE INDEX IF NOT EXISTS idx_links_source ON links(source);
CREATE INDEX IF NOT EXISTS idx_links_ok ON links(ok);
`

// Files returns the database file at path together with the journal files
// SQLite keeps next to it.
func Files(path string) []string {
	return []string{path, path + "-wal", path + "-shm", path + "-journal"}
}

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
