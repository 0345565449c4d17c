package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// DocumentRow represents a row in the documents table.
type DocumentRow struct {
	Path     string
	Output   string
	Title    string
	Checksum string
	BuiltAt  time.Time
}

// LinkRow is one checked reference of a document.
type LinkRow struct {
	Source       string
	Reference    string
	ResolvedPath string
	Kind         string
	OK           bool
}

// RecordDocument inserts or replaces a document and its links within a
// transaction. Links of a previous build of the same document are dropped.
func (db *DB) RecordDocument(doc DocumentRow, links []LinkRow) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if doc.BuiltAt.IsZero() {
		doc.BuiltAt = time.Now().UTC()
	}
	_, err = tx.Exec(`
		INSERT INTO documents (path, output, title, checksum, built_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			output   = excluded.output,
			title    = excluded.title,
			checksum = excluded.checksum,
			built_at = excluded.built_at
	`, doc.Path, doc.Output, doc.Title, doc.Checksum, doc.BuiltAt)
	if err != nil {
		return fmt.Errorf("index: upsert document: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM links WHERE source = ?`, doc.Path); err != nil {
		return fmt.Errorf("index: clear links: %w", err)
	}
	if len(links) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO links (source, reference, resolved_path, kind, ok) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare link insert: %w", err)
		}
		defer stmt.Close()
		for _, l := range links {
			if _, err := stmt.Exec(doc.Path, l.Reference, l.ResolvedPath, l.Kind, l.OK); err != nil {
				return fmt.Errorf("index: insert link: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteDocument removes a document and its outgoing links.
func (db *DB) DeleteDocument(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM links WHERE source = ?`, path); err != nil {
		return fmt.Errorf("index: delete links: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM documents WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete document: %w", err)
	}
	return tx.Commit()
}

// GetChecksum returns the stored checksum for a document, or empty string
// if it has not been built.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM documents WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: checksum: %w", err)
	}
	return cs, nil
}

// AllPaths returns every recorded document path.
func (db *DB) AllPaths() (map[string]struct{}, error) {
	rows, err := db.conn.Query(`SELECT path FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: all paths: %w", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out[p] = struct{}{}
	}
	return out, rows.Err()
}

// Documents lists every recorded document ordered by path.
func (db *DB) Documents() ([]DocumentRow, error) {
	rows, err := db.conn.Query(`SELECT path, output, title, checksum, built_at FROM documents ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("index: documents: %w", err)
	}
	defer rows.Close()

	var out []DocumentRow
	for rows.Next() {
		var d DocumentRow
		if err := rows.Scan(&d.Path, &d.Output, &d.Title, &d.Checksum, &d.BuiltAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Broken returns every link that did not resolve, ordered by source then
// reference.
func (db *DB) Broken() ([]LinkRow, error) {
	rows, err := db.conn.Query(`
		SELECT source, reference, resolved_path, kind, ok
		FROM links WHERE ok = 0
		ORDER BY source, reference
	`)
	if err != nil {
		return nil, fmt.Errorf("index: broken: %w", err)
	}
	defer rows.Close()

	var out []LinkRow
	for rows.Next() {
		var l LinkRow
		if err := rows.Scan(&l.Source, &l.Reference, &l.ResolvedPath, &l.Kind, &l.OK); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
