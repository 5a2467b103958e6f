// Package audit journals committed edits to a local SQLite database so
// staff can review what changed during a session.
package audit

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one committed change.
type Entry struct {
	ID       int64
	NodeKey  string
	NodeKind string
	Field    string
	OldValue string
	NewValue string
	Bulk     bool
	At       time.Time
}

// DB handles edit journal persistence.
type DB struct {
	db *sql.DB
}

// Open opens or creates the journal database at the given path.
func Open(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	adb := &DB{db: db}
	if err := adb.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return adb, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS edits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		node_key TEXT NOT NULL,
		node_kind TEXT NOT NULL,
		field TEXT NOT NULL,
		old_value TEXT DEFAULT '',
		new_value TEXT DEFAULT '',
		bulk INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_edits_node_key ON edits(node_key);
	CREATE INDEX IF NOT EXISTS idx_edits_created_at ON edits(created_at);
	`
	_, err := d.db.Exec(schema)
	return err
}

// Record appends an entry to the journal.
func (d *DB) Record(e Entry) error {
	at := e.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := d.db.Exec(
		`INSERT INTO edits (node_key, node_kind, field, old_value, new_value, bulk, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.NodeKey, e.NodeKind, e.Field, e.OldValue, e.NewValue, boolToInt(e.Bulk), at,
	)
	if err != nil {
		return fmt.Errorf("record edit: %w", err)
	}
	return nil
}

// Recent returns the latest n entries, newest first.
func (d *DB) Recent(n int) ([]Entry, error) {
	rows, err := d.db.Query(
		`SELECT id, node_key, node_kind, field, old_value, new_value, bulk, created_at
		 FROM edits ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query edits: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var bulk int
		if err := rows.Scan(&e.ID, &e.NodeKey, &e.NodeKind, &e.Field, &e.OldValue, &e.NewValue, &bulk, &e.At); err != nil {
			return nil, fmt.Errorf("scan edit: %w", err)
		}
		e.Bulk = bulk != 0
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountForNode returns how many journal entries exist for a node key.
func (d *DB) CountForNode(nodeKey string) (int, error) {
	var count int
	err := d.db.QueryRow(`SELECT COUNT(*) FROM edits WHERE node_key = ?`, nodeKey).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count edits: %w", err)
	}
	return count, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
