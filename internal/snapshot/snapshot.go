// Package snapshot persists the last successfully synced content list to
// a local SQLite database so the board stays readable while offline.
package snapshot

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mindmarks/mindmarks-go/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS content_items (
	id        TEXT PRIMARY KEY,
	position  INTEGER NOT NULL DEFAULT 0,
	item      TEXT NOT NULL,
	synced_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS content_pages (
	id        TEXT PRIMARY KEY,
	page      TEXT NOT NULL,
	synced_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_content_items_position ON content_items(position);
`

// DB wraps a sql.DB with snapshot operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the snapshot database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("snapshot: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("snapshot: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("snapshot: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// PutItems replaces the stored list with the given items, preserving
// their order, within a transaction.
func (db *DB) PutItems(items []models.ContentItem) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("snapshot: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.Exec(`DELETE FROM content_items`); err != nil {
		return fmt.Errorf("snapshot: clear items: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO content_items (id, position, item, synced_at)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("snapshot: prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for i, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("snapshot: encode item %s: %w", item.ID, err)
		}
		if _, err := stmt.Exec(item.ID, i, string(data), now); err != nil {
			return fmt.Errorf("snapshot: insert item %s: %w", item.ID, err)
		}
	}
	return tx.Commit()
}

// Items returns the stored list in its original order, along with the
// time it was synced. An empty database yields a nil slice and zero time.
func (db *DB) Items() ([]models.ContentItem, time.Time, error) {
	rows, err := db.conn.Query(`
		SELECT item, synced_at FROM content_items ORDER BY position
	`)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("snapshot: query items: %w", err)
	}
	defer rows.Close()

	var items []models.ContentItem
	var syncedAt time.Time
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw, &syncedAt); err != nil {
			return nil, time.Time{}, fmt.Errorf("snapshot: scan item: %w", err)
		}
		var item models.ContentItem
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			return nil, time.Time{}, fmt.Errorf("snapshot: decode item: %w", err)
		}
		items = append(items, item)
	}
	return items, syncedAt, rows.Err()
}

// PutPage stores one full document.
func (db *DB) PutPage(page models.ContentPage) error {
	data, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("snapshot: encode page %s: %w", page.ID, err)
	}
	_, err = db.conn.Exec(`
		INSERT INTO content_pages (id, page, synced_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			page      = excluded.page,
			synced_at = excluded.synced_at
	`, page.ID, string(data), time.Now())
	if err != nil {
		return fmt.Errorf("snapshot: upsert page %s: %w", page.ID, err)
	}
	return nil
}

// Page returns one stored document, or nil when absent.
func (db *DB) Page(id string) (*models.ContentPage, error) {
	var raw string
	err := db.conn.QueryRow(`SELECT page FROM content_pages WHERE id = ?`, id).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot: query page %s: %w", id, err)
	}
	var page models.ContentPage
	if err := json.Unmarshal([]byte(raw), &page); err != nil {
		return nil, fmt.Errorf("snapshot: decode page %s: %w", id, err)
	}
	return &page, nil
}

// Prune removes pages whose content item is gone and any data older than
// maxAge.
func (db *DB) Prune(maxAge time.Duration) error {
	cutoff := time.Now().Add(-maxAge)
	if _, err := db.conn.Exec(`
		DELETE FROM content_pages
		WHERE id NOT IN (SELECT id FROM content_items) OR synced_at < ?
	`, cutoff); err != nil {
		return fmt.Errorf("snapshot: prune pages: %w", err)
	}
	if _, err := db.conn.Exec(`DELETE FROM content_items WHERE synced_at < ?`, cutoff); err != nil {
		return fmt.Errorf("snapshot: prune items: %w", err)
	}
	return nil
}
