// ABOUTME: SQLite-backed key-value storage for the entity store
// ABOUTME: Keyed upserts and deletes of single records in the records table
package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Records stores store records as rows keyed by {collection}/{id}.
type Records struct {
	db *sql.DB
}

// Open opens the SQLite file at path as a Records backend.
func Open(path string) (*Records, error) {
	db, err := OpenDatabase(path)
	if err != nil {
		return nil, err
	}
	return &Records{db: db}, nil
}

// NewRecords wraps an already initialised database.
func NewRecords(db *sql.DB) *Records {
	return &Records{db: db}
}

func collectionOf(key string) string {
	if i := strings.IndexByte(key, '/'); i >= 0 {
		return key[:i]
	}
	return key
}

func (r *Records) Get(key string) ([]byte, bool, error) {
	var value []byte
	err := r.db.QueryRow(`SELECT value FROM records WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get record: %w", err)
	}
	return value, true, nil
}

func (r *Records) Set(key string, value []byte) error {
	_, err := r.db.Exec(`
		INSERT INTO records (key, collection, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, key, collectionOf(key), value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	return nil
}

func (r *Records) Delete(key string) error {
	if _, err := r.db.Exec(`DELETE FROM records WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

func (r *Records) KeysWithPrefix(prefix string) ([]string, error) {
	rows, err := r.db.Query(`SELECT key FROM records WHERE substr(key, 1, ?) = ? ORDER BY key`, len(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan record key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Count returns the number of records in collection.
func (r *Records) Count(collection string) (int, error) {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM records WHERE collection = ?`, collection).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return n, nil
}

func (r *Records) Close() error {
	return r.db.Close()
}
