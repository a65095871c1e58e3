// ABOUTME: Database schema definitions
// ABOUTME: A single records table holding one JSON document per key
package db

import (
	"database/sql"
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
	key TEXT PRIMARY KEY,
	collection TEXT NOT NULL,
	value BLOB NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_records_collection ON records(collection);
`

// InitSchema creates the tables if they do not exist yet.
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
