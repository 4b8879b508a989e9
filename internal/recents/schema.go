// Package recents persists the recently used documents registry in SQLite.
package recents

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// MaxEntries is the hard upper bound of the registry.
const MaxEntries = 10

const schemaSQL = `
CREATE TABLE IF NOT EXISTS recents (
	path       TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	name       TEXT,
	seq        INTEGER NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_recents_seq ON recents(seq DESC);
`

// DB wraps a sql.DB with registry operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("recents: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("recents: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("recents: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
