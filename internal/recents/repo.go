package recents

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/starford/excalibur/internal/models"
)

// Touch moves path to the front of the registry, inserting it if needed,
// and drops everything beyond limit. Entries are unique by path.
func (db *DB) Touch(ctx context.Context, kind models.Kind, path, name string, limit int) error {
	if limit <= 0 || limit > MaxEntries {
		limit = MaxEntries
	}
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("recents: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	var nullName sql.NullString
	if name != "" {
		nullName = sql.NullString{String: name, Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO recents (path, kind, name, seq, updated_at)
		VALUES (?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM recents), ?)
		ON CONFLICT(path) DO UPDATE SET
			kind       = excluded.kind,
			name       = excluded.name,
			seq        = excluded.seq,
			updated_at = excluded.updated_at
	`, path, string(kind), nullName, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("recents: upsert: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM recents
		WHERE path NOT IN (SELECT path FROM recents ORDER BY seq DESC LIMIT ?)
	`, limit)
	if err != nil {
		return fmt.Errorf("recents: trim: %w", err)
	}

	return tx.Commit()
}

// List returns up to limit entries, most recently used first.
func (db *DB) List(ctx context.Context, limit int) ([]models.RecentEntry, error) {
	if limit <= 0 || limit > MaxEntries {
		limit = MaxEntries
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT kind, path, name, updated_at
		FROM recents
		ORDER BY seq DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("recents: list: %w", err)
	}
	defer rows.Close()

	out := []models.RecentEntry{}
	for rows.Next() {
		var (
			e    models.RecentEntry
			kind string
			name sql.NullString
		)
		if err := rows.Scan(&kind, &e.Path, &name, &e.UpdatedAt); err != nil {
			return nil, err
		}
		e.Kind = models.Kind(kind)
		e.Name = name.String
		out = append(out, e)
	}
	return out, rows.Err()
}

// Remove deletes path from the registry. Missing paths are not an error.
func (db *DB) Remove(ctx context.Context, path string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM recents WHERE path = ?`, path); err != nil {
		return fmt.Errorf("recents: remove: %w", err)
	}
	return nil
}
