package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Row represents a row in the waystations table.
type Row struct {
	ID        string
	Name      string
	Checksum  string
	Tags      []string
	Marks     int
	UpdatedAt time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Snippet string `json:"snippet"`
}

// UpsertWaystation inserts or replaces a waystation and its FTS entry within
// a transaction.
func (db *DB) UpsertWaystation(r Row, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if r.Tags == nil {
		r.Tags = []string{}
	}
	tagsJSON, _ := json.Marshal(r.Tags)
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = time.Now()
	}

	_, err = tx.Exec(`
		INSERT INTO waystations (id, name, checksum, tags, marks, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name       = excluded.name,
			checksum   = excluded.checksum,
			tags       = excluded.tags,
			marks      = excluded.marks,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, r.ID, r.Name, r.Checksum, string(tagsJSON), r.Marks, body, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert waystation: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, r.ID, r.Name, body, r.Tags); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteWaystation removes a waystation and its FTS entry. Project
// associations are kept so a restored backup is found again.
func (db *DB) DeleteWaystation(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := ftsDelete(tx, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM waystations WHERE id = ?`, id); err != nil {
		return fmt.Errorf("index: delete waystation: %w", err)
	}
	return tx.Commit()
}

// GetChecksum returns the stored checksum for a waystation, or empty string
// if it is not indexed.
func (db *DB) GetChecksum(id string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM waystations WHERE id = ?`, id).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums returns the checksum of every indexed waystation keyed by id.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT id, checksum FROM waystations`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var id, cs string
		if err := rows.Scan(&id, &cs); err != nil {
			return nil, err
		}
		out[id] = cs
	}
	return out, rows.Err()
}
