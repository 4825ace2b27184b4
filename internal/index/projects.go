package index

import (
	"fmt"
	"path/filepath"
	"time"
)

// Associate records that the waystation id belongs to the project rooted at
// directory. Repeated associations refresh the timestamp.
func (db *DB) Associate(directory, id string) error {
	dir := filepath.Clean(directory)
	_, err := db.conn.Exec(`
		INSERT INTO projects (directory, waystation_id, associated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(directory, waystation_id) DO UPDATE SET
			associated_at = excluded.associated_at
	`, dir, id, time.Now())
	if err != nil {
		return fmt.Errorf("index: associate: %w", err)
	}
	return nil
}

// ProjectWaystations returns the ids associated with directory, most
// recently associated first.
func (db *DB) ProjectWaystations(directory string) ([]string, error) {
	rows, err := db.conn.Query(`
		SELECT waystation_id FROM projects
		WHERE directory = ?
		ORDER BY associated_at DESC, rowid DESC
	`, filepath.Clean(directory))
	if err != nil {
		return nil, fmt.Errorf("index: project waystations: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
