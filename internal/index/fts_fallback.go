//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	snippetWidth = 200
	snippetLead  = 60
)

// Without FTS5 the waystations table is the search corpus, so there is no
// side table to maintain.
func initFTS(_ *sql.DB) error { return nil }

func ftsUpsert(_ *sql.Tx, _, _, _ string, _ []string) error { return nil }

func ftsDelete(_ *sql.Tx, _ string) error { return nil }

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search returns the Waystations whose name, flattened marks or tags contain
// every whitespace separated term of query, most recently updated first.
// Terms match literally and ASCII case is ignored.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return nil, nil
	}

	var (
		where []string
		args  []any
	)
	for _, term := range terms {
		pattern := "%" + likeEscaper.Replace(term) + "%"
		where = append(where, `(name LIKE ? ESCAPE '\' OR body LIKE ? ESCAPE '\' OR tags LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern)
	}
	args = append(args, limit)

	rows, err := db.conn.Query(`
		SELECT id, name, body
		FROM waystations
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY updated_at DESC, id
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var (
			r    SearchResult
			body string
		)
		if err := rows.Scan(&r.ID, &r.Name, &body); err != nil {
			return nil, err
		}
		r.Snippet = snippet(body, terms)
		out = append(out, r)
	}
	return out, rows.Err()
}

// snippet cuts up to snippetWidth bytes of body around the first term found
// in it, or from the start when no term occurs in body.
func snippet(body string, terms []string) string {
	lower := strings.ToLower(body)
	start := 0
	for _, term := range terms {
		if i := strings.Index(lower, strings.ToLower(term)); i >= 0 {
			start = max(i-snippetLead, 0)
			break
		}
	}
	if start >= len(body) {
		start = 0
	}
	for start > 0 && !utf8.RuneStart(body[start]) {
		start--
	}
	end := min(start+snippetWidth, len(body))
	for end < len(body) && !utf8.RuneStart(body[end]) {
		end--
	}
	return body[start:end]
}
