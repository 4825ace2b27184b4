package index

import (
	"fmt"
	"strings"

	"github.com/starford/waystation/internal/checksum"
	"github.com/starford/waystation/internal/models"
	"github.com/starford/waystation/internal/schema"
	"github.com/starford/waystation/internal/storage"
)

// Body flattens the searchable text of w: mark names, canonical paths,
// bodies and resource content, one entry per line.
func Body(w models.Waystation) string {
	var b strings.Builder
	for _, m := range w.Marks {
		fmt.Fprintf(&b, "%s\n%s:%d:%d\n", m.Name, m.Path, m.Line, m.Column)
		if m.Body != "" && m.Body != m.Name {
			b.WriteString(m.Body)
			b.WriteByte('\n')
		}
		for _, r := range m.Resources {
			fmt.Fprintf(&b, "%s\n%s\n", r.Name, r.Body)
		}
	}
	return b.String()
}

// Put indexes w with the checksum of its stored encoding.
func Put(db WaystationIndex, w models.Waystation) error {
	data, err := storage.Encode(w)
	if err != nil {
		return err
	}
	return put(db, w.ID, w, checksum.Sum(data))
}

func put(db WaystationIndex, id string, w models.Waystation, cs string) error {
	row := Row{
		ID:       id,
		Name:     w.DisplayName(),
		Checksum: cs,
		Tags:     w.Tags,
		Marks:    len(w.Marks),
	}
	return db.UpsertWaystation(row, Body(w))
}

// indexFile decodes the stored backup name and upserts it into the DB under
// the id its file name carries.
func indexFile(db WaystationIndex, name string, data []byte) error {
	w, err := schema.DecodeJSON(data, schema.Defaults{})
	if err != nil {
		return err
	}
	return put(db, idFromName(name), w, checksum.Sum(data))
}

// idFromName maps a backup document name to the waystation id it holds.
func idFromName(name string) string {
	return strings.TrimSuffix(name, ".json")
}
