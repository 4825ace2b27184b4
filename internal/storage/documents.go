package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/starford/waystation/internal/apperr"
	"github.com/starford/waystation/internal/models"
	"github.com/starford/waystation/internal/schema"
)

// CurrentName is the document holding the active Waystation.
const CurrentName = "current.json"

// BackupName returns the document name of the backup for id.
// CheckID reports whether id can name a backup document. The id must be
// non-empty and must not map onto current.json or a hidden file.
func CheckID(id string) error {
	if id == "" {
		return fmt.Errorf("storage: backup without id")
	}
	if BackupName(id) == CurrentName || strings.HasPrefix(id, ".") {
		return fmt.Errorf("storage: id %q: %w", id, apperr.ErrReservedID)
	}
	return nil
}

func BackupName(id string) string {
	return id + ".json"
}

// IsBackup reports whether name is a backup document.
func IsBackup(name string) bool {
	return strings.HasSuffix(name, ".json") && name != CurrentName && !strings.HasPrefix(name, ".")
}

// Documents reads and writes validated Waystations through a Provider.
type Documents struct {
	p        Provider
	defaults schema.Defaults
}

// NewDocuments returns a Documents over p. defaults fill absent fields of
// decoded documents.
func NewDocuments(p Provider, defaults schema.Defaults) *Documents {
	return &Documents{p: p, defaults: defaults}
}

// Provider returns the underlying raw provider.
func (d *Documents) Provider() Provider { return d.p }

// Encode renders w as stored JSON.
func Encode(w models.Waystation) ([]byte, error) {
	data, err := json.MarshalIndent(w, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("storage: encode %s: %w", w.ID, err)
	}
	return append(data, '\n'), nil
}

// Decode parses stored JSON into a validated Waystation.
func (d *Documents) Decode(data []byte) (models.Waystation, error) {
	return schema.DecodeJSON(data, d.defaults)
}

// Current loads the active Waystation. The boolean is false when no current
// document exists yet.
func (d *Documents) Current() (models.Waystation, bool, error) {
	w, err := d.load(CurrentName)
	if errors.Is(err, apperr.ErrNotFound) {
		return models.Waystation{}, false, nil
	}
	if err != nil {
		return models.Waystation{}, false, err
	}
	return w, true, nil
}

// SaveCurrent makes w the active Waystation.
func (d *Documents) SaveCurrent(w models.Waystation) error {
	return d.save(CurrentName, w)
}

// Backup loads the backup of the Waystation with id.
func (d *Documents) Backup(id string) (models.Waystation, error) {
	if err := CheckID(id); err != nil {
		return models.Waystation{}, err
	}
	return d.load(BackupName(id))
}

// SaveBackup writes w to its backup document.
func (d *Documents) SaveBackup(w models.Waystation) error {
	if err := CheckID(w.ID); err != nil {
		return err
	}
	return d.save(BackupName(w.ID), w)
}

// Backups lists every backup document, most recently modified first.
func (d *Documents) Backups() ([]Info, error) {
	all, err := d.p.List()
	if err != nil {
		return nil, err
	}
	out := make([]Info, 0, len(all))
	for _, info := range all {
		if IsBackup(info.Name) {
			out = append(out, info)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ModTime.After(out[j].ModTime)
	})
	return out, nil
}

// Recent returns up to limit backups, most recently modified first.
// Documents that are not valid Waystations are skipped. A limit <= 0 means
// no limit.
func (d *Documents) Recent(limit int) ([]models.Waystation, error) {
	infos, err := d.Backups()
	if err != nil {
		return nil, err
	}
	out := make([]models.Waystation, 0, len(infos))
	for _, info := range infos {
		if limit > 0 && len(out) == limit {
			break
		}
		w, err := d.load(info.Name)
		if err != nil {
			continue
		}
		out = append(out, w)
	}
	return out, nil
}

func (d *Documents) load(name string) (models.Waystation, error) {
	data, err := d.p.Read(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.Waystation{}, fmt.Errorf("%w: %s", apperr.ErrNotFound, name)
		}
		return models.Waystation{}, err
	}
	w, err := d.Decode(data)
	if err != nil {
		return models.Waystation{}, fmt.Errorf("storage: decode %s: %w", name, err)
	}
	return w, nil
}

func (d *Documents) save(name string, w models.Waystation) error {
	data, err := Encode(w)
	if err != nil {
		return err
	}
	return d.p.Write(name, data)
}
