package index

import (
	"log/slog"

	"github.com/starford/waystation/internal/storage"
)

// Sync walks the backups and brings the index up to date:
//   - new/changed backups are decoded and upserted
//   - backups removed from disk are deleted from the index
func Sync(db WaystationIndex, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List()
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		if !storage.IsBackup(m.Name) {
			continue
		}
		id := idFromName(m.Name)
		disk[id] = struct{}{}

		if checksums[id] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Name)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("name", m.Name), slog.String("error", err.Error()))
			continue
		}
		if err := indexFile(db, m.Name, data); err != nil {
			logger.Warn("sync: index failed", slog.String("name", m.Name), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("waystation_id", id))
		}
	}

	for id := range checksums {
		if _, ok := disk[id]; !ok {
			if err := db.DeleteWaystation(id); err != nil {
				logger.Warn("sync: delete failed", slog.String("waystation_id", id), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("waystation_id", id))
			}
		}
	}

	return nil
}
