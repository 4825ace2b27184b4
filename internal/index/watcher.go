package index

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/waystation/internal/storage"
)

// EventCallback is called after a watcher-driven index change.
// kind is one of "created", "updated", "deleted"; id is the waystation id.
type EventCallback func(kind string, id string)

// Watch starts an fsnotify watcher on the storage root and keeps the index in
// step with backup documents edited, added or removed on disk until ctx is
// cancelled. It calls cb (if non-nil) after each successful index mutation.
//
// Atomic writes through storage.FS show up as a Create of the backup name.
// A backup renamed away fires Rename on its old name only, which schedules a
// short reconciliation pass.
func Watch(ctx context.Context, db WaystationIndex, store storage.Provider, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	root := store.Root()
	if err := w.Add(root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(200 * time.Millisecond)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcile(db, store, logger, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			name, relErr := filepath.Rel(root, ev.Name)
			if relErr != nil || !storage.IsBackup(name) {
				continue
			}
			id := idFromName(name)

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				data, readErr := store.Read(name)
				if readErr != nil {
					logger.Warn("watcher: read failed", slog.String("name", name), slog.String("error", readErr.Error()))
					continue
				}
				if idxErr := indexFile(db, name, data); idxErr != nil {
					logger.Warn("watcher: index failed", slog.String("name", name), slog.String("error", idxErr.Error()))
					continue
				}
				kind := "updated"
				if ev.Op&fsnotify.Create != 0 {
					kind = "created"
				}
				logger.Debug("watcher: indexed", slog.String("waystation_id", id), slog.String("op", kind))
				if cb != nil {
					cb(kind, id)
				}

			case ev.Op&fsnotify.Remove != 0:
				if delErr := db.DeleteWaystation(id); delErr != nil {
					logger.Warn("watcher: delete failed", slog.String("waystation_id", id), slog.String("error", delErr.Error()))
					continue
				}
				logger.Debug("watcher: deleted", slog.String("waystation_id", id))
				if cb != nil {
					cb("deleted", id)
				}

			case ev.Op&fsnotify.Rename != 0:
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// reconcile removes index entries without a backup on disk and indexes
// backups whose checksum changed.
func reconcile(db WaystationIndex, store storage.Provider, logger *slog.Logger, cb EventCallback) {
	checksums, err := db.AllChecksums()
	if err != nil {
		logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}

	metas, err := store.List()
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]storage.Info, len(metas))
	for _, m := range metas {
		if storage.IsBackup(m.Name) {
			disk[idFromName(m.Name)] = m
		}
	}

	for id := range checksums {
		if _, ok := disk[id]; !ok {
			if delErr := db.DeleteWaystation(id); delErr == nil {
				logger.Debug("reconcile: removed stale", slog.String("waystation_id", id))
				if cb != nil {
					cb("deleted", id)
				}
			}
		}
	}

	for id, m := range disk {
		previous, known := checksums[id]
		if previous == m.Checksum {
			continue
		}
		data, readErr := store.Read(m.Name)
		if readErr != nil {
			continue
		}
		if idxErr := indexFile(db, m.Name, data); idxErr == nil {
			kind := "updated"
			if !known {
				kind = "created"
			}
			logger.Debug("reconcile: indexed", slog.String("waystation_id", id), slog.String("op", kind))
			if cb != nil {
				cb(kind, id)
			}
		}
	}
}
