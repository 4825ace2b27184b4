// Package stationservice coordinates the engine, storage, notifier and index
// behind every user-facing Waystation command.
//
// Each mutating call loads the current Waystation, applies one engine
// operation, publishes the change and waits for the subscribers (which do the
// writing) before returning the persisted result.
package stationservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/starford/waystation/internal/apperr"
	"github.com/starford/waystation/internal/export"
	"github.com/starford/waystation/internal/index"
	"github.com/starford/waystation/internal/models"
	"github.com/starford/waystation/internal/notify"
	"github.com/starford/waystation/internal/schema"
	"github.com/starford/waystation/internal/storage"
	"github.com/starford/waystation/internal/waystation"
)

// DefaultRecentLimit is the number of backups Recent returns by default.
const DefaultRecentLimit = 10

// Service coordinates engine, storage, notifier and index operations.
type Service struct {
	engine      *waystation.Engine
	docs        *storage.Documents
	notifier    *notify.Notifier
	index       index.WaystationIndex
	recentLimit int
	exportDir   string
	logger      *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithIndex enables search and project association.
func WithIndex(db index.WaystationIndex) Option {
	return func(s *Service) { s.index = db }
}

// WithRecentLimit sets how many backups Recent returns.
func WithRecentLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.recentLimit = n
		}
	}
}

// WithExportDirectory sets where Export writes documents.
func WithExportDirectory(dir string) Option {
	return func(s *Service) { s.exportDir = dir }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a new service. Persistence happens in the subscribers
// registered on n.
func New(engine *waystation.Engine, docs *storage.Documents, n *notify.Notifier, opts ...Option) *Service {
	s := &Service{
		engine:      engine,
		docs:        docs,
		notifier:    n,
		recentLimit: DefaultRecentLimit,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Engine returns the engine the service mutates with.
func (s *Service) Engine() *waystation.Engine { return s.engine }

// Current returns the active Waystation, or a fresh unsaved one when none
// has been stored yet.
func (s *Service) Current(_ context.Context) (models.Waystation, error) {
	w, ok, err := s.docs.Current()
	if err != nil {
		return models.Waystation{}, err
	}
	if !ok {
		return s.engine.Create("")
	}
	return w, nil
}

// Recent returns the most recently modified backups, newest first.
func (s *Service) Recent(_ context.Context) ([]models.Waystation, error) {
	return s.docs.Recent(s.recentLimit)
}

// ProjectRecent returns the backups associated with directory, most recently
// associated first.
func (s *Service) ProjectRecent(_ context.Context, directory string) ([]models.Waystation, error) {
	if s.index == nil {
		return nil, apperr.ErrIndexDisabled
	}
	ids, err := s.index.ProjectWaystations(directory)
	if err != nil {
		return nil, err
	}
	out := make([]models.Waystation, 0, len(ids))
	for _, id := range ids {
		w, err := s.docs.Backup(id)
		if err != nil {
			s.logger.Debug("project backup skipped", slog.String("waystation_id", id), slog.String("error", err.Error()))
			continue
		}
		out = append(out, w)
		if len(out) == s.recentLimit {
			break
		}
	}
	return out, nil
}

// NewWaystation backs up the current Waystation, creates a new one named name
// and makes it current. A non-empty project associates it with that
// directory.
func (s *Service) NewWaystation(ctx context.Context, name, project string) (models.Waystation, error) {
	if err := s.backupCurrent(); err != nil {
		return models.Waystation{}, err
	}
	w, err := s.engine.Create(name)
	if err != nil {
		return models.Waystation{}, err
	}
	w, err = s.commit(ctx, notify.Event{Kind: notify.NewWaystation, Waystation: w})
	if err != nil {
		return models.Waystation{}, err
	}
	if err := s.docs.SaveCurrent(w); err != nil {
		return models.Waystation{}, err
	}
	if project != "" {
		if err := s.Associate(ctx, project, w.ID); err != nil && !errors.Is(err, apperr.ErrIndexDisabled) {
			s.logger.Warn("associate project failed", slog.String("waystation_id", w.ID), slog.String("error", err.Error()))
		}
	}
	return w, nil
}

// Associate links the Waystation id to a project directory.
func (s *Service) Associate(_ context.Context, directory, id string) error {
	if s.index == nil {
		return apperr.ErrIndexDisabled
	}
	return s.index.Associate(directory, id)
}

// Open backs up the current Waystation and makes the backup id current.
func (s *Service) Open(_ context.Context, id string) (models.Waystation, error) {
	w, err := s.docs.Backup(id)
	if err != nil {
		return models.Waystation{}, err
	}
	if err := s.backupCurrent(); err != nil {
		return models.Waystation{}, err
	}
	if err := s.docs.SaveCurrent(w); err != nil {
		return models.Waystation{}, err
	}
	return w, nil
}

// Validate checks raw JSON against the Waystation schema without failing.
func (s *Service) Validate(data []byte) schema.Result {
	return schema.AttemptJSON(data, s.engine.Defaults())
}

// Update replaces the current Waystation with the one decoded from data.
func (s *Service) Update(ctx context.Context, data []byte) (models.Waystation, error) {
	w, err := schema.DecodeJSON(data, s.engine.Defaults())
	if err != nil {
		return models.Waystation{}, err
	}
	if err := storage.CheckID(w.ID); err != nil {
		return models.Waystation{}, err
	}
	return s.commit(ctx, notify.Event{Kind: notify.EditWaystation, Waystation: w})
}

// Rename sets the name of the current Waystation.
func (s *Service) Rename(ctx context.Context, name string) (models.Waystation, error) {
	return s.mutate(ctx, notify.EditWaystation, func(w models.Waystation) (models.Waystation, error) {
		return s.engine.Rename(w, name)
	})
}

// AddTag adds tag to the current Waystation. An empty tag changes nothing
// and publishes nothing.
func (s *Service) AddTag(ctx context.Context, tag string) (models.Waystation, error) {
	if tag == "" {
		return s.Current(ctx)
	}
	return s.mutate(ctx, notify.EditWaystation, func(w models.Waystation) (models.Waystation, error) {
		return s.engine.AddTag(w, tag)
	})
}

// Export renders the current Waystation into the export directory.
func (s *Service) Export(ctx context.Context, f export.Format) (string, error) {
	w, err := s.Current(ctx)
	if err != nil {
		return "", err
	}
	if s.exportDir == "" {
		return "", fmt.Errorf("export: no export directory configured")
	}
	return export.WriteFile(s.exportDir, w, f)
}

// Search queries the index of backups.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	if s.index == nil {
		return nil, apperr.ErrIndexDisabled
	}
	return s.index.Search(query, limit)
}

// Sync reconciles the index with the stored backups.
func (s *Service) Sync(_ context.Context) error {
	if s.index == nil {
		return apperr.ErrIndexDisabled
	}
	return index.Sync(s.index, s.docs.Provider(), s.logger)
}

// mutate applies op to the current Waystation and commits the result.
func (s *Service) mutate(ctx context.Context, kind notify.Kind, op func(models.Waystation) (models.Waystation, error)) (models.Waystation, error) {
	cur, err := s.Current(ctx)
	if err != nil {
		return models.Waystation{}, err
	}
	w, err := op(cur)
	if err != nil {
		return models.Waystation{}, err
	}
	return s.commit(ctx, notify.Event{Kind: kind, Waystation: w})
}

// commit publishes ev, waits for every subscriber and returns the Waystation
// as persisted, which includes any enrichment added by subscribers.
func (s *Service) commit(ctx context.Context, ev notify.Event) (models.Waystation, error) {
	if err := s.notifier.Publish(ctx, ev).Wait(); err != nil {
		return models.Waystation{}, fmt.Errorf("publish %s: %w", ev.Kind, err)
	}
	saved, err := s.docs.Backup(ev.Waystation.ID)
	if errors.Is(err, apperr.ErrNotFound) {
		return ev.Waystation, nil
	}
	if err != nil {
		return models.Waystation{}, err
	}
	return saved, nil
}

func (s *Service) backupCurrent() error {
	cur, ok, err := s.docs.Current()
	if err != nil || !ok {
		return err
	}
	return s.docs.SaveBackup(cur)
}

func validURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %s", apperr.ErrInvalidURL, raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: incorrect protocol (%s:) for url: %s", apperr.ErrInvalidURL, u.Scheme, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host: %s", apperr.ErrInvalidURL, raw)
	}
	return nil
}
