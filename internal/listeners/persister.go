// Package listeners holds the notify subscribers that give engine events
// their side effects: persistence, enrichment and logging.
package listeners

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/waystation/internal/index"
	"github.com/starford/waystation/internal/models"
	"github.com/starford/waystation/internal/notify"
	"github.com/starford/waystation/internal/storage"
)

// Enricher derives additional content for the Waystation carried by an event
// before it is persisted.
type Enricher interface {
	Enrich(ctx context.Context, w models.Waystation, ev notify.Event) (models.Waystation, error)
}

// Persister writes every changed Waystation to its backup and, except for
// freshly created Waystations, to the current document. Enrichers run first,
// in order, and all writes for one event happen in this single subscriber.
type Persister struct {
	Documents *storage.Documents
	Index     index.WaystationIndex // optional
	Enrichers []Enricher
	Logger    *slog.Logger
}

// Register subscribes p to every event kind.
func (p *Persister) Register(n *notify.Notifier) (unsubscribe func()) {
	return n.Subscribe(p.Handle)
}

// Handle is the notify.Handler of p.
func (p *Persister) Handle(ctx context.Context, ev notify.Event) error {
	w := ev.Waystation
	for _, e := range p.Enrichers {
		enriched, err := e.Enrich(ctx, w, ev)
		if err != nil {
			p.logger().Warn("persist: enrich failed",
				slog.String("waystation_id", w.ID),
				slog.String("kind", string(ev.Kind)),
				slog.String("error", err.Error()))
			continue
		}
		w = enriched
	}

	if ev.Kind != notify.NewWaystation {
		if err := p.Documents.SaveCurrent(w); err != nil {
			return fmt.Errorf("persist current: %w", err)
		}
	}
	if err := p.Documents.SaveBackup(w); err != nil {
		return fmt.Errorf("persist backup: %w", err)
	}
	if p.Index != nil {
		if err := index.Put(p.Index, w); err != nil {
			// Sync rebuilds the index; the documents are already written.
			p.logger().Warn("persist: index failed",
				slog.String("waystation_id", w.ID),
				slog.String("error", err.Error()))
		}
	}
	return nil
}

func (p *Persister) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return p.Logger
}
