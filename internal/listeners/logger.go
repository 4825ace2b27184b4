package listeners

import (
	"context"
	"log/slog"

	"github.com/starford/waystation/internal/notify"
)

// EventLogger returns a subscriber that records every event at debug level.
func EventLogger(logger *slog.Logger) notify.Handler {
	return func(ctx context.Context, ev notify.Event) error {
		attrs := []slog.Attr{
			slog.String("kind", string(ev.Kind)),
			slog.String("waystation_id", ev.Waystation.ID),
			slog.Int("marks", len(ev.Waystation.Marks)),
		}
		if ev.Mark != nil {
			attrs = append(attrs, slog.String("mark_id", ev.Mark.ID))
		}
		if ev.Resource != nil {
			attrs = append(attrs, slog.String("resource_id", ev.Resource.ID))
		}
		logger.LogAttrs(ctx, slog.LevelDebug, "event", attrs...)
		return nil
	}
}
