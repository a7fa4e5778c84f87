package log

import (
	"context"
	"log/slog"
)

// SlogAdapter mirrors trace events into an slog.Logger. Errors are logged
// at Warn, routing state changes at Info and everything else at Debug.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates an adapter writing to logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes event.
func (a *SlogAdapter) Log(event Event) {
	level := levelOf(event)
	ctx := context.Background()
	if !a.logger.Enabled(ctx, level) {
		return
	}

	attrs := make([]slog.Attr, 0, 8)
	attrs = append(attrs,
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	)
	if event.CycleID != "" {
		attrs = append(attrs, slog.String("cycle_id", event.CycleID))
	}

	if c := event.Command; c != nil {
		attrs = append(attrs, slog.String("op", c.Op))
		if c.Detail != "" {
			attrs = append(attrs, slog.String("detail", c.Detail))
		}
		if c.Dest != nil {
			attrs = append(attrs, slog.Uint64("dest", uint64(*c.Dest)))
		}
		if c.Status != "" {
			attrs = append(attrs, slog.String("status", c.Status))
		}
	}
	if n := event.Notification; n != nil {
		attrs = append(attrs, slog.String("action", n.Action.String()), slog.Int("ees", len(n.EEs)))
		if len(n.Dropped) > 0 {
			attrs = append(attrs, slog.Any("dropped", n.Dropped))
		}
	}
	if s := event.StateChange; s != nil {
		attrs = append(attrs,
			slog.String("entity", s.Entity.String()),
			slog.String("old_state", s.OldState),
			slog.String("new_state", s.NewState),
		)
		if s.Reason != "" {
			attrs = append(attrs, slog.String("reason", s.Reason))
		}
	}
	if e := event.Error; e != nil {
		attrs = append(attrs,
			slog.String("error_layer", e.Layer.String()),
			slog.String("error_msg", e.Message),
			slog.String("error_context", e.Context),
		)
		if e.Code != nil {
			attrs = append(attrs, slog.Int("error_code", *e.Code))
		}
	}

	a.logger.LogAttrs(ctx, level, "routing", attrs...)
}

func levelOf(event Event) slog.Level {
	switch {
	case event.Error != nil:
		return slog.LevelWarn
	case event.StateChange != nil && event.StateChange.Entity == StateEntityRouting:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

var _ Logger = (*SlogAdapter)(nil)
