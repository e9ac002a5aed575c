package trace

import (
	"context"
	"log/slog"
)

// SlogAdapter writes trace events to an slog.Logger at Debug level.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger.
func (a *SlogAdapter) Log(event Event) {
	ctx := context.Background()
	if !a.logger.Enabled(ctx, slog.LevelDebug) {
		return
	}

	attrs := []slog.Attr{
		slog.String("category", event.Category.String()),
		slog.String("op", event.Op.String()),
	}

	if event.VirtualNs != 0 {
		attrs = append(attrs, slog.Int64("vns", event.VirtualNs))
	}
	if event.TypeName != "" {
		attrs = append(attrs, slog.String("type", event.TypeName))
	}
	if event.ObjectID != "" {
		attrs = append(attrs, slog.String("object", event.ObjectID))
	}
	if event.Related != "" {
		attrs = append(attrs, slog.String("related", event.Related))
	}

	switch {
	case event.Timer != nil:
		attrs = append(attrs,
			slog.Uint64("timer", event.Timer.TimerID),
			slog.Int64("expires_ns", event.Timer.ExpiresNs),
		)
		if event.Timer.LateNs != 0 {
			attrs = append(attrs, slog.Int64("late_ns", event.Timer.LateNs))
		}
	case event.IRQ != nil:
		attrs = append(attrs,
			slog.Int("line", event.IRQ.Line),
			slog.Bool("level", event.IRQ.Level),
		)
	case event.Input != nil:
		attrs = append(attrs,
			slog.Int("qcode", event.Input.QCode),
			slog.Bool("down", event.Input.Down),
			slog.Int("handlers", event.Input.Handlers),
		)
	case event.MMIO != nil:
		attrs = append(attrs,
			slog.Uint64("addr", event.MMIO.Addr),
			slog.Uint64("size", uint64(event.MMIO.Size)),
			slog.Uint64("value", event.MMIO.Value),
		)
	}
	if event.Error != nil {
		attrs = append(attrs,
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
	}

	a.logger.LogAttrs(ctx, slog.LevelDebug, "trace", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
