package debugbar

import (
	"context"
	"errors"
	"log/slog"

	"debugbar/internal/collector"
)

// SlogFrom returns a logger that writes to base and to the messages
// collector of the context's DebugBar. Without a bar, base is returned
// as is.
func SlogFrom(ctx context.Context, base *slog.Logger) *slog.Logger {
	b, ok := FromContext(ctx)
	if !ok {
		return base
	}
	m := b.Messages()
	if m == nil {
		return base
	}
	return slog.New(teeHandler{base.Handler(), collector.NewSlogHandler(m, nil)})
}

// teeHandler passes each record to every handler enabled for its level.
type teeHandler []slog.Handler

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range t {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithGroup(name)
	}
	return out
}
