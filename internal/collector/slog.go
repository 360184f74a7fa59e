package collector

import (
	"context"
	"log/slog"
	"runtime"
	"sort"
	"strings"

	"debugbar/internal/domain"
	"debugbar/internal/stackfilter"
)

// SlogHandler is a slog.Handler that appends records to a
// MessagesCollector. Record attributes are the interpolation context for
// {key} tokens in the message; attributes that no token uses are appended
// to the text as key=value pairs.
type SlogHandler struct {
	c      *MessagesCollector
	level  slog.Leveler
	attrs  []slog.Attr
	groups []string
}

var _ slog.Handler = (*SlogHandler)(nil)

// NewSlogHandler returns a handler writing to c. With nil opts or a nil
// opts.Level every record down to debug is kept.
func NewSlogHandler(c *MessagesCollector, opts *slog.HandlerOptions) *SlogHandler {
	var level slog.Leveler = slog.LevelDebug
	if opts != nil && opts.Level != nil {
		level = opts.Level
	}
	return &SlogHandler{c: c, level: level}
}

// Enabled implements slog.Handler.
func (h *SlogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *SlogHandler) Handle(_ context.Context, r slog.Record) error {
	ctx := make(map[string]any, len(h.attrs)+r.NumAttrs())
	prefix := strings.Join(h.groups, ".")
	for _, a := range h.attrs {
		addAttr(ctx, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		addAttr(ctx, prefix, a)
		return true
	})

	msg := Interpolate(r.Message, ctx)
	var rest []string
	for k, v := range ctx {
		if !strings.Contains(r.Message, "{"+k+"}") {
			rest = append(rest, k+"="+interpolationValue(v))
		}
	}
	if len(rest) > 0 {
		sort.Strings(rest)
		msg = strings.TrimSpace(msg + " " + strings.Join(rest, " "))
	}

	var origin *domain.Frame
	if r.PC != 0 {
		rf, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		f := stackfilter.FromRuntime(0, rf)
		origin = &f
	}
	h.c.add(msg, LevelFromSlog(r.Level), true, origin)
	return nil
}

// WithAttrs implements slog.Handler.
func (h *SlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	h2 := *h
	h2.attrs = append([]slog.Attr(nil), h.attrs...)
	prefix := strings.Join(h.groups, ".")
	for _, a := range attrs {
		if prefix != "" {
			a.Key = prefix + "." + a.Key
		}
		h2.attrs = append(h2.attrs, a)
	}
	return &h2
}

// WithGroup implements slog.Handler.
func (h *SlogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.groups = append(append([]string(nil), h.groups...), name)
	return &h2
}

// LevelFromSlog maps slog levels onto the PSR-3 labels.
func LevelFromSlog(l slog.Level) domain.Level {
	switch {
	case l >= slog.LevelError+4:
		return domain.LevelCritical
	case l >= slog.LevelError:
		return domain.LevelError
	case l >= slog.LevelWarn:
		return domain.LevelWarning
	case l > slog.LevelInfo:
		return domain.LevelNotice
	case l >= slog.LevelInfo:
		return domain.LevelInfo
	}
	return domain.LevelDebug
}

func addAttr(ctx map[string]any, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if prefix != "" && key != "" {
		key = prefix + "." + key
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			addAttr(ctx, key, ga)
		}
		return
	}
	if key == "" {
		return
	}
	ctx[key] = a.Value.Any()
}
