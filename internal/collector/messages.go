package collector

import (
	"log/slog"
	"sort"
	"sync"

	"debugbar/internal/domain"
	"debugbar/internal/editorlink"
	"debugbar/internal/formatter"
	"debugbar/internal/stackfilter"
)

// MessagesReport is the snapshot of a MessagesCollector.
type MessagesReport struct {
	Count    int                   `json:"count"`
	Messages []domain.MessageEntry `json:"messages"`
}

// MessagesCollector is an append-only log of messages for one request. It
// can aggregate other message sources; their entries are read when
// Messages is called, not copied when they are added.
type MessagesCollector struct {
	mu          sync.Mutex
	name        string
	messages    []domain.MessageEntry
	aggregates  []MessageSource
	collectFile bool
	htmlDump    bool
	excluded    []string
	formatter   domain.VarFormatter
	dumper      domain.HTMLDumper
	linker      *editorlink.Linker

	env env
}

// NewMessagesCollector returns an empty collector. An empty name defaults
// to "messages".
func NewMessagesCollector(name string) *MessagesCollector {
	if name == "" {
		name = "messages"
	}
	return &MessagesCollector{
		name:      name,
		excluded:  excludedPaths(nil),
		formatter: formatter.TextDumper{},
		dumper:    formatter.HTMLDumper{Compact: true},
		env:       defaultEnv(),
	}
}

// Name implements Collector and MessageSource.
func (c *MessagesCollector) Name() string { return c.name }

// Snapshot implements Collector.
func (c *MessagesCollector) Snapshot() any { return c.Collect() }

// CollectFileTrace implements FileTraceCapable. The setting is passed on to
// aggregated sources that support it.
func (c *MessagesCollector) CollectFileTrace(enabled bool) {
	c.mu.Lock()
	c.collectFile = enabled
	sources := append([]MessageSource(nil), c.aggregates...)
	c.mu.Unlock()

	for _, src := range sources {
		if ft, ok := src.(FileTraceCapable); ok {
			ft.CollectFileTrace(enabled)
		}
	}
}

// UseHTMLVarDumper renders non-string messages as HTML as well as text.
func (c *MessagesCollector) UseHTMLVarDumper(enabled bool) {
	c.mu.Lock()
	c.htmlDump = enabled
	c.mu.Unlock()
}

// SetVarFormatter replaces the text formatter for non-string messages.
func (c *MessagesCollector) SetVarFormatter(f domain.VarFormatter) {
	c.mu.Lock()
	c.formatter = f
	c.mu.Unlock()
}

// SetHTMLDumper replaces the HTML dumper for non-string messages.
func (c *MessagesCollector) SetHTMLDumper(d domain.HTMLDumper) {
	c.mu.Lock()
	c.dumper = d
	c.mu.Unlock()
}

// AddExcludedPaths adds path substrings skipped when resolving origins.
func (c *MessagesCollector) AddExcludedPaths(paths ...string) {
	c.mu.Lock()
	c.excluded = append(c.excluded, paths...)
	c.mu.Unlock()
}

// SetLinker implements LinkerAware.
func (c *MessagesCollector) SetLinker(l *editorlink.Linker) {
	c.mu.Lock()
	c.linker = l
	c.mu.Unlock()
}

// AddMessage appends a message. Strings are kept as text; with isString
// false they are also sanitized into message_html. Errors are logged as
// their Error() text and marked as strings, so a logged error reads the
// same as its message instead of a dump of the error value. Anything else
// is rendered by the variable formatter.
func (c *MessagesCollector) AddMessage(message any, label domain.Level, isString bool) {
	c.add(message, label, isString, nil)
}

func (c *MessagesCollector) add(message any, label domain.Level, isString bool, origin *domain.Frame) {
	now := c.env.now()

	c.mu.Lock()
	collectFile, htmlDump, excluded := c.collectFile, c.htmlDump, c.excluded
	varFormatter, dumper, linker := c.formatter, c.dumper, c.linker
	c.mu.Unlock()

	entry := domain.MessageEntry{Label: label, Time: unixSeconds(now), IsString: isString}
	switch m := message.(type) {
	case string:
		entry.Message = m
		if !isString {
			entry.MessageHTML = strPtr(SanitizeHTML(m))
		}
	case error:
		entry.Message = m.Error()
		entry.IsString = true
	default:
		entry.Message = varFormatter.FormatVar(message)
		if htmlDump && dumper != nil {
			entry.MessageHTML = strPtr(dumper.RenderVar(message))
		}
		entry.IsString = false
	}

	if origin != nil && (!collectFile || stackfilter.IsExcluded(origin.File, excluded)) {
		origin = nil
	}
	if origin == nil && collectFile {
		if f, ok := stackfilter.FirstRelevantFrame(c.env.safeCapture(), excluded); ok {
			origin = &f
		}
	}
	if origin != nil {
		entry.Origin = origin
		entry.Filename = strPtr(formatter.FormatSource(*origin, true))
		entry.OriginLink = linker.FrameLink(*origin)
	}

	c.mu.Lock()
	c.messages = append(c.messages, entry)
	c.mu.Unlock()
}

// Log interpolates string messages with context and appends them.
func (c *MessagesCollector) Log(level domain.Level, message any, context map[string]any) {
	if s, ok := message.(string); ok {
		message = Interpolate(s, context)
	}
	c.AddMessage(message, level, true)
}

// Emergency logs at emergency level. args are slog-style key/value pairs
// used as interpolation context.
func (c *MessagesCollector) Emergency(message any, args ...any) {
	c.Log(domain.LevelEmergency, message, argsToContext(args))
}

// Alert logs at alert level.
func (c *MessagesCollector) Alert(message any, args ...any) {
	c.Log(domain.LevelAlert, message, argsToContext(args))
}

// Critical logs at critical level.
func (c *MessagesCollector) Critical(message any, args ...any) {
	c.Log(domain.LevelCritical, message, argsToContext(args))
}

// Error logs at error level.
func (c *MessagesCollector) Error(message any, args ...any) {
	c.Log(domain.LevelError, message, argsToContext(args))
}

// Warning logs at warning level.
func (c *MessagesCollector) Warning(message any, args ...any) {
	c.Log(domain.LevelWarning, message, argsToContext(args))
}

// Notice logs at notice level.
func (c *MessagesCollector) Notice(message any, args ...any) {
	c.Log(domain.LevelNotice, message, argsToContext(args))
}

// Info logs at info level.
func (c *MessagesCollector) Info(message any, args ...any) {
	c.Log(domain.LevelInfo, message, argsToContext(args))
}

// Debug logs at debug level.
func (c *MessagesCollector) Debug(message any, args ...any) {
	c.Log(domain.LevelDebug, message, argsToContext(args))
}

// Aggregate adds a source whose messages are merged into Messages. When file
// tracing is on it is turned on for the source too, if supported. A source
// that already aggregates c, directly or through other collectors, is
// ignored.
func (c *MessagesCollector) Aggregate(src MessageSource) {
	if src == nil || src == MessageSource(c) {
		return
	}
	if mc, ok := src.(*MessagesCollector); ok && mc.reaches(c, map[*MessagesCollector]bool{}) {
		return
	}
	c.mu.Lock()
	collectFile := c.collectFile
	c.aggregates = append(c.aggregates, src)
	c.mu.Unlock()

	if ft, ok := src.(FileTraceCapable); ok && collectFile {
		ft.CollectFileTrace(true)
	}
}

// Messages returns own and aggregated entries sorted by time. The sort is
// stable, so entries with equal times keep own-first insertion order.
func (c *MessagesCollector) Messages() []domain.MessageEntry {
	return c.messagesOnPath(map[*MessagesCollector]bool{})
}

// messagesOnPath skips collectors already being read further up the
// aggregation chain, so a cycle contributes each collector once.
func (c *MessagesCollector) messagesOnPath(path map[*MessagesCollector]bool) []domain.MessageEntry {
	path[c] = true
	defer delete(path, c)

	c.mu.Lock()
	out := append([]domain.MessageEntry(nil), c.messages...)
	sources := append([]MessageSource(nil), c.aggregates...)
	c.mu.Unlock()

	for _, src := range sources {
		var msgs []domain.MessageEntry
		if mc, ok := src.(*MessagesCollector); ok {
			if path[mc] {
				continue
			}
			msgs = mc.messagesOnPath(path)
		} else {
			msgs = src.Messages()
		}
		name := src.Name()
		for _, m := range msgs {
			m.Collector = name
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out
}

// reaches reports whether target is c or is aggregated by c.
func (c *MessagesCollector) reaches(target *MessagesCollector, seen map[*MessagesCollector]bool) bool {
	if c == target {
		return true
	}
	if seen[c] {
		return false
	}
	seen[c] = true

	c.mu.Lock()
	sources := append([]MessageSource(nil), c.aggregates...)
	c.mu.Unlock()
	for _, src := range sources {
		if mc, ok := src.(*MessagesCollector); ok && mc.reaches(target, seen) {
			return true
		}
	}
	return false
}

// Collect implements the snapshot.
func (c *MessagesCollector) Collect() MessagesReport {
	msgs := c.Messages()
	if msgs == nil {
		msgs = []domain.MessageEntry{}
	}
	return MessagesReport{Count: len(msgs), Messages: msgs}
}

// Clear drops own messages. Aggregated sources are not touched.
func (c *MessagesCollector) Clear() {
	c.mu.Lock()
	c.messages = nil
	c.mu.Unlock()
}

// argsToContext turns slog-style arguments into a context map. A leading
// map[string]any is merged as-is.
func argsToContext(args []any) map[string]any {
	if len(args) == 0 {
		return nil
	}
	ctx := make(map[string]any, len(args)/2+1)
	for len(args) > 0 {
		switch a := args[0].(type) {
		case map[string]any:
			for k, v := range a {
				ctx[k] = v
			}
			args = args[1:]
		case slog.Attr:
			ctx[a.Key] = a.Value.Any()
			args = args[1:]
		case string:
			if len(args) == 1 {
				ctx["!BADKEY"] = a
				args = nil
				continue
			}
			ctx[a] = args[1]
			args = args[2:]
		default:
			ctx["!BADKEY"] = a
			args = args[1:]
		}
	}
	return ctx
}
