// Package debugbar ties the collectors of one request together: it owns the
// collector registry, assembles the end-of-request dataset and persists it.
// A DebugBar travels with the request context; see WithBar and the
// ...From accessors.
package debugbar

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"debugbar/internal/collector"
	"debugbar/internal/domain"
	"debugbar/internal/editorlink"
)

// MetaKey is the dataset key holding request metadata.
const MetaKey = "__meta"

// Dataset is the serialized form of one request: MetaKey plus one entry per
// collector name.
type Dataset map[string]any

// Meta describes the request a dataset belongs to.
type Meta struct {
	ID       string  `json:"id"`
	Datetime string  `json:"datetime"`
	Utime    float64 `json:"utime"`
	Method   string  `json:"method"`
	URI      string  `json:"uri"`
	IP       string  `json:"ip"`
}

// RequestInfo is the part of the request recorded in Meta.
type RequestInfo struct {
	Method string
	URI    string
	IP     string
}

// DebugBar is the per-request collector registry.
type DebugBar struct {
	mu         sync.Mutex
	id         string
	collectors map[string]collector.Collector
	order      []string
	request    RequestInfo
	started    time.Time

	store  domain.SnapshotStore
	linker *editorlink.Linker
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a DebugBar.
type Option func(*DebugBar)

// WithStore sets where Save writes datasets.
func WithStore(s domain.SnapshotStore) Option {
	return func(b *DebugBar) { b.store = s }
}

// WithLogger sets the logger for swallowed collection failures.
func WithLogger(l *slog.Logger) Option {
	return func(b *DebugBar) { b.logger = l }
}

// WithRequest records request metadata.
func WithRequest(r RequestInfo) Option {
	return func(b *DebugBar) { b.request = r }
}

// WithID fixes the dataset ID instead of generating one.
func WithID(id string) Option {
	return func(b *DebugBar) { b.id = id }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *DebugBar) { b.now = now }
}

// New returns a DebugBar without collectors.
func New(opts ...Option) *DebugBar {
	b := &DebugBar{
		collectors: make(map[string]collector.Collector),
		linker:     editorlink.New(""),
		logger:     slog.New(slog.DiscardHandler),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.started = b.now()
	b.logger = b.logger.With("component", "debugbar")
	return b
}

// AddCollector registers c under its name. Registering a second collector
// with the same name is a ConflictError.
func (b *DebugBar) AddCollector(c collector.Collector) error {
	name := c.Name()
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.collectors[name]; ok {
		return domain.ErrConflict("collector %q is already registered", name)
	}
	if la, ok := c.(collector.LinkerAware); ok {
		la.SetLinker(b.linker)
	}
	b.collectors[name] = c
	b.order = append(b.order, name)
	return nil
}

// Collector returns the collector registered under name.
func (b *DebugBar) Collector(name string) (collector.Collector, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.collectors[name]
	return c, ok
}

// HasCollector reports whether name is registered.
func (b *DebugBar) HasCollector(name string) bool {
	_, ok := b.Collector(name)
	return ok
}

// Collectors returns the collectors in registration order.
func (b *DebugBar) Collectors() []collector.Collector {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]collector.Collector, len(b.order))
	for i, name := range b.order {
		out[i] = b.collectors[name]
	}
	return out
}

// Messages returns the "messages" collector, or nil.
func (b *DebugBar) Messages() *collector.MessagesCollector {
	return typed[*collector.MessagesCollector](b, "messages")
}

// Queries returns the "queries" collector, or nil.
func (b *DebugBar) Queries() *collector.QueryCollector {
	return typed[*collector.QueryCollector](b, "queries")
}

// Timeline returns the "time" collector, or nil.
func (b *DebugBar) Timeline() *collector.TimelineCollector {
	return typed[*collector.TimelineCollector](b, "time")
}

// Exceptions returns the "exceptions" collector, or nil.
func (b *DebugBar) Exceptions() *collector.ExceptionsCollector {
	return typed[*collector.ExceptionsCollector](b, "exceptions")
}

// Counter returns the "counter" collector, or nil.
func (b *DebugBar) Counter() *collector.ObjectCountCollector {
	return typed[*collector.ObjectCountCollector](b, "counter")
}

func typed[T collector.Collector](b *DebugBar, name string) T {
	var zero T
	if b == nil {
		return zero
	}
	c, ok := b.Collector(name)
	if !ok {
		return zero
	}
	t, ok := c.(T)
	if !ok {
		return zero
	}
	return t
}

// ID returns the dataset ID, generating it on first use.
func (b *DebugBar) ID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.id == "" {
		b.id = domain.NewID()
	}
	return b.id
}

// SetRequest replaces the recorded request metadata.
func (b *DebugBar) SetRequest(r RequestInfo) {
	b.mu.Lock()
	b.request = r
	b.mu.Unlock()
}

// Linker returns the editor linker shared by all collectors.
func (b *DebugBar) Linker() *editorlink.Linker { return b.linker }

// EnableFileTraces toggles origin capture for queries, messages and their
// aggregated sources. The configured query source limit is kept.
func (b *DebugBar) EnableFileTraces(enabled bool) {
	if q := b.Queries(); q != nil {
		q.SetFindSource(enabled, q.SourceLimit())
	}
	if m := b.Messages(); m != nil {
		m.CollectFileTrace(enabled)
	}
}

// SetEditor selects the editor used for origin links. A non-empty localPath
// maps the server's working directory to that local checkout.
func (b *DebugBar) SetEditor(editor, localPath string) {
	if editor == "" {
		return
	}
	b.linker.SetEditor(editor)
	if localPath == "" {
		return
	}
	wd, err := os.Getwd()
	if err != nil {
		b.logger.Debug("resolve working directory", "error", err)
		return
	}
	b.linker.AddReplacements(map[string]string{
		withTrailingSlash(wd): withTrailingSlash(localPath),
	})
}

// SetPathReplacements adds server→local path prefix replacements.
func (b *DebugBar) SetPathReplacements(replacements map[string]string) {
	b.linker.AddReplacements(replacements)
}

// AggregateMessages merges src into the "messages" collector.
func (b *DebugBar) AggregateMessages(src collector.MessageSource) {
	if m := b.Messages(); m != nil {
		m.Aggregate(src)
	}
}

// Collect snapshots every collector. A collector that panics is left out
// of the dataset.
func (b *DebugBar) Collect() Dataset {
	id := b.ID()
	now := b.now()

	b.mu.Lock()
	req := b.request
	b.mu.Unlock()

	data := Dataset{
		MetaKey: Meta{
			ID:       id,
			Datetime: now.Format(time.DateTime),
			Utime:    float64(b.started.UnixNano()) / 1e9,
			Method:   req.Method,
			URI:      req.URI,
			IP:       req.IP,
		},
	}
	for _, c := range b.Collectors() {
		if snap, ok := b.snapshot(c); ok {
			data[c.Name()] = snap
		}
	}
	return data
}

func (b *DebugBar) snapshot(c collector.Collector) (snap any, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Debug("collector snapshot failed", "collector", c.Name(), "panic", r)
			snap, ok = nil, false
		}
	}()
	return c.Snapshot(), true
}

// Save collects the dataset and writes it to the store under ID.
func (b *DebugBar) Save(ctx context.Context) error {
	if b.store == nil {
		return domain.ErrValidation("no snapshot store configured")
	}
	data, err := json.Marshal(b.Collect())
	if err != nil {
		return fmt.Errorf("encode dataset: %w", err)
	}
	if err := b.store.Put(ctx, b.ID(), data); err != nil {
		return fmt.Errorf("store dataset %s: %w", b.ID(), err)
	}
	return nil
}

func withTrailingSlash(p string) string {
	p = strings.TrimRight(p, `/\`)
	return p + string(os.PathSeparator)
}
