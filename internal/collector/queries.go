package collector

import (
	"math"
	"maps"
	"sync"
	"time"
	"unicode/utf8"

	"debugbar/internal/domain"
	"debugbar/internal/editorlink"
	"debugbar/internal/formatter"
	"debugbar/internal/sqlrender"
	"debugbar/internal/stackfilter"
)

// Timer is the start of a statement measurement: wall clock and heap usage.
type Timer struct {
	start  time.Time
	memory int64
}

// Start returns when the measurement began.
func (t Timer) Start() time.Time { return t.start }

// QueryOptions carries the optional attributes of a recorded event.
type QueryOptions struct {
	// Connection defaults to domain.DefaultConnection.
	Connection string
	Driver     string
	// Duration and Memory override the measured values when set.
	Duration *time.Duration
	Memory   *int64
	Metadata map[string]any
	// Timer overrides the collector's pending timer. Concurrent callers
	// should always pass their own.
	Timer *Timer
	// Backtrace overrides source finding with frames the caller captured.
	Backtrace []domain.Frame
	Err       error
}

// QueryReport is the snapshot of a QueryCollector.
type QueryReport struct {
	NbStatements           int         `json:"nb_statements"`
	NbVisibleStatements    int         `json:"nb_visible_statements"`
	NbExcludedStatements   int         `json:"nb_excluded_statements"`
	NbFailedStatements     int         `json:"nb_failed_statements"`
	AccumulatedDuration    float64     `json:"accumulated_duration"`
	AccumulatedDurationStr string      `json:"accumulated_duration_str"`
	MemoryUsage            int64       `json:"memory_usage"`
	MemoryUsageStr         *string     `json:"memory_usage_str"`
	Statements             []Statement `json:"statements"`
}

// Statement is the display form of one recorded event.
type Statement struct {
	SQL          string           `json:"sql"`
	Type         domain.EventType `json:"type"`
	Start        float64          `json:"start"`
	Duration     float64          `json:"duration"`
	Memory       int64            `json:"memory"`
	Connection   string           `json:"connection"`
	Driver       string           `json:"driver"`
	Bindings     []domain.Binding `json:"bindings,omitempty"`
	Backtrace    []domain.Frame   `json:"backtrace"`
	DurationStr  string           `json:"duration_str"`
	MemoryStr    *string          `json:"memory_str"`
	Filename     *string          `json:"filename"`
	OriginLink   *domain.Link     `json:"origin_link"`
	Metadata     map[string]any   `json:"metadata,omitempty"`
	Error        string           `json:"error,omitempty"`
	StartPercent *float64         `json:"start_percent,omitempty"`
	WidthPercent *float64         `json:"width_percent,omitempty"`
}

// QueryCollector records SQL statements and transaction markers grouped by
// connection.
type QueryCollector struct {
	mu          sync.Mutex
	connections map[string][]domain.QueryEvent
	order       []string
	queryCount  int
	txCount     int
	pending     *Timer

	findSource         bool
	sourceLimit        int
	renderWithParams   bool
	durationBackground bool
	excluded           []string
	timeline           *TimelineCollector
	linker             *editorlink.Linker

	env env
}

// NewQueryCollector returns an empty QueryCollector with source finding
// disabled.
func NewQueryCollector() *QueryCollector {
	return &QueryCollector{
		sourceLimit: stackfilter.DefaultLimit,
		excluded:    excludedPaths(nil),
		env:         defaultEnv(),
	}
}

// Name implements Collector.
func (c *QueryCollector) Name() string { return "queries" }

// Snapshot implements Collector.
func (c *QueryCollector) Snapshot() any { return c.Collect() }

// SetFindSource toggles origin capture for recorded events. limit caps the
// number of frames kept; values below 1 mean stackfilter.DefaultLimit.
func (c *QueryCollector) SetFindSource(enabled bool, limit int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.findSource = enabled
	if limit <= 0 {
		limit = stackfilter.DefaultLimit
	}
	c.sourceLimit = limit
}

// SourceLimit returns the number of frames kept per recorded event.
func (c *QueryCollector) SourceLimit() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sourceLimit
}

// SetRenderSQLWithParams embeds binding values in the reported SQL.
func (c *QueryCollector) SetRenderSQLWithParams(enabled bool) {
	c.mu.Lock()
	c.renderWithParams = enabled
	c.mu.Unlock()
}

// SetDurationBackground adds start/width percentages to reported statements.
func (c *QueryCollector) SetDurationBackground(enabled bool) {
	c.mu.Lock()
	c.durationBackground = enabled
	c.mu.Unlock()
}

// AddExcludedPaths adds path substrings whose frames are never reported as
// an origin.
func (c *QueryCollector) AddExcludedPaths(paths ...string) {
	c.mu.Lock()
	c.excluded = append(c.excluded, paths...)
	c.mu.Unlock()
}

// SetTimeline mirrors every recorded statement as a timeline measure.
func (c *QueryCollector) SetTimeline(t *TimelineCollector) {
	c.mu.Lock()
	c.timeline = t
	c.mu.Unlock()
}

// SetLinker implements LinkerAware.
func (c *QueryCollector) SetLinker(l *editorlink.Linker) {
	c.mu.Lock()
	c.linker = l
	c.mu.Unlock()
}

// StartTimer stores a measurement start in the pending slot and returns it.
// A second call before RecordQuery overwrites the slot.
func (c *QueryCollector) StartTimer() Timer {
	t := Timer{start: c.env.now(), memory: c.env.heap()}
	c.mu.Lock()
	c.pending = &t
	c.mu.Unlock()
	return t
}

// RecordQuery appends a statement. Duration is the explicit value, else the
// time since the timer started, else zero; memory is derived the same way.
// The pending timer slot is cleared.
func (c *QueryCollector) RecordQuery(sql string, bindings []domain.Binding, opts QueryOptions) {
	end := c.env.now()

	c.mu.Lock()
	timer := c.pending
	c.pending = nil
	findSource, limit, excluded, timeline := c.findSource, c.sourceLimit, c.excluded, c.timeline
	c.mu.Unlock()
	if opts.Timer != nil {
		timer = opts.Timer
	}

	var duration float64
	switch {
	case opts.Duration != nil:
		duration = opts.Duration.Seconds()
	case timer != nil:
		duration = max(0, end.Sub(timer.start).Seconds())
	}

	var memory int64
	switch {
	case opts.Memory != nil:
		memory = *opts.Memory
	case timer != nil && timer.memory != 0:
		memory = c.env.heap() - timer.memory
	}

	statement := sqlrender.NormalizeStatement(sql)
	endSeconds := unixSeconds(end)
	event := domain.QueryEvent{
		SQL:        statement,
		Type:       domain.EventQuery,
		Connection: connectionName(opts.Connection),
		Driver:     opts.Driver,
		Start:      endSeconds - duration,
		Duration:   duration,
		Memory:     memory,
		Bindings:   append([]domain.Binding(nil), bindings...),
		Backtrace:  c.backtrace(opts.Backtrace, findSource, limit, excluded),
		Metadata:   maps.Clone(opts.Metadata),
	}
	if opts.Err != nil {
		event.Error = opts.Err.Error()
	}

	c.mu.Lock()
	c.queryCount++
	c.appendLocked(event)
	c.mu.Unlock()

	if timeline != nil {
		timeline.AddMeasure(truncate(statement, 100), secondsToTime(event.Start), end,
			map[string]any{"memoryUsage": memory}, "db")
	}
}

// RecordTransaction appends a transaction marker such as "Begin Transaction".
// Markers have zero duration and memory and are never hidden by the
// excluded-path filter.
func (c *QueryCollector) RecordTransaction(event string, opts QueryOptions) {
	now := c.env.now()

	c.mu.Lock()
	findSource, limit, excluded := c.findSource, c.sourceLimit, c.excluded
	c.mu.Unlock()

	e := domain.QueryEvent{
		SQL:        event,
		Type:       domain.EventTransaction,
		Connection: connectionName(opts.Connection),
		Driver:     opts.Driver,
		Start:      unixSeconds(now),
		Backtrace:  c.backtrace(opts.Backtrace, findSource, limit, excluded),
		Metadata:   maps.Clone(opts.Metadata),
	}
	if opts.Err != nil {
		e.Error = opts.Err.Error()
	}

	c.mu.Lock()
	c.txCount++
	c.appendLocked(e)
	c.mu.Unlock()
}

// AddComment records "-- text" as a transaction marker with comment=true
// metadata. Caller metadata wins on key conflicts.
func (c *QueryCollector) AddComment(text string, opts QueryOptions) {
	meta := map[string]any{"comment": true}
	maps.Copy(meta, opts.Metadata)
	opts.Metadata = meta
	c.RecordTransaction("-- "+text, opts)
}

// Reset drops all events, counters and the pending timer. Configuration is
// kept.
func (c *QueryCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connections = nil
	c.order = nil
	c.queryCount = 0
	c.txCount = 0
	c.pending = nil
}

// Events returns a copy of the recorded events in connection order.
func (c *QueryCollector) Events() []domain.QueryEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []domain.QueryEvent
	for _, name := range c.order {
		out = append(out, c.connections[name]...)
	}
	return out
}

// Collect builds the report. Events whose first frame is in an excluded path
// are left out, except transaction markers.
func (c *QueryCollector) Collect() QueryReport {
	c.mu.Lock()
	var events []domain.QueryEvent
	for _, name := range c.order {
		events = append(events, c.connections[name]...)
	}
	queryCount, txCount := c.queryCount, c.txCount
	renderWithParams, durationBackground := c.renderWithParams, c.durationBackground
	excluded, linker := c.excluded, c.linker
	c.mu.Unlock()

	report := QueryReport{
		NbStatements:         queryCount,
		NbExcludedStatements: queryCount + txCount,
		Statements:           []Statement{},
	}

	for _, e := range events {
		if e.Type != domain.EventTransaction && len(e.Backtrace) > 0 &&
			e.Backtrace[0].File != "" && stackfilter.IsExcluded(e.Backtrace[0].File, excluded) {
			continue
		}
		report.AccumulatedDuration += e.Duration
		report.MemoryUsage += e.Memory
		if e.Error != "" {
			report.NbFailedStatements++
		}
		report.Statements = append(report.Statements, c.statement(e, renderWithParams, linker))
	}

	report.NbVisibleStatements = len(report.Statements)
	report.AccumulatedDurationStr = formatter.FormatDuration(report.AccumulatedDuration)
	if report.MemoryUsage != 0 {
		report.MemoryUsageStr = strPtr(formatter.FormatBytes(report.MemoryUsage, 2))
	}

	if durationBackground && report.AccumulatedDuration > 0 {
		distributePercent(report.Statements, report.AccumulatedDuration)
	}
	return report
}

func (c *QueryCollector) statement(e domain.QueryEvent, renderWithParams bool, linker *editorlink.Linker) Statement {
	sql := e.SQL
	if e.Type == domain.EventQuery {
		sql = sqlrender.Render(e.SQL, e.Bindings, renderWithParams)
	} else {
		sql = sqlrender.FormatSQL(sql)
	}

	s := Statement{
		SQL:        sql,
		Type:       e.Type,
		Start:      e.Start,
		Duration:   e.Duration,
		Memory:     e.Memory,
		Connection: e.Connection,
		Driver:     e.Driver,
		Bindings:   sqlrender.CheckBindings(e.Bindings),
		Backtrace:  e.Backtrace,
		Metadata:   e.Metadata,
		Error:      e.Error,
	}
	if s.Backtrace == nil {
		s.Backtrace = []domain.Frame{}
	}
	if e.Type != domain.EventTransaction {
		s.DurationStr = formatter.FormatDuration(e.Duration)
	}
	if e.Memory != 0 {
		s.MemoryStr = strPtr(formatter.FormatBytes(e.Memory, 2))
	}
	if len(e.Backtrace) > 0 {
		origin := e.Backtrace[0]
		s.Filename = strPtr(formatter.FormatSource(origin, true))
		s.OriginLink = linker.FrameLink(origin)
	}
	return s
}

// distributePercent lays statements out as a Gantt chart: each event with a
// duration gets a width proportional to its share of total and starts where
// the previous one ended.
func distributePercent(statements []Statement, total float64) {
	var start float64
	for i := range statements {
		if statements[i].Duration == 0 {
			continue
		}
		width := statements[i].Duration / total * 100
		sp, wp := round3(start), round3(width)
		statements[i].StartPercent = &sp
		statements[i].WidthPercent = &wp
		start += width
	}
}

func (c *QueryCollector) backtrace(explicit []domain.Frame, findSource bool, limit int, excluded []string) []domain.Frame {
	if explicit != nil {
		return stackfilter.RelevantFrames(explicit, excluded, limit)
	}
	if !findSource {
		return nil
	}
	return stackfilter.RelevantFrames(c.env.safeCapture(), excluded, limit)
}

func (c *QueryCollector) appendLocked(e domain.QueryEvent) {
	if c.connections == nil {
		c.connections = make(map[string][]domain.QueryEvent)
	}
	if _, ok := c.connections[e.Connection]; !ok {
		c.order = append(c.order, e.Connection)
	}
	c.connections[e.Connection] = append(c.connections[e.Connection], e)
}

func connectionName(name string) string {
	if name == "" {
		return domain.DefaultConnection
	}
	return name
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
