package collector

import (
	"maps"
	"sort"
	"sync"
	"time"

	"debugbar/internal/domain"
	"debugbar/internal/formatter"
)

// Measure is one span on the request timeline. Times are in seconds.
type Measure struct {
	Label         string         `json:"label"`
	Start         float64        `json:"start"`
	RelativeStart float64        `json:"relative_start"`
	End           float64        `json:"end"`
	RelativeEnd   float64        `json:"relative_end"`
	Duration      float64        `json:"duration"`
	DurationStr   string         `json:"duration_str"`
	Params        map[string]any `json:"params"`
	Group         string         `json:"collector,omitempty"`
}

// TimelineReport is the snapshot of a TimelineCollector.
type TimelineReport struct {
	Start       float64   `json:"start"`
	End         float64   `json:"end"`
	Duration    float64   `json:"duration"`
	DurationStr string    `json:"duration_str"`
	Measures    []Measure `json:"measures"`
}

type startedMeasure struct {
	label string
	group string
	start time.Time
}

// TimelineCollector records named spans relative to the request start.
type TimelineCollector struct {
	mu           sync.Mutex
	requestStart time.Time
	started      map[string]startedMeasure
	measures     []Measure

	env env
}

// NewTimelineCollector returns a timeline starting at requestStart. A zero
// requestStart means now.
func NewTimelineCollector(requestStart time.Time) *TimelineCollector {
	e := defaultEnv()
	if requestStart.IsZero() {
		requestStart = e.now()
	}
	return &TimelineCollector{
		requestStart: requestStart,
		started:      make(map[string]startedMeasure),
		env:          e,
	}
}

// Name implements Collector.
func (c *TimelineCollector) Name() string { return "time" }

// Snapshot implements Collector.
func (c *TimelineCollector) Snapshot() any { return c.Collect() }

// RequestStart returns the timeline origin.
func (c *TimelineCollector) RequestStart() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requestStart
}

// StartMeasure opens a span. An empty label defaults to name. Starting a
// name twice restarts it.
func (c *TimelineCollector) StartMeasure(name, label, group string) {
	if label == "" {
		label = name
	}
	now := c.env.now()
	c.mu.Lock()
	c.started[name] = startedMeasure{label: label, group: group, start: now}
	c.mu.Unlock()
}

// HasStartedMeasure reports whether name is open.
func (c *TimelineCollector) HasStartedMeasure(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.started[name]
	return ok
}

// StopMeasure closes a span opened by StartMeasure.
func (c *TimelineCollector) StopMeasure(name string, params map[string]any) error {
	now := c.env.now()
	c.mu.Lock()
	m, ok := c.started[name]
	delete(c.started, name)
	c.mu.Unlock()
	if !ok {
		return domain.ErrNotFound("measure %q was not started", name)
	}
	c.AddMeasure(m.label, m.start, now, params, m.group)
	return nil
}

// Measure runs fn and records how long it took.
func (c *TimelineCollector) Measure(label string, fn func()) {
	start := c.env.now()
	defer func() {
		c.AddMeasure(label, start, c.env.now(), nil, "")
	}()
	fn()
}

// AddMeasure records a finished span.
func (c *TimelineCollector) AddMeasure(label string, start, end time.Time, params map[string]any, group string) {
	if params == nil {
		params = map[string]any{}
	} else {
		params = maps.Clone(params)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	origin := unixSeconds(c.requestStart)
	s, e := unixSeconds(start), unixSeconds(end)
	c.measures = append(c.measures, Measure{
		Label:         label,
		Start:         s,
		RelativeStart: s - origin,
		End:           e,
		RelativeEnd:   e - origin,
		Duration:      e - s,
		DurationStr:   formatter.FormatDuration(e - s),
		Params:        params,
		Group:         group,
	})
}

// Collect closes every open span and returns the measures ordered by start.
func (c *TimelineCollector) Collect() TimelineReport {
	c.mu.Lock()
	names := make([]string, 0, len(c.started))
	for name := range c.started {
		names = append(names, name)
	}
	c.mu.Unlock()
	sort.Strings(names)
	for _, name := range names {
		_ = c.StopMeasure(name, nil)
	}

	end := c.env.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	measures := append([]Measure(nil), c.measures...)
	sort.SliceStable(measures, func(i, j int) bool { return measures[i].Start < measures[j].Start })
	if measures == nil {
		measures = []Measure{}
	}

	start := unixSeconds(c.requestStart)
	duration := unixSeconds(end) - start
	return TimelineReport{
		Start:       start,
		End:         unixSeconds(end),
		Duration:    duration,
		DurationStr: formatter.FormatDuration(duration),
		Measures:    measures,
	}
}
