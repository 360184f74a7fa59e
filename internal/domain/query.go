package domain

import "sort"

// EventType distinguishes SQL statements from transaction markers.
type EventType string

const (
	EventQuery       EventType = "query"
	EventTransaction EventType = "transaction"
)

// DefaultConnection is the connection name used when none is given.
const DefaultConnection = "default"

// Binding is a single statement parameter. An empty Name means the binding
// is positional and matches a "?" placeholder; otherwise it matches ":Name".
type Binding struct {
	Name  string `json:"name,omitempty"`
	Value any    `json:"value"`
}

// Positional builds positional bindings in argument order.
func Positional(values ...any) []Binding {
	out := make([]Binding, len(values))
	for i, v := range values {
		out[i] = Binding{Value: v}
	}
	return out
}

// Named builds named bindings from a map, ordered by name so that rendering
// is deterministic.
func Named(values map[string]any) []Binding {
	names := make([]string, 0, len(values))
	for k := range values {
		names = append(names, k)
	}
	sort.Strings(names)

	out := make([]Binding, len(names))
	for i, k := range names {
		out[i] = Binding{Name: k, Value: values[k]}
	}
	return out
}

// QueryEvent is one recorded statement or transaction marker. Start and
// Duration are in seconds; Memory is a heap delta in bytes.
type QueryEvent struct {
	SQL        string         `json:"sql"`
	Type       EventType      `json:"type"`
	Connection string         `json:"connection"`
	Driver     string         `json:"driver"`
	Start      float64        `json:"start"`
	Duration   float64        `json:"duration"`
	Memory     int64          `json:"memory"`
	Bindings   []Binding      `json:"bindings,omitempty"`
	Backtrace  []Frame        `json:"backtrace"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Error      string         `json:"error,omitempty"`
}
