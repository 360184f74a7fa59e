package debugbar

import (
	"context"
	"time"

	"debugbar/internal/collector"
	"debugbar/internal/domain"
)

type barKey struct{}

// WithBar returns a new context carrying the request's DebugBar.
func WithBar(ctx context.Context, b *DebugBar) context.Context {
	return context.WithValue(ctx, barKey{}, b)
}

// FromContext extracts the DebugBar from the context.
func FromContext(ctx context.Context) (*DebugBar, bool) {
	b, ok := ctx.Value(barKey{}).(*DebugBar)
	return b, ok && b != nil
}

// Logger is the message surface instrumented code logs through.
type Logger interface {
	Log(level domain.Level, message any, context map[string]any)
	Error(message any, args ...any)
	Warning(message any, args ...any)
	Info(message any, args ...any)
	Debug(message any, args ...any)
}

// QueryRecorder is the query surface used by database instrumentation.
type QueryRecorder interface {
	StartTimer() collector.Timer
	RecordQuery(sql string, bindings []domain.Binding, opts collector.QueryOptions)
	RecordTransaction(event string, opts collector.QueryOptions)
	AddComment(text string, opts collector.QueryOptions)
}

// Measurer is the timeline surface.
type Measurer interface {
	StartMeasure(name, label, group string)
	StopMeasure(name string, params map[string]any) error
	Measure(label string, fn func())
	AddMeasure(label string, start, end time.Time, params map[string]any, group string)
}

// Counter is the object-count surface.
type Counter interface {
	CountClass(v any, n int)
}

// ErrorRecorder is the exceptions surface.
type ErrorRecorder interface {
	AddError(err error)
	AddPanic(recovered any, stack []domain.Frame)
}

var (
	_ Logger        = (*collector.MessagesCollector)(nil)
	_ QueryRecorder = (*collector.QueryCollector)(nil)
	_ Measurer      = (*collector.TimelineCollector)(nil)
	_ Counter       = (*collector.ObjectCountCollector)(nil)
	_ ErrorRecorder = (*collector.ExceptionsCollector)(nil)
)

// LoggerFrom returns the messages collector of the context's DebugBar, or
// a Logger that drops everything.
func LoggerFrom(ctx context.Context) Logger {
	if b, ok := FromContext(ctx); ok {
		if m := b.Messages(); m != nil {
			return m
		}
	}
	return nopLogger{}
}

// QueriesFrom returns the queries collector of the context's DebugBar, or
// a recorder that drops everything.
func QueriesFrom(ctx context.Context) QueryRecorder {
	if b, ok := FromContext(ctx); ok {
		if q := b.Queries(); q != nil {
			return q
		}
	}
	return nopQueries{}
}

// MeasurerFrom returns the timeline of the context's DebugBar, or a
// Measurer that still runs measured functions but records nothing.
func MeasurerFrom(ctx context.Context) Measurer {
	if b, ok := FromContext(ctx); ok {
		if t := b.Timeline(); t != nil {
			return t
		}
	}
	return nopMeasurer{}
}

// CounterFrom returns the counter collector of the context's DebugBar.
func CounterFrom(ctx context.Context) Counter {
	if b, ok := FromContext(ctx); ok {
		if c := b.Counter(); c != nil {
			return c
		}
	}
	return nopCounter{}
}

// ErrorsFrom returns the exceptions collector of the context's DebugBar.
func ErrorsFrom(ctx context.Context) ErrorRecorder {
	if b, ok := FromContext(ctx); ok {
		if e := b.Exceptions(); e != nil {
			return e
		}
	}
	return nopErrors{}
}

type nopLogger struct{}

func (nopLogger) Log(domain.Level, any, map[string]any) {}
func (nopLogger) Error(any, ...any)                     {}
func (nopLogger) Warning(any, ...any)                   {}
func (nopLogger) Info(any, ...any)                      {}
func (nopLogger) Debug(any, ...any)                     {}

type nopQueries struct{}

func (nopQueries) StartTimer() collector.Timer                                 { return collector.Timer{} }
func (nopQueries) RecordQuery(string, []domain.Binding, collector.QueryOptions) {}
func (nopQueries) RecordTransaction(string, collector.QueryOptions)            {}
func (nopQueries) AddComment(string, collector.QueryOptions)                   {}

type nopMeasurer struct{}

func (nopMeasurer) StartMeasure(string, string, string)       {}
func (nopMeasurer) StopMeasure(string, map[string]any) error { return nil }
func (nopMeasurer) Measure(_ string, fn func())               { fn() }
func (nopMeasurer) AddMeasure(string, time.Time, time.Time, map[string]any, string) {}

type nopCounter struct{}

func (nopCounter) CountClass(any, int) {}

type nopErrors struct{}

func (nopErrors) AddError(error)                {}
func (nopErrors) AddPanic(any, []domain.Frame) {}
