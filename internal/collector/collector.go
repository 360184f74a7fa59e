// Package collector implements the per-request data collectors: SQL
// queries, log messages, timeline measures, errors and object counts.
//
// Collectors are safe for concurrent use. Recording methods never return
// errors or panic outward; failures while resolving source locations
// degrade to an empty origin.
package collector

import (
	"runtime"
	"time"

	"debugbar/internal/domain"
	"debugbar/internal/editorlink"
	"debugbar/internal/stackfilter"
)

// Collector is a named data source whose snapshot becomes one entry of the
// request dataset.
type Collector interface {
	Name() string
	Snapshot() any
}

// LinkerAware collectors render editor links for source locations.
type LinkerAware interface {
	SetLinker(l *editorlink.Linker)
}

// MessageSource is anything a MessagesCollector can aggregate.
type MessageSource interface {
	Name() string
	Messages() []domain.MessageEntry
}

// FileTraceCapable sources can record the origin of each message.
type FileTraceCapable interface {
	CollectFileTrace(enabled bool)
}

// Compile-time interface checks.
var (
	_ Collector        = (*QueryCollector)(nil)
	_ Collector        = (*MessagesCollector)(nil)
	_ Collector        = (*TimelineCollector)(nil)
	_ Collector        = (*ExceptionsCollector)(nil)
	_ Collector        = (*ObjectCountCollector)(nil)
	_ LinkerAware      = (*QueryCollector)(nil)
	_ LinkerAware      = (*MessagesCollector)(nil)
	_ LinkerAware      = (*ExceptionsCollector)(nil)
	_ MessageSource    = (*MessagesCollector)(nil)
	_ FileTraceCapable = (*MessagesCollector)(nil)
)

// env holds the host facilities a collector reads. Tests replace them.
type env struct {
	now     func() time.Time
	heap    func() int64
	capture func() []domain.Frame
}

func defaultEnv() env {
	return env{
		now:  time.Now,
		heap: heapAlloc,
		capture: func() []domain.Frame {
			return stackfilter.Capture(0, stackfilter.DefaultDepth)
		},
	}
}

// safeCapture captures the current stack, returning nil if capture panics.
func (e env) safeCapture() (frames []domain.Frame) {
	defer func() {
		if recover() != nil {
			frames = nil
		}
	}()
	return e.capture()
}

func heapAlloc() int64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return int64(m.HeapAlloc)
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func secondsToTime(s float64) time.Time {
	return time.Unix(0, int64(s*1e9))
}

func excludedPaths(extra []string) []string {
	out := make([]string, 0, len(stackfilter.DefaultExcludedPaths)+len(extra))
	out = append(out, stackfilter.DefaultExcludedPaths...)
	return append(out, extra...)
}

func strPtr(s string) *string { return &s }
