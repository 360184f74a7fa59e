package debugbar

import (
	"debugbar/internal/collector"
)

// Settings configures the collectors registered by NewStandard.
type Settings struct {
	// Editor names one of editorlink.Templates. LocalPath maps the server
	// working directory to a local checkout for links.
	Editor    string
	LocalPath string
	// PathReplacements maps server path prefixes to local ones.
	PathReplacements map[string]string
	FileTraces       bool
	// SourceLimit caps the frames kept per query.
	SourceLimit         int
	RenderSQLWithParams bool
	DurationBackground  bool
	HTMLVarDumper       bool
	ChainErrors         bool
	// TimelineQueries mirrors queries on the timeline.
	TimelineQueries bool
	// ExcludedPaths are extra path substrings never reported as origins.
	ExcludedPaths []string
}

// NewStandard returns a DebugBar with the messages, time, exceptions,
// queries and counter collectors registered and configured from s.
func NewStandard(s Settings, opts ...Option) *DebugBar {
	b := New(opts...)

	messages := collector.NewMessagesCollector("messages")
	messages.UseHTMLVarDumper(s.HTMLVarDumper)
	messages.AddExcludedPaths(s.ExcludedPaths...)

	timeline := collector.NewTimelineCollector(b.started)

	exceptions := collector.NewExceptionsCollector()
	exceptions.SetChainErrors(s.ChainErrors)
	exceptions.AddExcludedPaths(s.ExcludedPaths...)

	queries := collector.NewQueryCollector()
	queries.SetRenderSQLWithParams(s.RenderSQLWithParams)
	queries.SetDurationBackground(s.DurationBackground)
	queries.AddExcludedPaths(s.ExcludedPaths...)
	if s.TimelineQueries {
		queries.SetTimeline(timeline)
	}

	// Names are distinct, so registration cannot conflict.
	for _, c := range []collector.Collector{
		messages, timeline, exceptions, queries,
		collector.NewObjectCountCollector("counter"),
	} {
		_ = b.AddCollector(c)
	}

	queries.SetFindSource(s.FileTraces, s.SourceLimit)
	messages.CollectFileTrace(s.FileTraces)
	b.SetEditor(s.Editor, s.LocalPath)
	if len(s.PathReplacements) > 0 {
		b.SetPathReplacements(s.PathReplacements)
	}
	return b
}
