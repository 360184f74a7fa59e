package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDataset = `{
  "__meta": {"id": "req-1", "datetime": "2026-01-02 03:04:05", "utime": 1767323045.5, "method": "GET", "uri": "/users", "ip": "10.0.0.1"},
  "counter": {"data": [{"class": "User", "count": 3}], "count": 3, "is_counter": true},
  "exceptions": {"count": 1, "exceptions": [{"type": "*errors.errorString", "message": "boom"}]},
  "messages": {"count": 2, "messages": []},
  "queries": {"nb_statements": 4, "nb_failed_statements": 1, "nb_excluded_statements": 0, "accumulated_duration_str": "12.5ms", "statements": []},
  "time": {"start": 1, "end": 2, "duration": 1, "duration_str": "1s", "measures": [{"label": "Application"}]}
}`

func TestSummarize(t *testing.T) {
	s, err := Summarize([]byte(sampleDataset))
	require.NoError(t, err)

	assert.Equal(t, "req-1", s.ID)
	assert.Equal(t, "GET", s.Method)
	assert.Equal(t, "/users", s.URI)
	assert.Equal(t, "10.0.0.1", s.IP)

	got := map[string]string{}
	for _, c := range s.Collectors {
		got[c.Name] = c.Summary
	}
	assert.Equal(t, map[string]string{
		"counter":    "3 instances of 1 classes",
		"exceptions": "1 exceptions",
		"messages":   "2 messages",
		"queries":    "4 statements in 12.5ms, 1 failed",
		"time":       "1 measures, 1s total",
	}, got)
}

func TestSummarize_UnknownShapes(t *testing.T) {
	s, err := Summarize([]byte(`{"custom": {"x": 1}, "scalar": "hello", "listing": {"count": 7}}`))
	require.NoError(t, err)

	require.Len(t, s.Collectors, 3)
	assert.Equal(t, CollectorSummary{Name: "custom", Summary: "-"}, s.Collectors[0])
	assert.Equal(t, CollectorSummary{Name: "scalar", Summary: "hello"}, s.Collectors[1])
	assert.Equal(t, CollectorSummary{Name: "listing", Summary: "7 entries"}, s.Collectors[2])
}

func TestSummarize_Invalid(t *testing.T) {
	_, err := Summarize([]byte(`[1,2]`))
	require.Error(t, err)

	_, err = Summarize([]byte(`{`))
	require.Error(t, err)
}

func TestDatasetSummary_Select(t *testing.T) {
	s, err := Summarize([]byte(sampleDataset))
	require.NoError(t, err)

	assert.Equal(t, s.Collectors, s.Select(nil))

	got := s.Select([]string{"time", "missing", "queries"})
	require.Len(t, got, 2)
	assert.Equal(t, "time", got[0].Name)
	assert.Equal(t, "queries", got[1].Name)
}
