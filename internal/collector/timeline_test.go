package collector

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"debugbar/internal/domain"
)

func TestTimelineCollector_StartStop(t *testing.T) {
	c := NewTimelineCollector(t0)
	c.env.now = steps(t0.Add(time.Second), t0.Add(3*time.Second), t0.Add(4*time.Second))

	c.StartMeasure("render", "", "view")
	assert.True(t, c.HasStartedMeasure("render"))
	require.NoError(t, c.StopMeasure("render", map[string]any{"template": "home"}))
	assert.False(t, c.HasStartedMeasure("render"))

	report := c.Collect()
	require.Len(t, report.Measures, 1)
	m := report.Measures[0]
	assert.Equal(t, "render", m.Label)
	assert.Equal(t, "view", m.Group)
	assert.InDelta(t, 1.0, m.RelativeStart, 1e-6)
	assert.InDelta(t, 2.0, m.Duration, 1e-6)
	assert.Equal(t, "2s", m.DurationStr)
	assert.Equal(t, map[string]any{"template": "home"}, m.Params)
	assert.InDelta(t, 4.0, report.Duration, 1e-6)
}

func TestTimelineCollector_StopUnknown(t *testing.T) {
	c := NewTimelineCollector(t0)

	err := c.StopMeasure("missing", nil)
	var notFound *domain.NotFoundError
	assert.True(t, errors.As(err, &notFound))
}

func TestTimelineCollector_CollectClosesOpenMeasuresAndSorts(t *testing.T) {
	c := NewTimelineCollector(t0)
	c.env.now = steps(t0.Add(2*time.Second), t0.Add(5*time.Second))

	c.StartMeasure("open", "Open span", "")
	c.AddMeasure("early", t0, t0.Add(time.Second), nil, "")

	report := c.Collect()
	require.Len(t, report.Measures, 2)
	assert.Equal(t, "early", report.Measures[0].Label)
	assert.Equal(t, "Open span", report.Measures[1].Label)
	assert.Equal(t, map[string]any{}, report.Measures[0].Params)
}

func TestTimelineCollector_Measure(t *testing.T) {
	c := NewTimelineCollector(t0)
	c.env.now = steps(t0, t0.Add(500*time.Millisecond))

	called := false
	c.Measure("work", func() { called = true })

	assert.True(t, called)
	m := c.Collect().Measures[0]
	assert.Equal(t, "work", m.Label)
	assert.InDelta(t, 0.5, m.Duration, 1e-6)
}
