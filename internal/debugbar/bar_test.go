package debugbar

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"debugbar/internal/collector"
	"debugbar/internal/domain"
)

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
}

func (m *memStore) Put(_ context.Context, id string, data []byte) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = make(map[string][]byte)
	}
	m.data[id] = data
	return nil
}

func (m *memStore) Get(_ context.Context, id string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.data[id]
	if !ok {
		return nil, domain.ErrNotFound("dataset %q not found", id)
	}
	delete(m.data, id)
	return d, nil
}

type panicky struct{}

func (panicky) Name() string  { return "panicky" }
func (panicky) Snapshot() any { panic("boom") }

var fixed = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func clock() time.Time { return fixed }

func TestAddCollector_Duplicate(t *testing.T) {
	b := New()
	require.NoError(t, b.AddCollector(collector.NewQueryCollector()))

	err := b.AddCollector(collector.NewQueryCollector())
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Contains(t, conflict.Error(), "queries")
	assert.Len(t, b.Collectors(), 1)
}

func TestCollectors_RegistrationOrder(t *testing.T) {
	b := NewStandard(Settings{})

	var names []string
	for _, c := range b.Collectors() {
		names = append(names, c.Name())
	}
	assert.Equal(t, []string{"messages", "time", "exceptions", "queries", "counter"}, names)
	assert.True(t, b.HasCollector("time"))
	assert.False(t, b.HasCollector("route"))
}

func TestTypedAccessors(t *testing.T) {
	b := NewStandard(Settings{})
	assert.NotNil(t, b.Messages())
	assert.NotNil(t, b.Queries())
	assert.NotNil(t, b.Timeline())
	assert.NotNil(t, b.Exceptions())
	assert.NotNil(t, b.Counter())

	empty := New()
	assert.Nil(t, empty.Messages())
	assert.Nil(t, empty.Queries())

	var nilBar *DebugBar
	assert.Nil(t, nilBar.Timeline())
}

func TestID_StableAndOverridable(t *testing.T) {
	b := New()
	id := b.ID()
	require.NotEmpty(t, id)
	assert.Equal(t, id, b.ID())
	assert.NoError(t, domain.ValidateID(id))

	assert.Equal(t, "fixed-id", New(WithID("fixed-id")).ID())
}

func TestCollect_MetaAndCollectors(t *testing.T) {
	b := NewStandard(Settings{},
		WithID("abc"),
		WithClock(clock),
		WithRequest(RequestInfo{Method: "GET", URI: "/users", IP: "10.0.0.1"}),
	)
	b.Messages().Info("hello")
	b.Queries().RecordQuery("SELECT 1", nil, collector.QueryOptions{Duration: durationPtr(time.Millisecond)})

	data := b.Collect()

	meta, ok := data[MetaKey].(Meta)
	require.True(t, ok)
	assert.Equal(t, Meta{
		ID:       "abc",
		Datetime: "2024-03-01 10:00:00",
		Utime:    float64(fixed.UnixNano()) / 1e9,
		Method:   "GET",
		URI:      "/users",
		IP:       "10.0.0.1",
	}, meta)

	messages, ok := data["messages"].(collector.MessagesReport)
	require.True(t, ok)
	assert.Equal(t, 1, messages.Count)

	queries, ok := data["queries"].(collector.QueryReport)
	require.True(t, ok)
	assert.Equal(t, 1, queries.NbStatements)
}

func TestCollect_SkipsPanickingCollector(t *testing.T) {
	b := New()
	require.NoError(t, b.AddCollector(panicky{}))
	require.NoError(t, b.AddCollector(collector.NewObjectCountCollector("")))

	data := b.Collect()
	assert.NotContains(t, data, "panicky")
	assert.Contains(t, data, "counter")
	assert.Contains(t, data, MetaKey)
}

func TestSave(t *testing.T) {
	t.Run("writes json under id", func(t *testing.T) {
		store := &memStore{}
		b := NewStandard(Settings{}, WithStore(store), WithID("req-1"), WithClock(clock))
		b.Messages().Warning("careful")

		require.NoError(t, b.Save(context.Background()))

		raw, err := store.Get(context.Background(), "req-1")
		require.NoError(t, err)

		var decoded map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(raw, &decoded))
		assert.Contains(t, decoded, MetaKey)
		assert.Contains(t, decoded, "messages")
		assert.Contains(t, decoded, "queries")
	})

	t.Run("no store", func(t *testing.T) {
		err := New().Save(context.Background())
		var validation *domain.ValidationError
		assert.ErrorAs(t, err, &validation)
	})

	t.Run("store failure is wrapped", func(t *testing.T) {
		cause := errors.New("disk full")
		b := New(WithStore(&memStore{err: cause}), WithID("x"))
		err := b.Save(context.Background())
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "store dataset x")
	})
}

func TestSetEditor_LocalPath(t *testing.T) {
	b := NewStandard(Settings{Editor: "vscode", LocalPath: "/home/dev/project"})

	tmpl, _ := b.Linker().Template()
	assert.Contains(t, tmpl, "vscode://")
	assert.Len(t, b.Linker().Replacements(), 1)
	for _, local := range b.Linker().Replacements() {
		assert.Equal(t, "/home/dev/project/", local)
	}
}

func TestSetEditor_EmptyIsNoop(t *testing.T) {
	b := New()
	b.SetEditor("", "/somewhere")
	tmpl, _ := b.Linker().Template()
	assert.Empty(t, tmpl)
	assert.Empty(t, b.Linker().Replacements())
}

func TestAggregateMessages(t *testing.T) {
	b := NewStandard(Settings{}, WithClock(clock))
	other := collector.NewMessagesCollector("audit")
	other.Info("from audit")
	b.Messages().Info("from app")

	b.AggregateMessages(other)

	report := b.Messages().Collect()
	require.Equal(t, 2, report.Count)
	var collectors []string
	for _, m := range report.Messages {
		collectors = append(collectors, m.Collector)
	}
	assert.ElementsMatch(t, []string{"", "audit"}, collectors)
}

func TestAggregateMessages_CycleIsIgnored(t *testing.T) {
	b := NewStandard(Settings{}, WithClock(clock))
	other := collector.NewMessagesCollector("audit")
	other.Info("from audit")

	b.AggregateMessages(other)
	other.Aggregate(b.Messages())

	assert.Equal(t, 1, other.Collect().Count)
	assert.Equal(t, 1, b.Messages().Collect().Count)
}

func TestEnableFileTraces(t *testing.T) {
	b := NewStandard(Settings{SourceLimit: 3}, WithClock(clock))
	other := collector.NewMessagesCollector("audit")
	b.AggregateMessages(other)

	b.EnableFileTraces(true)
	other.Info("traced")
	b.EnableFileTraces(false)
	other.Info("untraced")

	assert.Equal(t, 3, b.Queries().SourceLimit())
	msgs := other.Messages()
	require.Len(t, msgs, 2)
	assert.NotNil(t, msgs[0].Origin)
	assert.Nil(t, msgs[1].Origin)
}

func durationPtr(d time.Duration) *time.Duration { return &d }
