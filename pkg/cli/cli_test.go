package cli

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openServer is a fake open handler serving each dataset once.
type openServer struct {
	mu       sync.Mutex
	datasets map[string]string
	queries  []string
}

func (s *openServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, r.URL.RawQuery)

	w.Header().Set("Content-Type", "application/json")
	id := r.URL.Query().Get("id")
	data, ok := s.datasets[id]
	if r.URL.Path != "/_debugbar/open" || r.URL.Query().Get("op") != "get" || !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":404,"message":"dataset \"` + id + `\" not found"}`))
		return
	}
	delete(s.datasets, id)
	_, _ = w.Write([]byte(data))
}

// newTestRootCmd creates a root command pointed at srv with an isolated HOME.
func newTestRootCmd(t *testing.T, srv *httptest.Server, args ...string) (*cobra.Command, *bytes.Buffer) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("DEBUGBAR_HOST", "")
	t.Setenv("DEBUGBAR_OUTPUT", "")

	cmd := newRootCmd(srv.Client())
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--host", srv.URL}, args...))
	return cmd, &out
}

func TestGetCmd_Table(t *testing.T) {
	fake := &openServer{datasets: map[string]string{"req-1": sampleDataset}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	cmd, out := newTestRootCmd(t, srv, "get", "req-1", "-o", "table")
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "Request:  GET /users")
	assert.Contains(t, out.String(), "COLLECTOR")
	assert.Contains(t, out.String(), "4 statements in 12.5ms, 1 failed")
	assert.Equal(t, []string{"id=req-1&op=get"}, fake.queries)
}

func TestGetCmd_JSONWhenPiped(t *testing.T) {
	fake := &openServer{datasets: map[string]string{"req-1": `{"__meta":{"id":"req-1"}}`}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	cmd, out := newTestRootCmd(t, srv, "get", "req-1")
	require.NoError(t, cmd.Execute())

	assert.JSONEq(t, `{"__meta":{"id":"req-1"}}`, out.String())
}

func TestGetCmd_Collector(t *testing.T) {
	fake := &openServer{datasets: map[string]string{"req-1": sampleDataset}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	cmd, out := newTestRootCmd(t, srv, "get", "req-1", "--collector", "messages")
	require.NoError(t, cmd.Execute())
	assert.JSONEq(t, `{"count": 2, "messages": []}`, out.String())

	fake.datasets["req-2"] = sampleDataset
	cmd, _ = newTestRootCmd(t, srv, "get", "req-2", "-c", "nope")
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `collector "nope"`)
}

func TestGetCmd_NotFound(t *testing.T) {
	srv := httptest.NewServer(&openServer{datasets: map[string]string{}})
	t.Cleanup(srv.Close)

	cmd, _ := newTestRootCmd(t, srv, "get", "missing")
	err := cmd.Execute()
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.HTTPStatus)
	assert.Equal(t, `dataset "missing" not found`, apiErr.Message)
}

func TestRootCmd_ProfileHost(t *testing.T) {
	fake := &openServer{datasets: map[string]string{"req-1": `{}`}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	t.Setenv("HOME", t.TempDir())
	t.Setenv("DEBUGBAR_HOST", "")
	t.Setenv("DEBUGBAR_OUTPUT", "")
	require.NoError(t, SaveUserConfig(&UserConfig{
		CurrentProfile: "local",
		Profiles:       map[string]Profile{"local": {Host: srv.URL, Output: "json"}},
	}))

	cmd := newRootCmd(srv.Client())
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"get", "req-1"})
	require.NoError(t, cmd.Execute())
	assert.JSONEq(t, `{}`, out.String())
}

func TestRootCmd_RejectsUnknownOutput(t *testing.T) {
	srv := httptest.NewServer(&openServer{})
	t.Cleanup(srv.Close)

	cmd, _ := newTestRootCmd(t, srv, "version", "-o", "yaml")
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}

func TestConfigCmd_SetAndUseProfile(t *testing.T) {
	srv := httptest.NewServer(&openServer{})
	t.Cleanup(srv.Close)

	cmd, out := newTestRootCmd(t, srv, "config", "set-profile", "--name", "staging", "--host", "https://staging.example.com")
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), `"profile": "staging"`)

	cfg, err := LoadUserConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://staging.example.com", cfg.Profiles["staging"].Host)

	cmd = newRootCmd(srv.Client())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"config", "use-profile", "staging"})
	require.NoError(t, cmd.Execute())

	cfg, err = LoadUserConfig()
	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.CurrentProfile)

	cmd = newRootCmd(srv.Client())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"config", "use-profile", "prod"})
	require.Error(t, cmd.Execute())
}

func TestGetCmd_ProfileCollectors(t *testing.T) {
	fake := &openServer{datasets: map[string]string{"req-1": sampleDataset}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	cmd, out := newTestRootCmd(t, srv, "config", "set-profile", "--name", "local",
		"--host", srv.URL, "--default-output", "table", "--collectors", "queries, exceptions")
	require.NoError(t, cmd.Execute())

	cmd = newRootCmd(srv.Client())
	out.Reset()
	cmd.SetOut(out)
	cmd.SetArgs([]string{"get", "req-1"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "4 statements in 12.5ms, 1 failed")
	assert.Contains(t, out.String(), "1 exceptions")
	assert.NotContains(t, out.String(), "2 messages")
	assert.Less(t, strings.Index(out.String(), "queries"), strings.Index(out.String(), "exceptions"))
}

func TestConfigCmd_ShowAndDelete(t *testing.T) {
	srv := httptest.NewServer(&openServer{})
	t.Cleanup(srv.Close)

	cmd, out := newTestRootCmd(t, srv, "config", "show", "-o", "table")
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "No profiles")

	require.NoError(t, SaveUserConfig(&UserConfig{
		CurrentProfile: "local",
		Profiles: map[string]Profile{
			"local":   {Host: "http://localhost:8080"},
			"staging": {Host: "https://staging.example.com", Collectors: []string{"queries"}},
		},
	}))

	run := func(args ...string) (string, error) {
		c := newRootCmd(srv.Client())
		var buf bytes.Buffer
		c.SetOut(&buf)
		c.SetErr(&buf)
		c.SetArgs(args)
		err := c.Execute()
		return buf.String(), err
	}

	shown, err := run("config", "show", "-o", "table")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(shown), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"PROFILE", "ACTIVE", "HOST", "OUTPUT", "COLLECTORS"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"local", "*", "http://localhost:8080", "-", "-"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"staging", "https://staging.example.com", "-", "queries"}, strings.Fields(lines[2]))

	_, err = run("config", "delete-profile", "local")
	require.Error(t, err)

	_, err = run("config", "delete-profile", "staging")
	require.NoError(t, err)
	cfg, err := LoadUserConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"local"}, cfg.ProfileNames())
}

func TestRootCmd_UnknownProfile(t *testing.T) {
	srv := httptest.NewServer(&openServer{})
	t.Cleanup(srv.Close)

	cmd, _ := newTestRootCmd(t, srv, "version", "--profile", "prod")
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `profile "prod" not found`)
}

func TestVersionCmd(t *testing.T) {
	srv := httptest.NewServer(&openServer{})
	t.Cleanup(srv.Close)

	cmd, out := newTestRootCmd(t, srv, "version", "-o", "table")
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "debugbar version dev (commit: none)\n", out.String())
}
