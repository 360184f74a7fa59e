package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserConfig_ActiveProfile(t *testing.T) {
	cfg := &UserConfig{
		CurrentProfile: "default",
		Profiles: map[string]Profile{
			"default": {Host: "http://localhost:8080", Output: "table"},
			"staging": {Host: "https://staging.example.com", Output: "json"},
		},
	}

	tests := []struct {
		name     string
		override string
		wantHost string
	}{
		{name: "uses current profile", override: "", wantHost: "http://localhost:8080"},
		{name: "override to staging", override: "staging", wantHost: "https://staging.example.com"},
		{name: "nonexistent profile returns empty", override: "nonexistent", wantHost: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantHost, cfg.ActiveProfile(tt.override).Host)
		})
	}
}

func TestLoadSaveUserConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	cfg := &UserConfig{
		CurrentProfile: "test",
		Profiles: map[string]Profile{
			"test": {Host: "http://test:8080", Output: "json"},
		},
	}
	require.NoError(t, SaveUserConfig(cfg))

	info, err := os.Stat(filepath.Join(dir, ".debugbar", "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := LoadUserConfig()
	require.NoError(t, err)
	assert.Equal(t, "test", loaded.CurrentProfile)
	require.Contains(t, loaded.Profiles, "test")
	assert.Equal(t, "http://test:8080", loaded.Profiles["test"].Host)
	assert.Equal(t, "json", loaded.Profiles["test"].Output)
}

func TestLoadUserConfig_MissingFileGivesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadUserConfig()
	require.NoError(t, err)
	assert.Equal(t, "default", cfg.CurrentProfile)
	assert.Empty(t, cfg.Profiles)
}

func TestLoadUserConfig_RejectsInvalidProfile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".debugbar"), 0o700))
	content := "current-profile: x\nprofiles:\n  x:\n    host: ftp://example.com\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".debugbar", "config.yaml"), []byte(content), 0o600))

	_, err := LoadUserConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `profile "x"`)
}

func TestLoadUserConfig_EmptyProfiles(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".debugbar"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".debugbar", "config.yaml"), []byte("current-profile: x\n"), 0o600))

	cfg, err := LoadUserConfig()
	require.NoError(t, err)
	assert.NotNil(t, cfg.Profiles)
}

func TestProfile_Validate(t *testing.T) {
	tests := []struct {
		name    string
		profile Profile
		wantErr string
	}{
		{name: "empty", profile: Profile{}},
		{name: "full", profile: Profile{Host: "https://app.example.com:8443", Output: "table", Collectors: []string{"queries"}}},
		{name: "no scheme", profile: Profile{Host: "localhost:8080"}, wantErr: "invalid host"},
		{name: "other scheme", profile: Profile{Host: "ftp://example.com"}, wantErr: "invalid host"},
		{name: "bad output", profile: Profile{Output: "yaml"}, wantErr: "unsupported output format"},
		{name: "blank collector", profile: Profile{Collectors: []string{"queries", ""}}, wantErr: "must not be empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.profile.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestUserConfig_UseAndDelete(t *testing.T) {
	cfg := &UserConfig{
		CurrentProfile: "local",
		Profiles: map[string]Profile{
			"local":   {Host: "http://localhost:8080"},
			"staging": {Host: "https://staging.example.com"},
		},
	}

	require.Error(t, cfg.Use("prod"))
	require.NoError(t, cfg.Use("staging"))
	assert.Equal(t, "staging", cfg.CurrentProfile)

	err := cfg.Delete("staging")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is active")

	require.NoError(t, cfg.Delete("local"))
	assert.Equal(t, []string{"staging"}, cfg.ProfileNames())
	require.Error(t, cfg.Delete("local"))
}

func TestSplitCollectors(t *testing.T) {
	assert.Equal(t, []string{"queries", "time"}, splitCollectors(" queries, ,time "))
	assert.Nil(t, splitCollectors(""))
}
