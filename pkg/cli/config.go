package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// UserConfig is the content of ~/.debugbar/config.yaml.
type UserConfig struct {
	CurrentProfile string             `yaml:"current-profile"`
	Profiles       map[string]Profile `yaml:"profiles"`
}

// Profile points the CLI at one server. Collectors, when set, limits the
// summary table of `get` to those collectors, in that order.
type Profile struct {
	Host       string   `yaml:"host,omitempty"`
	Output     string   `yaml:"output,omitempty"`
	Collectors []string `yaml:"collectors,omitempty"`
}

// Validate checks that the host is an http(s) URL and the output format
// is known.
func (p Profile) Validate() error {
	if p.Host != "" {
		u, err := url.Parse(p.Host)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid host %q: want an http or https URL", p.Host)
		}
	}
	if err := validateOutputFormat(p.Output); err != nil {
		return err
	}
	if slices.Contains(p.Collectors, "") {
		return errors.New("collector names must not be empty")
	}
	return nil
}

// ActiveProfile returns the override profile, or the current one. An
// unknown name yields the zero Profile.
func (c *UserConfig) ActiveProfile(override string) Profile {
	name := c.CurrentProfile
	if override != "" {
		name = override
	}
	return c.Profiles[name]
}

// Use makes name the current profile.
func (c *UserConfig) Use(name string) error {
	if _, ok := c.Profiles[name]; !ok {
		return fmt.Errorf("profile %q not found", name)
	}
	c.CurrentProfile = name
	return nil
}

// Delete removes a profile. The current profile cannot be deleted.
func (c *UserConfig) Delete(name string) error {
	if _, ok := c.Profiles[name]; !ok {
		return fmt.Errorf("profile %q not found", name)
	}
	if name == c.CurrentProfile {
		return fmt.Errorf("profile %q is active; switch with use-profile first", name)
	}
	delete(c.Profiles, name)
	return nil
}

// ProfileNames returns the profile names in sorted order.
func (c *UserConfig) ProfileNames() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func defaultUserConfig() *UserConfig {
	return &UserConfig{
		CurrentProfile: "default",
		Profiles:       map[string]Profile{},
	}
}

// ConfigPath returns the path to ~/.debugbar/config.yaml.
func ConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".debugbar", "config.yaml")
	}
	return filepath.Join(home, ".debugbar", "config.yaml")
}

// LoadUserConfig reads the config file. A missing file yields the default
// configuration.
func LoadUserConfig() (*UserConfig, error) {
	data, err := os.ReadFile(ConfigPath())
	if errors.Is(err, fs.ErrNotExist) {
		return defaultUserConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := defaultUserConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", ConfigPath(), err)
	}
	if cfg.Profiles == nil {
		cfg.Profiles = map[string]Profile{}
	}
	for name, p := range cfg.Profiles {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("profile %q: %w", name, err)
		}
	}
	return cfg, nil
}

// SaveUserConfig writes the config file, readable by the owner only.
func SaveUserConfig(cfg *UserConfig) error {
	path := ConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// splitCollectors parses a comma separated collector list.
func splitCollectors(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
