// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Storage driver names accepted in STORAGE_DRIVER.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverS3     = "s3"
	DriverGCS    = "gcs"
	DriverAzure  = "azure"
)

// StorageConfig selects and configures the snapshot store backends.
type StorageConfig struct {
	// Drivers lists the backends to write to. More than one fans out.
	Drivers []string
	Dir     string // FileStore directory (default: $TMPDIR/debugbar)
	// SQLitePath is the SQLite snapshot database file.
	SQLitePath string
	Prefix     string // object key prefix for S3, GCS and Azure

	// S3 fields are optional and nil when not configured.
	S3KeyID    *string
	S3Secret   *string
	S3Endpoint *string
	S3Region   *string
	S3Bucket   *string
	S3URLStyle string // "path" (default) or "vhost"

	GCSBucket          string
	GCSCredentialsFile string
	GCSEndpoint        string // emulator or private endpoint (optional)

	AzureAccountName string
	AzureAccountKey  string
	AzureContainer   string
	AzureEndpoint    string // defaults to https://{account}.blob.core.windows.net

	PruneSchedule string        // cron spec (default "@every 1h")
	MaxAge        time.Duration // datasets older than this are pruned (default 24h)
}

// HasS3Config returns true if all required S3 fields are set.
func (s *StorageConfig) HasS3Config() bool {
	return s.S3KeyID != nil && s.S3Secret != nil &&
		s.S3Endpoint != nil && s.S3Region != nil && s.S3Bucket != nil
}

// CollectorConfig controls what the per-request collectors capture.
type CollectorConfig struct {
	Editor              string
	EditorLocalPath     string
	PathReplacements    map[string]string
	FileTraces          bool
	SourceLimit         int
	RenderSQLWithParams bool
	DurationBackground  bool
	HTMLVarDumper       bool
	ChainErrors         bool
	TimelineQueries     bool
	ExcludedPaths       []string
}

// Config holds the configuration of the demo server and debug bar.
type Config struct {
	ListenAddr string // HTTP listen address (default ":8080")
	LogLevel   string // log level: debug, info, warn, error (default "info")
	Env        string // environment: "development" (default) or "production"

	// Enabled turns request instrumentation on (default true).
	Enabled bool

	// Demo application database.
	DBDriver string // "sqlite3" (default) or "duckdb"
	DBDSN    string

	// Rate limiting of the open handler.
	RateLimitRPS   float64 // sustained requests per second (default 20)
	RateLimitBurst int     // burst capacity (default 40)

	// CORS
	CORSAllowedOrigins []string // allowed origins for CORS (default: ["*"])

	Storage    StorageConfig
	Collectors CollectorConfig

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when the server is running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		ListenAddr: os.Getenv("LISTEN_ADDR"),
		LogLevel:   os.Getenv("LOG_LEVEL"),
		Env:        os.Getenv("ENV"),
		Enabled:    parseBoolEnvDefault("DEBUGBAR_ENABLED", true),
		DBDriver:   os.Getenv("DB_DRIVER"),
		DBDSN:      os.Getenv("DB_DSN"),
	}

	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimitRPS = f
		}
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitBurst = n
		}
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.CORSAllowedOrigins = splitList(v)
	}

	storage, err := loadStorage()
	if err != nil {
		return nil, err
	}
	cfg.Storage = storage
	cfg.Collectors = loadCollectors()

	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.DBDriver == "" {
		cfg.DBDriver = "sqlite3"
	}
	switch cfg.DBDriver {
	case "sqlite3", "duckdb":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q: must be sqlite3 or duckdb", cfg.DBDriver)
	}
	if cfg.DBDSN == "" {
		cfg.DBDSN = "file:demo.sqlite"
		if cfg.DBDriver == "duckdb" {
			cfg.DBDSN = ""
		}
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 20
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 40
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}

	if cfg.IsProduction() {
		if len(cfg.CORSAllowedOrigins) == 1 && cfg.CORSAllowedOrigins[0] == "*" {
			return nil, fmt.Errorf("CORS wildcard (*) is not allowed in production (ENV=production)")
		}
		if cfg.Enabled {
			cfg.Warnings = append(cfg.Warnings, "DEBUGBAR_ENABLED is on in production; request data is being recorded")
		}
	}

	return cfg, nil
}

func loadStorage() (StorageConfig, error) {
	s := StorageConfig{
		Drivers:            splitList(os.Getenv("STORAGE_DRIVER")),
		Dir:                os.Getenv("STORAGE_DIR"),
		SQLitePath:         os.Getenv("STORAGE_SQLITE_PATH"),
		Prefix:             os.Getenv("STORAGE_PREFIX"),
		S3URLStyle:         os.Getenv("S3_URL_STYLE"),
		GCSBucket:          os.Getenv("GCS_BUCKET"),
		GCSCredentialsFile: os.Getenv("GCS_CREDENTIALS_FILE"),
		GCSEndpoint:        os.Getenv("GCS_ENDPOINT"),
		AzureAccountName:   os.Getenv("AZURE_ACCOUNT_NAME"),
		AzureAccountKey:    os.Getenv("AZURE_ACCOUNT_KEY"),
		AzureContainer:     os.Getenv("AZURE_CONTAINER"),
		AzureEndpoint:      os.Getenv("AZURE_ENDPOINT"),
		PruneSchedule:      os.Getenv("STORAGE_PRUNE_SCHEDULE"),
	}

	// S3 fields are only set if present
	if v := os.Getenv("S3_KEY_ID"); v != "" {
		s.S3KeyID = &v
	}
	if v := os.Getenv("S3_SECRET"); v != "" {
		s.S3Secret = &v
	}
	if v := os.Getenv("S3_ENDPOINT"); v != "" {
		s.S3Endpoint = &v
	}
	if v := os.Getenv("S3_REGION"); v != "" {
		s.S3Region = &v
	}
	if v := os.Getenv("S3_BUCKET"); v != "" {
		s.S3Bucket = &v
	}

	if v := os.Getenv("STORAGE_MAX_AGE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return s, fmt.Errorf("parse STORAGE_MAX_AGE: %w", err)
		}
		s.MaxAge = d
	}

	if len(s.Drivers) == 0 {
		s.Drivers = []string{DriverFile}
	}
	for _, d := range s.Drivers {
		switch d {
		case DriverFile, DriverSQLite:
		case DriverS3:
			if !s.HasS3Config() {
				return s, fmt.Errorf("STORAGE_DRIVER=s3 requires S3_KEY_ID, S3_SECRET, S3_ENDPOINT, S3_REGION and S3_BUCKET")
			}
		case DriverGCS:
			if s.GCSBucket == "" {
				return s, fmt.Errorf("STORAGE_DRIVER=gcs requires GCS_BUCKET")
			}
		case DriverAzure:
			if s.AzureAccountName == "" || s.AzureAccountKey == "" || s.AzureContainer == "" {
				return s, fmt.Errorf("STORAGE_DRIVER=azure requires AZURE_ACCOUNT_NAME, AZURE_ACCOUNT_KEY and AZURE_CONTAINER")
			}
		default:
			return s, fmt.Errorf("unsupported STORAGE_DRIVER %q", d)
		}
	}

	if s.Dir == "" {
		s.Dir = filepath.Join(os.TempDir(), "debugbar")
	}
	if s.SQLitePath == "" {
		s.SQLitePath = "debugbar.sqlite"
	}
	if s.Prefix == "" {
		s.Prefix = "debugbar/"
	}
	if s.S3URLStyle == "" {
		s.S3URLStyle = "path"
	}
	if s.PruneSchedule == "" {
		s.PruneSchedule = "@every 1h"
	}
	if s.MaxAge == 0 {
		s.MaxAge = 24 * time.Hour
	}
	return s, nil
}

func loadCollectors() CollectorConfig {
	c := CollectorConfig{
		Editor:              os.Getenv("DEBUGBAR_EDITOR"),
		EditorLocalPath:     os.Getenv("DEBUGBAR_EDITOR_LOCAL_PATH"),
		PathReplacements:    parsePairs(os.Getenv("DEBUGBAR_PATH_REPLACEMENTS")),
		FileTraces:          parseBoolEnvDefault("DEBUGBAR_FILE_TRACES", true),
		RenderSQLWithParams: parseBoolEnvDefault("DEBUGBAR_RENDER_SQL_PARAMS", false),
		DurationBackground:  parseBoolEnvDefault("DEBUGBAR_DURATION_BACKGROUND", true),
		HTMLVarDumper:       parseBoolEnvDefault("DEBUGBAR_HTML_DUMPER", false),
		ChainErrors:         parseBoolEnvDefault("DEBUGBAR_CHAIN_ERRORS", false),
		TimelineQueries:     parseBoolEnvDefault("DEBUGBAR_TIMELINE_QUERIES", false),
		ExcludedPaths:       splitList(os.Getenv("DEBUGBAR_EXCLUDED_PATHS")),
	}
	if v := os.Getenv("DEBUGBAR_SOURCE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.SourceLimit = n
		}
	}
	return c
}

func parseBoolEnvDefault(key string, defaultVal bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return defaultVal
	}
	if v == "0" || v == "false" || v == "no" || v == "off" {
		return false
	}
	if v == "1" || v == "true" || v == "yes" || v == "on" {
		return true
	}
	return defaultVal
}

// splitList splits a comma-separated value, dropping empty items.
func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parsePairs parses "server=local,server2=local2".
func parsePairs(v string) map[string]string {
	items := splitList(v)
	if len(items) == 0 {
		return nil
	}
	out := make(map[string]string, len(items))
	for _, item := range items {
		k, val, ok := strings.Cut(item, "=")
		if !ok || strings.TrimSpace(k) == "" {
			continue
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(val)
	}
	return out
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		if _, set := os.LookupEnv(key); !set {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes matching surrounding double or single quotes.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
