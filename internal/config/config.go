package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/Tiliavir/nt-hours/internal/storage"
)

// Config is the root configuration for nthours, stored in ~/.nthours/config.json.
// The file supports single-line // comments for documentation purposes.
type Config struct {
	LogLevel     string         `json:"log_level"`
	LockTTL      string         `json:"lock_ttl"`
	Schedule     string         `json:"schedule"`
	SheetsConfig string         `json:"sheets_config"`
	Database     DatabaseConfig `json:"database"`
	Google       GoogleConfig   `json:"google"`
	Toggl        TogglConfig    `json:"toggl"`
	Sources      []SourceConfig `json:"sources"`

	// dir is the directory holding the config file; relative paths resolve
	// against it.
	dir string
}

// DatabaseConfig selects the relational event sink.
type DatabaseConfig struct {
	// Driver is "sqlite3" (local file) or "pgx" (remote PostgreSQL).
	Driver string `json:"driver"`
	// DSN is the sqlite file path or the PostgreSQL connection string.
	DSN string `json:"dsn"`
}

// GoogleConfig holds credentials for the Sheets and Drive APIs.
type GoogleConfig struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	// ServiceAccountFile, when set, is used instead of the device code flow.
	ServiceAccountFile string `json:"service_account_file"`
}

// TogglConfig holds Toggl Track reports API settings.
type TogglConfig struct {
	APIToken     string `json:"api_token"`
	WorkspaceID  int64  `json:"workspace_id"`
	LookbackDays int    `json:"lookback_days"`
	BaseURL      string `json:"base_url"`
}

// SourceConfig describes one ingestion source and where its events go.
type SourceConfig struct {
	Name string `json:"name"`
	// Kind selects the normalizer: "nowthen" or "toggl".
	Kind string `json:"kind"`
	// Fetch selects the raw source: "drive", "dir" or "toggl_api".
	Fetch   string `json:"fetch"`
	Inbox   string `json:"inbox"`
	Archive string `json:"archive"`
	Table   string `json:"table"`
	Range   string `json:"range"`
	// WindowYears is how many trailing years are published to the sheet.
	WindowYears int `json:"window_years"`
}

// Fetch kinds.
const (
	FetchDrive    = "drive"
	FetchDir      = "dir"
	FetchTogglAPI = "toggl_api"
)

const (
	DefaultLockTTL      = "1h"
	DefaultSchedule     = "0 * * * *"
	DefaultSheetsConfig = "sheets.yaml"
	DefaultTogglBaseURL = "https://api.track.toggl.com"
	DefaultLookbackDays = 7
)

// defaultConfig returns a Config pre-filled with sensible defaults.
func defaultConfig(dir string) Config {
	return Config{
		LogLevel:     "info",
		LockTTL:      DefaultLockTTL,
		Schedule:     DefaultSchedule,
		SheetsConfig: DefaultSheetsConfig,
		Database: DatabaseConfig{
			Driver: storage.DriverSQLite,
			DSN:    "hours.db",
		},
		Toggl: TogglConfig{
			LookbackDays: DefaultLookbackDays,
			BaseURL:      DefaultTogglBaseURL,
		},
		Sources: defaultSources(),
		dir:     dir,
	}
}

func defaultSources() []SourceConfig {
	return []SourceConfig{
		{Name: "nowthen", Kind: "nowthen", Fetch: FetchDrive, Table: "event", Range: "events", WindowYears: 2},
		{Name: "toggl", Kind: "toggl", Fetch: FetchTogglAPI, Table: "toggl_event", Range: "toggl_events", WindowYears: 1},
	}
}

// configTemplate is the annotated config written on first run.
// Lines whose trimmed content starts with // are stripped before JSON parsing,
// allowing human-readable documentation inside the file.
const configTemplate = `// nthours configuration – ~/.nthours/config.json
//
// Secrets may instead be provided through the environment or a .env file:
//   NTHOURS_TOGGL_API_TOKEN, NTHOURS_TOGGL_WORKSPACE_ID,
//   NTHOURS_DATABASE_DRIVER, NTHOURS_DATABASE_DSN,
//   NTHOURS_GOOGLE_CLIENT_ID, NTHOURS_GOOGLE_CLIENT_SECRET
{
  // DEBUG, INFO or ERROR.
  "log_level": "info",

  // A run lock older than this is considered stale and taken over.
  "lock_ttl": "1h",

  // Cron schedule used by "nthours schedule" when --cron is not given.
  "schedule": "0 * * * *",

  // YAML file mapping range codes to spreadsheet ranges (relative to this file).
  "sheets_config": "sheets.yaml",

  // ── Relational event store ───────────────────────────────────────────────
  // "sqlite3" with a file path, or "pgx" with a PostgreSQL connection string.
  "database": {
    "driver": "sqlite3",
    "dsn": "hours.db"
  },

  // ── Google Sheets / Drive ────────────────────────────────────────────────
  // Either an OAuth client for the device code flow, or a service account key.
  "google": {
    "client_id": "",
    "client_secret": "",
    "service_account_file": ""
  },

  // ── Toggl Track ──────────────────────────────────────────────────────────
  "toggl": {
    "api_token": "",
    "workspace_id": 0,
    "lookback_days": 7,
    "base_url": "https://api.track.toggl.com"
  },

  // ── Sources ──────────────────────────────────────────────────────────────
  // kind:  nowthen | toggl        (selects the normalizer)
  // fetch: drive | dir | toggl_api
  // inbox/archive: Drive folder IDs or local directories
  "sources": [
    {"name": "nowthen", "kind": "nowthen", "fetch": "drive", "inbox": "", "archive": "",
     "table": "event", "range": "events", "window_years": 2},
    {"name": "toggl", "kind": "toggl", "fetch": "toggl_api",
     "table": "toggl_event", "range": "toggl_events", "window_years": 1}
  ]
}
`

// FilePath returns the path to ~/.nthours/config.json.
func FilePath() (string, error) {
	base, err := storage.BaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "config.json"), nil
}

// stripLineComments removes lines whose leading non-whitespace content starts
// with //. Only full-line comments are handled; inline comments are not stripped.
func stripLineComments(data []byte) []byte {
	var out []byte
	for _, line := range bytes.Split(data, []byte("\n")) {
		if bytes.HasPrefix(bytes.TrimLeft(line, " \t"), []byte("//")) {
			continue
		}
		out = append(out, line...)
		out = append(out, '\n')
	}
	return out
}

// Load reads the config file at path (the default location when empty),
// creating it with annotated defaults on first run. Environment variables
// override file values.
func Load(path string) (Config, error) {
	if path == "" {
		p, err := FilePath()
		if err != nil {
			return defaultConfig("."), err
		}
		path = p
	}
	dir := filepath.Dir(path)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		// First run: write the annotated template so users can discover options.
		if writeErr := writeDefault(path); writeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not create config file %s: %v\n", path, writeErr)
		}
		cfg := defaultConfig(dir)
		return cfg, applyEnv(&cfg)
	}
	if err != nil {
		return defaultConfig(dir), fmt.Errorf("reading config file %s: %w", path, err)
	}

	cleaned := stripLineComments(data)
	var cfg Config
	if err := json.Unmarshal(cleaned, &cfg); err != nil {
		return defaultConfig(dir), fmt.Errorf("parsing config file %s: %w\nTip: delete the file to regenerate defaults", path, err)
	}
	cfg.dir = dir
	cfg.normalize()
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// normalize fills zero-value fields with built-in defaults so callers always
// get a usable Config even if the user only partially fills in the file.
func (c *Config) normalize() {
	d := defaultConfig(c.dir)
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.LockTTL == "" {
		c.LockTTL = d.LockTTL
	}
	if c.Schedule == "" {
		c.Schedule = d.Schedule
	}
	if c.SheetsConfig == "" {
		c.SheetsConfig = d.SheetsConfig
	}
	if c.Database.Driver == "" {
		c.Database.Driver = d.Database.Driver
	}
	if c.Database.DSN == "" && c.Database.Driver == storage.DriverSQLite {
		c.Database.DSN = d.Database.DSN
	}
	if c.Toggl.LookbackDays <= 0 {
		c.Toggl.LookbackDays = d.Toggl.LookbackDays
	}
	if c.Toggl.BaseURL == "" {
		c.Toggl.BaseURL = d.Toggl.BaseURL
	}
	if c.Sources == nil {
		c.Sources = d.Sources
	}
	for i := range c.Sources {
		s := &c.Sources[i]
		if s.Kind == "" {
			s.Kind = s.Name
		}
		if s.Table == "" {
			s.Table = "event"
		}
		if s.Range == "" {
			s.Range = "events"
		}
		if s.WindowYears <= 0 {
			s.WindowYears = 2
		}
	}
}

// applyEnv overrides file values with NTHOURS_* environment variables.
func applyEnv(c *Config) error {
	if v := os.Getenv("NTHOURS_TOGGL_API_TOKEN"); v != "" {
		c.Toggl.APIToken = v
	}
	if v := os.Getenv("NTHOURS_TOGGL_WORKSPACE_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("NTHOURS_TOGGL_WORKSPACE_ID: %w", err)
		}
		c.Toggl.WorkspaceID = id
	}
	if v := os.Getenv("NTHOURS_DATABASE_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("NTHOURS_DATABASE_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("NTHOURS_GOOGLE_CLIENT_ID"); v != "" {
		c.Google.ClientID = v
	}
	if v := os.Getenv("NTHOURS_GOOGLE_CLIENT_SECRET"); v != "" {
		c.Google.ClientSecret = v
	}
	return nil
}

// Dir returns the directory the config was loaded from.
func (c Config) Dir() string {
	return c.dir
}

// Resolve makes a config-relative path absolute.
func (c Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.dir, p)
}

// DB returns the database settings with a sqlite path resolved against the
// config directory.
func (c Config) DB() storage.DBConfig {
	dsn := c.Database.DSN
	if c.Database.Driver == storage.DriverSQLite {
		dsn = c.Resolve(dsn)
	}
	return storage.DBConfig{Driver: c.Database.Driver, DSN: dsn}
}

// LockTimeout parses LockTTL, falling back to the default.
func (c Config) LockTimeout() time.Duration {
	d, err := time.ParseDuration(c.LockTTL)
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(DefaultLockTTL)
	}
	return d
}

// Source looks up a configured source by name.
func (c Config) Source(name string) (SourceConfig, error) {
	for _, s := range c.Sources {
		if s.Name == name {
			return s, nil
		}
	}
	return SourceConfig{}, fmt.Errorf("unknown source %q", name)
}

// writeDefault creates the config directory and writes the annotated default
// config template.
func writeDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0o600); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}
