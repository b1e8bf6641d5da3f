package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Tiliavir/nt-hours/internal/config"
	"github.com/Tiliavir/nt-hours/internal/storage"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"NTHOURS_TOGGL_API_TOKEN", "NTHOURS_TOGGL_WORKSPACE_ID",
		"NTHOURS_DATABASE_DRIVER", "NTHOURS_DATABASE_DSN",
		"NTHOURS_GOOGLE_CLIENT_ID", "NTHOURS_GOOGLE_CLIENT_SECRET",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_FirstRunWritesTemplate(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.json")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected template to be written: %v", err)
	}
	if len(cfg.Sources) != 2 {
		t.Fatalf("expected 2 default sources, got %d", len(cfg.Sources))
	}

	// The written template must parse back to the same defaults.
	again, err := config.Load(path)
	if err != nil {
		t.Fatalf("reload template: %v", err)
	}
	src, err := again.Source("toggl")
	if err != nil {
		t.Fatal(err)
	}
	if src.Fetch != config.FetchTogglAPI || src.Table != "toggl_event" || src.WindowYears != 1 {
		t.Errorf("unexpected toggl source: %+v", src)
	}
	if again.Database.Driver != storage.DriverSQLite {
		t.Errorf("driver = %q", again.Database.Driver)
	}
	if got := again.DB().DSN; got != filepath.Join(filepath.Dir(path), "hours.db") {
		t.Errorf("DSN = %q, want resolved against config dir", got)
	}
}

func TestLoad_PartialFileGetsDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.json")
	content := `// comment line
{
  // indented comment
  "lock_ttl": "10m",
  "sources": [{"name": "nowthen", "fetch": "dir", "inbox": "in"}]
}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LockTimeout() != 10*time.Minute {
		t.Errorf("LockTimeout = %v", cfg.LockTimeout())
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	src := cfg.Sources[0]
	if src.Kind != "nowthen" || src.Table != "event" || src.Range != "events" || src.WindowYears != 2 {
		t.Errorf("source defaults not applied: %+v", src)
	}
	if got := cfg.Resolve(src.Inbox); got != filepath.Join(filepath.Dir(path), "in") {
		t.Errorf("Resolve = %q", got)
	}
	if _, err := cfg.Source("missing"); err == nil {
		t.Error("expected error for unknown source")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("NTHOURS_TOGGL_API_TOKEN", "secret")
	t.Setenv("NTHOURS_TOGGL_WORKSPACE_ID", "42")
	t.Setenv("NTHOURS_DATABASE_DRIVER", storage.DriverPostgres)
	t.Setenv("NTHOURS_DATABASE_DSN", "postgres://u@h/db")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Toggl.APIToken != "secret" || cfg.Toggl.WorkspaceID != 42 {
		t.Errorf("toggl env not applied: %+v", cfg.Toggl)
	}
	if db := cfg.DB(); db.Driver != storage.DriverPostgres || db.DSN != "postgres://u@h/db" {
		t.Errorf("database env not applied: %+v", db)
	}
}

func TestLoad_BadWorkspaceID(t *testing.T) {
	clearEnv(t)
	t.Setenv("NTHOURS_TOGGL_WORKSPACE_ID", "abc")
	if _, err := config.Load(filepath.Join(t.TempDir(), "config.json")); err == nil {
		t.Fatal("expected error for non-numeric workspace id")
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := config.Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}
