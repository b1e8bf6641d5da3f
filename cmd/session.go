package cmd

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/Tiliavir/nt-hours/internal/config"
	"github.com/Tiliavir/nt-hours/internal/gauth"
	"github.com/Tiliavir/nt-hours/internal/gdrive"
	"github.com/Tiliavir/nt-hours/internal/ingest"
	"github.com/Tiliavir/nt-hours/internal/pipeline"
	"github.com/Tiliavir/nt-hours/internal/sheets"
	"github.com/Tiliavir/nt-hours/internal/storage"
	"github.com/Tiliavir/nt-hours/internal/toggl"
)

// app holds the clients shared by every source in one command invocation.
type app struct {
	store  *storage.Store
	google *http.Client
	sheets *config.Sheets
	base   string
}

func googleOptions() gauth.Options {
	return gauth.Options{
		ClientID:           cfg.Google.ClientID,
		ClientSecret:       cfg.Google.ClientSecret,
		ServiceAccountFile: cfg.Resolve(cfg.Google.ServiceAccountFile),
	}
}

// openApp opens the event store. Google clients are created only when
// withGoogle is set.
func openApp(ctx context.Context, withGoogle bool) (*app, error) {
	base, err := storage.BaseDir()
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(cfg.DB())
	if err != nil {
		return nil, err
	}
	a := &app{store: store, base: base}
	if !withGoogle {
		return a, nil
	}

	a.sheets, err = config.LoadSheets(cfg.Resolve(cfg.SheetsConfig))
	if err != nil {
		a.close()
		return nil, err
	}
	a.google, err = gauth.HTTPClient(ctx, googleOptions())
	if err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) close() {
	_ = a.store.Close()
}

// selectSources returns the named source, or every configured source.
func selectSources(name string) ([]config.SourceConfig, error) {
	if name == "" {
		return cfg.Sources, nil
	}
	src, err := cfg.Source(name)
	if err != nil {
		return nil, err
	}
	return []config.SourceConfig{src}, nil
}

// session wires a pipeline session for src.
func (a *app) session(src config.SourceConfig, asOf time.Time, dryRun bool) (*pipeline.Session, error) {
	deps := ingest.Deps{
		AsOf:         asOf,
		LookbackDays: cfg.Toggl.LookbackDays,
		Resolve:      cfg.Resolve,
	}
	switch src.Fetch {
	case config.FetchDrive:
		deps.Drive = gdrive.New(a.google, "")
	case config.FetchTogglAPI:
		if cfg.Toggl.APIToken == "" {
			return nil, fmt.Errorf("source %s: toggl api token not configured (NTHOURS_TOGGL_API_TOKEN)", src.Name)
		}
		deps.Toggl = toggl.New(cfg.Toggl.BaseURL, cfg.Toggl.APIToken, cfg.Toggl.WorkspaceID)
	}
	raw, err := ingest.Build(src, deps)
	if err != nil {
		return nil, err
	}
	s, err := a.publisher(src, raw)
	if err != nil {
		return nil, err
	}
	s.DryRun = dryRun
	if !dryRun {
		s.JournalDir = a.base
	}
	return s, nil
}

// publisher wires a session that can only publish; raw may be nil.
func (a *app) publisher(src config.SourceConfig, raw ingest.RawSource) (*pipeline.Session, error) {
	rc, err := a.sheets.Range(src.Range)
	if err != nil {
		return nil, err
	}
	return pipeline.NewSession(src, raw, a.store, sheets.New(a.google, ""), rc)
}

func (a *app) lock() (*pipeline.Lock, error) {
	return pipeline.Acquire(filepath.Join(a.base, "run.lock"), cfg.LockTimeout(), time.Now())
}
