// Package ingest retrieves raw time-entry tables from their origin and
// relocates them once they have been consumed.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/Tiliavir/nt-hours/internal/config"
	"github.com/Tiliavir/nt-hours/internal/gdrive"
	"github.com/Tiliavir/nt-hours/internal/model"
)

// RawInput is one fetched raw table plus the handle needed to archive it.
// Err is set when the file was retrieved but could not be read as CSV; Table
// then carries only the name.
type RawInput struct {
	ID    string
	Table model.RawTable
	Err   error
}

// RawSource is where raw tables come from.
type RawSource interface {
	Name() string
	Fetch(ctx context.Context) ([]RawInput, error)
	// Archive relocates consumed inputs so the next Fetch no longer sees them.
	Archive(ctx context.Context, inputs []RawInput) error
}

// Drive is the subset of the Drive client used by DriveSource.
type Drive interface {
	ListFiles(ctx context.Context, folder, mime string) ([]gdrive.File, error)
	Download(ctx context.Context, id string) ([]byte, error)
	Move(ctx context.Context, ids []string, from, to string) error
}

// TogglAPI is the subset of the Toggl client used by TogglSource.
type TogglAPI interface {
	FetchEvents(ctx context.Context, from, to time.Time) (model.RawTable, error)
}

// Deps carries the clients and settings a source may need.
type Deps struct {
	Drive        Drive
	Toggl        TogglAPI
	AsOf         time.Time
	LookbackDays int
	// Resolve makes local paths absolute; nil leaves them unchanged.
	Resolve func(string) string
}

// Build constructs the source described by cfg.
func Build(cfg config.SourceConfig, d Deps) (RawSource, error) {
	resolve := d.Resolve
	if resolve == nil {
		resolve = func(p string) string { return p }
	}
	switch cfg.Fetch {
	case config.FetchDir:
		if cfg.Inbox == "" {
			return nil, fmt.Errorf("source %s: inbox directory not configured", cfg.Name)
		}
		return &DirSource{SourceName: cfg.Name, Inbox: resolve(cfg.Inbox), ArchiveDir: resolve(cfg.Archive)}, nil
	case config.FetchDrive:
		if d.Drive == nil {
			return nil, fmt.Errorf("source %s: drive client not available", cfg.Name)
		}
		if cfg.Inbox == "" || cfg.Archive == "" {
			return nil, fmt.Errorf("source %s: drive inbox and archive folder ids are required", cfg.Name)
		}
		return &DriveSource{SourceName: cfg.Name, Client: d.Drive, Inbox: cfg.Inbox, ArchiveFolder: cfg.Archive}, nil
	case config.FetchTogglAPI:
		if d.Toggl == nil {
			return nil, fmt.Errorf("source %s: toggl client not available", cfg.Name)
		}
		return &TogglSource{SourceName: cfg.Name, Client: d.Toggl, AsOf: d.AsOf, LookbackDays: d.LookbackDays}, nil
	default:
		return nil, fmt.Errorf("source %s: unknown fetch kind %q", cfg.Name, cfg.Fetch)
	}
}
