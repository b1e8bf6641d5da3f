package ingest

import (
	"context"
	"time"
)

// TogglSource pulls the detailed report for the lookback window ending at
// AsOf. The API is the system of record, so Archive does nothing.
type TogglSource struct {
	SourceName   string
	Client       TogglAPI
	AsOf         time.Time
	LookbackDays int
}

func (s *TogglSource) Name() string { return s.SourceName }

// Window returns the inclusive date range requested from the API.
func (s *TogglSource) Window() (from, to time.Time) {
	to = s.AsOf
	if to.IsZero() {
		to = time.Now()
	}
	to = time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	days := s.LookbackDays
	if days <= 0 {
		days = 1
	}
	return to.AddDate(0, 0, -days), to
}

func (s *TogglSource) Fetch(ctx context.Context) ([]RawInput, error) {
	from, to := s.Window()
	tbl, err := s.Client.FetchEvents(ctx, from, to)
	if err != nil {
		return nil, err
	}
	if len(tbl.Rows) == 0 {
		return nil, nil
	}
	return []RawInput{{ID: tbl.Name, Table: tbl}}, nil
}

func (s *TogglSource) Archive(context.Context, []RawInput) error { return nil }
