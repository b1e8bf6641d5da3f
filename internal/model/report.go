package model

import "time"

// TableResult is the outcome of normalizing one raw table.
type TableResult struct {
	Name   string `json:"name"`
	Events int    `json:"events"`
	Error  string `json:"error,omitempty"`
}

// RunReport summarizes one pipeline run for one source.
type RunReport struct {
	RunID     string        `json:"run_id"`
	Source    string        `json:"source"`
	Started   time.Time     `json:"started"`
	Finished  time.Time     `json:"finished"`
	DryRun    bool          `json:"dry_run,omitempty"`
	States    []string      `json:"states"`
	Tables    []TableResult `json:"tables"`
	Incoming  int           `json:"incoming"`
	Persisted int           `json:"persisted"`
	Merged    int           `json:"merged"`
	Changed   bool          `json:"changed"`
	Published int           `json:"published"`
	Archived  int           `json:"archived"`
	Error     string        `json:"error,omitempty"`
}

// DayFile is the top-level structure stored in each daily run journal file.
type DayFile struct {
	Date string      `json:"date"`
	Runs []RunReport `json:"runs"`
}
