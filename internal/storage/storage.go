package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Tiliavir/nt-hours/internal/model"
)

// BaseDir returns the root data directory (~/.nthours).
func BaseDir() (string, error) {
	if dir := os.Getenv("NTHOURS_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".nthours"), nil
}

// dayFilePath returns the path of the run journal for the given date.
func dayFilePath(base string, t time.Time) string {
	return filepath.Join(base, "runs", t.Format("2006"), t.Format("01"), t.Format("02")+".json")
}

// LoadDay loads the run journal for the given date. Returns an empty DayFile if not found.
func LoadDay(base string, t time.Time) (model.DayFile, error) {
	path := dayFilePath(base, t)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return model.DayFile{Date: t.Format("2006-01-02"), Runs: []model.RunReport{}}, nil
	}
	if err != nil {
		return model.DayFile{}, fmt.Errorf("run journal: reading %s: %w", path, err)
	}

	var df model.DayFile
	if err := json.Unmarshal(data, &df); err != nil {
		// Move the unreadable journal aside so the next write starts fresh.
		backupPath := path + ".corrupt"
		_ = os.Rename(path, backupPath)
		return model.DayFile{}, fmt.Errorf("corrupt JSON in %s (backed up to %s): %w", path, backupPath, err)
	}
	return df, nil
}

// SaveDay atomically writes the run journal for the given date.
func SaveDay(base string, t time.Time, df model.DayFile) error {
	path := dayFilePath(base, t)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("run journal: creating directories: %w", err)
	}

	data, err := json.MarshalIndent(df, "", "  ")
	if err != nil {
		return fmt.Errorf("run journal: encoding: %w", err)
	}

	// Atomic write: write to temp file then rename.
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("run journal: writing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("run journal: replacing file: %w", err)
	}
	return nil
}

// AppendRun records a finished run in the journal of the day it started,
// replacing an earlier record with the same run ID.
func AppendRun(base string, r model.RunReport) error {
	day := r.Started
	df, err := LoadDay(base, day)
	if err != nil {
		return err
	}
	for i, e := range df.Runs {
		if e.RunID == r.RunID {
			df.Runs[i] = r
			return SaveDay(base, day, df)
		}
	}
	df.Runs = append(df.Runs, r)
	return SaveDay(base, day, df)
}

// LastRun searches the journal (most recent first) for the latest run of
// source. It looks back a week and returns nil when nothing is found.
func LastRun(base, source string, now time.Time) (*model.RunReport, error) {
	for i := 0; i < 7; i++ {
		day := now.AddDate(0, 0, -i)
		df, err := LoadDay(base, day)
		if err != nil {
			return nil, err
		}
		for j := len(df.Runs) - 1; j >= 0; j-- {
			if df.Runs[j].Source == source {
				return &df.Runs[j], nil
			}
		}
	}
	return nil, nil
}

// LoadRange loads all run reports in [from, to] inclusive.
func LoadRange(base string, from, to time.Time) ([]model.RunReport, error) {
	var runs []model.RunReport
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		df, err := LoadDay(base, d)
		if err != nil {
			return nil, err
		}
		runs = append(runs, df.Runs...)
	}
	return runs, nil
}
