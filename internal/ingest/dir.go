package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Tiliavir/nt-hours/internal/model"
)

// DirSource reads CSV files from a local inbox directory. Consumed files are
// moved to ArchiveDir, or to the inbox's parent directory when unset.
type DirSource struct {
	SourceName string
	Inbox      string
	ArchiveDir string
}

func (s *DirSource) Name() string { return s.SourceName }

func (s *DirSource) archiveDir() string {
	if s.ArchiveDir != "" {
		return s.ArchiveDir
	}
	return filepath.Dir(filepath.Clean(s.Inbox))
}

// Fetch reads every *.csv file in the inbox, in name order. A missing inbox
// yields no inputs. A file that is not valid CSV is returned with Err set.
func (s *DirSource) Fetch(_ context.Context) ([]RawInput, error) {
	entries, err := os.ReadDir(s.Inbox)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, &model.ExternalIOError{Op: "listing " + s.Inbox, Err: err}
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	inputs := make([]RawInput, 0, len(names))
	for _, name := range names {
		path := filepath.Join(s.Inbox, name)
		f, err := os.Open(path)
		if err != nil {
			return nil, &model.ExternalIOError{Op: "reading " + path, Err: err}
		}
		tbl, err := model.ReadCSV(name, f)
		f.Close()
		if err != nil {
			inputs = append(inputs, RawInput{ID: path, Table: model.RawTable{Name: name}, Err: err})
			continue
		}
		inputs = append(inputs, RawInput{ID: path, Table: tbl})
	}
	return inputs, nil
}

// Archive moves the given files out of the inbox. An existing file of the
// same name in the archive is overwritten.
func (s *DirSource) Archive(_ context.Context, inputs []RawInput) error {
	dir := s.archiveDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &model.ExternalIOError{Op: "creating archive directory", Err: err}
	}
	for _, in := range inputs {
		dst := filepath.Join(dir, filepath.Base(in.ID))
		if err := os.Rename(in.ID, dst); err != nil {
			return &model.ExternalIOError{Op: fmt.Sprintf("archiving %s", in.ID), Err: err}
		}
	}
	return nil
}
