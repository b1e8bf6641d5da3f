package ingest

import (
	"bytes"
	"context"

	"github.com/Tiliavir/nt-hours/internal/gdrive"
	"github.com/Tiliavir/nt-hours/internal/model"
)

// DriveSource reads CSV exports from a Drive inbox folder and moves consumed
// files to an archive folder.
type DriveSource struct {
	SourceName    string
	Client        Drive
	Inbox         string
	ArchiveFolder string
}

func (s *DriveSource) Name() string { return s.SourceName }

func (s *DriveSource) Fetch(ctx context.Context) ([]RawInput, error) {
	files, err := s.Client.ListFiles(ctx, s.Inbox, gdrive.MimeCSV)
	if err != nil {
		return nil, err
	}
	inputs := make([]RawInput, 0, len(files))
	for _, f := range files {
		data, err := s.Client.Download(ctx, f.ID)
		if err != nil {
			return nil, err
		}
		tbl, err := model.ReadCSV(f.Name, bytes.NewReader(data))
		if err != nil {
			inputs = append(inputs, RawInput{ID: f.ID, Table: model.RawTable{Name: f.Name}, Err: err})
			continue
		}
		inputs = append(inputs, RawInput{ID: f.ID, Table: tbl})
	}
	return inputs, nil
}

func (s *DriveSource) Archive(ctx context.Context, inputs []RawInput) error {
	if len(inputs) == 0 {
		return nil
	}
	ids := make([]string, len(inputs))
	for i, in := range inputs {
		ids[i] = in.ID
	}
	return s.Client.Move(ctx, ids, s.Inbox, s.ArchiveFolder)
}
