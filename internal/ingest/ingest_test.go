package ingest_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Tiliavir/nt-hours/internal/config"
	"github.com/Tiliavir/nt-hours/internal/gdrive"
	"github.com/Tiliavir/nt-hours/internal/ingest"
	"github.com/Tiliavir/nt-hours/internal/model"
)

const exportCSV = "Parent Task,Task Name,Start Date,Start Time,Duration (hours),Comment\nwork,mail,02/01/24,09:00:00,1.5,\n"

// brokenCSV has a bare quote in an unquoted field.
const brokenCSV = "Parent Task,Task Name,Start Date,Start Time,Duration (hours),Comment\nwork,mail,02/01/24,09:00:00,1.5,say \"hi\" there\n"

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDirSource_FetchAndArchive(t *testing.T) {
	root := t.TempDir()
	inbox := filepath.Join(root, "inbox")
	if err := os.MkdirAll(inbox, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(inbox, "b.csv"), exportCSV)
	writeFile(t, filepath.Join(inbox, "a.CSV"), exportCSV)
	writeFile(t, filepath.Join(inbox, "notes.txt"), "ignored")

	src := &ingest.DirSource{SourceName: "nowthen", Inbox: inbox}
	ctx := context.Background()
	inputs, err := src.Fetch(ctx)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(inputs) != 2 || inputs[0].Table.Name != "a.CSV" || inputs[1].Table.Name != "b.csv" {
		t.Fatalf("inputs = %+v", inputs)
	}
	if len(inputs[0].Table.Rows) != 1 {
		t.Errorf("rows = %v", inputs[0].Table.Rows)
	}

	// Only the first input is archived; the other stays for retry.
	if err := src.Archive(ctx, inputs[:1]); err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "a.CSV")); err != nil {
		t.Errorf("archived file not in parent dir: %v", err)
	}
	again, err := src.Fetch(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(again) != 1 || again[0].Table.Name != "b.csv" {
		t.Errorf("after archive = %+v", again)
	}
}

func TestDirSource_MissingInbox(t *testing.T) {
	src := &ingest.DirSource{Inbox: filepath.Join(t.TempDir(), "nope")}
	inputs, err := src.Fetch(context.Background())
	if err != nil || len(inputs) != 0 {
		t.Fatalf("inputs=%v err=%v", inputs, err)
	}
}

func TestDirSource_UnreadableFileIsPerInput(t *testing.T) {
	inbox := t.TempDir()
	writeFile(t, filepath.Join(inbox, "a_good.csv"), exportCSV)
	writeFile(t, filepath.Join(inbox, "b_bad.csv"), brokenCSV)

	src := &ingest.DirSource{Inbox: inbox}
	inputs, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(inputs) != 2 {
		t.Fatalf("inputs = %+v", inputs)
	}
	if inputs[0].Err != nil || len(inputs[0].Table.Rows) != 1 {
		t.Errorf("good input = %+v", inputs[0])
	}
	bad := inputs[1]
	if bad.Err == nil || bad.Table.Name != "b_bad.csv" || bad.ID != filepath.Join(inbox, "b_bad.csv") {
		t.Errorf("bad input = %+v", bad)
	}
	var ioErr *model.ExternalIOError
	if errors.As(bad.Err, &ioErr) {
		t.Errorf("read failure reported as transport error: %v", bad.Err)
	}
}

type fakeDrive struct {
	files []gdrive.File
	data  map[string]string
	moved []string
	from  string
	to    string
	err   error
}

func (f *fakeDrive) ListFiles(_ context.Context, folder, mime string) ([]gdrive.File, error) {
	if mime != gdrive.MimeCSV {
		return nil, errors.New("unexpected mime " + mime)
	}
	return f.files, f.err
}

func (f *fakeDrive) Download(_ context.Context, id string) ([]byte, error) {
	return []byte(f.data[id]), nil
}

func (f *fakeDrive) Move(_ context.Context, ids []string, from, to string) error {
	f.moved = append(f.moved, ids...)
	f.from, f.to = from, to
	return nil
}

func TestDriveSource(t *testing.T) {
	d := &fakeDrive{
		files: []gdrive.File{{ID: "1", Name: "x.csv"}, {ID: "2", Name: "y.csv"}},
		data:  map[string]string{"1": exportCSV, "2": exportCSV},
	}
	src, err := ingest.Build(config.SourceConfig{Name: "nowthen", Fetch: config.FetchDrive, Inbox: "in", Archive: "arch"}, ingest.Deps{Drive: d})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	ctx := context.Background()
	inputs, err := src.Fetch(ctx)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(inputs) != 2 || inputs[1].ID != "2" || inputs[1].Table.Name != "y.csv" {
		t.Fatalf("inputs = %+v", inputs)
	}
	if err := src.Archive(ctx, inputs[1:]); err != nil {
		t.Fatal(err)
	}
	if len(d.moved) != 1 || d.moved[0] != "2" || d.from != "in" || d.to != "arch" {
		t.Errorf("moved %v from %s to %s", d.moved, d.from, d.to)
	}
}

func TestDriveSource_UnreadableFileIsPerInput(t *testing.T) {
	d := &fakeDrive{
		files: []gdrive.File{{ID: "1", Name: "x.csv"}, {ID: "2", Name: "y.csv"}},
		data:  map[string]string{"1": brokenCSV, "2": exportCSV},
	}
	src := &ingest.DriveSource{Client: d, Inbox: "in", ArchiveFolder: "out"}
	inputs, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(inputs) != 2 {
		t.Fatalf("inputs = %+v", inputs)
	}
	if inputs[0].Err == nil || inputs[0].ID != "1" || inputs[0].Table.Name != "x.csv" {
		t.Errorf("bad input = %+v", inputs[0])
	}
	if inputs[1].Err != nil || len(inputs[1].Table.Rows) != 1 {
		t.Errorf("good input = %+v", inputs[1])
	}
}

func TestDriveSource_ListError(t *testing.T) {
	d := &fakeDrive{err: &model.ExternalIOError{Op: "drive list", Err: errors.New("boom")}}
	src := &ingest.DriveSource{Client: d, Inbox: "in", ArchiveFolder: "out"}
	if _, err := src.Fetch(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

type fakeToggl struct {
	from, to time.Time
	table    model.RawTable
}

func (f *fakeToggl) FetchEvents(_ context.Context, from, to time.Time) (model.RawTable, error) {
	f.from, f.to = from, to
	return f.table, nil
}

func TestTogglSource(t *testing.T) {
	api := &fakeToggl{table: model.RawTable{Name: "toggl.csv", Header: []string{"Client"}, Rows: [][]string{{"acme"}}}}
	asOf := time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)
	src, err := ingest.Build(config.SourceConfig{Name: "toggl", Fetch: config.FetchTogglAPI}, ingest.Deps{Toggl: api, AsOf: asOf, LookbackDays: 7})
	if err != nil {
		t.Fatal(err)
	}
	inputs, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(inputs) != 1 {
		t.Fatalf("inputs = %+v", inputs)
	}
	if !api.from.Equal(time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)) || !api.to.Equal(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("window = %v..%v", api.from, api.to)
	}
	if err := src.Archive(context.Background(), inputs); err != nil {
		t.Errorf("Archive: %v", err)
	}

	api.table.Rows = nil
	inputs, err = src.Fetch(context.Background())
	if err != nil || len(inputs) != 0 {
		t.Errorf("empty report: inputs=%v err=%v", inputs, err)
	}
}

func TestBuild_Errors(t *testing.T) {
	cases := []config.SourceConfig{
		{Name: "a", Fetch: config.FetchDir},
		{Name: "b", Fetch: config.FetchDrive, Inbox: "x", Archive: "y"},
		{Name: "c", Fetch: config.FetchTogglAPI},
		{Name: "d", Fetch: "ftp"},
	}
	for _, c := range cases {
		if _, err := ingest.Build(c, ingest.Deps{}); err == nil {
			t.Errorf("Build(%s): expected error", c.Name)
		}
	}
}
