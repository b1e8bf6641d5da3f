package publish_test

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/Tiliavir/nt-hours/internal/config"
	"github.com/Tiliavir/nt-hours/internal/model"
	"github.com/Tiliavir/nt-hours/internal/publish"
	"github.com/Tiliavir/nt-hours/internal/storage"
	"github.com/Tiliavir/nt-hours/internal/timecalc"
)

type fakeSheet struct {
	ops    []string
	values [][]any
	option string
	ranges map[string][][]string
	fail   error
}

func (f *fakeSheet) ClearRange(_ context.Context, book, rng string) error {
	f.ops = append(f.ops, "clear "+book+" "+rng)
	return f.fail
}

func (f *fakeSheet) WriteRange(_ context.Context, book, rng string, values [][]any, option string) error {
	f.ops = append(f.ops, "write "+book+" "+rng)
	f.values, f.option = values, option
	return nil
}

func (f *fakeSheet) ReadRange(_ context.Context, book, rng string) ([][]string, error) {
	return f.ranges[rng], nil
}

func events(t *testing.T, years ...int) []model.Event {
	t.Helper()
	var out []model.Event
	for _, y := range years {
		out = append(out, model.Event{
			Timestamp:   time.Date(y, 6, 3, 9, 30, 0, 0, time.UTC),
			Activity:    "work#mail",
			DurationHrs: 1.25,
		})
	}
	out, err := timecalc.Annotate(out)
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func rangeConfig(option string) config.RangeConfig {
	return config.RangeConfig{
		BookID:      "book",
		Data:        "events!A2:I",
		Header:      "events!A1:I1",
		DateFormat:  "02.01.2006",
		TimeFormat:  "15:04",
		InputOption: option,
	}
}

func TestRecentWindow(t *testing.T) {
	got := publish.RecentWindow(events(t, 2020, 2021, 2022, 2023, 2024), 2)
	var years []int
	for _, e := range got {
		years = append(years, e.Year)
	}
	if !reflect.DeepEqual(years, []int{2023, 2024}) {
		t.Errorf("years = %v, want [2023 2024]", years)
	}
	if len(publish.RecentWindow(nil, 2)) != 0 {
		t.Error("empty input must yield empty window")
	}
}

func TestSheetValues(t *testing.T) {
	ev := events(t, 2024)

	raw := publish.SheetValues(ev, rangeConfig(config.InputRaw))
	want := []any{"03.06.2024", "09:30", "work#mail", "1.25", "2024", "6", "23", "0", ""}
	if !reflect.DeepEqual(raw[0], want) {
		t.Errorf("RAW row = %#v\nwant %#v", raw[0], want)
	}

	typed := publish.SheetValues(ev, rangeConfig(config.InputUserEntered))
	if typed[0][3] != 1.25 || typed[0][4] != 2024 {
		t.Errorf("USER_ENTERED row = %#v", typed[0])
	}
	if len(typed[0]) != len(publish.SheetColumns) {
		t.Errorf("row width %d, want %d", len(typed[0]), len(publish.SheetColumns))
	}
}

func TestPublish(t *testing.T) {
	sheet := &fakeSheet{}
	n, err := publish.Publish(context.Background(), sheet, rangeConfig(config.InputRaw), events(t, 2022, 2023, 2024), 1)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if n != 1 || len(sheet.values) != 1 || sheet.option != config.InputRaw {
		t.Errorf("n=%d values=%v option=%s", n, sheet.values, sheet.option)
	}
	wantOps := []string{"clear book events!A2:I", "write book events!A2:I"}
	if !reflect.DeepEqual(sheet.ops, wantOps) {
		t.Errorf("ops = %v", sheet.ops)
	}
}

func TestPublish_ClearFails(t *testing.T) {
	sheet := &fakeSheet{fail: &model.ExternalIOError{Op: "clear", Err: errors.New("quota")}}
	if _, err := publish.Publish(context.Background(), sheet, rangeConfig(config.InputRaw), events(t, 2024), 1); err == nil {
		t.Fatal("expected error")
	}
	if len(sheet.ops) != 1 {
		t.Errorf("write must not follow a failed clear: %v", sheet.ops)
	}
}

func TestWriteRelational_Replaces(t *testing.T) {
	ctx := context.Background()
	store, err := storage.Open(storage.DBConfig{Driver: storage.DriverSQLite, DSN: filepath.Join(t.TempDir(), "hours.db")})
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if err := publish.WriteRelational(ctx, store, "event", events(t, 2023, 2024)); err != nil {
		t.Fatal(err)
	}
	if err := publish.WriteRelational(ctx, store, "event", events(t, 2024)); err != nil {
		t.Fatal(err)
	}
	got, err := store.ReadEvents(ctx, "event")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Year != 2024 {
		t.Errorf("table not replaced: %+v", got)
	}
}

func TestRead_TypedCoercion(t *testing.T) {
	rc := rangeConfig(config.InputUserEntered)
	rc.DataTypes = map[string]string{"date": "date", "time": "time", "duration_hrs": "float", "year": "int"}
	sheet := &fakeSheet{ranges: map[string][][]string{
		"events!A1:I1": {{"date", "time", "activity", "duration_hrs", "year"}},
		"events!A2:I": {
			{"03.06.2024", "09:30", "work#mail", "1.25", "2024"},
			{"04.06.2024", "10:00", "work#mail", "", ""},
		},
	}}

	tbl, err := publish.Read(context.Background(), sheet, rc)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(tbl.Rows) != 2 {
		t.Fatalf("rows = %v", tbl.Rows)
	}
	first := tbl.Rows[0]
	if d, ok := first[0].(time.Time); !ok || !d.Equal(time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("date = %#v", first[0])
	}
	if first[2] != "work#mail" || first[3] != 1.25 || first[4] != 2024 {
		t.Errorf("row = %#v", first)
	}
	second := tbl.Rows[1]
	if second[3] != nil || second[4] != 0 {
		t.Errorf("empty numeric cells = %#v, %#v", second[3], second[4])
	}
}

func TestRead_Errors(t *testing.T) {
	base := map[string][][]string{
		"events!A1:I1": {{"date", "duration_hrs"}},
		"events!A2:I":  {{"03.06.2024", "abc"}},
	}
	cases := map[string]map[string]string{
		"unknown column": {"nope": "int"},
		"unknown type":   {"date": "decimal"},
		"bad number":     {"duration_hrs": "float"},
	}
	for name, types := range cases {
		t.Run(name, func(t *testing.T) {
			rc := rangeConfig(config.InputRaw)
			rc.DataTypes = types
			if _, err := publish.Read(context.Background(), &fakeSheet{ranges: base}, rc); err == nil {
				t.Fatal("expected error")
			}
		})
	}

	var pe *model.ParseError
	rc := rangeConfig(config.InputRaw)
	rc.DataTypes = map[string]string{"duration_hrs": "float"}
	_, err := publish.Read(context.Background(), &fakeSheet{ranges: base}, rc)
	if !errors.As(err, &pe) || pe.Field != "duration_hrs" {
		t.Errorf("got %v, want ParseError on duration_hrs", err)
	}
}
