// Package publish writes the reconciled event set to its downstream sinks:
// the relational event table and a trailing window on a spreadsheet range.
package publish

import (
	"context"
	"strconv"

	"github.com/Tiliavir/nt-hours/internal/config"
	"github.com/Tiliavir/nt-hours/internal/model"
	"github.com/Tiliavir/nt-hours/internal/storage"
)

// Sink is the relational event table writer.
type Sink interface {
	WriteEvents(ctx context.Context, name string, events []model.Event, mode storage.Mode) error
}

// Sheet is the spreadsheet range API.
type Sheet interface {
	ClearRange(ctx context.Context, book, rng string) error
	WriteRange(ctx context.Context, book, rng string, values [][]any, option string) error
	ReadRange(ctx context.Context, book, rng string) ([][]string, error)
}

// SheetColumns is the column order written to a spreadsheet range. The
// timestamp key is not published; date and time carry it.
var SheetColumns = []string{
	"date", "time", "activity", "duration_hrs",
	"year", "month", "week", "DOW", "comment",
}

// WriteRelational mirrors events into table, always replacing its content.
func WriteRelational(ctx context.Context, sink Sink, table string, events []model.Event) error {
	return sink.WriteEvents(ctx, table, events, storage.ModeReplace)
}

// RecentWindow keeps the events whose year is within the trailing window of
// years ending at the latest year present.
func RecentWindow(events []model.Event, years int) []model.Event {
	if years <= 0 || len(events) == 0 {
		return nil
	}
	from := model.MaxYear(events) - years + 1
	out := make([]model.Event, 0, len(events))
	for _, e := range events {
		if e.Year >= from {
			out = append(out, e)
		}
	}
	return out
}

// SheetValues renders events as spreadsheet rows. With RAW input every cell
// is a string; with USER_ENTERED numeric fields stay numbers so the sheet
// can type them.
func SheetValues(events []model.Event, rc config.RangeConfig) [][]any {
	raw := rc.InputOption == config.InputRaw
	num := func(v float64) any {
		if raw {
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
		return v
	}
	integer := func(v int) any {
		if raw {
			return strconv.Itoa(v)
		}
		return v
	}

	values := make([][]any, 0, len(events))
	for _, e := range events {
		values = append(values, []any{
			e.Date.Format(rc.DateFormat),
			e.Clock().Format(rc.TimeFormat),
			e.Activity,
			num(e.DurationHrs),
			integer(e.Year),
			integer(e.Month),
			integer(e.Week),
			integer(e.DOW),
			e.Comment,
		})
	}
	return values
}

// Publish clears the data range and rewrites it with the recent window of
// events. It returns the number of rows written.
func Publish(ctx context.Context, sheet Sheet, rc config.RangeConfig, events []model.Event, windowYears int) (int, error) {
	values := SheetValues(RecentWindow(events, windowYears), rc)
	if err := sheet.ClearRange(ctx, rc.BookID, rc.Data); err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, nil
	}
	if err := sheet.WriteRange(ctx, rc.BookID, rc.Data, values, rc.InputOption); err != nil {
		return 0, err
	}
	return len(values), nil
}
