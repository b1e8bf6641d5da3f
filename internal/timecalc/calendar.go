package timecalc

import "github.com/Tiliavir/nt-hours/internal/model"

// Annotate derives date, time of day, year, month, ISO week and day of week
// (Monday=0) from each event's Timestamp and returns the annotated copy.
// Annotating an already annotated slice yields identical values.
func Annotate(events []model.Event) ([]model.Event, error) {
	out := make([]model.Event, len(events))
	for i, e := range events {
		if e.Timestamp.IsZero() {
			return nil, &model.SchemaError{Column: "timestamp"}
		}
		ts := e.Timestamp
		e.Date = StartOfDay(ts)
		e.TimeOfDay = ts.Sub(e.Date)
		e.Year = ts.Year()
		e.Month = int(ts.Month())
		_, e.Week = ts.ISOWeek()
		e.DOW = (int(ts.Weekday()) + 6) % 7
		out[i] = e
	}
	return out, nil
}
