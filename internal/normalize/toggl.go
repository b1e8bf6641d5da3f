package normalize

import (
	"fmt"
	"time"

	"github.com/Tiliavir/nt-hours/internal/model"
	"github.com/Tiliavir/nt-hours/internal/timecalc"
)

// Toggl column names of the detailed time entry export.
const (
	colClient      = "Client"
	colProject     = "Project"
	colTags        = "Tags"
	colDescription = "Description"
	colTStartDate  = "Start date"
	colTStartTime  = "Start time"
	colTEndDate    = "End date"
	colTDuration   = "Duration"
)

const (
	togglDateLayout = "2006-01-02"
	midnightClock   = "00:00:00"

	// HoursPerDay is the length of every calendar day.
	HoursPerDay = 24
	// DefaultDayTolerance is how many hours a day may be short of 24 and
	// still count as fully tracked.
	DefaultDayTolerance = 2
)

// Toggl normalizes Toggl Track detailed exports. Entries crossing midnight
// are split at 00:00 and days whose total falls at or below
// HoursPerDay-DayTolerance are dropped.
type Toggl struct {
	DayTolerance float64
}

// togglRow is a raw row after label composition, before parsing.
type togglRow struct {
	n         int
	activity  string
	comment   string
	startDate string
	startTime string
	endDate   string
	duration  string
}

// Normalize implements Normalizer.
func (tg Toggl) Normalize(t model.RawTable) ([]model.Event, error) {
	cols, err := t.Columns(colClient, colProject, colTags, colDescription,
		colTStartDate, colTStartTime, colTEndDate, colTDuration)
	if err != nil {
		return nil, err
	}

	rows := make([]togglRow, 0, len(t.Rows))
	for i, row := range t.Rows {
		tags := model.Cell(row, cols[colTags])
		desc := model.Cell(row, cols[colDescription])
		comment := desc
		if len(tags) > 0 {
			comment = tags + TagDelim + desc
		}
		rows = append(rows, togglRow{
			n:         i + 1,
			activity:  activity(model.Cell(row, cols[colClient]), model.Cell(row, cols[colProject])),
			comment:   comment,
			startDate: model.Cell(row, cols[colTStartDate]),
			startTime: model.Cell(row, cols[colTStartTime]),
			endDate:   model.Cell(row, cols[colTEndDate]),
			duration:  model.Cell(row, cols[colTDuration]),
		})
	}

	rows, err = splitOverlap(rows)
	if err != nil {
		return nil, err
	}

	events := make([]model.Event, 0, len(rows))
	for _, r := range rows {
		date, err := timecalc.ParseDate(togglDateLayout, r.startDate)
		if err != nil {
			return nil, &model.ParseError{Row: r.n, Field: colTStartDate, Value: r.startDate, Err: err}
		}
		clock, err := timecalc.ParseClock(r.startTime)
		if err != nil {
			return nil, &model.ParseError{Row: r.n, Field: colTStartTime, Value: r.startTime, Err: err}
		}
		hrs, err := timecalc.HoursFromTimestamp(r.duration)
		if err != nil {
			return nil, &model.ParseError{Row: r.n, Field: colTDuration, Value: r.duration, Err: err}
		}
		events = append(events, model.Event{
			Timestamp:   date.Add(clock),
			Activity:    r.activity,
			DurationHrs: hrs,
			Comment:     r.comment,
		})
	}

	events, err = timecalc.Annotate(events)
	if err != nil {
		return nil, err
	}
	return DropPartialDays(events, tg.DayTolerance), nil
}

// splitOverlap replaces every row whose start and end dates differ by two
// rows: the remainder of the start day up to 24:00 and the remainder of the
// span from 00:00 on the end date. Same-day rows come first, then all
// start-day halves, then all end-day halves. An end-day half of zero length
// is dropped. A span that crosses more than one midnight fails the table.
func splitOverlap(rows []togglRow) ([]togglRow, error) {
	var same, overlap []togglRow
	for _, r := range rows {
		if r.startDate == r.endDate {
			same = append(same, r)
		} else {
			overlap = append(overlap, r)
		}
	}
	if len(overlap) == 0 {
		return same, nil
	}

	firstHalves := make([]togglRow, 0, len(overlap))
	secondHalves := make([]togglRow, 0, len(overlap))
	for _, r := range overlap {
		start, err := timecalc.ParseDate(togglDateLayout, r.startDate)
		if err != nil {
			return nil, &model.ParseError{Row: r.n, Field: colTStartDate, Value: r.startDate, Err: err}
		}
		end, err := timecalc.ParseDate(togglDateLayout, r.endDate)
		if err != nil {
			return nil, &model.ParseError{Row: r.n, Field: colTEndDate, Value: r.endDate, Err: err}
		}
		if !end.Equal(start.AddDate(0, 0, 1)) {
			return nil, &model.ParseError{
				Row: r.n, Field: colTEndDate, Value: r.endDate,
				Err: fmt.Errorf("span crosses more than one midnight from %s", r.startDate),
			}
		}
		startHrs, err := timecalc.HoursFromTimestamp(r.startTime)
		if err != nil {
			return nil, &model.ParseError{Row: r.n, Field: colTStartTime, Value: r.startTime, Err: err}
		}
		totalHrs, err := timecalc.HoursFromTimestamp(r.duration)
		if err != nil {
			return nil, &model.ParseError{Row: r.n, Field: colTDuration, Value: r.duration, Err: err}
		}
		sameHrs := HoursPerDay - startHrs
		nextHrs := totalHrs - sameHrs
		if nextHrs < 0 {
			return nil, &model.ParseError{
				Row: r.n, Field: colTDuration, Value: r.duration,
				Err: fmt.Errorf("span ends before midnight of %s", r.startDate),
			}
		}
		if nextHrs > HoursPerDay {
			return nil, &model.ParseError{
				Row: r.n, Field: colTDuration, Value: r.duration,
				Err: fmt.Errorf("span runs past midnight of %s", r.endDate),
			}
		}

		first := r
		first.duration = timecalc.TimestampFromHours(sameHrs)
		firstHalves = append(firstHalves, first)

		if nextHrs == 0 {
			continue
		}
		second := r
		second.startDate = r.endDate
		second.startTime = midnightClock
		second.duration = timecalc.TimestampFromHours(nextHrs)
		secondHalves = append(secondHalves, second)
	}

	out := make([]togglRow, 0, len(same)+len(firstHalves)+len(secondHalves))
	out = append(out, same...)
	out = append(out, firstHalves...)
	out = append(out, secondHalves...)
	return out, nil
}

// DropPartialDays keeps only events on dates whose summed duration exceeds
// HoursPerDay-tolerance. Incomplete days are removed entirely.
func DropPartialDays(events []model.Event, tolerance float64) []model.Event {
	totals := map[string]float64{}
	for _, e := range events {
		totals[dayKey(e.Date)] += e.DurationHrs
	}
	keep := make([]model.Event, 0, len(events))
	for _, e := range events {
		if totals[dayKey(e.Date)] > HoursPerDay-tolerance {
			keep = append(keep, e)
		}
	}
	return keep
}

func dayKey(t time.Time) string {
	return t.Format(togglDateLayout)
}
