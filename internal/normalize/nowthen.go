package normalize

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Tiliavir/nt-hours/internal/model"
	"github.com/Tiliavir/nt-hours/internal/timecalc"
)

// NowThen column names of the manual CSV export.
const (
	colParentTask = "Parent Task"
	colTaskName   = "Task Name"
	colStartDate  = "Start Date"
	colStartTime  = "Start Time"
	colDuration   = "Duration (hours)"
	colComment    = "Comment"
)

// nowThenDateLayout is the DD/MM/YY start date of the export.
const nowThenDateLayout = "02/01/06"

// NowThen normalizes the manual time-tracking app export.
type NowThen struct{}

// Normalize implements Normalizer.
func (NowThen) Normalize(t model.RawTable) ([]model.Event, error) {
	cols, err := t.Columns(colParentTask, colTaskName, colStartDate, colStartTime, colDuration)
	if err != nil {
		return nil, err
	}
	commentIdx, err := t.Index(colComment)
	if err != nil {
		commentIdx = -1
	}

	events := make([]model.Event, 0, len(t.Rows))
	for i, row := range t.Rows {
		n := i + 1
		rawDate := model.Cell(row, cols[colStartDate])
		date, err := timecalc.ParseDate(nowThenDateLayout, rawDate)
		if err != nil {
			return nil, &model.ParseError{Row: n, Field: colStartDate, Value: rawDate, Err: err}
		}
		rawTime := model.Cell(row, cols[colStartTime])
		clock, err := timecalc.ParseClock(rawTime)
		if err != nil {
			return nil, &model.ParseError{Row: n, Field: colStartTime, Value: rawTime, Err: err}
		}
		rawDur := strings.TrimSpace(model.Cell(row, cols[colDuration]))
		dur, err := strconv.ParseFloat(rawDur, 64)
		if err != nil {
			return nil, &model.ParseError{Row: n, Field: colDuration, Value: rawDur, Err: err}
		}
		if dur <= 0 || dur > HoursPerDay {
			return nil, &model.ParseError{
				Row: n, Field: colDuration, Value: rawDur,
				Err: fmt.Errorf("duration must be within (0, %d] hours", HoursPerDay),
			}
		}

		events = append(events, model.Event{
			Timestamp:   date.Add(clock),
			Activity:    activity(model.Cell(row, cols[colParentTask]), model.Cell(row, cols[colTaskName])),
			DurationHrs: dur,
			Comment:     model.Cell(row, commentIdx),
		})
	}
	return timecalc.Annotate(events)
}
