package model

import "time"

// Event is the canonical time-tracking record every source normalizes into.
// Timestamp is the natural key. All times are naive wall-clock values held in
// UTC so that every calendar day is exactly 24 hours long.
type Event struct {
	Timestamp   time.Time     `json:"timestamp"`
	Date        time.Time     `json:"date"`
	TimeOfDay   time.Duration `json:"time"`
	Activity    string        `json:"activity"`
	DurationHrs float64       `json:"duration_hrs"`
	Year        int           `json:"year"`
	Month       int           `json:"month"`
	Week        int           `json:"week"`
	DOW         int           `json:"dow"`
	Comment     string        `json:"comment"`
}

// EventFields is the column order of the persisted event table.
var EventFields = []string{
	"timestamp", "date", "time", "activity", "duration_hrs",
	"year", "month", "week", "DOW", "comment",
}

// Clock returns the start time-of-day as a time on 0001-01-01, ready for
// formatting with a time layout.
func (e Event) Clock() time.Time {
	return time.Time{}.Add(e.TimeOfDay)
}

// MaxYear returns the largest calendar year in events, or 0 when empty.
func MaxYear(events []Event) int {
	max := 0
	for _, e := range events {
		if e.Year > max {
			max = e.Year
		}
	}
	return max
}
