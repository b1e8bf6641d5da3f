package timecalc

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// HoursFromTimestamp converts an "H:MM:SS" duration string to fractional
// hours, h + (m + s/60)/60.
func HoursFromTimestamp(s string) (float64, error) {
	h, m, sec, err := splitHMS(s)
	if err != nil {
		return 0, err
	}
	return float64(h) + (float64(m)+float64(sec)/60)/60, nil
}

// TimestampFromHours converts fractional hours back to "HH:MM:SS". Hours and
// minutes are floored, seconds are rounded half to even. A value just under a
// minute boundary can therefore yield 60 seconds, which HoursFromTimestamp
// reads back without loss.
func TimestampFromHours(hrs float64) string {
	h := math.Floor(hrs)
	m := math.Floor((hrs - h) * 60)
	s := math.RoundToEven(((hrs-h)*60 - m) * 60)
	return fmt.Sprintf("%02d:%02d:%02d", int(h), int(m), int(s))
}

func splitHMS(s string) (h, m, sec int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("want H:MM:SS, got %q", s)
	}
	vals := make([]int, 3)
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 {
			return 0, 0, 0, fmt.Errorf("bad component %q in %q", p, s)
		}
		vals[i] = v
	}
	return vals[0], vals[1], vals[2], nil
}

// ParseClock parses a "15:04:05" time of day into an offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04:05", strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second, nil
}

// ParseDate parses a calendar date with the given layout, in UTC.
func ParseDate(layout, s string) (time.Time, error) {
	return time.ParseInLocation(layout, strings.TrimSpace(s), time.UTC)
}

// FormatDuration formats seconds as a human-readable string like "1h 40m" or "45m" or "30s".
func FormatDuration(seconds int64) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	if m > 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%ds", s)
}

// FormatHours formats fractional hours the same way as FormatDuration.
func FormatHours(hrs float64) string {
	return FormatDuration(int64(math.Round(hrs * 3600)))
}

// FormatDurationHHMMSS formats seconds as HH:MM:SS.
func FormatDurationHHMMSS(seconds int64) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// WeekRange returns the Monday and Sunday of the ISO week containing t.
func WeekRange(t time.Time) (time.Time, time.Time) {
	// Go's weekday: Sunday=0, Monday=1, …, Saturday=6
	wd := int(t.Weekday())
	if wd == 0 {
		wd = 7 // treat Sunday as 7 (ISO)
	}
	monday := t.AddDate(0, 0, -(wd - 1))
	monday = time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, t.Location())
	sunday := monday.AddDate(0, 0, 6)
	sunday = time.Date(sunday.Year(), sunday.Month(), sunday.Day(), 23, 59, 59, 0, t.Location())
	return monday, sunday
}

// ISOWeekLabel returns a label like "2026-W09".
func ISOWeekLabel(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// StartOfDay returns 00:00:00 of the same day.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay returns 23:59:59 of the same day.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}

// Naive reinterprets the wall clock of t in UTC, dropping its zone.
func Naive(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}
