package types

import (
	"fmt"
	"time"
)

// DayLayout is the canonical key format for a calendar day. Store document
// IDs use this layout so lexicographic order matches chronological order.
const DayLayout = "2006-01-02"

// FormatDay returns the canonical day key for t.
func FormatDay(t time.Time) string {
	return t.Format(DayLayout)
}

// ParseDay parses a canonical day key.
func ParseDay(day string) (time.Time, error) {
	t, err := time.Parse(DayLayout, day)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q: %w", day, err)
	}
	return t, nil
}

// MonthStart returns the day key for the first day of the month containing day.
func MonthStart(day string) (string, error) {
	t, err := ParseDay(day)
	if err != nil {
		return "", err
	}
	return FormatDay(time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)), nil
}

// PrevDay returns the day key for the day before day.
func PrevDay(day string) (string, error) {
	t, err := ParseDay(day)
	if err != nil {
		return "", err
	}
	return FormatDay(t.AddDate(0, 0, -1)), nil
}

// DaysBefore returns the day key n days before day.
func DaysBefore(day string, n int) (string, error) {
	t, err := ParseDay(day)
	if err != nil {
		return "", err
	}
	return FormatDay(t.AddDate(0, 0, -n)), nil
}
