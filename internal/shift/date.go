package shift

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar date format used for posts.
const DateLayout = "2006-01-02"

var ErrInvalidDate = errors.New("invalid date")

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseDate parses a YYYY-MM-DD date as midnight UTC.
func ParseDate(value string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return d, nil
}

// DayDiff returns the absolute number of calendar days between two dates.
func DayDiff(a, b string) (int, error) {
	da, err := ParseDate(a)
	if err != nil {
		return 0, err
	}
	db, err := ParseDate(b)
	if err != nil {
		return 0, err
	}
	return daysBetween(da, db), nil
}

func daysBetween(a, b time.Time) int {
	// both values are UTC midnights, so the difference is a whole number of days
	days := int(b.Sub(a).Hours() / 24)
	if days < 0 {
		return -days
	}
	return days
}

// civil returns the calendar date of t in its own location as midnight UTC.
func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ResolveDate turns a date value into YYYY-MM-DD relative to now. It accepts
// ISO dates and timestamps, "today", "tomorrow" and weekday names (optionally
// prefixed by "next" or "this"), which resolve to the next such day after today.
func ResolveDate(value string, now time.Time) (string, error) {
	raw := strings.ToLower(strings.TrimSpace(value))
	if raw == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidDate)
	}

	if d, err := ParseDate(raw); err == nil {
		return d.Format(DateLayout), nil
	}
	if len(raw) > len(DateLayout) {
		if d, err := ParseDate(raw[:len(DateLayout)]); err == nil && (raw[len(DateLayout)] == 't' || raw[len(DateLayout)] == ' ') {
			return d.Format(DateLayout), nil
		}
	}

	today := civil(now)
	switch raw {
	case "today", "tonight":
		return today.Format(DateLayout), nil
	case "tomorrow":
		return today.AddDate(0, 0, 1).Format(DateLayout), nil
	}

	name := strings.TrimPrefix(strings.TrimPrefix(raw, "next "), "this ")
	if wd, ok := weekdays[name]; ok {
		ahead := (int(wd) - int(today.Weekday()) + 7) % 7
		if ahead == 0 {
			ahead = 7
		}
		return today.AddDate(0, 0, ahead).Format(DateLayout), nil
	}

	return "", fmt.Errorf("%w: %q", ErrInvalidDate, value)
}
