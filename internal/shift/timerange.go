package shift

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var ErrInvalidTimeRange = errors.New("invalid time range")

// Ranges used when a request names a part of the day instead of times.
var partsOfDay = map[string]TimeRange{
	"morning":   {Start: 8 * 60, End: 12 * 60},
	"afternoon": {Start: 13 * 60, End: 17 * 60},
	"evening":   {Start: 17 * 60, End: 21 * 60},
}

var rangePattern = regexp.MustCompile(`(\d{1,2}:\d{2})\s*(?:-|–|—|to)\s*(\d{1,2}:\d{2})`)

// TimeRange is a same-day interval in minutes after midnight.
type TimeRange struct {
	Start int
	End   int
}

func (r TimeRange) String() string {
	return fmt.Sprintf("%02d:%02d-%02d:%02d", r.Start/60, r.Start%60, r.End/60, r.End%60)
}

// ParseTimeRange parses "HH:MM-HH:MM". Single-digit hours are accepted and
// the start must be strictly before the end.
func ParseTimeRange(value string) (TimeRange, error) {
	raw := strings.TrimSpace(value)
	m := rangePattern.FindStringSubmatch(raw)
	if m == nil || strings.TrimSpace(rangePattern.ReplaceAllString(raw, "")) != "" {
		return TimeRange{}, fmt.Errorf("%w: %q", ErrInvalidTimeRange, value)
	}

	start, err := parseClock(m[1])
	if err != nil {
		return TimeRange{}, err
	}
	end, err := parseClock(m[2])
	if err != nil {
		return TimeRange{}, err
	}
	if start >= end {
		return TimeRange{}, fmt.Errorf("%w: start %s is not before end %s", ErrInvalidTimeRange, m[1], m[2])
	}

	return TimeRange{Start: start, End: end}, nil
}

// NormalizeShift returns the canonical "HH:MM-HH:MM" form of value, mapping
// part-of-day words to their fixed ranges.
func NormalizeShift(value string) (string, error) {
	if r, ok := partsOfDay[strings.ToLower(strings.TrimSpace(value))]; ok {
		return r.String(), nil
	}
	r, err := ParseTimeRange(value)
	if err != nil {
		return "", err
	}
	return r.String(), nil
}

func parseClock(value string) (int, error) {
	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("%w: bad clock %q", ErrInvalidTimeRange, value)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("%w: bad hour in %q", ErrInvalidTimeRange, value)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: bad minute in %q", ErrInvalidTimeRange, value)
	}
	return h*60 + m, nil
}

// ScheduleRange finds the recorded time range for date in a free-form schedule,
// one shift per line. It returns false when no line mentions the date with a
// valid range.
func ScheduleRange(schedule, date string) (string, bool) {
	date = strings.TrimSpace(date)
	if date == "" {
		return "", false
	}
	for _, line := range strings.Split(schedule, "\n") {
		if !strings.Contains(line, date) {
			continue
		}
		m := rangePattern.FindString(line)
		if m == "" {
			continue
		}
		if r, err := ParseTimeRange(m); err == nil {
			return r.String(), true
		}
	}
	return "", false
}
