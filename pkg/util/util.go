package util

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	AllDayLabel = "All day"

	clockLayout      = "03:04 PM"
	shortClockLayout = "3:04 PM"
)

var isoDurationPart = regexp.MustCompile(`(\d+)([HMS])`)

// ParseDuration parses ISO 8601 time durations (PT1H30M), Go durations
// (1h30m) and bare minute counts (90).
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Minute, nil
	}
	if s[0] != 'P' {
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", s, err)
		}
		return d, nil
	}

	rest := s[1:]
	if len(rest) == 0 || rest[0] != 'T' {
		return 0, fmt.Errorf("invalid ISO 8601 duration (missing T): %s", s)
	}
	rest = rest[1:]

	var total time.Duration
	for _, match := range isoDurationPart.FindAllStringSubmatch(rest, -1) {
		value, _ := strconv.Atoi(match[1])
		switch match[2] {
		case "H":
			total += time.Duration(value) * time.Hour
		case "M":
			total += time.Duration(value) * time.Minute
		case "S":
			total += time.Duration(value) * time.Second
		}
	}
	if total == 0 {
		return 0, fmt.Errorf("invalid ISO 8601 duration: %s", s)
	}
	return total, nil
}

// ParseMinutes parses a duration and rounds it to whole minutes.
func ParseMinutes(s string) (int, error) {
	d, err := ParseDuration(s)
	if err != nil {
		return 0, err
	}
	return int(d.Round(time.Minute) / time.Minute), nil
}

// ParseWhen accepts RFC 3339, "2006-01-02 15:04", "2006-01-02", "today" and
// "tomorrow". Dates without a time resolve to midnight in loc.
func ParseWhen(s string, now time.Time, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "today":
		y, m, d := now.In(loc).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, loc), nil
	case "tomorrow":
		y, m, d := now.In(loc).AddDate(0, 0, 1).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, loc), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q (use YYYY-MM-DD, \"YYYY-MM-DD HH:MM\" or RFC 3339)", s)
}

// ClockLabel formats t as "09:05 AM" in loc.
func ClockLabel(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(clockLayout)
}

// RangeLabel formats a span as "9:05 AM - 10:00 AM" in loc.
func RangeLabel(start, end time.Time, loc *time.Location) string {
	return fmt.Sprintf("%s - %s", start.In(loc).Format(shortClockLayout), end.In(loc).Format(shortClockLayout))
}

func MinutesLabel(minutes int) string {
	return fmt.Sprintf("%dm", minutes)
}

// SameDay reports whether a and b fall on the same calendar date in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
