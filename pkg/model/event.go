package model

import "time"

const dateLayout = "2006-01-02"

// EventTime is either a precise instant with a zone, or an all-day date.
type EventTime struct {
	Instant time.Time
	Date    string // YYYY-MM-DD, set for all-day events
	Zone    string
}

func (e EventTime) AllDay() bool { return e.Instant.IsZero() }

// LocalDate returns the calendar date of e as seen in loc. All-day dates are
// taken as-is; an all-day time with no parseable date yields ok=false.
func (e EventTime) LocalDate(loc *time.Location) (y int, m time.Month, d int, ok bool) {
	if !e.AllDay() {
		y, m, d = e.Instant.In(loc).Date()
		return y, m, d, true
	}
	t, err := time.ParseInLocation(dateLayout, e.Date, loc)
	if err != nil {
		return 0, 0, 0, false
	}
	y, m, d = t.Date()
	return y, m, d, true
}

// Time returns the instant, or local midnight of the date for all-day values.
func (e EventTime) Time(loc *time.Location) time.Time {
	if !e.AllDay() {
		return e.Instant
	}
	t, err := time.ParseInLocation(dateLayout, e.Date, loc)
	if err != nil {
		return time.Time{}
	}
	return t
}

func AllDayOn(t time.Time) EventTime {
	return EventTime{Date: t.Format(dateLayout)}
}

// RemoteEvent is the read-only projection of a provider event.
type RemoteEvent struct {
	ID          string
	Summary     string
	Description string
	Start       EventTime
	End         EventTime
}

// EventInput is what the reconciler sends to the provider on create/update.
type EventInput struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	TimeZone    string
}

// TimelineItem is one merged display row for a single day.
type TimelineItem struct {
	ID            string
	Title         string
	StartLabel    string
	DurationLabel string
	Category      string
	IsTask        bool
	Priority      Priority
	AllDay        bool
	Start         time.Time
}
