// Package remote defines the calendar provider capability used by the
// reconciler and the event cache.
package remote

import (
	"context"
	"sort"
	"time"

	"github.com/harrisonrobin/planner/pkg/model"
)

// Client performs the four provider operations against a single calendar.
// Failures are *syncerr.Error values of kind RemoteUnavailable,
// Unauthenticated or NotFound.
type Client interface {
	// List returns events intersecting [start, end), ordered by start then id.
	List(ctx context.Context, start, end time.Time) ([]model.RemoteEvent, error)
	Create(ctx context.Context, in model.EventInput) (model.RemoteEvent, error)
	Update(ctx context.Context, id string, in model.EventInput) (model.RemoteEvent, error)
	Delete(ctx context.Context, id string) error
}

// SortEvents orders events by start ascending, all-day dates at local
// midnight, ties broken by id.
func SortEvents(events []model.RemoteEvent, loc *time.Location) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i].Start.Time(loc), events[j].Start.Time(loc)
		if !a.Equal(b) {
			return a.Before(b)
		}
		return events[i].ID < events[j].ID
	})
}

// Intersects reports whether ev overlaps [start, end). An event with no
// usable end is treated as lasting one day from its start.
func Intersects(ev model.RemoteEvent, start, end time.Time, loc *time.Location) bool {
	s := ev.Start.Time(loc)
	if s.IsZero() {
		return false
	}
	e := ev.End.Time(loc)
	if e.IsZero() || !e.After(s) {
		e = s.AddDate(0, 0, 1)
	}
	return s.Before(end) && e.After(start)
}
