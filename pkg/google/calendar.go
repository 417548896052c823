package google

import (
	"context"
	"fmt"
	"time"

	"github.com/harrisonrobin/planner/pkg/model"
	"github.com/harrisonrobin/planner/pkg/remote"
	"google.golang.org/api/calendar/v3"
)

const (
	// PrimaryCalendar is the signed-in user's default calendar.
	PrimaryCalendar = "primary"

	listPageSize = 250
)

// CalendarClient talks to a single Google calendar.
type CalendarClient struct {
	services   *serviceFactory
	calendarID string
	loc        *time.Location
}

var _ remote.Client = (*CalendarClient)(nil)

func (c *CalendarClient) List(ctx context.Context, start, end time.Time) ([]model.RemoteEvent, error) {
	srv, err := c.services.get(ctx)
	if err != nil {
		return nil, err
	}

	var out []model.RemoteEvent
	call := srv.Events.List(c.calendarID).
		TimeMin(start.Format(time.RFC3339)).
		TimeMax(end.Format(time.RFC3339)).
		SingleEvents(true).
		ShowDeleted(false).
		OrderBy("startTime").
		MaxResults(listPageSize)
	err = call.Pages(ctx, func(page *calendar.Events) error {
		for _, item := range page.Items {
			ev := fromCalendarEvent(item)
			if remote.Intersects(ev, start, end, c.loc) {
				out = append(out, ev)
			}
		}
		return nil
	})
	if err != nil {
		return nil, classify(err, "list events")
	}
	// Google orders by start only; re-sort to break ties by id.
	remote.SortEvents(out, c.loc)
	return out, nil
}

func (c *CalendarClient) Create(ctx context.Context, in model.EventInput) (model.RemoteEvent, error) {
	srv, err := c.services.get(ctx)
	if err != nil {
		return model.RemoteEvent{}, err
	}
	created, err := srv.Events.Insert(c.calendarID, toCalendarEvent(in)).Context(ctx).Do()
	if err != nil {
		return model.RemoteEvent{}, classify(err, "create event")
	}
	return fromCalendarEvent(created), nil
}

func (c *CalendarClient) Update(ctx context.Context, id string, in model.EventInput) (model.RemoteEvent, error) {
	srv, err := c.services.get(ctx)
	if err != nil {
		return model.RemoteEvent{}, err
	}
	updated, err := srv.Events.Update(c.calendarID, id, toCalendarEvent(in)).Context(ctx).Do()
	if err != nil {
		return model.RemoteEvent{}, classify(err, fmt.Sprintf("update event %s", id))
	}
	return fromCalendarEvent(updated), nil
}

func (c *CalendarClient) Delete(ctx context.Context, id string) error {
	srv, err := c.services.get(ctx)
	if err != nil {
		return err
	}
	if err := srv.Events.Delete(c.calendarID, id).Context(ctx).Do(); err != nil {
		return classify(err, fmt.Sprintf("delete event %s", id))
	}
	return nil
}

func toCalendarEvent(in model.EventInput) *calendar.Event {
	return &calendar.Event{
		Summary:     in.Summary,
		Description: in.Description,
		Start: &calendar.EventDateTime{
			DateTime: in.Start.Format(time.RFC3339),
			TimeZone: in.TimeZone,
		},
		End: &calendar.EventDateTime{
			DateTime: in.End.Format(time.RFC3339),
			TimeZone: in.TimeZone,
		},
	}
}

func fromCalendarEvent(e *calendar.Event) model.RemoteEvent {
	return model.RemoteEvent{
		ID:          e.Id,
		Summary:     e.Summary,
		Description: e.Description,
		Start:       fromEventDateTime(e.Start),
		End:         fromEventDateTime(e.End),
	}
}

// fromEventDateTime treats missing or unparseable instants as all-day.
func fromEventDateTime(dt *calendar.EventDateTime) model.EventTime {
	if dt == nil {
		return model.EventTime{}
	}
	if dt.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, dt.DateTime); err == nil {
			return model.EventTime{Instant: t, Zone: dt.TimeZone}
		}
	}
	return model.EventTime{Date: dt.Date, Zone: dt.TimeZone}
}
