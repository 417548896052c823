package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/harrisonrobin/planner/pkg/auth"
	"github.com/harrisonrobin/planner/pkg/syncerr"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// HTTPClientSource hands out an authorized HTTP client for the current session.
type HTTPClientSource interface {
	HTTPClient(ctx context.Context) (*http.Client, error)
}

// NewClient creates a Google Calendar client bound to calendarID. The
// calendar service is built lazily from source so the client can be created
// before sign-in. Extra options are appended after the HTTP client.
func NewClient(source HTTPClientSource, calendarID string, loc *time.Location, opts ...option.ClientOption) *CalendarClient {
	if calendarID == "" {
		calendarID = PrimaryCalendar
	}
	if loc == nil {
		loc = time.Local
	}
	return &CalendarClient{
		services:   &serviceFactory{source: source, opts: opts},
		calendarID: calendarID,
		loc:        loc,
	}
}

// serviceFactory caches the calendar service per HTTP client, rebuilding it
// after a new sign-in hands out a different client.
type serviceFactory struct {
	source HTTPClientSource
	opts   []option.ClientOption

	mu     sync.Mutex
	client *http.Client
	srv    *calendar.Service
}

func (f *serviceFactory) get(ctx context.Context) (*calendar.Service, error) {
	hc, err := f.source.HTTPClient(ctx)
	if err != nil {
		return nil, classify(err, "authorize calendar client")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.srv != nil && f.client == hc {
		return f.srv, nil
	}
	opts := append([]option.ClientOption{option.WithHTTPClient(hc)}, f.opts...)
	srv, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, syncerr.Wrap(syncerr.RemoteUnavailable, err, "unable to create calendar service")
	}
	f.client, f.srv = hc, srv
	return srv, nil
}

// ResolveCalendarID maps a calendar name to its id, the way a user refers to
// calendars in settings. "primary" and unknown names that look like ids are
// returned unchanged.
func (c *CalendarClient) ResolveCalendarID(ctx context.Context, name string) (string, error) {
	if name == "" || name == PrimaryCalendar {
		return PrimaryCalendar, nil
	}
	srv, err := c.services.get(ctx)
	if err != nil {
		return "", err
	}
	list, err := srv.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return "", classify(err, "list calendars")
	}
	for _, item := range list.Items {
		if item.Summary == name || item.Id == name {
			return item.Id, nil
		}
	}
	return "", fmt.Errorf("calendar '%s' not found", name)
}

// UseCalendar rebinds the client to calendarID.
func (c *CalendarClient) UseCalendar(calendarID string) {
	c.calendarID = calendarID
}

// classify maps transport and API failures onto sync error kinds.
func classify(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, auth.ErrNoToken) {
		return syncerr.Wrap(syncerr.Unauthenticated, err, op)
	}
	var retrieve *oauth2.RetrieveError
	if errors.As(err, &retrieve) {
		return syncerr.Wrap(syncerr.Unauthenticated, err, op)
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized:
			return syncerr.Wrap(syncerr.Unauthenticated, err, op)
		case http.StatusNotFound, http.StatusGone:
			return syncerr.Wrap(syncerr.NotFound, err, op)
		}
	}
	return syncerr.Wrap(syncerr.RemoteUnavailable, err, op)
}
