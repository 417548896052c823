// Package agenda caches the remote events of the display window and merges
// them with local tasks into a per-day timeline.
package agenda

import (
	"context"
	"sync"
	"time"

	"github.com/harrisonrobin/planner/pkg/logging"
	"github.com/harrisonrobin/planner/pkg/model"
	"github.com/harrisonrobin/planner/pkg/remote"
	"github.com/harrisonrobin/planner/pkg/syncerr"
)

// DefaultWindowDays is how far ahead a refresh without an explicit window looks.
const DefaultWindowDays = 30

// Session is the view of the session gate the cache needs.
type Session interface {
	Authenticated() bool
	Invalidate()
}

// Cache holds the most recently fetched events. A refresh replaces the set
// wholesale; Clear invalidates any refresh still in flight.
type Cache struct {
	client  remote.Client
	session Session
	log     logging.Logger
	loc     *time.Location
	days    int
	now     func() time.Time

	mu         sync.RWMutex
	events     []model.RemoteEvent
	start, end time.Time
	// generation counts Clears; a refresh that saw an older value is stale.
	generation uint64
	fetchedAt  time.Time
}

type Option func(*Cache)

func WithLogger(l logging.Logger) Option { return func(c *Cache) { c.log = l } }

// WithLocation sets the zone used to place events on calendar days.
func WithLocation(loc *time.Location) Option { return func(c *Cache) { c.loc = loc } }

// WithWindowDays sets the length of the default refresh window.
func WithWindowDays(days int) Option {
	return func(c *Cache) {
		if days > 0 {
			c.days = days
		}
	}
}

func WithClock(now func() time.Time) Option { return func(c *Cache) { c.now = now } }

func New(client remote.Client, session Session, opts ...Option) *Cache {
	c := &Cache{
		client:  client,
		session: session,
		log:     logging.NewNop(),
		loc:     time.Local,
		days:    DefaultWindowDays,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithPrefix("agenda")
	return c
}

// DefaultWindow is [now, now+days).
func (c *Cache) DefaultWindow() (time.Time, time.Time) {
	now := c.now()
	return now, now.AddDate(0, 0, c.days)
}

// Refresh fetches the events of [start, end) and replaces the cache. Zero
// bounds select the default window. Signed out, it does nothing.
func (c *Cache) Refresh(ctx context.Context, start, end time.Time) error {
	// snapshot before the session check so a sign-out between the two still
	// invalidates this refresh
	c.mu.RLock()
	gen := c.generation
	c.mu.RUnlock()

	if !c.session.Authenticated() {
		c.log.Debug("not signed in, skipping refresh", nil)
		return nil
	}
	if start.IsZero() || end.IsZero() {
		start, end = c.DefaultWindow()
	}

	events, err := c.client.List(ctx, start, end)
	if err != nil {
		if syncerr.IsKind(err, syncerr.Unauthenticated) {
			c.session.Invalidate()
		}
		c.log.Warn("refresh failed", logging.Fields{"error": err, "kind": syncerr.KindOf(err)})
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		c.log.Debug("discarding refresh started before the cache was cleared", nil)
		return nil
	}
	c.events = events
	c.start, c.end = start, end
	c.fetchedAt = c.now()
	c.log.Debug("events refreshed", logging.Fields{"count": len(events), "start": start.Format(time.RFC3339), "end": end.Format(time.RFC3339)})
	return nil
}

// Clear empties the cache immediately.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
	c.start, c.end = time.Time{}, time.Time{}
	c.fetchedAt = time.Time{}
	c.generation++
}

// Events returns a copy of the cached events in provider order.
func (c *Cache) Events() []model.RemoteEvent {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]model.RemoteEvent(nil), c.events...)
}

// Window returns the bounds of the cached set and when it was fetched.
func (c *Cache) Window() (start, end, fetchedAt time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.start, c.end, c.fetchedAt
}

// SessionStarted loads the default window after sign in.
func (c *Cache) SessionStarted(ctx context.Context) {
	if err := c.Refresh(ctx, time.Time{}, time.Time{}); err != nil {
		c.log.Warn("initial refresh failed", logging.Fields{"error": err})
	}
}

// SessionEnded drops everything fetched under the old session.
func (c *Cache) SessionEnded() {
	c.Clear()
}

// EventSaved replaces or inserts an acknowledged event when it falls inside
// the cached window.
func (c *Cache) EventSaved(ev model.RemoteEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.start.IsZero() {
		return
	}
	kept := c.events[:0:0]
	for _, e := range c.events {
		if e.ID != ev.ID {
			kept = append(kept, e)
		}
	}
	if remote.Intersects(ev, c.start, c.end, c.loc) {
		kept = append(kept, ev)
		remote.SortEvents(kept, c.loc)
	}
	c.events = kept
}

func (c *Cache) EventRemoved(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.events[:0:0]
	for _, e := range c.events {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	c.events = kept
}

// ForDay merges the cached events with tasks for the calendar day of day.
func (c *Cache) ForDay(day time.Time, tasks []model.Task) []model.TimelineItem {
	return Merge(day, tasks, c.Events(), c.loc)
}
