package agenda

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/harrisonrobin/planner/pkg/model"
	"github.com/harrisonrobin/planner/pkg/remote"
	"github.com/harrisonrobin/planner/pkg/syncerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	mu          sync.Mutex
	authed      bool
	invalidated int
}

func (s *fakeSession) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authed
}

func (s *fakeSession) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authed = false
	s.invalidated++
}

// blockingClient holds List until release is closed once hold is set.
type blockingClient struct {
	*remote.Memory
	hold    bool
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (b *blockingClient) List(ctx context.Context, start, end time.Time) ([]model.RemoteEvent, error) {
	if b.hold {
		b.once.Do(func() { close(b.entered) })
		<-b.release
	}
	return b.Memory.List(ctx, start, end)
}

var now = time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)

func timed(id string, start time.Time, d time.Duration) model.RemoteEvent {
	return model.RemoteEvent{
		ID:      id,
		Summary: "Event " + id,
		Start:   model.EventTime{Instant: start},
		End:     model.EventTime{Instant: start.Add(d)},
	}
}

func seeded(n int) *remote.Memory {
	m := remote.NewMemory()
	for i := 0; i < n; i++ {
		m.Put(timed(fmt.Sprintf("e%d", i), now.Add(time.Duration(i+1)*time.Hour), time.Hour))
	}
	return m
}

func newCache(client remote.Client, s *fakeSession) *Cache {
	return New(client, s, WithLocation(time.UTC), WithClock(func() time.Time { return now }))
}

func TestRefreshSignedOutIsNoop(t *testing.T) {
	m := seeded(3)
	c := newCache(m, &fakeSession{})

	require.NoError(t, c.Refresh(context.Background(), time.Time{}, time.Time{}))
	assert.Empty(t, c.Events())
	assert.Empty(t, m.Calls())
}

func TestRefreshUsesDefaultWindow(t *testing.T) {
	m := seeded(2)
	m.Put(timed("far", now.AddDate(0, 0, 31), time.Hour))
	c := New(m, &fakeSession{authed: true}, WithLocation(time.UTC), WithClock(func() time.Time { return now }), WithWindowDays(30))

	require.NoError(t, c.Refresh(context.Background(), time.Time{}, time.Time{}))

	assert.Len(t, c.Events(), 2)
	start, end, fetched := c.Window()
	assert.Equal(t, now, start)
	assert.Equal(t, now.AddDate(0, 0, 30), end)
	assert.Equal(t, now, fetched)
}

func TestRefreshIsIdempotent(t *testing.T) {
	c := newCache(seeded(4), &fakeSession{authed: true})
	ctx := context.Background()
	start, end := now, now.AddDate(0, 0, 7)

	require.NoError(t, c.Refresh(ctx, start, end))
	first := c.Events()
	require.NoError(t, c.Refresh(ctx, start, end))

	assert.Equal(t, first, c.Events())
}

func TestRefreshFailureKeepsPreviousSet(t *testing.T) {
	m := seeded(2)
	c := newCache(m, &fakeSession{authed: true})
	ctx := context.Background()
	require.NoError(t, c.Refresh(ctx, time.Time{}, time.Time{}))

	m.FailNext("list", syncerr.New(syncerr.RemoteUnavailable, "timeout"))
	err := c.Refresh(ctx, time.Time{}, time.Time{})

	assert.True(t, syncerr.IsKind(err, syncerr.RemoteUnavailable))
	assert.Len(t, c.Events(), 2)
}

func TestRefreshUnauthenticatedInvalidatesSession(t *testing.T) {
	m := seeded(1)
	s := &fakeSession{authed: true}
	c := newCache(m, s)
	m.FailNext("list", syncerr.New(syncerr.Unauthenticated, "expired"))

	err := c.Refresh(context.Background(), time.Time{}, time.Time{})

	assert.True(t, syncerr.IsKind(err, syncerr.Unauthenticated))
	assert.Equal(t, 1, s.invalidated)
}

func TestClearDuringRefreshDiscardsResult(t *testing.T) {
	client := &blockingClient{Memory: seeded(5), entered: make(chan struct{}), release: make(chan struct{})}
	s := &fakeSession{authed: true}
	c := newCache(client, s)
	ctx := context.Background()

	require.NoError(t, c.Refresh(ctx, time.Time{}, time.Time{}))
	require.Len(t, c.Events(), 5)

	client.hold = true
	done := make(chan error, 1)
	go func() { done <- c.Refresh(ctx, time.Time{}, time.Time{}) }()
	<-client.entered

	// sign out while the list call is still outstanding
	s.Invalidate()
	c.SessionEnded()
	assert.Empty(t, c.Events())

	close(client.release)
	require.NoError(t, <-done)
	assert.Empty(t, c.Events())
}

// signOutOnCheck reports signed in once and clears the cache in the same
// call, as if a logout landed right after the session check.
type signOutOnCheck struct {
	fakeSession
	cache *Cache
	once  sync.Once
}

func (s *signOutOnCheck) Authenticated() bool {
	first := false
	s.once.Do(func() {
		first = true
		s.cache.Clear()
	})
	return first
}

func TestLogoutDuringSessionCheckDiscardsResult(t *testing.T) {
	s := &signOutOnCheck{}
	c := New(seeded(5), s, WithLocation(time.UTC), WithClock(func() time.Time { return now }))
	s.cache = c

	require.NoError(t, c.Refresh(context.Background(), time.Time{}, time.Time{}))

	assert.False(t, s.Authenticated())
	assert.Empty(t, c.Events())
	start, _, _ := c.Window()
	assert.True(t, start.IsZero())
}

func TestAcknowledgedEventsReplaceCachedCopies(t *testing.T) {
	m := seeded(2)
	c := newCache(m, &fakeSession{authed: true})
	require.NoError(t, c.Refresh(context.Background(), time.Time{}, time.Time{}))

	moved := timed("e1", now.Add(30*time.Minute), time.Hour)
	moved.Summary = "Moved"
	c.EventSaved(moved)
	c.EventSaved(timed("outside", now.AddDate(0, 2, 0), time.Hour))

	events := c.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "e1", events[0].ID)
	assert.Equal(t, "Moved", events[0].Summary)

	c.EventRemoved("e0")
	events = c.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "e1", events[0].ID)
}

func TestEventSavedBeforeAnyRefreshIsIgnored(t *testing.T) {
	c := newCache(remote.NewMemory(), &fakeSession{authed: true})
	c.EventSaved(timed("e1", now, time.Hour))
	assert.Empty(t, c.Events())
}

func TestSessionStartedRefreshes(t *testing.T) {
	c := newCache(seeded(3), &fakeSession{authed: true})
	c.SessionStarted(context.Background())
	assert.Len(t, c.Events(), 3)
}
