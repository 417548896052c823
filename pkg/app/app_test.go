package app

import (
	"context"
	"testing"
	"time"

	"github.com/harrisonrobin/planner/pkg/config"
	"github.com/harrisonrobin/planner/pkg/model"
	"github.com/harrisonrobin/planner/pkg/reconcile"
	"github.com/harrisonrobin/planner/pkg/remote"
	"github.com/harrisonrobin/planner/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)

func openTestApp(t *testing.T, provider *remote.Memory) *App {
	t.Helper()
	backend, err := storage.NewMemory()
	require.NoError(t, err)

	cfg := config.Default()
	cfg.TimeZone = "UTC"
	a, err := Open(context.Background(), Options{
		Config:  cfg,
		Remote:  provider,
		Backend: backend,
		Now:     func() time.Time { return now },
	})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestOpenRestoresSessionAndLoadsEvents(t *testing.T) {
	provider := remote.NewMemory()
	provider.Put(model.RemoteEvent{
		ID:    "existing",
		Start: model.EventTime{Instant: now.Add(time.Hour)},
		End:   model.EventTime{Instant: now.Add(2 * time.Hour)},
	})

	a := openTestApp(t, provider)

	assert.True(t, a.Gate.Authenticated())
	assert.Len(t, a.Events.Events(), 1)
	assert.Equal(t, time.UTC, a.Location)
}

func TestSaveFlowsIntoDayView(t *testing.T) {
	a := openTestApp(t, remote.NewMemory())
	ctx := context.Background()

	local, out := a.Reconciler.Save(ctx, reconcile.SaveRequest{
		Fields: model.TaskFields{Title: "Standup", DueDate: now.Add(time.Hour), EstimatedTime: 15},
		Intent: model.IntentKeep,
	})
	require.NoError(t, out.Err)

	items := a.Events.ForDay(now, a.Tasks.List())
	require.Len(t, items, 2)
	assert.True(t, items[0].IsTask)
	assert.Equal(t, local.Task.ID, items[0].ID)
	assert.Equal(t, local.Task.RemoteEventRef, items[1].ID)
	assert.Equal(t, "9:00 AM - 9:15 AM", items[1].DurationLabel)
}

func TestLogoutClearsEvents(t *testing.T) {
	provider := remote.NewMemory()
	for i := 0; i < 5; i++ {
		provider.Put(model.RemoteEvent{
			ID:    string(rune('a' + i)),
			Start: model.EventTime{Instant: now.Add(time.Duration(i+1) * time.Hour)},
			End:   model.EventTime{Instant: now.Add(time.Duration(i+2) * time.Hour)},
		})
	}
	a := openTestApp(t, provider)
	require.Len(t, a.Events.Events(), 5)

	require.NoError(t, a.Gate.Logout(context.Background()))
	assert.False(t, a.Gate.Authenticated())
	assert.Empty(t, a.Events.Events())
}

func TestOpenWithoutCredentialsKeepsTasksLocal(t *testing.T) {
	backend, err := storage.NewMemory()
	require.NoError(t, err)
	a, err := Open(context.Background(), Options{Backend: backend, ConfigDir: t.TempDir()})
	require.NoError(t, err)
	defer a.Close()

	assert.False(t, a.Gate.Authenticated())
	assert.Error(t, a.Gate.Login(context.Background()))

	_, out := a.Reconciler.Save(context.Background(), reconcile.SaveRequest{
		Fields: model.TaskFields{Title: "Offline", DueDate: now},
		Intent: model.IntentKeep,
	})
	assert.Equal(t, reconcile.ActionNone, out.Action)
	assert.Len(t, a.Tasks.List(), 1)
}

func TestNeedsLookup(t *testing.T) {
	assert.False(t, needsLookup("primary"))
	assert.False(t, needsLookup("team@group.calendar.google.com"))
	assert.True(t, needsLookup("Work"))
}
