package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harrisonrobin/planner/pkg/app"
	"github.com/harrisonrobin/planner/pkg/model"
	"github.com/harrisonrobin/planner/pkg/remote"
	"github.com/harrisonrobin/planner/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)

// harness shares one task file and one provider across command runs, the
// way separate invocations share the data directory and the calendar.
type harness struct {
	t        *testing.T
	dataDir  string
	provider *remote.Memory
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	return &harness{t: t, dataDir: t.TempDir(), provider: remote.NewMemory()}
}

func (h *harness) open(ctx context.Context, opts app.Options) (*app.App, error) {
	backend, err := storage.NewFile(h.dataDir)
	if err != nil {
		return nil, err
	}
	opts.Backend = backend
	opts.Remote = h.provider
	opts.Now = func() time.Time { return now }
	return app.Open(ctx, opts)
}

func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	c := New(h.open)
	var out bytes.Buffer
	c.Command().SetOut(&out)
	c.Command().SetErr(&bytes.Buffer{})
	c.Command().SetArgs(append([]string{"--tz", "UTC"}, args...))
	err := c.Command().ExecuteContext(context.Background())
	return out.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	require.NoError(h.t, err, out)
	return out
}

func (h *harness) tasks() []model.Task {
	h.t.Helper()
	var env struct {
		Data []model.Task `json:"data"`
	}
	require.NoError(h.t, json.Unmarshal([]byte(h.mustRun("--json", "task", "list")), &env))
	return env.Data
}

func TestTaskAddStaysLocalWithoutSync(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("task", "add", "Write", "report", "--due", "2024-01-10 09:00")
	assert.Contains(t, out, "Added task")
	assert.Contains(t, out, "Write report")

	tasks := h.tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, 30, tasks[0].EstimatedTime)
	assert.Equal(t, model.PriorityMedium, tasks[0].Priority)
	assert.False(t, tasks[0].Synced())
	assert.Equal(t, 0, h.provider.Len())
}

func TestTaskAddWithSyncCreatesEvent(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("task", "add", "Standup", "--due", "2024-01-10 09:00", "--estimate", "15m", "--sync")
	assert.Contains(t, out, "Added to Google Calendar (evt-1)")

	ev, ok := h.provider.Event("evt-1")
	require.True(t, ok)
	assert.Equal(t, "Standup", ev.Summary)
	assert.Equal(t, 15*time.Minute, ev.End.Instant.Sub(ev.Start.Instant))

	tasks := h.tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "evt-1", tasks[0].RemoteEventRef)
}

func TestTaskAddWithoutDueDateSkipsSync(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("task", "add", "Someday", "--sync")
	assert.Contains(t, out, "Not synced")
	assert.Equal(t, 0, h.provider.Len())
}

func TestTaskAddRejectsBadInput(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("task", "add", "Bad", "--priority", "urgent")
	assert.Error(t, err)
	_, err = h.run("task", "add", "Bad", "--due", "next week")
	assert.Error(t, err)
	_, err = h.run("task", "add", "Bad", "--sync", "--no-sync")
	assert.Error(t, err)
	assert.Empty(t, h.tasks())
}

func TestTaskEditByPrefixKeepsEventInSync(t *testing.T) {
	h := newHarness(t)
	h.mustRun("task", "add", "Standup", "--due", "2024-01-10 09:00", "--sync")
	id := h.tasks()[0].ID

	out := h.mustRun("task", "edit", id[:6], "--title", "Daily standup", "--priority", "high")
	assert.Contains(t, out, "Updated task")
	assert.Contains(t, out, "Google Calendar event updated")

	ev, ok := h.provider.Event("evt-1")
	require.True(t, ok)
	assert.Equal(t, "Daily standup", ev.Summary)

	task := h.tasks()[0]
	assert.Equal(t, model.PriorityHigh, task.Priority)
	assert.Equal(t, "evt-1", task.RemoteEventRef)
}

func TestTaskEditNoSyncRemovesEvent(t *testing.T) {
	h := newHarness(t)
	h.mustRun("task", "add", "Standup", "--due", "2024-01-10 09:00", "--sync")
	id := h.tasks()[0].ID

	out := h.mustRun("task", "edit", id, "--no-sync")
	assert.Contains(t, out, "Removed from Google Calendar")
	assert.Equal(t, 0, h.provider.Len())
	assert.False(t, h.tasks()[0].Synced())
}

func TestTaskEditUnknownID(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("task", "edit", "nope", "--title", "x")
	assert.ErrorContains(t, err, "no task matches")
}

func TestTaskRmKeepsCalendarEvent(t *testing.T) {
	h := newHarness(t)
	h.mustRun("task", "add", "Standup", "--due", "2024-01-10 09:00", "--sync")
	id := h.tasks()[0].ID

	out := h.mustRun("task", "rm", id)
	assert.Contains(t, out, "Deleted task")
	assert.Empty(t, h.tasks())
	assert.Equal(t, 1, h.provider.Len())
}

func TestTaskListOverdue(t *testing.T) {
	h := newHarness(t)
	h.mustRun("task", "add", "Late", "--due", "2024-01-09 09:00")
	h.mustRun("task", "add", "Done", "--due", "2024-01-09 09:00", "--status", "completed")
	h.mustRun("task", "add", "Later", "--due", "2024-01-11 09:00")

	out := h.mustRun("task", "list", "--overdue")
	assert.Contains(t, out, "Late")
	assert.NotContains(t, out, "Done")
	assert.NotContains(t, out, "Later")
}

func TestTaskSuggest(t *testing.T) {
	h := newHarness(t)
	h.mustRun("task", "add", "Plan")
	id := h.tasks()[0].ID

	out := h.mustRun("task", "suggest", id)
	assert.Contains(t, out, "Suggestions for Plan")
	assert.NotEmpty(t, h.tasks()[0].AISuggestions)
}

func TestTaskImportOrg(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "week.org")
	require.NoError(t, os.WriteFile(path, []byte(`* TODO Write report :work:
  DEADLINE: <2024-01-10 Wed 14:00>
* TODO Water plants :home:
`), 0o600))

	out := h.mustRun("task", "import", "--format", "org", "--tag", "work", "--sync", path)
	assert.Contains(t, out, "Imported 1 tasks")

	tasks := h.tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "work", tasks[0].Category)
	assert.Equal(t, 1, h.provider.Len())
}

func TestTaskImportTaskwarriorFromStdin(t *testing.T) {
	h := newHarness(t)
	c := New(h.open)
	var out bytes.Buffer
	c.Command().SetOut(&out)
	c.Command().SetErr(&bytes.Buffer{})
	c.Command().SetIn(strings.NewReader(`[
{"uuid":"a","description":"Review PR","status":"pending","due":"20240110T150000Z","priority":"H"},
{"uuid":"b","description":"Gone","status":"deleted"}
]`))
	c.Command().SetArgs([]string{"--tz", "UTC", "task", "import"})
	require.NoError(t, c.Command().ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "Imported 1 tasks")

	tasks := h.tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "Review PR", tasks[0].Title)
	assert.Equal(t, model.PriorityHigh, tasks[0].Priority)
	assert.Equal(t, 0, h.provider.Len())
}

func TestDayMergesTasksAndEvents(t *testing.T) {
	h := newHarness(t)
	h.provider.Put(model.RemoteEvent{
		ID:      "lunch",
		Summary: "Lunch",
		Start:   model.EventTime{Instant: now.Add(4 * time.Hour)},
		End:     model.EventTime{Instant: now.Add(5 * time.Hour)},
	})
	h.mustRun("task", "add", "Write", "--due", "2024-01-10 09:00")
	h.mustRun("task", "add", "Tomorrow", "--due", "2024-01-11 09:00")

	out := h.mustRun("day")
	assert.Contains(t, out, "Wednesday, January 10, 2024")
	assert.Contains(t, out, "Write")
	assert.Contains(t, out, "Lunch")
	assert.Contains(t, out, "12:00 PM - 1:00 PM")
	assert.NotContains(t, out, "Tomorrow")
}

func TestDayFetchesDaysBeforeTheWindow(t *testing.T) {
	h := newHarness(t)
	h.provider.Put(model.RemoteEvent{
		ID:      "retro",
		Summary: "Retro",
		Start:   model.EventTime{Instant: now.AddDate(0, 0, -3)},
		End:     model.EventTime{Instant: now.AddDate(0, 0, -3).Add(time.Hour)},
	})

	out := h.mustRun("day", "2024-01-07")
	assert.Contains(t, out, "Retro")
}

func TestEventsRefreshWindow(t *testing.T) {
	h := newHarness(t)
	h.provider.Put(model.RemoteEvent{ID: "in", Summary: "Inside", Start: model.EventTime{Instant: now.AddDate(0, 0, 40)}})
	h.provider.Put(model.RemoteEvent{ID: "out", Summary: "Outside", Start: model.EventTime{Instant: now.AddDate(0, 0, 70)}})

	out := h.mustRun("events", "refresh", "--from", "2024-02-01", "--to", "2024-03-01")
	assert.Contains(t, out, "Inside")
	assert.NotContains(t, out, "Outside")

	_, err := h.run("events", "refresh", "--from", "2024-03-01", "--to", "2024-02-01")
	assert.Error(t, err)
}

func TestStatusJSON(t *testing.T) {
	h := newHarness(t)
	h.mustRun("task", "add", "Standup", "--due", "2024-01-10 09:00", "--sync")
	h.mustRun("task", "add", "Late", "--due", "2024-01-09 09:00")

	var env struct {
		Data statusReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(h.mustRun("--json", "status")), &env))
	assert.True(t, env.Data.Connected)
	assert.Equal(t, 2, env.Data.Tasks)
	assert.Equal(t, 1, env.Data.Synced)
	assert.Equal(t, 1, env.Data.Overdue)
	assert.Equal(t, 1, env.Data.Events)
}

func TestWindow(t *testing.T) {
	start, end, err := window("", "", now, time.UTC)
	require.NoError(t, err)
	assert.True(t, start.IsZero())
	assert.True(t, end.IsZero())

	start, end, err = window("2024-02-01", "", now, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), end)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), start)
}
