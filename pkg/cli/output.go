package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/harrisonrobin/planner/pkg/model"
	"github.com/harrisonrobin/planner/pkg/reconcile"
	"github.com/harrisonrobin/planner/pkg/util"
)

type envelope struct {
	Data interface{} `json:"data"`
	Meta meta        `json:"meta"`
}

type meta struct {
	Count int `json:"count,omitempty"`
}

func writeJSON(out io.Writer, data interface{}, count int) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(envelope{Data: data, Meta: meta{Count: count}})
}

func writeTable(out io.Writer, header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	if len(header) > 0 {
		fmt.Fprintln(tw, strings.Join(header, "\t"))
	}
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func dueLabel(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "-"
	}
	return t.In(loc).Format("2006-01-02 15:04")
}

func syncLabel(t model.Task) string {
	if t.Synced() {
		return "synced"
	}
	return "not synced"
}

func taskRows(tasks []model.Task, loc *time.Location) [][]string {
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, []string{
			shortID(t.ID),
			t.Title,
			dueLabel(t.DueDate, loc),
			util.MinutesLabel(int(t.Estimate() / time.Minute)),
			string(t.Priority),
			string(t.Status),
			syncLabel(t),
		})
	}
	return rows
}

var taskHeader = []string{"ID", "TITLE", "DUE", "EST", "PRIORITY", "STATUS", "CALENDAR"}

func writeTasks(out io.Writer, asJSON bool, tasks []model.Task, loc *time.Location) error {
	if asJSON {
		if tasks == nil {
			tasks = []model.Task{}
		}
		return writeJSON(out, tasks, len(tasks))
	}
	if len(tasks) == 0 {
		_, err := fmt.Fprintln(out, "No tasks.")
		return err
	}
	return writeTable(out, taskHeader, taskRows(tasks, loc))
}

// saveReport describes both halves of a save for the user.
type saveReport struct {
	Task    model.Task `json:"task"`
	Created bool       `json:"created"`
	Sync    syncReport `json:"sync"`
}

type syncReport struct {
	Action  reconcile.Action    `json:"action"`
	State   reconcile.SyncState `json:"state"`
	EventID string              `json:"eventId,omitempty"`
	Error   string              `json:"error,omitempty"`
	Kind    string              `json:"kind,omitempty"`
}

func newSaveReport(local reconcile.LocalSaveResult, out reconcile.RemoteSyncOutcome) saveReport {
	r := saveReport{
		Task:    local.Task,
		Created: local.Created,
		Sync:    syncReport{Action: out.Action, State: out.State, EventID: out.EventID},
	}
	if out.Err != nil {
		r.Sync.Error = out.Err.Error()
		r.Sync.Kind = string(out.Kind())
	}
	return r
}

func writeSave(w io.Writer, asJSON bool, local reconcile.LocalSaveResult, out reconcile.RemoteSyncOutcome) error {
	if asJSON {
		return writeJSON(w, newSaveReport(local, out), 0)
	}
	verb := "Updated"
	if local.Created {
		verb = "Added"
	}
	fmt.Fprintf(w, "%s task %s: %s\n", verb, shortID(local.Task.ID), local.Task.Title)
	if local.Err != nil {
		fmt.Fprintf(w, "Warning: saved in memory but not on disk: %v\n", local.Err)
	}

	switch {
	case out.Err != nil:
		fmt.Fprintf(w, "Calendar sync failed (%s): %v\n", out.Kind(), out.Err)
	case out.Action == reconcile.ActionCreate || out.Action == reconcile.ActionRepair:
		fmt.Fprintf(w, "Added to Google Calendar (%s)\n", out.EventID)
	case out.Action == reconcile.ActionUpdate:
		fmt.Fprintln(w, "Google Calendar event updated")
	case out.Action == reconcile.ActionDelete:
		fmt.Fprintln(w, "Removed from Google Calendar")
	case out.Action == reconcile.ActionSkipped:
		fmt.Fprintln(w, "Not synced: a calendar event needs a title and a due date")
	}
	return nil
}

func writeTimeline(out io.Writer, asJSON bool, items []model.TimelineItem) error {
	if asJSON {
		if items == nil {
			items = []model.TimelineItem{}
		}
		return writeJSON(out, items, len(items))
	}
	if len(items) == 0 {
		_, err := fmt.Fprintln(out, "Nothing scheduled.")
		return err
	}
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		kind := it.Category
		if it.IsTask && it.Priority != "" {
			kind = fmt.Sprintf("%s (%s)", kind, it.Priority)
		}
		rows = append(rows, []string{it.StartLabel, it.Title, it.DurationLabel, kind})
	}
	return writeTable(out, []string{"TIME", "TITLE", "DURATION", "CATEGORY"}, rows)
}
