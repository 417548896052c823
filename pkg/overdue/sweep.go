// Package overdue finds tasks whose calendar slot has passed unfinished.
package overdue

import (
	"sort"
	"time"

	"github.com/harrisonrobin/planner/pkg/model"
)

type Entry struct {
	Task model.Task
	// Late is how long ago the slot ended.
	Late time.Duration
}

// Sweep returns the tasks not completed by the end of their slot, most
// overdue first. Tasks without a due date never become overdue.
func Sweep(tasks []model.Task, now time.Time) []Entry {
	var swept []Entry
	for _, t := range tasks {
		if t.DueDate.IsZero() || t.Status == model.StatusCompleted {
			continue
		}
		end := t.DueDate.Add(t.Estimate())
		if end.Before(now) {
			swept = append(swept, Entry{Task: t, Late: now.Sub(end)})
		}
	}
	sort.SliceStable(swept, func(i, j int) bool { return swept[i].Late > swept[j].Late })
	return swept
}
