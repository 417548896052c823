package agenda

import (
	"sort"
	"time"

	"github.com/harrisonrobin/planner/pkg/model"
	"github.com/harrisonrobin/planner/pkg/util"
)

const (
	TaskCategory  = "Task"
	EventCategory = "Google Calendar"
)

// Merge builds the timeline of one calendar day in loc. Tasks are placed by
// due date, events by their start; anything dated on another day is left
// out. All-day items come first, the rest by start time. Ties keep tasks
// ahead of events.
func Merge(day time.Time, tasks []model.Task, events []model.RemoteEvent, loc *time.Location) []model.TimelineItem {
	y, m, d := day.In(loc).Date()

	var items []model.TimelineItem
	for _, t := range tasks {
		if t.DueDate.IsZero() || !util.SameDay(t.DueDate, day, loc) {
			continue
		}
		items = append(items, taskItem(t, loc))
	}
	for _, ev := range events {
		ey, em, ed, ok := ev.Start.LocalDate(loc)
		if !ok || ey != y || em != m || ed != d {
			continue
		}
		items = append(items, eventItem(ev, loc))
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].AllDay != items[j].AllDay {
			return items[i].AllDay
		}
		return items[i].Start.Before(items[j].Start)
	})
	return items
}

func taskItem(t model.Task, loc *time.Location) model.TimelineItem {
	category := t.Category
	if category == "" {
		category = TaskCategory
	}
	return model.TimelineItem{
		ID:            t.ID,
		Title:         t.Title,
		StartLabel:    util.ClockLabel(t.DueDate, loc),
		DurationLabel: util.MinutesLabel(int(t.Estimate() / time.Minute)),
		Category:      category,
		IsTask:        true,
		Priority:      t.Priority,
		Start:         t.DueDate,
	}
}

func eventItem(ev model.RemoteEvent, loc *time.Location) model.TimelineItem {
	item := model.TimelineItem{
		ID:            ev.ID,
		Title:         ev.Summary,
		StartLabel:    util.AllDayLabel,
		DurationLabel: util.AllDayLabel,
		Category:      EventCategory,
		AllDay:        ev.Start.AllDay(),
		Start:         ev.Start.Time(loc),
	}
	if item.AllDay {
		return item
	}
	item.StartLabel = util.ClockLabel(ev.Start.Instant, loc)
	if !ev.End.AllDay() {
		item.DurationLabel = util.RangeLabel(ev.Start.Instant, ev.End.Instant, loc)
	}
	return item
}
