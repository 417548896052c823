// Package orgmode reads TODO headlines from Org files as planner tasks.
package orgmode

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/harrisonrobin/planner/pkg/model"
)

var (
	headlineRegex = regexp.MustCompile(`^\*+\s+(TODO|NEXT|STARTED|DONE)\s*(?:\[#([A-Z])\])?\s*(.*?)(?:\s+(:(\w+(:\w+)*):))?\s*$`)
	deadlineRegex = regexp.MustCompile(`DEADLINE:\s+<(\d{4}-\d{2}-\d{2})(?:\s+[A-Za-z]{3})?(?:\s+(\d{2}:\d{2}))?[^>]*>`)
	scheduleRegex = regexp.MustCompile(`SCHEDULED:\s+<(\d{4}-\d{2}-\d{2})(?:\s+[A-Za-z]{3})?(?:\s+(\d{2}:\d{2}))?[^>]*>`)
	effortRegex   = regexp.MustCompile(`:EFFORT:\s+(\d+):(\d{2})`)
)

// ParseFile parses one Org file.
func ParseFile(filePath string, loc *time.Location, defaultEstimate int) ([]model.TaskFields, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Parse(file, loc, defaultEstimate)
}

// Parse returns one TaskFields per TODO-like headline. SCHEDULED wins over
// DEADLINE as the due date; :EFFORT: becomes the estimate.
func Parse(r io.Reader, loc *time.Location, defaultEstimate int) ([]model.TaskFields, error) {
	scanner := bufio.NewScanner(r)
	var tasks []model.TaskFields
	var current *model.TaskFields
	var deadline, scheduled time.Time

	flush := func() {
		if current == nil || current.Title == "" {
			return
		}
		current.DueDate = deadline
		if !scheduled.IsZero() {
			current.DueDate = scheduled
		}
		tasks = append(tasks, *current)
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if strings.HasPrefix(line, "*") {
			flush()
			current, deadline, scheduled = nil, time.Time{}, time.Time{}
			matches := headlineRegex.FindStringSubmatch(line)
			if matches == nil {
				continue
			}
			current = &model.TaskFields{
				Title:         strings.TrimSpace(matches[3]),
				EstimatedTime: defaultEstimate,
				Priority:      priorityOf(matches[2]),
				Status:        statusOf(matches[1]),
			}
			if matches[5] != "" {
				current.Category = strings.Split(matches[5], ":")[0]
			}
			continue
		}
		if current == nil {
			continue
		}

		if m := deadlineRegex.FindStringSubmatch(line); m != nil {
			deadline = stamp(m[1], m[2], loc)
		}
		if m := scheduleRegex.FindStringSubmatch(line); m != nil {
			scheduled = stamp(m[1], m[2], loc)
		}
		if m := effortRegex.FindStringSubmatch(line); m != nil {
			current.EstimatedTime = atoi(m[1])*60 + atoi(m[2])
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

// FilterTasks keeps tasks whose category equals filter.
func FilterTasks(tasks []model.TaskFields, filter string) []model.TaskFields {
	var filteredTasks []model.TaskFields
	for _, task := range tasks {
		if task.Category == filter {
			filteredTasks = append(filteredTasks, task)
		}
	}
	return filteredTasks
}

func stamp(date, clock string, loc *time.Location) time.Time {
	if clock == "" {
		t, err := time.ParseInLocation("2006-01-02", date, loc)
		if err != nil {
			return time.Time{}
		}
		return t
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, loc)
	if err != nil {
		return time.Time{}
	}
	return t
}

func priorityOf(p string) model.Priority {
	switch p {
	case "A":
		return model.PriorityHigh
	case "C":
		return model.PriorityLow
	}
	return model.PriorityMedium
}

func statusOf(keyword string) model.Status {
	switch keyword {
	case "DONE":
		return model.StatusCompleted
	case "STARTED":
		return model.StatusInProgress
	}
	return model.StatusTodo
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}
