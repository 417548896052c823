package taskwarrior

import (
	"fmt"
	"strings"
	"time"

	"github.com/harrisonrobin/planner/pkg/model"
	"github.com/harrisonrobin/planner/pkg/util"
)

const (
	PENDING   = "pending"
	COMPLETED = "completed"
	WAITING   = "waiting"
	DELETED   = "deleted"
)

type CustomTime struct {
	time.Time
}

const taskwarriorTimeLayout = "20060102T150405Z" // YYYYMMDDTHHMMSSZ, always UTC

// UnmarshalJSON implements the json.Unmarshaler interface for CustomTime.
func (ct *CustomTime) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "0" {
		ct.Time = time.Time{}
		return nil
	}

	t, err := time.Parse(taskwarriorTimeLayout, s)
	if err != nil {
		return fmt.Errorf("failed to parse Taskwarrior time string '%s': %w", s, err)
	}
	ct.Time = t
	return nil
}

// MarshalJSON implements the json.Marshaler interface for CustomTime.
func (ct CustomTime) MarshalJSON() ([]byte, error) {
	if ct.Time.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + ct.Time.Format(taskwarriorTimeLayout) + `"`), nil
}

// Task is one entry of `task export`.
type Task struct {
	UUID        string      `json:"uuid"`
	Description string      `json:"description"`
	Due         *CustomTime `json:"due,omitempty"`
	Scheduled   *CustomTime `json:"scheduled,omitempty"`
	Status      string      `json:"status"`
	Project     string      `json:"project,omitempty"`
	Priority    string      `json:"priority,omitempty"`
	Tags        []string    `json:"tags,omitempty"`
	Annotations []struct {
		Description string      `json:"description"`
		Entry       *CustomTime `json:"entry"`
	} `json:"annotations,omitempty"`
	Start *CustomTime `json:"start,omitempty"`
	End   *CustomTime `json:"end,omitempty"`
	// est and act are the estimate/actual UDAs, as duration strings.
	Est string `json:"est,omitempty"`
	Act string `json:"act,omitempty"`
}

// Importable reports whether t is live work worth bringing over.
func (t Task) Importable() bool {
	return t.Description != "" && t.Status != DELETED
}

// Fields maps t onto the task editor fields. Scheduled wins over due as the
// start of the slot; annotations become the description.
func (t Task) Fields(defaultEstimate int) model.TaskFields {
	f := model.TaskFields{
		Title:         t.Description,
		EstimatedTime: defaultEstimate,
		Priority:      priorityOf(t.Priority),
		Status:        model.StatusTodo,
		Category:      t.Project,
	}
	switch {
	case t.Scheduled != nil && !t.Scheduled.IsZero():
		f.DueDate = t.Scheduled.Time
	case t.Due != nil && !t.Due.IsZero():
		f.DueDate = t.Due.Time
	}
	switch {
	case t.Status == COMPLETED:
		f.Status = model.StatusCompleted
	case t.Start != nil && !t.Start.IsZero():
		f.Status = model.StatusInProgress
	}
	if m, err := util.ParseMinutes(t.Est); err == nil && m > 0 {
		f.EstimatedTime = m
	}
	if m, err := util.ParseMinutes(t.Act); err == nil && m > 0 {
		f.ActualTime = m
	}

	var notes []string
	for _, a := range t.Annotations {
		notes = append(notes, a.Description)
	}
	f.Description = strings.Join(notes, "\n")
	return f
}

func priorityOf(p string) model.Priority {
	switch strings.ToUpper(p) {
	case "H":
		return model.PriorityHigh
	case "L":
		return model.PriorityLow
	}
	return model.PriorityMedium
}
