package model

import (
	"fmt"
	"time"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func ParsePriority(s string) (Priority, error) {
	switch p := Priority(s); p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p, nil
	}
	return "", fmt.Errorf("invalid priority %q (want low, medium or high)", s)
}

type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusTodo, StatusInProgress, StatusCompleted:
		return st, nil
	}
	return "", fmt.Errorf("invalid status %q (want todo, in-progress or completed)", s)
}

// DefaultEstimate is used when a task's estimate is missing or not positive.
const DefaultEstimate = 30

// Task is a locally owned task record.
type Task struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	DueDate        time.Time `json:"dueDate"`
	EstimatedTime  int       `json:"estimatedTime"` // minutes
	ActualTime     int       `json:"actualTime,omitempty"`
	Priority       Priority  `json:"priority"`
	Status         Status    `json:"status"`
	Category       string    `json:"category,omitempty"`
	RemoteEventRef string    `json:"remoteEventRef,omitempty"`
	AISuggestions  []string  `json:"aiSuggestions,omitempty"`
}

// Synced reports whether the task carries a remote event reference.
func (t Task) Synced() bool { return t.RemoteEventRef != "" }

// Estimate returns the estimate as a duration, falling back to DefaultEstimate.
func (t Task) Estimate() time.Duration {
	return EstimateDuration(t.EstimatedTime)
}

func EstimateDuration(minutes int) time.Duration {
	if minutes <= 0 {
		minutes = DefaultEstimate
	}
	return time.Duration(minutes) * time.Minute
}

// Clone returns a copy that shares no slices with t.
func (t Task) Clone() Task {
	if t.AISuggestions != nil {
		t.AISuggestions = append([]string(nil), t.AISuggestions...)
	}
	return t
}

// TaskFields are the values submitted from the task editor.
type TaskFields struct {
	Title         string
	Description   string
	DueDate       time.Time
	EstimatedTime int
	ActualTime    int
	Priority      Priority
	Status        Status
	Category      string
}

// FieldsOf extracts the editable fields of t.
func FieldsOf(t Task) TaskFields {
	return TaskFields{
		Title:         t.Title,
		Description:   t.Description,
		DueDate:       t.DueDate,
		EstimatedTime: t.EstimatedTime,
		ActualTime:    t.ActualTime,
		Priority:      t.Priority,
		Status:        t.Status,
		Category:      t.Category,
	}
}

// Patch converts submitted fields into a full TaskPatch.
func (f TaskFields) Patch() TaskPatch {
	return TaskPatch{
		Title:         &f.Title,
		Description:   &f.Description,
		DueDate:       &f.DueDate,
		EstimatedTime: &f.EstimatedTime,
		ActualTime:    &f.ActualTime,
		Priority:      &f.Priority,
		Status:        &f.Status,
		Category:      &f.Category,
	}
}

// TaskPatch is a partial update. It deliberately has no RemoteEventRef field.
type TaskPatch struct {
	Title         *string
	Description   *string
	DueDate       *time.Time
	EstimatedTime *int
	ActualTime    *int
	Priority      *Priority
	Status        *Status
	Category      *string
}

// Apply writes the non-nil patch fields onto t.
func (p TaskPatch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
	if p.EstimatedTime != nil {
		t.EstimatedTime = *p.EstimatedTime
	}
	if p.ActualTime != nil {
		t.ActualTime = *p.ActualTime
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
}

// SyncIntent is the per-save choice of whether the task keeps a remote event.
type SyncIntent int

const (
	IntentRemove SyncIntent = iota
	IntentKeep
)

func (i SyncIntent) String() string {
	if i == IntentKeep {
		return "keep"
	}
	return "remove"
}
