package overdue

import (
	"testing"
	"time"

	"github.com/harrisonrobin/planner/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweep(t *testing.T) {
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	tasks := []model.Task{
		{ID: "running", DueDate: now.Add(-20 * time.Minute), EstimatedTime: 30},
		{ID: "late", DueDate: now.Add(-2 * time.Hour), EstimatedTime: 60},
		{ID: "later", DueDate: now.AddDate(0, 0, -1)},
		{ID: "done", DueDate: now.AddDate(0, 0, -1), Status: model.StatusCompleted},
		{ID: "undated"},
		{ID: "future", DueDate: now.Add(time.Hour)},
	}

	swept := Sweep(tasks, now)
	require.Len(t, swept, 2)
	assert.Equal(t, "later", swept[0].Task.ID)
	assert.Equal(t, "late", swept[1].Task.ID)
	assert.Equal(t, time.Hour, swept[1].Late)
}
