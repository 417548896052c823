package orgmode

import (
	"strings"
	"testing"
	"time"

	"github.com/harrisonrobin/planner/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `#+TITLE: Week
* TODO [#A] Write quarterly report :work:
  DEADLINE: <2024-01-12 Fri 17:00>
  :PROPERTIES:
  :EFFORT:   1:30
  :END:
* Notes
  DEADLINE: <2024-01-13 Sat>
** STARTED Pair on sync bug
   SCHEDULED: <2024-01-10 Wed 09:00> DEADLINE: <2024-01-11 Thu>
* DONE [#C] Water plants :home:
* TODO
`

func TestParse(t *testing.T) {
	tasks, err := Parse(strings.NewReader(sample), time.UTC, 30)
	require.NoError(t, err)
	require.Len(t, tasks, 3)

	report := tasks[0]
	assert.Equal(t, "Write quarterly report", report.Title)
	assert.Equal(t, model.PriorityHigh, report.Priority)
	assert.Equal(t, model.StatusTodo, report.Status)
	assert.Equal(t, "work", report.Category)
	assert.Equal(t, 90, report.EstimatedTime)
	assert.Equal(t, time.Date(2024, 1, 12, 17, 0, 0, 0, time.UTC), report.DueDate)

	pair := tasks[1]
	assert.Equal(t, "Pair on sync bug", pair.Title)
	assert.Equal(t, model.StatusInProgress, pair.Status)
	assert.Equal(t, time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC), pair.DueDate)
	assert.Equal(t, 30, pair.EstimatedTime)

	plants := tasks[2]
	assert.Equal(t, model.StatusCompleted, plants.Status)
	assert.Equal(t, model.PriorityLow, plants.Priority)
	assert.True(t, plants.DueDate.IsZero())

	assert.Len(t, FilterTasks(tasks, "home"), 1)
}
