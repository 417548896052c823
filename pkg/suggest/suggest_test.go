package suggest

import (
	"context"
	"testing"

	"github.com/harrisonrobin/planner/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticReturnsCopy(t *testing.T) {
	s := NewStatic()

	got, err := s.Suggest(context.Background(), model.Task{ID: "t1", Title: "Plan sprint"})
	require.NoError(t, err)
	assert.Equal(t, Defaults, got)

	got[0] = "changed"
	assert.Equal(t, "Break this task into smaller subtasks", Defaults[0])
}
