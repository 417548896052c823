// Package suggest produces planning hints for a task.
package suggest

import (
	"context"

	"github.com/harrisonrobin/planner/pkg/model"
)

// Advisor returns an ordered list of suggestions for a task.
type Advisor interface {
	Suggest(ctx context.Context, t model.Task) ([]string, error)
}

// Defaults are the hints every task receives from the Static advisor.
var Defaults = []string{
	"Break this task into smaller subtasks",
	"Schedule this during your peak productivity hours (9-11 AM)",
	"Consider collaborating with team members",
}

// Static hands out the same fixed list for every task.
type Static struct {
	List []string
}

func NewStatic() Static {
	return Static{List: Defaults}
}

func (s Static) Suggest(_ context.Context, _ model.Task) ([]string, error) {
	out := make([]string, len(s.List))
	copy(out, s.List)
	return out, nil
}

// Func adapts a function to Advisor.
type Func func(ctx context.Context, t model.Task) ([]string, error)

func (f Func) Suggest(ctx context.Context, t model.Task) ([]string, error) { return f(ctx, t) }
