package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/harrisonrobin/planner/pkg/app"
	"github.com/harrisonrobin/planner/pkg/model"
	"github.com/harrisonrobin/planner/pkg/overdue"
	"github.com/harrisonrobin/planner/pkg/reconcile"
	"github.com/harrisonrobin/planner/pkg/syncerr"
	"github.com/harrisonrobin/planner/pkg/util"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type taskFlags struct {
	title       string
	description string
	due         string
	estimate    string
	actual      string
	priority    string
	status      string
	category    string
	sync        bool
	noSync      bool
}

func (f *taskFlags) register(fs *pflag.FlagSet, withTitle bool) {
	if withTitle {
		fs.StringVar(&f.title, "title", "", "Task title")
	}
	fs.StringVarP(&f.description, "description", "d", "", "Longer description")
	fs.StringVar(&f.due, "due", "", `Due date: "2024-01-10 09:00", RFC 3339, "today" or "tomorrow"`)
	fs.StringVarP(&f.estimate, "estimate", "e", "", "Estimated time: 45, 45m, 1h30m or PT1H30M")
	fs.StringVar(&f.actual, "actual", "", "Time actually spent")
	fs.StringVarP(&f.priority, "priority", "p", "", "low, medium or high")
	fs.StringVar(&f.status, "status", "", "todo, in-progress or completed")
	fs.StringVarP(&f.category, "category", "c", "", "Category shown on the day view")
	fs.BoolVar(&f.sync, "sync", false, "Keep the task on Google Calendar")
	fs.BoolVar(&f.noSync, "no-sync", false, "Remove the task from Google Calendar")
}

// apply overwrites the fields whose flags were set.
func (f *taskFlags) apply(fs *pflag.FlagSet, fields *model.TaskFields, now time.Time, loc *time.Location) error {
	if fs.Changed("title") {
		fields.Title = f.title
	}
	if fs.Changed("description") {
		fields.Description = f.description
	}
	if fs.Changed("due") {
		if strings.TrimSpace(f.due) == "" {
			fields.DueDate = time.Time{}
		} else {
			due, err := util.ParseWhen(f.due, now, loc)
			if err != nil {
				return err
			}
			fields.DueDate = due
		}
	}
	if fs.Changed("estimate") {
		m, err := util.ParseMinutes(f.estimate)
		if err != nil {
			return err
		}
		if m <= 0 {
			return fmt.Errorf("estimate must be positive, got %q", f.estimate)
		}
		fields.EstimatedTime = m
	}
	if fs.Changed("actual") {
		m, err := util.ParseMinutes(f.actual)
		if err != nil {
			return err
		}
		fields.ActualTime = m
	}
	if fs.Changed("priority") {
		p, err := model.ParsePriority(f.priority)
		if err != nil {
			return err
		}
		fields.Priority = p
	}
	if fs.Changed("status") {
		s, err := model.ParseStatus(f.status)
		if err != nil {
			return err
		}
		fields.Status = s
	}
	if fs.Changed("category") {
		fields.Category = f.category
	}
	return nil
}

// intent resolves --sync/--no-sync, falling back to def.
func (f *taskFlags) intent(def model.SyncIntent) (model.SyncIntent, error) {
	switch {
	case f.sync && f.noSync:
		return def, fmt.Errorf("--sync and --no-sync are mutually exclusive")
	case f.sync:
		return model.IntentKeep, nil
	case f.noSync:
		return model.IntentRemove, nil
	}
	return def, nil
}

func (c *CLI) taskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "task",
		Aliases: []string{"tasks"},
		Short:   "Manage tasks",
	}
	cmd.AddCommand(c.taskAddCmd())
	cmd.AddCommand(c.taskEditCmd())
	cmd.AddCommand(c.taskRmCmd())
	cmd.AddCommand(c.taskListCmd())
	cmd.AddCommand(c.taskSuggestCmd())
	cmd.AddCommand(c.taskImportCmd())
	return cmd
}

func (c *CLI) taskAddCmd() *cobra.Command {
	var f taskFlags
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				fields := model.TaskFields{
					Title:         strings.Join(args, " "),
					EstimatedTime: a.Config.DefaultEstimate,
					Priority:      model.PriorityMedium,
					Status:        model.StatusTodo,
				}
				if err := f.apply(cmd.Flags(), &fields, c.now(a), a.Location); err != nil {
					return err
				}
				if strings.TrimSpace(fields.Title) == "" {
					return fmt.Errorf("title must not be empty")
				}
				intent, err := f.intent(model.IntentRemove)
				if err != nil {
					return err
				}
				local, out := a.Reconciler.Save(ctx, reconcile.SaveRequest{Fields: fields, Intent: intent})
				return writeSave(cmd.OutOrStdout(), c.flags.json, local, out)
			})
		},
	}
	f.register(cmd.Flags(), false)
	return cmd
}

func (c *CLI) taskEditCmd() *cobra.Command {
	var f taskFlags
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a task",
		Long: `Edit a task. Only the flags you pass change. A task already on the
calendar stays there unless --no-sync is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				prior, err := resolveTask(a, args[0])
				if err != nil {
					return err
				}
				fields := model.FieldsOf(prior)
				if err := f.apply(cmd.Flags(), &fields, c.now(a), a.Location); err != nil {
					return err
				}
				if strings.TrimSpace(fields.Title) == "" {
					return fmt.Errorf("title must not be empty")
				}
				def := model.IntentRemove
				if prior.Synced() {
					def = model.IntentKeep
				}
				intent, err := f.intent(def)
				if err != nil {
					return err
				}
				local, out := a.Reconciler.Save(ctx, reconcile.SaveRequest{Prior: &prior, Fields: fields, Intent: intent})
				return writeSave(cmd.OutOrStdout(), c.flags.json, local, out)
			})
		},
	}
	f.register(cmd.Flags(), true)
	return cmd
}

func (c *CLI) taskRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task locally (its calendar event is kept)",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				t, err := resolveTask(a, args[0])
				if err != nil {
					return err
				}
				if err := a.Reconciler.Delete(ctx, t.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %s: %s\n", shortID(t.ID), t.Title)
				return nil
			})
		},
	}
}

func (c *CLI) taskListCmd() *cobra.Command {
	var onlyOverdue bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				tasks := a.Tasks.List()
				if onlyOverdue {
					tasks = nil
					for _, e := range overdue.Sweep(a.Tasks.List(), a.Now()) {
						tasks = append(tasks, e.Task)
					}
				}
				return writeTasks(cmd.OutOrStdout(), c.flags.json, tasks, a.Location)
			})
		},
	}
	cmd.Flags().BoolVar(&onlyOverdue, "overdue", false, "Only unfinished tasks whose slot has passed")
	return cmd
}

func (c *CLI) taskSuggestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "suggest <id>",
		Short: "Get planning suggestions for a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				t, err := resolveTask(a, args[0])
				if err != nil {
					return err
				}
				t, err = a.Reconciler.Suggest(ctx, t.ID, a.Advisor)
				if err != nil {
					return err
				}
				if c.flags.json {
					return writeJSON(cmd.OutOrStdout(), t.AISuggestions, len(t.AISuggestions))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Suggestions for %s:\n", t.Title)
				for _, s := range t.AISuggestions {
					fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", s)
				}
				return nil
			})
		},
	}
}

// resolveTask finds a task by id or unique id prefix.
func resolveTask(a *app.App, ref string) (model.Task, error) {
	if t, ok := a.Tasks.Get(ref); ok {
		return t, nil
	}
	var matches []model.Task
	for _, t := range a.Tasks.List() {
		if strings.HasPrefix(t.ID, ref) {
			matches = append(matches, t)
		}
	}
	switch len(matches) {
	case 0:
		return model.Task{}, syncerr.New(syncerr.NotFound, fmt.Sprintf("no task matches %q", ref))
	case 1:
		return matches[0], nil
	}
	return model.Task{}, fmt.Errorf("%q matches %d tasks, use more of the id", ref, len(matches))
}
