package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/harrisonrobin/planner/pkg/app"
	"github.com/harrisonrobin/planner/pkg/model"
	"github.com/harrisonrobin/planner/pkg/util"
	"github.com/spf13/cobra"
)

func (c *CLI) eventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Google Calendar events",
	}
	cmd.AddCommand(c.eventsRefreshCmd())
	cmd.AddCommand(c.eventsListCmd())
	return cmd
}

func (c *CLI) eventsRefreshCmd() *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Fetch events for a window (default: the next 30 days)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				if !a.Gate.Authenticated() {
					return fmt.Errorf("not connected to Google Calendar, run `planner login`")
				}
				start, end, err := window(from, to, c.now(a), a.Location)
				if err != nil {
					return err
				}
				if err := a.Events.Refresh(ctx, start, end); err != nil {
					return err
				}
				return writeEvents(cmd, c.flags.json, a.Events.Events(), a.Location)
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Window start date")
	cmd.Flags().StringVar(&to, "to", "", "Window end date (exclusive)")
	return cmd
}

func (c *CLI) eventsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List events of the default window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				return writeEvents(cmd, c.flags.json, a.Events.Events(), a.Location)
			})
		},
	}
}

func (c *CLI) dayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "day [date]",
		Short: "Show tasks and events of one day (default today)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				day := c.now(a)
				if len(args) == 1 {
					d, err := util.ParseWhen(args[0], day, a.Location)
					if err != nil {
						return err
					}
					day = d
				}
				// the startup refresh covers [now, now+window); earlier days need their own fetch
				if a.Gate.Authenticated() && !inWindow(a, day) {
					start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, a.Location)
					if err := a.Events.Refresh(ctx, start, start.AddDate(0, 0, 1)); err != nil {
						return err
					}
				}
				if !c.flags.json {
					fmt.Fprintln(cmd.OutOrStdout(), day.Format("Monday, January 2, 2006"))
				}
				return writeTimeline(cmd.OutOrStdout(), c.flags.json, a.Events.ForDay(day, a.Tasks.List()))
			})
		},
	}
}

func inWindow(a *app.App, day time.Time) bool {
	start, end, _ := a.Events.Window()
	if start.IsZero() {
		return false
	}
	start = start.In(a.Location)
	first := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, a.Location)
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, a.Location)
	return !dayStart.Before(first) && dayStart.Before(end)
}

func window(from, to string, now time.Time, loc *time.Location) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error
	if from != "" {
		if start, err = util.ParseWhen(from, now, loc); err != nil {
			return start, end, err
		}
	}
	if to != "" {
		if end, err = util.ParseWhen(to, now, loc); err != nil {
			return start, end, err
		}
	}
	if !start.IsZero() && end.IsZero() {
		end = start.AddDate(0, 0, 30)
	}
	if start.IsZero() && !end.IsZero() {
		start = now
	}
	if !start.IsZero() && !end.After(start) {
		return start, end, fmt.Errorf("window end must be after its start")
	}
	return start, end, nil
}

func writeEvents(cmd *cobra.Command, asJSON bool, events []model.RemoteEvent, loc *time.Location) error {
	if asJSON {
		if events == nil {
			events = []model.RemoteEvent{}
		}
		return writeJSON(cmd.OutOrStdout(), events, len(events))
	}
	if len(events) == 0 {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "No events.")
		return err
	}
	rows := make([][]string, 0, len(events))
	for _, ev := range events {
		when := util.AllDayLabel
		if !ev.Start.AllDay() {
			when = ev.Start.Instant.In(loc).Format("2006-01-02 15:04")
		} else if ev.Start.Date != "" {
			when = ev.Start.Date + " (all day)"
		}
		rows = append(rows, []string{when, ev.Summary, ev.ID})
	}
	return writeTable(cmd.OutOrStdout(), []string{"WHEN", "SUMMARY", "ID"}, rows)
}
