package cli

import (
	"context"
	"fmt"

	"github.com/harrisonrobin/planner/pkg/app"
	"github.com/harrisonrobin/planner/pkg/overdue"
	"github.com/spf13/cobra"
)

func (c *CLI) loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Connect your Google Calendar",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				if a.Gate.Authenticated() {
					fmt.Fprintln(cmd.OutOrStdout(), "Already connected to Google Calendar.")
					return nil
				}
				if err := a.Gate.Login(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Connected. %d upcoming events loaded.\n", len(a.Events.Events()))
				return nil
			})
		},
	}
}

func (c *CLI) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Disconnect Google Calendar and forget the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				err := a.Gate.Logout(ctx)
				fmt.Fprintln(cmd.OutOrStdout(), "Disconnected from Google Calendar.")
				if err != nil {
					return fmt.Errorf("signed out locally, but revoking the token failed: %w", err)
				}
				return nil
			})
		},
	}
}

type statusReport struct {
	Connected bool   `json:"connected"`
	Calendar  string `json:"calendar"`
	Storage   string `json:"storage"`
	Tasks     int    `json:"tasks"`
	Synced    int    `json:"synced"`
	Overdue   int    `json:"overdue"`
	Events    int    `json:"events"`
}

func (c *CLI) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show connection and task summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				tasks := a.Tasks.List()
				r := statusReport{
					Connected: a.Gate.Authenticated(),
					Calendar:  a.Config.CalendarID,
					Storage:   a.Config.Storage,
					Tasks:     len(tasks),
					Overdue:   len(overdue.Sweep(tasks, a.Now())),
					Events:    len(a.Events.Events()),
				}
				for _, t := range tasks {
					if t.Synced() {
						r.Synced++
					}
				}
				if c.flags.json {
					return writeJSON(cmd.OutOrStdout(), r, 0)
				}

				conn := "not connected"
				if r.Connected {
					conn = "connected"
				}
				return writeTable(cmd.OutOrStdout(), nil, [][]string{
					{"Google Calendar:", fmt.Sprintf("%s (%s)", conn, r.Calendar)},
					{"Storage:", r.Storage},
					{"Tasks:", fmt.Sprintf("%d (%d on calendar, %d overdue)", r.Tasks, r.Synced, r.Overdue)},
					{"Cached events:", fmt.Sprint(r.Events)},
				})
			})
		},
	}
}
