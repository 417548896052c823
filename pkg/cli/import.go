package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/harrisonrobin/planner/pkg/app"
	"github.com/harrisonrobin/planner/pkg/model"
	"github.com/harrisonrobin/planner/pkg/orgmode"
	"github.com/harrisonrobin/planner/pkg/reconcile"
	"github.com/harrisonrobin/planner/pkg/taskwarrior"
	"github.com/spf13/cobra"
)

const (
	formatTaskwarrior = "taskwarrior"
	formatOrg         = "org"
)

func (c *CLI) taskImportCmd() *cobra.Command {
	var (
		format   string
		sync     bool
		fromTask bool
		tag      string
	)
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import tasks from Taskwarrior JSON or an Org file",
		Long: `Import tasks from a Taskwarrior export or Org TODO headlines. With no
file, input is read from stdin. --from-task runs "task export" directly, passing
any extra arguments as the Taskwarrior filter.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				fields, err := readImport(cmd, format, fromTask, args, tag, a)
				if err != nil {
					return err
				}
				intent := model.IntentRemove
				if sync {
					intent = model.IntentKeep
				}

				var imported, failed int
				for _, f := range fields {
					local, out := a.Reconciler.Save(ctx, reconcile.SaveRequest{Fields: f, Intent: intent})
					if local.Err != nil {
						return local.Err
					}
					imported++
					if out.Failed() {
						failed++
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d tasks", imported)
				if failed > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), " (%d could not be added to the calendar)", failed)
				}
				fmt.Fprintln(cmd.OutOrStdout())
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatTaskwarrior, "Input format: taskwarrior or org")
	cmd.Flags().BoolVar(&sync, "sync", false, "Add imported tasks to Google Calendar")
	cmd.Flags().BoolVar(&fromTask, "from-task", false, "Run `task export` instead of reading input")
	cmd.Flags().StringVar(&tag, "tag", "", "Org only: import headlines tagged with this tag")
	return cmd
}

func readImport(cmd *cobra.Command, format string, fromTask bool, args []string, tag string, a *app.App) ([]model.TaskFields, error) {
	estimate := a.Config.DefaultEstimate

	switch format {
	case formatTaskwarrior:
		client := taskwarrior.NewClient()
		var tasks []taskwarrior.Task
		var err error
		if fromTask {
			tasks, err = client.Export(args)
		} else {
			var r io.ReadCloser
			r, err = openInput(cmd, args)
			if err != nil {
				return nil, err
			}
			defer r.Close()
			tasks, err = client.ParseTasks(r)
		}
		if err != nil {
			return nil, err
		}
		var out []model.TaskFields
		for _, t := range tasks {
			if t.Importable() {
				out = append(out, t.Fields(estimate))
			}
		}
		return out, nil

	case formatOrg:
		r, err := openInput(cmd, args)
		if err != nil {
			return nil, err
		}
		defer r.Close()
		tasks, err := orgmode.Parse(r, a.Location, estimate)
		if err != nil {
			return nil, err
		}
		if tag != "" {
			tasks = orgmode.FilterTasks(tasks, tag)
		}
		return tasks, nil
	}
	return nil, fmt.Errorf("unknown import format %q (want %s or %s)", format, formatTaskwarrior, formatOrg)
}

func openInput(cmd *cobra.Command, args []string) (io.ReadCloser, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	return os.Open(args[0])
}
