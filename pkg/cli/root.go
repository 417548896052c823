// Package cli is the planner command line.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/harrisonrobin/planner/pkg/app"
	"github.com/harrisonrobin/planner/pkg/config"
	"github.com/harrisonrobin/planner/pkg/logging"
	"github.com/spf13/cobra"
)

// Opener builds the application for one command run.
type Opener func(ctx context.Context, opts app.Options) (*app.App, error)

type globalFlags struct {
	configPath string
	calendar   string
	storage    string
	dataDir    string
	timeZone   string
	offline    bool
	verbose    bool
	json       bool
}

type CLI struct {
	root  *cobra.Command
	flags globalFlags
	open  Opener
}

// New builds the command tree. A nil opener uses app.Open.
func New(open Opener) *CLI {
	if open == nil {
		open = app.Open
	}
	c := &CLI{open: open}
	c.root = &cobra.Command{
		Use:   "planner",
		Short: "Plan tasks and keep them on your Google Calendar",
		Long: `planner keeps a local task list and mirrors tasks you choose onto your
Google Calendar. Tasks always save locally; calendar sync happens when you are
signed in.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := c.root.PersistentFlags()
	pf.StringVar(&c.flags.configPath, "config", "", "Config file (default ~/.config/planner/config.json)")
	pf.StringVar(&c.flags.calendar, "calendar", "", "Calendar id or name to sync with (overrides config)")
	pf.StringVar(&c.flags.storage, "storage", "", "Storage backend: sqlite or file (overrides config)")
	pf.StringVar(&c.flags.dataDir, "data-dir", "", "Directory for local task data (overrides config)")
	pf.StringVar(&c.flags.timeZone, "tz", "", "IANA time zone for dates and events (overrides config)")
	pf.BoolVar(&c.flags.offline, "offline", false, "Use an in-process calendar instead of Google")
	pf.BoolVarP(&c.flags.verbose, "verbose", "v", false, "Enable debug logging")
	pf.BoolVar(&c.flags.json, "json", false, "Write JSON output")

	c.root.AddCommand(c.loginCmd())
	c.root.AddCommand(c.logoutCmd())
	c.root.AddCommand(c.statusCmd())
	c.root.AddCommand(c.taskCmd())
	c.root.AddCommand(c.eventsCmd())
	c.root.AddCommand(c.dayCmd())
	return c
}

func (c *CLI) Command() *cobra.Command { return c.root }

// Execute runs the root command.
func Execute(ctx context.Context, version string) error {
	c := New(nil)
	c.root.Version = version
	if err := c.root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

// loadConfig applies flag > config file > default.
func (c *CLI) loadConfig() (*config.Config, string, error) {
	var (
		cfg *config.Config
		dir string
		err error
	)
	if c.flags.configPath != "" {
		cfg, err = config.LoadFile(c.flags.configPath)
		dir = filepath.Dir(c.flags.configPath)
	} else {
		cfg, err = config.Load()
		if err == nil {
			dir, err = config.Dir()
		}
	}
	if err != nil {
		return nil, "", fmt.Errorf("could not load config: %w", err)
	}

	if c.flags.calendar != "" {
		cfg.CalendarID = c.flags.calendar
	}
	if c.flags.storage != "" {
		cfg.Storage = c.flags.storage
	}
	if c.flags.dataDir != "" {
		cfg.DataDir = c.flags.dataDir
	}
	if c.flags.timeZone != "" {
		cfg.TimeZone = c.flags.timeZone
	}
	if c.flags.verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, dir, cfg.Validate()
}

// withApp opens the application around fn and closes it afterwards.
func (c *CLI) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, dir, err := c.loadConfig()
	if err != nil {
		return err
	}
	log := logging.New(cmd.ErrOrStderr(), logging.ParseLevel(cfg.LogLevel))

	a, err := c.open(ctx, app.Options{
		Config:    cfg,
		ConfigDir: dir,
		Offline:   c.flags.offline,
		Out:       cmd.OutOrStdout(),
		Log:       log,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("closing storage failed", logging.Fields{"error": err})
		}
	}()
	return fn(ctx, a)
}

func (c *CLI) now(a *app.App) time.Time {
	return a.Now().In(a.Location)
}
