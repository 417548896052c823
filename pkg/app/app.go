// Package app owns the planner's long-lived state and wires its components
// together. Open builds everything; Close tears it down.
package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/harrisonrobin/planner/pkg/agenda"
	"github.com/harrisonrobin/planner/pkg/auth"
	"github.com/harrisonrobin/planner/pkg/config"
	"github.com/harrisonrobin/planner/pkg/google"
	"github.com/harrisonrobin/planner/pkg/logging"
	"github.com/harrisonrobin/planner/pkg/reconcile"
	"github.com/harrisonrobin/planner/pkg/remote"
	"github.com/harrisonrobin/planner/pkg/session"
	"github.com/harrisonrobin/planner/pkg/storage"
	"github.com/harrisonrobin/planner/pkg/suggest"
	"github.com/harrisonrobin/planner/pkg/taskstore"
)

type Options struct {
	Config *config.Config
	// ConfigDir holds credentials.json and token.json.
	ConfigDir string
	// Offline swaps the Google provider for an in-process one.
	Offline bool
	// Out receives the consent URL during sign in.
	Out io.Writer
	Log logging.Logger
	// Remote overrides the provider, mainly for tests.
	Remote remote.Client
	// Backend overrides the storage backend, mainly for tests.
	Backend storage.Backend
	Now     func() time.Time
}

type App struct {
	Config     *config.Config
	Log        logging.Logger
	Location   *time.Location
	Tasks      *taskstore.Store
	Gate       *session.Gate
	Remote     remote.Client
	Events     *agenda.Cache
	Reconciler *reconcile.Reconciler
	Advisor    suggest.Advisor
	Now        func() time.Time

	backend storage.Backend
}

// Open initialises storage, the task store and the session, restoring a
// stored sign-in when there is one.
func Open(ctx context.Context, opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	log := opts.Log
	if log == nil {
		log = logging.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	backend := opts.Backend
	if backend == nil {
		dataDir, err := cfg.ResolveDataDir()
		if err != nil {
			return nil, fmt.Errorf("could not resolve data directory: %w", err)
		}
		backend, err = storage.Open(cfg.Storage, dataDir)
		if err != nil {
			return nil, fmt.Errorf("could not open %s storage: %w", cfg.Storage, err)
		}
	}

	tasks, err := taskstore.Open(ctx, backend, log)
	if err != nil {
		backend.Close()
		return nil, err
	}

	authenticator, client := providers(opts, cfg, loc, log)
	gate := session.NewGate(authenticator, log)
	events := agenda.New(client, gate,
		agenda.WithLogger(log),
		agenda.WithLocation(loc),
		agenda.WithWindowDays(cfg.RefreshDays),
		agenda.WithClock(now),
	)
	if gc, ok := client.(*google.CalendarClient); ok && needsLookup(cfg.CalendarID) {
		gate.Subscribe(&calendarResolver{client: gc, name: cfg.CalendarID, log: log})
	}
	gate.Subscribe(events)

	rec := reconcile.New(tasks, client, gate,
		reconcile.WithLogger(log),
		reconcile.WithObserver(events),
		reconcile.WithTimeZone(cfg.ZoneName()),
	)

	a := &App{
		Config:     cfg,
		Log:        log,
		Location:   loc,
		Tasks:      tasks,
		Gate:       gate,
		Remote:     client,
		Events:     events,
		Reconciler: rec,
		Advisor:    suggest.NewStatic(),
		Now:        now,
		backend:    backend,
	}
	if gate.Restore(ctx) {
		log.Debug("restored previous session", nil)
	}
	return a, nil
}

func (a *App) Close() error {
	return a.backend.Close()
}

func providers(opts Options, cfg *config.Config, loc *time.Location, log logging.Logger) (session.Authenticator, remote.Client) {
	switch {
	case opts.Remote != nil:
		return offlineAuth{}, opts.Remote
	case opts.Offline:
		return offlineAuth{}, remote.NewMemory()
	}

	oauthCfg, err := auth.LoadConfig(opts.ConfigDir, log)
	if err != nil {
		log.Warn("google calendar is not configured, tasks stay local", logging.Fields{"error": err})
		missing := unconfigured{err: err}
		return missing, google.NewClient(missing, cfg.CalendarID, loc)
	}
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	oauth := auth.NewOAuth(oauthCfg, filepath.Join(opts.ConfigDir, auth.TokenFile), out, log)
	return oauth, google.NewClient(oauth, cfg.CalendarID, loc)
}

// needsLookup reports whether id is a calendar name rather than an id.
func needsLookup(id string) bool {
	return id != "" && id != google.PrimaryCalendar && !strings.Contains(id, "@")
}

type calendarResolver struct {
	client *google.CalendarClient
	name   string
	log    logging.Logger
}

func (r *calendarResolver) SessionStarted(ctx context.Context) {
	id, err := r.client.ResolveCalendarID(ctx, r.name)
	if err != nil {
		r.log.Warn("could not resolve calendar, using primary", logging.Fields{"calendar": r.name, "error": err})
		id = google.PrimaryCalendar
	}
	r.client.UseCalendar(id)
}

func (r *calendarResolver) SessionEnded() {}

// offlineAuth always has a session; it backs the in-process provider.
type offlineAuth struct{}

func (offlineAuth) Login(context.Context) error           { return nil }
func (offlineAuth) Logout(context.Context) error          { return nil }
func (offlineAuth) Restore(context.Context) (bool, error) { return true, nil }

// unconfigured stands in for OAuth when credentials.json is missing.
type unconfigured struct {
	err error
}

func (u unconfigured) Login(context.Context) error {
	return fmt.Errorf("cannot sign in: %w", u.err)
}

func (u unconfigured) Logout(context.Context) error          { return nil }
func (u unconfigured) Restore(context.Context) (bool, error) { return false, nil }

func (u unconfigured) HTTPClient(context.Context) (*http.Client, error) {
	return nil, auth.ErrNoToken
}
