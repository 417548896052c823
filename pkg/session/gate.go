// Package session tracks whether the user is connected to the calendar
// provider and gates every remote operation on it.
package session

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/harrisonrobin/planner/pkg/logging"
	"github.com/harrisonrobin/planner/pkg/syncerr"
)

// Authenticator runs the provider's consent flow and token lifecycle.
type Authenticator interface {
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Restore(ctx context.Context) (bool, error)
}

// Listener is notified of session transitions. SessionStarted runs after the
// gate reports authenticated; SessionEnded runs after it reports signed out.
type Listener interface {
	SessionStarted(ctx context.Context)
	SessionEnded()
}

type Gate struct {
	auth          Authenticator
	log           logging.Logger
	authenticated atomic.Bool
	busy          atomic.Bool

	mu        sync.Mutex
	listeners []Listener
}

func NewGate(auth Authenticator, log logging.Logger) *Gate {
	if log == nil {
		log = logging.NewNop()
	}
	return &Gate{auth: auth, log: log.WithPrefix("session")}
}

func (g *Gate) Subscribe(l Listener) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listeners = append(g.listeners, l)
}

func (g *Gate) Authenticated() bool {
	return g.authenticated.Load()
}

// Login runs the consent flow. A Login or Logout already in flight makes it
// fail with SessionBusy.
func (g *Gate) Login(ctx context.Context) error {
	if !g.busy.CompareAndSwap(false, true) {
		return syncerr.New(syncerr.SessionBusy, "a sign-in or sign-out is already in progress")
	}
	defer g.busy.Store(false)

	if err := g.auth.Login(ctx); err != nil {
		g.log.Error("sign in failed", logging.Fields{"error": err})
		return err
	}
	g.start(ctx)
	return nil
}

// Logout signs out. The gate reports unauthenticated and listeners are told
// even when the provider-side sign-out fails.
func (g *Gate) Logout(ctx context.Context) error {
	if !g.busy.CompareAndSwap(false, true) {
		return syncerr.New(syncerr.SessionBusy, "a sign-in or sign-out is already in progress")
	}
	defer g.busy.Store(false)

	err := g.auth.Logout(ctx)
	if err != nil {
		g.log.Warn("provider sign out failed", logging.Fields{"error": err})
	}
	g.end()
	return err
}

// Restore reuses a stored credential without prompting. It returns whether
// the session is now authenticated.
func (g *Gate) Restore(ctx context.Context) bool {
	if !g.busy.CompareAndSwap(false, true) {
		return g.Authenticated()
	}
	defer g.busy.Store(false)

	ok, err := g.auth.Restore(ctx)
	if err != nil {
		g.log.Warn("stored credentials unusable", logging.Fields{"error": err})
		return false
	}
	if ok {
		g.start(ctx)
	}
	return ok
}

// Invalidate drops the session after the provider rejected our credentials.
func (g *Gate) Invalidate() {
	if !g.authenticated.CompareAndSwap(true, false) {
		return
	}
	g.log.Warn("session expired, sign in again", nil)
	g.end()
}

func (g *Gate) start(ctx context.Context) {
	g.authenticated.Store(true)
	for _, l := range g.snapshot() {
		l.SessionStarted(ctx)
	}
}

func (g *Gate) end() {
	g.authenticated.Store(false)
	for _, l := range g.snapshot() {
		l.SessionEnded()
	}
}

func (g *Gate) snapshot() []Listener {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Listener(nil), g.listeners...)
}
