package reconcile

import (
	"fmt"
	"sync"
)

// SyncState is where a task stands relative to its remote event.
type SyncState string

const (
	Unsynced SyncState = "unsynced"
	Creating SyncState = "creating"
	Synced   SyncState = "synced"
	Deleting SyncState = "deleting"
	Stale    SyncState = "stale"
)

var transitions = map[SyncState][]SyncState{
	Unsynced: {Creating},
	Creating: {Synced, Unsynced},
	Synced:   {Synced, Deleting, Stale},
	Deleting: {Unsynced, Synced},
	Stale:    {Creating},
}

func canMove(from, to SyncState) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Tracker holds the sync state of every task the reconciler has touched.
type Tracker struct {
	mu     sync.Mutex
	states map[string]SyncState
}

func NewTracker() *Tracker {
	return &Tracker{states: make(map[string]SyncState)}
}

// Seed sets a task's baseline state before a sync pass. Concurrent saves of
// the same task overwrite each other's baseline; the last one wins.
func (t *Tracker) Seed(id string, s SyncState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.states[id] = s
}

// Move advances a task to the next state, rejecting transitions the machine
// does not allow.
func (t *Tracker) Move(id string, to SyncState) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	from, ok := t.states[id]
	if !ok {
		from = Unsynced
	}
	if !canMove(from, to) {
		return fmt.Errorf("illegal sync transition %s -> %s for task %s", from, to, id)
	}
	t.states[id] = to
	return nil
}

// State returns the tracked state and whether the task is tracked at all.
func (t *Tracker) State(id string) (SyncState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.states[id]
	return s, ok
}

func (t *Tracker) Forget(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.states, id)
}
