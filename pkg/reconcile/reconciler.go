// Package reconcile decides what happens to a task's Google Calendar event
// when the task is saved, and keeps the task's remote reference consistent.
package reconcile

import (
	"context"
	"fmt"
	"strings"

	"github.com/harrisonrobin/planner/pkg/logging"
	"github.com/harrisonrobin/planner/pkg/model"
	"github.com/harrisonrobin/planner/pkg/remote"
	"github.com/harrisonrobin/planner/pkg/suggest"
	"github.com/harrisonrobin/planner/pkg/syncerr"
)

// TaskStore is the subset of taskstore.Store the reconciler mutates.
type TaskStore interface {
	Add(ctx context.Context, fields model.TaskFields) (model.Task, error)
	Update(ctx context.Context, id string, patch model.TaskPatch) (bool, error)
	AttachRemoteRef(ctx context.Context, id, ref string) (bool, error)
	ClearRemoteRef(ctx context.Context, id string) (bool, error)
	SetSuggestions(ctx context.Context, id string, suggestions []string) (bool, error)
	Delete(ctx context.Context, id string) error
	Get(id string) (model.Task, bool)
}

// Session is the view of the session gate the reconciler needs.
type Session interface {
	Authenticated() bool
	Invalidate()
}

// EventObserver is told about provider acknowledgments so cached events can
// be replaced without a refetch.
type EventObserver interface {
	EventSaved(ev model.RemoteEvent)
	EventRemoved(id string)
}

// SaveRequest is one submission from the task editor.
type SaveRequest struct {
	// Prior is the task before editing, nil for a new task.
	Prior  *model.Task
	Fields model.TaskFields
	Intent model.SyncIntent
}

type Reconciler struct {
	store    TaskStore
	client   remote.Client
	session  Session
	sink     OutcomeSink
	observer EventObserver
	log      logging.Logger
	timeZone string
	tracker  *Tracker
}

type Option func(*Reconciler)

func WithSink(s OutcomeSink) Option { return func(r *Reconciler) { r.sink = s } }

func WithObserver(o EventObserver) Option { return func(r *Reconciler) { r.observer = o } }

func WithLogger(l logging.Logger) Option { return func(r *Reconciler) { r.log = l } }

// WithTimeZone sets the IANA zone sent with every event.
func WithTimeZone(zone string) Option { return func(r *Reconciler) { r.timeZone = zone } }

func New(store TaskStore, client remote.Client, session Session, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:   store,
		client:  client,
		session: session,
		log:     logging.NewNop(),
		tracker: NewTracker(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.WithPrefix("reconcile")
	if r.sink == nil {
		r.sink = NewLogSink(r.log)
	}
	return r
}

// Save applies the local mutation first, then brings the remote event in line
// with the intent. Remote failures are reported in the outcome and to the
// sink; they never undo the local save.
func (r *Reconciler) Save(ctx context.Context, req SaveRequest) (LocalSaveResult, RemoteSyncOutcome) {
	local := r.saveLocal(ctx, req)

	var outcome RemoteSyncOutcome
	if !local.Applied {
		outcome = RemoteSyncOutcome{TaskID: local.Task.ID, Action: ActionSkipped, State: r.State(local.Task.ID)}
	} else {
		outcome = r.syncRemote(ctx, local.Task, req.Intent)
	}
	r.sink.Report(outcome)

	if t, ok := r.store.Get(local.Task.ID); ok {
		local.Task = t
	}
	return local, outcome
}

// Delete removes a task locally. Its remote event, if any, is left alone.
func (r *Reconciler) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, id); err != nil {
		return err
	}
	r.tracker.Forget(id)
	return nil
}

// Suggest fills a task's suggestions from the advisor. It never touches the
// remote event.
func (r *Reconciler) Suggest(ctx context.Context, id string, advisor suggest.Advisor) (model.Task, error) {
	t, ok := r.store.Get(id)
	if !ok {
		return model.Task{}, syncerr.New(syncerr.NotFound, fmt.Sprintf("task %s not found", id))
	}
	list, err := advisor.Suggest(ctx, t)
	if err != nil {
		return t, fmt.Errorf("suggest for task %s: %w", id, err)
	}
	if _, err := r.store.SetSuggestions(ctx, id, list); err != nil {
		return t, err
	}
	t, _ = r.store.Get(id)
	return t, nil
}

// State reports the sync state of a task, derived from its reference when the
// reconciler has not touched it yet.
func (r *Reconciler) State(id string) SyncState {
	if s, ok := r.tracker.State(id); ok {
		return s
	}
	if t, ok := r.store.Get(id); ok && t.Synced() {
		return Synced
	}
	return Unsynced
}

func (r *Reconciler) saveLocal(ctx context.Context, req SaveRequest) LocalSaveResult {
	if req.Prior == nil || req.Prior.ID == "" {
		t, err := r.store.Add(ctx, req.Fields)
		return LocalSaveResult{Task: t, Created: true, Applied: true, Err: err}
	}

	applied, err := r.store.Update(ctx, req.Prior.ID, req.Fields.Patch())
	res := LocalSaveResult{Applied: applied, Err: err}
	if t, ok := r.store.Get(req.Prior.ID); ok {
		res.Task = t
	} else {
		res.Task = *req.Prior
		req.Fields.Patch().Apply(&res.Task)
	}
	return res
}

func (r *Reconciler) syncRemote(ctx context.Context, task model.Task, intent model.SyncIntent) RemoteSyncOutcome {
	if !r.session.Authenticated() {
		return RemoteSyncOutcome{TaskID: task.ID, Action: ActionNone, State: r.State(task.ID)}
	}

	baseline := Unsynced
	if task.Synced() {
		baseline = Synced
	}
	r.tracker.Seed(task.ID, baseline)

	if intent == model.IntentRemove {
		return r.remove(ctx, task)
	}
	if strings.TrimSpace(task.Title) == "" || task.DueDate.IsZero() {
		return RemoteSyncOutcome{TaskID: task.ID, Action: ActionSkipped, State: baseline}
	}
	if task.Synced() {
		return r.update(ctx, task)
	}
	return r.create(ctx, task, ActionCreate)
}

func (r *Reconciler) update(ctx context.Context, task model.Task) RemoteSyncOutcome {
	ref := task.RemoteEventRef
	ev, err := r.client.Update(ctx, ref, r.eventInput(task))
	if err == nil {
		r.move(task.ID, Synced)
		r.saved(ev)
		return RemoteSyncOutcome{TaskID: task.ID, Action: ActionUpdate, State: Synced, EventID: ref}
	}
	if !syncerr.IsKind(err, syncerr.NotFound) {
		return r.failed(task.ID, ActionUpdate, err)
	}

	r.log.Warn("remote event missing, repairing reference", logging.Fields{"task_id": task.ID, "stale_ref": ref})
	r.move(task.ID, Stale)
	return r.create(ctx, task, ActionRepair)
}

func (r *Reconciler) create(ctx context.Context, task model.Task, action Action) RemoteSyncOutcome {
	r.move(task.ID, Creating)
	ev, err := r.client.Create(ctx, r.eventInput(task))
	if err != nil {
		r.move(task.ID, Unsynced)
		if task.Synced() {
			// the stale reference found during repair must not survive
			r.clearRef(ctx, task.ID)
		}
		return r.failed(task.ID, action, err)
	}

	// The local fields were persisted before this call; the id lands in a
	// second mutation now that it is known.
	applied, perr := r.store.AttachRemoteRef(ctx, task.ID, ev.ID)
	if !applied {
		r.log.Warn("task deleted before its event id could be attached", logging.Fields{"task_id": task.ID, "event_id": ev.ID})
	}
	if perr != nil {
		r.log.Error("event id attached in memory but not persisted", logging.Fields{"task_id": task.ID, "error": perr})
	}
	r.move(task.ID, Synced)
	r.saved(ev)
	return RemoteSyncOutcome{TaskID: task.ID, Action: action, State: Synced, EventID: ev.ID}
}

func (r *Reconciler) remove(ctx context.Context, task model.Task) RemoteSyncOutcome {
	ref := task.RemoteEventRef
	if ref == "" {
		return RemoteSyncOutcome{TaskID: task.ID, Action: ActionNone, State: Unsynced}
	}

	r.move(task.ID, Deleting)
	err := r.client.Delete(ctx, ref)
	if err != nil && !syncerr.IsKind(err, syncerr.NotFound) {
		// keep the reference so a later save can retry the deletion
		r.move(task.ID, Synced)
		out := r.failed(task.ID, ActionDelete, err)
		out.EventID = ref
		return out
	}

	r.clearRef(ctx, task.ID)
	r.move(task.ID, Unsynced)
	if r.observer != nil {
		r.observer.EventRemoved(ref)
	}
	return RemoteSyncOutcome{TaskID: task.ID, Action: ActionDelete, State: Unsynced, EventID: ref}
}

func (r *Reconciler) failed(taskID string, action Action, err error) RemoteSyncOutcome {
	if syncerr.KindOf(err) == "" {
		err = syncerr.Wrap(syncerr.RemoteUnavailable, err, fmt.Sprintf("%s event", action))
	}
	if syncerr.IsKind(err, syncerr.Unauthenticated) {
		r.session.Invalidate()
	}
	state, _ := r.tracker.State(taskID)
	return RemoteSyncOutcome{TaskID: taskID, Action: action, State: state, Err: err}
}

func (r *Reconciler) clearRef(ctx context.Context, id string) {
	if _, err := r.store.ClearRemoteRef(ctx, id); err != nil {
		r.log.Error("reference cleared in memory but not persisted", logging.Fields{"task_id": id, "error": err})
	}
}

func (r *Reconciler) move(id string, to SyncState) {
	if err := r.tracker.Move(id, to); err != nil {
		r.log.Warn("sync state", logging.Fields{"error": err})
	}
}

func (r *Reconciler) saved(ev model.RemoteEvent) {
	if r.observer != nil {
		r.observer.EventSaved(ev)
	}
}

// eventInput maps a task onto its calendar slot: start at the due date, end
// after the estimate (30 minutes when unset).
func (r *Reconciler) eventInput(task model.Task) model.EventInput {
	start := task.DueDate
	return model.EventInput{
		Summary:     task.Title,
		Description: task.Description,
		Start:       start,
		End:         start.Add(task.Estimate()),
		TimeZone:    r.timeZone,
	}
}
