package reconcile

import (
	"github.com/harrisonrobin/planner/pkg/logging"
	"github.com/harrisonrobin/planner/pkg/model"
	"github.com/harrisonrobin/planner/pkg/syncerr"
)

type Action string

const (
	// ActionNone: nothing to do remotely (signed out, or remove without a ref).
	ActionNone    Action = "none"
	ActionSkipped Action = "skipped"
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionRepair  Action = "repair"
	ActionDelete  Action = "delete"
)

// LocalSaveResult reports the local half of a save. It never fails for
// remote reasons.
type LocalSaveResult struct {
	Task    model.Task
	Created bool
	// Applied is false when an update targeted a task that no longer exists.
	Applied bool
	Err     error
}

// RemoteSyncOutcome reports the remote half of a save.
type RemoteSyncOutcome struct {
	TaskID  string
	Action  Action
	State   SyncState
	EventID string
	Err     error
}

func (o RemoteSyncOutcome) Failed() bool { return o.Err != nil }

// Kind is the sync error kind of a failed outcome.
func (o RemoteSyncOutcome) Kind() syncerr.Kind { return syncerr.KindOf(o.Err) }

// OutcomeSink receives every remote outcome, possibly after the caller has
// moved on.
type OutcomeSink interface {
	Report(RemoteSyncOutcome)
}

type logSink struct {
	log logging.Logger
}

// NewLogSink reports outcomes through log.
func NewLogSink(log logging.Logger) OutcomeSink {
	return logSink{log: log}
}

func (s logSink) Report(o RemoteSyncOutcome) {
	fields := logging.Fields{"task_id": o.TaskID, "action": o.Action, "state": o.State}
	if o.EventID != "" {
		fields["event_id"] = o.EventID
	}
	if o.Err != nil {
		fields["kind"] = o.Kind()
		fields["error"] = o.Err
		s.log.Warn("calendar sync failed", fields)
		return
	}
	s.log.Debug("calendar sync finished", fields)
}

// SinkFunc adapts a function to OutcomeSink.
type SinkFunc func(RemoteSyncOutcome)

func (f SinkFunc) Report(o RemoteSyncOutcome) { f(o) }
