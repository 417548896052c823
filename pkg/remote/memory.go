package remote

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/harrisonrobin/planner/pkg/model"
	"github.com/harrisonrobin/planner/pkg/syncerr"
)

// Call records one operation made against a Memory provider.
type Call struct {
	Op    string
	ID    string
	Input model.EventInput
}

// Memory is a deterministic in-process provider. Ids are assigned as
// "evt-1", "evt-2", ... Failures can be injected per operation.
type Memory struct {
	mu     sync.Mutex
	events map[string]model.RemoteEvent
	nextID int
	calls  []Call
	fail   map[string]error
	loc    *time.Location
}

func NewMemory() *Memory {
	return &Memory{
		events: make(map[string]model.RemoteEvent),
		fail:   make(map[string]error),
		loc:    time.UTC,
	}
}

// FailNext makes the next call of op ("list", "create", "update", "delete")
// return err.
func (m *Memory) FailNext(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[op] = err
}

// Put inserts or replaces an event directly, bypassing call recording.
func (m *Memory) Put(ev model.RemoteEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[ev.ID] = ev
}

// Remove drops an event directly, simulating deletion on another device.
func (m *Memory) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.events, id)
}

func (m *Memory) Event(id string) (model.RemoteEvent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[id]
	return ev, ok
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func (m *Memory) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

func (m *Memory) takeFailure(op string) error {
	err, ok := m.fail[op]
	if ok {
		delete(m.fail, op)
	}
	return err
}

func (m *Memory) List(_ context.Context, start, end time.Time) ([]model.RemoteEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Op: "list"})
	if err := m.takeFailure("list"); err != nil {
		return nil, err
	}
	var out []model.RemoteEvent
	for _, ev := range m.events {
		if Intersects(ev, start, end, m.loc) {
			out = append(out, ev)
		}
	}
	SortEvents(out, m.loc)
	return out, nil
}

func (m *Memory) Create(_ context.Context, in model.EventInput) (model.RemoteEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Op: "create", Input: in})
	if err := m.takeFailure("create"); err != nil {
		return model.RemoteEvent{}, err
	}
	m.nextID++
	ev := toEvent(fmt.Sprintf("evt-%d", m.nextID), in)
	m.events[ev.ID] = ev
	return ev, nil
}

func (m *Memory) Update(_ context.Context, id string, in model.EventInput) (model.RemoteEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Op: "update", ID: id, Input: in})
	if err := m.takeFailure("update"); err != nil {
		return model.RemoteEvent{}, err
	}
	if _, ok := m.events[id]; !ok {
		return model.RemoteEvent{}, syncerr.New(syncerr.NotFound, fmt.Sprintf("event %s not found", id))
	}
	ev := toEvent(id, in)
	m.events[id] = ev
	return ev, nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Op: "delete", ID: id})
	if err := m.takeFailure("delete"); err != nil {
		return err
	}
	if _, ok := m.events[id]; !ok {
		return syncerr.New(syncerr.NotFound, fmt.Sprintf("event %s not found", id))
	}
	delete(m.events, id)
	return nil
}

func toEvent(id string, in model.EventInput) model.RemoteEvent {
	return model.RemoteEvent{
		ID:          id,
		Summary:     in.Summary,
		Description: in.Description,
		Start:       model.EventTime{Instant: in.Start, Zone: in.TimeZone},
		End:         model.EventTime{Instant: in.End, Zone: in.TimeZone},
	}
}
