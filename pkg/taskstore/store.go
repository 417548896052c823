// Package taskstore owns the process-wide set of local tasks and persists
// them through a storage.Backend.
package taskstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/harrisonrobin/planner/pkg/logging"
	"github.com/harrisonrobin/planner/pkg/model"
	"github.com/harrisonrobin/planner/pkg/storage"
	"github.com/harrisonrobin/planner/pkg/syncerr"
)

const (
	Namespace = "planner"
	TasksKey  = "tasks"
)

// Store holds tasks in insertion order. Every mutator persists the full list
// after updating memory.
type Store struct {
	mu      sync.RWMutex
	tasks   []model.Task
	index   map[string]int
	backend storage.Backend
	log     logging.Logger
	newID   func() string

	// seq numbers snapshots so an older one never overwrites a newer one.
	seq       uint64
	persistMu sync.Mutex
	saved     uint64
}

type Option func(*Store)

// WithIDGenerator overrides uuid generation, for tests.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// Open loads the persisted task list. Missing or unreadable data yields an
// empty store; individual entries that fail to decode are dropped.
func Open(ctx context.Context, backend storage.Backend, log logging.Logger, opts ...Option) (*Store, error) {
	if log == nil {
		log = logging.NewNop()
	}
	s := &Store{
		index:   make(map[string]int),
		backend: backend,
		log:     log,
		newID:   func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}

	raw, err := backend.Load(ctx, Namespace, TasksKey)
	if errors.Is(err, storage.ErrNotFound) {
		return s, nil
	}
	if err != nil {
		s.log.Warn("could not read persisted tasks, starting empty", logging.Fields{
			"kind": syncerr.PersistenceCorrupt, "error": err,
		})
		return s, nil
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		s.log.Warn("persisted task list is corrupt, starting empty", logging.Fields{
			"kind": syncerr.PersistenceCorrupt, "error": err,
		})
		return s, nil
	}
	for i, entry := range entries {
		var t model.Task
		if err := json.Unmarshal(entry, &t); err != nil {
			s.log.Warn("dropping unreadable task entry", logging.Fields{
				"kind": syncerr.PersistenceCorrupt, "position": i, "error": err,
			})
			continue
		}
		if t.ID == "" {
			s.log.Warn("dropping task entry without id", logging.Fields{
				"kind": syncerr.PersistenceCorrupt, "position": i,
			})
			continue
		}
		if _, dup := s.index[t.ID]; dup {
			s.log.Warn("dropping duplicate task entry", logging.Fields{
				"kind": syncerr.PersistenceCorrupt, "task_id": t.ID,
			})
			continue
		}
		s.index[t.ID] = len(s.tasks)
		s.tasks = append(s.tasks, t)
	}
	return s, nil
}

// Add stores a new task and assigns its id.
func (s *Store) Add(ctx context.Context, fields model.TaskFields) (model.Task, error) {
	s.mu.Lock()
	var t model.Task
	fields.Patch().Apply(&t)
	t.ID = s.newID()
	s.index[t.ID] = len(s.tasks)
	s.tasks = append(s.tasks, t)
	snap, err := s.encodeLocked()
	s.mu.Unlock()

	if err != nil {
		return t.Clone(), err
	}
	return t.Clone(), s.persist(ctx, snap)
}

// Update applies patch to the task with id. A missing id is a logged no-op
// and reports applied=false.
func (s *Store) Update(ctx context.Context, id string, patch model.TaskPatch) (bool, error) {
	return s.mutate(ctx, id, "update", func(t *model.Task) { patch.Apply(t) })
}

// AttachRemoteRef records the remote event id for a task.
func (s *Store) AttachRemoteRef(ctx context.Context, id, ref string) (bool, error) {
	return s.mutate(ctx, id, "attach remote ref", func(t *model.Task) { t.RemoteEventRef = ref })
}

// ClearRemoteRef marks a task as not synced.
func (s *Store) ClearRemoteRef(ctx context.Context, id string) (bool, error) {
	return s.mutate(ctx, id, "clear remote ref", func(t *model.Task) { t.RemoteEventRef = "" })
}

func (s *Store) SetSuggestions(ctx context.Context, id string, suggestions []string) (bool, error) {
	cp := append([]string(nil), suggestions...)
	return s.mutate(ctx, id, "set suggestions", func(t *model.Task) { t.AISuggestions = cp })
}

// Delete removes a task. Deleting an unknown id is a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	pos, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		s.log.Debug("delete of unknown task ignored", logging.Fields{"task_id": id})
		return nil
	}
	s.tasks = append(s.tasks[:pos], s.tasks[pos+1:]...)
	delete(s.index, id)
	for i := pos; i < len(s.tasks); i++ {
		s.index[s.tasks[i].ID] = i
	}
	snap, err := s.encodeLocked()
	s.mu.Unlock()

	if err != nil {
		return err
	}
	return s.persist(ctx, snap)
}

func (s *Store) Get(id string) (model.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pos, ok := s.index[id]
	if !ok {
		return model.Task{}, false
	}
	return s.tasks[pos].Clone(), true
}

// List returns a copy of all tasks in insertion order.
func (s *Store) List() []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Task, len(s.tasks))
	for i, t := range s.tasks {
		out[i] = t.Clone()
	}
	return out
}

func (s *Store) mutate(ctx context.Context, id, op string, fn func(*model.Task)) (bool, error) {
	s.mu.Lock()
	pos, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		s.log.Warn("task not found, "+op+" skipped", logging.Fields{"task_id": id})
		return false, nil
	}
	fn(&s.tasks[pos])
	snap, err := s.encodeLocked()
	s.mu.Unlock()

	if err != nil {
		return true, err
	}
	return true, s.persist(ctx, snap)
}

type snapshot struct {
	seq  uint64
	data []byte
}

func (s *Store) encodeLocked() (snapshot, error) {
	b, err := json.Marshal(s.tasks)
	if err != nil {
		return snapshot{}, fmt.Errorf("encode tasks: %w", err)
	}
	s.seq++
	return snapshot{seq: s.seq, data: b}, nil
}

func (s *Store) persist(ctx context.Context, snap snapshot) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	if snap.seq <= s.saved {
		return nil
	}
	if err := s.backend.Save(ctx, Namespace, TasksKey, snap.data); err != nil {
		s.log.Error("failed to persist tasks", logging.Fields{"error": err})
		return fmt.Errorf("persist tasks: %w", err)
	}
	s.saved = snap.seq
	return nil
}
