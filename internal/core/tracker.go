package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Store abstracts the persistence layer consumed by the tracker. Task
// definitions are integer-keyed with a storage-assigned id; instances are
// keyed by the caller-supplied identifier string. Implementations report
// missing records with ErrTaskNotFound / ErrInstanceNotFound and wrap every
// other failure so it surfaces to the caller unretried.
type Store interface {
	// Task definition operations.
	CreateTask(ctx context.Context, name string) (int64, error)
	GetTask(ctx context.Context, id int64) (*TaskData, error)
	UpdateTask(ctx context.Context, task *TaskData) error
	DeleteTask(ctx context.Context, id int64) error
	ListTasks(ctx context.Context) ([]*TaskData, error)

	// Task instance operations.
	CreateInstance(ctx context.Context, inst *InstanceData) error
	GetInstance(ctx context.Context, id string) (*InstanceData, error)
	UpdateInstance(ctx context.Context, inst *InstanceData) error
	DeleteInstancesByParent(ctx context.Context, parentID int64) (int64, error)

	// Clear wipes both stores.
	Clear(ctx context.Context) error
}

var (
	ErrTaskNotFound     = errors.New("task not found")
	ErrInstanceNotFound = errors.New("task instance not found")
)

// DefaultCacheSize bounds the in-memory instance cache when the caller does
// not configure one.
const DefaultCacheSize = 4096

// Tracker materializes concrete task instances from recurring task
// definitions. Definitions are held fully in memory and kept in sync with
// storage on every mutation; materialized instances live in a bounded LRU
// cache. Eviction is safe because every instance mutation writes through to
// storage, so a re-queried instance reloads with identical state.
//
// A single mutex serializes all public operations; the tracker is the one
// synchronization point when embedded in a concurrent host such as the HTTP
// server.
type Tracker struct {
	store    Store
	logger   *slog.Logger
	location *time.Location

	mu    sync.Mutex
	tasks []*Task
	cache *lru.Cache[string, *TaskInstance]
}

// NewTracker loads all task definitions and returns a ready tracker.
func NewTracker(ctx context.Context, store Store, logger *slog.Logger, location *time.Location, cacheSize int) (*Tracker, error) {
	if location == nil {
		location = time.Local
	}
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, *TaskInstance](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create instance cache: %w", err)
	}
	t := &Tracker{
		store:    store,
		logger:   logger,
		location: location,
		cache:    cache,
	}
	if err := t.loadTasks(ctx); err != nil {
		return nil, err
	}
	return t, nil
}

// InstancesOn returns the live instances of every definition occurring on
// day, creating missing instance rows exactly once. The result is sorted by
// scheduled start time, then name. Calling it repeatedly for the same day is
// idempotent.
func (t *Tracker) InstancesOn(ctx context.Context, day Date) ([]*TaskInstance, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	instances := make([]*TaskInstance, 0)
	for _, task := range t.tasks {
		if !task.Occurs(day) {
			continue
		}
		inst, err := t.materializeLocked(ctx, task, day)
		if err != nil {
			return nil, err
		}
		instances = append(instances, inst)
	}

	sort.Slice(instances, func(i, j int) bool {
		a, b := instances[i], instances[j]
		if a.ScheduledStart().Equal(b.ScheduledStart()) {
			return a.Name() < b.Name()
		}
		return a.ScheduledStart().Before(b.ScheduledStart())
	})
	return instances, nil
}

// AddTask creates a definition in two phases: reserve a row to obtain the
// storage-assigned id, then finalize the recurrence fields. A failed
// finalize rolls the reserved row back so callers never observe a
// half-created definition. The returned task carries the id used for all
// subsequent lookups.
func (t *Tracker) AddTask(ctx context.Context, name string, repeatType RepeatType, repeatInfo int, start time.Time) (*Task, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyName
	}
	if err := ValidateRepeat(repeatType, repeatInfo); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	id, err := t.store.CreateTask(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("reserve task: %w", err)
	}
	data, err := t.store.GetTask(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("read back task %d: %w", id, err)
	}
	data.RepeatType = repeatType
	data.RepeatInfo = repeatInfo
	data.ScheduledStart = start
	if err := t.store.UpdateTask(ctx, data); err != nil {
		if derr := t.store.DeleteTask(ctx, id); derr != nil {
			t.logger.Error("rollback reserved task", "task_id", id, "err", derr)
		}
		return nil, fmt.Errorf("finalize task %d: %w", id, err)
	}

	task := newTask(data, t.store, t.location)
	t.tasks = append(t.tasks, task)
	t.logger.Info("task added", "task_id", id, "name", name, "repeat", repeatType)
	return task, nil
}

// DeleteTask removes a definition, its materialized instance rows and any
// cached instances. Deleting an unknown id is a no-op, not an error.
func (t *Tracker) DeleteTask(ctx context.Context, id int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.store.DeleteTask(ctx, id); err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			return nil
		}
		return fmt.Errorf("delete task %d: %w", id, err)
	}
	removed, err := t.store.DeleteInstancesByParent(ctx, id)
	if err != nil {
		return fmt.Errorf("cascade instances of task %d: %w", id, err)
	}
	for idx, task := range t.tasks {
		if task.ID() == id {
			t.tasks = append(t.tasks[:idx], t.tasks[idx+1:]...)
			break
		}
	}
	for _, key := range t.cache.Keys() {
		if inst, ok := t.cache.Peek(key); ok && inst.ParentID() == id {
			t.cache.Remove(key)
		}
	}
	t.logger.Info("task deleted", "task_id", id, "instances_removed", removed)
	return nil
}

// ModifyTask persists an already-mutated definition record keyed by its id
// and refreshes the in-memory copy. Unknown ids fail with ErrTaskNotFound.
func (t *Tracker) ModifyTask(ctx context.Context, data *TaskData) error {
	if err := ValidateRepeat(data.RepeatType, data.RepeatInfo); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.store.UpdateTask(ctx, data); err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			return err
		}
		return fmt.Errorf("modify task %d: %w", data.ID, err)
	}
	for _, task := range t.tasks {
		if task.ID() == data.ID {
			*task.data = *data
			break
		}
	}
	return nil
}

// Task returns the in-memory definition with the given id, nil if absent.
func (t *Tracker) Task(id int64) *Task {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, task := range t.tasks {
		if task.ID() == id {
			return task
		}
	}
	return nil
}

// Tasks returns the active definition list.
func (t *Tracker) Tasks() []*Task {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Task, len(t.tasks))
	copy(out, t.tasks)
	return out
}

// Instance returns an already-materialized instance by identifier, from the
// cache or storage. It never creates one; unknown identifiers fail with
// ErrInstanceNotFound.
func (t *Tracker) Instance(ctx context.Context, id string) (*TaskInstance, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if inst, ok := t.cache.Get(id); ok {
		return inst, nil
	}
	data, err := t.store.GetInstance(ctx, id)
	if err != nil {
		if errors.Is(err, ErrInstanceNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load instance %s: %w", id, err)
	}
	inst := newTaskInstance(data, t.store)
	t.cache.Add(id, inst)
	return inst, nil
}

// Clear wipes both stores and the cache, leaving the tracker in its
// post-construction empty state.
func (t *Tracker) Clear(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear stores: %w", err)
	}
	t.cache.Purge()
	return t.loadTasksLocked(ctx)
}

func (t *Tracker) loadTasks(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loadTasksLocked(ctx)
}

func (t *Tracker) loadTasksLocked(ctx context.Context) error {
	records, err := t.store.ListTasks(ctx)
	if err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}
	t.tasks = t.tasks[:0]
	for _, data := range records {
		t.tasks = append(t.tasks, newTask(data, t.store, t.location))
	}
	return nil
}

// materializeLocked resolves the instance for (task, day), creating the
// storage row on first sight of the date.
func (t *Tracker) materializeLocked(ctx context.Context, task *Task, day Date) (*TaskInstance, error) {
	id := InstanceID(task.ID(), day)
	if inst, ok := t.cache.Get(id); ok {
		return inst, nil
	}

	data, err := t.store.GetInstance(ctx, id)
	switch {
	case err == nil:
	case errors.Is(err, ErrInstanceNotFound):
		hour, minute := task.StartClock()
		data = &InstanceData{
			ID:             id,
			ParentID:       task.ID(),
			Name:           task.Name(),
			ScheduledStart: day.At(hour, minute, t.location),
			State:          StateNotStarted,
		}
		if err := t.store.CreateInstance(ctx, data); err != nil {
			return nil, fmt.Errorf("materialize instance %s: %w", id, err)
		}
		t.logger.Debug("instance materialized", "instance_id", id, "task_id", task.ID())
	default:
		return nil, fmt.Errorf("load instance %s: %w", id, err)
	}

	inst := newTaskInstance(data, t.store)
	t.cache.Add(id, inst)
	return inst, nil
}
