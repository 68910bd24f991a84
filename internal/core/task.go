package core

import (
	"context"
	"fmt"
	"time"
)

// Task wraps a persisted task definition and answers occurrence queries
// against it. Mutating operations write through to storage immediately.
type Task struct {
	data     *TaskData
	store    Store
	location *time.Location
}

func newTask(data *TaskData, store Store, location *time.Location) *Task {
	return &Task{data: data, store: store, location: location}
}

// ID returns the storage-assigned definition id.
func (t *Task) ID() int64 { return t.data.ID }

// Name returns the display name.
func (t *Task) Name() string { return t.data.Name }

// Comment returns the free-form comment.
func (t *Task) Comment() string { return t.data.Comment }

// ScheduledStart returns the absolute time of the first occurrence.
func (t *Task) ScheduledStart() time.Time { return t.data.ScheduledStart }

// StartClock returns the hour and minute of day the task is scheduled at.
// Instances materialized for any date start at this time of day.
func (t *Task) StartClock() (hour, minute int) {
	local := t.data.ScheduledStart.In(t.location)
	return local.Hour(), local.Minute()
}

// SetComment updates the comment and persists the definition.
func (t *Task) SetComment(ctx context.Context, comment string) error {
	t.data.Comment = comment
	if err := t.store.UpdateTask(ctx, t.data); err != nil {
		return fmt.Errorf("persist task comment: %w", err)
	}
	return nil
}

// Data exposes the underlying record. The pointer stays owned by the
// tracker; callers must not retain it across tracker mutations.
func (t *Task) Data() *TaskData { return t.data }
