package core

import (
	"context"
	"fmt"
	"time"
)

// TaskInstance wraps one persisted occurrence of a task definition on one
// date. Every state transition is written back to storage before it
// returns, so a cached instance can always be reloaded losslessly.
type TaskInstance struct {
	data  *InstanceData
	store Store
}

func newTaskInstance(data *InstanceData, store Store) *TaskInstance {
	return &TaskInstance{data: data, store: store}
}

// ID returns the deterministic (task, date) identifier.
func (i *TaskInstance) ID() string { return i.data.ID }

// ParentID returns the owning definition's id.
func (i *TaskInstance) ParentID() int64 { return i.data.ParentID }

// Name returns the display name copied from the definition at
// materialization time.
func (i *TaskInstance) Name() string { return i.data.Name }

// ScheduledStart returns the queried date combined with the definition's
// time of day.
func (i *TaskInstance) ScheduledStart() time.Time { return i.data.ScheduledStart }

// Comment returns the free-form comment.
func (i *TaskInstance) Comment() string { return i.data.Comment }

// TimeSpent returns the accumulated time logged against the instance.
func (i *TaskInstance) TimeSpent() time.Duration { return i.data.TimeSpent }

// State returns the lifecycle state.
func (i *TaskInstance) State() InstanceState { return i.data.State }

// StartTime returns when the instance was started, nil if it never was.
func (i *TaskInstance) StartTime() *time.Time { return i.data.StartTime }

// FinishTime returns when the instance was finished, nil if it never was.
func (i *TaskInstance) FinishTime() *time.Time { return i.data.FinishTime }

func (i *TaskInstance) IsStarted() bool  { return i.data.State == StateStarted }
func (i *TaskInstance) IsFinished() bool { return i.data.State == StateFinished }
func (i *TaskInstance) IsSkipped() bool  { return i.data.State == StateSkipped }

// Start marks the instance started now.
func (i *TaskInstance) Start(ctx context.Context) error {
	now := time.Now()
	i.data.State = StateStarted
	i.data.StartTime = &now
	return i.persist(ctx)
}

// Finish marks the instance finished now.
func (i *TaskInstance) Finish(ctx context.Context) error {
	now := time.Now()
	i.data.State = StateFinished
	i.data.FinishTime = &now
	return i.persist(ctx)
}

// Skip marks the instance skipped.
func (i *TaskInstance) Skip(ctx context.Context) error {
	i.data.State = StateSkipped
	return i.persist(ctx)
}

// Reset puts the instance back to not started. Start and finish times are
// kept as a trace of the previous attempt.
func (i *TaskInstance) Reset(ctx context.Context) error {
	i.data.State = StateNotStarted
	return i.persist(ctx)
}

// SetComment updates the comment.
func (i *TaskInstance) SetComment(ctx context.Context, comment string) error {
	i.data.Comment = comment
	return i.persist(ctx)
}

// SetTimeSpent records the total time spent on the instance.
func (i *TaskInstance) SetTimeSpent(ctx context.Context, spent time.Duration) error {
	i.data.TimeSpent = spent
	return i.persist(ctx)
}

// Data exposes the underlying record for read-only use.
func (i *TaskInstance) Data() *InstanceData { return i.data }

func (i *TaskInstance) persist(ctx context.Context) error {
	if err := i.store.UpdateInstance(ctx, i.data); err != nil {
		return fmt.Errorf("persist instance %s: %w", i.data.ID, err)
	}
	return nil
}
