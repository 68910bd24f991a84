package core_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"tasktrackd/internal/core"
	"tasktrackd/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testTracker creates a tracker over a temporary SQLite store.
func testTracker(t *testing.T, cacheSize int) (*core.Tracker, *store.Store) {
	t.Helper()
	ctx := context.Background()
	st, err := store.Open(ctx, t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	tracker, err := core.NewTracker(ctx, st, testLogger(), time.Local, cacheSize)
	if err != nil {
		t.Fatalf("create tracker: %v", err)
	}
	return tracker, st
}

func localTime(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, time.Local)
}

func TestAddTask_ReturnsStorageAssignedID(t *testing.T) {
	tracker, st := testTracker(t, 0)
	ctx := context.Background()

	first, err := tracker.AddTask(ctx, "dishes", core.RepeatNone, 0, localTime(2023, time.January, 1, 9, 0))
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	second, err := tracker.AddTask(ctx, "laundry", core.RepeatMonthly, 20, localTime(2023, time.January, 1, 8, 0))
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	if first.ID() == second.ID() {
		t.Fatalf("ids must be unique, both got %d", first.ID())
	}
	if tracker.Task(first.ID()) != first {
		t.Error("lookup by returned id must resolve the added task")
	}

	// The two-phase create must leave the recurrence fields persisted.
	data, err := st.GetTask(ctx, second.ID())
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if data.RepeatType != core.RepeatMonthly || data.RepeatInfo != 20 {
		t.Errorf("recurrence fields not finalized: %+v", data)
	}
	if data.ScheduledStart.IsZero() {
		t.Error("scheduled start not finalized")
	}
}

func TestAddTask_Validation(t *testing.T) {
	tracker, _ := testTracker(t, 0)
	ctx := context.Background()
	start := localTime(2023, time.January, 1, 9, 0)

	if _, err := tracker.AddTask(ctx, "", core.RepeatNone, 0, start); !errors.Is(err, core.ErrEmptyName) {
		t.Errorf("empty name: expected ErrEmptyName, got %v", err)
	}
	if _, err := tracker.AddTask(ctx, "x", core.RepeatWithInterval, 0, start); !errors.Is(err, core.ErrInvalidRepeat) {
		t.Errorf("zero interval: expected ErrInvalidRepeat, got %v", err)
	}
	if _, err := tracker.AddTask(ctx, "x", core.RepeatWithInterval, -5, start); !errors.Is(err, core.ErrInvalidRepeat) {
		t.Errorf("negative interval: expected ErrInvalidRepeat, got %v", err)
	}
	if _, err := tracker.AddTask(ctx, "x", core.RepeatMonthly, 32, start); !errors.Is(err, core.ErrInvalidRepeat) {
		t.Errorf("day 32: expected ErrInvalidRepeat, got %v", err)
	}
	if _, err := tracker.AddTask(ctx, "x", core.RepeatSpecifiedDays, 108, start); !errors.Is(err, core.ErrInvalidRepeat) {
		t.Errorf("digit 0 and 8: expected ErrInvalidRepeat, got %v", err)
	}
	if _, err := tracker.AddTask(ctx, "x", core.RepeatType("weekly"), 1, start); !errors.Is(err, core.ErrInvalidRepeat) {
		t.Errorf("unknown type: expected ErrInvalidRepeat, got %v", err)
	}

	if len(tracker.Tasks()) != 0 {
		t.Error("rejected tasks must not reach the active list")
	}
}

func TestInstancesOn_MaterializesExactlyOnce(t *testing.T) {
	tracker, st := testTracker(t, 0)
	ctx := context.Background()

	task, err := tracker.AddTask(ctx, "dishes", core.RepeatNone, 0, localTime(2023, time.January, 1, 9, 0))
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	day := core.Date{Year: 2023, Month: time.January, Day: 1}

	first, err := tracker.InstancesOn(ctx, day)
	if err != nil {
		t.Fatalf("InstancesOn: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("expected 1 instance, got %d", len(first))
	}
	if first[0].ID() != core.InstanceID(task.ID(), day) {
		t.Errorf("unexpected identifier %q", first[0].ID())
	}
	if h := first[0].ScheduledStart().Hour(); h != 9 {
		t.Errorf("instance must inherit the definition's time of day, got hour %d", h)
	}

	second, err := tracker.InstancesOn(ctx, day)
	if err != nil {
		t.Fatalf("InstancesOn: %v", err)
	}
	if len(second) != 1 || second[0].ID() != first[0].ID() {
		t.Error("repeated query must observe the same instance")
	}

	rows, err := st.ListInstances(ctx, task.ID(), false)
	if err != nil {
		t.Fatalf("ListInstances: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected exactly 1 stored row, got %d", len(rows))
	}

	empty, err := tracker.InstancesOn(ctx, core.Date{Year: 2023, Month: time.January, Day: 2})
	if err != nil {
		t.Fatalf("InstancesOn: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected no instances the day after, got %d", len(empty))
	}
}

func TestInstancesOn_Ordering(t *testing.T) {
	tracker, _ := testTracker(t, 0)
	ctx := context.Background()

	// Same date, two at 08:30 (name tie-break) and one at 09:00.
	if _, err := tracker.AddTask(ctx, "late", core.RepeatNone, 0, localTime(2023, time.January, 1, 9, 0)); err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	if _, err := tracker.AddTask(ctx, "beta", core.RepeatNone, 0, localTime(2023, time.January, 1, 8, 30)); err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	if _, err := tracker.AddTask(ctx, "alpha", core.RepeatNone, 0, localTime(2023, time.January, 1, 8, 30)); err != nil {
		t.Fatalf("AddTask: %v", err)
	}

	instances, err := tracker.InstancesOn(ctx, core.Date{Year: 2023, Month: time.January, Day: 1})
	if err != nil {
		t.Fatalf("InstancesOn: %v", err)
	}
	if len(instances) != 3 {
		t.Fatalf("expected 3 instances, got %d", len(instances))
	}
	want := []string{"alpha", "beta", "late"}
	for i, name := range want {
		if instances[i].Name() != name {
			t.Errorf("position %d: expected %s, got %s", i, name, instances[i].Name())
		}
	}
}

func TestDeleteTask_CascadesToInstances(t *testing.T) {
	tracker, st := testTracker(t, 0)
	ctx := context.Background()

	task, err := tracker.AddTask(ctx, "dishes", core.RepeatNone, 0, localTime(2023, time.January, 1, 9, 0))
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	day := core.Date{Year: 2023, Month: time.January, Day: 1}
	if _, err := tracker.InstancesOn(ctx, day); err != nil {
		t.Fatalf("InstancesOn: %v", err)
	}
	instanceID := core.InstanceID(task.ID(), day)

	if err := tracker.DeleteTask(ctx, task.ID()); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}

	instances, err := tracker.InstancesOn(ctx, day)
	if err != nil {
		t.Fatalf("InstancesOn: %v", err)
	}
	if len(instances) != 0 {
		t.Errorf("deleted definition still produced %d instances", len(instances))
	}
	if _, err := st.GetInstance(ctx, instanceID); !errors.Is(err, core.ErrInstanceNotFound) {
		t.Errorf("instance row must be cascade-deleted, got %v", err)
	}
	if _, err := tracker.Instance(ctx, instanceID); !errors.Is(err, core.ErrInstanceNotFound) {
		t.Errorf("cached instance must be purged, got %v", err)
	}

	// Unknown ids are a no-op, not an error.
	if err := tracker.DeleteTask(ctx, 9999); err != nil {
		t.Errorf("deleting unknown id: %v", err)
	}
}

func TestModifyTask_RenameKeepsInstanceIdentity(t *testing.T) {
	tracker, st := testTracker(t, 0)
	ctx := context.Background()

	task, err := tracker.AddTask(ctx, "old name", core.RepeatMonthly, 20, localTime(2023, time.January, 20, 9, 0))
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	day := core.Date{Year: 2023, Month: time.August, Day: 20}

	before, err := tracker.InstancesOn(ctx, day)
	if err != nil {
		t.Fatalf("InstancesOn: %v", err)
	}
	if len(before) != 1 {
		t.Fatalf("expected 1 instance, got %d", len(before))
	}

	data := *task.Data()
	data.Name = "new name"
	if err := tracker.ModifyTask(ctx, &data); err != nil {
		t.Fatalf("ModifyTask: %v", err)
	}
	if task.Name() != "new name" {
		t.Error("in-memory definition not refreshed")
	}

	after, err := tracker.InstancesOn(ctx, day)
	if err != nil {
		t.Fatalf("InstancesOn: %v", err)
	}
	if len(after) != 1 {
		t.Fatalf("expected 1 instance after rename, got %d", len(after))
	}
	if after[0].ID() != before[0].ID() {
		t.Errorf("rename changed instance identity: %q vs %q", after[0].ID(), before[0].ID())
	}
	rows, err := st.ListInstances(ctx, task.ID(), false)
	if err != nil {
		t.Fatalf("ListInstances: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rename created a duplicate row: %d rows", len(rows))
	}
}

func TestModifyTask_UnknownID(t *testing.T) {
	tracker, _ := testTracker(t, 0)
	data := &core.TaskData{ID: 4242, Name: "ghost", RepeatType: core.RepeatNone}
	if err := tracker.ModifyTask(context.Background(), data); !errors.Is(err, core.ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestInstanceTransitions_PersistAcrossTrackers(t *testing.T) {
	tracker, st := testTracker(t, 0)
	ctx := context.Background()

	task, err := tracker.AddTask(ctx, "dishes", core.RepeatNone, 0, localTime(2023, time.January, 1, 9, 0))
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	day := core.Date{Year: 2023, Month: time.January, Day: 1}
	instances, err := tracker.InstancesOn(ctx, day)
	if err != nil {
		t.Fatalf("InstancesOn: %v", err)
	}
	inst := instances[0]

	if inst.State() != core.StateNotStarted {
		t.Fatalf("fresh instance must be not_started, got %s", inst.State())
	}
	if err := inst.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !inst.IsStarted() || inst.StartTime() == nil {
		t.Error("Start must set state and start time")
	}
	if err := inst.Finish(ctx); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if !inst.IsFinished() || inst.FinishTime() == nil {
		t.Error("Finish must set state and finish time")
	}
	if err := inst.SetComment(ctx, "went fine"); err != nil {
		t.Fatalf("SetComment: %v", err)
	}
	if err := inst.SetTimeSpent(ctx, 25*time.Minute); err != nil {
		t.Fatalf("SetTimeSpent: %v", err)
	}

	// Every mutation is write-through; a fresh tracker over the same store
	// must observe the final state.
	reloaded, err := core.NewTracker(ctx, st, testLogger(), time.Local, 0)
	if err != nil {
		t.Fatalf("reload tracker: %v", err)
	}
	again, err := reloaded.Instance(ctx, core.InstanceID(task.ID(), day))
	if err != nil {
		t.Fatalf("Instance: %v", err)
	}
	if !again.IsFinished() {
		t.Errorf("expected finished, got %s", again.State())
	}
	if again.Comment() != "went fine" {
		t.Errorf("comment not persisted, got %q", again.Comment())
	}
	if again.TimeSpent() != 25*time.Minute {
		t.Errorf("time spent not persisted, got %s", again.TimeSpent())
	}

	if err := again.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if again.State() != core.StateNotStarted {
		t.Errorf("expected not_started after reset, got %s", again.State())
	}
}

func TestInstanceCache_EvictionIsLossless(t *testing.T) {
	// Cache bound of one: materializing the second instance evicts the
	// first, which must reload from storage with identical state.
	tracker, _ := testTracker(t, 1)
	ctx := context.Background()

	if _, err := tracker.AddTask(ctx, "alpha", core.RepeatNone, 0, localTime(2023, time.January, 1, 8, 0)); err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	if _, err := tracker.AddTask(ctx, "beta", core.RepeatNone, 0, localTime(2023, time.January, 1, 9, 0)); err != nil {
		t.Fatalf("AddTask: %v", err)
	}

	day := core.Date{Year: 2023, Month: time.January, Day: 1}
	instances, err := tracker.InstancesOn(ctx, day)
	if err != nil {
		t.Fatalf("InstancesOn: %v", err)
	}
	if len(instances) != 2 {
		t.Fatalf("expected 2 instances, got %d", len(instances))
	}
	if err := instances[0].Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	firstID := instances[0].ID()

	again, err := tracker.InstancesOn(ctx, day)
	if err != nil {
		t.Fatalf("InstancesOn: %v", err)
	}
	if again[0].ID() != firstID {
		t.Fatalf("ordering changed across queries")
	}
	if !again[0].IsStarted() {
		t.Error("evicted instance lost its started state")
	}
}

func TestClear(t *testing.T) {
	tracker, _ := testTracker(t, 0)
	ctx := context.Background()

	if _, err := tracker.AddTask(ctx, "dishes", core.RepeatNone, 0, localTime(2023, time.January, 1, 9, 0)); err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	day := core.Date{Year: 2023, Month: time.January, Day: 1}
	if _, err := tracker.InstancesOn(ctx, day); err != nil {
		t.Fatalf("InstancesOn: %v", err)
	}

	if err := tracker.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if len(tracker.Tasks()) != 0 {
		t.Error("definitions survived Clear")
	}
	instances, err := tracker.InstancesOn(ctx, day)
	if err != nil {
		t.Fatalf("InstancesOn: %v", err)
	}
	if len(instances) != 0 {
		t.Error("instances survived Clear")
	}
}
