package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tasktrackd/internal/core"
)

// CreateInstance persists a new instance row keyed by the caller-supplied
// identifier.
func (s *Store) CreateInstance(ctx context.Context, inst *core.InstanceData) error {
	inst.CreatedAt = time.Now().UTC()
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO task_instances (id, parent_id, name, scheduled_start, start_time, finish_time, time_spent_s, comment, state, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, inst.ID, inst.ParentID, inst.Name, nullableTimeValue(inst.ScheduledStart),
		nullableTime(inst.StartTime), nullableTime(inst.FinishTime),
		int64(inst.TimeSpent/time.Second), inst.Comment, string(inst.State),
		inst.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert instance: %w", err)
	}
	return nil
}

func (s *Store) UpdateInstance(ctx context.Context, inst *core.InstanceData) error {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE task_instances
		SET name = ?, scheduled_start = ?, start_time = ?, finish_time = ?, time_spent_s = ?, comment = ?, state = ?
		WHERE id = ?
	`, inst.Name, nullableTimeValue(inst.ScheduledStart),
		nullableTime(inst.StartTime), nullableTime(inst.FinishTime),
		int64(inst.TimeSpent/time.Second), inst.Comment, string(inst.State), inst.ID)
	if err != nil {
		return fmt.Errorf("update instance: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return core.ErrInstanceNotFound
	}
	return nil
}

func (s *Store) GetInstance(ctx context.Context, id string) (*core.InstanceData, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT id, parent_id, name, scheduled_start, start_time, finish_time, time_spent_s, comment, state, created_at
		FROM task_instances WHERE id = ?
	`, id)
	inst, err := scanInstance(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrInstanceNotFound
		}
		return nil, err
	}
	return inst, nil
}

// DeleteInstancesByParent removes every instance row of a definition and
// returns how many were deleted.
func (s *Store) DeleteInstancesByParent(ctx context.Context, parentID int64) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM task_instances WHERE parent_id = ?`, parentID)
	if err != nil {
		return 0, fmt.Errorf("delete instances: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return rows, nil
}

// ListInstances returns instance rows ordered by key. A positive parentID
// filters to one definition; undoneOnly keeps rows that are not finished or
// skipped.
func (s *Store) ListInstances(ctx context.Context, parentID int64, undoneOnly bool) ([]*core.InstanceData, error) {
	query := `
		SELECT id, parent_id, name, scheduled_start, start_time, finish_time, time_spent_s, comment, state, created_at
		FROM task_instances
	`
	var (
		where []string
		args  []any
	)
	if parentID > 0 {
		where = append(where, `parent_id = ?`)
		args = append(args, parentID)
	}
	if undoneOnly {
		where = append(where, `state NOT IN (?, ?)`)
		args = append(args, string(core.StateFinished), string(core.StateSkipped))
	}
	for i, cond := range where {
		if i == 0 {
			query += ` WHERE ` + cond
		} else {
			query += ` AND ` + cond
		}
	}
	query += ` ORDER BY id ASC`

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list instances: %w", err)
	}
	defer rows.Close()
	var instances []*core.InstanceData
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		instances = append(instances, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return instances, nil
}

func scanInstance(scanner interface {
	Scan(dest ...any) error
}) (*core.InstanceData, error) {
	var (
		id             string
		parentID       int64
		name           string
		scheduledStart sql.NullString
		startTime      sql.NullString
		finishTime     sql.NullString
		timeSpent      int64
		comment        string
		state          string
		createdAt      string
	)
	if err := scanner.Scan(&id, &parentID, &name, &scheduledStart, &startTime, &finishTime, &timeSpent, &comment, &state, &createdAt); err != nil {
		return nil, fmt.Errorf("scan instance: %w", err)
	}
	inst := &core.InstanceData{
		ID:        id,
		ParentID:  parentID,
		Name:      name,
		TimeSpent: time.Duration(timeSpent) * time.Second,
		Comment:   comment,
		State:     core.InstanceState(state),
	}
	if scheduledStart.Valid {
		if t, err := time.Parse(time.RFC3339Nano, scheduledStart.String); err == nil {
			inst.ScheduledStart = t.Local()
		}
	}
	if startTime.Valid {
		if t, err := time.Parse(time.RFC3339Nano, startTime.String); err == nil {
			inst.StartTime = &t
		}
	}
	if finishTime.Valid {
		if t, err := time.Parse(time.RFC3339Nano, finishTime.String); err == nil {
			inst.FinishTime = &t
		}
	}
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		inst.CreatedAt = t
	}
	return inst, nil
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func nullableTimeValue(value time.Time) any {
	if value.IsZero() {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}
