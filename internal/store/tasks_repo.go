package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tasktrackd/internal/core"
)

// CreateTask reserves a bare definition row and returns the storage-assigned
// id. Recurrence fields are finalized by a follow-up UpdateTask.
func (s *Store) CreateTask(ctx context.Context, name string) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.DB.ExecContext(ctx, `
		INSERT INTO tasks (name, created_at, updated_at)
		VALUES (?, ?, ?)
	`, name, now, now)
	if err != nil {
		return 0, fmt.Errorf("insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("task insert id: %w", err)
	}
	return id, nil
}

func (s *Store) UpdateTask(ctx context.Context, task *core.TaskData) error {
	task.UpdatedAt = time.Now().UTC()
	res, err := s.DB.ExecContext(ctx, `
		UPDATE tasks
		SET name = ?, scheduled_start = ?, state = ?, comment = ?, repeat_type = ?, repeat_info = ?, updated_at = ?
		WHERE id = ?
	`, task.Name, nullableTimeValue(task.ScheduledStart), task.State, task.Comment,
		string(task.RepeatType), task.RepeatInfo, task.UpdatedAt.Format(time.RFC3339Nano), task.ID)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update task rows: %w", err)
	}
	if rows == 0 {
		return core.ErrTaskNotFound
	}
	return nil
}

func (s *Store) DeleteTask(ctx context.Context, id int64) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return core.ErrTaskNotFound
	}
	return nil
}

func (s *Store) GetTask(ctx context.Context, id int64) (*core.TaskData, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT id, name, scheduled_start, state, comment, repeat_type, repeat_info, created_at, updated_at
		FROM tasks WHERE id = ?
	`, id)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}

func (s *Store) ListTasks(ctx context.Context) ([]*core.TaskData, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, name, scheduled_start, state, comment, repeat_type, repeat_info, created_at, updated_at
		FROM tasks
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()
	var tasks []*core.TaskData
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

func scanTask(scanner interface {
	Scan(dest ...any) error
}) (*core.TaskData, error) {
	var (
		id             int64
		name           string
		scheduledStart sql.NullString
		state          string
		comment        string
		repeatType     string
		repeatInfo     int
		createdAt      string
		updatedAt      string
	)
	if err := scanner.Scan(&id, &name, &scheduledStart, &state, &comment, &repeatType, &repeatInfo, &createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("scan task: %w", err)
	}
	task := &core.TaskData{
		ID:         id,
		Name:       name,
		State:      state,
		Comment:    comment,
		RepeatType: core.RepeatType(repeatType),
		RepeatInfo: repeatInfo,
	}
	if scheduledStart.Valid {
		if t, err := time.Parse(time.RFC3339Nano, scheduledStart.String); err == nil {
			task.ScheduledStart = t.Local()
		}
	}
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		task.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		task.UpdatedAt = t
	}
	return task, nil
}
