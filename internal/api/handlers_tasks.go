package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tasktrackd/internal/core"

	"github.com/go-chi/chi/v5"
)

type createTaskRequest struct {
	Name       string `json:"name"`
	RepeatType string `json:"repeat_type"`
	RepeatInfo int    `json:"repeat_info"`
	StartDate  string `json:"start_date"`
	StartTime  string `json:"start_time"`
	Comment    string `json:"comment"`
}

type updateTaskRequest struct {
	Name       *string `json:"name"`
	RepeatType *string `json:"repeat_type"`
	RepeatInfo *int    `json:"repeat_info"`
	StartDate  *string `json:"start_date"`
	StartTime  *string `json:"start_time"`
	State      *string `json:"state"`
	Comment    *string `json:"comment"`
}

type taskResponse struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	ScheduledStart string `json:"scheduled_start,omitempty"`
	State          string `json:"state,omitempty"`
	Comment        string `json:"comment,omitempty"`
	RepeatType     string `json:"repeat_type"`
	RepeatInfo     int    `json:"repeat_info"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

// parseClock parses an HH:MM time-of-day string.
func parseClock(value string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(value))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time of day %q", value)
	}
	return t.Hour(), t.Minute(), nil
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "invalid_input", "name is required")
		return
	}
	day, err := core.ParseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "start_date must be YYYY-MM-DD")
		return
	}
	hour, minute := 0, 0
	if req.StartTime != "" {
		hour, minute, err = parseClock(req.StartTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_input", "start_time must be HH:MM")
			return
		}
	}

	task, err := s.tracker.AddTask(r.Context(), req.Name, core.RepeatType(req.RepeatType), req.RepeatInfo, day.At(hour, minute, s.location))
	if err != nil {
		if errors.Is(err, core.ErrInvalidRepeat) || errors.Is(err, core.ErrEmptyName) {
			writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
			return
		}
		s.logger.Error("add task", "err", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to create task")
		return
	}
	if req.Comment != "" {
		if err := task.SetComment(r.Context(), req.Comment); err != nil {
			s.logger.Error("set task comment", "task_id", task.ID(), "err", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "task created but comment could not be saved")
			return
		}
	}

	writeJSON(w, http.StatusCreated, taskToResponse(task.Data()))
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks := s.tracker.Tasks()
	res := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		res = append(res, taskToResponse(t.Data()))
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := s.taskIDParam(w, r)
	if !ok {
		return
	}
	task := s.tracker.Task(id)
	if task == nil {
		writeError(w, http.StatusNotFound, "not_found", "task not found")
		return
	}
	writeJSON(w, http.StatusOK, taskToResponse(task.Data()))
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := s.taskIDParam(w, r)
	if !ok {
		return
	}
	task := s.tracker.Task(id)
	if task == nil {
		writeError(w, http.StatusNotFound, "not_found", "task not found")
		return
	}

	var req updateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}

	data := *task.Data()
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			writeError(w, http.StatusBadRequest, "invalid_input", "name cannot be empty")
			return
		}
		data.Name = name
	}
	if req.RepeatType != nil {
		data.RepeatType = core.RepeatType(*req.RepeatType)
	}
	if req.RepeatInfo != nil {
		data.RepeatInfo = *req.RepeatInfo
	}
	if req.State != nil {
		data.State = *req.State
	}
	if req.Comment != nil {
		data.Comment = *req.Comment
	}
	if req.StartDate != nil || req.StartTime != nil {
		local := data.ScheduledStart.In(s.location)
		day := core.DateOf(local)
		hour, minute := local.Hour(), local.Minute()
		if req.StartDate != nil {
			parsed, err := core.ParseDate(*req.StartDate)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_input", "start_date must be YYYY-MM-DD")
				return
			}
			day = parsed
		}
		if req.StartTime != nil {
			var err error
			hour, minute, err = parseClock(*req.StartTime)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_input", "start_time must be HH:MM")
				return
			}
		}
		data.ScheduledStart = day.At(hour, minute, s.location)
	}

	if err := s.tracker.ModifyTask(r.Context(), &data); err != nil {
		switch {
		case errors.Is(err, core.ErrTaskNotFound):
			writeError(w, http.StatusNotFound, "not_found", "task not found")
		case errors.Is(err, core.ErrInvalidRepeat):
			writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		default:
			s.logger.Error("modify task", "task_id", id, "err", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to update task")
		}
		return
	}

	writeJSON(w, http.StatusOK, taskToResponse(&data))
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := s.taskIDParam(w, r)
	if !ok {
		return
	}
	// Cascades to materialized instance rows; unknown ids are a no-op.
	if err := s.tracker.DeleteTask(r.Context(), id); err != nil {
		s.logger.Error("delete task", "task_id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to delete task")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTaskInstances(w http.ResponseWriter, r *http.Request) {
	id, ok := s.taskIDParam(w, r)
	if !ok {
		return
	}
	if s.tracker.Task(id) == nil {
		writeError(w, http.StatusNotFound, "not_found", "task not found")
		return
	}
	undoneOnly := r.URL.Query().Get("undone") == "true"
	records, err := s.store.ListInstances(r.Context(), id, undoneOnly)
	if err != nil {
		s.logger.Error("list instances", "task_id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list instances")
		return
	}
	res := make([]instanceResponse, 0, len(records))
	for _, rec := range records {
		res = append(res, instanceDataToResponse(rec))
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) taskIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "taskID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "task id must be an integer")
		return 0, false
	}
	return id, true
}

func taskToResponse(data *core.TaskData) taskResponse {
	res := taskResponse{
		ID:         data.ID,
		Name:       data.Name,
		State:      data.State,
		Comment:    data.Comment,
		RepeatType: string(data.RepeatType),
		RepeatInfo: data.RepeatInfo,
		CreatedAt:  data.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:  data.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if !data.ScheduledStart.IsZero() {
		res.ScheduledStart = data.ScheduledStart.Format(time.RFC3339)
	}
	return res
}
