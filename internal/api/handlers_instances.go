package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"tasktrackd/internal/core"

	"github.com/go-chi/chi/v5"
)

type instanceResponse struct {
	ID             string  `json:"id"`
	ParentID       int64   `json:"parent_id"`
	Name           string  `json:"name"`
	ScheduledStart string  `json:"scheduled_start"`
	StartTime      *string `json:"start_time,omitempty"`
	FinishTime     *string `json:"finish_time,omitempty"`
	TimeSpentSecs  int64   `json:"time_spent_s"`
	Comment        string  `json:"comment,omitempty"`
	State          string  `json:"state"`
}

type updateInstanceRequest struct {
	Comment       *string `json:"comment"`
	TimeSpentSecs *int64  `json:"time_spent_s"`
}

// handleDayInstances materializes and returns the instances of every task
// occurring on the date in the path.
func (s *Server) handleDayInstances(w http.ResponseWriter, r *http.Request) {
	day, err := core.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "date must be YYYY-MM-DD")
		return
	}
	instances, err := s.tracker.InstancesOn(r.Context(), day)
	if err != nil {
		s.logger.Error("day instances", "date", day.String(), "err", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to resolve instances")
		return
	}
	res := make([]instanceResponse, 0, len(instances))
	for _, inst := range instances {
		res = append(res, instanceToResponse(inst))
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetInstance(w http.ResponseWriter, r *http.Request) {
	inst, ok := s.lookupInstance(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, instanceToResponse(inst))
}

func (s *Server) handleUpdateInstance(w http.ResponseWriter, r *http.Request) {
	inst, ok := s.lookupInstance(w, r)
	if !ok {
		return
	}
	var req updateInstanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	if req.Comment != nil {
		if err := inst.SetComment(r.Context(), *req.Comment); err != nil {
			s.logger.Error("set instance comment", "instance_id", inst.ID(), "err", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to update instance")
			return
		}
	}
	if req.TimeSpentSecs != nil {
		spent := time.Duration(*req.TimeSpentSecs) * time.Second
		if err := inst.SetTimeSpent(r.Context(), spent); err != nil {
			s.logger.Error("set instance time spent", "instance_id", inst.ID(), "err", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to update instance")
			return
		}
	}
	writeJSON(w, http.StatusOK, instanceToResponse(inst))
}

// instanceAction returns a handler performing one lifecycle transition.
func (s *Server) instanceAction(action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inst, ok := s.lookupInstance(w, r)
		if !ok {
			return
		}
		var err error
		switch action {
		case "start":
			err = inst.Start(r.Context())
		case "finish":
			err = inst.Finish(r.Context())
		case "skip":
			err = inst.Skip(r.Context())
		case "reset":
			err = inst.Reset(r.Context())
		}
		if err != nil {
			s.logger.Error("instance transition", "instance_id", inst.ID(), "action", action, "err", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to update instance")
			return
		}
		writeJSON(w, http.StatusOK, instanceToResponse(inst))
	}
}

func (s *Server) lookupInstance(w http.ResponseWriter, r *http.Request) (*core.TaskInstance, bool) {
	id := chi.URLParam(r, "instanceID")
	inst, err := s.tracker.Instance(r.Context(), id)
	if err != nil {
		if errors.Is(err, core.ErrInstanceNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "instance not found")
		} else {
			s.logger.Error("get instance", "instance_id", id, "err", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to load instance")
		}
		return nil, false
	}
	return inst, true
}

func instanceToResponse(inst *core.TaskInstance) instanceResponse {
	res := instanceResponse{
		ID:             inst.ID(),
		ParentID:       inst.ParentID(),
		Name:           inst.Name(),
		ScheduledStart: inst.ScheduledStart().Format(time.RFC3339),
		TimeSpentSecs:  int64(inst.TimeSpent() / time.Second),
		Comment:        inst.Comment(),
		State:          string(inst.State()),
	}
	if t := inst.StartTime(); t != nil {
		formatted := t.UTC().Format(time.RFC3339)
		res.StartTime = &formatted
	}
	if t := inst.FinishTime(); t != nil {
		formatted := t.UTC().Format(time.RFC3339)
		res.FinishTime = &formatted
	}
	return res
}

func instanceDataToResponse(data *core.InstanceData) instanceResponse {
	res := instanceResponse{
		ID:             data.ID,
		ParentID:       data.ParentID,
		Name:           data.Name,
		ScheduledStart: data.ScheduledStart.Format(time.RFC3339),
		TimeSpentSecs:  int64(data.TimeSpent / time.Second),
		Comment:        data.Comment,
		State:          string(data.State),
	}
	if data.StartTime != nil {
		formatted := data.StartTime.UTC().Format(time.RFC3339)
		res.StartTime = &formatted
	}
	if data.FinishTime != nil {
		formatted := data.FinishTime.UTC().Format(time.RFC3339)
		res.FinishTime = &formatted
	}
	return res
}
