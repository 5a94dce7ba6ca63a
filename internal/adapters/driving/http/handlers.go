package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/storyforge-labs/storyforge-core/internal/core/domain"
	"github.com/storyforge-labs/storyforge-core/internal/core/ports/driven"
)

type errorResponse struct {
	Error string `json:"error"`
}

type statusResponse struct {
	Status string `json:"status"`
}

type versionResponse struct {
	Version string `json:"version"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.store != nil {
		if err := s.store.Ping(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "store unavailable")
			return
		}
	}
	if s.queueBackend != nil {
		if err := s.queueBackend.Ping(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "queue unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ready"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, versionResponse{Version: s.version})
}

type enqueueProduceRequest struct {
	// SourceID targets a specific thread. Empty means a batch task.
	SourceID string `json:"source_id"`

	// Count is the batch size. Ignored when SourceID is set.
	Count int `json:"count"`

	// Force re-produces a SourceID thread already in the produced ledger.
	Force bool `json:"force"`
}

type enqueueProduceResponse struct {
	TaskID string `json:"task_id"`
}

func (s *Server) handleEnqueueProduce(w http.ResponseWriter, r *http.Request) {
	if s.queue == nil {
		writeError(w, http.StatusServiceUnavailable, "no task queue configured")
		return
	}

	var req enqueueProduceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var task *domain.Task
	if req.SourceID != "" {
		task = domain.NewProduceSourceTask(req.SourceID)
		if req.Force {
			task.Payload["force"] = "true"
		}
	} else {
		count := req.Count
		if count <= 0 {
			count = 1
		}
		task = domain.NewProduceBatchTask(count)
	}

	if err := s.queue.Enqueue(r.Context(), task); err != nil {
		s.logger.Error("enqueue failed", "error", err)
		writeError(w, http.StatusInternalServerError, "enqueue failed")
		return
	}
	writeJSON(w, http.StatusAccepted, enqueueProduceResponse{TaskID: task.ID})
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	if s.queue == nil {
		writeError(w, http.StatusServiceUnavailable, "no task queue configured")
		return
	}

	filter := driven.TaskFilter{
		Status: domain.TaskStatus(r.URL.Query().Get("status")),
		Type:   domain.TaskType(r.URL.Query().Get("type")),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = limit
	}

	tasks, err := s.queue.ListTasks(r.Context(), filter)
	if err != nil {
		s.logger.Error("list tasks failed", "error", err)
		writeError(w, http.StatusInternalServerError, "list tasks failed")
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	if s.queue == nil {
		writeError(w, http.StatusServiceUnavailable, "no task queue configured")
		return
	}

	task, err := s.queue.GetTask(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "task not found")
			return
		}
		s.logger.Error("get task failed", "error", err)
		writeError(w, http.StatusInternalServerError, "get task failed")
		return
	}
	if task == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleQueueStats(w http.ResponseWriter, r *http.Request) {
	if s.queue == nil {
		writeError(w, http.StatusServiceUnavailable, "no task queue configured")
		return
	}

	stats, err := s.queue.Stats(r.Context())
	if err != nil {
		s.logger.Error("queue stats failed", "error", err)
		writeError(w, http.StatusInternalServerError, "queue stats failed")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleListProduced(w http.ResponseWriter, r *http.Request) {
	videos, err := s.ledger.Produced(r.Context())
	if err != nil {
		s.logger.Error("list produced failed", "error", err)
		writeError(w, http.StatusInternalServerError, "list produced failed")
		return
	}
	writeJSON(w, http.StatusOK, videos)
}

func (s *Server) handleListUsed(w http.ResponseWriter, r *http.Request) {
	used, err := s.ledger.UsedUnits(r.Context())
	if err != nil {
		s.logger.Error("list used failed", "error", err)
		writeError(w, http.StatusInternalServerError, "list used failed")
		return
	}
	writeJSON(w, http.StatusOK, used)
}

func (s *Server) handleListUnsuitable(w http.ResponseWriter, r *http.Request) {
	ids, err := s.ledger.UnsuitableSources(r.Context())
	if err != nil {
		s.logger.Error("list unsuitable failed", "error", err)
		writeError(w, http.StatusInternalServerError, "list unsuitable failed")
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, ids)
}

type markUnsuitableRequest struct {
	SourceID string `json:"source_id"`
}

func (s *Server) handleMarkUnsuitable(w http.ResponseWriter, r *http.Request) {
	var req markUnsuitableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SourceID == "" {
		writeError(w, http.StatusBadRequest, "source_id is required")
		return
	}

	if err := s.ledger.MarkUnsuitable(r.Context(), req.SourceID); err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("mark unsuitable failed", "error", err)
		writeError(w, http.StatusInternalServerError, "mark unsuitable failed")
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
