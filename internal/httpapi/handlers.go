package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/alexanderramin/hourglass/internal/service"
)

type trackerRequest struct {
	TimeTracker *service.TrackerParams `json:"time_tracker"`
}

type bulkUpdateRequest struct {
	TimeTrackers []struct {
		ID          string                 `json:"id"`
		TimeTracker *service.TrackerParams `json:"time_tracker"`
	} `json:"time_trackers"`
}

type bulkDestroyRequest struct {
	IDs []string `json:"ids"`
}

// decodeBody decodes a JSON body into dst. An empty body leaves dst untouched
// and reports false.
func decodeBody(r *http.Request, dst any) (bool, error) {
	if r.Body == nil {
		return false, nil
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func refParam(r *http.Request) service.TrackerRef {
	return service.ParseTrackerRef(chi.URLParam(r, "id"))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	trackers, err := s.trackers.List(r.Context(), ActorFromContext(r.Context()))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	views := make([]trackerView, 0, len(trackers))
	for _, t := range trackers {
		views = append(views, newTrackerView(t))
	}
	respondJSON(w, http.StatusOK, views)
}

func (s *Server) handleShow(w http.ResponseWriter, r *http.Request) {
	t, err := s.trackers.Get(r.Context(), ActorFromContext(r.Context()), refParam(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newTrackerView(t))
}

// handleStart accepts an empty body; the start time in params is ignored.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req trackerRequest
	if _, err := decodeBody(r, &req); err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	t, err := s.trackers.Start(r.Context(), ActorFromContext(r.Context()), req.TimeTracker)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newTrackerView(t))
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req trackerRequest
	if _, err := decodeBody(r, &req); err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TimeTracker == nil {
		respondMessage(w, http.StatusBadRequest, "time_tracker is required")
		return
	}
	t, err := s.trackers.Update(r.Context(), ActorFromContext(r.Context()), refParam(r), req.TimeTracker)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newTrackerView(t))
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	result, err := s.trackers.Stop(r.Context(), ActorFromContext(r.Context()), refParam(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newStopView(result))
}

func (s *Server) handleDestroy(w http.ResponseWriter, r *http.Request) {
	if err := s.trackers.Destroy(r.Context(), ActorFromContext(r.Context()), refParam(r)); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, struct{}{})
}

func (s *Server) handleBulkUpdate(w http.ResponseWriter, r *http.Request) {
	var req bulkUpdateRequest
	if ok, err := decodeBody(r, &req); err != nil || !ok {
		respondMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	items := make([]service.BulkItem, 0, len(req.TimeTrackers))
	for _, entry := range req.TimeTrackers {
		items = append(items, service.BulkItem{ID: entry.ID, Params: entry.TimeTracker})
	}
	result, err := s.trackers.BulkUpdate(r.Context(), ActorFromContext(r.Context()), items)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, bulkStatus(result), newBulkView(result))
}

func (s *Server) handleBulkDestroy(w http.ResponseWriter, r *http.Request) {
	var req bulkDestroyRequest
	if ok, err := decodeBody(r, &req); err != nil || !ok {
		respondMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := s.trackers.BulkDestroy(r.Context(), ActorFromContext(r.Context()), req.IDs)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, bulkStatus(result), newBulkView(result))
}

func bulkStatus[T any](r *service.BulkResult[T]) int {
	switch r.Status() {
	case service.BulkPartial:
		return http.StatusMultiStatus
	case service.BulkFailed:
		return http.StatusBadRequest
	}
	return http.StatusOK
}
