package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/marcus/visita/internal/models"
)

func (s *Server) handleListVisits(w http.ResponseWriter, r *http.Request) {
	visits, err := s.store.ListVisits()
	if err != nil {
		s.writeStoreError(w, r, "list visits", err)
		return
	}
	if visits == nil {
		visits = []models.Visit{}
	}
	writeJSON(w, http.StatusOK, visits)
}

func (s *Server) handleUpsertVisit(w http.ResponseWriter, r *http.Request) {
	var visit models.Visit
	if err := json.NewDecoder(r.Body).Decode(&visit); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid json body")
		return
	}
	if visit.StoreID == 0 || visit.VisitDate == "" {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "visit store_id and visit_date are required")
		return
	}
	saved, err := s.store.UpsertVisit(visit)
	if err != nil {
		s.writeStoreError(w, r, "upsert visit", err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// visitStatusRequest is the body for PATCH /v1/visits/{id}/status.
type visitStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleVisitStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid visit id")
		return
	}
	var req visitStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid json body")
		return
	}
	status := models.VisitStatus(req.Status)
	if status != models.VisitPending && status != models.VisitDone {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "status must be pending or done")
		return
	}
	if err := s.store.UpdateVisitStatus(id, status); err != nil {
		s.writeStoreError(w, r, "update visit status", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteVisit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid visit id")
		return
	}
	if err := s.store.DeleteVisit(id); err != nil {
		s.writeStoreError(w, r, "delete visit", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListVisitLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := s.store.ListVisitLogs()
	if err != nil {
		s.writeStoreError(w, r, "list visit logs", err)
		return
	}
	if logs == nil {
		logs = []models.VisitLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}

func (s *Server) handleUpsertVisitLog(w http.ResponseWriter, r *http.Request) {
	var log models.VisitLog
	if err := json.NewDecoder(r.Body).Decode(&log); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid json body")
		return
	}
	if log.StoreID == 0 || log.VisitedAt.IsZero() {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "visit log store_id and visited_at are required")
		return
	}
	saved, err := s.store.UpsertVisitLog(log)
	if err != nil {
		s.writeStoreError(w, r, "upsert visit log", err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// visitLogUpdateRequest is the body for PATCH /v1/visit_logs/{id}.
type visitLogUpdateRequest struct {
	Note      string    `json:"note"`
	VisitedAt time.Time `json:"visited_at"`
}

func (s *Server) handleUpdateVisitLog(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid visit log id")
		return
	}
	var req visitLogUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid json body")
		return
	}
	if req.VisitedAt.IsZero() {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "visited_at is required")
		return
	}
	if err := s.store.UpdateVisitLog(id, req.Note, req.VisitedAt); err != nil {
		s.writeStoreError(w, r, "update visit log", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteVisitLog(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid visit log id")
		return
	}
	if err := s.store.DeleteVisitLog(id); err != nil {
		s.writeStoreError(w, r, "delete visit log", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
