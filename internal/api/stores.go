package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/marcus/visita/internal/models"
)

// handleListStores serves one page of the store list.
// Query params: page, page_size, region, purchase_prob, visit_status, weekday.
func (s *Server) handleListStores(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))

	filters := models.StoreFilters{
		Region:       q.Get("region"),
		PurchaseProb: q.Get("purchase_prob"),
		VisitStatus:  q.Get("visit_status"),
		Weekday:      q.Get("weekday"),
	}.Normalize(time.Now())

	stores, err := s.store.ListStores(page, pageSize, filters, time.Now())
	if err != nil {
		s.writeStoreError(w, r, "list stores", err)
		return
	}
	if stores == nil {
		stores = []models.Store{}
	}
	writeJSON(w, http.StatusOK, stores)
}

// handleSearchStores serves free-text store lookup. Unpaginated, capped.
func (s *Server) handleSearchStores(w http.ResponseWriter, r *http.Request) {
	stores, err := s.store.SearchStores(r.URL.Query().Get("q"))
	if err != nil {
		s.writeStoreError(w, r, "search stores", err)
		return
	}
	if stores == nil {
		stores = []models.Store{}
	}
	writeJSON(w, http.StatusOK, stores)
}

// handleGetStore serves one store with its orders and visit history.
func (s *Server) handleGetStore(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid store id")
		return
	}
	store, err := s.store.GetStore(id)
	if err != nil {
		s.writeStoreError(w, r, "get store", err)
		return
	}
	writeJSON(w, http.StatusOK, store)
}

// handleUpsertStore inserts or updates a store by id.
func (s *Server) handleUpsertStore(w http.ResponseWriter, r *http.Request) {
	var store models.Store
	if err := json.NewDecoder(r.Body).Decode(&store); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid json body")
		return
	}
	if store.Name == "" {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "store name is required")
		return
	}
	saved, err := s.store.UpsertStore(store)
	if err != nil {
		s.writeStoreError(w, r, "upsert store", err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// handleDeleteStore removes a store by id.
func (s *Server) handleDeleteStore(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid store id")
		return
	}
	if err := s.store.DeleteStore(id); err != nil {
		s.writeStoreError(w, r, "delete store", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// logVisitRequest is the body for POST /v1/stores/{id}/visit. The day
// bounds come from the caller so the one-log-per-day rule is keyed to the
// client's calendar day, not the server's.
type logVisitRequest struct {
	VisitType string    `json:"visit_type"`
	Now       time.Time `json:"now"`
	DayStart  time.Time `json:"day_start"`
	DayEnd    time.Time `json:"day_end"`
}

// handleLogVisit marks a store visited and finds-or-creates today's log.
func (s *Server) handleLogVisit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid store id")
		return
	}
	var req logVisitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid json body")
		return
	}
	if req.Now.IsZero() {
		req.Now = time.Now()
	}
	if req.DayStart.IsZero() || req.DayEnd.IsZero() || req.DayEnd.Before(req.DayStart) {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "day_start and day_end are required")
		return
	}

	log, err := s.store.LogVisit(id, models.ParseVisitType(req.VisitType), req.Now, req.DayStart, req.DayEnd)
	if err != nil {
		s.writeStoreError(w, r, "log visit", err)
		return
	}
	writeJSON(w, http.StatusOK, log)
}

// clearVisitRequest is the body for DELETE /v1/stores/{id}/visit.
type clearVisitRequest struct {
	VisitType string    `json:"visit_type"`
	DayStart  time.Time `json:"day_start"`
	DayEnd    time.Time `json:"day_end"`
}

// handleClearVisit reverts a store to unvisited and drops today's logs of
// the given type.
func (s *Server) handleClearVisit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid store id")
		return
	}
	var req clearVisitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid json body")
		return
	}
	if req.DayStart.IsZero() || req.DayEnd.IsZero() {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "day_start and day_end are required")
		return
	}
	if err := s.store.ClearVisit(id, models.ParseVisitType(req.VisitType), req.DayStart, req.DayEnd); err != nil {
		s.writeStoreError(w, r, "clear visit", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleResetVisited clears the daily visited flag on all stores.
func (s *Server) handleResetVisited(w http.ResponseWriter, r *http.Request) {
	n, err := s.store.ResetVisited()
	if err != nil {
		s.writeStoreError(w, r, "reset visited", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"reset": n})
}
