package api

import (
	"encoding/json"
	"net/http"

	"github.com/marcus/visita/internal/models"
)

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.store.ListOrders()
	if err != nil {
		s.writeStoreError(w, r, "list orders", err)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

func (s *Server) handleUpsertOrder(w http.ResponseWriter, r *http.Request) {
	var order models.Order
	if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid json body")
		return
	}
	if order.StoreID == 0 {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "order store_id is required")
		return
	}
	saved, err := s.store.UpsertOrder(order)
	if err != nil {
		s.writeStoreError(w, r, "upsert order", err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleDeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid order id")
		return
	}
	if err := s.store.DeleteOrder(id); err != nil {
		s.writeStoreError(w, r, "delete order", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
