package api

import (
	"encoding/json"
	"net/http"

	"github.com/marcus/visita/internal/models"
)

func (s *Server) handleListRegions(w http.ResponseWriter, r *http.Request) {
	regions, err := s.store.ListRegions()
	if err != nil {
		s.writeStoreError(w, r, "list regions", err)
		return
	}
	if regions == nil {
		regions = []models.Region{}
	}
	writeJSON(w, http.StatusOK, regions)
}

func (s *Server) handleUpsertRegion(w http.ResponseWriter, r *http.Request) {
	var region models.Region
	if err := json.NewDecoder(r.Body).Decode(&region); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid json body")
		return
	}
	if region.Name == "" {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "region name is required")
		return
	}
	saved, err := s.store.UpsertRegion(region)
	if err != nil {
		s.writeStoreError(w, r, "upsert region", err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleDeleteRegion(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid region id")
		return
	}
	if err := s.store.DeleteRegion(id); err != nil {
		s.writeStoreError(w, r, "delete region", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.store.ListProducts()
	if err != nil {
		s.writeStoreError(w, r, "list products", err)
		return
	}
	if products == nil {
		products = []models.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

func (s *Server) handleUpsertProduct(w http.ResponseWriter, r *http.Request) {
	var product models.Product
	if err := json.NewDecoder(r.Body).Decode(&product); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid json body")
		return
	}
	if product.Name == "" {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "product name is required")
		return
	}
	saved, err := s.store.UpsertProduct(product)
	if err != nil {
		s.writeStoreError(w, r, "upsert product", err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid product id")
		return
	}
	if err := s.store.DeleteProduct(id); err != nil {
		s.writeStoreError(w, r, "delete product", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
