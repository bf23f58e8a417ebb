package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/marcus/visita/internal/serverdb"
)

// Server is the HTTP API server for the visita table backend.
type Server struct {
	config Config
	http   *http.Server
	store  *serverdb.ServerDB
}

// NewServer creates a new Server with the given config and store.
func NewServer(cfg Config, store *serverdb.ServerDB) *Server {
	s := &Server{
		config: cfg,
		store:  store,
	}

	s.http = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      s.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Start begins listening for HTTP requests (non-blocking).
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	go func() {
		if err := s.http.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("http server", "err", err)
		}
	}()

	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Handler exposes the routed handler, used by tests with httptest.
func (s *Server) Handler() http.Handler {
	return s.routes()
}

// routes builds the HTTP handler with all routes and middleware.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)

	// Stores
	mux.HandleFunc("GET /v1/stores", s.requireAuth(s.handleListStores))
	mux.HandleFunc("GET /v1/stores/search", s.requireAuth(s.handleSearchStores))
	mux.HandleFunc("GET /v1/stores/{id}", s.requireAuth(s.handleGetStore))
	mux.HandleFunc("PUT /v1/stores", s.requireAuth(s.handleUpsertStore))
	mux.HandleFunc("DELETE /v1/stores/{id}", s.requireAuth(s.handleDeleteStore))
	mux.HandleFunc("POST /v1/stores/{id}/visit", s.requireAuth(s.handleLogVisit))
	mux.HandleFunc("DELETE /v1/stores/{id}/visit", s.requireAuth(s.handleClearVisit))
	mux.HandleFunc("POST /v1/stores/reset-visited", s.requireAuth(s.handleResetVisited))

	// Catalogs
	mux.HandleFunc("GET /v1/regions", s.requireAuth(s.handleListRegions))
	mux.HandleFunc("PUT /v1/regions", s.requireAuth(s.handleUpsertRegion))
	mux.HandleFunc("DELETE /v1/regions/{id}", s.requireAuth(s.handleDeleteRegion))
	mux.HandleFunc("GET /v1/products", s.requireAuth(s.handleListProducts))
	mux.HandleFunc("PUT /v1/products", s.requireAuth(s.handleUpsertProduct))
	mux.HandleFunc("DELETE /v1/products/{id}", s.requireAuth(s.handleDeleteProduct))

	// Orders
	mux.HandleFunc("GET /v1/orders", s.requireAuth(s.handleListOrders))
	mux.HandleFunc("PUT /v1/orders", s.requireAuth(s.handleUpsertOrder))
	mux.HandleFunc("DELETE /v1/orders/{id}", s.requireAuth(s.handleDeleteOrder))

	// Scheduled visits
	mux.HandleFunc("GET /v1/visits", s.requireAuth(s.handleListVisits))
	mux.HandleFunc("PUT /v1/visits", s.requireAuth(s.handleUpsertVisit))
	mux.HandleFunc("PATCH /v1/visits/{id}/status", s.requireAuth(s.handleVisitStatus))
	mux.HandleFunc("DELETE /v1/visits/{id}", s.requireAuth(s.handleDeleteVisit))

	// Visit logs
	mux.HandleFunc("GET /v1/visit_logs", s.requireAuth(s.handleListVisitLogs))
	mux.HandleFunc("PUT /v1/visit_logs", s.requireAuth(s.handleUpsertVisitLog))
	mux.HandleFunc("PATCH /v1/visit_logs/{id}", s.requireAuth(s.handleUpdateVisitLog))
	mux.HandleFunc("DELETE /v1/visit_logs/{id}", s.requireAuth(s.handleDeleteVisitLog))

	// Stats
	mux.HandleFunc("GET /v1/stats", s.requireAuth(s.handleStats))

	return chain(mux, recoveryMiddleware, requestIDMiddleware, loggerMiddleware, loggingMiddleware, maxBytesMiddleware(10<<20))
}

// handleHealth returns a health check response, pinging the server DB.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "error", "detail": "db unreachable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStats returns collection counts.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetStats(time.Now())
	if err != nil {
		s.writeStoreError(w, r, "stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// pathID parses the {id} path segment.
func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

// writeStoreError maps storage errors onto API error codes. A missing
// table means the database file predates the current schema; that gets a
// distinct code so clients can tell "run setup" apart from "try again".
func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		writeError(w, http.StatusNotFound, ErrCodeNotFound, op+": no such record")
	case serverdb.IsMissingSchema(err):
		logFor(r.Context()).Error(op, "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeSchemaMissing, "database schema is out of date")
	default:
		logFor(r.Context()).Error(op, "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, op+" failed")
	}
}
