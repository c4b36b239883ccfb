// Package api is the administration surface: the HTTP interface the popup
// client uses for stats, the capture toggle, and fact deletion.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/crosstalk-ai/crosstalk/internal/coordinator"
)

type Server struct {
	router *chi.Mux
	coord  *coordinator.Coordinator
	port   int
}

func NewServer(port int, coord *coordinator.Coordinator) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router: router,
		coord:  coord,
		port:   port,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/context/stats", s.stats)
	router.Post("/api/v1/context/toggle", s.toggle)
	router.Delete("/api/v1/context", s.clearAll)
	router.Delete("/api/v1/facts/{id}", s.deleteFact)

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	slog.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.coord.GetStats(r.Context()))
}

func (s *Server) toggle(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Enabled *bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Enabled == nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "enabled flag required"})
		return
	}
	if err := s.coord.SetEnabled(r.Context(), *body.Enabled); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "enabled": *body.Enabled})
}

func (s *Server) clearAll(w http.ResponseWriter, r *http.Request) {
	if err := s.coord.ClearAll(r.Context()); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) deleteFact(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid fact id"})
		return
	}
	if err := s.coord.DeleteFact(r.Context(), id); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
