// Package server provides the HTTP surface of the hand retargeting
// service: REST endpoints for models, calibration and adapters, plus
// WebSocket ingress for landmark frames and egress for joint commands.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/reatured/handvis/internal/app"
	"github.com/reatured/handvis/internal/server/api"
	"github.com/reatured/handvis/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	App       *app.App
}

// Server is the HTTP server for the retargeting service.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Store != nil {
		modelsHandler := api.NewModelsHandler(s.config.Store, s.config.App)
		s.mux.Handle("/api/models", modelsHandler)
		s.mux.Handle("/api/models/", modelsHandler)
	}

	if s.config.App != nil {
		calibrationHandler := api.NewCalibrationHandler(s.config.App)
		s.mux.Handle("/api/calibration", calibrationHandler)
		s.mux.Handle("/api/calibration/", calibrationHandler)

		adaptersHandler := api.NewAdaptersHandler(s.config.App)
		s.mux.Handle("/api/adapters", adaptersHandler)
		s.mux.Handle("/api/adapters/", adaptersHandler)

		s.mux.Handle("/ws/frames", NewFramesHandler(s.config.App))
		s.mux.Handle("/ws/joints", NewJointsHandler(s.config.App))
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(s.start)

	response := map[string]interface{}{
		"status": "ok",
		"uptime": uptime.String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}
