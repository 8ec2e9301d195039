package server

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"os/exec"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/drewdunne/scmpoll/internal/config"
	"github.com/drewdunne/scmpoll/internal/logging"
	"github.com/drewdunne/scmpoll/internal/metrics"
	"github.com/drewdunne/scmpoll/internal/scm"
)

// maxRequestBody bounds plugin request bodies.
const maxRequestBody = 10 << 20

// RequestIDHeader carries the id assigned to each plugin request.
const RequestIDHeader = "X-Request-Id"

// HealthResponse represents the health check response structure.
type HealthResponse struct {
	Status string                 `json:"status"`
	Checks map[string]interface{} `json:"checks"`
}

// Server exposes the plugin over HTTP.
type Server struct {
	cfg          *config.Config
	plugin       *scm.Plugin
	router       chi.Router
	log          *logging.Logger
	gitAvailable bool

	mu       sync.Mutex // guards http and listener
	http     *http.Server
	listener net.Listener
	ready    chan struct{} // closed once the listener is open
}

// New creates a new Server serving plugin requests through p.
func New(cfg *config.Config, p *scm.Plugin, log *logging.Logger) *Server {
	if log == nil {
		log = logging.Nop()
	}
	s := &Server{
		cfg:          cfg,
		plugin:       p,
		router:       chi.NewRouter(),
		log:          log,
		ready:        make(chan struct{}),
		gitAvailable: checkGitAvailable(),
	}
	s.routes()
	return s
}

// Ready returns a channel that is closed when the server is ready to accept connections.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// checkGitAvailable checks if the git binary is on the PATH.
func checkGitAvailable() bool {
	_, err := exec.LookPath("git")
	return err == nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// routes sets up the HTTP routes.
func (s *Server) routes() {
	r := s.router

	r.Get("/health", s.handleHealth)
	r.Get("/metrics", s.handleMetrics)
	r.Post("/go/plugin/{request}", s.handlePluginRequest)
}

// handleHealth responds with server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := map[string]interface{}{
		"git":      s.gitAvailable,
		"provider": s.plugin.Provider().Name(),
	}

	status := "ok"
	if !s.gitAvailable {
		status = "degraded"
	}

	health := HealthResponse{
		Status: status,
		Checks: checks,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// handleMetrics responds with current operational metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	m := metrics.Get()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(m)
}

// handlePluginRequest passes the body to the plugin under the request name
// taken from the path and relays its response.
func (s *Server) handlePluginRequest(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "request")
	id := uuid.NewString()
	log := s.log.With("request_id", id).With("request", name)
	start := time.Now()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		log.Warn("reading request body", err)
		http.Error(w, "could not read request body", http.StatusBadRequest)
		return
	}

	resp := s.plugin.Handle(r.Context(), name, body)

	w.Header().Set(RequestIDHeader, id)
	if resp.Body != nil {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(resp.Code)
	if resp.Body != nil {
		w.Write(resp.Body)
	}

	log.Infof("handled with status %d in %s", resp.Code, time.Since(start).Round(time.Millisecond))
}
