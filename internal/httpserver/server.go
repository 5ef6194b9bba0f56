package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"go-offline-cache/internal/control"
	"go-offline-cache/internal/lifecycle"
)

// Server exposes the caching proxy and the host control API
type Server struct {
	channel      *control.Channel
	registration *lifecycle.Registration
	transport    http.RoundTripper
	appOrigin    *url.URL
	forward      []*url.URL
	logger       *zap.Logger
	server       *http.Server

	readTimeout  time.Duration
	writeTimeout time.Duration
}

// NewServer creates a new HTTP server. transport answers proxied requests,
// normally an interceptor.Transport. Absolute-URI requests are only
// forwarded to the forward origins.
func NewServer(
	channel *control.Channel,
	registration *lifecycle.Registration,
	transport http.RoundTripper,
	appOrigin *url.URL,
	forward []*url.URL,
	logger *zap.Logger,
) *Server {
	return &Server{
		channel:      channel,
		registration: registration,
		transport:    transport,
		appOrigin:    appOrigin,
		forward:      forward,
		logger:       logger,
		readTimeout:  30 * time.Second,
		writeTimeout: 30 * time.Second,
	}
}

// Start starts the HTTP server on a TCP address
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	s.logger.Info("Starting offline cache HTTP server", zap.String("addr", addr))
	return s.serve(listener)
}

// StartUnixSocket starts the HTTP server on a Unix socket
func (s *Server) StartUnixSocket(socketPath string) error {
	// Remove existing socket file
	if err := os.RemoveAll(socketPath); err != nil {
		s.logger.Warn("Failed to remove existing socket file", zap.String("path", socketPath), zap.Error(err))
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return err
	}

	// Set socket permissions (readable/writable by owner and group)
	if err := os.Chmod(socketPath, 0660); err != nil {
		s.logger.Warn("Failed to set socket permissions", zap.String("path", socketPath), zap.Error(err))
	}

	s.logger.Info("Starting offline cache HTTP server on Unix socket", zap.String("socket_path", socketPath))
	return s.serve(listener)
}

func (s *Server) serve(listener net.Listener) error {
	s.server = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.readTimeout,
		WriteTimeout: s.writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	err := s.server.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	s.logger.Info("Stopping offline cache HTTP server")
	return s.server.Shutdown(ctx)
}

// Handler returns the configured router
func (s *Server) Handler() http.Handler {
	return s.createRouter()
}

// createRouter creates and configures the HTTP router
func (s *Server) createRouter() *mux.Router {
	router := mux.NewRouter()
	// proxied paths are forwarded as received
	router.SkipClean(true)

	// Health check
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	// Prometheus metrics endpoint
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// Host control API
	api := router.PathPrefix(ControlPrefix).Subrouter()
	api.HandleFunc("/state", s.handleState).Methods(http.MethodGet)
	api.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)
	api.HandleFunc("/message", s.handleMessage).Methods(http.MethodPost)
	api.HandleFunc("/update", s.handleUpdate).Methods(http.MethodPost)
	api.HandleFunc("/clear", s.handleClear).Methods(http.MethodPost)
	api.HandleFunc("/install", s.handleInstall).Methods(http.MethodPost)
	api.HandleFunc("/activate", s.handleActivate).Methods(http.MethodPost)

	// Everything else is proxied
	router.PathPrefix("/").HandlerFunc(s.handleProxy)

	return router
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeResponse(w, map[string]interface{}{
		"status": "healthy",
		"time":   time.Now().UTC(),
	})
}

// readBody reads a bounded request body
func (s *Server) readBody(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	return io.ReadAll(io.LimitReader(r.Body, maxControlBodySize))
}

// writeResponse writes JSON response
func (s *Server) writeResponse(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to write response", zap.Error(err))
	}
}

// writeErrorResponse writes error response
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	response := &ControlResponse{
		Success: false,
		Error:   message,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Error("Failed to write error response", zap.Error(err))
	}
}
