package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"go-offline-cache/internal/control"
	"go-offline-cache/internal/lifecycle"
	"go-offline-cache/internal/models"
)

// handleState returns the host-facing state
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	snapshot := s.channel.Snapshot()
	s.writeResponse(w, &snapshot)
}

// handleMessage executes a control message posted as {"type": ...}
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	body, err := s.readBody(r)
	if err != nil {
		s.writeErrorResponse(w, "Invalid request", http.StatusBadRequest)
		return
	}

	msg, err := control.ParseMessage(body)
	if err != nil {
		s.writeErrorResponse(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if err := s.channel.Handle(r.Context(), msg); err != nil {
		s.writeErrorResponse(w, fmt.Sprintf("Control message failed: %v", err), http.StatusInternalServerError)
		return
	}
	s.writeSuccess(w)
}

// handleUpdate activates the waiting version on behalf of the host
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if err := s.channel.UpdateServiceWorker(r.Context()); err != nil {
		s.writeErrorResponse(w, fmt.Sprintf("Update failed: %v", err), http.StatusInternalServerError)
		return
	}
	s.writeSuccess(w)
}

// handleClear deletes every cache namespace
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.channel.ClearCache(r.Context()); err != nil {
		s.writeErrorResponse(w, fmt.Sprintf("Clear failed: %v", err), http.StatusInternalServerError)
		return
	}
	s.writeSuccess(w)
}

// handleInstall installs the deployed version unless it is already known
func (s *Server) handleInstall(w http.ResponseWriter, r *http.Request) {
	if _, err := s.registration.Update(r.Context()); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, lifecycle.ErrInstallFailed) {
			status = http.StatusBadGateway
		}
		s.writeErrorResponse(w, fmt.Sprintf("Install failed: %v", err), status)
		return
	}
	s.writeSuccess(w)
}

// handleActivate activates the waiting version if there is one
func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	msg := models.ControlMessage{Type: models.MessageTypeSkipWaiting}
	if err := s.channel.Handle(r.Context(), msg); err != nil {
		s.writeErrorResponse(w, fmt.Sprintf("Activate failed: %v", err), http.StatusInternalServerError)
		return
	}
	s.writeSuccess(w)
}

// handleEvents streams host events as server-sent events until the client goes away
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeErrorResponse(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	// the stream outlives the server read and write timeouts
	rc := http.NewResponseController(w)
	for _, setDeadline := range []func(time.Time) error{rc.SetReadDeadline, rc.SetWriteDeadline} {
		if err := setDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
			s.logger.Warn("Failed to clear deadline for event stream", zap.Error(err))
		}
	}

	events, unsubscribe := s.channel.State().Subscribe(16)
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				s.logger.Error("Failed to encode event", zap.Error(err))
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (s *Server) writeSuccess(w http.ResponseWriter) {
	snapshot := s.channel.Snapshot()
	s.writeResponse(w, &ControlResponse{Success: true, State: &snapshot})
}
