// Package ingest exposes the HTTP trigger surface: POST /v1/trigger
// (bearer API key) and POST /v1/trigger/webhook (API key in the token
// query parameter), per
// spec.md §6.1.
package ingest

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/notifico/notifico/internal/apikey"
	"github.com/notifico/notifico/internal/engine"
	"github.com/notifico/notifico/internal/event"
	"github.com/notifico/notifico/internal/model"
)

// Server handles HTTP event-trigger requests.
type Server struct {
	handler *event.Handler
	auth    *apikey.Authorizer
	log     *slog.Logger
}

// New builds an ingest Server.
func New(handler *event.Handler, auth *apikey.Authorizer, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{handler: handler, auth: auth, log: log}
}

// RegisterRoutes mounts the ingest routes on mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/trigger", s.handleTrigger)
	mux.HandleFunc("POST /v1/trigger/webhook", s.handleWebhook)
}

type triggerRequest struct {
	ID         *uuid.UUID              `json:"id,omitempty"`
	Event      string                  `json:"event"`
	Context    map[string]any          `json:"context"`
	Recipients []recipientSelectorJSON `json:"recipients,omitempty"`
}

type recipientSelectorJSON struct {
	ID     *uuid.UUID      `json:"id,omitempty"`
	Inline *model.Recipient `json:"inline,omitempty"`
}

func toSelectors(in []recipientSelectorJSON) []engine.RecipientSelector {
	if len(in) == 0 {
		return nil
	}
	out := make([]engine.RecipientSelector, len(in))
	for i, s := range in {
		out[i] = engine.RecipientSelector{ID: s.ID, Inline: s.Inline}
	}
	return out
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	key := bearerToken(r)
	if key == "" {
		http.Error(w, "missing bearer token", http.StatusUnauthorized)
		return
	}

	projectID, err := s.auth.Resolve(r.Context(), key)
	if err != nil {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
		return
	}

	var req triggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}
	if req.Event == "" {
		http.Error(w, "event is required", http.StatusBadRequest)
		return
	}

	n, err := s.handler.ProcessEventRequest(r.Context(), event.Request{
		ID:         req.ID,
		ProjectID:  projectID,
		EventName:  req.Event,
		Context:    engine.EventContext(req.Context),
		Recipients: toSelectors(req.Recipients),
	})
	if err != nil {
		s.log.Error("trigger failed", "event", req.Event, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"pipelines_matched": n})
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	eventName := r.URL.Query().Get("event")
	token := r.URL.Query().Get("token")
	if eventName == "" || token == "" {
		http.Error(w, "event and token query params are required", http.StatusBadRequest)
		return
	}

	projectID, err := s.auth.Resolve(r.Context(), token)
	if err != nil {
		http.Error(w, "invalid webhook token", http.StatusUnauthorized)
		return
	}

	var payload map[string]any
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&payload)
	}

	n, err := s.handler.ProcessEventRequest(r.Context(), event.Request{
		ProjectID: projectID,
		EventName: eventName,
		Context:   engine.EventContext(payload),
	})
	if err != nil {
		s.log.Error("webhook trigger failed", "event", eventName, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"pipelines_matched": n})
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
