// Package public implements the small set of unauthenticated (or
// token-authenticated) HTTP endpoints end recipients interact with
// directly: the list-unsubscribe callback minted by the subscription
// plugin, per spec.md §6.2.
package public

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SubscriptionStore records explicit subscription state changes.
type SubscriptionStore interface {
	SetSubscribed(ctx context.Context, recipientID uuid.UUID, eventName, channel string, subscribed bool) error
}

// Server implements the public HTTP surface.
type Server struct {
	Store  SubscriptionStore
	Secret []byte
	Log    *slog.Logger
}

// New builds a public Server. secret must match the HMAC key the
// subscription plugin signs unsubscribe tokens with.
func New(store SubscriptionStore, secret string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{Store: store, Secret: []byte(secret), Log: log}
}

// RegisterRoutes mounts the public routes on mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/public/v1/email/unsubscribe", s.handleUnsubscribe)
}

func (s *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "missing token", http.StatusBadRequest)
		return
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return s.Secret, nil
	})
	if err != nil {
		http.Error(w, "invalid or expired token", http.StatusUnauthorized)
		return
	}
	if claims["scope"] != "list-unsubscribe" {
		http.Error(w, "token not valid for unsubscribe", http.StatusForbidden)
		return
	}

	recipientIDStr, _ := claims["recipient_id"].(string)
	eventName, _ := claims["event"].(string)
	recipientID, err := uuid.Parse(recipientIDStr)
	if err != nil {
		http.Error(w, "invalid token claims", http.StatusBadRequest)
		return
	}

	if err := s.Store.SetSubscribed(r.Context(), recipientID, eventName, "email", false); err != nil {
		s.Log.Error("unsubscribe failed", "recipient_id", recipientID, "event", eventName, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("you have been unsubscribed"))
}
