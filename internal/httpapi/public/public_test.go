package public

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type fakeStore struct {
	calls []string
}

func (f *fakeStore) SetSubscribed(_ context.Context, recipientID uuid.UUID, eventName, channel string, subscribed bool) error {
	f.calls = append(f.calls, recipientID.String()+"/"+eventName+"/"+channel)
	return nil
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestHandleUnsubscribe_Success(t *testing.T) {
	store := &fakeStore{}
	s := New(store, "topsecret", nil)
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	recipientID := uuid.New()
	token := signToken(t, "topsecret", jwt.MapClaims{
		"scope":        "list-unsubscribe",
		"event":        "order.shipped",
		"recipient_id": recipientID.String(),
		"exp":          time.Now().Add(time.Hour).Unix(),
	})

	resp, err := http.Get(srv.URL + "/api/public/v1/email/unsubscribe?token=" + token)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if len(store.calls) != 1 {
		t.Fatalf("expected 1 SetSubscribed call, got %d", len(store.calls))
	}
}

func TestHandleUnsubscribe_BadSignature(t *testing.T) {
	store := &fakeStore{}
	s := New(store, "topsecret", nil)
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	token := signToken(t, "wrong-secret", jwt.MapClaims{
		"scope": "list-unsubscribe", "event": "x", "recipient_id": uuid.New().String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	resp, err := http.Get(srv.URL + "/api/public/v1/email/unsubscribe?token=" + token)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestHandleUnsubscribe_MissingToken(t *testing.T) {
	s := New(&fakeStore{}, "topsecret", nil)
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/public/v1/email/unsubscribe")
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}
