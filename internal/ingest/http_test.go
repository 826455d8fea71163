package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/notifico/notifico/internal/apikey"
	"github.com/notifico/notifico/internal/engine"
	"github.com/notifico/notifico/internal/event"
	"github.com/notifico/notifico/internal/model"
	"github.com/notifico/notifico/internal/queue/inproc"
)

type fakeSource struct{}

func (fakeSource) PipelinesForEvent(context.Context, uuid.UUID, string) ([]model.Pipeline, error) {
	return []model.Pipeline{{ID: uuid.New()}}, nil
}

func newTestServer() (*httptest.Server, string) {
	projectID := uuid.New()
	auth := apikey.New(func(context.Context, string) (uuid.UUID, error) {
		return projectID, nil
	})
	h := event.New(fakeSource{}, inproc.New(10), nil)
	s := New(h, auth, nil)

	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return httptest.NewServer(mux), "valid-key"
}

func TestHandleTrigger_Success(t *testing.T) {
	srv, key := newTestServer()
	defer srv.Close()

	req, _ := http.NewRequest("POST", srv.URL+"/v1/trigger", strings.NewReader(`{"event":"order.shipped","context":{"id":1}}`))
	req.Header.Set("Authorization", "Bearer "+key)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("status = %d, want 202", resp.StatusCode)
	}
}

func TestHandleTrigger_MissingAuth(t *testing.T) {
	srv, _ := newTestServer()
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/trigger", "application/json", strings.NewReader(`{"event":"x"}`))
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestHandleTrigger_MissingEvent(t *testing.T) {
	srv, key := newTestServer()
	defer srv.Close()

	req, _ := http.NewRequest("POST", srv.URL+"/v1/trigger", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer "+key)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHandleTrigger_HonorsClientSuppliedID(t *testing.T) {
	projectID := uuid.New()
	auth := apikey.New(func(context.Context, string) (uuid.UUID, error) {
		return projectID, nil
	})
	q := inproc.New(10)
	h := event.New(fakeSource{}, q, nil)
	s := New(h, auth, nil)
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	wantID := uuid.New()
	body := `{"id":"` + wantID.String() + `","event":"order.shipped"}`
	req, _ := http.NewRequest("POST", srv.URL+"/v1/trigger", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer key")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}

	v, _, err := q.ReceiveObject(context.Background())
	if err != nil {
		t.Fatalf("ReceiveObject error: %v", err)
	}
	pc, ok := v.(*engine.PipelineContext)
	if !ok {
		t.Fatalf("queued value is not *engine.PipelineContext: %T", v)
	}
	if pc.EventID != wantID {
		t.Errorf("EventID = %s, want client-supplied %s", pc.EventID, wantID)
	}
}

func TestHandleWebhook_Success(t *testing.T) {
	srv, key := newTestServer()
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/trigger/webhook?event=order.shipped&token="+key, "application/json", strings.NewReader(`{"id":1}`))
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("status = %d, want 202", resp.StatusCode)
	}
}
