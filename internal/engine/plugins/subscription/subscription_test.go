package subscription

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/notifico/notifico/internal/engine"
	"github.com/notifico/notifico/internal/model"
)

type fakeStore struct {
	subscribed bool
}

func (f fakeStore) IsSubscribed(context.Context, uuid.UUID, string, string) (bool, error) {
	return f.subscribed, nil
}

func newPC() *engine.PipelineContext {
	pc := engine.NewPipelineContext(uuid.New(), uuid.New(), "order.shipped", nil, model.Pipeline{}, nil)
	pc.Recipient = &model.Recipient{ID: uuid.New()}
	return pc
}

func checkStep(t *testing.T, channel string) model.StepDescriptor {
	t.Helper()
	body, _ := json.Marshal(checkPayload{Channel: channel})
	return model.StepDescriptor{Step: CheckStepTag, Payload: body}
}

func TestExecute_CheckSubscribed(t *testing.T) {
	p := New(fakeStore{subscribed: true}, "secret", "https://notifico.example")
	out, err := p.Execute(context.Background(), newPC(), checkStep(t, "email"))
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if out != engine.Continue {
		t.Errorf("output = %v, want Continue", out)
	}
}

func TestExecute_CheckUnsubscribed(t *testing.T) {
	p := New(fakeStore{subscribed: false}, "secret", "https://notifico.example")
	out, err := p.Execute(context.Background(), newPC(), checkStep(t, "email"))
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if out != engine.Interrupt {
		t.Errorf("output = %v, want Interrupt", out)
	}
}

func TestExecute_ListUnsubscribe(t *testing.T) {
	p := New(nil, "topsecret", "https://notifico.example")
	pc := newPC()

	out, err := p.Execute(context.Background(), pc, model.StepDescriptor{Step: ListUnsubscribeStepTag})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if out != engine.Continue {
		t.Errorf("output = %v, want Continue", out)
	}

	link, ok := pc.PluginContexts[PluginContextKey]
	if !ok {
		t.Fatal("expected list-unsubscribe link to be stashed in plugin context")
	}
	if !strings.HasPrefix(link, "<") || !strings.HasSuffix(link, ">") {
		t.Errorf("link %q should be angle-bracketed per RFC 8058", link)
	}

	trimmed := strings.TrimSuffix(strings.TrimPrefix(link, "<"), ">")
	if !strings.Contains(trimmed, "token=") {
		t.Errorf("link %q missing token param", trimmed)
	}
}

func TestExecute_ListUnsubscribeNoPublicURL(t *testing.T) {
	p := New(nil, "topsecret", "")
	pc := newPC()

	if _, err := p.Execute(context.Background(), pc, model.StepDescriptor{Step: ListUnsubscribeStepTag}); err == nil {
		t.Fatal("expected error when public_url is not configured")
	}
}

func TestUnsubscribeTokenClaims(t *testing.T) {
	p := New(nil, "topsecret", "https://notifico.example")
	pc := newPC()
	if _, err := p.Execute(context.Background(), pc, model.StepDescriptor{Step: ListUnsubscribeStepTag}); err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	link := pc.PluginContexts[PluginContextKey]
	raw := strings.TrimSuffix(strings.TrimPrefix(link, "<"), ">")
	idx := strings.Index(raw, "token=")
	tokenAndRest := raw[idx+len("token="):]
	tokenStr := strings.SplitN(tokenAndRest, "&", 2)[0]

	parsed, err := url.QueryUnescape(tokenStr)
	if err != nil {
		t.Fatalf("unescape token: %v", err)
	}

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(parsed, claims, func(*jwt.Token) (any, error) {
		return []byte("topsecret"), nil
	})
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims["scope"] != "list-unsubscribe" {
		t.Errorf("scope claim = %v, want list-unsubscribe", claims["scope"])
	}
}
