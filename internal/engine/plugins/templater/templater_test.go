package templater

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"

	"github.com/notifico/notifico/internal/engine"
	"github.com/notifico/notifico/internal/model"
)

func newPC(eventCtx engine.EventContext) *engine.PipelineContext {
	return engine.NewPipelineContext(uuid.New(), uuid.New(), "test.event", eventCtx, model.Pipeline{}, nil)
}

func step(t *testing.T, tag string, payload any) model.StepDescriptor {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return model.StepDescriptor{Step: tag, Payload: body}
}

func TestExecute_InlineRender(t *testing.T) {
	p := New(nil, "")
	pc := newPC(engine.EventContext{"name": "Ada"})

	s := step(t, LoadStepTag, loadPayload{
		Selector: "inline",
		Inline:   map[string]string{"subject": "Hello {{ name }}"},
	})

	out, err := p.Execute(context.Background(), pc, s)
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if out != engine.Continue {
		t.Errorf("output = %v, want Continue", out)
	}
	if len(pc.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(pc.Messages))
	}
	if got := pc.Messages[0].Content["subject"]; got != "Hello Ada" {
		t.Errorf("subject = %q, want %q", got, "Hello Ada")
	}
}

func TestExecute_InlineFilters(t *testing.T) {
	p := New(nil, "")
	pc := newPC(engine.EventContext{})

	s := step(t, LoadStepTag, loadPayload{
		Selector: "inline",
		Inline:   map[string]string{"body": "{{ missing|default:\"fallback\" }}"},
	})

	if _, err := p.Execute(context.Background(), pc, s); err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if got := pc.Messages[0].Content["body"]; got != "fallback" {
		t.Errorf("body = %q, want %q", got, "fallback")
	}
}

func TestExecute_LoadContext(t *testing.T) {
	p := New(nil, "")
	pc := newPC(engine.EventContext{"order_id": "42", "total": 9.5})

	s := model.StepDescriptor{Step: LoadContextStepTag}
	out, err := p.Execute(context.Background(), pc, s)
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if out != engine.Continue {
		t.Errorf("output = %v, want Continue", out)
	}
	if got := pc.Messages[0].Content["order_id"]; got != "42" {
		t.Errorf("order_id = %q, want %q", got, "42")
	}
}

func TestExecute_UnknownSelector(t *testing.T) {
	p := New(nil, "")
	pc := newPC(engine.EventContext{})
	s := step(t, LoadStepTag, loadPayload{Selector: "bogus"})

	if _, err := p.Execute(context.Background(), pc, s); err == nil {
		t.Fatal("expected error for unknown selector")
	}
}

func TestExecute_FileSelectorDisabledByDefault(t *testing.T) {
	p := New(nil, "")
	pc := newPC(engine.EventContext{})
	s := step(t, LoadStepTag, loadPayload{Selector: "file", File: "welcome.json"})

	if _, err := p.Execute(context.Background(), pc, s); err == nil {
		t.Fatal("expected error when file templates are disabled")
	}
}

func TestExecute_FileSelectorConfined(t *testing.T) {
	dir := t.TempDir()
	p := New(nil, dir)
	pc := newPC(engine.EventContext{})

	// Attempting to escape the configured root must not read outside it.
	s := step(t, LoadStepTag, loadPayload{Selector: "file", File: "../../etc/passwd"})
	if _, err := p.Execute(context.Background(), pc, s); err == nil {
		t.Fatal("expected error reading outside file_root")
	}
}
