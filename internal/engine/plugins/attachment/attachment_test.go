package attachment

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"

	"github.com/notifico/notifico/internal/engine"
	"github.com/notifico/notifico/internal/model"
)

func newPCWithMessage() *engine.PipelineContext {
	pc := engine.NewPipelineContext(uuid.New(), uuid.New(), "test.event", nil, model.Pipeline{}, nil)
	pc.Messages = []engine.Message{{ID: uuid.New(), Content: map[string]string{"subject": "hi"}}}
	return pc
}

func step(t *testing.T, payload stepPayload) model.StepDescriptor {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return model.StepDescriptor{Step: StepTag, Payload: body}
}

func TestExecute_HTTPAttachment(t *testing.T) {
	p := New(false)
	pc := newPCWithMessage()
	s := step(t, stepPayload{Message: 0, Attachments: []Metadata{{URL: "https://example.com/file.pdf", FileName: "file.pdf"}}})

	if _, err := p.Execute(context.Background(), pc, s); err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if len(pc.Messages[0].Attachments) != 1 {
		t.Fatalf("expected 1 attachment recorded, got %d", len(pc.Messages[0].Attachments))
	}
}

func TestExecute_MultipleAttachments(t *testing.T) {
	p := New(false)
	pc := newPCWithMessage()
	s := step(t, stepPayload{Message: 0, Attachments: []Metadata{
		{URL: "https://example.com/a.pdf", FileName: "a.pdf"},
		{URL: "https://example.com/b.pdf", FileName: "b.pdf"},
	}})

	if _, err := p.Execute(context.Background(), pc, s); err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if len(pc.Messages[0].Attachments) != 2 {
		t.Fatalf("expected 2 attachments recorded, got %d", len(pc.Messages[0].Attachments))
	}
}

func TestExecute_FileSchemeRejectedByDefault(t *testing.T) {
	p := New(false)
	pc := newPCWithMessage()
	s := step(t, stepPayload{Message: 0, Attachments: []Metadata{{URL: "file:///etc/passwd"}}})

	if _, err := p.Execute(context.Background(), pc, s); err == nil {
		t.Fatal("expected error for file:// scheme when not allowed")
	}
}

func TestExecute_FileSchemeAllowed(t *testing.T) {
	p := New(true)
	pc := newPCWithMessage()
	s := step(t, stepPayload{Message: 0, Attachments: []Metadata{{URL: "file:///tmp/x.pdf"}}})

	if _, err := p.Execute(context.Background(), pc, s); err != nil {
		t.Fatalf("Execute error: %v", err)
	}
}

func TestExecute_EmptyAttachments(t *testing.T) {
	p := New(false)
	pc := newPCWithMessage()
	s := step(t, stepPayload{Message: 0})

	if _, err := p.Execute(context.Background(), pc, s); err == nil {
		t.Fatal("expected error for empty attachments list")
	}
}

func TestExecute_MessageIndexOutOfRange(t *testing.T) {
	p := New(false)
	pc := newPCWithMessage()
	s := step(t, stepPayload{Message: 5, Attachments: []Metadata{{URL: "https://example.com/x"}}})

	if _, err := p.Execute(context.Background(), pc, s); err == nil {
		t.Fatal("expected error for out-of-range message index")
	}
}
