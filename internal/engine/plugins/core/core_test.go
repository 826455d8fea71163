package core

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/notifico/notifico/internal/engine"
	"github.com/notifico/notifico/internal/model"
	"github.com/notifico/notifico/internal/queue/inproc"
)

func newPC(selectors []engine.RecipientSelector) *engine.PipelineContext {
	return engine.NewPipelineContext(
		uuid.New(), uuid.New(), "test.event", engine.EventContext{},
		model.Pipeline{Steps: []model.StepDescriptor{{Step: StepTag}}},
		selectors,
	)
}

func TestExecute_NoRecipients(t *testing.T) {
	q := inproc.New(10)
	p := New(nil, q, nil)
	pc := newPC(nil)

	out, err := p.Execute(context.Background(), pc, pc.Pipeline.Steps[0])
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if out != engine.Continue {
		t.Errorf("output = %v, want Continue", out)
	}
	if q.Len() != 0 {
		t.Errorf("queue should be empty, got %d", q.Len())
	}
}

func TestExecute_SingleRecipient(t *testing.T) {
	q := inproc.New(10)
	p := New(nil, q, nil)

	recipient := model.Recipient{ID: uuid.New(), Contacts: []model.Contact{{Type: "email", Value: "a@example.com"}}}
	pc := newPC([]engine.RecipientSelector{{Inline: &recipient}})

	out, err := p.Execute(context.Background(), pc, pc.Pipeline.Steps[0])
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if out != engine.Continue {
		t.Errorf("output = %v, want Continue", out)
	}
	if pc.Recipient == nil || pc.Recipient.ID != recipient.ID {
		t.Error("expected pc.Recipient to be set to the singleton recipient")
	}
	if pc.Contact == nil || pc.Contact.Value != "a@example.com" {
		t.Error("expected pc.Contact to be set to the singleton contact")
	}
	if q.Len() != 0 {
		t.Errorf("singleton fast path should not enqueue, got %d", q.Len())
	}
}

func TestExecute_ManyRecipients(t *testing.T) {
	q := inproc.New(10)
	p := New(nil, q, nil)

	r1 := model.Recipient{ID: uuid.New(), Contacts: []model.Contact{{Type: "email", Value: "a@example.com"}}}
	r2 := model.Recipient{ID: uuid.New(), Contacts: []model.Contact{
		{Type: "email", Value: "b@example.com"},
		{Type: "telegram", Value: "12345"},
	}}
	pc := newPC([]engine.RecipientSelector{{Inline: &r1}, {Inline: &r2}})
	originalStepNumber := pc.StepNumber

	out, err := p.Execute(context.Background(), pc, pc.Pipeline.Steps[0])
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if out != engine.Interrupt {
		t.Errorf("output = %v, want Interrupt", out)
	}
	if q.Len() != 3 {
		t.Fatalf("expected 3 fanned-out tasks, got %d", q.Len())
	}

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		v, _, err := q.ReceiveObject(context.Background())
		if err != nil {
			t.Fatalf("ReceiveObject error: %v", err)
		}
		clone, ok := v.(*engine.PipelineContext)
		if !ok {
			t.Fatalf("queued value is not *engine.PipelineContext: %T", v)
		}
		if clone.StepNumber != originalStepNumber+1 {
			t.Errorf("clone.StepNumber = %d, want %d", clone.StepNumber, originalStepNumber+1)
		}
		if clone.Contact == nil {
			t.Fatal("clone.Contact is nil")
		}
		seen[clone.Contact.Value] = true
	}
	for _, v := range []string{"a@example.com", "b@example.com", "12345"} {
		if !seen[v] {
			t.Errorf("expected a fanned-out task for contact %q", v)
		}
	}
	if pc.Recipient != nil {
		t.Error("original pc.Recipient should remain unset after fan-out")
	}
}

// TestExecute_TwoRecipientsOneEmpty exercises the gap between "total
// resolved contact pairs" and "resolved recipient count": two recipients
// where only one has a contact still must take the fan-out path (clone,
// fresh notification id, enqueue, Interrupt), never the single-pair
// fast path, per spec.md §4.4/§8.
func TestExecute_TwoRecipientsOneEmpty(t *testing.T) {
	q := inproc.New(10)
	p := New(nil, q, nil)

	r1 := model.Recipient{ID: uuid.New()} // no contacts
	r2 := model.Recipient{ID: uuid.New(), Contacts: []model.Contact{{Type: "email", Value: "a@example.com"}}}
	pc := newPC([]engine.RecipientSelector{{Inline: &r1}, {Inline: &r2}})
	originalNotificationID := pc.NotificationID

	out, err := p.Execute(context.Background(), pc, pc.Pipeline.Steps[0])
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if out != engine.Interrupt {
		t.Errorf("output = %v, want Interrupt", out)
	}
	if pc.Recipient != nil {
		t.Error("original pc.Recipient should remain unset after fan-out")
	}
	if q.Len() != 1 {
		t.Fatalf("expected 1 fanned-out task, got %d", q.Len())
	}

	v, _, err := q.ReceiveObject(context.Background())
	if err != nil {
		t.Fatalf("ReceiveObject error: %v", err)
	}
	clone, ok := v.(*engine.PipelineContext)
	if !ok {
		t.Fatalf("queued value is not *engine.PipelineContext: %T", v)
	}
	if clone.Contact == nil || clone.Contact.Value != "a@example.com" {
		t.Fatal("expected the fanned-out task to carry the one resolved contact")
	}
	if clone.NotificationID == originalNotificationID {
		t.Error("expected the fanned-out task to have a fresh notification id")
	}
}
