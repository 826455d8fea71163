package transport

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/notifico/notifico/internal/engine"
	"github.com/notifico/notifico/internal/model"
)

type fakeTransport struct {
	name     string
	contacts map[string]bool
	sent     []string
	fail     bool
}

func (f *fakeTransport) Name() string { return f.name }
func (f *fakeTransport) SupportsContact(t string) bool { return f.contacts[t] }
func (f *fakeTransport) HasContacts() bool              { return true }
func (f *fakeTransport) SendMessage(_ context.Context, _ model.Credential, contact model.Contact, message engine.Message, _ *engine.PipelineContext) error {
	if f.fail {
		return engine.MarkTransient(errSendFailed)
	}
	f.sent = append(f.sent, contact.Value)
	return nil
}

type errString string

func (e errString) Error() string { return string(e) }

const errSendFailed = errString("send failed")

type fakeCreds struct{}

func (fakeCreds) GetCredential(context.Context, uuid.UUID, string) (model.Credential, error) {
	return model.Credential{Transport: "email", Value: "smtp://localhost"}, nil
}

func TestExecute_SendsToMatchedContacts(t *testing.T) {
	ft := &fakeTransport{name: "smtp", contacts: map[string]bool{"email": true}}
	w := Wrap(ft, fakeCreds{}, nil, nil)

	pc := engine.NewPipelineContext(uuid.New(), uuid.New(), "evt", nil, model.Pipeline{}, nil)
	pc.Recipient = &model.Recipient{Contacts: []model.Contact{
		{Type: "email", Value: "a@example.com"},
		{Type: "telegram", Value: "ignored"},
	}}
	pc.Messages = []engine.Message{{ID: uuid.New(), Content: map[string]string{"subject": "hi"}}}

	out, err := w.Execute(context.Background(), pc, model.StepDescriptor{Step: "smtp.send"})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if out != engine.Continue {
		t.Errorf("output = %v, want Continue", out)
	}
	if len(ft.sent) != 1 || ft.sent[0] != "a@example.com" {
		t.Errorf("sent = %v, want [a@example.com]", ft.sent)
	}
}

func TestExecute_NoMatchingContact(t *testing.T) {
	ft := &fakeTransport{name: "smtp", contacts: map[string]bool{"email": true}}
	w := Wrap(ft, fakeCreds{}, nil, nil)

	pc := engine.NewPipelineContext(uuid.New(), uuid.New(), "evt", nil, model.Pipeline{}, nil)
	pc.Recipient = &model.Recipient{Contacts: []model.Contact{{Type: "telegram", Value: "x"}}}
	pc.Messages = []engine.Message{{ID: uuid.New()}}

	if _, err := w.Execute(context.Background(), pc, model.StepDescriptor{Step: "smtp.send"}); err == nil {
		t.Fatal("expected error when recipient has no matching contact type")
	}
}

func TestExecute_FailureDoesNotAbortLoop(t *testing.T) {
	ft := &fakeTransport{name: "smtp", contacts: map[string]bool{"email": true}, fail: true}
	w := Wrap(ft, fakeCreds{}, nil, nil)

	pc := engine.NewPipelineContext(uuid.New(), uuid.New(), "evt", nil, model.Pipeline{}, nil)
	pc.Recipient = &model.Recipient{Contacts: []model.Contact{{Type: "email", Value: "a@example.com"}}}
	pc.Messages = []engine.Message{{ID: uuid.New()}, {ID: uuid.New()}}

	out, err := w.Execute(context.Background(), pc, model.StepDescriptor{Step: "smtp.send"})
	if err != nil {
		t.Fatalf("Execute should not propagate per-message send errors: %v", err)
	}
	if out != engine.Continue {
		t.Errorf("output = %v, want Continue", out)
	}
	if len(ft.sent) != 0 {
		t.Errorf("sent = %v, want none", ft.sent)
	}
}
