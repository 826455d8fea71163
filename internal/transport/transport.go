// Package transport adapts a SimpleTransport (one concrete delivery
// channel: SMTP, SMPP, Telegram, ...) into an engine.StepPlugin by
// resolving credentials, fanning out across contacts and messages, and
// recording delivery outcomes. Grounded on
// notifico-core/src/simpletransport.rs.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/notifico/notifico/internal/engine"
	"github.com/notifico/notifico/internal/model"
)

// SimpleTransport is the narrow interface a concrete delivery channel
// implements. Wrapper does the cross-product fan-out and bookkeeping so
// each transport only has to know how to send one message to one
// contact.
type SimpleTransport interface {
	// Name identifies the transport and is used both as the credential
	// lookup key and as the "<name>.send" step tag.
	Name() string
	// SupportsContact reports whether contactType is deliverable by this
	// transport, e.g. "email" for smtp.
	SupportsContact(contactType string) bool
	// HasContacts reports whether this transport addresses individual
	// contacts at all. Transports that don't (none currently) would
	// receive one synthetic empty-contact call per message.
	HasContacts() bool
	// SendMessage delivers message to contact using credential. Wrapper
	// passes a returned error to Recorder.RecordFailed and logs it; it is not
	// returned from the step, so it never reaches the executor's
	// poison-message policy.
	SendMessage(ctx context.Context, credential model.Credential, contact model.Contact, message engine.Message, pc *engine.PipelineContext) error
}

type stepPayload struct {
	// Message selects which pc.Messages entry to send; -1 (default) means
	// "send every message currently on the context".
	Message int `json:"message"`
}

// Wrapper adapts a SimpleTransport into an engine.StepPlugin registered
// under "<name>.send".
type Wrapper struct {
	transport SimpleTransport
	creds     engine.CredentialStore
	recorder  engine.Recorder
	log       *slog.Logger
}

// Wrap builds a Wrapper around transport, resolving credentials from
// creds and recording outcomes through recorder (nil recorder logs only).
func Wrap(t SimpleTransport, creds engine.CredentialStore, recorder engine.Recorder, log *slog.Logger) *Wrapper {
	if log == nil {
		log = slog.Default()
	}
	if recorder == nil {
		recorder = loggingRecorder{log: log}
	}
	return &Wrapper{transport: t, creds: creds, recorder: recorder, log: log}
}

// Steps implements engine.StepPlugin.
func (w *Wrapper) Steps() []string { return []string{w.transport.Name() + ".send"} }

// Execute implements engine.StepPlugin. Per-message/per-contact failures
// are recorded but never abort the loop; the step always returns
// Continue once every pair has been attempted, per spec.md §4.8.
func (w *Wrapper) Execute(ctx context.Context, pc *engine.PipelineContext, step model.StepDescriptor) (engine.StepOutput, error) {
	payload := stepPayload{Message: -1}
	if len(step.Payload) > 0 {
		_ = json.Unmarshal(step.Payload, &payload)
	}

	if w.creds == nil {
		return engine.Continue, fmt.Errorf("%w: credential store not configured", engine.ErrInternal)
	}
	credential, err := w.creds.GetCredential(ctx, pc.ProjectID, w.transport.Name())
	if err != nil {
		return engine.Continue, fmt.Errorf("%w: %v", engine.ErrCredentialNotFound, err)
	}

	contacts, err := w.matchedContacts(pc)
	if err != nil {
		return engine.Continue, err
	}

	messages := pc.Messages
	if payload.Message >= 0 {
		if payload.Message >= len(pc.Messages) {
			return engine.Continue, fmt.Errorf("%w: message index %d out of range", engine.ErrInvalidStepPayload, payload.Message)
		}
		messages = []engine.Message{pc.Messages[payload.Message]}
	}

	for _, contact := range contacts {
		for _, message := range messages {
			err := w.transport.SendMessage(ctx, credential, contact, message, pc)
			if err != nil {
				w.recorder.RecordFailed(ctx, pc.EventID, pc.NotificationID, message.ID, w.transport.Name(), err)
				w.log.Error("transport send failed",
					"transport", w.transport.Name(), "contact", contact.String(),
					"message_id", message.ID, "error", err)
				continue
			}
			w.recorder.RecordSent(ctx, pc.EventID, pc.NotificationID, message.ID, w.transport.Name())
		}
	}

	return engine.Continue, nil
}

func (w *Wrapper) matchedContacts(pc *engine.PipelineContext) ([]model.Contact, error) {
	if !w.transport.HasContacts() {
		return []model.Contact{{}}, nil
	}
	if pc.Contact != nil {
		if !w.transport.SupportsContact(pc.Contact.Type) {
			return nil, fmt.Errorf("%w: transport %s does not support contact type %q", engine.ErrInvalidContactFormat, w.transport.Name(), pc.Contact.Type)
		}
		return []model.Contact{*pc.Contact}, nil
	}
	if pc.Recipient == nil {
		return nil, fmt.Errorf("%w", engine.ErrRecipientNotSet)
	}

	var matched []model.Contact
	for _, c := range pc.Recipient.Contacts {
		if w.transport.SupportsContact(c.Type) {
			matched = append(matched, c)
		}
	}
	if len(matched) == 0 {
		return nil, fmt.Errorf("%w: recipient has no contact of a type %s supports", engine.ErrContactNotFound, w.transport.Name())
	}
	return matched, nil
}

// loggingRecorder is the BaseRecorder-equivalent default: it only logs,
// grounded on notifico-core/src/recorder.rs's BaseRecorder.
type loggingRecorder struct {
	log *slog.Logger
}

func (r loggingRecorder) RecordSent(_ context.Context, eventID, notificationID, messageID uuid.UUID, transport string) {
	r.log.Info("message sent", "event_id", eventID, "notification_id", notificationID, "message_id", messageID, "transport", transport)
}

func (r loggingRecorder) RecordFailed(_ context.Context, eventID, notificationID, messageID uuid.UUID, transport string, err error) {
	r.log.Error("message delivery failed", "event_id", eventID, "notification_id", notificationID, "message_id", messageID, "transport", transport, "error", err)
}
