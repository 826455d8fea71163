package engine

import (
	"context"

	"github.com/google/uuid"

	"github.com/notifico/notifico/internal/model"
)

// RecipientDirectory resolves recipient and group selectors into concrete
// recipients for the core plugin's fan-out. Groups expand to their member
// recipients.
type RecipientDirectory interface {
	Resolve(ctx context.Context, projectID uuid.UUID, selectors []RecipientSelector) ([]model.Recipient, error)
}

// TemplateSource looks up a named, project-scoped template for the
// templater plugin's "name" selector.
type TemplateSource interface {
	GetTemplate(ctx context.Context, projectID uuid.UUID, name, channel string) (model.Template, error)
}

// CredentialStore resolves a project's transport credential by transport
// tag, used by the transport wrapper to authenticate outbound sends.
type CredentialStore interface {
	GetCredential(ctx context.Context, projectID uuid.UUID, transport string) (model.Credential, error)
}

// SubscriptionStore answers whether a recipient is currently subscribed to
// an event on a channel. Absence of an explicit record means subscribed
// (default opt-in), per spec.md §3.
type SubscriptionStore interface {
	IsSubscribed(ctx context.Context, recipientID uuid.UUID, eventName, channel string) (bool, error)
}

// Recorder observes delivery outcomes for audit and retry bookkeeping.
// A logging implementation lives in internal/transport and is what
// transport.Wrap uses when given a nil Recorder.
type Recorder interface {
	RecordSent(ctx context.Context, eventID, notificationID, messageID uuid.UUID, transport string)
	RecordFailed(ctx context.Context, eventID, notificationID, messageID uuid.UUID, transport string, err error)
}
