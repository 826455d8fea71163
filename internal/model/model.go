// Package model defines the core notifico data types shared across the
// pipeline engine, the admin REST surface, and the reference stores.
package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Project is a tenant boundary. The nil UUID is a sentinel "default project"
// used when a deployment has no multi-tenancy needs.
type Project struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Event is a named trigger a project can raise, e.g. "user.signup".
type Event struct {
	ID        uuid.UUID `json:"id"`
	ProjectID uuid.UUID `json:"project_id"`
	Name      string    `json:"name"`
}

// StepDescriptor is one stage of a pipeline: a plugin tag plus its
// plugin-specific JSON payload. Mirrors the original's tagged-union step
// encoding without relying on Go's lack of sum types.
type StepDescriptor struct {
	Step    string          `json:"step"`
	Payload json.RawMessage `json:"-"`
}

// MarshalJSON flattens Payload's fields alongside "step".
func (s StepDescriptor) MarshalJSON() ([]byte, error) {
	var fields map[string]json.RawMessage
	if len(s.Payload) > 0 {
		if err := json.Unmarshal(s.Payload, &fields); err != nil {
			return nil, err
		}
	} else {
		fields = map[string]json.RawMessage{}
	}
	fields["step"] = json.RawMessage(`"` + s.Step + `"`)
	return json.Marshal(fields)
}

// UnmarshalJSON reads the "step" discriminator and keeps the rest of the
// object as raw payload for the owning plugin to decode.
func (s *StepDescriptor) UnmarshalJSON(data []byte) error {
	var probe struct {
		Step string `json:"step"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	s.Step = probe.Step
	s.Payload = append(json.RawMessage(nil), data...)
	return nil
}

// Pipeline is an ordered list of steps run for every matching event.
type Pipeline struct {
	ID        uuid.UUID        `json:"id"`
	ProjectID uuid.UUID        `json:"project_id"`
	Name      string           `json:"name"`
	EventIDs  []uuid.UUID      `json:"event_ids"`
	Steps     []StepDescriptor `json:"steps"`
}

// Contact is a single delivery address of some type: "email", "tel",
// "telegram", "slack", "whatsapp", "pushover", "gotify", "ntfy".
type Contact struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// String renders a Contact in its "type:value" wire form.
func (c Contact) String() string {
	return c.Type + ":" + c.Value
}

// Recipient is an addressable entity with zero or more contacts.
type Recipient struct {
	ID        uuid.UUID `json:"id"`
	ProjectID uuid.UUID `json:"project_id"`
	Contacts  []Contact `json:"contacts"`
}

// Group is a named collection of recipients, supplemented from
// notifico-app's controller layer (not in spec.md's distillation).
type Group struct {
	ID          uuid.UUID   `json:"id"`
	ProjectID   uuid.UUID   `json:"project_id"`
	Name        string      `json:"name"`
	RecipientIDs []uuid.UUID `json:"recipient_ids"`
}

// Subscription records a recipient's explicit opt-out of an event on a
// channel. Absence of a row means "subscribed" (default opt-in).
type Subscription struct {
	RecipientID uuid.UUID `json:"recipient_id"`
	EventName   string    `json:"event_name"`
	Channel     string    `json:"channel"`
	Subscribed  bool      `json:"subscribed"`
}

// Template is a named, versionless set of channel-specific parts.
type Template struct {
	ID        uuid.UUID         `json:"id"`
	ProjectID uuid.UUID         `json:"project_id"`
	Name      string            `json:"name"`
	Channel   string            `json:"channel"`
	Parts     map[string]string `json:"parts"`
}

// ApiKey authorizes HTTP ingest requests for a project.
type ApiKey struct {
	ID        uuid.UUID `json:"id"`
	ProjectID uuid.UUID `json:"project_id"`
	Key       string    `json:"key"`
	CreatedAt time.Time `json:"created_at"`
}

// Credential is a transport-scoped secret (SMTP URL, bot token, etc).
type Credential struct {
	ID        string    `json:"id"`
	ProjectID uuid.UUID `json:"project_id"`
	Transport string    `json:"transport"`
	Value     string    `json:"value"`
}
