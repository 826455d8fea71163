package engine

import (
	"maps"
	"slices"

	"github.com/google/uuid"

	"github.com/notifico/notifico/internal/model"
)

// Message is one rendered, channel-specific payload produced by the
// templater plugin and consumed by a transport.
type Message struct {
	ID          uuid.UUID         `json:"id"`
	Content     map[string]string `json:"content"`
	Attachments []Attachment      `json:"attachments,omitempty"`
}

// Attachment describes one file a transport should fetch and attach to
// Message when it sends, per spec.md §4.6.
type Attachment struct {
	URL      string            `json:"url"`
	FileName string            `json:"file_name"`
	Extras   map[string]string `json:"extras,omitempty"`
}

// RecipientSelector names who a pipeline should notify: either a
// recipient/group UUID the core plugin resolves through a
// RecipientDirectory, or an inline recipient embedded in the event
// request itself. Exactly one of the two is set.
type RecipientSelector struct {
	ID     *uuid.UUID      `json:"id,omitempty"`
	Inline *model.Recipient `json:"inline,omitempty"`
}

// EventContext is the arbitrary JSON payload an event trigger supplies,
// available to the templater plugin as render context.
type EventContext map[string]any

// PipelineContext carries all state threaded through a pipeline's steps.
// It is deep-copied by Clone whenever the core plugin fans a single
// pipeline run out into one task per recipient.
type PipelineContext struct {
	EventID        uuid.UUID
	NotificationID uuid.UUID
	ProjectID      uuid.UUID

	Pipeline   model.Pipeline
	StepNumber int

	EventName string
	EventCtx  EventContext

	Recipients []RecipientSelector
	Recipient  *model.Recipient
	Contact    *model.Contact

	Messages []Message

	// PluginContexts lets one plugin leave data for a later plugin in the
	// same pipeline run without widening PipelineContext's own fields,
	// e.g. the subscription plugin's list-unsubscribe URL for the smtp
	// transport to pick up.
	PluginContexts map[string]string
}

// NewPipelineContext builds the initial context for a freshly matched
// event, per spec.md §4.9.
func NewPipelineContext(eventID, projectID uuid.UUID, eventName string, eventCtx EventContext, pipeline model.Pipeline, recipients []RecipientSelector) *PipelineContext {
	return &PipelineContext{
		EventID:        eventID,
		NotificationID: uuid.Must(uuid.NewV7()),
		ProjectID:      projectID,
		Pipeline:       pipeline,
		EventName:      eventName,
		EventCtx:       eventCtx,
		Recipients:     recipients,
		PluginContexts: map[string]string{},
	}
}

// Clone deep-copies pc. Go has no derive(Clone); every reference field is
// explicitly re-allocated so mutating the clone never affects the
// original, matching the guarantee the original's Clone derive gives the
// core plugin's fan-out.
func (pc *PipelineContext) Clone() *PipelineContext {
	clone := *pc

	clone.Recipients = slices.Clone(pc.Recipients)
	clone.Messages = slices.Clone(pc.Messages)
	for i := range clone.Messages {
		clone.Messages[i].Content = maps.Clone(pc.Messages[i].Content)
		clone.Messages[i].Attachments = slices.Clone(pc.Messages[i].Attachments)
	}
	clone.PluginContexts = maps.Clone(pc.PluginContexts)
	clone.Pipeline.Steps = slices.Clone(pc.Pipeline.Steps)
	clone.Pipeline.EventIDs = slices.Clone(pc.Pipeline.EventIDs)

	if pc.Recipient != nil {
		r := *pc.Recipient
		r.Contacts = slices.Clone(pc.Recipient.Contacts)
		clone.Recipient = &r
	}
	if pc.Contact != nil {
		c := *pc.Contact
		clone.Contact = &c
	}
	if pc.EventCtx != nil {
		clone.EventCtx = maps.Clone(pc.EventCtx)
	}

	return &clone
}

// CurrentStep returns the step the executor should run next, and whether
// one remains.
func (pc *PipelineContext) CurrentStep() (model.StepDescriptor, bool) {
	if pc.StepNumber < 0 || pc.StepNumber >= len(pc.Pipeline.Steps) {
		return model.StepDescriptor{}, false
	}
	return pc.Pipeline.Steps[pc.StepNumber], true
}
