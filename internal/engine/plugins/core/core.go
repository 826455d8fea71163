// Package core implements the core.set_recipients step, which resolves
// recipient selectors into concrete recipient/contact pairs and fans a
// pipeline run out into one task per pair. Grounded on
// notifico-core/src/engine/plugin/core.rs.
package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/notifico/notifico/internal/engine"
	"github.com/notifico/notifico/internal/model"
	"github.com/notifico/notifico/internal/queue"
)

// StepTag is the plugin tag this package registers under.
const StepTag = "core.set_recipients"

type stepPayload struct {
	Recipients []engine.RecipientSelector `json:"recipients"`
}

// Plugin implements engine.StepPlugin for recipient fan-out.
type Plugin struct {
	Directory     engine.RecipientDirectory
	PipelineQueue queue.Sender
	Log           *slog.Logger
}

// New builds a core Plugin. directory resolves uuid selectors; pipelineQueue
// receives one cloned task per fanned-out recipient/contact pair.
func New(directory engine.RecipientDirectory, pipelineQueue queue.Sender, log *slog.Logger) *Plugin {
	if log == nil {
		log = slog.Default()
	}
	return &Plugin{Directory: directory, PipelineQueue: pipelineQueue, Log: log}
}

// Steps implements engine.StepPlugin.
func (p *Plugin) Steps() []string { return []string{StepTag} }

// Execute implements engine.StepPlugin.
func (p *Plugin) Execute(ctx context.Context, pc *engine.PipelineContext, step model.StepDescriptor) (engine.StepOutput, error) {
	var payload stepPayload
	selectors := pc.Recipients
	if len(step.Payload) > 0 {
		if err := json.Unmarshal(step.Payload, &payload); err != nil {
			return engine.Continue, fmt.Errorf("%w: %v", engine.ErrInvalidStepPayload, err)
		}
		if len(payload.Recipients) > 0 {
			selectors = payload.Recipients
		}
	}

	recipients, err := p.resolve(ctx, pc.ProjectID, selectors)
	if err != nil {
		return engine.Continue, err
	}

	if len(recipients) == 0 {
		p.Log.Debug("no recipients resolved", "event_id", pc.EventID)
		return engine.Continue, nil
	}

	// A single resolved recipient with at most one contact never needs a
	// clone/enqueue round-trip: it can continue in place on the current
	// task. Any other shape (more than one recipient, or one recipient
	// with more than one contact) falls through to the fan-out below, per
	// spec.md §4.4/§8.
	if len(recipients) == 1 {
		r := recipients[0]
		switch len(r.Contacts) {
		case 0:
			p.Log.Debug("recipient has no contacts", "event_id", pc.EventID, "recipient_id", r.ID)
			return engine.Continue, nil
		case 1:
			c := r.Contacts[0]
			pc.Recipient = &r
			pc.Contact = &c
			return engine.Continue, nil
		}
	}

	type pair struct {
		recipient model.Recipient
		contact   model.Contact
	}
	var pairs []pair
	for _, r := range recipients {
		for _, c := range r.Contacts {
			pairs = append(pairs, pair{recipient: r, contact: c})
		}
	}

	if len(pairs) == 0 {
		p.Log.Debug("no recipients resolved to a contact", "event_id", pc.EventID)
		return engine.Continue, nil
	}

	for _, pr := range pairs {
		clone := pc.Clone()
		clone.StepNumber++
		clone.Recipient = &pr.recipient
		clone.Contact = &pr.contact
		clone.NotificationID = uuid.Must(uuid.NewV7())

		if err := queue.Send(ctx, p.PipelineQueue, clone); err != nil {
			return engine.Continue, fmt.Errorf("%w: enqueue fanned-out task: %v", engine.ErrInternal, err)
		}
	}

	return engine.Interrupt, nil
}

func (p *Plugin) resolve(ctx context.Context, projectID uuid.UUID, selectors []engine.RecipientSelector) ([]model.Recipient, error) {
	var inline []model.Recipient
	var needDirectory []engine.RecipientSelector

	for _, s := range selectors {
		if s.Inline != nil {
			inline = append(inline, *s.Inline)
			continue
		}
		needDirectory = append(needDirectory, s)
	}

	if len(needDirectory) == 0 {
		return inline, nil
	}
	if p.Directory == nil {
		return nil, fmt.Errorf("%w: recipient directory not configured", engine.ErrInternal)
	}

	resolved, err := p.Directory.Resolve(ctx, projectID, needDirectory)
	if err != nil {
		return nil, fmt.Errorf("resolve recipients: %w", err)
	}

	return append(inline, resolved...), nil
}
