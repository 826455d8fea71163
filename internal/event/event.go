// Package event implements the event-matching and pipeline-dispatch
// handler: given an incoming trigger, find every pipeline subscribed to
// the named event and enqueue one PipelineTask per pipeline. Grounded on
// notifico-core/src/pipeline/event.rs.
package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/notifico/notifico/internal/engine"
	"github.com/notifico/notifico/internal/engine/plugins/core"
	"github.com/notifico/notifico/internal/model"
	"github.com/notifico/notifico/internal/queue"
)

// PipelineSource finds every pipeline bound to a (project, event name)
// pair.
type PipelineSource interface {
	PipelinesForEvent(ctx context.Context, projectID uuid.UUID, eventName string) ([]model.Pipeline, error)
}

// Request is an incoming event trigger, per spec.md §6.1. ID is the
// caller-supplied event id, used as the pipeline contexts' EventID; when
// nil, ProcessEventRequest mints a fresh v7 id. Requests that repeat an ID
// are not deduplicated.
type Request struct {
	ID         *uuid.UUID
	ProjectID  uuid.UUID
	EventName  string
	Context    engine.EventContext
	Recipients []engine.RecipientSelector
}

// Handler matches incoming event requests against pipelines and enqueues
// the resulting tasks onto the pipeline queue.
type Handler struct {
	Pipelines     PipelineSource
	PipelineQueue queue.Sender
	Log           *slog.Logger
}

// New builds an event Handler.
func New(pipelines PipelineSource, pipelineQueue queue.Sender, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{Pipelines: pipelines, PipelineQueue: pipelineQueue, Log: log}
}

// ProcessEventRequest matches req against every pipeline subscribed to
// its event name and enqueues one PipelineTask per match, per spec.md
// §4.9. When req carries explicit recipients, a synthetic
// core.set_recipients step is prepended so every matched pipeline starts
// from the same resolved recipient set.
func (h *Handler) ProcessEventRequest(ctx context.Context, req Request) (int, error) {
	eventID := uuid.Must(uuid.NewV7())
	if req.ID != nil {
		eventID = *req.ID
	}

	pipelines, err := h.Pipelines.PipelinesForEvent(ctx, req.ProjectID, req.EventName)
	if err != nil {
		return 0, fmt.Errorf("event: match pipelines: %w", err)
	}

	enqueued := 0
	for _, p := range pipelines {
		p := p
		if len(req.Recipients) > 0 {
			p.Steps = append([]model.StepDescriptor{{Step: core.StepTag}}, p.Steps...)
		}

		pc := engine.NewPipelineContext(eventID, req.ProjectID, req.EventName, req.Context, p, req.Recipients)

		if err := queue.Send(ctx, h.PipelineQueue, pc); err != nil {
			return enqueued, fmt.Errorf("event: enqueue pipeline %s: %w", p.ID, err)
		}
		enqueued++
	}

	h.Log.Info("event processed", "event_id", eventID, "event_name", req.EventName, "pipelines_matched", enqueued)
	return enqueued, nil
}
