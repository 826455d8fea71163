// Package executor drives pipeline tasks through the engine's step
// registry until a task completes, is interrupted, or errors.
package executor

import (
	"context"
	"log/slog"

	"github.com/notifico/notifico/internal/engine"
	"github.com/notifico/notifico/internal/queue"
)

// Task wraps the pipeline state one queue message carries.
type Task struct {
	Context *engine.PipelineContext
}

// Executor runs Tasks against an Engine's registered plugins.
type Executor struct {
	eng *engine.Engine
	log *slog.Logger
}

// New builds an Executor bound to eng, logging with the given logger (or
// slog.Default() if nil).
func New(eng *engine.Engine, log *slog.Logger) *Executor {
	if log == nil {
		log = slog.Default()
	}
	return &Executor{eng: eng, log: log}
}

// Run executes task's pipeline starting at its current step number,
// stopping on Interrupt, completion, a context cancellation (checked
// between steps, never mid-step, so shutdown lands on a clean boundary),
// or the first plugin error.
func (x *Executor) Run(ctx context.Context, task Task) error {
	pc := task.Context
	log := x.log.With(
		"event_id", pc.EventID,
		"notification_id", pc.NotificationID,
		"project_id", pc.ProjectID,
	)

	for {
		if err := ctx.Err(); err != nil {
			log.Warn("pipeline execution stopped by shutdown", "step_number", pc.StepNumber)
			return err
		}

		step, ok := pc.CurrentStep()
		if !ok {
			log.Debug("pipeline run complete")
			return nil
		}

		stepLog := log.With("step", step.Step, "step_number", pc.StepNumber)
		output, err := x.eng.Execute(ctx, pc, step)
		if err != nil {
			stepLog.Error("step failed", "error", err)
			return err
		}

		switch output {
		case engine.Interrupt:
			stepLog.Debug("step interrupted pipeline")
			return nil
		case engine.Continue:
			pc.StepNumber++
		}
	}
}

// RunFromQueue receives one Task from r, runs it, and settles the
// AckHandle according to the poison-message policy in spec.md §4.2/§7:
// a transient error releases the message for retry, anything else (a
// permanent error, or success) is accepted so the queue never spins on a
// message it can't ever process.
func (x *Executor) RunFromQueue(ctx context.Context, r queue.Receiver) error {
	pc, ack, err := queue.Receive[*engine.PipelineContext](ctx, r)
	if err != nil {
		return err
	}

	runErr := x.Run(ctx, Task{Context: pc})

	if ack == nil {
		return runErr
	}
	if runErr != nil && engine.IsTransient(runErr) {
		return ack.Nack(ctx, true)
	}
	return ack.Ack(ctx)
}
