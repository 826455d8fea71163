package engine

import (
	"context"
	"fmt"

	"github.com/notifico/notifico/internal/model"
)

// StepOutput is the result of running one pipeline step, directing the
// executor's next move.
type StepOutput int

const (
	// Continue advances to the next step in the current task.
	Continue StepOutput = iota
	// Interrupt stops processing the current task without error; used by
	// plugins (notably core.set_recipients) that have already enqueued
	// replacement tasks of their own.
	Interrupt
)

// StepPlugin implements one or more pipeline step tags.
type StepPlugin interface {
	// Steps lists the step tags this plugin handles, e.g.
	// []string{"core.set_recipients"}.
	Steps() []string
	// Execute runs the step against pc. Implementations must not mutate
	// pc concurrently with any other goroutine; the executor guarantees
	// single-threaded access per task.
	Execute(ctx context.Context, pc *PipelineContext, step model.StepDescriptor) (StepOutput, error)
}

// Engine dispatches pipeline steps to registered plugins by tag.
type Engine struct {
	plugins map[string]StepPlugin
}

// New returns an empty Engine ready for RegisterPlugin calls.
func New() *Engine {
	return &Engine{plugins: map[string]StepPlugin{}}
}

// RegisterPlugin adds plugin under all of its Steps() tags. Panics on a
// duplicate tag: wiring is decided once at startup, so a collision is a
// programming error that should fail loudly rather than silently
// last-write-wins.
func (e *Engine) RegisterPlugin(plugin StepPlugin) {
	for _, tag := range plugin.Steps() {
		if _, exists := e.plugins[tag]; exists {
			panic(fmt.Sprintf("engine: duplicate plugin registration for step %q", tag))
		}
		e.plugins[tag] = plugin
	}
}

// Execute dispatches step to the plugin registered for step.Step.
func (e *Engine) Execute(ctx context.Context, pc *PipelineContext, step model.StepDescriptor) (StepOutput, error) {
	plugin, ok := e.plugins[step.Step]
	if !ok {
		return Continue, fmt.Errorf("%w: %s", ErrPluginNotFound, step.Step)
	}
	return plugin.Execute(ctx, pc, step)
}
