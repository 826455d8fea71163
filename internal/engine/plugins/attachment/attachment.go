// Package attachment implements the attachment.attach step, which attaches
// metadata describing a downloadable file to a previously rendered
// Message.
package attachment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/notifico/notifico/internal/engine"
	"github.com/notifico/notifico/internal/model"
)

// StepTag is the plugin tag this package registers under.
const StepTag = "attachment.attach"

// Metadata describes one attachment a transport should fetch and attach
// to an outgoing message. It is the same shape as engine.Attachment; the
// alias keeps this package's step-payload vocabulary self-contained.
type Metadata = engine.Attachment

type stepPayload struct {
	Message     int        `json:"message"`
	Attachments []Metadata `json:"attachments"`
}

// Plugin implements engine.StepPlugin for attachment.attach.
type Plugin struct {
	// AllowFileScheme opts into the file:// URL scheme. Disabled by
	// default: a misconfigured project could otherwise use an attachment
	// URL to exfiltrate arbitrary local files.
	AllowFileScheme bool
}

// New builds an attachment Plugin. allowFileScheme must be explicitly set
// true to permit file:// attachment URLs.
func New(allowFileScheme bool) *Plugin {
	return &Plugin{AllowFileScheme: allowFileScheme}
}

// Steps implements engine.StepPlugin.
func (p *Plugin) Steps() []string { return []string{StepTag} }

// Execute implements engine.StepPlugin.
func (p *Plugin) Execute(_ context.Context, pc *engine.PipelineContext, step model.StepDescriptor) (engine.StepOutput, error) {
	var payload stepPayload
	if err := json.Unmarshal(step.Payload, &payload); err != nil {
		return engine.Continue, fmt.Errorf("%w: %v", engine.ErrInvalidStepPayload, err)
	}

	if payload.Message < 0 || payload.Message >= len(pc.Messages) {
		return engine.Continue, fmt.Errorf("%w: message index %d out of range (have %d)", engine.ErrInvalidStepPayload, payload.Message, len(pc.Messages))
	}

	if len(payload.Attachments) == 0 {
		return engine.Continue, fmt.Errorf("%w: attachments is empty", engine.ErrInvalidStepPayload)
	}

	msg := &pc.Messages[payload.Message]
	for _, a := range payload.Attachments {
		parsed, err := url.Parse(a.URL)
		if err != nil || parsed.Scheme == "" {
			return engine.Continue, fmt.Errorf("%w: invalid attachment URL %q", engine.ErrInvalidStepPayload, a.URL)
		}
		switch parsed.Scheme {
		case "http", "https":
		case "file":
			if !p.AllowFileScheme {
				return engine.Continue, fmt.Errorf("%w: file:// attachments are disabled", engine.ErrInvalidConfiguration)
			}
		default:
			return engine.Continue, fmt.Errorf("%w: unsupported attachment URL scheme %q", engine.ErrInvalidStepPayload, parsed.Scheme)
		}

		msg.Attachments = append(msg.Attachments, a)
	}

	return engine.Continue, nil
}
