// Package templater implements the templates.load and
// templates.load-context steps: rendering Jinja-compatible templates
// (via github.com/flosch/pongo2) or stringifying the raw event context
// into a Message's channel-specific parts.
package templater

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/flosch/pongo2/v6"
	"github.com/google/uuid"

	"github.com/notifico/notifico/internal/engine"
	"github.com/notifico/notifico/internal/model"
)

const (
	// LoadStepTag renders a selected template into a new Message.
	LoadStepTag = "templates.load"
	// LoadContextStepTag stringifies the event context into a Message,
	// bypassing template rendering entirely.
	LoadContextStepTag = "templates.load-context"
)

func init() {
	// default/length replace pongo2's builtins of the same names, whose
	// behaviour differs slightly from Jinja2's; upper/lower ship with pongo2.
	_ = pongo2.ReplaceFilter("default", filterDefault)
	_ = pongo2.ReplaceFilter("length", filterLength)
}

func filterDefault(in, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	if in == nil || in.IsNil() || (in.CanSlice() && in.Len() == 0) {
		return param, nil
	}
	return in, nil
}

func filterLength(in, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	return pongo2.AsValue(in.Len()), nil
}

type loadPayload struct {
	Selector  string `json:"selector"` // "inline", "name", or "file"
	Inline    map[string]string `json:"inline,omitempty"`
	Name      string `json:"name,omitempty"`
	Channel   string `json:"channel,omitempty"`
	File      string `json:"file,omitempty"`
}

// Plugin implements engine.StepPlugin for both template step tags.
type Plugin struct {
	Source   engine.TemplateSource
	FileRoot string // empty disables the "file" selector entirely
	fileFS   fs.FS
}

// New builds a templater Plugin. source resolves "name" selectors;
// fileRoot, if non-empty, is the directory "file" selectors are confined
// to via os.DirFS (no path can escape fileRoot).
func New(source engine.TemplateSource, fileRoot string) *Plugin {
	p := &Plugin{Source: source, FileRoot: fileRoot}
	if fileRoot != "" {
		p.fileFS = os.DirFS(fileRoot)
	}
	return p
}

// Steps implements engine.StepPlugin.
func (p *Plugin) Steps() []string { return []string{LoadStepTag, LoadContextStepTag} }

// Execute implements engine.StepPlugin.
func (p *Plugin) Execute(ctx context.Context, pc *engine.PipelineContext, step model.StepDescriptor) (engine.StepOutput, error) {
	switch step.Step {
	case LoadStepTag:
		return p.executeLoad(ctx, pc, step)
	case LoadContextStepTag:
		return p.executeLoadContext(pc)
	default:
		return engine.Continue, fmt.Errorf("%w: %s", engine.ErrPluginNotFound, step.Step)
	}
}

func (p *Plugin) executeLoad(ctx context.Context, pc *engine.PipelineContext, step model.StepDescriptor) (engine.StepOutput, error) {
	var payload loadPayload
	if err := json.Unmarshal(step.Payload, &payload); err != nil {
		return engine.Continue, fmt.Errorf("%w: %v", engine.ErrInvalidStepPayload, err)
	}

	parts, err := p.resolveParts(ctx, pc, payload)
	if err != nil {
		return engine.Continue, err
	}

	renderCtx := p.renderContext(pc)

	rendered := make(map[string]string, len(parts))
	for key, tpl := range parts {
		out, err := renderTemplate(tpl, renderCtx)
		if err != nil {
			return engine.Continue, fmt.Errorf("%w: part %q: %v", engine.ErrTemplateRendering, key, err)
		}
		rendered[key] = out
	}

	pc.Messages = append(pc.Messages, engine.Message{ID: uuid.Must(uuid.NewV7()), Content: rendered})
	return engine.Continue, nil
}

func (p *Plugin) executeLoadContext(pc *engine.PipelineContext) (engine.StepOutput, error) {
	content := make(map[string]string, len(pc.EventCtx))
	for k, v := range pc.EventCtx {
		content[k] = stringify(v)
	}
	pc.Messages = append(pc.Messages, engine.Message{ID: uuid.Must(uuid.NewV7()), Content: content})
	return engine.Continue, nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	case float64, bool, int, int64:
		return fmt.Sprint(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

func (p *Plugin) resolveParts(ctx context.Context, pc *engine.PipelineContext, payload loadPayload) (map[string]string, error) {
	switch payload.Selector {
	case "inline":
		if payload.Inline == nil {
			return nil, fmt.Errorf("%w: inline selector requires parts", engine.ErrInvalidStepPayload)
		}
		return payload.Inline, nil

	case "name":
		if p.Source == nil {
			return nil, fmt.Errorf("%w: template source not configured", engine.ErrInternal)
		}
		tpl, err := p.Source.GetTemplate(ctx, pc.ProjectID, payload.Name, payload.Channel)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", engine.ErrTemplateNotSet, err)
		}
		return tpl.Parts, nil

	case "file":
		if p.fileFS == nil {
			return nil, fmt.Errorf("%w: file templates disabled (no template file_root configured)", engine.ErrInvalidConfiguration)
		}
		clean := filepath.ToSlash(filepath.Clean("/" + payload.File))[1:]
		data, err := fs.ReadFile(p.fileFS, clean)
		if err != nil {
			return nil, fmt.Errorf("%w: read template file %q: %v", engine.ErrTemplateNotSet, payload.File, err)
		}
		var parts map[string]string
		if err := json.Unmarshal(data, &parts); err != nil {
			return nil, fmt.Errorf("%w: parse template file %q: %v", engine.ErrInvalidStepPayload, payload.File, err)
		}
		return parts, nil

	default:
		return nil, fmt.Errorf("%w: unknown template selector %q", engine.ErrInvalidStepPayload, payload.Selector)
	}
}

func (p *Plugin) renderContext(pc *engine.PipelineContext) pongo2.Context {
	ctx := pongo2.Context{}
	for k, v := range pc.EventCtx {
		ctx[k] = v
	}
	ctx["_"] = map[string]string{
		"message_id":      uuid.Must(uuid.NewV7()).String(),
		"notification_id": pc.NotificationID.String(),
	}
	return ctx
}

func renderTemplate(src string, ctx pongo2.Context) (string, error) {
	tpl, err := pongo2.FromString(src)
	if err != nil {
		return "", err
	}
	return tpl.Execute(ctx)
}
