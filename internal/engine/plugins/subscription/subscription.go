// Package subscription implements sub.check and sub.list_unsubscribe,
// enforcing per-recipient opt-outs and minting signed unsubscribe links.
// Grounded on notifico-subscription/src/plugin/mod.rs.
package subscription

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/notifico/notifico/internal/engine"
	"github.com/notifico/notifico/internal/model"
)

const (
	// CheckStepTag interrupts the pipeline if the recipient opted out.
	CheckStepTag = "sub.check"
	// ListUnsubscribeStepTag mints a signed unsubscribe URL for the
	// current message.
	ListUnsubscribeStepTag = "sub.list_unsubscribe"

	// PluginContextKey is where the rendered List-Unsubscribe header value
	// is stashed for the smtp transport to pick up.
	PluginContextKey = "email.list_unsubscribe"

	unsubscribeTokenTTL = 30 * 24 * time.Hour
)

type checkPayload struct {
	Channel string `json:"channel"`
}

// Plugin implements engine.StepPlugin for both subscription step tags.
type Plugin struct {
	Store     engine.SubscriptionStore
	Secret    []byte
	PublicURL string
}

// New builds a subscription Plugin. secret signs unsubscribe JWTs;
// publicURL is prefixed to the generated unsubscribe link.
func New(store engine.SubscriptionStore, secret, publicURL string) *Plugin {
	return &Plugin{Store: store, Secret: []byte(secret), PublicURL: publicURL}
}

// Steps implements engine.StepPlugin.
func (p *Plugin) Steps() []string { return []string{CheckStepTag, ListUnsubscribeStepTag} }

// Execute implements engine.StepPlugin.
func (p *Plugin) Execute(ctx context.Context, pc *engine.PipelineContext, step model.StepDescriptor) (engine.StepOutput, error) {
	switch step.Step {
	case CheckStepTag:
		return p.executeCheck(ctx, pc, step)
	case ListUnsubscribeStepTag:
		return p.executeListUnsubscribe(pc)
	default:
		return engine.Continue, fmt.Errorf("%w: %s", engine.ErrPluginNotFound, step.Step)
	}
}

func (p *Plugin) executeCheck(ctx context.Context, pc *engine.PipelineContext, step model.StepDescriptor) (engine.StepOutput, error) {
	var payload checkPayload
	if err := json.Unmarshal(step.Payload, &payload); err != nil {
		return engine.Continue, fmt.Errorf("%w: %v", engine.ErrInvalidStepPayload, err)
	}
	if pc.Recipient == nil {
		return engine.Continue, fmt.Errorf("%w", engine.ErrRecipientNotSet)
	}
	if p.Store == nil {
		return engine.Continue, nil
	}

	subscribed, err := p.Store.IsSubscribed(ctx, pc.Recipient.ID, pc.EventName, payload.Channel)
	if err != nil {
		return engine.Continue, fmt.Errorf("%w: %v", engine.ErrInternal, err)
	}
	if !subscribed {
		return engine.Interrupt, nil
	}
	return engine.Continue, nil
}

func (p *Plugin) executeListUnsubscribe(pc *engine.PipelineContext) (engine.StepOutput, error) {
	if pc.Recipient == nil {
		return engine.Continue, fmt.Errorf("%w", engine.ErrRecipientNotSet)
	}
	if p.PublicURL == "" {
		return engine.Continue, fmt.Errorf("%w: public_url is not configured", engine.ErrInvalidConfiguration)
	}

	claims := jwt.MapClaims{
		"scope":        "list-unsubscribe",
		"event":        pc.EventName,
		"recipient_id": pc.Recipient.ID.String(),
		"exp":          time.Now().Add(unsubscribeTokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(p.Secret)
	if err != nil {
		return engine.Continue, fmt.Errorf("%w: sign unsubscribe token: %v", engine.ErrInternal, err)
	}

	link := fmt.Sprintf("%s/api/public/v1/email/unsubscribe?token=%s&event=%s",
		p.PublicURL, url.QueryEscape(signed), url.QueryEscape(pc.EventName))

	pc.PluginContexts[PluginContextKey] = "<" + link + ">"
	return engine.Continue, nil
}
