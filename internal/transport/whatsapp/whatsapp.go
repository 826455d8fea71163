// Package whatsapp implements transport.SimpleTransport over the WhatsApp
// Business Cloud API using github.com/go-resty/resty/v2.
package whatsapp

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/notifico/notifico/internal/engine"
	"github.com/notifico/notifico/internal/model"
	"github.com/notifico/notifico/internal/transport/restyutil"
)

const (
	transportName = "whatsapp"
	apiBase       = "https://graph.facebook.com/v19.0"
)

// Transport sends WhatsApp text messages via the Cloud API.
// Credentials are "<phone_number_id>:<access_token>"; contacts are E.164
// phone numbers.
type Transport struct {
	client *resty.Client
}

// New builds a whatsapp Transport.
func New() *Transport {
	return &Transport{client: resty.New().SetTimeout(0)}
}

// Name implements transport.SimpleTransport.
func (t *Transport) Name() string { return transportName }

// SupportsContact implements transport.SimpleTransport.
func (t *Transport) SupportsContact(contactType string) bool { return contactType == "whatsapp" }

// HasContacts implements transport.SimpleTransport.
func (t *Transport) HasContacts() bool { return true }

// SendMessage implements transport.SimpleTransport.
func (t *Transport) SendMessage(ctx context.Context, credential model.Credential, contact model.Contact, message engine.Message, _ *engine.PipelineContext) error {
	phoneNumberID, token, err := splitCredential(credential.Value)
	if err != nil {
		return fmt.Errorf("whatsapp: %w", err)
	}

	body := message.Content["body"]
	resp, err := t.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{
			"messaging_product": "whatsapp",
			"to":                contact.Value,
			"type":              "text",
			"text":              map[string]string{"body": body},
		}).
		Post(fmt.Sprintf("%s/%s/messages", apiBase, phoneNumberID))

	return restyutil.Classify("whatsapp", resp, err)
}

func splitCredential(raw string) (phoneNumberID, token string, err error) {
	idx := strings.IndexByte(raw, ':')
	if idx < 0 {
		return "", "", fmt.Errorf("%w: expected phone_number_id:access_token", engine.ErrInvalidCredentialFormat)
	}
	return raw[:idx], raw[idx+1:], nil
}
