// Package gotify implements transport.SimpleTransport over a self-hosted
// Gotify server's REST API using github.com/go-resty/resty/v2.
package gotify

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/notifico/notifico/internal/engine"
	"github.com/notifico/notifico/internal/model"
	"github.com/notifico/notifico/internal/transport/restyutil"
)

const transportName = "gotify"

// Transport sends notifications to a Gotify server. Credentials are
// "<server-url>|<app-token>" since, unlike Pushover, Gotify has no fixed
// well-known endpoint. Contacts carry no further routing information
// beyond the credential, so a synthetic contact type is used.
type Transport struct {
	client *resty.Client
}

// New builds a gotify Transport.
func New() *Transport {
	return &Transport{client: resty.New()}
}

// Name implements transport.SimpleTransport.
func (t *Transport) Name() string { return transportName }

// SupportsContact implements transport.SimpleTransport.
func (t *Transport) SupportsContact(contactType string) bool { return contactType == "gotify" }

// HasContacts implements transport.SimpleTransport.
func (t *Transport) HasContacts() bool { return true }

// SendMessage implements transport.SimpleTransport.
func (t *Transport) SendMessage(ctx context.Context, credential model.Credential, _ model.Contact, message engine.Message, _ *engine.PipelineContext) error {
	serverURL, token, err := splitCredential(credential.Value)
	if err != nil {
		return fmt.Errorf("gotify: %w", err)
	}

	resp, err := t.client.R().
		SetContext(ctx).
		SetQueryParam("token", token).
		SetBody(map[string]any{
			"title":   message.Content["subject"],
			"message": message.Content["body"],
		}).
		Post(strings.TrimRight(serverURL, "/") + "/message")

	return restyutil.Classify("gotify", resp, err)
}

func splitCredential(raw string) (serverURL, token string, err error) {
	idx := strings.IndexByte(raw, '|')
	if idx < 0 {
		return "", "", fmt.Errorf("%w: expected server-url|app-token", engine.ErrInvalidCredentialFormat)
	}
	return raw[:idx], raw[idx+1:], nil
}
