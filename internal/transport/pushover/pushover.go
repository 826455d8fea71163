// Package pushover implements transport.SimpleTransport over the Pushover
// REST API using github.com/go-resty/resty/v2.
package pushover

import (
	"context"

	"github.com/go-resty/resty/v2"

	"github.com/notifico/notifico/internal/engine"
	"github.com/notifico/notifico/internal/model"
	"github.com/notifico/notifico/internal/transport/restyutil"
)

const (
	transportName = "pushover"
	apiURL        = "https://api.pushover.net/1/messages.json"
)

// Transport sends notifications via Pushover. Credentials are
// application API tokens; contacts are Pushover user keys.
type Transport struct {
	client *resty.Client
}

// New builds a pushover Transport.
func New() *Transport {
	return &Transport{client: resty.New()}
}

// Name implements transport.SimpleTransport.
func (t *Transport) Name() string { return transportName }

// SupportsContact implements transport.SimpleTransport.
func (t *Transport) SupportsContact(contactType string) bool { return contactType == "pushover" }

// HasContacts implements transport.SimpleTransport.
func (t *Transport) HasContacts() bool { return true }

// SendMessage implements transport.SimpleTransport.
func (t *Transport) SendMessage(ctx context.Context, credential model.Credential, contact model.Contact, message engine.Message, _ *engine.PipelineContext) error {
	resp, err := t.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"token":   credential.Value,
			"user":    contact.Value,
			"title":   message.Content["subject"],
			"message": message.Content["body"],
		}).
		Post(apiURL)

	return restyutil.Classify("pushover", resp, err)
}
