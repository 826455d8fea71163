// Package ntfy implements transport.SimpleTransport over the ntfy.sh REST
// API (or a self-hosted instance) using github.com/go-resty/resty/v2.
package ntfy

import (
	"context"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/notifico/notifico/internal/engine"
	"github.com/notifico/notifico/internal/model"
	"github.com/notifico/notifico/internal/transport/restyutil"
)

const (
	transportName  = "ntfy"
	defaultBaseURL = "https://ntfy.sh"
)

// Transport publishes to an ntfy topic. Credentials are an optional
// bearer token for authenticated instances ("" for the public default
// instance's open topics); contacts are topic names, optionally prefixed
// with a base URL ("https://ntfy.example/mytopic").
type Transport struct {
	client *resty.Client
}

// New builds an ntfy Transport.
func New() *Transport {
	return &Transport{client: resty.New()}
}

// Name implements transport.SimpleTransport.
func (t *Transport) Name() string { return transportName }

// SupportsContact implements transport.SimpleTransport.
func (t *Transport) SupportsContact(contactType string) bool { return contactType == "ntfy" }

// HasContacts implements transport.SimpleTransport.
func (t *Transport) HasContacts() bool { return true }

// SendMessage implements transport.SimpleTransport.
func (t *Transport) SendMessage(ctx context.Context, credential model.Credential, contact model.Contact, message engine.Message, _ *engine.PipelineContext) error {
	target := topicURL(contact.Value)

	req := t.client.R().
		SetContext(ctx).
		SetHeader("Title", message.Content["subject"]).
		SetBody(message.Content["body"])
	if credential.Value != "" {
		req.SetAuthToken(credential.Value)
	}

	resp, err := req.Post(target)
	return restyutil.Classify("ntfy", resp, err)
}

// topicURL resolves a contact value into a full publish URL: a bare topic
// name is published against defaultBaseURL, while a value that is already
// an absolute URL is used as-is.
func topicURL(value string) string {
	if strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://") {
		return value
	}
	return defaultBaseURL + "/" + strings.TrimLeft(value, "/")
}
