// Package slack implements transport.SimpleTransport over the Slack Web
// API using github.com/slack-go/slack.
package slack

import (
	"context"
	"fmt"
	"sync"

	goslack "github.com/slack-go/slack"

	"github.com/notifico/notifico/internal/engine"
	"github.com/notifico/notifico/internal/model"
)

const transportName = "slack"

// Transport sends messages via a Slack bot token. Contacts are channel
// IDs.
type Transport struct {
	mu      sync.Mutex
	clients map[string]*goslack.Client
}

// New builds a slack Transport.
func New() *Transport {
	return &Transport{clients: map[string]*goslack.Client{}}
}

// Name implements transport.SimpleTransport.
func (t *Transport) Name() string { return transportName }

// SupportsContact implements transport.SimpleTransport.
func (t *Transport) SupportsContact(contactType string) bool { return contactType == "slack" }

// HasContacts implements transport.SimpleTransport.
func (t *Transport) HasContacts() bool { return true }

// SendMessage implements transport.SimpleTransport.
func (t *Transport) SendMessage(ctx context.Context, credential model.Credential, contact model.Contact, message engine.Message, _ *engine.PipelineContext) error {
	client := t.clientFor(credential.Value)

	body := message.Content["body"]
	if body == "" {
		body = message.Content["subject"]
	}

	_, _, err := client.PostMessageContext(ctx, contact.Value, goslack.MsgOptionText(body, false))
	if err != nil {
		return fmt.Errorf("slack: %w", engine.MarkTransient(err))
	}
	return nil
}

func (t *Transport) clientFor(token string) *goslack.Client {
	t.mu.Lock()
	defer t.mu.Unlock()

	if c, ok := t.clients[token]; ok {
		return c
	}
	c := goslack.New(token)
	t.clients[token] = c
	return c
}
