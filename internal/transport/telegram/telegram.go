// Package telegram implements transport.SimpleTransport over the Telegram
// Bot API using github.com/go-telegram-bot-api/telegram-bot-api/v5.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/notifico/notifico/internal/engine"
	"github.com/notifico/notifico/internal/model"
)

const transportName = "telegram"

// Transport sends messages via a Telegram bot. Credentials are bot
// tokens; contacts are numeric chat IDs.
type Transport struct {
	mu   sync.Mutex
	bots map[string]*tgbotapi.BotAPI
}

// New builds a telegram Transport.
func New() *Transport {
	return &Transport{bots: map[string]*tgbotapi.BotAPI{}}
}

// Name implements transport.SimpleTransport.
func (t *Transport) Name() string { return transportName }

// SupportsContact implements transport.SimpleTransport.
func (t *Transport) SupportsContact(contactType string) bool { return contactType == "telegram" }

// HasContacts implements transport.SimpleTransport.
func (t *Transport) HasContacts() bool { return true }

// SendMessage implements transport.SimpleTransport.
func (t *Transport) SendMessage(_ context.Context, credential model.Credential, contact model.Contact, message engine.Message, _ *engine.PipelineContext) error {
	bot, err := t.botFor(credential.Value)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}

	chatID, err := strconv.ParseInt(contact.Value, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: telegram chat id %q is not numeric", engine.ErrInvalidContactFormat, contact.Value)
	}

	body := message.Content["body"]
	if body == "" {
		body = message.Content["subject"]
	}
	msg := tgbotapi.NewMessage(chatID, body)
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := bot.Send(msg); err != nil {
		return fmt.Errorf("telegram: %w", engine.MarkTransient(err))
	}
	return nil
}

func (t *Transport) botFor(token string) (*tgbotapi.BotAPI, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if bot, ok := t.bots[token]; ok {
		return bot, nil
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", engine.ErrInvalidCredentialFormat, err)
	}
	t.bots[token] = bot
	return bot, nil
}
