package notifier

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// maxMessageLen is Telegram's limit for one text message.
const maxMessageLen = 4096

// botAPI is the part of *tgbotapi.BotAPI the notifier uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Notifier delivers reports to a chat.
type Notifier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
	SendPhoto(ctx context.Context, name string, img []byte, caption string) error
}

// TelegramNotifier sends messages to one chat via the Telegram Bot API.
type TelegramNotifier struct {
	api     botAPI
	ChatID  int64
	Backoff time.Duration // first retry delay, doubled per attempt
}

// NewTelegramNotifier connects to the Bot API with optional proxy support.
func NewTelegramNotifier(botToken string, chatID int64, proxyURL string) (*TelegramNotifier, error) {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	client := &http.Client{Timeout: 60 * time.Second, Transport: transport}
	api, err := tgbotapi.NewBotAPIWithClient(botToken, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("connect telegram: %w", err)
	}
	log.Info().Str("bot", api.Self.UserName).Msg("telegram bot authorised")
	return newTelegramNotifier(api, chatID), nil
}

func newTelegramNotifier(api botAPI, chatID int64) *TelegramNotifier {
	return &TelegramNotifier{api: api, ChatID: chatID, Backoff: time.Second}
}

// Send sends an HTML message, split into several if it is too long.
func (t *TelegramNotifier) Send(text string) error {
	for _, part := range splitMessage(text, maxMessageLen) {
		msg := tgbotapi.NewMessage(t.ChatID, part)
		msg.ParseMode = tgbotapi.ModeHTML
		if _, err := t.api.Send(msg); err != nil {
			return fmt.Errorf("send message: %w", err)
		}
	}
	return nil
}

// SendWithRetry sends a message with exponential backoff retry.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		if err := t.Send(text); err != nil {
			lastErr = err
			backoff := t.Backoff * time.Duration(1<<uint(i))
			log.Warn().Err(err).Int("attempt", i+1).Int("max", maxRetries+1).
				Dur("backoff", backoff).Msg("telegram send failed, retrying")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				continue
			}
		}
		return nil
	}
	return fmt.Errorf("all %d retries exhausted: %w", maxRetries+1, lastErr)
}

// SendPhoto uploads a PNG with an HTML caption.
func (t *TelegramNotifier) SendPhoto(_ context.Context, name string, img []byte, caption string) error {
	photo := tgbotapi.NewPhoto(t.ChatID, tgbotapi.FileBytes{Name: name, Bytes: img})
	photo.Caption = caption
	photo.ParseMode = tgbotapi.ModeHTML
	if _, err := t.api.Send(photo); err != nil {
		return fmt.Errorf("send photo: %w", err)
	}
	return nil
}

// splitMessage cuts text into chunks of at most limit runes, preferring line breaks.
func splitMessage(text string, limit int) []string {
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}
	var parts []string
	for len(runes) > limit {
		cut := limit
		if nl := strings.LastIndex(string(runes[:limit]), "\n"); nl > 0 {
			cut = len([]rune(string(runes[:limit])[:nl])) + 1
		}
		parts = append(parts, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}
