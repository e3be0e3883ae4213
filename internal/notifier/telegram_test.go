package notifier

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mu      sync.Mutex
	sent    []tgbotapi.Chattable
	failN   int
	updates chan tgbotapi.Update
	stopped bool
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failN > 0 {
		f.failN--
		return tgbotapi.Message{}, errors.New("telegram down")
	}
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
}

func (f *fakeAPI) messages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.MessageConfig
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m)
		}
	}
	return out
}

func TestSend_HTMLToChat(t *testing.T) {
	api := &fakeAPI{}
	n := newTelegramNotifier(api, 42)

	require.NoError(t, n.Send("<b>hi</b>"))
	msgs := api.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, int64(42), msgs[0].ChatID)
	assert.Equal(t, tgbotapi.ModeHTML, msgs[0].ParseMode)
	assert.Equal(t, "<b>hi</b>", msgs[0].Text)
}

func TestSendWithRetry(t *testing.T) {
	api := &fakeAPI{failN: 2}
	n := newTelegramNotifier(api, 1)
	n.Backoff = time.Millisecond

	require.NoError(t, n.SendWithRetry(context.Background(), "x", 3))
	assert.Len(t, api.messages(), 1)

	api.failN = 10
	err := n.SendWithRetry(context.Background(), "x", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 2 retries exhausted")
}

func TestSendWithRetry_ContextCancelled(t *testing.T) {
	api := &fakeAPI{failN: 10}
	n := newTelegramNotifier(api, 1)
	n.Backoff = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, n.SendWithRetry(ctx, "x", 3), context.Canceled)
}

func TestSendPhoto(t *testing.T) {
	api := &fakeAPI{}
	n := newTelegramNotifier(api, 7)

	require.NoError(t, n.SendPhoto(context.Background(), "a.png", []byte{1, 2}, "cap"))
	require.Len(t, api.sent, 1)
	photo, ok := api.sent[0].(tgbotapi.PhotoConfig)
	require.True(t, ok)
	assert.Equal(t, int64(7), photo.ChatID)
	assert.Equal(t, "cap", photo.Caption)
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitMessage("short", 10))

	text := strings.Repeat("abcd\n", 5) // 25 runes
	parts := splitMessage(text, 12)
	assert.Equal(t, text, strings.Join(parts, ""))
	for _, p := range parts {
		assert.LessOrEqual(t, len([]rune(p)), 12)
		assert.True(t, strings.HasSuffix(p, "\n"))
	}

	parts = splitMessage(strings.Repeat("é", 9), 4)
	assert.Equal(t, []string{"éééé", "éééé", "é"}, parts)
}

func TestStartPolling_DispatchesOwnChatOnly(t *testing.T) {
	api := &fakeAPI{updates: make(chan tgbotapi.Update, 4)}
	n := newTelegramNotifier(api, 99)

	api.updates <- tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 5}, Text: "/help"}}
	api.updates <- tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 99}, Text: " /help "}}
	api.updates <- tgbotapi.Update{}

	var got []string
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		n.StartPolling(ctx, func(_ context.Context, cmd string) string {
			got = append(got, cmd)
			cancel()
			return "reply to " + cmd
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("polling did not stop")
	}
	assert.Equal(t, []string{"/help"}, got)
	msgs := api.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "reply to /help", msgs[0].Text)
	assert.True(t, api.stopped)
}
