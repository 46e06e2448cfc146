package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/newthinker/signalbook/internal/core"
)

// Source polls the Bot API getUpdates endpoint for alert messages. Only
// messages from the configured chats are returned; an empty list accepts
// every chat the bot can see.
type Source struct {
	botToken string
	baseURL  string
	client   *http.Client
	chats    map[string]bool

	mu     sync.Mutex
	bot    *tgbotapi.BotAPI
	offset int
}

// NewSource creates a getUpdates poller. Chats are numeric ids or @usernames.
func NewSource(botToken string, chats []string) *Source {
	s := &Source{
		botToken: botToken,
		baseURL:  DefaultBaseURL,
		client:   &http.Client{Timeout: 30 * time.Second},
		chats:    make(map[string]bool, len(chats)),
	}
	for _, c := range chats {
		if c = strings.TrimSpace(c); c != "" {
			s.chats[c] = true
		}
	}
	return s
}

// WithBaseURL points the source at another Bot API endpoint.
func (s *Source) WithBaseURL(base string) *Source {
	s.baseURL = strings.TrimRight(base, "/")
	return s
}

// botLocked connects on first use; the client verifies the token with getMe.
func (s *Source) botLocked() (*tgbotapi.BotAPI, error) {
	if s.bot != nil {
		return s.bot, nil
	}
	bot, err := tgbotapi.NewBotAPIWithClient(s.botToken, s.baseURL+"/bot%s/%s", s.client)
	if err != nil {
		return nil, fmt.Errorf("telegram: connect: %w", err)
	}
	s.bot = bot
	return bot, nil
}

// FetchMessages returns messages received since the previous call.
func (s *Source) FetchMessages(ctx context.Context) ([]core.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, core.WrapError(core.ErrSourceFailed, err)
	}
	bot, err := s.botLocked()
	if err != nil {
		return nil, core.WrapError(core.ErrSourceFailed, err)
	}

	cfg := tgbotapi.NewUpdate(s.offset)
	cfg.AllowedUpdates = []string{"message", "channel_post"}
	updates, err := bot.GetUpdates(cfg)
	if err != nil {
		return nil, core.WrapError(core.ErrSourceFailed, fmt.Errorf("telegram: getUpdates failed: %w", err))
	}

	var out []core.Message
	for _, u := range updates {
		if u.UpdateID >= s.offset {
			s.offset = u.UpdateID + 1
		}
		msg := u.Message
		if msg == nil {
			msg = u.ChannelPost
		}
		if msg == nil || msg.Chat == nil {
			continue
		}
		text := msg.Text
		if text == "" {
			text = msg.Caption
		}
		if text == "" {
			continue
		}

		id := strconv.FormatInt(msg.Chat.ID, 10)
		channel := id
		if msg.Chat.UserName != "" {
			channel = "@" + msg.Chat.UserName
		}
		if len(s.chats) > 0 && !s.chats[id] && !s.chats[channel] {
			continue
		}

		out = append(out, core.Message{
			Channel:    channel,
			Text:       text,
			ReceivedAt: msg.Time().UTC(),
		})
	}
	return out, nil
}
