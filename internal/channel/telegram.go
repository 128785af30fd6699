package channel

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// TelegramClient adapts telebot to ChatClient. A Telegram user id doubles
// as the id of the private chat with the bot.
type TelegramClient struct {
	bot *tele.Bot
}

// NewTelegramClient creates a send-only bot client.
func NewTelegramClient(token string) (*TelegramClient, error) {
	return newTelegramClient(token, "")
}

// newTelegramClient allows overriding the Bot API URL; empty means the
// public endpoint.
func newTelegramClient(token, apiURL string) (*TelegramClient, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	b, err := tele.NewBot(tele.Settings{
		URL:     apiURL,
		Token:   token,
		Offline: true,
	})
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}
	return &TelegramClient{bot: b}, nil
}

// OpenDirectMessage validates userID and returns it as the chat id.
func (t *TelegramClient) OpenDirectMessage(_ context.Context, userID string) (string, error) {
	if _, err := strconv.ParseInt(userID, 10, 64); err != nil {
		return "", fmt.Errorf("invalid telegram user id %q: %w", userID, err)
	}
	return userID, nil
}

// PostMessage sends text to a numeric chat id or an @channel name.
func (t *TelegramClient) PostMessage(ctx context.Context, channel, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var to tele.Recipient
	if id, err := strconv.ParseInt(channel, 10, 64); err == nil {
		to = tele.ChatID(id)
	} else {
		name := channel
		if !strings.HasPrefix(name, "@") {
			name = "@" + name
		}
		chat, err := t.bot.ChatByUsername(name)
		if err != nil {
			return fmt.Errorf("resolving telegram channel %s: %w", name, err)
		}
		to = chat
	}

	_, err := t.bot.Send(to, text)
	return err
}
