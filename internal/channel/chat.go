// Package channel implements the chat and mail delivery channels and the
// thin adapters over the Slack, Telegram and SMTP client libraries.
package channel

import (
	"context"
	"fmt"
	"log/slog"
)

// ChatClient is the minimal chat API a Chat channel needs.
// Defined consumer-side per Go convention.
type ChatClient interface {
	// OpenDirectMessage returns the conversation id for a DM with userID.
	OpenDirectMessage(ctx context.Context, userID string) (string, error)
	// PostMessage posts text to a conversation id or channel name.
	PostMessage(ctx context.Context, channel, text string) error
}

// Chat delivers notifications to one chat destination: a direct message to
// UserID when possible, otherwise the ChannelName.
type Chat struct {
	client      ChatClient
	provider    string
	userID      string
	channelName string
}

// NewChat creates a Chat channel. provider is used for logging only.
func NewChat(client ChatClient, provider, userID, channelName string) *Chat {
	return &Chat{
		client:      client,
		provider:    provider,
		userID:      userID,
		channelName: channelName,
	}
}

// Name returns "chat".
func (c *Chat) Name() string { return "chat" }

// Send resolves the destination and posts text to it. Having no usable
// destination is logged and is not an error.
func (c *Chat) Send(ctx context.Context, text string) error {
	dest := c.resolve(ctx)
	if dest == "" {
		slog.Warn("chat destination unavailable, notification dropped", "provider", c.provider)
		return nil
	}

	if err := c.client.PostMessage(ctx, dest, text); err != nil {
		return fmt.Errorf("%s post to %s: %w", c.provider, dest, err)
	}
	return nil
}

// resolve looks the destination up once per send.
func (c *Chat) resolve(ctx context.Context) string {
	if c.userID != "" {
		id, err := c.client.OpenDirectMessage(ctx, c.userID)
		if err == nil && id != "" {
			return id
		}
		slog.Debug("direct message lookup failed, falling back to channel",
			"provider", c.provider,
			"user_id", c.userID,
			"channel", c.channelName,
			"error", err)
	}
	return c.channelName
}
