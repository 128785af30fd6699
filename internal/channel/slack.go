package channel

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
)

// SlackClient adapts slack-go to ChatClient.
type SlackClient struct {
	api *slack.Client
}

// NewSlackClient creates a client authenticated with a bot token.
func NewSlackClient(token string, opts ...slack.Option) *SlackClient {
	return &SlackClient{api: slack.New(token, opts...)}
}

// OpenDirectMessage opens (or reuses) the DM conversation with userID.
func (s *SlackClient) OpenDirectMessage(ctx context.Context, userID string) (string, error) {
	ch, _, _, err := s.api.OpenConversationContext(ctx, &slack.OpenConversationParameters{
		Users: []string{userID},
	})
	if err != nil {
		return "", fmt.Errorf("opening conversation: %w", err)
	}
	if ch == nil {
		return "", fmt.Errorf("opening conversation: empty response")
	}
	return ch.ID, nil
}

// PostMessage posts plain text to a conversation id or channel name.
func (s *SlackClient) PostMessage(ctx context.Context, channel, text string) error {
	_, _, err := s.api.PostMessageContext(ctx, channel, slack.MsgOptionText(text, false))
	return err
}
