package notify

import (
	"context"
	"log/slog"
)

// Channel delivers a formatted notification to one external system.
// The returned error is only used for logging and bookkeeping: the engine
// never propagates it to callers.
type Channel interface {
	Name() string
	Send(ctx context.Context, text string) error
}

// NopChannel stands in for a channel that is not configured.
type NopChannel struct {
	Label string
}

// Name returns the label of the channel it replaces.
func (n NopChannel) Name() string { return n.Label }

// Send drops the message.
func (n NopChannel) Send(_ context.Context, _ string) error {
	slog.Debug("channel not configured, dropping notification", "channel", n.Label)
	return nil
}

// IsConfigured reports whether c is a real channel rather than a NopChannel.
func IsConfigured(c Channel) bool {
	if c == nil {
		return false
	}
	_, nop := c.(NopChannel)
	return !nop
}
