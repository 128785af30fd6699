package mcp

import (
	"github.com/btouchard/nbnotify/internal/notify"
)

// Sender abstracts the mcp-go server notification method.
// Defined consumer-side per Go convention.
type Sender interface {
	SendNotificationToAllClients(method string, params map[string]any)
}

// Notifier pushes every delivery decision to connected MCP clients as a
// notifications/message log entry. It implements notify.Recorder.
type Notifier struct {
	sender Sender
}

// NewNotifier creates a Notifier broadcasting through sender.
func NewNotifier(sender Sender) *Notifier {
	return &Notifier{sender: sender}
}

// RecordDelivery broadcasts d. It never fails.
func (n *Notifier) RecordDelivery(d notify.Delivery) error {
	params := map[string]any{
		"level":  levelFor(d),
		"logger": "nbnotify",
		"data": map[string]any{
			"cell_id": d.CellID,
			"mode":    string(d.Mode),
			"status":  string(d.Status),
			"trigger": d.Trigger,
			"channel": d.Channel,
			"result":  d.Result,
			"error":   d.Error,
		},
	}
	n.sender.SendNotificationToAllClients("notifications/message", params)
	return nil
}

func levelFor(d notify.Delivery) string {
	switch {
	case d.Result == notify.ResultFailed:
		return "error"
	case d.Status == notify.StatusFailed || d.Status == notify.StatusTimeout:
		return "warning"
	default:
		return "info"
	}
}
