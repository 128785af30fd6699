package mcp

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/btouchard/nbnotify/internal/notify"
)

type sentNotification struct {
	method string
	params map[string]any
}

type mockSender struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (m *mockSender) SendNotificationToAllClients(method string, params map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentNotification{method: method, params: params})
}

func TestNotifier_BroadcastsDelivery(t *testing.T) {
	t.Parallel()
	sender := &mockSender{}
	n := NewNotifier(sender)

	err := n.RecordDelivery(notify.Delivery{
		CellID:  "c1",
		Mode:    notify.ModeAlways,
		Status:  notify.StatusSuccess,
		Trigger: notify.TriggerCompletion,
		Channel: "chat",
		Result:  notify.ResultSent,
	})
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	got := sender.sent[0]
	assert.Equal(t, "notifications/message", got.method)
	assert.Equal(t, "info", got.params["level"])
	assert.Equal(t, "nbnotify", got.params["logger"])
	data := got.params["data"].(map[string]any)
	assert.Equal(t, "c1", data["cell_id"])
	assert.Equal(t, "chat", data["channel"])
	assert.Equal(t, "sent", data["result"])
}

func TestNotifier_Levels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		d    notify.Delivery
		want string
	}{
		{"sent success", notify.Delivery{Status: notify.StatusSuccess, Result: notify.ResultSent}, "info"},
		{"sent failure", notify.Delivery{Status: notify.StatusFailed, Result: notify.ResultSent}, "warning"},
		{"sent timeout", notify.Delivery{Status: notify.StatusTimeout, Result: notify.ResultSent}, "warning"},
		{"delivery failed", notify.Delivery{Status: notify.StatusSuccess, Result: notify.ResultFailed}, "error"},
		{"suppressed", notify.Delivery{Status: notify.StatusSuccess, Result: notify.ResultSuppressed}, "info"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, levelFor(tt.d))
		})
	}
}

func TestNewServer_Builds(t *testing.T) {
	t.Parallel()
	eng := notify.NewEngine(nil, nil, nil)

	s := NewServer(&Deps{Engine: eng, Pending: eng.Registry(), Version: "test"})

	assert.NotNil(t, s)
}
