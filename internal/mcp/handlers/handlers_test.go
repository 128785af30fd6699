package handlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/btouchard/nbnotify/internal/notify"
	"github.com/btouchard/nbnotify/internal/store"
)

type mockEngine struct {
	registered []notify.Request
	triggered  []notify.Outcome
	err        error
}

func (m *mockEngine) Register(req notify.Request) error {
	if m.err != nil {
		return m.err
	}
	m.registered = append(m.registered, req)
	return nil
}

func (m *mockEngine) TriggerDirect(req notify.Request, o notify.Outcome) error {
	if m.err != nil {
		return m.err
	}
	m.registered = append(m.registered, req)
	m.triggered = append(m.triggered, o)
	return nil
}

type mockLister struct {
	filter  store.DeliveryFilter
	records []store.DeliveryRecord
	counts  map[string]int
	err     error
}

func (m *mockLister) ListDeliveries(f store.DeliveryFilter) ([]store.DeliveryRecord, error) {
	m.filter = f
	return m.records, m.err
}

func (m *mockLister) CountByResult(_ time.Time) (map[string]int, error) {
	return m.counts, m.err
}

func makeReq(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, r *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, r.Content)
	return r.Content[0].(mcp.TextContent).Text
}

// --- Register tests ---

func TestRegister_WhenValid_RegistersCell(t *testing.T) {
	t.Parallel()
	eng := &mockEngine{}
	handler := Register(eng, 0)

	result, err := handler(context.Background(), makeReq(map[string]any{
		"cell_id":           "c1",
		"mode":              "custom-timeout",
		"mail":              true,
		"failure_message":   "check the logs",
		"threshold_seconds": float64(90),
	}))
	require.NoError(t, err)

	assert.False(t, result.IsError)
	text := resultText(t, result)
	assert.Contains(t, text, "c1 registered")
	assert.Contains(t, text, "1m30s")

	require.Len(t, eng.registered, 1)
	got := eng.registered[0]
	assert.Equal(t, notify.ModeCustomTimeout, got.Mode)
	assert.True(t, got.Mail)
	assert.False(t, got.Chat)
	assert.Equal(t, "check the logs", got.FailureMessage)
	assert.Equal(t, 90*time.Second, got.Threshold)
}

func TestRegister_WhenMissingCellID_ReturnsError(t *testing.T) {
	t.Parallel()
	eng := &mockEngine{}

	result, err := Register(eng, 0)(context.Background(), makeReq(map[string]any{}))
	require.NoError(t, err)

	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "cell_id is required")
	assert.Empty(t, eng.registered)
}

func TestRegister_WhenUnknownMode_ReturnsError(t *testing.T) {
	t.Parallel()
	eng := &mockEngine{}

	result, err := Register(eng, 0)(context.Background(), makeReq(map[string]any{
		"cell_id": "c1",
		"mode":    "weekly",
	}))
	require.NoError(t, err)

	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "unknown notification mode")
}

func TestRegister_WhenNegativeThreshold_ReturnsError(t *testing.T) {
	t.Parallel()
	eng := &mockEngine{}

	result, err := Register(eng, 0)(context.Background(), makeReq(map[string]any{
		"cell_id":           "c1",
		"threshold_seconds": float64(-5),
	}))
	require.NoError(t, err)

	assert.True(t, result.IsError)
	assert.Empty(t, eng.registered)
}

func TestRegister_WhenEngineRejects_ReturnsError(t *testing.T) {
	t.Parallel()
	eng := &mockEngine{err: &notify.ValidationError{Field: "threshold", Message: "required for custom-timeout"}}

	result, err := Register(eng, 0)(context.Background(), makeReq(map[string]any{
		"cell_id": "c1",
		"mode":    "custom-timeout",
	}))
	require.NoError(t, err)

	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "Registration rejected")
}

func TestRegister_WhenThresholdAboveMax_ReturnsError(t *testing.T) {
	t.Parallel()
	eng := &mockEngine{}

	result, err := Register(eng, 24*time.Hour)(context.Background(), makeReq(map[string]any{
		"cell_id":           "c1",
		"mode":              "custom-timeout",
		"threshold_seconds": float64(365 * 24 * 3600),
	}))
	require.NoError(t, err)

	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "must not exceed 24h0m0s")
	assert.Empty(t, eng.registered)
}

func TestRegister_WhenThresholdOverflows_ReturnsError(t *testing.T) {
	t.Parallel()
	eng := &mockEngine{}

	result, err := Register(eng, time.Hour)(context.Background(), makeReq(map[string]any{
		"cell_id":           "c1",
		"threshold_seconds": 1e300,
	}))
	require.NoError(t, err)

	assert.True(t, result.IsError)
	assert.Empty(t, eng.registered)
}

func TestRegister_WhenThresholdAtMax_Registers(t *testing.T) {
	t.Parallel()
	eng := &mockEngine{}

	result, err := Register(eng, time.Hour)(context.Background(), makeReq(map[string]any{
		"cell_id":           "c1",
		"mode":              "custom-timeout",
		"threshold_seconds": float64(3600),
	}))
	require.NoError(t, err)

	assert.False(t, result.IsError)
	require.Len(t, eng.registered, 1)
	assert.Equal(t, time.Hour, eng.registered[0].Threshold)
}

// --- Trigger tests ---

func TestTrigger_WhenFailure_PassesDetail(t *testing.T) {
	t.Parallel()
	eng := &mockEngine{}

	result, err := Trigger(eng, 0)(context.Background(), makeReq(map[string]any{
		"cell_id": "c2",
		"chat":    true,
		"success": false,
		"error":   "KeyError: 'x'",
	}))
	require.NoError(t, err)

	assert.False(t, result.IsError)
	assert.Contains(t, resultText(t, result), "status: Failed")
	require.Len(t, eng.triggered, 1)
	assert.Equal(t, "KeyError: 'x'", eng.triggered[0].ErrorDetail)
	assert.True(t, eng.registered[0].Chat)
}

func TestTrigger_WhenTimer_ReportsTimeout(t *testing.T) {
	t.Parallel()
	eng := &mockEngine{}

	result, err := Trigger(eng, 0)(context.Background(), makeReq(map[string]any{
		"cell_id": "c2",
		"timer":   true,
	}))
	require.NoError(t, err)

	assert.Contains(t, resultText(t, result), "status: Timeout")
	require.Len(t, eng.triggered, 1)
	assert.True(t, eng.triggered[0].TimedOut)
}

func TestTrigger_CustomTimeoutWithoutThreshold_Dispatches(t *testing.T) {
	t.Parallel()
	eng := notify.NewEngine(nil, nil, nil)

	result, err := Trigger(eng, time.Hour)(context.Background(), makeReq(map[string]any{
		"cell_id": "c1",
		"mode":    "custom-timeout",
		"timer":   true,
	}))
	require.NoError(t, err)

	assert.False(t, result.IsError, resultText(t, result))
	assert.Contains(t, resultText(t, result), "status: Timeout")
	assert.Zero(t, eng.Registry().Len())
}

func TestTrigger_WhenNoOutcome_ReturnsError(t *testing.T) {
	t.Parallel()
	eng := &mockEngine{}

	result, err := Trigger(eng, 0)(context.Background(), makeReq(map[string]any{
		"cell_id": "c2",
	}))
	require.NoError(t, err)

	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "success or timer is required")
	assert.Empty(t, eng.triggered)
}

// --- Status tests ---

func TestStatus_ListsPendingSorted(t *testing.T) {
	t.Parallel()
	reg := notify.NewEngine(nil, nil, nil)
	require.NoError(t, reg.Register(notify.Request{CellID: "b"}))
	require.NoError(t, reg.Register(notify.Request{CellID: "a"}))

	result, err := Status(reg.Registry(), nil)(context.Background(), makeReq(map[string]any{}))
	require.NoError(t, err)

	text := resultText(t, result)
	assert.Contains(t, text, "Pending registrations: 2\n- a\n- b\n")
}

func TestStatus_ForSingleCell(t *testing.T) {
	t.Parallel()
	eng := notify.NewEngine(nil, nil, nil)
	require.NoError(t, eng.Register(notify.Request{CellID: "c1", Mode: notify.ModeCustomTimeout, Threshold: time.Hour}))
	t.Cleanup(eng.Shutdown)

	lister := &mockLister{counts: map[string]int{"sent": 4, "failed": 1}, records: []store.DeliveryRecord{{
		CellID:    "c1",
		Status:    "Failed",
		Trigger:   "completion",
		Channel:   "mail",
		Result:    "failed",
		Error:     "connection refused",
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}}}

	result, err := Status(eng.Registry(), lister)(context.Background(), makeReq(map[string]any{
		"cell_id": "c1",
		"limit":   float64(500),
	}))
	require.NoError(t, err)

	text := resultText(t, result)
	assert.Contains(t, text, "Cell c1: pending (mode: custom-timeout, threshold: 1h0m0s)")
	assert.Contains(t, text, "Last 24h: 4 sent, 1 failed, 0 suppressed")
	assert.Contains(t, text, "2026-01-02 03:04:05  c1  Failed  completion via mail: failed (connection refused)")
	assert.Equal(t, store.DeliveryFilter{CellID: "c1", Limit: maxStatusLimit}, lister.filter)
}

func TestStatus_WhenNotPendingAndNoDeliveries(t *testing.T) {
	t.Parallel()
	eng := notify.NewEngine(nil, nil, nil)

	result, err := Status(eng.Registry(), &mockLister{})(context.Background(), makeReq(map[string]any{
		"cell_id": "gone",
	}))
	require.NoError(t, err)

	text := resultText(t, result)
	assert.Contains(t, text, "Cell gone: not pending")
	assert.Contains(t, text, "No recorded deliveries.")
}

func TestStatus_WhenStoreFails_ReturnsError(t *testing.T) {
	t.Parallel()
	eng := notify.NewEngine(nil, nil, nil)

	result, err := Status(eng.Registry(), &mockLister{err: errors.New("database is locked")})(context.Background(), makeReq(map[string]any{}))
	require.NoError(t, err)

	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "database is locked")
}
