package store

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCleaner struct {
	mu    sync.Mutex
	calls []time.Time
	err   error
}

func (m *mockCleaner) Cleanup(olderThan time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, olderThan)
	return 3, m.err
}

func (m *mockCleaner) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func TestStartCleanup_RunsImmediately(t *testing.T) {
	t.Parallel()
	c := &mockCleaner{}

	s, err := StartCleanup(c, 24*time.Hour, time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Shutdown() })

	require.Eventually(t, func() bool { return c.callCount() >= 1 }, 2*time.Second, 10*time.Millisecond)

	c.mu.Lock()
	cutoff := c.calls[0]
	c.mu.Unlock()
	assert.WithinDuration(t, time.Now().Add(-24*time.Hour), cutoff, time.Minute)
}

func TestRunCleanup_ToleratesErrors(t *testing.T) {
	t.Parallel()
	c := &mockCleaner{err: errors.New("database is locked")}

	assert.NotPanics(t, func() { runCleanup(c, time.Hour) })
	assert.Equal(t, 1, c.callCount())
}

func TestStartCleanup_AgainstSQLite(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	require.NoError(t, st.AddDelivery(&DeliveryRecord{CellID: "old", Result: "sent", CreatedAt: time.Now().Add(-72 * time.Hour)}))
	require.NoError(t, st.AddDelivery(&DeliveryRecord{CellID: "new", Result: "sent"}))

	s, err := StartCleanup(st, 24*time.Hour, time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Shutdown() })

	require.Eventually(t, func() bool {
		got, err := st.ListDeliveries(DeliveryFilter{})
		return err == nil && len(got) == 1
	}, 2*time.Second, 10*time.Millisecond)
}
