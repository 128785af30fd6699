package events

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_DeliversToAllListeners(t *testing.T) {
	t.Parallel()
	b := NewBus(2, 16)

	var (
		mu  sync.Mutex
		got []string
	)
	for _, name := range []string{"a", "b"} {
		b.Subscribe(func(e Event) {
			mu.Lock()
			got = append(got, name+":"+e.CellID)
			mu.Unlock()
		})
	}

	require.NoError(t, b.Publish(Event{CellID: "c1", EventType: TypeExecutionEnd}))
	b.Close()

	assert.ElementsMatch(t, []string{"a:c1", "b:c1"}, got)
}

func TestBus_CloseDrainsQueue(t *testing.T) {
	t.Parallel()
	b := NewBus(1, 64)

	var n atomic.Int32
	b.Subscribe(func(Event) {
		time.Sleep(time.Millisecond)
		n.Add(1)
	})

	for range 20 {
		require.NoError(t, b.Publish(Event{CellID: "c", EventType: TypeExecutionEnd}))
	}
	b.Close()

	assert.Equal(t, int32(20), n.Load())
}

func TestBus_PublishAfterClose(t *testing.T) {
	t.Parallel()
	b := NewBus(1, 1)
	b.Close()
	b.Close()

	assert.ErrorIs(t, b.Publish(Event{CellID: "c"}), ErrClosed)
}

func TestBus_BufferFull(t *testing.T) {
	t.Parallel()
	b := NewBus(1, 1)

	release := make(chan struct{})
	started := make(chan struct{}, 1)
	b.Subscribe(func(Event) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
	})

	require.NoError(t, b.Publish(Event{CellID: "first"}))
	<-started // worker is now blocked on the first event
	require.NoError(t, b.Publish(Event{CellID: "queued"}))

	assert.ErrorIs(t, b.Publish(Event{CellID: "dropped"}), ErrBufferFull)

	close(release)
	b.Close()
}

func TestBus_ListenerPanicDoesNotStopWorker(t *testing.T) {
	t.Parallel()
	b := NewBus(1, 4)

	var n atomic.Int32
	b.Subscribe(func(e Event) {
		if e.CellID == "bad" {
			panic("listener bug")
		}
		n.Add(1)
	})

	require.NoError(t, b.Publish(Event{CellID: "bad"}))
	require.NoError(t, b.Publish(Event{CellID: "good"}))
	b.Close()

	assert.Equal(t, int32(1), n.Load())
}

func TestBus_Defaults(t *testing.T) {
	t.Parallel()
	b := NewBus(0, 0)
	defer b.Close()

	assert.Equal(t, defaultBufferSize, cap(b.ch))
}

func TestEvent_JSON(t *testing.T) {
	t.Parallel()

	var e Event
	require.NoError(t, json.Unmarshal([]byte(`{"cell_id":"c1","event_type":"execution_end","success":false,"kernel_error":"ValueError"}`), &e))

	assert.Equal(t, "c1", e.CellID)
	assert.Equal(t, TypeExecutionEnd, e.EventType)
	assert.False(t, e.Success)
	require.NotNil(t, e.KernelError)
	assert.Equal(t, "ValueError", *e.KernelError)
}
