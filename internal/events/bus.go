// Package events carries cell execution events from the host into nbnotify.
// Events are queued on a buffered channel and handed to listeners by a
// small worker pool.
package events

import (
	"errors"
	"log/slog"
	"sync"
)

const (
	defaultWorkers    = 2
	defaultBufferSize = 256
)

// ErrBufferFull is returned by Publish when the queue cannot take the event.
var ErrBufferFull = errors.New("event buffer full")

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("event bus closed")

// Bus is an in-memory event queue fed by Publish.
type Bus struct {
	ch        chan Event
	listeners []Listener
	mu        sync.RWMutex
	wg        sync.WaitGroup
	closed    bool
}

// NewBus creates a Bus and starts its workers. Non-positive arguments fall
// back to the defaults.
func NewBus(workers, buffer int) *Bus {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if buffer <= 0 {
		buffer = defaultBufferSize
	}
	b := &Bus{ch: make(chan Event, buffer)}
	for i := 0; i < workers; i++ {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			for e := range b.ch {
				b.dispatch(e)
			}
		}()
	}
	return b
}

// Subscribe adds a listener for all future events.
func (b *Bus) Subscribe(l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, l)
}

// Publish enqueues an event without blocking.
func (b *Bus) Publish(e Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrClosed
	}
	select {
	case b.ch <- e:
		return nil
	default:
		slog.Warn("event bus full, dropping event", "cell_id", e.CellID, "event_type", e.EventType)
		return ErrBufferFull
	}
}

// Close stops accepting events and waits until queued ones are handled.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.ch)
	b.mu.Unlock()

	b.wg.Wait()
}

func (b *Bus) dispatch(e Event) {
	b.mu.RLock()
	listeners := make([]Listener, len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.RUnlock()

	for _, l := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("event listener panicked", "cell_id", e.CellID, "panic", r)
				}
			}()
			l(e)
		}()
	}
}
