package notify

import (
	"sync"
	"time"
)

// Handle cancels a scheduled callback. Cancel is idempotent and safe to call
// after the callback has started or finished.
type Handle interface {
	Cancel()
}

// Scheduler runs a callback once after a delay unless it is cancelled first.
type Scheduler interface {
	Schedule(delay time.Duration, fn func()) Handle
}

// TimerScheduler is the production Scheduler backed by time.AfterFunc.
type TimerScheduler struct{}

// Schedule arms a timer that calls fn on its own goroutine after delay.
func (TimerScheduler) Schedule(delay time.Duration, fn func()) Handle {
	h := &timerHandle{}
	h.timer = time.AfterFunc(delay, func() {
		h.mu.Lock()
		cancelled := h.cancelled
		h.mu.Unlock()
		if cancelled {
			return
		}
		fn()
	})
	return h
}

type timerHandle struct {
	timer *time.Timer

	mu        sync.Mutex
	cancelled bool
}

func (h *timerHandle) Cancel() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancelled {
		return
	}
	h.cancelled = true
	h.timer.Stop()
}
