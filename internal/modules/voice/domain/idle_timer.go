package domain

import (
	"sync"
	"time"
)

// IdleTimer calls onIdle once no activity has been reported for the timeout.
// It sits beside a connection rather than wrapping it; owners report activity
// with Touch.
type IdleTimer struct {
	mu           sync.Mutex
	timeout      time.Duration
	timer        *time.Timer
	lastActivity time.Time
	done         bool
	onIdle       func()
}

// NewIdleTimer creates an IdleTimer and starts the idle window immediately.
func NewIdleTimer(timeout time.Duration, onIdle func()) *IdleTimer {
	t := &IdleTimer{
		timeout:      timeout,
		lastActivity: time.Now(),
		onIdle:       onIdle,
	}
	t.timer = time.AfterFunc(timeout, t.fire)
	return t
}

// Touch records activity and restarts the idle window.
// It has no effect once the timer has fired or been stopped.
func (t *IdleTimer) Touch() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return
	}
	t.lastActivity = time.Now()
	t.timer.Reset(t.timeout)
}

// Stop prevents the timer from firing.
// Returns false if the timer had already fired or been stopped.
func (t *IdleTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return false
	}
	t.done = true
	t.timer.Stop()
	return true
}

// LastActivity returns the time of the most recent Touch, or the creation time.
func (t *IdleTimer) LastActivity() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastActivity
}

// Timeout returns the configured idle timeout.
func (t *IdleTimer) Timeout() time.Duration {
	return t.timeout
}

func (t *IdleTimer) fire() {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return
	}

	// A Touch may have raced with this callback; re-arm for the remainder.
	if remaining := t.timeout - time.Since(t.lastActivity); remaining > 0 {
		t.timer.Reset(remaining)
		t.mu.Unlock()
		return
	}

	t.done = true
	t.mu.Unlock()

	t.onIdle()
}
