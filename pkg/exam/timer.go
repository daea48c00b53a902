package exam

import (
	"sync"
	"time"
)

// timeoutTimer wraps time.AfterFunc with an idempotent cancel, so a fired
// timer that lost the race with a normal completion stays a no-op.
type timeoutTimer struct {
	mu        sync.Mutex
	timer     *time.Timer
	cancelled bool
}

func startTimeoutTimer(d time.Duration, fn func()) *timeoutTimer {
	t := &timeoutTimer{}
	t.timer = time.AfterFunc(d, func() {
		t.mu.Lock()
		cancelled := t.cancelled
		t.mu.Unlock()
		if !cancelled {
			fn()
		}
	})
	return t
}

func (t *timeoutTimer) Cancel() {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.cancelled = true
	t.mu.Unlock()
	t.timer.Stop()
}
