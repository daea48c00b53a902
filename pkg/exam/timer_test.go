package exam

import (
	"testing"
	"time"
)

func TestTimeoutTimerCancelPreventsFiring(t *testing.T) {
	fired := make(chan struct{}, 1)
	timer := startTimeoutTimer(10*time.Millisecond, func() {
		fired <- struct{}{}
	})
	timer.Cancel()

	select {
	case <-fired:
		t.Fatal("cancelled timer must not fire")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestTimeoutTimerCancelIsIdempotent(t *testing.T) {
	timer := startTimeoutTimer(time.Hour, func() {})
	timer.Cancel()
	timer.Cancel()

	var nilTimer *timeoutTimer
	nilTimer.Cancel() // must not panic
}

func TestTimeoutTimerFires(t *testing.T) {
	fired := make(chan struct{}, 1)
	startTimeoutTimer(5*time.Millisecond, func() {
		fired <- struct{}{}
	})

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}
}
