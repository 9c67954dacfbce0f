package game

import "time"

// TimerHandle identifies one scheduled turn countdown. Handles only grow.
type TimerHandle uint64

// TurnTimer is the per-room turn countdown. It is owned by a Room and only touched
// with the room lock held; the fire callback runs on its own goroutine and must
// take the lock itself before looking at room state.
type TurnTimer struct {
	duration time.Duration
	fire     func(TimerHandle)

	current TimerHandle
	t       *time.Timer
}

// NewTurnTimer returns a stopped timer that calls fire with the handle of the
// countdown that elapsed.
func NewTurnTimer(d time.Duration, fire func(TimerHandle)) *TurnTimer {
	return &TurnTimer{duration: d, fire: fire}
}

// Start cancels any running countdown and schedules a new one.
func (tt *TurnTimer) Start() TimerHandle {
	tt.Stop()
	tt.current++
	h := tt.current
	tt.t = time.AfterFunc(tt.duration, func() { tt.fire(h) })
	return h
}

// Stop cancels the running countdown. A callback already in flight still runs and
// is expected to be rejected by Matches.
func (tt *TurnTimer) Stop() {
	if tt.t != nil {
		tt.t.Stop()
		tt.t = nil
	}
}

// Matches reports whether h is the live countdown.
func (tt *TurnTimer) Matches(h TimerHandle) bool {
	return tt.t != nil && h == tt.current
}

// Live reports whether a countdown is scheduled.
func (tt *TurnTimer) Live() bool {
	return tt.t != nil
}

// Current returns the handle of the most recent countdown.
func (tt *TurnTimer) Current() TimerHandle {
	return tt.current
}

func (tt *TurnTimer) Duration() time.Duration {
	return tt.duration
}
