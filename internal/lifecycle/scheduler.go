package lifecycle

import "time"

// Scheduler defers callbacks. The controller uses it to delay success
// notifications so the presentation layer renders the terminal state before
// dependent refreshes fire; injecting it keeps tests synchronous.
type Scheduler interface {
	Schedule(d time.Duration, fn func())
}

// TimerScheduler is the production scheduler backed by the runtime timer.
type TimerScheduler struct{}

func (TimerScheduler) Schedule(d time.Duration, fn func()) {
	time.AfterFunc(d, fn)
}

// ImmediateScheduler runs callbacks inline with no delay. Test fixture.
type ImmediateScheduler struct{}

func (ImmediateScheduler) Schedule(_ time.Duration, fn func()) {
	fn()
}
