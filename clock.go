package timeout

import "time"

// Clock is the scheduling primitive a Manager runs on.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
	// AfterFunc calls f once after d has elapsed. The returned Timer cancels
	// the call.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending AfterFunc registration.
type Timer interface {
	// Stop prevents the Timer from firing. It returns false if the timer
	// already fired or was stopped.
	Stop() bool
}

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// noTimer stands in for the registration of an infinite timer
type noTimer struct{}

func (noTimer) Stop() bool { return false }
