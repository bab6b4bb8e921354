package timeout

import (
	"errors"
	"fmt"
)

// Manager errors.
var (
	ErrAlreadyRunning  = errors.New("timer already running")
	ErrNotRunning      = errors.New("no timer running")
	ErrInvalidInterval = errors.New("invalid timer interval")
)

// AlreadyRunningError is returned by Start while another timer is active.
type AlreadyRunningError struct {
	Manager ManagerID
	Timer   TimerID // the in-flight timer
}

func (e *AlreadyRunningError) Error() string {
	return fmt.Sprintf("manager %s: another timer is already running: %s", e.Manager, e.Timer)
}

func (e *AlreadyRunningError) Unwrap() error {
	return ErrAlreadyRunning
}

// NotRunningError is returned by Stop when no timer is active.
type NotRunningError struct {
	Manager ManagerID
}

func (e *NotRunningError) Error() string {
	return fmt.Sprintf("manager %s: no timer is running to stop", e.Manager)
}

func (e *NotRunningError) Unwrap() error {
	return ErrNotRunning
}
