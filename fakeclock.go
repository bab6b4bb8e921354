package timeout

import (
	"sync"
	"time"
)

// FakeClock is a virtual Clock for tests. Time only moves through Advance
// and RunAll, and due callbacks run synchronously on the caller's goroutine
// in deadline order.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	seq     uint64
	pending []*fakeTimer
}

type fakeTimer struct {
	clock *FakeClock
	at    time.Time
	seq   uint64
	fn    func()
}

// NewFakeClock creates a FakeClock reading start.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

// Now returns the virtual time
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AfterFunc registers f to run once the virtual time reaches Now()+d
func (c *FakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	t := &fakeTimer{
		clock: c,
		at:    c.now.Add(d),
		seq:   c.seq,
		fn:    f,
	}
	c.pending = append(c.pending, t)
	return t
}

// Pending returns the number of registered callbacks that have not fired
func (c *FakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Advance moves the virtual time forward by d, firing every callback that
// falls due on the way. Callbacks registered while advancing fire too if
// they fall due before the target time.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		t := c.popDue(target)
		if t == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.now = t.at
		c.mu.Unlock()

		t.fn()
	}
}

// RunAll fires pending callbacks in deadline order until none is left,
// moving the virtual time to each deadline.
func (c *FakeClock) RunAll() {
	for {
		c.mu.Lock()
		if len(c.pending) == 0 {
			c.mu.Unlock()
			return
		}
		t := c.popDue(c.pending[c.earliest()].at)
		if t.at.After(c.now) {
			c.now = t.at
		}
		c.mu.Unlock()

		t.fn()
	}
}

// earliest returns the index of the next callback due. Callers hold mu and
// ensure pending is not empty.
func (c *FakeClock) earliest() int {
	idx := 0
	for i, t := range c.pending {
		next := c.pending[idx]
		if t.at.Before(next.at) || (t.at.Equal(next.at) && t.seq < next.seq) {
			idx = i
		}
	}
	return idx
}

// popDue removes and returns the next callback due at or before target
func (c *FakeClock) popDue(target time.Time) *fakeTimer {
	if len(c.pending) == 0 {
		return nil
	}
	idx := c.earliest()
	t := c.pending[idx]
	if t.at.After(target) {
		return nil
	}
	c.pending = append(c.pending[:idx], c.pending[idx+1:]...)
	return t
}

func (t *fakeTimer) Stop() bool {
	c := t.clock
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, p := range c.pending {
		if p == t {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			return true
		}
	}
	return false
}
