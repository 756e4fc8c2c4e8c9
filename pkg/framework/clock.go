package framework

import (
	"sync"
	"time"
)

// Clock provides the time for polling and timeout logic.
type Clock interface {
	// Now gets the current time.
	Now() time.Time
	// After waits for the duration to elapse and then sends the current
	// time on the returned channel.
	After(time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// SystemClock is the Clock backed by package time.
var SystemClock Clock = systemClock{}

// ClockOr returns c, or SystemClock if c is nil.
func ClockOr(c Clock) Clock {
	if c == nil {
		return SystemClock
	}
	return c
}

// FakeClock is a manually driven Clock.
// After advances the clock by the requested duration and fires immediately,
// so waits complete without real delay.
type FakeClock struct {
	now  time.Time
	lock sync.Mutex
}

// NewFakeClock creates a FakeClock starting at t.
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t}
}

// Now implements Clock.
func (c *FakeClock) Now() time.Time {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.now
}

// After implements Clock.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- c.Advance(d)
	return ch
}

// Advance moves the clock forward and returns the new time.
func (c *FakeClock) Advance(d time.Duration) time.Time {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.now = c.now.Add(d)
	return c.now
}
