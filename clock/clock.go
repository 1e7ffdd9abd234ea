package clock

import (
	"sync"
	"time"
)

var (
	mu    sync.RWMutex
	clock Clock = systemClock{}
)

// Clock is a time source.
type Clock interface {
	NowUTC() time.Time
}

// NowUTC returns current time. The value is provided by time.Now
// unless the package clock is overriden with FixedClock.
func NowUTC() time.Time {
	mu.RLock()
	defer mu.RUnlock()

	return clock.NowUTC()
}

// Since returns the time difference between now (possibly overriden) and
// a given time t.
func Since(t time.Time) time.Duration {
	return NowUTC().Sub(t)
}

// OverrideClock allows to override the time source.
// Calling function with `nil' resets the time source to default (time.Now).
func OverrideClock(c Clock) {
	mu.Lock()
	defer mu.Unlock()

	if c == nil {
		clock = systemClock{}
	} else {
		clock = c
	}
}

// OverrideByFixed overrides current time source with FixedClock
// of specified time. Pointer to created FixedClock is returned.
func OverrideByFixed(t time.Time) *FixedClock {
	fixed := &FixedClock{t: t.UTC()}
	OverrideClock(fixed)

	return fixed
}

type systemClock struct{}

func (systemClock) NowUTC() time.Time {
	return time.Now().UTC()
}

// FixedClock returns the same instant until it is moved with Set or Add.
// Refresh ticks read it from many goroutines, so it is safe for concurrent use.
type FixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *FixedClock) NowUTC() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.t
}

// Set time to a specific value (this always resets passed in time to UTC).
func (c *FixedClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t.UTC()
	c.mu.Unlock()
}

// Add moves time forward by duration d. Negative d moves it backward.
func (c *FixedClock) Add(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}
