package watcher

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/TeamTenuki/livewatch/monitor"
)

// Refresher runs a single refresh tick.
type Refresher interface {
	Refresh(c context.Context) monitor.Report
}

// Watcher watches streaming services for live streams.
type Watcher interface {
	// Watch starts a watcher's loop. This has to be called prior to receiving any values
	// from Source. Watch returns when c is done.
	Watch(c context.Context) error

	// Source returns a channel of tick reports. It is closed when Watch returns.
	Source() <-chan monitor.Report
}

var _ Watcher = &PeriodicWatcher{}

// PeriodicWatcher refreshes on a timer. Ticks never overlap: a tick that
// takes longer than the interval delays the next one.
type PeriodicWatcher struct {
	r           Refresher
	d           atomic.Int64
	tickTimeout atomic.Int64

	c     chan monitor.Report
	reset chan struct{}
	now   chan struct{}
}

// Periodic returns a watcher that refreshes with r every d. Every tick is
// cancelled after tickTimeout, zero means ticks are only bounded by Watch's context.
func Periodic(r Refresher, d, tickTimeout time.Duration) *PeriodicWatcher {
	p := &PeriodicWatcher{
		r:     r,
		c:     make(chan monitor.Report),
		reset: make(chan struct{}, 1),
		now:   make(chan struct{}, 1),
	}
	p.d.Store(int64(d))
	p.tickTimeout.Store(int64(tickTimeout))

	return p
}

func (p *PeriodicWatcher) Source() <-chan monitor.Report {
	return p.c
}

// Interval between ticks.
func (p *PeriodicWatcher) Interval() time.Duration {
	return time.Duration(p.d.Load())
}

// TickTimeout bounding every tick.
func (p *PeriodicWatcher) TickTimeout() time.Duration {
	return time.Duration(p.tickTimeout.Load())
}

// Reset changes the interval and the tick timeout. Both take effect after
// the current tick.
func (p *PeriodicWatcher) Reset(d, tickTimeout time.Duration) {
	p.d.Store(int64(d))
	p.tickTimeout.Store(int64(tickTimeout))

	select {
	case p.reset <- struct{}{}:
	default:
	}
}

// Now requests a tick ahead of the timer. Requests made while a tick is
// pending are merged.
func (p *PeriodicWatcher) Now() {
	select {
	case p.now <- struct{}{}:
	default:
	}
}

func (p *PeriodicWatcher) Watch(c context.Context) error {
	defer close(p.c)

	ticker := time.NewTicker(p.Interval())
	defer ticker.Stop()

	if !p.check(c) {
		return nil
	}

	for {
		select {
		case <-c.Done():
			return nil

		case <-p.reset:
			log.Printf("Refreshing every %s", p.Interval())
			ticker.Reset(p.Interval())

		case <-p.now:
			if !p.check(c) {
				return nil
			}
			ticker.Reset(p.Interval())

		case <-ticker.C:
			if !p.check(c) {
				return nil
			}
		}
	}
}

// check runs a tick and delivers its report. It returns false when c is done.
func (p *PeriodicWatcher) check(c context.Context) bool {
	tc, cancel := c, context.CancelFunc(func() {})
	if d := p.TickTimeout(); d > 0 {
		tc, cancel = context.WithTimeout(c, d)
	}
	report := p.r.Refresh(tc)
	cancel()

	if c.Err() != nil {
		return false
	}

	select {
	case p.c <- report:
		return true
	case <-c.Done():
		return false
	}
}
