package testutil

import (
	"context"

	"github.com/TeamTenuki/livewatch/monitor"
	"github.com/TeamTenuki/livewatch/watcher"
)

var _ watcher.Watcher = &Watcher{}

// Watcher delivers reports handed to Send.
type Watcher struct {
	c chan monitor.Report
}

func NewWatcher() *Watcher {
	return &Watcher{
		c: make(chan monitor.Report),
	}
}

func (p *Watcher) Watch(c context.Context) error {
	return nil
}

func (p *Watcher) Source() <-chan monitor.Report {
	return p.c
}

func (p *Watcher) Send(r monitor.Report) {
	p.c <- r
}

func (p *Watcher) Close() error {
	close(p.c)

	return nil
}
