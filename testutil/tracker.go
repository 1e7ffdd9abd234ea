package testutil

import (
	"context"
	"sync"

	"github.com/TeamTenuki/livewatch/db"
	"github.com/TeamTenuki/livewatch/monitor"
	"github.com/TeamTenuki/livewatch/tracker"
)

// Tracker runs a tracker.Tracker over an in-memory DB with a single room, "room1".
type Tracker struct {
	C       context.Context
	Tracker *tracker.Tracker

	w  *Watcher
	m  *Messenger
	wg *sync.WaitGroup
}

func NewTracker() *Tracker {
	wg := &sync.WaitGroup{}
	wg.Add(1)

	w := NewWatcher()
	m := NewMessenger()
	c := SetupDB()

	if err := db.RoomAdd(c, "room1"); err != nil {
		panic(err)
	}

	t := tracker.NewTracker(w, m)
	go func() {
		t.Track(c)
		wg.Done()
	}()

	return &Tracker{
		C:       c,
		Tracker: t,
		w:       w,
		m:       m,
		wg:      wg,
	}
}

func (t *Tracker) AwaitReport() {
	t.m.AwaitReport()
}

// Send hands a report to the tracker. Once Send returns the previous report
// is fully processed.
func (t *Tracker) Send(r monitor.Report) {
	t.w.Send(r)
}

func (t *Tracker) CloseAndWait() {
	t.w.Close()
	t.wg.Wait()
}

func (t *Tracker) Room(roomID string) MessengerStore {
	return t.m.Room(roomID)
}

// SetupDB initialises a fresh in-memory DB and returns a context carrying it.
func SetupDB() context.Context {
	db.MustInit(":memory:")

	c := db.NewContext(context.Background())
	db.SetupDB(c)

	return c
}
