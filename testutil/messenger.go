package testutil

import (
	"context"
	"sync"

	"github.com/TeamTenuki/livewatch/messenger"
	"github.com/TeamTenuki/livewatch/stream"
)

type MessengerStore struct {
	Streams  []*stream.Snapshot
	Lists    []List
	Messages []string
}

// List is a stream list sent with MessageStreamList.
type List struct {
	Title   string
	Streams []stream.Snapshot
}

var _ messenger.Messenger = &Messenger{}

type Messenger struct {
	mu      sync.Mutex
	rooms   map[string]MessengerStore
	awaiter chan struct{}
}

func NewMessenger() *Messenger {
	return &Messenger{
		rooms:   make(map[string]MessengerStore),
		awaiter: make(chan struct{}, 1000),
	}
}

func (r *Messenger) MessageStream(c context.Context, roomID string, s *stream.Snapshot) error {
	r.mu.Lock()
	store := r.rooms[roomID]
	store.Streams = append(store.Streams, s)
	r.rooms[roomID] = store
	r.mu.Unlock()

	r.awaiter <- struct{}{}

	return nil
}

func (r *Messenger) MessageStreamList(c context.Context, roomID, title string, ss []stream.Snapshot) error {
	r.mu.Lock()
	store := r.rooms[roomID]
	store.Lists = append(store.Lists, List{Title: title, Streams: ss})
	r.rooms[roomID] = store
	r.mu.Unlock()

	r.awaiter <- struct{}{}

	return nil
}

func (r *Messenger) MessageText(c context.Context, roomID string, content string) error {
	r.mu.Lock()
	store := r.rooms[roomID]
	store.Messages = append(store.Messages, content)
	r.rooms[roomID] = store
	r.mu.Unlock()

	r.awaiter <- struct{}{}

	return nil
}

// Room returns everything sent to a room so far.
func (r *Messenger) Room(roomID string) MessengerStore {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.rooms[roomID]
}

func (r *Messenger) AwaitReport() {
	<-r.awaiter
}
