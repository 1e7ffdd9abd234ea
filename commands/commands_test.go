package commands_test

import (
	"context"
	"strings"
	"testing"

	"github.com/TeamTenuki/livewatch/commands"
	"github.com/TeamTenuki/livewatch/db"
	"github.com/TeamTenuki/livewatch/monitor"
	"github.com/TeamTenuki/livewatch/provider"
	"github.com/TeamTenuki/livewatch/stream"
	"github.com/TeamTenuki/livewatch/testutil"
)

func TestAddRemoveChannel(t *testing.T) {
	h, set, m, changes := setupHandler(t)
	c := context.Background()

	handle(t, h, c, m, "<@1> add fake FooBar")
	expectLastMessage(t, m, "Successfully added channel fake/foobar")

	if _, ok := set.Get(stream.NewIdentifier("fake", "foobar")); !ok {
		t.Errorf("Expected channel to be monitored")
	}

	handle(t, h, c, m, "<@1> add fake foobar")
	expectLastMessage(t, m, "Channel fake/foobar is already monitored")

	handle(t, h, c, m, "<@1> remove fake foobar")
	expectLastMessage(t, m, "Successfully removed channel fake/foobar")

	handle(t, h, c, m, "<@1> remove fake foobar")
	expectLastMessage(t, m, "Channel fake/foobar is not monitored")

	if *changes != 2 {
		t.Errorf("Expected 2 change notifications, got %d", *changes)
	}
}

func TestAddRequiresKnownProvider(t *testing.T) {
	h, _, m, _ := setupHandler(t)

	handle(t, h, context.Background(), m, "<@!1> add nope foo")
	expectLastMessage(t, m, "Command `add` requires a provider, one of fake")

	handle(t, h, context.Background(), m, "<@!1> add")
	expectLastMessage(t, m, "Command `add` requires a provider and a channel")
}

func TestMuteUnmute(t *testing.T) {
	h, set, m, _ := setupHandler(t)
	c := context.Background()
	id := stream.NewIdentifier("fake", "foo")

	handle(t, h, c, m, "<@1> mute fake foo")
	if !set.Excluded(id) {
		t.Errorf("Expected %s to be excluded", id)
	}

	handle(t, h, c, m, "<@1> unmute fake foo")
	if set.Excluded(id) {
		t.Errorf("Expected %s to be included", id)
	}
}

func TestListCommand(t *testing.T) {
	h, _, m, _ := setupHandler(t)
	c := context.Background()

	handle(t, h, c, m, "<@1> list")
	expectLastMessage(t, m, "Nobody is currently streaming :pensive:")
}

func TestUnsupportedOperationIsReported(t *testing.T) {
	h, _, m, _ := setupHandler(t)
	c := context.Background()

	handle(t, h, c, m, "<@1> top fake Pong")
	expectLastMessage(t, m, "Provider fake doesn't support top streams")

	handle(t, h, c, m, "<@1> vods fake foo")
	expectLastMessage(t, m, "Provider fake doesn't support vods")
}

func TestSpamForget(t *testing.T) {
	h, _, m, _ := setupHandler(t)
	c := testutil.SetupDB()

	handle(t, h, c, m, "<@1> spam <#42>")
	expectLastMessage(t, m, "Successfully added room <#42>")

	handle(t, h, c, m, "<@1> spam <#42>")
	expectLastMessage(t, m, "Failed to add channel <#42>: it is already added.")

	handle(t, h, c, m, "<@1> forget <#42>")
	expectLastMessage(t, m, "Successfully removed room <#42>")

	rooms, err := db.RoomsAll(c)
	if err != nil || len(rooms) != 0 {
		t.Errorf("Expected no rooms, got %v (%v)", rooms, err)
	}
}

func TestNotACommand(t *testing.T) {
	h, _, m, _ := setupHandler(t)

	handle(t, h, context.Background(), m, "hello there")

	if n := len(m.Room("room").Messages); n != 0 {
		t.Errorf("Expected no replies, got %d", n)
	}
}

//
// HELPERS
//

type stateT []stream.Snapshot

func (s stateT) Live() []stream.Snapshot {
	return s
}

func setupHandler(t *testing.T) (*commands.Handler, *monitor.Set, *testutil.Messenger, *int) {
	t.Helper()

	providers, err := provider.NewRegistry(testutil.NewProvider("fake"))
	if err != nil {
		t.Fatalf("Failed to create registry: %s", err)
	}

	set := monitor.New(monitor.Config{Providers: providers})

	changes := new(int)
	h := commands.NewHandler(stateT(nil), set, func() { *changes++ })

	return h, set, testutil.NewMessenger(), changes
}

func handle(t *testing.T, h *commands.Handler, c context.Context, m *testutil.Messenger, message string) {
	t.Helper()

	if err := h.Handle(c, "room", message, m); err != nil {
		t.Fatalf("Failed to handle %q: %s", message, err)
	}
}

func expectLastMessage(t *testing.T, m *testutil.Messenger, expected string) {
	t.Helper()

	messages := m.Room("room").Messages
	if len(messages) == 0 {
		t.Fatalf("Expected message %q, got none", expected)
	}

	if last := messages[len(messages)-1]; !strings.HasPrefix(last, expected) {
		t.Errorf("Expected message %q, got %q", expected, last)
	}
}
