package discord

import (
	"testing"
	"time"

	"github.com/TeamTenuki/livewatch/parallel"
	"github.com/TeamTenuki/livewatch/provider"
	"github.com/TeamTenuki/livewatch/provider/twitch"
	"github.com/TeamTenuki/livewatch/provider/youtube"
	"github.com/TeamTenuki/livewatch/stream"
)

func TestStreamEmbed(t *testing.T) {
	m := newTestMessenger(t)

	s := stream.Snapshot{
		Details: stream.Details{
			ID:           "s1",
			DisplayName:  "Foo_Bar",
			Description:  "Speedrunning pong",
			Game:         "Pong",
			Viewers:      12,
			StartTime:    time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC),
			ThumbnailURL: "https://thumb/foo.jpg",
		},
		Identifier: stream.NewFoldedIdentifier(twitch.Name, "foo_bar"),
		State:      stream.Live,
	}

	e := m.streamEmbed(&s)

	if e.Title != `Foo\_Bar Went Live!` {
		t.Errorf("Unexpected title %q", e.Title)
	}

	if e.Description != "[Speedrunning pong](https://www.twitch.tv/foo_bar)" {
		t.Errorf("Unexpected description %q", e.Description)
	}

	if e.Author.Name != "Twitch" || e.Author.URL != "https://www.twitch.tv/foo_bar" {
		t.Errorf("Unexpected author %#v", e.Author)
	}

	if e.Timestamp != "2026-10-16T10:00:00Z" {
		t.Errorf("Unexpected timestamp %q", e.Timestamp)
	}

	if e.Image == nil {
		t.Errorf("Expected a thumbnail image")
	}

	if len(e.Fields) != 2 || e.Fields[0].Value != "Pong" || e.Fields[1].Value != "12" {
		t.Errorf("Unexpected fields %v", e.Fields)
	}
}

func TestStreamEmbedLinksYouTubeVideo(t *testing.T) {
	m := newTestMessenger(t)

	s := stream.Snapshot{
		Details:    stream.Details{ID: "v1", DisplayName: "Live Channel"},
		Identifier: stream.NewIdentifier(youtube.Name, "@live"),
		State:      stream.Live,
	}

	e := m.streamEmbed(&s)

	if e.Title != "Live Channel (@live) Went Live!" {
		t.Errorf("Unexpected title %q", e.Title)
	}

	if e.Description != "[](https://www.youtube.com/watch?v=v1)" {
		t.Errorf("Unexpected description %q", e.Description)
	}

	if e.Image != nil || e.Timestamp != "" {
		t.Errorf("Expected no image and no timestamp without data")
	}
}

func TestListEmbedIsCapped(t *testing.T) {
	m := newTestMessenger(t)

	ss := make([]stream.Snapshot, maxEmbedFields+5)
	for i := range ss {
		ss[i] = stream.Snapshot{Identifier: stream.NewIdentifier(twitch.Name, "foo"), State: stream.Live}
	}

	e := m.listEmbed("Currently Live", ss)

	if len(e.Fields) != maxEmbedFields {
		t.Errorf("Expected %d fields, got %d", maxEmbedFields, len(e.Fields))
	}

	if e.Fields[0].Value != "[-](https://www.twitch.tv/foo)" {
		t.Errorf("Unexpected field %q", e.Fields[0].Value)
	}
}

//
// HELPERS
//

func newTestMessenger(t *testing.T) *Messenger {
	t.Helper()

	providers, err := provider.NewRegistry(
		twitch.NewClient(nil, nil, parallel.Options{}),
		youtube.NewClient(nil, nil, parallel.Options{}),
	)
	if err != nil {
		t.Fatalf("Failed to create registry: %s", err)
	}

	return NewMessenger(nil, providers).(*Messenger)
}
