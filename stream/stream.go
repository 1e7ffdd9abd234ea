package stream

import (
	"fmt"
	"strings"
	"time"
)

// NotStarted is the start time of a stream that is not live.
var NotStarted = time.Time{}

// Identifier is a key of a channel on a given service. Two identifiers are equal
// when both the provider and the channel ID are equal, so it is usable as a map key.
type Identifier struct {
	// Provider is a name of a service owning the channel.
	Provider string `db:"provider"`

	// ChannelID is a service-specific channel identifier.
	ChannelID string `db:"channel_id"`
}

// NewIdentifier returns an identifier with the channel ID kept as is.
func NewIdentifier(provider, channelID string) Identifier {
	return Identifier{Provider: provider, ChannelID: strings.TrimSpace(channelID)}
}

// NewFoldedIdentifier returns an identifier with a lower-cased channel ID.
// Services treating channel names case-insensitively construct identifiers with it.
func NewFoldedIdentifier(provider, channelID string) Identifier {
	return Identifier{Provider: provider, ChannelID: strings.ToLower(strings.TrimSpace(channelID))}
}

func (id Identifier) String() string {
	return fmt.Sprintf("%s/%s", id.Provider, id.ChannelID)
}

// Less orders identifiers by provider, then by channel.
func (id Identifier) Less(other Identifier) bool {
	if id.Provider != other.Provider {
		return id.Provider < other.Provider
	}

	return id.ChannelID < other.ChannelID
}

// Channel is a monitored channel as it is persisted between runs.
type Channel struct {
	Identifier

	// DisplayName last known for the channel. May be empty.
	DisplayName string `db:"display_name"`
}

// Details is a group of stream fields that a refresh writes together.
// Depending on the service, not all fields may be filled with reasonable values.
type Details struct {
	// ID is a unique identifier of this stream (or channel) on a given service.
	ID string

	// DisplayName of the streamer.
	DisplayName string

	// Description is the stream title.
	Description string

	// Game currently being streamed.
	Game string

	// Viewers watching right now.
	Viewers int64

	// StartTime is a date/time of this stream going live.
	StartTime time.Time

	// IsPartner tells whether the channel is partnered with the service.
	IsPartner bool

	// ThumbnailURL of this stream.
	ThumbnailURL string

	// Language of the broadcast.
	Language string
}

// Failure is a record of a channel whose query failed during a refresh.
type Failure struct {
	Identifier Identifier
	Err        error
}

func (f Failure) Error() string {
	return fmt.Sprintf("query for %s failed: %s", f.Identifier, f.Err)
}

func (f Failure) Unwrap() error {
	return f.Err
}
