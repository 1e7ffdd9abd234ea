package provider

import (
	"context"

	"github.com/TeamTenuki/livewatch/stream"
)

// Capabilities advertise what a provider supports. Callers check a flag before
// invoking the matching operation, see ChatURL, TopStreams, KnownGames, Vods
// and UserFollows in this package.
type Capabilities struct {
	// Name of the provider. It is the Provider part of every stream.Identifier
	// owned by the client.
	Name string

	// BaseURL of the service, always ending with a slash.
	BaseURL string

	Chat        bool
	VodViewer   bool
	TopStreams  bool
	UserFollows bool

	// VodTypes lists the values accepted as stream.VodQuery.Type.
	VodTypes []string

	// VideoStreams is set by services where every broadcast is a video of its
	// own. StreamURL and ChatURL of such services take a stream ID.
	VideoStreams bool
}

// Batch is a result of refreshing online streams.
type Batch struct {
	// Offline are the streams that did not come back as live.
	Offline []*stream.Model

	// Failures are the streams whose query failed. They are neither live nor
	// offline: their last known state is kept.
	Failures []stream.Failure
}

// Client knows how to query a single streaming service.
type Client interface {
	Capabilities() Capabilities

	// Identify constructs an identifier of a channel on this service,
	// normalising the name the way the service compares names.
	Identify(channel string) stream.Identifier

	// StreamURL builds a URL of a stream page.
	StreamURL(id string) string

	// ChatURL builds a URL of a stream chat. Fails if Chat isn't supported.
	ChatURL(id string) (string, error)

	// RefreshOnline queries the given streams and applies fresh details to the live
	// ones in place. Failures of individual channels are reported in the Batch;
	// an error is returned only when the whole service is unreachable.
	// Implementations must not retain the models after returning.
	RefreshOnline(c context.Context, ms []*stream.Model) (Batch, error)

	// RefreshOffline updates metadata of offline streams in place. Some services
	// expose offline channel details through a different endpoint than live streams.
	RefreshOffline(c context.Context, ms []*stream.Model) error

	TopStreams(c context.Context, q stream.TopStreamQuery) ([]stream.Snapshot, error)
	KnownGames(c context.Context, filter string) ([]stream.Game, error)
	Vods(c context.Context, q stream.VodQuery) ([]stream.Vod, error)
	UserFollows(c context.Context, user string) ([]stream.Identifier, error)
}

// Unsupported implements every optional operation of Client by failing.
// Providers embed it and override what they support.
type Unsupported struct {
	Name string
}

func (u Unsupported) ChatURL(id string) (string, error) {
	return "", unsupported(u.Name, "chat", ErrUnsupportedCapability)
}

func (u Unsupported) RefreshOffline(c context.Context, ms []*stream.Model) error {
	return nil
}

func (u Unsupported) TopStreams(c context.Context, q stream.TopStreamQuery) ([]stream.Snapshot, error) {
	return nil, unsupported(u.Name, "top streams", ErrUnsupportedOperation)
}

func (u Unsupported) KnownGames(c context.Context, filter string) ([]stream.Game, error) {
	return nil, unsupported(u.Name, "known games", ErrUnsupportedOperation)
}

func (u Unsupported) Vods(c context.Context, q stream.VodQuery) ([]stream.Vod, error) {
	return nil, unsupported(u.Name, "vods", ErrUnsupportedOperation)
}

func (u Unsupported) UserFollows(c context.Context, user string) ([]stream.Identifier, error) {
	return nil, unsupported(u.Name, "user follows", ErrUnsupportedOperation)
}

// WatchURL links to a live stream, or to the channel page of an offline one.
func WatchURL(p Client, s *stream.Snapshot) string {
	if p.Capabilities().VideoStreams && s.Live() && s.ID != "" {
		return p.StreamURL(s.ID)
	}

	return p.StreamURL(s.Identifier.ChannelID)
}

// ChatURL checks the Chat capability before building a chat URL.
func ChatURL(p Client, id string) (string, error) {
	caps := p.Capabilities()
	if !caps.Chat {
		return "", unsupported(caps.Name, "chat", ErrUnsupportedCapability)
	}

	return p.ChatURL(id)
}

// TopStreams checks the TopStreams capability before querying.
func TopStreams(c context.Context, p Client, q stream.TopStreamQuery) ([]stream.Snapshot, error) {
	caps := p.Capabilities()
	if !caps.TopStreams {
		return nil, unsupported(caps.Name, "top streams", ErrUnsupportedOperation)
	}

	return p.TopStreams(c, q)
}

// KnownGames is guarded by the TopStreams capability as game names only
// serve to filter top streams.
func KnownGames(c context.Context, p Client, filter string) ([]stream.Game, error) {
	caps := p.Capabilities()
	if !caps.TopStreams {
		return nil, unsupported(caps.Name, "known games", ErrUnsupportedOperation)
	}

	return p.KnownGames(c, filter)
}

// Vods checks the VodViewer capability and the requested type before querying.
func Vods(c context.Context, p Client, q stream.VodQuery) ([]stream.Vod, error) {
	caps := p.Capabilities()
	if !caps.VodViewer {
		return nil, unsupported(caps.Name, "vods", ErrUnsupportedOperation)
	}

	if q.Type != "" && !contains(caps.VodTypes, q.Type) {
		return nil, unsupported(caps.Name, "vods of type "+q.Type, ErrUnsupportedOperation)
	}

	return p.Vods(c, q)
}

// UserFollows checks the UserFollows capability before querying.
func UserFollows(c context.Context, p Client, user string) ([]stream.Identifier, error) {
	caps := p.Capabilities()
	if !caps.UserFollows {
		return nil, unsupported(caps.Name, "user follows", ErrUnsupportedOperation)
	}

	return p.UserFollows(c, user)
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}

	return false
}
