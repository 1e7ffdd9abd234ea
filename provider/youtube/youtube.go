package youtube

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/TeamTenuki/livewatch/parallel"
	"github.com/TeamTenuki/livewatch/provider"
	"github.com/TeamTenuki/livewatch/resolve"
	"github.com/TeamTenuki/livewatch/stream"
)

// Name of the provider.
const Name = "youtube"

const (
	baseURL = "https://www.youtube.com/"

	// OfflineDescription is shown for channels without a live broadcast.
	OfflineDescription = "[offline youtube channel]"
)

// API fetches raw payloads from YouTube. *DataAPI satisfies this interface.
type API interface {
	LiveVideoIDs(c context.Context, channelID string) ([]string, error)
	Videos(c context.Context, ids []string) ([]videoT, error)
	Channels(c context.Context, ids []string) ([]channelT, error)
}

var _ API = &DataAPI{}

// Client queries YouTube. Channels are tracked by handle, while the live
// status endpoint takes a channel ID, so every query goes through the ids cache.
type Client struct {
	provider.Unsupported

	api  API
	ids  *resolve.Cache
	opts parallel.Options
}

var _ provider.Client = &Client{}

// NewClient returns a YouTube client. The ids cache maps channel handles to
// channel IDs, see DataAPI.ChannelID.
func NewClient(api API, ids *resolve.Cache, opts parallel.Options) *Client {
	return &Client{
		Unsupported: provider.Unsupported{Name: Name},
		api:         api,
		ids:         ids,
		opts:        opts,
	}
}

func (yc *Client) Capabilities() provider.Capabilities {
	return provider.Capabilities{
		Name:         Name,
		BaseURL:      baseURL,
		Chat:         true,
		VideoStreams: true,
	}
}

func (yc *Client) Identify(channel string) stream.Identifier {
	return stream.NewIdentifier(Name, channel)
}

// StreamURL takes a video ID. Channel handles and channel IDs link the channel page.
func (yc *Client) StreamURL(id string) string {
	switch {
	case strings.HasPrefix(id, "@"):
		return baseURL + id
	case isChannelID(id):
		return baseURL + "channel/" + id
	default:
		return baseURL + "watch?v=" + id
	}
}

// ChatURL takes a video ID. from_gaming=1 suppresses a banner at the top of the popout.
func (yc *Client) ChatURL(id string) (string, error) {
	return fmt.Sprintf("%slive_chat?v=%s&dark_theme=1&is_popout=1&from_gaming=1", baseURL, id), nil
}

func (yc *Client) RefreshOnline(c context.Context, ms []*stream.Model) (provider.Batch, error) {
	outcomes := parallel.RunAll(c, ms, yc.queryChannel, yc.opts)

	var (
		results   []stream.QueryResult
		transport []error
	)
	for _, o := range outcomes {
		if o.Err != nil {
			if errors.Is(o.Err, provider.ErrTransport) {
				transport = append(transport, o.Err)
			}
			results = append(results, stream.Errored(o.Item.Identifier(), o.Err))
			continue
		}
		results = append(results, o.Value...)
	}

	if len(outcomes) > 0 && len(transport) == len(outcomes) {
		return provider.Batch{}, fmt.Errorf("youtube: every channel query failed: %w", errors.Join(transport...))
	}

	return provider.Apply(ms, results), nil
}

func (yc *Client) queryChannel(c context.Context, m *stream.Model) ([]stream.QueryResult, error) {
	id := m.Identifier()

	channelID, err := yc.ids.Resolve(c, id.ChannelID)
	if err != nil {
		return nil, err
	}

	videoIDs, err := yc.api.LiveVideoIDs(c, channelID)
	if err != nil {
		return nil, err
	}

	// Only live broadcasts have video ids here.
	if len(videoIDs) == 0 {
		return []stream.QueryResult{stream.Missing(id)}, nil
	}

	if len(videoIDs) > maxIDs {
		videoIDs = videoIDs[:maxIDs]
	}

	videos, err := yc.api.Videos(c, videoIDs)
	if err != nil {
		return nil, err
	}

	var results []stream.QueryResult
	for _, v := range videos {
		d, ok := details(&v)
		if !ok {
			continue
		}
		results = append(results, stream.Succeeded(id, d))
	}

	if len(results) == 0 {
		return []stream.QueryResult{stream.Missing(id)}, nil
	}

	return results, nil
}

// RefreshOffline fetches channel snippets, as offline channels have no
// broadcast to take the channel title from.
func (yc *Client) RefreshOffline(c context.Context, ms []*stream.Model) error {
	byChannelID := make(map[string][]*stream.Model, len(ms))
	var errs []error

	for _, m := range ms {
		m.SetMetadata(stream.Details{Description: OfflineDescription})

		channelID, err := yc.ids.Resolve(c, m.Identifier().ChannelID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		byChannelID[channelID] = append(byChannelID[channelID], m)
	}

	ids := make([]string, 0, len(byChannelID))
	for id := range byChannelID {
		ids = append(ids, id)
	}

	var chunks [][]string
	for len(ids) > 0 {
		end := min(maxIDs, len(ids))
		chunks = append(chunks, ids[:end])
		ids = ids[end:]
	}

	outcomes := parallel.RunAll(c, chunks, yc.api.Channels, yc.opts)
	for _, o := range outcomes {
		if o.Err != nil {
			errs = append(errs, o.Err)
			continue
		}

		for _, ch := range o.Value {
			for _, m := range byChannelID[ch.ID] {
				m.SetMetadata(stream.Details{
					DisplayName:  ch.Snippet.Title,
					ThumbnailURL: ch.Snippet.Thumbnails.Default.URL,
				})
			}
		}
	}

	return errors.Join(errs...)
}

func details(v *videoT) (stream.Details, bool) {
	if v.LiveStreamingDetails == nil || v.Snippet.LiveBroadcastContent != "live" {
		return stream.Details{}, false
	}

	startedAt, err := time.Parse(time.RFC3339, v.LiveStreamingDetails.ActualStartTime)
	if err != nil {
		return stream.Details{}, false
	}

	viewers, _ := strconv.ParseInt(v.LiveStreamingDetails.ConcurrentViewers, 10, 64)

	thumbnail := v.Snippet.Thumbnails.High.URL
	if thumbnail == "" {
		thumbnail = v.Snippet.Thumbnails.Medium.URL
	}

	return stream.Details{
		ID:           v.ID,
		DisplayName:  v.Snippet.ChannelTitle,
		Description:  v.Snippet.Title,
		Viewers:      viewers,
		StartTime:    startedAt.In(time.UTC),
		ThumbnailURL: thumbnail,
		Language:     v.Snippet.DefaultLanguage,
	}, true
}
