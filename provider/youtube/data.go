package youtube

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/TeamTenuki/livewatch/provider"
)

// DataURL is the base URL of the YouTube Data API.
const DataURL = "https://www.googleapis.com/youtube/v3/"

// maxIDs is the Data API limit of ids in a single list request.
const maxIDs = 50

// DataAPI is a narrow client of the YouTube Data API.
type DataAPI struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

func NewDataAPI(apiKey string) *DataAPI {
	return &DataAPI{
		BaseURL: DataURL,
		APIKey:  apiKey,
		HTTP:    provider.NewHTTPClient(),
	}
}

func (d *DataAPI) get(c context.Context, path string, q url.Values, out any) error {
	if d.APIKey == "" {
		return fmt.Errorf("youtube: missing API key")
	}
	q.Set("key", d.APIKey)

	return provider.GetJSON(c, d.HTTP, d.BaseURL+path+"?"+q.Encode(), nil, out)
}

// ChannelID resolves a channel handle (or a legacy user name) to a channel ID.
func (d *DataAPI) ChannelID(c context.Context, name string) (string, error) {
	if isChannelID(name) {
		return name, nil
	}

	for _, param := range []string{"forHandle", "forUsername"} {
		q := url.Values{}
		q.Set("part", "id")
		q.Set(param, name)

		var resp struct {
			Items []struct {
				ID string `json:"id"`
			} `json:"items"`
		}
		if err := d.get(c, "channels", q, &resp); err != nil {
			return "", err
		}

		if len(resp.Items) > 0 && resp.Items[0].ID != "" {
			return resp.Items[0].ID, nil
		}
	}

	return "", fmt.Errorf("youtube: no channel named %q", name)
}

// LiveVideoIDs returns ids of videos the channel is broadcasting right now.
func (d *DataAPI) LiveVideoIDs(c context.Context, channelID string) ([]string, error) {
	q := url.Values{}
	q.Set("part", "id")
	q.Set("channelId", channelID)
	q.Set("eventType", "live")
	q.Set("type", "video")

	var resp struct {
		Items []struct {
			ID struct {
				VideoID string `json:"videoId"`
			} `json:"id"`
		} `json:"items"`
	}
	if err := d.get(c, "search", q, &resp); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(resp.Items))
	for _, it := range resp.Items {
		if it.ID.VideoID != "" {
			ids = append(ids, it.ID.VideoID)
		}
	}

	return ids, nil
}

// Videos returns snippets and live details of the given videos.
func (d *DataAPI) Videos(c context.Context, ids []string) ([]videoT, error) {
	if len(ids) > maxIDs {
		return nil, fmt.Errorf("youtube: at most %d videos per request, got %d", maxIDs, len(ids))
	}

	q := url.Values{}
	q.Set("part", "snippet,liveStreamingDetails")
	q.Set("id", strings.Join(ids, ","))

	var resp struct {
		Items []videoT `json:"items"`
	}
	if err := d.get(c, "videos", q, &resp); err != nil {
		return nil, err
	}

	return resp.Items, nil
}

// Channels returns snippets of the given channels.
func (d *DataAPI) Channels(c context.Context, ids []string) ([]channelT, error) {
	if len(ids) > maxIDs {
		return nil, fmt.Errorf("youtube: at most %d channels per request, got %d", maxIDs, len(ids))
	}

	q := url.Values{}
	q.Set("part", "snippet")
	q.Set("id", strings.Join(ids, ","))

	var resp struct {
		Items []channelT `json:"items"`
	}
	if err := d.get(c, "channels", q, &resp); err != nil {
		return nil, err
	}

	return resp.Items, nil
}

func isChannelID(s string) bool {
	return strings.HasPrefix(s, "UC") && len(s) == 24
}

type thumbnailT struct {
	URL string `json:"url"`
}

type videoT struct {
	ID      string `json:"id"`
	Snippet struct {
		ChannelID            string `json:"channelId"`
		ChannelTitle         string `json:"channelTitle"`
		Title                string `json:"title"`
		LiveBroadcastContent string `json:"liveBroadcastContent"`
		DefaultLanguage      string `json:"defaultLanguage"`
		Thumbnails           struct {
			Medium thumbnailT `json:"medium"`
			High   thumbnailT `json:"high"`
		} `json:"thumbnails"`
	} `json:"snippet"`
	LiveStreamingDetails *struct {
		ActualStartTime   string `json:"actualStartTime"`
		ConcurrentViewers string `json:"concurrentViewers"`
	} `json:"liveStreamingDetails"`
}

type channelT struct {
	ID      string `json:"id"`
	Snippet struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Thumbnails  struct {
			Default thumbnailT `json:"default"`
		} `json:"thumbnails"`
	} `json:"snippet"`
}
