package twitch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/TeamTenuki/livewatch/provider"
)

const (
	// HelixURL is the base URL of the Twitch API.
	HelixURL = "https://api.twitch.tv/helix/"

	// TokenURL issues app access tokens.
	TokenURL = "https://id.twitch.tv/oauth2/token"

	// maxPerRequest is the Helix limit of ids/logins and of page size.
	maxPerRequest = 100
)

// Helix is a narrow client of the Twitch API: it fetches raw payloads and
// leaves their interpretation to Client.
type Helix struct {
	BaseURL  string
	ClientID string
	HTTP     *http.Client
}

// NewHelix returns an API client authenticated with an app access token
// obtained through the client credentials flow.
func NewHelix(clientID, clientSecret string) *Helix {
	return newHelix(HelixURL, TokenURL, clientID, clientSecret)
}

func newHelix(baseURL, tokenURL, clientID, clientSecret string) *Helix {
	cfg := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
		AuthStyle:    oauth2.AuthStyleInParams,
	}

	c := context.WithValue(context.Background(), oauth2.HTTPClient, provider.NewHTTPClient())
	hc := cfg.Client(c)
	hc.Timeout = provider.QueryTimeout

	return &Helix{
		BaseURL:  baseURL,
		ClientID: clientID,
		HTTP:     hc,
	}
}

func (h *Helix) get(c context.Context, path string, q url.Values, out any) error {
	header := http.Header{}
	header.Set("Client-Id", h.ClientID)

	return provider.GetJSON(c, h.HTTP, h.BaseURL+path+"?"+q.Encode(), header, out)
}

// LiveStreams returns live streams of the given logins. Offline logins are absent.
func (h *Helix) LiveStreams(c context.Context, logins []string) ([]streamT, error) {
	if len(logins) > maxPerRequest {
		return nil, fmt.Errorf("twitch: at most %d logins per request, got %d", maxPerRequest, len(logins))
	}

	q := url.Values{}
	for _, l := range logins {
		q.Add("user_login", l)
	}
	q.Set("first", strconv.Itoa(maxPerRequest))

	var sc streamContainerT
	if err := h.get(c, "streams", q, &sc); err != nil {
		return nil, err
	}

	return sc.Data, nil
}

// TopStreams returns the most watched live streams, of a single game if gameID is set.
func (h *Helix) TopStreams(c context.Context, gameID string, first int) ([]streamT, error) {
	q := url.Values{}
	if gameID != "" {
		q.Set("game_id", gameID)
	}
	q.Set("first", strconv.Itoa(clampPage(first)))

	var sc streamContainerT
	if err := h.get(c, "streams", q, &sc); err != nil {
		return nil, err
	}

	return sc.Data, nil
}

// Users returns profiles of the given logins. Unknown logins are absent.
func (h *Helix) Users(c context.Context, logins []string) ([]userT, error) {
	q := url.Values{}
	for _, l := range logins {
		q.Add("login", l)
	}

	var uc struct {
		Data []userT `json:"data"`
	}
	if err := h.get(c, "users", q, &uc); err != nil {
		return nil, err
	}

	return uc.Data, nil
}

// UserID resolves a login to a user ID. It never changes for a given account.
func (h *Helix) UserID(c context.Context, login string) (string, error) {
	users, err := h.Users(c, []string{login})
	if err != nil {
		return "", err
	}

	if len(users) == 0 {
		return "", fmt.Errorf("twitch: no user %q", login)
	}

	return users[0].ID, nil
}

// Games looks up games by exact name.
func (h *Helix) Games(c context.Context, names []string) ([]gameT, error) {
	q := url.Values{}
	for _, n := range names {
		q.Add("name", n)
	}

	return h.games(c, "games", q)
}

func (h *Helix) TopGames(c context.Context, first int) ([]gameT, error) {
	q := url.Values{}
	q.Set("first", strconv.Itoa(clampPage(first)))

	return h.games(c, "games/top", q)
}

// SearchCategories finds games with names matching query.
func (h *Helix) SearchCategories(c context.Context, query string, first int) ([]gameT, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("first", strconv.Itoa(clampPage(first)))

	return h.games(c, "search/categories", q)
}

func (h *Helix) games(c context.Context, path string, q url.Values) ([]gameT, error) {
	var gc struct {
		Data []gameT `json:"data"`
	}
	if err := h.get(c, path, q, &gc); err != nil {
		return nil, err
	}

	return gc.Data, nil
}

// Videos returns recorded videos of a user, newest first.
func (h *Helix) Videos(c context.Context, userID, typ string, first int) ([]videoT, error) {
	q := url.Values{}
	q.Set("user_id", userID)
	if typ != "" {
		q.Set("type", typ)
	}
	q.Set("first", strconv.Itoa(clampPage(first)))

	var vc struct {
		Data []videoT `json:"data"`
	}
	if err := h.get(c, "videos", q, &vc); err != nil {
		return nil, err
	}

	return vc.Data, nil
}

func clampPage(n int) int {
	if n <= 0 {
		return 20
	}

	return min(n, maxPerRequest)
}

type streamContainerT struct {
	Data       []streamT   `json:"data"`
	Pagination paginationT `json:"pagination"`
}

type streamT struct {
	// Unique stream identifier.
	ID string `json:"id"`

	// Twitch login of the channel owner.
	UserLogin string `json:"user_login"`

	// Twitch display name of the channel owner.
	UserName string `json:"user_name"`

	// Twitch user ID.
	UserID string `json:"user_id"`

	GameName string `json:"game_name"`

	// "live", or an empty string on error.
	Type string `json:"type"`

	// Channel title.
	Title string `json:"title"`

	ViewerCount int64 `json:"viewer_count"`

	// Live stream thumbnail URL.
	Thumbnail string `json:"thumbnail_url"`

	// ISO-8601 date/time of stream going live.
	StartedAt string `json:"started_at"`

	Language string `json:"language"`
}

type userT struct {
	ID              string `json:"id"`
	Login           string `json:"login"`
	DisplayName     string `json:"display_name"`
	BroadcasterType string `json:"broadcaster_type"`
	Description     string `json:"description"`
	ProfileImageURL string `json:"profile_image_url"`
}

type gameT struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	BoxArtURL string `json:"box_art_url"`
}

type videoT struct {
	ID           string `json:"id"`
	UserLogin    string `json:"user_login"`
	Title        string `json:"title"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnail_url"`
	ViewCount    int64  `json:"view_count"`
	CreatedAt    string `json:"created_at"`
	Duration     string `json:"duration"`
	Type         string `json:"type"`
}

type paginationT struct {
	Cursor string `json:"cursor"`
}
