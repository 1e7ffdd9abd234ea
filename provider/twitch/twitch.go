package twitch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/TeamTenuki/livewatch/parallel"
	"github.com/TeamTenuki/livewatch/provider"
	"github.com/TeamTenuki/livewatch/resolve"
	"github.com/TeamTenuki/livewatch/stream"
)

// Name of the provider.
const Name = "twitch"

const baseURL = "https://www.twitch.tv/"

// API fetches raw payloads from Twitch. *Helix satisfies this interface.
type API interface {
	LiveStreams(c context.Context, logins []string) ([]streamT, error)
	TopStreams(c context.Context, gameID string, first int) ([]streamT, error)
	Users(c context.Context, logins []string) ([]userT, error)
	Games(c context.Context, names []string) ([]gameT, error)
	TopGames(c context.Context, first int) ([]gameT, error)
	SearchCategories(c context.Context, query string, first int) ([]gameT, error)
	Videos(c context.Context, userID, typ string, first int) ([]videoT, error)
}

var _ API = &Helix{}

// Client queries Twitch. Live state of up to a hundred channels is fetched
// with a single request, so a refresh fans out over batches, not channels.
type Client struct {
	provider.Unsupported

	api  API
	ids  *resolve.Cache
	opts parallel.Options
	r    *strings.Replacer

	// partners maps logins to their partner status, which the streams
	// endpoint doesn't carry.
	partners sync.Map
}

var _ provider.Client = &Client{}

// NewClient returns a Twitch client. The ids cache resolves logins to user IDs;
// it has to be built on the same account's lookup, see Helix.UserID.
func NewClient(api API, ids *resolve.Cache, opts parallel.Options) *Client {
	return &Client{
		Unsupported: provider.Unsupported{Name: Name},
		api:         api,
		ids:         ids,
		opts:        opts,
		r:           strings.NewReplacer("{width}", "1280", "{height}", "720"),
	}
}

func (tc *Client) Capabilities() provider.Capabilities {
	return provider.Capabilities{
		Name:       Name,
		BaseURL:    baseURL,
		Chat:       true,
		VodViewer:  true,
		TopStreams: true,
		// Followed channels require a user access token, which an app can't hold.
		UserFollows: false,
		VodTypes:    []string{"archive", "highlight", "upload"},
	}
}

// Identify folds the channel name: Twitch logins are case-insensitive.
func (tc *Client) Identify(channel string) stream.Identifier {
	return stream.NewFoldedIdentifier(Name, channel)
}

func (tc *Client) StreamURL(id string) string {
	return baseURL + id
}

func (tc *Client) ChatURL(id string) (string, error) {
	return fmt.Sprintf("%spopout/%s/chat?popout=", baseURL, id), nil
}

func (tc *Client) RefreshOnline(c context.Context, ms []*stream.Model) (provider.Batch, error) {
	chunks := provider.Chunk(ms, maxPerRequest)

	outcomes := parallel.RunAll(c, chunks, tc.queryChunk, tc.opts)

	var (
		results []stream.QueryResult
		errs    []error
	)
	for _, o := range outcomes {
		if o.Err != nil {
			errs = append(errs, o.Err)
			for _, m := range o.Item {
				results = append(results, stream.Errored(m.Identifier(), o.Err))
			}
			continue
		}
		results = append(results, o.Value...)
	}

	if len(outcomes) > 0 && len(errs) == len(outcomes) {
		return provider.Batch{}, fmt.Errorf("twitch: every stream query failed: %w", errors.Join(errs...))
	}

	return provider.Apply(ms, results), nil
}

func (tc *Client) queryChunk(c context.Context, ms []*stream.Model) ([]stream.QueryResult, error) {
	logins := make([]string, len(ms))
	for i, m := range ms {
		logins[i] = m.Identifier().ChannelID
	}

	ss, err := tc.api.LiveStreams(c, logins)
	if err != nil {
		return nil, err
	}

	live := make(map[stream.Identifier]streamT, len(ss))
	for _, s := range ss {
		if s.Type != "live" {
			continue
		}
		live[tc.Identify(s.UserLogin)] = s
	}

	tc.learnPartners(c, live)

	results := make([]stream.QueryResult, 0, len(ms))
	for _, m := range ms {
		id := m.Identifier()

		s, ok := live[id]
		if !ok {
			results = append(results, stream.Missing(id))
			continue
		}

		d, err := tc.details(&s)
		if err != nil {
			results = append(results, stream.Errored(id, err))
			continue
		}
		if partner, ok := tc.partners.Load(id.ChannelID); ok {
			d.IsPartner = partner.(bool)
		}
		results = append(results, stream.Succeeded(id, d))
	}

	return results, nil
}

// learnPartners looks up the partner status of live channels seen for the
// first time. A failed lookup is retried on the next refresh.
func (tc *Client) learnPartners(c context.Context, live map[stream.Identifier]streamT) {
	var logins []string
	for id := range live {
		if _, ok := tc.partners.Load(id.ChannelID); !ok {
			logins = append(logins, id.ChannelID)
		}
	}

	if len(logins) == 0 {
		return
	}

	users, err := tc.api.Users(c, logins)
	if err != nil {
		log.Printf("Failed to look up twitch partners: %s", err)
		return
	}

	for _, u := range users {
		tc.partners.Store(tc.Identify(u.Login).ChannelID, u.BroadcasterType == "partner")
	}
}

// RefreshOffline fills in channel metadata from user profiles, as offline
// channels are absent from the streams endpoint.
func (tc *Client) RefreshOffline(c context.Context, ms []*stream.Model) error {
	chunks := provider.Chunk(ms, maxPerRequest)

	outcomes := parallel.RunAll(c, chunks, func(c context.Context, ms []*stream.Model) ([]userT, error) {
		logins := make([]string, len(ms))
		for i, m := range ms {
			logins[i] = m.Identifier().ChannelID
		}

		return tc.api.Users(c, logins)
	}, tc.opts)

	byID := make(map[stream.Identifier]*stream.Model, len(ms))
	for _, m := range ms {
		byID[m.Identifier()] = m
	}

	var errs []error
	for _, o := range outcomes {
		if o.Err != nil {
			errs = append(errs, o.Err)
			continue
		}

		for _, u := range o.Value {
			m, ok := byID[tc.Identify(u.Login)]
			if !ok {
				continue
			}

			partner := u.BroadcasterType == "partner"
			tc.partners.Store(m.Identifier().ChannelID, partner)

			m.SetMetadata(stream.Details{
				DisplayName:  u.DisplayName,
				Description:  u.Description,
				ThumbnailURL: u.ProfileImageURL,
			})
			m.SetPartner(partner)
		}
	}

	return errors.Join(errs...)
}

func (tc *Client) TopStreams(c context.Context, q stream.TopStreamQuery) ([]stream.Snapshot, error) {
	var gameID string
	if q.Game != "" {
		games, err := tc.api.Games(c, []string{q.Game})
		if err != nil {
			return nil, err
		}
		if len(games) == 0 {
			return nil, nil
		}
		gameID = games[0].ID
	}

	take := q.Take
	if take <= 0 {
		take = 15
	}

	ss, err := tc.api.TopStreams(c, gameID, q.Skip+take)
	if err != nil {
		return nil, err
	}

	if q.Skip >= len(ss) {
		return nil, nil
	}
	ss = ss[q.Skip:min(len(ss), q.Skip+take)]

	top := make([]stream.Snapshot, 0, len(ss))
	for i := range ss {
		d, err := tc.details(&ss[i])
		if err != nil {
			return nil, err
		}

		top = append(top, stream.Snapshot{
			Details:    d,
			Identifier: tc.Identify(ss[i].UserLogin),
			State:      stream.Live,
		})
	}

	return top, nil
}

func (tc *Client) KnownGames(c context.Context, filter string) ([]stream.Game, error) {
	var (
		gs  []gameT
		err error
	)
	if filter == "" {
		gs, err = tc.api.TopGames(c, maxPerRequest)
	} else {
		gs, err = tc.api.SearchCategories(c, filter, 20)
	}
	if err != nil {
		return nil, err
	}

	games := make([]stream.Game, len(gs))
	for i, g := range gs {
		games[i] = stream.Game{ID: g.ID, Name: g.Name, BoxArtURL: g.BoxArtURL}
	}

	return games, nil
}

func (tc *Client) Vods(c context.Context, q stream.VodQuery) ([]stream.Vod, error) {
	userID, err := tc.ids.Resolve(c, tc.Identify(q.ChannelID).ChannelID)
	if err != nil {
		return nil, err
	}

	take := q.Take
	if take <= 0 {
		take = 10
	}

	vs, err := tc.api.Videos(c, userID, q.Type, q.Skip+take)
	if err != nil {
		return nil, err
	}

	if q.Skip >= len(vs) {
		return nil, nil
	}
	vs = vs[q.Skip:min(len(vs), q.Skip+take)]

	vods := make([]stream.Vod, 0, len(vs))
	for _, v := range vs {
		recordedAt, err := time.Parse(time.RFC3339, v.CreatedAt)
		if err != nil {
			return nil, err
		}

		// Helix durations look like "3h8m33s", which time.ParseDuration accepts.
		length, err := time.ParseDuration(v.Duration)
		if err != nil {
			length = 0
		}

		vods = append(vods, stream.Vod{
			ID:         v.ID,
			Title:      v.Title,
			URL:        v.URL,
			Type:       v.Type,
			Length:     length,
			Views:      v.ViewCount,
			RecordedAt: recordedAt.In(time.UTC),
			PreviewURL: strings.NewReplacer("%{width}", "320", "%{height}", "180").Replace(v.ThumbnailURL),
		})
	}

	return vods, nil
}

func (tc *Client) details(s *streamT) (stream.Details, error) {
	startedAt, err := time.Parse(time.RFC3339, s.StartedAt)
	if err != nil {
		return stream.Details{}, fmt.Errorf("twitch: stream %s: %w", s.ID, err)
	}

	return stream.Details{
		ID:           s.ID,
		DisplayName:  s.UserName,
		Description:  s.Title,
		Game:         s.GameName,
		Viewers:      s.ViewerCount,
		StartTime:    startedAt.In(time.UTC),
		ThumbnailURL: tc.r.Replace(s.Thumbnail),
		Language:     s.Language,
	}, nil
}
