package livewatch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/redis/go-redis/v9"

	"github.com/TeamTenuki/livewatch/commands"
	"github.com/TeamTenuki/livewatch/config"
	"github.com/TeamTenuki/livewatch/db"
	"github.com/TeamTenuki/livewatch/messenger/discord"
	"github.com/TeamTenuki/livewatch/monitor"
	"github.com/TeamTenuki/livewatch/parallel"
	"github.com/TeamTenuki/livewatch/provider"
	"github.com/TeamTenuki/livewatch/provider/twitch"
	"github.com/TeamTenuki/livewatch/provider/youtube"
	"github.com/TeamTenuki/livewatch/resolve"
	"github.com/TeamTenuki/livewatch/tracker"
	"github.com/TeamTenuki/livewatch/watcher"
)

var ErrNoDiscordToken = errors.New("discord_token is not configured")

// Providers builds the registry of every supported provider. A provider
// without credentials is still registered, so its channels are kept, but its
// refreshes fail. The returned function releases the resolution stores.
func Providers(cfg *config.Config) (*provider.Registry, func() error, error) {
	if cfg.TwitchClientID == "" || cfg.TwitchClientSecret == "" {
		log.Printf("Twitch credentials are not configured, twitch channels won't refresh")
	}
	if cfg.YouTubeAPIKey == "" {
		log.Printf("YouTube API key is not configured, youtube channels won't refresh")
	}

	var rdb *redis.Client
	release := func() error { return nil }
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		release = rdb.Close
	}

	store := func(name string) resolve.Store {
		if rdb == nil {
			return resolve.NewMemoryStore()
		}
		return resolve.NewRedisStore(rdb, name)
	}

	opts := parallel.Options{
		Limit:   cfg.MaxConcurrency,
		Timeout: cfg.QueryTimeout,
	}

	helix := twitch.NewHelix(cfg.TwitchClientID, cfg.TwitchClientSecret)
	data := youtube.NewDataAPI(cfg.YouTubeAPIKey)

	providers, err := provider.NewRegistry(
		twitch.NewClient(helix, resolve.New(helix.UserID, store(twitch.Name)), opts),
		youtube.NewClient(data, resolve.New(data.ChannelID, store(youtube.Name)), opts),
	)
	if err != nil {
		release()
		return nil, nil, err
	}

	return providers, release, nil
}

// NewSet returns the monitored channels persisted in the DB carried by c.
func NewSet(c context.Context, providers *provider.Registry) (*monitor.Set, error) {
	set := monitor.New(monitor.Config{
		Providers: providers,
		Store:     db.Store{},

		// Repeats across restarts are suppressed by the reports table.
		NotifyOnFirstSight: true,
	})

	if err := set.Load(c); err != nil {
		return nil, err
	}

	return set, nil
}

// Run is the main entry point that starts the bot interaction with the world.
// It manages cancellation through the c context parameter, i.e. Run will return
// when c.Done() is closed.
func Run(c context.Context, cfg *config.Config) error {
	if cfg.DiscordToken == "" {
		return ErrNoDiscordToken
	}

	db.SetupDB(c)

	providers, release, err := Providers(cfg)
	if err != nil {
		return fmt.Errorf("failed to set up providers: %w", err)
	}
	defer release()

	set, err := NewSet(c, providers)
	if err != nil {
		return err
	}

	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return fmt.Errorf("failed to create Discord client instance: %w", err)
	}

	refreshEvery, _ := cfg.Intervals()

	m := discord.NewMessenger(dg, providers)
	// Every tick ends before the next one is due.
	w := watcher.Periodic(set, refreshEvery, refreshEvery)
	t := tracker.NewTracker(w, m)
	h := commands.NewHandler(t, set, w.Now)

	cfg.Watch(func(d time.Duration) {
		w.Reset(d, d)
	})

	dg.AddHandler(func(s *discordgo.Session, mc *discordgo.MessageCreate) {
		if mc.Author.ID == s.State.User.ID {
			return
		}

		if mentionsBot(s, mc.Mentions) {
			if err := h.Handle(c, mc.ChannelID, mc.Content, m); err != nil {
				log.Printf("Failed to handle message %q: %s", mc.Content, err)
			}
		}
	})

	if err := dg.Open(); err != nil {
		return fmt.Errorf("failed to open a WebSocket connection: %w", err)
	}

	t.Track(c)

	// Display names learnt while running are kept for the next start.
	if err := set.Save(context.WithoutCancel(c)); err != nil {
		log.Printf("Failed to save channels: %s", err)
	}

	return dg.Close()
}

func mentionsBot(s *discordgo.Session, ms []*discordgo.User) bool {
	for _, u := range ms {
		if u.ID == s.State.User.ID {
			return true
		}
	}

	return false
}
