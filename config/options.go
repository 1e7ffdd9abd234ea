package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// Filename of the config file in the config directory.
	Filename = "livewatch"
	// Format of the config file.
	Format = "toml"

	// EnvPrefix of environment variables overriding the config file,
	// e.g. LIVEWATCH_DISCORD_TOKEN.
	EnvPrefix = "livewatch"

	// MinRefreshEvery keeps the providers' rate limits out of reach.
	MinRefreshEvery = 30 * time.Second

	defaultRefreshEvery   = 60 * time.Second
	defaultMaxConcurrency = 8
)

var ErrInvalidRefreshRate = fmt.Errorf("refresh_every must be at least %s", MinRefreshEvery)

// Config of the program.
type Config struct {
	DiscordToken       string
	TwitchClientID     string
	TwitchClientSecret string
	YouTubeAPIKey      string

	// RedisAddr of the resolved channel ID store. Empty keeps them in memory.
	RedisAddr string

	// RefreshEvery is the interval between refresh ticks.
	RefreshEvery time.Duration

	// QueryTimeout bounds a single provider query. Defaults to half of RefreshEvery.
	QueryTimeout time.Duration

	// MaxConcurrency is the number of provider queries in flight per provider.
	MaxConcurrency int

	m sync.Mutex
	v *viper.Viper
}

// LoadEnv loads variables from ENV_FILE, or from .env in the working
// directory when ENV_FILE is not set. Variables already set are kept,
// unless they come from ENV_FILE.
func LoadEnv() {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Overload(envFile); err != nil {
			log.Printf("Failed to load ENV_FILE=%q: %s", envFile, err)
		}
		return
	}

	if err := godotenv.Load(); err == nil {
		log.Printf("Loaded .env")
	}
}

// Parse reads the config file at path, or livewatch.toml in Dir when path is
// empty. A missing file is not an error: environment variables may carry
// everything.
func Parse(path string) (*Config, error) {
	LoadEnv()

	if path == "" {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, Filename+"."+Format)
	}

	v := viper.New()

	v.SetDefault("discord_token", "")
	v.SetDefault("twitch_client_id", "")
	v.SetDefault("twitch_client_secret", "")
	v.SetDefault("youtube_api_key", "")
	v.SetDefault("redis_addr", "")
	v.SetDefault("refresh_every", defaultRefreshEvery)
	v.SetDefault("query_timeout", 0)
	v.SetDefault("max_concurrency", defaultMaxConcurrency)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigType(Format)
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	cfg := &Config{v: v}
	if err := cfg.load(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (cfg *Config) load() error {
	v := cfg.v

	refreshEvery := v.GetDuration("refresh_every")
	if refreshEvery < MinRefreshEvery {
		return fmt.Errorf("%w, got %s", ErrInvalidRefreshRate, refreshEvery)
	}

	queryTimeout := v.GetDuration("query_timeout")
	if queryTimeout <= 0 {
		queryTimeout = refreshEvery / 2
	}

	maxConcurrency := v.GetInt("max_concurrency")
	if maxConcurrency <= 0 {
		maxConcurrency = defaultMaxConcurrency
	}

	cfg.m.Lock()
	defer cfg.m.Unlock()

	cfg.DiscordToken = v.GetString("discord_token")
	cfg.TwitchClientID = v.GetString("twitch_client_id")
	cfg.TwitchClientSecret = v.GetString("twitch_client_secret")
	cfg.YouTubeAPIKey = v.GetString("youtube_api_key")
	cfg.RedisAddr = v.GetString("redis_addr")
	cfg.RefreshEvery = refreshEvery
	cfg.QueryTimeout = queryTimeout
	cfg.MaxConcurrency = maxConcurrency

	return nil
}

// Intervals returns the current refresh interval and query timeout.
// Both may change while the config is watched.
func (cfg *Config) Intervals() (refreshEvery, queryTimeout time.Duration) {
	cfg.m.Lock()
	defer cfg.m.Unlock()

	return cfg.RefreshEvery, cfg.QueryTimeout
}

// Watch reloads the config file whenever it changes and calls onChange with
// the new refresh interval. An invalid file is logged and ignored.
func (cfg *Config) Watch(onChange func(refreshEvery time.Duration)) {
	cfg.v.WatchConfig()
	cfg.v.OnConfigChange(func(e fsnotify.Event) {
		log.Printf("Config file changed: %s", e.Name)

		before, _ := cfg.Intervals()
		if err := cfg.load(); err != nil {
			log.Printf("Failed to reload config: %s", err)
			return
		}

		if after, _ := cfg.Intervals(); after != before {
			onChange(after)
		}
	})
}
