// Package monitor owns the set of channels a user tracks and reconciles it
// with the providers on every refresh tick.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/TeamTenuki/livewatch/provider"
	"github.com/TeamTenuki/livewatch/stream"
)

var (
	ErrAlreadyMonitored = errors.New("channel is already monitored")
	ErrNotMonitored     = errors.New("channel is not monitored")
)

// Store persists the channel list and the exclusion set between runs.
type Store interface {
	LoadChannels(c context.Context) ([]stream.Channel, error)
	SaveChannels(c context.Context, channels []stream.Channel) error
	LoadExclusions(c context.Context) ([]stream.Identifier, error)
	SaveExclusions(c context.Context, ids []stream.Identifier) error
}

// Config of a Set.
type Config struct {
	Providers *provider.Registry

	// Store may be nil, then nothing is persisted.
	Store Store

	// NotifyOnFirstSight makes a channel found live on its first refresh
	// notification-worthy. Otherwise only Offline to Live transitions are.
	NotifyOnFirstSight bool
}

// Set is the canonical collection of monitored channels. Models are created
// and removed by the Set only; refreshes mutate them in place.
type Set struct {
	providers  *provider.Registry
	store      Store
	firstSight bool

	// saveMu serialises membership changes together with their persistence.
	saveMu sync.Mutex
	// tickMu allows a single refresh at a time.
	tickMu sync.Mutex

	mu       sync.RWMutex
	models   map[stream.Identifier]*stream.Model
	excluded map[stream.Identifier]struct{}
}

func New(cfg Config) *Set {
	providers := cfg.Providers
	if providers == nil {
		providers, _ = provider.NewRegistry()
	}

	return &Set{
		providers:  providers,
		store:      cfg.Store,
		firstSight: cfg.NotifyOnFirstSight,
		models:     make(map[stream.Identifier]*stream.Model),
		excluded:   make(map[stream.Identifier]struct{}),
	}
}

// Providers the set refreshes channels with.
func (s *Set) Providers() *provider.Registry {
	return s.providers
}

// Identify builds a normalised identifier of a channel on the named provider.
func (s *Set) Identify(providerName, channel string) (stream.Identifier, error) {
	p, err := s.providers.Get(providerName)
	if err != nil {
		return stream.Identifier{}, err
	}

	return p.Identify(channel), nil
}

// normalize re-derives id the way its provider builds identifiers, so that
// "twitch/Foo" and "twitch/foo" name the same channel.
func (s *Set) normalize(id stream.Identifier) (stream.Identifier, error) {
	return s.Identify(id.Provider, id.ChannelID)
}

// lookupID is normalize for read-only lookups: ids of unknown providers are
// kept as given.
func (s *Set) lookupID(id stream.Identifier) stream.Identifier {
	if n, err := s.normalize(id); err == nil {
		return n
	}

	return id
}

// Load replaces the set with the persisted channels and exclusions.
// Channels of providers that are not registered are skipped.
func (s *Set) Load(c context.Context) error {
	if s.store == nil {
		return nil
	}

	channels, err := s.store.LoadChannels(c)
	if err != nil {
		return fmt.Errorf("failed to load channels: %w", err)
	}

	exclusions, err := s.store.LoadExclusions(c)
	if err != nil {
		return fmt.Errorf("failed to load exclusions: %w", err)
	}

	models := make(map[stream.Identifier]*stream.Model, len(channels))
	for _, ch := range channels {
		p, err := s.providers.Get(ch.Provider)
		if err != nil {
			log.Printf("Failed to load channel %s: %s", ch.Identifier, err)
			continue
		}

		// Names stored by an older build may not be normalised yet.
		id := p.Identify(ch.ChannelID)
		m := stream.NewModel(id)
		m.SetMetadata(stream.Details{DisplayName: ch.DisplayName})
		models[id] = m
	}

	excluded := make(map[stream.Identifier]struct{}, len(exclusions))
	for _, id := range exclusions {
		// Exclusions of unregistered providers are kept for a later run.
		id = s.lookupID(id)
		excluded[id] = struct{}{}
		if m, ok := models[id]; ok {
			m.SetDontNotify(true)
		}
	}

	s.mu.Lock()
	s.models = models
	s.excluded = excluded
	s.mu.Unlock()

	return nil
}

// Add starts monitoring a channel. The model stays Unknown until the next refresh.
func (s *Set) Add(c context.Context, id stream.Identifier) (*stream.Model, error) {
	id, err := s.normalize(id)
	if err != nil {
		return nil, err
	}

	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.RLock()
	_, exists := s.models[id]
	_, excluded := s.excluded[id]
	s.mu.RUnlock()

	if exists {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyMonitored, id)
	}

	m := stream.NewModel(id)
	m.SetDontNotify(excluded)

	if err := s.saveChannels(c, m, nil); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.models[id] = m
	s.mu.Unlock()

	return m, nil
}

// Remove stops monitoring a channel.
func (s *Set) Remove(c context.Context, id stream.Identifier) error {
	id = s.lookupID(id)

	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.RLock()
	_, exists := s.models[id]
	s.mu.RUnlock()

	if !exists {
		return fmt.Errorf("%w: %s", ErrNotMonitored, id)
	}

	if err := s.saveChannels(c, nil, &id); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.models, id)
	s.mu.Unlock()

	return nil
}

// Exclude suppresses live notifications of a channel. Its state is still refreshed.
// Channels that are not monitored may be excluded in advance.
func (s *Set) Exclude(c context.Context, id stream.Identifier) error {
	return s.setExcluded(c, id, true)
}

// Include reverts Exclude.
func (s *Set) Include(c context.Context, id stream.Identifier) error {
	return s.setExcluded(c, id, false)
}

func (s *Set) setExcluded(c context.Context, id stream.Identifier, v bool) error {
	id, err := s.normalize(id)
	if err != nil {
		return err
	}

	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.RLock()
	ids := make([]stream.Identifier, 0, len(s.excluded)+1)
	for e := range s.excluded {
		if e != id {
			ids = append(ids, e)
		}
	}
	m := s.models[id]
	s.mu.RUnlock()

	if v {
		ids = append(ids, id)
	}
	sortIdentifiers(ids)

	if s.store != nil {
		if err := s.store.SaveExclusions(c, ids); err != nil {
			return fmt.Errorf("failed to save exclusions: %w", err)
		}
	}

	s.mu.Lock()
	if v {
		s.excluded[id] = struct{}{}
	} else {
		delete(s.excluded, id)
	}
	s.mu.Unlock()

	if m != nil {
		m.SetDontNotify(v)
	}

	return nil
}

// Excluded tells whether notifications of a channel are suppressed.
func (s *Set) Excluded(id stream.Identifier) bool {
	id = s.lookupID(id)

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.excluded[id]

	return ok
}

// Exclusions returns the exclusion set sorted by identifier.
func (s *Set) Exclusions() []stream.Identifier {
	s.mu.RLock()
	ids := make([]stream.Identifier, 0, len(s.excluded))
	for id := range s.excluded {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	sortIdentifiers(ids)

	return ids
}

// Get returns the model of a monitored channel.
func (s *Set) Get(id stream.Identifier) (*stream.Model, bool) {
	id = s.lookupID(id)

	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.models[id]

	return m, ok
}

// Len is the number of monitored channels.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.models)
}

// Models returns the monitored models sorted by identifier.
func (s *Set) Models() []*stream.Model {
	s.mu.RLock()
	ms := make([]*stream.Model, 0, len(s.models))
	for _, m := range s.models {
		ms = append(ms, m)
	}
	s.mu.RUnlock()

	sort.Slice(ms, func(i, j int) bool {
		return ms[i].Identifier().Less(ms[j].Identifier())
	})

	return ms
}

// Snapshots returns snapshots of all monitored models sorted by identifier.
func (s *Set) Snapshots() []stream.Snapshot {
	ms := s.Models()

	ss := make([]stream.Snapshot, len(ms))
	for i, m := range ms {
		ss[i] = m.Snapshot()
	}

	return ss
}

// saveChannels persists the current channel list with add appended and
// without remove. Must be called with saveMu held.
func (s *Set) saveChannels(c context.Context, add *stream.Model, remove *stream.Identifier) error {
	if s.store == nil {
		return nil
	}

	ms := s.Models()
	if add != nil {
		ms = append(ms, add)
	}

	channels := make([]stream.Channel, 0, len(ms))
	for _, m := range ms {
		if remove != nil && m.Identifier() == *remove {
			continue
		}

		snap := m.Snapshot()
		name := snap.DisplayName
		if name == snap.Identifier.ChannelID {
			name = ""
		}

		channels = append(channels, stream.Channel{Identifier: snap.Identifier, DisplayName: name})
	}

	sort.Slice(channels, func(i, j int) bool {
		return channels[i].Identifier.Less(channels[j].Identifier)
	})

	if err := s.store.SaveChannels(c, channels); err != nil {
		return fmt.Errorf("failed to save channels: %w", err)
	}

	return nil
}

// Save persists the channel list, e.g. to keep display names learned by refreshes.
func (s *Set) Save(c context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	return s.saveChannels(c, nil, nil)
}

func sortIdentifiers(ids []stream.Identifier) {
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].Less(ids[j])
	})
}
