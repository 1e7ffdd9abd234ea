package stream

import (
	"fmt"
	"sync"
	"time"

	"github.com/TeamTenuki/livewatch/clock"
)

// State of a monitored channel.
type State int

const (
	// Unknown until the first refresh finishes for the channel.
	Unknown State = iota
	Live
	Offline
)

func (s State) String() string {
	switch s {
	case Live:
		return "live"
	case Offline:
		return "offline"
	default:
		return "unknown"
	}
}

// Model is an observed state of a single monitored channel.
//
// A Model is a handle: refreshes mutate it in place, never replace it, and every
// mutation applies a whole group of fields under the lock so readers never see
// a torn state. Use Snapshot to read.
type Model struct {
	mu sync.RWMutex

	identifier   Identifier
	details      Details
	state        State
	lastLiveTime *time.Time
	dontNotify   bool
}

// NewModel returns a model in the Unknown state. The display name defaults to
// the channel ID until a provider reports a better one.
func NewModel(id Identifier) *Model {
	return &Model{
		identifier: id,
		details: Details{
			ID:          id.ChannelID,
			DisplayName: id.ChannelID,
		},
	}
}

// Snapshot is a consistent copy of a Model's fields.
type Snapshot struct {
	Details

	Identifier   Identifier
	State        State
	LastLiveTime *time.Time
	DontNotify   bool
}

// Live tells whether the snapshot was taken while the channel was live.
func (s Snapshot) Live() bool {
	return s.State == Live
}

// Uptime of a live stream at the given instant.
func (s Snapshot) Uptime(at time.Time) time.Duration {
	if !s.Live() || s.StartTime.IsZero() {
		return 0
	}

	return at.Sub(s.StartTime)
}

func (s Snapshot) String() string {
	return fmt.Sprintf("%s, Viewers=%d, State=%s", s.DisplayName, s.Viewers, s.State)
}

// Identifier of the channel. It never changes.
func (m *Model) Identifier() Identifier {
	return m.identifier
}

func (m *Model) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.state
}

func (m *Model) Live() bool {
	return m.State() == Live
}

func (m *Model) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Snapshot{
		Details:    m.details,
		Identifier: m.identifier,
		State:      m.state,
		DontNotify: m.dontNotify,
	}
	if m.lastLiveTime != nil {
		t := *m.lastLiveTime
		s.LastLiveTime = &t
	}

	return s
}

// SetLive applies fresh live details. LastLiveTime is stamped only when the
// channel was not live before, so a stream that stays live keeps its stamp.
// Empty ID and DisplayName in d keep the current values. IsPartner is channel
// metadata that live endpoints often omit, so d can only raise it; SetPartner
// lowers it.
func (m *Model) SetLive(d Details) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if d.ID == "" {
		d.ID = m.details.ID
	}
	if d.DisplayName == "" {
		d.DisplayName = m.details.DisplayName
	}
	d.IsPartner = d.IsPartner || m.details.IsPartner
	if d.Viewers < 0 {
		d.Viewers = 0
	}

	m.details = d
	if m.state != Live {
		now := clock.NowUTC()
		m.lastLiveTime = &now
		m.state = Live
	}
}

// SetMetadata updates channel metadata that is available while offline.
// Liveness, viewers, start time and IsPartner are not touched; empty values
// are ignored.
func (m *Model) SetMetadata(d Details) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if d.DisplayName != "" {
		m.details.DisplayName = d.DisplayName
	}
	if d.Description != "" {
		m.details.Description = d.Description
	}
	if d.Game != "" {
		m.details.Game = d.Game
	}
	if d.ThumbnailURL != "" {
		m.details.ThumbnailURL = d.ThumbnailURL
	}
	if d.Language != "" {
		m.details.Language = d.Language
	}
}

// SetPartner records the partner status reported by the service.
func (m *Model) SetPartner(v bool) {
	m.mu.Lock()
	m.details.IsPartner = v
	m.mu.Unlock()
}

// Offline puts the model into the offline state: no viewers and no start time.
func (m *Model) Offline() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = Offline
	m.details.Viewers = 0
	m.details.StartTime = NotStarted
}

// SetDontNotify excludes (or includes back) the channel from live notifications.
func (m *Model) SetDontNotify(v bool) {
	m.mu.Lock()
	m.dontNotify = v
	m.mu.Unlock()
}

func (m *Model) DontNotify() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.dontNotify
}
