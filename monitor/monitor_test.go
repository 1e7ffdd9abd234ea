package monitor_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TeamTenuki/livewatch/clock"
	"github.com/TeamTenuki/livewatch/monitor"
	"github.com/TeamTenuki/livewatch/provider"
	"github.com/TeamTenuki/livewatch/stream"
	"github.com/TeamTenuki/livewatch/testutil"
)

var errNetworkDown = errors.New("network is unreachable")

func TestProviderOutageKeepsItsChannels(t *testing.T) {
	set, x, y := setupSet(t, monitor.Config{})
	c := context.Background()

	a := mustAdd(t, set, "x", "a")
	b := mustAdd(t, set, "y", "b")

	x.SetLive("a", stream.Details{ID: "sa", Viewers: 10, Description: "A stream"})
	y.SetLive("b", stream.Details{ID: "sb", Viewers: 20})
	set.Refresh(c)

	prevA := a.Snapshot()
	require.True(t, prevA.Live())
	require.True(t, b.Live())

	x.SetDown(errNetworkDown)
	y.SetOffline("b")

	report := set.Refresh(c)

	assert.Equal(t, prevA, a.Snapshot(), "a keeps its last known state")

	sb := b.Snapshot()
	assert.False(t, sb.Live())
	assert.Zero(t, sb.Viewers)
	assert.True(t, sb.StartTime.Equal(stream.NotStarted))

	require.Contains(t, report.ProviderErrors, "x")
	assert.ErrorIs(t, report.ProviderErrors["x"], errNetworkDown)
	assert.NotContains(t, report.ProviderErrors, "y")
	assert.ErrorIs(t, report.Err(), errNetworkDown)

	require.Len(t, report.Offline, 1)
	assert.Equal(t, b.Identifier(), report.Offline[0].Identifier)
	require.Len(t, report.Live, 1)
	assert.Equal(t, a.Identifier(), report.Live[0].Identifier)
}

func TestProviderPanicIsIsolated(t *testing.T) {
	set, x, y := setupSet(t, monitor.Config{})

	a := mustAdd(t, set, "x", "a")
	b := mustAdd(t, set, "y", "b")

	x.SetPanics(true)
	y.SetLive("b", stream.Details{Viewers: 1})

	report := set.Refresh(context.Background())

	assert.ErrorIs(t, report.ProviderErrors["x"], monitor.ErrProviderPanic)
	assert.Equal(t, stream.Unknown, a.State())
	assert.True(t, b.Live())
}

func TestExcludedChannelGoesLiveWithoutNotification(t *testing.T) {
	defer clock.OverrideClock(nil)
	fixed := clock.OverrideByFixed(time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC))

	set, x, _ := setupSet(t, monitor.Config{})
	c := context.Background()

	foo := mustAdd(t, set, "x", "foo")
	require.NoError(t, set.Exclude(c, foo.Identifier()))

	set.Refresh(c)
	require.Equal(t, stream.Offline, foo.State())

	fixed.Add(time.Minute)
	x.SetLive("foo", stream.Details{Viewers: 3})
	report := set.Refresh(c)

	s := foo.Snapshot()
	assert.True(t, s.Live())
	require.NotNil(t, s.LastLiveTime)
	assert.Equal(t, clock.NowUTC(), *s.LastLiveTime)
	assert.Empty(t, report.Notifications)
	assert.Len(t, report.Live, 1)
}

func TestOfflineToLiveNotifies(t *testing.T) {
	set, x, _ := setupSet(t, monitor.Config{})
	c := context.Background()

	foo := mustAdd(t, set, "x", "foo")
	bar := mustAdd(t, set, "x", "bar")

	x.SetLive("bar", stream.Details{Viewers: 1})
	report := set.Refresh(c)
	assert.Empty(t, report.Notifications, "first sight doesn't notify")

	x.SetLive("foo", stream.Details{Viewers: 1})
	report = set.Refresh(c)
	require.Len(t, report.Notifications, 1)
	assert.Equal(t, foo.Identifier(), report.Notifications[0].Identifier)

	report = set.Refresh(c)
	assert.Empty(t, report.Notifications, "staying live doesn't notify")

	assert.True(t, bar.Live())
}

func TestNotifyOnFirstSight(t *testing.T) {
	set, x, _ := setupSet(t, monitor.Config{NotifyOnFirstSight: true})
	c := context.Background()

	foo := mustAdd(t, set, "x", "foo")
	muted := mustAdd(t, set, "x", "muted")
	require.NoError(t, set.Exclude(c, muted.Identifier()))

	x.SetLive("foo", stream.Details{Viewers: 1})
	x.SetLive("muted", stream.Details{Viewers: 1})

	report := set.Refresh(c)
	require.Len(t, report.Notifications, 1)
	assert.Equal(t, foo.Identifier(), report.Notifications[0].Identifier)
}

func TestChannelFailureKeepsState(t *testing.T) {
	set, x, _ := setupSet(t, monitor.Config{})
	c := context.Background()

	foo := mustAdd(t, set, "x", "foo")
	x.SetLive("foo", stream.Details{Viewers: 7})
	set.Refresh(c)

	before := foo.Snapshot()
	x.Fail("foo", errNetworkDown)

	report := set.Refresh(c)

	assert.Equal(t, before, foo.Snapshot())
	require.Len(t, report.Failures, 1)
	assert.ErrorIs(t, report.Failures[0], errNetworkDown)
	assert.Empty(t, report.Offline)
	assert.Empty(t, report.ProviderErrors)
}

func TestRefreshIsIdempotent(t *testing.T) {
	defer clock.OverrideClock(nil)
	fixed := clock.OverrideByFixed(time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC))

	set, x, y := setupSet(t, monitor.Config{})
	c := context.Background()

	mustAdd(t, set, "x", "a")
	mustAdd(t, set, "x", "b")
	mustAdd(t, set, "y", "c")

	x.SetLive("a", stream.Details{ID: "s1", Viewers: 5, Game: "Pong", StartTime: clock.NowUTC()})
	y.SetMetadata("c", stream.Details{DisplayName: "C", Description: "offline for now"})

	set.Refresh(c)
	first := set.Snapshots()

	fixed.Add(time.Minute)
	set.Refresh(c)

	assert.Equal(t, first, set.Snapshots())
}

func TestOfflineMetadataIsRefreshed(t *testing.T) {
	set, _, y := setupSet(t, monitor.Config{})

	m := mustAdd(t, set, "y", "c")
	y.SetMetadata("c", stream.Details{DisplayName: "Channel C"})

	set.Refresh(context.Background())

	_, offline := y.Calls()
	assert.Equal(t, 1, offline)
	assert.Equal(t, "Channel C", m.Snapshot().DisplayName)
	assert.Equal(t, stream.Offline, m.State())
}

func TestMembership(t *testing.T) {
	store := &storeT{}
	set, _, _ := setupSet(t, monitor.Config{Store: store})
	c := context.Background()

	id, err := set.Identify("x", " Foo ")
	require.NoError(t, err)
	assert.Equal(t, stream.NewIdentifier("x", "foo"), id)

	_, err = set.Identify("z", "foo")
	assert.ErrorIs(t, err, provider.ErrUnknownProvider)

	_, err = set.Add(c, stream.NewIdentifier("z", "foo"))
	assert.ErrorIs(t, err, provider.ErrUnknownProvider)

	_, err = set.Add(c, id)
	require.NoError(t, err)

	_, err = set.Add(c, id)
	assert.ErrorIs(t, err, monitor.ErrAlreadyMonitored)

	mustAdd(t, set, "y", "bar")
	assert.Equal(t, []stream.Channel{
		{Identifier: stream.NewIdentifier("x", "foo")},
		{Identifier: stream.NewIdentifier("y", "bar")},
	}, store.channels)

	require.NoError(t, set.Remove(c, id))
	assert.ErrorIs(t, set.Remove(c, id), monitor.ErrNotMonitored)
	assert.Equal(t, []stream.Channel{{Identifier: stream.NewIdentifier("y", "bar")}}, store.channels)

	_, ok := set.Get(id)
	assert.False(t, ok)
	assert.Equal(t, 1, set.Len())
}

func TestFailedSaveLeavesSetUnchanged(t *testing.T) {
	store := &storeT{err: errors.New("disk full")}
	set, _, _ := setupSet(t, monitor.Config{Store: store})

	_, err := set.Add(context.Background(), stream.NewIdentifier("x", "foo"))
	assert.Error(t, err)
	assert.Zero(t, set.Len())
}

func TestLoad(t *testing.T) {
	store := &storeT{
		channels: []stream.Channel{
			{Identifier: stream.Identifier{Provider: "x", ChannelID: "Foo"}, DisplayName: "FOO"},
			{Identifier: stream.NewIdentifier("gone", "bar")},
		},
		exclusions: []stream.Identifier{stream.NewIdentifier("x", "FOO")},
	}
	set, _, _ := setupSet(t, monitor.Config{Store: store})
	c := context.Background()

	require.NoError(t, set.Load(c))

	ss := set.Snapshots()
	require.Len(t, ss, 1)
	assert.Equal(t, stream.NewIdentifier("x", "foo"), ss[0].Identifier)
	assert.Equal(t, "FOO", ss[0].DisplayName)
	assert.True(t, ss[0].DontNotify)

	require.NoError(t, set.Include(c, ss[0].Identifier))
	assert.Empty(t, store.exclusions)
	assert.False(t, set.Excluded(ss[0].Identifier))

	m, ok := set.Get(ss[0].Identifier)
	require.True(t, ok)
	assert.False(t, m.DontNotify())
}

func TestIdentifiersAreNormalised(t *testing.T) {
	set, x, _ := setupSet(t, monitor.Config{})
	c := context.Background()
	foo := stream.NewIdentifier("x", "foo")

	m, err := set.Add(c, stream.NewIdentifier("x", "Foo"))
	require.NoError(t, err)
	assert.Equal(t, foo, m.Identifier())

	_, err = set.Add(c, stream.NewIdentifier("x", "FOO"))
	assert.ErrorIs(t, err, monitor.ErrAlreadyMonitored)

	require.NoError(t, set.Exclude(c, stream.NewIdentifier("x", "FOO")))
	assert.True(t, set.Excluded(foo))
	assert.Equal(t, []stream.Identifier{foo}, set.Exclusions())

	set.Refresh(c)
	require.Equal(t, stream.Offline, m.State())

	x.SetLive("foo", stream.Details{ID: "s1", Viewers: 5})
	report := set.Refresh(c)

	assert.Equal(t, stream.Live, m.State())
	require.Len(t, report.Live, 1)
	assert.Empty(t, report.Notifications)

	got, ok := set.Get(stream.NewIdentifier("x", "fOo"))
	require.True(t, ok)
	assert.Same(t, m, got)

	assert.ErrorIs(t, set.Exclude(c, stream.NewIdentifier("z", "foo")), provider.ErrUnknownProvider)

	require.NoError(t, set.Remove(c, stream.NewIdentifier("x", "FoO")))
	assert.Zero(t, set.Len())
}

func TestCancelledTickMergesCompletedChannels(t *testing.T) {
	set, x, _ := setupSet(t, monitor.Config{})

	live := mustAdd(t, set, "x", "live")
	quiet := mustAdd(t, set, "x", "quiet")
	slow := mustAdd(t, set, "x", "slow")

	x.SetLive("slow", stream.Details{ID: "s0", Viewers: 3})
	set.Refresh(context.Background())
	prevSlow := slow.Snapshot()
	require.True(t, prevSlow.Live())

	x.SetLive("live", stream.Details{ID: "s1", Viewers: 7})
	hanging := x.Block("slow")

	c, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		<-hanging
		cancel()
	}()

	report := set.Refresh(c)

	assert.Equal(t, stream.Live, live.State())
	assert.Equal(t, int64(7), live.Snapshot().Viewers)
	assert.Equal(t, stream.Offline, quiet.State())
	assert.Equal(t, prevSlow, slow.Snapshot(), "slow keeps its last known state")

	assert.Empty(t, report.Failures)
	assert.Empty(t, report.ProviderErrors)
	require.Len(t, report.Offline, 1)
	assert.Equal(t, quiet.Identifier(), report.Offline[0].Identifier)
}

//
// HELPERS
//

func setupSet(t *testing.T, cfg monitor.Config) (*monitor.Set, *testutil.Provider, *testutil.Provider) {
	t.Helper()

	x := testutil.NewProvider("x")
	y := testutil.NewProvider("y")

	providers, err := provider.NewRegistry(x, y)
	require.NoError(t, err)

	cfg.Providers = providers

	return monitor.New(cfg), x, y
}

func mustAdd(t *testing.T, set *monitor.Set, providerName, channel string) *stream.Model {
	t.Helper()

	id, err := set.Identify(providerName, channel)
	require.NoError(t, err)

	m, err := set.Add(context.Background(), id)
	require.NoError(t, err)

	return m
}

type storeT struct {
	mu         sync.Mutex
	channels   []stream.Channel
	exclusions []stream.Identifier
	err        error
}

func (s *storeT) LoadChannels(c context.Context) ([]stream.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.channels, nil
}

func (s *storeT) SaveChannels(c context.Context, channels []stream.Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	s.channels = channels

	return nil
}

func (s *storeT) LoadExclusions(c context.Context) ([]stream.Identifier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.exclusions, nil
}

func (s *storeT) SaveExclusions(c context.Context, ids []stream.Identifier) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	s.exclusions = ids

	return nil
}
