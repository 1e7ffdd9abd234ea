package monitor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/TeamTenuki/livewatch/clock"
	"github.com/TeamTenuki/livewatch/provider"
	"github.com/TeamTenuki/livewatch/stream"
)

// ErrProviderPanic wraps a panic raised by a provider during a refresh.
var ErrProviderPanic = errors.New("provider panicked")

// Report is the outcome of a single refresh tick.
type Report struct {
	// At is the instant the tick started.
	At time.Time

	// Live are all monitored channels live after the tick.
	Live []stream.Snapshot

	// Offline are the channels confirmed offline by the tick.
	Offline []stream.Snapshot

	// Failures are channels whose query failed. Their last known state is kept.
	Failures []stream.Failure

	// ProviderErrors maps names of providers that failed entirely to the cause.
	// Channels of such providers keep their last known state.
	ProviderErrors map[string]error

	// Notifications are channels that went live during the tick and are not
	// excluded from notifications.
	Notifications []stream.Snapshot
}

// Err joins provider errors, or returns nil if every provider responded.
func (r *Report) Err() error {
	names := make([]string, 0, len(r.ProviderErrors))
	for name := range r.ProviderErrors {
		names = append(names, name)
	}
	sort.Strings(names)

	errs := make([]error, len(names))
	for i, name := range names {
		errs[i] = fmt.Errorf("%s: %w", name, r.ProviderErrors[name])
	}

	return errors.Join(errs...)
}

type providerBatch struct {
	name  string
	batch provider.Batch
	err   error
}

// Refresh runs a single tick: every provider refreshes its channels
// concurrently, offline channels get their metadata refreshed and are put
// offline, and live transitions are turned into notifications.
//
// Refresh never fails. Cancelling c yields a partial tick: channels whose
// queries did not complete keep their state.
func (s *Set) Refresh(c context.Context) Report {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	report := Report{
		At:             clock.NowUTC(),
		ProviderErrors: make(map[string]error),
	}

	groups := s.partition()

	before := make(map[*stream.Model]stream.State)
	for _, ms := range groups {
		for _, m := range ms {
			before[m] = m.State()
		}
	}

	var (
		g       errgroup.Group
		mu      sync.Mutex
		batches = make([]providerBatch, 0, len(groups))
	)

	for name, ms := range groups {
		p, err := s.providers.Get(name)
		if err != nil {
			// Channels are only added for registered providers.
			report.ProviderErrors[name] = err
			continue
		}

		g.Go(func() error {
			batch, err := refreshProvider(c, p, ms)

			mu.Lock()
			batches = append(batches, providerBatch{name: name, batch: batch, err: err})
			mu.Unlock()

			return nil
		})
	}

	g.Wait()

	for _, pb := range batches {
		if pb.err != nil {
			log.Printf("Failed to refresh %s streams: %s", pb.name, pb.err)
			report.ProviderErrors[pb.name] = pb.err
			continue
		}

		report.Failures = append(report.Failures, pb.batch.Failures...)
		for _, m := range pb.batch.Offline {
			report.Offline = append(report.Offline, m.Snapshot())
		}
	}

	for _, ms := range groups {
		for _, m := range ms {
			snap := m.Snapshot()
			if !snap.Live() {
				continue
			}

			report.Live = append(report.Live, snap)

			if s.notifies(before[m], snap) {
				report.Notifications = append(report.Notifications, snap)
			}
		}
	}

	sortSnapshots(report.Live)
	sortSnapshots(report.Offline)
	sortSnapshots(report.Notifications)
	sort.Slice(report.Failures, func(i, j int) bool {
		return report.Failures[i].Identifier.Less(report.Failures[j].Identifier)
	})

	return report
}

// notifies decides whether a channel found live should raise a notification.
// Exclusion suppresses the notification only, the transition happens anyway.
func (s *Set) notifies(prev stream.State, snap stream.Snapshot) bool {
	switch prev {
	case stream.Live:
		return false
	case stream.Unknown:
		if !s.firstSight {
			return false
		}
	}

	return !snap.DontNotify && !s.Excluded(snap.Identifier)
}

// partition groups monitored models by provider.
func (s *Set) partition() map[string][]*stream.Model {
	groups := make(map[string][]*stream.Model)
	for _, m := range s.Models() {
		name := m.Identifier().Provider
		groups[name] = append(groups[name], m)
	}

	return groups
}

// refreshProvider refreshes the channels of a single provider. An error means
// the provider failed as a whole and no channel was put offline.
func refreshProvider(c context.Context, p provider.Client, ms []*stream.Model) (batch provider.Batch, err error) {
	defer func() {
		if r := recover(); r != nil {
			batch, err = provider.Batch{}, fmt.Errorf("%w: %v", ErrProviderPanic, r)
		}
	}()

	batch, err = p.RefreshOnline(c, ms)
	if err != nil {
		return provider.Batch{}, err
	}

	if len(batch.Offline) > 0 {
		refreshOffline(c, p, batch.Offline)
	}

	for _, m := range batch.Offline {
		m.Offline()
	}

	return batch, nil
}

// refreshOffline only logs failures: missing metadata never blocks the offline transition.
func refreshOffline(c context.Context, p provider.Client, ms []*stream.Model) {
	name := p.Capabilities().Name

	defer func() {
		if r := recover(); r != nil {
			log.Printf("Failed to refresh offline %s streams: %v: %v", name, ErrProviderPanic, r)
		}
	}()

	if err := p.RefreshOffline(c, ms); err != nil {
		log.Printf("Failed to refresh offline %s streams: %s", name, err)
	}
}

func sortSnapshots(ss []stream.Snapshot) {
	sort.Slice(ss, func(i, j int) bool {
		return ss[i].Identifier.Less(ss[j].Identifier)
	})
}
