package tracker

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/TeamTenuki/livewatch/clock"
	"github.com/TeamTenuki/livewatch/db"
	"github.com/TeamTenuki/livewatch/messenger"
	"github.com/TeamTenuki/livewatch/monitor"
	"github.com/TeamTenuki/livewatch/stream"
	"github.com/TeamTenuki/livewatch/watcher"
)

// RestartGap is how long a channel has to stay unobserved before its new
// stream is reported again. Restarts within the gap are one stream to a viewer.
const RestartGap = time.Hour

// Tracker reports notification-worthy streams of every tick to all rooms.
// Reports are kept in the DB, so a stream is reported once even across restarts.
type Tracker struct {
	w watcher.Watcher
	m messenger.Messenger

	mu   sync.RWMutex
	live []stream.Snapshot
}

func NewTracker(w watcher.Watcher, m messenger.Messenger) *Tracker {
	return &Tracker{
		w:    w,
		m:    m,
		live: make([]stream.Snapshot, 0),
	}
}

// Track consumes reports until the watcher's source is closed.
// The DB is taken from c, see db.NewContext.
func (t *Tracker) Track(c context.Context) {
	go t.w.Watch(c)

	for report := range t.w.Source() {
		for _, f := range report.Failures {
			log.Printf("Failed to refresh %s: %s", f.Identifier, f.Err)
		}

		t.observe(c, report)

		reportable := t.excludeReported(c, report.Notifications)
		if len(reportable) > 0 {
			t.reportAll(c, reportable, report.At)
		}

		t.mu.Lock()
		t.live = report.Live
		t.mu.Unlock()
	}
}

// Live returns streams that were live at the latest tick.
func (t *Tracker) Live() []stream.Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.live
}

func (t *Tracker) reportAll(c context.Context, ss []stream.Snapshot, at time.Time) {
	rooms, err := db.RoomsAll(c)
	if err != nil {
		log.Printf("Failed to retrieve rooms: %s", err)
		return
	}

	for i := range ss {
		s := &ss[i]

		err := db.ReportStore(c, db.Report{
			Channel:    s.Identifier,
			StreamID:   s.ID,
			StartedAt:  s.StartTime,
			ObservedAt: at,
		})
		if err != nil {
			log.Printf("Failed to store report on %s: %s", s.Identifier, err)
			continue
		}

		for _, r := range rooms {
			if err := t.m.MessageStream(c, r.ID, s); err != nil {
				log.Printf("Failed to report the stream %s to %s: %s", s.Identifier, r.ID, err)
			}
		}
	}
}

// observe keeps [observed_at] of reported streams current, which is what
// the restart gap is measured from.
func (t *Tracker) observe(c context.Context, report monitor.Report) {
	byProvider := make(map[string][]string)
	for _, s := range report.Live {
		byProvider[s.Identifier.Provider] = append(byProvider[s.Identifier.Provider], s.ID)
	}

	for provider, ids := range byProvider {
		if err := db.ReportObserveForStreams(c, provider, ids, report.At); err != nil {
			log.Printf("Failed to observe %s streams: %s", provider, err)
		}
	}
}

func (t *Tracker) excludeReported(c context.Context, ss []stream.Snapshot) []stream.Snapshot {
	reportable := make([]stream.Snapshot, 0, len(ss))

	for _, s := range ss {
		wasReported, err := db.ReportWasReported(c, s.Identifier.Provider, s.ID)
		if err != nil {
			log.Printf("Failed to check reports on %s: %s", s.Identifier, err)
			continue
		}

		if wasReported {
			continue
		}

		latest, err := db.ReportLatestByChannel(c, s.Identifier)
		if errors.Is(err, sql.ErrNoRows) {
			reportable = append(reportable, s)
			continue
		}

		if err != nil {
			log.Printf("Failed to retrieve last report: %s", err)
			continue
		}

		if clock.Since(latest.ObservedAt) > RestartGap {
			reportable = append(reportable, s)
		}
	}

	return reportable
}
