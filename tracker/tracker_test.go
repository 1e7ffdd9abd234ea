package tracker_test

import (
	"testing"
	"time"

	"github.com/TeamTenuki/livewatch/clock"
	"github.com/TeamTenuki/livewatch/monitor"
	"github.com/TeamTenuki/livewatch/stream"
	"github.com/TeamTenuki/livewatch/testutil"
)

func TestStreamIsReported(t *testing.T) {
	fixed := setupClock(t)
	tr := testutil.NewTracker()

	tr.Send(wentLive(fixed.NowUTC(), live("user1", "stream1", fixed.NowUTC())))
	tr.CloseAndWait()

	expectStreamReports(t, tr.Room("room1").Streams, "stream1")
}

func TestInterleavedStreamReportIsReportedOnlyOnce(t *testing.T) {
	fixed := setupClock(t)
	tr := testutil.NewTracker()
	startedAt := fixed.NowUTC()

	tr.Send(wentLive(fixed.NowUTC(), live("user1", "stream1", startedAt)))

	fixed.Add(2 * time.Hour)
	tr.Send(monitor.Report{At: fixed.NowUTC()})
	tr.Send(wentLive(fixed.NowUTC(), live("user1", "stream1", startedAt)))
	tr.CloseAndWait()

	expectStreamReports(t, tr.Room("room1").Streams, "stream1")
}

func TestStreamRestartsWithinOneHourSingleReport(t *testing.T) {
	fixed := setupClock(t)
	tr := testutil.NewTracker()

	tr.Send(wentLive(fixed.NowUTC(), live("user1", "stream1", fixed.NowUTC())))

	fixed.Add(10 * time.Minute)
	tr.Send(monitor.Report{At: fixed.NowUTC()})
	tr.Send(wentLive(fixed.NowUTC(), live("user1", "stream2", fixed.NowUTC())))
	tr.CloseAndWait()

	expectStreamReports(t, tr.Room("room1").Streams, "stream1")
}

func TestStreamRestartsMoreThanHourGapBothReported(t *testing.T) {
	fixed := setupClock(t)
	tr := testutil.NewTracker()

	tr.Send(wentLive(fixed.NowUTC(), live("user1", "stream1", fixed.NowUTC())))

	fixed.Add(2 * time.Hour)
	tr.Send(wentLive(fixed.NowUTC(), live("user1", "stream2", fixed.NowUTC())))
	tr.CloseAndWait()

	expectStreamReports(t, tr.Room("room1").Streams, "stream1", "stream2")
}

func TestLongStreamIsObservedUntilItEnds(t *testing.T) {
	fixed := setupClock(t)
	tr := testutil.NewTracker()
	startedAt := fixed.NowUTC()
	s := live("user1", "stream1", startedAt)

	tr.Send(wentLive(fixed.NowUTC(), s))

	// Still live three hours later, then restarted right after going offline.
	fixed.Add(3 * time.Hour)
	tr.Send(monitor.Report{At: fixed.NowUTC(), Live: []stream.Snapshot{s}})
	tr.Send(monitor.Report{At: fixed.NowUTC()})

	testutil.VerifyObservedAt(t, tr.C, "twitch", "stream1", startedAt, fixed.NowUTC())

	fixed.Add(5 * time.Minute)
	tr.Send(wentLive(fixed.NowUTC(), live("user1", "stream2", fixed.NowUTC())))
	tr.CloseAndWait()

	testutil.LogReports(t, tr.C)
	expectStreamReports(t, tr.Room("room1").Streams, "stream1")
}

func TestLiveFollowsLatestReport(t *testing.T) {
	fixed := setupClock(t)
	tr := testutil.NewTracker()

	tr.Send(wentLive(fixed.NowUTC(), live("user1", "stream1", fixed.NowUTC())))
	tr.Send(monitor.Report{At: fixed.NowUTC()})
	tr.CloseAndWait()

	if n := len(tr.Tracker.Live()); n != 0 {
		t.Errorf("Expected nobody live, got %d streams", n)
	}
}

//
// HELPERS
//

func setupClock(t *testing.T) *clock.FixedClock {
	t.Cleanup(func() { clock.OverrideClock(nil) })

	return clock.OverrideByFixed(time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC))
}

func live(channel, streamID string, startedAt time.Time) stream.Snapshot {
	return stream.Snapshot{
		Details: stream.Details{
			ID:          streamID,
			DisplayName: channel,
			StartTime:   startedAt,
		},
		Identifier: stream.NewFoldedIdentifier("twitch", channel),
		State:      stream.Live,
	}
}

func wentLive(at time.Time, ss ...stream.Snapshot) monitor.Report {
	return monitor.Report{
		At:            at,
		Live:          ss,
		Notifications: ss,
	}
}

func expectStreamReports(t *testing.T, ss []*stream.Snapshot, ids ...string) {
	t.Helper()

	if len(ids) != len(ss) {
		t.Errorf("Expected %d reports got %d", len(ids), len(ss))
	}

	for _, s := range ss {
		exists := false
		for _, id := range ids {
			exists = exists || s.ID == id
		}

		if !exists {
			t.Errorf("Expected report for stream ID %q", s.ID)
		}
	}
}
