package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/TeamTenuki/livewatch/db"
)

const reportColumns = `[provider], [channel_id], [stream_id], [started_at], [observed_at]`

// ReportFor selects the report of a stream of a provider. If there is no
// such report, sql.ErrNoRows is returned.
func ReportFor(c context.Context, provider, streamID string, startedAt time.Time) (db.Report, error) {
	var raw db.RawReport
	err := db.FromContext(c).GetContext(
		c,
		&raw,
		`SELECT `+reportColumns+` FROM [reports] WHERE [provider] = ? AND [stream_id] = ? AND [started_at] = ?`,
		provider,
		streamID,
		startedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return db.Report{}, err
	}

	return raw.Cook()
}

// VerifyObservedAt checks when a reported stream was last observed live.
func VerifyObservedAt(t *testing.T, c context.Context, provider, streamID string, startedAt time.Time, expectedTime time.Time) {
	t.Helper()

	rep, err := ReportFor(c, provider, streamID, startedAt)
	if err != nil {
		t.Errorf("Failed to retrieve reports: %s", err)
		return
	}

	if !rep.ObservedAt.Equal(expectedTime.Truncate(time.Second)) {
		t.Errorf("Time mismatch, expected %q, got %q", expectedTime, rep.ObservedAt)
	}
}

// LogReports logs every stored report.
func LogReports(t *testing.T, c context.Context) {
	t.Helper()

	var raws []db.RawReport
	if err := db.FromContext(c).SelectContext(c, &raws, `SELECT `+reportColumns+` FROM [reports]`); err != nil {
		t.Errorf("Failed to retrieve reports: %s", err)
		return
	}

	for i := range raws {
		rep, err := raws[i].Cook()
		if err != nil {
			t.Errorf("Failed to parse report: %s", err)
			continue
		}
		t.Logf("%#v", rep)
	}
}
