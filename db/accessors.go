package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/TeamTenuki/livewatch/stream"
)

// Room of a messenger that is waiting for reports on new streams.
type Room struct {
	// ID of a room in a messenger-specific format.
	ID string
}

// RoomsAll yields all the rooms from the DB.
func RoomsAll(c context.Context) ([]Room, error) {
	db := FromContext(c)

	ids := make([]string, 0)
	err := db.SelectContext(c, &ids, `SELECT [room_id] FROM [rooms]`)
	if err != nil {
		return nil, err
	}

	rooms := make([]Room, len(ids))
	for i := range ids {
		rooms[i] = Room{ID: ids[i]}
	}

	return rooms, err
}

// ErrRoomExists is returned by RoomAdd for a room that is already added.
var ErrRoomExists = errors.New("room is already added")

// RoomAdd adds a room to be reported to.
func RoomAdd(c context.Context, roomID string) error {
	db := FromContext(c)

	res, err := db.ExecContext(c, `INSERT OR IGNORE INTO [rooms] ([room_id]) VALUES (?)`, roomID)
	if err != nil {
		return err
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrRoomExists
	}

	return nil
}

// RoomRemove removes a room. Removing an unknown room is not an error.
func RoomRemove(c context.Context, roomID string) error {
	db := FromContext(c)

	_, err := db.ExecContext(c, `DELETE FROM [rooms] WHERE [room_id] = ?`, roomID)

	return err
}

// Report is a record of a successful report of a certain stream.
type Report struct {
	// Channel that went live.
	Channel stream.Identifier
	// ID of a particular stream.
	StreamID string
	// Timestamp of the stream start.
	StartedAt time.Time
	// Timestamp of the latest observation of the stream being live.
	ObservedAt time.Time
}

// RawReport is a Report with unparsed timestamps, as it is stored in the DB.
type RawReport struct {
	stream.Identifier

	StreamID   string `db:"stream_id"`
	StartedAt  string `db:"started_at"`
	ObservedAt string `db:"observed_at"`
}

// Cook converts a RawReport into a Report.
//
// Returns error if it fails to parse time.
func (r *RawReport) Cook() (Report, error) {
	startedAt, err := time.Parse(time.RFC3339, r.StartedAt)
	if err != nil {
		return Report{}, err
	}

	observedAt, err := time.Parse(time.RFC3339, r.ObservedAt)
	if err != nil {
		return Report{}, err
	}

	actual := Report{
		Channel:    r.Identifier,
		StreamID:   r.StreamID,
		StartedAt:  startedAt,
		ObservedAt: observedAt,
	}

	return actual, nil
}

const reportColumns = `[provider], [channel_id], [stream_id], [started_at], [observed_at]`

// ReportStore stores a Report about a successful stream going live report.
func ReportStore(c context.Context, r Report) error {
	db := FromContext(c)

	_, err := db.ExecContext(
		c,
		`INSERT INTO [reports] (`+reportColumns+`) VALUES (?, ?, ?, ?, ?)`,
		r.Channel.Provider,
		r.Channel.ChannelID,
		r.StreamID,
		r.StartedAt.UTC().Format(time.RFC3339),
		r.ObservedAt.UTC().Format(time.RFC3339),
	)

	return err
}

// ReportObserveForStreams will update [observed_at] for every given stream of a provider.
func ReportObserveForStreams(c context.Context, provider string, streamIDs []string, at time.Time) error {
	if len(streamIDs) == 0 {
		return nil
	}

	db := FromContext(c)

	query, args, err := sqlx.In(
		`UPDATE [reports] SET [observed_at] = ? WHERE [provider] = ? AND [stream_id] IN (?)`,
		at.UTC().Format(time.RFC3339),
		provider,
		streamIDs,
	)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(c, db.Rebind(query), args...)

	return err
}

// ReportWasReported answers whether a certain stream was ever successfully reported.
func ReportWasReported(c context.Context, provider, streamID string) (bool, error) {
	db := FromContext(c)

	err := db.GetContext(
		c,
		new(string),
		`SELECT [started_at] FROM [reports] WHERE [provider] = ? AND [stream_id] = ? LIMIT 1`,
		provider,
		streamID,
	)

	if err == sql.ErrNoRows {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	return true, nil
}

// ReportLatestByChannel yields the most recently observed report of a channel.
//
// If there is no any reports, sql.ErrNoRows is propagated as a return value.
func ReportLatestByChannel(c context.Context, id stream.Identifier) (Report, error) {
	db := FromContext(c)

	var raw RawReport
	err := db.GetContext(
		c,
		&raw,
		`SELECT
			`+reportColumns+`
		FROM
			[reports]
		WHERE
			[provider] = ? AND [channel_id] = ?
		ORDER BY datetime([observed_at]) DESC
		LIMIT 1`,
		id.Provider,
		id.ChannelID,
	)

	if err != nil {
		return Report{}, err
	}

	return raw.Cook()
}
