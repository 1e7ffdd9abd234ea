package db

import (
	"context"

	"github.com/TeamTenuki/livewatch/stream"
)

// ChannelsAll yields monitored channels ordered by provider and channel.
func ChannelsAll(c context.Context) ([]stream.Channel, error) {
	db := FromContext(c)

	channels := make([]stream.Channel, 0)
	err := db.SelectContext(
		c,
		&channels,
		`SELECT [provider], [channel_id], [display_name] FROM [channels] ORDER BY [provider], [channel_id]`,
	)

	return channels, err
}

// ChannelsReplace replaces the whole list of monitored channels in one transaction.
func ChannelsReplace(c context.Context, channels []stream.Channel) error {
	db := FromContext(c)

	tx, err := db.BeginTxx(c, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(c, `DELETE FROM [channels]`); err != nil {
		return err
	}

	for _, ch := range channels {
		_, err := tx.NamedExecContext(
			c,
			`INSERT OR REPLACE INTO [channels] ([provider], [channel_id], [display_name])
			VALUES (:provider, :channel_id, :display_name)`,
			ch,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ExclusionsAll yields channels excluded from live notifications.
func ExclusionsAll(c context.Context) ([]stream.Identifier, error) {
	db := FromContext(c)

	ids := make([]stream.Identifier, 0)
	err := db.SelectContext(c, &ids, `SELECT [provider], [channel_id] FROM [exclusions] ORDER BY [provider], [channel_id]`)

	return ids, err
}

// ExclusionsReplace replaces the whole exclusion set in one transaction.
func ExclusionsReplace(c context.Context, ids []stream.Identifier) error {
	db := FromContext(c)

	tx, err := db.BeginTxx(c, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(c, `DELETE FROM [exclusions]`); err != nil {
		return err
	}

	for _, id := range ids {
		_, err := tx.ExecContext(
			c,
			`INSERT OR IGNORE INTO [exclusions] ([provider], [channel_id]) VALUES (?, ?)`,
			id.Provider,
			id.ChannelID,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Store persists the monitored channel list and the exclusion set.
// The DB is taken from the context of every call, see NewContext.
type Store struct{}

func (Store) LoadChannels(c context.Context) ([]stream.Channel, error) {
	return ChannelsAll(c)
}

func (Store) SaveChannels(c context.Context, channels []stream.Channel) error {
	return ChannelsReplace(c, channels)
}

func (Store) LoadExclusions(c context.Context) ([]stream.Identifier, error) {
	return ExclusionsAll(c)
}

func (Store) SaveExclusions(c context.Context, ids []stream.Identifier) error {
	return ExclusionsReplace(c, ids)
}
