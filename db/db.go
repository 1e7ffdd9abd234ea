package db

import (
	"context"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/TeamTenuki/livewatch/config"
)

var db *sqlx.DB

// Init initialises the DB connection, so that is now possible
// to put it into context using NewContext function.
// The DB file will be placed at given path, or, if path is an empty string,
// at "livewatch.db" in the default config directory (see config.Dir).
func Init(path string) (err error) {
	dbFilepath := path

	if path == "" {
		configDir, err := config.Dir()
		if err != nil {
			return err
		}

		dbFilepath = filepath.Join(configDir, "livewatch.db")
	}

	db, err = sqlx.Open("sqlite3", dbFilepath)
	if err != nil {
		return err
	}

	// Every connection to ":memory:" opens its own empty database.
	db.SetMaxOpenConns(1)

	return nil
}

// MustInit calls Init and panics on errors.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(err)
	}
}

// Close closes the connection opened by Init.
func Close() error {
	if db == nil {
		return nil
	}

	return db.Close()
}

type contextKey int

const (
	dbContextKey contextKey = iota
)

// NewContext returns a context with DB connection in it.
// The connection is retrievable with FromContext function.
func NewContext(c context.Context) context.Context {
	return context.WithValue(c, dbContextKey, db)
}

// FromContext retrieves a DB connection from context.
// Function will crash if supplied context wasn't created by NewContext.
func FromContext(c context.Context) *sqlx.DB {
	return c.Value(dbContextKey).(*sqlx.DB)
}

// SetupDB creates missing tables.
func SetupDB(c context.Context) {
	db := FromContext(c)

	db.MustExecContext(c, `CREATE TABLE IF NOT EXISTS [rooms] (
		[room_id] TEXT NOT NULL, UNIQUE ([room_id])
	)`)

	db.MustExecContext(c, `CREATE TABLE IF NOT EXISTS [reports] (
		[provider]    TEXT NOT NULL,
		[channel_id]  TEXT NOT NULL,
		[stream_id]   TEXT NOT NULL,
		[started_at]  TEXT NOT NULL,
		[observed_at] TEXT NOT NULL,

		UNIQUE ([provider], [stream_id], [started_at])
	)`)

	db.MustExecContext(c, `CREATE TABLE IF NOT EXISTS [channels] (
		[provider]     TEXT NOT NULL,
		[channel_id]   TEXT NOT NULL,
		[display_name] TEXT NOT NULL DEFAULT '',

		UNIQUE ([provider], [channel_id])
	)`)

	db.MustExecContext(c, `CREATE TABLE IF NOT EXISTS [exclusions] (
		[provider]   TEXT NOT NULL,
		[channel_id] TEXT NOT NULL,

		UNIQUE ([provider], [channel_id])
	)`)
}
