package stream

import "time"

// ResultKind tags a QueryResult.
type ResultKind int

const (
	// Success carries fresh live details.
	Success ResultKind = iota

	// NotFound means the channel is offline or absent, which is a normal outcome.
	NotFound

	// Failed means the query errored and the last known state should be kept.
	Failed
)

func (k ResultKind) String() string {
	switch k {
	case Success:
		return "success"
	case NotFound:
		return "not found"
	default:
		return "failed"
	}
}

// QueryResult is an outcome of a single channel query.
type QueryResult struct {
	Kind       ResultKind
	Identifier Identifier

	// Details are set for Success only.
	Details Details

	// Err is set for Failed only.
	Err error
}

func Succeeded(id Identifier, d Details) QueryResult {
	return QueryResult{Kind: Success, Identifier: id, Details: d}
}

func Missing(id Identifier) QueryResult {
	return QueryResult{Kind: NotFound, Identifier: id}
}

func Errored(id Identifier, err error) QueryResult {
	return QueryResult{Kind: Failed, Identifier: id, Err: err}
}

// Game is a category streams are listed under.
type Game struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	BoxArtURL string `json:"box_art_url"`
}

// Vod is a recorded video of a past broadcast.
type Vod struct {
	ID         string
	Title      string
	URL        string
	Type       string
	Length     time.Duration
	Views      int64
	RecordedAt time.Time
	PreviewURL string
}

// TopStreamQuery selects the most watched streams, optionally of a single game.
type TopStreamQuery struct {
	Game string
	Skip int
	Take int
}

// VodQuery selects recorded videos of a channel.
type VodQuery struct {
	ChannelID string
	Type      string
	Skip      int
	Take      int
}
