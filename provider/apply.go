package provider

import (
	"log"

	"github.com/TeamTenuki/livewatch/stream"
)

// Apply writes query results into the models they belong to and sorts the
// rest into the returned Batch. A channel may yield several results (e.g. one
// per live video); a success wins over a failure, which wins over not found.
// Models without any result are left untouched.
func Apply(ms []*stream.Model, results []stream.QueryResult) Batch {
	best := make(map[stream.Identifier]stream.QueryResult, len(results))
	for _, r := range results {
		prev, seen := best[r.Identifier]
		if !seen || rank(r.Kind) < rank(prev.Kind) {
			best[r.Identifier] = r
		}
	}

	var b Batch
	for _, m := range ms {
		r, ok := best[m.Identifier()]
		if !ok {
			continue
		}

		switch r.Kind {
		case stream.Success:
			m.SetLive(r.Details)
		case stream.NotFound:
			b.Offline = append(b.Offline, m)
		default:
			log.Printf("Failed to query %s: %s", r.Identifier, r.Err)
			b.Failures = append(b.Failures, stream.Failure{Identifier: r.Identifier, Err: r.Err})
		}
	}

	return b
}

func rank(k stream.ResultKind) int {
	switch k {
	case stream.Success:
		return 0
	case stream.Failed:
		return 1
	default:
		return 2
	}
}

// Chunk splits models into groups of at most n, for services accepting
// several channels in one request.
func Chunk(ms []*stream.Model, n int) [][]*stream.Model {
	if n <= 0 {
		n = len(ms)
	}

	chunks := make([][]*stream.Model, 0, (len(ms)+n-1)/max(n, 1))
	for len(ms) > 0 {
		end := min(n, len(ms))
		chunks = append(chunks, ms[:end])
		ms = ms[end:]
	}

	return chunks
}
