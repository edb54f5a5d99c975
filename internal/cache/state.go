package cache

import (
	"context"

	"github.com/i474232898/solar-fits-dashboard/internal/observation"
)

// Status is the lifecycle position of one key in the cache.
type Status string

const (
	StatusAbsent  Status = "absent"
	StatusLoading Status = "loading"
	StatusLoaded  Status = "loaded"
	StatusFailed  Status = "failed"
)

// State is the tagged fetch state of a key. Record is meaningful only when
// Status is StatusLoaded and Err only when Status is StatusFailed.
type State struct {
	Status Status
	Record observation.Record
	Err    error
}

// Settled reports whether the state is terminal for the current attempt.
func (s State) Settled() bool {
	return s.Status == StatusLoaded || s.Status == StatusFailed
}

var absent = State{Status: StatusAbsent}

// Fetcher retrieves the derived data of one observation.
type Fetcher interface {
	FITSData(ctx context.Context, key observation.Key) (observation.Payload, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, key observation.Key) (observation.Payload, error)

func (f FetcherFunc) FITSData(ctx context.Context, key observation.Key) (observation.Payload, error) {
	return f(ctx, key)
}

// Stats are counters describing how requests were served.
type Stats struct {
	Dispatched uint64 `json:"dispatched"`
	Coalesced  uint64 `json:"coalesced"`
	Hits       uint64 `json:"hits"`

	Loading int `json:"loading"`
	Loaded  int `json:"loaded"`
	Failed  int `json:"failed"`
}
