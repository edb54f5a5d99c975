// Package cache holds per-observation fetch state for a dashboard session.
//
// Every key moves through absent -> loading -> loaded | failed. A key that is
// loading is never dispatched twice, a loaded key is never fetched again, and a
// failed key is only re-dispatched through Retry. Transitions happen under a
// single lock by replacing map entries, so readers never see half a record.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/i474232898/solar-fits-dashboard/internal/observation"
)

// ErrNotRetryable is returned by Retry when the key is not in the failed state.
var ErrNotRetryable = errors.New("only failed entries can be retried")

// Options tune a FetchCache.
type Options struct {
	// Timeout bounds each upstream call (0 = no per-call deadline).
	Timeout time.Duration

	// OnSettle, if set, is called after a key reaches loaded or failed and
	// before Wait returns for it. It runs outside the cache lock.
	OnSettle func(key observation.Key, state State)
}

type entry struct {
	state  State
	done   chan struct{}
	cancel context.CancelFunc
}

// FetchCache maps observation keys to fetch state.
type FetchCache struct {
	ctx     context.Context
	fetcher Fetcher
	opts    Options

	mu      sync.RWMutex
	entries map[observation.Key]*entry
	stats   Stats
}

// New creates a FetchCache. Cancelling ctx cancels every in-flight fetch.
func New(ctx context.Context, fetcher Fetcher, opts Options) *FetchCache {
	return &FetchCache{
		ctx:     ctx,
		fetcher: fetcher,
		opts:    opts,
		entries: make(map[observation.Key]*entry),
	}
}

// Request returns the state of key, dispatching a fetch only if the key is absent.
func (c *FetchCache) Request(key observation.Key) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		if e.state.Status == StatusLoading {
			c.stats.Coalesced++
		} else {
			c.stats.Hits++
		}
		return e.state
	}
	return c.startLocked(key).state
}

// Retry re-dispatches a failed key. Any other state is returned unchanged
// together with ErrNotRetryable.
func (c *FetchCache) Retry(key observation.Key) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return absent, fmt.Errorf("%w: %s is absent", ErrNotRetryable, key)
	}
	if e.state.Status != StatusFailed {
		return e.state, fmt.Errorf("%w: %s is %s", ErrNotRetryable, key, e.state.Status)
	}
	return c.startLocked(key).state, nil
}

// Get returns the current state of key without side effects.
func (c *FetchCache) Get(key observation.Key) State {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if e, ok := c.entries[key]; ok {
		return e.state
	}
	return absent
}

// Wait blocks until the current attempt for key settles or ctx is done, then
// returns the state at that moment.
func (c *FetchCache) Wait(ctx context.Context, key observation.Key) (State, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return absent, nil
	}

	select {
	case <-e.done:
		return c.Get(key), nil
	case <-ctx.Done():
		return c.Get(key), ctx.Err()
	}
}

// Forget abandons an in-flight fetch: the call is cancelled, the key returns to
// absent and a late result is dropped. Loaded and failed keys are kept.
// It reports whether anything was abandoned.
func (c *FetchCache) Forget(key observation.Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || e.state.Status != StatusLoading {
		return false
	}
	e.cancel()
	delete(c.entries, key)
	close(e.done)
	return true
}

// Snapshot returns a consistent copy of every known key's state.
func (c *FetchCache) Snapshot() map[observation.Key]State {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[observation.Key]State, len(c.entries))
	for k, e := range c.entries {
		out[k] = e.state
	}
	return out
}

// Stats returns the request counters and the current state distribution.
func (c *FetchCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := c.stats
	for _, e := range c.entries {
		switch e.state.Status {
		case StatusLoading:
			s.Loading++
		case StatusLoaded:
			s.Loaded++
		case StatusFailed:
			s.Failed++
		}
	}
	return s
}

// startLocked installs a fresh loading entry and dispatches its fetch.
// c.mu must be held.
func (c *FetchCache) startLocked(key observation.Key) *entry {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if c.opts.Timeout > 0 {
		ctx, cancel = context.WithTimeout(c.ctx, c.opts.Timeout)
	} else {
		ctx, cancel = context.WithCancel(c.ctx)
	}

	e := &entry{
		state:  State{Status: StatusLoading},
		done:   make(chan struct{}),
		cancel: cancel,
	}
	c.entries[key] = e
	c.stats.Dispatched++

	log.Printf("DEBUG: cache: dispatching fetch for %s", key)
	go c.run(ctx, key, e)
	return e
}

func (c *FetchCache) run(ctx context.Context, key observation.Key, e *entry) {
	defer e.cancel()

	next := c.fetch(ctx, key)

	c.mu.Lock()
	if cur, ok := c.entries[key]; !ok || cur != e {
		// Forgotten (or superseded) while in flight.
		c.mu.Unlock()
		log.Printf("DEBUG: cache: dropping late result for %s", key)
		return
	}
	e.state = next
	c.mu.Unlock()

	if next.Status == StatusFailed {
		log.Printf("ERROR: cache: fetch for %s failed: %v", key, next.Err)
	}
	if c.opts.OnSettle != nil {
		c.opts.OnSettle(key, next)
	}
	// Waiters wake only after observers have seen the transition.
	close(e.done)
}

func (c *FetchCache) fetch(ctx context.Context, key observation.Key) State {
	payload, err := c.fetcher.FITSData(ctx, key)
	if err == nil {
		rec, verr := payload.Record()
		if verr == nil {
			return State{Status: StatusLoaded, Record: rec}
		}
		err = verr
	}

	switch {
	case errors.Is(err, observation.ErrTimeout), errors.Is(err, observation.ErrCanceled):
		// already classified
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		err = fmt.Errorf("%w: %v", observation.ErrTimeout, err)
	case errors.Is(ctx.Err(), context.Canceled):
		err = fmt.Errorf("%w: %v", observation.ErrCanceled, err)
	}
	return State{Status: StatusFailed, Err: err}
}
