// Package session holds the state of one dashboard view: the year list, the
// selected year, the expanded file rows and the per-session fetch cache and
// file catalog. Sessions share nothing with each other.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/i474232898/solar-fits-dashboard/internal/aggregate"
	"github.com/i474232898/solar-fits-dashboard/internal/cache"
	"github.com/i474232898/solar-fits-dashboard/internal/catalog"
	"github.com/i474232898/solar-fits-dashboard/internal/observation"
)

// ErrYearsUnavailable marks a failed year-list load. Without years the session
// has nothing to browse; the load can be retried.
var ErrYearsUnavailable = errors.New("year list unavailable")

// Upstream is everything a session needs from the data service.
type Upstream interface {
	Years(ctx context.Context) ([]string, error)
	catalog.Lister
	cache.Fetcher
}

// Options configure new sessions.
type Options struct {
	// FetchTimeout bounds each per-file fetch.
	FetchTimeout time.Duration
}

// Status is a point-in-time description of a session for the dashboard.
type Status struct {
	ID            string            `json:"id"`
	Years         []string          `json:"years"`
	SelectedYear  string            `json:"selectedYear"`
	Expanded      []observation.Key `json:"expanded"`
	LastError     string            `json:"lastError,omitempty"`
	LastErrorKind observation.Kind  `json:"lastErrorKind,omitempty"`
	Cache         cache.Stats       `json:"cache"`
}

// Session is one dashboard view.
type Session struct {
	id       string
	ctx      context.Context
	cancel   context.CancelFunc
	upstream Upstream
	cache    *cache.FetchCache
	catalog  *catalog.FileCatalog

	mu         sync.RWMutex
	years      []string
	selected   string
	expanded   map[observation.Key]bool
	lastErr    error
	lastActive time.Time
}

// New creates a session whose in-flight work is bound to parent.
func New(parent context.Context, id string, up Upstream, opts Options) *Session {
	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		id:         id,
		ctx:        ctx,
		cancel:     cancel,
		upstream:   up,
		catalog:    catalog.New(ctx, up, opts.FetchTimeout),
		expanded:   make(map[observation.Key]bool),
		lastActive: time.Now(),
	}
	s.cache = cache.New(ctx, up, cache.Options{
		Timeout:  opts.FetchTimeout,
		OnSettle: s.onSettle,
	})
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// LoadYears fetches the year list unless it is already loaded. The first year
// becomes the selection if nothing is selected yet.
func (s *Session) LoadYears(ctx context.Context) ([]string, error) {
	s.touch()
	if years, ok := s.Years(); ok {
		return years, nil
	}

	years, err := s.upstream.Years(ctx)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrYearsUnavailable, err)
		s.recordError(err)
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.years == nil {
		s.years = append([]string{}, years...)
	}
	if s.selected == "" && len(s.years) > 0 {
		s.selected = s.years[0]
	}
	return append([]string(nil), s.years...), nil
}

// Years returns the loaded year list.
func (s *Session) Years() ([]string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.years == nil {
		return nil, false
	}
	return append([]string(nil), s.years...), true
}

// DefaultYear is the first year reported by the service, or "".
func (s *Session) DefaultYear() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.years) == 0 {
		return ""
	}
	return s.years[0]
}

// SelectedYear returns the current year selection.
func (s *Session) SelectedYear() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// SelectYear makes year the current selection and ensures its file list.
func (s *Session) SelectYear(ctx context.Context, year string) ([]string, error) {
	s.mu.Lock()
	s.selected = year
	s.mu.Unlock()

	return s.Files(ctx, year)
}

// Files returns the file list of year, loading it on first use.
func (s *Session) Files(ctx context.Context, year string) ([]string, error) {
	s.touch()
	files, err := s.catalog.EnsureLoaded(ctx, year)
	if err != nil {
		s.recordError(err)
		return nil, err
	}
	return files, nil
}

// Expand opens the row of key and requests its data.
func (s *Session) Expand(key observation.Key) cache.State {
	s.touch()
	s.mu.Lock()
	s.expanded[key] = true
	s.mu.Unlock()

	return s.cache.Request(key)
}

// Collapse closes the row of key. A fetch still in flight is abandoned.
func (s *Session) Collapse(key observation.Key) cache.State {
	s.touch()
	s.mu.Lock()
	delete(s.expanded, key)
	s.mu.Unlock()

	if s.cache.Forget(key) {
		log.Printf("DEBUG: session %s: abandoned fetch for %s", s.id, key)
	}
	return s.cache.Get(key)
}

// Retry re-requests a failed observation.
func (s *Session) Retry(key observation.Key) (cache.State, error) {
	s.touch()
	return s.cache.Retry(key)
}

// Observation returns the fetch state of key.
func (s *Session) Observation(key observation.Key) cache.State {
	s.touch()
	return s.cache.Get(key)
}

// Wait suspends until the current fetch of key settles or ctx is done.
func (s *Session) Wait(ctx context.Context, key observation.Key) (cache.State, error) {
	return s.cache.Wait(ctx, key)
}

// Aggregate recomputes the aggregate view of year from the cache.
func (s *Session) Aggregate(year string) aggregate.View {
	s.touch()
	return aggregate.Summarize(s.cache.Snapshot(), year)
}

// Status describes the session.
func (s *Session) Status() Status {
	s.mu.RLock()
	st := Status{
		ID:           s.id,
		Years:        append([]string{}, s.years...),
		SelectedYear: s.selected,
		Expanded:     make([]observation.Key, 0, len(s.expanded)),
	}
	for k := range s.expanded {
		st.Expanded = append(st.Expanded, k)
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
		st.LastErrorKind = observation.KindOf(s.lastErr)
	}
	s.mu.RUnlock()

	sort.Slice(st.Expanded, func(i, j int) bool {
		if st.Expanded[i].Year != st.Expanded[j].Year {
			return st.Expanded[i].Year < st.Expanded[j].Year
		}
		return st.Expanded[i].Filename < st.Expanded[j].Filename
	})
	st.Cache = s.cache.Stats()
	return st
}

// LastError returns the most recent failure seen by the session.
func (s *Session) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// LastActive returns the time of the last user-driven call.
func (s *Session) LastActive() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActive
}

// Close cancels every in-flight fetch of the session.
func (s *Session) Close() {
	s.cancel()
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActive = time.Now()
	s.mu.Unlock()
}

func (s *Session) recordError(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

func (s *Session) onSettle(key observation.Key, st cache.State) {
	if st.Status == cache.StatusFailed && s.ctx.Err() == nil {
		s.recordError(fmt.Errorf("%s: %w", key, st.Err))
	}
}
