// Package catalog keeps the ordered file list of each year, loaded lazily.
package catalog

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Lister retrieves the filenames of a year in server order.
type Lister interface {
	Files(ctx context.Context, year string) ([]string, error)
}

// FileCatalog maps a year to its filenames. A year is stored at most once and
// only after a successful retrieval; failures leave it absent.
type FileCatalog struct {
	ctx     context.Context
	lister  Lister
	timeout time.Duration
	group   singleflight.Group

	mu    sync.RWMutex
	years map[string][]string
}

// New creates an empty FileCatalog. Retrievals run on ctx, bounded by timeout
// when it is positive, so canceling ctx abandons them.
func New(ctx context.Context, lister Lister, timeout time.Duration) *FileCatalog {
	return &FileCatalog{
		ctx:     ctx,
		lister:  lister,
		timeout: timeout,
		years:   make(map[string][]string),
	}
}

// EnsureLoaded returns the filenames of year, retrieving them on first use.
// Concurrent callers for the same year share a single retrieval; a caller whose
// ctx ends stops waiting without failing the others.
func (c *FileCatalog) EnsureLoaded(ctx context.Context, year string) ([]string, error) {
	if files, ok := c.Get(year); ok {
		return files, nil
	}

	ch := c.group.DoChan(year, func() (interface{}, error) {
		if files, ok := c.Get(year); ok {
			return files, nil
		}
		return c.load(year)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("catalog %s: %w", year, res.Err)
		}
		return clone(res.Val.([]string)), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("catalog %s: %w", year, ctx.Err())
	}
}

func (c *FileCatalog) load(year string) ([]string, error) {
	ctx, cancel := c.ctx, context.CancelFunc(func() {})
	if c.timeout > 0 {
		ctx, cancel = context.WithTimeout(c.ctx, c.timeout)
	}
	defer cancel()

	files, err := c.lister.Files(ctx, year)
	if err != nil {
		return nil, err
	}

	stored := clone(files)
	c.mu.Lock()
	if existing, ok := c.years[year]; ok {
		stored = existing
	} else {
		c.years[year] = stored
	}
	c.mu.Unlock()

	log.Printf("DEBUG: catalog: loaded %d files for %s", len(stored), year)
	return stored, nil
}

// Get returns a copy of the filenames of year, if loaded.
func (c *FileCatalog) Get(year string) ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	files, ok := c.years[year]
	if !ok {
		return nil, false
	}
	return clone(files), true
}

// clone copies files, keeping an empty list non-nil.
func clone(files []string) []string {
	out := make([]string, len(files))
	copy(out, files)
	return out
}

// Years returns the years currently loaded, in no particular order.
func (c *FileCatalog) Years() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, 0, len(c.years))
	for y := range c.years {
		out = append(out, y)
	}
	return out
}
