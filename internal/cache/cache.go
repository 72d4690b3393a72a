// Package cache memoizes icon URL resolution. Fleets share a handful of icon
// images across many vessels, so each URL is checked against the asset server
// once and every later sighting reuses the verdict.
package cache

import (
	"fmt"
	"net/http"
	"sync"
	"time"
)

// Fetcher checks that an icon URL is resolvable. A nil error means the icon
// can be drawn; any error sends the overlay to its fallback marker.
type Fetcher func(url string) error

// IconCache caches per-URL resolution verdicts. Latency here sits on the
// first-sighting path of every vessel, so hits must stay lock-and-return.
type IconCache struct {
	m       sync.Mutex
	results map[string]error
	fetch   Fetcher

	hits   SafeCounter
	misses SafeCounter
}

// NewIconCache creates a cache around fetch. A nil fetch uses an HTTP HEAD
// probe with a short timeout.
func NewIconCache(fetch Fetcher) *IconCache {
	if fetch == nil {
		fetch = headProbe
	}
	return &IconCache{
		results: make(map[string]error),
		fetch:   fetch,
	}
}

// Resolve returns the cached verdict for url, fetching on first sight. Both
// successes and failures are cached; a missing icon stays missing for the
// session rather than re-probing on every restyle.
func (c *IconCache) Resolve(url string) error {
	c.m.Lock()
	if err, ok := c.results[url]; ok {
		c.m.Unlock()
		c.hits.Inc()
		return err
	}
	c.m.Unlock()
	c.misses.Inc()

	err := c.fetch(url)

	c.m.Lock()
	c.results[url] = err
	c.m.Unlock()
	return err
}

// Reset drops all cached verdicts.
func (c *IconCache) Reset() {
	c.m.Lock()
	defer c.m.Unlock()
	c.results = make(map[string]error)
}

// Len reports how many URLs have a cached verdict.
func (c *IconCache) Len() int {
	c.m.Lock()
	defer c.m.Unlock()
	return len(c.results)
}

// Stats reports cache hits and misses since creation.
func (c *IconCache) Stats() (hits, misses int) {
	return c.hits.Value(), c.misses.Value()
}

func headProbe(url string) error {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Head(url)
	if err != nil {
		return fmt.Errorf("probing icon: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("icon %s: status %d", url, resp.StatusCode)
	}
	return nil
}

// SafeCounter is a thread-safe counter.
type SafeCounter struct {
	mu sync.Mutex
	v  int
}

func (c *SafeCounter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

func (c *SafeCounter) Set(v int) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
}

func (c *SafeCounter) Inc() {
	c.mu.Lock()
	c.v++
	c.mu.Unlock()
}
