// Package mediacache keeps a small FIFO cache of downloaded direct media.
//
// A cached entry is a Handle to a local blob that players can open instead of
// the remote URL. The cache is bounded to MaxEntries; storing a new entry
// beyond that evicts the oldest insertion and releases its blob.
//
// Concurrent Prefetch calls for the same URL share one download. A caller
// whose context is cancelled stops waiting, but the shared download runs to
// completion so the other waiters (and the cache) still get the result.
package mediacache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/abelbrown/scrollbet/internal/logging"
	"github.com/abelbrown/scrollbet/internal/otel"
	"golang.org/x/sync/singleflight"
)

// DefaultMaxEntries bounds memory held by prefetched media.
const DefaultMaxEntries = 8

// Handle refers to a cached blob. The zero Handle means "not cached".
type Handle struct {
	URL  string // remote source
	Path string // local blob
	Size int64
}

// Valid reports whether h refers to a blob.
func (h Handle) Valid() bool { return h.Path != "" }

// FetchFunc opens the remote media at url.
type FetchFunc func(ctx context.Context, url string) (io.ReadCloser, error)

// Cache is safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[string]Handle
	order   []string // insertion order, oldest first
	max     int
	closed  bool

	group  singleflight.Group
	fetch  FetchFunc
	blobs  BlobStore
	events *otel.Logger
}

// Options configures a Cache. Zero values pick defaults.
type Options struct {
	MaxEntries int
	Fetch      FetchFunc
	Blobs      BlobStore
	Events     *otel.Logger
}

// New creates a Cache. Fetch and Blobs are required.
func New(opts Options) *Cache {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	return &Cache{
		entries: make(map[string]Handle),
		max:     opts.MaxEntries,
		fetch:   opts.Fetch,
		blobs:   opts.Blobs,
		events:  opts.Events,
	}
}

// Lookup returns the cached handle for url without side effects.
func (c *Cache) Lookup(url string) (Handle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.entries[url]
	return h, ok
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Cap returns the maximum number of entries.
func (c *Cache) Cap() int { return c.max }

// Prefetch returns the cached handle for url, downloading it if needed.
// A failed download returns false and leaves the cache unchanged.
func (c *Cache) Prefetch(ctx context.Context, url string) (Handle, bool) {
	if h, ok := c.Lookup(url); ok {
		c.events.Emit(otel.Event{Kind: otel.KindCacheHit, Comp: "cache", URL: url})
		return h, true
	}

	// The download outlives any single caller.
	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(url, func() (interface{}, error) {
		return c.load(detached, url)
	})

	select {
	case <-ctx.Done():
		return Handle{}, false
	case r := <-ch:
		if r.Err != nil {
			return Handle{}, false
		}
		return r.Val.(Handle), true
	}
}

// load runs once per coalesced group.
func (c *Cache) load(ctx context.Context, url string) (Handle, error) {
	// A previous group may have stored url after our Lookup missed.
	if h, ok := c.Lookup(url); ok {
		return h, nil
	}

	start := time.Now()
	h, err := c.download(ctx, url)
	if err != nil {
		logging.Debug("prefetch failed", "url", url, "err", err)
		c.events.Emit(otel.Event{Kind: otel.KindCacheError, Level: otel.LevelWarn, Comp: "cache", URL: url, Err: err.Error()})
		return Handle{}, err
	}

	evicted, stored := c.insert(h)
	if !stored {
		c.blobs.Release(h.Path)
		return Handle{}, fmt.Errorf("cache closed")
	}
	c.events.Emit(otel.Event{Kind: otel.KindCacheStore, Comp: "cache", URL: url, Dur: time.Since(start), Count: int(h.Size)})
	for _, old := range evicted {
		if err := c.blobs.Release(old.Path); err != nil {
			logging.Warn("release evicted blob", "path", old.Path, "err", err)
		}
		c.events.Emit(otel.Event{Kind: otel.KindCacheEvict, Comp: "cache", URL: old.URL})
	}
	return h, nil
}

func (c *Cache) download(ctx context.Context, url string) (Handle, error) {
	body, err := c.fetch(ctx, url)
	if err != nil {
		return Handle{}, err
	}
	defer body.Close()

	path, n, err := c.blobs.Put(body)
	if err != nil {
		return Handle{}, fmt.Errorf("store blob: %w", err)
	}
	return Handle{URL: url, Path: path, Size: n}, nil
}

// insert stores h and returns the entries pushed out by it.
func (c *Cache) insert(h Handle) (evicted []Handle, stored bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, false
	}
	if existing, ok := c.entries[h.URL]; ok && existing.Path != h.Path {
		evicted = append(evicted, existing)
		c.removeOrderLocked(h.URL)
	}
	c.entries[h.URL] = h
	c.order = append(c.order, h.URL)

	for len(c.order) > c.max {
		oldest := c.order[0]
		c.order = c.order[1:]
		evicted = append(evicted, c.entries[oldest])
		delete(c.entries, oldest)
	}
	return evicted, true
}

func (c *Cache) removeOrderLocked(url string) {
	for i, u := range c.order {
		if u == url {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// Close releases every cached blob. Downloads finishing afterwards are
// released immediately instead of cached.
func (c *Cache) Close() error {
	c.mu.Lock()
	c.closed = true
	handles := make([]Handle, 0, len(c.order))
	for _, u := range c.order {
		handles = append(handles, c.entries[u])
	}
	c.entries = make(map[string]Handle)
	c.order = nil
	c.mu.Unlock()

	var firstErr error
	for _, h := range handles {
		if err := c.blobs.Release(h.Path); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// HTTPFetch returns a FetchFunc that GETs media with client.
func HTTPFetch(client *http.Client) FetchFunc {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context, url string) (io.ReadCloser, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("User-Agent", "scrollbet/0.1")

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", url, err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("fetch %s: HTTP %d", url, resp.StatusCode)
		}
		return resp.Body, nil
	}
}
