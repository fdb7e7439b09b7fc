// Package prefetch warms direct media around the active feed position.
//
// On every activation change the Scheduler takes the window of items
// [active-Behind, active+Lookahead], issues a one-time connection hint per
// URL and asks the media cache to download each direct video. Embedded
// videos are never prefetched; their players load themselves.
//
// Each Update starts a new generation and cancels the previous one, so
// callbacks from an outdated window never fire after the user has moved on.
package prefetch

import (
	"context"
	"sync"

	"github.com/abelbrown/scrollbet/internal/mediacache"
	"github.com/abelbrown/scrollbet/internal/model"
	"github.com/abelbrown/scrollbet/internal/otel"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultBehind    = 1
	DefaultLookahead = 3
	DefaultParallel  = 2
)

// Window returns the sorted indices within [active-behind, active+lookahead]
// that exist in a sequence of length n.
func Window(active, n, behind, lookahead int) []int {
	lo, hi := active-behind, active+lookahead
	if lo < 0 {
		lo = 0
	}
	if hi > n-1 {
		hi = n - 1
	}
	if lo > hi {
		return nil
	}
	out := make([]int, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		out = append(out, i)
	}
	return out
}

// Prefetcher downloads media. *mediacache.Cache implements it.
type Prefetcher interface {
	Prefetch(ctx context.Context, url string) (mediacache.Handle, bool)
}

// Hinter warms the connection to a URL ahead of the download.
type Hinter interface {
	Hint(ctx context.Context, url string)
}

// Options configures a Scheduler. Zero values pick defaults.
type Options struct {
	Behind    int
	Lookahead int
	Parallel  int
	Hinter    Hinter
	Events    *otel.Logger

	// OnReady is called for each prefetched URL of the current generation.
	OnReady func(url string, h mediacache.Handle)
}

// Scheduler is safe for concurrent use.
type Scheduler struct {
	cache Prefetcher
	opts  Options

	mu     sync.Mutex
	hinted map[string]bool
	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a Scheduler over cache.
func NewScheduler(cache Prefetcher, opts Options) *Scheduler {
	if opts.Behind <= 0 {
		opts.Behind = DefaultBehind
	}
	if opts.Lookahead <= 0 {
		opts.Lookahead = DefaultLookahead
	}
	if opts.Parallel <= 0 {
		opts.Parallel = DefaultParallel
	}
	return &Scheduler{cache: cache, opts: opts, hinted: make(map[string]bool)}
}

// Candidates returns the direct-media URLs in the window around active.
func (s *Scheduler) Candidates(active int, items []model.FeedItem) []string {
	var urls []string
	for _, i := range Window(active, len(items), s.opts.Behind, s.opts.Lookahead) {
		v := items[i].Video
		if v.IsDirect() && v.URL != "" {
			urls = append(urls, v.URL)
		}
	}
	return urls
}

// Update schedules hints and prefetches for the window around active.
// It returns immediately; downloads continue in the background.
func (s *Scheduler) Update(ctx context.Context, active int, items []model.FeedItem) {
	urls := s.Candidates(active, items)

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	genCtx, cancel := context.WithCancel(ctx)
	s.gen++
	gen := s.gen
	s.cancel = cancel
	done := make(chan struct{})
	s.done = done

	var toHint []string
	for _, u := range urls {
		if !s.hinted[u] {
			s.hinted[u] = true
			toHint = append(toHint, u)
		}
	}
	s.mu.Unlock()

	if s.opts.Hinter != nil {
		for _, u := range toHint {
			s.opts.Events.Emit(otel.Event{Kind: otel.KindHint, Comp: "prefetch", URL: u, Index: active})
			go s.opts.Hinter.Hint(genCtx, u)
		}
	}

	g, gctx := errgroup.WithContext(genCtx)
	g.SetLimit(s.opts.Parallel)
	go func() {
		defer close(done)
		for _, u := range urls {
			u := u
			g.Go(func() error {
				h, ok := s.cache.Prefetch(gctx, u)
				if ok && s.current(gen) && s.opts.OnReady != nil {
					s.opts.OnReady(u, h)
				}
				return nil
			})
		}
		g.Wait()
	}()
}

// Hinted reports whether url has ever been hinted.
func (s *Scheduler) Hinted(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hinted[url]
}

// Wait blocks until the latest generation has finished scheduling.
func (s *Scheduler) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Stop cancels the current generation.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
}

func (s *Scheduler) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen == gen
}
