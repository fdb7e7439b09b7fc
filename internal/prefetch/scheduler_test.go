package prefetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/abelbrown/scrollbet/internal/mediacache"
	"github.com/abelbrown/scrollbet/internal/model"
)

func TestWindow(t *testing.T) {
	tests := []struct {
		active, n int
		want      []int
	}{
		{2, 6, []int{1, 2, 3, 4, 5}},
		{0, 6, []int{0, 1, 2, 3}},
		{5, 6, []int{4, 5}},
		{0, 1, []int{0}},
		{0, 0, nil},
	}
	for _, tt := range tests {
		got := Window(tt.active, tt.n, DefaultBehind, DefaultLookahead)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Window(%d, %d) = %v, want %v", tt.active, tt.n, got, tt.want)
		}
	}
}

type fakeCache struct {
	mu   sync.Mutex
	urls []string
}

func (f *fakeCache) Prefetch(ctx context.Context, url string) (mediacache.Handle, bool) {
	f.mu.Lock()
	f.urls = append(f.urls, url)
	f.mu.Unlock()
	return mediacache.Handle{URL: url, Path: "/blob/" + url}, true
}

func (f *fakeCache) fetched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.urls...)
}

type countingHinter struct {
	mu    sync.Mutex
	count map[string]int
}

func (h *countingHinter) Hint(ctx context.Context, url string) {
	h.mu.Lock()
	h.count[url]++
	h.mu.Unlock()
}

func mixedItems(n int) []model.FeedItem {
	items := make([]model.FeedItem, n)
	for i := range items {
		if i%2 == 0 {
			items[i] = model.FeedItem{ID: fmt.Sprint(i), Video: model.DirectVideo(fmt.Sprintf("https://cdn.test/%d.mp4", i), "")}
		} else {
			items[i] = model.FeedItem{ID: fmt.Sprint(i), Video: model.EmbeddedVideo(fmt.Sprintf("yt%d", i), "")}
		}
	}
	return items
}

func TestUpdatePrefetchesOnlyDirectMediaInWindow(t *testing.T) {
	cache := &fakeCache{}
	s := NewScheduler(cache, Options{})
	items := mixedItems(6)

	s.Update(context.Background(), 2, items)
	s.Wait()

	got := map[string]bool{}
	for _, u := range cache.fetched() {
		got[u] = true
	}
	want := map[string]bool{"https://cdn.test/2.mp4": true, "https://cdn.test/4.mp4": true}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("prefetched %v, want %v", got, want)
	}
}

func TestHintsAreNeverReissued(t *testing.T) {
	cache := &fakeCache{}
	h := &countingHinter{count: map[string]int{}}
	s := NewScheduler(cache, Options{Hinter: h})
	items := mixedItems(6)

	s.Update(context.Background(), 0, items)
	s.Wait()
	s.Update(context.Background(), 1, items)
	s.Wait()
	s.Update(context.Background(), 0, items)
	s.Wait()

	if !s.Hinted("https://cdn.test/0.mp4") || s.Hinted("https://cdn.test/5.mp4") {
		t.Error("unexpected hinted set")
	}
	// hint goroutines are fire-and-forget; Hinted is the source of truth
	// for issuance, the counter only checks nothing was issued twice.
	h.mu.Lock()
	defer h.mu.Unlock()
	for u, n := range h.count {
		if n > 1 {
			t.Errorf("%s hinted %d times", u, n)
		}
	}
}

type gatedCache struct {
	gate  chan struct{}
	calls atomic.Int32
}

func (g *gatedCache) Prefetch(ctx context.Context, url string) (mediacache.Handle, bool) {
	g.calls.Add(1)
	select {
	case <-g.gate:
		return mediacache.Handle{URL: url, Path: "p"}, true
	case <-ctx.Done():
		return mediacache.Handle{}, false
	}
}

func TestNewerUpdateSuppressesStaleCallbacks(t *testing.T) {
	cache := &gatedCache{gate: make(chan struct{})}
	var mu sync.Mutex
	var ready []string
	s := NewScheduler(cache, Options{OnReady: func(url string, _ mediacache.Handle) {
		mu.Lock()
		ready = append(ready, url)
		mu.Unlock()
	}})

	first := []model.FeedItem{{ID: "a", Video: model.DirectVideo("https://cdn.test/a.mp4", "")}}
	s.Update(context.Background(), 0, first)

	s.Stop()
	close(cache.gate)
	s.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(ready) != 0 {
		t.Errorf("stale generation delivered %v", ready)
	}
}

func TestSchedulerWithRealCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	blobs, err := mediacache.NewDirBlobs(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	cache := mediacache.New(mediacache.Options{Fetch: mediacache.HTTPFetch(srv.Client()), Blobs: blobs})
	defer cache.Close()

	items := []model.FeedItem{
		{ID: "0", Video: model.DirectVideo(srv.URL+"/0.mp4", "")},
		{ID: "1", Video: model.DirectVideo(srv.URL+"/1.mp4", "")},
	}
	s := NewScheduler(cache, Options{Hinter: HeadHinter{Client: srv.Client()}})
	s.Update(context.Background(), 0, items)
	s.Wait()

	for _, it := range items {
		if _, ok := cache.Lookup(it.Video.URL); !ok {
			t.Errorf("%s not cached", it.Video.URL)
		}
	}
}
