// Package controller wires the feed engine together for a front end.
//
// The Feed controller owns the queue, the activation tracker, the prefetch
// scheduler and one playback bridge per rendered item. A front end feeds it
// scroll positions and key presses and listens on Subscribe for what changed.
//
// # Activation order
//
// When the active index changes the controller, in this order:
//
//  1. updates the prefetch scheduler with the new index
//  2. acquires bridges entering the render window and releases those leaving it
//  3. marks exactly one bridge active
//  4. asks the queue for more items when the viewer is near the end
//
// Steps 1 to 3 also run whenever the queue changes. They are serialized and
// always read the latest active index, so a slow player build on one path
// cannot leave a stale bridge playing after another path has moved on.
//
// # Events
//
// Subscribe returns a buffered channel. Sends never block; if the subscriber
// falls behind, events are dropped. Front ends re-read state from the
// controller on every event, so a dropped event only delays a redraw.
package controller

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/abelbrown/scrollbet/internal/activation"
	"github.com/abelbrown/scrollbet/internal/api"
	"github.com/abelbrown/scrollbet/internal/logging"
	"github.com/abelbrown/scrollbet/internal/match"
	"github.com/abelbrown/scrollbet/internal/mediacache"
	"github.com/abelbrown/scrollbet/internal/model"
	"github.com/abelbrown/scrollbet/internal/mute"
	"github.com/abelbrown/scrollbet/internal/otel"
	"github.com/abelbrown/scrollbet/internal/playback"
	"github.com/abelbrown/scrollbet/internal/poll"
	"github.com/abelbrown/scrollbet/internal/prefetch"
	"github.com/abelbrown/scrollbet/internal/queue"
)

// EventType categorizes controller events.
type EventType string

const (
	EventActivated  EventType = "activated"
	EventChanged    EventType = "changed"
	EventFetchError EventType = "fetch_error"
	EventMediaReady EventType = "media_ready"
	EventBet        EventType = "bet"
	EventJob        EventType = "job"
	EventCandles    EventType = "candles"
)

// Event is sent to subscribers when controller state changes.
type Event struct {
	Type    EventType
	Index   int
	Item    model.FeedItem
	Err     error
	URL     string              // EventMediaReady
	JobID   string              // EventJob
	Job     model.JobStatus     // EventJob
	Candles []model.Candlestick // EventCandles
}

// Backend is everything the controller needs from the API.
type Backend interface {
	queue.Source
	poll.JobSource
	CreateJob(ctx context.Context, req api.JobRequest) (string, error)
	Candlesticks(ctx context.Context, q api.CandleQuery) ([]model.Candlestick, error)
}

// Cache is the media cache as the controller uses it.
type Cache interface {
	prefetch.Prefetcher
	Lookup(url string) (mediacache.Handle, bool)
}

// Options configures a Feed. Zero values pick defaults.
type Options struct {
	Queue       queue.Options
	Prefetch    prefetch.Options
	Catalog     *match.Catalog
	Mute        *mute.Broadcast
	Factory     playback.Factory // nil builds terminal players
	Clock       playback.Clock
	Rand        match.Rand
	JobInterval time.Duration
	Events      *otel.Logger
}

// Feed is safe for concurrent use.
type Feed struct {
	backend Backend
	cache   Cache
	queue   *queue.Queue
	tracker *activation.Tracker
	sched   *prefetch.Scheduler
	mute    *mute.Broadcast
	catalog *match.Catalog
	rand    match.Rand
	factory playback.Factory
	events  *otel.Logger
	jobIvl  time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	out    chan Event

	syncMu  sync.Mutex // serializes refresh
	mu      sync.Mutex
	bridges map[string]*playback.Bridge
	jobs    map[string]func()
	bets    map[string]model.Side // item id -> side
	randMu  sync.Mutex
}

// New creates a Feed over backend and cache.
func New(backend Backend, cache Cache, opts Options) *Feed {
	if opts.Mute == nil {
		opts.Mute = mute.New(false)
	}
	if opts.Catalog == nil {
		opts.Catalog = match.DefaultCatalog()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.Clock == nil {
		opts.Clock = playback.RealClock{}
	}
	if opts.Queue.Events == nil {
		opts.Queue.Events = opts.Events
	}
	if opts.Prefetch.Events == nil {
		opts.Prefetch.Events = opts.Events
	}

	ctx, cancel := context.WithCancel(context.Background())
	f := &Feed{
		backend: backend,
		cache:   cache,
		mute:    opts.Mute,
		catalog: opts.Catalog,
		rand:    opts.Rand,
		events:  opts.Events,
		jobIvl:  opts.JobInterval,
		ctx:     ctx,
		cancel:  cancel,
		out:     make(chan Event, 64),
		bridges: make(map[string]*playback.Bridge),
		jobs:    make(map[string]func()),
		bets:    make(map[string]model.Side),
	}

	f.factory = opts.Factory
	if f.factory == nil {
		f.factory = TerminalFactory(cache, opts.Clock, opts.Events)
	}

	userReady := opts.Prefetch.OnReady
	opts.Prefetch.OnReady = func(url string, h mediacache.Handle) {
		if userReady != nil {
			userReady(url, h)
		}
		f.send(Event{Type: EventMediaReady, URL: url})
	}

	f.queue = queue.New(backend, opts.Queue)
	f.sched = prefetch.NewScheduler(cache, opts.Prefetch)
	f.tracker = activation.New(f.queue, f.activated)
	f.queue.OnChange(f.queueChanged)
	return f
}

// Subscribe returns the event channel. It is never closed.
func (f *Feed) Subscribe() <-chan Event { return f.out }

// send never blocks; events are dropped when the subscriber lags.
func (f *Feed) send(e Event) {
	select {
	case f.out <- e:
	default:
	}
}

// Queue exposes the underlying queue.
func (f *Feed) Queue() *queue.Queue { return f.queue }

// Tracker exposes the activation tracker.
func (f *Feed) Tracker() *activation.Tracker { return f.tracker }

// Mute exposes the shared mute flag.
func (f *Feed) Mute() *mute.Broadcast { return f.mute }

// Init restores the session or fetches the first batch, then activates item 0.
func (f *Feed) Init(ctx context.Context) error {
	err := f.queue.Init(ctx)
	f.tracker.Sync()
	return err
}

// WatchGenerated polls for generated videos until Close.
func (f *Feed) WatchGenerated(first, every time.Duration) {
	go f.queue.WatchGenerated(f.ctx, first, every)
}

// Items returns a copy of the current sequence.
func (f *Feed) Items() []model.FeedItem { return f.queue.Items() }

// Loading reports whether a fetch is in flight.
func (f *Feed) Loading() bool { return f.queue.Loading() }

// Err returns the last fetch error, if any.
func (f *Feed) Err() error { return f.queue.Err() }

// Muted reports the shared mute flag.
func (f *Feed) Muted() bool { return f.mute.Muted() }

// SetAnimator makes Next, Prev and ScrollTo animate the viewport.
func (f *Feed) SetAnimator(a activation.Animator) { f.tracker.SetAnimator(a) }

// ScrollTo activates page k.
func (f *Feed) ScrollTo(k int) bool { return f.tracker.ScrollTo(k) }

// Active returns the active index and item.
func (f *Feed) Active() (int, model.FeedItem, bool) {
	i := f.tracker.Active()
	it, ok := f.queue.At(i)
	return i, it, ok
}

func (f *Feed) Next() bool { return f.tracker.Next() }
func (f *Feed) Prev() bool { return f.tracker.Prev() }

// Scroll reports a viewport position.
func (f *Feed) Scroll(offset, extent float64) { f.tracker.Scroll(offset, extent) }

// activated runs synchronously inside the tracker's emission.
func (f *Feed) activated(item model.FeedItem, index int) {
	f.events.Emit(otel.Event{Kind: otel.KindActivate, Comp: "controller", ItemID: item.ID, Index: index})

	f.refresh()
	f.send(Event{Type: EventActivated, Index: index, Item: item})

	if f.queue.NeedsMore(index) {
		go f.requestMore()
	}
}

func (f *Feed) requestMore() {
	if !f.queue.RequestMore(f.ctx) {
		return
	}
	if err := f.queue.Err(); err != nil {
		f.send(Event{Type: EventFetchError, Err: err})
	}
}

func (f *Feed) queueChanged() {
	f.tracker.Clamp()
	f.tracker.Sync()
	f.refresh()
	f.send(Event{Type: EventChanged})
}

// refresh points the prefetch window and the bridges at the current active
// index and items.
func (f *Feed) refresh() {
	f.syncMu.Lock()
	defer f.syncMu.Unlock()
	if f.ctx.Err() != nil {
		return
	}
	active := f.tracker.Active()
	items := f.queue.Items()
	f.sched.Update(f.ctx, active, items)
	f.reconcile(active, items)
}

// reconcile acquires and releases bridges to match the render window.
// Callers hold syncMu.
func (f *Feed) reconcile(active int, items []model.FeedItem) {
	f.mu.Lock()
	if f.ctx.Err() != nil {
		f.mu.Unlock()
		return
	}
	present := make(map[string]bool, len(items))
	type step struct {
		b      *playback.Bridge
		render bool
		active bool
	}
	var steps []step
	var drop []*playback.Bridge
	for i, it := range items {
		present[it.ID] = true
		in := playback.InWindow(it.Video.Kind, i, active)
		b, ok := f.bridges[it.ID]
		switch {
		case in && !ok:
			b = playback.NewBridge(it, f.factory, f.mute, f.events)
			f.bridges[it.ID] = b
			steps = append(steps, step{b, true, i == active})
		case in:
			steps = append(steps, step{b, true, i == active})
		case ok:
			delete(f.bridges, it.ID)
			drop = append(drop, b)
		}
	}
	for id, b := range f.bridges {
		if !present[id] {
			delete(f.bridges, id)
			drop = append(drop, b)
		}
	}
	f.mu.Unlock()

	for _, b := range drop {
		b.Close()
	}
	// deactivate before activating so two players never run at once
	for _, s := range steps {
		if !s.active {
			s.b.SetActive(false)
		}
	}
	for _, s := range steps {
		s.b.SetRendered(s.render)
		if s.active {
			s.b.SetActive(true)
		}
	}
}

// Bridge returns the bridge for an item id, if rendered.
func (f *Feed) Bridge(id string) (*playback.Bridge, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bridges[id]
	return b, ok
}

// Bridges returns how many bridges are alive.
func (f *Feed) Bridges() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.bridges)
}

// ToggleMute flips mute for every player.
func (f *Feed) ToggleMute() bool {
	_, it, ok := f.Active()
	if ok {
		if b, ok := f.Bridge(it.ID); ok {
			return b.ToggleMute()
		}
	}
	return f.mute.Toggle()
}

// Retry clears a failed fetch and tries again.
func (f *Feed) Retry(ctx context.Context) error {
	err := f.queue.Retry(ctx)
	if err != nil {
		f.send(Event{Type: EventFetchError, Err: err})
	}
	return err
}

// Close releases every bridge and stops background work.
func (f *Feed) Close() {
	f.cancel()
	f.sched.Stop()

	f.mu.Lock()
	bridges := make([]*playback.Bridge, 0, len(f.bridges))
	for id, b := range f.bridges {
		bridges = append(bridges, b)
		delete(f.bridges, id)
	}
	jobs := make([]func(), 0, len(f.jobs))
	for id, stop := range f.jobs {
		jobs = append(jobs, stop)
		delete(f.jobs, id)
	}
	f.mu.Unlock()

	for _, b := range bridges {
		b.Close()
	}
	for _, stop := range jobs {
		stop()
	}
	logging.Debug("feed closed")
}
