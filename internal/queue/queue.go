// Package queue holds the ordered feed the user scrolls through.
//
// Items come from three places: batches pulled from the backend pool,
// freshly generated videos injected at the front, and synchronized
// injections placed a few pages ahead of the viewer after a bet. The queue
// remembers every video identity it has ever shown (the seen set) and sends
// it as the exclude list so the backend does not repeat itself. The seen set
// only grows; Clear is the one way to reset it.
//
// The non-injected part of the queue is snapshotted after every batch so a
// session can be resumed where it left off.
package queue

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/abelbrown/scrollbet/internal/logging"
	"github.com/abelbrown/scrollbet/internal/model"
	"github.com/abelbrown/scrollbet/internal/otel"
	"github.com/abelbrown/scrollbet/internal/poll"
)

// StorageKey is the snapshot key for the non-injected feed.
const StorageKey = "feed_results"

const (
	DefaultBatchSize = 10
	DefaultThreshold = 3
)

// Source is the backend the queue pulls from. *api.Client implements it.
type Source interface {
	PoolFeed(ctx context.Context, count int, exclude []string) ([]model.FeedItem, error)
	Generated(ctx context.Context) ([]model.GeneratedVideo, error)
	Consume(ctx context.Context, jobID string) error
	ShortsFeed(ctx context.Context, videoIDs []string) ([]model.FeedItem, error)
}

// Snapshotter persists opaque payloads by key. *store.Session implements it.
// Load returns nil, nil when nothing is stored.
type Snapshotter interface {
	Save(key string, payload []byte) error
	Load(key string) ([]byte, error)
	Delete(key string) error
}

// Rand picks injection offsets. *rand.Rand implements it.
type Rand interface {
	Intn(n int) int
}

// Options configures a Queue. Zero values pick defaults.
type Options struct {
	BatchSize int
	Threshold int
	Snapshots Snapshotter
	Rand      Rand
	Events    *otel.Logger
}

// Stats summarizes the queue.
type Stats struct {
	Total    int
	Matched  int // from the backend pool
	Injected int
	Seen     int
}

// Queue is safe for concurrent use. Change listeners run outside the lock.
type Queue struct {
	src  Source
	opts Options

	mu       sync.Mutex
	items    []model.FeedItem
	ids      map[string]bool
	seen     map[string]bool
	seenList []string // insertion order, for a stable exclude list
	inflight int
	err      error
	onChange []func()
}

// New creates an empty Queue.
func New(src Source, opts Options) *Queue {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Queue{
		src:  src,
		opts: opts,
		ids:  make(map[string]bool),
		seen: make(map[string]bool),
	}
}

// OnChange registers fn to run after every mutation.
func (q *Queue) OnChange(fn func()) {
	q.mu.Lock()
	q.onChange = append(q.onChange, fn)
	q.mu.Unlock()
}

func (q *Queue) changed() {
	q.mu.Lock()
	fns := append([]func(){}, q.onChange...)
	q.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Init restores the session snapshot, or fetches the first batch if there is none.
func (q *Queue) Init(ctx context.Context) error {
	if q.Restore() {
		return nil
	}
	return q.FetchBatch(ctx, q.opts.BatchSize)
}

// FetchBatch pulls up to count new items from the pool and appends them.
// On failure the error is kept for Err and current items stay in place.
func (q *Queue) FetchBatch(ctx context.Context, count int) error {
	q.mu.Lock()
	exclude := q.beginFetchLocked()
	q.mu.Unlock()
	return q.fetch(ctx, count, exclude)
}

// beginFetchLocked marks a fetch in flight and returns the exclude list.
func (q *Queue) beginFetchLocked() []string {
	q.inflight++
	q.err = nil
	return append([]string(nil), q.seenList...)
}

func (q *Queue) fetch(ctx context.Context, count int, exclude []string) error {
	q.changed()

	start := time.Now()
	q.opts.Events.Emit(otel.Event{Kind: otel.KindFetchStart, Comp: "queue", Count: count})
	results, err := q.src.PoolFeed(ctx, count, exclude)

	q.mu.Lock()
	q.inflight--
	if err != nil {
		q.err = err
		q.mu.Unlock()
		logging.Warn("feed fetch failed", "err", err)
		q.opts.Events.Emit(otel.Event{Kind: otel.KindFetchError, Level: otel.LevelWarn, Comp: "queue", Err: err.Error(), Dur: time.Since(start)})
		q.changed()
		return err
	}
	added := q.appendLocked(results, count)
	q.mu.Unlock()

	q.opts.Events.Emit(otel.Event{Kind: otel.KindFetchComplete, Comp: "queue", Count: added, Dur: time.Since(start)})
	q.Persist()
	q.changed()
	return nil
}

// appendLocked adds up to limit items with an unseen identity and a new id.
func (q *Queue) appendLocked(results []model.FeedItem, limit int) int {
	added := 0
	for _, it := range results {
		if added >= limit {
			break
		}
		if !it.Video.Valid() || it.ID == "" || q.ids[it.ID] {
			continue
		}
		ident := it.Video.Identity()
		if q.seen[ident] {
			continue
		}
		q.markSeenLocked(ident)
		q.ids[it.ID] = true
		q.items = append(q.items, it.Clone())
		added++
	}
	return added
}

func (q *Queue) markSeenLocked(ident string) {
	if ident == "" || q.seen[ident] {
		return
	}
	q.seen[ident] = true
	q.seenList = append(q.seenList, ident)
}

// RequestMore fetches another batch unless one is already in flight.
// It reports whether a fetch was made.
func (q *Queue) RequestMore(ctx context.Context) bool {
	q.mu.Lock()
	if q.inflight > 0 {
		q.mu.Unlock()
		return false
	}
	exclude := q.beginFetchLocked()
	q.mu.Unlock()
	q.fetch(ctx, q.opts.BatchSize, exclude)
	return true
}

// NeedsMore reports whether active is close enough to the end to fetch more.
func (q *Queue) NeedsMore(active int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return active >= len(q.items)-q.opts.Threshold
}

// Retry clears the last error and fetches a batch.
func (q *Queue) Retry(ctx context.Context) error {
	q.mu.Lock()
	q.err = nil
	q.mu.Unlock()
	return q.FetchBatch(ctx, q.opts.BatchSize)
}

// InjectGenerated puts item at the front unless its id is already queued.
func (q *Queue) InjectGenerated(item model.FeedItem) bool {
	q.mu.Lock()
	if q.ids[item.ID] {
		q.mu.Unlock()
		return false
	}
	q.ids[item.ID] = true
	q.markSeenLocked(item.Video.Identity())
	q.items = append([]model.FeedItem{item.Clone()}, q.items...)
	q.mu.Unlock()

	q.opts.Events.Emit(otel.Event{Kind: otel.KindInject, Comp: "queue", ItemID: item.ID, Index: 0})
	q.changed()
	return true
}

// InjectAt inserts item four or five pages after current, or at the end if
// the queue is shorter. It returns the insertion index.
func (q *Queue) InjectAt(current int, item model.FeedItem) (int, bool) {
	q.mu.Lock()
	if q.ids[item.ID] {
		q.mu.Unlock()
		return -1, false
	}
	offset := 4 + q.opts.Rand.Intn(2)
	idx := current + offset
	if idx > len(q.items) {
		idx = len(q.items)
	}
	if idx < 0 {
		idx = 0
	}
	q.ids[item.ID] = true
	q.markSeenLocked(item.Video.Identity())
	q.items = append(q.items, model.FeedItem{})
	copy(q.items[idx+1:], q.items[idx:])
	q.items[idx] = item.Clone()
	q.mu.Unlock()

	q.opts.Events.Emit(otel.Event{Kind: otel.KindInject, Comp: "queue", ItemID: item.ID, Index: idx})
	q.changed()
	return idx, true
}

// ConsumeGenerated acknowledges delivery of a generated video. Failures are
// logged and otherwise ignored.
func (q *Queue) ConsumeGenerated(ctx context.Context, jobID string) {
	if err := q.src.Consume(ctx, jobID); err != nil {
		logging.Debug("consume failed", "job", jobID, "err", err)
		return
	}
	q.opts.Events.Emit(otel.Event{Kind: otel.KindConsume, Comp: "queue", JobID: jobID})
}

// PollGenerated injects every pending generated video and acknowledges it.
// It returns how many were new.
func (q *Queue) PollGenerated(ctx context.Context) int {
	videos, err := q.src.Generated(ctx)
	if err != nil {
		logging.Debug("generated poll failed", "err", err)
		return 0
	}
	n := 0
	for _, v := range videos {
		if q.InjectGenerated(v.Item()) {
			n++
		}
		q.ConsumeGenerated(ctx, v.JobID)
	}
	return n
}

// WatchGenerated runs PollGenerated after first, then every interval, until
// ctx is done.
func (q *Queue) WatchGenerated(ctx context.Context, first, every time.Duration) {
	poll.Every(ctx, first, every, func(ctx context.Context) {
		q.PollGenerated(ctx)
	})
}

// MatchBatch appends the backend's matches for a batch of platform video ids.
func (q *Queue) MatchBatch(ctx context.Context, videoIDs []string) (int, error) {
	if len(videoIDs) == 0 {
		return 0, nil
	}
	results, err := q.src.ShortsFeed(ctx, videoIDs)
	if err != nil {
		q.mu.Lock()
		q.err = err
		q.mu.Unlock()
		q.changed()
		return 0, err
	}
	q.mu.Lock()
	added := q.appendLocked(results, len(results))
	q.mu.Unlock()
	if added > 0 {
		q.Persist()
	}
	q.changed()
	return added, nil
}

// Persist snapshots the non-injected items. Failures are logged only.
func (q *Queue) Persist() {
	if q.opts.Snapshots == nil {
		return
	}
	q.mu.Lock()
	keep := make([]model.FeedItem, 0, len(q.items))
	for _, it := range q.items {
		if !it.Injected {
			keep = append(keep, it)
		}
	}
	q.mu.Unlock()

	payload, err := json.Marshal(keep)
	if err == nil {
		err = q.opts.Snapshots.Save(StorageKey, payload)
	}
	if err != nil {
		logging.Warn("persist feed failed", "err", err)
		q.opts.Events.Emit(otel.Event{Kind: otel.KindPersistError, Level: otel.LevelWarn, Comp: "queue", Err: err.Error()})
	}
}

// Restore replaces the queue with the session snapshot. A missing, empty or
// unreadable snapshot counts as none.
func (q *Queue) Restore() bool {
	if q.opts.Snapshots == nil {
		return false
	}
	payload, err := q.opts.Snapshots.Load(StorageKey)
	if err != nil || len(payload) == 0 {
		return false
	}
	var items []model.FeedItem
	if err := json.Unmarshal(payload, &items); err != nil || len(items) == 0 {
		return false
	}

	// Snapshots can be edited by hand; keep what appendLocked would accept.
	kept := items[:0]
	ids := make(map[string]bool, len(items))
	idents := make(map[string]bool, len(items))
	for _, it := range items {
		ident := it.Video.Identity()
		if !it.Video.Valid() || it.ID == "" || ids[it.ID] || idents[ident] {
			continue
		}
		ids[it.ID] = true
		idents[ident] = true
		kept = append(kept, it)
	}
	if len(kept) == 0 {
		return false
	}
	if len(kept) < len(items) {
		logging.Warn("dropped invalid snapshot items", "kept", len(kept), "total", len(items))
	}

	q.mu.Lock()
	q.items = kept
	q.ids = ids
	for _, it := range kept {
		q.markSeenLocked(it.Video.Identity())
	}
	q.mu.Unlock()

	q.opts.Events.Emit(otel.Event{Kind: otel.KindRestore, Comp: "queue", Count: len(kept)})
	q.changed()
	return true
}

// Clear empties the queue, forgets every seen identity and drops the snapshot.
func (q *Queue) Clear() {
	q.mu.Lock()
	q.items = nil
	q.ids = make(map[string]bool)
	q.seen = make(map[string]bool)
	q.seenList = nil
	q.err = nil
	q.mu.Unlock()

	if q.opts.Snapshots != nil {
		if err := q.opts.Snapshots.Delete(StorageKey); err != nil {
			logging.Warn("delete snapshot failed", "err", err)
		}
	}
	q.changed()
}

// Remove drops the item with id. Its identity stays seen.
func (q *Queue) Remove(id string) bool {
	q.mu.Lock()
	idx := -1
	for i, it := range q.items {
		if it.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items[:idx], q.items[idx+1:]...)
	delete(q.ids, id)
	q.mu.Unlock()
	q.changed()
	return true
}

// Items returns a copy of the queue.
func (q *Queue) Items() []model.FeedItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]model.FeedItem, len(q.items))
	for i, it := range q.items {
		out[i] = it.Clone()
	}
	return out
}

// Len returns the number of items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// At returns the item at i.
func (q *Queue) At(i int) (model.FeedItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if i < 0 || i >= len(q.items) {
		return model.FeedItem{}, false
	}
	return q.items[i].Clone(), true
}

// Err returns the last fetch error, if any.
func (q *Queue) Err() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.err
}

// Loading reports whether a batch fetch is in flight.
func (q *Queue) Loading() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.inflight > 0
}

// Seen reports whether a video identity has been shown.
func (q *Queue) Seen(identity string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.seen[identity]
}

// Stats summarizes the queue.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	s := Stats{Total: len(q.items), Seen: len(q.seen)}
	for _, it := range q.items {
		if it.Injected {
			s.Injected++
		} else {
			s.Matched++
		}
	}
	return s
}
