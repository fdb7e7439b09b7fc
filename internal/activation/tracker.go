// Package activation decides which feed item is active from scroll position.
//
// The feed is a vertical pager: page k spans offsets [k*extent, (k+1)*extent).
// The active index is round(offset/extent). The listener hears about every
// distinct transition exactly once, synchronously, before anything that
// depends on the new index runs.
package activation

import (
	"math"
	"sync"

	"github.com/abelbrown/scrollbet/internal/model"
)

// Source is the sequence being paged through. *queue.Queue implements it.
type Source interface {
	Len() int
	At(i int) (model.FeedItem, bool)
}

// Listener is told about each activation change.
type Listener func(item model.FeedItem, index int)

// Animator moves the viewport to an offset, smoothly or not.
type Animator interface {
	AnimateTo(offset float64)
}

// Tracker is safe for concurrent use; listener calls happen outside its lock.
type Tracker struct {
	src Source

	mu        sync.Mutex
	listener  Listener
	animator  Animator
	extent    float64
	active    int
	started   bool
	animating bool
	target    int
}

// New creates a Tracker over src with a page extent of 1.
func New(src Source, listener Listener) *Tracker {
	return &Tracker{src: src, listener: listener, extent: 1}
}

// SetAnimator installs the animator used by programmatic navigation.
func (t *Tracker) SetAnimator(a Animator) {
	t.mu.Lock()
	t.animator = a
	t.mu.Unlock()
}

// SetListener replaces the activation listener.
func (t *Tracker) SetListener(l Listener) {
	t.mu.Lock()
	t.listener = l
	t.mu.Unlock()
}

// Extent returns the page extent last seen.
func (t *Tracker) Extent() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.extent
}

// Active returns the active index, clamped to the current length.
func (t *Tracker) Active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clampLocked()
	return t.active
}

// Sync emits index 0 the first time the source is non-empty.
func (t *Tracker) Sync() {
	t.mu.Lock()
	if t.started || t.src.Len() == 0 {
		t.mu.Unlock()
		return
	}
	t.started = true
	t.active = 0
	t.mu.Unlock()
	t.emit(0)
}

// Scroll handles a viewport position report. It is a no-op unless the page
// under the viewport changed and exists.
func (t *Tracker) Scroll(offset, extent float64) {
	if extent <= 0 {
		return
	}
	k := int(math.Round(offset / extent))

	t.mu.Lock()
	t.extent = extent
	if t.animating {
		// Frames of a programmatic move; the target was already emitted.
		if k == t.target {
			t.animating = false
		}
		t.mu.Unlock()
		return
	}
	if k == t.active || k < 0 || k >= t.src.Len() {
		t.mu.Unlock()
		return
	}
	t.active = k
	t.started = true
	t.mu.Unlock()
	t.emit(k)
}

// Next moves to the following page. It reports whether anything changed.
func (t *Tracker) Next() bool {
	return t.ScrollTo(t.Active() + 1)
}

// Prev moves to the preceding page.
func (t *Tracker) Prev() bool {
	return t.ScrollTo(t.Active() - 1)
}

// ScrollTo activates page k and asks the animator to bring it into view.
// Out-of-range targets are ignored.
func (t *Tracker) ScrollTo(k int) bool {
	t.mu.Lock()
	t.clampLocked()
	if k < 0 || k >= t.src.Len() || (k == t.active && t.started) {
		t.mu.Unlock()
		return false
	}
	t.active = k
	t.started = true
	anim := t.animator
	offset := float64(k) * t.extent
	if anim != nil {
		t.animating = true
		t.target = k
	}
	t.mu.Unlock()

	t.emit(k)
	if anim != nil {
		anim.AnimateTo(offset)
	}
	return true
}

// Settle ends any programmatic move, so the next Scroll is trusted again.
func (t *Tracker) Settle() {
	t.mu.Lock()
	t.animating = false
	t.mu.Unlock()
}

// Clamp pulls the active index back in range after the source shrank.
// It does not emit.
func (t *Tracker) Clamp() {
	t.mu.Lock()
	t.clampLocked()
	t.mu.Unlock()
}

func (t *Tracker) clampLocked() {
	n := t.src.Len()
	if t.active > n-1 {
		t.active = n - 1
	}
	if t.active < 0 {
		t.active = 0
	}
}

func (t *Tracker) emit(k int) {
	t.mu.Lock()
	l := t.listener
	t.mu.Unlock()
	if l == nil {
		return
	}
	item, ok := t.src.At(k)
	if !ok {
		return
	}
	l(item, k)
}
