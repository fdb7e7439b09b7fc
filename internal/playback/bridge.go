package playback

import (
	"sync"

	"github.com/abelbrown/scrollbet/internal/model"
	"github.com/abelbrown/scrollbet/internal/mute"
	"github.com/abelbrown/scrollbet/internal/otel"
)

// Bridge keeps one feed item's player in step with the feed.
//
// The player exists only while the item is rendered. Becoming ready applies
// the shared mute state and starts playback if the item is active. Leaving
// the active slot pauses and rewinds.
type Bridge struct {
	item    model.FeedItem
	factory Factory
	mute    *mute.Broadcast
	events  *otel.Logger

	mu       sync.Mutex
	player   Player
	gen      uint64 // bumped on every release; stale onReady calls are ignored
	state    State
	active   bool
	rendered bool
	closed   bool
	unsub    func()
}

// NewBridge creates a Bridge and subscribes it to m. Call Close to unsubscribe.
func NewBridge(item model.FeedItem, factory Factory, m *mute.Broadcast, events *otel.Logger) *Bridge {
	b := &Bridge{item: item, factory: factory, mute: m, events: events}
	b.unsub = m.Subscribe(b.applyMute)
	return b
}

// Item returns the bridged item.
func (b *Bridge) Item() model.FeedItem { return b.item }

// State returns the current state.
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Active reports whether the bridge is the active one.
func (b *Bridge) Active() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

// Rendered reports whether the bridge currently holds a player.
func (b *Bridge) Rendered() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rendered
}

// Player returns the live player, or nil when not rendered.
func (b *Bridge) Player() Player {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.player
}

// SetRendered acquires or releases the player.
func (b *Bridge) SetRendered(rendered bool) {
	b.mu.Lock()
	if b.closed || b.rendered == rendered {
		b.mu.Unlock()
		return
	}
	b.rendered = rendered

	if !rendered {
		p := b.player
		b.player = nil
		b.gen++
		b.state = Unready
		b.mu.Unlock()
		if p != nil {
			p.Close()
		}
		b.events.Emit(otel.Event{Kind: otel.KindBridgeRelease, Comp: "bridge", ItemID: b.item.ID})
		return
	}

	gen := b.gen
	b.mu.Unlock()

	// Built outside the lock: a factory may report readiness synchronously.
	p := b.factory(b.item, func() { b.playerReady(gen) })

	b.mu.Lock()
	if b.closed || b.gen != gen {
		b.mu.Unlock()
		p.Close()
		return
	}
	b.player = p
	ready := p.Ready() && b.state == Unready
	b.mu.Unlock()

	if ready {
		b.playerReady(gen)
	}
}

// SetActive marks the bridge active or inactive.
func (b *Bridge) SetActive(active bool) {
	b.mu.Lock()
	if b.closed || b.active == active {
		b.mu.Unlock()
		return
	}
	b.active = active
	b.mu.Unlock()
	b.sync()
}

// ToggleMute flips the shared mute flag. Every bridge, this one included,
// hears about it through its subscription.
func (b *Bridge) ToggleMute() bool {
	m := b.mute.Toggle()
	b.events.Emit(otel.Event{Kind: otel.KindMute, Comp: "bridge", ItemID: b.item.ID, Extra: map[string]any{"muted": m}})
	return m
}

// Close releases the player and unsubscribes from the mute broadcast.
func (b *Bridge) Close() {
	b.SetRendered(false)
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	unsub := b.unsub
	b.mu.Unlock()
	unsub()
}

func (b *Bridge) playerReady(gen uint64) {
	b.mu.Lock()
	if b.closed || b.gen != gen || b.player == nil || b.state != Unready {
		b.mu.Unlock()
		return
	}
	b.state = Ready
	p := b.player
	b.mu.Unlock()

	if b.mute.Muted() {
		p.Mute()
	} else {
		p.Unmute()
	}
	b.sync()
}

// sync moves between Ready, Playing and Paused to match active.
func (b *Bridge) sync() {
	b.mu.Lock()
	p := b.player
	if p == nil || b.state == Unready {
		b.mu.Unlock()
		return
	}
	var play, pause bool
	switch {
	case b.active && b.state != Playing:
		b.state = Playing
		play = true
	case !b.active && b.state == Playing:
		b.state = Paused
		pause = true
	}
	b.mu.Unlock()

	if play {
		p.Play()
	}
	if pause {
		p.Pause()
		p.SeekStart()
	}
}

func (b *Bridge) applyMute(muted bool) {
	b.mu.Lock()
	p := b.player
	ready := b.state != Unready
	b.mu.Unlock()
	if p == nil || !ready {
		return
	}
	if muted {
		p.Mute()
	} else {
		p.Unmute()
	}
}
