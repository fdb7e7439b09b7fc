// Package mute holds the process-wide mute flag shared by all players.
package mute

import "sync"

// Broadcast is a shared boolean with synchronous fan-out.
// Every subscriber has observed a change before Set or Toggle returns.
type Broadcast struct {
	mu     sync.Mutex
	muted  bool
	nextID int
	subs   map[int]func(bool)
	order  []int
}

// New creates a Broadcast with the given initial state.
func New(muted bool) *Broadcast {
	return &Broadcast{muted: muted, subs: make(map[int]func(bool))}
}

// Muted returns the current state.
func (b *Broadcast) Muted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.muted
}

// Toggle flips the state and returns the new value.
func (b *Broadcast) Toggle() bool {
	b.mu.Lock()
	b.muted = !b.muted
	v := b.muted
	fns := b.snapshotLocked()
	b.mu.Unlock()

	notify(fns, v)
	return v
}

// Set changes the state. Setting the current value notifies nobody.
func (b *Broadcast) Set(muted bool) {
	b.mu.Lock()
	if b.muted == muted {
		b.mu.Unlock()
		return
	}
	b.muted = muted
	fns := b.snapshotLocked()
	b.mu.Unlock()

	notify(fns, muted)
}

// Subscribe registers fn and returns its unsubscribe func. fn is not called
// with the current value; read Muted for that. Unsubscribe is idempotent.
func (b *Broadcast) Subscribe(fn func(muted bool)) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.order = append(b.order, id)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			for i, v := range b.order {
				if v == id {
					b.order = append(b.order[:i], b.order[i+1:]...)
					break
				}
			}
			b.mu.Unlock()
		})
	}
}

// Subscribers returns the number of live subscriptions.
func (b *Broadcast) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// snapshotLocked copies subscribers in registration order. Caller holds b.mu.
func (b *Broadcast) snapshotLocked() []func(bool) {
	fns := make([]func(bool), 0, len(b.order))
	for _, id := range b.order {
		fns = append(fns, b.subs[id])
	}
	return fns
}

// notify runs outside the lock so subscribers may call back into the Broadcast.
func notify(fns []func(bool), v bool) {
	for _, fn := range fns {
		fn(v)
	}
}
