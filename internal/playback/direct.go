package playback

import "sync"

// MediaElement is a locally controlled media player.
type MediaElement interface {
	Play()
	Pause()
	SetMuted(muted bool)
	Rewind()
	// OnCanPlay registers the decode-ready callback. It fires at most once.
	OnCanPlay(fn func())
	Close()
}

// Direct drives a MediaElement. There is no messaging and no retry.
type Direct struct {
	el MediaElement

	mu     sync.Mutex
	ready  bool
	closed bool
}

// NewDirect wraps el. onReady fires when el reports it can play.
func NewDirect(el MediaElement, onReady func()) *Direct {
	d := &Direct{el: el}
	el.OnCanPlay(func() {
		d.mu.Lock()
		if d.ready || d.closed {
			d.mu.Unlock()
			return
		}
		d.ready = true
		d.mu.Unlock()
		if onReady != nil {
			onReady()
		}
	})
	return d
}

func (d *Direct) Ready() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ready
}

func (d *Direct) live() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.closed
}

func (d *Direct) Play() {
	if d.live() {
		d.el.Play()
	}
}

func (d *Direct) Pause() {
	if d.live() {
		d.el.Pause()
	}
}

func (d *Direct) Mute() {
	if d.live() {
		d.el.SetMuted(true)
	}
}

func (d *Direct) Unmute() {
	if d.live() {
		d.el.SetMuted(false)
	}
}

func (d *Direct) SeekStart() {
	if d.live() {
		d.el.Rewind()
	}
}

func (d *Direct) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()
	d.el.Close()
}
