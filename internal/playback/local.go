package playback

import (
	"os"
	"strings"
	"sync"
	"time"
)

// MediaState is a point-in-time view of a LocalMedia.
type MediaState struct {
	Source   string
	CanPlay  bool
	Playing  bool
	Muted    bool
	Position time.Duration
}

// LocalMedia is the terminal's stand-in for a video element. It tracks
// transport state against a Clock; the source is a cached blob path or a
// remote URL.
type LocalMedia struct {
	clock Clock

	mu      sync.Mutex
	src     string
	canPlay bool
	playing bool
	muted   bool
	pos     time.Duration
	since   time.Time
	onCan   func()
	closed  bool
	timer   Timer
}

// DecodeDelay is how long a LocalMedia takes to report it can play.
var DecodeDelay = 50 * time.Millisecond

// NewLocalMedia opens src. Readiness is reported after DecodeDelay if the
// source is usable: an existing file or an http(s) URL.
func NewLocalMedia(src string, clock Clock) *LocalMedia {
	if clock == nil {
		clock = RealClock{}
	}
	m := &LocalMedia{clock: clock, src: src}
	if usableSource(src) {
		m.timer = clock.AfterFunc(DecodeDelay, m.decoded)
	}
	return m
}

func usableSource(src string) bool {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return true
	}
	if src == "" {
		return false
	}
	_, err := os.Stat(src)
	return err == nil
}

func (m *LocalMedia) decoded() {
	m.mu.Lock()
	if m.closed || m.canPlay {
		m.mu.Unlock()
		return
	}
	m.canPlay = true
	fn := m.onCan
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// OnCanPlay registers fn; if the media is already decodable it fires now.
func (m *LocalMedia) OnCanPlay(fn func()) {
	m.mu.Lock()
	m.onCan = fn
	already := m.canPlay && !m.closed
	m.mu.Unlock()
	if already {
		fn()
	}
}

func (m *LocalMedia) Play() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.playing {
		return
	}
	m.playing = true
	m.since = m.clock.Now()
}

func (m *LocalMedia) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.playing {
		return
	}
	m.pos += m.clock.Now().Sub(m.since)
	m.playing = false
}

func (m *LocalMedia) SetMuted(muted bool) {
	m.mu.Lock()
	m.muted = muted
	m.mu.Unlock()
}

func (m *LocalMedia) Rewind() {
	m.mu.Lock()
	m.pos = 0
	m.since = m.clock.Now()
	m.mu.Unlock()
}

func (m *LocalMedia) Close() {
	m.mu.Lock()
	m.closed = true
	m.playing = false
	if m.timer != nil {
		m.timer.Stop()
	}
	m.mu.Unlock()
}

// State returns the current transport state.
func (m *LocalMedia) State() MediaState {
	m.mu.Lock()
	defer m.mu.Unlock()
	pos := m.pos
	if m.playing {
		pos += m.clock.Now().Sub(m.since)
	}
	return MediaState{Source: m.src, CanPlay: m.canPlay, Playing: m.playing, Muted: m.muted, Position: pos}
}
