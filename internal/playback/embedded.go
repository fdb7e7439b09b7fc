package playback

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/abelbrown/scrollbet/internal/otel"
	"github.com/google/uuid"
)

// Origins whose readiness messages are trusted.
var DefaultOrigins = []string{
	"https://www.youtube.com",
	"https://www.youtube-nocookie.com",
}

// ProbeSchedule is when the readiness probe is resent after the first one.
// The remote player script takes a while to start listening.
var ProbeSchedule = []time.Duration{
	250 * time.Millisecond,
	750 * time.Millisecond,
	2000 * time.Millisecond,
}

// Player state reported by onStateChange.
const stateEnded = 0

// wire is the widget message format, both directions.
type wire struct {
	Event   string          `json:"event"`
	ID      string          `json:"id"`
	Channel string          `json:"channel,omitempty"`
	Func    string          `json:"func,omitempty"`
	Args    []any           `json:"args,omitempty"`
	Info    json.RawMessage `json:"info,omitempty"`
}

const widgetChannel = "widget"

// EmbeddedOptions configures an Embedded player.
type EmbeddedOptions struct {
	Origins []string
	Clock   Clock
	Events  *otel.Logger
	ItemID  string
}

// Embedded controls a remote player frame over a Channel.
type Embedded struct {
	ch      Channel
	id      string
	allowed map[string]bool
	clock   Clock
	events  *otel.Logger
	itemID  string
	onReady func()

	mu     sync.Mutex
	ready  bool
	closed bool
	timers []Timer
	stop   func()
}

// NewEmbedded starts listening on ch and sends the first readiness probe.
func NewEmbedded(ch Channel, onReady func(), opts EmbeddedOptions) *Embedded {
	if len(opts.Origins) == 0 {
		opts.Origins = DefaultOrigins
	}
	if opts.Clock == nil {
		opts.Clock = RealClock{}
	}
	e := &Embedded{
		ch:      ch,
		id:      uuid.NewString(),
		allowed: make(map[string]bool, len(opts.Origins)),
		clock:   opts.Clock,
		events:  opts.Events,
		itemID:  opts.ItemID,
		onReady: onReady,
	}
	for _, o := range opts.Origins {
		e.allowed[o] = true
	}

	e.mu.Lock()
	e.stop = ch.Listen(e.receive)
	for _, d := range ProbeSchedule {
		d := d
		e.timers = append(e.timers, e.clock.AfterFunc(d, func() { e.probe(d) }))
	}
	e.mu.Unlock()

	e.probe(0)
	return e
}

// RequestID identifies this player in every message it sends.
func (e *Embedded) RequestID() string { return e.id }

// Ready reports whether an authenticated readiness message has arrived.
func (e *Embedded) Ready() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ready
}

func (e *Embedded) Play()   { e.command("playVideo") }
func (e *Embedded) Pause()  { e.command("pauseVideo") }
func (e *Embedded) Mute()   { e.command("mute") }
func (e *Embedded) Unmute() { e.command("unMute") }

// SeekStart rewinds to the beginning.
func (e *Embedded) SeekStart() { e.command("seekTo", 0, true) }

// Close stops pending probes and ignores everything received afterwards.
func (e *Embedded) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.stopTimersLocked()
	stop := e.stop
	e.mu.Unlock()

	if stop != nil {
		stop()
	}
	if c, ok := e.ch.(io.Closer); ok {
		c.Close()
	}
}

func (e *Embedded) probe(after time.Duration) {
	e.mu.Lock()
	skip := e.ready || e.closed
	e.mu.Unlock()
	if skip {
		return
	}
	e.events.Emit(otel.Event{Kind: otel.KindBridgeProbe, Comp: "bridge", ItemID: e.itemID, Dur: after})
	e.post(wire{Event: "listening", ID: e.id, Channel: widgetChannel})
}

func (e *Embedded) command(fn string, args ...any) {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return
	}
	e.post(wire{Event: "command", ID: e.id, Channel: widgetChannel, Func: fn, Args: args})
}

// post is best effort: delivery failures are dropped silently.
func (e *Embedded) post(w wire) {
	b, err := json.Marshal(w)
	if err != nil {
		return
	}
	_ = e.ch.Post(b)
}

func (e *Embedded) receive(msg Message) {
	if !e.allowed[msg.Origin] {
		return
	}
	var w wire
	if err := json.Unmarshal(msg.Data, &w); err != nil {
		return
	}
	if w.ID != e.id {
		return
	}

	switch w.Event {
	case "onReady", "initialDelivery":
		e.markReady()
	case "onStateChange":
		var state int
		if json.Unmarshal(w.Info, &state) == nil && state == stateEnded {
			e.SeekStart()
			e.Play()
		}
	}
}

func (e *Embedded) markReady() {
	e.mu.Lock()
	if e.ready || e.closed {
		e.mu.Unlock()
		return
	}
	e.ready = true
	e.stopTimersLocked()
	e.mu.Unlock()

	e.events.Emit(otel.Event{Kind: otel.KindBridgeReady, Comp: "bridge", ItemID: e.itemID})
	if e.onReady != nil {
		e.onReady()
	}
}

func (e *Embedded) stopTimersLocked() {
	for _, t := range e.timers {
		t.Stop()
	}
	e.timers = nil
}
