// Package otel records structured engine events.
//
// Events are typed structs written as JSONL by an asynchronous Logger. An
// optional RingBuffer keeps the most recent events in memory for the TUI
// debug overlay.
package otel

import (
	"encoding/json"
	"time"
)

// Level is event severity.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// EventKind is "<subsystem>.<action>".
type EventKind string

const (
	// Feed queue
	KindFetchStart    EventKind = "feed.fetch_start"
	KindFetchComplete EventKind = "feed.fetch_complete"
	KindFetchError    EventKind = "feed.fetch_error"
	KindInject        EventKind = "feed.inject"
	KindConsume       EventKind = "feed.consume"
	KindRestore       EventKind = "feed.restore"
	KindPersistError  EventKind = "feed.persist_error"

	// Activation
	KindActivate EventKind = "scroll.activate"

	// Media cache and prefetch
	KindCacheHit   EventKind = "cache.hit"
	KindCacheStore EventKind = "cache.store"
	KindCacheEvict EventKind = "cache.evict"
	KindCacheError EventKind = "cache.error"
	KindHint       EventKind = "prefetch.hint"

	// Playback bridges
	KindBridgeReady   EventKind = "bridge.ready"
	KindBridgeProbe   EventKind = "bridge.probe"
	KindBridgeRelease EventKind = "bridge.release"
	KindMute          EventKind = "bridge.mute"

	// Job polling
	KindPollTick EventKind = "poll.tick"
	KindPollDone EventKind = "poll.done"

	// Bets
	KindBet EventKind = "bet.place"

	// System
	KindStartup  EventKind = "sys.startup"
	KindShutdown EventKind = "sys.shutdown"
	KindError    EventKind = "sys.error"

	// Trace (SCROLLBET_TRACE)
	KindMsgHandled EventKind = "trace.msg_handled"
)

// Event is one observability record. Only Kind and Time are required.
type Event struct {
	Time      time.Time      `json:"t"`
	Level     Level          `json:"level,omitempty"`
	Kind      EventKind      `json:"kind"`
	Comp      string         `json:"comp,omitempty"` // "queue", "cache", "bridge", "ui", "main"
	SessionID string         `json:"session_id,omitempty"`
	ItemID    string         `json:"item,omitempty"`
	Index     int            `json:"index,omitempty"`
	URL       string         `json:"url,omitempty"`
	JobID     string         `json:"job,omitempty"`
	Count     int            `json:"count,omitempty"`
	Dur       time.Duration  `json:"-"`
	DurMs     float64        `json:"dur_ms,omitempty"`
	Err       string         `json:"err,omitempty"`
	Msg       string         `json:"msg,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// MarshalJSON converts Dur to DurMs.
func (e Event) MarshalJSON() ([]byte, error) {
	type alias Event
	a := alias(e)
	if e.Dur > 0 {
		a.DurMs = float64(e.Dur) / float64(time.Millisecond)
	}
	return json.Marshal(a)
}
