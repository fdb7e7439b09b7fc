package playback

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

// recordingChannel captures posts and lets the test inject inbound messages.
type recordingChannel struct {
	mu       sync.Mutex
	posts    []wire
	listener func(Message)
	stopped  bool
}

func (r *recordingChannel) Post(data []byte) error {
	var w wire
	json.Unmarshal(data, &w)
	r.mu.Lock()
	r.posts = append(r.posts, w)
	r.mu.Unlock()
	return nil
}

func (r *recordingChannel) Listen(fn func(Message)) func() {
	r.mu.Lock()
	r.listener = fn
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		r.stopped = true
		r.listener = nil
		r.mu.Unlock()
	}
}

func (r *recordingChannel) deliver(origin string, w wire) {
	b, _ := json.Marshal(w)
	r.mu.Lock()
	fn := r.listener
	r.mu.Unlock()
	if fn != nil {
		fn(Message{Origin: origin, Data: b})
	}
}

func (r *recordingChannel) count(event, fn string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, p := range r.posts {
		if p.Event == event && p.Func == fn {
			n++
		}
	}
	return n
}

func (r *recordingChannel) last() wire {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.posts[len(r.posts)-1]
}

const trusted = "https://www.youtube-nocookie.com"

func TestEmbeddedProbesUntilReady(t *testing.T) {
	clock := newManualClock()
	ch := &recordingChannel{}
	readyCalls := 0
	e := NewEmbedded(ch, func() { readyCalls++ }, EmbeddedOptions{Clock: clock})

	if ch.count("listening", "") != 1 {
		t.Fatalf("expected immediate probe, got %d", ch.count("listening", ""))
	}
	clock.Advance(250 * time.Millisecond)
	if ch.count("listening", "") != 2 {
		t.Errorf("expected retry at +250ms, got %d probes", ch.count("listening", ""))
	}

	ch.deliver(trusted, wire{Event: "onReady", ID: e.RequestID()})
	if !e.Ready() || readyCalls != 1 {
		t.Fatalf("expected ready, ready=%v calls=%d", e.Ready(), readyCalls)
	}
	if clock.pending() != 0 {
		t.Errorf("retries should stop once ready, %d pending", clock.pending())
	}

	clock.Advance(3 * time.Second)
	if ch.count("listening", "") != 2 {
		t.Errorf("probe sent after ready: %d", ch.count("listening", ""))
	}

	ch.deliver(trusted, wire{Event: "initialDelivery", ID: e.RequestID()})
	if readyCalls != 1 {
		t.Errorf("onReady must fire once, got %d", readyCalls)
	}
}

func TestEmbeddedFullProbeSchedule(t *testing.T) {
	clock := newManualClock()
	ch := &recordingChannel{}
	NewEmbedded(ch, nil, EmbeddedOptions{Clock: clock})

	clock.Advance(5 * time.Second)
	if got := ch.count("listening", ""); got != 1+len(ProbeSchedule) {
		t.Errorf("expected %d probes, got %d", 1+len(ProbeSchedule), got)
	}
}

func TestEmbeddedRejectsUntrustedReadiness(t *testing.T) {
	clock := newManualClock()
	ch := &recordingChannel{}
	e := NewEmbedded(ch, nil, EmbeddedOptions{Clock: clock})

	ch.deliver("https://evil.example", wire{Event: "onReady", ID: e.RequestID()})
	if e.Ready() {
		t.Error("accepted readiness from unknown origin")
	}
	ch.deliver(trusted, wire{Event: "onReady", ID: "someone-else"})
	if e.Ready() {
		t.Error("accepted readiness for another player's id")
	}
	ch.mu.Lock()
	fn := ch.listener
	ch.mu.Unlock()
	fn(Message{Origin: trusted, Data: []byte("not json")})
	if e.Ready() {
		t.Error("accepted malformed message")
	}
}

func TestEmbeddedLoopsOnEnded(t *testing.T) {
	ch := &recordingChannel{}
	e := NewEmbedded(ch, nil, EmbeddedOptions{Clock: newManualClock()})
	ch.deliver(trusted, wire{Event: "onReady", ID: e.RequestID()})

	ch.deliver(trusted, wire{Event: "onStateChange", ID: e.RequestID(), Info: json.RawMessage("0")})
	if ch.count("command", "seekTo") != 1 || ch.count("command", "playVideo") != 1 {
		t.Errorf("expected seek+play on ended, seek=%d play=%d",
			ch.count("command", "seekTo"), ch.count("command", "playVideo"))
	}
	if last := ch.last(); last.Func != "playVideo" || last.ID != e.RequestID() {
		t.Errorf("unexpected last command %+v", last)
	}

	ch.deliver(trusted, wire{Event: "onStateChange", ID: e.RequestID(), Info: json.RawMessage("2")})
	if ch.count("command", "playVideo") != 1 {
		t.Error("paused state must not trigger replay")
	}
}

func TestEmbeddedCloseCancelsRetriesAndCommands(t *testing.T) {
	clock := newManualClock()
	ch := &recordingChannel{}
	e := NewEmbedded(ch, nil, EmbeddedOptions{Clock: clock})
	e.Close()

	clock.Advance(5 * time.Second)
	if ch.count("listening", "") != 1 {
		t.Errorf("retries fired after Close: %d probes", ch.count("listening", ""))
	}
	e.Play()
	if ch.count("command", "playVideo") != 0 {
		t.Error("command sent after Close")
	}
	if !ch.stopped {
		t.Error("listener not removed on Close")
	}
}

func TestEmbeddedOverPipeWithRemoteFrame(t *testing.T) {
	clock := RealClock{}
	pipe := NewPipe(trusted)
	frame := NewRemoteFrame(pipe.Frame(), clock, 100*time.Millisecond, 0)
	defer frame.Close()

	ready := make(chan struct{})
	e := NewEmbedded(pipe.Host(), func() { close(ready) }, EmbeddedOptions{})
	defer e.Close()

	select {
	case <-ready:
	case <-time.After(3 * time.Second):
		t.Fatal("never became ready over the pipe")
	}

	e.Play()
	e.Mute()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		st := frame.State()
		if st.Playing && st.Muted {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Errorf("frame did not follow commands: %+v", frame.State())
}
