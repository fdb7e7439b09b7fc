package playback

import (
	"encoding/json"
	"sync"
	"time"
)

// Widget player states carried in onStateChange.
const (
	frameEnded   = 0
	framePlaying = 1
	framePaused  = 2
)

// RemoteFrame emulates a remote widget player on the frame end of a Pipe.
// It ignores everything until BootDelay has passed, like a player whose
// script is still loading, then answers the protocol the way the real
// widget does. The terminal preview uses it in place of a browser frame.
type RemoteFrame struct {
	end      *FrameEnd
	clock    Clock
	duration time.Duration

	mu      sync.Mutex
	booted  bool
	id      string
	playing bool
	muted   bool
	plays   int
	endT    Timer
	closed  bool
	stop    func()
	bootT   Timer
}

// NewRemoteFrame attaches to end. A zero duration never ends.
func NewRemoteFrame(end *FrameEnd, clock Clock, bootDelay, duration time.Duration) *RemoteFrame {
	if clock == nil {
		clock = RealClock{}
	}
	f := &RemoteFrame{end: end, clock: clock, duration: duration}
	f.stop = end.Handle(f.handle)
	f.bootT = clock.AfterFunc(bootDelay, func() {
		f.mu.Lock()
		f.booted = true
		f.mu.Unlock()
	})
	return f
}

func (f *RemoteFrame) handle(data []byte) {
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return
	}

	f.mu.Lock()
	if !f.booted || f.closed {
		f.mu.Unlock()
		return
	}
	var reply []wire
	switch w.Event {
	case "listening":
		f.id = w.ID
		reply = append(reply,
			wire{Event: "initialDelivery", ID: w.ID, Info: json.RawMessage(`{"playerState":-1}`)},
			wire{Event: "onReady", ID: w.ID})
	case "command":
		if w.ID != f.id {
			break
		}
		switch w.Func {
		case "playVideo":
			if !f.playing {
				f.playing = true
				f.plays++
				f.scheduleEndLocked()
				reply = append(reply, stateChange(f.id, framePlaying))
			}
		case "pauseVideo":
			if f.playing {
				f.playing = false
				f.stopEndLocked()
				reply = append(reply, stateChange(f.id, framePaused))
			}
		case "mute":
			f.muted = true
		case "unMute":
			f.muted = false
		case "seekTo":
			if f.playing {
				f.scheduleEndLocked()
			}
		}
	}
	f.mu.Unlock()

	for _, r := range reply {
		f.send(r)
	}
}

func stateChange(id string, state int) wire {
	b, _ := json.Marshal(state)
	return wire{Event: "onStateChange", ID: id, Info: b}
}

func (f *RemoteFrame) scheduleEndLocked() {
	f.stopEndLocked()
	if f.duration <= 0 {
		return
	}
	f.endT = f.clock.AfterFunc(f.duration, func() {
		f.mu.Lock()
		if f.closed || !f.playing {
			f.mu.Unlock()
			return
		}
		f.playing = false
		id := f.id
		f.mu.Unlock()
		f.send(stateChange(id, frameEnded))
	})
}

func (f *RemoteFrame) stopEndLocked() {
	if f.endT != nil {
		f.endT.Stop()
		f.endT = nil
	}
}

func (f *RemoteFrame) send(w wire) {
	b, err := json.Marshal(w)
	if err != nil {
		return
	}
	_ = f.end.Send(b)
}

// FrameState is what the emulated player is doing.
type FrameState struct {
	Booted  bool
	Playing bool
	Muted   bool
	Plays   int
}

// State returns the emulated player's state.
func (f *RemoteFrame) State() FrameState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return FrameState{Booted: f.booted, Playing: f.playing, Muted: f.muted, Plays: f.plays}
}

// Close detaches from the pipe.
func (f *RemoteFrame) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	f.stopEndLocked()
	f.bootT.Stop()
	f.mu.Unlock()
	f.stop()
}
