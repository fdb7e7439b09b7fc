package playback

import (
	"sync"
	"testing"

	"github.com/abelbrown/scrollbet/internal/model"
	"github.com/abelbrown/scrollbet/internal/mute"
)

// fakePlayer records commands. Readiness is triggered by the test.
type fakePlayer struct {
	mu      sync.Mutex
	ready   bool
	onReady func()
	cmds    []string
	closed  bool
}

func (f *fakePlayer) rec(c string) {
	f.mu.Lock()
	f.cmds = append(f.cmds, c)
	f.mu.Unlock()
}

func (f *fakePlayer) Play()      { f.rec("play") }
func (f *fakePlayer) Pause()     { f.rec("pause") }
func (f *fakePlayer) Mute()      { f.rec("mute") }
func (f *fakePlayer) Unmute()    { f.rec("unmute") }
func (f *fakePlayer) SeekStart() { f.rec("seek") }
func (f *fakePlayer) Ready() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready
}
func (f *fakePlayer) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func (f *fakePlayer) becomeReady() {
	f.mu.Lock()
	f.ready = true
	fn := f.onReady
	f.mu.Unlock()
	fn()
}

func (f *fakePlayer) commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.cmds...)
}

type fakeFactory struct {
	built []*fakePlayer
}

func (ff *fakeFactory) build(item model.FeedItem, onReady func()) Player {
	p := &fakePlayer{onReady: onReady}
	ff.built = append(ff.built, p)
	return p
}

func testItem(id string) model.FeedItem {
	return model.FeedItem{ID: id, Video: model.DirectVideo("https://cdn.test/"+id+".mp4", "")}
}

func TestBridgeLifecycle(t *testing.T) {
	m := mute.New(true)
	ff := &fakeFactory{}
	b := NewBridge(testItem("a"), ff.build, m, nil)

	b.SetActive(true)
	if b.State() != Unready || len(ff.built) != 0 {
		t.Fatal("no player should exist before render")
	}

	b.SetRendered(true)
	if len(ff.built) != 1 {
		t.Fatalf("expected one player, got %d", len(ff.built))
	}
	p := ff.built[0]
	p.becomeReady()

	if b.State() != Playing {
		t.Errorf("active ready bridge should play, state=%v", b.State())
	}
	cmds := p.commands()
	if len(cmds) != 2 || cmds[0] != "mute" || cmds[1] != "play" {
		t.Errorf("expected [mute play], got %v", cmds)
	}

	b.SetActive(false)
	if b.State() != Paused {
		t.Errorf("expected paused, got %v", b.State())
	}

	b.SetRendered(false)
	if !p.closed || b.State() != Unready || b.Player() != nil {
		t.Error("release should close the player and reset state")
	}
}

func TestBridgeIgnoresReadyFromReleasedPlayer(t *testing.T) {
	m := mute.New(false)
	ff := &fakeFactory{}
	b := NewBridge(testItem("a"), ff.build, m, nil)
	b.SetActive(true)
	b.SetRendered(true)
	stale := ff.built[0]
	b.SetRendered(false)

	stale.becomeReady()
	if b.State() != Unready {
		t.Errorf("stale readiness applied: %v", b.State())
	}
	if len(stale.commands()) != 0 {
		t.Errorf("commands sent to released player: %v", stale.commands())
	}
}

func TestMuteFanOutReachesEveryBridge(t *testing.T) {
	m := mute.New(false)
	ff := &fakeFactory{}
	const n = 4
	bridges := make([]*Bridge, n)
	for i := range bridges {
		bridges[i] = NewBridge(testItem(string(rune('a'+i))), ff.build, m, nil)
		bridges[i].SetRendered(true)
		ff.built[i].becomeReady()
	}

	bridges[0].ToggleMute()
	for i, p := range ff.built {
		cmds := p.commands()
		if cmds[len(cmds)-1] != "mute" {
			t.Errorf("bridge %d did not observe mute: %v", i, cmds)
		}
	}
	if !m.Muted() {
		t.Error("broadcast state not flipped")
	}
}

func TestCloseUnsubscribes(t *testing.T) {
	m := mute.New(false)
	ff := &fakeFactory{}
	var bridges []*Bridge
	for i := 0; i < 3; i++ {
		bridges = append(bridges, NewBridge(testItem(string(rune('a'+i))), ff.build, m, nil))
	}
	if m.Subscribers() != 3 {
		t.Fatalf("expected 3 subscribers, got %d", m.Subscribers())
	}
	for _, b := range bridges {
		b.Close()
		b.Close()
	}
	if m.Subscribers() != 0 {
		t.Errorf("subscriber leak: %d", m.Subscribers())
	}
}

func TestBridgeWithDirectLocalMedia(t *testing.T) {
	clock := newManualClock()
	m := mute.New(true)
	var media *LocalMedia
	factory := func(item model.FeedItem, onReady func()) Player {
		media = NewLocalMedia(item.Video.URL, clock)
		return NewDirect(media, onReady)
	}
	b := NewBridge(testItem("v"), factory, m, nil)
	b.SetActive(true)
	b.SetRendered(true)

	if b.State() != Unready {
		t.Fatal("should wait for decode readiness")
	}
	clock.Advance(DecodeDelay)
	if b.State() != Playing {
		t.Fatalf("expected playing after decode, got %v", b.State())
	}
	st := media.State()
	if !st.Playing || !st.Muted {
		t.Errorf("media should play muted, got %+v", st)
	}

	b.ToggleMute()
	if media.State().Muted {
		t.Error("unmute not applied synchronously")
	}
}

func TestInWindow(t *testing.T) {
	if !InWindow(model.VideoDirect, 5, 2) || InWindow(model.VideoDirect, 6, 2) {
		t.Error("direct window should be ±3")
	}
	if !InWindow(model.VideoEmbedded, 0, 2) || InWindow(model.VideoEmbedded, 5, 2) {
		t.Error("embedded window should be ±2")
	}
}
