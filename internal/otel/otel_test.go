package otel

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

// syncBuffer is a bytes.Buffer safe for the drain goroutine and the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestLoggerWritesJSONL(t *testing.T) {
	var out syncBuffer
	l := NewLogger(&out)
	l.Emit(Event{Kind: KindFetchStart, Comp: "queue", Count: 10})
	l.Emit(Event{Kind: KindFetchComplete, Dur: 1500 * time.Millisecond})
	l.Close()

	sc := bufio.NewScanner(bytes.NewBufferString(out.String()))
	var lines []map[string]any
	for sc.Scan() {
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("invalid JSON line %q: %v", sc.Text(), err)
		}
		lines = append(lines, m)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0]["kind"] != string(KindFetchStart) {
		t.Errorf("unexpected kind %v", lines[0]["kind"])
	}
	if lines[0]["session_id"] != l.SessionID() {
		t.Errorf("expected session id %s, got %v", l.SessionID(), lines[0]["session_id"])
	}
	if lines[1]["dur_ms"] != 1500.0 {
		t.Errorf("expected dur_ms 1500, got %v", lines[1]["dur_ms"])
	}
}

func TestLoggerEmitAfterCloseIsDropped(t *testing.T) {
	l := NewNullLogger()
	l.Close()
	l.Emit(Event{Kind: KindStartup})
	if l.Dropped() != 1 {
		t.Errorf("expected 1 dropped, got %d", l.Dropped())
	}
	l.Close() // second close is a no-op
}

func TestLoggerNilSafe(t *testing.T) {
	var l *Logger
	l.Emit(Event{Kind: KindStartup})
	l.Close()
}

func TestLoggerFeedsRingBuffer(t *testing.T) {
	ring := NewRingBuffer(8)
	l := NewNullLogger()
	l.SetRingBuffer(ring)
	l.Info(KindStartup, "main", "hello")
	l.Error(KindError, "main", errors.New("boom"))
	l.Close()

	last := ring.Last(2)
	if len(last) != 2 {
		t.Fatalf("expected 2 events, got %d", len(last))
	}
	if last[0].Kind != KindStartup || last[1].Err != "boom" {
		t.Errorf("unexpected events %+v", last)
	}
}

func TestRingBufferWrapsOldestFirst(t *testing.T) {
	r := NewRingBuffer(3)
	for i := 1; i <= 5; i++ {
		r.Push(Event{Kind: KindCacheStore, Count: i})
	}
	snap := r.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("expected 3 events, got %d", len(snap))
	}
	for i, want := range []int{3, 4, 5} {
		if snap[i].Count != want {
			t.Errorf("snap[%d].Count = %d, want %d", i, snap[i].Count, want)
		}
	}
	if got := r.Last(10); len(got) != 3 {
		t.Errorf("Last(10) returned %d events, want 3", len(got))
	}
	if r.Last(0) != nil {
		t.Error("Last(0) should be nil")
	}
}

func TestRingBufferStats(t *testing.T) {
	r := NewRingBuffer(0)
	if r.Cap() != DefaultRingSize {
		t.Errorf("expected default size %d, got %d", DefaultRingSize, r.Cap())
	}
	r.Push(Event{Kind: KindCacheEvict})
	r.Push(Event{Kind: KindCacheEvict})
	r.Push(Event{Kind: KindCacheHit})
	stats := r.Stats()
	if stats[KindCacheEvict] != 2 || stats[KindCacheHit] != 1 {
		t.Errorf("unexpected stats %v", stats)
	}
}

func TestRingBufferCopiesExtra(t *testing.T) {
	r := NewRingBuffer(2)
	extra := map[string]any{"a": 1}
	r.Push(Event{Kind: KindStartup, Extra: extra})
	extra["a"] = 2
	if r.Last(1)[0].Extra["a"] != 1 {
		t.Error("ring buffer aliases Extra map")
	}
}

func TestTraceToggle(t *testing.T) {
	orig := TraceEnabled()
	defer setTraceEnabled(orig)

	setTraceEnabled(true)
	if !TraceEnabled() {
		t.Error("expected trace enabled")
	}
	setTraceEnabled(false)
	if TraceEnabled() {
		t.Error("expected trace disabled")
	}
}
