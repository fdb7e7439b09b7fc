package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadTailLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	lines := []string{
		`{"t":"2026-01-01T00:00:00Z","kind":"feed.fetch_start","comp":"queue"}`,
		`not json`,
		`{"t":"2026-01-01T00:00:01Z","kind":"cache.store","comp":"cache","url":"https://cdn.test/a.mp4"}`,
		`{"t":"2026-01-01T00:00:02Z","kind":"cache.evict","comp":"cache"}`,
		`{"t":"2026-01-01T00:00:03Z","kind":"poll.done","comp":"controller","job":"job-1"}`,
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	got := readTailLines(f, 1, func(ev eventRecord) bool { return strings.HasPrefix(ev.Kind, "cache") })
	if len(got) != 1 || got[0].ev.Kind != "cache.evict" {
		t.Fatalf("expected last cache event, got %+v", got)
	}
}

func TestDurPrecision(t *testing.T) {
	if durPrecision(250) != 0 || durPrecision(12.5) != 1 || durPrecision(0.25) != 2 {
		t.Error("unexpected precision")
	}
}
