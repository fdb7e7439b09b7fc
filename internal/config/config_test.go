package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv(EnvAPIURL, "")
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.APIURL != DefaultAPIURL {
		t.Errorf("expected %s, got %s", DefaultAPIURL, cfg.APIURL)
	}
	if cfg.Prefetch.Behind != 1 || cfg.Prefetch.Lookahead != 3 || cfg.Prefetch.CacheEntries != 8 {
		t.Errorf("unexpected prefetch defaults %+v", cfg.Prefetch)
	}
	if cfg.Polling.GeneratedEvery() != 30*time.Second || cfg.Polling.Job() != 5*time.Second {
		t.Errorf("unexpected polling defaults %+v", cfg.Polling)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := DefaultConfig()
	cfg.APIURL = "http://file.example"
	if err := cfg.SaveFile(path); err != nil {
		t.Fatalf("SaveFile failed: %v", err)
	}

	t.Setenv(EnvAPIURL, "http://env.example/")
	got, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if got.APIURL != "http://env.example" {
		t.Errorf("expected env URL without trailing slash, got %s", got.APIURL)
	}
}

func TestRoundTripAndNormalize(t *testing.T) {
	t.Setenv(EnvAPIURL, "")
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := DefaultConfig()
	cfg.Feed.BatchSize = 25
	cfg.Prefetch.CacheEntries = 0
	if err := cfg.SaveFile(path); err != nil {
		t.Fatalf("SaveFile failed: %v", err)
	}
	got, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if got.Feed.BatchSize != 25 {
		t.Errorf("expected batch size 25, got %d", got.Feed.BatchSize)
	}
	if got.Prefetch.CacheEntries != 8 {
		t.Errorf("expected zero cache entries to normalize to 8, got %d", got.Prefetch.CacheEntries)
	}
}

func TestCorruptFileFallsBackToDefaults(t *testing.T) {
	t.Setenv(EnvAPIURL, "")
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Feed.BatchSize != 10 {
		t.Errorf("expected default batch size, got %d", cfg.Feed.BatchSize)
	}
}
