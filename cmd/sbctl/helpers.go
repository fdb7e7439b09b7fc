package main

import (
	"log"
	"os"

	"github.com/abelbrown/scrollbet/internal/api"
	"github.com/abelbrown/scrollbet/internal/config"
	"github.com/abelbrown/scrollbet/internal/store"
)

// loadConfig reads ~/.scrollbet/config.json or fatals.
func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// eventLogPath returns the path to scrollbet.events.jsonl.
func eventLogPath() string {
	return config.EventLogPath()
}

// openDB opens the snapshot store or fatals.
func openDB() *store.Store {
	if err := os.MkdirAll(config.DataDir(), 0755); err != nil {
		log.Fatalf("failed to create data directory: %v", err)
	}
	st, err := store.Open(config.DBPath())
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	return st
}

// newClient builds a backend client from cfg, with apiURL taking precedence.
func newClient(cfg *config.Config, apiURL string) *api.Client {
	if apiURL != "" {
		cfg.APIURL = apiURL
	}
	return api.NewClient(cfg.APIURL, api.Options{
		Timeout: cfg.HTTP.Timeout(),
		RPS:     cfg.HTTP.RequestsPerSec,
		Burst:   cfg.HTTP.Burst,
	})
}

// truncate shortens a string to max runes, appending "..." if truncated.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
