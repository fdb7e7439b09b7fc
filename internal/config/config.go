// Package config holds scrollbet's persistent configuration.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultAPIURL is the backend used when nothing else is configured.
const DefaultAPIURL = "http://localhost:8000"

// EnvAPIURL overrides APIURL from the environment.
const EnvAPIURL = "SCROLLBET_API_URL"

// Config is the persistent application configuration.
type Config struct {
	APIURL  string `json:"api_url"`
	Session string `json:"session"`

	Feed     FeedConfig     `json:"feed"`
	Prefetch PrefetchConfig `json:"prefetch"`
	Polling  PollingConfig  `json:"polling"`
	HTTP     HTTPConfig     `json:"http"`
	UI       UIConfig       `json:"ui"`
}

// FeedConfig controls the feed queue.
type FeedConfig struct {
	BatchSize     int `json:"batch_size"`
	MoreThreshold int `json:"more_threshold"` // fetch more when this close to the end
}

// PrefetchConfig controls the prefetch window and media cache.
type PrefetchConfig struct {
	Behind       int `json:"behind"`
	Lookahead    int `json:"lookahead"`
	CacheEntries int `json:"cache_entries"`
	Parallel     int `json:"parallel"`
}

// PollingConfig holds the poll intervals, in milliseconds.
type PollingConfig struct {
	GeneratedFirstMs int `json:"generated_first_ms"`
	GeneratedEveryMs int `json:"generated_every_ms"`
	JobMs            int `json:"job_ms"`
}

// HTTPConfig controls the backend client.
type HTTPConfig struct {
	TimeoutSeconds int     `json:"timeout_seconds"`
	RequestsPerSec float64 `json:"requests_per_sec"`
	Burst          int     `json:"burst"`
}

// UIConfig toggles optional TUI actions.
type UIConfig struct {
	Generate bool `json:"generate"`
	Candles  bool `json:"candles"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		APIURL:  DefaultAPIURL,
		Session: "default",
		Feed: FeedConfig{
			BatchSize:     10,
			MoreThreshold: 3,
		},
		Prefetch: PrefetchConfig{
			Behind:       1,
			Lookahead:    3,
			CacheEntries: 8,
			Parallel:     2,
		},
		Polling: PollingConfig{
			GeneratedFirstMs: 3000,
			GeneratedEveryMs: 30000,
			JobMs:            5000,
		},
		HTTP: HTTPConfig{
			TimeoutSeconds: 30,
			RequestsPerSec: 4,
			Burst:          4,
		},
		UI: UIConfig{
			Generate: true,
			Candles:  true,
		},
	}
}

// DataDir returns ~/.scrollbet.
func DataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".scrollbet")
}

// DBPath returns the snapshot database path.
func DBPath() string {
	return filepath.Join(DataDir(), "scrollbet.db")
}

// EventLogPath returns the JSONL event log path.
func EventLogPath() string {
	return filepath.Join(DataDir(), "scrollbet.events.jsonl")
}

// MediaDir is where cached media blobs live.
func MediaDir() string {
	return filepath.Join(DataDir(), "media")
}

// ConfigPath returns the path to the config file.
func ConfigPath() string {
	return filepath.Join(DataDir(), "config.json")
}

// Load reads the config file, or returns defaults if it does not exist.
// The environment override is applied either way.
func Load() (*Config, error) {
	return LoadFile(ConfigPath())
}

// LoadFile is Load for an explicit path.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		// unknown or broken files fall back to defaults
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			cfg = DefaultConfig()
		}
	}
	cfg.ApplyEnv()
	cfg.normalize()
	return cfg, nil
}

// Save writes the config file.
func (c *Config) Save() error {
	return c.SaveFile(ConfigPath())
}

// SaveFile is Save for an explicit path.
func (c *Config) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ApplyEnv applies SCROLLBET_API_URL.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvAPIURL)); v != "" {
		c.APIURL = v
	}
}

// normalize replaces zero or negative values with defaults.
func (c *Config) normalize() {
	d := DefaultConfig()
	c.APIURL = strings.TrimRight(c.APIURL, "/")
	if c.APIURL == "" {
		c.APIURL = d.APIURL
	}
	if c.Session == "" {
		c.Session = d.Session
	}
	if c.Feed.BatchSize <= 0 {
		c.Feed.BatchSize = d.Feed.BatchSize
	}
	if c.Feed.MoreThreshold <= 0 {
		c.Feed.MoreThreshold = d.Feed.MoreThreshold
	}
	if c.Prefetch.Behind < 0 {
		c.Prefetch.Behind = d.Prefetch.Behind
	}
	if c.Prefetch.Lookahead < 0 {
		c.Prefetch.Lookahead = d.Prefetch.Lookahead
	}
	if c.Prefetch.CacheEntries <= 0 {
		c.Prefetch.CacheEntries = d.Prefetch.CacheEntries
	}
	if c.Prefetch.Parallel <= 0 {
		c.Prefetch.Parallel = d.Prefetch.Parallel
	}
	if c.Polling.GeneratedFirstMs <= 0 {
		c.Polling.GeneratedFirstMs = d.Polling.GeneratedFirstMs
	}
	if c.Polling.GeneratedEveryMs <= 0 {
		c.Polling.GeneratedEveryMs = d.Polling.GeneratedEveryMs
	}
	if c.Polling.JobMs <= 0 {
		c.Polling.JobMs = d.Polling.JobMs
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		c.HTTP.TimeoutSeconds = d.HTTP.TimeoutSeconds
	}
	if c.HTTP.RequestsPerSec <= 0 {
		c.HTTP.RequestsPerSec = d.HTTP.RequestsPerSec
	}
	if c.HTTP.Burst <= 0 {
		c.HTTP.Burst = d.HTTP.Burst
	}
}

// Timeout is the per-request HTTP timeout.
func (h HTTPConfig) Timeout() time.Duration {
	return time.Duration(h.TimeoutSeconds) * time.Second
}

// GeneratedFirst is the delay before the first /pool/generated poll.
func (p PollingConfig) GeneratedFirst() time.Duration {
	return time.Duration(p.GeneratedFirstMs) * time.Millisecond
}

// GeneratedEvery is the /pool/generated poll interval.
func (p PollingConfig) GeneratedEvery() time.Duration {
	return time.Duration(p.GeneratedEveryMs) * time.Millisecond
}

// Job is the /jobs/status poll interval.
func (p PollingConfig) Job() time.Duration {
	return time.Duration(p.JobMs) * time.Millisecond
}
