// Command scrollbet is a terminal client for the scroll-to-bet feed.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/abelbrown/scrollbet/internal/api"
	"github.com/abelbrown/scrollbet/internal/config"
	"github.com/abelbrown/scrollbet/internal/controller"
	"github.com/abelbrown/scrollbet/internal/logging"
	"github.com/abelbrown/scrollbet/internal/mediacache"
	"github.com/abelbrown/scrollbet/internal/mute"
	"github.com/abelbrown/scrollbet/internal/otel"
	"github.com/abelbrown/scrollbet/internal/prefetch"
	"github.com/abelbrown/scrollbet/internal/queue"
	"github.com/abelbrown/scrollbet/internal/store"
	"github.com/abelbrown/scrollbet/internal/ui"
	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	apiURL := flag.String("api", "", "Backend base URL (overrides config and "+config.EnvAPIURL+")")
	session := flag.String("session", "", "Session name for the restored feed")
	fresh := flag.Bool("fresh", false, "Discard the saved feed and start over")
	muted := flag.Bool("muted", false, "Start muted")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fatal("Failed to load config: %v", err)
	}
	if *apiURL != "" {
		cfg.APIURL = *apiURL
	}
	if *session != "" {
		cfg.Session = *session
	}

	dataDir := config.DataDir()
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		fatal("Failed to create data directory: %v", err)
	}

	if err := logging.Init(dataDir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logging: %v\n", err)
	}
	defer logging.Close()

	// Structured events: JSONL on disk, last 256 in memory for the debug overlay.
	events, closeEvents := openEvents()
	defer closeEvents()
	ring := otel.NewRingBuffer(256)
	events.SetRingBuffer(ring)
	events.Emit(otel.Event{Kind: otel.KindStartup, Comp: "main", Msg: cfg.APIURL,
		Extra: map[string]any{"session": cfg.Session}})

	st, err := store.Open(config.DBPath())
	if err != nil {
		fatal("Failed to open database: %v", err)
	}
	defer st.Close()
	snapshots := st.Session(cfg.Session)

	client := api.NewClient(cfg.APIURL, api.Options{
		Timeout: cfg.HTTP.Timeout(),
		RPS:     cfg.HTTP.RequestsPerSec,
		Burst:   cfg.HTTP.Burst,
	})

	blobs, err := mediacache.NewDirBlobs(config.MediaDir())
	if err != nil {
		fatal("Failed to create media directory: %v", err)
	}
	// Blobs only live as long as the cache entries that own them.
	defer blobs.RemoveAll()

	cache := mediacache.New(mediacache.Options{
		MaxEntries: cfg.Prefetch.CacheEntries,
		Fetch:      mediacache.HTTPFetch(client.HTTPClient()),
		Blobs:      blobs,
		Events:     events,
	})
	defer cache.Close()

	feed := controller.New(client, cache, controller.Options{
		Queue: queue.Options{
			BatchSize: cfg.Feed.BatchSize,
			Threshold: cfg.Feed.MoreThreshold,
			Snapshots: snapshots,
		},
		Prefetch: prefetch.Options{
			Behind:    cfg.Prefetch.Behind,
			Lookahead: cfg.Prefetch.Lookahead,
			Parallel:  cfg.Prefetch.Parallel,
			Hinter:    prefetch.HeadHinter{Client: client.HTTPClient()},
		},
		Mute:        mute.New(*muted),
		JobInterval: cfg.Polling.Job(),
		Events:      events,
	})
	defer feed.Close()
	if *fresh {
		feed.Queue().Clear()
	}
	feed.WatchGenerated(cfg.Polling.GeneratedFirst(), cfg.Polling.GeneratedEvery())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app := ui.NewApp(ctx, ui.AppConfig{
		Engine: feed,
		Ring:   ring,
		Events: events,
		Features: ui.Features{
			Generate: cfg.UI.Generate,
			Candles:  cfg.UI.Candles,
		},
	})

	logging.Info("starting UI", "api", cfg.APIURL, "session", cfg.Session)
	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		logging.Error("application error", "error", err)
		fatal("Error: %v", err)
	}

	events.Emit(otel.Event{Kind: otel.KindShutdown, Comp: "main"})
	logging.Info("scrollbet exiting normally")
}

// openEvents opens the JSONL event log, falling back to a null logger.
func openEvents() (*otel.Logger, func()) {
	path := config.EventLogPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err == nil {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err == nil {
			l := otel.NewLogger(f)
			return l, func() {
				l.Close()
				f.Close()
			}
		}
		logging.Warn("event log unavailable", "path", path, "error", err)
	}
	l := otel.NewNullLogger()
	return l, l.Close
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
