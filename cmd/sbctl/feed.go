package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/abelbrown/scrollbet/internal/model"
	"github.com/abelbrown/scrollbet/internal/queue"
)

func runFeed() {
	fs := flag.NewFlagSet("feed", flag.ExitOnError)
	apiURL := fs.String("api", "", "Backend base URL")
	pool := fs.Bool("pool", false, "Read the pool feed instead of the static feed")
	count := fs.Int("count", 10, "Pool items to request")
	match := fs.String("match", "", "Comma-separated platform video ids to match against markets")
	fs.Parse(os.Args[1:])

	client := newClient(loadConfig(), *apiURL)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var items []model.FeedItem
	var err error
	switch {
	case *match != "":
		// Matched through a queue so invalid and repeated videos are dropped
		// the same way the feed drops them.
		q := queue.New(client, queue.Options{})
		if _, err = q.MatchBatch(ctx, strings.Split(*match, ",")); err == nil {
			items = q.Items()
		}
	case *pool:
		items, err = client.PoolFeed(ctx, *count, nil)
	default:
		items, err = client.Feed(ctx)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%d items\n\n", len(items))
	for i, it := range items {
		market := "-"
		if m, ok := it.Market(); ok {
			market = fmt.Sprintf("%s YES %d¢ / NO %d¢", m.Ticker, m.YesPrice, m.NoPrice)
		}
		fmt.Printf("%3d  %-8s %-50s %s\n", i, it.Video.Kind, truncate(it.Title(), 50), market)
	}
}
