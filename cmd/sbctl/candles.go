package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/abelbrown/scrollbet/internal/api"
)

func runCandles() {
	fs := flag.NewFlagSet("candles", flag.ExitOnError)
	apiURL := fs.String("api", "", "Backend base URL")
	series := fs.String("series", "", "Series ticker (e.g. KXSB)")
	hours := fs.Int("hours", 24, "Hours of history")
	period := fs.Int("period", 60, "Candle period in minutes")
	fs.Parse(os.Args[1:])

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: sbctl candles [flags] <ticker>")
		os.Exit(2)
	}
	client := newClient(loadConfig(), *apiURL)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	candles, err := client.Candlesticks(ctx, api.CandleQuery{
		Ticker:       fs.Arg(0),
		SeriesTicker: *series,
		Period:       *period,
		Hours:        *hours,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if len(candles) == 0 {
		fmt.Println("No history.")
		return
	}

	for _, c := range candles {
		bar := strings.Repeat("█", int(c.Price*40+0.5))
		fmt.Printf("%s  %5.1f¢  %s\n", time.Unix(c.TS, 0).Format("Jan 02 15:04"), c.Price*100, bar)
	}
}
