package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/abelbrown/scrollbet/internal/model"
	"github.com/abelbrown/scrollbet/internal/poll"
)

func runJob() {
	fs := flag.NewFlagSet("job", flag.ExitOnError)
	apiURL := fs.String("api", "", "Backend base URL")
	interval := fs.Duration("interval", poll.DefaultJobInterval, "Poll interval")
	once := fs.Bool("once", false, "Print the current status and exit")
	fs.Parse(os.Args[1:])

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: sbctl job [flags] <job-id>")
		os.Exit(2)
	}
	jobID := fs.Arg(0)
	client := newClient(loadConfig(), *apiURL)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *once {
		s, err := client.JobStatus(ctx, jobID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		printStatus(jobID, s)
		return
	}

	start := time.Now()
	p := poll.WatchJob(client, jobID, *interval)
	p.OnStatus = func(s model.JobStatus) {
		fmt.Printf("%6s  ", time.Since(start).Round(time.Second))
		printStatus(jobID, s)
	}
	p.OnError = func(err error) {
		fmt.Fprintf(os.Stderr, "%6s  poll failed: %v\n", time.Since(start).Round(time.Second), err)
	}

	fmt.Printf("Following %s every %s (Ctrl-C to stop)\n", jobID, *interval)
	final, err := p.Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "stopped: %v\n", err)
		os.Exit(1)
	}
	if final.State == model.JobError {
		os.Exit(1)
	}
}

func printStatus(jobID string, s model.JobStatus) {
	switch s.State {
	case model.JobDone:
		fmt.Printf("%s done: %s\n", jobID, s.Result.PreferredURL())
	case model.JobError:
		fmt.Printf("%s failed: %s\n", jobID, s.Message)
	default:
		fmt.Printf("%s %s\n", jobID, s.State)
	}
}
