package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/abelbrown/scrollbet/internal/model"
	"github.com/abelbrown/scrollbet/internal/queue"
)

func runSnapshot() {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	show := fs.Bool("show", false, "Print the items of one session")
	session := fs.String("session", "", "Session name (default: from config)")
	remove := fs.String("remove", "", "Drop the item with this id from the saved feed")
	fs.Parse(os.Args[1:])

	st := openDB()
	defer st.Close()

	if *remove != "" {
		name := *session
		if name == "" {
			name = loadConfig().Session
		}
		q := queue.New(nil, queue.Options{Snapshots: st.Session(name)})
		if !q.Restore() {
			fmt.Printf("No saved feed for session %q.\n", name)
			return
		}
		if !q.Remove(*remove) {
			fmt.Fprintf(os.Stderr, "error: no item %q in session %q\n", *remove, name)
			os.Exit(1)
		}
		q.Persist()
		fmt.Printf("Removed %s from session %q (%d items left).\n", *remove, name, q.Len())
		return
	}

	if !*show {
		infos, err := st.List()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		if len(infos) == 0 {
			fmt.Println("No saved feeds.")
			return
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SESSION\tKEY\tBYTES\tSAVED")
		for _, info := range infos {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", info.Session, info.Key, info.Size,
				time.Since(info.SavedAt).Round(time.Second))
		}
		tw.Flush()
		return
	}

	name := *session
	if name == "" {
		name = loadConfig().Session
	}
	payload, err := st.Session(name).Load(queue.StorageKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if payload == nil {
		fmt.Printf("No saved feed for session %q.\n", name)
		return
	}
	var items []model.FeedItem
	if err := json.Unmarshal(payload, &items); err != nil {
		fmt.Fprintf(os.Stderr, "error: snapshot is corrupt: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Session %q: %d items\n\n", name, len(items))
	for i, it := range items {
		ticker := "-"
		if m, ok := it.Market(); ok {
			ticker = m.Ticker
		}
		fmt.Printf("%3d  %-8s %-14s %s\n", i, it.Video.Kind, ticker, truncate(it.Title(), 60))
	}
}

func runClear() {
	fs := flag.NewFlagSet("clear", flag.ExitOnError)
	session := fs.String("session", "", "Session name (default: from config)")
	all := fs.Bool("all", false, "Clear every key of the session")
	fs.Parse(os.Args[1:])

	name := *session
	if name == "" {
		name = loadConfig().Session
	}

	st := openDB()
	defer st.Close()

	if *all {
		n, err := st.DeleteSession(name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Removed %d snapshot(s) from session %q.\n", n, name)
		return
	}
	queue.New(nil, queue.Options{Snapshots: st.Session(name)}).Clear()
	fmt.Printf("Cleared saved feed for session %q.\n", name)
}
