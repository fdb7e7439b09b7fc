// Command sbctl is the scrollbet debugging and maintenance CLI.
//
// Usage:
//
//	sbctl                     Show help
//	sbctl feed                Print what the backend serves
//	sbctl snapshot            List saved feeds
//	sbctl snapshot -show      Print a session's saved feed
//	sbctl snapshot -remove ID Drop one item from a session's saved feed
//	sbctl clear               Discard a session's saved feed
//	sbctl job <id>            Follow a generation job until it finishes
//	sbctl candles <ticker>    Print a market's price history
//	sbctl events              JSONL event log viewer
package main

import (
	"fmt"
	"os"
)

const usage = `sbctl - scrollbet debug & maintenance CLI

Usage:
  sbctl <command> [flags]

Commands:
  feed        Print the static, pool or matched feed
  snapshot    List saved feeds, print one with -show, or edit with -remove
  clear       Discard a session's saved feed
  job         Follow a generation job until it finishes
  candles     Print a market's price history
  events      JSONL event log viewer

Environment:
  SCROLLBET_API_URL   Backend base URL (default: from ~/.scrollbet/config.json)

Run 'sbctl <command> -h' for command-specific help.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(0)
	}

	cmd := os.Args[1]
	// Strip the program name + subcommand so flag sets see only their flags
	os.Args = os.Args[1:]

	switch cmd {
	case "feed":
		runFeed()
	case "snapshot":
		runSnapshot()
	case "clear":
		runClear()
	case "job":
		runJob()
	case "candles":
		runCandles()
	case "events":
		runEvents()
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "sbctl: unknown command %q\n\n", cmd)
		fmt.Print(usage)
		os.Exit(1)
	}
}
