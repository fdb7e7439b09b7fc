package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/abelbrown/scrollbet/internal/controller"
	"github.com/abelbrown/scrollbet/internal/model"
	"github.com/abelbrown/scrollbet/internal/otel"
	"github.com/abelbrown/scrollbet/internal/playback"
)

// debugPanelChrome is the border plus vertical padding of DebugPanel.
const debugPanelChrome = 4

// playerRow is one item of the render window as the overlay shows it.
type playerRow struct {
	Index  int
	Item   model.FeedItem
	Status controller.PlayerStatus
	Active bool
}

// debugState is everything the overlay draws.
type debugState struct {
	Ring    *otel.RingBuffer
	Players []playerRow
}

// playerRows collects the items around active that may hold a player.
func playerRows(e Engine) []playerRow {
	if e == nil {
		return nil
	}
	active, _, ok := e.Active()
	if !ok {
		return nil
	}
	items := e.Items()
	var rows []playerRow
	for i := active - playback.DirectRenderRadius; i <= active+playback.DirectRenderRadius; i++ {
		if i < 0 || i >= len(items) {
			continue
		}
		rows = append(rows, playerRow{
			Index:  i,
			Item:   items[i],
			Status: e.Status(items[i].ID),
			Active: i == active,
		})
	}
	return rows
}

func playerLineDebug(r playerRow) string {
	mark := " "
	if r.Active {
		mark = ">"
	}
	state := "-"
	if r.Status.Rendered {
		state = r.Status.State.String()
	}
	line := fmt.Sprintf(" %s%3d  %-7s %-8s %s", mark, r.Index, r.Item.Video.Kind, state, truncateRunes(r.Item.ID, 18))
	if r.Status.Source != "" {
		line += "  " + truncateRunes(r.Status.Source, 24)
	}
	if r.Status.Position > 0 {
		line += fmt.Sprintf(" @%s", r.Status.Position.Round(100*time.Millisecond))
	}
	return line
}

func eventLine(e otel.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  %6s  %-22s", formatAge(time.Since(e.Time)), e.Kind)
	if e.Msg != "" {
		b.WriteString("  " + truncateRunes(e.Msg, 40))
	}
	if e.Err != "" {
		b.WriteString("  ERR:" + truncateRunes(e.Err, 30))
	}
	if e.ItemID != "" {
		b.WriteString("  item:" + truncateRunes(e.ItemID, 12))
	}
	if e.JobID != "" {
		b.WriteString("  job:" + truncateRunes(e.JobID, 8))
	}
	return b.String()
}

// debugOverlay renders counters, the render window and the latest events.
// It returns "" without a ring buffer.
func debugOverlay(s debugState, width, height int) string {
	ring := s.Ring
	if ring == nil {
		return ""
	}
	n := ring.Stats()

	lines := []string{
		DebugHeaderStyle.Render("Feed Stats"),
		fmt.Sprintf("  Fetches:    %d complete, %d errors", n[otel.KindFetchComplete], n[otel.KindFetchError]),
		fmt.Sprintf("  Feed:       %d activations, %d injected, %d consumed", n[otel.KindActivate], n[otel.KindInject], n[otel.KindConsume]),
		fmt.Sprintf("  Cache:      %d stored, %d hits, %d evicted, %d errors", n[otel.KindCacheStore], n[otel.KindCacheHit], n[otel.KindCacheEvict], n[otel.KindCacheError]),
		fmt.Sprintf("  Jobs:       %d polls, %d finished, %d bets", n[otel.KindPollTick], n[otel.KindPollDone], n[otel.KindBet]),
		fmt.Sprintf("  Buffer:     %d / %d events", ring.Len(), ring.Cap()),
		"",
	}

	if len(s.Players) > 0 {
		lines = append(lines, DebugHeaderStyle.Render(fmt.Sprintf("Players (%d ready, %d probes, %d released)",
			n[otel.KindBridgeReady], n[otel.KindBridgeProbe], n[otel.KindBridgeRelease])))
		for _, r := range s.Players {
			lines = append(lines, playerLineDebug(r))
		}
		lines = append(lines, "")
	}

	lines = append(lines, DebugHeaderStyle.Render("Recent Events"))
	for _, e := range ring.Last(20) {
		lines = append(lines, eventLine(e))
	}

	if limit := height - debugPanelChrome; len(lines) > limit {
		if limit < 1 {
			limit = 1
		}
		lines = lines[:limit]
	}

	w := width - 4
	if w > 76 {
		w = 76
	}
	if w < 20 {
		w = 20
	}
	return DebugPanel.Width(w).Render(strings.Join(lines, "\n"))
}

// formatAge is a compact age; negative durations read as "0ms".
func formatAge(d time.Duration) string {
	switch {
	case d < 0:
		return "0ms"
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
}

func debugStatusBar(width int) string {
	keys := StatusBarKey.Render("D") + StatusBarText.Render(":close")
	return StatusBar.Width(width).Render("  [DEBUG]  " + keys)
}

// truncateRunes cuts s to n runes, ending in an ellipsis when it was longer.
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
