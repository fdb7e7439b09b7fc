package ui

import (
	"fmt"
	"math"
	"strings"

	"github.com/abelbrown/scrollbet/internal/controller"
	"github.com/abelbrown/scrollbet/internal/model"
	"github.com/abelbrown/scrollbet/internal/playback"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// cardView is everything RenderCard needs about one page.
type cardView struct {
	Item    model.FeedItem
	Player  controller.PlayerStatus
	Bet     model.Side
	Muted   bool
	Candles []model.Candlestick
}

// RenderCard renders the page under the viewport. Pure function.
func RenderCard(v cardView, price progress.Model, width, height int) string {
	inner := width - 8 // border + padding
	if inner < 20 {
		inner = 20
	}

	var lines []string

	var badges string
	if v.Item.Injected {
		label := "FOR YOU"
		if v.Item.InjectedSide != model.SideNone {
			label += " · " + string(v.Item.InjectedSide)
		}
		badges += InjectedBadge.Render(label)
	}
	badges += KindBadge.Render(kindLabel(v.Item.Video))
	lines = append(lines, badges)

	lines = append(lines, CardTitle.Render(truncate(v.Item.Title(), inner)))
	lines = append(lines, CardMeta.Render(truncate(playerLine(v.Player, v.Muted), inner)))

	if m, ok := v.Item.Market(); ok {
		lines = append(lines, MarketQuestion.Render(truncate(m.Question, inner)))
		lines = append(lines, priceLine(m, v.Bet, price, inner))
		if len(v.Candles) > 1 {
			lines = append(lines, Chart.Render(Sparkline(v.Candles, inner)))
		}
	}

	body := strings.Join(lines, "\n")
	card := Card.Width(width - 4).Render(body)

	// Center the card vertically in the space above the status bar.
	free := height - lipgloss.Height(card) - 1
	if free > 1 {
		card = strings.Repeat("\n", free/2) + card
	}
	return card
}

func kindLabel(v model.Video) string {
	if v.IsDirect() {
		return "video"
	}
	return "youtube"
}

func playerLine(st controller.PlayerStatus, muted bool) string {
	var parts []string
	switch {
	case !st.Rendered:
		parts = append(parts, "not loaded")
	case st.State == playback.Unready:
		parts = append(parts, "loading…")
	default:
		parts = append(parts, st.State.String())
	}
	if st.Position > 0 {
		parts = append(parts, fmt.Sprintf("%.1fs", st.Position.Seconds()))
	}
	if muted {
		parts = append(parts, "muted")
	}
	if st.Source != "" {
		parts = append(parts, st.Source)
	}
	return strings.Join(parts, " · ")
}

func priceLine(m model.Market, bet model.Side, price progress.Model, width int) string {
	yes := YesPrice.Render(fmt.Sprintf("YES %d¢", m.YesPrice))
	no := NoPrice.Render(fmt.Sprintf("NO %d¢", m.NoPrice))
	switch bet {
	case model.SideYes:
		yes = BetMarker.Render(fmt.Sprintf("YES %d¢ ✓", m.YesPrice))
	case model.SideNo:
		no = BetMarker.Background(colorNo).Render(fmt.Sprintf("NO %d¢ ✓", m.NoPrice))
	}
	barWidth := width - lipgloss.Width(yes) - lipgloss.Width(no) - 2
	if barWidth < 4 {
		return yes + "  " + no
	}
	price.Width = barWidth
	return yes + " " + price.ViewAs(float64(m.YesPrice)/100) + " " + no
}

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// Sparkline draws candle prices as a one-line block chart, resampled to
// at most width points.
func Sparkline(candles []model.Candlestick, width int) string {
	if len(candles) == 0 || width <= 0 {
		return ""
	}
	pts := candles
	if len(pts) > width {
		pts = make([]model.Candlestick, width)
		for i := range pts {
			pts[i] = candles[i*len(candles)/width]
		}
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, c := range pts {
		lo = math.Min(lo, c.Price)
		hi = math.Max(hi, c.Price)
	}
	var b strings.Builder
	for _, c := range pts {
		i := 0
		if hi > lo {
			i = int((c.Price - lo) / (hi - lo) * float64(len(sparkBlocks)-1))
		}
		b.WriteRune(sparkBlocks[i])
	}
	return b.String()
}

// truncate shortens s to width terminal cells.
func truncate(s string, width int) string {
	return runewidth.Truncate(s, width, "…")
}

// RenderStatusBar renders the bottom status bar with key hints and position.
func RenderStatusBar(active, total int, width int, loading bool, spin string, hints string) string {
	var position string
	switch {
	case total == 0 && loading:
		position = " " + spin + " Loading… "
	case loading:
		position = fmt.Sprintf(" %d/%d %s ", active+1, total, spin)
	default:
		position = fmt.Sprintf(" %d/%d ", active+1, total)
	}

	leftWidth := lipgloss.Width(position)
	if leftWidth+lipgloss.Width(hints) > width {
		hints = ""
	}
	padding := width - leftWidth - lipgloss.Width(hints)
	if padding < 0 {
		padding = 0
	}
	return StatusBar.Width(width).Render(position + strings.Repeat(" ", padding) + hints)
}

// scrollGutter draws a one-column track with a thumb at offset.
func scrollGutter(offset float64, total, height int) string {
	if total <= 1 || height < 3 {
		return ""
	}
	thumb := int(math.Round(offset / float64(total-1) * float64(height-1)))
	if thumb < 0 {
		thumb = 0
	}
	if thumb > height-1 {
		thumb = height - 1
	}
	rows := make([]string, height)
	for i := range rows {
		if i == thumb {
			rows[i] = StatusBarKey.Render("┃")
		} else {
			rows[i] = ScrollTrack.Render("│")
		}
	}
	return strings.Join(rows, "\n")
}
