package ui

import "github.com/charmbracelet/lipgloss"

// Colors used in the application.
var (
	colorPrimary   = lipgloss.Color("62")  // Purple
	colorSecondary = lipgloss.Color("241") // Gray
	colorMuted     = lipgloss.Color("240") // Darker gray
	colorHighlight = lipgloss.Color("212") // Pink
	colorYes       = lipgloss.Color("78")  // Green
	colorNo        = lipgloss.Color("203") // Red
)

// Card frames the active page.
var Card = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorPrimary).
	Padding(1, 2)

// CardTitle style for the video title.
var CardTitle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("255"))

// CardMeta style for the player line under the title.
var CardMeta = lipgloss.NewStyle().
	Foreground(colorSecondary)

// InjectedBadge marks items that were inserted because of a bet.
var InjectedBadge = lipgloss.NewStyle().
	Foreground(lipgloss.Color("0")).
	Background(colorHighlight).
	Padding(0, 1).
	MarginRight(1)

// KindBadge shows whether the item is embedded or direct media.
var KindBadge = lipgloss.NewStyle().
	Foreground(colorPrimary).
	Background(lipgloss.Color("236")).
	Padding(0, 1).
	MarginRight(1)

// MarketQuestion style for the market question.
var MarketQuestion = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	MarginTop(1)

// YesPrice and NoPrice style the two sides of a market.
var (
	YesPrice = lipgloss.NewStyle().Foreground(colorYes).Bold(true)
	NoPrice  = lipgloss.NewStyle().Foreground(colorNo).Bold(true)
)

// BetMarker highlights the side the viewer bet on.
var BetMarker = lipgloss.NewStyle().
	Foreground(lipgloss.Color("0")).
	Background(colorYes).
	Padding(0, 1)

// Chart style for the candle sparkline.
var Chart = lipgloss.NewStyle().
	Foreground(colorHighlight).
	MarginTop(1)

// ScrollTrack renders the page position gutter.
var ScrollTrack = lipgloss.NewStyle().
	Foreground(colorMuted)

// StatusBar style for the bottom status bar.
var StatusBar = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Background(lipgloss.Color("236")).
	Padding(0, 1)

// StatusBarKey style for key hints in status bar.
var StatusBarKey = lipgloss.NewStyle().
	Foreground(colorHighlight).
	Bold(true)

// StatusBarText style for descriptive text in status bar.
var StatusBarText = lipgloss.NewStyle().
	Foreground(colorSecondary)

// ErrorStyle for displaying errors.
var ErrorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("196")).
	Bold(true).
	Padding(0, 1)

// NoticeStyle for transient status messages.
var NoticeStyle = lipgloss.NewStyle().
	Foreground(colorHighlight).
	Padding(0, 1)

// HelpStyle for help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(colorMuted).
	Padding(1, 2)

// DebugPanel frames the debug overlay.
var DebugPanel = lipgloss.NewStyle().
	Border(lipgloss.NormalBorder()).
	BorderForeground(colorMuted).
	Padding(1, 2)

// DebugHeaderStyle for section headers in the debug overlay.
var DebugHeaderStyle = lipgloss.NewStyle().
	Foreground(colorHighlight).
	Bold(true)
