// Package playback keeps each rendered feed item's player in sync with the
// feed: which item is active, which items are rendered at all, and the
// shared mute flag.
//
// There are two kinds of player behind one Player interface:
//
//   - Embedded talks to a remote player frame over a Channel. Commands are
//     fire-and-forget JSON messages; readiness is only trusted when it comes
//     from an allow-listed origin and echoes this player's request id.
//   - Direct drives a local MediaElement synchronously.
//
// A Bridge owns at most one Player and creates or destroys it as the item
// enters or leaves the render window.
package playback

import "github.com/abelbrown/scrollbet/internal/model"

// Player is the control surface shared by every player kind.
// Commands sent before the player is ready may be dropped.
type Player interface {
	Play()
	Pause()
	Mute()
	Unmute()
	SeekStart()
	Ready() bool
	Close()
}

// Factory builds the player for item. onReady must be called at most once,
// when the player can accept commands.
type Factory func(item model.FeedItem, onReady func()) Player

// State of a Bridge.
type State int

const (
	Unready State = iota
	Ready
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "unready"
	}
}

// Render window radii, in pages from the active item.
const (
	DirectRenderRadius   = 3
	EmbeddedRenderRadius = 2
)

// RenderWindow returns how many pages around the active item keep a player
// of the given kind alive. Direct media is cheaper to rebuild, so it gets
// the wider window.
func RenderWindow(kind model.VideoKind) int {
	if kind == model.VideoDirect {
		return DirectRenderRadius
	}
	return EmbeddedRenderRadius
}

// InWindow reports whether the item at index should be rendered when active
// is the current page.
func InWindow(kind model.VideoKind, index, active int) bool {
	d := index - active
	if d < 0 {
		d = -d
	}
	return d <= RenderWindow(kind)
}
