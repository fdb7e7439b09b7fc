package controller

import (
	"time"

	"github.com/abelbrown/scrollbet/internal/model"
	"github.com/abelbrown/scrollbet/internal/otel"
	"github.com/abelbrown/scrollbet/internal/playback"
)

// Emulated widget timing for the terminal preview.
const (
	frameBootDelay = 400 * time.Millisecond
	frameDuration  = 30 * time.Second
	embedOrigin    = "https://www.youtube-nocookie.com"
)

// embeddedPlayer ties an Embedded player to its emulated frame.
type embeddedPlayer struct {
	*playback.Embedded
	frame *playback.RemoteFrame
}

func (p embeddedPlayer) Close() {
	p.Embedded.Close()
	p.frame.Close()
}

// FrameState exposes what the emulated frame is doing.
func (p embeddedPlayer) FrameState() playback.FrameState { return p.frame.State() }

// directPlayer keeps the media element reachable for status display.
type directPlayer struct {
	*playback.Direct
	media *playback.LocalMedia
}

// MediaState exposes the local element's transport state.
func (p directPlayer) MediaState() playback.MediaState { return p.media.State() }

// TerminalFactory builds players that run without a browser: direct media
// plays from the cached blob when there is one, embedded video talks to an
// emulated widget over an in-memory pipe.
func TerminalFactory(cache Cache, clock playback.Clock, events *otel.Logger) playback.Factory {
	return func(item model.FeedItem, onReady func()) playback.Player {
		if item.Video.IsDirect() {
			src := item.Video.URL
			if cache != nil {
				if h, ok := cache.Lookup(src); ok {
					src = h.Path
				}
			}
			media := playback.NewLocalMedia(src, clock)
			return directPlayer{Direct: playback.NewDirect(media, onReady), media: media}
		}

		pipe := playback.NewPipe(embedOrigin)
		frame := playback.NewRemoteFrame(pipe.Frame(), clock, frameBootDelay, frameDuration)
		e := playback.NewEmbedded(pipe.Host(), onReady, playback.EmbeddedOptions{
			Clock:  clock,
			Events: events,
			ItemID: item.ID,
		})
		return embeddedPlayer{Embedded: e, frame: frame}
	}
}

// PlayerStatus is a display summary of an item's player.
type PlayerStatus struct {
	State    playback.State
	Rendered bool
	Source   string // blob path or URL for direct media
	Position time.Duration
}

// Status describes the player of item id.
func (f *Feed) Status(id string) PlayerStatus {
	b, ok := f.Bridge(id)
	if !ok {
		return PlayerStatus{}
	}
	st := PlayerStatus{State: b.State(), Rendered: b.Rendered()}
	switch p := b.Player().(type) {
	case directPlayer:
		ms := p.MediaState()
		st.Source, st.Position = ms.Source, ms.Position
	case embeddedPlayer:
		st.Source = b.Item().Video.PlatformID
	}
	return st
}
