// Package model provides the feed data types shared by every layer.
//
// A FeedItem pairs one short video with zero or more prediction markets.
// Items are values: once created they are never mutated, so they can be
// copied freely between the queue, the UI and background goroutines.
package model

// VideoKind identifies how a video is played.
type VideoKind string

const (
	// VideoEmbedded is a platform video (YouTube) played inside a remote frame.
	VideoEmbedded VideoKind = "youtube"
	// VideoDirect is a media file the client fetches and plays itself.
	VideoDirect VideoKind = "mp4"
)

// Video is either an embedded platform video or a direct media file.
// Exactly one of PlatformID and URL is set, matching Kind.
type Video struct {
	Kind       VideoKind `json:"kind"`
	PlatformID string    `json:"platform_id,omitempty"`
	URL        string    `json:"url,omitempty"`
	Title      string    `json:"title,omitempty"`
	Channel    string    `json:"channel,omitempty"`
	Thumbnail  string    `json:"thumbnail,omitempty"`
}

// EmbeddedVideo builds an embedded platform video.
func EmbeddedVideo(platformID, title string) Video {
	return Video{Kind: VideoEmbedded, PlatformID: platformID, Title: title}
}

// DirectVideo builds a direct media file video.
func DirectVideo(url, title string) Video {
	return Video{Kind: VideoDirect, URL: url, Title: title}
}

// Valid reports whether exactly one representation is set and it matches Kind.
func (v Video) Valid() bool {
	switch v.Kind {
	case VideoEmbedded:
		return v.PlatformID != "" && v.URL == ""
	case VideoDirect:
		return v.URL != "" && v.PlatformID == ""
	default:
		return false
	}
}

// IsDirect reports whether the client controls the media file itself.
func (v Video) IsDirect() bool {
	return v.Kind == VideoDirect
}

// Identity is the stable key used for de-duplication across fetches.
func (v Video) Identity() string {
	if v.Kind == VideoEmbedded {
		return v.PlatformID
	}
	return v.URL
}

// Side is the bet side recorded when an item was injected because of a bet.
type Side string

const (
	SideNone Side = ""
	SideYes  Side = "YES"
	SideNo   Side = "NO"
)

// Market is a binary prediction market attached to a video.
// Prices are in cents (0-100).
type Market struct {
	Ticker       string `json:"ticker,omitempty"`
	SeriesTicker string `json:"series_ticker,omitempty"`
	Question     string `json:"question"`
	Outcome      string `json:"outcome,omitempty"`
	YesPrice     int    `json:"yes_price"`
	NoPrice      int    `json:"no_price"`
	Volume       int64  `json:"volume,omitempty"`
}

// FeedItem is one page of the feed.
type FeedItem struct {
	ID           string   `json:"id"`
	Video        Video    `json:"video"`
	Markets      []Market `json:"markets,omitempty"`
	Injected     bool     `json:"injected,omitempty"`
	InjectedSide Side     `json:"injected_side,omitempty"`
}

// Market returns the primary market, if any.
func (f FeedItem) Market() (Market, bool) {
	if len(f.Markets) == 0 {
		return Market{}, false
	}
	return f.Markets[0], true
}

// Title returns the best display title for the item.
func (f FeedItem) Title() string {
	if f.Video.Title != "" {
		return f.Video.Title
	}
	if m, ok := f.Market(); ok {
		return m.Question
	}
	return f.ID
}

// Clone returns a copy that shares no slices with f.
func (f FeedItem) Clone() FeedItem {
	if f.Markets != nil {
		markets := make([]Market, len(f.Markets))
		copy(markets, f.Markets)
		f.Markets = markets
	}
	return f
}

// GeneratedVideo is a finished generation job waiting to be delivered.
type GeneratedVideo struct {
	JobID    string
	Title    string
	VideoURL string
	Markets  []Market
	BetSide  Side
}

// Candlestick is one point of a market's price history.
type Candlestick struct {
	TS    int64   `json:"ts"`
	Price float64 `json:"price"`
}
