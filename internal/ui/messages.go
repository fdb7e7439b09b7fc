// Package ui provides the Bubble Tea TUI for scrollbet.
package ui

import (
	"github.com/abelbrown/scrollbet/internal/controller"
	"github.com/abelbrown/scrollbet/internal/model"
)

// FeedReady is sent when the first batch (or the restored session) is in.
type FeedReady struct {
	Err error
}

// FeedEvent wraps an event from the feed controller.
type FeedEvent struct {
	Event controller.Event
}

// FrameTick advances the scroll spring by one frame.
type FrameTick struct{}

// BetPlaced is sent after a bet was recorded.
type BetPlaced struct {
	Result controller.BetResult
	Err    error
}

// JobSubmitted is sent when a generation job was created.
type JobSubmitted struct {
	JobID string
	Err   error
}

// CandlesLoaded is sent when price history for the active market arrives.
type CandlesLoaded struct {
	ItemID  string
	Candles []model.Candlestick
	Err     error
}

// RetryDone is sent after a manual retry of a failed fetch.
type RetryDone struct {
	Err error
}
