// Package poll repeatedly queries a status source until it reports a
// terminal state.
//
// Failures of individual fetches are ignored and retried on the next tick
// at the same interval. Only a terminal status or cancellation of the
// caller's context ends polling.
package poll

import (
	"context"
	"errors"
	"time"
)

// Poller polls Fetch every Interval until Terminal reports true.
type Poller[T any] struct {
	Interval time.Duration
	Fetch    func(ctx context.Context) (T, error)
	Terminal func(T) bool

	// OnStatus, if set, sees every successfully fetched status, terminal included.
	OnStatus func(T)
	// OnError, if set, sees every fetch failure.
	OnError func(error)
}

// ErrInvalid is returned by Run when the Poller is missing a required field.
var ErrInvalid = errors.New("poll: Interval, Fetch and Terminal are required")

// Run blocks until a terminal status arrives or ctx is done. The first fetch
// happens one Interval after Run starts.
func (p *Poller[T]) Run(ctx context.Context) (T, error) {
	var zero T
	if p.Interval <= 0 || p.Fetch == nil || p.Terminal == nil {
		return zero, ErrInvalid
	}

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-ticker.C:
		}

		status, err := p.Fetch(ctx)
		if ctx.Err() != nil {
			// cancelled mid-fetch: the result belongs to nobody
			return zero, ctx.Err()
		}
		if err != nil {
			if p.OnError != nil {
				p.OnError(err)
			}
			continue
		}
		if p.OnStatus != nil {
			p.OnStatus(status)
		}
		if p.Terminal(status) {
			return status, nil
		}
	}
}

// Start runs the Poller in a goroutine. onDone is called exactly once with
// the terminal status, and never if polling is cancelled first. The returned
// func cancels polling and waits for the goroutine to exit.
func (p *Poller[T]) Start(ctx context.Context, onDone func(T)) (cancel func()) {
	ctx, stop := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		status, err := p.Run(ctx)
		if err == nil && onDone != nil {
			onDone(status)
		}
	}()
	return func() {
		stop()
		<-done
	}
}

// Every calls fn after first, then every interval, until ctx is done.
// It is the non-terminating sibling of Poller, used for feeds that never finish.
func Every(ctx context.Context, first, interval time.Duration, fn func(ctx context.Context)) {
	timer := time.NewTimer(first)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}
	fn(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}
