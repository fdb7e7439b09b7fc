package controller

import (
	"context"
	"errors"

	"github.com/abelbrown/scrollbet/internal/api"
	"github.com/abelbrown/scrollbet/internal/logging"
	"github.com/abelbrown/scrollbet/internal/model"
	"github.com/abelbrown/scrollbet/internal/otel"
	"github.com/abelbrown/scrollbet/internal/poll"
)

// ErrNoMarket is returned when betting on an item without a market.
var ErrNoMarket = errors.New("active item has no market")

// BetResult describes what a bet did.
type BetResult struct {
	Market   model.Market
	Side     model.Side
	Injected model.FeedItem
	Index    int // -1 when nothing was injected
}

// Bet records a bet on the active item's market and schedules a matching
// visualization a few pages ahead. Placing and settling bets is not handled
// here; the side is only remembered.
func (f *Feed) Bet(side model.Side) (BetResult, error) {
	active, item, ok := f.Active()
	if !ok {
		return BetResult{Index: -1}, ErrNoMarket
	}
	market, ok := item.Market()
	if !ok {
		return BetResult{Index: -1}, ErrNoMarket
	}

	f.mu.Lock()
	f.bets[item.ID] = side
	f.mu.Unlock()
	f.events.Emit(otel.Event{Kind: otel.KindBet, Comp: "controller", ItemID: item.ID, Index: active,
		Extra: map[string]any{"side": string(side), "ticker": market.Ticker}})

	res := BetResult{Market: market, Side: side, Index: -1}
	f.randMu.Lock()
	inj, ok := f.catalog.Injection(market, side, f.rand)
	f.randMu.Unlock()
	if ok {
		if idx, ok := f.queue.InjectAt(active, inj); ok {
			res.Injected, res.Index = inj, idx
		}
	}
	f.send(Event{Type: EventBet, Index: res.Index, Item: res.Injected})
	return res, nil
}

// BetOn returns the side bet on an item, if any.
func (f *Feed) BetOn(id string) (model.Side, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.bets[id]
	return s, ok
}

// Generate submits a generation job for the active market and follows it.
// When the job finishes, the generated pool is polled right away so the
// new video lands at the front of the feed.
func (f *Feed) Generate(ctx context.Context, side model.Side) (string, error) {
	_, item, ok := f.Active()
	if !ok {
		return "", ErrNoMarket
	}
	market, ok := item.Market()
	if !ok {
		return "", ErrNoMarket
	}

	jobID, err := f.backend.CreateJob(ctx, api.JobRequest{
		Title:   market.Question,
		Caption: string(side) + " on " + market.Ticker,
		Bet:     &market,
	})
	if err != nil {
		return "", err
	}
	f.Watch(jobID)
	return jobID, nil
}

// Watch follows an existing job until it finishes or the feed closes.
func (f *Feed) Watch(jobID string) {
	p := poll.WatchJob(f.backend, jobID, f.jobIvl)
	p.OnStatus = func(s model.JobStatus) {
		f.events.Emit(otel.Event{Kind: otel.KindPollTick, Comp: "controller", JobID: jobID, Msg: string(s.State)})
		f.send(Event{Type: EventJob, JobID: jobID, Job: s})
	}

	f.mu.Lock()
	if _, dup := f.jobs[jobID]; dup || f.ctx.Err() != nil {
		f.mu.Unlock()
		return
	}
	f.jobs[jobID] = func() {}
	f.mu.Unlock()

	stop := p.Start(f.ctx, func(s model.JobStatus) {
		f.events.Emit(otel.Event{Kind: otel.KindPollDone, Comp: "controller", JobID: jobID, Msg: string(s.State), Err: s.Message})
		f.mu.Lock()
		delete(f.jobs, jobID)
		f.mu.Unlock()
		if s.State == model.JobDone {
			f.queue.PollGenerated(f.ctx)
		} else {
			logging.Warn("generation failed", "job", jobID, "err", s.Message)
		}
	})

	f.mu.Lock()
	if _, still := f.jobs[jobID]; still {
		f.jobs[jobID] = stop
	}
	f.mu.Unlock()
}

// Jobs returns how many jobs are being followed.
func (f *Feed) Jobs() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.jobs)
}

// Candles fetches price history for the active market and publishes it.
func (f *Feed) Candles(ctx context.Context, hours int) ([]model.Candlestick, error) {
	_, item, ok := f.Active()
	if !ok {
		return nil, ErrNoMarket
	}
	market, ok := item.Market()
	if !ok {
		return nil, ErrNoMarket
	}
	candles, err := f.backend.Candlesticks(ctx, api.CandleQuery{
		Ticker:       market.Ticker,
		SeriesTicker: market.SeriesTicker,
		Period:       60,
		Hours:        hours,
	})
	if err != nil {
		return nil, err
	}
	f.send(Event{Type: EventCandles, Item: item, Candles: candles})
	return candles, nil
}
