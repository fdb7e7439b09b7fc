package ui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abelbrown/scrollbet/internal/activation"
	"github.com/abelbrown/scrollbet/internal/controller"
	"github.com/abelbrown/scrollbet/internal/model"
	"github.com/abelbrown/scrollbet/internal/otel"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// frameRate is how often the scroll spring steps.
const frameRate = 60

// candleHours is how much price history the chart shows.
const candleHours = 24

// Engine is the feed as the UI drives it. *controller.Feed implements it.
type Engine interface {
	Init(ctx context.Context) error
	Subscribe() <-chan controller.Event
	Items() []model.FeedItem
	Active() (int, model.FeedItem, bool)
	Loading() bool
	Err() error
	Muted() bool
	Next() bool
	Prev() bool
	Scroll(offset, extent float64)
	SetAnimator(a activation.Animator)
	ToggleMute() bool
	Bet(side model.Side) (controller.BetResult, error)
	BetOn(id string) (model.Side, bool)
	Generate(ctx context.Context, side model.Side) (string, error)
	Candles(ctx context.Context, hours int) ([]model.Candlestick, error)
	Retry(ctx context.Context) error
	Status(id string) controller.PlayerStatus
}

// AppConfig holds the App's collaborators.
type AppConfig struct {
	Engine   Engine
	Ring     *otel.RingBuffer // debug overlay source; nil disables it
	Events   *otel.Logger     // receives message traces when SCROLLBET_TRACE is set
	Features Features
}

// App is the main Bubble Tea model.
type App struct {
	ctx      context.Context
	engine   Engine
	ring     *otel.RingBuffer
	events   *otel.Logger
	features Features

	spring  *activation.Spring
	spinner spinner.Model
	price   progress.Model
	help    help.Model

	// state
	err       error
	notice    string
	width     int
	height    int
	ready     bool
	loading   bool
	animating bool
	showDebug bool
	candles   map[string][]model.Candlestick // item id -> history
	jobs      map[string]model.JobState
}

// NewApp creates a new App over cfg.Engine.
func NewApp(ctx context.Context, cfg AppConfig) App {
	s := spinner.New()
	s.Spinner = spinner.Dot

	spring := activation.NewSpring(frameRate)
	if cfg.Engine != nil {
		cfg.Engine.SetAnimator(spring)
	}

	return App{
		ctx:      ctx,
		engine:   cfg.Engine,
		ring:     cfg.Ring,
		events:   cfg.Events,
		features: cfg.Features,
		spring:   spring,
		spinner:  s,
		price: progress.New(
			progress.WithGradient(string(colorYes), string(colorNo)),
			progress.WithoutPercentage(),
		),
		help:    help.New(),
		loading: true,
		candles: make(map[string][]model.Candlestick),
		jobs:    make(map[string]model.JobState),
	}
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	if a.engine == nil {
		return nil
	}
	return tea.Batch(a.initFeed(), a.waitForEvent(), a.spinner.Tick)
}

func (a App) initFeed() tea.Cmd {
	return func() tea.Msg {
		return FeedReady{Err: a.engine.Init(a.ctx)}
	}
}

// waitForEvent blocks on the controller's event channel. It is re-issued
// after every event.
func (a App) waitForEvent() tea.Cmd {
	ch := a.engine.Subscribe()
	return func() tea.Msg {
		select {
		case e := <-ch:
			return FeedEvent{Event: e}
		case <-a.ctx.Done():
			return nil
		}
	}
}

func frameTick() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(time.Time) tea.Msg { return FrameTick{} })
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	a.trace(msg)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		a.ready = true
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case FeedReady:
		a.loading = a.engine.Loading()
		if msg.Err != nil {
			a.err = msg.Err
		}
		return a, nil

	case FeedEvent:
		return a.handleFeedEvent(msg.Event)

	case FrameTick:
		offset, moving := a.spring.Step()
		a.engine.Scroll(offset, 1)
		if moving {
			return a, frameTick()
		}
		a.animating = false
		return a, nil

	case BetPlaced:
		if msg.Err != nil {
			a.notice = ""
			a.err = msg.Err
			return a, nil
		}
		a.notice = fmt.Sprintf("Bet %s on %s", msg.Result.Side, msg.Result.Market.Ticker)
		if msg.Result.Index >= 0 {
			a.notice += fmt.Sprintf(" · something for you at #%d", msg.Result.Index+1)
		}
		return a, nil

	case JobSubmitted:
		if msg.Err != nil {
			a.err = msg.Err
			return a, nil
		}
		a.jobs[msg.JobID] = model.JobWaiting
		a.notice = "Generating your video…"
		return a, nil

	case CandlesLoaded:
		if msg.Err != nil {
			a.err = msg.Err
			return a, nil
		}
		a.candles[msg.ItemID] = msg.Candles
		return a, nil

	case RetryDone:
		a.loading = a.engine.Loading()
		if msg.Err != nil {
			a.err = msg.Err
		}
		return a, nil
	}

	return a, nil
}

// trace records handled messages, skipping per-frame ticks.
func (a App) trace(msg tea.Msg) {
	if !otel.TraceEnabled() {
		return
	}
	switch msg.(type) {
	case FrameTick, spinner.TickMsg:
		return
	}
	a.events.Emit(otel.Event{Kind: otel.KindMsgHandled, Comp: "ui", Msg: fmt.Sprintf("%T", msg)})
}

func (a App) handleFeedEvent(e controller.Event) (tea.Model, tea.Cmd) {
	next := a.waitForEvent()
	a.loading = a.engine.Loading()

	switch e.Type {
	case controller.EventActivated:
		// Keyboard moves already animate; anything else (restore, clamp)
		// jumps the spring so the viewport agrees with the tracker.
		if !a.animating {
			a.spring.Jump(float64(e.Index))
		}
	case controller.EventChanged:
		if err := a.engine.Err(); err == nil {
			a.err = nil
		}
	case controller.EventFetchError:
		a.err = e.Err
	case controller.EventJob:
		a.jobs[e.JobID] = e.Job.State
		switch e.Job.State {
		case model.JobDone:
			delete(a.jobs, e.JobID)
			a.notice = "Your video is ready. Scroll to the top."
		case model.JobError:
			delete(a.jobs, e.JobID)
			a.err = errors.New("generation failed: " + e.Job.Message)
		}
	case controller.EventCandles:
		a.candles[e.Item.ID] = e.Candles
	}
	return a, next
}

func (a App) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// While the debug overlay is shown only its own keys work.
	if a.showDebug {
		switch {
		case key.Matches(msg, keys.Debug):
			a.showDebug = false
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit
		}
		return a, nil
	}

	switch {
	case key.Matches(msg, keys.Quit):
		return a, tea.Quit

	case key.Matches(msg, keys.Next):
		return a.move(a.engine.Next())

	case key.Matches(msg, keys.Prev):
		return a.move(a.engine.Prev())

	case key.Matches(msg, keys.Mute):
		a.engine.ToggleMute()
		return a, nil

	case key.Matches(msg, keys.BetYes):
		return a, a.bet(model.SideYes)

	case key.Matches(msg, keys.BetNo):
		return a, a.bet(model.SideNo)

	case key.Matches(msg, keys.Generate):
		if !a.features.Generate {
			a.notice = "Generation is disabled"
			return a, nil
		}
		side := model.SideYes
		if _, it, ok := a.engine.Active(); ok {
			if bet, ok := a.engine.BetOn(it.ID); ok {
				side = bet
			}
		}
		return a, a.generate(side)

	case key.Matches(msg, keys.Candles):
		if !a.features.Candles {
			a.notice = "Charts are disabled"
			return a, nil
		}
		return a, a.loadCandles()

	case key.Matches(msg, keys.Retry):
		a.err = nil
		a.loading = true
		return a, func() tea.Msg { return RetryDone{Err: a.engine.Retry(a.ctx)} }

	case key.Matches(msg, keys.Debug):
		if a.ring != nil {
			a.showDebug = true
		}
		return a, nil

	case key.Matches(msg, keys.Help):
		a.help.ShowAll = !a.help.ShowAll
		return a, nil
	}

	return a, nil
}

// move starts the spring after a keyboard navigation.
func (a App) move(changed bool) (tea.Model, tea.Cmd) {
	if !changed {
		return a, nil
	}
	a.notice = ""
	if a.animating {
		return a, nil // the running tick loop picks up the new target
	}
	a.animating = true
	return a, frameTick()
}

func (a App) bet(side model.Side) tea.Cmd {
	return func() tea.Msg {
		res, err := a.engine.Bet(side)
		return BetPlaced{Result: res, Err: err}
	}
}

func (a App) generate(side model.Side) tea.Cmd {
	return func() tea.Msg {
		id, err := a.engine.Generate(a.ctx, side)
		return JobSubmitted{JobID: id, Err: err}
	}
}

func (a App) loadCandles() tea.Cmd {
	_, item, _ := a.engine.Active()
	return func() tea.Msg {
		c, err := a.engine.Candles(a.ctx, candleHours)
		return CandlesLoaded{ItemID: item.ID, Candles: c, Err: err}
	}
}

// View implements tea.Model.
func (a App) View() string {
	if !a.ready {
		return "Loading..."
	}

	if a.showDebug && a.ring != nil {
		overlay := debugOverlay(debugState{Ring: a.ring, Players: playerRows(a.engine)}, a.width, a.height-1)
		return overlay + "\n" + debugStatusBar(a.width)
	}

	items := a.engine.Items()
	active, item, ok := a.engine.Active()

	var body string
	switch {
	case ok:
		bet, _ := a.engine.BetOn(item.ID)
		v := cardView{
			Item:    item,
			Player:  a.engine.Status(item.ID),
			Bet:     bet,
			Muted:   a.engine.Muted(),
			Candles: a.candles[item.ID],
		}
		card := RenderCard(v, a.price, a.width-2, a.height-2)
		gutter := scrollGutter(a.spring.Offset(), len(items), lipgloss.Height(card))
		body = lipgloss.JoinHorizontal(lipgloss.Top, card, " ", gutter)
	case a.loading:
		body = HelpStyle.Render("Loading feed...")
	default:
		body = HelpStyle.Render("Nothing to watch yet. Press 'r' to retry.")
	}

	var bar string
	switch {
	case a.err != nil:
		bar = ErrorStyle.Render(truncate("Error: "+a.err.Error(), a.width-2))
	case len(a.jobs) > 0:
		bar = NoticeStyle.Render(fmt.Sprintf("%s %d video(s) generating", a.spinner.View(), len(a.jobs)))
	case a.notice != "":
		bar = NoticeStyle.Render(truncate(a.notice, a.width-2))
	}

	status := RenderStatusBar(active, len(items), a.width, a.loading, a.spinner.View(), a.help.View(keys))
	if bar != "" {
		return body + "\n" + bar + "\n" + status
	}
	return body + "\n" + status
}

// Err returns the error shown in the error bar (for testing).
func (a App) Err() error {
	return a.err
}

// Notice returns the transient status message (for testing).
func (a App) Notice() string {
	return a.notice
}
