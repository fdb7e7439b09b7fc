package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/abelbrown/scrollbet/internal/api"
	"github.com/abelbrown/scrollbet/internal/controller"
	"github.com/abelbrown/scrollbet/internal/mediacache"
	"github.com/abelbrown/scrollbet/internal/model"
	"github.com/abelbrown/scrollbet/internal/playback"
	"github.com/abelbrown/scrollbet/internal/queue"
	tea "github.com/charmbracelet/bubbletea"
)

// stubBackend serves a fixed pool and never finishes jobs.
type stubBackend struct {
	pool []model.FeedItem
	err  error
}

func (b *stubBackend) PoolFeed(ctx context.Context, count int, exclude []string) ([]model.FeedItem, error) {
	if b.err != nil {
		return nil, b.err
	}
	if count > len(b.pool) {
		count = len(b.pool)
	}
	return b.pool[:count], nil
}
func (b *stubBackend) Generated(ctx context.Context) ([]model.GeneratedVideo, error) { return nil, nil }
func (b *stubBackend) Consume(ctx context.Context, jobID string) error               { return nil }
func (b *stubBackend) ShortsFeed(ctx context.Context, ids []string) ([]model.FeedItem, error) {
	return nil, nil
}
func (b *stubBackend) JobStatus(ctx context.Context, id string) (model.JobStatus, error) {
	return model.JobStatus{State: model.JobWaiting}, nil
}
func (b *stubBackend) CreateJob(ctx context.Context, req api.JobRequest) (string, error) {
	return "job-1", nil
}
func (b *stubBackend) Candlesticks(ctx context.Context, q api.CandleQuery) ([]model.Candlestick, error) {
	return []model.Candlestick{{TS: 1, Price: 0.2}, {TS: 2, Price: 0.8}}, nil
}

type nopCache struct{}

func (nopCache) Prefetch(ctx context.Context, url string) (mediacache.Handle, bool) {
	return mediacache.Handle{}, false
}
func (nopCache) Lookup(url string) (mediacache.Handle, bool) { return mediacache.Handle{}, false }

type stubPlayer struct{}

func (stubPlayer) Play()       {}
func (stubPlayer) Pause()      {}
func (stubPlayer) Mute()       {}
func (stubPlayer) Unmute()     {}
func (stubPlayer) SeekStart()  {}
func (stubPlayer) Ready() bool { return true }
func (stubPlayer) Close()      {}

type zeroRand struct{}

func (zeroRand) Intn(int) int { return 0 }

func testPool(n int) []model.FeedItem {
	pool := make([]model.FeedItem, n)
	for i := range pool {
		pool[i] = model.FeedItem{
			ID:      fmt.Sprintf("item-%d", i),
			Video:   model.DirectVideo(fmt.Sprintf("https://cdn.test/%d.mp4", i), fmt.Sprintf("Clip %d", i)),
			Markets: []model.Market{{Ticker: fmt.Sprintf("KXSB-%d", i), SeriesTicker: "KXSB", Question: "Who wins the Super Bowl?", YesPrice: 62, NoPrice: 38}},
		}
	}
	return pool
}

func newTestApp(t *testing.T, backend *stubBackend, features Features) (App, *controller.Feed) {
	t.Helper()
	feed := controller.New(backend, nopCache{}, controller.Options{
		Factory: func(model.FeedItem, func()) playback.Player { return stubPlayer{} },
		Rand:    zeroRand{},
		Queue:   queue.Options{Rand: zeroRand{}},
	})
	t.Cleanup(feed.Close)

	app := NewApp(context.Background(), AppConfig{Engine: feed, Features: features})
	m, _ := app.Update(FeedReady{Err: feed.Init(context.Background())})
	m, _ = m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return m.(App), feed
}

func press(t *testing.T, m tea.Model, r rune) (App, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	return next.(App), cmd
}

func TestAppInitNilEngine(t *testing.T) {
	app := NewApp(context.Background(), AppConfig{})
	if cmd := app.Init(); cmd != nil {
		t.Error("Init should return nil without an engine")
	}
}

func TestAppInitReturnsCommand(t *testing.T) {
	feed := controller.New(&stubBackend{pool: testPool(3)}, nopCache{}, controller.Options{
		Factory: func(model.FeedItem, func()) playback.Player { return stubPlayer{} },
	})
	defer feed.Close()
	app := NewApp(context.Background(), AppConfig{Engine: feed})
	if app.Init() == nil {
		t.Fatal("Init should return a command")
	}
}

func TestAppNavigationAnimates(t *testing.T) {
	app, feed := newTestApp(t, &stubBackend{pool: testPool(5)}, Features{})

	app, cmd := press(t, app, 'j')
	if cmd == nil {
		t.Fatal("moving should start the frame loop")
	}
	if idx, _, _ := feed.Active(); idx != 1 {
		t.Fatalf("expected active 1 after j, got %d", idx)
	}

	// Drive the spring until it settles; frames must not re-activate.
	var m tea.Model = app
	for i := 0; i < 1000; i++ {
		var c tea.Cmd
		m, c = m.Update(FrameTick{})
		if c == nil {
			break
		}
	}
	if idx, _, _ := feed.Active(); idx != 1 {
		t.Errorf("animation changed the active index to %d", idx)
	}
	if m.(App).animating {
		t.Error("frame loop should stop once the spring settles")
	}

	app, cmd = press(t, m, 'k')
	if idx, _, _ := feed.Active(); idx != 0 || cmd == nil {
		t.Errorf("k should move back to 0, got %d", idx)
	}
}

func TestAppNavigationAtBounds(t *testing.T) {
	app, _ := newTestApp(t, &stubBackend{pool: testPool(2)}, Features{})
	if _, cmd := press(t, app, 'k'); cmd != nil {
		t.Error("moving before the first item should do nothing")
	}
}

func TestAppBet(t *testing.T) {
	app, feed := newTestApp(t, &stubBackend{pool: testPool(10)}, Features{})

	_, cmd := press(t, app, 'y')
	if cmd == nil {
		t.Fatal("y should return a command")
	}
	msg := cmd()
	placed, ok := msg.(BetPlaced)
	if !ok || placed.Err != nil {
		t.Fatalf("unexpected message %#v", msg)
	}
	m, _ := app.Update(placed)
	if !strings.Contains(m.(App).Notice(), "Bet YES on KXSB-0") {
		t.Errorf("unexpected notice %q", m.(App).Notice())
	}
	if side, ok := feed.BetOn("item-0"); !ok || side != model.SideYes {
		t.Error("bet not recorded on the feed")
	}
	if !strings.Contains(m.View(), "✓") {
		t.Error("card should mark the side bet on")
	}
}

func TestAppFeatureGates(t *testing.T) {
	app, _ := newTestApp(t, &stubBackend{pool: testPool(3)}, Features{})
	app, cmd := press(t, app, 'g')
	if cmd != nil || app.Notice() != "Generation is disabled" {
		t.Errorf("g should be gated, notice=%q", app.Notice())
	}

	app, _ = newTestApp(t, &stubBackend{pool: testPool(3)}, Features{Generate: true, Candles: true})
	_, cmd = press(t, app, 'g')
	if sub, ok := cmd().(JobSubmitted); !ok || sub.JobID != "job-1" {
		t.Errorf("expected job-1 submission, got %#v", sub)
	}
	_, cmd = press(t, app, 'c')
	loaded, ok := cmd().(CandlesLoaded)
	if !ok || loaded.ItemID != "item-0" || len(loaded.Candles) != 2 {
		t.Fatalf("unexpected candles %#v", loaded)
	}
	m, _ := app.Update(loaded)
	if !strings.Contains(m.View(), "▁") {
		t.Error("chart should render after candles load")
	}
}

func TestAppJobEvents(t *testing.T) {
	app, _ := newTestApp(t, &stubBackend{pool: testPool(3)}, Features{})

	m, _ := app.Update(JobSubmitted{JobID: "job-9"})
	if !strings.Contains(m.View(), "generating") {
		t.Error("pending job should show in the bar")
	}
	m, _ = m.Update(FeedEvent{Event: controller.Event{Type: controller.EventJob, JobID: "job-9",
		Job: model.JobStatus{State: model.JobError, Message: "render failed"}}})
	if err := m.(App).Err(); err == nil || !strings.Contains(err.Error(), "render failed") {
		t.Errorf("expected generation error, got %v", err)
	}
}

func TestAppFetchErrorAndRetry(t *testing.T) {
	backend := &stubBackend{err: errors.New("boom")}
	app, _ := newTestApp(t, backend, Features{})
	if app.Err() == nil {
		t.Fatal("init failure should surface")
	}
	if !strings.Contains(app.View(), "Error:") {
		t.Error("view should show the error bar")
	}

	backend.err = nil
	backend.pool = testPool(3)
	app, cmd := press(t, app, 'r')
	if app.Err() != nil {
		t.Error("retry should clear the error")
	}
	m, _ := app.Update(cmd())
	if m.(App).Err() != nil {
		t.Errorf("retry failed: %v", m.(App).Err())
	}
}

func TestAppQuit(t *testing.T) {
	app, _ := newTestApp(t, &stubBackend{pool: testPool(1)}, Features{})
	_, cmd := press(t, app, 'q')
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestViewBeforeReady(t *testing.T) {
	app := NewApp(context.Background(), AppConfig{})
	if app.View() != "Loading..." {
		t.Errorf("unexpected view %q", app.View())
	}
}

func TestSparkline(t *testing.T) {
	c := []model.Candlestick{{Price: 0}, {Price: 0.5}, {Price: 1}}
	if got := Sparkline(c, 10); got != "▁▄█" {
		t.Errorf("Sparkline = %q", got)
	}
	flat := []model.Candlestick{{Price: 0.3}, {Price: 0.3}}
	if got := Sparkline(flat, 10); got != "▁▁" {
		t.Errorf("flat Sparkline = %q", got)
	}
	long := make([]model.Candlestick, 100)
	if got := []rune(Sparkline(long, 8)); len(got) != 8 {
		t.Errorf("expected 8 points, got %d", len(got))
	}
}
