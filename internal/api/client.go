// Package api is the client for the scrollbet backend.
//
// The backend is a black box with a fixed JSON contract. Every call takes a
// context, goes through a shared rate limiter, and reports any network,
// status or decode failure as an error wrapping ErrFetchFailed.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/abelbrown/scrollbet/internal/model"
)

// ErrFetchFailed is wrapped by every client error.
var ErrFetchFailed = errors.New("fetch failed")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Path string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: HTTP %d", e.Path, e.Code)
}

// Unwrap makes errors.Is(err, ErrFetchFailed) true.
func (e *StatusError) Unwrap() error {
	return ErrFetchFailed
}

const userAgent = "scrollbet/0.1 (+https://github.com/abelbrown/scrollbet)"

// Options configures a Client.
type Options struct {
	Timeout time.Duration
	RPS     float64 // requests per second; <= 0 disables limiting
	Burst   int
}

// Client talks to the backend.
type Client struct {
	base    string
	client  *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Client for baseURL.
func NewClient(baseURL string, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	limit := rate.Inf
	if opts.RPS > 0 {
		limit = rate.Limit(opts.RPS)
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	return &Client{
		base:    strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: opts.Timeout},
		limiter: rate.NewLimiter(limit, opts.Burst),
	}
}

// BaseURL returns the configured backend URL.
func (c *Client) BaseURL() string {
	return c.base
}

// HTTPClient exposes the underlying client for raw media fetches.
func (c *Client) HTTPClient() *http.Client {
	return c.client
}

// Feed returns the static feed from GET /feed.
func (c *Client) Feed(ctx context.Context) ([]model.FeedItem, error) {
	var records []model.Record
	if err := c.getJSON(ctx, "/feed", nil, &records); err != nil {
		return nil, err
	}
	return model.ItemsFromRecords(records), nil
}

// PoolFeed returns up to count pool items whose identity is not in exclude.
func (c *Client) PoolFeed(ctx context.Context, count int, exclude []string) ([]model.FeedItem, error) {
	q := url.Values{}
	q.Set("count", strconv.Itoa(count))
	if len(exclude) > 0 {
		q.Set("exclude", strings.Join(exclude, ","))
	}
	var records []model.Record
	if err := c.getJSON(ctx, "/pool/feed", q, &records); err != nil {
		return nil, err
	}
	return model.ItemsFromRecords(records), nil
}

// Generated lists generated videos waiting for delivery.
func (c *Client) Generated(ctx context.Context) ([]model.GeneratedVideo, error) {
	var records []model.GeneratedRecord
	if err := c.getJSON(ctx, "/pool/generated", nil, &records); err != nil {
		return nil, err
	}
	out := make([]model.GeneratedVideo, 0, len(records))
	for _, r := range records {
		if r.JobID == "" || r.VideoURL == "" {
			continue
		}
		out = append(out, r.ToGenerated())
	}
	return out, nil
}

// Consume acknowledges delivery of a generated video.
func (c *Client) Consume(ctx context.Context, jobID string) error {
	path := "/pool/generated/" + url.PathEscape(jobID) + "/consume"
	resp, err := c.do(ctx, http.MethodPost, path, nil, nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// ShortsFeed matches a batch of platform video ids to markets.
func (c *Client) ShortsFeed(ctx context.Context, videoIDs []string) ([]model.FeedItem, error) {
	q := url.Values{}
	q.Set("video_ids", strings.Join(videoIDs, ","))
	var records []model.Record
	if err := c.getJSON(ctx, "/shorts/feed", q, &records); err != nil {
		return nil, err
	}
	return model.ItemsFromRecords(records), nil
}

// CandleQuery selects a market's price history.
type CandleQuery struct {
	Ticker       string
	SeriesTicker string
	Period       int // minutes per candle
	Hours        int
}

// Candlesticks returns a market's price history.
func (c *Client) Candlesticks(ctx context.Context, cq CandleQuery) ([]model.Candlestick, error) {
	q := url.Values{}
	q.Set("ticker", cq.Ticker)
	q.Set("series_ticker", cq.SeriesTicker)
	if cq.Period > 0 {
		q.Set("period", strconv.Itoa(cq.Period))
	}
	if cq.Hours > 0 {
		q.Set("hours", strconv.Itoa(cq.Hours))
	}
	var body struct {
		Candlesticks []model.Candlestick `json:"candlesticks"`
	}
	if err := c.getJSON(ctx, "/shorts/candlesticks", q, &body); err != nil {
		return nil, err
	}
	return body.Candlesticks, nil
}

// JobStatus fetches the status of a generation job.
func (c *Client) JobStatus(ctx context.Context, jobID string) (model.JobStatus, error) {
	var rec model.JobStatusRecord
	if err := c.getJSON(ctx, "/jobs/status/"+url.PathEscape(jobID), nil, &rec); err != nil {
		return model.JobStatus{}, err
	}
	return rec.ToStatus(), nil
}

// JobRequest asks the backend to generate a video for a bet.
type JobRequest struct {
	Title           string        `json:"title"`
	Caption         string        `json:"caption"`
	Bet             *model.Market `json:"bet,omitempty"`
	DurationSeconds int           `json:"duration_seconds,omitempty"`
}

// CreateJob submits a generation job and returns its id.
func (c *Client) CreateJob(ctx context.Context, req JobRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("%w: encode job: %v", ErrFetchFailed, err)
	}
	resp, err := c.do(ctx, http.MethodPost, "/jobs", nil, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out struct {
		JobID string `json:"job_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode /jobs: %v", ErrFetchFailed, err)
	}
	if out.JobID == "" {
		return "", fmt.Errorf("%w: /jobs returned no job_id", ErrFetchFailed)
	}
	return out.JobID, nil
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, v any) error {
	resp, err := c.do(ctx, http.MethodGet, path, q, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrFetchFailed, path, err)
	}
	return nil
}

// do performs a request; the caller closes the body of a nil-error response.
func (c *Client) do(ctx context.Context, method, path string, q url.Values, body []byte) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFetchFailed, path, err)
	}

	u := c.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, r)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrFetchFailed, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFetchFailed, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode, Path: path}
	}
	return resp, nil
}
