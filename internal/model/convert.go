package model

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math"
)

// Record is the backend's FeedItem shape as served by /feed, /pool/feed and
// /shorts/feed. Fields outside the engine's needs are ignored.
type Record struct {
	ID                string         `json:"id"`
	YouTube           *youtubeRecord `json:"youtube"`
	Video             *videoRecord   `json:"video"`
	Kalshi            MarketRecords  `json:"kalshi"`
	IsInjected        bool           `json:"isInjected"`
	InjectedByBetSide string         `json:"injectedByBetSide"`
}

type youtubeRecord struct {
	VideoID   string `json:"video_id"`
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail"`
	Channel   string `json:"channel"`
}

type videoRecord struct {
	Type  string `json:"type"`
	URL   string `json:"url"`
	Title string `json:"title"`
}

// MarketRecord is one kalshi market as the backend serializes it.
type MarketRecord struct {
	Ticker       string  `json:"ticker"`
	SeriesTicker string  `json:"series_ticker"`
	Question     string  `json:"question"`
	Title        string  `json:"title"`
	Outcome      string  `json:"outcome"`
	YesPrice     float64 `json:"yes_price"`
	NoPrice      float64 `json:"no_price"`
	Volume       float64 `json:"volume"`
}

// MarketRecords accepts a single object, an array, or null.
type MarketRecords []MarketRecord

// UnmarshalJSON implements json.Unmarshaler.
func (m *MarketRecords) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*m = nil
		return nil
	}
	if data[0] == '[' {
		var list []MarketRecord
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*m = list
		return nil
	}
	var one MarketRecord
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*m = MarketRecords{one}
	return nil
}

// Markets converts the records, skipping entries without any question text.
func (m MarketRecords) Markets() []Market {
	if len(m) == 0 {
		return nil
	}
	out := make([]Market, 0, len(m))
	for _, r := range m {
		q := r.Question
		if q == "" {
			q = r.Title
		}
		if q == "" {
			continue
		}
		out = append(out, Market{
			Ticker:       r.Ticker,
			SeriesTicker: r.SeriesTicker,
			Question:     q,
			Outcome:      r.Outcome,
			YesPrice:     int(math.Round(r.YesPrice)),
			NoPrice:      int(math.Round(r.NoPrice)),
			Volume:       int64(r.Volume),
		})
	}
	return out
}

// ToItem maps a record to a FeedItem. ok is false when the record carries no
// playable video.
func (r Record) ToItem() (FeedItem, bool) {
	var v Video
	switch {
	case r.Video != nil && r.Video.Type == string(VideoDirect) && r.Video.URL != "":
		v = DirectVideo(r.Video.URL, r.Video.Title)
	case r.YouTube != nil && r.YouTube.VideoID != "":
		v = EmbeddedVideo(r.YouTube.VideoID, r.YouTube.Title)
	default:
		return FeedItem{}, false
	}
	if r.YouTube != nil {
		if v.Title == "" {
			v.Title = r.YouTube.Title
		}
		v.Channel = r.YouTube.Channel
		v.Thumbnail = r.YouTube.Thumbnail
	}

	id := r.ID
	if id == "" {
		id = "v-" + hashString(v.Identity())
	}

	return FeedItem{
		ID:           id,
		Video:        v,
		Markets:      r.Kalshi.Markets(),
		Injected:     r.IsInjected,
		InjectedSide: Side(r.InjectedByBetSide),
	}, true
}

// ItemsFromRecords maps records, dropping the ones without a playable video.
func ItemsFromRecords(records []Record) []FeedItem {
	items := make([]FeedItem, 0, len(records))
	for _, r := range records {
		if item, ok := r.ToItem(); ok {
			items = append(items, item)
		}
	}
	return items
}

// GeneratedRecord is an entry of /pool/generated.
type GeneratedRecord struct {
	JobID    string        `json:"job_id"`
	Title    string        `json:"title"`
	VideoURL string        `json:"video_url"`
	Kalshi   MarketRecords `json:"kalshi"`
	BetSide  string        `json:"bet_side"`
}

// ToGenerated converts the wire record.
func (g GeneratedRecord) ToGenerated() GeneratedVideo {
	return GeneratedVideo{
		JobID:    g.JobID,
		Title:    g.Title,
		VideoURL: g.VideoURL,
		Markets:  g.Kalshi.Markets(),
		BetSide:  Side(g.BetSide),
	}
}

// Item builds the injected feed item delivered for a generated video.
func (g GeneratedVideo) Item() FeedItem {
	return FeedItem{
		ID:           "generated-" + g.JobID,
		Video:        DirectVideo(g.VideoURL, g.Title),
		Markets:      g.Markets,
		Injected:     true,
		InjectedSide: g.BetSide,
	}
}

// JobStatusRecord is the /jobs/status/:id response body.
type JobStatusRecord struct {
	Status          string  `json:"status"`
	VideoURL        *string `json:"video_url"`
	VideoURL720     *string `json:"video_url_720"`
	Error           *string `json:"error"`
	OriginalBetLink *string `json:"original_bet_link"`
}

// ToStatus converts the wire record. Unknown states are treated as waiting.
func (j JobStatusRecord) ToStatus() JobStatus {
	switch JobState(j.Status) {
	case JobDone:
		return JobStatus{State: JobDone, Result: JobResult{
			VideoURL:        deref(j.VideoURL),
			VideoURL720:     deref(j.VideoURL720),
			OriginalBetLink: deref(j.OriginalBetLink),
		}}
	case JobError:
		msg := deref(j.Error)
		if msg == "" {
			msg = "job failed"
		}
		return JobStatus{State: JobError, Message: msg}
	default:
		return JobStatus{State: JobWaiting}
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// hashString creates a short hash of a string for use as an ID.
func hashString(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:8])
}
