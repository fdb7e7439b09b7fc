// Package match picks a visualization video for a prediction market.
//
// A market is mapped to a topic by its series ticker first, then by scoring
// the words of its question against each topic's keywords. Within a topic
// the video is chosen at random. When nothing matches, any video will do.
package match

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/abelbrown/scrollbet/internal/model"
	"github.com/google/uuid"
)

// Topic groups visualization videos.
type Topic string

const (
	TopicSuperbowl   Topic = "SUPERBOWL"
	TopicWeatherSnow Topic = "WEATHER_SNOW"
	TopicMarsSpace   Topic = "MARS_SPACE"
	TopicGeneral     Topic = "GENERAL"
)

// Entry is one visualization video.
type Entry struct {
	URL   string `json:"url"`
	Topic Topic  `json:"topic"`
	Label string `json:"label,omitempty"`
}

// TopicKeywords lists the words that vote for a topic. Order breaks ties.
type TopicKeywords struct {
	Topic    Topic    `json:"topic"`
	Keywords []string `json:"keywords"`
}

// Rand picks from a pool. *rand.Rand implements it.
type Rand interface {
	Intn(n int) int
}

// Catalog is immutable after construction and safe to share.
type Catalog struct {
	Entries  []Entry          `json:"entries"`
	Keywords []TopicKeywords  `json:"keywords"`
	Series   map[string]Topic `json:"series"`
}

const bucket = "https://storage.googleapis.com/qhacks-486618-storage/videos/13118567516871963719/"

// DefaultCatalog is the built-in visualization set.
func DefaultCatalog() *Catalog {
	return &Catalog{
		Entries: []Entry{
			{URL: bucket + "la.mp4", Topic: TopicWeatherSnow, Label: "good los angeles snow"},
			{URL: bucket + "la.mp4", Topic: TopicWeatherSnow, Label: "decent los angeles snow"},
			{URL: bucket + "superbowl.mp4", Topic: TopicSuperbowl, Label: "good superbowl"},
			{URL: bucket + "superbowl.mp4", Topic: TopicSuperbowl, Label: "good superbowl but has weird text"},
			{URL: bucket + "mars.mp4", Topic: TopicMarsSpace, Label: "cars mars"},
		},
		Keywords: []TopicKeywords{
			{TopicSuperbowl, []string{"superbowl", "super bowl", "nfl", "football", "chiefs", "eagles", "halftime"}},
			{TopicWeatherSnow, []string{"snow", "weather", "los angeles", "la snow", "blizzard", "winter", "storm", "cold"}},
			{TopicMarsSpace, []string{"mars", "space", "nasa", "spacex", "rocket", "planet", "astronaut"}},
		},
		Series: map[string]Topic{
			"KXSB":      TopicSuperbowl,
			"KXNBAGAME": TopicSuperbowl,
			"KXMLBGAME": TopicSuperbowl,
			"KXNHLGAME": TopicSuperbowl,
			"KXWCGAME":  TopicSuperbowl,
		},
	}
}

// LoadCatalog reads a catalog from a JSON file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return &c, nil
}

// Find picks a visualization for a market.
func (c *Catalog) Find(seriesTicker, question string, r Rand) (Entry, bool) {
	if topic, ok := c.Series[seriesTicker]; ok && seriesTicker != "" {
		if e, ok := c.pick(topic, r); ok {
			return e, true
		}
	}
	if question != "" {
		if e, ok := c.FindByKeywords(strings.Fields(question), r); ok {
			return e, true
		}
	}
	return c.pick("", r)
}

// FindByKeywords picks from the topic whose keywords best match words, or
// from the whole catalog when no topic scores.
func (c *Catalog) FindByKeywords(words []string, r Rand) (Entry, bool) {
	var best Topic
	bestScore := 0
	for _, tk := range c.Keywords {
		if tk.Topic == TopicGeneral {
			continue
		}
		score := 0
		for _, w := range words {
			w = strings.ToLower(w)
			if w == "" {
				continue
			}
			for _, k := range tk.Keywords {
				if strings.Contains(w, k) || strings.Contains(k, w) {
					score++
				}
			}
		}
		if score > bestScore {
			best, bestScore = tk.Topic, score
		}
	}
	return c.pick(best, r)
}

// TopicOf returns the topic a market maps to, or TopicGeneral.
func (c *Catalog) TopicOf(seriesTicker, question string) Topic {
	if t, ok := c.Series[seriesTicker]; ok {
		return t
	}
	words := strings.Fields(strings.ToLower(question))
	var best Topic = TopicGeneral
	bestScore := 0
	for _, tk := range c.Keywords {
		score := 0
		for _, w := range words {
			for _, k := range tk.Keywords {
				if strings.Contains(w, k) || strings.Contains(k, w) {
					score++
				}
			}
		}
		if score > bestScore {
			best, bestScore = tk.Topic, score
		}
	}
	return best
}

// pick chooses at random within topic; an empty topic means any entry.
func (c *Catalog) pick(topic Topic, r Rand) (Entry, bool) {
	var pool []Entry
	for _, e := range c.Entries {
		if topic == "" || e.Topic == topic {
			pool = append(pool, e)
		}
	}
	if len(pool) == 0 {
		return Entry{}, false
	}
	return pool[r.Intn(len(pool))], true
}

// Injection builds the feed item shown a few pages after a bet on market.
func (c *Catalog) Injection(market model.Market, side model.Side, r Rand) (model.FeedItem, bool) {
	e, ok := c.Find(market.SeriesTicker, market.Question, r)
	if !ok {
		return model.FeedItem{}, false
	}
	return model.FeedItem{
		ID:           "injected-" + uuid.NewString()[:8],
		Video:        model.DirectVideo(e.URL, e.Label),
		Markets:      []model.Market{market},
		Injected:     true,
		InjectedSide: side,
	}, true
}
