package e2e

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
)

// fixtureRecord is the backend's feed item shape.
type fixtureRecord struct {
	ID     string         `json:"id"`
	Video  map[string]any `json:"video"`
	Kalshi map[string]any `json:"kalshi"`
}

// newFixtureBackend serves a two-item pool, an empty generated list and
// tiny media files.
func newFixtureBackend() *httptest.Server {
	mux := http.NewServeMux()
	var base string

	mux.HandleFunc("/pool/feed", func(w http.ResponseWriter, r *http.Request) {
		exclude := r.URL.Query().Get("exclude")
		var out []fixtureRecord
		for i, title := range []string{"Fixture Clip One", "Fixture Clip Two"} {
			url := base + "/media/" + string(rune('a'+i)) + ".mp4"
			if strings.Contains(exclude, url) {
				continue
			}
			out = append(out, fixtureRecord{
				ID:    "fixture-" + string(rune('a'+i)),
				Video: map[string]any{"type": "direct", "url": url, "title": title},
				Kalshi: map[string]any{
					"ticker":        "KXSB-26",
					"series_ticker": "KXSB",
					"question":      "Who wins the Super Bowl?",
					"yes_price":     62,
					"no_price":      38,
				},
			})
		}
		json.NewEncoder(w).Encode(out)
	})
	mux.HandleFunc("/pool/generated", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("[]"))
	})
	mux.HandleFunc("/media/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		w.Write([]byte("not really an mp4"))
	})

	srv := httptest.NewServer(mux)
	base = srv.URL
	return srv
}
