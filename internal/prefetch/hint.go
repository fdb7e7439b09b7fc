package prefetch

import (
	"context"
	"io"
	"net/http"

	"github.com/abelbrown/scrollbet/internal/logging"
)

// HeadHinter warms the connection with a HEAD request. Errors are ignored.
type HeadHinter struct {
	Client *http.Client
}

// Hint issues HEAD url.
func (h HeadHinter) Hint(ctx context.Context, url string) {
	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return
	}
	req.Header.Set("User-Agent", "scrollbet/0.1")
	resp, err := client.Do(req)
	if err != nil {
		logging.Debug("hint failed", "url", url, "err", err)
		return
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
