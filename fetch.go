package newswatch

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const fetchTimeout = 30 * time.Second

// browserHeaders mimic a desktop browser; the municipal site serves a
// reduced page to unknown user agents.
var browserHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
	"Accept-Language": "bg,en;q=0.9",
}

// Fetcher retrieves the source page and extracts articles from it.
type Fetcher struct {
	url       string
	client    *http.Client
	extractor *Extractor
	log       *zap.Logger
}

// NewFetcher creates a fetcher for pageURL that hands the downloaded markup
// to extractor.
func NewFetcher(pageURL string, extractor *Extractor, log *zap.Logger) *Fetcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Fetcher{
		url:       pageURL,
		client:    &http.Client{Timeout: fetchTimeout},
		extractor: extractor,
		log:       log,
	}
}

// FetchArticles downloads the source page and extracts articles from it.
// Transport failures, non-200 statuses and unreadable bodies are logged and
// yield an empty slice; a failed fetch is a run with nothing to do, not an
// error. When the source turns out to serve an RSS or Atom feed instead of
// HTML, the feed items are mapped to articles directly.
func (f *Fetcher) FetchArticles() []Article {
	f.log.Info("fetching news page", zap.String("url", f.url))

	body, contentType, err := f.fetch()
	if err != nil {
		f.log.Error("failed to fetch news page", zap.String("url", f.url), zap.Error(err))
		return nil
	}

	if looksLikeFeed(contentType, body) {
		f.log.Info("source serves a feed, using feed parser")
		if articles := ArticlesFromFeed(body, f.log); len(articles) > 0 {
			return articles
		}
		f.log.Warn("feed parsing yielded nothing, falling back to page extraction")
	}

	return f.extractor.Extract(body)
}

func (f *Fetcher) fetch() (body, contentType string, err error) {
	req, err := http.NewRequest(http.MethodGet, f.url, nil)
	if err != nil {
		return "", "", fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range browserHeaders {
		req.Header.Set(key, value)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("failed to read response body: %w", err)
	}

	return string(data), resp.Header.Get("Content-Type"), nil
}
