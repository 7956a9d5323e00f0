package fetcher

import (
	"fmt"

	"page-notifier/config"
	"page-notifier/filter"

	"github.com/gocolly/colly/v2"
)

// CollyFetcher fetches pages over plain HTTP using colly
type CollyFetcher struct {
	collector *colly.Collector
	extractor textExtractor
}

// NewCollyFetcher creates a new CollyFetcher instance. cfg.Timeout bounds each request.
func NewCollyFetcher(cfg config.FetcherConfig, f *filter.Filter) *CollyFetcher {
	c := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		// The same URLs are fetched on every poll
		colly.AllowURLRevisit(),
	)

	if cfg.Timeout > 0 {
		c.SetRequestTimeout(cfg.Timeout)
	}

	return &CollyFetcher{
		collector: c,
		extractor: newTextExtractor(f),
	}
}

// Fetch implements tracker.FetchClient
func (cf *CollyFetcher) Fetch(url string) (string, error) {
	// A clone shares the HTTP backend but not the callbacks of earlier fetches
	c := cf.collector.Clone()

	var (
		body        []byte
		contentType string
		responded   bool
	)
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
		if r.Headers != nil {
			contentType = r.Headers.Get("Content-Type")
		}
		responded = true
	})

	if err := c.Visit(url); err != nil {
		return "", fmt.Errorf("failed to visit %s: %w", url, err)
	}
	c.Wait()

	if !responded {
		return "", fmt.Errorf("no response from %s", url)
	}
	if !isText(contentType) {
		return "", fmt.Errorf("%w: %s returned %q", ErrNotText, url, contentType)
	}

	text, err := cf.extractor.extract(string(body))
	if err != nil {
		return "", fmt.Errorf("failed to extract text from %s: %w", url, err)
	}

	return text, nil
}

// Close implements Fetcher. colly holds no resources.
func (cf *CollyFetcher) Close() error {
	return nil
}
