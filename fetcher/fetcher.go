package fetcher

import (
	"errors"
	"fmt"
	"strings"

	"page-notifier/config"
	"page-notifier/filter"
	"page-notifier/parser"
)

// ErrNotText is returned for responses that are not HTML or text
var ErrNotText = errors.New("response is not text")

// Fetcher returns the normalized visible text of a page and owns resources
// that must be released with Close
type Fetcher interface {
	Fetch(url string) (string, error)
	Close() error
}

// New creates the fetcher selected by cfg.Engine
func New(cfg config.FetcherConfig, f *filter.Filter) (Fetcher, error) {
	switch cfg.Engine {
	case config.EngineColly, "":
		return NewCollyFetcher(cfg, f), nil
	case config.EngineRod:
		rf, err := NewRodFetcher(cfg, f)
		if err != nil {
			return nil, err
		}
		return rf, nil
	default:
		return nil, fmt.Errorf("unknown fetcher engine %q", cfg.Engine)
	}
}

// textExtractor turns a raw page into the text that gets compared
type textExtractor struct {
	parser *parser.Parser
	filter *filter.Filter
}

func newTextExtractor(f *filter.Filter) textExtractor {
	return textExtractor{parser: parser.NewParser(), filter: f}
}

func (te textExtractor) extract(html string) (string, error) {
	text, err := te.parser.ExtractText(html)
	if err != nil {
		return "", err
	}
	return te.filter.Apply(text), nil
}

// isText reports whether a Content-Type header names HTML or text. A missing
// header is accepted.
func isText(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if ct == "" {
		return true
	}
	return strings.HasPrefix(ct, "text/") || strings.Contains(ct, "html") || strings.Contains(ct, "xml")
}
