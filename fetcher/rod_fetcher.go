package fetcher

import (
	"fmt"
	"log"
	"os"
	"time"

	"page-notifier/config"
	"page-notifier/filter"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// How long the DOM must stay unchanged before its HTML is read
const stableWindow = 500 * time.Millisecond

// RodFetcher renders pages in headless Chrome, for sites that build their
// content with JavaScript
type RodFetcher struct {
	browser   *rod.Browser
	timeout   time.Duration
	extractor textExtractor
}

// NewRodFetcher launches a headless browser. cfg.Timeout bounds each page load.
func NewRodFetcher(cfg config.FetcherConfig, f *filter.Filter) (*RodFetcher, error) {
	l := launcher.New().
		Headless(true).
		Set("disable-blink-features", "AutomationControlled").
		NoSandbox(true).
		Leakless(false). // Disable leakless to avoid antivirus issues
		Set("disable-dev-shm-usage").
		Set("disable-gpu").
		Set("no-first-run").
		Set("no-default-browser-check").
		Set("disable-extensions").
		Set("mute-audio")

	if cfg.UserAgent != "" {
		l = l.Set("user-agent", cfg.UserAgent)
	}

	// Prefer an installed Chrome/Chromium over downloading one
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		l = l.Bin(bin)
	} else if path, ok := launcher.LookPath(); ok {
		l = l.Bin(path)
	}

	browserURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(browserURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	return &RodFetcher{
		browser:   browser,
		timeout:   cfg.Timeout,
		extractor: newTextExtractor(f),
	}, nil
}

// Fetch implements tracker.FetchClient
func (rf *RodFetcher) Fetch(url string) (string, error) {
	page, err := rf.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", fmt.Errorf("failed to create page: %w", err)
	}
	defer page.Close()

	if rf.timeout > 0 {
		page = page.Timeout(rf.timeout)
		defer page.CancelTimeout()
	}

	if err := page.Navigate(url); err != nil {
		return "", fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return "", fmt.Errorf("failed to load %s: %w", url, err)
	}
	if err := page.WaitStable(stableWindow); err != nil {
		log.Printf("Warning: %s did not stabilize, reading it anyway: %v\n", url, err)
	}

	html, err := page.HTML()
	if err != nil {
		return "", fmt.Errorf("failed to get HTML of %s: %w", url, err)
	}

	text, err := rf.extractor.extract(html)
	if err != nil {
		return "", fmt.Errorf("failed to extract text from %s: %w", url, err)
	}

	return text, nil
}

// Close closes the browser
func (rf *RodFetcher) Close() error {
	if rf.browser != nil {
		return rf.browser.Close()
	}
	return nil
}
