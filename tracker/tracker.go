package tracker

import (
	"log"
	"sync"
)

// FetchClient returns the normalized visible text of a page
type FetchClient interface {
	Fetch(url string) (string, error)
}

// PageTracker owns one monitored URL and its last successfully fetched text
type PageTracker struct {
	url    string
	client FetchClient

	mu       sync.Mutex
	lastText string
}

// New creates a PageTracker and seeds its snapshot with one synchronous fetch.
// When that first fetch fails the snapshot is the empty string.
func New(url string, client FetchClient) *PageTracker {
	pt := &PageTracker{url: url, client: client}

	text, err := client.Fetch(url)
	if err != nil {
		log.Printf("Warning: Initial fetch of %s failed, starting from an empty snapshot: %v\n", url, err)
		return pt
	}
	pt.lastText = text

	return pt
}

// URL returns the monitored URL
func (pt *PageTracker) URL() string {
	return pt.url
}

// Text returns the current snapshot
func (pt *PageTracker) Text() string {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	return pt.lastText
}

// HasChanged re-fetches the page and reports whether its text differs from the
// snapshot. A failed fetch reports false and keeps the snapshot. A successful
// fetch always replaces the snapshot.
func (pt *PageTracker) HasChanged() bool {
	text, err := pt.client.Fetch(pt.url)
	if err != nil {
		log.Printf("Warning: Failed to fetch %s, keeping last snapshot: %v\n", pt.url, err)
		return false
	}

	pt.mu.Lock()
	defer pt.mu.Unlock()

	changed := text != pt.lastText
	pt.lastText = text
	return changed
}

// ChangeSet is the ordered list of trackers that changed during one scan
type ChangeSet []*PageTracker

// Empty reports whether no page changed
func (cs ChangeSet) Empty() bool {
	return len(cs) == 0
}

// URLs returns the URLs of the changed pages in order
func (cs ChangeSet) URLs() []string {
	urls := make([]string, 0, len(cs))
	for _, pt := range cs {
		urls = append(urls, pt.URL())
	}
	return urls
}

// Scan checks every tracker in order, one at a time, and collects those that changed
func Scan(pages []*PageTracker) ChangeSet {
	var changed ChangeSet
	for _, pt := range pages {
		if pt.HasChanged() {
			changed = append(changed, pt)
		}
	}
	return changed
}
