package notifier

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"page-notifier/models"
	"page-notifier/sink"
	"page-notifier/tracker"
)

// ErrRunning is returned when pages are added or Run is called after Run has begun
var ErrRunning = errors.New("notifier already started")

// State of the scheduling loop
type State int

const (
	Idle State = iota
	Running
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Settings are the three timers of the loop
type Settings struct {
	RunDuration    time.Duration
	PollInterval   time.Duration
	ReportInterval time.Duration
}

// Recorder keeps a copy of every notification that was sent
type Recorder interface {
	Record(ctx context.Context, msg models.Message) error
}

// Option configures a Notifier
type Option func(*Notifier)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(n *Notifier) { n.now = now }
}

// WithSleep replaces the wait between iterations. The function must return
// early with ctx.Err() when ctx is cancelled.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(n *Notifier) { n.sleep = sleep }
}

// WithRecorder adds a recorder called after each successful send
func WithRecorder(r Recorder) Option {
	return func(n *Notifier) { n.recorders = append(n.recorders, r) }
}

// WithAbortOnSendError stops Run on the first failed send instead of logging and continuing
func WithAbortOnSendError(abort bool) Option {
	return func(n *Notifier) { n.abortOnSendError = abort }
}

// Notifier polls the registered pages and sends "News" when something changed
// and a "Status report" at a fixed interval
type Notifier struct {
	client    tracker.FetchClient
	sink      sink.Sink
	recorders []Recorder
	settings  Settings

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	abortOnSendError bool

	mu         sync.Mutex
	state      State
	pages      []*tracker.PageTracker
	startTime  time.Time
	lastReport time.Time
}

// New creates a Notifier. Start time and last report time are set to now.
func New(settings Settings, client tracker.FetchClient, s sink.Sink, opts ...Option) (*Notifier, error) {
	if settings.RunDuration <= 0 {
		return nil, fmt.Errorf("run duration must be positive, got %s", settings.RunDuration)
	}
	if settings.PollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive, got %s", settings.PollInterval)
	}
	if settings.ReportInterval <= 0 {
		return nil, fmt.Errorf("report interval must be positive, got %s", settings.ReportInterval)
	}
	if client == nil {
		return nil, fmt.Errorf("fetch client is required")
	}
	if s == nil {
		return nil, fmt.Errorf("message sink is required")
	}

	n := &Notifier{
		client:   client,
		sink:     s,
		settings: settings,
		now:      time.Now,
		sleep:    sleepContext,
		state:    Idle,
	}
	for _, opt := range opts {
		opt(n)
	}

	n.startTime = n.now()
	n.lastReport = n.startTime

	return n, nil
}

// AddPage registers a page and seeds its snapshot with one synchronous fetch
func (n *Notifier) AddPage(url string) error {
	if n.State() != Idle {
		return ErrRunning
	}

	pt := tracker.New(url, n.client)

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state != Idle {
		return ErrRunning
	}
	n.pages = append(n.pages, pt)

	log.Printf("Monitoring %s\n", url)
	return nil
}

// AddPages registers several pages in order
func (n *Notifier) AddPages(urls ...string) error {
	for _, url := range urls {
		if err := n.AddPage(url); err != nil {
			return err
		}
	}
	return nil
}

// Pages returns the registered trackers in registration order
func (n *Notifier) Pages() []*tracker.PageTracker {
	n.mu.Lock()
	defer n.mu.Unlock()

	pages := make([]*tracker.PageTracker, len(n.pages))
	copy(pages, n.pages)
	return pages
}

// State returns the current loop state
func (n *Notifier) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// LastReport returns when the last status report was sent, or the start time if none was
func (n *Notifier) LastReport() time.Time {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.lastReport
}

// Run loops until the run duration has elapsed or ctx is cancelled. Each
// iteration sends news, sends a status report when one is due, then sleeps
// for the poll interval.
//
// A failed send is logged and the loop continues, unless the notifier was
// built WithAbortOnSendError, in which case Run returns the error.
func (n *Notifier) Run(ctx context.Context) error {
	n.mu.Lock()
	if n.state != Idle {
		n.mu.Unlock()
		return ErrRunning
	}
	n.state = Running
	pages := len(n.pages)
	n.mu.Unlock()

	defer func() {
		n.mu.Lock()
		n.state = Stopped
		n.mu.Unlock()
		log.Println("Notifier stopped")
	}()

	log.Printf("Notifier started: %d page(s), run duration %s, poll interval %s, report interval %s\n",
		pages, n.settings.RunDuration, n.settings.PollInterval, n.settings.ReportInterval)

	for n.now().Sub(n.startTime) < n.settings.RunDuration {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := n.Step(ctx); err != nil {
			if n.abortOnSendError {
				return err
			}
			log.Printf("Error sending notification: %v\n", err)
		}

		if err := n.sleep(ctx, n.settings.PollInterval); err != nil {
			return err
		}
	}

	return nil
}

// Step runs one iteration of the loop without sleeping: news, then report.
// The report step runs even when news failed; the first error is returned.
func (n *Notifier) Step(ctx context.Context) error {
	newsErr := n.News(ctx)
	if newsErr != nil && n.abortOnSendError {
		return newsErr
	}
	reportErr := n.Report(ctx)
	return errors.Join(newsErr, reportErr)
}

// News scans every page and sends a "News" message if any changed
func (n *Notifier) News(ctx context.Context) error {
	changes := tracker.Scan(n.Pages())
	if changes.Empty() {
		return nil
	}

	log.Printf("%d page(s) changed\n", len(changes))
	return n.deliver(ctx, newMessage(models.TitleNews, changes, n.now()))
}

// Report sends a "Status report" when more than the report interval has passed
// since the last one. It runs its own scan, independent of News.
func (n *Notifier) Report(ctx context.Context) error {
	if n.now().Sub(n.LastReport()) <= n.settings.ReportInterval {
		return nil
	}
	return n.ReportNow(ctx)
}

// ReportNow scans every page and sends a "Status report" regardless of the interval
func (n *Notifier) ReportNow(ctx context.Context) error {
	changes := tracker.Scan(n.Pages())
	if err := n.deliver(ctx, newMessage(models.TitleStatusReport, changes, n.now())); err != nil {
		return err
	}

	n.mu.Lock()
	if now := n.now(); now.After(n.lastReport) {
		n.lastReport = now
	}
	n.mu.Unlock()

	return nil
}

// Send delivers a formatted message through the configured sink
func (n *Notifier) Send(message string) error {
	if err := n.sink.Send(message); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	return nil
}

func (n *Notifier) deliver(ctx context.Context, msg models.Message) error {
	if err := n.Send(msg.String()); err != nil {
		return err
	}

	for _, r := range n.recorders {
		if err := r.Record(ctx, msg); err != nil {
			log.Printf("Warning: Failed to record %q notification: %v\n", msg.Title, err)
		}
	}

	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
