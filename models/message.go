package models

import (
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the layout of the timestamp line of a rendered message
const TimestampLayout = "2006-01-02 15:04:05"

// Notification titles
const (
	TitleNews         = "News"
	TitleStatusReport = "Status report"
)

// Message is one notification before it is rendered to text
type Message struct {
	Title       string
	Timestamp   time.Time
	ChangedURLs []string
}

// String renders the message: a title header, a timestamp line, then one
// line per changed page. Header and timestamp are present even with no changes.
func (m Message) String() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("--- %s ---\n", m.Title))
	sb.WriteString(m.Timestamp.Format(TimestampLayout))

	for _, url := range m.ChangedURLs {
		sb.WriteString(fmt.Sprintf("\n%s has changed", url))
	}

	return sb.String()
}
