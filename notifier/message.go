package notifier

import (
	"time"

	"page-notifier/models"
	"page-notifier/tracker"
)

// FormatMessage renders a notification for the given changes at time now
func FormatMessage(title string, changes tracker.ChangeSet, now time.Time) string {
	return newMessage(title, changes, now).String()
}

func newMessage(title string, changes tracker.ChangeSet, now time.Time) models.Message {
	return models.Message{
		Title:       title,
		Timestamp:   now,
		ChangedURLs: changes.URLs(),
	}
}
