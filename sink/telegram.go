package sink

import (
	"fmt"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram limits a text message to 4096 characters
const maxMessageLen = 4096

// Telegram sends messages to one chat through the Telegram Bot API
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegram authenticates the bot and returns a sink targeting chatID.
// Invalid credentials fail here, before any message is sent.
func NewTelegram(botToken string, chatID int64) (*Telegram, error) {
	return NewTelegramWithEndpoint(botToken, chatID, tgbotapi.APIEndpoint, nil)
}

// NewTelegramWithEndpoint is NewTelegram against a custom API endpoint and
// HTTP client. A nil client uses http.DefaultClient.
func NewTelegramWithEndpoint(botToken string, chatID int64, endpoint string, client tgbotapi.HTTPClient) (*Telegram, error) {
	if botToken == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}
	if chatID == 0 {
		return nil, fmt.Errorf("telegram chat id is required")
	}

	var (
		bot *tgbotapi.BotAPI
		err error
	)
	if client == nil {
		bot, err = tgbotapi.NewBotAPIWithAPIEndpoint(botToken, endpoint)
	} else {
		bot, err = tgbotapi.NewBotAPIWithClient(botToken, endpoint, client)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	return &Telegram{bot: bot, chatID: chatID}, nil
}

// Send delivers the message, split into several parts if it is too long
func (t *Telegram) Send(message string) error {
	parts := splitMessage(message, maxMessageLen)
	for i, part := range parts {
		msg := tgbotapi.NewMessage(t.chatID, part)
		msg.DisableWebPagePreview = true
		if _, err := t.bot.Send(msg); err != nil {
			return fmt.Errorf("failed to send telegram message part %d/%d: %w", i+1, len(parts), err)
		}
	}
	return nil
}

// splitMessage splits a message into chunks of at most maxLen bytes, on line
// boundaries where possible
func splitMessage(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}

	var parts []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			parts = append(parts, strings.TrimSuffix(current.String(), "\n"))
			current.Reset()
		}
	}

	for _, line := range strings.Split(text, "\n") {
		if current.Len()+len(line)+1 > maxLen {
			flush()
			for len(line) > maxLen {
				cut := runeBoundary(line, maxLen)
				parts = append(parts, line[:cut])
				line = line[cut:]
			}
		}
		current.WriteString(line)
		current.WriteString("\n")
	}
	flush()

	return parts
}

// runeBoundary moves a byte offset back to the start of the rune it falls in,
// so no chunk ends inside a multi-byte character
func runeBoundary(s string, cut int) int {
	for i := cut; i > 0; i-- {
		if utf8.RuneStart(s[i]) {
			return i
		}
	}
	return cut
}
