package sink

import (
	"fmt"
	"io"
	"os"

	"page-notifier/config"
)

// Sink delivers a formatted notification
type Sink interface {
	Send(message string) error
}

// New builds the sink selected by the configuration. The choice is made once here.
func New(cfg config.NotificationConfig) (Sink, error) {
	switch cfg.Method {
	case config.MethodTerminal:
		return NewConsole(os.Stdout), nil
	case config.MethodTelegram, config.MethodRemote:
		tg, err := NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			return nil, err
		}
		return tg, nil
	default:
		return nil, fmt.Errorf("unknown notification method %q", cfg.Method)
	}
}

// Console prints messages to a writer
type Console struct {
	w io.Writer
}

// NewConsole creates a Console sink. If w is nil, os.Stdout is used.
func NewConsole(w io.Writer) *Console {
	if w == nil {
		w = os.Stdout
	}
	return &Console{w: w}
}

// Send writes the message followed by a newline
func (c *Console) Send(message string) error {
	if _, err := fmt.Fprintln(c.w, message); err != nil {
		return fmt.Errorf("failed to print message: %w", err)
	}
	return nil
}
