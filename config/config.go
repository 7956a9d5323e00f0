package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation failure
var ErrInvalid = errors.New("invalid configuration")

// Notification methods
const (
	MethodTerminal = "terminal"
	MethodTelegram = "telegram"
	// MethodRemote is accepted as an alias of MethodTelegram
	MethodRemote = "remote"
)

// Fetcher engines
const (
	EngineColly = "colly"
	EngineRod   = "rod"
)

// Config represents the notifier configuration
type Config struct {
	Monitor      MonitorConfig      `yaml:"monitor"`
	Notification NotificationConfig `yaml:"notification"`
	Fetcher      FetcherConfig      `yaml:"fetcher"`
	Pages        []string           `yaml:"pages"`
	Ignore       []string           `yaml:"ignore"`
	Archive      ArchiveConfig      `yaml:"archive"`
	Sheets       SheetsConfig       `yaml:"sheets"`
}

// MonitorConfig holds the three timers driving the notifier loop
type MonitorConfig struct {
	RunDuration      time.Duration `yaml:"run_duration"`
	PollInterval     time.Duration `yaml:"poll_interval"`
	ReportInterval   time.Duration `yaml:"report_interval"`
	AbortOnSendError bool          `yaml:"abort_on_send_error"`
}

// NotificationConfig selects the message sink
type NotificationConfig struct {
	Method   string         `yaml:"method"`
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig holds the bot credentials and the recipient chat
type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
}

// FetcherConfig configures how pages are fetched
type FetcherConfig struct {
	Engine    string        `yaml:"engine"`
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

// ArchiveConfig enables the Postgres notification archive when DatabaseURL is set
type ArchiveConfig struct {
	DatabaseURL string `yaml:"database_url"`
}

// SheetsConfig enables the Google Sheets notification log when SpreadsheetURL is set
type SheetsConfig struct {
	SpreadsheetURL  string `yaml:"spreadsheet_url"`
	CredentialsPath string `yaml:"credentials_path"`
	// Service account JSON passed inline through GOOGLE_SHEETS_CREDENTIALS
	CredentialsJSON string `yaml:"-"`
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Parse decodes YAML on top of the default configuration. Unknown fields are rejected.
func Parse(r io.Reader) (*Config, error) {
	cfg := GetDefaultConfig()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// GetDefaultConfig returns a default configuration
func GetDefaultConfig() *Config {
	cfg := &Config{}
	cfg.Monitor.RunDuration = 24 * time.Hour
	cfg.Monitor.PollInterval = 10 * time.Second
	cfg.Monitor.ReportInterval = 2 * time.Hour
	cfg.Notification.Method = MethodTerminal
	cfg.Fetcher.Engine = EngineColly
	cfg.Fetcher.Timeout = 30 * time.Second
	cfg.Fetcher.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	return cfg
}

// ApplyEnv overlays secrets from the environment. Environment values win over the file.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if token := strings.TrimSpace(getenv("TELEGRAM_BOT_TOKEN")); token != "" {
		c.Notification.Telegram.BotToken = token
	}
	if chat := strings.TrimSpace(getenv("TELEGRAM_CHAT_ID")); chat != "" {
		id, err := strconv.ParseInt(chat, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: TELEGRAM_CHAT_ID %q is not a number", ErrInvalid, chat)
		}
		c.Notification.Telegram.ChatID = id
	}
	if dsn := strings.TrimSpace(getenv("DATABASE_URL")); dsn != "" {
		c.Archive.DatabaseURL = dsn
	}
	if creds := strings.TrimSpace(getenv("GOOGLE_SHEETS_CREDENTIALS_PATH")); creds != "" {
		c.Sheets.CredentialsPath = creds
	}
	if creds := strings.TrimSpace(getenv("GOOGLE_SHEETS_CREDENTIALS")); creds != "" {
		c.Sheets.CredentialsJSON = creds
	}
	return nil
}

// Validate checks the configuration once, before anything is started
func (c *Config) Validate() error {
	if c.Monitor.RunDuration <= 0 {
		return fmt.Errorf("%w: monitor.run_duration must be positive", ErrInvalid)
	}
	if c.Monitor.PollInterval <= 0 {
		return fmt.Errorf("%w: monitor.poll_interval must be positive", ErrInvalid)
	}
	if c.Monitor.ReportInterval <= 0 {
		return fmt.Errorf("%w: monitor.report_interval must be positive", ErrInvalid)
	}

	c.Notification.Method = strings.ToLower(strings.TrimSpace(c.Notification.Method))
	switch c.Notification.Method {
	case MethodTerminal:
	case MethodTelegram, MethodRemote:
		c.Notification.Method = MethodTelegram
		if c.Notification.Telegram.BotToken == "" {
			return fmt.Errorf("%w: notification.telegram.bot_token is required for method %q", ErrInvalid, MethodTelegram)
		}
		if c.Notification.Telegram.ChatID == 0 {
			return fmt.Errorf("%w: notification.telegram.chat_id is required for method %q", ErrInvalid, MethodTelegram)
		}
	default:
		return fmt.Errorf("%w: unknown notification.method %q (want %q or %q)", ErrInvalid, c.Notification.Method, MethodTerminal, MethodTelegram)
	}

	c.Fetcher.Engine = strings.ToLower(strings.TrimSpace(c.Fetcher.Engine))
	if c.Fetcher.Engine != EngineColly && c.Fetcher.Engine != EngineRod {
		return fmt.Errorf("%w: unknown fetcher.engine %q (want %q or %q)", ErrInvalid, c.Fetcher.Engine, EngineColly, EngineRod)
	}
	if c.Fetcher.Timeout <= 0 {
		return fmt.Errorf("%w: fetcher.timeout must be positive", ErrInvalid)
	}

	for _, p := range c.Pages {
		if !strings.HasPrefix(p, "http://") && !strings.HasPrefix(p, "https://") {
			return fmt.Errorf("%w: page %q must be an http(s) URL", ErrInvalid, p)
		}
	}

	for _, pattern := range c.Ignore {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("%w: ignore pattern %q: %v", ErrInvalid, pattern, err)
		}
	}

	if c.Sheets.SpreadsheetURL != "" && c.Sheets.CredentialsPath == "" && c.Sheets.CredentialsJSON == "" {
		return fmt.Errorf("%w: sheets.credentials_path or GOOGLE_SHEETS_CREDENTIALS is required when sheets.spreadsheet_url is set", ErrInvalid)
	}

	return nil
}
