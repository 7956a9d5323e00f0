package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse(strings.NewReader(""))
	require.NoError(t, err)

	assert.Equal(t, 24*time.Hour, cfg.Monitor.RunDuration)
	assert.Equal(t, 10*time.Second, cfg.Monitor.PollInterval)
	assert.Equal(t, 2*time.Hour, cfg.Monitor.ReportInterval)
	assert.Equal(t, MethodTerminal, cfg.Notification.Method)
	assert.Equal(t, EngineColly, cfg.Fetcher.Engine)
	require.NoError(t, cfg.Validate())
}

func TestParseOverridesDefaults(t *testing.T) {
	src := `
monitor:
  run_duration: 1h
  poll_interval: 30s
  report_interval: 15m
  abort_on_send_error: true
notification:
  method: telegram
  telegram:
    bot_token: "123:abc"
    chat_id: 42
fetcher:
  engine: rod
  timeout: 5s
pages:
  - https://github.com/
  - https://en.wikipedia.org/wiki/Main_Page
ignore:
  - '\d+ minutes ago'
`
	cfg, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, time.Hour, cfg.Monitor.RunDuration)
	assert.Equal(t, 30*time.Second, cfg.Monitor.PollInterval)
	assert.Equal(t, 15*time.Minute, cfg.Monitor.ReportInterval)
	assert.True(t, cfg.Monitor.AbortOnSendError)
	assert.Equal(t, "123:abc", cfg.Notification.Telegram.BotToken)
	assert.Equal(t, int64(42), cfg.Notification.Telegram.ChatID)
	assert.Equal(t, EngineRod, cfg.Fetcher.Engine)
	assert.Equal(t, 5*time.Second, cfg.Fetcher.Timeout)
	assert.Len(t, cfg.Pages, 2)
	assert.Equal(t, []string{`\d+ minutes ago`}, cfg.Ignore)
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse(strings.NewReader("monitor:\n  monitoring_period: 1h\n"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"zero run duration", func(c *Config) { c.Monitor.RunDuration = 0 }, "run_duration"},
		{"negative poll interval", func(c *Config) { c.Monitor.PollInterval = -time.Second }, "poll_interval"},
		{"zero report interval", func(c *Config) { c.Monitor.ReportInterval = 0 }, "report_interval"},
		{"unknown method", func(c *Config) { c.Notification.Method = "whatsapp" }, "notification.method"},
		{"telegram without token", func(c *Config) {
			c.Notification.Method = MethodTelegram
			c.Notification.Telegram.ChatID = 1
		}, "bot_token"},
		{"telegram without chat", func(c *Config) {
			c.Notification.Method = MethodTelegram
			c.Notification.Telegram.BotToken = "t"
		}, "chat_id"},
		{"remote alias", func(c *Config) {
			c.Notification.Method = "Remote"
			c.Notification.Telegram.BotToken = "t"
			c.Notification.Telegram.ChatID = 1
		}, ""},
		{"unknown engine", func(c *Config) { c.Fetcher.Engine = "curl" }, "fetcher.engine"},
		{"zero timeout", func(c *Config) { c.Fetcher.Timeout = 0 }, "fetcher.timeout"},
		{"relative page", func(c *Config) { c.Pages = []string{"github.com"} }, "http(s)"},
		{"bad ignore pattern", func(c *Config) { c.Ignore = []string{"("} }, "ignore pattern"},
		{"sheets without credentials", func(c *Config) {
			c.Sheets.SpreadsheetURL = "https://docs.google.com/spreadsheets/d/abc/edit"
		}, "credentials_path"},
		{"sheets with inline credentials", func(c *Config) {
			c.Sheets.SpreadsheetURL = "https://docs.google.com/spreadsheets/d/abc/edit"
			c.Sheets.CredentialsJSON = `{"type": "service_account"}`
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateNormalizesRemoteAlias(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Notification.Method = MethodRemote
	cfg.Notification.Telegram.BotToken = "t"
	cfg.Notification.Telegram.ChatID = 7
	require.NoError(t, cfg.Validate())
	assert.Equal(t, MethodTelegram, cfg.Notification.Method)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"TELEGRAM_BOT_TOKEN":             "from-env",
		"TELEGRAM_CHAT_ID":               "-100123",
		"DATABASE_URL":                   "postgres://localhost/notifier",
		"GOOGLE_SHEETS_CREDENTIALS_PATH": "/etc/notifier/creds.json",
		"GOOGLE_SHEETS_CREDENTIALS":      " {\"type\": \"service_account\"}\n",
	}
	cfg := GetDefaultConfig()
	cfg.Notification.Telegram.BotToken = "from-file"

	require.NoError(t, cfg.ApplyEnv(func(k string) string { return env[k] }))
	assert.Equal(t, "from-env", cfg.Notification.Telegram.BotToken)
	assert.Equal(t, int64(-100123), cfg.Notification.Telegram.ChatID)
	assert.Equal(t, "postgres://localhost/notifier", cfg.Archive.DatabaseURL)
	assert.Equal(t, "/etc/notifier/creds.json", cfg.Sheets.CredentialsPath)
	assert.Equal(t, `{"type": "service_account"}`, cfg.Sheets.CredentialsJSON)

	err := cfg.ApplyEnv(func(k string) string {
		if k == "TELEGRAM_CHAT_ID" {
			return "abc"
		}
		return ""
	})
	require.ErrorIs(t, err, ErrInvalid)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("monitor:\n  poll_interval: 1m\npages:\n  - https://example.com/\n"), 0o644))

	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("TELEGRAM_CHAT_ID", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("GOOGLE_SHEETS_CREDENTIALS_PATH", "")
	t.Setenv("GOOGLE_SHEETS_CREDENTIALS", "")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, cfg.Monitor.PollInterval)
	assert.Equal(t, []string{"https://example.com/"}, cfg.Pages)

	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}
