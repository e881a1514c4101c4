package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cwhitley/propmail/internal/filter"
)

// Config holds all application configuration
type Config struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	DatabasePath string        `yaml:"database_path"`
	LogLevel     string        `yaml:"log_level"`

	Mailbox  MailboxConfig   `yaml:"mailbox"`
	Telegram TelegramConfig  `yaml:"telegram"`
	Alerts   filter.Criteria `yaml:"alerts"`
}

// MailboxConfig for the IMAP account listing alerts arrive in
type MailboxConfig struct {
	Address      string        `yaml:"address"` // host:port, TLS
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	Folder       string        `yaml:"folder"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
}

// TelegramConfig for price-drop and run-summary notifications
type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
	Enabled  bool   `yaml:"enabled"`
}

// DefaultConfig returns configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		PollInterval: 15 * time.Minute,
		DatabasePath: "data/propmail.db",
		LogLevel:     "info",
		Mailbox: MailboxConfig{
			Folder:       "INBOX",
			FetchTimeout: 2 * time.Minute,
		},
		Telegram: TelegramConfig{
			Enabled: false,
		},
	}
}

// Load reads configuration from a YAML file and environment variables
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	// Read YAML file if exists
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	// Override with environment variables
	if v := os.Getenv("IMAP_ADDRESS"); v != "" {
		cfg.Mailbox.Address = v
	}
	if v := os.Getenv("IMAP_USERNAME"); v != "" {
		cfg.Mailbox.Username = v
	}
	if v := os.Getenv("IMAP_PASSWORD"); v != "" {
		cfg.Mailbox.Password = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		var chatID int64
		if parseEnvInt64(v, &chatID) {
			cfg.Telegram.ChatID = chatID
		}
	}
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		cfg.DatabasePath = v
	}

	return cfg, nil
}

func parseEnvInt64(s string, target *int64) bool {
	if s == "" {
		return false
	}
	neg := s[0] == '-'
	if neg {
		s = s[1:]
	}
	var n int64
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
		n = n*10 + int64(c-'0')
	}
	if neg {
		n = -n
	}
	*target = n
	return true
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	// The mailbox account is required for live runs but not for -once over
	// a saved message file; checked at the call site instead.
	return nil
}
