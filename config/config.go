package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	StorageSQLite = "sqlite"
	StorageJSON   = "json"
)

type Config struct {
	StorageDriver string   `yaml:"storage_driver"`
	DatabasePath  string   `yaml:"database_path"`
	EventsFile    string   `yaml:"events_file"`
	ExportDir     string   `yaml:"export_dir"`
	TimezoneName  string   `yaml:"timezone"`
	ServerPort    string   `yaml:"server_port"`
	APIUsername   string   `yaml:"api_username"`
	APIPassword   string   `yaml:"api_password"`
	CORSOrigins   []string `yaml:"cors_origins"`
	TelegramToken string   `yaml:"telegram_token"`
	OwnerChatID   int64    `yaml:"owner_telegram_id"`
	WebhookURL    string   `yaml:"webhook_url"`
	WebhookSecret string   `yaml:"webhook_secret"`
	MorningTime   string   `yaml:"morning_time"`
	RemindBefore  int      `yaml:"remind_before_minutes"`
	LogLevel      string   `yaml:"log_level"`

	Timezone *time.Location `yaml:"-"`
}

func Default() *Config {
	return &Config{
		StorageDriver: StorageSQLite,
		DatabasePath:  "./data/familycal.db",
		EventsFile:    "./data/events.json",
		ExportDir:     "./data/exports",
		TimezoneName:  "Europe/Moscow",
		ServerPort:    "8080",
		MorningTime:   "08:00",
		RemindBefore:  15,
		LogLevel:      "info",
	}
}

// Load builds the configuration from, in increasing priority: defaults, the
// YAML file named by CONFIG_FILE, a .env file in the working directory and
// the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.StorageDriver = getEnv("STORAGE_DRIVER", c.StorageDriver)
	c.DatabasePath = getEnv("DATABASE_PATH", c.DatabasePath)
	c.EventsFile = getEnv("EVENTS_FILE", c.EventsFile)
	c.ExportDir = getEnv("EXPORT_DIR", c.ExportDir)
	c.TimezoneName = getEnv("TIMEZONE", c.TimezoneName)
	c.ServerPort = getEnv("SERVER_PORT", c.ServerPort)
	c.APIUsername = getEnv("API_USERNAME", c.APIUsername)
	c.APIPassword = getEnv("API_PASSWORD", c.APIPassword)
	c.TelegramToken = getEnv("TELEGRAM_BOT_TOKEN", c.TelegramToken)
	c.WebhookURL = getEnv("WEBHOOK_URL", c.WebhookURL)
	c.WebhookSecret = getEnv("WEBHOOK_SECRET", c.WebhookSecret)
	c.MorningTime = getEnv("MORNING_TIME", c.MorningTime)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.CORSOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.CORSOrigins = append(c.CORSOrigins, o)
			}
		}
	}
	if v := os.Getenv("REMIND_BEFORE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RemindBefore = n
		}
	}
	if v := os.Getenv("OWNER_TELEGRAM_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.OwnerChatID = id
		}
	}
}

func (c *Config) validate() error {
	switch c.StorageDriver {
	case StorageSQLite, StorageJSON:
	default:
		return fmt.Errorf("STORAGE_DRIVER must be %q or %q, got %q", StorageSQLite, StorageJSON, c.StorageDriver)
	}

	tz, err := time.LoadLocation(c.TimezoneName)
	if err != nil {
		return fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	c.Timezone = tz

	if _, err := time.Parse("15:04", c.MorningTime); err != nil {
		return fmt.Errorf("MORNING_TIME must be HH:MM: %w", err)
	}

	if c.RemindBefore < 0 {
		return fmt.Errorf("REMIND_BEFORE must be zero or a positive number of minutes")
	}

	if !validSecretToken(c.WebhookSecret) {
		return fmt.Errorf("WEBHOOK_SECRET must be up to 256 characters of A-Z, a-z, 0-9, _ and -")
	}

	if c.TelegramToken != "" && c.OwnerChatID == 0 {
		return fmt.Errorf("OWNER_TELEGRAM_ID is required and must be a number when TELEGRAM_BOT_TOKEN is set")
	}
	return nil
}

// BotEnabled reports whether the Telegram front-end should run
func (c *Config) BotEnabled() bool {
	return c.TelegramToken != ""
}

// APIAuthEnabled reports whether the HTTP API requires Basic Auth
func (c *Config) APIAuthEnabled() bool {
	return c.APIUsername != "" && c.APIPassword != ""
}

func (c *Config) IsAllowedChat(chatID int64) bool {
	return chatID == c.OwnerChatID
}

// validSecretToken checks the charset Telegram accepts for secret_token.
// Empty means a random secret is generated at startup.
func validSecretToken(s string) bool {
	if len(s) > 256 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
