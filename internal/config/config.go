// Package config loads application settings from a YAML file, a .env file and
// the process environment, in that order of precedence (environment wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Remote backends
const (
	BackendFirestore = "firestore"
	BackendRedis     = "redis"
	BackendMemory    = "memory"
)

// Config is the root configuration
type Config struct {
	UserID    string          `yaml:"user_id"`
	Database  DatabaseConfig  `yaml:"database"`
	Remote    RemoteConfig    `yaml:"remote"`
	Sync      SyncConfig      `yaml:"sync"`
	Practice  PracticeConfig  `yaml:"practice"`
	WordLists WordListsConfig `yaml:"wordlists"`
	Logging   LoggingConfig   `yaml:"logging"`
	Notify    NotifyConfig    `yaml:"notify"`
}

// DatabaseConfig selects the local store driver
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite3 or postgres
	DSN    string `yaml:"dsn"`
}

// RemoteConfig selects and configures the remote document store
type RemoteConfig struct {
	Backend         string        `yaml:"backend"`
	ProjectID       string        `yaml:"project_id"`
	CredentialsFile string        `yaml:"credentials_file"`
	RedisAddr       string        `yaml:"redis_addr"`
	RedisPassword   string        `yaml:"redis_password"`
	RedisDB         int           `yaml:"redis_db"`
	RedisPrefix     string        `yaml:"redis_prefix"`
	RatePerSecond   float64       `yaml:"rate_per_second"`
	Burst           int           `yaml:"burst"`
	Timeout         time.Duration `yaml:"timeout"`
}

// SyncConfig tunes the operation queue and retry policy
type SyncConfig struct {
	Interval       time.Duration `yaml:"interval"`
	ProbeInterval  time.Duration `yaml:"probe_interval"`
	MaxRetries     int           `yaml:"max_retries"`
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
}

// PracticeConfig holds session defaults
type PracticeConfig struct {
	WordsPerLevel int    `yaml:"words_per_level"`
	PassScore     int    `yaml:"pass_score"`
	MasteryStreak int    `yaml:"mastery_streak"`
	ReviewLimit   int    `yaml:"review_limit"`
	Timezone      string `yaml:"timezone"`
}

// WordListsConfig points at the bundled word lists
type WordListsConfig struct {
	Dir   string `yaml:"dir"`
	Watch bool   `yaml:"watch"`
}

// LoggingConfig configures zap
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// NotifyConfig configures streak reminders
type NotifyConfig struct {
	TelegramToken string `yaml:"telegram_token"`
	Enabled       bool   `yaml:"enabled"`
}

// DefaultConfig returns the configuration used when no file is present
func DefaultConfig() *Config {
	return &Config{
		UserID: "local",
		Database: DatabaseConfig{
			Driver: "sqlite3",
			DSN:    "data/spellsync.db",
		},
		Remote: RemoteConfig{
			Backend:       BackendMemory,
			RedisAddr:     "localhost:6379",
			RedisPrefix:   "spellsync",
			RatePerSecond: 10,
			Burst:         5,
			Timeout:       10 * time.Second,
		},
		Sync: SyncConfig{
			Interval:       time.Minute,
			ProbeInterval:  15 * time.Second,
			MaxRetries:     3,
			MaxAttempts:    3,
			InitialBackoff: 500 * time.Millisecond,
			MaxBackoff:     10 * time.Second,
		},
		Practice: PracticeConfig{
			WordsPerLevel: 10,
			PassScore:     80,
			MasteryStreak: 3,
			ReviewLimit:   20,
			Timezone:      "Local",
		},
		WordLists: WordListsConfig{
			Dir: "wordlists",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the YAML file at path (missing file is not an error), then the
// .env file and environment overrides, and validates the result
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// .env is optional; real environment variables are never overwritten
	_ = godotenv.Load()

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SPELL_USER_ID"); v != "" {
		c.UserID = v
	}
	if v := os.Getenv("DB_TYPE"); v != "" {
		if v == "sqlite" {
			v = "sqlite3"
		}
		c.Database.Driver = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("SPELL_REMOTE_BACKEND"); v != "" {
		c.Remote.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("GOOGLE_CLOUD_PROJECT"); v != "" {
		c.Remote.ProjectID = v
	}
	if v := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); v != "" {
		c.Remote.CredentialsFile = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Remote.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Remote.RedisPassword = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Remote.RedisDB = n
		}
	}
	if v := os.Getenv("SPELL_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Sync.MaxRetries = n
		}
	}
	if v := os.Getenv("SPELL_WORDLISTS_DIR"); v != "" {
		c.WordLists.Dir = v
	}
	if v := os.Getenv("SPELL_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Notify.TelegramToken = v
		c.Notify.Enabled = true
	}
}

// Validate checks value ranges and fills zero durations with defaults
func (c *Config) Validate() error {
	if c.UserID == "" {
		return errors.New("user_id must not be empty")
	}
	switch c.Database.Driver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.Remote.Backend {
	case BackendFirestore:
		if c.Remote.ProjectID == "" {
			return errors.New("remote.project_id is required for the firestore backend")
		}
	case BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("unsupported remote backend %q", c.Remote.Backend)
	}
	if c.Sync.MaxRetries < 1 {
		return errors.New("sync.max_retries must be at least 1")
	}
	if c.Sync.MaxAttempts < 1 {
		c.Sync.MaxAttempts = 1
	}
	if c.Practice.PassScore < 0 || c.Practice.PassScore > 100 {
		return fmt.Errorf("practice.pass_score must be within 0-100, got %d", c.Practice.PassScore)
	}
	if c.Practice.WordsPerLevel < 1 {
		return errors.New("practice.words_per_level must be positive")
	}

	defaults := DefaultConfig()
	if c.Sync.Interval <= 0 {
		c.Sync.Interval = defaults.Sync.Interval
	}
	if c.Sync.ProbeInterval <= 0 {
		c.Sync.ProbeInterval = defaults.Sync.ProbeInterval
	}
	if c.Sync.InitialBackoff <= 0 {
		c.Sync.InitialBackoff = defaults.Sync.InitialBackoff
	}
	if c.Sync.MaxBackoff < c.Sync.InitialBackoff {
		c.Sync.MaxBackoff = c.Sync.InitialBackoff
	}
	if c.Practice.MasteryStreak < 1 {
		c.Practice.MasteryStreak = defaults.Practice.MasteryStreak
	}
	return nil
}

// Location resolves the practice timezone used for streak calendar days
func (c *Config) Location() (*time.Location, error) {
	if c.Practice.Timezone == "" || c.Practice.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Practice.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", c.Practice.Timezone, err)
	}
	return loc, nil
}
