package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
)

// Backends selectable with DATA_BACKEND.
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Process tells Validate which bot is starting; each needs its own token.
type Process int

const (
	ProcessBot Process = iota
	ProcessAdmin
)

// Config holds all configuration for the application
type Config struct {
	TelegramToken string
	AdminBotToken string
	AdminIDs      []int64

	DataBackend string
	DatabaseURL string
	RedisURL    string

	LogLevel  string
	LogFormat string
	Debug     bool

	// Port serves health, metrics and the admin API. PROMETHEUS_PORT is
	// read as a fallback for deployments that still set it.
	Port          string
	AdminAPIToken string

	SchedulerTimezone string
	SchedulerInterval time.Duration
	SchedulerRetry    time.Duration

	RateLimitPerMinute int

	// parse problems found by Load, reported by Validate
	problems []error
}

// Load loads configuration from environment variables, reading .env first
// when one exists.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		TelegramToken:     os.Getenv("TELEGRAM_TOKEN"),
		AdminBotToken:     os.Getenv("ADMIN_BOT_TOKEN"),
		DataBackend:       getEnvOrDefault("DATA_BACKEND", BackendPostgres),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisURL:          os.Getenv("REDIS_URL"),
		LogLevel:          getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:         getEnvOrDefault("LOG_FORMAT", "text"),
		Port:              getEnvOrDefault("PORT", getEnvOrDefault("PROMETHEUS_PORT", "8080")),
		AdminAPIToken:     os.Getenv("ADMIN_API_TOKEN"),
		SchedulerTimezone: getEnvOrDefault("SCHEDULER_TIMEZONE", "Europe/Moscow"),
	}

	cfg.Debug = cfg.getEnvBool("DEBUG", false)
	if cfg.Debug {
		cfg.LogLevel = "debug"
	}
	cfg.SchedulerInterval = cfg.getEnvDuration("SCHEDULER_INTERVAL", time.Hour)
	cfg.SchedulerRetry = cfg.getEnvDuration("SCHEDULER_RETRY", time.Minute)
	cfg.RateLimitPerMinute = cfg.getEnvInt("RATE_LIMIT_PER_MINUTE", 30)
	cfg.AdminIDs = cfg.parseIDs(os.Getenv("ADMIN_IDS"))

	return cfg
}

// Validate reports every configuration problem at once.
func (c *Config) Validate(p Process) error {
	var result *multierror.Error
	for _, err := range c.problems {
		result = multierror.Append(result, err)
	}

	switch p {
	case ProcessBot:
		if c.TelegramToken == "" {
			result = multierror.Append(result, fmt.Errorf("TELEGRAM_TOKEN environment variable is required"))
		}
	case ProcessAdmin:
		if c.AdminBotToken == "" {
			result = multierror.Append(result, fmt.Errorf("ADMIN_BOT_TOKEN environment variable is required"))
		}
		if len(c.AdminIDs) == 0 {
			result = multierror.Append(result, fmt.Errorf("ADMIN_IDS must list at least one telegram user id"))
		}
	}

	switch c.DataBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			result = multierror.Append(result, fmt.Errorf("DATABASE_URL environment variable is required"))
		}
	case BackendMemory:
	default:
		result = multierror.Append(result, fmt.Errorf("invalid data backend %q: must be %s or %s",
			c.DataBackend, BackendPostgres, BackendMemory))
	}

	if c.RedisURL != "" {
		if u, err := url.Parse(c.RedisURL); err != nil || (u.Scheme != "redis" && u.Scheme != "rediss") {
			result = multierror.Append(result, fmt.Errorf("invalid REDIS_URL %q: must be redis:// or rediss://", c.RedisURL))
		}
	}

	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		result = multierror.Append(result, fmt.Errorf("invalid port %q: must be between 1 and 65535", c.Port))
	}

	if c.LogFormat != "text" && c.LogFormat != "json" {
		result = multierror.Append(result, fmt.Errorf("invalid LOG_FORMAT %q: must be text or json", c.LogFormat))
	}

	if _, err := time.LoadLocation(c.SchedulerTimezone); err != nil {
		result = multierror.Append(result, fmt.Errorf("invalid SCHEDULER_TIMEZONE %q: %w", c.SchedulerTimezone, err))
	}
	if c.SchedulerInterval <= 0 {
		result = multierror.Append(result, fmt.Errorf("SCHEDULER_INTERVAL must be positive"))
	}
	if c.SchedulerRetry <= 0 {
		result = multierror.Append(result, fmt.Errorf("SCHEDULER_RETRY must be positive"))
	}
	if c.RateLimitPerMinute < 1 {
		result = multierror.Append(result, fmt.Errorf("RATE_LIMIT_PER_MINUTE must be at least 1"))
	}

	return result.ErrorOrNil()
}

// SchedulerLocation returns the zone the monthly scheduler evaluates dates in.
func (c *Config) SchedulerLocation() *time.Location {
	loc, err := time.LoadLocation(c.SchedulerTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsAdmin reports whether the telegram user is on the admin allow-list.
func (c *Config) IsAdmin(telegramID int64) bool {
	for _, id := range c.AdminIDs {
		if id == telegramID {
			return true
		}
	}
	return false
}

func (c *Config) parseIDs(raw string) []int64 {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			c.problems = append(c.problems, fmt.Errorf("invalid ADMIN_IDS entry %q: must be a number", part))
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func (c *Config) getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		c.problems = append(c.problems, fmt.Errorf("invalid %s %q: must be a number", key, value))
		return defaultValue
	}
	return n
}

func (c *Config) getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		c.problems = append(c.problems, fmt.Errorf("invalid %s %q: %w", key, value, err))
		return defaultValue
	}
	return d
}

func (c *Config) getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		c.problems = append(c.problems, fmt.Errorf("invalid %s %q: must be true or false", key, value))
		return defaultValue
	}
	return b
}

// getEnvOrDefault returns environment variable value or default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
