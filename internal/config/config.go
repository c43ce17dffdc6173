package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/dandantas/linkpatrol/internal/model"
)

// Config holds all application configuration
type Config struct {
	// MongoDB Configuration
	MongoURI      string
	MongoDatabase string
	MongoTimeout  time.Duration

	// HTTP Server Configuration
	HTTPPort         string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration

	// Logging Configuration
	LogLevel  string
	LogFormat string

	// Trigger Configuration
	CronSecret     string
	TriggerLockTTL time.Duration

	// Schedule Configuration
	LinkCheckEnabled   bool
	LinkCheckFrequency string
	LinkCheckTime      string
	LinkCheckDayOfWeek int
	PostsPerRun        int
	LinkCheckTimezone  string

	// Checker Configuration
	CheckerConcurrency  int
	CheckerProbeTimeout time.Duration
	CheckerRunDeadline  time.Duration
	CheckerMaxAttempts  int
	CheckerPerHostRPS   float64
	CheckerUserAgent    string

	// Content Source Configuration
	ContentAPIURL    string
	ContentAPIToken  string
	ContentItemsPath string
	ContentIDPath    string
	ContentTitlePath string
	ContentBodyPath  string
	ContentPageSize  int
	SiteBaseURL      string

	// Email Configuration
	EmailEnabled bool
	EmailTo      []string
	EmailFrom    string
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string

	// Webhook Configuration
	WebhookEnabled bool
	WebhookURL     string
	WebhookTimeout time.Duration

	// Notifier Configuration
	NotifyPreviewLimit int
	NotifyTimeout      time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first when present; variables
// already set in the environment take precedence.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	return &Config{
		// MongoDB
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017/linkpatrol"),
		MongoDatabase: getEnv("MONGO_DATABASE", "linkpatrol"),
		MongoTimeout:  getDurationEnv("MONGO_TIMEOUT_SEC", 10) * time.Second,

		// HTTP Server
		HTTPPort:         getEnv("HTTP_PORT", "8080"),
		HTTPReadTimeout:  getDurationEnv("HTTP_READ_TIMEOUT_SEC", 30) * time.Second,
		HTTPWriteTimeout: getDurationEnv("HTTP_WRITE_TIMEOUT_SEC", 900) * time.Second,

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// Trigger
		CronSecret:     os.Getenv("CRON_SECRET"),
		TriggerLockTTL: getDurationEnv("TRIGGER_LOCK_TTL_SEC", 900) * time.Second,

		// Schedule
		LinkCheckEnabled:   getBoolEnv("LINK_CHECK_ENABLED", true),
		LinkCheckFrequency: getEnv("LINK_CHECK_FREQUENCY", "weekly"),
		LinkCheckTime:      getEnv("LINK_CHECK_TIME", "03:00"),
		LinkCheckDayOfWeek: getIntEnv("LINK_CHECK_DAY_OF_WEEK", 1),
		PostsPerRun:        getIntEnv("LINK_CHECK_POSTS_PER_RUN", 50),
		LinkCheckTimezone:  getEnv("LINK_CHECK_TIMEZONE", "UTC"),

		// Checker
		CheckerConcurrency:  getIntEnv("CHECKER_CONCURRENCY", 20),
		CheckerProbeTimeout: getDurationEnv("CHECKER_PROBE_TIMEOUT_SEC", 10) * time.Second,
		CheckerRunDeadline:  getDurationEnv("CHECKER_RUN_DEADLINE_SEC", 600) * time.Second,
		CheckerMaxAttempts:  getIntEnv("CHECKER_MAX_ATTEMPTS", 2),
		CheckerPerHostRPS:   getFloatEnv("CHECKER_PER_HOST_RPS", 5),
		CheckerUserAgent:    getEnv("CHECKER_USER_AGENT", ""),

		// Content source
		ContentAPIURL:    os.Getenv("CONTENT_API_URL"),
		ContentAPIToken:  os.Getenv("CONTENT_API_TOKEN"),
		ContentItemsPath: getEnv("CONTENT_ITEMS_PATH", "$.posts"),
		ContentIDPath:    getEnv("CONTENT_ID_PATH", "$.id"),
		ContentTitlePath: getEnv("CONTENT_TITLE_PATH", "$.title"),
		ContentBodyPath:  getEnv("CONTENT_BODY_PATH", "$.content"),
		ContentPageSize:  getIntEnv("CONTENT_PAGE_SIZE", 50),
		SiteBaseURL:      os.Getenv("SITE_BASE_URL"),

		// Email
		EmailEnabled: getBoolEnv("EMAIL_ENABLED", false),
		EmailTo:      getListEnv("EMAIL_TO"),
		EmailFrom:    getEnv("EMAIL_FROM", "linkpatrol@localhost"),
		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getIntEnv("SMTP_PORT", 587),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),

		// Webhook
		WebhookEnabled: getBoolEnv("WEBHOOK_ENABLED", false),
		WebhookURL:     os.Getenv("WEBHOOK_URL"),
		WebhookTimeout: getDurationEnv("WEBHOOK_TIMEOUT_SEC", 10) * time.Second,

		// Notifier
		NotifyPreviewLimit: getIntEnv("NOTIFY_PREVIEW_LIMIT", 10),
		NotifyTimeout:      getDurationEnv("NOTIFY_TIMEOUT_SEC", 120) * time.Second,
	}
}

// Schedule returns the configured cadence
func (c *Config) Schedule() model.ScheduleSettings {
	return model.ScheduleSettings{
		Enabled:            c.LinkCheckEnabled,
		Frequency:          model.Frequency(strings.ToLower(strings.TrimSpace(c.LinkCheckFrequency))),
		TimeOfDay:          strings.TrimSpace(c.LinkCheckTime),
		DayOfWeek:          c.LinkCheckDayOfWeek,
		PostsToCheckPerRun: c.PostsPerRun,
		Timezone:           c.LinkCheckTimezone,
	}
}

// Validate reports every malformed setting at once
func (c *Config) Validate() error {
	var errs []error

	schedule := c.Schedule()
	if err := schedule.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("schedule: %w", err))
	}

	if c.ContentAPIURL == "" {
		errs = append(errs, errors.New("CONTENT_API_URL is required"))
	} else if err := validateHTTPURL(c.ContentAPIURL); err != nil {
		errs = append(errs, fmt.Errorf("CONTENT_API_URL: %w", err))
	}
	if c.SiteBaseURL != "" {
		if err := validateHTTPURL(c.SiteBaseURL); err != nil {
			errs = append(errs, fmt.Errorf("SITE_BASE_URL: %w", err))
		}
	}

	if c.CheckerConcurrency <= 0 {
		errs = append(errs, errors.New("CHECKER_CONCURRENCY must be positive"))
	}
	if c.CheckerProbeTimeout <= 0 {
		errs = append(errs, errors.New("CHECKER_PROBE_TIMEOUT_SEC must be positive"))
	}
	if c.CheckerRunDeadline < c.CheckerProbeTimeout {
		errs = append(errs, errors.New("CHECKER_RUN_DEADLINE_SEC must not be shorter than the probe timeout"))
	}
	if c.CheckerMaxAttempts <= 0 {
		errs = append(errs, errors.New("CHECKER_MAX_ATTEMPTS must be positive"))
	}

	if c.EmailEnabled && len(c.EmailTo) == 0 {
		errs = append(errs, errors.New("EMAIL_TO is required when EMAIL_ENABLED is true"))
	}
	if c.WebhookEnabled {
		if c.WebhookURL == "" {
			errs = append(errs, errors.New("WEBHOOK_URL is required when WEBHOOK_ENABLED is true"))
		} else if err := validateHTTPURL(c.WebhookURL); err != nil {
			errs = append(errs, fmt.Errorf("WEBHOOK_URL: %w", err))
		}
	}

	return errors.Join(errs...)
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("must start with http:// or https://")
	}
	if u.Host == "" {
		return fmt.Errorf("must include a host")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		slog.Warn("Invalid integer value, using default", "key", key, "default", defaultValue)
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
		slog.Warn("Invalid number value, using default", "key", key, "default", defaultValue)
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue int) time.Duration {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return time.Duration(intVal)
		}
		slog.Warn("Invalid duration value, using default", "key", key, "default", defaultValue)
	}
	return time.Duration(defaultValue)
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
		slog.Warn("Invalid boolean value, using default", "key", key, "default", defaultValue)
	}
	return defaultValue
}

// getListEnv splits a comma separated value, dropping empty entries
func getListEnv(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
