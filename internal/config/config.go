// Package config loads and validates all environment variables at startup.
// Every other package receives typed values; nothing reads os.Getenv directly.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the fully-parsed application configuration.
type Config struct {
	// ── Server ────────────────────────────────────────────────────────────────
	Port    string // default "8080"
	Env     string // "development" | "staging" | "production"
	BaseURL string

	// ── Database ──────────────────────────────────────────────────────────────
	DatabaseURL string

	// ── Redis ─────────────────────────────────────────────────────────────────
	// Optional. Enables the Redis run lock and the asynq scheduler; without it
	// runs are serialised with a Postgres advisory lock.
	RedisURL string

	// ── Secrets ───────────────────────────────────────────────────────────────
	AdminToken         string
	CronSecret         string
	ExportAPISecret    string
	InboundEmailSecret string

	// ── AI ────────────────────────────────────────────────────────────────────
	// Every provider is optional. With none configured the digest uses the
	// local fallback library only.
	AnthropicAPIKey string
	AnthropicModel  string
	DeepSeekAPIKey  string
	DeepSeekModel   string
	BedrockModelID  string

	// ── Email ─────────────────────────────────────────────────────────────────
	EmailProvider      string // "resend" | "ses"
	ResendAPIKey       string
	EmailFromAddr      string
	EmailFromName      string
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string

	// ── Testimonials ──────────────────────────────────────────────────────────
	TestimonialsURL    string
	TestimonialsAPIKey string

	// ── Scheduler ─────────────────────────────────────────────────────────────
	SchedulerEnabled bool
	DailySchedule    string // cron spec, default weekdays 08:00
	WeeklySchedule   string // cron spec, default Friday 16:00
	DigestTimezone   string // IANA name, default "America/Los_Angeles"
	JobTimeout       time.Duration

	// ── Digest tuning ─────────────────────────────────────────────────────────
	PaceTolerance         float64
	FreshnessWindow       time.Duration
	InspirationWindow     time.Duration
	RecentDigestWindow    time.Duration
	ShoutoutLimit         int
	TestimonialLimit      int
	TestimonialCandidates int
	LockTTL               time.Duration
}

// Load reads all environment variables and returns a validated Config.
// A .env file in the working directory is loaded first when present; real
// environment variables always take precedence over it.
func Load() (*Config, error) {
	// godotenv.Load never overrides variables that are already set.
	_ = godotenv.Load(".env")

	c := &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),

		AdminToken:         os.Getenv("ADMIN_TOKEN"),
		CronSecret:         os.Getenv("CRON_SECRET"),
		ExportAPISecret:    os.Getenv("EXPORT_API_SECRET"),
		InboundEmailSecret: os.Getenv("INBOUND_EMAIL_SECRET"),

		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:  getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-5"),
		DeepSeekAPIKey:  os.Getenv("DEEPSEEK_API_KEY"),
		DeepSeekModel:   getEnv("DEEPSEEK_MODEL", "deepseek-chat"),
		BedrockModelID:  os.Getenv("BEDROCK_MODEL_ID"),

		EmailProvider:      strings.ToLower(getEnv("EMAIL_PROVIDER", "resend")),
		ResendAPIKey:       os.Getenv("RESEND_API_KEY"),
		EmailFromAddr:      getEnv("EMAIL_FROM_ADDR", "digest@retrieverprint.com"),
		EmailFromName:      getEnv("EMAIL_FROM_NAME", "Retriever Daily Digest"),
		AWSRegion:          getEnv("AWS_REGION", "us-west-2"),
		AWSAccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),

		TestimonialsURL:    os.Getenv("TESTIMONIALS_URL"),
		TestimonialsAPIKey: os.Getenv("TESTIMONIALS_API_KEY"),

		SchedulerEnabled: getEnvAsBool("SCHEDULER_ENABLED", false),
		DailySchedule:    getEnv("DAILY_SCHEDULE", "0 8 * * 1-5"),
		WeeklySchedule:   getEnv("WEEKLY_SCHEDULE", "0 16 * * 5"),
		DigestTimezone:   getEnv("DIGEST_TIMEZONE", "America/Los_Angeles"),
		JobTimeout:       getEnvAsDuration("JOB_TIMEOUT", 10*time.Minute),

		PaceTolerance:         getEnvAsFloat("PACE_TOLERANCE", 0.05),
		FreshnessWindow:       getEnvAsDuration("FRESHNESS_DAYS", 30*24*time.Hour),
		InspirationWindow:     getEnvAsDuration("INSPIRATION_RECENT_DAYS", 14*24*time.Hour),
		RecentDigestWindow:    getEnvAsDuration("RECENT_DIGEST_DAYS", 7*24*time.Hour),
		ShoutoutLimit:         getEnvAsInt("SHOUTOUT_LIMIT", 3),
		TestimonialLimit:      getEnvAsInt("TESTIMONIAL_LIMIT", 2),
		TestimonialCandidates: getEnvAsInt("TESTIMONIAL_CANDIDATES", 20),
		LockTTL:               getEnvAsDuration("LOCK_TTL", 15*time.Minute),
	}

	return c, c.validate()
}

// IsProduction reports whether ENV is "production".
func (c *Config) IsProduction() bool { return c.Env == "production" }

// Location returns the digest time zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.DigestTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) validate() error {
	var errs []error

	required := []struct{ name, val string }{
		{"DATABASE_URL", c.DatabaseURL},
		{"ADMIN_TOKEN", c.AdminToken},
		{"CRON_SECRET", c.CronSecret},
		{"EXPORT_API_SECRET", c.ExportAPISecret},
	}
	for _, r := range required {
		if r.val == "" {
			errs = append(errs, fmt.Errorf("missing required env var: %s", r.name))
		}
	}

	switch c.EmailProvider {
	case "resend":
		if c.ResendAPIKey == "" {
			errs = append(errs, errors.New("missing required env var: RESEND_API_KEY (EMAIL_PROVIDER=resend)"))
		}
	case "ses":
		// Static keys are optional; the default AWS credential chain applies.
		if c.AWSRegion == "" {
			errs = append(errs, errors.New("missing required env var: AWS_REGION (EMAIL_PROVIDER=ses)"))
		}
	default:
		errs = append(errs, fmt.Errorf("EMAIL_PROVIDER must be resend or ses, got %q", c.EmailProvider))
	}

	if c.SchedulerEnabled && c.RedisURL == "" {
		errs = append(errs, errors.New("SCHEDULER_ENABLED requires REDIS_URL"))
	}
	if _, err := time.LoadLocation(c.DigestTimezone); err != nil {
		errs = append(errs, fmt.Errorf("invalid DIGEST_TIMEZONE %q: %w", c.DigestTimezone, err))
	}
	if c.PaceTolerance < 0 || c.PaceTolerance >= 1 {
		errs = append(errs, fmt.Errorf("PACE_TOLERANCE must be in [0, 1), got %v", c.PaceTolerance))
	}
	if c.ShoutoutLimit <= 0 {
		errs = append(errs, fmt.Errorf("SHOUTOUT_LIMIT must be positive, got %d", c.ShoutoutLimit))
	}
	if c.TestimonialLimit < 0 {
		errs = append(errs, fmt.Errorf("TESTIMONIAL_LIMIT must not be negative, got %d", c.TestimonialLimit))
	}

	return errors.Join(errs...)
}

// ─── HELPERS ─────────────────────────────────────────────────────────────────

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsDuration accepts Go duration syntax ("36h") or a plain integer,
// which is read in the unit the variable name ends with (_DAYS, _HOURS,
// _MINUTES) and as seconds otherwise.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		switch {
		case strings.HasSuffix(key, "DAYS"):
			return time.Duration(value) * 24 * time.Hour
		case strings.HasSuffix(key, "HOURS"):
			return time.Duration(value) * time.Hour
		case strings.HasSuffix(key, "MINUTES"):
			return time.Duration(value) * time.Minute
		default:
			return time.Duration(value) * time.Second
		}
	}
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
