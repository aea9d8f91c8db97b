package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/digest")
	t.Setenv("ADMIN_TOKEN", "admin")
	t.Setenv("CRON_SECRET", "cron")
	t.Setenv("EXPORT_API_SECRET", "export")
	t.Setenv("RESEND_API_KEY", "re_123")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Port != "8080" {
		t.Errorf("Port = %q, want 8080", c.Port)
	}
	if c.EmailProvider != "resend" {
		t.Errorf("EmailProvider = %q, want resend", c.EmailProvider)
	}
	if c.PaceTolerance != 0.05 {
		t.Errorf("PaceTolerance = %v, want 0.05", c.PaceTolerance)
	}
	if c.FreshnessWindow != 30*24*time.Hour {
		t.Errorf("FreshnessWindow = %v", c.FreshnessWindow)
	}
	if c.InspirationWindow != 14*24*time.Hour {
		t.Errorf("InspirationWindow = %v", c.InspirationWindow)
	}
	if c.ShoutoutLimit != 3 || c.TestimonialLimit != 2 {
		t.Errorf("limits = %d/%d, want 3/2", c.ShoutoutLimit, c.TestimonialLimit)
	}
	if c.SchedulerEnabled {
		t.Error("scheduler should be off by default")
	}
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("FRESHNESS_DAYS", "45")
	t.Setenv("INSPIRATION_RECENT_DAYS", "72h")
	t.Setenv("PACE_TOLERANCE", "0.1")
	t.Setenv("SHOUTOUT_LIMIT", "5")
	t.Setenv("EMAIL_PROVIDER", "SES")
	t.Setenv("DIGEST_TIMEZONE", "America/New_York")

	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.FreshnessWindow != 45*24*time.Hour {
		t.Errorf("FreshnessWindow = %v, want 45 days", c.FreshnessWindow)
	}
	if c.InspirationWindow != 72*time.Hour {
		t.Errorf("InspirationWindow = %v, want 72h", c.InspirationWindow)
	}
	if c.PaceTolerance != 0.1 {
		t.Errorf("PaceTolerance = %v", c.PaceTolerance)
	}
	if c.ShoutoutLimit != 5 {
		t.Errorf("ShoutoutLimit = %d", c.ShoutoutLimit)
	}
	if c.EmailProvider != "ses" {
		t.Errorf("EmailProvider = %q, want lowercased ses", c.EmailProvider)
	}
	if got := c.Location().String(); got != "America/New_York" {
		t.Errorf("Location = %s", got)
	}
}

func TestLoad_ReportsEveryMissingVar(t *testing.T) {
	for _, k := range []string{"DATABASE_URL", "ADMIN_TOKEN", "CRON_SECRET", "EXPORT_API_SECRET", "RESEND_API_KEY"} {
		t.Setenv(k, "")
	}

	_, err := Load()
	if err == nil {
		t.Fatal("expected an error")
	}
	for _, want := range []string{"DATABASE_URL", "ADMIN_TOKEN", "CRON_SECRET", "EXPORT_API_SECRET", "RESEND_API_KEY"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
		want string
	}{
		{"provider", "EMAIL_PROVIDER", "smtp", "EMAIL_PROVIDER"},
		{"scheduler without redis", "SCHEDULER_ENABLED", "true", "REDIS_URL"},
		{"timezone", "DIGEST_TIMEZONE", "Mars/Olympus", "DIGEST_TIMEZONE"},
		{"tolerance", "PACE_TOLERANCE", "1.5", "PACE_TOLERANCE"},
		{"limit", "SHOUTOUT_LIMIT", "0", "SHOUTOUT_LIMIT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv("REDIS_URL", "")
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %s", err, tt.want)
			}
		})
	}
}

func TestLoad_DotEnvDoesNotOverrideEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("PORT=9999\nCRON_SECRET=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)
	setRequired(t)
	t.Setenv("PORT", "")
	os.Unsetenv("PORT")

	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Port != "9999" {
		t.Errorf("Port = %q, want value from .env", c.Port)
	}
	if c.CronSecret != "cron" {
		t.Errorf("CronSecret = %q, real env must win", c.CronSecret)
	}
}
