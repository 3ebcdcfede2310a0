package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "token")
	t.Setenv("DATABASE_URL", "postgres://localhost/budget")
	for _, key := range []string{"DATA_BACKEND", "PORT", "PROMETHEUS_PORT", "LOG_FORMAT", "SCHEDULER_TIMEZONE", "SCHEDULER_INTERVAL", "SCHEDULER_RETRY", "RATE_LIMIT_PER_MINUTE", "REDIS_URL"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if err := cfg.Validate(ProcessBot); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.DataBackend != BackendPostgres {
		t.Errorf("DataBackend = %q", cfg.DataBackend)
	}
	if cfg.SchedulerInterval != time.Hour || cfg.SchedulerRetry != time.Minute {
		t.Errorf("scheduler = %v/%v", cfg.SchedulerInterval, cfg.SchedulerRetry)
	}
	if cfg.RateLimitPerMinute != 30 {
		t.Errorf("RateLimitPerMinute = %d", cfg.RateLimitPerMinute)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.SchedulerLocation().String() != "Europe/Moscow" {
		t.Errorf("SchedulerLocation = %v", cfg.SchedulerLocation())
	}
}

func TestPortFallsBackToPrometheusPort(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("PROMETHEUS_PORT", "9090")
	if got := Load().Port; got != "9090" {
		t.Fatalf("Port = %q, want 9090", got)
	}

	t.Setenv("PORT", "8081")
	if got := Load().Port; got != "8081" {
		t.Fatalf("Port = %q, want 8081", got)
	}
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	t.Setenv("ADMIN_BOT_TOKEN", "")
	t.Setenv("DATA_BACKEND", "sqlite")
	t.Setenv("PORT", "99999")
	t.Setenv("SCHEDULER_INTERVAL", "soon")
	t.Setenv("ADMIN_IDS", "12,abc")

	cfg := Load()
	err := cfg.Validate(ProcessAdmin)
	if err == nil {
		t.Fatal("expected an error")
	}

	msg := err.Error()
	for _, want := range []string{
		"ADMIN_BOT_TOKEN",
		"invalid data backend",
		"invalid port",
		"SCHEDULER_INTERVAL",
		"ADMIN_IDS entry",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q does not mention %q", msg, want)
		}
	}
	if !cfg.IsAdmin(12) || cfg.IsAdmin(13) {
		t.Errorf("AdminIDs = %v", cfg.AdminIDs)
	}
}

func TestMemoryBackendNeedsNoDatabase(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "token")
	t.Setenv("DATA_BACKEND", "memory")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DEBUG", "true")

	cfg := Load()
	if err := cfg.Validate(ProcessBot); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}
