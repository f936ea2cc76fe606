package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_PORT", "")
	t.Setenv("BILLING_EVENT_TTL_HOURS", "")
	t.Setenv("REDIS_DB", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error = %v", err)
	}
	if cfg.App.Port != "8080" {
		t.Fatalf("port = %q, want 8080", cfg.App.Port)
	}
	if cfg.Billing.EventTTL() != 72*time.Hour {
		t.Fatalf("event ttl = %s", cfg.Billing.EventTTL())
	}
	if cfg.Billing.SignatureHeader != "X-Signature" {
		t.Fatalf("signature header = %q", cfg.Billing.SignatureHeader)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_HOST", "127.0.0.1")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "5")
	t.Setenv("BILLING_WEBHOOK_SECRET", "whsec")
	t.Setenv("POSTGRES_RUN_MIGRATIONS", "false")
	t.Setenv("POSTGRES_MAX_CONNS", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error = %v", err)
	}
	if cfg.App.Addr() != "127.0.0.1:9090" {
		t.Fatalf("addr = %q", cfg.App.Addr())
	}
	if cfg.App.RequestTimeout() != 5*time.Second {
		t.Fatalf("timeout = %s", cfg.App.RequestTimeout())
	}
	if cfg.Billing.WebhookSecret != "whsec" {
		t.Fatalf("webhook secret = %q", cfg.Billing.WebhookSecret)
	}
	if cfg.Postgres.RunMigrations {
		t.Fatalf("run migrations should be disabled")
	}
	if cfg.Postgres.MaxConns != 10 {
		t.Fatalf("max conns = %d, want fallback 10", cfg.Postgres.MaxConns)
	}
}

func TestLoadRejectsInvalidRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "abc")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid REDIS_DB")
	}
}
