package config

import (
	"strings"
	"testing"
)

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/leadsignal")
	t.Setenv("JWT_ACCESS_SECRET", "access")
	t.Setenv("SECRETS_ENCRYPTION_KEY", testKeyHex)
	t.Setenv("CORS_ALLOW_ALL", "false")
	t.Setenv("CORS_ORIGINS", "http://localhost:4200")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)
	t.Setenv("WEBHOOK_MAX_BODY_BYTES", "1048576")
	t.Setenv("PHONE_DEFAULT_REGION", "nl")
	t.Setenv("REDIS_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.GetWebhookMaxBodyBytes() != 1<<20 {
		t.Fatalf("expected 1 MiB body limit, got %d", cfg.GetWebhookMaxBodyBytes())
	}
	if cfg.GetPhoneDefaultRegion() != "NL" {
		t.Fatalf("expected upper-cased region, got %q", cfg.GetPhoneDefaultRegion())
	}
	if len(cfg.GetSecretsEncryptionKey()) != 32 {
		t.Fatalf("expected 32-byte key, got %d", len(cfg.GetSecretsEncryptionKey()))
	}
	if cfg.IsSchedulerEnabled() {
		t.Fatalf("scheduler must be disabled without REDIS_URL")
	}
}

func TestLoadRejectsShortEncryptionKey(t *testing.T) {
	setRequired(t)
	t.Setenv("SECRETS_ENCRYPTION_KEY", "abcd")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "SECRETS_ENCRYPTION_KEY") {
		t.Fatalf("expected encryption key error, got %v", err)
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	setRequired(t)
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error without DATABASE_URL")
	}
}

func TestLoadRejectsWildcardCORSWithCredentials(t *testing.T) {
	setRequired(t)
	t.Setenv("CORS_ORIGINS", "*")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "true")

	if _, err := Load(); err == nil {
		t.Fatalf("expected CORS credential error")
	}
}
