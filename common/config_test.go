package common

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.ListenAddr != DEFAULT_LISTEN_ADDR {
		t.Errorf("expected listen addr %q, got %q", DEFAULT_LISTEN_ADDR, cfg.ListenAddr)
	}
	if cfg.ChatRateLimit != DEFAULT_CHAT_RATE_LIMIT || cfg.ChatRateIntervalS != DEFAULT_CHAT_RATE_INTERVAL_S {
		t.Errorf("unexpected chat rate defaults: %d/%ds", cfg.ChatRateLimit, cfg.ChatRateIntervalS)
	}
	if cfg.WebhookRateLimit != DEFAULT_WEBHOOK_RATE_LIMIT || cfg.WebhookRateIntervalS != DEFAULT_WEBHOOK_RATE_INTERVAL_S {
		t.Errorf("unexpected webhook rate defaults: %d/%ds", cfg.WebhookRateLimit, cfg.WebhookRateIntervalS)
	}
	if cfg.MaxContextTokens != DEFAULT_MAX_CONTEXT_TOKENS {
		t.Errorf("unexpected token budget: %d", cfg.MaxContextTokens)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9999")
	t.Setenv("DATABASE_URL", "postgres://test")
	t.Setenv("CHAT_RATE_LIMIT", "7")
	t.Setenv("CHAT_RATE_INTERVAL_S", "30")
	t.Setenv("WAHA_API_URL", "http://waha:3000")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.ListenAddr != ":9999" {
		t.Errorf("expected env listen addr, got %q", cfg.ListenAddr)
	}
	if cfg.DatabaseURL != "postgres://test" {
		t.Errorf("expected env database url, got %q", cfg.DatabaseURL)
	}
	if cfg.ChatRateLimit != 7 || cfg.ChatRateIntervalS != 30 {
		t.Errorf("expected env rate limits, got %d/%ds", cfg.ChatRateLimit, cfg.ChatRateIntervalS)
	}
	if cfg.WahaAPIURL != "http://waha:3000" {
		t.Errorf("expected env waha url, got %q", cfg.WahaAPIURL)
	}
}

func TestLoadConfigFileWithEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	content := `{"listen_addr": ":5000", "redis_addr": "redis:6379"}`
	if err := os.WriteFile(filepath.Join(dir, DEFAULT_CONFIG_FILE), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	// Env wins over file.
	t.Setenv("LISTEN_ADDR", ":6000")

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.ListenAddr != ":6000" {
		t.Errorf("expected env to override file, got %q", cfg.ListenAddr)
	}
	if cfg.RedisAddr != "redis:6379" {
		t.Errorf("expected file redis addr, got %q", cfg.RedisAddr)
	}
}

func TestAtoiOrDefault(t *testing.T) {
	if got := atoiOrDefault("12", 5); got != 12 {
		t.Errorf("expected 12, got %d", got)
	}
	if got := atoiOrDefault("nope", 5); got != 5 {
		t.Errorf("expected fallback 5, got %d", got)
	}
}
