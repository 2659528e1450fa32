package common

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"strings"
)

type Config struct {
	ListenAddr    string `json:"listen_addr"`
	DatabaseURL   string `json:"database_url"`
	RedisAddr     string `json:"redis_addr"`
	RedisPassword string `json:"redis_password"`
	RedisPrefix   string `json:"redis_prefix"`

	ChatRateLimit         int `json:"chat_rate_limit"`
	ChatRateIntervalS     int `json:"chat_rate_interval_s"`
	WebhookRateLimit      int `json:"webhook_rate_limit"`
	WebhookRateIntervalS  int `json:"webhook_rate_interval_s"`
	RateLimitUniqueTokens int `json:"rate_limit_unique_tokens"`

	MaxContextTokens int `json:"max_context_tokens"`

	WahaAPIURL string `json:"waha_api_url"`

	StripeSecretKey     string `json:"stripe_secret_key"`
	StripeWebhookSecret string `json:"stripe_webhook_secret"`
}

func LoadConfig(dir string) (*Config, error) {
	cfg := DefaultConfig()

	configPath := os.Getenv("CONFIG_FILE")
	if configPath == "" {
		configPath = DEFAULT_CONFIG_FILE
	}

	if !strings.HasPrefix(configPath, "/") && dir != "" {
		configPath = path.Join(dir, configPath)
	}

	if _, err := os.Stat(configPath); err == nil {
		fileCfg, err := LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
		cfg.applyConfigOverrides(fileCfg)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

func LoadConfigFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		f, err := os.Open(path)
		if err == nil {
			defer f.Close()
			dec := json.NewDecoder(f)
			_ = dec.Decode(&cfg) // ignore error, fallback to env/defaults
		}
	}
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		ListenAddr:            DEFAULT_LISTEN_ADDR,
		RedisAddr:             DEFAULT_REDIS_ADDR,
		RedisPrefix:           DEFAULT_REDIS_PREFIX,
		ChatRateLimit:         DEFAULT_CHAT_RATE_LIMIT,
		ChatRateIntervalS:     DEFAULT_CHAT_RATE_INTERVAL_S,
		WebhookRateLimit:      DEFAULT_WEBHOOK_RATE_LIMIT,
		WebhookRateIntervalS:  DEFAULT_WEBHOOK_RATE_INTERVAL_S,
		RateLimitUniqueTokens: DEFAULT_RATE_LIMIT_MAX_TOKENS,
		MaxContextTokens:      DEFAULT_MAX_CONTEXT_TOKENS,
		WahaAPIURL:            DEFAULT_WAHA_API_URL,
	}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.RedisPassword = v
	}
	if v := os.Getenv("REDIS_PREFIX"); v != "" {
		c.RedisPrefix = v
	}
	if v := os.Getenv("CHAT_RATE_LIMIT"); v != "" {
		c.ChatRateLimit = atoiOrDefault(v, c.ChatRateLimit)
	}
	if v := os.Getenv("CHAT_RATE_INTERVAL_S"); v != "" {
		c.ChatRateIntervalS = atoiOrDefault(v, c.ChatRateIntervalS)
	}
	if v := os.Getenv("WEBHOOK_RATE_LIMIT"); v != "" {
		c.WebhookRateLimit = atoiOrDefault(v, c.WebhookRateLimit)
	}
	if v := os.Getenv("WEBHOOK_RATE_INTERVAL_S"); v != "" {
		c.WebhookRateIntervalS = atoiOrDefault(v, c.WebhookRateIntervalS)
	}
	if v := os.Getenv("RATE_LIMIT_UNIQUE_TOKENS"); v != "" {
		c.RateLimitUniqueTokens = atoiOrDefault(v, c.RateLimitUniqueTokens)
	}
	if v := os.Getenv("MAX_CONTEXT_TOKENS"); v != "" {
		c.MaxContextTokens = atoiOrDefault(v, c.MaxContextTokens)
	}
	if v := os.Getenv("WAHA_API_URL"); v != "" {
		c.WahaAPIURL = v
	}
	if v := os.Getenv("STRIPE_SECRET_KEY"); v != "" {
		c.StripeSecretKey = v
	}
	if v := os.Getenv("STRIPE_WEBHOOK_SECRET"); v != "" {
		c.StripeWebhookSecret = v
	}
}

func (c *Config) applyConfigOverrides(cfg *Config) {
	if cfg.ListenAddr != "" {
		c.ListenAddr = cfg.ListenAddr
	}
	if cfg.DatabaseURL != "" {
		c.DatabaseURL = cfg.DatabaseURL
	}
	if cfg.RedisAddr != "" {
		c.RedisAddr = cfg.RedisAddr
	}
	if cfg.RedisPassword != "" {
		c.RedisPassword = cfg.RedisPassword
	}
	if cfg.RedisPrefix != "" {
		c.RedisPrefix = cfg.RedisPrefix
	}
	if cfg.ChatRateLimit != 0 {
		c.ChatRateLimit = cfg.ChatRateLimit
	}
	if cfg.ChatRateIntervalS != 0 {
		c.ChatRateIntervalS = cfg.ChatRateIntervalS
	}
	if cfg.WebhookRateLimit != 0 {
		c.WebhookRateLimit = cfg.WebhookRateLimit
	}
	if cfg.WebhookRateIntervalS != 0 {
		c.WebhookRateIntervalS = cfg.WebhookRateIntervalS
	}
	if cfg.RateLimitUniqueTokens != 0 {
		c.RateLimitUniqueTokens = cfg.RateLimitUniqueTokens
	}
	if cfg.MaxContextTokens != 0 {
		c.MaxContextTokens = cfg.MaxContextTokens
	}
	if cfg.WahaAPIURL != "" {
		c.WahaAPIURL = cfg.WahaAPIURL
	}
	if cfg.StripeSecretKey != "" {
		c.StripeSecretKey = cfg.StripeSecretKey
	}
	if cfg.StripeWebhookSecret != "" {
		c.StripeWebhookSecret = cfg.StripeWebhookSecret
	}
}

func atoiOrDefault(s string, def int) int {
	var n int
	_, err := fmt.Sscanf(s, "%d", &n)
	if err != nil {
		return def
	}
	return n
}
