package common

const (
	DEFAULT_CONFIG_DIR  = ".config/"
	DEFAULT_CONFIG_FILE = "config.json"

	DEFAULT_LISTEN_ADDR  = ":4000"
	DEFAULT_REDIS_ADDR   = ""
	DEFAULT_REDIS_PREFIX = "relate:"

	// Web widget limiter: 20 requests per minute per client IP.
	DEFAULT_CHAT_RATE_LIMIT      = 20
	DEFAULT_CHAT_RATE_INTERVAL_S = 60

	// WhatsApp webhook limiter: 60 requests per 10 seconds on a shared token.
	DEFAULT_WEBHOOK_RATE_LIMIT      = 60
	DEFAULT_WEBHOOK_RATE_INTERVAL_S = 10

	// Distinct tokens tracked before the in-memory limiter starts evicting.
	DEFAULT_RATE_LIMIT_MAX_TOKENS = 500

	// Token budget for the product context handed to the responder.
	DEFAULT_MAX_CONTEXT_TOKENS = 1024

	DEFAULT_WAHA_API_URL = "http://localhost:3000"

	// Subscription period granted per reconciled invoice.
	SUBSCRIPTION_PERIOD_DAYS = 30

	// Bank-transfer surcharge codes are drawn from [1, MAX_UNIQUE_CODE].
	MAX_UNIQUE_CODE = 999
)
