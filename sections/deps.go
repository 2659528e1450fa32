package sections

import (
	"relate-backend/common"
	"relate-backend/db"
	"relate-backend/ratelimit"
	"relate-backend/services"
	"relate-backend/storage"
)

// Store is the persistence surface handlers share. storage.Store is the
// production implementation.
type Store interface {
	services.CRMStore
	services.BillingStore
	services.ChannelStore
}

// Dependencies holds all shared dependencies for handlers
type Dependencies struct {
	Config *common.Config
	DB     *db.DB
	Store  Store
	Redis  *storage.RedisClient
	Tiers  []common.Tier

	Pipeline *services.Pipeline
	Billing  *services.BillingService
	Whatsapp *services.WhatsappService
	Stripe   *services.StripeService

	ChatLimiter    ratelimit.Limiter
	WebhookLimiter ratelimit.Limiter
}

// NewDependencies creates a new Dependencies instance
func NewDependencies(
	cfg *common.Config,
	database *db.DB,
	store Store,
	redis *storage.RedisClient,
	tiers []common.Tier,
	pipeline *services.Pipeline,
	billing *services.BillingService,
	whatsapp *services.WhatsappService,
	stripeSvc *services.StripeService,
	chatLimiter ratelimit.Limiter,
	webhookLimiter ratelimit.Limiter,
) *Dependencies {
	return &Dependencies{
		Config:         cfg,
		DB:             database,
		Store:          store,
		Redis:          redis,
		Tiers:          tiers,
		Pipeline:       pipeline,
		Billing:        billing,
		Whatsapp:       whatsapp,
		Stripe:         stripeSvc,
		ChatLimiter:    chatLimiter,
		WebhookLimiter: webhookLimiter,
	}
}
