package main

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"relate-backend/common"
	"relate-backend/db"
	"relate-backend/middleware"
	"relate-backend/ratelimit"
	"relate-backend/sections"
	"relate-backend/sections/common/auth"
	"relate-backend/sections/common/users"
	"relate-backend/sections/integrations/moota"
	"relate-backend/sections/integrations/whatsapp"
	"relate-backend/sections/models"
	"relate-backend/sections/public/chat"
	"relate-backend/sections/tenant/account"
	"relate-backend/sections/tenant/billing"
	"relate-backend/sections/tenant/leads"
	"relate-backend/sections/tenant/orders"
	"relate-backend/sections/tenant/products"
	"relate-backend/sections/tenant/settings"
	"relate-backend/sections/tenant/stats"
	"relate-backend/services"
	"relate-backend/storage"
)

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func main() {
	ctx := context.Background()

	// Set up structured logging with debug level
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})))

	// Load environment variables
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			slog.Error("Failed to load .env file", "error", err)
			os.Exit(1)
		}
	}

	cfgDir := getEnv("CONFIG_DIR", common.DEFAULT_CONFIG_DIR)

	// Load configuration
	cfg, err := common.LoadConfig(cfgDir)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	tiers, err := common.LoadTiers(cfgDir)
	if err != nil {
		slog.Error("Failed to load subscription tiers", "error", err)
		os.Exit(1)
	}

	// Connect to the database and migrate shared models
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := database.RegisterModels(ctx,
		&models.Tenant{},
		&models.User{},
		&models.Channel{},
		&models.SubscriptionInvoice{},
		&models.Lead{},
		&models.Conversation{},
		&models.Message{},
		&models.Product{},
		&models.AIConfig{},
		&models.Order{},
	); err != nil {
		slog.Error("Failed to register models", "error", err)
		os.Exit(1)
	}
	if err := database.MigrateSharedModels(ctx); err != nil {
		slog.Error("Failed to migrate shared models", "error", err)
		os.Exit(1)
	}

	// Initialize JWT manager
	jwtManager, err := auth.NewJWTManagerFromEnv()
	if err != nil {
		slog.Error("Failed to initialize JWT manager", "error", err)
		os.Exit(1)
	}

	store := storage.NewStore(database)

	// Rate limiters: Redis-backed when configured, in-process otherwise
	var redisClient *storage.RedisClient
	var chatLimiter, webhookLimiter ratelimit.Limiter
	if cfg.RedisAddr != "" {
		redisClient, err = storage.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisPrefix, 0)
		if err != nil {
			slog.Error("Failed to initialize Redis client", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()

		chatLimiter = ratelimit.NewRedis(redisClient, time.Duration(cfg.ChatRateIntervalS)*time.Second)
		webhookLimiter = ratelimit.NewRedis(redisClient, time.Duration(cfg.WebhookRateIntervalS)*time.Second)
	} else {
		slog.Info("No Redis address configured, using in-process rate limiting")
		chatLimiter = ratelimit.NewMemory(time.Duration(cfg.ChatRateIntervalS)*time.Second, cfg.RateLimitUniqueTokens)
		webhookLimiter = ratelimit.NewMemory(time.Duration(cfg.WebhookRateIntervalS)*time.Second, cfg.RateLimitUniqueTokens)
	}

	// Stripe is optional; without it only bank transfers settle invoices
	var stripeSvc *services.StripeService
	if cfg.StripeSecretKey != "" {
		stripeSvc = services.NewStripeService(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	} else {
		slog.Info("No Stripe key provided, card payments disabled")
	}

	// Domain services
	responder, err := services.NewKeywordResponder(store, cfg.MaxContextTokens)
	if err != nil {
		slog.Error("Failed to initialize responder", "error", err)
		os.Exit(1)
	}
	resolver := services.NewResolver(store)
	pipeline := services.NewPipeline(store, resolver, responder)
	billingSvc := services.NewBillingService(store, tiers, stripeSvc)
	whatsappSvc := services.NewWhatsappService(store, cfg.WahaAPIURL)

	deps := sections.NewDependencies(cfg, database, store, redisClient, tiers,
		pipeline, billingSvc, whatsappSvc, stripeSvc, chatLimiter, webhookLimiter)

	// Initialize Gin router
	r := gin.Default()

	env := getEnv("APP_ENV", "production")
	trustedProxies := getEnv("TRUSTED_PROXIES", "")
	corsOrigins := getEnv("CORS_ORIGINS", "")

	if env != "development" && trustedProxies == "" {
		slog.Error("In production mode, TRUSTED_PROXIES must be set")
		os.Exit(1)
	} else if trustedProxies != "" {
		slog.Info("Setting trusted proxies", "proxies", trustedProxies)
		proxies := strings.Split(trustedProxies, ",")
		if err := r.SetTrustedProxies(proxies); err != nil {
			slog.Error("Failed to set trusted proxies", "error", err)
			os.Exit(1)
		}
	} else {
		slog.Warn("No trusted proxies set (TRUSTED_PROXIES not defined)")
	}

	// Configure CORS. The widget endpoints are embedded on arbitrary customer
	// sites, so they allow any origin; the dashboard API stays restricted.
	corsConfig := cors.DefaultConfig()

	if env != "development" && corsOrigins == "" {
		slog.Error("In production mode, CORS_ORIGINS must be set")
		os.Exit(1)
	} else if corsOrigins != "" {
		slog.Info("CORS origins set from CORS_ORIGINS")
		corsConfig.AllowOrigins = strings.Split(corsOrigins, ",")
	} else {
		slog.Warn("Using default origin function in non-production mode (CORS_ORIGINS not defined)")
		corsConfig.AllowOriginFunc = func(origin string) bool {
			return origin == "http://localhost" || strings.HasPrefix(origin, "http://localhost:")
		}
	}

	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	r.Use(cors.New(corsConfig))

	// Metrics
	httpMetrics := middleware.NewHTTPMetrics()
	r.Use(httpMetrics.Instrument())
	r.GET("/metrics", httpMetrics.Handler())

	// Rate limit middlewares: per-IP for the widget, one shared budget for
	// the unauthenticated webhooks.
	chatLimitMW := middleware.RateLimitMiddleware(chatLimiter, cfg.ChatRateLimit, middleware.ClientIPKey)
	webhookLimitMW := middleware.RateLimitMiddleware(webhookLimiter, cfg.WebhookRateLimit, middleware.FixedKey("webhook"))

	// Routes
	users.RegisterRoutes(r, deps, jwtManager)
	account.RegisterRoutes(r, deps, jwtManager)
	products.RegisterRoutes(r, deps, jwtManager)
	leads.RegisterRoutes(r, deps, jwtManager)
	orders.RegisterRoutes(r, deps, jwtManager)
	settings.RegisterRoutes(r, deps, jwtManager)
	stats.RegisterRoutes(r, deps, jwtManager)
	billing.RegisterRoutes(&r.RouterGroup, r.Group("/api/integrations"), deps, jwtManager)
	chat.RegisterRoutes(r, deps, chatLimitMW)
	whatsapp.RegisterRoutes(r, deps, webhookLimitMW)
	moota.RegisterRoutes(r, deps, webhookLimitMW)

	// Serve the widget loader and any other static assets
	if publicDir := getEnv("APP_PUBLIC", "public"); publicDir != "" {
		if _, err := os.Stat(publicDir); err == nil {
			slog.Info("Serving static files", "directory", publicDir)
			r.Static("/static", publicDir)
			r.StaticFile("/widget.js", publicDir+"/widget.js")
		} else {
			slog.Info("Static file directory not found, skipping", "directory", publicDir)
		}
	}

	slog.Info("Server starting", "addr", cfg.ListenAddr)
	if err := r.Run(cfg.ListenAddr); err != nil {
		slog.Error("Failed to start server", "error", err)
		os.Exit(1)
	}
}
