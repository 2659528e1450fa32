package billing

import (
	"github.com/gin-gonic/gin"

	"relate-backend/sections"
	"relate-backend/sections/common/auth"
)

// RegisterRoutes registers billing routes. Dashboard routes require auth;
// the Stripe webhook is verified by signature instead.
func RegisterRoutes(frontendRoutes, callbackRoutes *gin.RouterGroup, deps *sections.Dependencies, jwtManager *auth.JWTManager) {
	handler := NewHandler(deps)

	billing := frontendRoutes.Group("/api/v1/billing")
	billing.Use(auth.JWTAuthMiddleware(jwtManager), auth.RequireTenant())
	{
		billing.GET("/tiers", handler.ListTiers)
		billing.POST("/invoice", handler.CreateInvoice)
		billing.GET("/invoice", handler.GetPendingInvoice)
	}

	if deps.Stripe != nil {
		webhooks := callbackRoutes.Group("/stripe")
		{
			webhooks.POST("/webhook", handler.HandleStripeWebhook)
		}
	}
}
