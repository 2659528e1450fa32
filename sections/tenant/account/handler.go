package account

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"relate-backend/sections"
	"relate-backend/sections/common/auth"
	"relate-backend/services"
)

// Handler serves the tenant's own account view
type Handler struct {
	logger *slog.Logger
	deps   *sections.Dependencies
}

// NewHandler creates a new account handler
func NewHandler(deps *sections.Dependencies) *Handler {
	return &Handler{
		logger: slog.With("handler", "AccountHandler"),
		deps:   deps,
	}
}

// GetMe returns the tenant record. Expiry is evaluated lazily here: an
// active subscription past its end date is flipped to expired before the
// response is written, so the dashboard never shows a stale active state.
func (h *Handler) GetMe(c *gin.Context) {
	tenantID, ok := auth.GetTenantIDFromContext(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant context required"})
		return
	}

	tenant, err := h.deps.Store.GetTenant(c.Request.Context(), tenantID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "tenant not found"})
			return
		}
		h.logger.Error("Failed to load tenant", "tenant", tenantID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load tenant"})
		return
	}

	expired, err := h.deps.Billing.CheckExpiry(c.Request.Context(), tenant)
	if err != nil {
		h.logger.Error("Failed to evaluate subscription expiry", "tenant", tenantID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load tenant"})
		return
	}
	if expired {
		h.logger.Info("Subscription expired on read", "tenant", tenantID)
	}

	c.JSON(http.StatusOK, gin.H{"tenant": tenant})
}

// RegisterRoutes registers account routes
func RegisterRoutes(r *gin.Engine, deps *sections.Dependencies, jwtManager *auth.JWTManager) {
	handler := NewHandler(deps)

	account := r.Group("/api/v1/me")
	account.Use(auth.JWTAuthMiddleware(jwtManager), auth.RequireTenant())
	{
		account.GET("", handler.GetMe)
	}
}
