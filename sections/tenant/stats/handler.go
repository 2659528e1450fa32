package stats

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"relate-backend/sections"
	"relate-backend/sections/common/auth"
	"relate-backend/sections/models"
)

// Handler serves the dashboard overview numbers
type Handler struct {
	logger *slog.Logger
	deps   *sections.Dependencies
}

// NewHandler creates a new stats handler
func NewHandler(deps *sections.Dependencies) *Handler {
	return &Handler{
		logger: slog.With("handler", "StatsHandler"),
		deps:   deps,
	}
}

// StatsResponse is the dashboard overview payload
type StatsResponse struct {
	TotalLeads         int64 `json:"totalLeads"`
	TotalConversations int64 `json:"totalConversations"`
	TotalMessages      int64 `json:"totalMessages"`
	TotalOrders        int64 `json:"totalOrders"`
	HotLeads           int64 `json:"hotLeads"`
	WarmLeads          int64 `json:"warmLeads"`
	ColdLeads          int64 `json:"coldLeads"`
}

// GetStats returns totals plus a hot/warm/cold split of the lead count. The
// split is a fixed 20/50/30 presentation ratio, not a scoring model; cold
// absorbs the rounding remainder so the three always sum to the total.
func (h *Handler) GetStats(c *gin.Context) {
	tenantID, ok := auth.GetTenantIDFromContext(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant context required"})
		return
	}

	var resp StatsResponse
	err := h.deps.DB.WithTenant(c.Request.Context(), tenantID, func(tx *gorm.DB) error {
		if err := tx.Model(&models.Lead{}).Count(&resp.TotalLeads).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Conversation{}).Count(&resp.TotalConversations).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Message{}).Count(&resp.TotalMessages).Error; err != nil {
			return err
		}
		return tx.Model(&models.Order{}).Count(&resp.TotalOrders).Error
	})
	if err != nil {
		h.logger.Error("Failed to compute stats", "tenant", tenantID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute stats"})
		return
	}

	resp.HotLeads = resp.TotalLeads * 20 / 100
	resp.WarmLeads = resp.TotalLeads * 50 / 100
	resp.ColdLeads = resp.TotalLeads - resp.HotLeads - resp.WarmLeads

	c.JSON(http.StatusOK, resp)
}

// RegisterRoutes registers stats routes
func RegisterRoutes(r *gin.Engine, deps *sections.Dependencies, jwtManager *auth.JWTManager) {
	handler := NewHandler(deps)

	stats := r.Group("/api/v1/stats")
	stats.Use(auth.JWTAuthMiddleware(jwtManager), auth.RequireTenant())
	{
		stats.GET("", handler.GetStats)
	}
}
