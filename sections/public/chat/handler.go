package chat

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"relate-backend/sections"
	"relate-backend/sections/models"
	"relate-backend/services"
)

// Handler serves the embeddable web widget: anonymous visitors identified by
// a session token, no authentication beyond the rate limiter in front.
type Handler struct {
	logger *slog.Logger
	deps   *sections.Dependencies
}

// NewHandler creates a new chat handler
func NewHandler(deps *sections.Dependencies) *Handler {
	return &Handler{
		logger: slog.With("handler", "ChatHandler"),
		deps:   deps,
	}
}

// SendRequest is one widget message
type SendRequest struct {
	TenantID  string `json:"tenantId" binding:"required"`
	Message   string `json:"message" binding:"required"`
	SessionID string `json:"sessionId" binding:"required"`
}

// LeadMessageRequest is the legacy customer-portal message shape
type LeadMessageRequest struct {
	LeadID  uint   `json:"leadId" binding:"required"`
	Message string `json:"message" binding:"required"`
}

// Send processes one widget message through the pipeline and returns the
// generated reply.
func (h *Handler) Send(c *gin.Context) {
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// The tenant read doubles as the lazy expiry check.
	tenant, err := h.deps.Store.GetTenant(c.Request.Context(), req.TenantID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown tenant"})
			return
		}
		h.logger.Error("Failed to load tenant", "tenant", req.TenantID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process message"})
		return
	}
	if _, err := h.deps.Billing.CheckExpiry(c.Request.Context(), tenant); err != nil {
		h.logger.Error("Failed to evaluate subscription expiry", "tenant", req.TenantID, "error", err)
	}

	result, err := h.deps.Pipeline.ProcessUserMessage(
		c.Request.Context(), req.TenantID, req.SessionID, req.Message, models.ChannelWeb, "")
	if err != nil {
		h.logger.Error("Pipeline failed", "tenant", req.TenantID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process message"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data": gin.H{
			"message": result.AIMessage,
		},
	})
}

// SendLeadMessage records a message from an identified lead without running
// the responder. Kept for the customer portal flow.
func (h *Handler) SendLeadMessage(c *gin.Context) {
	tenantID := c.Query("tenantId")
	if tenantID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenantId is required"})
		return
	}

	var req LeadMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.deps.Pipeline.RecordLeadMessage(c.Request.Context(), tenantID, req.LeadID, req.Message)
	if err != nil {
		h.logger.Error("Failed to record lead message", "tenant", tenantID, "lead_id", req.LeadID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record message"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"message": msg}})
}

// EmbedConfig returns what the widget loader needs to render for a tenant
func (h *Handler) EmbedConfig(c *gin.Context) {
	tenantID := c.Param("tenantId")

	tenant, err := h.deps.Store.GetTenant(c.Request.Context(), tenantID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown tenant"})
			return
		}
		h.logger.Error("Failed to load tenant", "tenant", tenantID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load widget config"})
		return
	}

	persona := ""
	if cfg, err := h.deps.Store.GetAIConfig(c.Request.Context(), tenantID); err == nil {
		persona = cfg.PersonaName
	}

	c.JSON(http.StatusOK, gin.H{
		"tenantId":    tenantID,
		"companyName": tenant.CompanyName,
		"personaName": persona,
	})
}

// RegisterRoutes registers widget routes behind the per-IP chat limiter
func RegisterRoutes(r *gin.Engine, deps *sections.Dependencies, limiterMW gin.HandlerFunc) {
	handler := NewHandler(deps)

	api := r.Group("/api")
	{
		api.POST("/chat/send", limiterMW, handler.Send)
		api.POST("/chat/lead-message", limiterMW, handler.SendLeadMessage)
		api.GET("/embed/:tenantId", handler.EmbedConfig)
	}
}
