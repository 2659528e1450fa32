package leads

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"relate-backend/sections"
	"relate-backend/sections/common/auth"
	"relate-backend/sections/models"
)

// Handler handles the dashboard inbox: leads and their conversations
type Handler struct {
	logger *slog.Logger
	deps   *sections.Dependencies
}

// NewHandler creates a new leads handler
func NewHandler(deps *sections.Dependencies) *Handler {
	return &Handler{
		logger: slog.With("handler", "LeadsHandler"),
		deps:   deps,
	}
}

// AgentMessageRequest is a manual reply typed by a human agent
type AgentMessageRequest struct {
	Message string `json:"message" binding:"required"`
}

// StatusRequest updates a lead's funnel status
type StatusRequest struct {
	Status models.LeadStatus `json:"status" binding:"required"`
}

// ListLeads returns all leads, most recently updated first
func (h *Handler) ListLeads(c *gin.Context) {
	tenantID, ok := auth.GetTenantIDFromContext(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant context required"})
		return
	}

	var leads []models.Lead
	err := h.deps.DB.WithTenant(c.Request.Context(), tenantID, func(tx *gorm.DB) error {
		return tx.Order("updated_at DESC").Find(&leads).Error
	})
	if err != nil {
		h.logger.Error("Failed to list leads", "tenant", tenantID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list leads"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"leads": leads})
}

// GetLeadMessages returns the full message history for a lead, oldest first.
// Messages from every conversation of the lead are interleaved by time, plus
// any portal messages attached to the lead directly.
func (h *Handler) GetLeadMessages(c *gin.Context) {
	tenantID, ok := auth.GetTenantIDFromContext(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant context required"})
		return
	}

	leadID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lead id"})
		return
	}

	var messages []models.Message
	err = h.deps.DB.WithTenant(c.Request.Context(), tenantID, func(tx *gorm.DB) error {
		var lead models.Lead
		if err := tx.First(&lead, leadID).Error; err != nil {
			return err
		}

		var convIDs []uint
		if err := tx.Model(&models.Conversation{}).
			Where("lead_id = ?", leadID).
			Pluck("id", &convIDs).Error; err != nil {
			return err
		}

		q := tx.Where("lead_id = ?", leadID)
		if len(convIDs) > 0 {
			q = tx.Where("lead_id = ? OR conversation_id IN ?", leadID, convIDs)
		}
		return q.Order("created_at ASC").Find(&messages).Error
	})
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "lead not found"})
			return
		}
		h.logger.Error("Failed to get lead messages", "tenant", tenantID, "lead_id", leadID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// SendAgentMessage persists a manual reply and pushes it out over the lead's
// channel. Delivery is best-effort; the message is stored either way.
func (h *Handler) SendAgentMessage(c *gin.Context) {
	tenantID, ok := auth.GetTenantIDFromContext(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant context required"})
		return
	}

	leadID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lead id"})
		return
	}

	var req AgentMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var lead models.Lead
	var msg models.Message
	err = h.deps.DB.WithTenant(c.Request.Context(), tenantID, func(tx *gorm.DB) error {
		if err := tx.First(&lead, leadID).Error; err != nil {
			return err
		}

		var conv models.Conversation
		convErr := tx.Where("lead_id = ? AND status = ?", leadID, models.ConversationOpen).
			Order("updated_at DESC").First(&conv).Error

		msg = models.Message{
			TenantSchema: tenantID,
			Content:      req.Message,
			SenderType:   models.SenderAI,
		}
		if convErr == nil {
			convID := conv.ID
			msg.ConversationID = &convID
		} else {
			lid := uint(leadID)
			msg.LeadID = &lid
		}
		return tx.Create(&msg).Error
	})
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "lead not found"})
			return
		}
		h.logger.Error("Failed to store agent message", "tenant", tenantID, "lead_id", leadID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send message"})
		return
	}

	if lead.ChannelSource == models.ChannelWAHA {
		delivered := h.deps.Whatsapp.SendMessage(c.Request.Context(), tenantID, lead.SocialID, req.Message)
		h.deps.Pipeline.MarkDelivery(c.Request.Context(), tenantID, msg.ID, delivered)
	}

	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// UpdateLeadStatus moves a lead through the funnel
func (h *Handler) UpdateLeadStatus(c *gin.Context) {
	tenantID, ok := auth.GetTenantIDFromContext(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant context required"})
		return
	}

	leadID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lead id"})
		return
	}

	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	switch req.Status {
	case models.LeadNew, models.LeadContacted, models.LeadQualified, models.LeadConverted, models.LeadLost:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lead status"})
		return
	}

	err = h.deps.DB.WithTenant(c.Request.Context(), tenantID, func(tx *gorm.DB) error {
		res := tx.Model(&models.Lead{}).Where("id = ?", leadID).Update("status", req.Status)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "lead not found"})
			return
		}
		h.logger.Error("Failed to update lead status", "tenant", tenantID, "lead_id", leadID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update lead"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "lead updated"})
}

// RegisterRoutes registers inbox routes
func RegisterRoutes(r *gin.Engine, deps *sections.Dependencies, jwtManager *auth.JWTManager) {
	handler := NewHandler(deps)

	leads := r.Group("/api/v1/leads")
	leads.Use(auth.JWTAuthMiddleware(jwtManager), auth.RequireTenant())
	{
		leads.GET("", handler.ListLeads)
		leads.GET("/:id/messages", handler.GetLeadMessages)
		leads.POST("/:id/messages", handler.SendAgentMessage)
		leads.PUT("/:id/status", handler.UpdateLeadStatus)
	}
}
