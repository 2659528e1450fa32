package settings

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"relate-backend/sections"
	"relate-backend/sections/common/auth"
	"relate-backend/sections/models"
)

// Handler handles tenant settings: responder persona, channel wiring and
// bank details for receiving transfers.
type Handler struct {
	logger *slog.Logger
	deps   *sections.Dependencies
}

// NewHandler creates a new settings handler
func NewHandler(deps *sections.Dependencies) *Handler {
	return &Handler{
		logger: slog.With("handler", "SettingsHandler"),
		deps:   deps,
	}
}

// AIConfigRequest updates the responder persona and onboarding answers
type AIConfigRequest struct {
	PersonaName       string `json:"personaName"`
	Tone              string `json:"tone"`
	Question1         string `json:"question1"`
	Question2         string `json:"question2"`
	Question3         string `json:"question3"`
	Question4         string `json:"question4"`
	Question5         string `json:"question5"`
	AdditionalDetails string `json:"additionalDetails"`
}

// ChannelRequest wires a messaging session to this tenant
type ChannelRequest struct {
	Type        models.ChannelSource `json:"type"`
	SessionName string               `json:"sessionName" binding:"required"`
	GatewayURL  string               `json:"gatewayUrl"`
	Active      *bool                `json:"active"`
}

// BankRequest updates the bank details shown on invoices (tier 2 only)
type BankRequest struct {
	BankName          string `json:"bankName" binding:"required"`
	BankAccountNumber string `json:"bankAccountNumber" binding:"required"`
	BankAccountHolder string `json:"bankAccountHolder" binding:"required"`
}

// GetAIConfig returns the responder configuration, empty defaults when unset
func (h *Handler) GetAIConfig(c *gin.Context) {
	tenantID, ok := auth.GetTenantIDFromContext(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant context required"})
		return
	}

	var cfg models.AIConfig
	err := h.deps.DB.WithTenant(c.Request.Context(), tenantID, func(tx *gorm.DB) error {
		return tx.First(&cfg).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusOK, models.AIConfig{TenantSchema: tenantID})
			return
		}
		h.logger.Error("Failed to get ai config", "tenant", tenantID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get ai config"})
		return
	}

	c.JSON(http.StatusOK, cfg)
}

// UpdateAIConfig creates or updates the responder configuration
func (h *Handler) UpdateAIConfig(c *gin.Context) {
	tenantID, ok := auth.GetTenantIDFromContext(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant context required"})
		return
	}

	var req AIConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var cfg models.AIConfig
	err := h.deps.DB.WithTenant(c.Request.Context(), tenantID, func(tx *gorm.DB) error {
		if err := tx.First(&cfg).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			cfg = models.AIConfig{TenantSchema: tenantID}
		}

		cfg.PersonaName = req.PersonaName
		cfg.Tone = req.Tone
		cfg.Question1 = req.Question1
		cfg.Question2 = req.Question2
		cfg.Question3 = req.Question3
		cfg.Question4 = req.Question4
		cfg.Question5 = req.Question5
		cfg.AdditionalDetails = req.AdditionalDetails
		return tx.Save(&cfg).Error
	})
	if err != nil {
		h.logger.Error("Failed to update ai config", "tenant", tenantID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update ai config"})
		return
	}

	h.logger.Info("AI config updated", "tenant", tenantID, "persona", cfg.PersonaName)
	c.JSON(http.StatusOK, cfg)
}

// GetChannel returns the tenant's WhatsApp channel wiring, if any
func (h *Handler) GetChannel(c *gin.Context) {
	tenantID, ok := auth.GetTenantIDFromContext(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant context required"})
		return
	}

	var channel models.Channel
	err := h.deps.DB.Shared().WithContext(c.Request.Context()).
		Where("tenant_schema = ?", tenantID).
		Order("id ASC").
		First(&channel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusOK, gin.H{"channel": nil})
			return
		}
		h.logger.Error("Failed to get channel", "tenant", tenantID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get channel"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"channel": channel})
}

// UpdateChannel creates or replaces the tenant's channel wiring. Session
// names are globally unique because inbound webhooks route by session alone.
func (h *Handler) UpdateChannel(c *gin.Context) {
	tenantID, ok := auth.GetTenantIDFromContext(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant context required"})
		return
	}

	var req ChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Type == "" {
		req.Type = models.ChannelWAHA
	}

	g := h.deps.DB.Shared().WithContext(c.Request.Context())

	// Refuse to take over a session owned by another tenant.
	var existing models.Channel
	if err := g.Where("session_name = ?", req.SessionName).First(&existing).Error; err == nil {
		if existing.TenantSchema != tenantID {
			c.JSON(http.StatusConflict, gin.H{"error": "session name is already in use"})
			return
		}
	}

	var channel models.Channel
	err := g.Where("tenant_schema = ? AND type = ?", tenantID, req.Type).First(&channel).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			h.logger.Error("Failed to look up channel", "tenant", tenantID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update channel"})
			return
		}
		channel = models.Channel{TenantSchema: tenantID, Type: req.Type}
	}

	channel.SessionName = req.SessionName
	channel.GatewayURL = req.GatewayURL
	channel.Active = true
	if req.Active != nil {
		channel.Active = *req.Active
	}

	if err := g.Save(&channel).Error; err != nil {
		h.logger.Error("Failed to save channel", "tenant", tenantID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update channel"})
		return
	}

	h.logger.Info("Channel updated", "tenant", tenantID, "session", channel.SessionName, "type", channel.Type)
	c.JSON(http.StatusOK, gin.H{"channel": channel})
}

// UpdateBankDetails stores the bank account shown to buyers. Gated to the
// sales agent tier.
func (h *Handler) UpdateBankDetails(c *gin.Context) {
	tenantID, ok := auth.GetTenantIDFromContext(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant context required"})
		return
	}

	var req BankRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	g := h.deps.DB.Shared().WithContext(c.Request.Context())

	var tenant models.Tenant
	if err := g.Where("schema_name = ?", tenantID).First(&tenant).Error; err != nil {
		h.logger.Error("Failed to load tenant", "tenant", tenantID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update bank details"})
		return
	}

	if tenant.SubscriptionTier != models.TierSalesAgent {
		c.JSON(http.StatusForbidden, gin.H{"error": "bank details require the sales agent tier"})
		return
	}

	if err := g.Model(&tenant).Updates(map[string]interface{}{
		"bank_name":           req.BankName,
		"bank_account_number": req.BankAccountNumber,
		"bank_account_holder": req.BankAccountHolder,
	}).Error; err != nil {
		h.logger.Error("Failed to save bank details", "tenant", tenantID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update bank details"})
		return
	}

	h.logger.Info("Bank details updated", "tenant", tenantID)
	c.JSON(http.StatusOK, gin.H{"message": "bank details updated"})
}

// RegisterRoutes registers settings routes
func RegisterRoutes(r *gin.Engine, deps *sections.Dependencies, jwtManager *auth.JWTManager) {
	handler := NewHandler(deps)

	settings := r.Group("/api/v1/settings")
	settings.Use(auth.JWTAuthMiddleware(jwtManager), auth.RequireTenant())
	{
		settings.GET("/ai", handler.GetAIConfig)
		settings.PUT("/ai", handler.UpdateAIConfig)
		settings.GET("/channel", handler.GetChannel)
		settings.PUT("/channel", handler.UpdateChannel)
		settings.PUT("/bank", handler.UpdateBankDetails)
	}
}
