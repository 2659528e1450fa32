package whatsapp

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"relate-backend/sections"
	"relate-backend/sections/models"
)

// Handler receives WAHA webhook events and feeds them into the pipeline.
// The endpoint is unauthenticated; it sits behind the shared webhook rate
// limiter and tenant resolution happens per event.
type Handler struct {
	logger *slog.Logger
	deps   *sections.Dependencies
}

// NewHandler creates a new whatsapp webhook handler
func NewHandler(deps *sections.Dependencies) *Handler {
	return &Handler{
		logger: slog.With("handler", "WhatsappHandler"),
		deps:   deps,
	}
}

// WebhookPayload is the inner message of a WAHA event. The sender's push
// name rides in the raw message data under `_data.notifyName`; a few WAHA
// builds also surface it flattened at the payload level.
type WebhookPayload struct {
	From       string `json:"from"`
	Body       string `json:"body"`
	NotifyName string `json:"notifyName"`
	FromMe     bool   `json:"fromMe"`
	Data       struct {
		NotifyName string `json:"notifyName"`
	} `json:"_data"`
}

func (p *WebhookPayload) notifyName() string {
	if p.Data.NotifyName != "" {
		return p.Data.NotifyName
	}
	return p.NotifyName
}

// WebhookEvent is a WAHA event envelope. Some WAHA builds post the payload
// fields at the top level instead, so both shapes are accepted.
type WebhookEvent struct {
	Event   string          `json:"event"`
	Session string          `json:"session"`
	Payload *WebhookPayload `json:"payload"`
	WebhookPayload
}

// Receive handles one inbound WAHA event. Events without a sender or a text
// body (status updates, media-only, own outbound echoes) are acknowledged
// and skipped; failing them would only make the gateway retry.
func (h *Handler) Receive(c *gin.Context) {
	var event WebhookEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		h.logger.Warn("Unparseable webhook body", "error", err)
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	payload := event.Payload
	if payload == nil {
		payload = &event.WebhookPayload
	}

	if payload.From == "" || payload.Body == "" || payload.FromMe {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	tenantID := c.Query("tenantId")
	if tenantID == "" && event.Session != "" {
		channel, err := h.deps.Store.FindChannelBySession(c.Request.Context(), event.Session)
		if err == nil {
			tenantID = channel.TenantSchema
		}
	}
	if tenantID == "" {
		h.logger.Warn("Webhook event with no resolvable tenant", "session", event.Session)
		c.JSON(http.StatusBadRequest, gin.H{"error": "unable to resolve tenant"})
		return
	}

	// WAHA addresses look like "6281234567890@c.us"; the bare number is the
	// lead identity.
	phone := strings.TrimSuffix(payload.From, "@c.us")

	result, err := h.deps.Pipeline.ProcessUserMessage(
		c.Request.Context(), tenantID, phone, payload.Body, models.ChannelWAHA, payload.notifyName())
	if err != nil {
		h.logger.Error("Pipeline failed", "tenant", tenantID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process message"})
		return
	}

	// Delivery is best-effort: the exchange is already persisted, a gateway
	// failure must not fail the webhook.
	delivered := h.deps.Whatsapp.SendMessage(c.Request.Context(), tenantID, phone, result.AIMessage.Content)
	h.deps.Pipeline.MarkDelivery(c.Request.Context(), tenantID, result.AIMessage.ID, delivered)

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// Health lets the gateway verify the webhook URL
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// RegisterRoutes registers WAHA webhook routes behind the webhook limiter
func RegisterRoutes(r *gin.Engine, deps *sections.Dependencies, limiterMW gin.HandlerFunc) {
	handler := NewHandler(deps)

	webhook := r.Group("/api/integrations/whatsapp")
	{
		webhook.GET("", handler.Health)
		webhook.POST("", limiterMW, handler.Receive)
	}
}
