package billing

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v84"

	"relate-backend/sections"
	"relate-backend/sections/common/auth"
	"relate-backend/sections/models"
)

// Handler handles subscription billing: invoice creation for the dashboard
// and the Stripe webhook for the card path. Bank transfer settlement comes in
// through the moota integration instead.
type Handler struct {
	logger *slog.Logger
	deps   *sections.Dependencies
}

// NewHandler creates a new billing handler
func NewHandler(deps *sections.Dependencies) *Handler {
	return &Handler{
		logger: slog.With("handler", "BillingHandler"),
		deps:   deps,
	}
}

// InvoiceRequest asks for an upgrade invoice
type InvoiceRequest struct {
	Tier   int                  `json:"tier" binding:"required"`
	Method models.PaymentMethod `json:"method"`
}

// ListTiers returns the available subscription tiers
func (h *Handler) ListTiers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tiers": h.deps.Tiers})
}

// CreateInvoice creates (or returns the existing) pending invoice for the
// requested tier. The response carries the exact transfer amount including
// the surcharge code.
func (h *Handler) CreateInvoice(c *gin.Context) {
	tenantID, ok := auth.GetTenantIDFromContext(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant context required"})
		return
	}

	var req InvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	inv, err := h.deps.Billing.CreateInvoice(c.Request.Context(), tenantID, req.Tier, req.Method)
	if err != nil {
		h.logger.Error("Failed to create invoice", "tenant", tenantID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create invoice"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"invoice": inv})
}

// GetPendingInvoice returns the tenant's open invoice, null when none
func (h *Handler) GetPendingInvoice(c *gin.Context) {
	tenantID, ok := auth.GetTenantIDFromContext(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant context required"})
		return
	}

	inv, err := h.deps.Billing.PendingInvoice(c.Request.Context(), tenantID)
	if err != nil {
		h.logger.Error("Failed to get pending invoice", "tenant", tenantID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get invoice"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"invoice": inv})
}

// HandleStripeWebhook processes Stripe webhook events for the card path
func (h *Handler) HandleStripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.logger.Error("Failed to read webhook body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	signature := c.GetHeader("Stripe-Signature")
	event, err := h.deps.Stripe.ConstructWebhookEvent(payload, signature)
	if err != nil {
		h.logger.Error("Failed to verify webhook", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}

	switch event.Type {
	case "payment_intent.succeeded":
		h.handlePaymentIntentSucceeded(c, event)
	case "payment_intent.payment_failed":
		h.handlePaymentIntentFailed(event)
	default:
		h.logger.Info("Unhandled webhook event type", "type", event.Type)
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *Handler) handlePaymentIntentSucceeded(c *gin.Context, event stripe.Event) {
	var intent stripe.PaymentIntent
	if err := h.deps.Stripe.ParseWebhookData(event.Data, &intent); err != nil {
		h.logger.Error("Failed to parse payment intent", "error", err)
		return
	}

	inv, err := h.deps.Billing.ConfirmCardPayment(c.Request.Context(), intent.ID)
	if err != nil {
		h.logger.Error("Failed to confirm card payment", "payment_intent_id", intent.ID, "error", err)
		return
	}
	if inv == nil {
		h.logger.Info("Payment intent has no pending invoice", "payment_intent_id", intent.ID)
		return
	}

	h.logger.Info("Card payment settled", "tenant", inv.TenantSchema, "reference", inv.Reference)
}

func (h *Handler) handlePaymentIntentFailed(event stripe.Event) {
	var intent stripe.PaymentIntent
	if err := h.deps.Stripe.ParseWebhookData(event.Data, &intent); err != nil {
		h.logger.Error("Failed to parse payment intent", "error", err)
		return
	}
	h.logger.Warn("Card payment failed", "payment_intent_id", intent.ID)
}
