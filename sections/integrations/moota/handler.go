package moota

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"relate-backend/sections"
)

// Handler receives bank mutation notifications from Moota and reconciles
// credits against pending invoices by exact amount. The endpoint always
// acknowledges: mutations that match nothing are legitimately unrelated
// account activity, and a non-200 would only trigger redelivery of a
// notification that already settled.
type Handler struct {
	logger *slog.Logger
	deps   *sections.Dependencies
}

// NewHandler creates a new moota webhook handler
func NewHandler(deps *sections.Dependencies) *Handler {
	return &Handler{
		logger: slog.With("handler", "MootaHandler"),
		deps:   deps,
	}
}

// Mutation is one bank statement line
type Mutation struct {
	Type        string      `json:"type"`
	Amount      json.Number `json:"amount"`
	Description string      `json:"description"`
	Date        string      `json:"date"`
	BankID      string      `json:"bank_id"`
}

// Receive handles a Moota notification, which may be a single mutation or an
// array of them. Only credits are considered.
func (h *Handler) Receive(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		h.logger.Warn("Failed to read webhook body", "error", err)
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	var mutations []Mutation
	if err := json.Unmarshal(body, &mutations); err != nil {
		var single Mutation
		if err := json.Unmarshal(body, &single); err != nil {
			h.logger.Warn("Unparseable webhook body", "error", err)
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}
		mutations = []Mutation{single}
	}

	for _, m := range mutations {
		amount, err := m.Amount.Int64()
		if err != nil {
			// Some banks report amounts with a decimal part.
			if f, ferr := m.Amount.Float64(); ferr == nil {
				amount = int64(f)
			}
		}

		// A mutation is a candidate when it is flagged as a credit or
		// carries a positive amount; everything else is a debit notice.
		if m.Type != "CR" && amount <= 0 {
			continue
		}

		inv, err := h.deps.Billing.VerifyPayment(c.Request.Context(), amount)
		if err != nil {
			h.logger.Error("Failed to verify payment", "amount", amount, "error", err)
			continue
		}
		if inv != nil {
			h.logger.Info("Mutation reconciled", "amount", amount, "tenant", inv.TenantSchema, "reference", inv.Reference)
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// RegisterRoutes registers moota webhook routes behind the webhook limiter
func RegisterRoutes(r *gin.Engine, deps *sections.Dependencies, limiterMW gin.HandlerFunc) {
	handler := NewHandler(deps)

	r.POST("/api/integrations/moota/notify", limiterMW, handler.Receive)
}
