package orders

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

// Handler handles simulated sales orders. No payment provider is attached;
// status transitions are driven manually from the dashboard.
type Handler struct {
	logger *slog.Logger
	deps   *sections.Dependencies
}

// NewHandler creates a new orders handler
func NewHandler(deps *sections.Dependencies) *Handler {
	return &Handler{
		logger: slog.With("handler", "OrdersHandler"),
		deps:   deps,
	}
}

// OrderRequest creates a simulated order
type OrderRequest struct {
	LeadID      *uint `json:"leadId"`
	TotalAmount int64 `json:"totalAmount" binding:"required"`
}

// StatusRequest updates an order status
type StatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
}

// ListOrders returns all orders, newest first
func (h *Handler) ListOrders(c *gin.Context) {
	tenantID, ok := auth.GetTenantIDFromContext(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant context required"})
		return
	}

	var orders []models.Order
	err := h.deps.DB.WithTenant(c.Request.Context(), tenantID, func(tx *gorm.DB) error {
		return tx.Order("id DESC").Find(&orders).Error
	})
	if err != nil {
		h.logger.Error("Failed to list orders", "tenant", tenantID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list orders"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// CreateOrder records a simulated order, optionally attached to a lead
func (h *Handler) CreateOrder(c *gin.Context) {
	tenantID, ok := auth.GetTenantIDFromContext(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant context required"})
		return
	}

	var req OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order := models.Order{
		TenantSchema: tenantID,
		LeadID:       req.LeadID,
		TotalAmount:  req.TotalAmount,
		Status:       models.OrderPending,
	}

	err := h.deps.DB.WithTenant(c.Request.Context(), tenantID, func(tx *gorm.DB) error {
		if req.LeadID != nil {
			var lead models.Lead
			if err := tx.First(&lead, *req.LeadID).Error; err != nil {
				return err
			}
		}
		return tx.Create(&order).Error
	})
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusBadRequest, gin.H{"error": "lead not found"})
			return
		}
		h.logger.Error("Failed to create order", "tenant", tenantID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create order"})
		return
	}

	h.logger.Info("Order created", "tenant", tenantID, "order_id", order.ID, "amount", order.TotalAmount)
	c.JSON(http.StatusCreated, order)
}

// UpdateOrderStatus moves an order through its lifecycle
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	tenantID, ok := auth.GetTenantIDFromContext(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant context required"})
		return
	}

	orderID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	switch req.Status {
	case models.OrderPending, models.OrderPaid, models.OrderProcessing, models.OrderCompleted, models.OrderCancelled:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order status"})
		return
	}

	err = h.deps.DB.WithTenant(c.Request.Context(), tenantID, func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).Where("id = ?", orderID).Update("status", req.Status)
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
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		h.logger.Error("Failed to update order", "tenant", tenantID, "order_id", orderID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update order"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "order updated"})
}

// RegisterRoutes registers order routes
func RegisterRoutes(r *gin.Engine, deps *sections.Dependencies, jwtManager *auth.JWTManager) {
	handler := NewHandler(deps)

	orders := r.Group("/api/v1/orders")
	orders.Use(auth.JWTAuthMiddleware(jwtManager), auth.RequireTenant())
	{
		orders.GET("", handler.ListOrders)
		orders.POST("", handler.CreateOrder)
		orders.PUT("/:id/status", handler.UpdateOrderStatus)
	}
}
