package products

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

// Handler handles product catalog requests
type Handler struct {
	logger *slog.Logger
	deps   *sections.Dependencies
}

// NewHandler creates a new products handler
func NewHandler(deps *sections.Dependencies) *Handler {
	return &Handler{
		logger: slog.With("handler", "ProductsHandler"),
		deps:   deps,
	}
}

// ProductRequest represents a product create/update request
type ProductRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	PriceIDR    int64  `json:"priceIdr"`
	Stock       int    `json:"stock"`
	Active      *bool  `json:"active"`
}

// ListProducts returns the tenant's catalog
func (h *Handler) ListProducts(c *gin.Context) {
	tenantID, ok := auth.GetTenantIDFromContext(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant context required"})
		return
	}

	var products []models.Product
	err := h.deps.DB.WithTenant(c.Request.Context(), tenantID, func(tx *gorm.DB) error {
		return tx.Order("id ASC").Find(&products).Error
	})
	if err != nil {
		h.logger.Error("Failed to list products", "tenant", tenantID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list products"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": products})
}

// CreateProduct adds a catalog item
func (h *Handler) CreateProduct(c *gin.Context) {
	tenantID, ok := auth.GetTenantIDFromContext(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant context required"})
		return
	}

	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	product := models.Product{
		TenantSchema: tenantID,
		Name:         req.Name,
		Description:  req.Description,
		PriceIDR:     req.PriceIDR,
		Stock:        req.Stock,
		Active:       true,
	}
	if req.Active != nil {
		product.Active = *req.Active
	}

	err := h.deps.DB.WithTenant(c.Request.Context(), tenantID, func(tx *gorm.DB) error {
		return tx.Create(&product).Error
	})
	if err != nil {
		h.logger.Error("Failed to create product", "tenant", tenantID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create product"})
		return
	}

	h.logger.Info("Product created", "tenant", tenantID, "product_id", product.ID, "name", product.Name)
	c.JSON(http.StatusCreated, product)
}

// UpdateProduct updates a catalog item
func (h *Handler) UpdateProduct(c *gin.Context) {
	tenantID, ok := auth.GetTenantIDFromContext(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant context required"})
		return
	}

	productID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}

	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var product models.Product
	err = h.deps.DB.WithTenant(c.Request.Context(), tenantID, func(tx *gorm.DB) error {
		if err := tx.First(&product, productID).Error; err != nil {
			return err
		}
		product.Name = req.Name
		product.Description = req.Description
		product.PriceIDR = req.PriceIDR
		product.Stock = req.Stock
		if req.Active != nil {
			product.Active = *req.Active
		}
		return tx.Save(&product).Error
	})
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		h.logger.Error("Failed to update product", "tenant", tenantID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update product"})
		return
	}

	c.JSON(http.StatusOK, product)
}

// DeleteProduct removes a catalog item (soft delete)
func (h *Handler) DeleteProduct(c *gin.Context) {
	tenantID, ok := auth.GetTenantIDFromContext(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant context required"})
		return
	}

	productID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}

	err = h.deps.DB.WithTenant(c.Request.Context(), tenantID, func(tx *gorm.DB) error {
		res := tx.Delete(&models.Product{}, productID)
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
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		h.logger.Error("Failed to delete product", "tenant", tenantID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete product"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "product deleted"})
}

// RegisterRoutes registers product catalog routes
func RegisterRoutes(r *gin.Engine, deps *sections.Dependencies, jwtManager *auth.JWTManager) {
	handler := NewHandler(deps)

	products := r.Group("/api/v1/products")
	products.Use(auth.JWTAuthMiddleware(jwtManager), auth.RequireTenant())
	{
		products.GET("", handler.ListProducts)
		products.POST("", handler.CreateProduct)
		products.PUT("/:id", handler.UpdateProduct)
		products.DELETE("/:id", handler.DeleteProduct)
	}
}
