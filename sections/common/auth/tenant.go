package auth

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireTenant resolves the tenant schema for dashboard requests. The only
// trusted source is the JWT claim; headers or query parameters would let one
// tenant read another's data.
func RequireTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID, ok := GetTenantSchemaFromContext(c)
		if !ok || tenantID == "" {
			c.JSON(http.StatusForbidden, gin.H{"error": "no tenant associated with this account"})
			c.Abort()
			return
		}

		if err := validateTenantID(tenantID); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			c.Abort()
			return
		}

		slog.Debug("Tenant context set", "tenant", tenantID)
		c.Set("tenantID", tenantID)
		c.Next()
	}
}

// GetTenantIDFromContext retrieves the tenant ID from the Gin context
func GetTenantIDFromContext(c *gin.Context) (string, bool) {
	tenantID, exists := c.Get("tenantID")
	if !exists {
		return "", false
	}
	return tenantID.(string), true
}

// validateTenantID validates the tenant ID format
func validateTenantID(tenantID string) error {
	if len(tenantID) < 3 {
		return ErrInvalidTenantID
	}
	if len(tenantID) > 63 {
		return ErrInvalidTenantID
	}
	// Basic alphanumeric + underscore check
	for _, r := range tenantID {
		if !isValidTenantChar(r) {
			return ErrInvalidTenantID
		}
	}
	return nil
}

func isValidTenantChar(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_'
}

var ErrInvalidTenantID = &TenantError{Message: "invalid tenant ID format"}

type TenantError struct {
	Message string
}

func (e *TenantError) Error() string {
	return e.Message
}
