package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/school-system/results/internal/services"
)

// TenantMiddleware scopes a request to the caller's institution. Admins
// without an institution may name one with the X-Institution-ID header.
func TenantMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		institutionID := c.GetString("institution_id")
		if institutionID == "" && c.GetString("role") == services.RoleAdmin {
			institutionID = c.GetHeader("X-Institution-ID")
			if institutionID == "" {
				c.Next()
				return
			}
		}

		if institutionID == "" {
			c.JSON(http.StatusForbidden, gin.H{"error": "Access denied: No institution assigned"})
			c.Abort()
			return
		}

		if _, err := uuid.Parse(institutionID); err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "Invalid institution ID"})
			c.Abort()
			return
		}

		c.Set("tenant_institution_id", institutionID)
		c.Next()
	}
}
