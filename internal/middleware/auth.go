package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/school-system/results/internal/services"
)

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
}

// AuthMiddleware verifies the bearer access token and exposes its claims as
// user_id, institution_id, role and email.
func AuthMiddleware(authService *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			unauthorized(c, "Authorization header required")
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			unauthorized(c, "Invalid authorization header format")
			return
		}

		claims, err := authService.VerifyToken(token)
		if err != nil {
			unauthorized(c, "Invalid or expired token")
			return
		}

		c.Set("user_id", claims.UserID)
		if claims.InstitutionID != nil {
			c.Set("institution_id", claims.InstitutionID.String())
		}
		c.Set("role", claims.Role)
		c.Set("email", claims.Email)
		c.Next()
	}
}

// RequireRole admits callers whose role is one of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(c *gin.Context) {
		role := c.GetString("role")
		if role == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Role not found in context"})
			return
		}
		if !allowed[role] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
			return
		}
		c.Next()
	}
}

func RequireAdmin() gin.HandlerFunc {
	return RequireRole(services.RoleAdmin)
}

// RequireRegistrar admits staff who may delete results, run term syncs and
// edit grading rules.
func RequireRegistrar() gin.HandlerFunc {
	return RequireRole(services.RoleAdmin, services.RoleRegistrar)
}

func RequireStaff() gin.HandlerFunc {
	return RequireRole(services.RoleAdmin, services.RoleRegistrar, services.RoleLecturer)
}
