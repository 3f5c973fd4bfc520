package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ssnlakshya/mela/internal/auth"
	"github.com/ssnlakshya/mela/internal/services"
)

// ContextKeyOwnerEmail holds the key for the authenticated owner email in
// Gin context.
const ContextKeyOwnerEmail = "ownerEmail"

// AuthMiddleware creates a Gin middleware for JWT authentication. On success
// the verified owner email is placed in the request context.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}"})
			return
		}

		tokenString := parts[1]
		claims, err := auth.ValidateJWT(tokenString, jwtSecret)
		if err != nil {
			errMsg := fmt.Sprintf("Invalid or expired token: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errMsg})
			return
		}

		c.Set(ContextKeyOwnerEmail, claims.Email)

		c.Next()
	}
}

// AllowlistMiddleware gates write access on allow-list membership. Assumes
// AuthMiddleware runs first. Membership is checked per request so a removal
// takes effect immediately, not at token expiry.
func AllowlistMiddleware(allowlist services.IAllowlistService) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := c.GetString(ContextKeyOwnerEmail)
		if email == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		allowed, err := allowlist.IsAllowed(c.Request.Context(), email)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify access"})
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Email not allowed"})
			return
		}

		c.Next()
	}
}
