// internal/interfaces/http/middleware/auth.go
package middleware

import (
	"errors"
	"net/http"

	"github.com/fankick/storefront/internal/pkg/auth"
	"github.com/gin-gonic/gin"
)

const (
	userIDKey  = "user_id"
	emailKey   = "user_email"
	isAdminKey = "is_admin"
	claimsKey  = "token_claims"
)

// AuthMiddleware creates JWT authentication middleware. Revoked tokens are rejected.
func AuthMiddleware(jwtManager *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get Authorization header
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, http.StatusUnauthorized, "Authorization header required")
			return
		}

		// Extract token from header
		tokenString := auth.ExtractTokenFromHeader(authHeader)
		if tokenString == "" {
			abortWithError(c, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		claims, err := jwtManager.ValidateAccessToken(c.Request.Context(), tokenString)
		if err != nil {
			if errors.Is(err, auth.ErrTokenRevoked) {
				abortWithError(c, http.StatusUnauthorized, "Token has been revoked")
				return
			}
			abortWithError(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// AdminMiddleware ensures the user is an admin
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		isAdmin, exists := c.Get(isAdminKey)
		if !exists {
			abortWithError(c, http.StatusUnauthorized, "Authentication required")
			return
		}

		if admin, _ := isAdmin.(bool); !admin {
			abortWithError(c, http.StatusForbidden, "Admin access required")
			return
		}

		c.Next()
	}
}

// OptionalAuthMiddleware attaches the user when a valid token is present and never rejects
func OptionalAuthMiddleware(jwtManager *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := auth.ExtractTokenFromHeader(c.GetHeader("Authorization"))
		if tokenString == "" {
			c.Next()
			return
		}

		if claims, err := jwtManager.ValidateAccessToken(c.Request.Context(), tokenString); err == nil {
			setClaims(c, claims)
		}

		c.Next()
	}
}

func setClaims(c *gin.Context, claims *auth.Claims) {
	c.Set(userIDKey, claims.UserID)
	c.Set(emailKey, claims.Email)
	c.Set(isAdminKey, claims.IsAdmin)
	c.Set(claimsKey, claims)
}

// GetUserIDFromContext extracts user ID from gin context
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	userID, exists := c.Get(userIDKey)
	if !exists {
		return "", false
	}
	id, ok := userID.(string)
	return id, ok && id != ""
}

// GetClaimsFromContext returns the validated token claims
func GetClaimsFromContext(c *gin.Context) (*auth.Claims, bool) {
	value, exists := c.Get(claimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*auth.Claims)
	return claims, ok
}

// IsAdminFromContext checks if user is admin from gin context
func IsAdminFromContext(c *gin.Context) bool {
	isAdmin, _ := c.Get(isAdminKey)
	admin, _ := isAdmin.(bool)
	return admin
}

// abortWithError writes the failure envelope and stops the chain
func abortWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   message,
	})
}
