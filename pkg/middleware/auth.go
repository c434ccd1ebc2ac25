package middleware

import (
	"net/http"

	"transcribeapi/internal/repository"

	"github.com/gin-gonic/gin"
)

const (
	ctxAPIKeyID = "api_key_id"
	ctxIsAdmin  = "is_admin"
)

// AuthMiddleware verifies the X-API-Key header against the API key
// repository and stores the resolved key id (and its admin flag) on the
// gin context for downstream handlers. Every caller authenticates with a
// provisioned key; there is no user session concept.
func AuthMiddleware(keys repository.APIKeyRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		plaintext := c.GetHeader("X-API-Key")
		if plaintext == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": gin.H{"kind": "client", "message": "X-API-Key header required"}})
			c.Abort()
			return
		}

		key, err := keys.VerifyKey(c.Request.Context(), plaintext)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": gin.H{"kind": "client", "message": "invalid API key"}})
			c.Abort()
			return
		}

		_ = keys.TouchLastUsed(c.Request.Context(), key.ID)

		c.Set(ctxAPIKeyID, key.ID)
		c.Set(ctxIsAdmin, key.IsAdmin)
		c.Next()
	}
}

// RequireAdmin rejects non-admin keys. Must run after AuthMiddleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		isAdmin, _ := c.Get(ctxIsAdmin)
		if admin, ok := isAdmin.(bool); !ok || !admin {
			c.JSON(http.StatusForbidden, gin.H{"error": gin.H{"kind": "client", "message": "admin API key required"}})
			c.Abort()
			return
		}
		c.Next()
	}
}

// APIKeyID reads the authenticated caller's key id set by AuthMiddleware.
func APIKeyID(c *gin.Context) uint {
	v, _ := c.Get(ctxAPIKeyID)
	id, _ := v.(uint)
	return id
}
