package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/boakyeni/nanas-wedding-backend/internal/platform/logger"
)

type AdminKeyMiddleware struct {
	log    *logger.Logger
	apiKey string
}

func NewAdminKeyMiddleware(log *logger.Logger, apiKey string) *AdminKeyMiddleware {
	return &AdminKeyMiddleware{
		log:    log.With("middleware", "AdminKeyMiddleware"),
		apiKey: strings.TrimSpace(apiKey),
	}
}

// RequireKey guards the admin surface with the shared X-API-Key header.
// An empty configured key disables the admin routes entirely.
func (am *AdminKeyMiddleware) RequireKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		if am.apiKey == "" {
			am.log.Warn("Admin API key not configured; rejecting admin request")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		provided := strings.TrimSpace(c.GetHeader("X-API-Key"))
		if subtle.ConstantTimeCompare([]byte(provided), []byte(am.apiKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
