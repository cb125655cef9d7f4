package middlewares

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const serviceKeyHeader = "X-Service-Key"

// ServiceKeyAuth guards internal endpoints with a shared key. An empty
// configured key disables the check, which is the local development mode.
func ServiceKeyAuth(serviceKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if serviceKey == "" {
			c.Next()
			return
		}

		provided := c.GetHeader(serviceKeyHeader)
		if provided == "" {
			authHeader := c.GetHeader("Authorization")
			provided = strings.TrimPrefix(authHeader, "Bearer ")
		}

		if subtle.ConstantTimeCompare([]byte(provided), []byte(serviceKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid or missing service key",
			})
			return
		}
		c.Next()
	}
}
