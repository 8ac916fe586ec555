package middleware

import (
	"crypto/subtle"
	"net/http"
	"time"

	"fulfillment-api/internal/config"
	"fulfillment-api/internal/response"

	"github.com/gin-gonic/gin"
)

// AdminAuthMiddleware guards the operator console routes with the
// configured API key.
func AdminAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader("X-API-Key")

		// If not passed via header, try to get from query parameters
		if apiKey == "" {
			apiKey = c.Query("api_key")
		}

		expected := config.AppConfig.AdminAPIKey
		if expected == "" {
			c.JSON(http.StatusServiceUnavailable, response.Error(http.StatusServiceUnavailable, "Operator access not configured"))
			c.Abort()
			return
		}

		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(expected)) != 1 {
			c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid api_key"))
			c.Abort()
			return
		}

		c.Set("request_time", time.Now())
		c.Next()
	}
}
