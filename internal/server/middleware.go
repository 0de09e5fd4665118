package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"art-marketplace/services/bidding/helpers"
	"art-marketplace/utils"

	"github.com/gin-gonic/gin"
)

var errMissingIdentity = errors.New("missing caller identity")

// RequestLoggerMiddleware logs incoming requests with timing
func RequestLoggerMiddleware(c *gin.Context) {
	start := time.Now()

	c.Next() // process request

	utils.Info("HTTP Request", map[string]any{
		"method":  c.Request.Method,
		"path":    c.Request.URL.Path,
		"status":  c.Writer.Status(),
		"latency": time.Since(start).String(),
	})
}

// RequireIdentity reads the caller's user id from header, as set by the auth
// gateway in front of this service, and rejects requests that carry none
func RequireIdentity(header string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(header))
		if id == "" {
			utils.JSONError(c, http.StatusUnauthorized, errMissingIdentity, "authentication required")
			c.Abort()
			return
		}
		c.Set(helpers.CallerIDKey, id)
		c.Next()
	}
}
