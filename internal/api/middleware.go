package api

import (
	"crypto/subtle"
	"strconv"
	"time"

	"ecommerce-service/internal/apperr"
	"ecommerce-service/internal/util"

	"github.com/gin-gonic/gin"
)

// Headers set by the authenticating gateway in front of this service
const (
	HeaderUserID         = "X-User-ID"
	HeaderAdminToken     = "X-Admin-Token"
	HeaderIdempotencyKey = "Idempotency-Key"
)

const userIDKey = "user_id"

// requireUser rejects requests without a valid authenticated user id.
func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := strconv.ParseInt(c.GetHeader(HeaderUserID), 10, 64)
		if err != nil || userID <= 0 {
			respondError(c, apperr.Unauthorized("missing or invalid "+HeaderUserID+" header"))
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// requireAdmin rejects requests whose admin token does not match. An empty
// configured token disables the admin API.
func requireAdmin(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		given := c.GetHeader(HeaderAdminToken)
		if token == "" || subtle.ConstantTimeCompare([]byte(given), []byte(token)) != 1 {
			respondError(c, apperr.Unauthorized("admin credentials required"))
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) int64 {
	return c.GetInt64(userIDKey)
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
