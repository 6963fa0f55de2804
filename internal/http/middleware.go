package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/quantumauth-io/quantum-go-utils/log"
)

// requestID reuses a caller supplied X-Request-ID or mints one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("http",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"took_ms", time.Since(start).Milliseconds(),
			"request_id", c.GetString(requestIDKey),
		)
	}
}

// localOnly keeps the API to loopback peers addressing the server by a local
// host name.
func localOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isLoopbackRequest(c.Request) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{JSONKeyError: HTTPErrorForbiddenText})
			return
		}
		if !isSafeLocalHost(c.Request.Host) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{JSONKeyError: HTTPErrorForbiddenHostText})
			return
		}
		c.Next()
	}
}
