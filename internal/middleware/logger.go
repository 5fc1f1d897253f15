package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ContextLogger is the gin context key for the request-scoped logger.
const ContextLogger = "logger"

// Logger returns a zap-based request logging middleware. A child logger
// carrying the request id is stored in the context so handlers log with
// explicit per-request fields instead of mutating a shared default.
func Logger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method
		requestID := uuid.New().String()

		c.Set(ContextLogger, logger.With(zap.String("request_id", requestID)))
		c.Next()

		logger.Info("request",
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("method", method),
			zap.String("path", path),
			zap.String("request_id", requestID),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// RequestLogger returns the request-scoped logger set by Logger, or a nop
// logger when the middleware is not installed (tests).
func RequestLogger(c *gin.Context) *zap.Logger {
	if v, ok := c.Get(ContextLogger); ok {
		if l, ok := v.(*zap.Logger); ok {
			return l
		}
	}
	return zap.NewNop()
}
