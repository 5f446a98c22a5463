package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"social-publisher/infrastructure/logger"
)

// RequestLogger writes one logrus entry per request.
func RequestLogger() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		path := ctx.Request.URL.Path

		ctx.Next()

		status := ctx.Writer.Status()
		entry := logger.GetLogger().WithFields(logrus.Fields{
			"method":     ctx.Request.Method,
			"path":       path,
			"status":     status,
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  ctx.ClientIP(),
		})
		if userID := ctx.GetString("user_id"); userID != "" {
			entry = entry.WithField("user_id", userID)
		}
		switch {
		case status >= 500:
			entry.Error("Request completed")
		case status >= 400:
			entry.Warn("Request completed")
		default:
			entry.Info("Request completed")
		}
	}
}
