package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"flight-mail-review-go/internal/handler"
)

// SetupRouter configures the Gin router with routes and middleware. Gin runs
// in debug mode only when logrus is at debug level.
func SetupRouter(h *handler.Handlers) *gin.Engine {
	if logrus.IsLevelEnabled(logrus.DebugLevel) {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(logrus.StandardLogger()))
	h.SetupRoutes(r)
	return r
}

// RequestLogger logs one entry per request. Server errors log at error
// level, client errors at warn, and the health and metrics probes at debug.
func RequestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		entry := log.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       path,
			"status":     c.Writer.Status(),
			"latency":    time.Since(start).String(),
			"client_ip":  c.ClientIP(),
			"user_agent": c.Request.UserAgent(),
		})
		if msg := c.Errors.ByType(gin.ErrorTypePrivate).String(); msg != "" {
			entry = entry.WithField("error", msg)
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			entry.Error("request failed")
		case status >= 400:
			entry.Warn("request rejected")
		case path == "/healthz" || path == "/metrics":
			entry.Debug("request")
		default:
			entry.Info("request")
		}
	}
}
