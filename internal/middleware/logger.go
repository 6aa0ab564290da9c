package middleware

import (
	"time"

	"github.com/apex/log"
	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
)

// RequestLogger logs one line per request through apex/log.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.Request.URL.Path
		if c.FullPath() != "" {
			path = c.FullPath()
		}
		entry := log.WithFields(log.Fields{
			"method":   c.Request.Method,
			"path":     path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).Round(time.Microsecond).String(),
			"size":     humanize.Bytes(uint64(max(c.Writer.Size(), 0))),
			"client":   c.ClientIP(),
		})
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			entry.Error("request")
		case status >= 400:
			entry.Warn("request")
		default:
			entry.Info("request")
		}
	}
}
