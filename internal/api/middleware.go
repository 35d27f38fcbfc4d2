package api

import (
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/gin-gonic/gin"
)

var mwLogger = log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})

// Logger logs every request with its method, path, status, and latency.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		mwLogger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"client_ip", c.ClientIP(),
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}

// Recovery turns a panic in a downstream handler into a 500 instead of
// killing the process.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				mwLogger.Error("panic recovered", "err", err, "path", c.Request.URL.Path)
				c.AbortWithStatusJSON(500, gin.H{"error": "internal server error"})
			}
		}()
		c.Next()
	}
}
