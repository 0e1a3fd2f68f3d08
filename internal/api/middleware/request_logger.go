package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const requestIDHeader = "X-Request-Id"

// RequestLogger tags each request with an id and logs one line when it
// finishes. Health probes are not logged. Session tokens are bearer secrets,
// so only a short prefix reaches the logs.
func RequestLogger(l *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/ping" {
			c.Next()
			return
		}

		began := time.Now()
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		c.Set("request_id", id)

		c.Next()

		code := c.Writer.Status()
		entry := l.WithFields(logrus.Fields{
			"request_id": id,
			"method":     c.Request.Method,
			"route":      c.FullPath(),
			"status":     code,
			"bytes":      c.Writer.Size(),
			"took_ms":    time.Since(began).Milliseconds(),
			"ip":         c.ClientIP(),
		})
		if tk := c.Param("token"); tk != "" {
			entry = entry.WithField("token", tokenPrefix(tk))
		}
		if admin := c.GetString("user_id"); admin != "" {
			entry = entry.WithField("admin", admin)
		}
		if msg := c.Errors.ByType(gin.ErrorTypeAny).String(); msg != "" {
			entry = entry.WithField("errors", msg)
		}

		msg := "http"
		if code == http.StatusSwitchingProtocols || strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
			msg = "ws closed"
		}
		entry.Log(levelFor(code), msg)
	}
}

func levelFor(status int) logrus.Level {
	if status >= 500 {
		return logrus.ErrorLevel
	}
	if status >= 400 {
		return logrus.WarnLevel
	}
	return logrus.InfoLevel
}

func tokenPrefix(tk string) string {
	if len(tk) <= 8 {
		return tk
	}
	return tk[:8] + "…"
}
