package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	CtxRequestID   = "request_id"
	CtxInterviewID = "interview_id"
)

// SetInterviewID tags the request with the interview it touches so the
// access log can be joined with interview records.
func SetInterviewID(c *gin.Context, id string) {
	if id != "" {
		c.Set(CtxInterviewID, id)
	}
}

func interviewID(c *gin.Context) string {
	if id := c.GetString(CtxInterviewID); id != "" {
		return id
	}
	return c.Param("id")
}

// RequestLogger writes one access line per request with the caller's
// identity and, when known, the interview id.
func RequestLogger(l *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		reqID := c.GetHeader("X-Request-Id")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Header("X-Request-Id", reqID)
		c.Set(CtxRequestID, reqID)

		c.Next()

		status := c.Writer.Status()
		fields := logrus.Fields{
			"request_id": reqID,
			"method":     c.Request.Method,
			"route":      c.FullPath(),
			"status":     status,
			"latency_ms": time.Since(start).Milliseconds(),
			"ip":         c.ClientIP(),
		}
		if uid := c.GetString(CtxUserID); uid != "" {
			fields["user_id"] = uid
		}
		if id := interviewID(c); id != "" {
			fields["interview_id"] = id
		}
		entry := l.WithFields(fields)
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			entry.Error("request")
		case status >= 400:
			entry.Warn("request")
		default:
			entry.Info("request")
		}
	}
}
