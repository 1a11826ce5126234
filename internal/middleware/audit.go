package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/dept-slot-api/pkg/middleware/requestid"
)

const auditFieldsKey = "audit_fields"

// Audit records one audit line after every successful request handled by the
// route it wraps. Handlers may attach extra fields with AuditFields.
func Audit(logger *zap.Logger, action, resource string) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("audit")
	return func(c *gin.Context) {
		start := time.Now().UTC()
		c.Next()

		if c.Writer.Status() >= 400 {
			return
		}

		fields := []zap.Field{
			zap.String("action", action),
			zap.String("resource", resource),
			zap.String("path", c.FullPath()),
			zap.String("method", c.Request.Method),
			zap.Int("status", c.Writer.Status()),
			zap.Int64("latency_ms", time.Since(start).Milliseconds()),
			zap.String("ip_address", c.ClientIP()),
			zap.String("user_agent", c.GetHeader("User-Agent")),
		}
		if id := requestid.Value(c); id != "" {
			fields = append(fields, zap.String("request_id", id))
		}
		if extra, ok := c.Get(auditFieldsKey); ok {
			fields = append(fields, extra.([]zap.Field)...)
		}
		logger.Info("audit", fields...)
	}
}

// AuditFields adds fields to the audit line of the current request.
func AuditFields(c *gin.Context, fields ...zap.Field) {
	if existing, ok := c.Get(auditFieldsKey); ok {
		fields = append(existing.([]zap.Field), fields...)
	}
	c.Set(auditFieldsKey, fields)
}
