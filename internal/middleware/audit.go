package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/survey-api/internal/models"
	"github.com/noah-isme/survey-api/pkg/middleware/requestid"
)

const auditResourceKey = "audit_resource_id"

// AuditWriter persists audit entries.
type AuditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// SetAuditResource names the record the current request touched, e.g. the
// export job behind a download token.
func SetAuditResource(c *gin.Context, id string) {
	if id != "" {
		c.Set(auditResourceKey, id)
	}
}

// Audit records an entry for requests that finish below 400. Routes whose
// services already audit their mutations should not use it.
func Audit(repo AuditWriter, action, resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		if status >= http.StatusBadRequest {
			return
		}

		entry := &models.AuditLog{
			Action:    action,
			Resource:  resource,
			IPAddress: c.ClientIP(),
			UserAgent: c.GetHeader("User-Agent"),
		}
		if claims, ok := Claims(c); ok {
			entry.UserID = &claims.UserID
		}
		if id := c.GetString(auditResourceKey); id != "" {
			entry.ResourceID = &id
		}

		details := map[string]interface{}{
			"route":      c.FullPath(),
			"method":     c.Request.Method,
			"status":     status,
			"latency_ms": time.Since(start).Milliseconds(),
		}
		if reqID := requestid.Value(c); reqID != "" {
			details["request_id"] = reqID
		}
		entry.NewValues, _ = json.Marshal(details)

		// Audit failures never change the response already written.
		_ = repo.CreateAuditLog(c.Request.Context(), entry)
	}
}
