package middleware

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/admission-agent-api/internal/models"
	"github.com/noah-isme/admission-agent-api/pkg/middleware/requestid"
)

// AuditWriter persists audit entries.
type AuditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type auditRecord struct {
	Route     string `json:"route"`
	Method    string `json:"method"`
	Status    int    `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
	RequestID string `json:"request_id,omitempty"`
}

// Audit records action against resource once the handler succeeded. Writer
// failures are attached to the gin context so the request logger reports
// them; the response is never affected.
func Audit(repo AuditWriter, action, resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if repo == nil || c.Writer.Status() >= 400 {
			return
		}

		entry := &models.AuditLog{
			Action:    action,
			Resource:  resource,
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		}
		if claims := CurrentClaims(c); claims != nil {
			entry.UserID = &claims.UserID
		}
		if id := c.Param("id"); id != "" {
			entry.ResourceID = &id
		}
		entry.Details, _ = json.Marshal(auditRecord{
			Route:     c.FullPath(),
			Method:    c.Request.Method,
			Status:    c.Writer.Status(),
			LatencyMs: time.Since(start).Milliseconds(),
			RequestID: requestid.Value(c),
		})

		ctx := context.WithoutCancel(c.Request.Context())
		if err := repo.CreateAuditLog(ctx, entry); err != nil {
			_ = c.Error(err).SetType(gin.ErrorTypePrivate)
		}
	}
}
