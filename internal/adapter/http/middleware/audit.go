package middleware

import (
	"encoding/json"
	"strings"
	"time"

	"chemdist-fulfillment/internal/core/domain"
	"chemdist-fulfillment/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditLog creates an audit middleware that logs successful write operations.
// It maps HTTP methods and paths to audit actions.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only audit successful write operations (status 2xx)
		if c.Writer.Status() < 200 || c.Writer.Status() >= 300 {
			return
		}
		if c.Request.Method == "GET" || c.Request.Method == "HEAD" || c.Request.Method == "OPTIONS" {
			return
		}

		action, resourceType := mapPathToAction(c.Request.URL.Path)
		if action == "" {
			return
		}

		var staffID *uuid.UUID
		if sid, exists := c.Get(CtxStaffID); exists {
			if id, ok := sid.(uuid.UUID); ok {
				staffID = &id
			}
		}

		details, _ := json.Marshal(map[string]interface{}{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
		})

		auditSvc.Log(c.Request.Context(), &domain.AuditLog{
			ID:           uuid.New(),
			StaffID:      staffID,
			Action:       action,
			ResourceType: resourceType,
			IPAddress:    c.ClientIP(),
			Details:      string(details),
			CreatedAt:    time.Now(),
		})
	}
}

func mapPathToAction(path string) (domain.AuditAction, string) {
	switch {
	case path == "/api/v1/auth/login":
		return domain.AuditActionLogin, "session"
	case strings.HasSuffix(path, "/confirm-payment"):
		return domain.AuditActionConfirmPayment, "order"
	case strings.Contains(path, "/financial/"):
		return domain.AuditActionFinancialReview, "order"
	case strings.Contains(path, "/warehouse/"):
		return domain.AuditActionWarehouseApprove, "order"
	case strings.Contains(path, "/logistics/"):
		return domain.AuditActionLogistics, "order"
	case strings.Contains(path, "/delivery/"):
		return domain.AuditActionDelivery, "order"
	case strings.HasSuffix(path, "/corrections"):
		return domain.AuditActionWalletCorrection, "wallet"
	case strings.HasSuffix(path, "/recharge"):
		return domain.AuditActionWalletRecharge, "wallet"
	}
	return "", ""
}
