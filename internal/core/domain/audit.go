package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited admin action.
type AuditAction string

const (
	AuditActionLogin            AuditAction = "LOGIN"
	AuditActionConfirmPayment   AuditAction = "CONFIRM_PAYMENT"
	AuditActionFinancialReview  AuditAction = "FINANCIAL_REVIEW"
	AuditActionWarehouseApprove AuditAction = "WAREHOUSE_APPROVE"
	AuditActionLogistics        AuditAction = "LOGISTICS"
	AuditActionDelivery         AuditAction = "DELIVERY"
	AuditActionWalletCorrection AuditAction = "WALLET_CORRECTION"
	AuditActionWalletRecharge   AuditAction = "WALLET_RECHARGE"
)

// AuditLog records a single audited admin action in the system.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	StaffID      *uuid.UUID  `json:"staff_id,omitempty"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"` // JSON string
	IPAddress    string      `json:"ip_address"`
	CreatedAt    time.Time   `json:"created_at"`
}
