package domain

import (
	"time"

	"github.com/google/uuid"
)

// DeliveryVerification is a short numeric code gating physical handoff.
// At most one active (unused, non-superseded) code exists per order;
// regenerating supersedes the old code but keeps the row for the audit trail.
type DeliveryVerification struct {
	ID                uuid.UUID  `json:"id"`
	OrderID           uuid.UUID  `json:"order_id"`
	VerificationCode  string     `json:"verification_code"` // 4 digits
	IsActive          bool       `json:"is_active"`         // false once superseded
	IsUsed            bool       `json:"is_used"`
	SMSSent           bool       `json:"sms_sent"`
	SMSDelivered      bool       `json:"sms_delivered"`
	DeliveryAttempts  int        `json:"delivery_attempts"`
	VerifiedAt        *time.Time `json:"verified_at,omitempty"`
	VerifiedBy        *string    `json:"verified_by,omitempty"` // Courier or admin identity
	VerificationNotes *string    `json:"verification_notes,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// VerificationCodeLength is fixed by the SMS contract with customers.
const VerificationCodeLength = 4
