package domain

import (
	"time"

	"github.com/google/uuid"
)

// Wallet holds a customer's materialized balance. The balance is derived
// state: it must always equal the sum of the customer's ledger entries and is
// only ever updated in the same transaction as an entry insert.
type Wallet struct {
	ID         uuid.UUID `json:"id"`
	CustomerID uuid.UUID `json:"customer_id"`
	Balance    int64     `json:"balance"` // Whole IQD
	Currency   string    `json:"currency"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// EntryKind classifies a wallet ledger entry.
type EntryKind string

const (
	EntryPurchaseDebit     EntryKind = "purchase_debit"
	EntryRefundCredit      EntryKind = "refund_credit"
	EntryOverpaymentCredit EntryKind = "overpayment_credit"
	EntryUnderpaymentDebit EntryKind = "underpayment_debit"
	EntryRechargeCredit    EntryKind = "recharge_credit"
	EntryManualCorrection  EntryKind = "manual_correction"
)

var validEntryKinds = []EntryKind{
	EntryPurchaseDebit,
	EntryRefundCredit,
	EntryOverpaymentCredit,
	EntryUnderpaymentDebit,
	EntryRechargeCredit,
	EntryManualCorrection,
}

// IsValid reports whether the value is a known EntryKind.
func (k EntryKind) IsValid() bool {
	for _, candidate := range validEntryKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// SystemActor marks ledger entries created by the workflow itself rather
// than a named admin.
const SystemActor = "system"

// WalletLedgerEntry is an immutable balance-affecting event. Corrections are
// new entries, never edits; entries are never deleted.
type WalletLedgerEntry struct {
	ID             uuid.UUID  `json:"id"`
	CustomerID     uuid.UUID  `json:"customer_id"`
	WalletID       uuid.UUID  `json:"wallet_id"`
	Amount         int64      `json:"amount"` // Signed: positive credit, negative debit
	Kind           EntryKind  `json:"kind"`
	RelatedOrderID *uuid.UUID `json:"related_order_id,omitempty"`
	Description    string     `json:"description"`
	CreatedBy      string     `json:"created_by"` // Admin identity or "system"
	CreatedAt      time.Time  `json:"created_at"`
}

// CorrectionType classifies a manual correction by its sign alone; it is
// returned to callers, never stored.
type CorrectionType string

const (
	CorrectionOverpayment  CorrectionType = "overpayment_credit" // money owed back to the customer
	CorrectionUnderpayment CorrectionType = "underpayment_debit" // money still owed by the customer
)

// ClassifyCorrection maps a signed correction amount to its type.
func ClassifyCorrection(amount int64) CorrectionType {
	if amount >= 0 {
		return CorrectionOverpayment
	}
	return CorrectionUnderpayment
}
