package dto

// LoginRequest is the request body for staff login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token    string `json:"token"`
	Expiry   int64  `json:"expiry"` // Unix timestamp
	Username string `json:"username"`
	Role     string `json:"role"`
}

// CreateStaffRequest is the request body for creating a staff account.
type CreateStaffRequest struct {
	Username    string `json:"username" binding:"required,min=3,max=50,safe_id"`
	DisplayName string `json:"display_name" binding:"required,min=1,max=100"`
	Password    string `json:"password" binding:"required,min=8,max=128"`
	Role        string `json:"role" binding:"required,oneof=financial warehouse logistics courier admin"`
}

// CreateOrderRequest registers an order with the workflow in its initial
// custody state.
type CreateOrderRequest struct {
	OrderNumber  string `json:"order_number" binding:"required,order_ref"`
	CustomerID   string `json:"customer_id" binding:"required,uuid"`
	TotalAmount  int64  `json:"total_amount" binding:"required,gt=0"`
	ShippingCost int64  `json:"shipping_cost" binding:"gte=0"`
}

// ConfirmPaymentRequest selects one of the computed payment options.
type ConfirmPaymentRequest struct {
	Method string `json:"method" binding:"required,oneof=bank_gateway wallet wallet_partial grace_period"`
}

// ReviewRequest carries the financial reviewer's notes.
type ReviewRequest struct {
	Notes string `json:"notes" binding:"required,min=1,max=1000"`
}

// CancelRequest carries the cancellation reason.
type CancelRequest struct {
	Notes string `json:"notes" binding:"max=1000"`
}

// AssignLogisticsRequest pairs a vehicle with a courier.
type AssignLogisticsRequest struct {
	Vehicle string `json:"vehicle" binding:"required,min=1,max=100"`
	Courier string `json:"courier" binding:"required,min=1,max=100"`
}

// VerifyDeliveryRequest is the courier's code submission at handoff.
type VerifyDeliveryRequest struct {
	Code  string `json:"code" binding:"required,len=4,numeric"`
	Notes string `json:"notes" binding:"max=1000"`
}

// CorrectionRequest is an admin wallet adjustment tied to an order reference.
type CorrectionRequest struct {
	OrderNumber string `json:"order_number" binding:"required,order_ref"`
	Amount      int64  `json:"amount" binding:"required"`
	Description string `json:"description" binding:"required,max=500"`
}

// RechargeRequest is an admin-confirmed wallet top-up.
type RechargeRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}

// OrderResponse is the workflow view of an order.
type OrderResponse struct {
	ID                    string  `json:"id"`
	OrderNumber           string  `json:"order_number"`
	CustomerID            string  `json:"customer_id"`
	TotalAmount           int64   `json:"total_amount"`
	ShippingCost          int64   `json:"shipping_cost"`
	Currency              string  `json:"currency"`
	PaymentMethod         string  `json:"payment_method,omitempty"`
	CurrentStatus         string  `json:"current_status"`
	WalletAmountApplied   *int64  `json:"wallet_amount_applied,omitempty"`
	ExternalAmountApplied *int64  `json:"external_amount_applied,omitempty"`
	PaymentGraceDeadline  *string `json:"payment_grace_deadline,omitempty"`
	AssignedVehicle       *string `json:"assigned_vehicle,omitempty"`
	AssignedCourier       *string `json:"assigned_courier,omitempty"`
	CreatedAt             string  `json:"created_at"`
}

// StatusChangeResponse is one row of the custody trail.
type StatusChangeResponse struct {
	FromStatus string  `json:"from_status"`
	ToStatus   string  `json:"to_status"`
	Action     string  `json:"action"`
	ChangedBy  string  `json:"changed_by"`
	Notes      *string `json:"notes,omitempty"`
	CreatedAt  string  `json:"created_at"`
}

// VerificationResponse exposes a delivery verification row. The code itself
// is only included for staff-facing reads; it never reaches the customer
// through this API.
type VerificationResponse struct {
	ID               string  `json:"id"`
	Code             string  `json:"code,omitempty"`
	IsActive         bool    `json:"is_active"`
	IsUsed           bool    `json:"is_used"`
	SMSSent          bool    `json:"sms_sent"`
	DeliveryAttempts int     `json:"delivery_attempts"`
	VerifiedAt       *string `json:"verified_at,omitempty"`
	VerifiedBy       *string `json:"verified_by,omitempty"`
	CreatedAt        string  `json:"created_at"`
}

// WalletBalanceResponse is the response for a balance query.
type WalletBalanceResponse struct {
	CustomerID string `json:"customer_id"`
	Balance    int64  `json:"balance"`
	Currency   string `json:"currency"`
}

// LedgerEntryResponse is one immutable wallet ledger row.
type LedgerEntryResponse struct {
	ID          string `json:"id"`
	Amount      int64  `json:"amount"`
	Kind        string `json:"kind"`
	Description string `json:"description"`
	CreatedBy   string `json:"created_by"`
	CreatedAt   string `json:"created_at"`
}

// CorrectionResponse reports an applied wallet correction.
type CorrectionResponse struct {
	TransactionID  string `json:"transaction_id"`
	OrderNumber    string `json:"order_number"`
	Amount         int64  `json:"amount"`
	CorrectionType string `json:"correction_type"`
	OldBalance     int64  `json:"old_balance"`
	NewBalance     int64  `json:"new_balance"`
}

// ReconcileResponse compares the materialized balance against the ledger.
type ReconcileResponse struct {
	CustomerID        string `json:"customer_id"`
	MaterializedValue int64  `json:"materialized_value"`
	LedgerSum         int64  `json:"ledger_sum"`
	Consistent        bool   `json:"consistent"`
}

// AttemptResponse reports the updated delivery attempt counter.
type AttemptResponse struct {
	OrderID          string `json:"order_id"`
	DeliveryAttempts int    `json:"delivery_attempts"`
}
