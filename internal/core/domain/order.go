package domain

import (
	"regexp"
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the authoritative custody state of an order. The department
// currently responsible for the order is derived from it, never stored twice.
type OrderStatus string

const (
	StatusPendingPayment      OrderStatus = "pending_payment"
	StatusPaymentConfirmed    OrderStatus = "payment_confirmed"
	StatusFinancialPending    OrderStatus = "financial_pending"
	StatusFinancialApproved   OrderStatus = "financial_approved"
	StatusWarehousePending    OrderStatus = "warehouse_pending"
	StatusWarehouseApproved   OrderStatus = "warehouse_approved"
	StatusLogisticsAssigned   OrderStatus = "logistics_assigned"
	StatusLogisticsProcessing OrderStatus = "logistics_processing"
	StatusLogisticsDispatched OrderStatus = "logistics_dispatched"
	StatusInTransit           OrderStatus = "in_transit"
	StatusDelivered           OrderStatus = "delivered"
	StatusCancelled           OrderStatus = "cancelled"
)

// statusRank orders the linear custody chain. Terminal side-state cancelled
// is not part of the chain and has no rank.
var statusRank = map[OrderStatus]int{
	StatusPendingPayment:      0,
	StatusPaymentConfirmed:    1,
	StatusFinancialPending:    2,
	StatusFinancialApproved:   3,
	StatusWarehousePending:    4,
	StatusWarehouseApproved:   5,
	StatusLogisticsAssigned:   6,
	StatusLogisticsProcessing: 7,
	StatusLogisticsDispatched: 8,
	StatusInTransit:           9,
	StatusDelivered:           10,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string { return string(s) }

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	if s == StatusCancelled {
		return true
	}
	_, ok := statusRank[s]
	return ok
}

// IsTerminal reports whether no further transitions are legal.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Reached reports whether the order has passed through (or sits at) the given
// point in the custody chain. Always false for cancelled orders.
func (s OrderStatus) Reached(target OrderStatus) bool {
	sr, ok1 := statusRank[s]
	tr, ok2 := statusRank[target]
	return ok1 && ok2 && sr >= tr
}

// Action is a named custody transition. Every action is legal from exactly
// one predecessor state (Cancel excepted) and restricted to one actor role.
type Action string

const (
	ActionConfirmPayment   Action = "confirm_payment"
	ActionSubmitFinancial  Action = "submit_financial_review"
	ActionApproveFinancial Action = "approve_financial"
	ActionRejectFinancial  Action = "reject_financial"
	ActionRouteToWarehouse Action = "route_to_warehouse"
	ActionApproveWarehouse Action = "approve_warehouse"
	ActionAssignLogistics  Action = "assign_logistics"
	ActionStartProcessing  Action = "start_logistics_processing"
	ActionDispatch         Action = "dispatch"
	ActionMarkInTransit    Action = "mark_in_transit"
	ActionDeliver          Action = "deliver"
	ActionCancel           Action = "cancel"
)

// transition defines one row of the custody table.
type transition struct {
	from  []OrderStatus
	to    OrderStatus
	roles []StaffRole
}

// transitions is the custody table. Skipping steps would break the audit
// trail required for hazardous-goods compliance, so there are no shortcuts.
var transitions = map[Action]transition{
	ActionConfirmPayment:   {from: []OrderStatus{StatusPendingPayment}, to: StatusPaymentConfirmed, roles: []StaffRole{RoleSystem}},
	ActionSubmitFinancial:  {from: []OrderStatus{StatusPaymentConfirmed}, to: StatusFinancialPending, roles: []StaffRole{RoleSystem}},
	ActionApproveFinancial: {from: []OrderStatus{StatusFinancialPending}, to: StatusFinancialApproved, roles: []StaffRole{RoleFinancial}},
	ActionRejectFinancial:  {from: []OrderStatus{StatusFinancialPending}, to: StatusCancelled, roles: []StaffRole{RoleFinancial}},
	ActionRouteToWarehouse: {from: []OrderStatus{StatusFinancialApproved}, to: StatusWarehousePending, roles: []StaffRole{RoleSystem}},
	ActionApproveWarehouse: {from: []OrderStatus{StatusWarehousePending}, to: StatusWarehouseApproved, roles: []StaffRole{RoleWarehouse}},
	ActionAssignLogistics:  {from: []OrderStatus{StatusWarehouseApproved}, to: StatusLogisticsAssigned, roles: []StaffRole{RoleLogistics}},
	ActionStartProcessing:  {from: []OrderStatus{StatusLogisticsAssigned}, to: StatusLogisticsProcessing, roles: []StaffRole{RoleLogistics}},
	ActionDispatch:         {from: []OrderStatus{StatusLogisticsProcessing}, to: StatusLogisticsDispatched, roles: []StaffRole{RoleLogistics}},
	ActionMarkInTransit:    {from: []OrderStatus{StatusLogisticsDispatched}, to: StatusInTransit, roles: []StaffRole{RoleLogistics, RoleCourier}},
	ActionDeliver:          {from: []OrderStatus{StatusInTransit}, to: StatusDelivered, roles: []StaffRole{RoleCourier}},
	// Cancel is the side terminal state, reachable from any non-terminal state.
	ActionCancel: {to: StatusCancelled, roles: []StaffRole{RoleFinancial, RoleAdmin}},
}

// NextStatus validates a custody transition and returns the successor state.
// It returns false when the action is not legal from the current state; the
// caller turns that into an IllegalTransition error naming both states.
func NextStatus(current OrderStatus, action Action) (OrderStatus, bool) {
	tr, ok := transitions[action]
	if !ok {
		return "", false
	}
	if action == ActionCancel {
		if current.IsTerminal() {
			return "", false
		}
		return tr.to, true
	}
	for _, from := range tr.from {
		if from == current {
			return tr.to, true
		}
	}
	return "", false
}

// ActionAllowed reports whether the role may perform the action. RoleAdmin is
// allowed everywhere except the system-chained hops.
func ActionAllowed(action Action, role StaffRole) bool {
	tr, ok := transitions[action]
	if !ok {
		return false
	}
	for _, r := range tr.roles {
		if r == role {
			return true
		}
		if role == RoleAdmin && r != RoleSystem {
			return true
		}
	}
	return false
}

// orderNumberRe is the external order-number contract: M25 + exactly 5 digits.
var orderNumberRe = regexp.MustCompile(`^M25\d{5}$`)

// ValidOrderNumber reports whether ref matches the M25##### numbering scheme.
// Lookups by order number must validate before querying.
func ValidOrderNumber(ref string) bool {
	return orderNumberRe.MatchString(ref)
}

// PaymentMethod identifies the chosen payment rail for an order.
type PaymentMethod string

const (
	MethodBankGateway   PaymentMethod = "bank_gateway"
	MethodWallet        PaymentMethod = "wallet"
	MethodWalletPartial PaymentMethod = "wallet_partial"
	MethodGracePeriod   PaymentMethod = "grace_period"
)

// Order is the workflow-side record of a customer order. Status is owned by
// the custody state machine; the payment split fields are written once by the
// payment resolver at confirmation.
type Order struct {
	ID                    uuid.UUID     `json:"id"`
	OrderNumber           string        `json:"order_number"` // M25#####
	CustomerID            uuid.UUID     `json:"customer_id"`
	TotalAmount           int64         `json:"total_amount"` // Whole IQD
	ShippingCost          int64         `json:"shipping_cost"`
	Currency              string        `json:"currency"`
	PaymentMethod         PaymentMethod `json:"payment_method,omitempty"`
	CurrentStatus         OrderStatus   `json:"current_status"`
	WalletAmountApplied   *int64        `json:"wallet_amount_applied,omitempty"`
	ExternalAmountApplied *int64        `json:"external_amount_applied,omitempty"`
	PaymentGraceDeadline  *time.Time    `json:"payment_grace_deadline,omitempty"`
	FinancialReviewerID   *uuid.UUID    `json:"financial_reviewer_id,omitempty"`
	FinancialReviewedAt   *time.Time    `json:"financial_reviewed_at,omitempty"`
	FinancialNotes        *string       `json:"financial_notes,omitempty"`
	AssignedVehicle       *string       `json:"assigned_vehicle,omitempty"`
	AssignedCourier       *string       `json:"assigned_courier,omitempty"`
	CreatedAt             time.Time     `json:"created_at"`
	UpdatedAt             time.Time     `json:"updated_at"`
}

// PaymentConfirmed reports whether the write-once split fields are set.
func (o *Order) PaymentConfirmed() bool {
	return o.WalletAmountApplied != nil && o.ExternalAmountApplied != nil
}

// StatusChange is one row of the order's custody history. Appended in the
// same transaction as the status update, never deleted.
type StatusChange struct {
	ID         uuid.UUID   `json:"id"`
	OrderID    uuid.UUID   `json:"order_id"`
	FromStatus OrderStatus `json:"from_status"`
	ToStatus   OrderStatus `json:"to_status"`
	Action     Action      `json:"action"`
	ChangedBy  string      `json:"changed_by"`
	Notes      *string     `json:"notes,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}
