package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType names an outbound workflow event. Consumers (SMS dispatch,
// email, CRM activity logging) live outside this core.
type EventType string

const (
	EventPaymentConfirmed    EventType = "payment.confirmed"
	EventFinancialApproved   EventType = "financial.approved"
	EventFinancialRejected   EventType = "financial.rejected"
	EventWarehouseApproved   EventType = "warehouse.approved"
	EventLogisticsAssigned   EventType = "logistics.assigned"
	EventOrderDispatched     EventType = "order.dispatched"
	EventOrderInTransit      EventType = "order.in_transit"
	EventOrderDelivered      EventType = "order.delivered"
	EventOrderCancelled      EventType = "order.cancelled"
	EventDeliveryCodeIssued  EventType = "delivery.code_issued"
	EventDeliveryAttempt     EventType = "delivery.attempt_recorded"
	EventWalletEntryAppended EventType = "wallet.entry_appended"
)

// WorkflowEvent is one row of the transactional outbox. It is inserted in
// the same database transaction as the state change it describes and
// published to downstream consumers afterwards, best effort.
type WorkflowEvent struct {
	ID          uuid.UUID       `json:"id"`
	EventType   EventType       `json:"event_type"`
	OrderID     *uuid.UUID      `json:"order_id,omitempty"`
	CustomerID  *uuid.UUID      `json:"customer_id,omitempty"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
	PublishedAt *time.Time      `json:"published_at,omitempty"`
	LastError   *string         `json:"last_error,omitempty"`
}

// NewOrderEvent builds an event tied to an order. Marshal failures are a
// programming error in the payload type, so payloads are built from plain
// structs and maps only.
func NewOrderEvent(eventType EventType, orderID uuid.UUID, payload any) (*WorkflowEvent, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &WorkflowEvent{
		ID:        uuid.New(),
		EventType: eventType,
		OrderID:   &orderID,
		Payload:   raw,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// NewCustomerEvent builds an event tied to a customer wallet.
func NewCustomerEvent(eventType EventType, customerID uuid.UUID, payload any) (*WorkflowEvent, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &WorkflowEvent{
		ID:         uuid.New(),
		EventType:  eventType,
		CustomerID: &customerID,
		Payload:    raw,
		CreatedAt:  time.Now().UTC(),
	}, nil
}
