package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/mfigueredo/vendora-backend/pkg/enums"
)

// OrderStatusChangedEvent is emitted on every order status transition.
type OrderStatusChangedEvent struct {
	OrderID    uuid.UUID         `json:"order_id"`
	OrderCode  string            `json:"order_code"`
	CustomerID uuid.UUID         `json:"customer_id"`
	FromStatus enums.OrderStatus `json:"from_status"`
	ToStatus   enums.OrderStatus `json:"to_status"`
	ActorRole  enums.ActorRole   `json:"actor_role"`
	Note       string            `json:"note,omitempty"`
}

// OrderDeliveredEvent is emitted the first time an order reaches delivered.
type OrderDeliveredEvent struct {
	OrderID       uuid.UUID `json:"order_id"`
	OrderCode     string    `json:"order_code"`
	CustomerID    uuid.UUID `json:"customer_id"`
	DeliveredAt   time.Time `json:"delivered_at"`
	WindowExpires time.Time `json:"window_expires"`
	FundsHeld     bool      `json:"funds_held"`
}

// OrderCancelledEvent is emitted when an order reaches cancelled.
type OrderCancelledEvent struct {
	OrderID        uuid.UUID `json:"order_id"`
	OrderCode      string    `json:"order_code"`
	CustomerID     uuid.UUID `json:"customer_id"`
	CancelledAt    time.Time `json:"cancelled_at"`
	Reason         string    `json:"reason,omitempty"`
	RefundedCents  int64     `json:"refunded_cents"`
	WalletRefunded bool      `json:"wallet_refunded"`
}

// ReturnRequestedEvent signals a new return request awaiting review.
type ReturnRequestedEvent struct {
	ReturnRequestID uuid.UUID          `json:"return_request_id"`
	OrderID         uuid.UUID          `json:"order_id"`
	OrderCode       string             `json:"order_code"`
	CustomerID      uuid.UUID          `json:"customer_id"`
	VendorID        uuid.UUID          `json:"vendor_id"`
	AmountCents     int64              `json:"amount_cents"`
	Status          enums.ReturnStatus `json:"status"`
	AutoApproved    bool               `json:"auto_approved"`
}

// ReturnUpdatedEvent is emitted when a return request changes status.
type ReturnUpdatedEvent struct {
	ReturnRequestID uuid.UUID          `json:"return_request_id"`
	OrderID         uuid.UUID          `json:"order_id"`
	CustomerID      uuid.UUID          `json:"customer_id"`
	VendorID        uuid.UUID          `json:"vendor_id"`
	FromStatus      enums.ReturnStatus `json:"from_status"`
	ToStatus        enums.ReturnStatus `json:"to_status"`
	Note            string             `json:"note,omitempty"`
}

// RefundProcessedEvent is emitted after a refund settles both wallets.
type RefundProcessedEvent struct {
	RefundID        uuid.UUID `json:"refund_id"`
	ReturnRequestID uuid.UUID `json:"return_request_id"`
	OrderID         uuid.UUID `json:"order_id"`
	CustomerID      uuid.UUID `json:"customer_id"`
	VendorID        uuid.UUID `json:"vendor_id"`
	AmountCents     int64     `json:"amount_cents"`
	ProcessedAt     time.Time `json:"processed_at"`
}

// WithdrawalResolvedEvent is emitted when staff approve or reject a withdrawal.
type WithdrawalResolvedEvent struct {
	WithdrawalID  uuid.UUID              `json:"withdrawal_id"`
	VendorID      uuid.UUID              `json:"vendor_id"`
	AmountCents   int64                  `json:"amount_cents"`
	Status        enums.WithdrawalStatus `json:"status"`
	ExternalTxnID string                 `json:"external_txn_id,omitempty"`
	Reason        string                 `json:"reason,omitempty"`
}

// SettlementCompletedEvent reports the outcome of one settlement sweep order.
type SettlementCompletedEvent struct {
	OrderID       uuid.UUID `json:"order_id"`
	OrderCode     string    `json:"order_code"`
	VendorID      uuid.UUID `json:"vendor_id"`
	EarningsCents int64     `json:"earnings_cents"`
	Released      bool      `json:"released"`
	SettledAt     time.Time `json:"settled_at"`
}
