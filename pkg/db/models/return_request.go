package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mfigueredo/vendora-backend/pkg/enums"
)

// ReturnRequest is a customer's request to return items from a delivered order.
// One return request is attributed to exactly one vendor.
type ReturnRequest struct {
	ID                uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID           uuid.UUID          `gorm:"column:order_id;type:uuid;not null;index"`
	CustomerID        uuid.UUID          `gorm:"column:customer_id;type:uuid;not null;index"`
	VendorID          uuid.UUID          `gorm:"column:vendor_id;type:uuid;not null;index"`
	Reason            string             `gorm:"column:reason;type:text;not null"`
	RefundAmountCents int                `gorm:"column:refund_amount_cents;not null"`
	Status            enums.ReturnStatus `gorm:"column:status;type:return_status;not null;default:'pending'"`
	RefundStatus      enums.RefundStatus `gorm:"column:refund_status;type:refund_status;not null;default:'pending'"`
	RefundMethod      string             `gorm:"column:refund_method;type:text;not null;default:'wallet'"`
	RejectionReason   *string            `gorm:"column:rejection_reason"`

	Items         []ReturnRequestItem   `gorm:"foreignKey:ReturnRequestID;constraint:OnDelete:CASCADE"`
	StatusHistory []ReturnStatusHistory `gorm:"foreignKey:ReturnRequestID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// ReturnRequestItem is one returned line with its per-item reason.
type ReturnRequestItem struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ReturnRequestID uuid.UUID `gorm:"column:return_request_id;type:uuid;not null;index"`
	ProductID       uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	ProductName     string    `gorm:"column:product_name;type:text;not null"`
	Qty             int       `gorm:"column:qty;not null"`
	UnitPriceCents  int       `gorm:"column:unit_price_cents;not null"`
	Reason          *string   `gorm:"column:reason"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
}

// ReturnStatusHistory is an append-only record of a return status change.
type ReturnStatusHistory struct {
	ID              uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ReturnRequestID uuid.UUID          `gorm:"column:return_request_id;type:uuid;not null;index"`
	Status          enums.ReturnStatus `gorm:"column:status;type:return_status;not null"`
	ActorID         uuid.UUID          `gorm:"column:actor_id;type:uuid;not null"`
	ActorRole       enums.ActorRole    `gorm:"column:actor_role;type:actor_role;not null"`
	Note            *string            `gorm:"column:note"`
	CreatedAt       time.Time          `gorm:"column:created_at;autoCreateTime"`
}
