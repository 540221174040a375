package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mfigueredo/vendora-backend/pkg/enums"
)

// RefundTransaction links a refund source (return request or cancellation) to
// the customer credit and vendor debit it produced. Immutable once completed.
type RefundTransaction struct {
	ID              uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         uuid.UUID          `gorm:"column:order_id;type:uuid;not null;index"`
	ReturnRequestID *uuid.UUID         `gorm:"column:return_request_id;type:uuid;index"`
	CustomerID      uuid.UUID          `gorm:"column:customer_id;type:uuid;not null"`
	VendorID        *uuid.UUID         `gorm:"column:vendor_id;type:uuid"`
	AmountCents     int                `gorm:"column:amount_cents;not null"`
	CustomerEntryID *uuid.UUID         `gorm:"column:customer_entry_id;type:uuid"`
	VendorEntryID   *uuid.UUID         `gorm:"column:vendor_entry_id;type:uuid"`
	Status          enums.RefundStatus `gorm:"column:status;type:refund_status;not null;default:'pending'"`
	CreatedAt       time.Time          `gorm:"column:created_at;autoCreateTime"`
}
