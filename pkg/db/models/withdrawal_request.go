package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mfigueredo/vendora-backend/pkg/enums"
)

// WithdrawalRequest captures a vendor's request to pay out their full balance.
// A partial unique index keeps at most one pending request per vendor.
type WithdrawalRequest struct {
	ID              uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID        uuid.UUID              `gorm:"column:vendor_id;type:uuid;not null;index"`
	AmountCents     int                    `gorm:"column:amount_cents;not null"`
	Status          enums.WithdrawalStatus `gorm:"column:status;type:withdrawal_status;not null;default:'pending'"`
	ProcessedBy     *uuid.UUID             `gorm:"column:processed_by;type:uuid"`
	ProcessedAt     *time.Time             `gorm:"column:processed_at"`
	ExternalTxnID   *string                `gorm:"column:external_txn_id"`
	RejectionReason *string                `gorm:"column:rejection_reason"`
	Notes           *string                `gorm:"column:notes"`
	CreatedAt       time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
