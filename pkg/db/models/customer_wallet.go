package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mfigueredo/vendora-backend/pkg/enums"
)

// CustomerWallet is the personal ledger credited by cancellations and refunds.
type CustomerWallet struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID   uuid.UUID `gorm:"column:customer_id;type:uuid;not null;uniqueIndex"`
	BalanceCents int       `gorm:"column:balance_cents;not null;default:0"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// CustomerWalletTransaction is one immutable customer ledger entry.
type CustomerWalletTransaction struct {
	ID                 uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID         uuid.UUID                   `gorm:"column:customer_id;type:uuid;not null;index"`
	Type               enums.WalletTransactionType `gorm:"column:type;type:wallet_transaction_type;not null"`
	AmountCents        int                         `gorm:"column:amount_cents;not null"`
	BalanceBeforeCents int                         `gorm:"column:balance_before_cents;not null"`
	BalanceAfterCents  int                         `gorm:"column:balance_after_cents;not null"`
	Description        string                      `gorm:"column:description;type:text;not null"`
	ReferenceID        *uuid.UUID                  `gorm:"column:reference_id;type:uuid"`
	ReferenceType      enums.ReferenceType         `gorm:"column:reference_type;type:reference_type;not null;default:'manual'"`
	CreatedAt          time.Time                   `gorm:"column:created_at;autoCreateTime"`
}
