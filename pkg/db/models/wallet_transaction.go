package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mfigueredo/vendora-backend/pkg/enums"
)

// WalletTransaction is one immutable ledger entry describing a vendor wallet
// mutation. It is written in the same transaction as the balance change. The
// before/after pairs snapshot both balances so every entry is auditable: the
// withdrawable pair moves by amount_cents on balance mutations, the pending
// pair on hold mutations.
type WalletTransaction struct {
	ID                 uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID           uuid.UUID                   `gorm:"column:vendor_id;type:uuid;not null;index"`
	Type               enums.WalletTransactionType `gorm:"column:type;type:wallet_transaction_type;not null"`
	AmountCents        int                         `gorm:"column:amount_cents;not null"`
	BalanceBeforeCents int                         `gorm:"column:balance_before_cents;not null"`
	BalanceAfterCents  int                         `gorm:"column:balance_after_cents;not null"`
	PendingBeforeCents int                         `gorm:"column:pending_before_cents;not null;default:0"`
	PendingAfterCents  int                         `gorm:"column:pending_after_cents;not null;default:0"`
	Description        string                      `gorm:"column:description;type:text;not null"`
	ReferenceID        *uuid.UUID                  `gorm:"column:reference_id;type:uuid"`
	ReferenceType      enums.ReferenceType         `gorm:"column:reference_type;type:reference_type;not null;default:'manual'"`
	ActorID            *uuid.UUID                  `gorm:"column:actor_id;type:uuid"`
	CreatedAt          time.Time                   `gorm:"column:created_at;autoCreateTime"`
}
