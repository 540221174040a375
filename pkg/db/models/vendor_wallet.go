package models

import (
	"time"

	"github.com/google/uuid"
)

// VendorWallet holds a vendor's withdrawable and held balances. Created lazily
// on first reference, mutated only by the wallet service.
type VendorWallet struct {
	ID                  uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID            uuid.UUID  `gorm:"column:vendor_id;type:uuid;not null;uniqueIndex"`
	BalanceCents        int        `gorm:"column:balance_cents;not null;default:0"`
	PendingBalanceCents int        `gorm:"column:pending_balance_cents;not null;default:0"`
	TotalWithdrawnCents int        `gorm:"column:total_withdrawn_cents;not null;default:0"`
	LastWithdrawalAt    *time.Time `gorm:"column:last_withdrawal_at"`
	CreatedAt           time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
