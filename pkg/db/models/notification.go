package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mfigueredo/vendora-backend/pkg/enums"
)

// Notification stores in-app notification payloads for customers and vendors.
type Notification struct {
	ID            uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	RecipientID   uuid.UUID              `gorm:"type:uuid;not null;index"`
	RecipientKind enums.RecipientKind    `gorm:"type:recipient_kind;not null"`
	Type          enums.NotificationType `gorm:"type:notification_type;not null"`
	Title         string                 `gorm:"type:text;not null"`
	Message       string                 `gorm:"type:text;not null"`
	ReadAt        *time.Time             `gorm:"type:timestamptz"`
	CreatedAt     time.Time              `gorm:"type:timestamptz;default:now()"`
}
