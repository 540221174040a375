package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mfigueredo/vendora-backend/pkg/enums"
)

// Order is the aggregate root for a single-vendor-group marketplace order.
// It is never deleted; cancellation is a status, not a removal.
type Order struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code          string              `gorm:"column:code;type:text;not null;uniqueIndex"`
	CustomerID    uuid.UUID           `gorm:"column:customer_id;type:uuid;not null;index"`
	Status        enums.OrderStatus   `gorm:"column:status;type:order_status;not null;default:'pending'"`
	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;type:payment_status;not null;default:'pending'"`
	SubtotalCents int                 `gorm:"column:subtotal_cents;not null"`
	ShippingCents int                 `gorm:"column:shipping_cents;not null;default:0"`
	TaxCents      int                 `gorm:"column:tax_cents;not null;default:0"`
	DiscountCents int                 `gorm:"column:discount_cents;not null;default:0"`
	TotalCents    int                 `gorm:"column:total_cents;not null"`
	CouponID      *uuid.UUID          `gorm:"column:coupon_id;type:uuid"`

	TrackingDeliveredAt   *time.Time `gorm:"column:tracking_delivered_at"`
	ReturnWindowExpiresAt *time.Time `gorm:"column:return_window_expires_at"`
	FundsReleased         bool       `gorm:"column:funds_released;not null;default:false"`

	CancellationReason       *string             `gorm:"column:cancellation_reason"`
	CancellationRefundStatus *enums.RefundStatus `gorm:"column:cancellation_refund_status;type:refund_status"`
	CancellationRefundCents  *int                `gorm:"column:cancellation_refund_cents"`
	CancelledAt              *time.Time          `gorm:"column:cancelled_at"`

	CancellationRequestOriginalStatus *enums.OrderStatus `gorm:"column:cancellation_request_original_status;type:order_status"`
	CancellationRequestResolution     *string            `gorm:"column:cancellation_request_resolution"`
	CancellationRequestedAt           *time.Time         `gorm:"column:cancellation_requested_at"`

	Items           []OrderItem            `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	VendorBreakdown []OrderVendorBreakdown `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	StatusHistory   []OrderStatusHistory   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem is one purchased line on an order.
type OrderItem struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID      uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	ProductName    string    `gorm:"column:product_name;type:text;not null"`
	VendorID       uuid.UUID `gorm:"column:vendor_id;type:uuid;not null"`
	Qty            int       `gorm:"column:qty;not null"`
	UnitPriceCents int       `gorm:"column:unit_price_cents;not null"`
	TotalCents     int       `gorm:"column:total_cents;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}

// OrderVendorBreakdown is the per-vendor money slice of an order. The
// commission is captured at order creation and never recomputed.
type OrderVendorBreakdown struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	VendorID        uuid.UUID `gorm:"column:vendor_id;type:uuid;not null"`
	SubtotalCents   int       `gorm:"column:subtotal_cents;not null"`
	ShippingCents   int       `gorm:"column:shipping_cents;not null;default:0"`
	TaxCents        int       `gorm:"column:tax_cents;not null;default:0"`
	DiscountCents   int       `gorm:"column:discount_cents;not null;default:0"`
	CommissionCents int       `gorm:"column:commission_cents;not null"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
}

// EarningsCents is the amount the vendor is owed for this slice.
func (b OrderVendorBreakdown) EarningsCents() int {
	return b.SubtotalCents - b.CommissionCents
}

// OrderStatusHistory is an append-only record of one status transition.
type OrderStatusHistory struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	Status    enums.OrderStatus `gorm:"column:status;type:order_status;not null"`
	ActorID   uuid.UUID         `gorm:"column:actor_id;type:uuid;not null"`
	ActorRole enums.ActorRole   `gorm:"column:actor_role;type:actor_role;not null"`
	Note      *string           `gorm:"column:note"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
}
