package orders

import (
	"github.com/google/uuid"

	"github.com/mfigueredo/vendora-backend/pkg/db/models"
	"github.com/mfigueredo/vendora-backend/pkg/enums"
	"github.com/mfigueredo/vendora-backend/pkg/pagination"
)

// ActorContext identifies the authenticated caller for order operations.
type ActorContext struct {
	UserID   uuid.UUID
	VendorID *uuid.UUID
	Role     enums.ActorRole
}

// ChangeStatusInput captures one requested status transition.
type ChangeStatusInput struct {
	Ref       OrderRef
	NewStatus enums.OrderStatus
	Actor     ActorContext
	Note      *string
}

// RequestCancellationInput captures a customer's cancellation request.
type RequestCancellationInput struct {
	Ref        OrderRef
	CustomerID uuid.UUID
	Reason     *string
}

// CreateOrderItemInput is one requested line on a new order.
type CreateOrderItemInput struct {
	ProductID      uuid.UUID `json:"product_id" validate:"required"`
	ProductName    string    `json:"product_name" validate:"required"`
	VendorID       uuid.UUID `json:"vendor_id" validate:"required"`
	Qty            int       `json:"qty" validate:"required,gt=0"`
	UnitPriceCents int       `json:"unit_price_cents" validate:"required,gt=0"`
}

// CreateOrderInput captures a checkout for one vendor group.
type CreateOrderInput struct {
	CustomerID    uuid.UUID
	Items         []CreateOrderItemInput
	ShippingCents int
	TaxCents      int
	DiscountCents int
	CouponID      *uuid.UUID
	PaymentStatus enums.PaymentStatus
}

// ListInput filters an order listing.
type ListInput struct {
	Status *enums.OrderStatus
	Params pagination.Params
}

// OrderList wraps the paginated orders plus the next page cursor.
type OrderList struct {
	Orders     []models.Order `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}
