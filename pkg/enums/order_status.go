package enums

import "fmt"

// OrderStatus tracks the lifecycle of a marketplace order.
type OrderStatus string

const (
	OrderStatusPending               OrderStatus = "pending"
	OrderStatusProcessing            OrderStatus = "processing"
	OrderStatusReadyToShip           OrderStatus = "ready_to_ship"
	OrderStatusDispatched            OrderStatus = "dispatched"
	OrderStatusShippedSeller         OrderStatus = "shipped_seller"
	OrderStatusShipped               OrderStatus = "shipped"
	OrderStatusOutForDelivery        OrderStatus = "out_for_delivery"
	OrderStatusDelivered             OrderStatus = "delivered"
	OrderStatusCancellationRequested OrderStatus = "cancellation_requested"
	OrderStatusCancellationRejected  OrderStatus = "cancellation_rejected"
	OrderStatusCancelled             OrderStatus = "cancelled"
	OrderStatusRefunded              OrderStatus = "refunded"
	OrderStatusOnHold                OrderStatus = "on_hold"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusReadyToShip,
	OrderStatusDispatched,
	OrderStatusShippedSeller,
	OrderStatusShipped,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
	OrderStatusCancellationRequested,
	OrderStatusCancellationRejected,
	OrderStatusCancelled,
	OrderStatusRefunded,
	OrderStatusOnHold,
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
