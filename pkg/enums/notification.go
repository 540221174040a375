package enums

import "fmt"

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypeOrderStatus        NotificationType = "order_status"
	NotificationTypeOrderCancelled     NotificationType = "order_cancelled"
	NotificationTypeOrderDelivered     NotificationType = "order_delivered"
	NotificationTypeReturnRequested    NotificationType = "return_requested"
	NotificationTypeReturnUpdated      NotificationType = "return_updated"
	NotificationTypeRefundProcessed    NotificationType = "refund_processed"
	NotificationTypeWithdrawalResolved NotificationType = "withdrawal_resolved"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeOrderStatus,
	NotificationTypeOrderCancelled,
	NotificationTypeOrderDelivered,
	NotificationTypeReturnRequested,
	NotificationTypeReturnUpdated,
	NotificationTypeRefundProcessed,
	NotificationTypeWithdrawalResolved,
}

// IsValid reports whether the value is a known NotificationType.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw input into a NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}

// RecipientKind scopes a notification to a customer or a vendor inbox.
type RecipientKind string

const (
	RecipientKindCustomer RecipientKind = "customer"
	RecipientKindVendor   RecipientKind = "vendor"
)

// IsValid reports whether the value is a known RecipientKind.
func (r RecipientKind) IsValid() bool {
	return r == RecipientKindCustomer || r == RecipientKindVendor
}
