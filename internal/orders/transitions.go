package orders

import "github.com/mfigueredo/vendora-backend/pkg/enums"

// transitionTable is keyed by actor role, then current status. Admins are not
// listed: they may perform any transition between distinct valid statuses.
var transitionTable = map[enums.ActorRole]map[enums.OrderStatus][]enums.OrderStatus{
	enums.ActorRoleUser: {
		enums.OrderStatusPending:    {enums.OrderStatusCancellationRequested},
		enums.OrderStatusProcessing: {enums.OrderStatusCancellationRequested},
	},
	enums.ActorRoleVendor: {
		enums.OrderStatusPending: {
			enums.OrderStatusProcessing,
			enums.OrderStatusCancelled,
			enums.OrderStatusOnHold,
			enums.OrderStatusCancellationRequested,
		},
		enums.OrderStatusProcessing: {
			enums.OrderStatusReadyToShip,
			enums.OrderStatusOnHold,
			enums.OrderStatusDispatched,
			enums.OrderStatusCancelled,
			enums.OrderStatusCancellationRequested,
		},
		enums.OrderStatusReadyToShip: {
			enums.OrderStatusDispatched,
			enums.OrderStatusShippedSeller,
		},
		enums.OrderStatusDispatched: {
			enums.OrderStatusShippedSeller,
			enums.OrderStatusDelivered,
		},
		enums.OrderStatusShippedSeller: {
			enums.OrderStatusDelivered,
		},
		enums.OrderStatusOnHold: {
			enums.OrderStatusProcessing,
			enums.OrderStatusReadyToShip,
		},
		enums.OrderStatusCancellationRequested: {
			enums.OrderStatusCancelled,
			enums.OrderStatusCancellationRejected,
			enums.OrderStatusProcessing,
		},
		enums.OrderStatusCancellationRejected: {
			enums.OrderStatusProcessing,
			enums.OrderStatusCancelled,
		},
	},
}

// TransitionAllowed reports whether the role may move an order between the two
// statuses.
func TransitionAllowed(role enums.ActorRole, from, to enums.OrderStatus) bool {
	if !from.IsValid() || !to.IsValid() || from == to {
		return false
	}
	if role == enums.ActorRoleAdmin {
		return true
	}
	allowed, ok := transitionTable[role][from]
	if !ok {
		return false
	}
	for _, candidate := range allowed {
		if candidate == to {
			return true
		}
	}
	return false
}
