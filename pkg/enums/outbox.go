package enums

// OutboxEventType names a domain event stored in the outbox table.
type OutboxEventType string

const (
	EventOrderStatusChanged  OutboxEventType = "order.status_changed"
	EventOrderDelivered      OutboxEventType = "order.delivered"
	EventOrderCancelled      OutboxEventType = "order.cancelled"
	EventReturnRequested     OutboxEventType = "return.requested"
	EventReturnUpdated       OutboxEventType = "return.updated"
	EventRefundProcessed     OutboxEventType = "refund.processed"
	EventWithdrawalResolved  OutboxEventType = "withdrawal.resolved"
	EventSettlementCompleted OutboxEventType = "settlement.completed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderStatusChanged,
	EventOrderDelivered,
	EventOrderCancelled,
	EventReturnRequested,
	EventReturnUpdated,
	EventRefundProcessed,
	EventWithdrawalResolved,
	EventSettlementCompleted,
}

// IsValid reports whether the value is a known OutboxEventType.
func (o OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == o {
			return true
		}
	}
	return false
}

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder         OutboxAggregateType = "order"
	AggregateReturnRequest OutboxAggregateType = "return_request"
	AggregateWallet        OutboxAggregateType = "wallet"
	AggregateWithdrawal    OutboxAggregateType = "withdrawal"
)

// IsValid reports whether the value is a known OutboxAggregateType.
func (o OutboxAggregateType) IsValid() bool {
	switch o {
	case AggregateOrder, AggregateReturnRequest, AggregateWallet, AggregateWithdrawal:
		return true
	default:
		return false
	}
}

// OutboxDLQErrorReason classifies why an outbox row was dead-lettered.
type OutboxDLQErrorReason string

const (
	DLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
	DLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
)

// IsValid reports whether the value is a known OutboxDLQErrorReason.
func (o OutboxDLQErrorReason) IsValid() bool {
	switch o {
	case DLQReasonNonRetryable, DLQReasonMaxAttempts:
		return true
	default:
		return false
	}
}
