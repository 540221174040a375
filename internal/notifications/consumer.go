package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/mfigueredo/vendora-backend/pkg/db/models"
	"github.com/mfigueredo/vendora-backend/pkg/enums"
	"github.com/mfigueredo/vendora-backend/pkg/logger"
	"github.com/mfigueredo/vendora-backend/pkg/outbox"
	"github.com/mfigueredo/vendora-backend/pkg/outbox/idempotency"
	"github.com/mfigueredo/vendora-backend/pkg/outbox/payloads"
	"github.com/mfigueredo/vendora-backend/pkg/outbox/registry"
)

const notificationConsumer = "domain-notifications"

type consumerRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// Consumer fans domain events out into customer and vendor notification rows.
// Notification creation is decoupled from the originating transaction, so a
// failure here never rolls back an order or wallet mutation.
type Consumer struct {
	repo         consumerRepository
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	decoders     *registry.DecoderRegistry
	logg         *logger.Logger
}

// NewConsumer builds the notification consumer.
func NewConsumer(repo consumerRepository, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  manager,
		decoders:     newDecoderRegistry(),
		logg:         logg,
	}, nil
}

func newDecoderRegistry() *registry.DecoderRegistry {
	reg := registry.NewDecoderRegistry()
	reg.Register(enums.EventOrderStatusChanged, 1, func(raw json.RawMessage) (interface{}, error) {
		var payload payloads.OrderStatusChangedEvent
		return &payload, json.Unmarshal(raw, &payload)
	})
	reg.Register(enums.EventOrderDelivered, 1, func(raw json.RawMessage) (interface{}, error) {
		var payload payloads.OrderDeliveredEvent
		return &payload, json.Unmarshal(raw, &payload)
	})
	reg.Register(enums.EventOrderCancelled, 1, func(raw json.RawMessage) (interface{}, error) {
		var payload payloads.OrderCancelledEvent
		return &payload, json.Unmarshal(raw, &payload)
	})
	reg.Register(enums.EventReturnRequested, 1, func(raw json.RawMessage) (interface{}, error) {
		var payload payloads.ReturnRequestedEvent
		return &payload, json.Unmarshal(raw, &payload)
	})
	reg.Register(enums.EventReturnUpdated, 1, func(raw json.RawMessage) (interface{}, error) {
		var payload payloads.ReturnUpdatedEvent
		return &payload, json.Unmarshal(raw, &payload)
	})
	reg.Register(enums.EventRefundProcessed, 1, func(raw json.RawMessage) (interface{}, error) {
		var payload payloads.RefundProcessedEvent
		return &payload, json.Unmarshal(raw, &payload)
	})
	reg.Register(enums.EventWithdrawalResolved, 1, func(raw json.RawMessage) (interface{}, error) {
		var payload payloads.WithdrawalResolvedEvent
		return &payload, json.Unmarshal(raw, &payload)
	})
	return reg
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg.Attributes["event_type"], msg.ID, msg.Data)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, eventType, messageID string, data []byte) processResult {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": messageID,
		"event_type": eventType,
	})

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	decoded, err := c.decoders.Decode(enums.OutboxEventType(eventType), envelope.Version, envelope.Data)
	if err != nil {
		c.logg.Info(logCtx, "no notification mapping for event")
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, notificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := c.handle(ctx, decoded); err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		_ = c.idempotency.Delete(ctx, notificationConsumer, eventID)
		return processResult{nack: true}
	}
	return processResult{ack: true}
}

func (c *Consumer) handle(ctx context.Context, decoded interface{}) error {
	switch payload := decoded.(type) {
	case *payloads.OrderStatusChangedEvent:
		return c.notifyCustomer(ctx, payload.CustomerID, enums.NotificationTypeOrderStatus,
			"Order updated",
			fmt.Sprintf("Order %s is now %s.", payload.OrderCode, payload.ToStatus))
	case *payloads.OrderDeliveredEvent:
		return c.notifyCustomer(ctx, payload.CustomerID, enums.NotificationTypeOrderDelivered,
			"Order delivered",
			fmt.Sprintf("Order %s was delivered. Returns close %s.",
				payload.OrderCode, payload.WindowExpires.Format("Jan 2, 2006")))
	case *payloads.OrderCancelledEvent:
		message := fmt.Sprintf("Order %s was cancelled.", payload.OrderCode)
		if payload.WalletRefunded {
			message = fmt.Sprintf("Order %s was cancelled and %s was refunded to your wallet.",
				payload.OrderCode, formatCents(payload.RefundedCents))
		}
		return c.notifyCustomer(ctx, payload.CustomerID, enums.NotificationTypeOrderCancelled,
			"Order cancelled", message)
	case *payloads.ReturnRequestedEvent:
		return c.notifyVendor(ctx, payload.VendorID, enums.NotificationTypeReturnRequested,
			"Return requested",
			fmt.Sprintf("A customer requested a return worth %s on order %s.",
				formatCents(payload.AmountCents), payload.OrderCode))
	case *payloads.ReturnUpdatedEvent:
		return c.notifyCustomer(ctx, payload.CustomerID, enums.NotificationTypeReturnUpdated,
			"Return updated",
			fmt.Sprintf("Your return request is now %s.", payload.ToStatus))
	case *payloads.RefundProcessedEvent:
		if err := c.notifyCustomer(ctx, payload.CustomerID, enums.NotificationTypeRefundProcessed,
			"Refund issued",
			fmt.Sprintf("%s was credited to your wallet.", formatCents(payload.AmountCents))); err != nil {
			return err
		}
		return c.notifyVendor(ctx, payload.VendorID, enums.NotificationTypeRefundProcessed,
			"Refund processed",
			fmt.Sprintf("%s was deducted from your wallet for a customer refund.",
				formatCents(payload.AmountCents)))
	case *payloads.WithdrawalResolvedEvent:
		title := "Withdrawal approved"
		message := fmt.Sprintf("Your withdrawal of %s was paid out.", formatCents(payload.AmountCents))
		if payload.Status == enums.WithdrawalStatusRejected {
			title = "Withdrawal rejected"
			message = fmt.Sprintf("Your withdrawal of %s was rejected: %s",
				formatCents(payload.AmountCents), payload.Reason)
		}
		return c.notifyVendor(ctx, payload.VendorID, enums.NotificationTypeWithdrawalResolved, title, message)
	default:
		return nil
	}
}

func (c *Consumer) notifyCustomer(ctx context.Context, customerID uuid.UUID, kind enums.NotificationType, title, message string) error {
	if customerID == uuid.Nil {
		return fmt.Errorf("customer id missing")
	}
	return c.repo.Create(ctx, &models.Notification{
		RecipientID:   customerID,
		RecipientKind: enums.RecipientKindCustomer,
		Type:          kind,
		Title:         title,
		Message:       message,
	})
}

func (c *Consumer) notifyVendor(ctx context.Context, vendorID uuid.UUID, kind enums.NotificationType, title, message string) error {
	if vendorID == uuid.Nil {
		return fmt.Errorf("vendor id missing")
	}
	return c.repo.Create(ctx, &models.Notification{
		RecipientID:   vendorID,
		RecipientKind: enums.RecipientKindVendor,
		Type:          kind,
		Title:         title,
		Message:       message,
	})
}

func formatCents(cents int64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}
