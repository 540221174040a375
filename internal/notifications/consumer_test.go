package notifications

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mfigueredo/vendora-backend/pkg/enums"
	"github.com/mfigueredo/vendora-backend/pkg/logger"
	"github.com/mfigueredo/vendora-backend/pkg/outbox"
	"github.com/mfigueredo/vendora-backend/pkg/outbox/idempotency"
	"github.com/mfigueredo/vendora-backend/pkg/outbox/payloads"
)

type fakeIdempotencyStore struct {
	seen map[string]bool
}

func (f *fakeIdempotencyStore) Get(context.Context, string) (string, error) { return "", nil }

func (f *fakeIdempotencyStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if f.seen == nil {
		f.seen = make(map[string]bool)
	}
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	return true, nil
}

func (f *fakeIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "vendora:idempotency:" + scope + ":" + id
}

func (f *fakeIdempotencyStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.seen, key)
	}
	return nil
}

func newTestConsumer(t *testing.T, repo consumerRepository) *Consumer {
	t.Helper()
	manager, err := idempotency.NewManager(&fakeIdempotencyStore{}, time.Hour)
	if err != nil {
		t.Fatalf("idempotency manager failed: %v", err)
	}
	return &Consumer{
		repo:        repo,
		idempotency: manager,
		decoders:    newDecoderRegistry(),
		logg:        logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	}
}

func envelopeFor(t *testing.T, eventID uuid.UUID, payload any) []byte {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	envelope, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID.String(),
		OccurredAt: testTime,
		Data:       data,
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return envelope
}

func TestConsumerNotifiesCustomerOnStatusChange(t *testing.T) {
	repo := &stubNotificationsRepo{}
	consumer := newTestConsumer(t, repo)
	customerID := uuid.New()

	data := envelopeFor(t, uuid.New(), payloads.OrderStatusChangedEvent{
		OrderID:    uuid.New(),
		OrderCode:  "VN-20260315-000007",
		CustomerID: customerID,
		FromStatus: enums.OrderStatusPending,
		ToStatus:   enums.OrderStatusProcessing,
	})
	result := consumer.process(context.Background(), string(enums.EventOrderStatusChanged), "m1", data)
	if !result.ack || result.nack {
		t.Fatalf("expected ack, got %+v", result)
	}
	if len(repo.rows) != 1 {
		t.Fatalf("expected one notification, got %d", len(repo.rows))
	}
	row := repo.rows[0]
	if row.RecipientID != customerID || row.RecipientKind != enums.RecipientKindCustomer {
		t.Fatalf("notification addressed wrong: %+v", row)
	}
	if row.Type != enums.NotificationTypeOrderStatus {
		t.Fatalf("unexpected type %s", row.Type)
	}
}

func TestConsumerNotifiesBothPartiesOnRefund(t *testing.T) {
	repo := &stubNotificationsRepo{}
	consumer := newTestConsumer(t, repo)
	customerID := uuid.New()
	vendorID := uuid.New()

	data := envelopeFor(t, uuid.New(), payloads.RefundProcessedEvent{
		RefundID:    uuid.New(),
		OrderID:     uuid.New(),
		CustomerID:  customerID,
		VendorID:    vendorID,
		AmountCents: 2500,
		ProcessedAt: testTime,
	})
	result := consumer.process(context.Background(), string(enums.EventRefundProcessed), "m2", data)
	if !result.ack {
		t.Fatalf("expected ack, got %+v", result)
	}
	if len(repo.rows) != 2 {
		t.Fatalf("expected customer and vendor notifications, got %d", len(repo.rows))
	}
	if repo.rows[0].RecipientKind != enums.RecipientKindCustomer || repo.rows[1].RecipientKind != enums.RecipientKindVendor {
		t.Fatalf("unexpected recipients: %+v", repo.rows)
	}
}

func TestConsumerSkipsDuplicateEvents(t *testing.T) {
	repo := &stubNotificationsRepo{}
	consumer := newTestConsumer(t, repo)
	eventID := uuid.New()

	data := envelopeFor(t, eventID, payloads.WithdrawalResolvedEvent{
		WithdrawalID: uuid.New(),
		VendorID:     uuid.New(),
		AmountCents:  10000,
		Status:       enums.WithdrawalStatusApproved,
	})
	first := consumer.process(context.Background(), string(enums.EventWithdrawalResolved), "m3", data)
	second := consumer.process(context.Background(), string(enums.EventWithdrawalResolved), "m3-redelivery", data)
	if !first.ack || !second.ack {
		t.Fatalf("both deliveries should ack")
	}
	if len(repo.rows) != 1 {
		t.Fatalf("duplicate delivery created %d notifications", len(repo.rows))
	}
}

func TestConsumerAcksUnmappedEvents(t *testing.T) {
	repo := &stubNotificationsRepo{}
	consumer := newTestConsumer(t, repo)

	data := envelopeFor(t, uuid.New(), payloads.SettlementCompletedEvent{
		OrderID:  uuid.New(),
		VendorID: uuid.New(),
	})
	result := consumer.process(context.Background(), string(enums.EventSettlementCompleted), "m4", data)
	if !result.ack {
		t.Fatalf("unmapped events must ack, got %+v", result)
	}
	if len(repo.rows) != 0 {
		t.Fatalf("unmapped event created notifications")
	}
}

func TestConsumerAcksMalformedEnvelope(t *testing.T) {
	repo := &stubNotificationsRepo{}
	consumer := newTestConsumer(t, repo)

	result := consumer.process(context.Background(), string(enums.EventOrderDelivered), "m5", []byte("{not json"))
	if !result.ack {
		t.Fatalf("malformed envelope must ack to avoid poison loops")
	}
}
