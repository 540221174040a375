package settlement

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mfigueredo/vendora-backend/internal/orders"
	"github.com/mfigueredo/vendora-backend/internal/wallet"
	"github.com/mfigueredo/vendora-backend/pkg/config"
	"github.com/mfigueredo/vendora-backend/pkg/db/models"
	"github.com/mfigueredo/vendora-backend/pkg/enums"
	"github.com/mfigueredo/vendora-backend/pkg/outbox"
	"github.com/mfigueredo/vendora-backend/pkg/pagination"
)

var testTime = time.Date(2026, time.March, 15, 3, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testTime }

type stubSettlementRepo struct {
	due []uuid.UUID
}

func (s *stubSettlementRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubSettlementRepo) FindDueOrderIDs(ctx context.Context, asOf time.Time, limit int) ([]uuid.UUID, error) {
	if limit < len(s.due) {
		return s.due[:limit], nil
	}
	return s.due, nil
}

type orderFixture struct {
	order     *models.Order
	breakdown []models.OrderVendorBreakdown
}

type stubOrderStore struct {
	fixtures map[uuid.UUID]*orderFixture
}

func (s *stubOrderStore) WithTx(tx *gorm.DB) orders.Repository { return s }

func (s *stubOrderStore) Create(ctx context.Context, order *models.Order) error { return nil }

func (s *stubOrderStore) FindByRef(ctx context.Context, ref orders.OrderRef) (*models.Order, error) {
	return s.FindByRefForUpdate(ctx, ref)
}

func (s *stubOrderStore) FindByRefForUpdate(ctx context.Context, ref orders.OrderRef) (*models.Order, error) {
	fixture, ok := s.fixtures[ref.ID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *fixture.order
	return &copied, nil
}

func (s *stubOrderStore) LoadBreakdown(ctx context.Context, orderID uuid.UUID) ([]models.OrderVendorBreakdown, error) {
	fixture, ok := s.fixtures[orderID]
	if !ok {
		return nil, nil
	}
	return fixture.breakdown, nil
}

func (s *stubOrderStore) LoadItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	return nil, nil
}

func (s *stubOrderStore) Save(ctx context.Context, order *models.Order) error {
	fixture, ok := s.fixtures[order.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	fixture.order = order
	return nil
}

func (s *stubOrderStore) AppendHistory(ctx context.Context, entry *models.OrderStatusHistory) error {
	return nil
}

func (s *stubOrderStore) FindDeliveredHistory(ctx context.Context, orderID uuid.UUID) (*models.OrderStatusHistory, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubOrderStore) ListByCustomer(ctx context.Context, customerID uuid.UUID, limit int, cursor *pagination.Cursor, status *enums.OrderStatus) ([]models.Order, *pagination.Cursor, error) {
	return nil, nil, nil
}

func (s *stubOrderStore) ListByVendor(ctx context.Context, vendorID uuid.UUID, limit int, cursor *pagination.Cursor, status *enums.OrderStatus) ([]models.Order, *pagination.Cursor, error) {
	return nil, nil, nil
}

func (s *stubOrderStore) FindCouponForUpdate(ctx context.Context, couponID uuid.UUID) (*models.Coupon, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubOrderStore) DecrementCouponUsage(ctx context.Context, couponID uuid.UUID) error {
	return nil
}

func (s *stubOrderStore) CreateRefundTransaction(ctx context.Context, refund *models.RefundTransaction) error {
	return nil
}

func (s *stubOrderStore) SaveRefundTransaction(ctx context.Context, refund *models.RefundTransaction) error {
	return nil
}

type stubVendorWallet struct {
	releases []wallet.MutationInput
	failFor  map[uuid.UUID]error
}

func (s *stubVendorWallet) ReleasePendingOrCreditTx(ctx context.Context, tx *gorm.DB, input wallet.MutationInput) (*models.WalletTransaction, error) {
	if err, ok := s.failFor[input.VendorID]; ok {
		return nil, err
	}
	s.releases = append(s.releases, input)
	return &models.WalletTransaction{ID: uuid.New()}, nil
}

type stubOutboxPublisher struct {
	events []outbox.DomainEvent
}

func (s *stubOutboxPublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type stubTxRunner struct{}

func (s *stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type sweepEnv struct {
	sweeper      *Sweeper
	repo         *stubSettlementRepo
	orderStore   *stubOrderStore
	vendorWallet *stubVendorWallet
	publisher    *stubOutboxPublisher
}

func newSweepEnv(t *testing.T) *sweepEnv {
	t.Helper()
	env := &sweepEnv{
		repo:         &stubSettlementRepo{},
		orderStore:   &stubOrderStore{fixtures: map[uuid.UUID]*orderFixture{}},
		vendorWallet: &stubVendorWallet{failFor: map[uuid.UUID]error{}},
		publisher:    &stubOutboxPublisher{},
	}
	sweeper, err := NewSweeper(env.repo, env.orderStore, &stubTxRunner{}, env.publisher,
		env.vendorWallet, config.SettlementConfig{SweepBatchSize: 50}, nil, fixedNow)
	if err != nil {
		t.Fatalf("constructor failed: %v", err)
	}
	env.sweeper = sweeper
	return env
}

func (env *sweepEnv) addDueOrder(code string, slices ...models.OrderVendorBreakdown) uuid.UUID {
	id := uuid.New()
	expired := testTime.Add(-time.Hour)
	for i := range slices {
		slices[i].OrderID = id
	}
	env.orderStore.fixtures[id] = &orderFixture{
		order: &models.Order{
			ID:                    id,
			Code:                  code,
			Status:                enums.OrderStatusDelivered,
			ReturnWindowExpiresAt: &expired,
		},
		breakdown: slices,
	}
	env.repo.due = append(env.repo.due, id)
	return id
}

func TestSweepReleasesHeldEarnings(t *testing.T) {
	env := newSweepEnv(t)
	vendorA := uuid.New()
	vendorB := uuid.New()
	orderID := env.addDueOrder("VN-20260308-000010",
		models.OrderVendorBreakdown{VendorID: vendorA, SubtotalCents: 5000, CommissionCents: 500},
		models.OrderVendorBreakdown{VendorID: vendorB, SubtotalCents: 2000, CommissionCents: 200},
	)

	result, err := env.sweeper.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if result.Scanned != 1 || result.Released != 1 || result.Failed != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(env.vendorWallet.releases) != 2 {
		t.Fatalf("expected two releases, got %d", len(env.vendorWallet.releases))
	}
	if env.vendorWallet.releases[0].AmountCents != 4500 || env.vendorWallet.releases[1].AmountCents != 1800 {
		t.Fatalf("released wrong amounts: %+v", env.vendorWallet.releases)
	}
	if !env.orderStore.fixtures[orderID].order.FundsReleased {
		t.Fatalf("order not flagged released")
	}
	if len(env.publisher.events) != 2 || env.publisher.events[0].EventType != enums.EventSettlementCompleted {
		t.Fatalf("expected settlement events, got %+v", env.publisher.events)
	}
}

func TestSweepTwiceReleasesOnce(t *testing.T) {
	env := newSweepEnv(t)
	vendorID := uuid.New()
	env.addDueOrder("VN-20260308-000011",
		models.OrderVendorBreakdown{VendorID: vendorID, SubtotalCents: 3000, CommissionCents: 300})

	if _, err := env.sweeper.Sweep(context.Background()); err != nil {
		t.Fatalf("first sweep failed: %v", err)
	}
	result, err := env.sweeper.Sweep(context.Background())
	if err != nil {
		t.Fatalf("second sweep failed: %v", err)
	}
	if result.Released != 0 || result.Skipped != 1 {
		t.Fatalf("second sweep should skip, got %+v", result)
	}
	if len(env.vendorWallet.releases) != 1 {
		t.Fatalf("funds released twice")
	}
}

func TestSweepContinuesPastFailures(t *testing.T) {
	env := newSweepEnv(t)
	badVendor := uuid.New()
	goodVendor := uuid.New()
	badOrder := env.addDueOrder("VN-20260308-000012",
		models.OrderVendorBreakdown{VendorID: badVendor, SubtotalCents: 1000, CommissionCents: 100})
	goodOrder := env.addDueOrder("VN-20260308-000013",
		models.OrderVendorBreakdown{VendorID: goodVendor, SubtotalCents: 2000, CommissionCents: 200})
	env.vendorWallet.failFor[badVendor] = fmt.Errorf("wallet row lock timeout")

	result, err := env.sweeper.Sweep(context.Background())
	if err == nil {
		t.Fatalf("expected aggregated error for failed order")
	}
	if result.Failed != 1 || result.Released != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if env.orderStore.fixtures[badOrder].order.FundsReleased {
		t.Fatalf("failed order must stay unreleased for the next sweep")
	}
	if !env.orderStore.fixtures[goodOrder].order.FundsReleased {
		t.Fatalf("healthy order should still settle")
	}
}

func TestSweepFlagsOrderWithoutBreakdown(t *testing.T) {
	env := newSweepEnv(t)
	orderID := env.addDueOrder("VN-20260308-000014")

	result, err := env.sweeper.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if result.Released != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if !env.orderStore.fixtures[orderID].order.FundsReleased {
		t.Fatalf("order not flagged released")
	}
	if len(env.vendorWallet.releases) != 0 || len(env.publisher.events) != 0 {
		t.Fatalf("no payout expected without breakdown")
	}
}

func TestSweepSkipsOrderChangedSinceScan(t *testing.T) {
	env := newSweepEnv(t)
	vendorID := uuid.New()
	orderID := env.addDueOrder("VN-20260308-000015",
		models.OrderVendorBreakdown{VendorID: vendorID, SubtotalCents: 3000, CommissionCents: 300})
	env.orderStore.fixtures[orderID].order.Status = enums.OrderStatusCancelled

	result, err := env.sweeper.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if result.Skipped != 1 || result.Released != 0 {
		t.Fatalf("expected skip, got %+v", result)
	}
	if len(env.vendorWallet.releases) != 0 {
		t.Fatalf("cancelled order must not pay out")
	}
}

func TestJobNameAndRun(t *testing.T) {
	env := newSweepEnv(t)
	job, err := NewJob(env.sweeper, nil)
	if err != nil {
		t.Fatalf("job constructor failed: %v", err)
	}
	if job.Name() != "settlement-sweep" {
		t.Fatalf("unexpected job name %s", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}
}
