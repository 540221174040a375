package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mfigueredo/vendora-backend/internal/customerwallet"
	"github.com/mfigueredo/vendora-backend/internal/wallet"
	"github.com/mfigueredo/vendora-backend/pkg/config"
	"github.com/mfigueredo/vendora-backend/pkg/db/models"
	"github.com/mfigueredo/vendora-backend/pkg/enums"
	pkgerrors "github.com/mfigueredo/vendora-backend/pkg/errors"
	"github.com/mfigueredo/vendora-backend/pkg/outbox"
	"github.com/mfigueredo/vendora-backend/pkg/pagination"
)

type stubOrdersRepo struct {
	order            *models.Order
	breakdown        []models.OrderVendorBreakdown
	items            []models.OrderItem
	history          []models.OrderStatusHistory
	refunds          []*models.RefundTransaction
	couponDecrements []uuid.UUID
}

func (s *stubOrdersRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubOrdersRepo) Create(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	copied := *order
	s.order = &copied
	return nil
}

func (s *stubOrdersRepo) matches(ref OrderRef) bool {
	if s.order == nil {
		return false
	}
	if ref.ID != uuid.Nil {
		return s.order.ID == ref.ID
	}
	return s.order.Code == ref.Code
}

func (s *stubOrdersRepo) FindByRef(ctx context.Context, ref OrderRef) (*models.Order, error) {
	if !s.matches(ref) {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.order
	copied.VendorBreakdown = s.breakdown
	copied.Items = s.items
	copied.StatusHistory = s.history
	return &copied, nil
}

func (s *stubOrdersRepo) FindByRefForUpdate(ctx context.Context, ref OrderRef) (*models.Order, error) {
	if !s.matches(ref) {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.order
	return &copied, nil
}

func (s *stubOrdersRepo) LoadBreakdown(ctx context.Context, orderID uuid.UUID) ([]models.OrderVendorBreakdown, error) {
	return s.breakdown, nil
}

func (s *stubOrdersRepo) LoadItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	return s.items, nil
}

func (s *stubOrdersRepo) Save(ctx context.Context, order *models.Order) error {
	copied := *order
	s.order = &copied
	return nil
}

func (s *stubOrdersRepo) AppendHistory(ctx context.Context, entry *models.OrderStatusHistory) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	s.history = append(s.history, *entry)
	return nil
}

func (s *stubOrdersRepo) FindDeliveredHistory(ctx context.Context, orderID uuid.UUID) (*models.OrderStatusHistory, error) {
	for i := range s.history {
		if s.history[i].Status == enums.OrderStatusDelivered {
			return &s.history[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubOrdersRepo) ListByCustomer(ctx context.Context, customerID uuid.UUID, limit int, cursor *pagination.Cursor, status *enums.OrderStatus) ([]models.Order, *pagination.Cursor, error) {
	if s.order != nil && s.order.CustomerID == customerID {
		return []models.Order{*s.order}, nil, nil
	}
	return nil, nil, nil
}

func (s *stubOrdersRepo) ListByVendor(ctx context.Context, vendorID uuid.UUID, limit int, cursor *pagination.Cursor, status *enums.OrderStatus) ([]models.Order, *pagination.Cursor, error) {
	return nil, nil, nil
}

func (s *stubOrdersRepo) FindCouponForUpdate(ctx context.Context, couponID uuid.UUID) (*models.Coupon, error) {
	return &models.Coupon{ID: couponID, UsedCount: 1}, nil
}

func (s *stubOrdersRepo) DecrementCouponUsage(ctx context.Context, couponID uuid.UUID) error {
	s.couponDecrements = append(s.couponDecrements, couponID)
	return nil
}

func (s *stubOrdersRepo) CreateRefundTransaction(ctx context.Context, refund *models.RefundTransaction) error {
	if refund.ID == uuid.Nil {
		refund.ID = uuid.New()
	}
	s.refunds = append(s.refunds, refund)
	return nil
}

func (s *stubOrdersRepo) SaveRefundTransaction(ctx context.Context, refund *models.RefundTransaction) error {
	return nil
}

type vendorWalletCall struct {
	pending bool
	input   wallet.MutationInput
}

type stubVendorWallet struct {
	calls []vendorWalletCall
	err   error
}

func (s *stubVendorWallet) CreditTx(ctx context.Context, tx *gorm.DB, input wallet.MutationInput) (*models.WalletTransaction, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.calls = append(s.calls, vendorWalletCall{input: input})
	return &models.WalletTransaction{ID: uuid.New(), VendorID: input.VendorID}, nil
}

func (s *stubVendorWallet) CreditPendingTx(ctx context.Context, tx *gorm.DB, input wallet.MutationInput) (*models.WalletTransaction, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.calls = append(s.calls, vendorWalletCall{pending: true, input: input})
	return &models.WalletTransaction{ID: uuid.New(), VendorID: input.VendorID}, nil
}

type stubCustomerWallet struct {
	credits []customerwallet.MutationInput
	err     error
}

func (s *stubCustomerWallet) CreditTx(ctx context.Context, tx *gorm.DB, input customerwallet.MutationInput) (*models.CustomerWalletTransaction, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.credits = append(s.credits, input)
	return &models.CustomerWalletTransaction{ID: uuid.New(), CustomerID: input.CustomerID}, nil
}

type stubOutboxPublisher struct {
	events []outbox.DomainEvent
}

func (s *stubOutboxPublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubCodeGenerator struct {
	next int
}

func (s *stubCodeGenerator) Next(ctx context.Context) (string, error) {
	s.next++
	return "VN-20260315-000001", nil
}

func fixedNow() time.Time {
	return time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)
}

type testDeps struct {
	repo           *stubOrdersRepo
	vendorWallet   *stubVendorWallet
	customerWallet *stubCustomerWallet
	outbox         *stubOutboxPublisher
}

func newTestService(t *testing.T, repo *stubOrdersRepo, holdFunds bool) (Service, *testDeps) {
	t.Helper()
	deps := &testDeps{
		repo:           repo,
		vendorWallet:   &stubVendorWallet{},
		customerWallet: &stubCustomerWallet{},
		outbox:         &stubOutboxPublisher{},
	}
	settlement := config.SettlementConfig{
		HoldFunds:        holdFunds,
		ReturnWindowDays: 7,
		CommissionRate:   decimal.RequireFromString("0.10"),
	}
	svc, err := NewService(repo, stubTxRunner{}, deps.outbox, deps.vendorWallet, deps.customerWallet, &stubCodeGenerator{}, settlement, nil, fixedNow)
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	return svc, deps
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected app error, got %v", err)
	}
	if appErr.Code() != code {
		t.Fatalf("expected code %s, got %s", code, appErr.Code())
	}
}

func pendingOrder(customerID uuid.UUID) *models.Order {
	return &models.Order{
		ID:            uuid.New(),
		Code:          "VN-20260314-000007",
		CustomerID:    customerID,
		Status:        enums.OrderStatusPending,
		PaymentStatus: enums.PaymentStatusCompleted,
		SubtotalCents: 1000,
		TotalCents:    1000,
	}
}

func TestChangeStatusRejectsDisallowedTransition(t *testing.T) {
	customerID := uuid.New()
	repo := &stubOrdersRepo{order: pendingOrder(customerID)}
	svc, deps := newTestService(t, repo, true)

	_, err := svc.ChangeStatus(context.Background(), ChangeStatusInput{
		Ref:       OrderRef{ID: repo.order.ID},
		NewStatus: enums.OrderStatusDelivered,
		Actor:     ActorContext{UserID: customerID, Role: enums.ActorRoleUser},
	})
	assertCode(t, err, pkgerrors.CodeStateConflict)
	if repo.order.Status != enums.OrderStatusPending {
		t.Fatalf("order should be unchanged, got %s", repo.order.Status)
	}
	if len(repo.history) != 0 {
		t.Fatalf("no history expected, got %d entries", len(repo.history))
	}
	if len(deps.outbox.events) != 0 {
		t.Fatalf("no events expected, got %d", len(deps.outbox.events))
	}
}

func TestChangeStatusAppendsHistory(t *testing.T) {
	vendorID := uuid.New()
	actorID := uuid.New()
	repo := &stubOrdersRepo{
		order: pendingOrder(uuid.New()),
		breakdown: []models.OrderVendorBreakdown{{
			VendorID:      vendorID,
			SubtotalCents: 1000,
		}},
	}
	svc, deps := newTestService(t, repo, true)

	updated, err := svc.ChangeStatus(context.Background(), ChangeStatusInput{
		Ref:       OrderRef{ID: repo.order.ID},
		NewStatus: enums.OrderStatusProcessing,
		Actor:     ActorContext{UserID: actorID, VendorID: &vendorID, Role: enums.ActorRoleVendor},
	})
	if err != nil {
		t.Fatalf("change status failed: %v", err)
	}
	if updated.Status != enums.OrderStatusProcessing {
		t.Fatalf("expected processing, got %s", updated.Status)
	}
	if len(repo.history) != 1 {
		t.Fatalf("expected one history entry, got %d", len(repo.history))
	}
	entry := repo.history[0]
	if entry.Status != enums.OrderStatusProcessing || entry.ActorID != actorID || entry.ActorRole != enums.ActorRoleVendor {
		t.Fatalf("unexpected history entry: %+v", entry)
	}
	if len(deps.outbox.events) != 1 || deps.outbox.events[0].EventType != enums.EventOrderStatusChanged {
		t.Fatalf("expected status changed event, got %+v", deps.outbox.events)
	}
}

func TestChangeStatusRejectsSameStatus(t *testing.T) {
	customerID := uuid.New()
	repo := &stubOrdersRepo{order: pendingOrder(customerID)}
	svc, deps := newTestService(t, repo, true)

	for _, actor := range []ActorContext{
		{UserID: customerID, Role: enums.ActorRoleUser},
		{UserID: uuid.New(), Role: enums.ActorRoleAdmin},
	} {
		_, err := svc.ChangeStatus(context.Background(), ChangeStatusInput{
			Ref:       OrderRef{ID: repo.order.ID},
			NewStatus: enums.OrderStatusPending,
			Actor:     actor,
		})
		assertCode(t, err, pkgerrors.CodeStateConflict)
	}
	if len(repo.history) != 0 || len(deps.outbox.events) != 0 {
		t.Fatal("rejected transition should write nothing")
	}
}

func TestChangeStatusRepeatedDeliveryConfirmationNoOp(t *testing.T) {
	order := pendingOrder(uuid.New())
	order.Status = enums.OrderStatusDelivered
	repo := &stubOrdersRepo{order: order}
	svc, deps := newTestService(t, repo, true)

	updated, err := svc.ChangeStatus(context.Background(), ChangeStatusInput{
		Ref:       OrderRef{ID: order.ID},
		NewStatus: enums.OrderStatusDelivered,
		Actor:     ActorContext{UserID: uuid.New(), Role: enums.ActorRoleAdmin},
	})
	if err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
	if updated.Status != enums.OrderStatusDelivered {
		t.Fatalf("unexpected status %s", updated.Status)
	}
	if len(repo.history) != 0 || len(deps.outbox.events) != 0 {
		t.Fatal("repeated confirmation should write nothing")
	}
}

func TestDeliveryHoldsFundsUnderHoldPolicy(t *testing.T) {
	vendorID := uuid.New()
	order := pendingOrder(uuid.New())
	order.Status = enums.OrderStatusDispatched
	repo := &stubOrdersRepo{
		order: order,
		breakdown: []models.OrderVendorBreakdown{{
			VendorID:        vendorID,
			SubtotalCents:   1000,
			CommissionCents: 100,
		}},
	}
	svc, deps := newTestService(t, repo, true)

	updated, err := svc.ChangeStatus(context.Background(), ChangeStatusInput{
		Ref:       OrderRef{ID: order.ID},
		NewStatus: enums.OrderStatusDelivered,
		Actor:     ActorContext{UserID: uuid.New(), VendorID: &vendorID, Role: enums.ActorRoleVendor},
	})
	if err != nil {
		t.Fatalf("delivery failed: %v", err)
	}
	if len(deps.vendorWallet.calls) != 1 {
		t.Fatalf("expected one wallet call, got %d", len(deps.vendorWallet.calls))
	}
	call := deps.vendorWallet.calls[0]
	if !call.pending {
		t.Fatal("hold policy should credit pending")
	}
	if call.input.AmountCents != 900 {
		t.Fatalf("expected earnings 900, got %d", call.input.AmountCents)
	}
	if updated.FundsReleased {
		t.Fatal("funds should stay held until the sweep")
	}
	if updated.TrackingDeliveredAt == nil || !updated.TrackingDeliveredAt.Equal(fixedNow()) {
		t.Fatalf("delivered timestamp not stamped: %v", updated.TrackingDeliveredAt)
	}
	want := fixedNow().Add(7 * 24 * time.Hour)
	if updated.ReturnWindowExpiresAt == nil || !updated.ReturnWindowExpiresAt.Equal(want) {
		t.Fatalf("expected window expiry %v, got %v", want, updated.ReturnWindowExpiresAt)
	}
}

func TestDeliveryCreditsDirectlyUnderDirectPolicy(t *testing.T) {
	vendorID := uuid.New()
	order := pendingOrder(uuid.New())
	order.Status = enums.OrderStatusDispatched
	repo := &stubOrdersRepo{
		order: order,
		breakdown: []models.OrderVendorBreakdown{{
			VendorID:        vendorID,
			SubtotalCents:   1000,
			CommissionCents: 100,
		}},
	}
	svc, deps := newTestService(t, repo, false)

	updated, err := svc.ChangeStatus(context.Background(), ChangeStatusInput{
		Ref:       OrderRef{ID: order.ID},
		NewStatus: enums.OrderStatusDelivered,
		Actor:     ActorContext{UserID: uuid.New(), VendorID: &vendorID, Role: enums.ActorRoleVendor},
	})
	if err != nil {
		t.Fatalf("delivery failed: %v", err)
	}
	if len(deps.vendorWallet.calls) != 1 || deps.vendorWallet.calls[0].pending {
		t.Fatalf("direct policy should credit balance, got %+v", deps.vendorWallet.calls)
	}
	if deps.vendorWallet.calls[0].input.AmountCents != 900 {
		t.Fatalf("expected earnings 900, got %d", deps.vendorWallet.calls[0].input.AmountCents)
	}
	if !updated.FundsReleased {
		t.Fatal("direct policy should release funds immediately")
	}
}

func TestRedeliverySettlesOnlyOnce(t *testing.T) {
	vendorID := uuid.New()
	order := pendingOrder(uuid.New())
	order.Status = enums.OrderStatusDispatched
	repo := &stubOrdersRepo{
		order: order,
		breakdown: []models.OrderVendorBreakdown{{
			VendorID:        vendorID,
			SubtotalCents:   1000,
			CommissionCents: 100,
		}},
	}
	svc, deps := newTestService(t, repo, true)
	actor := ActorContext{UserID: uuid.New(), Role: enums.ActorRoleAdmin}

	if _, err := svc.ChangeStatus(context.Background(), ChangeStatusInput{
		Ref: OrderRef{ID: order.ID}, NewStatus: enums.OrderStatusDelivered, Actor: actor,
	}); err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}

	// Force the order back and redeliver; the tracking timestamp guard must
	// keep the wallet untouched.
	repo.order.Status = enums.OrderStatusOutForDelivery
	if _, err := svc.ChangeStatus(context.Background(), ChangeStatusInput{
		Ref: OrderRef{ID: order.ID}, NewStatus: enums.OrderStatusDelivered, Actor: actor,
	}); err != nil {
		t.Fatalf("second delivery failed: %v", err)
	}

	if len(deps.vendorWallet.calls) != 1 {
		t.Fatalf("expected exactly one settlement, got %d", len(deps.vendorWallet.calls))
	}
}

func TestDeliveryWalletFailureAborts(t *testing.T) {
	vendorID := uuid.New()
	order := pendingOrder(uuid.New())
	order.Status = enums.OrderStatusDispatched
	repo := &stubOrdersRepo{
		order: order,
		breakdown: []models.OrderVendorBreakdown{{
			VendorID:        vendorID,
			SubtotalCents:   1000,
			CommissionCents: 100,
		}},
	}
	svc, deps := newTestService(t, repo, true)
	deps.vendorWallet.err = pkgerrors.New(pkgerrors.CodeDependency, "wallet unavailable")

	_, err := svc.ChangeStatus(context.Background(), ChangeStatusInput{
		Ref:       OrderRef{ID: order.ID},
		NewStatus: enums.OrderStatusDelivered,
		Actor:     ActorContext{UserID: uuid.New(), Role: enums.ActorRoleAdmin},
	})
	if err == nil {
		t.Fatal("expected delivery to fail when the wallet mutation fails")
	}
}

func TestCancellationRefundsPaidOrder(t *testing.T) {
	customerID := uuid.New()
	couponID := uuid.New()
	order := pendingOrder(customerID)
	order.TotalCents = 500
	order.CouponID = &couponID
	repo := &stubOrdersRepo{order: order}
	svc, deps := newTestService(t, repo, true)

	reason := "customer asked before shipping"
	updated, err := svc.ChangeStatus(context.Background(), ChangeStatusInput{
		Ref:       OrderRef{ID: order.ID},
		NewStatus: enums.OrderStatusCancelled,
		Actor:     ActorContext{UserID: uuid.New(), Role: enums.ActorRoleAdmin},
		Note:      &reason,
	})
	if err != nil {
		t.Fatalf("cancellation failed: %v", err)
	}
	if len(deps.customerWallet.credits) != 1 || deps.customerWallet.credits[0].AmountCents != 500 {
		t.Fatalf("expected customer credit of 500, got %+v", deps.customerWallet.credits)
	}
	if len(repo.refunds) != 1 || repo.refunds[0].AmountCents != 500 {
		t.Fatalf("expected refund transaction of 500, got %+v", repo.refunds)
	}
	if len(repo.couponDecrements) != 1 || repo.couponDecrements[0] != couponID {
		t.Fatalf("expected coupon usage returned, got %+v", repo.couponDecrements)
	}
	if updated.PaymentStatus != enums.PaymentStatusRefunded {
		t.Fatalf("expected payment refunded, got %s", updated.PaymentStatus)
	}
	if updated.CancellationRefundCents == nil || *updated.CancellationRefundCents != 500 {
		t.Fatalf("expected refund amount stamped, got %+v", updated.CancellationRefundCents)
	}
	if updated.CancelledAt == nil {
		t.Fatal("expected cancelled timestamp")
	}

	foundCancelled := false
	for _, event := range deps.outbox.events {
		if event.EventType == enums.EventOrderCancelled {
			foundCancelled = true
		}
	}
	if !foundCancelled {
		t.Fatalf("expected order cancelled event, got %+v", deps.outbox.events)
	}
}

func TestCancellationRefundAppliesOnce(t *testing.T) {
	customerID := uuid.New()
	order := pendingOrder(customerID)
	already := fixedNow().Add(-time.Hour)
	order.CancelledAt = &already
	order.Status = enums.OrderStatusCancellationRequested
	repo := &stubOrdersRepo{order: order}
	svc, deps := newTestService(t, repo, true)

	_, err := svc.ChangeStatus(context.Background(), ChangeStatusInput{
		Ref:       OrderRef{ID: order.ID},
		NewStatus: enums.OrderStatusCancelled,
		Actor:     ActorContext{UserID: uuid.New(), Role: enums.ActorRoleAdmin},
	})
	if err != nil {
		t.Fatalf("re-cancellation failed: %v", err)
	}
	if len(deps.customerWallet.credits) != 0 {
		t.Fatalf("refund should not re-apply, got %+v", deps.customerWallet.credits)
	}
}

func TestCancellationRejectedRevertsToOriginalStatus(t *testing.T) {
	customerID := uuid.New()
	order := pendingOrder(customerID)
	original := enums.OrderStatusProcessing
	order.Status = enums.OrderStatusCancellationRequested
	order.CancellationRequestOriginalStatus = &original
	repo := &stubOrdersRepo{order: order}
	svc, _ := newTestService(t, repo, true)

	updated, err := svc.ChangeStatus(context.Background(), ChangeStatusInput{
		Ref:       OrderRef{ID: order.ID},
		NewStatus: enums.OrderStatusCancellationRejected,
		Actor:     ActorContext{UserID: uuid.New(), Role: enums.ActorRoleAdmin},
	})
	if err != nil {
		t.Fatalf("rejection failed: %v", err)
	}
	if updated.Status != enums.OrderStatusProcessing {
		t.Fatalf("expected revert to processing, got %s", updated.Status)
	}
	if updated.CancellationRequestResolution == nil || *updated.CancellationRequestResolution != "rejected" {
		t.Fatalf("expected rejected resolution, got %+v", updated.CancellationRequestResolution)
	}
	if len(repo.history) != 2 {
		t.Fatalf("expected rejection plus revert history entries, got %d", len(repo.history))
	}
	if repo.history[0].Status != enums.OrderStatusCancellationRejected || repo.history[1].Status != enums.OrderStatusProcessing {
		t.Fatalf("unexpected history order: %+v", repo.history)
	}
}

func TestRequestCancellationStoresOriginalStatus(t *testing.T) {
	customerID := uuid.New()
	order := pendingOrder(customerID)
	order.Status = enums.OrderStatusProcessing
	repo := &stubOrdersRepo{order: order}
	svc, _ := newTestService(t, repo, true)

	updated, err := svc.RequestCancellation(context.Background(), RequestCancellationInput{
		Ref:        OrderRef{Code: order.Code},
		CustomerID: customerID,
	})
	if err != nil {
		t.Fatalf("request cancellation failed: %v", err)
	}
	if updated.Status != enums.OrderStatusCancellationRequested {
		t.Fatalf("expected cancellation_requested, got %s", updated.Status)
	}
	if updated.CancellationRequestOriginalStatus == nil || *updated.CancellationRequestOriginalStatus != enums.OrderStatusProcessing {
		t.Fatalf("expected original status stored, got %+v", updated.CancellationRequestOriginalStatus)
	}
	if updated.CancellationRequestedAt == nil {
		t.Fatal("expected requested timestamp")
	}
}

func TestRequestCancellationRejectsShippedOrders(t *testing.T) {
	customerID := uuid.New()
	order := pendingOrder(customerID)
	order.Status = enums.OrderStatusShipped
	repo := &stubOrdersRepo{order: order}
	svc, _ := newTestService(t, repo, true)

	_, err := svc.RequestCancellation(context.Background(), RequestCancellationInput{
		Ref:        OrderRef{ID: order.ID},
		CustomerID: customerID,
	})
	assertCode(t, err, pkgerrors.CodeStateConflict)
}

func TestRequestCancellationForeignOrder(t *testing.T) {
	order := pendingOrder(uuid.New())
	repo := &stubOrdersRepo{order: order}
	svc, _ := newTestService(t, repo, true)

	_, err := svc.RequestCancellation(context.Background(), RequestCancellationInput{
		Ref:        OrderRef{ID: order.ID},
		CustomerID: uuid.New(),
	})
	assertCode(t, err, pkgerrors.CodeForbidden)
}

func TestCreateOrderComputesTotalsAndCommission(t *testing.T) {
	customerID := uuid.New()
	vendorA := uuid.New()
	vendorB := uuid.New()
	repo := &stubOrdersRepo{}
	svc, _ := newTestService(t, repo, true)

	order, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID: customerID,
		Items: []CreateOrderItemInput{
			{ProductID: uuid.New(), ProductName: "alpha", VendorID: vendorA, Qty: 2, UnitPriceCents: 250},
			{ProductID: uuid.New(), ProductName: "beta", VendorID: vendorB, Qty: 1, UnitPriceCents: 1000},
		},
		ShippingCents: 300,
		TaxCents:      150,
		PaymentStatus: enums.PaymentStatusCompleted,
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if order.SubtotalCents != 1500 {
		t.Fatalf("expected subtotal 1500, got %d", order.SubtotalCents)
	}
	if order.TotalCents != 1950 {
		t.Fatalf("expected total 1950, got %d", order.TotalCents)
	}
	if order.Code != "VN-20260315-000001" {
		t.Fatalf("unexpected order code %s", order.Code)
	}
	if len(order.VendorBreakdown) != 2 {
		t.Fatalf("expected two breakdown rows, got %d", len(order.VendorBreakdown))
	}
	for _, slice := range order.VendorBreakdown {
		switch slice.VendorID {
		case vendorA:
			if slice.SubtotalCents != 500 || slice.CommissionCents != 50 {
				t.Fatalf("unexpected vendor A slice: %+v", slice)
			}
		case vendorB:
			if slice.SubtotalCents != 1000 || slice.CommissionCents != 100 {
				t.Fatalf("unexpected vendor B slice: %+v", slice)
			}
		default:
			t.Fatalf("unknown vendor in breakdown: %s", slice.VendorID)
		}
	}
	if len(order.StatusHistory) != 1 || order.StatusHistory[0].Status != enums.OrderStatusPending {
		t.Fatalf("expected initial pending history entry, got %+v", order.StatusHistory)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	svc, _ := newTestService(t, &stubOrdersRepo{}, true)

	_, err := svc.CreateOrder(context.Background(), CreateOrderInput{CustomerID: uuid.New()})
	assertCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID: uuid.New(),
		Items: []CreateOrderItemInput{
			{ProductID: uuid.New(), ProductName: "alpha", VendorID: uuid.New(), Qty: 0, UnitPriceCents: 100},
		},
	})
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestGetEnforcesActorAccess(t *testing.T) {
	customerID := uuid.New()
	vendorID := uuid.New()
	order := pendingOrder(customerID)
	repo := &stubOrdersRepo{
		order: order,
		breakdown: []models.OrderVendorBreakdown{{
			VendorID:      vendorID,
			SubtotalCents: 1000,
		}},
	}
	svc, _ := newTestService(t, repo, true)
	ref := OrderRef{ID: order.ID}

	if _, err := svc.Get(context.Background(), ref, ActorContext{UserID: customerID, Role: enums.ActorRoleUser}); err != nil {
		t.Fatalf("owner read failed: %v", err)
	}
	if _, err := svc.Get(context.Background(), ref, ActorContext{UserID: uuid.New(), VendorID: &vendorID, Role: enums.ActorRoleVendor}); err != nil {
		t.Fatalf("vendor read failed: %v", err)
	}
	otherVendor := uuid.New()
	_, err := svc.Get(context.Background(), ref, ActorContext{UserID: uuid.New(), VendorID: &otherVendor, Role: enums.ActorRoleVendor})
	assertCode(t, err, pkgerrors.CodeForbidden)
	_, err = svc.Get(context.Background(), ref, ActorContext{UserID: uuid.New(), Role: enums.ActorRoleUser})
	assertCode(t, err, pkgerrors.CodeForbidden)
}
