package orders

import (
	"context"
	"fmt"
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
	"github.com/mfigueredo/vendora-backend/pkg/logger"
	"github.com/mfigueredo/vendora-backend/pkg/outbox"
	"github.com/mfigueredo/vendora-backend/pkg/outbox/payloads"
	"github.com/mfigueredo/vendora-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type vendorWalletService interface {
	CreditTx(ctx context.Context, tx *gorm.DB, input wallet.MutationInput) (*models.WalletTransaction, error)
	CreditPendingTx(ctx context.Context, tx *gorm.DB, input wallet.MutationInput) (*models.WalletTransaction, error)
}

type customerWalletService interface {
	CreditTx(ctx context.Context, tx *gorm.DB, input customerwallet.MutationInput) (*models.CustomerWalletTransaction, error)
}

// Service owns the order lifecycle. All status changes, including the money
// side effects of delivery and cancellation, go through ChangeStatus.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	ChangeStatus(ctx context.Context, input ChangeStatusInput) (*models.Order, error)
	RequestCancellation(ctx context.Context, input RequestCancellationInput) (*models.Order, error)
	Get(ctx context.Context, ref OrderRef, actor ActorContext) (*models.Order, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, input ListInput) (*OrderList, error)
	ListByVendor(ctx context.Context, vendorID uuid.UUID, input ListInput) (*OrderList, error)
}

type service struct {
	repo           Repository
	tx             txRunner
	outbox         outboxPublisher
	vendorWallet   vendorWalletService
	customerWallet customerWalletService
	codes          CodeGenerator
	settlement     config.SettlementConfig
	logg           *logger.Logger
	now            func() time.Time
}

// NewService builds an order service with the required dependencies.
func NewService(
	repo Repository,
	tx txRunner,
	outboxSvc outboxPublisher,
	vendorWallet vendorWalletService,
	customerWallet customerWalletService,
	codes CodeGenerator,
	settlement config.SettlementConfig,
	logg *logger.Logger,
	now func() time.Time,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if vendorWallet == nil {
		return nil, fmt.Errorf("vendor wallet service required")
	}
	if customerWallet == nil {
		return nil, fmt.Errorf("customer wallet service required")
	}
	if codes == nil {
		return nil, fmt.Errorf("code generator required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:           repo,
		tx:             tx,
		outbox:         outboxSvc,
		vendorWallet:   vendorWallet,
		customerWallet: customerWallet,
		codes:          codes,
		settlement:     settlement,
		logg:           logg,
		now:            now,
	}, nil
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order needs at least one item")
	}
	for _, item := range input.Items {
		if item.ProductID == uuid.Nil || item.VendorID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item product and vendor ids required")
		}
		if item.Qty <= 0 || item.UnitPriceCents <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item qty and unit price must be positive")
		}
	}
	paymentStatus := input.PaymentStatus
	if paymentStatus == "" {
		paymentStatus = enums.PaymentStatusPending
	}
	if !paymentStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment status")
	}

	code, err := s.codes.Next(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "generate order code")
	}

	items := make([]models.OrderItem, 0, len(input.Items))
	subtotal := 0
	vendorSubtotals := make(map[uuid.UUID]int)
	vendorOrder := make([]uuid.UUID, 0)
	for _, item := range input.Items {
		lineTotal := item.Qty * item.UnitPriceCents
		subtotal += lineTotal
		if _, seen := vendorSubtotals[item.VendorID]; !seen {
			vendorOrder = append(vendorOrder, item.VendorID)
		}
		vendorSubtotals[item.VendorID] += lineTotal
		items = append(items, models.OrderItem{
			ProductID:      item.ProductID,
			ProductName:    item.ProductName,
			VendorID:       item.VendorID,
			Qty:            item.Qty,
			UnitPriceCents: item.UnitPriceCents,
			TotalCents:     lineTotal,
		})
	}

	breakdown := make([]models.OrderVendorBreakdown, 0, len(vendorOrder))
	for _, vendorID := range vendorOrder {
		vendorSubtotal := vendorSubtotals[vendorID]
		breakdown = append(breakdown, models.OrderVendorBreakdown{
			VendorID:        vendorID,
			SubtotalCents:   vendorSubtotal,
			CommissionCents: commissionCents(s.settlement.CommissionRate, vendorSubtotal),
		})
	}

	order := &models.Order{
		Code:          code,
		CustomerID:    input.CustomerID,
		Status:        enums.OrderStatusPending,
		PaymentStatus: paymentStatus,
		SubtotalCents: subtotal,
		ShippingCents: input.ShippingCents,
		TaxCents:      input.TaxCents,
		DiscountCents: input.DiscountCents,
		TotalCents:    subtotal + input.ShippingCents + input.TaxCents - input.DiscountCents,
		CouponID:      input.CouponID,
		Items:         items,
		VendorBreakdown: breakdown,
		StatusHistory: []models.OrderStatusHistory{{
			Status:    enums.OrderStatusPending,
			ActorID:   input.CustomerID,
			ActorRole: enums.ActorRoleUser,
		}},
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// commissionCents applies the configured rate to a subtotal, rounded half up.
func commissionCents(rate decimal.Decimal, subtotalCents int) int {
	return int(rate.Mul(decimal.NewFromInt(int64(subtotalCents))).Round(0).IntPart())
}

func (s *service) ChangeStatus(ctx context.Context, input ChangeStatusInput) (*models.Order, error) {
	if input.Ref.isZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order reference required")
	}
	if !input.NewStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.Actor.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "unknown actor role")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByRefForUpdate(ctx, input.Ref)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		// Admin redelivery confirmations may repeat; every other same-status
		// request falls through to the transition table and is rejected there.
		if order.Status == input.NewStatus &&
			input.Actor.Role == enums.ActorRoleAdmin &&
			input.NewStatus == enums.OrderStatusDelivered {
			updated = order
			return nil
		}
		if !TransitionAllowed(input.Actor.Role, order.Status, input.NewStatus) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("%s may not move an order from %s to %s", input.Actor.Role, order.Status, input.NewStatus))
		}
		if input.Actor.Role == enums.ActorRoleUser && order.CustomerID != input.Actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to customer")
		}
		if input.Actor.Role == enums.ActorRoleVendor {
			if err := s.checkVendorOwnership(ctx, repo, order.ID, input.Actor.VendorID); err != nil {
				return err
			}
		}

		fromStatus := order.Status
		order.Status = input.NewStatus
		if err := repo.AppendHistory(ctx, s.historyEntry(order.ID, input.NewStatus, input.Actor, input.Note)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status history")
		}

		switch input.NewStatus {
		case enums.OrderStatusCancelled:
			if err := s.handleCancellation(ctx, tx, repo, order, fromStatus, input); err != nil {
				return err
			}
		case enums.OrderStatusCancellationRejected:
			if err := s.handleCancellationRejected(ctx, repo, order, input); err != nil {
				return err
			}
		case enums.OrderStatusDelivered:
			if err := s.handleDelivery(ctx, tx, repo, order, input); err != nil {
				return err
			}
		}

		if err := repo.Save(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}

		if err := s.emitStatusChanged(ctx, tx, order, fromStatus, input); err != nil {
			return err
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) RequestCancellation(ctx context.Context, input RequestCancellationInput) (*models.Order, error) {
	if input.Ref.isZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order reference required")
	}
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByRefForUpdate(ctx, input.Ref)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.CustomerID != input.CustomerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to customer")
		}
		if order.Status != enums.OrderStatusPending && order.Status != enums.OrderStatusProcessing {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cancellation may only be requested before shipping")
		}

		now := s.now().UTC()
		fromStatus := order.Status
		original := order.Status
		order.CancellationRequestOriginalStatus = &original
		order.CancellationRequestResolution = nil
		order.CancellationRequestedAt = &now
		order.Status = enums.OrderStatusCancellationRequested

		actor := ActorContext{UserID: input.CustomerID, Role: enums.ActorRoleUser}
		if err := repo.AppendHistory(ctx, s.historyEntry(order.ID, order.Status, actor, input.Reason)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status history")
		}
		if err := repo.Save(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}

		if err := s.emitStatusChanged(ctx, tx, order, fromStatus, ChangeStatusInput{
			Ref:       input.Ref,
			NewStatus: order.Status,
			Actor:     actor,
			Note:      input.Reason,
		}); err != nil {
			return err
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) Get(ctx context.Context, ref OrderRef, actor ActorContext) (*models.Order, error) {
	if ref.isZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order reference required")
	}
	order, err := s.repo.FindByRef(ctx, ref)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	switch actor.Role {
	case enums.ActorRoleAdmin:
	case enums.ActorRoleUser:
		if order.CustomerID != actor.UserID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to customer")
		}
	case enums.ActorRoleVendor:
		if actor.VendorID == nil || !breakdownContains(order.VendorBreakdown, *actor.VendorID) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not involve vendor")
		}
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "unknown actor role")
	}
	return order, nil
}

func (s *service) ListByCustomer(ctx context.Context, customerID uuid.UUID, input ListInput) (*OrderList, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	cursor, err := pagination.ParseCursor(input.Params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	orders, next, err := s.repo.ListByCustomer(ctx, customerID, input.Params.Limit, cursor, input.Status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return buildOrderList(orders, next), nil
}

func (s *service) ListByVendor(ctx context.Context, vendorID uuid.UUID, input ListInput) (*OrderList, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	cursor, err := pagination.ParseCursor(input.Params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	orders, next, err := s.repo.ListByVendor(ctx, vendorID, input.Params.Limit, cursor, input.Status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return buildOrderList(orders, next), nil
}

func buildOrderList(orders []models.Order, next *pagination.Cursor) *OrderList {
	list := &OrderList{Orders: orders}
	if next != nil {
		list.NextCursor = pagination.EncodeCursor(*next)
	}
	return list
}

// handleCancellation stamps the cancellation record once and refunds paid
// orders to the customer wallet. The "no cancellation record yet" check keeps
// the refund from double-applying when an admin re-cancels.
func (s *service) handleCancellation(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, fromStatus enums.OrderStatus, input ChangeStatusInput) error {
	now := s.now().UTC()
	if fromStatus == enums.OrderStatusCancellationRequested {
		resolution := "approved"
		order.CancellationRequestResolution = &resolution
	}
	if order.CancelledAt != nil {
		return nil
	}

	order.CancelledAt = &now
	order.CancellationReason = input.Note
	if order.CouponID != nil {
		if err := repo.DecrementCouponUsage(ctx, *order.CouponID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "return coupon usage")
		}
	}

	refundedCents := 0
	walletRefunded := false
	if order.PaymentStatus == enums.PaymentStatusCompleted && order.TotalCents > 0 {
		refund := &models.RefundTransaction{
			OrderID:     order.ID,
			CustomerID:  order.CustomerID,
			AmountCents: order.TotalCents,
			Status:      enums.RefundStatusProcessing,
		}
		if err := repo.CreateRefundTransaction(ctx, refund); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create refund transaction")
		}

		entry, err := s.customerWallet.CreditTx(ctx, tx, customerwallet.MutationInput{
			CustomerID:    order.CustomerID,
			AmountCents:   order.TotalCents,
			Description:   fmt.Sprintf("refund for cancelled order %s", order.Code),
			ReferenceID:   &refund.ID,
			ReferenceType: enums.ReferenceTypeRefund,
		})
		if err != nil {
			return err
		}

		refund.CustomerEntryID = &entry.ID
		refund.Status = enums.RefundStatusProcessed
		if err := repo.SaveRefundTransaction(ctx, refund); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete refund transaction")
		}

		processed := enums.RefundStatusProcessed
		order.PaymentStatus = enums.PaymentStatusRefunded
		order.CancellationRefundStatus = &processed
		amount := order.TotalCents
		order.CancellationRefundCents = &amount
		refundedCents = amount
		walletRefunded = true
	}

	return s.emitEvent(ctx, tx, order, enums.EventOrderCancelled, input.Actor, payloads.OrderCancelledEvent{
		OrderID:        order.ID,
		OrderCode:      order.Code,
		CustomerID:     order.CustomerID,
		CancelledAt:    now,
		Reason:         derefString(input.Note),
		RefundedCents:  int64(refundedCents),
		WalletRefunded: walletRefunded,
	})
}

// handleCancellationRejected reverts the order to the status it held before
// the cancellation request and records the rejection in history.
func (s *service) handleCancellationRejected(ctx context.Context, repo Repository, order *models.Order, input ChangeStatusInput) error {
	if order.CancellationRequestOriginalStatus == nil {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "no cancellation request to reject")
	}

	resolution := "rejected"
	order.CancellationRequestResolution = &resolution
	order.Status = *order.CancellationRequestOriginalStatus

	note := fmt.Sprintf("cancellation request rejected, order restored to %s", order.Status)
	return wrapDependency(
		repo.AppendHistory(ctx, s.historyEntry(order.ID, order.Status, input.Actor, &note)),
		"append status history",
	)
}

// handleDelivery settles vendor earnings exactly once per order, guarded by
// tracking_delivered_at. Redeliveries keep the history entry but skip money.
func (s *service) handleDelivery(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, input ChangeStatusInput) error {
	if order.TrackingDeliveredAt != nil {
		return nil
	}

	now := s.now().UTC()
	windowExpires := now.Add(s.settlement.ReturnWindow())
	order.TrackingDeliveredAt = &now
	order.ReturnWindowExpiresAt = &windowExpires

	breakdown, err := repo.LoadBreakdown(ctx, order.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor breakdown")
	}

	for _, slice := range breakdown {
		earnings := slice.EarningsCents()
		if earnings <= 0 {
			continue
		}
		mutation := wallet.MutationInput{
			VendorID:      slice.VendorID,
			AmountCents:   earnings,
			ReferenceID:   &order.ID,
			ReferenceType: enums.ReferenceTypeOrder,
			ActorID:       &input.Actor.UserID,
		}
		if s.settlement.HoldFunds {
			mutation.Description = fmt.Sprintf("earnings held for order %s", order.Code)
			if _, err := s.vendorWallet.CreditPendingTx(ctx, tx, mutation); err != nil {
				return err
			}
		} else {
			mutation.Description = fmt.Sprintf("earnings for order %s", order.Code)
			if _, err := s.vendorWallet.CreditTx(ctx, tx, mutation); err != nil {
				return err
			}
		}
	}
	if !s.settlement.HoldFunds {
		order.FundsReleased = true
	}

	return s.emitEvent(ctx, tx, order, enums.EventOrderDelivered, input.Actor, payloads.OrderDeliveredEvent{
		OrderID:       order.ID,
		OrderCode:     order.Code,
		CustomerID:    order.CustomerID,
		DeliveredAt:   now,
		WindowExpires: windowExpires,
		FundsHeld:     s.settlement.HoldFunds,
	})
}

func (s *service) checkVendorOwnership(ctx context.Context, repo Repository, orderID uuid.UUID, vendorID *uuid.UUID) error {
	if vendorID == nil {
		return pkgerrors.New(pkgerrors.CodeForbidden, "vendor context missing")
	}
	breakdown, err := repo.LoadBreakdown(ctx, orderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor breakdown")
	}
	if !breakdownContains(breakdown, *vendorID) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "order does not involve vendor")
	}
	return nil
}

func breakdownContains(breakdown []models.OrderVendorBreakdown, vendorID uuid.UUID) bool {
	for _, slice := range breakdown {
		if slice.VendorID == vendorID {
			return true
		}
	}
	return false
}

func (s *service) historyEntry(orderID uuid.UUID, status enums.OrderStatus, actor ActorContext, note *string) *models.OrderStatusHistory {
	return &models.OrderStatusHistory{
		OrderID:   orderID,
		Status:    status,
		ActorID:   actor.UserID,
		ActorRole: actor.Role,
		Note:      note,
	}
}

func (s *service) emitStatusChanged(ctx context.Context, tx *gorm.DB, order *models.Order, fromStatus enums.OrderStatus, input ChangeStatusInput) error {
	return s.emitEvent(ctx, tx, order, enums.EventOrderStatusChanged, input.Actor, payloads.OrderStatusChangedEvent{
		OrderID:    order.ID,
		OrderCode:  order.Code,
		CustomerID: order.CustomerID,
		FromStatus: fromStatus,
		ToStatus:   order.Status,
		ActorRole:  input.Actor.Role,
		Note:       derefString(input.Note),
	})
}

func (s *service) emitEvent(ctx context.Context, tx *gorm.DB, order *models.Order, eventType enums.OutboxEventType, actor ActorContext, data interface{}) error {
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		Actor: &outbox.ActorRef{
			UserID:   actor.UserID,
			VendorID: actor.VendorID,
			Role:     actor.Role.String(),
		},
		Data: data,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue order event")
	}
	return nil
}

func wrapDependency(err error, message string) error {
	if err == nil {
		return nil
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
