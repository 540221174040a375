package returns

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mfigueredo/vendora-backend/internal/customerwallet"
	"github.com/mfigueredo/vendora-backend/internal/orders"
	"github.com/mfigueredo/vendora-backend/internal/wallet"
	"github.com/mfigueredo/vendora-backend/pkg/config"
	dbpkg "github.com/mfigueredo/vendora-backend/pkg/db"
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
	DebitPendingOrBalanceTx(ctx context.Context, tx *gorm.DB, input wallet.MutationInput) (*models.WalletTransaction, error)
}

type customerWalletService interface {
	CreditTx(ctx context.Context, tx *gorm.DB, input customerwallet.MutationInput) (*models.CustomerWalletTransaction, error)
}

// Service drives the return request workflow: eligibility, creation,
// policy-based auto approval, refund processing, and staff overrides.
type Service interface {
	CreateReturnRequest(ctx context.Context, input CreateReturnInput) (*models.ReturnRequest, error)
	ProcessRefund(ctx context.Context, requestID uuid.UUID, actor ActorContext) (*models.ReturnRequest, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.ReturnRequest, error)
	Get(ctx context.Context, id uuid.UUID, actor ActorContext) (*models.ReturnRequest, error)
	List(ctx context.Context, input ListInput) (*ReturnList, error)
}

// ActorContext identifies the authenticated caller for return operations.
type ActorContext struct {
	UserID   uuid.UUID
	VendorID *uuid.UUID
	Role     enums.ActorRole
}

// ReturnItemInput is one requested return line.
type ReturnItemInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Qty       int       `json:"qty" validate:"required,gt=0"`
	Reason    *string   `json:"reason,omitempty"`
}

// CreateReturnInput captures a customer's return request.
type CreateReturnInput struct {
	CustomerID uuid.UUID
	OrderRef   orders.OrderRef
	Items      []ReturnItemInput
	Reason     string
}

// UpdateStatusInput captures a staff override of a return's status.
type UpdateStatusInput struct {
	RequestID       uuid.UUID
	NewStatus       enums.ReturnStatus
	Actor           ActorContext
	Note            *string
	RejectionReason *string
}

// ListInput filters a return request listing.
type ListInput struct {
	CustomerID *uuid.UUID
	VendorID   *uuid.UUID
	Status     *enums.ReturnStatus
	Params     pagination.Params
}

// ReturnList wraps the paginated return requests.
type ReturnList struct {
	Returns    []models.ReturnRequest `json:"returns"`
	NextCursor string                 `json:"next_cursor,omitempty"`
}

type service struct {
	repo           Repository
	orders         orders.Repository
	tx             txRunner
	outbox         outboxPublisher
	vendorWallet   vendorWalletService
	customerWallet customerWalletService
	policy         config.ReturnPolicyConfig
	settlement     config.SettlementConfig
	logg           *logger.Logger
	now            func() time.Time
}

// NewService builds a returns service with the required dependencies.
func NewService(
	repo Repository,
	ordersRepo orders.Repository,
	tx txRunner,
	outboxSvc outboxPublisher,
	vendorWallet vendorWalletService,
	customerWallet customerWalletService,
	policy config.ReturnPolicyConfig,
	settlement config.SettlementConfig,
	logg *logger.Logger,
	now func() time.Time,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("returns repository required")
	}
	if ordersRepo == nil {
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
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:           repo,
		orders:         ordersRepo,
		tx:             tx,
		outbox:         outboxSvc,
		vendorWallet:   vendorWallet,
		customerWallet: customerWallet,
		policy:         policy,
		settlement:     settlement,
		logg:           logg,
		now:            now,
	}, nil
}

func (s *service) CreateReturnRequest(ctx context.Context, input CreateReturnInput) (*models.ReturnRequest, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return needs at least one item")
	}
	if input.Reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return reason required")
	}
	for _, item := range input.Items {
		if item.ProductID == uuid.Nil || item.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item product id and qty required")
		}
	}

	autoApprove := false
	var request *models.ReturnRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ordersRepo := s.orders.WithTx(tx)

		order, err := ordersRepo.FindByRefForUpdate(ctx, input.OrderRef)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if err := s.checkEligibility(ctx, repo, ordersRepo, order, input.CustomerID); err != nil {
			return err
		}

		orderItems, err := ordersRepo.LoadItems(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
		}
		items, vendorID, refundAmount, err := matchReturnItems(input.Items, orderItems)
		if err != nil {
			return err
		}

		request = &models.ReturnRequest{
			OrderID:           order.ID,
			CustomerID:        input.CustomerID,
			VendorID:          vendorID,
			Reason:            input.Reason,
			RefundAmountCents: refundAmount,
			Status:            enums.ReturnStatusPending,
			RefundStatus:      enums.RefundStatusPending,
			Items:             items,
			StatusHistory: []models.ReturnStatusHistory{{
				Status:    enums.ReturnStatusPending,
				ActorID:   input.CustomerID,
				ActorRole: enums.ActorRoleUser,
			}},
		}
		if err := repo.Create(ctx, request); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create return request")
		}

		autoApprove = s.policy.AutoApproveEnabled && int64(refundAmount) <= s.policy.AutoApproveMaxCents
		if autoApprove {
			request.Status = enums.ReturnStatusApproved
			note := "auto-approved under return policy"
			if err := repo.AppendHistory(ctx, &models.ReturnStatusHistory{
				ReturnRequestID: request.ID,
				Status:          enums.ReturnStatusApproved,
				ActorID:         input.CustomerID,
				ActorRole:       enums.ActorRoleUser,
				Note:            &note,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append return history")
			}
			if err := repo.Save(ctx, request); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update return request")
			}
		}

		return s.emit(ctx, tx, request, enums.EventReturnRequested, ActorContext{
			UserID: input.CustomerID,
			Role:   enums.ActorRoleUser,
		}, payloads.ReturnRequestedEvent{
			ReturnRequestID: request.ID,
			OrderID:         order.ID,
			OrderCode:       order.Code,
			CustomerID:      input.CustomerID,
			VendorID:        vendorID,
			AmountCents:     int64(refundAmount),
			Status:          request.Status,
			AutoApproved:    autoApprove,
		})
	})
	if err != nil {
		return nil, err
	}

	// The auto-approved refund runs after creation commits. A failure leaves
	// refund_status=failed for manual retry instead of failing the creation.
	if autoApprove {
		processed, err := s.ProcessRefund(ctx, request.ID, ActorContext{
			UserID: input.CustomerID,
			Role:   enums.ActorRoleUser,
		})
		if err != nil {
			s.markRefundFailed(ctx, request.ID, err)
			request.RefundStatus = enums.RefundStatusFailed
			return request, nil
		}
		return processed, nil
	}
	return request, nil
}

func (s *service) markRefundFailed(ctx context.Context, requestID uuid.UUID, cause error) {
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"return_request_id": requestID.String(),
			"error":             cause.Error(),
		})
		s.logg.Warn(logCtx, "immediate refund failed, left for manual retry")
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		request, err := repo.FindByIDForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		request.RefundStatus = enums.RefundStatusFailed
		return repo.Save(ctx, request)
	})
	if err != nil && s.logg != nil {
		s.logg.Error(ctx, "marking refund failed", err)
	}
}

func (s *service) ProcessRefund(ctx context.Context, requestID uuid.UUID, actor ActorContext) (*models.ReturnRequest, error) {
	if requestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return request id required")
	}
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var request *models.ReturnRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ordersRepo := s.orders.WithTx(tx)

		found, err := repo.FindByIDForUpdate(ctx, requestID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "return request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load return request")
		}
		if found.RefundStatus == enums.RefundStatusProcessed {
			return pkgerrors.New(pkgerrors.CodeAlreadyProcessed, "refund already processed")
		}
		if found.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "return request is closed")
		}

		order, err := ordersRepo.FindByRefForUpdate(ctx, orders.OrderRef{ID: found.OrderID})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		refund := &models.RefundTransaction{
			OrderID:         found.OrderID,
			ReturnRequestID: &found.ID,
			CustomerID:      found.CustomerID,
			VendorID:        &found.VendorID,
			AmountCents:     found.RefundAmountCents,
			Status:          enums.RefundStatusProcessing,
		}
		if err := repo.CreateRefundTransaction(ctx, refund); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create refund transaction")
		}

		customerEntry, err := s.customerWallet.CreditTx(ctx, tx, customerwallet.MutationInput{
			CustomerID:    found.CustomerID,
			AmountCents:   found.RefundAmountCents,
			Description:   fmt.Sprintf("refund for return on order %s", order.Code),
			ReferenceID:   &refund.ID,
			ReferenceType: enums.ReferenceTypeRefund,
		})
		if err != nil {
			return err
		}
		vendorEntry, err := s.vendorWallet.DebitPendingOrBalanceTx(ctx, tx, wallet.MutationInput{
			VendorID:      found.VendorID,
			AmountCents:   found.RefundAmountCents,
			Description:   fmt.Sprintf("refund debit for return on order %s", order.Code),
			ReferenceID:   &refund.ID,
			ReferenceType: enums.ReferenceTypeRefund,
			ActorID:       &actor.UserID,
		})
		if err != nil {
			return err
		}

		refund.CustomerEntryID = &customerEntry.ID
		refund.VendorEntryID = &vendorEntry.ID
		refund.Status = enums.RefundStatusProcessed
		if err := repo.SaveRefundTransaction(ctx, refund); err != nil {
			if dbpkg.IsUniqueViolation(err, "ux_refund_transactions_return_processed") {
				return pkgerrors.New(pkgerrors.CodeAlreadyProcessed, "refund already processed")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete refund transaction")
		}

		found.RefundStatus = enums.RefundStatusProcessed
		found.Status = enums.ReturnStatusCompleted
		if err := repo.AppendHistory(ctx, &models.ReturnStatusHistory{
			ReturnRequestID: found.ID,
			Status:          enums.ReturnStatusCompleted,
			ActorID:         actor.UserID,
			ActorRole:       actor.Role,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append return history")
		}
		if err := repo.Save(ctx, found); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update return request")
		}

		processed := enums.RefundStatusProcessed
		amount := found.RefundAmountCents
		order.CancellationRefundStatus = &processed
		order.CancellationRefundCents = &amount
		if err := ordersRepo.Save(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order refund display")
		}

		if err := s.emit(ctx, tx, found, enums.EventRefundProcessed, actor, payloads.RefundProcessedEvent{
			RefundID:        refund.ID,
			ReturnRequestID: found.ID,
			OrderID:         found.OrderID,
			CustomerID:      found.CustomerID,
			VendorID:        found.VendorID,
			AmountCents:     int64(found.RefundAmountCents),
			ProcessedAt:     s.now().UTC(),
		}); err != nil {
			return err
		}
		request = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.ReturnRequest, error) {
	if input.RequestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return request id required")
	}
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.Actor.Role != enums.ActorRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only staff may override return status")
	}
	switch input.NewStatus {
	case enums.ReturnStatusApproved, enums.ReturnStatusRejected, enums.ReturnStatusProcessing,
		enums.ReturnStatusCompleted, enums.ReturnStatusCancelled:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported target status")
	}
	if input.NewStatus == enums.ReturnStatusRejected && (input.RejectionReason == nil || *input.RejectionReason == "") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejection reason required")
	}

	var request *models.ReturnRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		found, err := repo.FindByIDForUpdate(ctx, input.RequestID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "return request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load return request")
		}
		if found.Status == input.NewStatus {
			request = found
			return nil
		}
		if found.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "return request is closed")
		}

		fromStatus := found.Status
		found.Status = input.NewStatus
		if input.NewStatus == enums.ReturnStatusRejected {
			found.RejectionReason = input.RejectionReason
			found.RefundStatus = enums.RefundStatusFailed
		}
		if err := repo.AppendHistory(ctx, &models.ReturnStatusHistory{
			ReturnRequestID: found.ID,
			Status:          input.NewStatus,
			ActorID:         input.Actor.UserID,
			ActorRole:       input.Actor.Role,
			Note:            input.Note,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append return history")
		}
		if err := repo.Save(ctx, found); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update return request")
		}

		if err := s.emit(ctx, tx, found, enums.EventReturnUpdated, input.Actor, payloads.ReturnUpdatedEvent{
			ReturnRequestID: found.ID,
			OrderID:         found.OrderID,
			CustomerID:      found.CustomerID,
			VendorID:        found.VendorID,
			FromStatus:      fromStatus,
			ToStatus:        found.Status,
			Note:            derefString(input.Note),
		}); err != nil {
			return err
		}
		request = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID, actor ActorContext) (*models.ReturnRequest, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return request id required")
	}
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "return request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load return request")
	}

	switch actor.Role {
	case enums.ActorRoleAdmin:
	case enums.ActorRoleUser:
		if request.CustomerID != actor.UserID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "return does not belong to customer")
		}
	case enums.ActorRoleVendor:
		if actor.VendorID == nil || request.VendorID != *actor.VendorID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "return does not involve vendor")
		}
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "unknown actor role")
	}
	return request, nil
}

func (s *service) List(ctx context.Context, input ListInput) (*ReturnList, error) {
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid return status filter")
	}
	cursor, err := pagination.ParseCursor(input.Params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	requests, next, err := s.repo.List(ctx, listReturnsParams{
		CustomerID: input.CustomerID,
		VendorID:   input.VendorID,
		Status:     input.Status,
		Limit:      input.Params.Limit,
		Cursor:     cursor,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list return requests")
	}

	list := &ReturnList{Returns: requests}
	if next != nil {
		list.NextCursor = pagination.EncodeCursor(*next)
	}
	return list, nil
}

// checkEligibility enforces the delivered-within-window rule and the single
// open return per order/customer pair.
func (s *service) checkEligibility(ctx context.Context, repo Repository, ordersRepo orders.Repository, order *models.Order, customerID uuid.UUID) error {
	if order.CustomerID != customerID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to customer")
	}
	if order.Status != enums.OrderStatusDelivered {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "only delivered orders can be returned")
	}

	deliveredAt := order.TrackingDeliveredAt
	if deliveredAt == nil {
		entry, err := ordersRepo.FindDeliveredHistory(ctx, order.ID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "delivery timestamp missing")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery history")
		}
		deliveredAt = &entry.CreatedAt
	}
	if s.now().UTC().After(deliveredAt.Add(s.settlement.ReturnWindow())) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "return window has expired")
	}

	open, err := repo.HasOpenReturn(ctx, order.ID, customerID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check open returns")
	}
	if open {
		return pkgerrors.New(pkgerrors.CodeDuplicateRequest, "a return is already open for this order")
	}
	return nil
}

// matchReturnItems validates requested lines against the order's items and
// attributes the whole return to a single vendor.
func matchReturnItems(requested []ReturnItemInput, orderItems []models.OrderItem) ([]models.ReturnRequestItem, uuid.UUID, int, error) {
	byProduct := make(map[uuid.UUID]models.OrderItem, len(orderItems))
	for _, item := range orderItems {
		byProduct[item.ProductID] = item
	}

	var vendorID uuid.UUID
	items := make([]models.ReturnRequestItem, 0, len(requested))
	refundAmount := 0
	for _, line := range requested {
		ordered, ok := byProduct[line.ProductID]
		if !ok {
			return nil, uuid.Nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "item was not part of the order")
		}
		if line.Qty > ordered.Qty {
			return nil, uuid.Nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "return qty exceeds ordered qty")
		}
		if vendorID == uuid.Nil {
			vendorID = ordered.VendorID
		} else if vendorID != ordered.VendorID {
			return nil, uuid.Nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "return items span multiple vendors")
		}
		refundAmount += line.Qty * ordered.UnitPriceCents
		items = append(items, models.ReturnRequestItem{
			ProductID:      ordered.ProductID,
			ProductName:    ordered.ProductName,
			Qty:            line.Qty,
			UnitPriceCents: ordered.UnitPriceCents,
			Reason:         line.Reason,
		})
	}
	return items, vendorID, refundAmount, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, request *models.ReturnRequest, eventType enums.OutboxEventType, actor ActorContext, data interface{}) error {
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateReturnRequest,
		AggregateID:   request.ID,
		Version:       1,
		Actor: &outbox.ActorRef{
			UserID:   actor.UserID,
			VendorID: actor.VendorID,
			Role:     actor.Role.String(),
		},
		Data: data,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue return event")
	}
	return nil
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
