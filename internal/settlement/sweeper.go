package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/mfigueredo/vendora-backend/internal/orders"
	"github.com/mfigueredo/vendora-backend/internal/wallet"
	"github.com/mfigueredo/vendora-backend/pkg/config"
	"github.com/mfigueredo/vendora-backend/pkg/db/models"
	"github.com/mfigueredo/vendora-backend/pkg/enums"
	"github.com/mfigueredo/vendora-backend/pkg/logger"
	"github.com/mfigueredo/vendora-backend/pkg/outbox"
	"github.com/mfigueredo/vendora-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type vendorWalletService interface {
	ReleasePendingOrCreditTx(ctx context.Context, tx *gorm.DB, input wallet.MutationInput) (*models.WalletTransaction, error)
}

// Result summarizes one settlement sweep.
type Result struct {
	Scanned  int `json:"scanned"`
	Released int `json:"released"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// Sweeper releases held vendor earnings for delivered orders once the return
// window has closed. Each order settles in its own transaction so one failure
// does not block the rest of the batch.
type Sweeper struct {
	repo         Repository
	orders       orders.Repository
	tx           txRunner
	outbox       outboxPublisher
	vendorWallet vendorWalletService
	cfg          config.SettlementConfig
	logg         *logger.Logger
	now          func() time.Time
}

// NewSweeper builds a settlement sweeper with the required dependencies.
func NewSweeper(
	repo Repository,
	ordersRepo orders.Repository,
	tx txRunner,
	outboxSvc outboxPublisher,
	vendorWallet vendorWalletService,
	cfg config.SettlementConfig,
	logg *logger.Logger,
	now func() time.Time,
) (*Sweeper, error) {
	if repo == nil {
		return nil, fmt.Errorf("settlement repository required")
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
	if now == nil {
		now = time.Now
	}
	return &Sweeper{
		repo:         repo,
		orders:       ordersRepo,
		tx:           tx,
		outbox:       outboxSvc,
		vendorWallet: vendorWallet,
		cfg:          cfg,
		logg:         logg,
		now:          now,
	}, nil
}

// Sweep processes one batch of due orders. The returned error aggregates
// per-order failures; a non-nil error still comes with a usable Result.
func (s *Sweeper) Sweep(ctx context.Context) (*Result, error) {
	batch := s.cfg.SweepBatchSize
	if batch <= 0 {
		batch = 100
	}
	ids, err := s.repo.FindDueOrderIDs(ctx, s.now().UTC(), batch)
	if err != nil {
		return nil, fmt.Errorf("find due orders: %w", err)
	}

	result := &Result{Scanned: len(ids)}
	var errs error
	for _, id := range ids {
		released, err := s.settleOrder(ctx, id)
		if err != nil {
			result.Failed++
			errs = multierr.Append(errs, fmt.Errorf("order %s: %w", id, err))
			if s.logg != nil {
				s.logg.Error(ctx, "settlement failed for order", err)
			}
			continue
		}
		if released {
			result.Released++
		} else {
			result.Skipped++
		}
	}
	return result, errs
}

// settleOrder releases the held earnings for a single order. It re-checks the
// order state under a row lock so a concurrent sweep or status change makes
// this a no-op instead of a double release.
func (s *Sweeper) settleOrder(ctx context.Context, orderID uuid.UUID) (bool, error) {
	released := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.orders.WithTx(tx)

		order, err := ordersRepo.FindByRefForUpdate(ctx, orders.OrderRef{ID: orderID})
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil
			}
			return fmt.Errorf("lock order: %w", err)
		}
		if order.FundsReleased || order.Status != enums.OrderStatusDelivered {
			return nil
		}

		breakdown, err := ordersRepo.LoadBreakdown(ctx, order.ID)
		if err != nil {
			return fmt.Errorf("load breakdown: %w", err)
		}
		if len(breakdown) == 0 && s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{"order_id": order.ID.String()})
			s.logg.Warn(logCtx, "order has no vendor breakdown, flagging released without payout")
		}

		settledAt := s.now().UTC()
		for _, slice := range breakdown {
			earnings := slice.EarningsCents()
			if earnings <= 0 {
				continue
			}
			if _, err := s.vendorWallet.ReleasePendingOrCreditTx(ctx, tx, wallet.MutationInput{
				VendorID:      slice.VendorID,
				AmountCents:   earnings,
				Description:   fmt.Sprintf("funds released for order %s", order.Code),
				ReferenceID:   &order.ID,
				ReferenceType: enums.ReferenceTypeOrder,
			}); err != nil {
				return fmt.Errorf("release vendor %s: %w", slice.VendorID, err)
			}
			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventSettlementCompleted,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Version:       1,
				Data: payloads.SettlementCompletedEvent{
					OrderID:       order.ID,
					OrderCode:     order.Code,
					VendorID:      slice.VendorID,
					EarningsCents: int64(earnings),
					Released:      true,
					SettledAt:     settledAt,
				},
			}); err != nil {
				return fmt.Errorf("queue settlement event: %w", err)
			}
		}

		order.FundsReleased = true
		if err := ordersRepo.Save(ctx, order); err != nil {
			return fmt.Errorf("flag funds released: %w", err)
		}
		released = true
		return nil
	})
	return released, err
}
