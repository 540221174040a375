package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mfigueredo/vendora-backend/pkg/db/models"
	"github.com/mfigueredo/vendora-backend/pkg/enums"
	"github.com/mfigueredo/vendora-backend/pkg/pagination"
)

// Repository exposes persistence helpers for orders and their children.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByRef(ctx context.Context, ref OrderRef) (*models.Order, error)
	FindByRefForUpdate(ctx context.Context, ref OrderRef) (*models.Order, error)
	LoadBreakdown(ctx context.Context, orderID uuid.UUID) ([]models.OrderVendorBreakdown, error)
	LoadItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
	Save(ctx context.Context, order *models.Order) error
	AppendHistory(ctx context.Context, entry *models.OrderStatusHistory) error
	FindDeliveredHistory(ctx context.Context, orderID uuid.UUID) (*models.OrderStatusHistory, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, limit int, cursor *pagination.Cursor, status *enums.OrderStatus) ([]models.Order, *pagination.Cursor, error)
	ListByVendor(ctx context.Context, vendorID uuid.UUID, limit int, cursor *pagination.Cursor, status *enums.OrderStatus) ([]models.Order, *pagination.Cursor, error)
	FindCouponForUpdate(ctx context.Context, couponID uuid.UUID) (*models.Coupon, error)
	DecrementCouponUsage(ctx context.Context, couponID uuid.UUID) error
	CreateRefundTransaction(ctx context.Context, refund *models.RefundTransaction) error
	SaveRefundTransaction(ctx context.Context, refund *models.RefundTransaction) error
}

// OrderRef addresses an order by id or by its human-readable code.
type OrderRef struct {
	ID   uuid.UUID
	Code string
}

// RefFromString parses raw input as an order id, falling back to a code
// lookup. Endpoints accept both interchangeably.
func RefFromString(raw string) OrderRef {
	if id, err := uuid.Parse(raw); err == nil {
		return OrderRef{ID: id}
	}
	return OrderRef{Code: raw}
}

func (ref OrderRef) isZero() bool {
	return ref.ID == uuid.Nil && ref.Code == ""
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an orders repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func refQuery(query *gorm.DB, ref OrderRef) *gorm.DB {
	if ref.ID != uuid.Nil {
		return query.Where("id = ?", ref.ID)
	}
	return query.Where("code = ?", ref.Code)
}

func (r *repositoryImpl) FindByRef(ctx context.Context, ref OrderRef) (*models.Order, error) {
	var order models.Order
	query := r.db.WithContext(ctx).
		Preload("Items").
		Preload("VendorBreakdown").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		})
	if err := refQuery(query, ref).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByRefForUpdate locks the base order row without preloads; children are
// loaded separately when a transition needs them.
func (r *repositoryImpl) FindByRefForUpdate(ctx context.Context, ref OrderRef) (*models.Order, error) {
	var order models.Order
	query := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"})
	if err := refQuery(query, ref).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repositoryImpl) LoadBreakdown(ctx context.Context, orderID uuid.UUID) ([]models.OrderVendorBreakdown, error) {
	var breakdown []models.OrderVendorBreakdown
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&breakdown).Error; err != nil {
		return nil, err
	}
	return breakdown, nil
}

func (r *repositoryImpl) LoadItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	var items []models.OrderItem
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repositoryImpl) Save(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", order.ID).
		Updates(map[string]any{
			"status":                               order.Status,
			"payment_status":                       order.PaymentStatus,
			"tracking_delivered_at":                order.TrackingDeliveredAt,
			"return_window_expires_at":             order.ReturnWindowExpiresAt,
			"funds_released":                       order.FundsReleased,
			"cancellation_reason":                  order.CancellationReason,
			"cancellation_refund_status":           order.CancellationRefundStatus,
			"cancellation_refund_cents":            order.CancellationRefundCents,
			"cancelled_at":                         order.CancelledAt,
			"cancellation_request_original_status": order.CancellationRequestOriginalStatus,
			"cancellation_request_resolution":      order.CancellationRequestResolution,
			"cancellation_requested_at":            order.CancellationRequestedAt,
			"updated_at":                           time.Now().UTC(),
		}).Error
}

func (r *repositoryImpl) AppendHistory(ctx context.Context, entry *models.OrderStatusHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// FindDeliveredHistory returns the earliest delivered history entry, used to
// anchor the return window.
func (r *repositoryImpl) FindDeliveredHistory(ctx context.Context, orderID uuid.UUID) (*models.OrderStatusHistory, error) {
	var entry models.OrderStatusHistory
	if err := r.db.WithContext(ctx).
		Where("order_id = ? AND status = ?", orderID, enums.OrderStatusDelivered).
		Order("created_at ASC").
		First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repositoryImpl) ListByCustomer(ctx context.Context, customerID uuid.UUID, limit int, cursor *pagination.Cursor, status *enums.OrderStatus) ([]models.Order, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("customer_id = ?", customerID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	return r.listOrders(query, limit, cursor)
}

func (r *repositoryImpl) ListByVendor(ctx context.Context, vendorID uuid.UUID, limit int, cursor *pagination.Cursor, status *enums.OrderStatus) ([]models.Order, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id IN (?)", r.db.
			Model(&models.OrderVendorBreakdown{}).
			Select("order_id").
			Where("vendor_id = ?", vendorID))
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	return r.listOrders(query, limit, cursor)
}

func (r *repositoryImpl) listOrders(query *gorm.DB, limit int, cursor *pagination.Cursor) ([]models.Order, *pagination.Cursor, error) {
	buffered := pagination.LimitWithBuffer(limit)
	normalized := pagination.NormalizeLimit(limit)
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var orders []models.Order
	if err := query.
		Preload("Items").
		Order("created_at DESC, id DESC").
		Limit(buffered).
		Find(&orders).Error; err != nil {
		return nil, nil, err
	}

	if len(orders) > normalized {
		orders = orders[:normalized]
		last := orders[normalized-1]
		return orders, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
	}
	return orders, nil, nil
}

func (r *repositoryImpl) FindCouponForUpdate(ctx context.Context, couponID uuid.UUID) (*models.Coupon, error) {
	var coupon models.Coupon
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", couponID).
		First(&coupon).Error; err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (r *repositoryImpl) DecrementCouponUsage(ctx context.Context, couponID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("id = ? AND used_count > 0", couponID).
		UpdateColumn("used_count", gorm.Expr("used_count - 1")).Error
}

func (r *repositoryImpl) CreateRefundTransaction(ctx context.Context, refund *models.RefundTransaction) error {
	return r.db.WithContext(ctx).Create(refund).Error
}

func (r *repositoryImpl) SaveRefundTransaction(ctx context.Context, refund *models.RefundTransaction) error {
	return r.db.WithContext(ctx).
		Model(&models.RefundTransaction{}).
		Where("id = ?", refund.ID).
		Updates(map[string]any{
			"customer_entry_id": refund.CustomerEntryID,
			"vendor_entry_id":   refund.VendorEntryID,
			"status":            refund.Status,
		}).Error
}
