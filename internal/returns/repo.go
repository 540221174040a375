package returns

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mfigueredo/vendora-backend/pkg/db/models"
	"github.com/mfigueredo/vendora-backend/pkg/enums"
	"github.com/mfigueredo/vendora-backend/pkg/pagination"
)

// Repository exposes persistence helpers for return requests and their refund
// transactions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, request *models.ReturnRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.ReturnRequest, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.ReturnRequest, error)
	HasOpenReturn(ctx context.Context, orderID, customerID uuid.UUID) (bool, error)
	Save(ctx context.Context, request *models.ReturnRequest) error
	AppendHistory(ctx context.Context, entry *models.ReturnStatusHistory) error
	List(ctx context.Context, params listReturnsParams) ([]models.ReturnRequest, *pagination.Cursor, error)
	CreateRefundTransaction(ctx context.Context, refund *models.RefundTransaction) error
	SaveRefundTransaction(ctx context.Context, refund *models.RefundTransaction) error
}

type listReturnsParams struct {
	CustomerID *uuid.UUID
	VendorID   *uuid.UUID
	Status     *enums.ReturnStatus
	Limit      int
	Cursor     *pagination.Cursor
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a returns repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, request *models.ReturnRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.ReturnRequest, error) {
	var request models.ReturnRequest
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("id = ?", id).
		First(&request).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repositoryImpl) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.ReturnRequest, error) {
	var request models.ReturnRequest
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&request).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

// HasOpenReturn reports whether a non-terminal return already exists for the
// order and customer pair.
func (r *repositoryImpl) HasOpenReturn(ctx context.Context, orderID, customerID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ReturnRequest{}).
		Where("order_id = ? AND customer_id = ? AND status NOT IN ?", orderID, customerID,
			[]enums.ReturnStatus{enums.ReturnStatusCancelled, enums.ReturnStatusRejected}).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repositoryImpl) Save(ctx context.Context, request *models.ReturnRequest) error {
	return r.db.WithContext(ctx).
		Model(&models.ReturnRequest{}).
		Where("id = ?", request.ID).
		Updates(map[string]any{
			"status":           request.Status,
			"refund_status":    request.RefundStatus,
			"rejection_reason": request.RejectionReason,
		}).Error
}

func (r *repositoryImpl) AppendHistory(ctx context.Context, entry *models.ReturnStatusHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repositoryImpl) List(ctx context.Context, params listReturnsParams) ([]models.ReturnRequest, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.ReturnRequest{})
	if params.CustomerID != nil {
		query = query.Where("customer_id = ?", *params.CustomerID)
	}
	if params.VendorID != nil {
		query = query.Where("vendor_id = ?", *params.VendorID)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var requests []models.ReturnRequest
	if err := query.
		Preload("Items").
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&requests).Error; err != nil {
		return nil, nil, err
	}

	if len(requests) > normalized {
		requests = requests[:normalized]
		last := requests[normalized-1]
		return requests, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
	}
	return requests, nil, nil
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
