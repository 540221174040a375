package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mfigueredo/vendora-backend/pkg/db/models"
	"github.com/mfigueredo/vendora-backend/pkg/enums"
)

// Repository selects orders whose held funds are due for release.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindDueOrderIDs(ctx context.Context, asOf time.Time, limit int) ([]uuid.UUID, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a settlement repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

// FindDueOrderIDs returns delivered orders with unreleased funds whose return
// window has closed. Orders with no recorded window are picked up too so a
// missed delivery stamp cannot strand vendor funds.
func (r *repositoryImpl) FindDueOrderIDs(ctx context.Context, asOf time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("status = ? AND funds_released = ?", enums.OrderStatusDelivered, false).
		Where("return_window_expires_at IS NULL OR return_window_expires_at <= ?", asOf).
		Order("created_at ASC").
		Limit(limit).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
