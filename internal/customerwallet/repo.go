package customerwallet

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mfigueredo/vendora-backend/pkg/db/models"
	"github.com/mfigueredo/vendora-backend/pkg/pagination"
)

// Repository exposes persistence helpers for customer wallets.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByCustomerID(ctx context.Context, customerID uuid.UUID) (*models.CustomerWallet, error)
	FindByCustomerIDForUpdate(ctx context.Context, customerID uuid.UUID) (*models.CustomerWallet, error)
	CreateWallet(ctx context.Context, wallet *models.CustomerWallet) error
	SaveWallet(ctx context.Context, wallet *models.CustomerWallet) error
	CreateTransaction(ctx context.Context, entry *models.CustomerWalletTransaction) error
	ListTransactions(ctx context.Context, customerID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.CustomerWalletTransaction, *pagination.Cursor, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a customer wallet repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) FindByCustomerID(ctx context.Context, customerID uuid.UUID) (*models.CustomerWallet, error) {
	var wallet models.CustomerWallet
	if err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		First(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *repositoryImpl) FindByCustomerIDForUpdate(ctx context.Context, customerID uuid.UUID) (*models.CustomerWallet, error) {
	var wallet models.CustomerWallet
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("customer_id = ?", customerID).
		First(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *repositoryImpl) CreateWallet(ctx context.Context, wallet *models.CustomerWallet) error {
	return r.db.WithContext(ctx).Create(wallet).Error
}

func (r *repositoryImpl) SaveWallet(ctx context.Context, wallet *models.CustomerWallet) error {
	return r.db.WithContext(ctx).
		Model(&models.CustomerWallet{}).
		Where("id = ?", wallet.ID).
		UpdateColumn("balance_cents", wallet.BalanceCents).Error
}

func (r *repositoryImpl) CreateTransaction(ctx context.Context, entry *models.CustomerWalletTransaction) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repositoryImpl) ListTransactions(ctx context.Context, customerID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.CustomerWalletTransaction, *pagination.Cursor, error) {
	buffered := pagination.LimitWithBuffer(limit)
	normalized := pagination.NormalizeLimit(limit)
	query := r.db.WithContext(ctx).
		Model(&models.CustomerWalletTransaction{}).
		Where("customer_id = ?", customerID)
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var entries []models.CustomerWalletTransaction
	if err := query.Order("created_at DESC, id DESC").Limit(buffered).Find(&entries).Error; err != nil {
		return nil, nil, err
	}

	if len(entries) > normalized {
		entries = entries[:normalized]
		last := entries[normalized-1]
		return entries, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
	}
	return entries, nil, nil
}
