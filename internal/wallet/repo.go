package wallet

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mfigueredo/vendora-backend/pkg/db/models"
	"github.com/mfigueredo/vendora-backend/pkg/enums"
	"github.com/mfigueredo/vendora-backend/pkg/pagination"
)

// Repository exposes persistence helpers for vendor wallets, their ledger and
// withdrawal requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByVendorID(ctx context.Context, vendorID uuid.UUID) (*models.VendorWallet, error)
	FindByVendorIDForUpdate(ctx context.Context, vendorID uuid.UUID) (*models.VendorWallet, error)
	CreateWallet(ctx context.Context, wallet *models.VendorWallet) error
	SaveWallet(ctx context.Context, wallet *models.VendorWallet) error
	CreateTransaction(ctx context.Context, entry *models.WalletTransaction) error
	ListTransactions(ctx context.Context, params listTransactionsParams) ([]models.WalletTransaction, *pagination.Cursor, error)
	CreateWithdrawal(ctx context.Context, request *models.WithdrawalRequest) error
	FindWithdrawalForUpdate(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error)
	HasPendingWithdrawal(ctx context.Context, vendorID uuid.UUID) (bool, error)
	SaveWithdrawal(ctx context.Context, request *models.WithdrawalRequest) error
	ListWithdrawals(ctx context.Context, params listWithdrawalsParams) ([]models.WithdrawalRequest, *pagination.Cursor, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a wallet repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listTransactionsParams struct {
	VendorID uuid.UUID
	Type     *enums.WalletTransactionType
	Limit    int
	Cursor   *pagination.Cursor
}

type listWithdrawalsParams struct {
	VendorID *uuid.UUID
	Status   *enums.WithdrawalStatus
	Limit    int
	Cursor   *pagination.Cursor
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) FindByVendorID(ctx context.Context, vendorID uuid.UUID) (*models.VendorWallet, error) {
	var wallet models.VendorWallet
	if err := r.db.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		First(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

// FindByVendorIDForUpdate row-locks the wallet so concurrent balance mutations
// serialize. Callers must hold an open transaction.
func (r *repositoryImpl) FindByVendorIDForUpdate(ctx context.Context, vendorID uuid.UUID) (*models.VendorWallet, error) {
	var wallet models.VendorWallet
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("vendor_id = ?", vendorID).
		First(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *repositoryImpl) CreateWallet(ctx context.Context, wallet *models.VendorWallet) error {
	return r.db.WithContext(ctx).Create(wallet).Error
}

func (r *repositoryImpl) SaveWallet(ctx context.Context, wallet *models.VendorWallet) error {
	return r.db.WithContext(ctx).
		Model(&models.VendorWallet{}).
		Where("id = ?", wallet.ID).
		Updates(map[string]any{
			"balance_cents":         wallet.BalanceCents,
			"pending_balance_cents": wallet.PendingBalanceCents,
			"total_withdrawn_cents": wallet.TotalWithdrawnCents,
			"last_withdrawal_at":    wallet.LastWithdrawalAt,
		}).Error
}

func (r *repositoryImpl) CreateTransaction(ctx context.Context, entry *models.WalletTransaction) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repositoryImpl) ListTransactions(ctx context.Context, params listTransactionsParams) ([]models.WalletTransaction, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).
		Model(&models.WalletTransaction{}).
		Where("vendor_id = ?", params.VendorID)
	if params.Type != nil {
		query = query.Where("type = ?", *params.Type)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var entries []models.WalletTransaction
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, nil, err
	}

	if len(entries) > normalized {
		entries = entries[:normalized]
		last := entries[normalized-1]
		return entries, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
	}
	return entries, nil, nil
}

func (r *repositoryImpl) CreateWithdrawal(ctx context.Context, request *models.WithdrawalRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *repositoryImpl) FindWithdrawalForUpdate(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error) {
	var request models.WithdrawalRequest
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&request).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repositoryImpl) HasPendingWithdrawal(ctx context.Context, vendorID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.WithdrawalRequest{}).
		Where("vendor_id = ? AND status = ?", vendorID, enums.WithdrawalStatusPending).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repositoryImpl) SaveWithdrawal(ctx context.Context, request *models.WithdrawalRequest) error {
	return r.db.WithContext(ctx).
		Model(&models.WithdrawalRequest{}).
		Where("id = ?", request.ID).
		Updates(map[string]any{
			"status":           request.Status,
			"processed_by":     request.ProcessedBy,
			"processed_at":     request.ProcessedAt,
			"external_txn_id":  request.ExternalTxnID,
			"rejection_reason": request.RejectionReason,
			"notes":            request.Notes,
		}).Error
}

func (r *repositoryImpl) ListWithdrawals(ctx context.Context, params listWithdrawalsParams) ([]models.WithdrawalRequest, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.WithdrawalRequest{})
	if params.VendorID != nil {
		query = query.Where("vendor_id = ?", *params.VendorID)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var requests []models.WithdrawalRequest
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&requests).Error; err != nil {
		return nil, nil, err
	}

	if len(requests) > normalized {
		requests = requests[:normalized]
		last := requests[normalized-1]
		return requests, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
	}
	return requests, nil, nil
}
