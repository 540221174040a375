package customerwallet

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/mfigueredo/vendora-backend/pkg/db"
	"github.com/mfigueredo/vendora-backend/pkg/db/models"
	"github.com/mfigueredo/vendora-backend/pkg/enums"
	pkgerrors "github.com/mfigueredo/vendora-backend/pkg/errors"
	"github.com/mfigueredo/vendora-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service mutates customer wallets. Cancellation and return refunds land here;
// unlike vendor wallets the balance can never go negative.
type Service interface {
	Credit(ctx context.Context, input MutationInput) (*models.CustomerWalletTransaction, error)
	Debit(ctx context.Context, input MutationInput) (*models.CustomerWalletTransaction, error)
	CreditTx(ctx context.Context, tx *gorm.DB, input MutationInput) (*models.CustomerWalletTransaction, error)
	DebitTx(ctx context.Context, tx *gorm.DB, input MutationInput) (*models.CustomerWalletTransaction, error)
	GetBalance(ctx context.Context, customerID uuid.UUID) (*BalanceSummary, error)
	ListTransactions(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*TransactionList, error)
}

type service struct {
	repo Repository
	tx   txRunner
}

// MutationInput describes one balance change against a customer wallet.
type MutationInput struct {
	CustomerID    uuid.UUID
	AmountCents   int
	Description   string
	ReferenceID   *uuid.UUID
	ReferenceType enums.ReferenceType
}

// BalanceSummary is the read model returned for a customer's wallet.
type BalanceSummary struct {
	CustomerID   uuid.UUID `json:"customer_id"`
	BalanceCents int       `json:"balance_cents"`
}

// TransactionList wraps the paginated customer ledger.
type TransactionList struct {
	Transactions []models.CustomerWalletTransaction `json:"transactions"`
	NextCursor   string                             `json:"next_cursor,omitempty"`
}

// NewService builds a customer wallet service.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("customer wallet repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) Credit(ctx context.Context, input MutationInput) (*models.CustomerWalletTransaction, error) {
	var entry *models.CustomerWalletTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		created, err := s.CreditTx(ctx, tx, input)
		if err != nil {
			return err
		}
		entry = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) Debit(ctx context.Context, input MutationInput) (*models.CustomerWalletTransaction, error) {
	var entry *models.CustomerWalletTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		created, err := s.DebitTx(ctx, tx, input)
		if err != nil {
			return err
		}
		entry = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// CreditTx adds funds inside the caller's transaction.
func (s *service) CreditTx(ctx context.Context, tx *gorm.DB, input MutationInput) (*models.CustomerWalletTransaction, error) {
	if err := validateMutation(input); err != nil {
		return nil, err
	}
	repo := s.repo.WithTx(tx)
	wallet, err := s.lockOrCreateWallet(ctx, repo, input.CustomerID)
	if err != nil {
		return nil, err
	}

	before := wallet.BalanceCents
	wallet.BalanceCents += input.AmountCents
	if err := repo.SaveWallet(ctx, wallet); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update customer wallet balance")
	}

	entryType := enums.WalletTransactionTypeCredit
	if input.ReferenceType == enums.ReferenceTypeRefund {
		entryType = enums.WalletTransactionTypeRefund
	}
	return s.writeEntry(ctx, repo, wallet, input, entryType, input.AmountCents, before)
}

// DebitTx removes funds inside the caller's transaction. The balance must
// cover the full amount.
func (s *service) DebitTx(ctx context.Context, tx *gorm.DB, input MutationInput) (*models.CustomerWalletTransaction, error) {
	if err := validateMutation(input); err != nil {
		return nil, err
	}
	repo := s.repo.WithTx(tx)
	wallet, err := s.lockOrCreateWallet(ctx, repo, input.CustomerID)
	if err != nil {
		return nil, err
	}
	if wallet.BalanceCents < input.AmountCents {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientBalance, "customer balance does not cover the amount")
	}

	before := wallet.BalanceCents
	wallet.BalanceCents -= input.AmountCents
	if err := repo.SaveWallet(ctx, wallet); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update customer wallet balance")
	}
	return s.writeEntry(ctx, repo, wallet, input, enums.WalletTransactionTypeDebit, -input.AmountCents, before)
}

func (s *service) GetBalance(ctx context.Context, customerID uuid.UUID) (*BalanceSummary, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	wallet, err := s.repo.FindByCustomerID(ctx, customerID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return &BalanceSummary{CustomerID: customerID}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer wallet")
	}
	return &BalanceSummary{CustomerID: wallet.CustomerID, BalanceCents: wallet.BalanceCents}, nil
}

func (s *service) ListTransactions(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*TransactionList, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	entries, next, err := s.repo.ListTransactions(ctx, customerID, params.Limit, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list customer wallet transactions")
	}

	list := &TransactionList{Transactions: entries}
	if next != nil {
		list.NextCursor = pagination.EncodeCursor(*next)
	}
	return list, nil
}

func (s *service) lockOrCreateWallet(ctx context.Context, repo Repository, customerID uuid.UUID) (*models.CustomerWallet, error) {
	wallet, err := repo.FindByCustomerIDForUpdate(ctx, customerID)
	if err == nil {
		return wallet, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer wallet")
	}

	created := &models.CustomerWallet{CustomerID: customerID}
	if createErr := repo.CreateWallet(ctx, created); createErr != nil {
		if dbpkg.IsUniqueViolation(createErr, "ux_customer_wallets_customer_id") {
			wallet, err = repo.FindByCustomerIDForUpdate(ctx, customerID)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer wallet")
			}
			return wallet, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, createErr, "create customer wallet")
	}
	return created, nil
}

func (s *service) writeEntry(ctx context.Context, repo Repository, wallet *models.CustomerWallet, input MutationInput, entryType enums.WalletTransactionType, signedAmount, balanceBefore int) (*models.CustomerWalletTransaction, error) {
	referenceType := input.ReferenceType
	if referenceType == "" {
		referenceType = enums.ReferenceTypeManual
	}
	entry := &models.CustomerWalletTransaction{
		CustomerID:         wallet.CustomerID,
		Type:               entryType,
		AmountCents:        signedAmount,
		BalanceBeforeCents: balanceBefore,
		BalanceAfterCents:  wallet.BalanceCents,
		Description:        input.Description,
		ReferenceID:        input.ReferenceID,
		ReferenceType:      referenceType,
	}
	if err := repo.CreateTransaction(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write customer ledger entry")
	}
	return entry, nil
}

func validateMutation(input MutationInput) error {
	if input.CustomerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if input.AmountCents <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if input.Description == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "description required")
	}
	if input.ReferenceType != "" && !input.ReferenceType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid reference type")
	}
	return nil
}
