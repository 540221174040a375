package customerwallet

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mfigueredo/vendora-backend/pkg/db/models"
	"github.com/mfigueredo/vendora-backend/pkg/enums"
	pkgerrors "github.com/mfigueredo/vendora-backend/pkg/errors"
	"github.com/mfigueredo/vendora-backend/pkg/pagination"
)

type stubRepo struct {
	wallet       *models.CustomerWallet
	transactions []models.CustomerWalletTransaction
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubRepo) FindByCustomerID(ctx context.Context, customerID uuid.UUID) (*models.CustomerWallet, error) {
	if s.wallet == nil || s.wallet.CustomerID != customerID {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.wallet
	return &copied, nil
}

func (s *stubRepo) FindByCustomerIDForUpdate(ctx context.Context, customerID uuid.UUID) (*models.CustomerWallet, error) {
	return s.FindByCustomerID(ctx, customerID)
}

func (s *stubRepo) CreateWallet(ctx context.Context, wallet *models.CustomerWallet) error {
	if wallet.ID == uuid.Nil {
		wallet.ID = uuid.New()
	}
	copied := *wallet
	s.wallet = &copied
	return nil
}

func (s *stubRepo) SaveWallet(ctx context.Context, wallet *models.CustomerWallet) error {
	copied := *wallet
	s.wallet = &copied
	return nil
}

func (s *stubRepo) CreateTransaction(ctx context.Context, entry *models.CustomerWalletTransaction) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	s.transactions = append(s.transactions, *entry)
	return nil
}

func (s *stubRepo) ListTransactions(ctx context.Context, customerID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.CustomerWalletTransaction, *pagination.Cursor, error) {
	var entries []models.CustomerWalletTransaction
	for _, entry := range s.transactions {
		if entry.CustomerID == customerID {
			entries = append(entries, entry)
		}
	}
	return entries, nil, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func newTestService(t *testing.T, repo *stubRepo) Service {
	t.Helper()
	svc, err := NewService(repo, stubTxRunner{})
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	return svc
}

func TestCreditCreatesWalletOnFirstUse(t *testing.T) {
	customerID := uuid.New()
	refundID := uuid.New()
	repo := &stubRepo{}
	svc := newTestService(t, repo)

	entry, err := svc.Credit(context.Background(), MutationInput{
		CustomerID:    customerID,
		AmountCents:   3000,
		Description:   "refund for returned items",
		ReferenceID:   &refundID,
		ReferenceType: enums.ReferenceTypeRefund,
	})
	if err != nil {
		t.Fatalf("credit failed: %v", err)
	}
	if repo.wallet == nil || repo.wallet.BalanceCents != 3000 {
		t.Fatalf("expected balance 3000, got %+v", repo.wallet)
	}
	if entry.Type != enums.WalletTransactionTypeRefund {
		t.Fatalf("expected refund entry for refund reference, got %s", entry.Type)
	}
}

func TestDebitRejectsInsufficientBalance(t *testing.T) {
	customerID := uuid.New()
	repo := &stubRepo{wallet: &models.CustomerWallet{
		ID:           uuid.New(),
		CustomerID:   customerID,
		BalanceCents: 1000,
	}}
	svc := newTestService(t, repo)

	_, err := svc.Debit(context.Background(), MutationInput{
		CustomerID:  customerID,
		AmountCents: 2000,
		Description: "order payment",
	})
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) || appErr.Code() != pkgerrors.CodeInsufficientBalance {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	if repo.wallet.BalanceCents != 1000 {
		t.Fatalf("balance should be untouched, got %d", repo.wallet.BalanceCents)
	}
}

func TestDebitRecordsLedgerEntry(t *testing.T) {
	customerID := uuid.New()
	repo := &stubRepo{wallet: &models.CustomerWallet{
		ID:           uuid.New(),
		CustomerID:   customerID,
		BalanceCents: 5000,
	}}
	svc := newTestService(t, repo)

	entry, err := svc.Debit(context.Background(), MutationInput{
		CustomerID:  customerID,
		AmountCents: 2000,
		Description: "order payment",
	})
	if err != nil {
		t.Fatalf("debit failed: %v", err)
	}
	if repo.wallet.BalanceCents != 3000 {
		t.Fatalf("expected balance 3000, got %d", repo.wallet.BalanceCents)
	}
	if entry.AmountCents != -2000 || entry.BalanceBeforeCents != 5000 || entry.BalanceAfterCents != 3000 {
		t.Fatalf("unexpected ledger entry: %+v", entry)
	}
}

func TestGetBalanceReturnsZeroForUnknownCustomer(t *testing.T) {
	svc := newTestService(t, &stubRepo{})
	summary, err := svc.GetBalance(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("get balance failed: %v", err)
	}
	if summary.BalanceCents != 0 {
		t.Fatalf("expected zero balance, got %d", summary.BalanceCents)
	}
}
