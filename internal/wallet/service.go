package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/mfigueredo/vendora-backend/pkg/db"
	"github.com/mfigueredo/vendora-backend/pkg/db/models"
	"github.com/mfigueredo/vendora-backend/pkg/enums"
	pkgerrors "github.com/mfigueredo/vendora-backend/pkg/errors"
	"github.com/mfigueredo/vendora-backend/pkg/logger"
	"github.com/mfigueredo/vendora-backend/pkg/metrics"
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

// Service exposes vendor wallet balance operations. Every mutation writes a
// matching ledger entry in the same transaction.
type Service interface {
	Credit(ctx context.Context, input MutationInput) (*models.WalletTransaction, error)
	CreditPending(ctx context.Context, input MutationInput) (*models.WalletTransaction, error)
	ReleasePending(ctx context.Context, input MutationInput) (*models.WalletTransaction, error)
	ReleasePendingOrCredit(ctx context.Context, input MutationInput) (*models.WalletTransaction, error)
	Debit(ctx context.Context, input MutationInput) (*models.WalletTransaction, error)
	DebitPendingOrBalance(ctx context.Context, input MutationInput) (*models.WalletTransaction, error)
	CreditTx(ctx context.Context, tx *gorm.DB, input MutationInput) (*models.WalletTransaction, error)
	CreditPendingTx(ctx context.Context, tx *gorm.DB, input MutationInput) (*models.WalletTransaction, error)
	ReleasePendingTx(ctx context.Context, tx *gorm.DB, input MutationInput) (*models.WalletTransaction, error)
	ReleasePendingOrCreditTx(ctx context.Context, tx *gorm.DB, input MutationInput) (*models.WalletTransaction, error)
	DebitTx(ctx context.Context, tx *gorm.DB, input MutationInput) (*models.WalletTransaction, error)
	DebitPendingOrBalanceTx(ctx context.Context, tx *gorm.DB, input MutationInput) (*models.WalletTransaction, error)
	GetBalance(ctx context.Context, vendorID uuid.UUID) (*BalanceSummary, error)
	ListTransactions(ctx context.Context, input ListTransactionsInput) (*TransactionList, error)
	RequestWithdrawal(ctx context.Context, vendorID uuid.UUID) (*models.WithdrawalRequest, error)
	ApproveWithdrawal(ctx context.Context, input ResolveWithdrawalInput) (*models.WithdrawalRequest, error)
	RejectWithdrawal(ctx context.Context, input ResolveWithdrawalInput) (*models.WithdrawalRequest, error)
	ListWithdrawals(ctx context.Context, input ListWithdrawalsInput) (*WithdrawalList, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outboxPublisher
	logg    *logger.Logger
	metrics *metrics.WalletMetrics
	now     func() time.Time
}

// MutationInput describes one balance change against a vendor wallet.
type MutationInput struct {
	VendorID      uuid.UUID
	AmountCents   int
	Description   string
	ReferenceID   *uuid.UUID
	ReferenceType enums.ReferenceType
	ActorID       *uuid.UUID
}

// ResolveWithdrawalInput carries the staff decision on a pending withdrawal.
type ResolveWithdrawalInput struct {
	WithdrawalID  uuid.UUID
	StaffID       uuid.UUID
	ExternalTxnID *string
	Reason        *string
	Notes         *string
}

// BalanceSummary is the read model returned for a vendor's wallet.
type BalanceSummary struct {
	VendorID            uuid.UUID  `json:"vendor_id"`
	BalanceCents        int        `json:"balance_cents"`
	PendingBalanceCents int        `json:"pending_balance_cents"`
	TotalWithdrawnCents int        `json:"total_withdrawn_cents"`
	LastWithdrawalAt    *time.Time `json:"last_withdrawal_at,omitempty"`
}

// ListTransactionsInput filters the vendor ledger listing.
type ListTransactionsInput struct {
	VendorID uuid.UUID
	Type     *enums.WalletTransactionType
	Params   pagination.Params
}

// TransactionList wraps the paginated ledger plus the next page cursor.
type TransactionList struct {
	Transactions []models.WalletTransaction `json:"transactions"`
	NextCursor   string                     `json:"next_cursor,omitempty"`
}

// ListWithdrawalsInput filters the withdrawal listing. VendorID is nil for
// staff views across all vendors.
type ListWithdrawalsInput struct {
	VendorID *uuid.UUID
	Status   *enums.WithdrawalStatus
	Params   pagination.Params
}

// WithdrawalList wraps the paginated withdrawal requests.
type WithdrawalList struct {
	Withdrawals []models.WithdrawalRequest `json:"withdrawals"`
	NextCursor  string                     `json:"next_cursor,omitempty"`
}

// NewService builds a wallet service with the required dependencies.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, logg *logger.Logger, walletMetrics *metrics.WalletMetrics, now func() time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:    repo,
		tx:      tx,
		outbox:  outboxSvc,
		logg:    logg,
		metrics: walletMetrics,
		now:     now,
	}, nil
}

func (s *service) Credit(ctx context.Context, input MutationInput) (*models.WalletTransaction, error) {
	return s.runMutation(ctx, "credit", func(tx *gorm.DB) (*models.WalletTransaction, error) {
		return s.CreditTx(ctx, tx, input)
	})
}

func (s *service) CreditPending(ctx context.Context, input MutationInput) (*models.WalletTransaction, error) {
	return s.runMutation(ctx, "credit_pending", func(tx *gorm.DB) (*models.WalletTransaction, error) {
		return s.CreditPendingTx(ctx, tx, input)
	})
}

func (s *service) ReleasePending(ctx context.Context, input MutationInput) (*models.WalletTransaction, error) {
	return s.runMutation(ctx, "release_pending", func(tx *gorm.DB) (*models.WalletTransaction, error) {
		return s.ReleasePendingTx(ctx, tx, input)
	})
}

func (s *service) ReleasePendingOrCredit(ctx context.Context, input MutationInput) (*models.WalletTransaction, error) {
	return s.runMutation(ctx, "release_pending_or_credit", func(tx *gorm.DB) (*models.WalletTransaction, error) {
		return s.ReleasePendingOrCreditTx(ctx, tx, input)
	})
}

func (s *service) Debit(ctx context.Context, input MutationInput) (*models.WalletTransaction, error) {
	return s.runMutation(ctx, "debit", func(tx *gorm.DB) (*models.WalletTransaction, error) {
		return s.DebitTx(ctx, tx, input)
	})
}

func (s *service) DebitPendingOrBalance(ctx context.Context, input MutationInput) (*models.WalletTransaction, error) {
	return s.runMutation(ctx, "debit_pending_or_balance", func(tx *gorm.DB) (*models.WalletTransaction, error) {
		return s.DebitPendingOrBalanceTx(ctx, tx, input)
	})
}

func (s *service) runMutation(ctx context.Context, operation string, fn func(tx *gorm.DB) (*models.WalletTransaction, error)) (*models.WalletTransaction, error) {
	var entry *models.WalletTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		created, err := fn(tx)
		if err != nil {
			return err
		}
		entry = created
		return nil
	})
	if err != nil {
		s.metrics.IncFailure(operation)
		return nil, err
	}
	s.metrics.IncOperation(operation)
	return entry, nil
}

// CreditTx adds withdrawable funds inside the caller's transaction. Order and
// settlement flows use the Tx variants so the wallet change commits atomically
// with their own writes.
func (s *service) CreditTx(ctx context.Context, tx *gorm.DB, input MutationInput) (*models.WalletTransaction, error) {
	if err := validateMutation(input); err != nil {
		return nil, err
	}
	repo := s.repo.WithTx(tx)
	wallet, err := s.lockOrCreateWallet(ctx, repo, input.VendorID)
	if err != nil {
		return nil, err
	}

	before := wallet.BalanceCents
	pendingBefore := wallet.PendingBalanceCents
	wallet.BalanceCents += input.AmountCents
	if err := repo.SaveWallet(ctx, wallet); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update wallet balance")
	}
	return s.writeEntry(ctx, repo, wallet, input, enums.WalletTransactionTypeCredit, input.AmountCents, before, pendingBefore)
}

// CreditPendingTx adds held funds. The withdrawable balance is untouched until
// the return window closes and ReleasePendingTx moves the amount over.
func (s *service) CreditPendingTx(ctx context.Context, tx *gorm.DB, input MutationInput) (*models.WalletTransaction, error) {
	if err := validateMutation(input); err != nil {
		return nil, err
	}
	repo := s.repo.WithTx(tx)
	wallet, err := s.lockOrCreateWallet(ctx, repo, input.VendorID)
	if err != nil {
		return nil, err
	}

	before := wallet.BalanceCents
	pendingBefore := wallet.PendingBalanceCents
	wallet.PendingBalanceCents += input.AmountCents
	if err := repo.SaveWallet(ctx, wallet); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update wallet pending balance")
	}
	return s.writeEntry(ctx, repo, wallet, input, enums.WalletTransactionTypeCredit, input.AmountCents, before, pendingBefore)
}

// ReleasePendingTx moves held funds into the withdrawable balance. When the
// held balance no longer covers the amount the release still credits in full
// and the shortfall is logged; pending is floored at zero.
func (s *service) ReleasePendingTx(ctx context.Context, tx *gorm.DB, input MutationInput) (*models.WalletTransaction, error) {
	if err := validateMutation(input); err != nil {
		return nil, err
	}
	repo := s.repo.WithTx(tx)
	wallet, err := s.lockOrCreateWallet(ctx, repo, input.VendorID)
	if err != nil {
		return nil, err
	}

	pendingBefore := wallet.PendingBalanceCents
	if wallet.PendingBalanceCents < input.AmountCents {
		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"vendor_id":             input.VendorID.String(),
				"amount_cents":          input.AmountCents,
				"pending_balance_cents": wallet.PendingBalanceCents,
			})
			s.logg.Warn(logCtx, "pending balance below release amount")
		}
		wallet.PendingBalanceCents = 0
	} else {
		wallet.PendingBalanceCents -= input.AmountCents
	}

	before := wallet.BalanceCents
	wallet.BalanceCents += input.AmountCents
	if err := repo.SaveWallet(ctx, wallet); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release pending balance")
	}
	return s.writeEntry(ctx, repo, wallet, input, enums.WalletTransactionTypeCredit, input.AmountCents, before, pendingBefore)
}

// ReleasePendingOrCreditTx settles earnings after the return window: held
// funds move into the withdrawable balance when the hold covers the amount,
// otherwise the balance is credited directly and the hold keeps the funds of
// the orders that put them there.
func (s *service) ReleasePendingOrCreditTx(ctx context.Context, tx *gorm.DB, input MutationInput) (*models.WalletTransaction, error) {
	if err := validateMutation(input); err != nil {
		return nil, err
	}
	repo := s.repo.WithTx(tx)
	wallet, err := s.lockOrCreateWallet(ctx, repo, input.VendorID)
	if err != nil {
		return nil, err
	}

	before := wallet.BalanceCents
	pendingBefore := wallet.PendingBalanceCents
	if wallet.PendingBalanceCents >= input.AmountCents {
		wallet.PendingBalanceCents -= input.AmountCents
	} else if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"vendor_id":             input.VendorID.String(),
			"amount_cents":          input.AmountCents,
			"pending_balance_cents": wallet.PendingBalanceCents,
		})
		s.logg.Warn(logCtx, "hold does not cover settlement, crediting balance directly")
	}
	wallet.BalanceCents += input.AmountCents
	if err := repo.SaveWallet(ctx, wallet); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle vendor earnings")
	}
	return s.writeEntry(ctx, repo, wallet, input, enums.WalletTransactionTypeCredit, input.AmountCents, before, pendingBefore)
}

// DebitTx removes withdrawable funds. The balance is allowed to go negative so
// refunds on already-settled orders are never blocked; the vendor owes the
// difference against future earnings.
func (s *service) DebitTx(ctx context.Context, tx *gorm.DB, input MutationInput) (*models.WalletTransaction, error) {
	if err := validateMutation(input); err != nil {
		return nil, err
	}
	repo := s.repo.WithTx(tx)
	wallet, err := s.lockOrCreateWallet(ctx, repo, input.VendorID)
	if err != nil {
		return nil, err
	}

	before := wallet.BalanceCents
	pendingBefore := wallet.PendingBalanceCents
	wallet.BalanceCents -= input.AmountCents
	if err := repo.SaveWallet(ctx, wallet); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "debit wallet balance")
	}

	entryType := enums.WalletTransactionTypeDebit
	if input.ReferenceType == enums.ReferenceTypeRefund {
		entryType = enums.WalletTransactionTypeRefund
	}
	return s.writeEntry(ctx, repo, wallet, input, entryType, -input.AmountCents, before, pendingBefore)
}

// DebitPendingOrBalanceTx charges held funds when they cover the full amount,
// otherwise the withdrawable balance takes the whole debit and may go
// negative. Refunds inside the return window usually land on the hold they
// were earned into.
func (s *service) DebitPendingOrBalanceTx(ctx context.Context, tx *gorm.DB, input MutationInput) (*models.WalletTransaction, error) {
	if err := validateMutation(input); err != nil {
		return nil, err
	}
	repo := s.repo.WithTx(tx)
	wallet, err := s.lockOrCreateWallet(ctx, repo, input.VendorID)
	if err != nil {
		return nil, err
	}

	before := wallet.BalanceCents
	pendingBefore := wallet.PendingBalanceCents
	if wallet.PendingBalanceCents >= input.AmountCents {
		wallet.PendingBalanceCents -= input.AmountCents
	} else {
		wallet.BalanceCents -= input.AmountCents
	}
	if err := repo.SaveWallet(ctx, wallet); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "debit wallet balance")
	}

	entryType := enums.WalletTransactionTypeDebit
	if input.ReferenceType == enums.ReferenceTypeRefund {
		entryType = enums.WalletTransactionTypeRefund
	}
	return s.writeEntry(ctx, repo, wallet, input, entryType, -input.AmountCents, before, pendingBefore)
}

func (s *service) GetBalance(ctx context.Context, vendorID uuid.UUID) (*BalanceSummary, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	wallet, err := s.repo.FindByVendorID(ctx, vendorID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return &BalanceSummary{VendorID: vendorID}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}
	return &BalanceSummary{
		VendorID:            wallet.VendorID,
		BalanceCents:        wallet.BalanceCents,
		PendingBalanceCents: wallet.PendingBalanceCents,
		TotalWithdrawnCents: wallet.TotalWithdrawnCents,
		LastWithdrawalAt:    wallet.LastWithdrawalAt,
	}, nil
}

func (s *service) ListTransactions(ctx context.Context, input ListTransactionsInput) (*TransactionList, error) {
	if input.VendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	if input.Type != nil && !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid transaction type filter")
	}
	cursor, err := pagination.ParseCursor(input.Params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	entries, next, err := s.repo.ListTransactions(ctx, listTransactionsParams{
		VendorID: input.VendorID,
		Type:     input.Type,
		Limit:    input.Params.Limit,
		Cursor:   cursor,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wallet transactions")
	}

	list := &TransactionList{Transactions: entries}
	if next != nil {
		list.NextCursor = pagination.EncodeCursor(*next)
	}
	return list, nil
}

// RequestWithdrawal opens a payout request for the vendor's entire withdrawable
// balance. At most one request per vendor may be pending at a time.
func (s *service) RequestWithdrawal(ctx context.Context, vendorID uuid.UUID) (*models.WithdrawalRequest, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}

	var request *models.WithdrawalRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		wallet, err := repo.FindByVendorIDForUpdate(ctx, vendorID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeInsufficientBalance, "no withdrawable balance")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
		}
		if wallet.BalanceCents <= 0 {
			return pkgerrors.New(pkgerrors.CodeInsufficientBalance, "no withdrawable balance")
		}

		pending, err := repo.HasPendingWithdrawal(ctx, vendorID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check pending withdrawals")
		}
		if pending {
			return pkgerrors.New(pkgerrors.CodeDuplicateRequest, "a withdrawal request is already pending")
		}

		request = &models.WithdrawalRequest{
			VendorID:    vendorID,
			AmountCents: wallet.BalanceCents,
			Status:      enums.WithdrawalStatusPending,
		}
		if err := repo.CreateWithdrawal(ctx, request); err != nil {
			if dbpkg.IsUniqueViolation(err, "ux_withdrawal_requests_vendor_pending") {
				return pkgerrors.New(pkgerrors.CodeDuplicateRequest, "a withdrawal request is already pending")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create withdrawal request")
		}
		return nil
	})
	if err != nil {
		s.metrics.IncFailure("withdrawal_request")
		return nil, err
	}
	s.metrics.IncOperation("withdrawal_request")
	return request, nil
}

// ApproveWithdrawal settles a pending request: the amount leaves the
// withdrawable balance and the payout is recorded against the external
// transaction reference.
func (s *service) ApproveWithdrawal(ctx context.Context, input ResolveWithdrawalInput) (*models.WithdrawalRequest, error) {
	if err := validateResolve(input); err != nil {
		return nil, err
	}

	var request *models.WithdrawalRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		found, err := repo.FindWithdrawalForUpdate(ctx, input.WithdrawalID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "withdrawal request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load withdrawal request")
		}
		if found.Status != enums.WithdrawalStatusPending {
			return pkgerrors.New(pkgerrors.CodeAlreadyProcessed, "withdrawal request already resolved")
		}

		wallet, err := repo.FindByVendorIDForUpdate(ctx, found.VendorID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
		}
		// Refunds between request and approval can shrink the balance below
		// the requested amount.
		if wallet.BalanceCents < found.AmountCents {
			return pkgerrors.New(pkgerrors.CodeInsufficientBalance, "balance no longer covers the requested amount")
		}

		now := s.now().UTC()
		before := wallet.BalanceCents
		wallet.BalanceCents -= found.AmountCents
		wallet.TotalWithdrawnCents += found.AmountCents
		wallet.LastWithdrawalAt = &now
		if err := repo.SaveWallet(ctx, wallet); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update wallet balance")
		}

		entry := &models.WalletTransaction{
			VendorID:           found.VendorID,
			Type:               enums.WalletTransactionTypeWithdrawal,
			AmountCents:        -found.AmountCents,
			BalanceBeforeCents: before,
			BalanceAfterCents:  wallet.BalanceCents,
			PendingBeforeCents: wallet.PendingBalanceCents,
			PendingAfterCents:  wallet.PendingBalanceCents,
			Description:        "withdrawal approved",
			ReferenceID:        &found.ID,
			ReferenceType:      enums.ReferenceTypeWithdrawal,
			ActorID:            &input.StaffID,
		}
		if err := repo.CreateTransaction(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write ledger entry")
		}

		found.Status = enums.WithdrawalStatusApproved
		found.ProcessedBy = &input.StaffID
		found.ProcessedAt = &now
		found.ExternalTxnID = input.ExternalTxnID
		found.Notes = input.Notes
		if err := repo.SaveWithdrawal(ctx, found); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update withdrawal request")
		}

		if err := s.emitWithdrawalResolved(ctx, tx, found, input.StaffID); err != nil {
			return err
		}
		request = found
		return nil
	})
	if err != nil {
		s.metrics.IncFailure("withdrawal_approve")
		return nil, err
	}
	s.metrics.IncOperation("withdrawal_approve")
	return request, nil
}

// RejectWithdrawal closes a pending request without touching the balance.
func (s *service) RejectWithdrawal(ctx context.Context, input ResolveWithdrawalInput) (*models.WithdrawalRequest, error) {
	if err := validateResolve(input); err != nil {
		return nil, err
	}
	if input.Reason == nil || *input.Reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejection reason required")
	}

	var request *models.WithdrawalRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		found, err := repo.FindWithdrawalForUpdate(ctx, input.WithdrawalID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "withdrawal request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load withdrawal request")
		}
		if found.Status != enums.WithdrawalStatusPending {
			return pkgerrors.New(pkgerrors.CodeAlreadyProcessed, "withdrawal request already resolved")
		}

		now := s.now().UTC()
		found.Status = enums.WithdrawalStatusRejected
		found.ProcessedBy = &input.StaffID
		found.ProcessedAt = &now
		found.RejectionReason = input.Reason
		found.Notes = input.Notes
		if err := repo.SaveWithdrawal(ctx, found); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update withdrawal request")
		}

		if err := s.emitWithdrawalResolved(ctx, tx, found, input.StaffID); err != nil {
			return err
		}
		request = found
		return nil
	})
	if err != nil {
		s.metrics.IncFailure("withdrawal_reject")
		return nil, err
	}
	s.metrics.IncOperation("withdrawal_reject")
	return request, nil
}

func (s *service) ListWithdrawals(ctx context.Context, input ListWithdrawalsInput) (*WithdrawalList, error) {
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid withdrawal status filter")
	}
	cursor, err := pagination.ParseCursor(input.Params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	requests, next, err := s.repo.ListWithdrawals(ctx, listWithdrawalsParams{
		VendorID: input.VendorID,
		Status:   input.Status,
		Limit:    input.Params.Limit,
		Cursor:   cursor,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list withdrawal requests")
	}

	list := &WithdrawalList{Withdrawals: requests}
	if next != nil {
		list.NextCursor = pagination.EncodeCursor(*next)
	}
	return list, nil
}

func (s *service) emitWithdrawalResolved(ctx context.Context, tx *gorm.DB, request *models.WithdrawalRequest, staffID uuid.UUID) error {
	event := payloads.WithdrawalResolvedEvent{
		WithdrawalID: request.ID,
		VendorID:     request.VendorID,
		AmountCents:  int64(request.AmountCents),
		Status:       request.Status,
	}
	if request.ExternalTxnID != nil {
		event.ExternalTxnID = *request.ExternalTxnID
	}
	if request.RejectionReason != nil {
		event.Reason = *request.RejectionReason
	}
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventWithdrawalResolved,
		AggregateType: enums.AggregateWithdrawal,
		AggregateID:   request.ID,
		Version:       1,
		Actor: &outbox.ActorRef{
			UserID: staffID,
			Role:   enums.ActorRoleAdmin.String(),
		},
		Data: event,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue withdrawal event")
	}
	return nil
}

// lockOrCreateWallet returns the row-locked wallet for the vendor, creating an
// empty one on first use. A concurrent create loses the insert race on the
// vendor unique index and falls back to locking the winner's row.
func (s *service) lockOrCreateWallet(ctx context.Context, repo Repository, vendorID uuid.UUID) (*models.VendorWallet, error) {
	wallet, err := repo.FindByVendorIDForUpdate(ctx, vendorID)
	if err == nil {
		return wallet, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}

	created := &models.VendorWallet{VendorID: vendorID}
	if createErr := repo.CreateWallet(ctx, created); createErr != nil {
		if dbpkg.IsUniqueViolation(createErr, "ux_vendor_wallets_vendor_id") {
			wallet, err = repo.FindByVendorIDForUpdate(ctx, vendorID)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
			}
			return wallet, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, createErr, "create wallet")
	}
	return created, nil
}

func (s *service) writeEntry(ctx context.Context, repo Repository, wallet *models.VendorWallet, input MutationInput, entryType enums.WalletTransactionType, signedAmount, balanceBefore, pendingBefore int) (*models.WalletTransaction, error) {
	referenceType := input.ReferenceType
	if referenceType == "" {
		referenceType = enums.ReferenceTypeManual
	}
	entry := &models.WalletTransaction{
		VendorID:           wallet.VendorID,
		Type:               entryType,
		AmountCents:        signedAmount,
		BalanceBeforeCents: balanceBefore,
		BalanceAfterCents:  wallet.BalanceCents,
		PendingBeforeCents: pendingBefore,
		PendingAfterCents:  wallet.PendingBalanceCents,
		Description:        input.Description,
		ReferenceID:        input.ReferenceID,
		ReferenceType:      referenceType,
		ActorID:            input.ActorID,
	}
	if err := repo.CreateTransaction(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write ledger entry")
	}
	return entry, nil
}

func validateMutation(input MutationInput) error {
	if input.VendorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
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

func validateResolve(input ResolveWithdrawalInput) error {
	if input.WithdrawalID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "withdrawal id required")
	}
	if input.StaffID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "staff identity missing")
	}
	return nil
}
