package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mfigueredo/vendora-backend/api/middleware"
	"github.com/mfigueredo/vendora-backend/api/responses"
	"github.com/mfigueredo/vendora-backend/api/validators"
	"github.com/mfigueredo/vendora-backend/internal/wallet"
	"github.com/mfigueredo/vendora-backend/pkg/enums"
	pkgerrors "github.com/mfigueredo/vendora-backend/pkg/errors"
	"github.com/mfigueredo/vendora-backend/pkg/logger"
	"github.com/mfigueredo/vendora-backend/pkg/pagination"
)

// GetWalletBalance returns the authenticated vendor's balance summary.
func GetWalletBalance(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet service unavailable"))
			return
		}

		vendorID, err := requireVendor(middleware.ActorFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		summary, err := svc.GetBalance(ctx, vendorID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// ListWalletTransactions pages through the vendor's ledger.
func ListWalletTransactions(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet service unavailable"))
			return
		}

		vendorID, err := requireVendor(middleware.ActorFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 20, 1, 100)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		input := wallet.ListTransactionsInput{
			VendorID: vendorID,
			Params:   pagination.Params{Limit: limit, Cursor: r.URL.Query().Get("cursor")},
		}
		if raw := r.URL.Query().Get("type"); raw != "" {
			txnType, parseErr := enums.ParseWalletTransactionType(raw)
			if parseErr != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "type"))
				return
			}
			input.Type = &txnType
		}

		list, err := svc.ListTransactions(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// RequestWithdrawal asks to pay out the vendor's full available balance.
func RequestWithdrawal(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet service unavailable"))
			return
		}

		vendorID, err := requireVendor(middleware.ActorFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		withdrawal, err := svc.RequestWithdrawal(ctx, vendorID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, withdrawal)
	}
}

// ListWithdrawals pages through withdrawal requests. Vendors see their own,
// staff see every vendor and may filter by vendor_id.
func ListWithdrawals(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet service unavailable"))
			return
		}

		actor := middleware.ActorFromContext(ctx)
		limit, err := validators.ParseQueryInt(r, "limit", 20, 1, 100)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		input := wallet.ListWithdrawalsInput{
			Params: pagination.Params{Limit: limit, Cursor: r.URL.Query().Get("cursor")},
		}
		switch actor.Role {
		case enums.ActorRoleAdmin:
			if raw := r.URL.Query().Get("vendor_id"); raw != "" {
				id, parseErr := uuid.Parse(raw)
				if parseErr != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "vendor_id must be a valid id"))
					return
				}
				input.VendorID = &id
			}
		default:
			vendorID, vendorErr := requireVendor(actor)
			if vendorErr != nil {
				responses.WriteError(ctx, logg, w, vendorErr)
				return
			}
			input.VendorID = &vendorID
		}
		if raw := r.URL.Query().Get("status"); raw != "" {
			status, parseErr := enums.ParseWithdrawalStatus(raw)
			if parseErr != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "status"))
				return
			}
			input.Status = &status
		}

		list, err := svc.ListWithdrawals(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

type approveWithdrawalRequest struct {
	ExternalTxnID *string `json:"external_txn_id,omitempty"`
	Notes         *string `json:"notes,omitempty"`
}

// ApproveWithdrawal marks a pending withdrawal as paid out.
func ApproveWithdrawal(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet service unavailable"))
			return
		}

		actor := middleware.ActorFromContext(ctx)
		withdrawalID, err := uuid.Parse(chi.URLParam(r, "withdrawalID"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "withdrawal id must be a valid id"))
			return
		}

		var body approveWithdrawalRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		withdrawal, err := svc.ApproveWithdrawal(ctx, wallet.ResolveWithdrawalInput{
			WithdrawalID:  withdrawalID,
			StaffID:       actor.UserID,
			ExternalTxnID: body.ExternalTxnID,
			Notes:         body.Notes,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, withdrawal)
	}
}

type rejectWithdrawalRequest struct {
	Reason string  `json:"reason" validate:"required"`
	Notes  *string `json:"notes,omitempty"`
}

// RejectWithdrawal declines a pending withdrawal and restores the held funds.
func RejectWithdrawal(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet service unavailable"))
			return
		}

		actor := middleware.ActorFromContext(ctx)
		withdrawalID, err := uuid.Parse(chi.URLParam(r, "withdrawalID"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "withdrawal id must be a valid id"))
			return
		}

		var body rejectWithdrawalRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		withdrawal, err := svc.RejectWithdrawal(ctx, wallet.ResolveWithdrawalInput{
			WithdrawalID: withdrawalID,
			StaffID:      actor.UserID,
			Reason:       &body.Reason,
			Notes:        body.Notes,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, withdrawal)
	}
}

func requireVendor(actor middleware.Actor) (uuid.UUID, error) {
	if actor.VendorID == nil || *actor.VendorID == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "vendor account required")
	}
	return *actor.VendorID, nil
}
