package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mfigueredo/vendora-backend/api/middleware"
	"github.com/mfigueredo/vendora-backend/api/responses"
	"github.com/mfigueredo/vendora-backend/api/validators"
	"github.com/mfigueredo/vendora-backend/internal/orders"
	"github.com/mfigueredo/vendora-backend/internal/returns"
	"github.com/mfigueredo/vendora-backend/pkg/enums"
	pkgerrors "github.com/mfigueredo/vendora-backend/pkg/errors"
	"github.com/mfigueredo/vendora-backend/pkg/logger"
	"github.com/mfigueredo/vendora-backend/pkg/pagination"
)

type createReturnRequest struct {
	OrderRef string                    `json:"order_ref" validate:"required"`
	Items    []returns.ReturnItemInput `json:"items" validate:"required,min=1,dive"`
	Reason   string                    `json:"reason" validate:"required"`
}

// CreateReturn opens a return request against a delivered order.
func CreateReturn(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "returns service unavailable"))
			return
		}

		actor := middleware.ActorFromContext(ctx)

		var body createReturnRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		request, err := svc.CreateReturnRequest(ctx, returns.CreateReturnInput{
			CustomerID: actor.UserID,
			OrderRef:   orders.RefFromString(body.OrderRef),
			Items:      body.Items,
			Reason:     body.Reason,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, request)
	}
}

// GetReturn fetches one return request, access checked by role.
func GetReturn(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "returns service unavailable"))
			return
		}

		actor := middleware.ActorFromContext(ctx)
		requestID, err := uuid.Parse(chi.URLParam(r, "returnID"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "return id must be a valid id"))
			return
		}

		request, err := svc.Get(ctx, requestID, returnActor(actor))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, request)
	}
}

// ListReturns pages through return requests scoped to the caller.
func ListReturns(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "returns service unavailable"))
			return
		}

		actor := middleware.ActorFromContext(ctx)
		limit, err := validators.ParseQueryInt(r, "limit", 20, 1, 100)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		input := returns.ListInput{
			Params: pagination.Params{Limit: limit, Cursor: r.URL.Query().Get("cursor")},
		}
		switch actor.Role {
		case enums.ActorRoleVendor:
			if actor.VendorID == nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "vendor account required"))
				return
			}
			input.VendorID = actor.VendorID
		case enums.ActorRoleAdmin:
			if raw := r.URL.Query().Get("vendor_id"); raw != "" {
				id, parseErr := uuid.Parse(raw)
				if parseErr != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "vendor_id must be a valid id"))
					return
				}
				input.VendorID = &id
			}
			if raw := r.URL.Query().Get("customer_id"); raw != "" {
				id, parseErr := uuid.Parse(raw)
				if parseErr != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "customer_id must be a valid id"))
					return
				}
				input.CustomerID = &id
			}
		default:
			customerID := actor.UserID
			input.CustomerID = &customerID
		}
		if raw := r.URL.Query().Get("status"); raw != "" {
			status, parseErr := enums.ParseReturnStatus(raw)
			if parseErr != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "status"))
				return
			}
			input.Status = &status
		}

		list, err := svc.List(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

type updateReturnStatusRequest struct {
	Status          string  `json:"status" validate:"required"`
	Note            *string `json:"note,omitempty"`
	RejectionReason *string `json:"rejection_reason,omitempty"`
}

// UpdateReturnStatus applies a staff decision to a return request.
func UpdateReturnStatus(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "returns service unavailable"))
			return
		}

		actor := middleware.ActorFromContext(ctx)
		requestID, err := uuid.Parse(chi.URLParam(r, "returnID"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "return id must be a valid id"))
			return
		}

		var body updateReturnStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		status, err := enums.ParseReturnStatus(body.Status)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "status"))
			return
		}

		request, err := svc.UpdateStatus(ctx, returns.UpdateStatusInput{
			RequestID:       requestID,
			NewStatus:       status,
			Actor:           returnActor(actor),
			Note:            body.Note,
			RejectionReason: body.RejectionReason,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, request)
	}
}

// ProcessReturnRefund executes the refund for an approved return request.
func ProcessReturnRefund(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "returns service unavailable"))
			return
		}

		actor := middleware.ActorFromContext(ctx)
		requestID, err := uuid.Parse(chi.URLParam(r, "returnID"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "return id must be a valid id"))
			return
		}

		request, err := svc.ProcessRefund(ctx, requestID, returnActor(actor))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, request)
	}
}

func returnActor(actor middleware.Actor) returns.ActorContext {
	return returns.ActorContext{
		UserID:   actor.UserID,
		VendorID: actor.VendorID,
		Role:     actor.Role,
	}
}
