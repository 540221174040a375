package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mfigueredo/vendora-backend/api/middleware"
	"github.com/mfigueredo/vendora-backend/api/responses"
	"github.com/mfigueredo/vendora-backend/api/validators"
	"github.com/mfigueredo/vendora-backend/internal/orders"
	"github.com/mfigueredo/vendora-backend/pkg/enums"
	pkgerrors "github.com/mfigueredo/vendora-backend/pkg/errors"
	"github.com/mfigueredo/vendora-backend/pkg/logger"
	"github.com/mfigueredo/vendora-backend/pkg/pagination"
)

type createOrderRequest struct {
	Items         []orders.CreateOrderItemInput `json:"items" validate:"required,min=1,dive"`
	ShippingCents int                           `json:"shipping_cents" validate:"min=0"`
	TaxCents      int                           `json:"tax_cents" validate:"min=0"`
	DiscountCents int                           `json:"discount_cents" validate:"min=0"`
	CouponID      *uuid.UUID                    `json:"coupon_id,omitempty"`
	PaymentStatus string                        `json:"payment_status,omitempty"`
}

// CreateOrder places a new order for the authenticated customer.
func CreateOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actor := middleware.ActorFromContext(ctx)

		var body createOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		input := orders.CreateOrderInput{
			CustomerID:    actor.UserID,
			Items:         body.Items,
			ShippingCents: body.ShippingCents,
			TaxCents:      body.TaxCents,
			DiscountCents: body.DiscountCents,
			CouponID:      body.CouponID,
		}
		if body.PaymentStatus != "" {
			status, err := enums.ParsePaymentStatus(body.PaymentStatus)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "payment_status"))
				return
			}
			input.PaymentStatus = status
		}

		order, err := svc.CreateOrder(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// GetOrder fetches a single order by id or code, access checked by role.
func GetOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actor := middleware.ActorFromContext(ctx)
		ref := orders.RefFromString(chi.URLParam(r, "orderRef"))

		order, err := svc.Get(ctx, ref, orderActor(actor))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// ListOrders lists orders for the caller. Customers see their own orders,
// vendors see orders containing their items, staff can scope by query params.
func ListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actor := middleware.ActorFromContext(ctx)

		limit, err := validators.ParseQueryInt(r, "limit", 20, 1, 100)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		input := orders.ListInput{
			Params: pagination.Params{Limit: limit, Cursor: r.URL.Query().Get("cursor")},
		}
		if raw := r.URL.Query().Get("status"); raw != "" {
			status, parseErr := enums.ParseOrderStatus(raw)
			if parseErr != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "status"))
				return
			}
			input.Status = &status
		}

		var list *orders.OrderList
		switch actor.Role {
		case enums.ActorRoleVendor:
			if actor.VendorID == nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "vendor account required"))
				return
			}
			list, err = svc.ListByVendor(ctx, *actor.VendorID, input)
		case enums.ActorRoleAdmin:
			scope, scopeErr := adminListScope(r)
			if scopeErr != nil {
				responses.WriteError(ctx, logg, w, scopeErr)
				return
			}
			if scope.vendorID != nil {
				list, err = svc.ListByVendor(ctx, *scope.vendorID, input)
			} else {
				list, err = svc.ListByCustomer(ctx, *scope.customerID, input)
			}
		default:
			list, err = svc.ListByCustomer(ctx, actor.UserID, input)
		}
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

type changeOrderStatusRequest struct {
	NewStatus string  `json:"new_status" validate:"required"`
	Note      *string `json:"note,omitempty"`
}

// ChangeOrderStatus applies one status transition, gated by the caller's role.
func ChangeOrderStatus(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actor := middleware.ActorFromContext(ctx)
		ref := orders.RefFromString(chi.URLParam(r, "orderRef"))

		var body changeOrderStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		status, err := enums.ParseOrderStatus(body.NewStatus)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "new_status"))
			return
		}

		order, err := svc.ChangeStatus(ctx, orders.ChangeStatusInput{
			Ref:       ref,
			NewStatus: status,
			Actor:     orderActor(actor),
			Note:      body.Note,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type cancellationRequest struct {
	Reason *string `json:"reason,omitempty"`
}

// RequestOrderCancellation records a customer's cancellation request. Orders
// still pending or confirmed cancel immediately.
func RequestOrderCancellation(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actor := middleware.ActorFromContext(ctx)
		ref := orders.RefFromString(chi.URLParam(r, "orderRef"))

		var body cancellationRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := svc.RequestCancellation(ctx, orders.RequestCancellationInput{
			Ref:        ref,
			CustomerID: actor.UserID,
			Reason:     body.Reason,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func orderActor(actor middleware.Actor) orders.ActorContext {
	return orders.ActorContext{
		UserID:   actor.UserID,
		VendorID: actor.VendorID,
		Role:     actor.Role,
	}
}

type listScope struct {
	customerID *uuid.UUID
	vendorID   *uuid.UUID
}

func adminListScope(r *http.Request) (listScope, error) {
	scope := listScope{}
	if raw := r.URL.Query().Get("vendor_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return scope, pkgerrors.New(pkgerrors.CodeValidation, "vendor_id must be a valid id")
		}
		scope.vendorID = &id
	}
	if raw := r.URL.Query().Get("customer_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return scope, pkgerrors.New(pkgerrors.CodeValidation, "customer_id must be a valid id")
		}
		scope.customerID = &id
	}
	if scope.customerID == nil && scope.vendorID == nil {
		return scope, pkgerrors.New(pkgerrors.CodeValidation, "vendor_id or customer_id is required")
	}
	return scope, nil
}
