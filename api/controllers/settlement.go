package controllers

import (
	"net/http"

	"github.com/mfigueredo/vendora-backend/api/responses"
	"github.com/mfigueredo/vendora-backend/internal/settlement"
	pkgerrors "github.com/mfigueredo/vendora-backend/pkg/errors"
	"github.com/mfigueredo/vendora-backend/pkg/logger"
)

// RunSettlement triggers one settlement sweep outside the scheduled cadence.
// Partial failures still release what they can, so the counts are returned
// alongside the error detail.
func RunSettlement(sweeper *settlement.Sweeper, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if sweeper == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement sweeper unavailable"))
			return
		}

		result, err := sweeper.Sweep(ctx)
		if err != nil {
			typed := pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settlement sweep partially failed")
			if result != nil {
				typed = typed.WithDetails(result)
			}
			responses.WriteError(ctx, logg, w, typed)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
