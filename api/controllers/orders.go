package controllers

import (
	"net/http"

	"github.com/topsevenstore/checkout-api/api/middleware"
	"github.com/topsevenstore/checkout-api/api/responses"
	"github.com/topsevenstore/checkout-api/internal/payment"
	"github.com/topsevenstore/checkout-api/pkg/logger"
)

// OrderConfirmation serves the confirmed order exactly once; refreshing
// the confirmation page finds nothing.
func OrderConfirmation(svc payment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		order, err := svc.Confirmation(ctx, middleware.SessionIDFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"order": order})
	}
}
