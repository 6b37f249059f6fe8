package controllers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/topsevenstore/checkout-api/api/middleware"
	"github.com/topsevenstore/checkout-api/api/responses"
	"github.com/topsevenstore/checkout-api/api/validators"
	"github.com/topsevenstore/checkout-api/internal/cart"
	pkgerrors "github.com/topsevenstore/checkout-api/pkg/errors"
	"github.com/topsevenstore/checkout-api/pkg/logger"
	"github.com/topsevenstore/checkout-api/pkg/types"
)

type addItemRequest struct {
	ID        int64            `json:"id" validate:"required"`
	Name      string           `json:"name" validate:"required"`
	Price     decimal.Decimal  `json:"price"`
	Discount  *decimal.Decimal `json:"discount,omitempty"`
	OfferType string           `json:"offer_type,omitempty"`
	Images    []string         `json:"images,omitempty"`
}

type cartResponse struct {
	Items  []types.CartItem `json:"items"`
	Total  decimal.Decimal  `json:"total"`
	Notice *types.Notice    `json:"notice,omitempty"`
}

func cartPayload(snap *cart.Snapshot, notice *types.Notice) cartResponse {
	items := snap.Items
	if items == nil {
		items = []types.CartItem{}
	}
	return cartResponse{Items: items, Total: snap.Total, Notice: notice}
}

func CartFetch(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		snap, err := svc.Snapshot(ctx, middleware.SessionIDFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, cartPayload(snap, nil))
	}
}

func CartAdd(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req addItemRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if req.Price.IsNegative() {
			responses.WriteError(ctx, logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative"))
			return
		}

		snap, notice, err := svc.AddItem(ctx, middleware.SessionIDFromContext(ctx), types.CartItem{
			ProductID: req.ID,
			Name:      req.Name,
			Price:     req.Price,
			Discount:  req.Discount,
			OfferType: req.OfferType,
			Images:    req.Images,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, cartPayload(snap, notice))
	}
}

func CartRemove(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
		if err != nil {
			responses.WriteError(ctx, logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "product id must be numeric"))
			return
		}

		snap, notice, err := svc.RemoveItem(ctx, middleware.SessionIDFromContext(ctx), productID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, cartPayload(snap, notice))
	}
}

func CartClear(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if err := svc.RemoveAll(ctx, middleware.SessionIDFromContext(ctx)); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, cartPayload(&cart.Snapshot{Total: decimal.Zero}, nil))
	}
}
