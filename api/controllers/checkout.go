package controllers

import (
	"net/http"

	"github.com/topsevenstore/checkout-api/api/middleware"
	"github.com/topsevenstore/checkout-api/api/responses"
	"github.com/topsevenstore/checkout-api/api/validators"
	"github.com/topsevenstore/checkout-api/internal/checkout"
	"github.com/topsevenstore/checkout-api/pkg/culqi"
	"github.com/topsevenstore/checkout-api/pkg/enums"
	pkgerrors "github.com/topsevenstore/checkout-api/pkg/errors"
	"github.com/topsevenstore/checkout-api/pkg/logger"
	"github.com/topsevenstore/checkout-api/pkg/types"
)

type detailsRequest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	Address     string `json:"address"`
	AddressCity string `json:"address_city"`
	CountryCode string `json:"country_code"`
	PhoneNumber string `json:"phone_number"`
	DNI         string `json:"dni"`
	Method      string `json:"metodo_envio" validate:"required"`
	AgencyID    string `json:"agency_id,omitempty"`
}

type widgetResultRequest struct {
	Token  *culqi.Token       `json:"token,omitempty"`
	Order  *culqi.OrderAck    `json:"order,omitempty"`
	Error  *culqi.WidgetError `json:"error,omitempty"`
	Closed bool               `json:"closed,omitempty"`
}

type sessionResponse struct {
	Session *checkout.Session `json:"checkout"`
	Notice  *types.Notice     `json:"notice,omitempty"`
}

func CheckoutFetch(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		session, err := svc.Session(ctx, middleware.SessionIDFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, sessionResponse{Session: session})
	}
}

func CheckoutDetails(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req detailsRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		session, err := svc.SubmitDetails(ctx, middleware.SessionIDFromContext(ctx), checkout.DetailsInput{
			Customer: types.CustomerData{
				FirstName:   req.FirstName,
				LastName:    req.LastName,
				Email:       req.Email,
				Address:     req.Address,
				AddressCity: req.AddressCity,
				CountryCode: req.CountryCode,
				PhoneNumber: req.PhoneNumber,
				DNI:         req.DNI,
			},
			Method:   enums.ShippingMethod(req.Method),
			AgencyID: req.AgencyID,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, sessionResponse{Session: session})
	}
}

func PaymentOpen(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		cfg, err := svc.OpenPayment(ctx, middleware.SessionIDFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"widget": cfg})
	}
}

func PaymentCancel(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		session, err := svc.CancelPayment(ctx, middleware.SessionIDFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, sessionResponse{Session: session})
	}
}

func PaymentConfirm(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req widgetResultRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if req.Token == nil && req.Order == nil && req.Error == nil && !req.Closed {
			responses.WriteError(ctx, logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "widget result carries no outcome"))
			return
		}

		session, notice, err := svc.DeliverResult(ctx, middleware.SessionIDFromContext(ctx), culqi.Result{
			Token:  req.Token,
			Order:  req.Order,
			Error:  req.Error,
			Closed: req.Closed,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, sessionResponse{Session: session, Notice: notice})
	}
}
