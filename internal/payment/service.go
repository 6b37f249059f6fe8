package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/topsevenstore/checkout-api/pkg/config"
	"github.com/topsevenstore/checkout-api/pkg/content"
	"github.com/topsevenstore/checkout-api/pkg/enums"
	pkgerrors "github.com/topsevenstore/checkout-api/pkg/errors"
	"github.com/topsevenstore/checkout-api/pkg/logger"
	"github.com/topsevenstore/checkout-api/pkg/money"
	"github.com/topsevenstore/checkout-api/pkg/redis"
	"github.com/topsevenstore/checkout-api/pkg/types"
)

// contentAPI is the slice of the backend client the payment flow needs.
type contentAPI interface {
	ProcessPayment(ctx context.Context, payload content.PaymentRequest) (*content.PaymentResponse, error)
}

// ConfirmInput carries everything the backend needs to charge the token
// and create the order. Items are a snapshot taken at submission time.
type ConfirmInput struct {
	Token        string
	AmountMinor  int64
	Customer     types.CustomerData
	Method       enums.ShippingMethod
	Items        []types.OrderItem
	Subtotal     decimal.Decimal
	ShippingCost decimal.Decimal
	Total        decimal.Decimal
}

// Service submits tokenized payments and serves the one-shot order
// confirmation afterwards.
type Service interface {
	Confirm(ctx context.Context, sessionID string, input ConfirmInput) (*types.OrderData, error)
	Confirmation(ctx context.Context, sessionID string) (*types.OrderData, error)
}

type service struct {
	api  contentAPI
	kv   redis.KV
	logg *logger.Logger
	ttl  time.Duration
}

// NewService builds the payment service.
func NewService(api contentAPI, kv redis.KV, cfg config.CheckoutConfig, logg *logger.Logger) (Service, error) {
	if api == nil {
		return nil, fmt.Errorf("content client required")
	}
	if kv == nil {
		return nil, fmt.Errorf("order storage required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}

	ttl := cfg.PendingOrderTTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &service{api: api, kv: kv, logg: logg, ttl: ttl}, nil
}

// Confirm submits the payment to the backend and persists the resulting
// order for the confirmation page. The order is written before Confirm
// returns so a crash between payment and redirect cannot lose it.
func (s *service) Confirm(ctx context.Context, sessionID string, input ConfirmInput) (*types.OrderData, error) {
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}

	dni, err := strconv.ParseInt(input.Customer.DNI, 10, 64)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dni must be numeric").
			WithDetails(map[string]any{"dni": input.Customer.DNI})
	}

	resp, err := s.api.ProcessPayment(ctx, content.PaymentRequest{
		Token:          input.Token,
		Amount:         input.AmountMinor,
		Email:          input.Customer.Email,
		FirstName:      input.Customer.FirstName,
		LastName:       input.Customer.LastName,
		Address:        input.Customer.Address,
		AddressCity:    input.Customer.AddressCity,
		CountryCode:    input.Customer.CountryCode,
		PhoneNumber:    input.Customer.PhoneNumber,
		DNI:            dni,
		ShippingMethod: input.Method,
		OrderItems:     input.Items,
		Subtotal:       input.Subtotal,
		ShippingCost:   input.ShippingCost,
		Total:          input.Total,
	})
	if err != nil {
		return nil, err
	}

	order := buildOrder(resp, input.Customer, dni)
	if err := s.storePending(ctx, sessionID, order); err != nil {
		return nil, err
	}

	ctx = s.logg.WithSessionID(ctx, sessionID)
	s.logg.Info(s.logg.WithField(ctx, "order_id", order.ID), "payment confirmed, pending order stored")
	return order, nil
}

// Confirmation returns the stored order exactly once. The second read of
// the same session finds nothing.
func (s *service) Confirmation(ctx context.Context, sessionID string) (*types.OrderData, error) {
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}

	key := redis.PendingOrderKey(sessionID)
	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		if redis.IsNil(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no pending order for session")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pending order")
	}

	var order types.OrderData
	if err := json.Unmarshal([]byte(raw), &order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode pending order")
	}

	if err := s.kv.Del(ctx, key); err != nil {
		// The order was already delivered; failing the request now would
		// only hide it from the shopper.
		s.logg.Warn(ctx, fmt.Sprintf("pending order cleanup failed: %v", err))
	}

	return &order, nil
}

func (s *service) storePending(ctx context.Context, sessionID string, order *types.OrderData) error {
	payload, err := json.Marshal(order)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode pending order")
	}
	if err := s.kv.Set(ctx, redis.PendingOrderKey(sessionID), string(payload), s.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist pending order")
	}
	return nil
}

// buildOrder merges the backend's order record with the customer profile
// the backend does not echo back. Backend amounts arrive in minor units.
func buildOrder(resp *content.PaymentResponse, customer types.CustomerData, dni int64) *types.OrderData {
	record := resp.Data.Orden

	status := enums.OrderStatus(record.OrderStatus)
	if !status.IsValid() {
		status = enums.OrderStatusPending
	}

	return &types.OrderData{
		ID:                record.ID,
		CustomerFirstName: customer.FirstName,
		CustomerLastName:  customer.LastName,
		Email:             customer.Email,
		PhoneNumber:       customer.PhoneNumber,
		DNI:               dni,
		Address:           customer.Address,
		AddressCity:       customer.AddressCity,
		CountryCode:       customer.CountryCode,
		ShippingMethod:    record.ShippingMethod,
		OrderItems:        record.OrderItems,
		Subtotal:          money.FromMinorUnits(record.Subtotal),
		ShippingCost:      money.FromMinorUnits(record.ShippingCost),
		Total:             money.FromMinorUnits(record.Total),
		OrderStatus:       status,
		CreatedAt:         record.CreatedAt,
		UpdatedAt:         record.UpdatedAt,
	}
}
