package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/topsevenstore/checkout-api/internal/payment"
	"github.com/topsevenstore/checkout-api/pkg/enums"
	pkgerrors "github.com/topsevenstore/checkout-api/pkg/errors"
	"github.com/topsevenstore/checkout-api/pkg/types"
)

type stubPayments struct {
	order *types.OrderData
	err   error
}

func (s *stubPayments) Confirm(context.Context, string, payment.ConfirmInput) (*types.OrderData, error) {
	return s.order, s.err
}

func (s *stubPayments) Confirmation(context.Context, string) (*types.OrderData, error) {
	return s.order, s.err
}

func TestOrderConfirmationReturnsOrder(t *testing.T) {
	stub := &stubPayments{order: &types.OrderData{
		ID:          42,
		OrderStatus: enums.OrderStatusPending,
		Total:       decimal.RequireFromString("69.90"),
	}}
	handler := OrderConfirmation(stub, testLogger())

	req := withSession(httptest.NewRequest(http.MethodGet, "/api/v1/orders/confirmation", nil))
	resp := httptest.NewRecorder()
	handler(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var envelope struct {
		Data struct {
			Order types.OrderData `json:"order"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Order.ID != 42 {
		t.Fatalf("order id = %d", envelope.Data.Order.ID)
	}
}

func TestOrderConfirmationMissingIs404(t *testing.T) {
	stub := &stubPayments{err: pkgerrors.New(pkgerrors.CodeNotFound, "no pending order for session")}
	handler := OrderConfirmation(stub, testLogger())

	req := withSession(httptest.NewRequest(http.MethodGet, "/api/v1/orders/confirmation", nil))
	resp := httptest.NewRecorder()
	handler(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}
