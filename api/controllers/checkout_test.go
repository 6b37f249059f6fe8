package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/topsevenstore/checkout-api/internal/checkout"
	"github.com/topsevenstore/checkout-api/pkg/culqi"
	"github.com/topsevenstore/checkout-api/pkg/enums"
	pkgerrors "github.com/topsevenstore/checkout-api/pkg/errors"
	"github.com/topsevenstore/checkout-api/pkg/types"
)

type stubCheckout struct {
	session   *checkout.Session
	widgetCfg *culqi.ClientConfig
	notice    *types.Notice
	err       error

	gotDetails *checkout.DetailsInput
	gotResult  *culqi.Result
}

func (s *stubCheckout) Session(context.Context, string) (*checkout.Session, error) {
	return s.session, s.err
}

func (s *stubCheckout) SubmitDetails(_ context.Context, _ string, input checkout.DetailsInput) (*checkout.Session, error) {
	s.gotDetails = &input
	return s.session, s.err
}

func (s *stubCheckout) OpenPayment(context.Context, string) (*culqi.ClientConfig, error) {
	return s.widgetCfg, s.err
}

func (s *stubCheckout) CancelPayment(context.Context, string) (*checkout.Session, error) {
	return s.session, s.err
}

func (s *stubCheckout) DeliverResult(_ context.Context, _ string, res culqi.Result) (*checkout.Session, *types.Notice, error) {
	s.gotResult = &res
	return s.session, s.notice, s.err
}

func infoCompleteSession() *checkout.Session {
	return &checkout.Session{
		State:        enums.CheckoutStateInfoComplete,
		Method:       enums.ShippingMethodOlva,
		Subtotal:     decimal.RequireFromString("49.90"),
		ShippingCost: decimal.RequireFromString("20.00"),
		Total:        decimal.RequireFromString("69.90"),
	}
}

func TestCheckoutDetailsForwardsSubmission(t *testing.T) {
	stub := &stubCheckout{session: infoCompleteSession()}
	handler := CheckoutDetails(stub, testLogger())

	body := `{"first_name":"Ana","last_name":"Quispe","email":"ana@example.com",` +
		`"address":"Av. Arequipa 500","address_city":"Lima","phone_number":"999888777",` +
		`"dni":"12345678","metodo_envio":"olva"}`
	req := withSession(httptest.NewRequest(http.MethodPost, "/api/v1/checkout/details", strings.NewReader(body)))
	resp := httptest.NewRecorder()
	handler(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if stub.gotDetails == nil {
		t.Fatal("expected submission forwarded to the service")
	}
	if stub.gotDetails.Method != enums.ShippingMethodOlva {
		t.Fatalf("method = %v", stub.gotDetails.Method)
	}
	if stub.gotDetails.Customer.FirstName != "Ana" {
		t.Fatalf("customer not mapped: %+v", stub.gotDetails.Customer)
	}
}

func TestCheckoutDetailsRequiresMethod(t *testing.T) {
	stub := &stubCheckout{session: infoCompleteSession()}
	handler := CheckoutDetails(stub, testLogger())

	req := withSession(httptest.NewRequest(http.MethodPost, "/api/v1/checkout/details",
		strings.NewReader(`{"first_name":"Ana"}`)))
	resp := httptest.NewRecorder()
	handler(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if stub.gotDetails != nil {
		t.Fatal("invalid body must not reach the service")
	}
}

func TestCheckoutDetailsMapsFieldErrors(t *testing.T) {
	stub := &stubCheckout{err: pkgerrors.New(pkgerrors.CodeValidation, "customer details incomplete").
		WithDetails(map[string]string{"email": "correo electrónico inválido"})}
	handler := CheckoutDetails(stub, testLogger())

	body := `{"email":"mal","metodo_envio":"olva"}`
	req := withSession(httptest.NewRequest(http.MethodPost, "/api/v1/checkout/details", strings.NewReader(body)))
	resp := httptest.NewRecorder()
	handler(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	var envelope types.ErrorEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Error.Details == nil {
		t.Fatal("expected field details in the error envelope")
	}
}

func TestPaymentOpenReturnsWidgetConfig(t *testing.T) {
	stub := &stubCheckout{widgetCfg: &culqi.ClientConfig{
		HandleID:  "h-1",
		PublicKey: "pk_test_abc",
		Settings:  culqi.Settings{Amount: 6990, Currency: "PEN", Order: "ord_fixed"},
	}}
	handler := PaymentOpen(stub, testLogger())

	req := withSession(httptest.NewRequest(http.MethodPost, "/api/v1/checkout/payment/open", nil))
	resp := httptest.NewRecorder()
	handler(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var envelope struct {
		Data struct {
			Widget culqi.ClientConfig `json:"widget"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Widget.Settings.Amount != 6990 {
		t.Fatalf("widget amount = %d", envelope.Data.Widget.Settings.Amount)
	}
}

func TestPaymentOpenEmptyCartConflicts(t *testing.T) {
	stub := &stubCheckout{err: pkgerrors.New(pkgerrors.CodeStateConflict, "cart is empty")}
	handler := PaymentOpen(stub, testLogger())

	req := withSession(httptest.NewRequest(http.MethodPost, "/api/v1/checkout/payment/open", nil))
	resp := httptest.NewRecorder()
	handler(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.Code)
	}
}

func TestPaymentConfirmForwardsToken(t *testing.T) {
	stub := &stubCheckout{
		session: &checkout.Session{State: enums.CheckoutStatePaymentConfirmed},
		notice:  &types.Notice{Title: "Pago procesado exitosamente"},
	}
	handler := PaymentConfirm(stub, testLogger())

	req := withSession(httptest.NewRequest(http.MethodPost, "/api/v1/checkout/payment/confirm",
		strings.NewReader(`{"token":{"id":"tkn_1"}}`)))
	resp := httptest.NewRecorder()
	handler(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if stub.gotResult == nil || stub.gotResult.Token == nil || stub.gotResult.Token.ID != "tkn_1" {
		t.Fatalf("token not forwarded: %+v", stub.gotResult)
	}
	var envelope struct {
		Data sessionResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Notice == nil || envelope.Data.Notice.Title != "Pago procesado exitosamente" {
		t.Fatalf("unexpected notice: %+v", envelope.Data.Notice)
	}
}

func TestPaymentConfirmRejectsEmptyResult(t *testing.T) {
	stub := &stubCheckout{}
	handler := PaymentConfirm(stub, testLogger())

	req := withSession(httptest.NewRequest(http.MethodPost, "/api/v1/checkout/payment/confirm",
		strings.NewReader(`{}`)))
	resp := httptest.NewRecorder()
	handler(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if stub.gotResult != nil {
		t.Fatal("empty result must not reach the service")
	}
}

func TestPaymentConfirmWidgetErrorMapsToBadGateway(t *testing.T) {
	stub := &stubCheckout{
		session: &checkout.Session{State: enums.CheckoutStateInfoComplete},
		err:     pkgerrors.New(pkgerrors.CodePayment, "Tarjeta rechazada"),
	}
	handler := PaymentConfirm(stub, testLogger())

	req := withSession(httptest.NewRequest(http.MethodPost, "/api/v1/checkout/payment/confirm",
		strings.NewReader(`{"error":{"code":"card_declined","user_message":"Tarjeta rechazada"}}`)))
	resp := httptest.NewRecorder()
	handler(resp, req)

	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.Code)
	}
	var envelope types.ErrorEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Error.Message != "Tarjeta rechazada" {
		t.Fatalf("message = %q", envelope.Error.Message)
	}
}
