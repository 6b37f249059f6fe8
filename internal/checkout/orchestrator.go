package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/topsevenstore/checkout-api/internal/cart"
	"github.com/topsevenstore/checkout-api/internal/payment"
	"github.com/topsevenstore/checkout-api/internal/shipping"
	"github.com/topsevenstore/checkout-api/pkg/config"
	"github.com/topsevenstore/checkout-api/pkg/culqi"
	"github.com/topsevenstore/checkout-api/pkg/enums"
	pkgerrors "github.com/topsevenstore/checkout-api/pkg/errors"
	"github.com/topsevenstore/checkout-api/pkg/logger"
	"github.com/topsevenstore/checkout-api/pkg/money"
	"github.com/topsevenstore/checkout-api/pkg/redis"
	"github.com/topsevenstore/checkout-api/pkg/types"
)

// agencyDirectory resolves pickup points for the shopper's selection.
type agencyDirectory interface {
	Directory(ctx context.Context) ([]types.Agency, error)
}

// DetailsInput is the checkout form submission: the customer profile plus
// the shipping selection made alongside it.
type DetailsInput struct {
	Customer types.CustomerData   `json:"customer"`
	Method   enums.ShippingMethod `json:"metodo_envio"`
	AgencyID string               `json:"agency_id,omitempty"`
}

// Session is the externally visible checkout snapshot, totals included.
type Session struct {
	State        enums.CheckoutState  `json:"state"`
	Customer     types.CustomerData   `json:"customer"`
	Method       enums.ShippingMethod `json:"metodo_envio"`
	Agency       *types.Agency        `json:"agency,omitempty"`
	Subtotal     decimal.Decimal      `json:"subtotal"`
	ShippingCost decimal.Decimal      `json:"shipping_cost"`
	Total        decimal.Decimal      `json:"total"`
}

// sessionState is what actually persists between requests.
type sessionState struct {
	State     enums.CheckoutState `json:"state"`
	Customer  types.CustomerData  `json:"customer"`
	Shipping  shipping.Selection  `json:"shipping"`
	HandleID  string              `json:"handle_id,omitempty"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// Service drives a shopper session through the checkout state machine:
// collecting_info, info_complete, payment_in_progress, payment_confirmed.
type Service interface {
	Session(ctx context.Context, sessionID string) (*Session, error)
	SubmitDetails(ctx context.Context, sessionID string, input DetailsInput) (*Session, error)
	OpenPayment(ctx context.Context, sessionID string) (*culqi.ClientConfig, error)
	CancelPayment(ctx context.Context, sessionID string) (*Session, error)
	DeliverResult(ctx context.Context, sessionID string, res culqi.Result) (*Session, *types.Notice, error)
}

type service struct {
	carts    cart.Service
	agencies agencyDirectory
	payments payment.Service
	widget   culqi.Widget
	kv       redis.KV
	logg     *logger.Logger

	culqiCfg    config.CulqiConfig
	homeFee     decimal.Decimal
	countryCode string

	// Serializes transitions per session.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService wires the checkout orchestrator.
func NewService(
	carts cart.Service,
	agencies agencyDirectory,
	payments payment.Service,
	widget culqi.Widget,
	kv redis.KV,
	culqiCfg config.CulqiConfig,
	checkoutCfg config.CheckoutConfig,
	logg *logger.Logger,
) (Service, error) {
	if carts == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if agencies == nil {
		return nil, fmt.Errorf("agency directory required")
	}
	if payments == nil {
		return nil, fmt.Errorf("payment service required")
	}
	if widget == nil {
		return nil, fmt.Errorf("payment widget required")
	}
	if kv == nil {
		return nil, fmt.Errorf("state storage required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}

	countryCode := checkoutCfg.CountryCode
	if countryCode == "" {
		countryCode = "PE"
	}

	return &service{
		carts:       carts,
		agencies:    agencies,
		payments:    payments,
		widget:      widget,
		kv:          kv,
		logg:        logg,
		culqiCfg:    culqiCfg,
		homeFee:     checkoutCfg.HomeDeliveryFeeAmount(),
		countryCode: countryCode,
		locks:       map[string]*sync.Mutex{},
	}, nil
}

func (s *service) sessionLock(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[sessionID] = lock
	}
	return lock
}

// Session returns the current checkout snapshot for the session, creating
// a fresh collecting_info state on first sight.
func (s *service) Session(ctx context.Context, sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}

	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	state, err := s.loadState(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.snapshot(ctx, sessionID, state)
}

// SubmitDetails validates and stores the customer profile together with
// the shipping selection. A failed submission leaves the stored state
// untouched.
func (s *service) SubmitDetails(ctx context.Context, sessionID string, input DetailsInput) (*Session, error) {
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}

	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	state, err := s.loadState(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state.State == enums.CheckoutStatePaymentInProgress {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "details are locked while payment is open")
	}
	if state.State.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "checkout already completed")
	}

	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown shipping method").
			WithDetails(map[string]any{"metodo_envio": string(input.Method)})
	}

	customer := normalizeCustomer(input.Customer, s.countryCode)
	selection := shipping.Selection{Method: input.Method}

	if input.Method.IsPickup() {
		if input.AgencyID == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "agency selection required for pickup").
				WithDetails(map[string]string{"agency_id": "requerido"})
		}
		agency, err := s.findAgency(ctx, input.AgencyID)
		if err != nil {
			return nil, err
		}
		if err := shipping.SelectAgency(&selection, &customer, *agency); err != nil {
			return nil, err
		}
	}

	if fields := validateCustomer(customer); len(fields) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer details incomplete").
			WithDetails(fields)
	}

	state.Customer = customer
	state.Shipping = selection
	state.State = enums.CheckoutStateInfoComplete
	if err := s.persistState(ctx, sessionID, state); err != nil {
		return nil, err
	}
	return s.snapshot(ctx, sessionID, state)
}

// OpenPayment configures the hosted widget for the session total and
// returns what the browser needs to open it. Calling it again replaces
// the previous attempt, so a reload never leaves two live handles.
func (s *service) OpenPayment(ctx context.Context, sessionID string) (*culqi.ClientConfig, error) {
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}

	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	state, err := s.loadState(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	switch state.State {
	case enums.CheckoutStateInfoComplete, enums.CheckoutStatePaymentInProgress:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "customer details must be completed first")
	}

	snap, err := s.carts.Snapshot(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(snap.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart is empty")
	}

	total := snap.Total.Add(shipping.Cost(state.Shipping.Method, s.homeFee))

	if err := s.widget.AwaitReady(ctx); err != nil {
		return nil, err
	}

	if state.HandleID != "" {
		_ = s.widget.Close(&culqi.Handle{ID: state.HandleID})
	}

	handle, err := s.widget.Configure(culqi.Options{
		Title:          s.culqiCfg.Title,
		Currency:       s.culqiCfg.Currency,
		AmountMinor:    money.ToMinorUnits(total),
		OrderID:        s.culqiCfg.OrderID,
		RSAID:          s.culqiCfg.RSAID,
		RSAPublicKey:   s.culqiCfg.RSAPublicKey,
		PaymentMethods: culqi.DefaultPaymentMethods(),
		Style:          culqi.DefaultStyle(s.culqiCfg.LogoURL),
	})
	if err != nil {
		return nil, err
	}
	s.widget.OnResult(handle, s.resultHandler(sessionID))
	if err := s.widget.Open(handle); err != nil {
		return nil, err
	}

	state.HandleID = handle.ID
	state.State = enums.CheckoutStatePaymentInProgress
	if err := s.persistState(ctx, sessionID, state); err != nil {
		_ = s.widget.Close(handle)
		return nil, err
	}

	s.logg.Info(s.logg.WithSessionID(ctx, sessionID), "payment widget opened")
	return s.widget.ClientConfig(handle)
}

// CancelPayment records that the shopper closed the widget without paying.
func (s *service) CancelPayment(ctx context.Context, sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}

	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	state, err := s.loadState(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state.State != enums.CheckoutStatePaymentInProgress {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no payment attempt is open")
	}

	if state.HandleID != "" {
		_ = s.widget.Close(&culqi.Handle{ID: state.HandleID})
	}
	state.HandleID = ""
	state.State = enums.CheckoutStateInfoComplete
	if err := s.persistState(ctx, sessionID, state); err != nil {
		return nil, err
	}
	return s.snapshot(ctx, sessionID, state)
}

// DeliverResult routes the widget callback payload into the registered
// consumer and reports the resulting session plus a shopper notice.
func (s *service) DeliverResult(ctx context.Context, sessionID string, res culqi.Result) (*Session, *types.Notice, error) {
	if sessionID == "" {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}

	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	state, err := s.loadState(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if state.State != enums.CheckoutStatePaymentInProgress || state.HandleID == "" {
		return nil, nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no payment attempt is open")
	}

	deliverErr := s.widget.Deliver(ctx, state.HandleID, res)

	// The callback mutated and persisted the state; reload for the reply.
	state, loadErr := s.loadState(ctx, sessionID)
	if loadErr != nil {
		return nil, nil, loadErr
	}
	session, snapErr := s.snapshot(ctx, sessionID, state)
	if snapErr != nil {
		return nil, nil, snapErr
	}

	if deliverErr != nil {
		return session, nil, deliverErr
	}

	if res.Token != nil {
		return session, &types.Notice{Title: "Pago procesado exitosamente"}, nil
	}
	return session, nil, nil
}

// resultHandler is the single consumer for one payment attempt. It runs
// under the session lock held by DeliverResult.
func (s *service) resultHandler(sessionID string) culqi.ResultCallback {
	return func(ctx context.Context, res culqi.Result) error {
		switch {
		case res.Token != nil:
			return s.completePayment(ctx, sessionID, res.Token.ID)
		case res.Error != nil:
			return s.failPayment(ctx, sessionID, res.Error)
		case res.Closed:
			return s.abandonPayment(ctx, sessionID)
		default:
			return pkgerrors.New(pkgerrors.CodeValidation, "widget result carries no outcome")
		}
	}
}

// completePayment snapshots the cart, submits the charge and, only after
// the confirmation is durably stored, clears the cart.
func (s *service) completePayment(ctx context.Context, sessionID, token string) error {
	state, err := s.loadState(ctx, sessionID)
	if err != nil {
		return err
	}

	snap, err := s.carts.Snapshot(ctx, sessionID)
	if err != nil {
		return err
	}
	if len(snap.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "cart is empty")
	}

	items := make([]types.OrderItem, 0, len(snap.Items))
	for _, it := range snap.Items {
		items = append(items, types.OrderItem{
			ID:       fmt.Sprint(it.ProductID),
			Name:     it.Name,
			Price:    it.EffectivePrice(),
			Quantity: 1,
		})
	}

	subtotal := snap.Total
	shippingCost := shipping.Cost(state.Shipping.Method, s.homeFee)
	total := subtotal.Add(shippingCost)

	_, err = s.payments.Confirm(ctx, sessionID, payment.ConfirmInput{
		Token:        token,
		AmountMinor:  money.ToMinorUnits(total),
		Customer:     state.Customer,
		Method:       state.Shipping.Method,
		Items:        items,
		Subtotal:     subtotal,
		ShippingCost: shippingCost,
		Total:        total,
	})
	if err != nil {
		// The attempt is spent; the shopper re-opens from info_complete.
		state.HandleID = ""
		state.State = enums.CheckoutStateInfoComplete
		if persistErr := s.persistState(ctx, sessionID, state); persistErr != nil {
			s.logg.Error(ctx, "state rollback after declined payment failed", persistErr)
		}
		return err
	}

	if err := s.carts.RemoveAll(ctx, sessionID); err != nil {
		// The order is already confirmed and stored. A lingering cart is
		// the recoverable side of this window.
		s.logg.Warn(s.logg.WithSessionID(ctx, sessionID),
			fmt.Sprintf("cart cleanup after confirmation failed: %v", err))
	}

	state.HandleID = ""
	state.State = enums.CheckoutStatePaymentConfirmed
	return s.persistState(ctx, sessionID, state)
}

func (s *service) failPayment(ctx context.Context, sessionID string, widgetErr *culqi.WidgetError) error {
	state, err := s.loadState(ctx, sessionID)
	if err != nil {
		return err
	}
	state.HandleID = ""
	state.State = enums.CheckoutStateInfoComplete
	if err := s.persistState(ctx, sessionID, state); err != nil {
		return err
	}

	message := widgetErr.UserMessage
	if message == "" {
		message = "El pago no pudo ser procesado"
	}
	return pkgerrors.New(pkgerrors.CodePayment, message).
		WithDetails(map[string]any{"user_message": message, "code": widgetErr.Code})
}

func (s *service) abandonPayment(ctx context.Context, sessionID string) error {
	state, err := s.loadState(ctx, sessionID)
	if err != nil {
		return err
	}
	state.HandleID = ""
	state.State = enums.CheckoutStateInfoComplete
	return s.persistState(ctx, sessionID, state)
}

func (s *service) findAgency(ctx context.Context, agencyID string) (*types.Agency, error) {
	directory, err := s.agencies.Directory(ctx)
	if err != nil {
		return nil, err
	}
	for i := range directory {
		if directory[i].ID == agencyID {
			return &directory[i], nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "agency not found").
		WithDetails(map[string]string{"agency_id": agencyID})
}

func (s *service) snapshot(ctx context.Context, sessionID string, state *sessionState) (*Session, error) {
	snap, err := s.carts.Snapshot(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	shippingCost := shipping.Cost(state.Shipping.Method, s.homeFee)
	return &Session{
		State:        state.State,
		Customer:     state.Customer,
		Method:       state.Shipping.Method,
		Agency:       state.Shipping.Agency,
		Subtotal:     snap.Total,
		ShippingCost: shippingCost,
		Total:        snap.Total.Add(shippingCost),
	}, nil
}

func (s *service) loadState(ctx context.Context, sessionID string) (*sessionState, error) {
	raw, err := s.kv.Get(ctx, redis.CheckoutStateKey(sessionID))
	if err != nil {
		if redis.IsNil(err) {
			return &sessionState{
				State:    enums.CheckoutStateCollectingInfo,
				Shipping: shipping.Selection{Method: enums.ShippingMethodShalom},
			}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load checkout state")
	}

	var state sessionState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode checkout state")
	}
	return &state, nil
}

func (s *service) persistState(ctx context.Context, sessionID string, state *sessionState) error {
	state.UpdatedAt = time.Now().UTC()
	payload, err := json.Marshal(state)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode checkout state")
	}
	if err := s.kv.Set(ctx, redis.CheckoutStateKey(sessionID), string(payload), 0); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist checkout state")
	}
	return nil
}
