package culqi

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/topsevenstore/checkout-api/pkg/config"
	pkgerrors "github.com/topsevenstore/checkout-api/pkg/errors"
	"github.com/topsevenstore/checkout-api/pkg/logger"
)

var (
	errPublicKeyRequired = errors.New("culqi public key is required")
	errOrderIDRequired   = errors.New("culqi order id is required")
)

// Token is the opaque payment token the hosted widget yields on success.
type Token struct {
	ID string `json:"id"`
}

// OrderAck acknowledges an order created inside the widget flow.
type OrderAck struct {
	ID string `json:"id"`
}

// WidgetError carries the processor's user-facing failure message.
type WidgetError struct {
	Code        string `json:"code,omitempty"`
	UserMessage string `json:"user_message"`
}

// Result is what the vendor's global callback delivers: exactly one of a
// token, an order acknowledgement, an error, or a close-without-completion.
type Result struct {
	Token  *Token
	Order  *OrderAck
	Error  *WidgetError
	Closed bool
}

// ResultCallback consumes widget results. A handle holds a single callback
// slot; registering again replaces the previous one.
type ResultCallback func(ctx context.Context, res Result) error

// PaymentMethods toggles the categories offered inside the widget.
type PaymentMethods struct {
	Tarjeta    bool `json:"tarjeta"`
	Yape       bool `json:"yape"`
	BancaMovil bool `json:"bancaMovil"`
	Agente     bool `json:"agente"`
	Billetera  bool `json:"billetera"`
	Cuotealo   bool `json:"cuotealo"`
}

// DefaultPaymentMethods enables every category the store accepts.
func DefaultPaymentMethods() PaymentMethods {
	return PaymentMethods{
		Tarjeta:    true,
		Yape:       true,
		BancaMovil: true,
		Agente:     true,
		Billetera:  true,
		Cuotealo:   true,
	}
}

// Style is the widget's display theming.
type Style struct {
	Logo             string `json:"logo,omitempty"`
	BannerColor      string `json:"bannerColor"`
	ButtonBackground string `json:"buttonBackground"`
	MenuColor        string `json:"menuColor"`
	LinksColor       string `json:"linksColor"`
	ButtonText       string `json:"buttonText"`
	ButtonTextColor  string `json:"buttonTextColor"`
	PriceColor       string `json:"priceColor"`
}

// DefaultStyle matches the storefront branding.
func DefaultStyle(logoURL string) Style {
	return Style{
		Logo:             logoURL,
		BannerColor:      "#000000",
		ButtonBackground: "#007bff",
		MenuColor:        "#000000",
		LinksColor:       "#007bff",
		ButtonText:       "Pagar ahora",
		ButtonTextColor:  "#ffffff",
		PriceColor:       "#ff5733",
	}
}

// Options configures one checkout attempt.
type Options struct {
	Title          string
	Currency       string
	AmountMinor    int64
	OrderID        string
	RSAID          string
	RSAPublicKey   string
	PaymentMethods PaymentMethods
	Style          Style
}

// Settings is the vendor-shaped settings block handed to the browser.
type Settings struct {
	Title        string `json:"title"`
	Currency     string `json:"currency"`
	Amount       int64  `json:"amount"`
	Order        string `json:"order"`
	XCulqiRSAID  string `json:"xculqirsaid,omitempty"`
	RSAPublicKey string `json:"rsapublickey,omitempty"`
}

// DisplayOptions is the vendor-shaped options block handed to the browser.
type DisplayOptions struct {
	Lang           string         `json:"lang"`
	Installments   bool           `json:"installments"`
	PaymentMethods PaymentMethods `json:"paymentMethods"`
	Style          Style          `json:"style"`
}

// ClientConfig is everything the browser needs to open the hosted widget.
type ClientConfig struct {
	HandleID  string         `json:"handle_id"`
	PublicKey string         `json:"public_key"`
	Settings  Settings       `json:"settings"`
	Options   DisplayOptions `json:"options"`
}

// Handle identifies one configured checkout attempt.
type Handle struct {
	ID string
}

// Widget is the adapter surface that isolates the rest of the system from
// the vendor's global-callback convention.
type Widget interface {
	AwaitReady(ctx context.Context) error
	Configure(opts Options) (*Handle, error)
	OnResult(h *Handle, cb ResultCallback)
	Open(h *Handle) error
	Deliver(ctx context.Context, handleID string, res Result) error
	Close(h *Handle) error
	ClientConfig(h *Handle) (*ClientConfig, error)
}

type handleState struct {
	opts Options
	cb   ResultCallback
	open bool
}

// Checkout implements Widget against the hosted Culqi checkout.
type Checkout struct {
	cfg  config.CulqiConfig
	logg *logger.Logger

	mu      sync.Mutex
	handles map[string]*handleState

	readyOnce sync.Once
	ready     chan struct{}
}

// NewCheckout validates credentials and builds the widget adapter.
func NewCheckout(cfg config.CulqiConfig, logg *logger.Logger) (*Checkout, error) {
	if strings.TrimSpace(cfg.PublicKey) == "" {
		return nil, errPublicKeyRequired
	}
	if strings.TrimSpace(cfg.OrderID) == "" {
		return nil, errOrderIDRequired
	}
	return &Checkout{
		cfg:     cfg,
		logg:    logg,
		handles: map[string]*handleState{},
		ready:   make(chan struct{}),
	}, nil
}

// MarkReady resolves the one-shot readiness future. It is triggered by the
// checkout script's load event (proxied by the frontend) and is safe to
// call more than once.
func (c *Checkout) MarkReady() {
	c.readyOnce.Do(func() { close(c.ready) })
}

// AwaitReady blocks until the widget script has loaded, the context is
// cancelled, or the configured wait elapses.
func (c *Checkout) AwaitReady(ctx context.Context) error {
	wait := c.cfg.ScriptWait
	if wait <= 0 {
		wait = 15 * time.Second
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-c.ready:
		return nil
	case <-ctx.Done():
		return pkgerrors.Wrap(pkgerrors.CodeDependency, ctx.Err(), "widget readiness wait cancelled")
	case <-timer.C:
		return pkgerrors.New(pkgerrors.CodeDependency, "payment widget script did not load in time")
	}
}

// Configure registers a new checkout attempt and returns its handle.
func (c *Checkout) Configure(opts Options) (*Handle, error) {
	if opts.AmountMinor <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "widget amount must be positive")
	}
	if opts.Title == "" {
		opts.Title = c.cfg.Title
	}
	if opts.Currency == "" {
		opts.Currency = c.cfg.Currency
	}
	if opts.OrderID == "" {
		opts.OrderID = c.cfg.OrderID
	}

	h := &Handle{ID: uuid.NewString()}
	c.mu.Lock()
	c.handles[h.ID] = &handleState{opts: opts}
	c.mu.Unlock()
	return h, nil
}

// OnResult installs the result callback for the handle, replacing any
// previous registration.
func (c *Checkout) OnResult(h *Handle, cb ResultCallback) {
	if h == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if state, ok := c.handles[h.ID]; ok {
		state.cb = cb
	}
}

// Open marks the checkout attempt as presented to the shopper.
func (c *Checkout) Open(h *Handle) error {
	if h == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "widget handle is required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	state, ok := c.handles[h.ID]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "checkout attempt not found")
	}
	state.open = true
	return nil
}

// Deliver routes a result from the vendor callback into the registered
// consumer. A close-without-completion marks the attempt closed.
func (c *Checkout) Deliver(ctx context.Context, handleID string, res Result) error {
	c.mu.Lock()
	state, ok := c.handles[handleID]
	if !ok {
		c.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeNotFound, "checkout attempt not found")
	}
	if !state.open {
		c.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeStateConflict, "checkout attempt is not open")
	}
	cb := state.cb
	if res.Closed || res.Token != nil {
		state.open = false
	}
	c.mu.Unlock()

	if cb == nil {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "no result consumer registered")
	}
	return cb(ctx, res)
}

// Close discards the checkout attempt and its callback registration.
func (c *Checkout) Close(h *Handle) error {
	if h == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.handles, h.ID)
	return nil
}

// ClientConfig renders the vendor settings/options for the browser.
func (c *Checkout) ClientConfig(h *Handle) (*ClientConfig, error) {
	if h == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "widget handle is required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	state, ok := c.handles[h.ID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "checkout attempt not found")
	}

	opts := state.opts
	return &ClientConfig{
		HandleID:  h.ID,
		PublicKey: c.cfg.PublicKey,
		Settings: Settings{
			Title:        opts.Title,
			Currency:     opts.Currency,
			Amount:       opts.AmountMinor,
			Order:        opts.OrderID,
			XCulqiRSAID:  opts.RSAID,
			RSAPublicKey: opts.RSAPublicKey,
		},
		Options: DisplayOptions{
			Lang:           "es",
			Installments:   false,
			PaymentMethods: opts.PaymentMethods,
			Style:          opts.Style,
		},
	}, nil
}
