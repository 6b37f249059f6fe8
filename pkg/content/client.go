package content

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/topsevenstore/checkout-api/pkg/config"
	"github.com/topsevenstore/checkout-api/pkg/enums"
	pkgerrors "github.com/topsevenstore/checkout-api/pkg/errors"
	_ "github.com/topsevenstore/checkout-api/pkg/money" // configures decimal JSON marshalling (numbers, not strings)
	"github.com/topsevenstore/checkout-api/pkg/types"
)

const (
	agenciesPath             = "api/shaloms"
	processPaymentPath       = "api/process-payment"
	errorBodyReadLimit int64 = 1024
)

var errBaseURLRequired = errors.New("content backend base url is required")

// Client wraps the headless commerce backend that owns the agency
// directory and payment processing.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient builds the backend client from configuration.
func NewClient(cfg config.ContentConfig, opts ...Option) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, errBaseURLRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// Ping checks that the backend answers at all. Any HTTP response counts;
// only transport failures mark it down.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil {
		return errors.New("content client not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL, nil)
	if err != nil {
		return fmt.Errorf("build ping request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("content backend unreachable: %w", err)
	}
	_ = resp.Body.Close()
	return nil
}

// FlexibleID tolerates the backend emitting record ids as either JSON
// numbers or strings.
type FlexibleID string

func (f *FlexibleID) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		*f = FlexibleID(asString)
		return nil
	}
	var asNumber json.Number
	if err := json.Unmarshal(data, &asNumber); err != nil {
		return fmt.Errorf("id is neither string nor number: %s", string(data))
	}
	*f = FlexibleID(asNumber.String())
	return nil
}

// AgencyAttributes is the nested field layout some backend revisions emit.
type AgencyAttributes struct {
	Nombre    string `json:"nombre"`
	Ubicacion string `json:"ubicacion"`
	Direccion string `json:"direccion"`
}

// RawAgency is one agency record as returned by the backend. Older
// revisions return the fields flat, newer ones nest them under attributes.
type RawAgency struct {
	ID         FlexibleID        `json:"id"`
	Nombre     string            `json:"nombre"`
	Ubicacion  string            `json:"ubicacion"`
	Direccion  string            `json:"direccion"`
	Attributes *AgencyAttributes `json:"attributes"`
}

// PaginationMeta carries the backend's page accounting.
type PaginationMeta struct {
	Page      int `json:"page"`
	PageSize  int `json:"pageSize"`
	PageCount int `json:"pageCount"`
	Total     int `json:"total"`
}

// AgencyPage is one page of the agency directory.
type AgencyPage struct {
	Data []RawAgency `json:"data"`
	Meta struct {
		Pagination PaginationMeta `json:"pagination"`
	} `json:"meta"`
}

// ListAgencies fetches a single page of the agency directory.
func (c *Client) ListAgencies(ctx context.Context, page, pageSize int) (*AgencyPage, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "content client not configured")
	}
	if page < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "page must be positive")
	}

	query := url.Values{}
	query.Set("populate", "*")
	query.Set("pagination[page]", fmt.Sprint(page))
	query.Set("pagination[pageSize]", fmt.Sprint(pageSize))
	endpoint := fmt.Sprintf("%s/%s?%s", c.baseURL, agenciesPath, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build agency list request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute agency list request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp, "agency list request failed")
	}

	var pageResp AgencyPage
	if err := json.NewDecoder(resp.Body).Decode(&pageResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode agency list response")
	}

	return &pageResp, nil
}

// PaymentRequest is the payload posted to the backend payment endpoint.
// Monetary subtotal/shipping/total travel in major units; amount is the
// processor's minor-unit integer.
type PaymentRequest struct {
	Token          string               `json:"token"`
	Amount         int64                `json:"amount"`
	Email          string               `json:"email"`
	FirstName      string               `json:"first_name"`
	LastName       string               `json:"last_name"`
	Address        string               `json:"address"`
	AddressCity    string               `json:"address_city"`
	CountryCode    string               `json:"country_code"`
	PhoneNumber    string               `json:"phone_number"`
	DNI            int64                `json:"dni"`
	ShippingMethod enums.ShippingMethod `json:"metodo_envio"`
	OrderItems     []types.OrderItem    `json:"order_items"`
	Subtotal       decimal.Decimal      `json:"subtotal"`
	ShippingCost   decimal.Decimal      `json:"shipping_cost"`
	Total          decimal.Decimal      `json:"total"`
}

// PaymentRecord is the payment row the backend persists.
type PaymentRecord struct {
	ID             int64                `json:"id"`
	Token          string               `json:"token"`
	Email          string               `json:"email"`
	Amount         int64                `json:"amount"`
	PaymentStatus  string               `json:"payment_status"`
	FirstName      string               `json:"first_name"`
	LastName       string               `json:"last_name"`
	Address        string               `json:"address"`
	AddressCity    string               `json:"address_city"`
	CountryCode    string               `json:"country_code"`
	PhoneNumber    string               `json:"phone_number"`
	DNI            int64                `json:"dni"`
	ShippingMethod enums.ShippingMethod `json:"metodo_envio"`
}

// OrderRecord is the order row the backend creates; monetary fields come
// back in minor units.
type OrderRecord struct {
	ID             int64                `json:"id"`
	ShippingMethod enums.ShippingMethod `json:"metodo_envio"`
	OrderItems     []types.OrderItem    `json:"order_items"`
	Subtotal       int64                `json:"subtotal"`
	ShippingCost   int64                `json:"shipping_cost"`
	Total          int64                `json:"total"`
	OrderStatus    string               `json:"order_status"`
	CreatedAt      string               `json:"createdAt"`
	UpdatedAt      string               `json:"updatedAt"`
}

// PaymentResponse is the envelope the backend returns on success.
type PaymentResponse struct {
	Message string `json:"message"`
	Data    struct {
		Payment PaymentRecord `json:"payment"`
		Orden   OrderRecord   `json:"orden"`
	} `json:"data"`
}

// ProcessPayment submits the tokenized payment together with the order
// details and returns the backend's confirmation.
func (c *Client) ProcessPayment(ctx context.Context, payload PaymentRequest) (*PaymentResponse, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "content client not configured")
	}
	if strings.TrimSpace(payload.Token) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment token is required")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal payment request")
	}

	endpoint := fmt.Sprintf("%s/%s", c.baseURL, processPaymentPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build payment request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute payment request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		return nil, pkgerrors.Wrap(
			pkgerrors.CodePayment,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
			fmt.Sprintf("Hubo un error al procesar el pago: %d", resp.StatusCode),
		).WithDetails(map[string]any{"http_status": resp.StatusCode})
	}

	var paymentResp PaymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&paymentResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePayment, err, "decode payment response")
	}

	return &paymentResp, nil
}

func (c *Client) statusError(resp *http.Response, message string) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
	return pkgerrors.Wrap(
		pkgerrors.CodeDependency,
		fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
		message,
	)
}
