package types

import (
	"github.com/shopspring/decimal"

	"github.com/topsevenstore/checkout-api/pkg/enums"
)

// OrderItem is a line of the order submitted at payment time. It is a
// decoupled snapshot of a cart item so concurrent cart mutation cannot
// corrupt an in-flight submission.
type OrderItem struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// OrderData is the backend-confirmed, authoritative record of a completed
// purchase. It is built exactly once, after a successful payment
// confirmation, and never mutated.
type OrderData struct {
	ID                int64                `json:"id"`
	CustomerFirstName string               `json:"customer_first_name"`
	CustomerLastName  string               `json:"customer_last_name"`
	Email             string               `json:"email"`
	PhoneNumber       string               `json:"phone_number"`
	DNI               int64                `json:"dni"`
	Address           string               `json:"address"`
	AddressCity       string               `json:"address_city"`
	CountryCode       string               `json:"country_code"`
	ShippingMethod    enums.ShippingMethod `json:"metodo_envio"`
	OrderItems        []OrderItem          `json:"order_items"`
	Subtotal          decimal.Decimal      `json:"subtotal"`
	ShippingCost      decimal.Decimal      `json:"shipping_cost"`
	Total             decimal.Decimal      `json:"total"`
	OrderStatus       enums.OrderStatus    `json:"order_status"`
	CreatedAt         string               `json:"createdAt"`
	UpdatedAt         string               `json:"updatedAt"`
}
