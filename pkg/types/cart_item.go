package types

import "github.com/shopspring/decimal"

// CartItem is a purchasable product placed in the shopper's cart. At most
// one entry exists per product id.
type CartItem struct {
	ProductID int64            `json:"id"`
	Name      string           `json:"name"`
	Price     decimal.Decimal  `json:"price"`
	Discount  *decimal.Decimal `json:"discount,omitempty"`
	OfferType string           `json:"offer_type,omitempty"`
	Images    []string         `json:"images,omitempty"`
}

// EffectivePrice is the unit price after the optional discount.
func (i CartItem) EffectivePrice() decimal.Decimal {
	if i.Discount != nil {
		return i.Price.Sub(*i.Discount)
	}
	return i.Price
}
