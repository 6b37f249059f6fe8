package shipping

import (
	"github.com/shopspring/decimal"

	"github.com/topsevenstore/checkout-api/pkg/enums"
	pkgerrors "github.com/topsevenstore/checkout-api/pkg/errors"
	"github.com/topsevenstore/checkout-api/pkg/types"
)

// Selection is the shipping slice of a checkout session: the chosen
// method and, for pickup, the chosen agency.
type Selection struct {
	Method enums.ShippingMethod `json:"method"`
	Agency *types.Agency        `json:"agency,omitempty"`
}

// Cost returns what the chosen method adds to the order total. Pickup at
// an agency is free; home delivery charges the configured flat fee.
func Cost(method enums.ShippingMethod, homeDeliveryFee decimal.Decimal) decimal.Decimal {
	if method.IsPickup() {
		return decimal.Zero
	}
	return homeDeliveryFee
}

// Switch moves the selection to another method. Leaving pickup discards
// the agency choice and blanks the address fields that were copied from
// it; the shopper re-enters their own address for home delivery.
func Switch(sel *Selection, customer *types.CustomerData, next enums.ShippingMethod) error {
	if !next.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown shipping method").
			WithDetails(map[string]any{"metodo_envio": string(next)})
	}
	if sel.Method == next {
		return nil
	}

	if sel.Method.IsPickup() && !next.IsPickup() {
		sel.Agency = nil
		if customer != nil {
			customer.Address = ""
			customer.AddressCity = ""
		}
	}

	sel.Method = next
	return nil
}

// SelectAgency records the pickup point and mirrors it into the address
// fields the payment backend expects. Only valid while picking up.
func SelectAgency(sel *Selection, customer *types.CustomerData, agency types.Agency) error {
	if !sel.Method.IsPickup() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "agency selection requires pickup shipping")
	}

	chosen := agency
	sel.Agency = &chosen
	if customer != nil {
		customer.Address = agency.Location
		customer.AddressCity = agency.Name
	}
	return nil
}
