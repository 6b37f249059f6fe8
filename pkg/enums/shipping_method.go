package enums

import "fmt"

// ShippingMethod selects between agency pickup and home delivery. The wire
// values are the carrier names the storefront has always used.
type ShippingMethod string

const (
	// ShippingMethodShalom is free pickup at a Shalom agency.
	ShippingMethodShalom ShippingMethod = "shalom"
	// ShippingMethodOlva is flat-fee home delivery via Olva courier.
	ShippingMethodOlva ShippingMethod = "olva"
)

var validShippingMethods = []ShippingMethod{
	ShippingMethodShalom,
	ShippingMethodOlva,
}

// String implements fmt.Stringer.
func (m ShippingMethod) String() string {
	return string(m)
}

// IsValid reports whether the value is a known ShippingMethod.
func (m ShippingMethod) IsValid() bool {
	for _, candidate := range validShippingMethods {
		if candidate == m {
			return true
		}
	}
	return false
}

// IsPickup reports whether the method requires an agency selection.
func (m ShippingMethod) IsPickup() bool {
	return m == ShippingMethodShalom
}

// ParseShippingMethod converts raw input into a ShippingMethod.
func ParseShippingMethod(value string) (ShippingMethod, error) {
	for _, candidate := range validShippingMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid shipping method %q", value)
}
