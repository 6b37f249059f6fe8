package enums

import "fmt"

// CheckoutState tracks where a shopper session sits in the checkout flow.
type CheckoutState string

const (
	CheckoutStateCollectingInfo    CheckoutState = "collecting_info"
	CheckoutStateInfoComplete      CheckoutState = "info_complete"
	CheckoutStatePaymentInProgress CheckoutState = "payment_in_progress"
	CheckoutStatePaymentConfirmed  CheckoutState = "payment_confirmed"
)

var validCheckoutStates = []CheckoutState{
	CheckoutStateCollectingInfo,
	CheckoutStateInfoComplete,
	CheckoutStatePaymentInProgress,
	CheckoutStatePaymentConfirmed,
}

// String implements fmt.Stringer.
func (s CheckoutState) String() string {
	return string(s)
}

// IsValid reports whether the value is a known CheckoutState.
func (s CheckoutState) IsValid() bool {
	for _, candidate := range validCheckoutStates {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (s CheckoutState) IsTerminal() bool {
	return s == CheckoutStatePaymentConfirmed
}

// ParseCheckoutState converts raw input into a CheckoutState.
func ParseCheckoutState(value string) (CheckoutState, error) {
	for _, candidate := range validCheckoutStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid checkout state %q", value)
}
