package money

import "github.com/shopspring/decimal"

func init() {
	// Monetary amounts cross the wire as JSON numbers, matching the
	// payment backend contract.
	decimal.MarshalJSONWithoutQuotes = true
}

// ToMinorUnits converts a major-unit amount into the integer minor-unit
// representation the payment processor expects (x100, rounded half away
// from zero).
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// FromMinorUnits converts an integer minor-unit amount back into major units.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.NewFromInt(minor).Shift(-2)
}
