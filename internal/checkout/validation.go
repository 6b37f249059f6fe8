package checkout

import (
	"regexp"
	"strings"

	"github.com/topsevenstore/checkout-api/pkg/types"
)

// emailPattern is deliberately loose: anything shaped local@domain.tld
// with an alphabetic TLD of two or more letters.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[a-zA-Z]{2,}$`)

var nonDigits = regexp.MustCompile(`\D`)

const fieldRequired = "requerido"

// normalizeCustomer trims the submitted profile and coerces the document
// number down to its digits. An absent country code falls back to the
// store's own.
func normalizeCustomer(in types.CustomerData, defaultCountry string) types.CustomerData {
	out := types.CustomerData{
		FirstName:   strings.TrimSpace(in.FirstName),
		LastName:    strings.TrimSpace(in.LastName),
		Email:       strings.TrimSpace(in.Email),
		Address:     strings.TrimSpace(in.Address),
		AddressCity: strings.TrimSpace(in.AddressCity),
		CountryCode: in.CountryCode,
		PhoneNumber: strings.TrimSpace(in.PhoneNumber),
		DNI:         nonDigits.ReplaceAllString(in.DNI, ""),
	}
	if out.CountryCode == "" {
		out.CountryCode = defaultCountry
	}
	return out
}

// validateCustomer reports per-field problems; an empty map means the
// profile is complete.
func validateCustomer(c types.CustomerData) map[string]string {
	fields := map[string]string{}

	if c.FirstName == "" {
		fields["first_name"] = fieldRequired
	}
	if c.LastName == "" {
		fields["last_name"] = fieldRequired
	}
	if c.Email == "" {
		fields["email"] = fieldRequired
	} else if !emailPattern.MatchString(c.Email) {
		fields["email"] = "correo electrónico inválido"
	}
	if c.Address == "" {
		fields["address"] = fieldRequired
	}
	if c.AddressCity == "" {
		fields["address_city"] = fieldRequired
	}
	if c.PhoneNumber == "" {
		fields["phone_number"] = fieldRequired
	}
	if c.DNI == "" {
		fields["dni"] = fieldRequired
	}

	return fields
}
