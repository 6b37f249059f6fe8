package types

// CustomerData is the buyer's contact and shipping profile collected on the
// checkout page. Address and AddressCity are free text for home delivery;
// for agency pickup they are derived from the selected agency (the agency's
// location descriptor and name respectively, a storefront legacy the wire
// format preserves).
type CustomerData struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	Address     string `json:"address"`
	AddressCity string `json:"address_city"`
	CountryCode string `json:"country_code"`
	PhoneNumber string `json:"phone_number"`
	DNI         string `json:"dni"`
}
