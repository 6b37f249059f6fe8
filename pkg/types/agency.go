package types

// Agency is a physical pickup point for free shipping, sourced from the
// content backend's agency directory.
type Agency struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
	Address  string `json:"address"`
}
