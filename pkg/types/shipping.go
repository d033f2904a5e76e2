package types

import "strings"

// ShippingInfo is the delivery snapshot captured at checkout. It is stored
// on the order as an immutable JSON document.
type ShippingInfo struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	City     string `json:"city"`
	Province string `json:"province,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// IsZero reports whether no shipping details were supplied at all.
func (s ShippingInfo) IsZero() bool {
	return strings.TrimSpace(s.FullName) == "" &&
		strings.TrimSpace(s.Phone) == "" &&
		strings.TrimSpace(s.Address) == "" &&
		strings.TrimSpace(s.City) == ""
}
