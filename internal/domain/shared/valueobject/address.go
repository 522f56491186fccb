package valueobject

import "strings"

// Address is a postal address embedded in aggregate payloads
type Address struct {
	Street     string `json:"street" validate:"required,max=200"`
	PostalCode string `json:"postalCode" validate:"required,max=10"`
	City       string `json:"city" validate:"required,max=100"`
	Country    string `json:"country" validate:"required,iso3166_1_alpha2"`
}

// IsEmpty reports whether no part of the address is set
func (a Address) IsEmpty() bool {
	return a.Street == "" && a.PostalCode == "" && a.City == "" && a.Country == ""
}

// String formats the address on one line: "Hauptstr. 1, 10115 Berlin, DE"
func (a Address) String() string {
	var parts []string
	if a.Street != "" {
		parts = append(parts, a.Street)
	}
	if locality := strings.TrimSpace(a.PostalCode + " " + a.City); locality != "" {
		parts = append(parts, locality)
	}
	if a.Country != "" {
		parts = append(parts, a.Country)
	}
	return strings.Join(parts, ", ")
}
