package model

import "strings"

// DefaultBusinessType is used when none is configured.
const DefaultBusinessType = "Grocery Store"

// BusinessTypes are the business labels offered to users. Any other label is
// accepted as free text.
var BusinessTypes = []string{
	"Grocery Store",
	"Stationery Shop",
	"Electronics Retail",
	"Clothing & Apparel",
	"Restaurant/Cafe",
	"Pharmacy",
	"Hardware Store",
	"General Store",
	"Other",
}

// IsKnownBusinessType reports whether label names one of BusinessTypes,
// ignoring case.
func IsKnownBusinessType(label string) bool {
	for _, known := range BusinessTypes {
		if strings.EqualFold(known, strings.TrimSpace(label)) {
			return true
		}
	}
	return false
}
