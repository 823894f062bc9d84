package enums

import "fmt"

// TeaCategory classifies a product listing.
type TeaCategory string

const (
	TeaCategoryGreen  TeaCategory = "green"
	TeaCategoryBlack  TeaCategory = "black"
	TeaCategoryOolong TeaCategory = "oolong"
	TeaCategoryWhite  TeaCategory = "white"
	TeaCategoryHerbal TeaCategory = "herbal"
	TeaCategoryPuerh  TeaCategory = "puerh"
)

var validTeaCategories = []TeaCategory{
	TeaCategoryGreen,
	TeaCategoryBlack,
	TeaCategoryOolong,
	TeaCategoryWhite,
	TeaCategoryHerbal,
	TeaCategoryPuerh,
}

// String implements fmt.Stringer.
func (t TeaCategory) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TeaCategory.
func (t TeaCategory) IsValid() bool {
	for _, candidate := range validTeaCategories {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTeaCategory converts raw input into a TeaCategory.
func ParseTeaCategory(value string) (TeaCategory, error) {
	for _, candidate := range validTeaCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid tea category %q", value)
}
