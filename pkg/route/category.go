package route

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownCategory is returned when a category name cannot be parsed.
var ErrUnknownCategory = errors.New("unknown routing category")

// Category is one row of the listen-mode routing table.
type Category uint8

const (
	// CategoryAID is the default AID route.
	CategoryAID Category = iota

	// CategoryIsoDep is the ISO-DEP protocol route.
	CategoryIsoDep

	// CategoryT3T is the Type 3 Tag (Felica) protocol route.
	CategoryT3T

	// CategoryTechA is the technology A route.
	CategoryTechA

	// CategoryTechB is the technology B route.
	CategoryTechB

	// CategoryTechF is the technology F route.
	CategoryTechF

	// CategorySystemCode is the default system-code route.
	CategorySystemCode

	categoryCount
)

// AllCategories returns every category in the order routes are pushed.
func AllCategories() []Category {
	cats := make([]Category, 0, categoryCount)
	for c := Category(0); c < categoryCount; c++ {
		cats = append(cats, c)
	}
	return cats
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	return c < categoryCount
}

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryAID:
		return "aid"
	case CategoryIsoDep:
		return "iso-dep"
	case CategoryT3T:
		return "t3t"
	case CategoryTechA:
		return "tech-a"
	case CategoryTechB:
		return "tech-b"
	case CategoryTechF:
		return "tech-f"
	case CategorySystemCode:
		return "system-code"
	default:
		return "unknown"
	}
}

// IsIsoDep reports whether traffic of c is carried over ISO-DEP.
func (c Category) IsIsoDep() bool {
	return c == CategoryAID || c == CategoryIsoDep
}

// IsFelica reports whether c is subject to the Felica eligibility rules.
func (c Category) IsFelica() bool {
	return c == CategoryTechF || c == CategorySystemCode
}

// Techs returns the RF technologies that carry traffic of c.
func (c Category) Techs() TechMask {
	switch c {
	case CategoryAID, CategoryIsoDep:
		return TechA | TechB
	case CategoryTechA:
		return TechA
	case CategoryTechB:
		return TechB
	case CategoryT3T, CategoryTechF, CategorySystemCode:
		return TechF
	default:
		return 0
	}
}

// aliases maps configuration names onto the categories they control.
var aliases = map[string][]Category{
	"mifare":      {CategoryTechA},
	"felica":      {CategoryT3T, CategoryTechF},
	"tech-ab":     {CategoryTechA, CategoryTechB},
	"isodep":      {CategoryIsoDep},
	"iso_dep":     {CategoryIsoDep},
	"tech_a":      {CategoryTechA},
	"tech_b":      {CategoryTechB},
	"tech_f":      {CategoryTechF},
	"sc":          {CategorySystemCode},
	"system_code": {CategorySystemCode},
}

// ParseCategories resolves a category name or alias to the categories it
// names. Aliases: "mifare" (tech-a), "felica" (t3t, tech-f), "tech-ab".
func ParseCategories(name string) ([]Category, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, c := range AllCategories() {
		if c.String() == key {
			return []Category{c}, nil
		}
	}
	if cats, ok := aliases[key]; ok {
		out := make([]Category, len(cats))
		copy(out, cats)
		return out, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, name)
}
