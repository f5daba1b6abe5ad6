// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

// Package token defines the value vocabulary shared by the wallet core and
// its remote collaborators: asset brands, amounts, and brand-checked
// arithmetic.
package token

import (
	"fmt"
	"math"
)

// Brand is the opaque identity of an asset type. Brand identity is the
// capability value itself, so Brands are compared with ==. Label is display
// information only and carries no authority.
type Brand interface {
	Label() string
}

// Amount is a quantity of a single brand. Extents are non-negative integers.
// Amounts of different brands are never combined.
type Amount struct {
	Brand  Brand  `json:"brand"`
	Extent uint64 `json:"extent"`
}

// NatKind is the arithmetic kind for natural-number extents. It is the only
// kind this wallet supports.
const NatKind = "nat"

// Math performs brand-checked arithmetic for a single brand. A Math is
// constructed from the arithmetic kind reported by the brand's issuer.
type Math struct {
	brand Brand
}

// NewMath creates the arithmetic helper for a brand. An unrecognized kind is
// an error.
func NewMath(brand Brand, kind string) (*Math, error) {
	if kind != NatKind {
		return nil, fmt.Errorf("unsupported arithmetic kind %q for brand %s", kind, brand.Label())
	}
	return &Math{brand: brand}, nil
}

// Brand returns the brand this Math operates on.
func (m *Math) Brand() Brand {
	return m.brand
}

// Make creates an Amount of the Math's brand.
func (m *Math) Make(extent uint64) Amount {
	return Amount{Brand: m.brand, Extent: extent}
}

// Empty is the zero Amount of the Math's brand.
func (m *Math) Empty() Amount {
	return Amount{Brand: m.brand}
}

// coerce verifies that the Amount carries the Math's brand.
func (m *Math) coerce(a Amount) error {
	if a.Brand != m.brand {
		return fmt.Errorf("amount brand mismatch: %s != %s", brandLabel(a.Brand), brandLabel(m.brand))
	}
	return nil
}

// Add sums two Amounts of the Math's brand.
func (m *Math) Add(a, b Amount) (Amount, error) {
	if err := m.coerce(a); err != nil {
		return Amount{}, err
	}
	if err := m.coerce(b); err != nil {
		return Amount{}, err
	}
	if a.Extent > math.MaxUint64-b.Extent {
		return Amount{}, fmt.Errorf("amount overflow adding %d and %d %s", a.Extent, b.Extent, m.brand.Label())
	}
	return m.Make(a.Extent + b.Extent), nil
}

// Subtract computes a - b. It is an error if b exceeds a.
func (m *Math) Subtract(a, b Amount) (Amount, error) {
	if err := m.coerce(a); err != nil {
		return Amount{}, err
	}
	if err := m.coerce(b); err != nil {
		return Amount{}, err
	}
	if b.Extent > a.Extent {
		return Amount{}, fmt.Errorf("insufficient %s: %d < %d", m.brand.Label(), a.Extent, b.Extent)
	}
	return m.Make(a.Extent - b.Extent), nil
}

// IsGTE reports whether a is greater than or equal to b.
func (m *Math) IsGTE(a, b Amount) (bool, error) {
	if err := m.coerce(a); err != nil {
		return false, err
	}
	if err := m.coerce(b); err != nil {
		return false, err
	}
	return a.Extent >= b.Extent, nil
}

// IsEmpty reports whether the Amount's extent is zero.
func (m *Math) IsEmpty(a Amount) (bool, error) {
	if err := m.coerce(a); err != nil {
		return false, err
	}
	return a.Extent == 0, nil
}

func brandLabel(b Brand) string {
	if b == nil {
		return "<no brand>"
	}
	return b.Label()
}
