// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package token

import (
	"math"
	"testing"
)

type tBrand struct {
	label string
}

func (b *tBrand) Label() string { return b.label }

func TestNewMath(t *testing.T) {
	moola := &tBrand{label: "moola"}
	if _, err := NewMath(moola, "set"); err == nil {
		t.Fatalf("no error for unsupported arithmetic kind")
	}
	m, err := NewMath(moola, NatKind)
	if err != nil {
		t.Fatalf("NewMath error: %v", err)
	}
	if m.Brand() != Brand(moola) {
		t.Fatalf("wrong brand")
	}
	if amt := m.Make(5); amt.Brand != Brand(moola) || amt.Extent != 5 {
		t.Fatalf("unexpected amount %v", amt)
	}
	if amt := m.Empty(); amt.Extent != 0 {
		t.Fatalf("non-zero empty amount")
	}
}

func TestMathOps(t *testing.T) {
	moola := &tBrand{label: "moola"}
	bucks := &tBrand{label: "bucks"}
	m, _ := NewMath(moola, NatKind)
	other, _ := NewMath(bucks, NatKind)

	sum, err := m.Add(m.Make(3), m.Make(4))
	if err != nil || sum.Extent != 7 {
		t.Fatalf("Add: %v %v", sum, err)
	}
	if _, err := m.Add(m.Make(3), other.Make(4)); err == nil {
		t.Fatalf("no error adding across brands")
	}
	if _, err := m.Add(m.Make(math.MaxUint64), m.Make(1)); err == nil {
		t.Fatalf("no error for overflow")
	}

	diff, err := m.Subtract(m.Make(10), m.Make(4))
	if err != nil || diff.Extent != 6 {
		t.Fatalf("Subtract: %v %v", diff, err)
	}
	if _, err := m.Subtract(m.Make(3), m.Make(4)); err == nil {
		t.Fatalf("no error for insufficient balance")
	}

	if gte, err := m.IsGTE(m.Make(4), m.Make(4)); err != nil || !gte {
		t.Fatalf("IsGTE: %v %v", gte, err)
	}
	if gte, _ := m.IsGTE(m.Make(3), m.Make(4)); gte {
		t.Fatalf("3 >= 4")
	}
	if _, err := m.IsGTE(m.Make(3), other.Make(4)); err == nil {
		t.Fatalf("no error comparing across brands")
	}

	if empty, err := m.IsEmpty(m.Empty()); err != nil || !empty {
		t.Fatalf("IsEmpty: %v %v", empty, err)
	}
	if empty, _ := m.IsEmpty(m.Make(1)); empty {
		t.Fatalf("1 reported empty")
	}
}
