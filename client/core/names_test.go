// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package core

import (
	"reflect"
	"testing"

	"hostwallet.org/hostwallet/wallet/token"
)

func TestPetnameMap(t *testing.T) {
	m := newPetnameMap[*tBrand]("brand")
	moola := &tBrand{label: "moola"}
	bucks := &tBrand{label: "bucks"}
	if err := m.bind("moola", moola); err != nil {
		t.Fatalf("bind error: %v", err)
	}
	// Same petname, different value.
	if err := m.bind("moola", bucks); !errorHasCode(err, dupePetnameErr) {
		t.Fatalf("expected dupePetnameErr for reused petname, got %v", err)
	}
	// Different petname, same value.
	if err := m.bind("dough", moola); !errorHasCode(err, dupePetnameErr) {
		t.Fatalf("expected dupePetnameErr for rebound value, got %v", err)
	}
	if err := m.bind("bucks", bucks); err != nil {
		t.Fatalf("bind error: %v", err)
	}

	val, err := m.resolve("moola")
	if err != nil || val != moola {
		t.Fatalf("resolve: %v %v", val, err)
	}
	if _, err := m.resolve("ghost"); !errorHasCode(err, notFoundErr) {
		t.Fatalf("expected notFoundErr, got %v", err)
	}
	name, err := m.reverseResolve(bucks)
	if err != nil || name != "bucks" {
		t.Fatalf("reverseResolve: %q %v", name, err)
	}
	if _, err := m.reverseResolve(&tBrand{label: "ghost"}); !errorHasCode(err, notFoundErr) {
		t.Fatalf("expected notFoundErr, got %v", err)
	}
	if names := m.petnames(); !reflect.DeepEqual(names, []string{"bucks", "moola"}) {
		t.Fatalf("unexpected petnames %v", names)
	}
}

func TestRedact(t *testing.T) {
	rig := newTestRig(t)
	issuer, _ := rig.fundedPurse(t, "moola", "fun", 50)

	redacted := rig.core.redact(map[string]any{
		"brand":  token.Brand(issuer.brand),
		"amount": token.Amount{Brand: issuer.brand, Extent: 7},
		"nested": []any{token.Amount{Brand: issuer.brand, Extent: 3}, "hello"},
		"plain":  42,
	})
	m, ok := redacted.(map[string]any)
	if !ok {
		t.Fatalf("redacted value is %T", redacted)
	}
	if m["brand"] != "moola" {
		t.Fatalf("brand not redacted: %v", m["brand"])
	}
	if amt, ok := m["amount"].(DisplayAmount); !ok || amt.Brand != "moola" || amt.Extent != 7 {
		t.Fatalf("amount not redacted: %v", m["amount"])
	}
	nested := m["nested"].([]any)
	if amt, ok := nested[0].(DisplayAmount); !ok || amt.Extent != 3 {
		t.Fatalf("nested amount not redacted: %v", nested[0])
	}
	if nested[1] != "hello" || m["plain"] != 42 {
		t.Fatalf("plain data did not pass through")
	}

	// A wrapped purse reduces to its petname.
	wrapped, err := rig.core.purseNames.resolve("fun")
	if err != nil {
		t.Fatalf("purse resolve error: %v", err)
	}
	if name := rig.core.redact(wrapped); name != "fun" {
		t.Fatalf("purse not redacted: %v", name)
	}
}
