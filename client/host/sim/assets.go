// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

// Package sim is an in-process contract host for development and testing.
// It implements the full host boundary, including escrow, settlement
// notifiers, and a pair of simple contracts, without any network transport.
package sim

import (
	"context"
	"fmt"
	"sync"

	"hostwallet.org/hostwallet/client/host"
	"hostwallet.org/hostwallet/wallet/token"
)

// brand is the identity of a simulated asset. The pointer is the identity.
type brand struct {
	label string
}

func (b *brand) Label() string { return b.label }

// payment is a single-use claim on an amount. A payment is minted by the
// issuer's mint or withdrawn from a purse, and consumed exactly once.
type payment struct {
	mtx   sync.Mutex
	amt   token.Amount
	spent bool
}

// Amount is the payment's face value.
func (p *payment) Amount() token.Amount { return p.amt }

// claim consumes the payment and returns its amount. A payment can only be
// claimed once.
func (p *payment) claim() (token.Amount, error) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	if p.spent {
		return token.Amount{}, fmt.Errorf("payment of %d %s already spent", p.amt.Extent, p.amt.Brand.Label())
	}
	p.spent = true
	return p.amt, nil
}

// purse holds a balance of one brand.
type purse struct {
	brand *brand
	math  *token.Math
	mtx   sync.Mutex
	bal   uint64
}

func (p *purse) Brand() token.Brand { return p.brand }

func (p *purse) CurrentAmount(_ context.Context) (token.Amount, error) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return p.math.Make(p.bal), nil
}

func (p *purse) Deposit(_ context.Context, pmt host.Payment) (token.Amount, error) {
	simPmt, ok := pmt.(*payment)
	if !ok {
		return token.Amount{}, fmt.Errorf("payment is not from this host")
	}
	amt := simPmt.Amount()
	if amt.Brand != token.Brand(p.brand) {
		return token.Amount{}, fmt.Errorf("cannot deposit %s payment into %s purse",
			amt.Brand.Label(), p.brand.label)
	}
	amt, err := simPmt.claim()
	if err != nil {
		return token.Amount{}, err
	}
	p.mtx.Lock()
	defer p.mtx.Unlock()
	newBal, err := p.math.Add(p.math.Make(p.bal), amt)
	if err != nil {
		return token.Amount{}, err
	}
	p.bal = newBal.Extent
	return amt, nil
}

func (p *purse) Withdraw(_ context.Context, amt token.Amount) (host.Payment, error) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	newBal, err := p.math.Subtract(p.math.Make(p.bal), amt)
	if err != nil {
		return nil, err
	}
	p.bal = newBal.Extent
	return &payment{amt: amt}, nil
}

// Mint creates payments of one brand from nothing. Mints stay on the host
// side. Only issuers and purses cross the boundary.
type Mint struct {
	math *token.Math
}

// MintPayment creates a new payment of the given extent.
func (m *Mint) MintPayment(extent uint64) host.Payment {
	return &payment{amt: m.math.Make(extent)}
}

// issuer is the issuing authority for one brand.
type issuer struct {
	brand *brand
	math  *token.Math
}

func (i *issuer) Brand(_ context.Context) (token.Brand, error) { return i.brand, nil }

func (i *issuer) MathKind(_ context.Context) (string, error) { return token.NatKind, nil }

func (i *issuer) MakeEmptyPurse(_ context.Context) (host.Purse, error) {
	return &purse{brand: i.brand, math: i.math}, nil
}

// IssuerKit bundles the public issuer with its private mint.
type IssuerKit struct {
	Issuer host.Issuer
	Mint   *Mint
}

// NewIssuerKit creates a new simulated asset with natural-number arithmetic.
func NewIssuerKit(label string) IssuerKit {
	b := &brand{label: label}
	math, err := token.NewMath(b, token.NatKind)
	if err != nil {
		// NatKind is always supported.
		panic(err)
	}
	return IssuerKit{
		Issuer: &issuer{brand: b, math: math},
		Mint:   &Mint{math: math},
	}
}
