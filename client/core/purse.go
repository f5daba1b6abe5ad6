// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package core

import (
	"context"

	"hostwallet.org/hostwallet/client/host"
	"hostwallet.org/hostwallet/wallet/token"
)

// xcPurse decorates a raw purse capability so that every successful
// balance-changing operation re-publishes the purse's state before returning
// to the caller. Once wrapped, the raw purse must not be used directly or the
// published state will go stale.
type xcPurse struct {
	host.Purse
	petname string
	brand   token.Brand
	// refresh re-publishes the purse projection. It reports its own
	// failures; a refresh failure never rolls back or fails the
	// underlying mutation.
	refresh func()
}

// Brand returns the purse's brand. The brand is fixed at creation, so no
// remote query is needed.
func (p *xcPurse) Brand() token.Brand {
	return p.brand
}

// Deposit consumes the payment into the underlying purse and re-publishes the
// purse state.
func (p *xcPurse) Deposit(ctx context.Context, pmt host.Payment) (token.Amount, error) {
	amt, err := p.Purse.Deposit(ctx, pmt)
	if err != nil {
		return amt, err
	}
	p.refresh()
	return amt, nil
}

// Withdraw removes the amount from the underlying purse as a payment and
// re-publishes the purse state.
func (p *xcPurse) Withdraw(ctx context.Context, amt token.Amount) (host.Payment, error) {
	pmt, err := p.Purse.Withdraw(ctx, amt)
	if err != nil {
		return nil, err
	}
	p.refresh()
	return pmt, nil
}

// depositFacet is the deposit-only view of a purse handed out through the
// board. Deposits go through the wrapped purse, so the purse projection is
// re-published on every receipt.
type depositFacet struct {
	purse *xcPurse
}

func (f *depositFacet) Receive(ctx context.Context, pmt host.Payment) (token.Amount, error) {
	return f.purse.Deposit(ctx, pmt)
}
