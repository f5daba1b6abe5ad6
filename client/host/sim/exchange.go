// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package sim

import (
	"context"
	"fmt"
	"sync"

	"hostwallet.org/hostwallet/client/host"
	"hostwallet.org/hostwallet/wallet/token"
)

// Exchange is a resting-order market between an asset brand and a price
// brand. Unmatched orders stay escrowed and active, with a live settlement
// notifier and an early-exit capability, until a crossing order arrives or
// the order is exited.
type Exchange struct {
	host       *Host
	assetBrand token.Brand
	priceBrand token.Brand

	mtx   sync.Mutex
	buys  []*order
	sells []*order
}

// order is one resting offer.
type order struct {
	esc  *escrow
	give token.Amount
	want token.Amount
}

// NewExchange installs an exchange trading the asset against the price
// currency.
func NewExchange(h *Host, assetKit, priceKit IssuerKit) (*Exchange, error) {
	assetBrand, err := assetKit.Issuer.Brand(context.Background())
	if err != nil {
		return nil, err
	}
	priceBrand, err := priceKit.Issuer.Brand(context.Background())
	if err != nil {
		return nil, err
	}
	if assetBrand == priceBrand {
		return nil, fmt.Errorf("exchange assets must differ")
	}
	return &Exchange{
		host:       h,
		assetBrand: assetBrand,
		priceBrand: priceBrand,
	}, nil
}

// SellInvite mints an invite for a sell order: give under "Asset", want
// under "Price".
func (x *Exchange) SellInvite() host.Invite {
	return x.host.newInvite("sell order", x.sell)
}

// BuyInvite mints an invite for a buy order: give under "Price", want under
// "Asset".
func (x *Exchange) BuyInvite() host.Invite {
	return x.host.newInvite("buy order", x.buy)
}

func (x *Exchange) sell(_ context.Context, esc *escrow) error {
	give, haveGive := esc.given["Asset"]
	want, haveWant := esc.proposal.Want["Price"]
	if !haveGive || !haveWant || len(esc.given) != 1 {
		return fmt.Errorf("sell orders give under \"Asset\" and want under \"Price\"")
	}
	if give.Brand != x.assetBrand || want.Brand != x.priceBrand {
		return fmt.Errorf("exchange does not trade %s for %s", give.Brand.Label(), want.Brand.Label())
	}
	x.place(&order{esc: esc, give: give, want: want}, false)
	return nil
}

func (x *Exchange) buy(_ context.Context, esc *escrow) error {
	give, haveGive := esc.given["Price"]
	want, haveWant := esc.proposal.Want["Asset"]
	if !haveGive || !haveWant || len(esc.given) != 1 {
		return fmt.Errorf("buy orders give under \"Price\" and want under \"Asset\"")
	}
	if give.Brand != x.priceBrand || want.Brand != x.assetBrand {
		return fmt.Errorf("exchange does not trade %s for %s", give.Brand.Label(), want.Brand.Label())
	}
	x.place(&order{esc: esc, give: give, want: want}, true)
	return nil
}

// place books the order, matching it against the opposite side first. A
// match trades the full escrowed amounts of both sides.
func (x *Exchange) place(ord *order, isBuy bool) {
	ord.esc.outcome.Resolve("Order placed.")
	ord.esc.completion.Resolve(&orderExit{x: x, ord: ord, isBuy: isBuy})

	x.mtx.Lock()
	book := &x.sells
	if !isBuy {
		book = &x.buys
	}
	var counter *order
	for i, rest := range *book {
		if crosses(ord, rest) {
			counter = rest
			*book = append((*book)[:i], (*book)[i+1:]...)
			break
		}
	}
	if counter == nil {
		if isBuy {
			x.buys = append(x.buys, ord)
		} else {
			x.sells = append(x.sells, ord)
		}
		x.mtx.Unlock()
		ord.esc.notifier.publish(false)
		return
	}
	x.mtx.Unlock()

	buy, sell := ord, counter
	if !isBuy {
		buy, sell = counter, ord
	}
	// The seller is paid the buyer's full escrowed price, and the buyer
	// receives the seller's full escrowed asset.
	sell.esc.conclude(map[string]host.Payment{
		"Price": &payment{amt: buy.give},
	})
	buy.esc.conclude(map[string]host.Payment{
		"Asset": &payment{amt: sell.give},
	})
}

// crosses reports whether the incoming order and a resting counter-order
// satisfy each other. Each side must give at least what the other wants.
func crosses(incoming, resting *order) bool {
	return incoming.give.Extent >= resting.want.Extent &&
		resting.give.Extent >= incoming.want.Extent
}

// orderExit is the early-exit capability for a resting order.
type orderExit struct {
	x     *Exchange
	ord   *order
	isBuy bool
}

// Complete withdraws the order from the book and refunds the escrow. It is
// an error if the order already traded or exited.
func (oe *orderExit) Complete(_ context.Context) error {
	x := oe.x
	x.mtx.Lock()
	book := &x.sells
	keyword := "Asset"
	if oe.isBuy {
		book = &x.buys
		keyword = "Price"
	}
	found := false
	for i, rest := range *book {
		if rest == oe.ord {
			*book = append((*book)[:i], (*book)[i+1:]...)
			found = true
			break
		}
	}
	x.mtx.Unlock()
	if !found {
		return fmt.Errorf("order already off the book")
	}
	oe.ord.esc.conclude(map[string]host.Payment{
		keyword: &payment{amt: oe.ord.give},
	})
	return nil
}
