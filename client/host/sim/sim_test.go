// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package sim

import (
	"context"
	"testing"
	"time"

	"hostwallet.org/hostwallet/client/host"
	"hostwallet.org/hostwallet/wallet/token"
)

var tCtx = context.Background()

func TestIssuerKit(t *testing.T) {
	kit := NewIssuerKit("moola")
	brand, err := kit.Issuer.Brand(tCtx)
	if err != nil || brand.Label() != "moola" {
		t.Fatalf("Brand: %v %v", brand, err)
	}
	kind, err := kit.Issuer.MathKind(tCtx)
	if err != nil || kind != token.NatKind {
		t.Fatalf("MathKind: %q %v", kind, err)
	}

	p, err := kit.Issuer.MakeEmptyPurse(tCtx)
	if err != nil {
		t.Fatalf("MakeEmptyPurse error: %v", err)
	}
	pmt := kit.Mint.MintPayment(100)
	if amt, err := p.Deposit(tCtx, pmt); err != nil || amt.Extent != 100 {
		t.Fatalf("Deposit: %v %v", amt, err)
	}
	// A payment is single-use.
	if _, err := p.Deposit(tCtx, pmt); err == nil {
		t.Fatalf("no error for double deposit")
	}
	// Wrong brand.
	other := NewIssuerKit("bucks")
	if _, err := p.Deposit(tCtx, other.Mint.MintPayment(1)); err == nil {
		t.Fatalf("no error for cross-brand deposit")
	}

	out, err := p.Withdraw(tCtx, token.Amount{Brand: brand, Extent: 40})
	if err != nil || out.Amount().Extent != 40 {
		t.Fatalf("Withdraw: %v %v", out, err)
	}
	if _, err := p.Withdraw(tCtx, token.Amount{Brand: brand, Extent: 61}); err == nil {
		t.Fatalf("no error for overdraw")
	}
	if amt, _ := p.CurrentAmount(tCtx); amt.Extent != 60 {
		t.Fatalf("balance %d after withdrawal", amt.Extent)
	}
}

func TestBoard(t *testing.T) {
	board := NewBoard()
	val := &struct{ name string }{name: "thing"}
	id, err := board.ID(tCtx, val)
	if err != nil {
		t.Fatalf("ID error: %v", err)
	}
	if again, _ := board.ID(tCtx, val); again != id {
		t.Fatalf("board id not stable: %q != %q", again, id)
	}
	got, err := board.Value(tCtx, id)
	if err != nil || got != any(val) {
		t.Fatalf("Value: %v %v", got, err)
	}
	if _, err := board.Value(tCtx, "board9999"); err == nil {
		t.Fatalf("no error for unknown listing")
	}
	if _, err := board.ID(tCtx, nil); err == nil {
		t.Fatalf("no error for nil value")
	}
}

func TestGetInputPrice(t *testing.T) {
	tests := []struct {
		in, inRes, outRes, want uint64
	}{
		{300, 10000, 10000, 290},
		{1, 1000, 1000, 0},
		{1000, 1000, 1000, 499},
	}
	for _, test := range tests {
		if got := getInputPrice(test.in, test.inRes, test.outRes); got != test.want {
			t.Fatalf("getInputPrice(%d, %d, %d) = %d, wanted %d",
				test.in, test.inRes, test.outRes, got, test.want)
		}
	}
}

// offerPayments builds the give-side payments straight from the mints.
func offerPayments(kit IssuerKit, keyword string, extent uint64) map[string]host.Payment {
	return map[string]host.Payment{keyword: kit.Mint.MintPayment(extent)}
}

func TestSwap(t *testing.T) {
	h := NewHost(nil)
	moola := NewIssuerKit("moola")
	simoleans := NewIssuerKit("simoleans")
	pool, err := NewSwapPool(h, moola, simoleans, 10000, 10000)
	if err != nil {
		t.Fatalf("NewSwapPool error: %v", err)
	}
	moolaBrand, _ := moola.Issuer.Brand(tCtx)
	simBrand, _ := simoleans.Issuer.Brand(tCtx)

	proposal := &host.Proposal{
		Give: map[string]token.Amount{"In": {Brand: moolaBrand, Extent: 300}},
		Want: map[string]token.Amount{"Out": {Brand: simBrand, Extent: 250}},
		Exit: host.OnDemandExit{},
	}
	res, err := h.Offer(tCtx, pool.SwapInvite(), proposal, offerPayments(moola, "In", 300))
	if err != nil {
		t.Fatalf("Offer error: %v", err)
	}
	handle, err := res.Handle.Wait(tCtx)
	if err != nil {
		t.Fatalf("Handle error: %v", err)
	}
	if active, _ := h.IsActive(tCtx, handle); active {
		t.Fatalf("settled swap reported active")
	}
	payouts, err := res.Payouts.Wait(tCtx)
	if err != nil {
		t.Fatalf("Payouts error: %v", err)
	}
	if out := payouts["Out"].Amount(); out.Extent != 290 || out.Brand != simBrand {
		t.Fatalf("unexpected payout %v", out)
	}
	if _, err := res.Completion.Wait(tCtx); err == nil {
		t.Fatalf("settled swap granted a completion capability")
	}

	// An invite cannot be reused.
	inv := pool.SwapInvite()
	if _, err := h.Offer(tCtx, inv, proposal, offerPayments(moola, "In", 300)); err != nil {
		t.Fatalf("second swap error: %v", err)
	}
	if _, err := h.Offer(tCtx, inv, proposal, offerPayments(moola, "In", 300)); err == nil {
		t.Fatalf("no error for reused invite")
	}
}

func TestSwapPriceProtection(t *testing.T) {
	h := NewHost(nil)
	moola := NewIssuerKit("moola")
	simoleans := NewIssuerKit("simoleans")
	pool, err := NewSwapPool(h, moola, simoleans, 10000, 10000)
	if err != nil {
		t.Fatalf("NewSwapPool error: %v", err)
	}
	moolaBrand, _ := moola.Issuer.Brand(tCtx)
	simBrand, _ := simoleans.Issuer.Brand(tCtx)

	// Want more than the pool will pay. The escrow refunds.
	proposal := &host.Proposal{
		Give: map[string]token.Amount{"In": {Brand: moolaBrand, Extent: 300}},
		Want: map[string]token.Amount{"Out": {Brand: simBrand, Extent: 400}},
		Exit: host.OnDemandExit{},
	}
	res, err := h.Offer(tCtx, pool.SwapInvite(), proposal, offerPayments(moola, "In", 300))
	if err != nil {
		t.Fatalf("Offer error: %v", err)
	}
	if _, err := res.Outcome.Wait(tCtx); err == nil {
		t.Fatalf("no outcome error for unpayable want")
	}
	payouts, err := res.Payouts.Wait(tCtx)
	if err != nil {
		t.Fatalf("Payouts error: %v", err)
	}
	if refund := payouts["In"].Amount(); refund.Extent != 300 || refund.Brand != moolaBrand {
		t.Fatalf("unexpected refund %v", refund)
	}
}

func TestExchange(t *testing.T) {
	h := NewHost(nil)
	asset := NewIssuerKit("shares")
	price := NewIssuerKit("moola")
	x, err := NewExchange(h, asset, price)
	if err != nil {
		t.Fatalf("NewExchange error: %v", err)
	}
	assetBrand, _ := asset.Issuer.Brand(tCtx)
	priceBrand, _ := price.Issuer.Brand(tCtx)

	sellProp := &host.Proposal{
		Give: map[string]token.Amount{"Asset": {Brand: assetBrand, Extent: 10}},
		Want: map[string]token.Amount{"Price": {Brand: priceBrand, Extent: 50}},
		Exit: host.OnDemandExit{},
	}
	sellRes, err := h.Offer(tCtx, x.SellInvite(), sellProp, offerPayments(asset, "Asset", 10))
	if err != nil {
		t.Fatalf("sell Offer error: %v", err)
	}
	sellHandle, err := sellRes.Handle.Wait(tCtx)
	if err != nil {
		t.Fatalf("sell Handle error: %v", err)
	}
	if active, _ := h.IsActive(tCtx, sellHandle); !active {
		t.Fatalf("resting order reported inactive")
	}

	// The notifier published the resting state.
	sub, err := h.Subscription(tCtx, sellHandle)
	if err != nil {
		t.Fatalf("Subscription error: %v", err)
	}
	up, err := sub.UpdateSince(tCtx, nil)
	if err != nil || up.Done {
		t.Fatalf("first update: %+v %v", up, err)
	}

	// A crossing buy settles both sides.
	buyProp := &host.Proposal{
		Give: map[string]token.Amount{"Price": {Brand: priceBrand, Extent: 50}},
		Want: map[string]token.Amount{"Asset": {Brand: assetBrand, Extent: 10}},
		Exit: host.OnDemandExit{},
	}
	buyRes, err := h.Offer(tCtx, x.BuyInvite(), buyProp, offerPayments(price, "Price", 50))
	if err != nil {
		t.Fatalf("buy Offer error: %v", err)
	}

	sellPayouts, err := sellRes.Payouts.Wait(tCtx)
	if err != nil {
		t.Fatalf("sell Payouts error: %v", err)
	}
	if paid := sellPayouts["Price"].Amount(); paid.Extent != 50 || paid.Brand != priceBrand {
		t.Fatalf("unexpected seller payout %v", paid)
	}
	buyPayouts, err := buyRes.Payouts.Wait(tCtx)
	if err != nil {
		t.Fatalf("buy Payouts error: %v", err)
	}
	if got := buyPayouts["Asset"].Amount(); got.Extent != 10 || got.Brand != assetBrand {
		t.Fatalf("unexpected buyer payout %v", got)
	}

	// The seller's notifier chain reports done.
	ctx, cancel := context.WithTimeout(tCtx, 5*time.Second)
	defer cancel()
	for marker := any(nil); ; {
		up, err := sub.UpdateSince(ctx, marker)
		if err != nil {
			t.Fatalf("UpdateSince error: %v", err)
		}
		if up.Done {
			break
		}
		marker = up.Marker
	}
	if active, _ := h.IsActive(tCtx, sellHandle); active {
		t.Fatalf("traded order reported active")
	}
}

func TestExchangeExit(t *testing.T) {
	h := NewHost(nil)
	asset := NewIssuerKit("shares")
	price := NewIssuerKit("moola")
	x, err := NewExchange(h, asset, price)
	if err != nil {
		t.Fatalf("NewExchange error: %v", err)
	}
	assetBrand, _ := asset.Issuer.Brand(tCtx)
	priceBrand, _ := price.Issuer.Brand(tCtx)

	sellProp := &host.Proposal{
		Give: map[string]token.Amount{"Asset": {Brand: assetBrand, Extent: 10}},
		Want: map[string]token.Amount{"Price": {Brand: priceBrand, Extent: 50}},
		Exit: host.OnDemandExit{},
	}
	res, err := h.Offer(tCtx, x.SellInvite(), sellProp, offerPayments(asset, "Asset", 10))
	if err != nil {
		t.Fatalf("Offer error: %v", err)
	}
	comp, err := res.Completion.Wait(tCtx)
	if err != nil {
		t.Fatalf("Completion error: %v", err)
	}
	if err := comp.Complete(tCtx); err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	payouts, err := res.Payouts.Wait(tCtx)
	if err != nil {
		t.Fatalf("Payouts error: %v", err)
	}
	if refund := payouts["Asset"].Amount(); refund.Extent != 10 {
		t.Fatalf("unexpected refund %v", refund)
	}
	// A second exit is an error.
	if err := comp.Complete(tCtx); err == nil {
		t.Fatalf("no error for double exit")
	}
}
