// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package sim

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"hostwallet.org/hostwallet/client/host"
	"hostwallet.org/hostwallet/wallet/token"
)

// SwapPool is a two-asset constant-product market maker. A swap settles
// synchronously: by the time the result futures are in the offeror's hands
// the trade is done and the escrow is inactive.
type SwapPool struct {
	host *Host
	mtx  sync.Mutex
	// kits and reserves are keyed by brand, one entry per pool asset.
	kits     map[token.Brand]IssuerKit
	reserves map[token.Brand]uint64
}

// NewSwapPool installs a swap pool over the two assets with the given
// starting reserves. The host backs the reserves with its own minting
// authority.
func NewSwapPool(h *Host, kitA, kitB IssuerKit, reserveA, reserveB uint64) (*SwapPool, error) {
	brandA, err := kitA.Issuer.Brand(context.Background())
	if err != nil {
		return nil, err
	}
	brandB, err := kitB.Issuer.Brand(context.Background())
	if err != nil {
		return nil, err
	}
	if brandA == brandB {
		return nil, fmt.Errorf("pool assets must differ")
	}
	if reserveA == 0 || reserveB == 0 {
		return nil, fmt.Errorf("pool reserves must be funded")
	}
	return &SwapPool{
		host:     h,
		kits:     map[token.Brand]IssuerKit{brandA: kitA, brandB: kitB},
		reserves: map[token.Brand]uint64{brandA: reserveA, brandB: reserveB},
	}, nil
}

// SwapInvite mints an invite for one swap against the pool. The offer must
// give under the "In" keyword and want under "Out".
func (p *SwapPool) SwapInvite() host.Invite {
	return p.host.newInvite("swap", p.swap)
}

// getInputPrice is the constant-product quote with a 0.3% fee on the input.
func getInputPrice(in, inReserve, outReserve uint64) uint64 {
	inWithFee := new(big.Int).Mul(new(big.Int).SetUint64(in), big.NewInt(997))
	num := new(big.Int).Mul(inWithFee, new(big.Int).SetUint64(outReserve))
	den := new(big.Int).Mul(new(big.Int).SetUint64(inReserve), big.NewInt(1000))
	den.Add(den, inWithFee)
	return new(big.Int).Div(num, den).Uint64()
}

func (p *SwapPool) swap(_ context.Context, esc *escrow) error {
	in, haveIn := esc.given["In"]
	want, haveWant := esc.proposal.Want["Out"]
	if !haveIn || !haveWant || len(esc.given) != 1 {
		return fmt.Errorf("swap offers give under \"In\" and want under \"Out\"")
	}

	p.mtx.Lock()
	defer p.mtx.Unlock()
	inReserve, haveInBrand := p.reserves[in.Brand]
	outReserve, haveOutBrand := p.reserves[want.Brand]
	if !haveInBrand || !haveOutBrand || in.Brand == want.Brand {
		return fmt.Errorf("pool does not trade %s for %s", in.Brand.Label(), want.Brand.Label())
	}

	out := getInputPrice(in.Extent, inReserve, outReserve)
	if out < want.Extent {
		return fmt.Errorf("pool price %d %s is under the wanted %d",
			out, want.Brand.Label(), want.Extent)
	}

	p.reserves[in.Brand] = inReserve + in.Extent
	p.reserves[want.Brand] = outReserve - out

	paid := p.kits[want.Brand].Mint.math.Make(out)
	esc.outcome.Resolve(map[string]any{
		"message": "Swap completed.",
		"paid":    paid,
	})
	esc.completion.Reject(fmt.Errorf("swap offers settle immediately and cannot be exited"))
	esc.conclude(map[string]host.Payment{
		"Out": p.kits[want.Brand].Mint.MintPayment(out),
	})
	return nil
}
