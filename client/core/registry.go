// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package core

import (
	"context"
	"sync"

	"hostwallet.org/hostwallet/client/host"
	"hostwallet.org/hostwallet/wallet"
	"hostwallet.org/hostwallet/wallet/token"
)

// issuerRecord associates a brand with its issuing authority and arithmetic
// helper. One record exists per brand, and it never changes once committed.
type issuerRecord struct {
	issuer host.Issuer
	brand  token.Brand
	math   *token.Math
}

// issuerRegistry tracks the issuing authority and arithmetic helper for each
// registered brand. Concurrent registrations of the same issuer collapse into
// a single in-flight result.
type issuerRegistry struct {
	mtx      sync.Mutex
	byBrand  map[token.Brand]*issuerRecord
	byIssuer map[host.Issuer]token.Brand
	inFlight map[host.Issuer]*wallet.Future[*issuerRecord]
}

func newIssuerRegistry() *issuerRegistry {
	return &issuerRegistry{
		byBrand:  make(map[token.Brand]*issuerRecord),
		byIssuer: make(map[host.Issuer]token.Brand),
		inFlight: make(map[host.Issuer]*wallet.Future[*issuerRecord]),
	}
}

// register derives the brand and arithmetic kind from the issuer with two
// independent remote queries, waits for both, and commits the record keyed by
// brand. A second registration for a fully registered issuer fails. A
// registration for an issuer whose queries are still outstanding attaches to
// the in-flight result rather than issuing more queries.
func (r *issuerRegistry) register(ctx context.Context, issuer host.Issuer) (*issuerRecord, error) {
	r.mtx.Lock()
	if _, have := r.byIssuer[issuer]; have {
		r.mtx.Unlock()
		return nil, newError(dupeIssuerErr, "issuer is already in wallet")
	}
	if f, have := r.inFlight[issuer]; have {
		r.mtx.Unlock()
		return f.Wait(ctx)
	}
	f := wallet.NewFuture[*issuerRecord]()
	r.inFlight[issuer] = f
	r.mtx.Unlock()

	// Both remote queries are issued immediately; neither waits on the
	// other.
	type brandRes struct {
		brand token.Brand
		err   error
	}
	type kindRes struct {
		kind string
		err  error
	}
	brandCh := make(chan brandRes, 1)
	kindCh := make(chan kindRes, 1)
	go func() {
		brand, err := issuer.Brand(ctx)
		brandCh <- brandRes{brand, err}
	}()
	go func() {
		kind, err := issuer.MathKind(ctx)
		kindCh <- kindRes{kind, err}
	}()
	br, kr := <-brandCh, <-kindCh

	rec, err := func() (*issuerRecord, error) {
		if br.err != nil {
			return nil, newError(settlementErr, "error retrieving brand from issuer: %w", br.err)
		}
		if kr.err != nil {
			return nil, newError(settlementErr, "error retrieving arithmetic kind from issuer: %w", kr.err)
		}
		math, err := token.NewMath(br.brand, kr.kind)
		if err != nil {
			return nil, codedError(mathErr, err)
		}
		return &issuerRecord{issuer: issuer, brand: br.brand, math: math}, nil
	}()

	r.mtx.Lock()
	delete(r.inFlight, issuer)
	if err == nil {
		r.byBrand[rec.brand] = rec
		r.byIssuer[issuer] = rec.brand
	}
	r.mtx.Unlock()

	if err != nil {
		f.Reject(err)
		return nil, err
	}
	f.Resolve(rec)
	return rec, nil
}

// record returns the committed record for a brand.
func (r *issuerRegistry) record(brand token.Brand) (*issuerRecord, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	rec, found := r.byBrand[brand]
	if !found {
		return nil, newError(notFoundErr, "no issuer registered for brand %s", brand.Label())
	}
	return rec, nil
}

// brandForIssuer returns the brand committed for a registered issuer.
func (r *issuerRegistry) brandForIssuer(issuer host.Issuer) (token.Brand, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	brand, found := r.byIssuer[issuer]
	if !found {
		return nil, newError(notFoundErr, "issuer is not registered")
	}
	return brand, nil
}
