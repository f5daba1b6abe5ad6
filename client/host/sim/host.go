// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package sim

import (
	"context"
	"fmt"
	"sync"

	"hostwallet.org/hostwallet/client/host"
	"hostwallet.org/hostwallet/wallet"
	"hostwallet.org/hostwallet/wallet/token"
)

// Host is the in-process contract host. Contracts are installed with
// NewSwapPool and NewExchange, which hand out invites. An invite is
// exercised through Offer and consumed in the process.
type Host struct {
	log       wallet.Logger
	inviteKit IssuerKit

	mtx     sync.Mutex
	invites map[*invite]bool
}

// NewHost creates an empty Host with no contracts installed.
func NewHost(logger wallet.Logger) *Host {
	if logger == nil {
		logger = wallet.Disabled
	}
	return &Host{
		log:       logger,
		inviteKit: NewIssuerKit("entry invite"),
		invites:   make(map[*invite]bool),
	}
}

// invite is a single-use entry capability for one contract seat.
type invite struct {
	description string
	// exercise runs the contract against the escrowed offer. The contract
	// is responsible for eventually concluding the escrow.
	exercise func(ctx context.Context, esc *escrow) error
}

// newInvite mints and registers a fresh invite.
func (h *Host) newInvite(description string, exercise func(context.Context, *escrow) error) *invite {
	inv := &invite{description: description, exercise: exercise}
	h.mtx.Lock()
	h.invites[inv] = true
	h.mtx.Unlock()
	return inv
}

// spendInvite validates and consumes the invite.
func (h *Host) spendInvite(v host.Invite) (*invite, error) {
	inv, ok := v.(*invite)
	if !ok {
		return nil, fmt.Errorf("not an invite from this host")
	}
	h.mtx.Lock()
	defer h.mtx.Unlock()
	if !h.invites[inv] {
		return nil, fmt.Errorf("invite %q already used", inv.description)
	}
	delete(h.invites, inv)
	return inv, nil
}

// escrow is a live offer held by the host. It is also the offer's Handle.
type escrow struct {
	proposal *host.Proposal
	// given is what the offeror escrowed, by keyword.
	given map[string]token.Amount

	outcome    *wallet.Future[any]
	completion *wallet.Future[host.Completion]
	payouts    *wallet.Future[map[string]host.Payment]
	notifier   *notifier

	mtx    sync.Mutex
	active bool
}

func newEscrow(proposal *host.Proposal, given map[string]token.Amount) *escrow {
	return &escrow{
		proposal:   proposal,
		given:      given,
		outcome:    wallet.NewFuture[any](),
		completion: wallet.NewFuture[host.Completion](),
		payouts:    wallet.NewFuture[map[string]host.Payment](),
		notifier:   newNotifier(),
	}
}

// conclude delivers the payouts, deactivates the escrow and closes its
// notifier chain. Only the first conclusion takes effect.
func (e *escrow) conclude(payouts map[string]host.Payment) {
	e.mtx.Lock()
	was := e.active
	e.active = false
	e.mtx.Unlock()
	if !was {
		return
	}
	e.payouts.Resolve(payouts)
	e.notifier.publish(true)
}

func (e *escrow) isActive() bool {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.active
}

// Offer escrows the payments and runs the invite's contract.
func (h *Host) Offer(ctx context.Context, v host.Invite, proposal *host.Proposal, payments map[string]host.Payment) (*host.OfferResult, error) {
	inv, err := h.spendInvite(v)
	if err != nil {
		return nil, err
	}
	if proposal == nil {
		return nil, fmt.Errorf("no proposal")
	}
	// Escrow exactly the declared give side. Each payment must carry the
	// declared amount.
	given := make(map[string]token.Amount, len(proposal.Give))
	for keyword, want := range proposal.Give {
		pmt, ok := payments[keyword].(*payment)
		if !ok {
			return nil, fmt.Errorf("no payment escrowed for keyword %q", keyword)
		}
		amt, err := pmt.claim()
		if err != nil {
			return nil, err
		}
		if amt != want {
			return nil, fmt.Errorf("payment for keyword %q is %d %s, proposal declares %d %s",
				keyword, amt.Extent, amt.Brand.Label(), want.Extent, want.Brand.Label())
		}
		given[keyword] = amt
	}
	esc := newEscrow(proposal, given)
	esc.active = true
	h.log.Debugf("escrowed offer for invite %q", inv.description)
	if err := inv.exercise(ctx, esc); err != nil {
		// The assets are already escrowed, so a contract error refunds
		// and concludes rather than failing the Offer call.
		h.log.Errorf("contract error for invite %q: %v", inv.description, err)
		esc.outcome.Reject(err)
		esc.completion.Reject(err)
		esc.conclude(h.refund(esc))
	}
	return &host.OfferResult{
		Handle:     wallet.Resolved[host.Handle](esc),
		Outcome:    esc.outcome,
		Completion: esc.completion,
		Payouts:    esc.payouts,
	}, nil
}

// refund mints payouts returning everything the escrow holds.
func (h *Host) refund(esc *escrow) map[string]host.Payment {
	payouts := make(map[string]host.Payment, len(esc.given))
	for keyword, amt := range esc.given {
		payouts[keyword] = &payment{amt: amt}
	}
	return payouts
}

// IsActive reports whether the escrowed offer still has settlement activity
// ahead of it.
func (h *Host) IsActive(_ context.Context, hd host.Handle) (bool, error) {
	esc, ok := hd.(*escrow)
	if !ok {
		return false, fmt.Errorf("not a handle from this host")
	}
	return esc.isActive(), nil
}

// Subscription opens the offer's settlement notifier.
func (h *Host) Subscription(_ context.Context, hd host.Handle) (host.Subscription, error) {
	esc, ok := hd.(*escrow)
	if !ok {
		return nil, fmt.Errorf("not a handle from this host")
	}
	return esc.notifier, nil
}

// InviteIssuer is the issuer for the host's entry invites.
func (h *Host) InviteIssuer(_ context.Context) (host.Issuer, error) {
	return h.inviteKit.Issuer, nil
}

// notifier is a chained update publisher. Each UpdateSince call blocks until
// an update newer than the marker exists.
type notifier struct {
	mtx     sync.Mutex
	updates []bool
	gate    chan struct{}
}

func newNotifier() *notifier {
	return &notifier{gate: make(chan struct{})}
}

// publish appends an update and wakes all waiters.
func (n *notifier) publish(done bool) {
	n.mtx.Lock()
	n.updates = append(n.updates, done)
	close(n.gate)
	n.gate = make(chan struct{})
	n.mtx.Unlock()
}

// UpdateSince returns the first update past the marker, blocking until one
// exists. A nil marker asks for the first update.
func (n *notifier) UpdateSince(ctx context.Context, marker any) (*host.Update, error) {
	idx := 0
	if marker != nil {
		i, ok := marker.(int)
		if !ok {
			return nil, fmt.Errorf("marker %v is not from this notifier", marker)
		}
		idx = i
	}
	for {
		n.mtx.Lock()
		if idx < len(n.updates) {
			up := &host.Update{Marker: idx + 1, Done: n.updates[idx]}
			n.mtx.Unlock()
			return up, nil
		}
		gate := n.gate
		n.mtx.Unlock()
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
