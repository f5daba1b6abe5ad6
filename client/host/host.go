// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

// Package host defines the boundary between the wallet core and a remote
// contract host. Everything the core needs from the host side is an
// interface here, so the core never depends on any particular transport or
// host implementation.
package host

import (
	"context"

	"hostwallet.org/hostwallet/wallet"
	"hostwallet.org/hostwallet/wallet/token"
)

// Payment is a transferable claim on some amount of a single brand. A
// payment is consumed when deposited.
type Payment interface {
	// Amount is the payment's face value.
	Amount() token.Amount
}

// Purse holds a balance of a single brand and converts between balances and
// payments.
type Purse interface {
	// Brand is the brand of everything the purse can hold.
	Brand() token.Brand
	// CurrentAmount is the purse's balance.
	CurrentAmount(ctx context.Context) (token.Amount, error)
	// Deposit consumes the payment into the purse and returns the
	// deposited amount.
	Deposit(ctx context.Context, pmt Payment) (token.Amount, error)
	// Withdraw removes the amount from the purse as a new payment.
	Withdraw(ctx context.Context, amt token.Amount) (Payment, error)
}

// DepositFacet is a deposit-only view of a purse. A facet can be published
// to a Board so external parties can pay into the purse without gaining
// withdrawal rights.
type DepositFacet interface {
	// Receive consumes the payment into the backing purse and returns the
	// deposited amount.
	Receive(ctx context.Context, pmt Payment) (token.Amount, error)
}

// Issuer is the issuing authority for one brand.
type Issuer interface {
	// Brand is the brand the issuer mints.
	Brand(ctx context.Context) (token.Brand, error)
	// MathKind names the arithmetic the brand's amounts obey.
	MathKind(ctx context.Context) (string, error)
	// MakeEmptyPurse creates a new empty purse of the issuer's brand.
	MakeEmptyPurse(ctx context.Context) (Purse, error)
}

// Invite is an opaque entry capability for a contract hosted by the Host. It
// is obtained from the board and spent in Offer.
type Invite any

// Handle is the host's opaque reference to an escrowed offer. It is the key
// for IsActive, Subscription, and any contract-specific queries.
type Handle any

// Completion is the capability to conclude an offer's participation early.
// Not every offer gets one.
type Completion interface {
	Complete(ctx context.Context) error
}

// ExitRule declares the conditions under which an offer's escrowed assets
// come back.
type ExitRule interface {
	Kind() string
}

// ExitOnDemand marks an offer exitable at any time by its maker.
const ExitOnDemand = "onDemand"

// OnDemandExit is the ExitRule for ExitOnDemand.
type OnDemandExit struct{}

func (OnDemandExit) Kind() string { return ExitOnDemand }

// Proposal is a fully resolved want/give declaration, keyed by keyword.
type Proposal struct {
	Want map[string]token.Amount
	Give map[string]token.Amount
	Exit ExitRule
}

// OfferResult is the host's response to an escrowed offer. The fields settle
// individually and in no guaranteed order.
type OfferResult struct {
	// Handle settles once the offer is escrowed.
	Handle *wallet.Future[Handle]
	// Outcome is the contract's answer for the offer. Its type is
	// contract-specific.
	Outcome *wallet.Future[any]
	// Completion settles with the offer's early-exit capability, or
	// rejects if the offer carries none.
	Completion *wallet.Future[Completion]
	// Payouts settles with the final payments, keyed by proposal keyword,
	// once the offer's participation concludes.
	Payouts *wallet.Future[map[string]Payment]
}

// Update is one notification from an offer's settlement notifier.
type Update struct {
	// Marker identifies this update for the follow-up UpdateSince call.
	Marker any
	// Done reports that no further updates will be published.
	Done bool
}

// Subscription is a chained notifier. Each UpdateSince call blocks until an
// update newer than the marker exists.
type Subscription interface {
	UpdateSince(ctx context.Context, marker any) (*Update, error)
}

// Host is a remote contract host.
type Host interface {
	// Offer escrows the payments against the proposal using the invite,
	// and returns the individually settling result.
	Offer(ctx context.Context, invite Invite, proposal *Proposal, payments map[string]Payment) (*OfferResult, error)
	// IsActive reports whether the escrowed offer still has settlement
	// activity ahead of it.
	IsActive(ctx context.Context, h Handle) (bool, error)
	// Subscription opens the settlement notifier for an active offer.
	Subscription(ctx context.Context, h Handle) (Subscription, error)
	// InviteIssuer is the issuer for the host's entry invites.
	InviteIssuer(ctx context.Context) (Issuer, error)
}

// Board is an external directory assigning durable ids to shared
// capabilities.
type Board interface {
	// ID returns the board id for the value, assigning one if needed.
	ID(ctx context.Context, value any) (string, error)
	// Value resolves a board id back to the capability it names.
	Value(ctx context.Context, id string) (any, error)
}
