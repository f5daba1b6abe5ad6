// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package core

import (
	"fmt"
	"strings"

	"hostwallet.org/hostwallet/client/host"
)

// OfferStatus is an offer's position in its settlement lifecycle. The zero
// value is an offer that has been submitted to the wallet but not yet acted
// on by the user.
type OfferStatus string

const (
	// StatusPending is set synchronously when acceptance is requested,
	// before any remote call is issued.
	StatusPending OfferStatus = "pending"
	// StatusAccepted is terminal: all payouts were deposited.
	StatusAccepted OfferStatus = "accept"
	// StatusDeclined is terminal: the user rejected the offer before
	// submission. No remote interaction occurred.
	StatusDeclined OfferStatus = "decline"
	// StatusRejected is terminal: a settlement step or a payout deposit
	// failed. The triggering error is attached to the record.
	StatusRejected OfferStatus = "rejected"
	// StatusCancelled is reachable from any non-terminal status once a
	// completion capability exists.
	StatusCancelled OfferStatus = "cancel"
	// StatusComplete is set by the notification subscriber when the host
	// reports the offer's settlement done.
	StatusComplete OfferStatus = "complete"
)

// terminal reports whether the status permits no further transitions other
// than cancellation.
func (s OfferStatus) terminal() bool {
	switch s {
	case StatusAccepted, StatusDeclined, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// RequestContext identifies the caller that submitted an offer. The origin
// qualifies the caller-supplied offer id so ids from untrusted callers cannot
// collide.
type RequestContext struct {
	Origin string `json:"origin"`
}

// unknownOrigin is used when a request context carries no origin.
const unknownOrigin = "unknown"

// TemplateAmount names an amount by purse petname rather than by brand, since
// external callers never hold brands directly.
type TemplateAmount struct {
	PursePetname string `json:"pursePetname"`
	Extent       uint64 `json:"extent"`
}

// ProposalTemplate is the caller's uncompiled want/give declaration.
type ProposalTemplate struct {
	Want map[string]TemplateAmount `json:"want,omitempty"`
	Give map[string]TemplateAmount `json:"give,omitempty"`
	Exit host.ExitRule             `json:"exit"`
}

// OfferTemplate is an offer as submitted by an external caller: a raw id, the
// board id of the contract entry invite, and the proposal template.
type OfferTemplate struct {
	ID            string           `json:"id"`
	InviteBoardID string           `json:"inviteBoardId"`
	Proposal      ProposalTemplate `json:"proposalTemplate"`
}

// offerID qualifies a raw caller-supplied id with the request origin.
func offerID(ctx RequestContext, rawID string) string {
	origin := ctx.Origin
	if origin == "" {
		origin = unknownOrigin
	}
	return origin + "#" + rawID
}

// DisplayAmount is an amount with its brand redacted to the brand's petname.
type DisplayAmount struct {
	Brand  string `json:"brand"`
	Extent uint64 `json:"extent"`
}

// DisplayEntry is one keyword of a display proposal.
type DisplayEntry struct {
	PursePetname string        `json:"pursePetname"`
	Amount       DisplayAmount `json:"amount"`
}

// DisplayProposal is a proposal with every capability reference replaced by
// its petname, safe to send across the trust boundary. The exit rule is
// reduced to its kind.
type DisplayProposal struct {
	Want map[string]DisplayEntry `json:"want,omitempty"`
	Give map[string]DisplayEntry `json:"give,omitempty"`
	Exit string                  `json:"exit"`
}

// OfferRecord is the wallet's authoritative record of one offer. Records are
// value-copied out of the store, so callers can't mutate the stored state.
type OfferRecord struct {
	ID             string           `json:"id"`
	RequestContext RequestContext   `json:"requestContext"`
	InviteBoardID  string           `json:"inviteBoardId"`
	Proposal       ProposalTemplate `json:"proposalTemplate"`
	Display        *DisplayProposal `json:"proposalForDisplay,omitempty"`
	Status         OfferStatus      `json:"status,omitempty"`
	Error          string           `json:"error,omitempty"`
	Outcome        any              `json:"outcome,omitempty"`
}

// copyRecord makes a shallow-plus-maps copy so a snapshot can't alias the
// stored record.
func copyRecord(rec *OfferRecord) *OfferRecord {
	cp := *rec
	cp.Proposal.Want = copyTemplateEntries(rec.Proposal.Want)
	cp.Proposal.Give = copyTemplateEntries(rec.Proposal.Give)
	if rec.Display != nil {
		d := *rec.Display
		d.Want = copyDisplayEntries(rec.Display.Want)
		d.Give = copyDisplayEntries(rec.Display.Give)
		cp.Display = &d
	}
	return &cp
}

func copyTemplateEntries(m map[string]TemplateAmount) map[string]TemplateAmount {
	if m == nil {
		return nil
	}
	cp := make(map[string]TemplateAmount, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

func copyDisplayEntries(m map[string]DisplayEntry) map[string]DisplayEntry {
	if m == nil {
		return nil
	}
	cp := make(map[string]DisplayEntry, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

// OfferFilter restricts the offers returned from Offers.
type OfferFilter struct {
	// Origin, if non-nil, limits results to offers submitted from the
	// requesting origin.
	Origin *string `json:"origin,omitempty"`
}

// PurseState is the projection of one purse for external observers.
type PurseState struct {
	PursePetname  string        `json:"pursePetname"`
	BrandPetname  string        `json:"brandPetname"`
	BrandBoardID  string        `json:"brandBoardId"`
	Extent        uint64        `json:"extent"`
	CurrentAmount DisplayAmount `json:"currentAmount"`
}

// IssuerListing is the projection of one registered issuer.
type IssuerListing struct {
	Petname      string `json:"petname"`
	BrandBoardID string `json:"brandBoardId"`
}

// errorSet is a set of errors with a prefix prepended to the Error output.
type errorSet struct {
	prefix string
	errs   []error
}

// newErrorSet constructs an error set with a prefix.
func newErrorSet(s string, a ...any) *errorSet {
	return &errorSet{prefix: fmt.Sprintf(s, a...)}
}

// add adds the message to the set as an error and returns the errorSet.
func (set *errorSet) add(s string, a ...any) *errorSet {
	set.errs = append(set.errs, fmt.Errorf(s, a...))
	return set
}

// addErr adds the error to the set.
func (set *errorSet) addErr(err error) *errorSet {
	set.errs = append(set.errs, err)
	return set
}

// ifAny returns the error set if there are any errors, else nil.
func (set *errorSet) ifAny() error {
	if len(set.errs) > 0 {
		return set
	}
	return nil
}

// Error satisfies the error interface. Error strings are concatenated using a
// ", " and prepended with the prefix.
func (set *errorSet) Error() string {
	errStrings := make([]string, 0, len(set.errs))
	for i := range set.errs {
		errStrings = append(errStrings, set.errs[i].Error())
	}
	return set.prefix + "{" + strings.Join(errStrings, ", ") + "}"
}
