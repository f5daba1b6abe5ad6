// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package core

import (
	"context"
	"fmt"

	"hostwallet.org/hostwallet/client/host"
	"hostwallet.org/hostwallet/wallet"
	"hostwallet.org/hostwallet/wallet/token"
)

// compiledOffer is an offer template resolved into live capabilities: purse
// references for every keyword, concrete amounts, and the board-resolved
// entry invite. Compilation of the invite proceeds in the background, so the
// invite is a future.
type compiledOffer struct {
	proposal *host.Proposal
	purses   map[string]*xcPurse
	invite   *wallet.Future[host.Invite]
}

// compileEntries resolves one side of a proposal template. Every entry's
// purse petname must be bound, and the entry's brand is the purse's brand.
func (c *Core) compileEntries(entries map[string]TemplateAmount) (map[string]token.Amount, map[string]*xcPurse, error) {
	amounts := make(map[string]token.Amount, len(entries))
	purses := make(map[string]*xcPurse, len(entries))
	for keyword, entry := range entries {
		purse, err := c.purseNames.resolve(entry.PursePetname)
		if err != nil {
			return nil, nil, newError(unknownPurseErr, "no purse %q for proposal keyword %q",
				entry.PursePetname, keyword)
		}
		amounts[keyword] = token.Amount{Brand: purse.Brand(), Extent: entry.Extent}
		purses[keyword] = purse
	}
	return amounts, purses, nil
}

// compileProposal resolves the template's petnames and extents into a host
// proposal and the purse bindings backing it.
func (c *Core) compileProposal(tmpl *ProposalTemplate) (*host.Proposal, map[string]*xcPurse, error) {
	want, wantPurses, err := c.compileEntries(tmpl.Want)
	if err != nil {
		return nil, nil, err
	}
	give, givePurses, err := c.compileEntries(tmpl.Give)
	if err != nil {
		return nil, nil, err
	}
	purses := make(map[string]*xcPurse, len(wantPurses)+len(givePurses))
	for keyword, purse := range wantPurses {
		purses[keyword] = purse
	}
	for keyword, purse := range givePurses {
		purses[keyword] = purse
	}
	exit := tmpl.Exit
	if exit == nil {
		exit = host.OnDemandExit{}
	}
	return &host.Proposal{Want: want, Give: give, Exit: exit}, purses, nil
}

// compileOffer compiles the stored offer record. The proposal side is
// resolved synchronously, while the entry invite is fetched from the board
// in the background.
func (c *Core) compileOffer(ctx context.Context, rec *OfferRecord) (*compiledOffer, error) {
	proposal, purses, err := c.compileProposal(&rec.Proposal)
	if err != nil {
		return nil, err
	}
	invite := wallet.NewFuture[host.Invite]()
	boardID := rec.InviteBoardID
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		v, err := c.board.Value(ctx, boardID)
		if err != nil {
			invite.Reject(newError(unknownCapabilityErr, "board id %q did not resolve: %w", boardID, err))
			return
		}
		if v == nil {
			invite.Reject(newError(unknownCapabilityErr, "board id %q resolved to nothing", boardID))
			return
		}
		invite.Resolve(v)
	}()
	return &compiledOffer{proposal: proposal, purses: purses, invite: invite}, nil
}

// displayEntries is the redacted projection of one side of a proposal
// template. Purse capabilities are reduced to their petnames.
func (c *Core) displayEntries(entries map[string]TemplateAmount) (map[string]DisplayEntry, error) {
	display := make(map[string]DisplayEntry, len(entries))
	for keyword, entry := range entries {
		purse, err := c.purseNames.resolve(entry.PursePetname)
		if err != nil {
			return nil, newError(unknownPurseErr, "no purse %q for proposal keyword %q",
				entry.PursePetname, keyword)
		}
		display[keyword] = DisplayEntry{
			PursePetname: entry.PursePetname,
			Amount:       DisplayAmount{Brand: c.brandPetname(purse.Brand()), Extent: entry.Extent},
		}
	}
	return display, nil
}

// displayProposal builds the redacted proposal projection published with the
// offer record.
func (c *Core) displayProposal(tmpl *ProposalTemplate) (*DisplayProposal, error) {
	want, err := c.displayEntries(tmpl.Want)
	if err != nil {
		return nil, err
	}
	give, err := c.displayEntries(tmpl.Give)
	if err != nil {
		return nil, err
	}
	exitKind := host.ExitOnDemand
	if tmpl.Exit != nil {
		exitKind = tmpl.Exit.Kind()
	}
	return &DisplayProposal{Want: want, Give: give, Exit: exitKind}, nil
}

// SubmitOfferRequest records a new offer from an external request. The offer
// id is namespaced with the requester's origin, the proposal is compiled
// against the wallet's purses, and the record is published with an empty
// status awaiting the user's decision.
func (c *Core) SubmitOfferRequest(tmpl *OfferTemplate, reqCtx RequestContext) (string, error) {
	if tmpl.InviteBoardID == "" {
		return "", newError(unknownCapabilityErr, "offer request carries no invite board id")
	}
	id := offerID(reqCtx, tmpl.ID)
	display, err := c.displayProposal(&tmpl.Proposal)
	if err != nil {
		return "", err
	}
	rec := &OfferRecord{
		ID:             id,
		RequestContext: reqCtx,
		InviteBoardID:  tmpl.InviteBoardID,
		Proposal:       tmpl.Proposal,
		Display:        display,
	}
	if err := c.book.create(rec); err != nil {
		return "", err
	}
	// Compile eagerly so settlement can start the moment the offer is
	// accepted.
	to := newTrackedOffer(id)
	c.trackedMtx.Lock()
	c.tracked[id] = to
	c.trackedMtx.Unlock()
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		co, err := c.compileOffer(c.runCtx(), rec)
		if err != nil {
			to.compiled.Reject(err)
			return
		}
		to.compiled.Resolve(co)
	}()
	if stored, found := c.book.get(id); found {
		c.notify(newOfferNote(fmt.Sprintf("offer %s proposed", id), "", Poke, stored))
	}
	return id, nil
}
