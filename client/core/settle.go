// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package core

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"hostwallet.org/hostwallet/client/host"
	"hostwallet.org/hostwallet/wallet"
)

// trackedOffer is the settlement bookkeeping for one offer. The compiled
// future settles when the offer's template has been resolved against live
// capabilities. The resolved flag is the single claim on the offer's
// terminal accept/reject/cancel slot: whichever path flips it first owns the
// final status, and every later claimant stands down.
type trackedOffer struct {
	id       string
	compiled *wallet.Future[*compiledOffer]

	mtx        sync.Mutex
	resolved   bool
	handle     host.Handle
	haveHandle bool
	completion host.Completion
}

func newTrackedOffer(id string) *trackedOffer {
	return &trackedOffer{
		id:       id,
		compiled: wallet.NewFuture[*compiledOffer](),
	}
}

// claimResolution attempts to claim the terminal slot. Reports whether the
// caller won the claim.
func (to *trackedOffer) claimResolution() bool {
	to.mtx.Lock()
	defer to.mtx.Unlock()
	if to.resolved {
		return false
	}
	to.resolved = true
	return true
}

// setEscrow records the escrow handle and, if present, the early-exit
// capability.
func (to *trackedOffer) setEscrow(h host.Handle, comp host.Completion) {
	to.mtx.Lock()
	to.handle = h
	to.haveHandle = true
	to.completion = comp
	to.mtx.Unlock()
}

// escrowHandle returns the escrow handle, if the offer reached escrow.
func (to *trackedOffer) escrowHandle() (host.Handle, bool) {
	to.mtx.Lock()
	defer to.mtx.Unlock()
	return to.handle, to.haveHandle
}

// completionCap returns the early-exit capability, or nil.
func (to *trackedOffer) completionCap() host.Completion {
	to.mtx.Lock()
	defer to.mtx.Unlock()
	return to.completion
}

// AcceptOffer begins settlement of a submitted offer. The pending status is
// published synchronously, before any remote interaction, so an observer
// always sees the offer pass through pending on its way to a terminal
// status. Settlement itself runs in the background.
func (c *Core) AcceptOffer(id string) error {
	to := c.trackedOffer(id)
	if to == nil {
		return newError(notFoundErr, "unknown offer id %q", id)
	}
	var started bool
	_, err := c.book.update(id, func(rec *OfferRecord) {
		if rec.Status != "" {
			return
		}
		rec.Status = StatusPending
		started = true
	})
	if err != nil {
		return err
	}
	if !started {
		log.Debugf("acceptance of offer %s ignored, already acted on", id)
		return nil
	}
	if rec, found := c.book.get(id); found {
		c.notify(newOfferNote(fmt.Sprintf("offer %s accepted", id), "", Poke, rec))
	}
	c.wg.Add(1)
	go c.settleOffer(c.runCtx(), to)
	return nil
}

// DeclineOffer rejects a submitted offer without any remote interaction.
// Declining an already declined offer is a no-op.
func (c *Core) DeclineOffer(id string) error {
	var declined bool
	_, err := c.book.update(id, func(rec *OfferRecord) {
		if rec.Status != "" && rec.Status != StatusDeclined {
			return
		}
		rec.Status = StatusDeclined
		declined = true
	})
	if err != nil {
		return err
	}
	if !declined {
		return newError(settlementErr, "offer %s is past the point of declining", id)
	}
	if rec, found := c.book.get(id); found {
		c.notify(newOfferNote(fmt.Sprintf("offer %s declined", id), "", Poke, rec))
	}
	return nil
}

// CancelOffer exercises the offer's early-exit capability. Returns false
// with no action if the offer carries none. Invoking the capability claims
// the terminal slot immediately, so a settlement sequence racing toward
// accept or reject stands down, but the cancel status itself is only
// published if the host confirms the exit. A host-side failure is logged and
// the record is left as-is.
func (c *Core) CancelOffer(id string) (bool, error) {
	if _, found := c.book.get(id); !found {
		return false, newError(notFoundErr, "unknown offer id %q", id)
	}
	to := c.trackedOffer(id)
	if to == nil {
		return false, nil
	}
	comp := to.completionCap()
	if comp == nil {
		return false, nil
	}
	to.claimResolution()
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := comp.Complete(c.runCtx()); err != nil {
			log.Errorf("offer %s cancellation error: %v", id, codedError(cancellationErr, err))
			return
		}
		rec, err := c.book.update(id, func(rec *OfferRecord) {
			rec.Status = StatusCancelled
		})
		if err != nil {
			log.Errorf("error recording cancellation of offer %s: %v", id, err)
			return
		}
		c.notify(newOfferNote(fmt.Sprintf("offer %s cancelled", id), "", Success, rec))
	}()
	return true, nil
}

// rejectOffer attempts to claim the offer's terminal slot for rejection. If
// another path already owns the slot the failure is logged and the record is
// untouched.
func (c *Core) rejectOffer(to *trackedOffer, err error) {
	if !to.claimResolution() {
		log.Debugf("late settlement failure for resolved offer %s: %v", to.id, err)
		return
	}
	log.Errorf("offer %s rejected: %v", to.id, err)
	rec, uerr := c.book.update(to.id, func(rec *OfferRecord) {
		rec.Status = StatusRejected
		rec.Error = err.Error()
	})
	if uerr != nil {
		log.Errorf("error recording rejection of offer %s: %v", to.id, uerr)
		return
	}
	c.notify(newOfferNote(fmt.Sprintf("offer %s rejected", to.id), err.Error(), ErrorLevel, rec))
}

// settleOffer drives an accepted offer through withdrawal, escrow, outcome,
// payout and deposit. The steps for one offer run strictly in order, while
// offers settle independently of one another. Any step's failure sends the
// offer to rejected, unless the terminal slot was already claimed.
func (c *Core) settleOffer(ctx context.Context, to *trackedOffer) {
	defer c.wg.Done()
	id := to.id

	co, err := to.compiled.Wait(ctx)
	if err != nil {
		c.rejectOffer(to, err)
		return
	}
	invite, err := co.invite.Wait(ctx)
	if err != nil {
		c.rejectOffer(to, err)
		return
	}

	// Withdraw the give side. Withdrawals run in parallel, and any failure
	// rejects the offer before anything reaches the host.
	var payMtx sync.Mutex
	payments := make(map[string]host.Payment, len(co.proposal.Give))
	g, gctx := errgroup.WithContext(ctx)
	for keyword, amt := range co.proposal.Give {
		keyword, amt := keyword, amt
		g.Go(func() error {
			pmt, err := co.purses[keyword].Withdraw(gctx, amt)
			if err != nil {
				return newError(purseWithdrawErr, "withdrawal for keyword %q error: %w", keyword, err)
			}
			payMtx.Lock()
			payments[keyword] = pmt
			payMtx.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		c.rejectOffer(to, err)
		return
	}

	res, err := c.host.Offer(ctx, invite, co.proposal, payments)
	if err != nil {
		c.rejectOffer(to, newError(settlementErr, "host rejected escrow of offer %s: %w", id, err))
		return
	}
	handle, err := res.Handle.Wait(ctx)
	if err != nil {
		c.rejectOffer(to, newError(settlementErr, "no escrow handle for offer %s: %w", id, err))
		return
	}
	// Not every offer gets an early-exit capability. Its absence just means
	// CancelOffer will report false.
	comp, err := res.Completion.Wait(ctx)
	if err != nil {
		log.Debugf("no early-exit capability for offer %s: %v", id, err)
		comp = nil
	}
	to.setEscrow(handle, comp)

	outcome, err := res.Outcome.Wait(ctx)
	if err != nil {
		c.rejectOffer(to, newError(settlementErr, "outcome error for offer %s: %w", id, err))
		return
	}
	if _, err := c.book.update(id, func(rec *OfferRecord) {
		rec.Outcome = c.redact(outcome)
	}); err != nil {
		log.Errorf("error recording outcome of offer %s: %v", id, err)
	}

	active, err := c.host.IsActive(ctx, handle)
	if err != nil {
		log.Errorf("error querying activity of offer %s: %v", id, err)
	}
	if active {
		c.wg.Add(1)
		go c.subscribeToUpdates(ctx, id, handle)
	}

	payouts, err := res.Payouts.Wait(ctx)
	if err != nil {
		c.rejectOffer(to, newError(settlementErr, "payout error for offer %s: %w", id, err))
		return
	}

	// Deposit every payout whose keyword is backed by a purse. Payouts
	// with no purse binding are dropped on the floor, same as a contract
	// paying out under a keyword the proposal never named. Unlike the
	// withdrawal side, every failed deposit is reported, not just the
	// first, since each failure strands a different payment.
	depositErrs := newErrorSet("payout deposit for offer %s: ", id)
	var errMtx sync.Mutex
	var depositWG sync.WaitGroup
	for keyword, pmt := range payouts {
		purse := co.purses[keyword]
		if purse == nil || pmt == nil {
			continue
		}
		keyword, pmt, purse := keyword, pmt, purse
		depositWG.Add(1)
		go func() {
			defer depositWG.Done()
			if _, err := purse.Deposit(ctx, pmt); err != nil {
				errMtx.Lock()
				depositErrs.add("deposit for keyword %q error: %v", keyword, err)
				errMtx.Unlock()
			}
		}()
	}
	depositWG.Wait()
	if err := depositErrs.ifAny(); err != nil {
		c.rejectOffer(to, codedError(settlementErr, err))
		return
	}

	if !to.claimResolution() {
		log.Debugf("offer %s settled after its resolution was claimed elsewhere", id)
		return
	}
	rec, err := c.book.update(id, func(rec *OfferRecord) {
		rec.Status = StatusAccepted
	})
	if err != nil {
		log.Errorf("error recording acceptance of offer %s: %v", id, err)
		return
	}
	c.notify(newOfferNote(fmt.Sprintf("offer %s settled", id), "", Success, rec))
}
