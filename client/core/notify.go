// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package core

import (
	"context"
	"fmt"
	"time"

	"hostwallet.org/hostwallet/client/host"
)

// Severity indicates the level of required action for a notification.
type Severity uint8

const (
	// Data notifications convey state changes and will often be of
	// interest only to a frontend's bookkeeping.
	Data Severity = iota
	// Poke notifications require no user action, but should be displayed.
	Poke
	// Success notifications convey the successful completion of a
	// user-initiated action.
	Success
	// WarningLevel notifications may require user attention.
	WarningLevel
	// ErrorLevel notifications convey a failure that required aborting an
	// action.
	ErrorLevel
)

// String satisfies fmt.Stringer for Severity.
func (s Severity) String() string {
	switch s {
	case Data:
		return "data"
	case Poke:
		return "poke"
	case Success:
		return "success"
	case WarningLevel:
		return "warning"
	case ErrorLevel:
		return "error"
	}
	return "unknown severity"
}

// Notification is a wallet event pushed to every registered feed.
type Notification struct {
	NoteType  string   `json:"type"`
	Subject   string   `json:"subject"`
	Details   string   `json:"details"`
	Severity  Severity `json:"severity"`
	TimeStamp uint64   `json:"stamp"`
	// Offer is set on offer lifecycle notifications.
	Offer *OfferRecord `json:"offer,omitempty"`
	// Purse is set on purse balance notifications.
	Purse *PurseState `json:"purse,omitempty"`
}

const (
	noteTypeOffer  = "offer"
	noteTypePurse  = "purse"
	noteTypeIssuer = "issuer"
)

func newNotification(noteType, subject, details string, severity Severity) Notification {
	return Notification{
		NoteType:  noteType,
		Subject:   subject,
		Details:   details,
		Severity:  severity,
		TimeStamp: uint64(time.Now().UnixMilli()),
	}
}

// newOfferNote is a notification about an offer's lifecycle.
func newOfferNote(subject, details string, severity Severity, rec *OfferRecord) Notification {
	n := newNotification(noteTypeOffer, subject, details, severity)
	n.Offer = rec
	return n
}

// newPurseNote is a notification about a purse's balance.
func newPurseNote(subject, details string, severity Severity, state *PurseState) Notification {
	n := newNotification(noteTypePurse, subject, details, severity)
	n.Purse = state
	return n
}

// newIssuerNote is a notification about the issuer registry.
func newIssuerNote(subject, details string, severity Severity) Notification {
	return newNotification(noteTypeIssuer, subject, details, severity)
}

// notify sends the notification to all subscribers. If the subscriber's
// channel is blocking, the notification is silently dropped for that
// subscriber.
func (c *Core) notify(n Notification) {
	if n.Severity >= WarningLevel {
		log.Warnf("notify: %s - %s", n.Subject, n.Details)
	}
	c.noteMtx.RLock()
	for _, ch := range c.noteChans {
		select {
		case ch <- n:
		default:
			log.Debugf("dropped %s notification, blocked channel", n.NoteType)
		}
	}
	c.noteMtx.RUnlock()
}

// subscribeToUpdates follows an active offer's settlement notifier. Each
// update's marker keys the next request, so the chain observes every update
// exactly once. When the host reports the chain done the offer is marked
// complete, unless a terminal status got there first. The chain also stops
// as soon as the stored status turns terminal, since no completion can be
// recorded past that point.
func (c *Core) subscribeToUpdates(ctx context.Context, id string, h host.Handle) {
	defer c.wg.Done()
	sub, err := c.host.Subscription(ctx, h)
	if err != nil {
		log.Errorf("error opening settlement notifier for offer %s: %v", id, err)
		return
	}
	var marker any
	for {
		up, err := sub.UpdateSince(ctx, marker)
		if err != nil {
			if ctx.Err() == nil {
				log.Errorf("settlement notifier error for offer %s: %v", id, err)
			}
			return
		}
		rec, found := c.book.get(id)
		if !found {
			return
		}
		if rec.Status.terminal() {
			log.Debugf("dropping settlement notifier for offer %s with status %q", id, rec.Status)
			return
		}
		if up.Done {
			rec, err := c.book.update(id, func(rec *OfferRecord) {
				if !rec.Status.terminal() {
					rec.Status = StatusComplete
				}
			})
			if err != nil {
				log.Errorf("error recording completion of offer %s: %v", id, err)
				return
			}
			c.notify(newOfferNote(fmt.Sprintf("offer %s complete", id), "", Success, rec))
			return
		}
		marker = up.Marker
	}
}
