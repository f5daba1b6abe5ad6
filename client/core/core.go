// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package core

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"hostwallet.org/hostwallet/client/host"
	"hostwallet.org/hostwallet/wallet"
	"hostwallet.org/hostwallet/wallet/token"
)

// log is a logger provided with Config. All logging is to this logger.
var log = wallet.Disabled

// inviteBrandPetname is the petname under which the host's entry-invite
// issuer is registered at startup.
const inviteBrandPetname = "host invite"

// Config is the configuration for the Core.
type Config struct {
	// Host is the remote contract host.
	Host host.Host
	// Board is the external capability directory.
	Board host.Board
	// Logger is the Core's logger.
	Logger wallet.Logger
	// PursesHandler, if set, receives the serialized purses snapshot
	// after every purse mutation.
	PursesHandler func(state string)
	// OffersHandler, if set, receives the serialized offers snapshot
	// after every offer mutation.
	OffersHandler func(state string)
}

// Core is the client wallet agent. Core mediates the user's purses and
// in-flight offers against the remote contract host and projects them into
// deterministic serialized views.
type Core struct {
	ctxMtx sync.RWMutex
	ctx    context.Context

	wg    sync.WaitGroup
	ready chan struct{}
	cfg   *Config
	host  host.Host
	board host.Board

	registry   *issuerRegistry
	brandNames *petnameMap[token.Brand]
	purseNames *petnameMap[*xcPurse]
	book       *offerBook

	trackedMtx sync.RWMutex
	tracked    map[string]*trackedOffer

	purseMtx    sync.RWMutex
	pursesState map[string]*PurseState

	facetMtx      sync.Mutex
	depositFacets map[string]string

	noteMtx   sync.RWMutex
	noteChans []chan Notification
}

// New is the constructor for a new Core.
func New(cfg *Config) (*Core, error) {
	if cfg.Host == nil {
		return nil, fmt.Errorf("no contract host configured")
	}
	if cfg.Board == nil {
		return nil, fmt.Errorf("no board configured")
	}
	if cfg.Logger != nil {
		log = cfg.Logger
	}
	c := &Core{
		ready:         make(chan struct{}),
		cfg:           cfg,
		host:          cfg.Host,
		board:         cfg.Board,
		registry:      newIssuerRegistry(),
		brandNames:    newPetnameMap[token.Brand]("brand"),
		purseNames:    newPetnameMap[*xcPurse]("purse"),
		tracked:       make(map[string]*trackedOffer),
		pursesState:   make(map[string]*PurseState),
		depositFacets: make(map[string]string),
	}
	c.book = newOfferBook(func(snapshot string) {
		if cfg.OffersHandler != nil {
			cfg.OffersHandler(snapshot)
		}
	})
	log.Tracef("new wallet core created")
	return c, nil
}

// Run runs the core. Registers the host's entry-invite issuer and blocks
// until the context is canceled.
func (c *Core) Run(ctx context.Context) {
	log.Infof("started wallet core")
	// Store the context as a field, since settlement sequences outlive the
	// calls that start them.
	c.ctxMtx.Lock()
	c.ctx = ctx
	c.ctxMtx.Unlock()
	inviteIssuer, err := c.host.InviteIssuer(ctx)
	if err != nil {
		log.Errorf("error retrieving host invite issuer: %v", err)
	} else if err := c.RegisterIssuer(ctx, inviteBrandPetname, inviteIssuer); err != nil {
		log.Errorf("error registering host invite issuer: %v", err)
	}
	close(c.ready)
	<-ctx.Done()
	c.wg.Wait()
	log.Infof("wallet core off")
}

// Ready is closed once Run has finished its startup sequence.
func (c *Core) Ready() <-chan struct{} {
	return c.ready
}

// runCtx is the context governing background settlement work. Callers' own
// contexts only cover the synchronous part of an operation.
func (c *Core) runCtx() context.Context {
	c.ctxMtx.RLock()
	defer c.ctxMtx.RUnlock()
	if c.ctx != nil {
		return c.ctx
	}
	return context.Background()
}

// RegisterIssuer registers the issuing authority and binds its brand to the
// petname. Registration of an already registered issuer is an error, but a
// registration that arrives while a first one is still in flight attaches to
// the same result.
func (c *Core) RegisterIssuer(ctx context.Context, petname string, issuer host.Issuer) error {
	rec, err := c.registry.register(ctx, issuer)
	if err != nil {
		return err
	}
	if _, err := c.brandNames.reverseResolve(rec.brand); err != nil {
		if err := c.brandNames.bind(petname, rec.brand); err != nil {
			return err
		}
	}
	c.notify(newIssuerNote(fmt.Sprintf("issuer %q added to wallet", petname), "", Success))
	return nil
}

// BrandForIssuer returns the brand recorded for a registered issuer.
func (c *Core) BrandForIssuer(issuer host.Issuer) (token.Brand, error) {
	return c.registry.brandForIssuer(issuer)
}

// CreatePurse creates a new empty purse of the named brand under the purse
// petname. The purse is wrapped so every balance change re-publishes the
// purses projection.
func (c *Core) CreatePurse(ctx context.Context, brandPetname, pursePetname string) error {
	if _, err := c.purseNames.resolve(pursePetname); err == nil {
		return newError(dupePetnameErr, "purse petname %q already used in wallet", pursePetname)
	}
	brand, err := c.brandNames.resolve(brandPetname)
	if err != nil {
		return err
	}
	rec, err := c.registry.record(brand)
	if err != nil {
		return err
	}
	raw, err := rec.issuer.MakeEmptyPurse(ctx)
	if err != nil {
		return newError(settlementErr, "error creating %s purse: %w", brandPetname, err)
	}
	purse := &xcPurse{
		Purse:   raw,
		petname: pursePetname,
		brand:   brand,
	}
	purse.refresh = func() { c.updatePurseState(purse) }
	if err := c.purseNames.bind(pursePetname, purse); err != nil {
		return err
	}
	c.updatePurseState(purse)
	c.notify(newPurseNote(fmt.Sprintf("purse %q created", pursePetname), "", Success, nil))
	return nil
}

// Deposit deposits the payment into the named purse and returns the
// deposited amount.
func (c *Core) Deposit(ctx context.Context, pursePetname string, pmt host.Payment) (token.Amount, error) {
	purse, err := c.purseNames.resolve(pursePetname)
	if err != nil {
		return token.Amount{}, err
	}
	amt, err := purse.Deposit(ctx, pmt)
	if err != nil {
		return token.Amount{}, newError(settlementErr, "deposit to %q error: %w", pursePetname, err)
	}
	return amt, nil
}

// PublishDepositFacet publishes a deposit-only facet of the named purse to
// the board, so external parties can pay into the purse by board id without
// gaining withdrawal rights. Publishing a purse that already has a facet
// returns the existing board id.
func (c *Core) PublishDepositFacet(ctx context.Context, pursePetname string) (string, error) {
	purse, err := c.purseNames.resolve(pursePetname)
	if err != nil {
		return "", err
	}
	c.facetMtx.Lock()
	defer c.facetMtx.Unlock()
	if id, published := c.depositFacets[pursePetname]; published {
		return id, nil
	}
	boardID, err := c.board.ID(ctx, &depositFacet{purse: purse})
	if err != nil {
		return "", newError(settlementErr, "error publishing deposit facet for %q: %w", pursePetname, err)
	}
	c.depositFacets[pursePetname] = boardID
	c.notify(newPurseNote(fmt.Sprintf("deposit facet for %q published", pursePetname), boardID, Success, nil))
	return boardID, nil
}

// DepositFacetID returns the board id of the purse's published deposit
// facet.
func (c *Core) DepositFacetID(pursePetname string) (string, error) {
	if _, err := c.purseNames.resolve(pursePetname); err != nil {
		return "", err
	}
	c.facetMtx.Lock()
	defer c.facetMtx.Unlock()
	id, published := c.depositFacets[pursePetname]
	if !published {
		return "", newError(notFoundErr, "no deposit facet published for purse %q", pursePetname)
	}
	return id, nil
}

// updatePurseState re-publishes the projection of one purse. Failures are
// logged, never propagated: the balance change that triggered the refresh is
// authoritative even if the projection could not be refreshed.
func (c *Core) updatePurseState(purse *xcPurse) {
	ctx := c.runCtx()
	amt, err := purse.Purse.CurrentAmount(ctx)
	if err != nil {
		log.Errorf("error reading %q balance for projection: %v", purse.petname, err)
		return
	}
	brandBoardID, err := c.board.ID(ctx, purse.brand)
	if err != nil {
		log.Errorf("error resolving board id for %q brand: %v", purse.petname, err)
		return
	}
	state := &PurseState{
		PursePetname:  purse.petname,
		BrandPetname:  c.brandPetname(purse.brand),
		BrandBoardID:  brandBoardID,
		Extent:        amt.Extent,
		CurrentAmount: DisplayAmount{Brand: c.brandPetname(purse.brand), Extent: amt.Extent},
	}
	c.purseMtx.Lock()
	c.pursesState[purse.petname] = state
	c.purseMtx.Unlock()
	if c.cfg.PursesHandler != nil {
		c.cfg.PursesHandler(c.PursesSnapshot())
	}
	c.notify(newPurseNote(fmt.Sprintf("%q balance updated", purse.petname),
		fmt.Sprintf("%d %s", amt.Extent, state.BrandPetname), Data, state))
}

// Purses returns the current purse projections, sorted by purse petname.
func (c *Core) Purses() []*PurseState {
	c.purseMtx.RLock()
	states := make([]*PurseState, 0, len(c.pursesState))
	for _, state := range c.pursesState {
		cp := *state
		states = append(states, &cp)
	}
	c.purseMtx.RUnlock()
	sort.Slice(states, func(i, j int) bool { return states[i].PursePetname < states[j].PursePetname })
	return states
}

// PursesSnapshot serializes the purse projections, sorted by purse petname,
// to canonical JSON.
func (c *Core) PursesSnapshot() string {
	bs, err := json.Marshal(c.Purses())
	if err != nil {
		log.Errorf("purses snapshot encode error: %v", err)
		return "[]"
	}
	return string(bs)
}

// Issuers lists the registered issuers by brand petname, sorted.
func (c *Core) Issuers() []*IssuerListing {
	ctx := c.runCtx()
	names := c.brandNames.petnames()
	listings := make([]*IssuerListing, 0, len(names))
	for _, name := range names {
		brand, err := c.brandNames.resolve(name)
		if err != nil {
			continue
		}
		boardID, err := c.board.ID(ctx, brand)
		if err != nil {
			log.Errorf("error resolving board id for brand %q: %v", name, err)
		}
		listings = append(listings, &IssuerListing{Petname: name, BrandBoardID: boardID})
	}
	return listings
}

// Offers returns the offer records matching the filter, sorted by offer id.
func (c *Core) Offers(filter *OfferFilter) []*OfferRecord {
	return c.book.list(filter)
}

// OffersSnapshot serializes all offer records, sorted by offer id, to
// canonical JSON.
func (c *Core) OffersSnapshot() string {
	return c.book.snapshot()
}

// OfferHandle returns the host's escrow handle for the offer, if the offer
// reached the escrow stage.
func (c *Core) OfferHandle(id string) (host.Handle, bool) {
	to := c.trackedOffer(id)
	if to == nil {
		return nil, false
	}
	return to.escrowHandle()
}

// NotificationFeed returns a new receiving channel for notifications. The
// channel has capacity 16, and should be monitored for the lifetime of the
// Core. Blocking channels are silently ignored.
func (c *Core) NotificationFeed() <-chan Notification {
	ch := make(chan Notification, 16)
	c.noteMtx.Lock()
	c.noteChans = append(c.noteChans, ch)
	c.noteMtx.Unlock()
	return ch
}

// trackedOffer retrieves the settlement bookkeeping for an offer id.
func (c *Core) trackedOffer(id string) *trackedOffer {
	c.trackedMtx.RLock()
	defer c.trackedMtx.RUnlock()
	return c.tracked[id]
}
