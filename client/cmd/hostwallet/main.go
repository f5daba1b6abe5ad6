// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"time"

	"hostwallet.org/hostwallet/client/app"
	"hostwallet.org/hostwallet/client/core"
	"hostwallet.org/hostwallet/client/host/sim"
	"hostwallet.org/hostwallet/wallet"
)

const appName = "hostwallet"

var version = "0.1.0"

var log wallet.Logger

func main() {
	// Wrap the actual main so defers run in it.
	err := mainCore()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(0)
}

func mainCore() error {
	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel() // don't leak on the earliest returns

	cfg, err := app.Configure()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if cfg.ShowVer {
		fmt.Printf("%s version %s (Go version %s)\n", appName, version, runtime.Version())
		return nil
	}

	utc := !cfg.LocalLogs
	logMaker, closeLogger := app.InitLogging(cfg.LogPath, cfg.DebugLevel, true, utc)
	defer closeLogger()
	log = logMaker.Logger("WALLET")
	log.Infof("%s version %v (Go version %s)", appName, version, runtime.Version())
	if utc {
		log.Infof("Logging with UTC time stamps. Current local time is %v",
			time.Now().Local().Format("15:04:05 MST"))
	}

	// The wallet runs against an in-process simulated host with a pair of
	// assets, a constant-product swap pool, and a resting-order exchange.
	simHost := sim.NewHost(logMaker.Logger("SIM"))
	board := sim.NewBoard()
	moola := sim.NewIssuerKit("moola")
	simoleans := sim.NewIssuerKit("simoleans")
	pool, err := sim.NewSwapPool(simHost, moola, simoleans, 10000, 10000)
	if err != nil {
		return fmt.Errorf("error funding swap pool: %w", err)
	}
	if _, err := sim.NewExchange(simHost, moola, simoleans); err != nil {
		return fmt.Errorf("error installing exchange: %w", err)
	}

	clientCore, err := core.New(&core.Config{
		Host:          simHost,
		Board:         board,
		Logger:        logMaker.Logger("CORE"),
		PursesHandler: projectionWriter(cfg.PursesPath),
		OffersHandler: projectionWriter(cfg.InboxPath),
	})
	if err != nil {
		return fmt.Errorf("error creating wallet core: %w", err)
	}

	// Catch interrupt signal (e.g. ctrl+c) for shutdown.
	killChan := make(chan os.Signal, 1)
	signal.Notify(killChan, os.Interrupt)
	go func() {
		<-killChan
		log.Infof("Shutting down...")
		cancel()
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		clientCore.Run(appCtx)
		cancel() // in the event that Run returns prior to context cancellation
	}()
	defer func() {
		log.Info("Exiting hostwallet main.")
		cancel()
		wg.Wait()
	}()

	<-clientCore.Ready()

	if err := demoSession(appCtx, clientCore, board, moola, simoleans, pool); err != nil {
		if appCtx.Err() != nil {
			return nil // interrupted
		}
		return err
	}

	<-appCtx.Done()
	return nil
}

// projectionWriter mirrors a serialized projection into a file, or nowhere
// when no path is configured.
func projectionWriter(path string) func(string) {
	if path == "" {
		return nil
	}
	return func(state string) {
		if err := os.WriteFile(path, []byte(state), 0600); err != nil {
			log.Errorf("error mirroring projection to %s: %v", path, err)
		}
	}
}

// demoSession funds the wallet from the simulated mints and trades against
// the swap pool, logging the wallet's view along the way.
func demoSession(ctx context.Context, c *core.Core, board *sim.Board, moola, simoleans sim.IssuerKit, pool *sim.SwapPool) error {
	feed := c.NotificationFeed()

	if err := c.RegisterIssuer(ctx, "moola", moola.Issuer); err != nil {
		return fmt.Errorf("error registering moola issuer: %w", err)
	}
	if err := c.RegisterIssuer(ctx, "simoleans", simoleans.Issuer); err != nil {
		return fmt.Errorf("error registering simoleans issuer: %w", err)
	}
	if err := c.CreatePurse(ctx, "moola", "Fun budget"); err != nil {
		return fmt.Errorf("error creating moola purse: %w", err)
	}
	if err := c.CreatePurse(ctx, "simoleans", "Nest egg"); err != nil {
		return fmt.Errorf("error creating simoleans purse: %w", err)
	}
	if _, err := c.Deposit(ctx, "Fun budget", moola.Mint.MintPayment(1000)); err != nil {
		return fmt.Errorf("error funding moola purse: %w", err)
	}
	facetID, err := c.PublishDepositFacet(ctx, "Nest egg")
	if err != nil {
		return fmt.Errorf("error publishing deposit facet: %w", err)
	}
	log.Infof("Pay simoleans into %q via board id %s", "Nest egg", facetID)

	inviteID, err := board.ID(ctx, pool.SwapInvite())
	if err != nil {
		return fmt.Errorf("error boarding swap invite: %w", err)
	}
	id, err := c.SubmitOfferRequest(&core.OfferTemplate{
		ID:            "swap-1",
		InviteBoardID: inviteID,
		Proposal: core.ProposalTemplate{
			Give: map[string]core.TemplateAmount{
				"In": {PursePetname: "Fun budget", Extent: 300},
			},
			Want: map[string]core.TemplateAmount{
				"Out": {PursePetname: "Nest egg", Extent: 250},
			},
		},
	}, core.RequestContext{Origin: "cli"})
	if err != nil {
		return fmt.Errorf("error submitting swap offer: %w", err)
	}
	log.Infof("Swap offer %s submitted. Accepting.", id)
	if err := c.AcceptOffer(id); err != nil {
		return fmt.Errorf("error accepting swap offer: %w", err)
	}

	// Follow the feed until the offer leaves pending.
	for {
		select {
		case n := <-feed:
			if n.Offer == nil || n.Offer.ID != id || n.Offer.Status == core.StatusPending {
				continue
			}
			log.Infof("Offer %s finished with status %q", id, n.Offer.Status)
			log.Infof("Purses: %s", c.PursesSnapshot())
			log.Infof("Inbox: %s", c.OffersSnapshot())
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
