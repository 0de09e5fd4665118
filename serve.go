package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	bidding "art-marketplace/internal/biddingService"
	catalog "art-marketplace/internal/catalogService"
	"art-marketplace/internal/clock"
	"art-marketplace/internal/config"
	"art-marketplace/internal/media"
	"art-marketplace/internal/realtime"
	"art-marketplace/internal/repository"
	"art-marketplace/internal/server"
	"art-marketplace/utils"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var seedDemo bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and realtime feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context(), seedDemo)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&seedDemo, "seed", false, "load demo listings into the memory store")
	rootCmd.AddCommand(serveCmd)
}

func runServe(parent context.Context, seed bool) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := utils.ConfigureLogger(cfg.Log.Level, cfg.Log.Format); err != nil {
		return err
	}

	clk := clock.System{}

	store, health, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	if seed {
		mem, ok := store.(*repository.MemoryRepo)
		if !ok {
			return errors.New("--seed requires store.driver memory")
		}
		seedListings(mem, clk.Now())
	}

	hub, err := realtime.NewHub(cfg.Realtime.SubscriberBuffer, cfg.Realtime.DedupeWindow)
	if err != nil {
		return fmt.Errorf("failed to create event hub: %w", err)
	}
	defer hub.Close()

	g, gctx := errgroup.WithContext(ctx)

	var publisher realtime.Publisher = hub
	switch cfg.Realtime.Driver {
	case config.RealtimeAMQP:
		broker := realtime.NewAMQPBroker(cfg.Realtime.AMQPURL, cfg.Realtime.Exchange, hub)
		publisher = broker
		g.Go(func() error { return broker.Run(gctx) })
	case config.RealtimePostgres:
		listener := realtime.NewPGListener(cfg.Store.DSN, repository.BidEventsChannel, hub)
		g.Go(func() error { return listener.Run(gctx) })
	}

	resolver, err := media.New(ctx, cfg.Media, clk)
	if err != nil {
		return err
	}

	router := server.SetupRouter(server.Dependencies{
		Bidding:           bidding.NewBiddingService(store, publisher, clk, cfg.Auction.TopBids),
		Catalog:           catalog.NewCatalogService(store, resolver, clk, cfg.Auction),
		Events:            hub,
		Clock:             clk,
		CountdownInterval: cfg.Auction.CountdownInterval.Std(),
		IdentityHeader:    cfg.Server.IdentityHeader,
		Health:            health,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: cfg.Server.WriteTimeout.Std(),
		IdleTimeout:  cfg.Server.IdleTimeout.Std(),
	}

	g.Go(func() error {
		utils.Info("Starting art marketplace server", map[string]any{
			"addr":     srv.Addr,
			"store":    cfg.Store.Driver,
			"realtime": cfg.Realtime.Driver,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		utils.Info("Shutting down server", nil)
		// SSE streams end when their subscriptions close
		hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// openStore returns the configured store, a health probe for it and a cleanup func
func openStore(ctx context.Context, cfg config.Config) (repository.AuctionDB, func(context.Context) error, func(), error) {
	if cfg.Store.Driver != config.StorePostgres {
		return repository.NewMemoryRepo(), nil, func() {}, nil
	}

	db, err := repository.Open(ctx, cfg.Store)
	if err != nil {
		return nil, nil, nil, err
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			utils.Warn("Failed to close database", map[string]any{"error": err.Error()})
		}
	}
	return repository.NewPostgresRepo(db), db.PingContext, closeDB, nil
}
