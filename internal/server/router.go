package server

import (
	"context"
	"net/http"
	"time"

	bidding "art-marketplace/internal/biddingService"
	catalog "art-marketplace/internal/catalogService"
	"art-marketplace/internal/clock"
	biddinghandler "art-marketplace/services/bidding/handler"
	cataloghandler "art-marketplace/services/catalog/handler"
	"art-marketplace/utils"

	"github.com/gin-gonic/gin"
)

// Dependencies are the services and settings the router is built from
type Dependencies struct {
	Bidding           *bidding.BiddingService
	Catalog           *catalog.CatalogService
	Events            biddinghandler.EventSubscriber
	Clock             clock.Clock
	CountdownInterval time.Duration
	IdentityHeader    string
	// Health reports store reachability for /healthz; nil means always healthy
	Health func(ctx context.Context) error
}

// SetupRouter configures all Gin routes for the application
func SetupRouter(deps Dependencies) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())          // recover from panics
	router.Use(RequestLoggerMiddleware) // custom request logging

	biddingHandler := biddinghandler.NewBiddingHandler(deps.Bidding, deps.Events, deps.Clock, deps.CountdownInterval)
	catalogHandler := cataloghandler.NewCatalogHandler(deps.Catalog)
	identity := RequireIdentity(deps.IdentityHeader)

	router.GET("/healthz", healthHandler(deps.Health))

	auctions := router.Group("/auctions")
	{
		auctions.GET("/:auction_id", biddingHandler.GetAuctionStateHandler)
		auctions.GET("/:auction_id/bids", biddingHandler.GetBidsByAuctionHandler)
		auctions.GET("/:auction_id/events", biddingHandler.StreamAuctionEventsHandler)
		auctions.POST("/:auction_id/bids", identity, biddingHandler.PlaceBidHandler)
		auctions.POST("/:auction_id/close", identity, biddingHandler.CloseAuctionHandler)
	}

	artworks := router.Group("/artworks")
	{
		artworks.POST("", identity, catalogHandler.SubmitArtworkHandler)
		artworks.GET("/:artwork_id", catalogHandler.GetArtworkHandler)
		artworks.POST("/:artwork_id/relist", identity, biddingHandler.RelistHandler)
	}

	router.GET("/gallery", catalogHandler.BrowseGalleryHandler)

	users := router.Group("/users")
	{
		users.GET("/:user_id/auctions", biddingHandler.GetAuctionsByUserHandler)
		users.GET("/:user_id/notifications", identity, biddingHandler.GetNotificationsHandler)
	}

	return router
}

func healthHandler(check func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			if err := check(c.Request.Context()); err != nil {
				utils.JSONRetryableError(c, http.StatusServiceUnavailable, err, "store unavailable", 1)
				utils.Warn("health check failed", map[string]any{"error": err.Error()})
				return
			}
		}
		utils.JSONResponse(c, http.StatusOK, gin.H{"ok": true}, "healthy")
	}
}
