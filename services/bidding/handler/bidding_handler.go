package handler

//go:generate mockgen -source=bidding_handler.go -destination=mock_bidding_handler.go -package=handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"art-marketplace/internal/clock"
	"art-marketplace/internal/countdown"
	model "art-marketplace/internal/models"
	"art-marketplace/internal/realtime"
	"art-marketplace/services/bidding/helpers"
	"art-marketplace/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

var errForeignNotifications = errors.New("caller does not match the requested user")

type BiddingServiceInterface interface {
	PlaceBid(ctx context.Context, auctionID, bidderID string, amount decimal.Decimal) (model.BidReceipt, error)
	GetAuctionState(ctx context.Context, auctionID string) (model.AuctionState, error)
	GetBidsForAuction(ctx context.Context, auctionID string) ([]model.Bid, error)
	CloseAuction(ctx context.Context, auctionID string) (model.AuctionState, error)
	RelistExpiredToGallery(ctx context.Context, artworkID, requesterID string) (model.RelistResult, error)
	GetAuctionsByUser(ctx context.Context, userID string) ([]model.Auction, error)
	GetNotifications(ctx context.Context, userID string) ([]model.Notification, error)
}

// EventSubscriber hands out per-auction event streams
type EventSubscriber interface {
	Subscribe(auctionID string) (<-chan realtime.Event, func(), error)
}

type BiddingHandler struct {
	service           BiddingServiceInterface
	events            EventSubscriber
	clock             clock.Clock
	countdownInterval time.Duration
}

func NewBiddingHandler(service BiddingServiceInterface, events EventSubscriber, clk clock.Clock, countdownInterval time.Duration) *BiddingHandler {
	return &BiddingHandler{
		service:           service,
		events:            events,
		clock:             clk,
		countdownInterval: countdownInterval,
	}
}

// PlaceBidHandler handles POST /auctions/:auction_id/bids
func (h *BiddingHandler) PlaceBidHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	bidderID := helpers.CallerID(c)

	var req helpers.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "PlaceBidHandler", err)
		return
	}

	receipt, err := h.service.PlaceBid(c.Request.Context(), auctionID, bidderID, *req.Amount)
	if err != nil {
		helpers.RespondError(c, "PlaceBidHandler", err, map[string]any{
			"auction_id": auctionID,
			"user_id":    bidderID,
			"amount":     req.Amount.String(),
		})
		return
	}

	bid := receipt.Bid
	resp := helpers.BidResponse{
		BidID:           bid.BidID,
		AuctionID:       bid.AuctionID,
		BidderID:        bid.BidderID,
		Amount:          bid.Amount,
		Accepted:        receipt.Accepted,
		NewHighest:      receipt.NewHighest,
		PreviousHighest: receipt.PreviousHighest,
		CreatedAt:       bid.CreatedAt.UTC().Format(time.RFC3339),
	}

	utils.JSONResponse(c, http.StatusCreated, resp, "bid placed successfully")
	helpers.LogSuccess("PlaceBidHandler", "bid placed successfully", map[string]any{
		"bid_id":     bid.BidID,
		"auction_id": auctionID,
		"user_id":    bidderID,
		"amount":     bid.Amount.String(),
	})
}

// GetAuctionStateHandler handles GET /auctions/:auction_id
func (h *BiddingHandler) GetAuctionStateHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	state, err := h.service.GetAuctionState(c.Request.Context(), auctionID)
	if err != nil {
		helpers.RespondError(c, "GetAuctionStateHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, state, "auction retrieved successfully")
}

// GetBidsByAuctionHandler handles GET /auctions/:auction_id/bids
func (h *BiddingHandler) GetBidsByAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	bids, err := h.service.GetBidsForAuction(c.Request.Context(), auctionID)
	if err != nil {
		helpers.RespondError(c, "GetBidsByAuctionHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	if bids == nil {
		bids = []model.Bid{}
	}

	utils.JSONResponse(c, http.StatusOK, bids, "bids retrieved successfully")
	helpers.LogSuccess("GetBidsByAuctionHandler", "bids retrieved successfully", map[string]any{
		"auction_id": auctionID,
		"count":      len(bids),
	})
}

// StreamAuctionEventsHandler handles GET /auctions/:auction_id/events.
// The stream opens with a "state" snapshot, then forwards bid_placed, outbid
// and auction_closed events plus a "countdown" event every interval until the
// auction ends. Clients re-read the auction on every event.
func (h *BiddingHandler) StreamAuctionEventsHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	ctx := c.Request.Context()

	state, err := h.service.GetAuctionState(ctx, auctionID)
	if err != nil {
		helpers.RespondError(c, "StreamAuctionEventsHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	events, unsubscribe, err := h.events.Subscribe(auctionID)
	if err != nil {
		helpers.RespondError(c, "StreamAuctionEventsHandler", err, map[string]any{"auction_id": auctionID})
		return
	}
	defer unsubscribe()

	ticks := countdown.Watch(ctx, h.clock, state.EndTime, h.countdownInterval)

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("state", state)

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(string(ev.Type), ev)
			return true
		case cd, ok := <-ticks:
			if !ok {
				// countdown finished; keep streaming events such as auction_closed
				ticks = nil
				return true
			}
			c.SSEvent("countdown", cd)
			return true
		}
	})

	utils.Debug("StreamAuctionEventsHandler: stream closed", map[string]any{"auction_id": auctionID})
}

// CloseAuctionHandler handles POST /auctions/:auction_id/close
func (h *BiddingHandler) CloseAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	state, err := h.service.CloseAuction(c.Request.Context(), auctionID)
	if err != nil {
		helpers.RespondError(c, "CloseAuctionHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, state, "auction closed")
	helpers.LogSuccess("CloseAuctionHandler", "auction closed", map[string]any{
		"auction_id": auctionID,
		"status":     state.Status,
		"winner_id":  state.HighestBidder,
	})
}

// RelistHandler handles POST /artworks/:artwork_id/relist
func (h *BiddingHandler) RelistHandler(c *gin.Context) {
	artworkID := c.Param("artwork_id")
	requesterID := helpers.CallerID(c)

	result, err := h.service.RelistExpiredToGallery(c.Request.Context(), artworkID, requesterID)
	if err != nil {
		helpers.RespondError(c, "RelistHandler", err, map[string]any{
			"artwork_id": artworkID,
			"user_id":    requesterID,
		})
		return
	}

	if result.AlreadyListed {
		utils.JSONResponse(c, http.StatusOK, result, "artwork is already listed in the gallery")
		return
	}

	utils.JSONResponse(c, http.StatusCreated, result, "artwork listed in the gallery")
	helpers.LogSuccess("RelistHandler", "artwork listed in the gallery", map[string]any{
		"artwork_id": artworkID,
		"entry_id":   result.Entry.EntryID,
	})
}

// GetAuctionsByUserHandler handles GET /users/:user_id/auctions
func (h *BiddingHandler) GetAuctionsByUserHandler(c *gin.Context) {
	userID := c.Param("user_id")
	auctions, err := h.service.GetAuctionsByUser(c.Request.Context(), userID)
	if err != nil {
		helpers.RespondError(c, "GetAuctionsByUserHandler", err, map[string]any{"user_id": userID})
		return
	}

	if auctions == nil {
		auctions = []model.Auction{}
	}

	utils.JSONResponse(c, http.StatusOK, auctions, "auctions retrieved successfully")
	helpers.LogSuccess("GetAuctionsByUserHandler", "auctions retrieved successfully", map[string]any{
		"user_id":        userID,
		"auctions_count": len(auctions),
	})
}

// GetNotificationsHandler handles GET /users/:user_id/notifications
func (h *BiddingHandler) GetNotificationsHandler(c *gin.Context) {
	userID := c.Param("user_id")
	if caller := helpers.CallerID(c); caller != userID {
		utils.JSONError(c, http.StatusForbidden, errForeignNotifications, "you can only read your own notifications")
		utils.Warn("GetNotificationsHandler: caller mismatch", map[string]any{"user_id": userID, "caller_id": caller})
		return
	}

	notifications, err := h.service.GetNotifications(c.Request.Context(), userID)
	if err != nil {
		helpers.RespondError(c, "GetNotificationsHandler", err, map[string]any{"user_id": userID})
		return
	}

	if notifications == nil {
		notifications = []model.Notification{}
	}

	utils.JSONResponse(c, http.StatusOK, notifications, "notifications retrieved successfully")
}
