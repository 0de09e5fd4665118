package bidding

import (
	"art-marketplace/internal/biddingerrors"
	"art-marketplace/internal/clock"
	"art-marketplace/internal/countdown"
	"art-marketplace/internal/models"
	"art-marketplace/internal/realtime"
	"art-marketplace/internal/repository"
	"art-marketplace/utils"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// DefaultTopBids is how many ranked bids GetAuctionState returns when unset
const DefaultTopBids = 5

// BiddingService defines the business logic for auction bidding.
// Every time comparison uses the service clock; client countdowns are never trusted.
type BiddingService struct {
	repo      repository.AuctionDB
	publisher realtime.Publisher
	clock     clock.Clock
	topN      int
}

// NewBiddingService creates a new BiddingService instance
func NewBiddingService(repo repository.AuctionDB, publisher realtime.Publisher, clk clock.Clock, topN int) *BiddingService {
	if topN <= 0 {
		topN = DefaultTopBids
	}
	return &BiddingService{
		repo:      repo,
		publisher: publisher,
		clock:     clk,
		topN:      topN,
	}
}

// PlaceBid validates and atomically records a bid. A bid that loses a race with a
// concurrent writer is reported as too low when it no longer beats the new highest bid,
// or as a conflict the caller may resubmit.
func (s *BiddingService) PlaceBid(ctx context.Context, auctionID, bidderID string, amount decimal.Decimal) (models.BidReceipt, error) {
	if err := validateBidInput(auctionID, bidderID, amount); err != nil {
		return models.BidReceipt{}, err
	}

	auction, err := s.repo.GetAuction(ctx, auctionID)
	if err != nil {
		return models.BidReceipt{}, fmt.Errorf("service: failed to load auction %s: %w", auctionID, err)
	}

	now := s.clock.Now()
	if bidderID == auction.SellerID {
		return models.BidReceipt{}, fmt.Errorf("service: %w - auction %s", biddingerrors.ErrSelfBid, auctionID)
	}
	if err := biddable(auction, now); err != nil {
		return models.BidReceipt{}, err
	}
	if !amount.GreaterThan(auction.CurrentHighestBid) {
		return models.BidReceipt{}, fmt.Errorf("service: %w", biddingerrors.NewBidTooLow(auction.CurrentHighestBid))
	}

	bid := models.Bid{
		BidID:     utils.GenerateID(),
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    amount,
		CreatedAt: now,
	}

	previous, err := s.repo.RecordBid(ctx, bid, now)
	if errors.Is(err, biddingerrors.ErrBidConflict) {
		return models.BidReceipt{}, s.reclassifyConflict(ctx, auctionID, amount, err)
	}
	if err != nil {
		return models.BidReceipt{}, fmt.Errorf("service: failed to record bid on auction %s by user %s: %w", auctionID, bidderID, err)
	}

	// the bid is committed; nothing below may turn it into a failure
	s.afterBidCommitted(context.WithoutCancel(ctx), bid, previous)

	previousHighest := auction.StartingPrice
	if !previous.IsZero() {
		previousHighest = previous.Amount
	}
	return models.BidReceipt{
		Bid:             bid,
		Accepted:        true,
		NewHighest:      amount,
		PreviousHighest: previousHighest,
	}, nil
}

// validateBidInput checks input validity before touching the store
func validateBidInput(auctionID, bidderID string, amount decimal.Decimal) error {
	if auctionID == "" || bidderID == "" {
		return fmt.Errorf("service: %w - missing auctionID or bidderID", biddingerrors.ErrInvalidBid)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("service: %w - bid amount must be positive", biddingerrors.ErrInvalidBid)
	}
	if !amount.Equal(amount.Round(2)) {
		return fmt.Errorf("service: %w - bid amount has more than two decimal places", biddingerrors.ErrInvalidBid)
	}
	if amount.GreaterThanOrEqual(models.MaxAmount) {
		return fmt.Errorf("service: %w - bid amount must be below %s", biddingerrors.ErrInvalidBid, models.MaxAmount.StringFixed(2))
	}
	return nil
}

// biddable reports why an auction cannot take bids at now, or nil
func biddable(auction models.Auction, now time.Time) error {
	switch {
	case auction.Status.Terminal() || !now.Before(auction.EndTime):
		return fmt.Errorf("service: %w - auction %s ended at %s", biddingerrors.ErrAuctionExpired, auction.AuctionID, auction.EndTime.UTC().Format(time.RFC3339))
	case now.Before(auction.StartTime):
		return fmt.Errorf("service: %w - auction %s opens at %s", biddingerrors.ErrAuctionNotStarted, auction.AuctionID, auction.StartTime.UTC().Format(time.RFC3339))
	}
	return nil
}

// reclassifyConflict re-reads the auction after a lost conditional write
func (s *BiddingService) reclassifyConflict(ctx context.Context, auctionID string, amount decimal.Decimal, conflict error) error {
	auction, err := s.repo.GetAuction(ctx, auctionID)
	if err != nil {
		return fmt.Errorf("service: failed to reload auction %s: %w", auctionID, err)
	}
	if err := biddable(auction, s.clock.Now()); err != nil {
		return err
	}
	if !amount.GreaterThan(auction.CurrentHighestBid) {
		return fmt.Errorf("service: %w", biddingerrors.NewBidTooLow(auction.CurrentHighestBid))
	}
	return fmt.Errorf("service: bid on auction %s not recorded: %w", auctionID, conflict)
}

func (s *BiddingService) afterBidCommitted(ctx context.Context, bid models.Bid, previous models.Bid) {
	s.publish(ctx, realtime.Event{
		ID:        string(realtime.EventBidPlaced) + ":" + bid.BidID,
		Type:      realtime.EventBidPlaced,
		AuctionID: bid.AuctionID,
		UserID:    bid.BidderID,
		BidID:     bid.BidID,
		Amount:    bid.Amount,
		At:        bid.CreatedAt,
	})

	if previous.IsZero() || previous.BidderID == bid.BidderID {
		return
	}

	s.notify(ctx, models.Notification{
		UserID:    previous.BidderID,
		Kind:      models.NotificationOutbid,
		AuctionID: bid.AuctionID,
		Message: fmt.Sprintf("You have been outbid: the highest bid is now %s (your bid was %s)",
			bid.Amount.StringFixed(2), previous.Amount.StringFixed(2)),
		CreatedAt: bid.CreatedAt,
	})
	s.publish(ctx, realtime.Event{
		ID:        string(realtime.EventOutbid) + ":" + bid.BidID,
		Type:      realtime.EventOutbid,
		AuctionID: bid.AuctionID,
		UserID:    previous.BidderID,
		BidID:     bid.BidID,
		Amount:    bid.Amount,
		At:        bid.CreatedAt,
	})
}

func (s *BiddingService) publish(ctx context.Context, event realtime.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		utils.Warn("service: failed to publish auction event", map[string]any{
			"event_id":   event.ID,
			"auction_id": event.AuctionID,
			"error":      err.Error(),
		})
	}
}

func (s *BiddingService) notify(ctx context.Context, n models.Notification) {
	n.NotificationID = utils.GenerateID()
	if err := s.repo.AddNotification(ctx, n); err != nil {
		utils.Warn("service: failed to store notification", map[string]any{
			"user_id":    n.UserID,
			"kind":       n.Kind,
			"auction_id": n.AuctionID,
			"error":      err.Error(),
		})
	}
}

// GetAuctionState returns the auction as viewers see it. The highest bid is
// recomputed from the ledger, and the status is derived from the service clock.
func (s *BiddingService) GetAuctionState(ctx context.Context, auctionID string) (models.AuctionState, error) {
	if auctionID == "" {
		return models.AuctionState{}, fmt.Errorf("service: %w - empty auction ID", biddingerrors.ErrInvalidBid)
	}

	auction, summary, err := s.load(ctx, auctionID)
	if err != nil {
		return models.AuctionState{}, err
	}
	return s.stateOf(auction, summary, s.clock.Now()), nil
}

func (s *BiddingService) load(ctx context.Context, auctionID string) (models.Auction, models.BidSummary, error) {
	var (
		auction models.Auction
		summary models.BidSummary
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		auction, err = s.repo.GetAuction(gctx, auctionID)
		return err
	})
	g.Go(func() error {
		var err error
		summary, err = s.repo.GetBidSummary(gctx, auctionID, s.topN)
		return err
	})
	if err := g.Wait(); err != nil {
		return models.Auction{}, models.BidSummary{}, fmt.Errorf("service: failed to load auction %s: %w", auctionID, err)
	}
	return auction, summary, nil
}

func (s *BiddingService) stateOf(auction models.Auction, summary models.BidSummary, now time.Time) models.AuctionState {
	state := models.AuctionState{
		AuctionID:     auction.AuctionID,
		ArtworkID:     auction.ArtworkID,
		SellerID:      auction.SellerID,
		StartingPrice: auction.StartingPrice,
		ReservePrice:  auction.ReservePrice,
		HighestBid:    auction.StartingPrice,
		BidCount:      summary.BidCount,
		TopBids:       summary.TopBids,
		StartTime:     auction.StartTime,
		EndTime:       auction.EndTime,
		Status:        auction.StatusAt(now, summary),
		Countdown:     countdown.Remaining(auction.EndTime, now),
	}
	if summary.HasBids() {
		state.HighestBid = summary.Leader.Amount
		state.HighestBidder = summary.Leader.BidderID
		state.ReserveMet = auction.ReserveMet(summary.Leader.Amount)
	}
	if state.TopBids == nil {
		state.TopBids = []models.Bid{}
	}
	return state
}

// RelistExpiredToGallery moves the artwork of an expired, unsold auction into the
// gallery. Repeating the call returns the existing entry with AlreadyListed set.
func (s *BiddingService) RelistExpiredToGallery(ctx context.Context, artworkID, requesterID string) (models.RelistResult, error) {
	if artworkID == "" || requesterID == "" {
		return models.RelistResult{}, fmt.Errorf("service: %w - missing artworkID or requesterID", biddingerrors.ErrInvalidListing)
	}

	artwork, err := s.repo.GetArtwork(ctx, artworkID)
	if err != nil {
		return models.RelistResult{}, fmt.Errorf("service: failed to load artwork %s: %w", artworkID, err)
	}
	if artwork.OwnerID != requesterID {
		return models.RelistResult{}, fmt.Errorf("service: %w - artwork %s", biddingerrors.ErrNotOwner, artworkID)
	}
	if artwork.Sold {
		return models.RelistResult{}, fmt.Errorf("service: %w - artwork %s", biddingerrors.ErrArtworkSold, artworkID)
	}

	auction, err := s.repo.GetAuctionByArtwork(ctx, artworkID)
	if err != nil {
		return models.RelistResult{}, fmt.Errorf("service: failed to load auction for artwork %s: %w", artworkID, err)
	}
	summary, err := s.repo.GetBidSummary(ctx, auction.AuctionID, 1)
	if err != nil {
		return models.RelistResult{}, fmt.Errorf("service: failed to load bids for auction %s: %w", auction.AuctionID, err)
	}

	now := s.clock.Now()
	switch auction.StatusAt(now, summary) {
	case models.AuctionStatusScheduled, models.AuctionStatusActive:
		return models.RelistResult{}, fmt.Errorf("service: %w - auction %s ends at %s", biddingerrors.ErrAuctionNotEnded, auction.AuctionID, auction.EndTime.UTC().Format(time.RFC3339))
	case models.AuctionStatusEndedSold:
		return models.RelistResult{}, fmt.Errorf("service: %w - auction %s has a winning bid", biddingerrors.ErrArtworkSold, auction.AuctionID)
	}

	entry := models.GalleryEntry{
		EntryID:   utils.GenerateID(),
		ArtworkID: artworkID,
		Price:     artwork.Price,
		ListedAt:  now,
	}
	listed, created, err := s.repo.RelistToGallery(ctx, entry, auction.AuctionID)
	if err != nil {
		return models.RelistResult{}, fmt.Errorf("service: failed to relist artwork %s: %w", artworkID, err)
	}

	return models.RelistResult{Listed: created, AlreadyListed: !created, Entry: listed}, nil
}

// CloseAuction settles an auction whose end time has passed: the derived terminal
// status is persisted, the winner and seller are notified and viewers are told to re-read.
// Closing a settled auction returns its state unchanged.
func (s *BiddingService) CloseAuction(ctx context.Context, auctionID string) (models.AuctionState, error) {
	if auctionID == "" {
		return models.AuctionState{}, fmt.Errorf("service: %w - empty auction ID", biddingerrors.ErrInvalidBid)
	}

	auction, summary, err := s.load(ctx, auctionID)
	if err != nil {
		return models.AuctionState{}, err
	}

	now := s.clock.Now()
	status := auction.StatusAt(now, summary)
	if !status.Terminal() {
		return models.AuctionState{}, fmt.Errorf("service: %w - auction %s ends at %s", biddingerrors.ErrAuctionNotEnded, auctionID, auction.EndTime.UTC().Format(time.RFC3339))
	}

	winnerID := ""
	if status == models.AuctionStatusEndedSold {
		winnerID = summary.Leader.BidderID
	}

	changed, err := s.repo.CloseAuction(ctx, auctionID, status, winnerID, now)
	if err != nil {
		return models.AuctionState{}, fmt.Errorf("service: failed to close auction %s: %w", auctionID, err)
	}

	if changed {
		s.afterAuctionClosed(context.WithoutCancel(ctx), auction, status, summary, now)
		auction.Status = status
		auction.WinnerID = winnerID
	}
	return s.stateOf(auction, summary, now), nil
}

func (s *BiddingService) afterAuctionClosed(ctx context.Context, auction models.Auction, status models.AuctionStatus, summary models.BidSummary, now time.Time) {
	event := realtime.Event{
		ID:        string(realtime.EventAuctionClosed) + ":" + auction.AuctionID,
		Type:      realtime.EventAuctionClosed,
		AuctionID: auction.AuctionID,
		Amount:    auction.StartingPrice,
		At:        now,
	}

	if status == models.AuctionStatusEndedSold {
		leader := summary.Leader
		event.UserID = leader.BidderID
		event.BidID = leader.BidID
		event.Amount = leader.Amount

		s.notify(ctx, models.Notification{
			UserID:    leader.BidderID,
			Kind:      models.NotificationAuctionWon,
			AuctionID: auction.AuctionID,
			Message:   fmt.Sprintf("You won the auction with a bid of %s", leader.Amount.StringFixed(2)),
			CreatedAt: now,
		})
		s.notify(ctx, models.Notification{
			UserID:    auction.SellerID,
			Kind:      models.NotificationItemSold,
			AuctionID: auction.AuctionID,
			Message:   fmt.Sprintf("Your artwork sold at auction for %s", leader.Amount.StringFixed(2)),
			CreatedAt: now,
		})
	}

	s.publish(ctx, event)
}

// GetBidsForAuction returns the full ledger of an auction, ranked
func (s *BiddingService) GetBidsForAuction(ctx context.Context, auctionID string) ([]models.Bid, error) {
	if auctionID == "" {
		return nil, fmt.Errorf("service: %w - empty auction ID", biddingerrors.ErrInvalidBid)
	}

	bids, err := s.repo.GetBidsByAuction(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get bids for auction %s: %w", auctionID, err)
	}
	return bids, nil
}

// GetAuctionsByUser returns all auctions a user has placed bids on
func (s *BiddingService) GetAuctionsByUser(ctx context.Context, userID string) ([]models.Auction, error) {
	if userID == "" {
		return nil, fmt.Errorf("service: %w - empty user ID", biddingerrors.ErrInvalidBid)
	}

	auctions, err := s.repo.GetAuctionsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get auctions for user %s: %w", userID, err)
	}
	return auctions, nil
}

// GetNotifications returns a user's notifications, newest first
func (s *BiddingService) GetNotifications(ctx context.Context, userID string) ([]models.Notification, error) {
	if userID == "" {
		return nil, fmt.Errorf("service: %w - empty user ID", biddingerrors.ErrInvalidBid)
	}

	notifications, err := s.repo.GetNotifications(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get notifications for user %s: %w", userID, err)
	}
	return notifications, nil
}
