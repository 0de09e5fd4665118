package models

import (
	"time"

	"art-marketplace/internal/countdown"

	"github.com/shopspring/decimal"
)

// BidSummary is computed from the bid ledger, never from the cached column
type BidSummary struct {
	TopBids  []Bid `json:"top_bids"`
	BidCount int   `json:"bid_count"`
	Leader   Bid   `json:"-"`
}

// HasBids reports whether the ledger holds any accepted bid
func (s BidSummary) HasBids() bool {
	return !s.Leader.IsZero()
}

// StatusAt derives the auction's state at now.
// A persisted terminal status always wins; otherwise the state follows the clock,
// and an ended auction is sold when its leading bid meets the reserve.
func (a Auction) StatusAt(now time.Time, summary BidSummary) AuctionStatus {
	if a.Status.Terminal() {
		return a.Status
	}
	switch {
	case now.Before(a.StartTime):
		return AuctionStatusScheduled
	case now.Before(a.EndTime):
		return AuctionStatusActive
	case summary.HasBids() && a.ReserveMet(summary.Leader.Amount):
		return AuctionStatusEndedSold
	default:
		return AuctionStatusEndedUnsold
	}
}

// ReserveMet reports whether amount satisfies the reserve price. A zero reserve is always met.
func (a Auction) ReserveMet(amount decimal.Decimal) bool {
	return a.ReservePrice.IsZero() || amount.GreaterThanOrEqual(a.ReservePrice)
}

// AuctionState is the read model served to viewers of an auction
type AuctionState struct {
	AuctionID     string              `json:"auction_id"`
	ArtworkID     string              `json:"artwork_id"`
	SellerID      string              `json:"seller_id"`
	StartingPrice decimal.Decimal     `json:"starting_price"`
	ReservePrice  decimal.Decimal     `json:"reserve_price"`
	ReserveMet    bool                `json:"reserve_met"`
	HighestBid    decimal.Decimal     `json:"highest_bid"`
	HighestBidder string              `json:"highest_bidder,omitempty"`
	BidCount      int                 `json:"bid_count"`
	TopBids       []Bid               `json:"top_bids"`
	StartTime     time.Time           `json:"start_time"`
	EndTime       time.Time           `json:"end_time"`
	Status        AuctionStatus       `json:"status"`
	Countdown     countdown.Countdown `json:"countdown"`
}

// BidReceipt is returned for an accepted bid
type BidReceipt struct {
	Bid             Bid             `json:"bid"`
	Accepted        bool            `json:"accepted"`
	NewHighest      decimal.Decimal `json:"new_highest"`
	PreviousHighest decimal.Decimal `json:"previous_highest"`
}

// RelistResult reports the outcome of moving an unsold artwork into the gallery
type RelistResult struct {
	Listed        bool         `json:"listed"`
	AlreadyListed bool         `json:"already_listed"`
	Entry         GalleryEntry `json:"entry"`
}
