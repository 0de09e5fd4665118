package helpers

import "github.com/shopspring/decimal"

// Request/Response DTOs
type PlaceBidRequest struct {
	Amount *decimal.Decimal `json:"amount" binding:"required"`
}

type BidResponse struct {
	BidID           string          `json:"bid_id"`
	AuctionID       string          `json:"auction_id"`
	BidderID        string          `json:"bidder_id"`
	Amount          decimal.Decimal `json:"amount"`
	Accepted        bool            `json:"accepted"`
	NewHighest      decimal.Decimal `json:"new_highest"`
	PreviousHighest decimal.Decimal `json:"previous_highest"`
	CreatedAt       string          `json:"created_at"`
}
