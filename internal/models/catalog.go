package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ArtworkSubmission is what an owner sends to list a new artwork.
// Price applies to gallery mode; StartingPrice, ReservePrice, StartTime and
// Duration apply to auction mode.
type ArtworkSubmission struct {
	OwnerID     string
	Title       string
	Description string
	ArtistName  string
	ImageKey    string
	Category    string
	Medium      string
	Dimensions  string
	Year        int
	Mode        ListingMode

	Price decimal.Decimal

	StartingPrice decimal.Decimal
	ReservePrice  decimal.Decimal
	StartTime     time.Time // zero means now
	Duration      time.Duration
}

// GalleryQuery filters the gallery listing
type GalleryQuery struct {
	Search      string
	Category    string
	IncludeSold bool
}

// ArtworkView is an artwork with its image URL resolved and its auction, if any
type ArtworkView struct {
	Artwork   Artwork `json:"artwork"`
	ImageURL  string  `json:"image_url,omitempty"`
	AuctionID string  `json:"auction_id,omitempty"`
}
