package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

func init() {
	// amounts travel as JSON numbers, matching what browsers send
	decimal.MarshalJSONWithoutQuotes = true
}

// MaxAmount is the exclusive upper bound of any price or bid; amounts are stored as numeric(14,2)
var MaxAmount = decimal.New(1, 12)

// AuctionStatus is the lifecycle state of an auction
type AuctionStatus string

const (
	AuctionStatusScheduled   AuctionStatus = "scheduled"
	AuctionStatusActive      AuctionStatus = "active"
	AuctionStatusEndedUnsold AuctionStatus = "ended_unsold"
	AuctionStatusEndedSold   AuctionStatus = "ended_sold"
)

// Terminal reports whether no further bids can ever be accepted in this status
func (s AuctionStatus) Terminal() bool {
	return s == AuctionStatusEndedSold || s == AuctionStatusEndedUnsold
}

// ListingMode selects where a newly submitted artwork is offered
type ListingMode string

const (
	ListingModeGallery ListingMode = "gallery"
	ListingModeAuction ListingMode = "auction"
)

// User represents a participant in the marketplace
type User struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// Artwork represents a piece offered in the gallery or at auction
type Artwork struct {
	bun.BaseModel `bun:"table:artworks,alias:aw" json:"-"`

	ArtworkID   string          `bun:"id,pk" json:"artwork_id"`
	Title       string          `bun:"title,notnull" json:"title"`
	Description string          `bun:"description" json:"description"`
	ImageKey    string          `bun:"image_key" json:"image_key"`
	Category    string          `bun:"category" json:"category"`
	Medium      string          `bun:"medium" json:"medium"`
	Dimensions  string          `bun:"dimensions" json:"dimensions"`
	Year        int             `bun:"year" json:"year,omitempty"`
	ArtistName  string          `bun:"artist_name,notnull" json:"artist_name"`
	Price       decimal.Decimal `bun:"price,type:numeric(14,2),notnull" json:"price"`
	OwnerID     string          `bun:"owner_id,notnull" json:"owner_id"`
	Sold        bool            `bun:"sold,notnull,default:false" json:"sold"`
	CreatedAt   time.Time       `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt   time.Time       `bun:"updated_at,notnull" json:"updated_at"`
}

// Auction is a time-bounded sale of one artwork.
// CurrentHighestBid is maintained in the same transaction as every accepted bid
// and starts at StartingPrice.
type Auction struct {
	bun.BaseModel `bun:"table:auctions,alias:au" json:"-"`

	AuctionID         string          `bun:"id,pk" json:"auction_id"`
	ArtworkID         string          `bun:"artwork_id,notnull,unique" json:"artwork_id"`
	SellerID          string          `bun:"seller_id,notnull" json:"seller_id"`
	StartingPrice     decimal.Decimal `bun:"starting_price,type:numeric(14,2),notnull" json:"starting_price"`
	CurrentHighestBid decimal.Decimal `bun:"current_highest_bid,type:numeric(14,2),notnull" json:"current_highest_bid"`
	ReservePrice      decimal.Decimal `bun:"reserve_price,type:numeric(14,2),notnull" json:"reserve_price"`
	BidCount          int             `bun:"bid_count,notnull,default:0" json:"bid_count"`
	StartTime         time.Time       `bun:"start_time,notnull" json:"start_time"`
	EndTime           time.Time       `bun:"end_time,notnull" json:"end_time"`
	Status            AuctionStatus   `bun:"status,notnull" json:"status"`
	WinnerID          string          `bun:"winner_id" json:"winner_id,omitempty"`
	CreatedAt         time.Time       `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt         time.Time       `bun:"updated_at,notnull" json:"updated_at"`
}

// Bid is an accepted entry in an auction's append-only ledger
type Bid struct {
	bun.BaseModel `bun:"table:bids,alias:b" json:"-"`

	BidID     string          `bun:"id,pk" json:"bid_id"`
	AuctionID string          `bun:"auction_id,notnull" json:"auction_id"`
	BidderID  string          `bun:"bidder_id,notnull" json:"bidder_id"`
	Amount    decimal.Decimal `bun:"amount,type:numeric(14,2),notnull" json:"amount"`
	CreatedAt time.Time       `bun:"created_at,notnull" json:"created_at"`
}

// IsZero reports whether b is the empty bid
func (b Bid) IsZero() bool {
	return b.BidID == ""
}

// Outranks orders bids by amount descending, earliest first on ties
func (b Bid) Outranks(other Bid) bool {
	if !b.Amount.Equal(other.Amount) {
		return b.Amount.GreaterThan(other.Amount)
	}
	return b.CreatedAt.Before(other.CreatedAt)
}

// GalleryEntry lists an artwork in the fixed-price gallery catalog
type GalleryEntry struct {
	bun.BaseModel `bun:"table:gallery_entries,alias:ge" json:"-"`

	EntryID   string          `bun:"id,pk" json:"entry_id"`
	ArtworkID string          `bun:"artwork_id,notnull,unique" json:"artwork_id"`
	Price     decimal.Decimal `bun:"price,type:numeric(14,2),notnull" json:"price"`
	ListedAt  time.Time       `bun:"listed_at,notnull" json:"listed_at"`
}

// NotificationKind tells the recipient what happened
type NotificationKind string

const (
	NotificationOutbid     NotificationKind = "outbid"
	NotificationAuctionWon NotificationKind = "auction_won"
	NotificationItemSold   NotificationKind = "item_sold"
)

// Notification is a message addressed to one user
type Notification struct {
	bun.BaseModel `bun:"table:notifications,alias:n" json:"-"`

	NotificationID string           `bun:"id,pk" json:"notification_id"`
	UserID         string           `bun:"user_id,notnull" json:"user_id"`
	Kind           NotificationKind `bun:"kind,notnull" json:"kind"`
	AuctionID      string           `bun:"auction_id" json:"auction_id,omitempty"`
	Message        string           `bun:"message,notnull" json:"message"`
	CreatedAt      time.Time        `bun:"created_at,notnull" json:"created_at"`
}

// Listing is an artwork together with the offer it is submitted under.
// Exactly one of Gallery or Auction is set.
type Listing struct {
	Artwork Artwork       `json:"artwork"`
	Gallery *GalleryEntry `json:"gallery,omitempty"`
	Auction *Auction      `json:"auction,omitempty"`
}

// GalleryItem is a gallery entry joined with its artwork
type GalleryItem struct {
	Entry    GalleryEntry `json:"entry"`
	Artwork  Artwork      `json:"artwork"`
	ImageURL string       `json:"image_url,omitempty"`
}
