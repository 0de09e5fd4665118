package repository

//go:generate mockgen -source=repository.go -destination=mock_repository.go -package=repository

import (
	"art-marketplace/internal/biddingerrors"
	model "art-marketplace/internal/models"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// AuctionDB defines the storage interface for the marketplace
type AuctionDB interface {
	CreateListing(ctx context.Context, listing model.Listing) error
	GetArtwork(ctx context.Context, artworkID string) (model.Artwork, error)
	GetAuction(ctx context.Context, auctionID string) (model.Auction, error)
	GetAuctionByArtwork(ctx context.Context, artworkID string) (model.Auction, error)

	// RecordBid atomically appends bid to the ledger and raises the auction's
	// highest bid, provided the amount still beats it and the auction is open at now:
	// not yet settled and now within [start, end). A stored scheduled or active status
	// is only a hint; the times decide.
	// It returns the bid that led before this one (zero if none). When the
	// conditions no longer hold it returns ErrBidConflict and persists nothing.
	RecordBid(ctx context.Context, bid model.Bid, now time.Time) (model.Bid, error)
	GetBidsByAuction(ctx context.Context, auctionID string) ([]model.Bid, error)
	GetBidSummary(ctx context.Context, auctionID string, topN int) (model.BidSummary, error)
	GetAuctionsByUser(ctx context.Context, userID string) ([]model.Auction, error)

	// CloseAuction persists a terminal status and marks the artwork sold when status is ended_sold.
	// Closing an already closed auction is a no-op that reports changed=false.
	CloseAuction(ctx context.Context, auctionID string, status model.AuctionStatus, winnerID string, now time.Time) (bool, error)
	// RelistToGallery inserts entry unless the artwork is already in the gallery
	// and marks the auction ended_unsold. created is false when an entry existed.
	RelistToGallery(ctx context.Context, entry model.GalleryEntry, auctionID string) (model.GalleryEntry, bool, error)
	ListGallery(ctx context.Context) ([]model.GalleryItem, error)

	AddNotification(ctx context.Context, n model.Notification) error
	GetNotifications(ctx context.Context, userID string) ([]model.Notification, error)
}

// MemoryRepo is a concurrency-safe in-memory implementation of AuctionDB
type MemoryRepo struct {
	mu             sync.RWMutex
	artworks       map[string]model.Artwork        // key: artworkID
	auctions       map[string]model.Auction        // key: auctionID
	auctionByArt   map[string]string               // key: artworkID -> value: auctionID
	bids           map[string][]model.Bid          // key: auctionID -> value: ledger in insertion order
	userAuctions   map[string][]string             // key: userID -> value: auctionIDs the user has bid on
	gallery        map[string]model.GalleryEntry   // key: artworkID
	notifications  map[string][]model.Notification // key: userID
	galleryInOrder []string                        // artworkIDs in listing order
}

// NewMemoryRepo creates a new in-memory repository instance
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		artworks:      make(map[string]model.Artwork),
		auctions:      make(map[string]model.Auction),
		auctionByArt:  make(map[string]string),
		bids:          make(map[string][]model.Bid),
		userAuctions:  make(map[string][]string),
		gallery:       make(map[string]model.GalleryEntry),
		notifications: make(map[string][]model.Notification),
	}
}

// CreateListing stores an artwork together with its gallery entry or auction
func (r *MemoryRepo) CreateListing(_ context.Context, listing model.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	art := listing.Artwork
	if art.ArtworkID == "" {
		return fmt.Errorf("create listing: %w - missing artwork id", biddingerrors.ErrInvalidListing)
	}
	if _, exists := r.artworks[art.ArtworkID]; exists {
		return fmt.Errorf("create listing %s: %w - artwork already exists", art.ArtworkID, biddingerrors.ErrInvalidListing)
	}

	if a := listing.Auction; a != nil {
		if _, exists := r.auctions[a.AuctionID]; exists {
			return fmt.Errorf("create listing %s: %w - auction already exists", art.ArtworkID, biddingerrors.ErrInvalidListing)
		}
		r.auctions[a.AuctionID] = *a
		r.auctionByArt[art.ArtworkID] = a.AuctionID
	}
	if g := listing.Gallery; g != nil {
		r.gallery[art.ArtworkID] = *g
		r.galleryInOrder = append(r.galleryInOrder, art.ArtworkID)
	}
	r.artworks[art.ArtworkID] = art

	return nil
}

// GetArtwork returns an artwork by id
func (r *MemoryRepo) GetArtwork(_ context.Context, artworkID string) (model.Artwork, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	art, ok := r.artworks[artworkID]
	if !ok {
		return model.Artwork{}, fmt.Errorf("get artwork %s: %w", artworkID, biddingerrors.ErrArtworkNotFound)
	}
	return art, nil
}

// GetAuction returns an auction by id
func (r *MemoryRepo) GetAuction(_ context.Context, auctionID string) (model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.auctions[auctionID]
	if !ok {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}
	return a, nil
}

// GetAuctionByArtwork returns the auction an artwork was submitted to
func (r *MemoryRepo) GetAuctionByArtwork(_ context.Context, artworkID string) (model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.auctionByArt[artworkID]
	if !ok {
		return model.Auction{}, fmt.Errorf("get auction for artwork %s: %w", artworkID, biddingerrors.ErrAuctionNotFound)
	}
	return r.auctions[id], nil
}

// RecordBid checks and applies a bid under the write lock so no other bid can interleave
func (r *MemoryRepo) RecordBid(_ context.Context, bid model.Bid, now time.Time) (model.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.auctions[bid.AuctionID]
	if !ok {
		return model.Bid{}, fmt.Errorf("record bid for auction %s: %w", bid.AuctionID, biddingerrors.ErrAuctionNotFound)
	}
	if a.Status.Terminal() ||
		now.Before(a.StartTime) || !now.Before(a.EndTime) ||
		!bid.Amount.GreaterThan(a.CurrentHighestBid) {
		return model.Bid{}, fmt.Errorf("record bid for auction %s: %w", bid.AuctionID, biddingerrors.ErrBidConflict)
	}

	previous := leader(r.bids[bid.AuctionID])

	a.CurrentHighestBid = bid.Amount
	a.BidCount++
	a.UpdatedAt = now
	r.auctions[a.AuctionID] = a
	r.bids[bid.AuctionID] = append(r.bids[bid.AuctionID], bid)

	for _, id := range r.userAuctions[bid.BidderID] {
		if id == bid.AuctionID {
			return previous, nil
		}
	}
	r.userAuctions[bid.BidderID] = append(r.userAuctions[bid.BidderID], bid.AuctionID)

	return previous, nil
}

// GetBidsByAuction returns the ledger ranked by amount, earliest first on ties
func (r *MemoryRepo) GetBidsByAuction(_ context.Context, auctionID string) ([]model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.auctions[auctionID]; !ok {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}
	return ranked(r.bids[auctionID]), nil
}

// GetBidSummary derives the top bids, count and leader from the ledger
func (r *MemoryRepo) GetBidSummary(_ context.Context, auctionID string, topN int) (model.BidSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.auctions[auctionID]; !ok {
		return model.BidSummary{}, fmt.Errorf("get bid summary for auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}

	all := ranked(r.bids[auctionID])
	summary := model.BidSummary{BidCount: len(all), TopBids: all}
	if len(all) > 0 {
		summary.Leader = all[0]
	}
	if topN > 0 && len(all) > topN {
		summary.TopBids = all[:topN]
	}
	return summary, nil
}

// GetAuctionsByUser returns all auctions a user has bid on
func (r *MemoryRepo) GetAuctionsByUser(_ context.Context, userID string) ([]model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.userAuctions[userID]
	auctions := make([]model.Auction, 0, len(ids))
	for _, id := range ids {
		if a, exists := r.auctions[id]; exists {
			auctions = append(auctions, a)
		}
	}
	return auctions, nil
}

// CloseAuction persists the terminal status of an ended auction
func (r *MemoryRepo) CloseAuction(_ context.Context, auctionID string, status model.AuctionStatus, winnerID string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.auctions[auctionID]
	if !ok {
		return false, fmt.Errorf("close auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}
	if a.Status.Terminal() {
		return false, nil
	}

	a.Status = status
	a.WinnerID = winnerID
	a.UpdatedAt = now
	r.auctions[auctionID] = a

	if status == model.AuctionStatusEndedSold {
		art := r.artworks[a.ArtworkID]
		art.Sold = true
		art.UpdatedAt = now
		r.artworks[a.ArtworkID] = art
	}
	return true, nil
}

// RelistToGallery adds the artwork to the gallery once, and closes its auction as unsold
func (r *MemoryRepo) RelistToGallery(_ context.Context, entry model.GalleryEntry, auctionID string) (model.GalleryEntry, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.auctions[auctionID]
	if !ok {
		return model.GalleryEntry{}, false, fmt.Errorf("relist auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}
	if a.Status == model.AuctionStatusEndedSold {
		return model.GalleryEntry{}, false, fmt.Errorf("relist auction %s: %w", auctionID, biddingerrors.ErrArtworkSold)
	}
	if !a.Status.Terminal() {
		a.Status = model.AuctionStatusEndedUnsold
		a.UpdatedAt = entry.ListedAt
		r.auctions[auctionID] = a
	}

	if existing, exists := r.gallery[entry.ArtworkID]; exists {
		return existing, false, nil
	}
	r.gallery[entry.ArtworkID] = entry
	r.galleryInOrder = append(r.galleryInOrder, entry.ArtworkID)
	return entry, true, nil
}

// ListGallery returns gallery entries joined with their artworks in listing order
func (r *MemoryRepo) ListGallery(_ context.Context) ([]model.GalleryItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]model.GalleryItem, 0, len(r.galleryInOrder))
	for _, artworkID := range r.galleryInOrder {
		items = append(items, model.GalleryItem{
			Entry:   r.gallery[artworkID],
			Artwork: r.artworks[artworkID],
		})
	}
	return items, nil
}

// AddNotification stores a notification for its recipient
func (r *MemoryRepo) AddNotification(_ context.Context, n model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.notifications[n.UserID] = append(r.notifications[n.UserID], n)
	return nil
}

// GetNotifications returns a user's notifications, newest first
func (r *MemoryRepo) GetNotifications(_ context.Context, userID string) ([]model.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.notifications[userID]
	out := make([]model.Notification, len(stored))
	for i, n := range stored {
		out[len(stored)-1-i] = n
	}
	return out, nil
}

// AddListing seeds a listing without going through the catalog service. This method is intended for tests and demo data.
func (r *MemoryRepo) AddListing(listing model.Listing) {
	if err := r.CreateListing(context.Background(), listing); err != nil {
		panic(err)
	}
}

func ranked(bids []model.Bid) []model.Bid {
	out := append([]model.Bid(nil), bids...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Outranks(out[j]) })
	return out
}

func leader(bids []model.Bid) model.Bid {
	var best model.Bid
	for _, b := range bids {
		if best.IsZero() || b.Outranks(best) {
			best = b
		}
	}
	return best
}
