package main

import (
	"time"

	model "art-marketplace/internal/models"
	"art-marketplace/internal/repository"

	"github.com/shopspring/decimal"
)

// seedListings adds demo artworks to the in-memory repo: two running auctions,
// one that has already ended without bids, and two gallery pieces
func seedListings(repo *repository.MemoryRepo, now time.Time) {
	auction := func(id, artworkID, seller string, start, reserve int64, startAt, endAt time.Time) *model.Auction {
		return &model.Auction{
			AuctionID:         id,
			ArtworkID:         artworkID,
			SellerID:          seller,
			StartingPrice:     decimal.NewFromInt(start),
			CurrentHighestBid: decimal.NewFromInt(start),
			ReservePrice:      decimal.NewFromInt(reserve),
			StartTime:         startAt,
			EndTime:           endAt,
			Status:            model.AuctionStatusActive,
			CreatedAt:         startAt,
			UpdatedAt:         startAt,
		}
	}
	gallery := func(artworkID string, price int64) *model.GalleryEntry {
		return &model.GalleryEntry{
			EntryID:   "gallery-" + artworkID,
			ArtworkID: artworkID,
			Price:     decimal.NewFromInt(price),
			ListedAt:  now,
		}
	}

	listings := []model.Listing{
		{
			Artwork: model.Artwork{ArtworkID: "art1", Title: "Harbour at Dusk", ArtistName: "Ada Painter", Category: "painting", Medium: "oil on canvas", Year: 2021, Price: decimal.NewFromInt(100), OwnerID: "seller1", ImageKey: "harbour-at-dusk.jpg"},
			Auction: auction("auction1", "art1", "seller1", 100, 0, now, now.Add(24*time.Hour)),
		},
		{
			Artwork: model.Artwork{ArtworkID: "art2", Title: "Quiet Forest", ArtistName: "Ben Carver", Category: "sculpture", Medium: "walnut", Year: 2019, Price: decimal.NewFromInt(250), OwnerID: "seller2", ImageKey: "quiet-forest.jpg"},
			Auction: auction("auction2", "art2", "seller2", 250, 400, now, now.Add(2*time.Hour)),
		},
		{
			Artwork: model.Artwork{ArtworkID: "art3", Title: "Morning Market", ArtistName: "Cy Harbor", Category: "photography", Year: 2023, Price: decimal.NewFromInt(80), OwnerID: "seller1", ImageKey: "morning-market.jpg"},
			Auction: auction("auction3", "art3", "seller1", 80, 0, now.Add(-48*time.Hour), now.Add(-time.Hour)),
		},
		{
			Artwork: model.Artwork{ArtworkID: "art4", Title: "Blue Study", ArtistName: "Ada Painter", Category: "painting", Medium: "watercolour", Year: 2022, Price: decimal.NewFromInt(120), OwnerID: "seller1", ImageKey: "blue-study.jpg"},
			Gallery: gallery("art4", 120),
		},
		{
			Artwork: model.Artwork{ArtworkID: "art5", Title: "City Lights", ArtistName: "Cy Harbor", Category: "photography", Year: 2024, Price: decimal.NewFromInt(60), OwnerID: "seller2", ImageKey: "city-lights.jpg"},
			Gallery: gallery("art5", 60),
		},
	}

	for _, l := range listings {
		l.Artwork.CreatedAt = now
		l.Artwork.UpdatedAt = now
		repo.AddListing(l)
	}
}
