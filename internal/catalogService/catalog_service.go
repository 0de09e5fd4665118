package catalog

import (
	"art-marketplace/internal/biddingerrors"
	"art-marketplace/internal/clock"
	"art-marketplace/internal/config"
	"art-marketplace/internal/media"
	"art-marketplace/internal/models"
	"art-marketplace/internal/repository"
	"art-marketplace/utils"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sahilm/fuzzy"
	"github.com/shopspring/decimal"
)

const (
	maxTitleLength = 200
	minYear        = 1000
	// a start time this close to now is treated as "start immediately"
	startTimeSkew = time.Minute
)

// CatalogService lists new artworks and serves the gallery
type CatalogService struct {
	repo  repository.AuctionDB
	media media.Resolver
	clock clock.Clock
	rules config.AuctionConfig
}

// NewCatalogService creates a new CatalogService instance
func NewCatalogService(repo repository.AuctionDB, resolver media.Resolver, clk clock.Clock, rules config.AuctionConfig) *CatalogService {
	return &CatalogService{
		repo:  repo,
		media: resolver,
		clock: clk,
		rules: rules,
	}
}

// SubmitArtwork validates a submission and stores the artwork with its gallery
// entry or auction in one unit. All violated rules are reported together.
func (s *CatalogService) SubmitArtwork(ctx context.Context, in models.ArtworkSubmission) (models.Listing, error) {
	now := s.clock.Now()

	in.Title = strings.TrimSpace(in.Title)
	in.ArtistName = strings.TrimSpace(in.ArtistName)
	in.Category = strings.ToLower(strings.TrimSpace(in.Category))

	problems := s.checkArtwork(in, now)
	switch in.Mode {
	case models.ListingModeGallery:
		problems = append(problems, s.checkGallery(in)...)
	case models.ListingModeAuction:
		problems = append(problems, s.checkAuction(in, now)...)
	default:
		problems = append(problems, fmt.Sprintf("listing mode must be %q or %q", models.ListingModeGallery, models.ListingModeAuction))
	}
	if len(problems) > 0 {
		return models.Listing{}, fmt.Errorf("service: %w - %s", biddingerrors.ErrInvalidListing, strings.Join(problems, "; "))
	}

	listing := models.Listing{Artwork: models.Artwork{
		ArtworkID:   utils.GenerateID(),
		Title:       in.Title,
		Description: in.Description,
		ImageKey:    in.ImageKey,
		Category:    in.Category,
		Medium:      in.Medium,
		Dimensions:  in.Dimensions,
		Year:        in.Year,
		ArtistName:  in.ArtistName,
		OwnerID:     in.OwnerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}}

	if in.Mode == models.ListingModeGallery {
		listing.Artwork.Price = in.Price
		listing.Gallery = &models.GalleryEntry{
			EntryID:   utils.GenerateID(),
			ArtworkID: listing.Artwork.ArtworkID,
			Price:     in.Price,
			ListedAt:  now,
		}
	} else {
		start := in.StartTime
		if start.IsZero() || start.Before(now) {
			start = now
		}
		status := models.AuctionStatusScheduled
		if !start.After(now) {
			status = models.AuctionStatusActive
		}
		listing.Artwork.Price = in.StartingPrice
		listing.Auction = &models.Auction{
			AuctionID:         utils.GenerateID(),
			ArtworkID:         listing.Artwork.ArtworkID,
			SellerID:          in.OwnerID,
			StartingPrice:     in.StartingPrice,
			CurrentHighestBid: in.StartingPrice,
			ReservePrice:      in.ReservePrice,
			StartTime:         start,
			EndTime:           start.Add(in.Duration),
			Status:            status,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
	}

	if err := s.repo.CreateListing(ctx, listing); err != nil {
		return models.Listing{}, fmt.Errorf("service: failed to create listing: %w", err)
	}
	return listing, nil
}

func (s *CatalogService) checkArtwork(in models.ArtworkSubmission, now time.Time) []string {
	var problems []string
	if in.OwnerID == "" {
		problems = append(problems, "owner is required")
	}
	if in.Title == "" {
		problems = append(problems, "title is required")
	} else if utf8.RuneCountInString(in.Title) > maxTitleLength {
		problems = append(problems, fmt.Sprintf("title must be at most %d characters", maxTitleLength))
	}
	if in.ArtistName == "" {
		problems = append(problems, "artist name is required")
	}
	if in.Year != 0 && (in.Year < minYear || in.Year > now.Year()) {
		problems = append(problems, fmt.Sprintf("year must be between %d and %d", minYear, now.Year()))
	}
	return problems
}

func (s *CatalogService) checkGallery(in models.ArtworkSubmission) []string {
	return checkPrice("price", in.Price, s.rules.MinPrice)
}

func (s *CatalogService) checkAuction(in models.ArtworkSubmission, now time.Time) []string {
	problems := checkPrice("starting price", in.StartingPrice, s.rules.MinPrice)

	if in.ReservePrice.IsNegative() {
		problems = append(problems, "reserve price cannot be negative")
	} else if !in.ReservePrice.IsZero() && in.ReservePrice.LessThan(in.StartingPrice) {
		problems = append(problems, "reserve price must be zero or at least the starting price")
	} else if in.ReservePrice.GreaterThanOrEqual(models.MaxAmount) {
		problems = append(problems, fmt.Sprintf("reserve price must be below %s", models.MaxAmount.StringFixed(2)))
	}

	minDur, maxDur := s.rules.MinDuration.Std(), s.rules.MaxDuration.Std()
	if in.Duration < minDur || in.Duration > maxDur {
		problems = append(problems, fmt.Sprintf("duration must be between %s and %s", minDur, maxDur))
	}
	if !in.StartTime.IsZero() && in.StartTime.Before(now.Add(-startTimeSkew)) {
		problems = append(problems, "start time cannot be in the past")
	}
	return problems
}

func checkPrice(field string, price, floor decimal.Decimal) []string {
	switch {
	case !price.Equal(price.Round(2)):
		return []string{field + " cannot have more than two decimal places"}
	case price.LessThan(floor):
		return []string{fmt.Sprintf("%s must be at least %s", field, floor.StringFixed(2))}
	case price.GreaterThanOrEqual(models.MaxAmount):
		return []string{fmt.Sprintf("%s must be below %s", field, models.MaxAmount.StringFixed(2))}
	}
	return nil
}

// GetArtwork returns an artwork with its image URL and auction id
func (s *CatalogService) GetArtwork(ctx context.Context, artworkID string) (models.ArtworkView, error) {
	if artworkID == "" {
		return models.ArtworkView{}, fmt.Errorf("service: %w - empty artwork ID", biddingerrors.ErrInvalidListing)
	}

	artwork, err := s.repo.GetArtwork(ctx, artworkID)
	if err != nil {
		return models.ArtworkView{}, fmt.Errorf("service: failed to load artwork %s: %w", artworkID, err)
	}
	view := models.ArtworkView{Artwork: artwork}

	auction, err := s.repo.GetAuctionByArtwork(ctx, artworkID)
	switch {
	case err == nil:
		view.AuctionID = auction.AuctionID
	case !errors.Is(err, biddingerrors.ErrAuctionNotFound):
		return models.ArtworkView{}, fmt.Errorf("service: failed to load auction for artwork %s: %w", artworkID, err)
	}

	view.ImageURL = s.imageURL(ctx, artwork)
	return view, nil
}

// imageURL degrades to no image rather than failing the whole read
func (s *CatalogService) imageURL(ctx context.Context, artwork models.Artwork) string {
	u, err := s.media.URL(ctx, artwork.ImageKey)
	if err != nil {
		utils.Warn("service: failed to resolve image URL", map[string]any{
			"artwork_id": artwork.ArtworkID,
			"image_key":  artwork.ImageKey,
			"error":      err.Error(),
		})
		return ""
	}
	return u
}

// galleryItems implements fuzzy.Source over title and artist
type galleryItems []models.GalleryItem

func (g galleryItems) Len() int {
	return len(g)
}

func (g galleryItems) String(i int) string {
	return strings.ToLower(g[i].Artwork.Title + " " + g[i].Artwork.ArtistName)
}

// BrowseGallery lists gallery items. With a search term, results are ranked by
// fuzzy match on title and artist; otherwise they keep listing order.
func (s *CatalogService) BrowseGallery(ctx context.Context, query models.GalleryQuery) ([]models.GalleryItem, error) {
	all, err := s.repo.ListGallery(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list gallery: %w", err)
	}

	category := strings.ToLower(strings.TrimSpace(query.Category))
	filtered := make(galleryItems, 0, len(all))
	for _, item := range all {
		if item.Artwork.Sold && !query.IncludeSold {
			continue
		}
		if category != "" && item.Artwork.Category != category {
			continue
		}
		filtered = append(filtered, item)
	}

	results := []models.GalleryItem(filtered)
	if search := strings.ToLower(strings.TrimSpace(query.Search)); search != "" {
		matches := fuzzy.FindFrom(search, filtered)
		results = make([]models.GalleryItem, len(matches))
		for i, m := range matches {
			results[i] = filtered[m.Index]
		}
	}

	for i := range results {
		results[i].ImageURL = s.imageURL(ctx, results[i].Artwork)
	}
	return results, nil
}
