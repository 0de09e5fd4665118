package handler

//go:generate mockgen -source=catalog_handler.go -destination=mock_catalog_handler.go -package=handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	model "art-marketplace/internal/models"
	"art-marketplace/services/bidding/helpers"
	"art-marketplace/utils"

	"github.com/gin-gonic/gin"
)

type CatalogServiceInterface interface {
	SubmitArtwork(ctx context.Context, in model.ArtworkSubmission) (model.Listing, error)
	GetArtwork(ctx context.Context, artworkID string) (model.ArtworkView, error)
	BrowseGallery(ctx context.Context, query model.GalleryQuery) ([]model.GalleryItem, error)
}

type CatalogHandler struct {
	service CatalogServiceInterface
}

func NewCatalogHandler(service CatalogServiceInterface) *CatalogHandler {
	return &CatalogHandler{service: service}
}

// SubmitArtworkHandler handles POST /artworks
func (h *CatalogHandler) SubmitArtworkHandler(c *gin.Context) {
	var req SubmitArtworkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "SubmitArtworkHandler", err)
		return
	}

	in := model.ArtworkSubmission{
		OwnerID:       helpers.CallerID(c),
		Title:         req.Title,
		Description:   req.Description,
		ArtistName:    req.ArtistName,
		ImageKey:      req.ImageKey,
		Category:      req.Category,
		Medium:        req.Medium,
		Dimensions:    req.Dimensions,
		Year:          req.Year,
		Mode:          model.ListingMode(req.Mode),
		Price:         req.Price,
		StartingPrice: req.StartingPrice,
		ReservePrice:  req.ReservePrice,
		Duration:      time.Duration(req.DurationHours) * time.Hour,
	}
	if req.StartTime != nil {
		in.StartTime = req.StartTime.UTC()
	}

	listing, err := h.service.SubmitArtwork(c.Request.Context(), in)
	if err != nil {
		helpers.RespondError(c, "SubmitArtworkHandler", err, map[string]any{
			"user_id": in.OwnerID,
			"mode":    req.Mode,
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, listing, "artwork listed successfully")
	helpers.LogSuccess("SubmitArtworkHandler", "artwork listed successfully", map[string]any{
		"artwork_id": listing.Artwork.ArtworkID,
		"user_id":    in.OwnerID,
		"mode":       req.Mode,
	})
}

// GetArtworkHandler handles GET /artworks/:artwork_id
func (h *CatalogHandler) GetArtworkHandler(c *gin.Context) {
	artworkID := c.Param("artwork_id")
	view, err := h.service.GetArtwork(c.Request.Context(), artworkID)
	if err != nil {
		helpers.RespondError(c, "GetArtworkHandler", err, map[string]any{"artwork_id": artworkID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, view, "artwork retrieved successfully")
}

// BrowseGalleryHandler handles GET /gallery?q=&category=&include_sold=
func (h *CatalogHandler) BrowseGalleryHandler(c *gin.Context) {
	query := model.GalleryQuery{
		Search:   c.Query("q"),
		Category: c.Query("category"),
	}
	if raw := c.Query("include_sold"); raw != "" {
		includeSold, err := strconv.ParseBool(raw)
		if err != nil {
			utils.JSONError(c, http.StatusBadRequest, fmt.Errorf("invalid include_sold: %w", err), "include_sold must be true or false")
			return
		}
		query.IncludeSold = includeSold
	}

	items, err := h.service.BrowseGallery(c.Request.Context(), query)
	if err != nil {
		helpers.RespondError(c, "BrowseGalleryHandler", err, map[string]any{"query": query.Search})
		return
	}

	if items == nil {
		items = []model.GalleryItem{}
	}

	utils.JSONResponse(c, http.StatusOK, items, "gallery retrieved successfully")
	helpers.LogSuccess("BrowseGalleryHandler", "gallery retrieved successfully", map[string]any{
		"query":    query.Search,
		"category": query.Category,
		"count":    len(items),
	})
}
