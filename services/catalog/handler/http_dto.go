package handler

import (
	"time"

	"github.com/shopspring/decimal"
)

// SubmitArtworkRequest is the body of POST /artworks. Listing rules are
// checked by the catalog service so every problem is reported at once.
type SubmitArtworkRequest struct {
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	ArtistName    string          `json:"artist_name"`
	ImageKey      string          `json:"image_key"`
	Category      string          `json:"category"`
	Medium        string          `json:"medium"`
	Dimensions    string          `json:"dimensions"`
	Year          int             `json:"year"`
	Mode          string          `json:"mode"`
	Price         decimal.Decimal `json:"price"`
	StartingPrice decimal.Decimal `json:"starting_price"`
	ReservePrice  decimal.Decimal `json:"reserve_price"`
	StartTime     *time.Time      `json:"start_time"`
	DurationHours int             `json:"duration_hours"`
}
