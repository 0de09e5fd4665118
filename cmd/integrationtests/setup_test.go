package integrationtests

import (
	bidding "art-marketplace/internal/biddingService"
	catalog "art-marketplace/internal/catalogService"
	"art-marketplace/internal/clock"
	"art-marketplace/internal/config"
	"art-marketplace/internal/media"
	model "art-marketplace/internal/models"
	"art-marketplace/internal/realtime"
	"art-marketplace/internal/repository"
	"art-marketplace/internal/server"
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const identityHeader = "X-User-ID"

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// testEnv is a full router over the in-memory store with a settable clock
type testEnv struct {
	router *gin.Engine
	repo   *repository.MemoryRepo
	hub    *realtime.Hub
	clock  *clock.Manual
}

// SetupTestEnv initializes the router with in-memory repository for integration testing.
func SetupTestEnv(t *testing.T, listings ...model.Listing) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := repository.NewMemoryRepo()
	for _, l := range listings {
		repo.AddListing(l)
	}

	hub, err := realtime.NewHub(16, 1024)
	require.NoError(t, err)
	t.Cleanup(hub.Close)

	clk := clock.NewManual(baseTime)
	cfg := config.Default()

	router := server.SetupRouter(server.Dependencies{
		Bidding:           bidding.NewBiddingService(repo, hub, clk, cfg.Auction.TopBids),
		Catalog:           catalog.NewCatalogService(repo, media.NewStaticResolver("https://cdn.example.com"), clk, cfg.Auction),
		Events:            hub,
		Clock:             clk,
		CountdownInterval: time.Second,
		IdentityHeader:    identityHeader,
	})

	return &testEnv{router: router, repo: repo, hub: hub, clock: clk}
}

// auctionListing builds an auction that runs for an hour from baseTime
func auctionListing(artworkID, auctionID, seller string, startingPrice int64) model.Listing {
	price := decimal.NewFromInt(startingPrice)
	return model.Listing{
		Artwork: model.Artwork{
			ArtworkID:  artworkID,
			Title:      "Artwork " + artworkID,
			ArtistName: "Ada Painter",
			Price:      price,
			OwnerID:    seller,
		},
		Auction: &model.Auction{
			AuctionID:         auctionID,
			ArtworkID:         artworkID,
			SellerID:          seller,
			StartingPrice:     price,
			CurrentHighestBid: price,
			StartTime:         baseTime,
			EndTime:           baseTime.Add(time.Hour),
			Status:            model.AuctionStatusActive,
		},
	}
}

// ExecuteRequestAndParse executes an HTTP request on the router as caller and parses the response envelope
func (e *testEnv) ExecuteRequestAndParse(t *testing.T, method, url, caller string, body any) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()

	var reqBody []byte
	switch v := body.(type) {
	case nil:
	case []byte:
		reqBody = v
	case string:
		reqBody = []byte(v)
	default:
		var err error
		reqBody, err = json.Marshal(v)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, url, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	if caller != "" {
		req.Header.Set(identityHeader, caller)
	}
	e.router.ServeHTTP(w, req)

	var resp map[string]any
	if len(w.Body.Bytes()) > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
	}
	return resp, w
}

// bid places a bid through the API and returns the status code and message
func (e *testEnv) bid(t *testing.T, auctionID, bidder, amount string) (int, string) {
	t.Helper()
	e.clock.Advance(time.Second)
	resp, w := e.ExecuteRequestAndParse(t, "POST", "/auctions/"+auctionID+"/bids", bidder, `{"amount": `+amount+`}`)
	msg, _ := resp["message"].(string)
	return w.Code, msg
}

func data(t *testing.T, resp map[string]any) map[string]any {
	t.Helper()
	d, ok := resp["data"].(map[string]any)
	require.True(t, ok, "response has no data object: %v", resp)
	return d
}
