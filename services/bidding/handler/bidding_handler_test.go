package handler

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"art-marketplace/internal/biddingerrors"
	"art-marketplace/internal/clock"
	model "art-marketplace/internal/models"
	"art-marketplace/internal/realtime"
	"art-marketplace/services/bidding/helpers"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const identityHeader = "X-User-ID"

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
}

// withCaller stands in for the identity middleware
func withCaller(c *gin.Context) {
	if id := c.GetHeader(identityHeader); id != "" {
		c.Set(helpers.CallerIDKey, id)
	}
}

type decimalMatcher struct{ want decimal.Decimal }

func (m decimalMatcher) Matches(x interface{}) bool {
	d, ok := x.(decimal.Decimal)
	return ok && d.Equal(m.want)
}

func (m decimalMatcher) String() string {
	return "is decimal " + m.want.String()
}

func decEq(s string) gomock.Matcher {
	return decimalMatcher{want: decimal.RequireFromString(s)}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestHandler(t *testing.T) (*BiddingHandler, *MockBiddingServiceInterface, *MockEventSubscriber) {
	t.Helper()
	ctrl := gomock.NewController(t)
	service := NewMockBiddingServiceInterface(ctrl)
	events := NewMockEventSubscriber(ctrl)
	return NewBiddingHandler(service, events, clock.NewManual(now), 10*time.Millisecond), service, events
}

func decodeEnvelope(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp
}

func TestPlaceBidHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		caller         string
		requestBody    any
		mockSetup      func(m *MockBiddingServiceInterface)
		expectedStatus int
		expectedMsg    string
		validate       func(t *testing.T, w *httptest.ResponseRecorder, resp map[string]any)
	}{
		{
			name:        "success_valid_bid",
			caller:      "user1",
			requestBody: `{"amount": 120}`,
			mockSetup: func(m *MockBiddingServiceInterface) {
				m.EXPECT().
					PlaceBid(gomock.Any(), "auc1", "user1", decEq("120")).
					Return(model.BidReceipt{
						Bid:             model.Bid{BidID: uuid.NewString(), AuctionID: "auc1", BidderID: "user1", Amount: dec("120"), CreatedAt: now},
						Accepted:        true,
						NewHighest:      dec("120"),
						PreviousHighest: dec("100"),
					}, nil)
			},
			expectedStatus: http.StatusCreated,
			expectedMsg:    "bid placed successfully",
			validate: func(t *testing.T, _ *httptest.ResponseRecorder, resp map[string]any) {
				data := resp["data"].(map[string]any)
				_, err := uuid.Parse(data["bid_id"].(string))
				require.NoError(t, err)
				require.Equal(t, "auc1", data["auction_id"])
				require.Equal(t, "user1", data["bidder_id"])
				require.Equal(t, true, data["accepted"])
				require.Equal(t, 120.0, data["new_highest"])
				require.Equal(t, 100.0, data["previous_highest"])
				require.Equal(t, "2026-03-01T12:00:00Z", data["created_at"])
			},
		},
		{
			name:        "string_amount_accepted",
			caller:      "user1",
			requestBody: `{"amount": "130.50"}`,
			mockSetup: func(m *MockBiddingServiceInterface) {
				m.EXPECT().
					PlaceBid(gomock.Any(), "auc1", "user1", decEq("130.5")).
					Return(model.BidReceipt{Accepted: true, NewHighest: dec("130.5")}, nil)
			},
			expectedStatus: http.StatusCreated,
			expectedMsg:    "bid placed successfully",
		},
		{
			name:           "invalid_json",
			caller:         "user1",
			requestBody:    `{invalid json}`,
			mockSetup:      func(m *MockBiddingServiceInterface) {},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid request payload",
		},
		{
			name:           "missing_amount",
			caller:         "user1",
			requestBody:    `{}`,
			mockSetup:      func(m *MockBiddingServiceInterface) {},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid request payload",
		},
		{
			name:           "non_numeric_amount",
			caller:         "user1",
			requestBody:    `{"amount": "lots"}`,
			mockSetup:      func(m *MockBiddingServiceInterface) {},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid request payload",
		},
		{
			name:        "service_invalid_bid",
			caller:      "user1",
			requestBody: `{"amount": -5}`,
			mockSetup: func(m *MockBiddingServiceInterface) {
				m.EXPECT().
					PlaceBid(gomock.Any(), "auc1", "user1", decEq("-5")).
					Return(model.BidReceipt{}, fmt.Errorf("service: %w - amount must be positive", biddingerrors.ErrInvalidBid))
			},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid bid details",
		},
		{
			name:        "bid_too_low_names_current_highest",
			caller:      "user2",
			requestBody: `{"amount": 110}`,
			mockSetup: func(m *MockBiddingServiceInterface) {
				m.EXPECT().
					PlaceBid(gomock.Any(), "auc1", "user2", decEq("110")).
					Return(model.BidReceipt{}, fmt.Errorf("service: %w", biddingerrors.NewBidTooLow(dec("120"))))
			},
			expectedStatus: http.StatusConflict,
			expectedMsg:    "your bid must exceed the current highest bid of 120.00",
		},
		{
			name:        "self_bid",
			caller:      "owner",
			requestBody: `{"amount": 200}`,
			mockSetup: func(m *MockBiddingServiceInterface) {
				m.EXPECT().
					PlaceBid(gomock.Any(), "auc1", "owner", decEq("200")).
					Return(model.BidReceipt{}, biddingerrors.ErrSelfBid)
			},
			expectedStatus: http.StatusForbidden,
			expectedMsg:    "you cannot bid on your own auction",
		},
		{
			name:        "auction_ended",
			caller:      "user1",
			requestBody: `{"amount": 150}`,
			mockSetup: func(m *MockBiddingServiceInterface) {
				m.EXPECT().
					PlaceBid(gomock.Any(), "auc1", "user1", decEq("150")).
					Return(model.BidReceipt{}, biddingerrors.ErrAuctionExpired)
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedMsg:    "this auction has ended",
		},
		{
			name:        "auction_not_found",
			caller:      "user1",
			requestBody: `{"amount": 150}`,
			mockSetup: func(m *MockBiddingServiceInterface) {
				m.EXPECT().
					PlaceBid(gomock.Any(), "auc1", "user1", decEq("150")).
					Return(model.BidReceipt{}, biddingerrors.ErrAuctionNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedMsg:    "auction not found",
		},
		{
			name:        "concurrent_conflict",
			caller:      "user1",
			requestBody: `{"amount": 150}`,
			mockSetup: func(m *MockBiddingServiceInterface) {
				m.EXPECT().
					PlaceBid(gomock.Any(), "auc1", "user1", decEq("150")).
					Return(model.BidReceipt{}, biddingerrors.ErrBidConflict)
			},
			expectedStatus: http.StatusConflict,
			expectedMsg:    "please review the current bid and retry",
		},
		{
			name:        "store_unavailable",
			caller:      "user1",
			requestBody: `{"amount": 150}`,
			mockSetup: func(m *MockBiddingServiceInterface) {
				m.EXPECT().
					PlaceBid(gomock.Any(), "auc1", "user1", decEq("150")).
					Return(model.BidReceipt{}, biddingerrors.ErrStoreUnavailable)
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedMsg:    "service temporarily unavailable",
			validate: func(t *testing.T, w *httptest.ResponseRecorder, _ map[string]any) {
				require.Equal(t, "1", w.Header().Get("Retry-After"))
			},
		},
		{
			name:        "service_generic_error",
			caller:      "user1",
			requestBody: `{"amount": 150}`,
			mockSetup: func(m *MockBiddingServiceInterface) {
				m.EXPECT().
					PlaceBid(gomock.Any(), "auc1", "user1", decEq("150")).
					Return(model.BidReceipt{}, errors.New("database failure"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedMsg:    "internal server error",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			handler, service, _ := newTestHandler(t)
			tc.mockSetup(service)

			router := gin.New()
			router.POST("/auctions/:auction_id/bids", withCaller, handler.PlaceBidHandler)

			var reqBody []byte
			switch v := tc.requestBody.(type) {
			case string:
				reqBody = []byte(v)
			default:
				var err error
				reqBody, err = json.Marshal(v)
				require.NoError(t, err)
			}

			req := httptest.NewRequest(http.MethodPost, "/auctions/auc1/bids", bytes.NewReader(reqBody))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set(identityHeader, tc.caller)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			require.Equal(t, tc.expectedStatus, w.Code)
			resp := decodeEnvelope(t, w.Body.Bytes())
			require.Contains(t, resp["message"], tc.expectedMsg)

			if tc.validate != nil {
				tc.validate(t, w, resp)
			}
		})
	}
}

func TestGetAuctionStateHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		mockSetup      func(m *MockBiddingServiceInterface)
		expectedStatus int
		expectedMsg    string
	}{
		{
			name: "success",
			mockSetup: func(m *MockBiddingServiceInterface) {
				m.EXPECT().GetAuctionState(gomock.Any(), "auc1").Return(model.AuctionState{
					AuctionID:  "auc1",
					HighestBid: dec("130"),
					BidCount:   2,
					TopBids:    []model.Bid{{BidID: "b2", Amount: dec("130")}, {BidID: "b1", Amount: dec("120")}},
					EndTime:    now.Add(time.Hour),
					Status:     model.AuctionStatusActive,
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedMsg:    "auction retrieved successfully",
		},
		{
			name: "not_found",
			mockSetup: func(m *MockBiddingServiceInterface) {
				m.EXPECT().GetAuctionState(gomock.Any(), "auc1").Return(model.AuctionState{}, biddingerrors.ErrAuctionNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedMsg:    "auction not found",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			handler, service, _ := newTestHandler(t)
			tc.mockSetup(service)
			router := gin.New()
			router.GET("/auctions/:auction_id", handler.GetAuctionStateHandler)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auctions/auc1", nil))

			require.Equal(t, tc.expectedStatus, w.Code)
			resp := decodeEnvelope(t, w.Body.Bytes())
			require.Contains(t, resp["message"], tc.expectedMsg)

			if w.Code == http.StatusOK {
				data := resp["data"].(map[string]any)
				require.Equal(t, 130.0, data["highest_bid"])
				require.Equal(t, 2.0, data["bid_count"])
				require.Equal(t, "active", data["status"])
				require.Len(t, data["top_bids"], 2)
			}
		})
	}
}

func TestGetBidsByAuctionHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		mockSetup      func(m *MockBiddingServiceInterface)
		expectedStatus int
		expectedMsg    string
		expectedCount  int
	}{
		{
			name: "success_multiple_bids",
			mockSetup: func(m *MockBiddingServiceInterface) {
				m.EXPECT().GetBidsForAuction(gomock.Any(), "auc1").Return([]model.Bid{
					{BidID: uuid.NewString(), AuctionID: "auc1", BidderID: "user2", Amount: dec("150"), CreatedAt: now},
					{BidID: uuid.NewString(), AuctionID: "auc1", BidderID: "user1", Amount: dec("100"), CreatedAt: now},
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedMsg:    "bids retrieved successfully",
			expectedCount:  2,
		},
		{
			name: "service_nil_slice",
			mockSetup: func(m *MockBiddingServiceInterface) {
				m.EXPECT().GetBidsForAuction(gomock.Any(), "auc1").Return(nil, nil)
			},
			expectedStatus: http.StatusOK,
			expectedMsg:    "bids retrieved successfully",
			expectedCount:  0,
		},
		{
			name: "extremely_large_number_of_bids",
			mockSetup: func(m *MockBiddingServiceInterface) {
				bids := make([]model.Bid, 1000)
				for i := range bids {
					bids[i] = model.Bid{
						BidID:     uuid.NewString(),
						AuctionID: "auc1",
						BidderID:  fmt.Sprintf("user%d", i),
						Amount:    decimal.NewFromInt(int64(2000 - i)),
						CreatedAt: now,
					}
				}
				m.EXPECT().GetBidsForAuction(gomock.Any(), "auc1").Return(bids, nil)
			},
			expectedStatus: http.StatusOK,
			expectedMsg:    "bids retrieved successfully",
			expectedCount:  1000,
		},
		{
			name: "service_generic_error",
			mockSetup: func(m *MockBiddingServiceInterface) {
				m.EXPECT().GetBidsForAuction(gomock.Any(), "auc1").Return(nil, errors.New("database failure"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedMsg:    "internal server error",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			handler, service, _ := newTestHandler(t)
			tc.mockSetup(service)
			router := gin.New()
			router.GET("/auctions/:auction_id/bids", handler.GetBidsByAuctionHandler)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auctions/auc1/bids", nil))

			require.Equal(t, tc.expectedStatus, w.Code)
			resp := decodeEnvelope(t, w.Body.Bytes())
			require.Contains(t, resp["message"], tc.expectedMsg)

			if w.Code == http.StatusOK {
				require.Len(t, resp["data"].([]any), tc.expectedCount)
			}
		})
	}
}

func TestCloseAuctionHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		returnState    model.AuctionState
		returnErr      error
		expectedStatus int
		expectedMsg    string
	}{
		{
			name:           "settled_sold",
			returnState:    model.AuctionState{AuctionID: "auc1", Status: model.AuctionStatusEndedSold, HighestBidder: "user2"},
			expectedStatus: http.StatusOK,
			expectedMsg:    "auction closed",
		},
		{
			name:           "still_running",
			returnErr:      biddingerrors.ErrAuctionNotEnded,
			expectedStatus: http.StatusUnprocessableEntity,
			expectedMsg:    "this auction is still running",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			handler, service, _ := newTestHandler(t)
			service.EXPECT().CloseAuction(gomock.Any(), "auc1").Return(tc.returnState, tc.returnErr)
			router := gin.New()
			router.POST("/auctions/:auction_id/close", handler.CloseAuctionHandler)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auctions/auc1/close", nil))

			require.Equal(t, tc.expectedStatus, w.Code)
			resp := decodeEnvelope(t, w.Body.Bytes())
			require.Contains(t, resp["message"], tc.expectedMsg)
		})
	}
}

func TestRelistHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		returnResult   model.RelistResult
		returnErr      error
		expectedStatus int
		expectedMsg    string
	}{
		{
			name:           "listed",
			returnResult:   model.RelistResult{Listed: true, Entry: model.GalleryEntry{EntryID: "g1", ArtworkID: "art1"}},
			expectedStatus: http.StatusCreated,
			expectedMsg:    "artwork listed in the gallery",
		},
		{
			name:           "already_listed",
			returnResult:   model.RelistResult{AlreadyListed: true, Entry: model.GalleryEntry{EntryID: "g1", ArtworkID: "art1"}},
			expectedStatus: http.StatusOK,
			expectedMsg:    "already listed",
		},
		{
			name:           "not_owner",
			returnErr:      biddingerrors.ErrNotOwner,
			expectedStatus: http.StatusForbidden,
			expectedMsg:    "only the artwork's owner",
		},
		{
			name:           "auction_still_running",
			returnErr:      biddingerrors.ErrAuctionNotEnded,
			expectedStatus: http.StatusUnprocessableEntity,
			expectedMsg:    "still running",
		},
		{
			name:           "artwork_sold",
			returnErr:      biddingerrors.ErrArtworkSold,
			expectedStatus: http.StatusUnprocessableEntity,
			expectedMsg:    "already been sold",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			handler, service, _ := newTestHandler(t)
			service.EXPECT().RelistExpiredToGallery(gomock.Any(), "art1", "owner").Return(tc.returnResult, tc.returnErr)
			router := gin.New()
			router.POST("/artworks/:artwork_id/relist", withCaller, handler.RelistHandler)

			req := httptest.NewRequest(http.MethodPost, "/artworks/art1/relist", nil)
			req.Header.Set(identityHeader, "owner")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			require.Equal(t, tc.expectedStatus, w.Code)
			resp := decodeEnvelope(t, w.Body.Bytes())
			require.Contains(t, resp["message"], tc.expectedMsg)
		})
	}
}

func TestGetAuctionsByUserHandler(t *testing.T) {
	t.Parallel()

	handler, service, _ := newTestHandler(t)
	gomock.InOrder(
		service.EXPECT().GetAuctionsByUser(gomock.Any(), "user1").Return([]model.Auction{{AuctionID: "auc1"}}, nil),
		service.EXPECT().GetAuctionsByUser(gomock.Any(), "user2").Return(nil, nil),
	)
	router := gin.New()
	router.GET("/users/:user_id/auctions", handler.GetAuctionsByUserHandler)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/user1/auctions", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decodeEnvelope(t, w.Body.Bytes())["data"], 1)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/user2/auctions", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, []any{}, decodeEnvelope(t, w.Body.Bytes())["data"])
}

func TestGetNotificationsHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		caller         string
		mockSetup      func(m *MockBiddingServiceInterface)
		expectedStatus int
		expectedMsg    string
	}{
		{
			name:   "own_notifications",
			caller: "user1",
			mockSetup: func(m *MockBiddingServiceInterface) {
				m.EXPECT().GetNotifications(gomock.Any(), "user1").Return([]model.Notification{
					{NotificationID: "n1", UserID: "user1", Kind: model.NotificationOutbid, Message: "You have been outbid"},
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedMsg:    "notifications retrieved successfully",
		},
		{
			name:           "someone_elses_notifications",
			caller:         "user2",
			mockSetup:      func(m *MockBiddingServiceInterface) {},
			expectedStatus: http.StatusForbidden,
			expectedMsg:    "you can only read your own notifications",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			handler, service, _ := newTestHandler(t)
			tc.mockSetup(service)
			router := gin.New()
			router.GET("/users/:user_id/notifications", withCaller, handler.GetNotificationsHandler)

			req := httptest.NewRequest(http.MethodGet, "/users/user1/notifications", nil)
			req.Header.Set(identityHeader, tc.caller)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			require.Equal(t, tc.expectedStatus, w.Code)
			resp := decodeEnvelope(t, w.Body.Bytes())
			require.Contains(t, resp["message"], tc.expectedMsg)
		})
	}
}

// readEvents collects SSE event names until stop returns true or the body ends
func readEvents(t *testing.T, scanner *bufio.Scanner, stop func(names []string) bool) []string {
	t.Helper()
	var names []string
	for scanner.Scan() {
		line := scanner.Text()
		if name, ok := strings.CutPrefix(line, "event:"); ok {
			names = append(names, strings.TrimSpace(name))
			if stop(names) {
				break
			}
		}
	}
	return names
}

func contains(names []string, want string) bool {
	for _, n := range names {
		if n == want {
			return true
		}
	}
	return false
}

func TestStreamAuctionEventsHandler(t *testing.T) {
	t.Parallel()

	handler, service, events := newTestHandler(t)

	feed := make(chan realtime.Event, 4)
	unsubscribed := make(chan struct{})
	service.EXPECT().GetAuctionState(gomock.Any(), "auc1").Return(model.AuctionState{
		AuctionID: "auc1",
		EndTime:   now.Add(time.Hour),
		Status:    model.AuctionStatusActive,
	}, nil)
	events.EXPECT().Subscribe("auc1").Return((<-chan realtime.Event)(feed), func() { close(unsubscribed) }, nil)

	router := gin.New()
	router.GET("/auctions/:auction_id/events", handler.StreamAuctionEventsHandler)
	srv := httptest.NewServer(router)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/auctions/auc1/events", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	scanner := bufio.NewScanner(resp.Body)
	names := readEvents(t, scanner, func(names []string) bool { return contains(names, "countdown") })
	require.Equal(t, "state", names[0])

	feed <- realtime.Event{ID: "bid_placed:b1", Type: realtime.EventBidPlaced, AuctionID: "auc1", BidID: "b1", Amount: dec("120"), At: now}
	names = readEvents(t, scanner, func(names []string) bool { return contains(names, "bid_placed") })
	require.Contains(t, names, "bid_placed")

	cancel()
	select {
	case <-unsubscribed:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not unsubscribe after the client left")
	}
}

func TestStreamAuctionEventsHandler_UnknownAuction(t *testing.T) {
	t.Parallel()

	handler, service, _ := newTestHandler(t)
	service.EXPECT().GetAuctionState(gomock.Any(), "nope").Return(model.AuctionState{}, biddingerrors.ErrAuctionNotFound)

	router := gin.New()
	router.GET("/auctions/:auction_id/events", handler.StreamAuctionEventsHandler)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auctions/nope/events", nil))

	require.Equal(t, http.StatusNotFound, w.Code)
}
