package realtime

//go:generate mockgen -source=hub.go -destination=mock_publisher.go -package=realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/shopspring/decimal"
)

// EventType names what changed on an auction
type EventType string

const (
	EventBidPlaced     EventType = "bid_placed"
	EventOutbid        EventType = "outbid"
	EventAuctionClosed EventType = "auction_closed"
)

// Event tells subscribers that an auction changed. It is a hint to re-read
// the auction state, never the authoritative state itself.
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	AuctionID string          `json:"auction_id"`
	UserID    string          `json:"user_id,omitempty"`
	BidID     string          `json:"bid_id,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	At        time.Time       `json:"at"`
}

// Publisher delivers events to everyone watching an auction
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// ErrHubClosed is returned when subscribing to a closed hub
var ErrHubClosed = errors.New("realtime hub closed")

type subscriber struct {
	ch   chan Event
	once sync.Once
}

// Hub fans events out to in-process subscribers keyed by auction id.
// Delivery is at-least-once upstream, so events are deduplicated by ID inside a bounded window.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*subscriber]struct{} // key: auctionID
	seen   *lru.Cache
	buffer int
	closed bool
}

// NewHub creates a hub with per-subscriber buffer size and dedupe window
func NewHub(buffer, dedupeWindow int) (*Hub, error) {
	if buffer < 1 {
		buffer = 1
	}
	seen, err := lru.New(dedupeWindow)
	if err != nil {
		return nil, err
	}
	return &Hub{
		subs:   make(map[string]map[*subscriber]struct{}),
		seen:   seen,
		buffer: buffer,
	}, nil
}

// Subscribe registers for events on auctionID. The returned cancel func
// unregisters and closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe(auctionID string) (<-chan Event, func(), error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, nil, ErrHubClosed
	}

	sub := &subscriber{ch: make(chan Event, h.buffer)}
	if h.subs[auctionID] == nil {
		h.subs[auctionID] = make(map[*subscriber]struct{})
	}
	h.subs[auctionID][sub] = struct{}{}

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if set, ok := h.subs[auctionID]; ok {
			delete(set, sub)
			if len(set) == 0 {
				delete(h.subs, auctionID)
			}
		}
		sub.once.Do(func() { close(sub.ch) })
	}
	return sub.ch, cancel, nil
}

// Publish delivers event to the auction's subscribers without blocking.
// A subscriber whose buffer is full already has a pending re-read, so it is skipped.
func (h *Hub) Publish(_ context.Context, event Event) error {
	if event.ID != "" {
		if seen, _ := h.seen.ContainsOrAdd(event.ID, struct{}{}); seen {
			return nil
		}
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs[event.AuctionID] {
		select {
		case sub.ch <- event:
		default:
		}
	}
	return nil
}

// Subscribers returns the number of live subscriptions on auctionID
func (h *Hub) Subscribers(auctionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[auctionID])
}

// Close closes every subscriber channel and rejects new subscriptions
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for auctionID, set := range h.subs {
		for sub := range set {
			sub.once.Do(func() { close(sub.ch) })
		}
		delete(h.subs, auctionID)
	}
}
