package realtime

import (
	"art-marketplace/utils"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

const maxListenBackoff = 30 * time.Second

// PGListener forwards NOTIFY payloads from the bids insert trigger into the hub.
// Notifications are only sent on commit, so every event refers to a committed bid.
type PGListener struct {
	dsn     string
	channel string
	hub     *Hub
	backoff time.Duration
}

// NewPGListener listens on channel using a dedicated connection to dsn
func NewPGListener(dsn, channel string, hub *Hub) *PGListener {
	return &PGListener{dsn: dsn, channel: channel, hub: hub, backoff: 500 * time.Millisecond}
}

// Run listens until ctx is done, reconnecting and resubscribing with exponential backoff
func (l *PGListener) Run(ctx context.Context) error {
	backoff := l.backoff
	for {
		started := time.Now()
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return nil
		}

		// a session that stayed up for a while resets the backoff
		if time.Since(started) > maxListenBackoff {
			backoff = l.backoff
		}
		utils.Warn("Postgres listener disconnected, reconnecting", map[string]any{
			"channel": l.channel,
			"retry":   backoff.String(),
			"error":   fmt.Sprint(err),
		})

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxListenBackoff)
	}
}

func (l *PGListener) listen(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, l.dsn)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen %s: %w", l.channel, err)
	}
	utils.Info("Postgres listener subscribed", map[string]any{"channel": l.channel})

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		event, err := DecodeNotification(n.Payload)
		if err != nil {
			utils.Warn("Dropping malformed notification", map[string]any{
				"channel": n.Channel,
				"error":   err.Error(),
			})
			continue
		}
		_ = l.hub.Publish(ctx, event)
	}
}

// DecodeNotification parses a trigger payload into an Event
func DecodeNotification(payload string) (Event, error) {
	var event Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return Event{}, fmt.Errorf("decode notification: %w", err)
	}
	if event.AuctionID == "" || event.Type == "" {
		return Event{}, fmt.Errorf("decode notification: missing auction_id or type")
	}
	if event.ID == "" {
		event.ID = string(event.Type) + ":" + event.BidID
	}
	return event, nil
}
