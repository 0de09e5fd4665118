package repository

import (
	model "art-marketplace/internal/models"
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// BidEventsChannel is the NOTIFY channel fed by the bids insert trigger
const BidEventsChannel = "bid_events"

// Migrate creates tables, indexes and the bid notification trigger. It is safe to run repeatedly.
func Migrate(ctx context.Context, db *bun.DB) error {
	tables := []struct {
		model       any
		foreignKeys []string
	}{
		{model: (*model.Artwork)(nil)},
		{model: (*model.Auction)(nil), foreignKeys: []string{`("artwork_id") REFERENCES "artworks" ("id")`}},
		{model: (*model.Bid)(nil), foreignKeys: []string{`("auction_id") REFERENCES "auctions" ("id")`}},
		{model: (*model.GalleryEntry)(nil), foreignKeys: []string{`("artwork_id") REFERENCES "artworks" ("id")`}},
		{model: (*model.Notification)(nil)},
	}

	for _, t := range tables {
		q := db.NewCreateTable().Model(t.model).IfNotExists()
		for _, fk := range t.foreignKeys {
			q = q.ForeignKey(fk)
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	statements := []string{
		"CREATE INDEX IF NOT EXISTS idx_bids_auction_rank ON bids(auction_id, amount DESC, created_at ASC);",
		"CREATE INDEX IF NOT EXISTS idx_bids_bidder ON bids(bidder_id);",
		"CREATE INDEX IF NOT EXISTS idx_auctions_status_end_time ON auctions(status, end_time);",
		"CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, created_at DESC);",
		`CREATE OR REPLACE FUNCTION notify_bid_event() RETURNS trigger AS $$
BEGIN
	PERFORM pg_notify('` + BidEventsChannel + `', json_build_object(
		'id', 'bid_placed:' || NEW.id,
		'type', 'bid_placed',
		'auction_id', NEW.auction_id,
		'user_id', NEW.bidder_id,
		'bid_id', NEW.id,
		'amount', NEW.amount,
		'at', NEW.created_at
	)::text);
	RETURN NEW;
END;
$$ LANGUAGE plpgsql;`,
		"DROP TRIGGER IF EXISTS bids_notify ON bids;",
		"CREATE TRIGGER bids_notify AFTER INSERT ON bids FOR EACH ROW EXECUTE FUNCTION notify_bid_event();",
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply migration: %w", err)
		}
	}
	return nil
}
